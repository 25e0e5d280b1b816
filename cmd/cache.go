package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheInstance string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the cross-conversation tool cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report cached entry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(configPath)
		if err != nil {
			return err
		}
		defer a.shutdown(ctx)

		if a.cache == nil {
			return fmt.Errorf("cache is disabled in %s", configPath)
		}

		if cacheInstance != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "entries for %s: %d\n", cacheInstance, a.cache.Stats(ctx, cacheInstance))
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "total entries: %d\n", a.cache.StatsAll(ctx))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached entries for one instance, or all of them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(configPath)
		if err != nil {
			return err
		}
		defer a.shutdown(ctx)

		if a.cache == nil {
			return fmt.Errorf("cache is disabled in %s", configPath)
		}

		var removed int
		if cacheInstance != "" {
			removed = a.cache.Clear(ctx, cacheInstance)
		} else {
			removed = a.cache.ClearAll(ctx)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheInstance, "instance", "", "Limit to one managed instance ID")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
