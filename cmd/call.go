package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	callInstance string
	callArgs     string
)

var callCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Resolve a single tool call and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var toolArgs map[string]interface{}
		if callArgs != "" {
			if err := json.Unmarshal([]byte(callArgs), &toolArgs); err != nil {
				return fmt.Errorf("invalid --args JSON: %w", err)
			}
		}

		a, err := newApp(configPath)
		if err != nil {
			return err
		}
		defer a.shutdown(ctx)

		a.startPool(ctx)

		r, err := a.newRouter(ctx, callInstance)
		if err != nil {
			return err
		}
		defer r.Close(ctx)

		if narration, ok := r.StatusUpdate(args[0], toolArgs); ok && narration != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), narration)
		}

		result, err := r.Resolve(ctx, args[0], toolArgs)
		if err != nil {
			return err
		}

		rendered, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(rendered))

		return nil
	},
}

func init() {
	callCmd.Flags().StringVar(&callInstance, "instance", "", "Managed instance ID")
	callCmd.Flags().StringVar(&callArgs, "args", "", "Tool arguments as a JSON object")
	rootCmd.AddCommand(callCmd)
}
