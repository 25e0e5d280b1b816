package cmd

import (
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Inspect the capability server connection pool",
}

var poolStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect every configured capability server and report results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(configPath)
		if err != nil {
			return err
		}
		defer a.shutdown(ctx)

		results := a.startPool(ctx)

		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Server", "Connected", "Tools"})
		for _, name := range names {
			toolCount := 0
			if conn, ok := a.pool.GetConnection(name); ok {
				toolCount = len(conn.Tools)
			}
			t.AppendRow(table.Row{name, results[name], toolCount})
		}
		t.Render()

		return nil
	},
}

func init() {
	poolCmd.AddCommand(poolStatusCmd)
	rootCmd.AddCommand(poolCmd)
}
