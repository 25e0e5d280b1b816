package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var toolsInstance string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available for an instance",
	Long: `Starts the connection pool, builds a router session for the given
instance and prints the final, collision-free tool list the agent loop
would bind to the LLM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(configPath)
		if err != nil {
			return err
		}
		defer a.shutdown(ctx)

		a.startPool(ctx)

		r, err := a.newRouter(ctx, toolsInstance)
		if err != nil {
			return err
		}
		defer r.Close(ctx)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Tool", "Description"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		})
		for _, tool := range r.ListTools() {
			t.AppendRow(table.Row{tool.Name, tool.Description})
		}
		t.Render()

		return nil
	},
}

func init() {
	toolsCmd.Flags().StringVar(&toolsInstance, "instance", "", "Managed instance ID (omit for scope-independent tools only)")
	rootCmd.AddCommand(toolsCmd)
}
