package cmd

import (
	"os"

	"dbpilot/pkg/logging"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debugLog   bool
)

// rootCmd represents the base command for the dbpilot application.
var rootCmd = &cobra.Command{
	Use:   "dbpilot",
	Short: "Operations assistant backend for managed database instances",
	Long: `dbpilot is the tool routing, lifecycle and caching core behind an
LLM-facing operations assistant. It discovers backend capabilities
(metrics, logs, diagnostics, pooled MCP servers), binds them to stable
invocation names per managed instance, and caches expensive results.`,
	// SilenceUsage prevents cobra from printing the usage message on errors
	// the application already handles.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if debugLog {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "dbpilot.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")
}

// SetVersion sets the version for the root command. Called from main with
// the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "dbpilot version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
