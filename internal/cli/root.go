package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/logger"
	"github.com/fdwatch/fdwatch/internal/ui"
)

// Global flags
var (
	cfgFile string
	apiFlag string
	noColor bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "fdwatch",
	Short: "Watch FastDeploy inference servers from the terminal",
	Long: `fdwatch polls a FastDeploy serving API and shows each server's log,
per-model and per-device performance, and model configuration.

Run 'fdwatch watch' for the interactive dashboard, or use the one-shot
commands (logs, metrics, config) in scripts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
		if verbose {
			os.Setenv(logger.DebugEnv, "1") //nolint:errcheck // only fails on invalid keys
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .fdwatch.yaml, then ~/.config/fdwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "API root URL, overrides config")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

func printError(err error) {
	if _, ok := err.(*errors.Error); ok {
		fmt.Fprint(os.Stderr, err.Error())
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.SymbolFail, err)
}

// globalOptions seeds WorkflowOptions from the persistent flags.
func globalOptions() WorkflowOptions {
	return WorkflowOptions{
		ConfigPath: cfgFile,
		API:        apiFlag,
	}
}
