package cli

import (
	"time"

	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	watchModeFlag       string
	watchIntervalFlag   time.Duration
	watchMetricsFlag    string
	watchLogFileFlag    string
	serversJSONFlag     bool
	serversProbeFlag    bool
	logsFollowFlag      bool
	logsIntervalFlag    time.Duration
	metricsJSONFlag     bool
	metricsExpandFlag   string
	metricsTopKFlag     int
	configJSONFlag      bool
	stopYesFlag         bool
	initForceFlag       bool
	initServerFlag      string
	initAliasFlag       string
	initModeFlag        string
	initTunnelFlag      string
	initNonInteractive  bool
	aliasModeFlag       string
	aliasExpositionFlag string
	aliasDefaultFlag    bool
)

// watchCmd opens the interactive dashboard
var watchCmd = &cobra.Command{
	Use:   "watch [server]",
	Short: "Open the live dashboard for a server",
	Long: `Open a full-screen dashboard that polls one inference server.

The dashboard has four views: LOG, PERFORMANCE, CONFIG and OVERVIEW.
Switch with 1-4 or tab, refresh now with r, and press ? for every key.

Examples:
  fdwatch watch
  fdwatch watch resnet --mode performance
  fdwatch watch 0bd2c8 --interval 5s --metrics-listen :9464`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := globalOptions()
		opts.Server = firstArg(args)
		return watchCommand(cmd.Context(), opts, WatchOptions{
			Mode:          watchModeFlag,
			Interval:      watchIntervalFlag,
			MetricsListen: watchMetricsFlag,
			LogFile:       watchLogFileFlag,
		})
	},
}

// serversCmd lists running and configured servers
var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "List inference servers",
	Long: `List the servers the API reports as running, merged with the aliases
from your config. Each server is probed for liveness; pass --probe=false
to skip the checks.

Examples:
  fdwatch servers
  fdwatch servers --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serversCommand(cmd.Context(), cmd.OutOrStdout(), globalOptions(), ServersOptions{
			JSON:  serversJSONFlag,
			Probe: serversProbeFlag,
		})
	},
}

// logsCmd prints a server's log
var logsCmd = &cobra.Command{
	Use:   "logs [server]",
	Short: "Print a server's log",
	Long: `Print everything the server has logged so far. With --follow, keep
polling and print new output as it arrives until interrupted.

Examples:
  fdwatch logs resnet
  fdwatch logs resnet -f
  fdwatch logs -f --interval 2s`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := globalOptions()
		opts.Server = firstArg(args)
		return logsCommand(cmd.Context(), cmd.OutOrStdout(), opts, logsFollowFlag, logsIntervalFlag)
	},
}

// metricsCmd prints one performance snapshot
var metricsCmd = &cobra.Command{
	Use:   "metrics [server]",
	Short: "Print a server's performance snapshot",
	Long: `Fetch the current per-model and per-device statistics once and print
them as tables, or as JSON with --json. --expand adds the per-step timing
breakdown for cpu or gpu.

Examples:
  fdwatch metrics resnet
  fdwatch metrics resnet --json
  fdwatch metrics resnet --expand gpu --topk 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := globalOptions()
		opts.Server = firstArg(args)
		return metricsCommand(cmd.Context(), cmd.OutOrStdout(), opts, MetricsOptions{
			JSON:   metricsJSONFlag,
			Expand: metricsExpandFlag,
			TopK:   metricsTopKFlag,
		})
	},
}

// configCmd prints a server's model configuration
var configCmd = &cobra.Command{
	Use:   "config [server]",
	Short: "Print a server's model configuration",
	Long: `Fetch the model configuration of a running server and print it as
YAML, or as JSON with --json.

Examples:
  fdwatch config resnet
  fdwatch config resnet --json | jq '.data'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := globalOptions()
		opts.Server = firstArg(args)
		return configCommand(cmd.Context(), cmd.OutOrStdout(), opts, configJSONFlag)
	},
}

// openCmd opens the server's client page in a browser
var openCmd = &cobra.Command{
	Use:   "open [server]",
	Short: "Open the server's client page in a browser",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := globalOptions()
		opts.Server = firstArg(args)
		return openCommand(cmd.Context(), cmd.OutOrStdout(), opts)
	},
}

// stopCmd stops a running server
var stopCmd = &cobra.Command{
	Use:   "stop [server]",
	Short: "Stop a running server",
	Long: `Ask the API to stop a server. You are asked to confirm unless --yes
is given; without a terminal --yes is required.

Examples:
  fdwatch stop resnet
  fdwatch stop 0bd2c8 --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := globalOptions()
		opts.Server = firstArg(args)
		return stopCommand(cmd.Context(), cmd.OutOrStdout(), opts, stopYesFlag)
	},
}

// initCmd writes a starter config
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .fdwatch.yaml in the current directory",
	Long: `Create a config file interactively. The API address is checked by
listing servers before anything is written.

Examples:
  fdwatch init
  fdwatch init --api http://gpu-box:8040/api/fastdeploy --server 0bd2c8 --alias resnet --non-interactive`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd.Context(), cmd.OutOrStdout(), InitOptions{
			API:            apiFlag,
			Server:         initServerFlag,
			Alias:          initAliasFlag,
			Mode:           initModeFlag,
			TunnelHost:     initTunnelFlag,
			Overwrite:      initForceFlag,
			NonInteractive: initNonInteractive || !stdinIsTerminal(),
		})
	},
}

// aliasCmd adds a server alias to the config
var aliasCmd = &cobra.Command{
	Use:   "alias <name> <server-id>",
	Short: "Add or replace a server alias in the config file",
	Long: `Record a friendly name for a server id in the config file that
fdwatch would load. Comments and other keys in the file are kept.

Examples:
  fdwatch alias resnet 0bd2c8
  fdwatch alias ocr 71aa01 --mode performance --default`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return aliasCommand(cmd.OutOrStdout(), cfgFile, args[0], args[1], AliasOptions{
			Mode:       aliasModeFlag,
			Exposition: aliasExpositionFlag,
			Default:    aliasDefaultFlag,
		})
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a completion script for your shell.

Examples:
  source <(fdwatch completion bash)
  fdwatch completion zsh > "${fpath[1]}/_fdwatch"
  fdwatch completion fish > ~/.config/fish/completions/fdwatch.fish`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return rootCmd.GenZshCompletion(out)
		case "fish":
			return rootCmd.GenFishCompletion(out, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	watchCmd.Flags().StringVarP(&watchModeFlag, "mode", "m", "", "starting view: log, performance, config or overview")
	watchCmd.Flags().DurationVar(&watchIntervalFlag, "interval", 0, "polling period (default from config)")
	watchCmd.Flags().StringVar(&watchMetricsFlag, "metrics-listen", "", "serve Prometheus metrics about API requests on this address")
	watchCmd.Flags().StringVar(&watchLogFileFlag, "log-file", "", "write debug logs here while the dashboard runs")

	serversCmd.Flags().BoolVar(&serversJSONFlag, "json", false, "output as JSON")
	serversCmd.Flags().BoolVar(&serversProbeFlag, "probe", true, "check each server's liveness")

	logsCmd.Flags().BoolVarP(&logsFollowFlag, "follow", "f", false, "keep printing new output")
	logsCmd.Flags().DurationVar(&logsIntervalFlag, "interval", 0, "polling period with --follow (default from config)")

	metricsCmd.Flags().BoolVar(&metricsJSONFlag, "json", false, "output as JSON")
	metricsCmd.Flags().StringVar(&metricsExpandFlag, "expand", "", "include per-step timing for cpu or gpu")
	metricsCmd.Flags().IntVar(&metricsTopKFlag, "topk", 0, "series to request with --expand (default from config)")

	configCmd.Flags().BoolVar(&configJSONFlag, "json", false, "output as JSON")

	stopCmd.Flags().BoolVarP(&stopYesFlag, "yes", "y", false, "skip confirmation")

	initCmd.Flags().BoolVarP(&initForceFlag, "force", "f", false, "overwrite an existing config")
	initCmd.Flags().StringVar(&initServerFlag, "server", "", "server id to save as the default")
	initCmd.Flags().StringVar(&initAliasFlag, "alias", "", "friendly name for --server")
	initCmd.Flags().StringVar(&initModeFlag, "mode", "", "view the dashboard opens in for --server")
	initCmd.Flags().StringVar(&initTunnelFlag, "tunnel", "", "SSH host to reach the API through")
	initCmd.Flags().BoolVar(&initNonInteractive, "non-interactive", false, "skip prompts and use flag values")

	aliasCmd.Flags().StringVar(&aliasModeFlag, "mode", "", "view the dashboard opens in")
	aliasCmd.Flags().StringVar(&aliasExpositionFlag, "exposition", "", "Prometheus /metrics URL to scrape instead of the metric endpoint")
	aliasCmd.Flags().BoolVar(&aliasDefaultFlag, "default", false, "also make this the default server")

	rootCmd.AddCommand(watchCmd, serversCmd, logsCmd, metricsCmd, configCmd,
		openCmd, stopCmd, initCmd, aliasCmd, completionCmd)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

