package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/fdwatch/fdwatch/internal/config"
	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/telemetry"
	"github.com/fdwatch/fdwatch/internal/ui"
	"github.com/fdwatch/fdwatch/pkg/sshutil"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	API            string // API root; defaults to the built-in address
	Server         string // server id saved as the default
	Alias          string // name for Server; defaults to the id
	Mode           string // view the dashboard opens in
	TunnelHost     string // SSH host to reach the API through
	Overwrite      bool   // overwrite an existing config without asking
	NonInteractive bool   // skip prompts, use the values above

	// Path is where the config is written. Defaults to ./.fdwatch.yaml.
	Path string
}

// connectTimeout bounds the connection test.
const connectTimeout = 10 * time.Second

func initCommand(ctx context.Context, out io.Writer, opts InitOptions) error {
	configPath := opts.Path
	if configPath == "" {
		configPath = filepath.Join(".", config.ConfigFileName)
	}

	if _, err := os.Stat(configPath); err == nil && !opts.Overwrite {
		if opts.NonInteractive {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Config file already exists: %s", configPath),
				"Use --force to overwrite")
		}

		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", configPath)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if opts.API == "" {
		opts.API = config.DefaultConfig().API
	}
	if !opts.NonInteractive {
		if err := promptInit(&opts); err != nil {
			return err
		}
	}

	opts.API = strings.TrimRight(strings.TrimSpace(opts.API), "/")
	opts.Server = strings.TrimSpace(opts.Server)
	if err := config.ValidateAPI(opts.API); err != nil {
		return err
	}
	if err := config.ValidateMode(opts.Mode); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Use log, performance, config or overview.")
	}

	spinner := ui.StartSpinner("Testing connection to "+opts.API, stdoutIsTerminal())
	running, err := testConnection(ctx, opts)
	if err != nil {
		spinner.Finish(err)
		if opts.NonInteractive || !confirmSaveAnyway(out, opts.API, err) {
			return errors.WrapWithCode(err, errors.ErrFetch,
				fmt.Sprintf("Connection to '%s' failed", opts.API),
				"Check that the API is reachable, then run 'fdwatch init' again.")
		}
	} else {
		spinner.Done(fmt.Sprintf("%d running", len(running)))
		if opts.Server != "" && !contains(running, opts.Server) {
			ui.PrintWarning(fmt.Sprintf("server %s isn't running right now; saving it anyway", opts.Server))
		}
	}

	cfg := config.DefaultConfig()
	cfg.API = opts.API
	cfg.Tunnel.Host = opts.TunnelHost
	if opts.Server != "" {
		alias := opts.Alias
		if alias == "" {
			alias = opts.Server
		}
		cfg.Servers[alias] = config.Server{ID: opts.Server, Mode: opts.Mode}
		cfg.Default = alias
	}

	if err := config.Write(configPath, cfg); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file",
			"Check that you have write permission in this directory")
	}

	fmt.Fprintf(out, "%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  fdwatch servers    # list running servers")
	fmt.Fprintln(out, "  fdwatch watch      # open the dashboard")
	return nil
}

// testConnection lists servers through the configured route.
func testConnection(ctx context.Context, opts InitOptions) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientOpts := []telemetry.Option{telemetry.WithTimeout(connectTimeout)}
	if opts.TunnelHost != "" {
		tun, err := sshutil.Dial(ctx, opts.TunnelHost, sshutil.Options{Timeout: connectTimeout})
		if err != nil {
			return nil, err
		}
		defer tun.Close()
		clientOpts = append(clientOpts, telemetry.WithDialer(tun.DialContext))
	}

	client, err := telemetry.NewClient(opts.API, clientOpts...)
	if err != nil {
		return nil, err
	}
	return client.ListServers(ctx)
}

func confirmSaveAnyway(out io.Writer, api string, cause error) bool {
	fmt.Fprintf(out, "\n%s Connection to '%s' failed: %s\n\n", ui.SymbolFail, api, errors.OneLine(cause))

	var save bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save config anyway? (You can fix the connection later)").
				Value(&save),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return save
}

const noTunnel = "(none)"

// promptInit fills opts from an interactive form, seeded with flag values.
func promptInit(opts *InitOptions) error {
	tunnel := opts.TunnelHost
	if tunnel == "" {
		tunnel = noTunnel
	}

	modes := make([]huh.Option[string], 0, len(config.ValidModes)+1)
	modes = append(modes, huh.NewOption("log (default)", ""))
	for _, m := range config.ValidModes[1:] {
		modes = append(modes, huh.NewOption(m, m))
	}

	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewInput().
				Title("API address").
				Description("Root of the fastdeploy API").
				Placeholder("http://localhost:8040/api/fastdeploy").
				Value(&opts.API).
				Validate(func(s string) error {
					return config.ValidateAPI(strings.TrimRight(strings.TrimSpace(s), "/"))
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Default server id (optional)").
				Description("Used when a command gets no server argument").
				Value(&opts.Server),
			huh.NewInput().
				Title("Alias (optional)").
				Description("A friendly name for that server").
				Placeholder("resnet").
				Value(&opts.Alias).
				Validate(func(s string) error {
					if strings.ContainsAny(s, " \t\n") {
						return fmt.Errorf("alias cannot contain whitespace")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Starting view").
				Options(modes...).
				Value(&opts.Mode),
		),
	}

	if hosts, err := sshutil.ListHosts(""); err == nil && len(hosts) > 0 {
		options := []huh.Option[string]{huh.NewOption("No tunnel, connect directly", noTunnel)}
		for _, h := range hosts {
			options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", h.Alias, h.Description()), h.Alias))
		}
		groups = append(groups, huh.NewGroup(
			huh.NewSelect[string]().
				Title("Reach the API through an SSH host?").
				Description("Pick one when the API only listens on the inference host").
				Options(options...).
				Value(&tunnel),
		))
	}

	if err := huh.NewForm(groups...).Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or use --non-interactive flag")
	}

	if tunnel == noTunnel {
		tunnel = ""
	}
	opts.TunnelHost = tunnel
	return nil
}
