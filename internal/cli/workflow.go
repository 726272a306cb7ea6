package cli

import (
	"context"
	"strings"

	"github.com/fdwatch/fdwatch/internal/config"
	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/logger"
	"github.com/fdwatch/fdwatch/internal/telemetry"
	"github.com/fdwatch/fdwatch/internal/ui"
	"github.com/fdwatch/fdwatch/pkg/sshutil"
)

// WorkflowOptions configures SetupWorkflow.
type WorkflowOptions struct {
	ConfigPath string // --config
	API        string // --api, overrides config

	// Server is the server argument. With NeedServer set, an empty value
	// falls back to the configured default and then to the picker.
	Server     string
	NeedServer bool

	// Metrics, when set, instruments every API request.
	Metrics *telemetry.Metrics

	Log logger.Logger
}

// WorkflowContext holds what a command needs to talk to one API.
type WorkflowContext struct {
	Config     *config.Config
	ConfigPath string
	Client     *telemetry.Client
	Refresher  *telemetry.Refresher
	Server     config.Resolved
	Tunnel     *sshutil.Tunnel
	Log        logger.Logger
}

// Close releases the tunnel, if any.
func (w *WorkflowContext) Close() {
	if w.Tunnel != nil {
		w.Tunnel.Close() //nolint:errcheck // nothing useful to do on close failure
	}
}

// SetupWorkflow loads config, connects and resolves the server. The caller
// must Close the returned context.
func SetupWorkflow(ctx context.Context, opts WorkflowOptions) (*WorkflowContext, error) {
	log := opts.Log
	if log == nil {
		log = logger.NewEnvLogger("[fdwatch]")
	}

	cfg, path, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.API != "" {
		cfg.API = strings.TrimRight(opts.API, "/")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	applyColorMode(cfg.Output.Color)

	w := &WorkflowContext{Config: cfg, ConfigPath: path, Log: log}

	clientOpts := []telemetry.Option{
		telemetry.WithTimeout(cfg.Timeout),
		telemetry.WithEndpoints(cfg.Endpoints),
		telemetry.WithLogger(log),
	}
	if opts.Metrics != nil {
		clientOpts = append(clientOpts, telemetry.WithMetrics(opts.Metrics))
	}
	for alias, srv := range cfg.Servers {
		id := srv.ID
		if id == "" {
			id = alias
		}
		clientOpts = append(clientOpts, telemetry.WithExposition(id, srv.Exposition))
	}

	if cfg.Tunnel.Enabled() {
		log.Debug("opening SSH tunnel to %s", cfg.Tunnel.Host)
		tun, err := sshutil.Dial(ctx, cfg.Tunnel.Host, sshutil.Options{
			Timeout:         cfg.Tunnel.Timeout,
			InsecureHostKey: cfg.Tunnel.InsecureHostKey,
			Logger:          log,
		})
		if err != nil {
			return nil, err
		}
		w.Tunnel = tun
		clientOpts = append(clientOpts, telemetry.WithDialer(tun.DialContext))
	}

	w.Client, err = telemetry.NewClient(cfg.API, clientOpts...)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.Refresher = telemetry.NewRefresher(w.Client, log, cfg.Timeout)

	if opts.NeedServer {
		w.Server, err = resolveServer(ctx, w, opts.Server)
		if err != nil {
			w.Close()
			return nil, err
		}
	}

	return w, nil
}

// applyColorMode honours output.color. "auto" leaves detection to lipgloss.
func applyColorMode(mode string) {
	if mode == "never" {
		ui.DisableColors()
	}
}

// resolveServer maps the server argument to an id: alias lookup, then the
// configured default, then an interactive pick from the running servers.
func resolveServer(ctx context.Context, w *WorkflowContext, arg string) (config.Resolved, error) {
	if r, ok := w.Config.Resolve(arg); ok {
		return r, nil
	}

	if !stdinIsTerminal() {
		return config.Resolved{}, errors.New(errors.ErrConfig,
			"No server given",
			"Pass a server id or alias, or set 'default' in .fdwatch.yaml")
	}

	ids, err := w.Client.ListServers(ctx)
	if err != nil {
		return config.Resolved{}, err
	}
	id, err := pickServer(w.Config, ids)
	if err != nil {
		return config.Resolved{}, err
	}
	r, _ := w.Config.Resolve(id)
	return r, nil
}
