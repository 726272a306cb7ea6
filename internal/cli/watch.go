package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fdwatch/fdwatch/internal/config"
	"github.com/fdwatch/fdwatch/internal/dashboard"
	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/logger"
	"github.com/fdwatch/fdwatch/internal/telemetry"
)

// WatchOptions holds the watch command flags.
type WatchOptions struct {
	Mode          string
	Interval      time.Duration
	MetricsListen string
	LogFile       string
}

// watchCommand runs the dashboard until the user quits.
func watchCommand(ctx context.Context, opts WorkflowOptions, wopts WatchOptions) error {
	if !stdoutIsTerminal() {
		return errors.New(errors.ErrExec,
			"The dashboard needs a terminal",
			"Use 'fdwatch logs -f' or 'fdwatch metrics --json' when piping output.")
	}

	var metrics *telemetry.Metrics
	if wopts.MetricsListen != "" {
		metrics = telemetry.NewMetrics()
	}
	opts.Metrics = metrics
	opts.NeedServer = true

	w, err := SetupWorkflow(ctx, opts)
	if err != nil {
		return err
	}
	defer w.Close()

	dopts, err := dashboardOptions(w, wopts)
	if err != nil {
		return err
	}

	logFile := watchLogPath(wopts.LogFile, w.Config)
	f, err := tea.LogToFile(logFile, "fdwatch")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't open the log file "+logFile,
			"Pass --log-file with a writable path.")
	}
	defer f.Close()

	if metrics != nil {
		addr, stop, err := serveMetrics(wopts.MetricsListen, metrics)
		if err != nil {
			return err
		}
		defer stop()
		w.Log.Info("serving request metrics on http://%s/metrics", addr)
	}

	p := tea.NewProgram(dashboard.New(dopts), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(dashboard.Model); ok {
		m.Close()
	}
	return err
}

// dashboardOptions merges flags, the server entry and global config. Flags
// win over the server's mode, which wins over the default LOG view.
func dashboardOptions(w *WorkflowContext, wopts WatchOptions) (dashboard.Options, error) {
	modeName := wopts.Mode
	if modeName == "" {
		modeName = w.Server.Server.Mode
	}
	mode, err := dashboard.ParseMode(modeName)
	if err != nil {
		return dashboard.Options{}, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Unknown view '%s'", modeName),
			"Use log, performance, config or overview.")
	}

	interval := wopts.Interval
	if interval == 0 {
		interval = w.Config.Refresh
	}
	if interval < config.MinRefresh {
		return dashboard.Options{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("Refresh interval %s is too short", interval),
			fmt.Sprintf("Use at least %s.", config.MinRefresh))
	}

	label := w.Server.ID
	if w.Server.Alias != "" && w.Server.Alias != w.Server.ID {
		label = fmt.Sprintf("%s (%s)", w.Server.Alias, w.Server.ID)
	}

	return dashboard.Options{
		ServerID:  w.Server.ID,
		Label:     label,
		Mode:      mode,
		Interval:  interval,
		Device:    w.Config.Overview.Device,
		TopK:      w.Config.Overview.TopK,
		Refresher: w.Refresher,
		Logger:    logger.NewEnvLogger("[dashboard]"),
	}, nil
}

func watchLogPath(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg.Output.LogFile != "" {
		return cfg.Output.LogFile
	}
	return filepath.Join(os.TempDir(), "fdwatch.log")
}

// serveMetrics exposes the request metrics until the returned stop func
// runs. It returns the bound address.
func serveMetrics(addr string, metrics *telemetry.Metrics) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't listen on "+addr,
			"Pick a free address for --metrics-listen, for example :9464.")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go srv.Serve(ln) //nolint:errcheck // returns ErrServerClosed on shutdown

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx) //nolint:errcheck // best effort on exit
	}, nil
}
