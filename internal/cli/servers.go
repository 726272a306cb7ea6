package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/ui"
)

// ServersOptions holds the servers command flags.
type ServersOptions struct {
	JSON  bool
	Probe bool
}

// ServerStatus is one entry of `servers --json`.
type ServerStatus struct {
	ID        string `json:"id"`
	Alias     string `json:"alias,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Default   bool   `json:"default"`
	Running   bool   `json:"running"`
	Alive     *bool  `json:"alive,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

func serversCommand(ctx context.Context, out io.Writer, opts WorkflowOptions, sopts ServersOptions) error {
	if sopts.JSON {
		return jsonOrError(out, func() (any, error) {
			return collectServers(ctx, opts, sopts.Probe)
		})
	}

	statuses, err := collectServers(ctx, opts, sopts.Probe)
	if err != nil {
		return err
	}

	rows := make([]ui.ServerRow, len(statuses))
	for i, s := range statuses {
		rows[i] = serverRow(s, sopts.Probe)
	}
	fmt.Fprint(out, ui.RenderServerTable(rows))
	return nil
}

// collectServers merges the API's server list with config aliases and
// optionally probes each one. A failed list call is only fatal when the
// config names no servers either.
func collectServers(ctx context.Context, opts WorkflowOptions, probe bool) ([]ServerStatus, error) {
	w, err := SetupWorkflow(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	running, listErr := w.Client.ListServers(ctx)
	if listErr != nil {
		if len(w.Config.Servers) == 0 {
			return nil, listErr
		}
		w.Log.Warn("listing servers failed: %s", errors.OneLine(listErr))
	}

	choices := serverChoices(w.Config, running)
	statuses := make([]ServerStatus, len(choices))
	for i, c := range choices {
		st := ServerStatus{
			ID:      c.ID,
			Alias:   c.Alias,
			Running: c.Running,
			Default: w.Config.Default != "" && (w.Config.Default == c.ID || w.Config.Default == c.Alias),
		}
		if c.Alias != "" {
			st.Mode = w.Config.Servers[c.Alias].Mode
		}
		statuses[i] = st
	}

	if !probe {
		return statuses, nil
	}

	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func(st *ServerStatus) {
			defer wg.Done()
			start := time.Now()
			err := w.Client.CheckAlive(ctx, st.ID)
			alive := err == nil
			st.Alive = &alive
			if alive {
				st.LatencyMS = time.Since(start).Milliseconds()
			} else {
				st.Error = errors.OneLine(err)
			}
		}(&statuses[i])
	}
	wg.Wait()
	return statuses, nil
}

func serverRow(s ServerStatus, probed bool) ui.ServerRow {
	row := ui.ServerRow{Alias: s.Alias, ID: s.ID, Mode: s.Mode, Default: s.Default}
	if row.Alias == "" {
		row.Alias = "-"
	}
	switch {
	case !probed && s.Running:
		row.Detail = "running"
	case !probed:
		row.Detail = "not running"
	case s.Alive != nil && *s.Alive:
		row.Status = "up"
		row.Detail = fmt.Sprintf("%dms", s.LatencyMS)
	default:
		row.Status = "down"
		row.Detail = s.Error
		if !s.Running {
			row.Detail = "not running"
		}
	}
	return row
}
