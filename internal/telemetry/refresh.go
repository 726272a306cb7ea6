package telemetry

import (
	"context"
	"time"

	"github.com/fdwatch/fdwatch/internal/chart"
	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/logger"
)

// Source is the API surface a session polls. *Client implements it.
type Source interface {
	CheckAlive(ctx context.Context, serverID string) error
	FetchLogIncrement(ctx context.Context, serverID string, fromOffset int) (string, error)
	FetchMetric(ctx context.Context, serverID string) (*chart.Snapshot, error)
	FetchExpandedMetric(ctx context.Context, serverID, deviceType string, topK int) (*chart.Expanded, error)
	FetchConfig(ctx context.Context, serverID string) (ServerConfig, error)
	ClientURL(serverID string) string
}

var _ Source = (*Client)(nil)

// Result carries everything one refresh or metric ticket fetched.
type Result struct {
	Ticket    Ticket
	AliveErr  error
	Chunk     string
	LogErr    error
	Metric    *chart.Snapshot
	MetricErr error
}

// ConfigResult carries a configuration fetch.
type ConfigResult struct {
	Ticket Ticket
	Config ServerConfig
	Err    error
}

// ExpandedResult carries a stacked-bar detail fetch.
type ExpandedResult struct {
	Ticket   Ticket
	Expanded *chart.Expanded
	Err      error
}

// Refresher runs tickets against a Source. Failures are logged here and
// handed back in the result; nothing is retried.
type Refresher struct {
	Source  Source
	Log     logger.Logger
	Timeout time.Duration
}

// NewRefresher creates a Refresher with a per-request timeout.
func NewRefresher(src Source, log logger.Logger, timeout time.Duration) *Refresher {
	if log == nil {
		log = logger.Noop()
	}
	return &Refresher{Source: src, Log: log, Timeout: timeout}
}

func (r *Refresher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}

func (r *Refresher) warn(serverID, what string, err error) {
	r.Log.Warn("%s for %s failed: %s", what, serverID, errors.OneLine(err))
}

// Run executes a refresh or metric ticket. A refresh probes liveness first
// and only fetches data when the server is alive.
func (r *Refresher) Run(ctx context.Context, serverID string, t Ticket) Result {
	res := Result{Ticket: t}

	if t.Kind == KindRefresh {
		if !r.tail(ctx, serverID, &res) {
			return res
		}
	}

	cctx, cancel := r.withTimeout(ctx)
	res.Metric, res.MetricErr = r.Source.FetchMetric(cctx, serverID)
	cancel()
	if res.MetricErr != nil {
		r.warn(serverID, "metric fetch", res.MetricErr)
	}
	return res
}

// RunLog executes a refresh ticket without the metric fetch, for callers
// that only print the log.
func (r *Refresher) RunLog(ctx context.Context, serverID string, t Ticket) Result {
	res := Result{Ticket: t}
	r.tail(ctx, serverID, &res)
	return res
}

// tail probes liveness and fetches the log increment into res. It returns
// false when the server is not alive.
func (r *Refresher) tail(ctx context.Context, serverID string, res *Result) bool {
	cctx, cancel := r.withTimeout(ctx)
	res.AliveErr = r.Source.CheckAlive(cctx, serverID)
	cancel()
	if res.AliveErr != nil {
		r.warn(serverID, "liveness check", res.AliveErr)
		return false
	}

	from := res.Ticket.FromOffset
	cctx, cancel = r.withTimeout(ctx)
	res.Chunk, res.LogErr = r.Source.FetchLogIncrement(cctx, serverID, from)
	cancel()
	if res.LogErr != nil {
		r.warn(serverID, "log fetch", res.LogErr)
	} else if res.Chunk != "" {
		r.Log.Debug("%s: %d new log bytes from offset %d", serverID, len(res.Chunk), from)
	}
	return true
}

// Config executes a configuration ticket.
func (r *Refresher) Config(ctx context.Context, serverID string, t Ticket) ConfigResult {
	cctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cfg, err := r.Source.FetchConfig(cctx, serverID)
	if err != nil {
		r.warn(serverID, "config fetch", err)
	}
	return ConfigResult{Ticket: t, Config: cfg, Err: err}
}

// Expanded executes a stacked-bar detail ticket.
func (r *Refresher) Expanded(ctx context.Context, serverID string, t Ticket, deviceType string, topK int) ExpandedResult {
	cctx, cancel := r.withTimeout(ctx)
	defer cancel()

	exp, err := r.Source.FetchExpandedMetric(cctx, serverID, deviceType, topK)
	if err != nil {
		r.warn(serverID, "expanded metric fetch", err)
	}
	return ExpandedResult{Ticket: t, Expanded: exp, Err: err}
}
