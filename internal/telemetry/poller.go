package telemetry

import (
	"context"
	"time"
)

// Poller drives one session on a fixed period without a UI. Each cycle
// runs to completion before the next tick is considered, so there is never
// more than one refresh in flight.
type Poller struct {
	Refresher *Refresher
	Session   *Session
	Interval  time.Duration

	// LogOnly skips the metric fetch in each cycle.
	LogOnly bool

	// OnUpdate is called after every applied cycle.
	OnUpdate func(Outcome)
}

// Run polls immediately and then every Interval until ctx is done. The
// session is closed on return.
func (p *Poller) Run(ctx context.Context) error {
	defer p.Session.Close()

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// Once runs a single refresh cycle.
func (p *Poller) Once(ctx context.Context) Outcome {
	return p.cycle(ctx)
}

func (p *Poller) cycle(ctx context.Context) Outcome {
	t, ok := p.Session.Begin(KindRefresh, false)
	if !ok {
		return Outcome{}
	}
	var res Result
	if p.LogOnly {
		res = p.Refresher.RunLog(ctx, p.Session.ServerID, t)
	} else {
		res = p.Refresher.Run(ctx, p.Session.ServerID, t)
	}
	if ctx.Err() != nil {
		// cancelled mid-cycle; the session is about to close
		p.Session.Finish(t)
		return Outcome{}
	}
	out := p.Session.Apply(res)
	if p.OnUpdate != nil && out.Applied {
		p.OnUpdate(out)
	}
	return out
}
