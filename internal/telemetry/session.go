package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/fdwatch/fdwatch/internal/chart"
	"github.com/fdwatch/fdwatch/internal/logbuf"
)

// Kind identifies what a ticket fetches.
type Kind int

const (
	// KindRefresh is the polling pair: liveness, then log increment and metric.
	KindRefresh Kind = iota
	// KindMetric fetches the metric snapshot alone.
	KindMetric
	// KindConfig fetches the model configuration.
	KindConfig
	// KindExpanded fetches the stacked-bar detail.
	KindExpanded
)

func (k Kind) String() string {
	switch k {
	case KindRefresh:
		return "refresh"
	case KindMetric:
		return "metric"
	case KindConfig:
		return "config"
	case KindExpanded:
		return "expanded"
	default:
		return "unknown"
	}
}

// Ticket authorises one in-flight fetch. Results are only applied while
// their ticket is still the current one for its slot.
type Ticket struct {
	SessionID  string
	Seq        uint64
	Kind       Kind
	FromOffset int
	Explicit   bool
}

// slot is a single-flight lane. Refresh and metric tickets share one lane;
// config and expanded each have their own.
type slot struct {
	seq  uint64
	busy bool
}

// Session is the client-side state for one monitored server: its log
// buffer, latest metric snapshot, cached configuration and the bookkeeping
// that keeps fetches single-flight.
//
// A Session is not safe for concurrent use. Its owner (the dashboard
// model or a Poller) mutates it from one goroutine and runs fetches
// elsewhere, handing results back through Apply*.
type Session struct {
	ID       string
	ServerID string

	alive     bool
	log       logbuf.Buffer
	metric    *chart.Snapshot
	config    *ServerConfig
	configErr error
	expanded  *chart.Expanded
	lastErr   error
	updated   time.Time

	seq    uint64
	poll   slot
	cfg    slot
	exp    slot
	queued bool
	closed bool
	now    func() time.Time
}

// NewSession opens a session for serverID. Liveness starts optimistic so
// the first poll is not shown as a failure.
func NewSession(serverID string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		ServerID: serverID,
		alive:    true,
		now:      time.Now,
	}
}

// Alive is the result of the last liveness probe.
func (s *Session) Alive() bool { return s.alive }

// Log returns the accumulated log buffer.
func (s *Session) Log() logbuf.Buffer { return s.log }

// Metric returns the latest snapshot, or nil before the first success.
func (s *Session) Metric() *chart.Snapshot { return s.metric }

// Config returns the cached configuration, if any, and the error from the
// last configuration fetch.
func (s *Session) Config() (*ServerConfig, error) { return s.config, s.configErr }

// Expanded returns the latest stacked-bar detail, or nil.
func (s *Session) Expanded() *chart.Expanded { return s.expanded }

// LastError is the most recent polling failure, cleared by the next fully
// successful refresh.
func (s *Session) LastError() error { return s.lastErr }

// Updated is when data last arrived.
func (s *Session) Updated() time.Time { return s.updated }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed }

// Polling reports whether a refresh or metric fetch is outstanding.
func (s *Session) Polling() bool { return s.poll.busy }

// ConfigLoading reports whether a configuration fetch is outstanding.
func (s *Session) ConfigLoading() bool { return s.cfg.busy }

// NeedsConfig reports whether entering the configuration view should fetch.
func (s *Session) NeedsConfig() bool {
	return !s.closed && s.config == nil && !s.cfg.busy
}

func (s *Session) slotFor(k Kind) *slot {
	switch k {
	case KindConfig:
		return &s.cfg
	case KindExpanded:
		return &s.exp
	default:
		return &s.poll
	}
}

func (s *Session) issue(k Kind, explicit bool) Ticket {
	s.seq++
	sl := s.slotFor(k)
	sl.seq = s.seq
	sl.busy = true
	return Ticket{
		SessionID:  s.ID,
		Seq:        s.seq,
		Kind:       k,
		FromOffset: s.log.Len(),
		Explicit:   explicit,
	}
}

// Begin starts a refresh or metric fetch. It returns false when the
// session is closed or a poll is already in flight. An explicit request
// that collides with an in-flight poll is queued; Finish reports it.
// A queued request only runs if the caller acts on that report, and a
// failed metric-only fetch is never retried here.
func (s *Session) Begin(k Kind, explicit bool) (Ticket, bool) {
	if s.closed {
		return Ticket{}, false
	}
	if k != KindRefresh && k != KindMetric {
		return Ticket{}, false
	}
	if s.poll.busy {
		if explicit {
			s.queued = true
		}
		return Ticket{}, false
	}
	return s.issue(k, explicit), true
}

// BeginConfig starts a configuration fetch. Without force it only does so
// when nothing is cached yet.
func (s *Session) BeginConfig(force bool) (Ticket, bool) {
	if s.closed || s.cfg.busy {
		return Ticket{}, false
	}
	if !force && s.config != nil {
		return Ticket{}, false
	}
	return s.issue(KindConfig, force), true
}

// BeginExpanded starts a stacked-bar detail fetch.
func (s *Session) BeginExpanded() (Ticket, bool) {
	if s.closed || s.exp.busy {
		return Ticket{}, false
	}
	return s.issue(KindExpanded, false), true
}

// Current reports whether t is still the live ticket for its slot.
func (s *Session) Current(t Ticket) bool {
	if s.closed || t.SessionID != s.ID {
		return false
	}
	sl := s.slotFor(t.Kind)
	return sl.busy && sl.seq == t.Seq
}

// ApplyLog appends chunk if t is current and the buffer has not moved
// since t was issued. A response for an offset the buffer has already
// passed is dropped rather than appended twice.
func (s *Session) ApplyLog(t Ticket, chunk string) bool {
	if !s.Current(t) || t.FromOffset != s.log.Len() {
		return false
	}
	if chunk == "" {
		return false
	}
	s.log = s.log.Append(chunk)
	s.updated = s.now()
	return true
}

// ApplyMetric replaces the snapshot if t is current.
func (s *Session) ApplyMetric(t Ticket, snap *chart.Snapshot) bool {
	if !s.Current(t) || snap == nil {
		return false
	}
	s.metric = snap
	s.updated = s.now()
	return true
}

// Finish releases t's slot. It returns true when an explicit refresh was
// queued behind t and should be started now.
func (s *Session) Finish(t Ticket) bool {
	if !s.Current(t) {
		return false
	}
	s.slotFor(t.Kind).busy = false
	if t.Kind == KindRefresh || t.Kind == KindMetric {
		if s.queued {
			s.queued = false
			return true
		}
	}
	return false
}

// Outcome summarises what applying a refresh result changed.
type Outcome struct {
	Applied       bool
	Chunk         string
	MetricUpdated bool
	Err           error
	RunQueued     bool
}

// Apply folds a refresh or metric result into the session and releases
// its ticket. Failures keep the last good data.
func (s *Session) Apply(r Result) Outcome {
	t := r.Ticket
	if !s.Current(t) {
		return Outcome{}
	}

	out := Outcome{Applied: true}
	switch {
	case r.AliveErr != nil:
		s.alive = false
		out.Err = r.AliveErr
	default:
		if t.Kind == KindRefresh {
			s.alive = true
		}
		if r.LogErr != nil {
			out.Err = r.LogErr
		} else if s.ApplyLog(t, r.Chunk) {
			out.Chunk = r.Chunk
		}
		if r.MetricErr != nil {
			if out.Err == nil {
				out.Err = r.MetricErr
			}
		} else if s.ApplyMetric(t, r.Metric) {
			out.MetricUpdated = true
		}
	}

	s.lastErr = out.Err
	out.RunQueued = s.Finish(t)
	return out
}

// ApplyConfig stores a configuration result. A failed fetch keeps any
// previously cached configuration and records the error for display.
func (s *Session) ApplyConfig(t Ticket, cfg ServerConfig, err error) bool {
	if !s.Current(t) {
		return false
	}
	if err != nil {
		s.configErr = err
	} else {
		c := cfg
		s.config = &c
		s.configErr = nil
	}
	s.Finish(t)
	return true
}

// ApplyExpanded stores a stacked-bar detail result. Failures keep the
// previous detail.
func (s *Session) ApplyExpanded(t Ticket, e *chart.Expanded, err error) bool {
	if !s.Current(t) {
		return false
	}
	if err == nil && e != nil {
		s.expanded = e
	}
	s.Finish(t)
	return true
}

// Close ends the session and releases its buffers. Results that arrive
// afterwards are ignored.
func (s *Session) Close() {
	s.closed = true
	s.log = logbuf.Buffer{}
	s.metric = nil
	s.config = nil
	s.expanded = nil
	s.poll.busy = false
	s.cfg.busy = false
	s.exp.busy = false
	s.queued = false
}
