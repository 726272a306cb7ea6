package telemetry

import (
	"errors"
	"testing"

	"github.com/fdwatch/fdwatch/internal/chart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_HelloWorldScenario(t *testing.T) {
	s := NewSession("s1")

	t1, ok := s.Begin(KindRefresh, false)
	require.True(t, ok)
	assert.Equal(t, 0, t1.FromOffset)
	s.Apply(Result{Ticket: t1, Chunk: "hello"})

	t2, ok := s.Begin(KindRefresh, false)
	require.True(t, ok)
	assert.Equal(t, 5, t2.FromOffset)
	s.Apply(Result{Ticket: t2, Chunk: " world"})

	assert.Equal(t, "hello world", s.Log().Text())
	assert.Equal(t, 11, s.Log().Len())
}

func TestSession_SingleFlight(t *testing.T) {
	s := NewSession("s1")

	t1, ok := s.Begin(KindRefresh, false)
	require.True(t, ok)
	assert.True(t, s.Polling())

	_, ok = s.Begin(KindRefresh, false)
	assert.False(t, ok, "timer tick while a refresh is outstanding must not start another")

	_, ok = s.Begin(KindMetric, false)
	assert.False(t, ok, "metric fetch shares the polling lane")

	out := s.Apply(Result{Ticket: t1})
	assert.True(t, out.Applied)
	assert.False(t, out.RunQueued)
	assert.False(t, s.Polling())

	_, ok = s.Begin(KindRefresh, false)
	assert.True(t, ok)
}

func TestSession_ExplicitRefreshQueuesBehindInFlight(t *testing.T) {
	s := NewSession("s1")

	t1, _ := s.Begin(KindRefresh, false)
	_, ok := s.Begin(KindRefresh, true)
	require.False(t, ok)

	out := s.Apply(Result{Ticket: t1, Chunk: "a"})
	assert.True(t, out.RunQueued)

	// queue is consumed once
	t2, ok := s.Begin(KindRefresh, true)
	require.True(t, ok)
	assert.True(t, t2.Explicit)
	out = s.Apply(Result{Ticket: t2})
	assert.False(t, out.RunQueued)
}

func TestSession_ExplicitRefreshQueuesBehindFailedMetricFetch(t *testing.T) {
	s := NewSession("s1")

	t1, _ := s.Begin(KindMetric, false)
	_, ok := s.Begin(KindRefresh, true)
	require.False(t, ok)

	out := s.Apply(Result{Ticket: t1, MetricErr: errors.New("timeout")})
	assert.Error(t, out.Err)
	assert.True(t, out.RunQueued)

	// without a queued request, a failed metric fetch leaves the lane idle
	t2, _ := s.Begin(KindMetric, false)
	out = s.Apply(Result{Ticket: t2, MetricErr: errors.New("timeout")})
	assert.False(t, out.RunQueued)
	assert.False(t, s.Polling())
}

func TestSession_DuplicateResponseIsDropped(t *testing.T) {
	s := NewSession("s1")
	s.log = s.log.Append("hello")

	t1, _ := s.Begin(KindRefresh, false)
	require.True(t, s.ApplyLog(t1, " world"))

	// the same range delivered again
	assert.False(t, s.ApplyLog(t1, " world"))
	assert.Equal(t, "hello world", s.Log().Text())
}

func TestSession_StaleTicketIgnored(t *testing.T) {
	s := NewSession("s1")

	t1, _ := s.Begin(KindRefresh, false)
	s.Apply(Result{Ticket: t1, Chunk: "first"})

	// a result for a ticket that already finished
	out := s.Apply(Result{Ticket: t1, Chunk: "first"})
	assert.False(t, out.Applied)
	assert.Equal(t, "first", s.Log().Text())

	// a ticket from another session
	foreign := NewSession("s1")
	ft, _ := foreign.Begin(KindRefresh, false)
	assert.False(t, s.Current(ft))
}

func TestSession_FailuresKeepLastGoodState(t *testing.T) {
	s := NewSession("s1")
	snap := &chart.Snapshot{Model: []chart.ModelStats{{Name: "resnet"}}}

	t1, _ := s.Begin(KindRefresh, false)
	out := s.Apply(Result{Ticket: t1, Chunk: "boot\n", Metric: snap})
	require.NoError(t, out.Err)
	assert.True(t, out.MetricUpdated)
	assert.Equal(t, "boot\n", out.Chunk)

	t2, _ := s.Begin(KindRefresh, false)
	out = s.Apply(Result{Ticket: t2, LogErr: errors.New("timeout"), MetricErr: errors.New("502")})
	require.Error(t, out.Err)
	assert.EqualError(t, out.Err, "timeout")
	assert.Equal(t, "boot\n", s.Log().Text())
	assert.Same(t, snap, s.Metric())
	assert.True(t, s.Alive())
	assert.Error(t, s.LastError())
}

func TestSession_LivenessFailure(t *testing.T) {
	s := NewSession("s1")
	s.log = s.log.Append("kept")

	t1, _ := s.Begin(KindRefresh, false)
	out := s.Apply(Result{Ticket: t1, AliveErr: errors.New("process exited")})

	assert.True(t, out.Applied)
	assert.False(t, s.Alive())
	assert.Equal(t, "kept", s.Log().Text())

	// polling continues and recovers
	t2, ok := s.Begin(KindRefresh, false)
	require.True(t, ok)
	s.Apply(Result{Ticket: t2})
	assert.True(t, s.Alive())
	assert.NoError(t, s.LastError())
}

func TestSession_MetricOnlyDoesNotTouchLiveness(t *testing.T) {
	s := NewSession("s1")
	t1, _ := s.Begin(KindRefresh, false)
	s.Apply(Result{Ticket: t1, AliveErr: errors.New("down")})

	t2, ok := s.Begin(KindMetric, false)
	require.True(t, ok)
	out := s.Apply(Result{Ticket: t2, Metric: &chart.Snapshot{}})
	assert.True(t, out.MetricUpdated)
	assert.False(t, s.Alive())
}

func TestSession_ConfigFetchedOnceUnlessForced(t *testing.T) {
	s := NewSession("s1")
	require.True(t, s.NeedsConfig())

	t1, ok := s.BeginConfig(false)
	require.True(t, ok)
	assert.False(t, s.NeedsConfig(), "no second fetch while one is loading")
	_, ok = s.BeginConfig(false)
	assert.False(t, ok)

	require.True(t, s.ApplyConfig(t1, NewServerConfig(map[string]any{"resnet": map[string]any{}}), nil))
	assert.False(t, s.NeedsConfig())
	_, ok = s.BeginConfig(false)
	assert.False(t, ok)

	t2, ok := s.BeginConfig(true)
	require.True(t, ok)
	require.True(t, s.ApplyConfig(t2, ServerConfig{}, errors.New("boom")))

	cfg, err := s.Config()
	require.NotNil(t, cfg, "failed refresh keeps the cached config")
	assert.Error(t, err)
}

func TestSession_ConfigFailureIsRetryable(t *testing.T) {
	s := NewSession("s1")
	t1, _ := s.BeginConfig(false)
	s.ApplyConfig(t1, ServerConfig{}, errors.New("unreachable"))

	cfg, err := s.Config()
	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.True(t, s.NeedsConfig())
}

func TestSession_LanesAreIndependent(t *testing.T) {
	s := NewSession("s1")

	_, ok := s.Begin(KindRefresh, false)
	require.True(t, ok)
	_, ok = s.BeginConfig(false)
	assert.True(t, ok)
	te, ok := s.BeginExpanded()
	assert.True(t, ok)
	_, ok = s.BeginExpanded()
	assert.False(t, ok)

	exp := &chart.Expanded{Order: []string{"a"}}
	require.True(t, s.ApplyExpanded(te, exp, nil))
	assert.Same(t, exp, s.Expanded())

	_, ok = s.Begin(KindConfig, false)
	assert.False(t, ok, "Begin only issues polling tickets")
}

func TestSession_CloseDropsLateResults(t *testing.T) {
	s := NewSession("s1")
	s.log = s.log.Append("data")

	t1, _ := s.Begin(KindRefresh, false)
	s.Close()

	out := s.Apply(Result{Ticket: t1, Chunk: "late", Metric: &chart.Snapshot{}})
	assert.False(t, out.Applied)
	assert.True(t, s.Closed())
	assert.True(t, s.Log().Empty())
	assert.Nil(t, s.Metric())

	_, ok := s.Begin(KindRefresh, false)
	assert.False(t, ok)
	assert.False(t, s.NeedsConfig())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "refresh", KindRefresh.String())
	assert.Equal(t, "metric", KindMetric.String())
	assert.Equal(t, "config", KindConfig.String())
	assert.Equal(t, "expanded", KindExpanded.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
