package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, m *Metrics, endpoint, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "fdwatch_api_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["endpoint"] == endpoint && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetrics_CountsRequests(t *testing.T) {
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"status": 0}`)
	}))
	defer srv.Close()

	m := NewMetrics()
	c, err := NewClient(srv.URL, WithMetrics(m))
	require.NoError(t, err)

	require.NoError(t, c.CheckAlive(context.Background(), "s1"))
	require.NoError(t, c.CheckAlive(context.Background(), "s1"))
	fail = true
	require.Error(t, c.CheckAlive(context.Background(), "s1"))

	assert.Equal(t, 2.0, counterValue(t, m, "check_alive", "ok"))
	assert.Equal(t, 1.0, counterValue(t, m, "check_alive", "error"))
}

func TestMetrics_EnvelopeErrorCountsAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": 1, "msg": "gone"}`)
	}))
	defer srv.Close()

	m := NewMetrics()
	c, err := NewClient(srv.URL, WithMetrics(m))
	require.NoError(t, err)

	require.Error(t, c.CheckAlive(context.Background(), "s1"))
	assert.Equal(t, 1.0, counterValue(t, m, "check_alive", "error"))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.observe("metric", time.Now(), nil)
	m.addLogBytes(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fdwatch_api_requests_total{endpoint="metric",outcome="ok"} 1`)
	assert.Contains(t, string(body), "fdwatch_log_received_bytes_total 42")
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.observe("x", time.Now(), nil)
	m.addLogBytes(10)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
