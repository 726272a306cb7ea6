package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fdwatch/fdwatch/internal/logger"
)

// fakeAPI serves the fastdeploy endpoints for a fixed set of servers.
type fakeAPI struct {
	mu      sync.Mutex
	log     string
	running []string
	hits    map[string]int
}

func (a *fakeAPI) hit(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hits[name]++
}

func (a *fakeAPI) count(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[name]
}

func (a *fakeAPI) isRunning(id string) bool {
	for _, r := range a.running {
		if r == id {
			return true
		}
	}
	return false
}

// newFakeAPI starts the fake and returns the API root URL.
func newFakeAPI(t *testing.T, api *fakeAPI) string {
	t.Helper()
	api.hits = make(map[string]int)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/fastdeploy/check_server_alive", func(w http.ResponseWriter, r *http.Request) {
		api.hit("alive")
		w.Header().Set("Content-Type", "application/json")
		if !api.isRunning(r.URL.Query().Get("server_id")) {
			fmt.Fprint(w, `{"status": 1, "msg": "server not alive", "data": null}`)
			return
		}
		fmt.Fprint(w, `{"status": 0, "msg": "", "data": null}`)
	})
	mux.HandleFunc("/api/fastdeploy/get_server_output", func(w http.ResponseWriter, r *http.Request) {
		api.hit("output")
		var offset int
		fmt.Sscanf(r.URL.Query().Get("length"), "%d", &offset)
		w.Header().Set("Content-Type", "text/plain")
		if offset < len(api.log) {
			fmt.Fprint(w, api.log[offset:])
		}
	})
	mux.HandleFunc("/api/fastdeploy/get_server_metric", func(w http.ResponseWriter, r *http.Request) {
		api.hit("metric")
		fmt.Fprint(w, `{"status": 0, "data": {
			"model": {"resnet": {"calls": 4, "total_time": 20, "min_time": 3, "max_time": 7, "avg_time": 5, "ratio": 100}},
			"device": [{"name": "gpu0", "total_time": 20, "ratio": 100, "utilization": 50,
				"memory_used": 1073741824, "memory_total": 2147483648, "power_usage": 120, "power_limit": 300}]
		}}`)
	})
	mux.HandleFunc("/api/fastdeploy/get_server_metric_expand", func(w http.ResponseWriter, r *http.Request) {
		api.hit("expand:" + r.URL.Query().Get("device_type") + ":" + r.URL.Query().Get("topk"))
		fmt.Fprint(w, `{"status": 0, "data": {"steps": [1, 2], "order": ["conv"], "conv": [3, 4]}}`)
	})
	mux.HandleFunc("/api/fastdeploy/get_server_config", func(w http.ResponseWriter, r *http.Request) {
		api.hit("config")
		fmt.Fprint(w, `{"status": 0, "data": {"resnet": {"backend": "paddle", "max_batch_size": 16}}}`)
	})
	mux.HandleFunc("/api/fastdeploy/get_server_list", func(w http.ResponseWriter, r *http.Request) {
		api.hit("list")
		quoted := make([]string, len(api.running))
		for i, id := range api.running {
			quoted[i] = `"` + id + `"`
		}
		fmt.Fprintf(w, `{"status": 0, "data": [%s]}`, strings.Join(quoted, ", "))
	})
	mux.HandleFunc("/api/fastdeploy/stop_server", func(w http.ResponseWriter, r *http.Request) {
		api.hit("stop:" + r.URL.Query().Get("server_id"))
		fmt.Fprint(w, `{"status": 0, "data": null}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/api/fastdeploy"
}

// writeConfig writes a .fdwatch.yaml pointing at api. extra is appended
// verbatim.
func writeConfig(t *testing.T, api, extra string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".fdwatch.yaml")
	content := "version: 1\napi: " + api + "\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const aliasConfig = `default: resnet
servers:
  resnet:
    id: s1
  idle:
    id: s9
    mode: performance
`

func testOptions(path string) WorkflowOptions {
	return WorkflowOptions{ConfigPath: path, Log: logger.Noop()}
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
