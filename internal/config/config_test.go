package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, "http://localhost:8040/api/fastdeploy", cfg.API)
	assert.Equal(t, 10*time.Second, cfg.Refresh)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.NotNil(t, cfg.Servers)
	assert.Empty(t, cfg.Servers)
	assert.False(t, cfg.Tunnel.Enabled())
	assert.Equal(t, "gpu", cfg.Overview.Device)
	assert.Equal(t, 5, cfg.Overview.TopK)
	assert.Equal(t, "auto", cfg.Output.Color)
	require.NoError(t, Validate(cfg))
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
version: 1
api: http://gpu-box:8040/api/fastdeploy/
refresh: 3s
timeout: 2s
default: ernie
servers:
  ernie:
    id: "1"
    mode: performance
  ppyolo:
    exposition: http://gpu-box:8002/metrics
endpoints:
  output: get_output
tunnel:
  host: gpu-box
overview:
  device: cpu
  topk: 3
output:
  color: never
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:8040/api/fastdeploy", cfg.API, "trailing slash trimmed")
	assert.Equal(t, 3*time.Second, cfg.Refresh)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "ernie", cfg.Default)
	require.Len(t, cfg.Servers, 2)
	assert.Equal(t, "1", cfg.Servers["ernie"].ID)
	assert.Equal(t, "performance", cfg.Servers["ernie"].Mode)
	assert.Equal(t, "http://gpu-box:8002/metrics", cfg.Servers["ppyolo"].Exposition)
	assert.Equal(t, "get_output", cfg.Endpoints.Output)
	assert.Empty(t, cfg.Endpoints.Metric)
	assert.Equal(t, "gpu-box", cfg.Tunnel.Host)
	assert.Equal(t, 10*time.Second, cfg.Tunnel.Timeout, "default kept")
	assert.Equal(t, "cpu", cfg.Overview.Device)
	assert.Equal(t, 3, cfg.Overview.TopK)
	assert.Equal(t, "never", cfg.Output.Color)
	require.NoError(t, Validate(cfg))
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "api: http://file:8040/api\nrefresh: 3s\n")

	t.Setenv("FDWATCH_API", "http://env:9000/api")
	t.Setenv("FDWATCH_REFRESH", "20s")
	t.Setenv("FDWATCH_TIMEOUT", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env:9000/api", cfg.API)
	assert.Equal(t, 20*time.Second, cfg.Refresh)
	assert.Equal(t, time.Second, cfg.Timeout)
}

func TestLoad_ExpandsVariables(t *testing.T) {
	t.Setenv("FD_HOST", "box1")
	path := writeConfig(t, t.TempDir(), `
api: http://${FD_HOST}:8040/api
servers:
  s1:
    exposition: http://${FD_HOST}:8002/metrics
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://box1:8040/api", cfg.API)
	assert.Equal(t, "http://box1:8002/metrics", cfg.Servers["s1"].Exposition)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "api: [unclosed\n")
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestFind(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "version: 1\n")
		found, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, found)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("HOME", t.TempDir())
		path := writeConfig(t, dir, "version: 1\n")
		t.Chdir(dir)

		found, err := Find("")
		require.NoError(t, err)
		assertSameFile(t, path, found)
	})

	t.Run("parent directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("HOME", t.TempDir())
		path := writeConfig(t, dir, "version: 1\n")
		sub := filepath.Join(dir, "a", "b")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		t.Chdir(sub)

		found, err := Find("")
		require.NoError(t, err)
		assertSameFile(t, path, found)
	})

	t.Run("global fallback", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		require.NoError(t, os.MkdirAll(filepath.Dir(global), 0o755))
		require.NoError(t, os.WriteFile(global, []byte("version: 1\n"), 0o644))
		t.Chdir(home)

		found, err := Find("")
		require.NoError(t, err)
		assertSameFile(t, global, found)
	})
}

func assertSameFile(t *testing.T, want, got string) {
	t.Helper()
	wantInfo, err := os.Stat(want)
	require.NoError(t, err)
	gotInfo, err := os.Stat(got)
	require.NoError(t, err)
	assert.True(t, os.SameFile(wantInfo, gotInfo), "want %s, got %s", want, got)
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(home)
	t.Setenv("FDWATCH_API", "http://env:1/api")

	cfg, path, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "http://env:1/api", cfg.API)
	assert.Equal(t, 10*time.Second, cfg.Refresh)
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Servers = map[string]Server{
		"ernie":  {ID: "7", Mode: "config"},
		"ppyolo": {},
	}

	tests := []struct {
		name   string
		arg    string
		def    string
		want   Resolved
		wantOK bool
	}{
		{name: "alias with id", arg: "ernie", want: Resolved{Alias: "ernie", ID: "7", Server: Server{ID: "7", Mode: "config"}}, wantOK: true},
		{name: "alias without id uses alias", arg: "ppyolo", want: Resolved{Alias: "ppyolo", ID: "ppyolo"}, wantOK: true},
		{name: "raw id matching alias", arg: "7", want: Resolved{Alias: "ernie", ID: "7", Server: Server{ID: "7", Mode: "config"}}, wantOK: true},
		{name: "unknown raw id", arg: "42", want: Resolved{ID: "42"}, wantOK: true},
		{name: "falls back to default", def: "ernie", want: Resolved{Alias: "ernie", ID: "7", Server: Server{ID: "7", Mode: "config"}}, wantOK: true},
		{name: "nothing to resolve", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.Default = tt.def
			got, ok := cfg.Resolve(tt.arg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServerNamesSorted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Servers = map[string]Server{"b": {}, "a": {}, "c": {}}
	assert.Equal(t, []string{"a", "b", "c"}, cfg.ServerNames())
}
