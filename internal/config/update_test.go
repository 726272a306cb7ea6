package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetServerAlias(t *testing.T) {
	tests := []struct {
		name        string
		initialYAML string
		alias       string
		server      Server
		wantServer  Server
		wantComment bool
	}{
		{
			name: "adds servers section",
			initialYAML: `# fdwatch config
api: http://localhost:8040/api/fastdeploy
`,
			alias:       "ernie",
			server:      Server{ID: "3"},
			wantServer:  Server{ID: "3"},
			wantComment: true,
		},
		{
			name: "replaces existing entry",
			initialYAML: `api: http://localhost:8040/api/fastdeploy
servers:
  ernie:
    id: "1"
    mode: log
  other:
    id: "2"
`,
			alias:      "ernie",
			server:     Server{ID: "9", Mode: "overview"},
			wantServer: Server{ID: "9", Mode: "overview"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.initialYAML)

			require.NoError(t, SetServerAlias(path, tt.alias, tt.server))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantServer, cfg.Servers[tt.alias])
			assert.Equal(t, "http://localhost:8040/api/fastdeploy", cfg.API)

			if tt.wantComment {
				data, err := os.ReadFile(path)
				require.NoError(t, err)
				assert.Contains(t, string(data), "# fdwatch config")
			}
		})
	}
}

func TestSetServerAlias_KeepsOtherServers(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `servers:
  other:
    id: "2"
`)
	require.NoError(t, SetServerAlias(path, "ernie", Server{ID: "1"}))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2", cfg.Servers["other"].ID)
	assert.Equal(t, "1", cfg.Servers["ernie"].ID)
}

func TestSetDefaultServer(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "default: old\nrefresh: 5s\n")

	require.NoError(t, SetDefaultServer(path, "ernie"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ernie", cfg.Default)
}

func TestEditDocument_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		err := SetDefaultServer(filepath.Join(t.TempDir(), "nope.yaml"), "x")
		require.Error(t, err)
	})

	t.Run("root is a list", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "- a\n- b\n")
		err := SetDefaultServer(path, "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected mapping")
	})
}

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFileName)
	cfg := DefaultConfig()
	cfg.API = "http://box:8040/api/fastdeploy"
	cfg.Servers["ernie"] = Server{ID: "1", Mode: "performance"}
	cfg.Default = "ernie"

	require.NoError(t, Write(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.API, loaded.API)
	assert.Equal(t, cfg.Refresh, loaded.Refresh)
	assert.Equal(t, cfg.Servers, loaded.Servers)
	assert.Equal(t, "ernie", loaded.Default)
}
