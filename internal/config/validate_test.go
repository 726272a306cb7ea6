package config

import (
	"testing"
	"time"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "future version",
			mutate:  func(c *Config) { c.Version = CurrentConfigVersion + 1 },
			wantErr: "from the future",
		},
		{
			name:    "missing api",
			mutate:  func(c *Config) { c.API = "" },
			wantErr: "No API address",
		},
		{
			name:    "api without scheme",
			mutate:  func(c *Config) { c.API = "localhost:8040" },
			wantErr: "isn't an http(s) URL",
		},
		{
			name:    "refresh too short",
			mutate:  func(c *Config) { c.Refresh = 100 * time.Millisecond },
			wantErr: "too short",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
		{
			name:    "bad server mode",
			mutate:  func(c *Config) { c.Servers["s1"] = Server{Mode: "graphs"} },
			wantErr: "mode 'graphs' isn't valid",
		},
		{
			name:    "server alias with space",
			mutate:  func(c *Config) { c.Servers["my server"] = Server{} },
			wantErr: "can't contain spaces",
		},
		{
			name:    "bad exposition url",
			mutate:  func(c *Config) { c.Servers["s1"] = Server{Exposition: "not a url"} },
			wantErr: "exposition URL",
		},
		{
			name:    "bad overview device",
			mutate:  func(c *Config) { c.Overview.Device = "tpu" },
			wantErr: "overview.device",
		},
		{
			name:    "negative topk",
			mutate:  func(c *Config) { c.Overview.TopK = -1 },
			wantErr: "overview.topk",
		},
		{
			name:    "bad color",
			mutate:  func(c *Config) { c.Output.Color = "rainbow" },
			wantErr: "output.color",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsCode(err, errors.ErrConfig))
		})
	}
}

func TestValidateNil(t *testing.T) {
	require.Error(t, Validate(nil))
}

func TestValidateMode(t *testing.T) {
	for _, m := range append(ValidModes, "") {
		assert.NoError(t, ValidateMode(m), m)
	}
	assert.Error(t, ValidateMode("LOG"))
}
