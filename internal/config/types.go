package config

import (
	"time"

	"github.com/fdwatch/fdwatch/internal/telemetry"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .fdwatch.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// API is the root of the fastdeploy API, for example
	// http://localhost:8040/api/fastdeploy.
	API string `yaml:"api" mapstructure:"api"`

	// Refresh is the polling period.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`

	// Timeout bounds every API request.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Default names the server used when a command gets no server argument.
	// It may be an alias from Servers or a raw server id.
	Default string `yaml:"default,omitempty" mapstructure:"default"`

	// Servers maps friendly aliases to server ids.
	Servers map[string]Server `yaml:"servers,omitempty" mapstructure:"servers"`

	// Endpoints overrides API paths. Empty fields keep the defaults.
	Endpoints telemetry.Endpoints `yaml:"endpoints,omitempty" mapstructure:"endpoints"`

	Tunnel   TunnelConfig   `yaml:"tunnel,omitempty" mapstructure:"tunnel"`
	Overview OverviewConfig `yaml:"overview" mapstructure:"overview"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
}

// Server is a named inference server.
type Server struct {
	// ID is the server id the API knows it by. Defaults to the alias.
	ID string `yaml:"id" mapstructure:"id"`

	// Exposition is an optional Prometheus /metrics URL scraped instead of
	// the API's metric endpoint.
	Exposition string `yaml:"exposition,omitempty" mapstructure:"exposition"`

	// Mode is the view the dashboard opens in: log, performance, config
	// or overview.
	Mode string `yaml:"mode,omitempty" mapstructure:"mode"`
}

// TunnelConfig routes API traffic through an SSH connection, for servers
// that only listen on the inference host's loopback.
type TunnelConfig struct {
	// Host is an SSH config alias, hostname, user@host or host:port.
	Host string `yaml:"host,omitempty" mapstructure:"host"`

	// Timeout bounds the SSH dial and handshake.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`

	// InsecureHostKey skips known_hosts verification.
	InsecureHostKey bool `yaml:"insecure_host_key,omitempty" mapstructure:"insecure_host_key"`
}

// Enabled reports whether a tunnel host is configured.
func (t TunnelConfig) Enabled() bool {
	return t.Host != ""
}

// OverviewConfig sets the starting state of the overview detail panel.
type OverviewConfig struct {
	// Device is "cpu" or "gpu".
	Device string `yaml:"device" mapstructure:"device"`

	// TopK is how many series the stacked chart requests.
	TopK int `yaml:"topk" mapstructure:"topk"`
}

// OutputConfig controls terminal output.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	Color string `yaml:"color" mapstructure:"color"`

	// LogFile receives log output while the dashboard owns the terminal.
	LogFile string `yaml:"log_file,omitempty" mapstructure:"log_file"`
}

// Resolved is a server argument after alias lookup.
type Resolved struct {
	Alias  string
	ID     string
	Server Server
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		API:     "http://localhost:8040/api/fastdeploy",
		Refresh: telemetry.DefaultInterval,
		Timeout: 5 * time.Second,
		Servers: make(map[string]Server),
		Tunnel: TunnelConfig{
			Timeout: 10 * time.Second,
		},
		Overview: OverviewConfig{
			Device: "gpu",
			TopK:   5,
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

// Resolve maps a server argument to a server id. An empty argument falls
// back to Default. Unknown names are taken as raw server ids.
func (c *Config) Resolve(arg string) (Resolved, bool) {
	if arg == "" {
		arg = c.Default
	}
	if arg == "" {
		return Resolved{}, false
	}

	if srv, ok := c.Servers[arg]; ok {
		id := srv.ID
		if id == "" {
			id = arg
		}
		return Resolved{Alias: arg, ID: id, Server: srv}, true
	}

	// a raw id that an alias points at still picks up its settings
	for alias, srv := range c.Servers {
		if srv.ID == arg {
			return Resolved{Alias: alias, ID: arg, Server: srv}, true
		}
	}
	return Resolved{ID: arg}, true
}
