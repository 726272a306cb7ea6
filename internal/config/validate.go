package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/fdwatch/fdwatch/internal/errors"
)

// MinRefresh is the shortest polling period accepted.
const MinRefresh = time.Second

// ValidModes are the dashboard views a server can open in.
var ValidModes = []string{"log", "performance", "config", "overview"}

// ValidDevices are the overview device types.
var ValidDevices = []string{"cpu", "gpu"}

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but fdwatch only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade fdwatch or lower the version field.")
	}

	if err := ValidateAPI(cfg.API); err != nil {
		return err
	}

	if cfg.Refresh < MinRefresh {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Refresh period %v is too short", cfg.Refresh),
			fmt.Sprintf("Use at least %v, like '10s'.", MinRefresh))
	}

	if cfg.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			"Request timeout must be positive",
			"Set 'timeout' to something like '5s'.")
	}

	for alias, srv := range cfg.Servers {
		if err := validateServer(alias, srv); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'servers' section in your .fdwatch.yaml.")
		}
	}

	if err := validateOverview(cfg.Overview); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'overview' section in your .fdwatch.yaml.")
	}

	if err := validateOutput(cfg.Output); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'output' section in your .fdwatch.yaml.")
	}

	if cfg.Tunnel.Enabled() && cfg.Tunnel.Timeout < 0 {
		return errors.New(errors.ErrConfig,
			"tunnel.timeout can't be negative",
			"Remove it to use the default, or set something like '10s'.")
	}

	return nil
}

// ValidateAPI checks that the API root is an absolute http(s) URL.
func ValidateAPI(api string) error {
	if strings.TrimSpace(api) == "" {
		return errors.New(errors.ErrConfig,
			"No API address configured",
			"Pass --api, set FDWATCH_API, or add 'api:' to .fdwatch.yaml.")
	}

	u, err := url.Parse(api)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("API address '%s' isn't an http(s) URL", api),
			"Use something like http://localhost:8040/api/fastdeploy")
	}
	return nil
}

// ValidateMode checks a dashboard mode name.
func ValidateMode(mode string) error {
	if mode == "" || contains(ValidModes, mode) {
		return nil
	}
	return fmt.Errorf("mode '%s' isn't valid - use %s", mode, strings.Join(ValidModes, ", "))
}

func validateServer(alias string, srv Server) error {
	if strings.TrimSpace(alias) == "" {
		return fmt.Errorf("servers has an entry with an empty name")
	}
	if strings.ContainsAny(alias, " \t/") {
		return fmt.Errorf("server name '%s' can't contain spaces or slashes", alias)
	}
	if srv.Exposition != "" {
		u, err := url.Parse(srv.Exposition)
		if err != nil || u.Host == "" {
			return fmt.Errorf("server '%s' has an exposition URL that doesn't parse: %s", alias, srv.Exposition)
		}
	}
	if err := ValidateMode(srv.Mode); err != nil {
		return fmt.Errorf("server '%s': %w", alias, err)
	}
	return nil
}

func validateOverview(o OverviewConfig) error {
	if o.Device != "" && !contains(ValidDevices, o.Device) {
		return fmt.Errorf("overview.device '%s' isn't valid - use 'cpu' or 'gpu'", o.Device)
	}
	if o.TopK < 0 {
		return fmt.Errorf("overview.topk can't be negative (got %d)", o.TopK)
	}
	return nil
}

func validateOutput(out OutputConfig) error {
	validColors := map[string]bool{"auto": true, "always": true, "never": true, "": true}
	if !validColors[out.Color] {
		return fmt.Errorf("output.color '%s' isn't valid - use 'auto', 'always', or 'never'", out.Color)
	}
	return nil
}

// ServerNames returns the configured aliases, sorted.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
