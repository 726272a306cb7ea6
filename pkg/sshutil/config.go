package sshutil

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fdwatch/fdwatch/internal/logger"
	"github.com/kevinburke/ssh_config"
)

type sshSettings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string
}

func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings splits user@host:port and fills the gaps from
// <sshDir>/config. An explicit user wins over the config's User.
func resolveSettings(host, sshDir string, log logger.Logger) *sshSettings {
	settings := &sshSettings{port: "22", user: currentUser()}

	explicitUser := false
	if at := strings.Index(host, "@"); at != -1 {
		settings.user = host[:at]
		host = host[at+1:]
		explicitUser = true
	}

	explicitPort := false
	if h, p, err := net.SplitHostPort(host); err == nil && isDigits(p) {
		host, settings.port = h, p
		explicitPort = true
	}
	settings.hostname = host

	cfg, matchLine, err := loadSSHConfig(filepath.Join(sshDir, "config"))
	if err != nil {
		return settings
	}

	found := false
	if v, _ := cfg.Get(host, "HostName"); v != "" {
		settings.hostname = v
		found = true
	}
	if v, _ := cfg.Get(host, "Port"); v != "" && !explicitPort {
		settings.port = v
		found = true
	}
	if v, _ := cfg.Get(host, "User"); v != "" && !explicitUser {
		settings.user = v
		found = true
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		settings.identityFile = expandPath(v, sshDir)
		found = true
	}

	if matchLine > 0 && !found {
		log.Warn("host '%s' not found in ssh config; entries after the Match block at line %d are ignored", host, matchLine)
	}

	return settings
}

// loadSSHConfig decodes the config up to the first Match directive, which
// the parser doesn't support. matchLine is 0 when there is none.
func loadSSHConfig(path string) (*ssh_config.Config, int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	matchLine := 0
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			matchLine = i + 1
			lines = lines[:i]
			break
		}
	}

	cfg, err := ssh_config.Decode(bytes.NewReader([]byte(strings.Join(lines, "\n"))))
	if err != nil {
		return nil, matchLine, err
	}
	return cfg, matchLine, nil
}

// HostEntry is a concrete Host alias from an SSH config file.
type HostEntry struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description returns a short label for pickers.
func (h HostEntry) Description() string {
	var parts []string
	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}
	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// ListHosts returns the non-wildcard aliases in <sshDir>/config, sorted.
// An empty sshDir means ~/.ssh. A missing file yields no entries.
func ListHosts(sshDir string) ([]HostEntry, error) {
	if sshDir == "" {
		sshDir = defaultSSHDir()
	}

	cfg, _, err := loadSSHConfig(filepath.Join(sshDir, "config"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var hosts []HostEntry
	seen := make(map[string]bool)
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") || seen[alias] {
				continue
			}
			seen[alias] = true

			entry := HostEntry{Alias: alias}
			entry.Hostname, _ = cfg.Get(alias, "HostName")
			entry.User, _ = cfg.Get(alias, "User")
			entry.Port, _ = cfg.Get(alias, "Port")
			hosts = append(hosts, entry)
		}
	}

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Alias < hosts[j].Alias })
	return hosts, nil
}

func defaultSSHDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".ssh")
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "root"
}

// expandPath resolves ~/ against the home that owns sshDir.
func expandPath(path, sshDir string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filepath.Dir(sshDir), path[2:])
	}
	return path
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
