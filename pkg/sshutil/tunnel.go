// Package sshutil forwards TCP connections through an SSH server. It lets
// fdwatch reach an inference API that only listens on a remote loopback
// interface, using the same host resolution as the ssh command.
package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fdwatch/fdwatch/internal/errors"
	"github.com/fdwatch/fdwatch/internal/logger"
	"golang.org/x/crypto/ssh"
)

// DefaultTimeout bounds the TCP dial and SSH handshake when Options leaves
// Timeout unset.
const DefaultTimeout = 10 * time.Second

// Options configure Dial.
type Options struct {
	Timeout time.Duration

	// InsecureHostKey skips known_hosts verification.
	InsecureHostKey bool

	// SSHDir overrides ~/.ssh for config, keys and known_hosts.
	SSHDir string

	Logger logger.Logger
}

// Tunnel is an SSH connection used as a dialer for forwarded TCP streams.
type Tunnel struct {
	Host    string // host or alias as given
	Address string // resolved host:port

	client *ssh.Client
	log    logger.Logger

	mu     sync.Mutex
	closed bool
}

// Dial connects and authenticates to host. The host can be an SSH config
// alias, a hostname, user@hostname or hostname:port.
func Dial(ctx context.Context, host string, opts Options) (*Tunnel, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}
	if opts.SSHDir == "" {
		opts.SSHDir = defaultSSHDir()
	}

	settings := resolveSettings(host, opts.SSHDir, opts.Logger)

	cfg, err := buildClientConfig(settings, opts)
	if err != nil {
		var fdErr *errors.Error
		if stderrors.As(err, &fdErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	dialCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	address := settings.address()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	if deadline, ok := dialCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, cfg)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrTunnel, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	opts.Logger.Debug("ssh tunnel to %s (%s) established as %s", host, address, settings.user)

	return &Tunnel{
		Host:    host,
		Address: address,
		client:  ssh.NewClient(sshConn, chans, reqs),
		log:     opts.Logger,
	}, nil
}

// DialContext opens a TCP stream to addr as seen from the SSH server.
// Its signature matches http.Transport.DialContext.
func (t *Tunnel) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if t.isClosed() {
		return nil, errors.New(errors.ErrTunnel,
			fmt.Sprintf("SSH tunnel to '%s' is closed", t.Host), "")
	}

	conn, err := t.client.DialContext(ctx, network, addr)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrTunnel,
			fmt.Sprintf("Couldn't open %s through '%s'", addr, t.Host),
			"Check the API address is reachable from the SSH host: curl "+addr)
	}
	t.log.Debug("forwarded %s via %s", addr, t.Host)
	return conn, nil
}

// Alive sends an OpenSSH keepalive and reports whether the server answered.
func (t *Tunnel) Alive() bool {
	if t.isClosed() {
		return false
	}
	_, _, err := t.client.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

// Close tears down the SSH connection. Calling it twice is harmless.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.client.Close()
}

func (t *Tunnel) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
