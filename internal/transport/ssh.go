// internal/transport/ssh.go
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig holds what is needed to open an interactive SSH session to a
// device.
type SSHConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DialTimeout time.Duration
}

// SSH is a Transport over an SSH pty shell. Network devices multiplex
// their whole CLI over the one shell channel, so there is exactly one
// session per connection and no command framing: the reader goroutine
// pumps raw bytes into a channel and ReadUntil scans the accumulated
// buffer for the caller's pattern.
type SSH struct {
	cfg SSHConfig

	mu      sync.Mutex
	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	closed  bool

	chunks  chan []byte
	done    chan struct{}
	pending bytes.Buffer
}

// NewSSH returns an unconnected SSH transport.
func NewSSH(cfg SSHConfig) *SSH {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &SSH{cfg: cfg}
}

// Connect dials the device and starts a pty shell. Credential rejection
// is reported as ErrAuth so callers can distinguish it from reachability
// problems.
func (s *SSH) Connect(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))

	clientCfg := &ssh.ClientConfig{
		User:            s.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(s.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.cfg.DialTimeout,
	}

	dialer := net.Dialer{Timeout: s.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		conn.Close()
		// x/crypto/ssh exports no typed client-auth error; this matches
		// the message text from its handshake path. If an upgrade rewords
		// it, auth failures degrade to generic handshake errors.
		if strings.Contains(err.Error(), "unable to authenticate") {
			return fmt.Errorf("%w: %s@%s", ErrAuth, s.cfg.Username, addr)
		}
		return fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return fmt.Errorf("open session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 115200,
		ssh.TTY_OP_OSPEED: 115200,
	}
	if err := session.RequestPty("vt100", 0, 512, modes); err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("request pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return fmt.Errorf("start shell: %w", err)
	}

	s.mu.Lock()
	s.client = client
	s.session = session
	s.stdin = stdin
	s.closed = false
	s.chunks = make(chan []byte, 16)
	s.done = make(chan struct{})
	s.pending.Reset()
	s.mu.Unlock()

	go pump(stdout, s.chunks, s.done)
	return nil
}

// pump copies stdout into the chunk channel until EOF, which happens when
// the session or client is closed. The done channel covers the other way
// pump can be stuck at close time: parked on a channel send with no
// reader draining it.
func pump(r io.Reader, chunks chan<- []byte, done <-chan struct{}) {
	defer close(chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunks <- chunk:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Write sends p down the shell's stdin.
func (s *SSH) Write(p []byte) error {
	s.mu.Lock()
	stdin := s.stdin
	closed := s.closed
	s.mu.Unlock()

	if stdin == nil || closed {
		return ErrClosed
	}
	if _, err := stdin.Write(p); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// ReadUntil reads until pattern matches the buffered output or timeout
// elapses. The matched buffer is consumed; bytes that arrive after the
// match stay queued for the next call.
func (s *SSH) ReadUntil(pattern *regexp.Regexp, timeout time.Duration) ([]byte, error) {
	s.mu.Lock()
	chunks := s.chunks
	closed := s.closed
	s.mu.Unlock()

	if chunks == nil || closed {
		return nil, ErrClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if pattern.Match(s.pending.Bytes()) {
			out := make([]byte, s.pending.Len())
			copy(out, s.pending.Bytes())
			s.pending.Reset()
			return out, nil
		}

		select {
		case chunk, ok := <-chunks:
			if !ok {
				return nil, ErrClosed
			}
			s.pending.Write(chunk)
		case <-timer.C:
			return nil, ErrTimeout
		}
	}
}

// Close tears down the session and the client connection. Safe to call
// more than once; any blocked ReadUntil returns ErrClosed.
func (s *SSH) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.client == nil {
		s.closed = true
		return nil
	}
	s.closed = true

	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.session != nil {
		s.session.Close()
	}
	err := s.client.Close()
	s.client = nil
	s.session = nil
	s.stdin = nil
	return err
}
