// internal/transport/transport.go
package transport

import (
	"context"
	"errors"
	"regexp"
	"time"
)

// Transport is the capability a CLI driver needs from an interactive
// device connection: open it, push bytes, read until a pattern shows up
// at the end of the stream, and tear it down.
type Transport interface {
	// Connect opens the interactive session. It must be called before
	// Write or ReadUntil.
	Connect(ctx context.Context) error

	// Write sends p to the device as-is.
	Write(p []byte) error

	// ReadUntil accumulates received bytes until pattern matches the
	// buffer or timeout elapses. On a match it returns and consumes the
	// buffered bytes. It returns ErrTimeout when the deadline passes
	// and ErrClosed when the transport is closed mid-read.
	ReadUntil(pattern *regexp.Regexp, timeout time.Duration) ([]byte, error)

	// Close tears the session down. It is idempotent and aborts any
	// in-flight ReadUntil.
	Close() error
}

var (
	// ErrTimeout indicates the pattern was not seen within the timeout.
	ErrTimeout = errors.New("transport: read timed out")

	// ErrClosed indicates the transport is not open.
	ErrClosed = errors.New("transport: connection closed")

	// ErrAuth indicates the device rejected the supplied credentials.
	ErrAuth = errors.New("transport: authentication failed")
)
