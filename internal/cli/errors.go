// internal/cli/errors.go
package cli

import (
	"fmt"
	"time"
)

// NotConnectedError reports an operation attempted on a session that is
// not connected. This is a caller bug, not a device condition; it is
// never worth retrying.
type NotConnectedError struct {
	Op string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("%s: session not connected", e.Op)
}

// TimeoutError reports that the device prompt was not seen within the
// command's timeout. Callers may retry with backoff.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no prompt within %s after %q", e.Timeout, e.Command)
}

// DeviceError reports that the device answered a command with a
// recognized error token. Output carries the device text verbatim.
type DeviceError struct {
	Command string
	Output  string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device rejected %q: %s", e.Command, e.Output)
}

// AuthError reports a rejected credential during connect or privilege
// escalation. Fatal for the session.
type AuthError struct {
	Host   string
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %s", e.Host, e.Reason)
}
