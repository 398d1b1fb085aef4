// internal/cli/driver.go
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/netauto/hivectl/internal/platform"
	"github.com/netauto/hivectl/internal/transport"
)

// PrivilegeLevel is the session's current CLI privilege.
type PrivilegeLevel string

const (
	PrivilegeUser       PrivilegeLevel = "user"
	PrivilegePrivileged PrivilegeLevel = "privileged"
)

// DefaultTimeout bounds a command's wait for the device prompt when the
// Command does not carry its own.
const DefaultTimeout = 30 * time.Second

// pagingRestoreTimeout bounds the best-effort paging restore on
// disconnect so teardown never hangs on a dead device.
const pagingRestoreTimeout = 2 * time.Second

// Command is one CLI line to execute.
type Command struct {
	Text       string
	Timeout    time.Duration // 0 means the driver default
	Depaginate bool
}

// CommandResult is the outcome of one Command: the cleaned output text
// (pagination markers, echoed command line and trailing prompt removed)
// plus the device's error message when it rejected the command.
type CommandResult struct {
	Command      string
	Text         string
	Failed       bool
	ErrorMessage string
}

// authFailRe recognizes the denial text devices print after a rejected
// escalation credential, in addition to the platform's own error tokens.
var authFailRe = regexp.MustCompile(`(?i)(access denied|authentication failed|invalid password|bad secret)`)

// Driver speaks one device's interactive CLI over a Transport. It owns
// the session state machine: Disconnected -> Connected(user) ->
// Connected(privileged) -> Disconnected. One outstanding command at a
// time; a Driver must not be shared across goroutines.
type Driver struct {
	host    string
	t       transport.Transport
	def     *platform.Definition
	timeout time.Duration

	// combined wait patterns, derived from the platform definition
	waitMore     *regexp.Regexp // prompt or pagination marker at buffer tail
	waitPassword *regexp.Regexp // prompt or password prompt
	moreTail     *regexp.Regexp // pagination marker at buffer tail
	moreStrip    *regexp.Regexp // pagination marker anywhere, for output cleanup

	connected bool
	level     PrivilegeLevel
	prompt    string
}

// New returns a disconnected driver for the given device. timeout of 0
// selects DefaultTimeout.
func New(host string, t transport.Transport, def *platform.Definition, timeout time.Duration) *Driver {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	d := &Driver{
		host:    host,
		t:       t,
		def:     def,
		timeout: timeout,
		level:   PrivilegeUser,
	}

	if def.More != nil {
		d.moreTail = regexp.MustCompile(`(?:` + def.More.String() + `)[ \t]*$`)
		// devices erase the marker line with CR/backspace sequences
		// before printing the next page; consume those too
		d.moreStrip = regexp.MustCompile(`\x08+|\r?(?:` + def.More.String() + `)[ \x08]*\r?`)
		d.waitMore = regexp.MustCompile(`(?:` + def.Prompt.String() + `)|(?:` + def.More.String() + `)[ \t]*$`)
	}
	if def.PasswordPrompt != nil {
		d.waitPassword = regexp.MustCompile(`(?:` + def.Prompt.String() + `)|(?:` + def.PasswordPrompt.String() + `)`)
	}
	return d
}

// Connected reports whether the session is open.
func (d *Driver) Connected() bool { return d.connected }

// Privilege returns the session's current privilege level.
func (d *Driver) Privilege() PrivilegeLevel { return d.level }

// Prompt returns the last prompt seen from the device.
func (d *Driver) Prompt() string { return d.prompt }

// Connect opens the transport, waits for the first prompt, and disables
// output paging for the session. Connecting an already-connected driver
// is a no-op.
func (d *Driver) Connect(ctx context.Context) error {
	if d.connected {
		return nil
	}

	if err := d.t.Connect(ctx); err != nil {
		if errors.Is(err, transport.ErrAuth) {
			return &AuthError{Host: d.host, Reason: err.Error()}
		}
		return fmt.Errorf("connect %s: %w", d.host, err)
	}

	banner, err := d.t.ReadUntil(d.def.Prompt, d.timeout)
	if err != nil {
		d.t.Close()
		if errors.Is(err, transport.ErrTimeout) {
			return &TimeoutError{Command: "login", Timeout: d.timeout}
		}
		return fmt.Errorf("wait for prompt on %s: %w", d.host, err)
	}

	d.prompt = lastLine(string(banner))
	d.connected = true
	d.level = PrivilegeUser

	if d.def.PagingOff != "" {
		if _, err := d.Run(Command{Text: d.def.PagingOff}); err != nil {
			d.Disconnect()
			return fmt.Errorf("disable paging on %s: %w", d.host, err)
		}
	}
	return nil
}

// Run executes one command and returns its cleaned output. It requires a
// connected session, waits for the prompt bounded by the command's
// timeout, and walks through pagination when the Command asks for it.
func (d *Driver) Run(cmd Command) (CommandResult, error) {
	if !d.connected {
		return CommandResult{}, &NotConnectedError{Op: "run"}
	}

	timeout := cmd.Timeout
	if timeout == 0 {
		timeout = d.timeout
	}

	if err := d.t.Write([]byte(cmd.Text + "\n")); err != nil {
		return CommandResult{Command: cmd.Text}, d.readFailure(cmd.Text, timeout, err)
	}

	wait := d.def.Prompt
	if cmd.Depaginate && d.waitMore != nil {
		wait = d.waitMore
	}

	var raw bytes.Buffer
	for {
		out, err := d.t.ReadUntil(wait, timeout)
		if err != nil {
			return CommandResult{Command: cmd.Text}, d.readFailure(cmd.Text, timeout, err)
		}
		raw.Write(out)

		if cmd.Depaginate && d.moreTail != nil && d.moreTail.Match(out) {
			if err := d.t.Write([]byte(d.def.Continuation)); err != nil {
				return CommandResult{Command: cmd.Text}, d.readFailure(cmd.Text, timeout, err)
			}
			continue
		}
		break
	}

	text := d.clean(cmd.Text, raw.String())
	res := CommandResult{Command: cmd.Text, Text: text}

	if d.def.Error != nil {
		if msg := d.def.Error.FindString(text); msg != "" {
			res.Failed = true
			res.ErrorMessage = msg
			return res, &DeviceError{Command: cmd.Text, Output: text}
		}
	}
	return res, nil
}

// Elevate raises the session to privileged mode using the platform's
// escalation sequence. A rejected credential returns AuthError and
// leaves the privilege level unchanged.
func (d *Driver) Elevate(password string) error {
	if !d.connected {
		return &NotConnectedError{Op: "elevate"}
	}
	if d.level == PrivilegePrivileged {
		return nil
	}
	if d.def.ElevateCommand == "" {
		return fmt.Errorf("platform %s defines no privilege escalation", d.def.Name)
	}

	if err := d.t.Write([]byte(d.def.ElevateCommand + "\n")); err != nil {
		return d.readFailure(d.def.ElevateCommand, d.timeout, err)
	}

	wait := d.def.Prompt
	if d.waitPassword != nil {
		wait = d.waitPassword
	}

	out, err := d.t.ReadUntil(wait, d.timeout)
	if err != nil {
		return d.readFailure(d.def.ElevateCommand, d.timeout, err)
	}

	// the device can reject the escalation command outright, answering
	// with an error token and the prompt instead of a password prompt
	if d.def.Error != nil && d.def.Error.Match(out) {
		return &DeviceError{
			Command: d.def.ElevateCommand,
			Output:  d.clean(d.def.ElevateCommand, string(out)),
		}
	}
	if authFailRe.Match(out) {
		return &AuthError{Host: d.host, Reason: "privilege escalation rejected"}
	}

	if d.def.PasswordPrompt != nil && d.def.PasswordPrompt.Match(out) {
		if err := d.t.Write([]byte(password + "\n")); err != nil {
			return d.readFailure(d.def.ElevateCommand, d.timeout, err)
		}
		out, err = d.t.ReadUntil(wait, d.timeout)
		if err != nil {
			return d.readFailure(d.def.ElevateCommand, d.timeout, err)
		}
		if d.def.PasswordPrompt.Match(out) || authFailRe.Match(out) ||
			(d.def.Error != nil && d.def.Error.Match(out)) {
			return &AuthError{Host: d.host, Reason: "privilege escalation rejected"}
		}
	}

	d.prompt = lastLine(string(out))
	d.level = PrivilegePrivileged
	return nil
}

// GetConfig fetches the device configuration from one of the platform's
// known sources. An empty source means the running config.
func (d *Driver) GetConfig(source string) (string, error) {
	if source == "" {
		source = "running"
	}
	if len(d.def.ConfigSources) > 0 && !d.def.HasConfigSource(source) {
		return "", fmt.Errorf("fetching configuration from %q is not supported", source)
	}

	res, err := d.Run(Command{Text: "show config " + source, Depaginate: true})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// EditConfig enters configuration mode, plays the candidate lines in
// order, and exits. The first rejected line aborts the remainder.
func (d *Driver) EditConfig(lines []string) error {
	cmds := make([]string, 0, len(lines)+2)
	if d.def.ConfigEnter != "" {
		cmds = append(cmds, d.def.ConfigEnter)
	}
	cmds = append(cmds, lines...)
	if d.def.ConfigExit != "" {
		cmds = append(cmds, d.def.ConfigExit)
	}

	for _, c := range cmds {
		if _, err := d.Run(Command{Text: c}); err != nil {
			return fmt.Errorf("edit config: %w", err)
		}
	}
	return nil
}

// Disconnect restores paging best-effort, closes the transport, and
// resets the session state. Valid in any state and idempotent.
func (d *Driver) Disconnect() error {
	if d.connected && d.def.PagingRestore != "" {
		if err := d.t.Write([]byte(d.def.PagingRestore + "\n")); err == nil {
			d.t.ReadUntil(d.def.Prompt, pagingRestoreTimeout)
		}
	}
	d.connected = false
	d.level = PrivilegeUser
	d.prompt = ""
	return d.t.Close()
}

// readFailure maps transport errors to the driver taxonomy. A closed
// transport forces the session to Disconnected.
func (d *Driver) readFailure(cmd string, timeout time.Duration, err error) error {
	if errors.Is(err, transport.ErrTimeout) {
		return &TimeoutError{Command: cmd, Timeout: timeout}
	}
	if errors.Is(err, transport.ErrClosed) {
		d.connected = false
		d.level = PrivilegeUser
	}
	return fmt.Errorf("%s on %s: %w", cmd, d.host, err)
}

// clean strips pagination markers, normalizes line endings, and removes
// the echoed command line and the trailing prompt from raw device output.
func (d *Driver) clean(cmdText, raw string) string {
	if d.moreStrip != nil {
		raw = d.moreStrip.ReplaceAllString(raw, "")
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	lines := strings.Split(raw, "\n")
	cleaned := make([]string, 0, len(lines))
	echoed := false
	for _, line := range lines {
		if !echoed && strings.TrimSpace(line) == strings.TrimSpace(cmdText) {
			echoed = true
			continue
		}
		cleaned = append(cleaned, line)
	}

	// trailing prompt and blank lines
	for len(cleaned) > 0 {
		last := cleaned[len(cleaned)-1]
		if strings.TrimSpace(last) == "" || d.def.Prompt.MatchString(last) {
			cleaned = cleaned[:len(cleaned)-1]
			continue
		}
		break
	}
	for len(cleaned) > 0 && strings.TrimSpace(cleaned[0]) == "" {
		cleaned = cleaned[1:]
	}
	return strings.Join(cleaned, "\n")
}

func lastLine(s string) string {
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), " \n")
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
