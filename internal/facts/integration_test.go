// internal/facts/integration_test.go
package facts

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/netauto/hivectl/internal/cli"
	"github.com/netauto/hivectl/internal/platform"
	"github.com/netauto/hivectl/internal/transport"
)

// scriptedTransport replays a canned device conversation for the full
// connect -> collect -> disconnect flow.
type scriptedTransport struct {
	connected bool
	responses []string
}

func (s *scriptedTransport) Connect(ctx context.Context) error {
	s.connected = true
	return nil
}

func (s *scriptedTransport) Write(p []byte) error {
	if !s.connected {
		return transport.ErrClosed
	}
	return nil
}

func (s *scriptedTransport) ReadUntil(pattern *regexp.Regexp, timeout time.Duration) ([]byte, error) {
	if !s.connected {
		return nil, transport.ErrClosed
	}
	if len(s.responses) == 0 {
		return nil, transport.ErrTimeout
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	if !pattern.MatchString(next) {
		return nil, transport.ErrTimeout
	}
	return []byte(next), nil
}

func (s *scriptedTransport) Close() error {
	s.connected = false
	return nil
}

// TestCollectOverDriver drives the whole stack: prompt detection, paging
// setup, depagination, and fact parsing, over one scripted session.
func TestCollectOverDriver(t *testing.T) {
	tr := &scriptedTransport{
		responses: []string{
			"\r\nAP330#",               // login banner
			"console page 0\r\nAP330#", // paging off
			"show version\r\nVersion:            HiveOS 6.5r3 build-127885\r\nPlatform:           AP330\r\n--More--",
			"Uptime:             3 days\r\nAP330#",
			"show hw-info\r\nSerial number:         02501703160299\r\nAP330#",
			"show run | include hostname\r\nhostname hive-01\r\nAP330#",
		},
	}

	d := cli.New("hive-01.lab", tr, platform.HiveOS, time.Second)
	if err := d.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	defer d.Disconnect()

	fs, err := Collect(d, []string{"!config", "!hardware"})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}

	want := map[string]string{
		"version":   "6.5r3",
		"model":     "AP330",
		"serialnum": "02501703160299",
		"hostname":  "hive-01",
	}
	for key, val := range want {
		if fs[key] != val {
			t.Errorf("facts[%q] = %v, want %q", key, fs[key], val)
		}
	}
}

// TestCollectOverDriverDisconnected covers the not-connected fast path
// through the real driver.
func TestCollectOverDriverDisconnected(t *testing.T) {
	d := cli.New("hive-01.lab", &scriptedTransport{}, platform.HiveOS, time.Second)

	if _, err := Collect(d, nil); err == nil {
		t.Fatal("Collect over a disconnected driver should fail")
	}
}
