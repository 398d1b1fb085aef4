// internal/agent/agent.go
package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/netauto/hivectl/internal/cli"
	"github.com/netauto/hivectl/internal/config"
	"github.com/netauto/hivectl/internal/facts"
	"github.com/netauto/hivectl/internal/platform"
	"github.com/netauto/hivectl/internal/store"
	"github.com/netauto/hivectl/internal/transport"
)

// Session is what the agent needs from a device connection: lifecycle
// plus command execution for the fact collector.
type Session interface {
	Connect(ctx context.Context) error
	Run(cli.Command) (cli.CommandResult, error)
	Disconnect() error
}

// Agent polls the configured devices on an interval, collects facts from
// each, and records the results in the store.
type Agent struct {
	cfg   *config.Config
	store *store.Store
	dial  func(config.Device) (Session, error)
}

// New creates an agent over SSH sessions.
func New(cfg *config.Config, st *store.Store) *Agent {
	a := &Agent{cfg: cfg, store: st}
	a.dial = func(dev config.Device) (Session, error) {
		def, err := platform.Get(dev.Platform)
		if err != nil {
			return nil, err
		}
		tr := transport.NewSSH(transport.SSHConfig{
			Host:     dev.Host,
			Port:     dev.Port,
			Username: dev.Username,
			Password: dev.Password,
		})
		return cli.New(dev.Host, tr, def, cfg.CommandTimeout), nil
	}
	return a
}

// Run starts the collection loop. The first sweep happens immediately;
// afterwards devices are polled every PollInterval until ctx is
// cancelled.
func (a *Agent) Run(ctx context.Context) error {
	log.Printf("Agent starting: devices=%d interval=%s store=%s",
		len(a.cfg.Devices), a.cfg.PollInterval, a.cfg.StorePath)

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	a.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Agent shutting down")
			return nil
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

// sweep collects facts from every configured device. A failing device
// costs only its own facts for this round.
func (a *Agent) sweep(ctx context.Context) {
	ok := 0
	for _, dev := range a.cfg.Devices {
		if err := a.collectDevice(ctx, dev); err != nil {
			log.Printf("Collection error for %s: %v", dev.Host, err)
			continue
		}
		ok++
	}
	log.Printf("Sweep complete: %d/%d devices collected", ok, len(a.cfg.Devices))
}

func (a *Agent) collectDevice(ctx context.Context, dev config.Device) error {
	sess, err := a.dial(dev)
	if err != nil {
		return err
	}

	if err := sess.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer sess.Disconnect()

	fs, err := facts.Collect(sess, dev.GatherSubset)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	subsets, _ := fs["gather_subset"].([]string)
	rec := &store.Record{
		Host:        dev.Host,
		CollectedAt: time.Now(),
		Subsets:     subsets,
		Facts:       fs,
	}
	if err := a.store.Insert(rec); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
