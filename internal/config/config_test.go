// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hivectl.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
devices:
  - host: hive-01.lab
    username: admin
    password_env: HIVE01_PASSWORD
    gather_subset: [all]
  - host: hive-02.lab
    port: 2222
    username: admin
    platform: hiveos
command_timeout: 45s
poll_interval: 10m
store_path: /var/lib/hivectl/facts.db
`)
	t.Setenv("HIVE01_PASSWORD", "hunter2")
	t.Setenv("HIVECTL_PASSWORD", "fallback")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.CommandTimeout != 45*time.Second {
		t.Errorf("CommandTimeout = %v, want 45s", cfg.CommandTimeout)
	}
	if cfg.PollInterval != 10*time.Minute {
		t.Errorf("PollInterval = %v, want 10m", cfg.PollInterval)
	}
	if cfg.StorePath != "/var/lib/hivectl/facts.db" {
		t.Errorf("StorePath = %q", cfg.StorePath)
	}

	dev := cfg.Devices[0]
	if dev.Password != "hunter2" {
		t.Errorf("Devices[0].Password = %q, want value of HIVE01_PASSWORD", dev.Password)
	}
	if dev.Port != 22 {
		t.Errorf("Devices[0].Port = %d, want default 22", dev.Port)
	}

	dev = cfg.Devices[1]
	if dev.Password != "fallback" {
		t.Errorf("Devices[1].Password = %q, want HIVECTL_PASSWORD fallback", dev.Password)
	}
	if dev.Port != 2222 {
		t.Errorf("Devices[1].Port = %d, want 2222", dev.Port)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
devices:
  - host: hive-01.lab
    username: admin
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.CommandTimeout != 30*time.Second {
		t.Errorf("CommandTimeout = %v, want default 30s", cfg.CommandTimeout)
	}
	if cfg.PollInterval != 30*time.Minute {
		t.Errorf("PollInterval = %v, want default 30m", cfg.PollInterval)
	}

	dev := cfg.Devices[0]
	if dev.Platform != "hiveos" {
		t.Errorf("Platform = %q, want default hiveos", dev.Platform)
	}
	if len(dev.GatherSubset) != 1 || dev.GatherSubset[0] != "!config" {
		t.Errorf("GatherSubset = %v, want [!config]", dev.GatherSubset)
	}
}

func TestLoadRequiresHost(t *testing.T) {
	path := writeConfig(t, `
devices:
  - username: admin
`)

	if _, err := Load(path); err == nil {
		t.Error("Load should fail for a device without a host")
	}
}

func TestFindDevice(t *testing.T) {
	path := writeConfig(t, `
devices:
  - host: hive-01.lab
    username: admin
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if _, err := cfg.FindDevice("hive-01.lab"); err != nil {
		t.Errorf("FindDevice(hive-01.lab) error: %v", err)
	}
	if _, err := cfg.FindDevice("missing.lab"); err == nil {
		t.Error("FindDevice should fail for an unknown host")
	}
}
