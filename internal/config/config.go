// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Device is one managed HiveOS device. Passwords never live in the
// config file: PasswordEnv names the environment variable holding the
// device password, with HIVECTL_PASSWORD as the shared fallback.
type Device struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	Username     string   `yaml:"username"`
	PasswordEnv  string   `yaml:"password_env"`
	Password     string   `yaml:"-"` // resolved at load time
	Platform     string   `yaml:"platform"`
	GatherSubset []string `yaml:"gather_subset"`
}

// Config is the hivectl configuration.
type Config struct {
	Devices        []Device      `yaml:"devices"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	StorePath      string        `yaml:"store_path"`
	PlatformDir    string        `yaml:"platform_dir"`
}

// Load reads the YAML config, resolves device passwords from the
// environment, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 30 * time.Minute
	}
	if cfg.StorePath == "" {
		cfg.StorePath = "hivectl.db"
	}

	fallback := os.Getenv("HIVECTL_PASSWORD")
	for i := range cfg.Devices {
		dev := &cfg.Devices[i]
		if dev.Host == "" {
			return nil, fmt.Errorf("device %d: host is required", i)
		}
		if dev.Port == 0 {
			dev.Port = 22
		}
		if dev.Platform == "" {
			dev.Platform = "hiveos"
		}
		if dev.GatherSubset == nil {
			dev.GatherSubset = []string{"!config"}
		}
		if dev.PasswordEnv != "" {
			dev.Password = os.Getenv(dev.PasswordEnv)
		}
		if dev.Password == "" {
			dev.Password = fallback
		}
	}

	return &cfg, nil
}

// FindDevice returns the configured device with the given host.
func (c *Config) FindDevice(host string) (*Device, error) {
	for i := range c.Devices {
		if c.Devices[i].Host == host {
			return &c.Devices[i], nil
		}
	}
	return nil, fmt.Errorf("device %q not in config", host)
}
