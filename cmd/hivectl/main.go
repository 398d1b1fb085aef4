// cmd/hivectl/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/netauto/hivectl/internal/agent"
	"github.com/netauto/hivectl/internal/cli"
	"github.com/netauto/hivectl/internal/config"
	"github.com/netauto/hivectl/internal/facts"
	"github.com/netauto/hivectl/internal/platform"
	"github.com/netauto/hivectl/internal/store"
	"github.com/netauto/hivectl/internal/transport"
)

var (
	configPath string
	hostFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "hivectl",
	Short: "Manage Aerohive HiveOS devices over their CLI",
}

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Collect device facts and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		subsets, _ := cmd.Flags().GetStringSlice("subset")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		devices := cfg.Devices
		if hostFlag != "" {
			dev, err := cfg.FindDevice(hostFlag)
			if err != nil {
				return err
			}
			devices = []config.Device{*dev}
		}

		out := map[string]facts.FactSet{}
		for _, dev := range devices {
			fs, err := collectFrom(cmd.Context(), cfg, dev, subsets)
			if err != nil {
				return fmt.Errorf("%s: %w", dev.Host, err)
			}
			out[dev.Host] = fs
		}
		return printJSON(out)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Execute a single CLI command on a device",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, dev, err := pickDevice()
		if err != nil {
			return err
		}

		drv, err := openSession(cmd.Context(), cfg, *dev)
		if err != nil {
			return err
		}
		defer drv.Disconnect()

		res, err := drv.Run(cli.Command{Text: strings.Join(args, " "), Depaginate: true})
		if err != nil {
			return err
		}
		fmt.Println(res.Text)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "config",
	Short: "Fetch the device configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("source")

		cfg, dev, err := pickDevice()
		if err != nil {
			return err
		}

		drv, err := openSession(cmd.Context(), cfg, *dev)
		if err != nil {
			return err
		}
		defer drv.Disconnect()

		text, err := drv.GetConfig(source)
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Poll all devices on an interval and record facts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return agent.New(cfg, st).Run(ctx)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded fact collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		var records []store.Record
		if hostFlag != "" {
			records, err = st.ByHost(hostFlag, limit)
		} else {
			records, err = st.Latest()
		}
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List known device platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil && !os.IsNotExist(err) {
			return err
		}
		for _, name := range platform.Names() {
			fmt.Println(name)
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.PlatformDir != "" {
		if err := platform.LoadDir(cfg.PlatformDir); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func pickDevice() (*config.Config, *config.Device, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if hostFlag == "" {
		if len(cfg.Devices) != 1 {
			return nil, nil, fmt.Errorf("--host is required with %d configured devices", len(cfg.Devices))
		}
		return cfg, &cfg.Devices[0], nil
	}
	dev, err := cfg.FindDevice(hostFlag)
	if err != nil {
		return nil, nil, err
	}
	return cfg, dev, nil
}

func openSession(ctx context.Context, cfg *config.Config, dev config.Device) (*cli.Driver, error) {
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
	drv := cli.New(dev.Host, tr, def, cfg.CommandTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.CommandTimeout+10*time.Second)
	defer cancel()
	if err := drv.Connect(connectCtx); err != nil {
		return nil, err
	}
	return drv, nil
}

func collectFrom(ctx context.Context, cfg *config.Config, dev config.Device, subsets []string) (facts.FactSet, error) {
	if len(subsets) == 0 {
		subsets = dev.GatherSubset
	}
	drv, err := openSession(ctx, cfg, dev)
	if err != nil {
		return nil, err
	}
	defer drv.Disconnect()

	return facts.Collect(drv, subsets)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hivectl.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "device host from the config")

	factsCmd.Flags().StringSlice("subset", nil, "fact subsets to gather (all, default, hardware, config, !name)")
	configGetCmd.Flags().String("source", "running", "configuration source")
	historyCmd.Flags().Int("limit", 10, "max records per host")

	rootCmd.AddCommand(factsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(platformsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
