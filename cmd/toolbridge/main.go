// Package main implements the toolbridge CLI: a sandboxed script
// execution bridge that lets scripts call host-side tools synchronously
// or asynchronously, with built-in providers for filesystem, web, and
// code-outline tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/toolbridge/config"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var natsURL string

	rootCmd := &cobra.Command{
		Use:     "toolbridge",
		Short:   "Sandboxed tool-orchestration execution bridge",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", "", "NATS server URL (default: embedded)")

	loadCfg := func() (*config.Config, error) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		if natsURL != "" {
			cfg.NATS.URL = natsURL
			cfg.NATS.Embedded = false
		}
		return cfg, nil
	}

	rootCmd.AddCommand(newRunCmd(loadCfg))
	rootCmd.AddCommand(newServeCmd(loadCfg))
	rootCmd.AddCommand(newToolsCmd(loadCfg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	loader := config.NewLoader(nil)
	return loader.Load()
}
