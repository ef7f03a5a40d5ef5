// iotdemo runs the connectivity-supervised inference node and the result
// collector that records what the nodes publish.
//
//	iotdemo node     evaluate, publish results, keep link and broker up
//	iotdemo collect  subscribe to every node and store the results
//	iotdemo version  print build information
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/iotdemo-core/internal/infrastructure/config"
	"github.com/nerrad567/iotdemo-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnv         = "IOTDEMO_CONFIG"
)

func main() {
	// Cancel on Ctrl+C and SIGTERM so every component shuts down in order.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called above
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "iotdemo",
		Short:         "Connectivity-supervised inference node and result collector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"configuration file (default $"+configEnv+" or "+defaultConfigPath+")")

	cmd.AddCommand(
		newNodeCommand(&configPath),
		newCollectCommand(&configPath),
		newVersionCommand(),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "iotdemo %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// resolveConfigPath picks the --config flag, then $IOTDEMO_CONFIG, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig loads the configuration and builds the configured logger.
func loadConfig(flag string) (*config.Config, *logging.Logger, error) {
	path := resolveConfigPath(flag)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", path,
		"version", version,
		"commit", commit,
		"build_date", date,
	)
	return cfg, log, nil
}
