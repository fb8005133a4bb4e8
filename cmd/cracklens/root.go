package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/cracklens"
	"github.com/aretw0/cracklens/internal/cli"
	"github.com/aretw0/cracklens/internal/config"
	"github.com/aretw0/cracklens/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cracklens",
	Short: "cracklens orchestrates crack image analysis with memoized results",
	Long: `cracklens runs plans of crack image analysis steps (segmentation, geometric
quantification, visualization, comparison, knowledge lookup) and remembers what it
computed, so asking twice never recomputes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Project directory containing data/ and outputs/")
	rootCmd.PersistentFlags().String("config", "", "Configuration file (default <dir>/cracklens.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func optionsFrom(cmd *cobra.Command) cli.Options {
	dir, _ := cmd.Flags().GetString("dir")
	cfgPath, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Options{Dir: dir, ConfigPath: cfgPath, Debug: debug}
}

// app bundles what a command needs once the engine is built.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	engine  *cracklens.Engine
	backend *cli.Backend
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("Failed to close memory backend", "err", err)
	}
}

// loadApp reads the configuration and builds the engine. mutate may adjust the
// configuration before the engine is built.
func loadApp(ctx context.Context, cmd *cobra.Command, mutate func(*config.Config), hooks ...domain.LifecycleHooks) (*app, error) {
	opts := optionsFrom(cmd)
	logger := cli.CreateLogger(opts.Debug)

	cfg, err := cli.LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	if opts.Debug {
		hooks = append(hooks, cli.DebugHooks(logger))
	}

	engine, backend, err := cli.NewEngine(ctx, cfg, logger, hooks...)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, engine: engine, backend: backend}, nil
}
