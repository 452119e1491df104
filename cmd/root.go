// Package cmd defines and implements the CLI commands for the eventtap
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/disposer/internal/config"
	"github.com/JakeFAU/disposer/internal/logging"
)

type runtimeKey struct{}

// runtime is what PersistentPreRunE hands to subcommands.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "eventtap",
		Short: "Subscribes to configured event sources and releases them cleanly on shutdown.",
		Long: `eventtap attaches to Pub/Sub subscriptions, PostgreSQL channels, bucket
notifications, and watched pages, republishes what they deliver on an
in-process bus, and tears every subscription down on SIGINT/SIGTERM.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, &runtime{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := resolveRuntime(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); EVENTTAP_* env vars override it")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "eventtap: %v\n", err)
		os.Exit(1)
	}
}
