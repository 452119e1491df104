package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newConfigCmd creates the 'config' subcommand, which prints the effective
// configuration after file, env, and defaults are merged.
func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Prints the effective configuration as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			cfg := rt.cfg
			if cfg.Server.APIKey != "" {
				cfg.Server.APIKey = "redacted"
			}
			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
