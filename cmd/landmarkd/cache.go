package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the configured cache backend",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached lookup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newStoreApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.store.Clear(ctx); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s cache.\n", cfg.Cache.Backend)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Remove cached lookups older than the TTL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newStoreApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			removed, err := a.sweeper.SweepOnce(ctx)
			if err != nil {
				return fmt.Errorf("sweeping cache: %w", err)
			}
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to sweep.")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entr%s.\n", removed, plural(removed))
			}
			return nil
		},
	})
	return cmd
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
