package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lenticularis39/diffkemp/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}
	cmd.PersistentFlags().String("cache-dir", "", "result cache directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "dir",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cacheDir(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := cacheDir(cmd)
			if err != nil {
				return err
			}
			c, err := cache.Open(dir)
			if err != nil {
				return err
			}
			if err := c.DropAll(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s\n", dimColor.Sprint(c.Dir()))
			return nil
		},
	})
	return cmd
}

func cacheDir(cmd *cobra.Command) (string, error) {
	if f := cmd.Flags().Lookup("cache-dir"); f != nil && f.Changed {
		return f.Value.String(), nil
	}
	cfg, err := loadSettings(cmd)
	if err != nil {
		return "", err
	}
	if cfg.CacheDir == "" {
		return "", fmt.Errorf("no cache directory configured")
	}
	return cfg.CacheDir, nil
}
