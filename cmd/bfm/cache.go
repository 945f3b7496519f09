package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bfm/internal/historical"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the price history cache",
	}

	cmd.AddCommand(newCacheListCmd(a))
	cmd.AddCommand(newCacheClearCmd(a))

	return cmd
}

func newCacheListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached symbols and their bar counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := historical.NewCache(a.cfg.CacheDB)
			if err != nil {
				return err
			}
			defer cache.Close()

			symbols, err := cache.ListSymbols()
			if err != nil {
				return err
			}
			if len(symbols) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty")
				return nil
			}
			for _, s := range symbols {
				n, err := cache.CachedBarCount(s)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bars\n", s, n)
			}
			return nil
		},
	}
}

func newCacheClearCmd(a *app) *cobra.Command {
	var symbol string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached price history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := historical.NewCache(a.cfg.CacheDB)
			if err != nil {
				return err
			}
			provider := historical.NewDataProvider(nil, cache, historical.ProviderOptions{Logger: a.logger})
			defer provider.Close()

			n, err := provider.ClearCache(symbol)
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			a.logger.Info("cleared cached windows", "symbol", symbol, "windows", n, "db", a.cfg.CacheDB)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "only clear this symbol")
	return cmd
}
