package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/store"
)

var (
	cacheListLimit int
	cachePruneDays int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the resolution cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached resolutions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cache, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer cache.Close()

		entries, err := cache.List(ctx, cacheListLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tREG\tMATCH\tSTRATEGY\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.Name, e.RegistrationID, e.Match.String(), e.Strategy,
				e.UpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cache entries older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cache, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer cache.Close()

		cutoff := time.Now().AddDate(0, 0, -cachePruneDays)
		removed, err := cache.Prune(ctx, cutoff)
		if err != nil {
			return err
		}

		zap.L().Info("cache pruned",
			zap.Int64("removed", removed),
			zap.Time("cutoff", cutoff))
		return nil
	},
}

func init() {
	cacheListCmd.Flags().IntVar(&cacheListLimit, "limit", 50, "maximum entries to list")
	cachePruneCmd.Flags().IntVar(&cachePruneDays, "older-than", 90, "retention window in days")
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
