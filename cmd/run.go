package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/browser"
	"github.com/corpintel/dbd-cli/internal/runner"
	"github.com/corpintel/dbd-cli/internal/store"
)

var (
	runInput     string
	runColumn    string
	runRegColumn string
	runSheet     string
	runNoFilter  bool
	runOutput    string
	runNotFound  string
	runResume    bool
	runDryRun    bool
	runSkipMerge bool
	runForce     bool
	runVisible   bool
	runDebug     bool
	runNoRetry   bool

	runWorkers    int
	runBatchSize  int
	runStart      int
	runLimit      int
	runMaxRetries int
	runMaxPages   int
	runThreshold  float64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Resolve and extract financials for every company in the roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyRunFlags(cmd)

		cache, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer cache.Close()

		factory, err := browser.NewChromeFactory(browser.Config{
			Headless:     cfg.Browser.Headless,
			Timeout:      time.Duration(cfg.Browser.TimeoutSecs) * time.Second,
			PageLoadWait: time.Duration(cfg.Browser.PageLoadWait) * time.Second,
		})
		if err != nil {
			return eris.Wrap(err, "init browser")
		}
		defer factory.Close()

		r := runner.New(cfg, factory, cache)
		err = r.Run(ctx, runner.Options{
			Resume:    runResume,
			DryRun:    runDryRun,
			SkipMerge: runSkipMerge,
		})
		if err != nil {
			return err
		}

		zap.L().Info("run complete")
		return nil
	},
}

// applyRunFlags layers explicitly-set flags over the loaded configuration.
func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input.File = runInput
	}
	if flags.Changed("column") {
		cfg.Input.CompanyColumn = runColumn
	}
	if flags.Changed("reg-column") {
		cfg.Input.RegColumn = runRegColumn
	}
	if flags.Changed("sheet") {
		cfg.Input.Sheet = runSheet
	}
	if runNoFilter {
		cfg.Input.FilterThai = false
	}
	if flags.Changed("output") {
		cfg.Output.RecordsFile = runOutput
	}
	if flags.Changed("not-found-output") {
		cfg.Output.NotFoundFile = runNotFound
	}
	if flags.Changed("workers") {
		cfg.Processing.Workers = runWorkers
	}
	if flags.Changed("batch-size") {
		cfg.Processing.BatchSize = runBatchSize
	}
	if flags.Changed("start") {
		cfg.Processing.StartIndex = runStart
	}
	if flags.Changed("limit") {
		cfg.Processing.Limit = runLimit
	}
	if flags.Changed("max-retries") {
		cfg.Retry.MaxRetries = runMaxRetries
	}
	if flags.Changed("max-search-pages") {
		cfg.Search.MaxPages = runMaxPages
	}
	if flags.Changed("similarity-threshold") {
		cfg.Search.SimilarityThreshold = runThreshold
	}
	if runNoRetry {
		cfg.Retry.MaxRetries = 1
	}
	if runVisible {
		cfg.Browser.Headless = false
	}
	if runDebug {
		cfg.Debug.Enabled = true
	}
	if runForce {
		cfg.Output.ForceOverwrite = true
	}
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "roster file (csv, xlsx, or txt)")
	runCmd.Flags().StringVar(&runColumn, "column", "", "company name column")
	runCmd.Flags().StringVar(&runRegColumn, "reg-column", "", "known registration number column")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "xlsx sheet name")
	runCmd.Flags().BoolVar(&runNoFilter, "no-filter", false, "keep names without a Thai legal form")
	runCmd.Flags().StringVar(&runOutput, "output", "", "final financial records file")
	runCmd.Flags().StringVar(&runNotFound, "not-found-output", "", "final not-found file")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "keep existing batch files and skip checkpointed companies")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "plan the run without launching a browser")
	runCmd.Flags().BoolVar(&runSkipMerge, "skip-merge", false, "leave batch files unmerged")
	runCmd.Flags().BoolVar(&runForce, "force", false, "overwrite final outputs without backup")
	runCmd.Flags().BoolVar(&runVisible, "visible", false, "run the browser with a visible window")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "capture debug screenshots for failed companies")
	runCmd.Flags().BoolVar(&runNoRetry, "no-retry", false, "single extraction attempt per company")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "parallel workers, each with its own browser")
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "companies per checkpoint batch")
	runCmd.Flags().IntVar(&runStart, "start", 0, "skip the first N roster rows")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most N companies")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", 0, "extraction attempt budget per company")
	runCmd.Flags().IntVar(&runMaxPages, "max-search-pages", 0, "result pages scanned per search term")
	runCmd.Flags().Float64Var(&runThreshold, "similarity-threshold", 0, "minimum similarity for a fallback match")
	rootCmd.AddCommand(runCmd)
}
