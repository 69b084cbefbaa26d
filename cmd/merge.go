package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpintel/dbd-cli/internal/merge"
)

var mergeForce bool

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge existing batch files into the final outputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := merge.NewFinalizer(
			cfg.Output.BatchDir,
			cfg.Output.RecordsFile,
			cfg.Output.NotFoundFile,
			mergeForce || cfg.Output.ForceOverwrite,
		).Run()
		if err != nil {
			return err
		}

		zap.L().Info("merge complete",
			zap.Int("record_rows", res.RecordRows),
			zap.Int("not_found_rows", res.NotFoundRows))
		return nil
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeForce, "force", false, "overwrite final outputs without backup")
	rootCmd.AddCommand(mergeCmd)
}
