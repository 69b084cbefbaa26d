package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/corpintel/dbd-cli/internal/config"
)

var (
	genconfigOut       string
	genconfigEffective bool
)

var genconfigCmd = &cobra.Command{
	Use:   "genconfig",
	Short: "Write a starter config.yaml",
	Long:  "Writes the commented default configuration. With --effective, writes the currently loaded configuration (file plus environment plus defaults) instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(genconfigOut); err == nil {
			return eris.Errorf("%s already exists, refusing to overwrite", genconfigOut)
		}

		data := []byte(config.DefaultYAML)
		if genconfigEffective {
			var err error
			if data, err = yaml.Marshal(cfg); err != nil {
				return eris.Wrap(err, "marshal config")
			}
		}
		if err := os.WriteFile(genconfigOut, data, 0o644); err != nil {
			return eris.Wrap(err, "write config")
		}

		zap.L().Info("config written", zap.String("path", genconfigOut))
		return nil
	},
}

func init() {
	genconfigCmd.Flags().StringVar(&genconfigOut, "out", "config.yaml", "output path")
	genconfigCmd.Flags().BoolVar(&genconfigEffective, "effective", false, "write the resolved configuration instead of the commented default")
	rootCmd.AddCommand(genconfigCmd)
}
