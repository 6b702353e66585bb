package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var initOverwrite bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.yaml with the current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		const path = "config.yaml"

		if !initOverwrite {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("%s already exists (use --overwrite)", path)
			}
		}

		// cfg carries the defaults plus whatever the environment overrode;
		// credentials stay in the environment, not in the file.
		out := *cfg
		out.Listeners.Key = ""
		out.Catalog.Token = ""

		data, err := yaml.Marshal(&out)
		if err != nil {
			return eris.Wrap(err, "marshal config")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrap(err, "write config file")
		}

		zap.L().Info("config written", zap.String("path", path))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initOverwrite, "overwrite", false, "overwrite an existing config.yaml")
	rootCmd.AddCommand(initCmd)
}
