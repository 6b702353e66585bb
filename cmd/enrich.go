package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var enrichForce bool

var enrichCmd = &cobra.Command{
	Use:   "enrich <artist-id-or-url>",
	Short: "Enrich a single artist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initService()
		if err != nil {
			return err
		}

		rec, err := env.Service.Enrich(cmd.Context(), args[0], enrichForce)
		if err != nil {
			return err
		}

		zap.L().Info("enrichment complete",
			zap.String("artist", rec.Artist.ID),
			zap.String("run_id", rec.RunID),
			zap.Int("notes", len(rec.Notes)),
		)

		// Print record JSON to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichForce, "force", false, "bypass cached provider results")
	rootCmd.AddCommand(enrichCmd)
}
