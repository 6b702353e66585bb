package main

import (
	"bufio"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	batchFile        string
	batchForce       bool
	batchShowMetrics bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [artist-id-or-url ...]",
	Short: "Batch enrich artists from args or a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		identifiers := args
		if batchFile != "" {
			fromFile, err := readIdentifiers(batchFile)
			if err != nil {
				return err
			}
			identifiers = append(identifiers, fromFile...)
		}
		if len(identifiers) == 0 {
			return eris.New("no artist identifiers given (pass args or --file)")
		}

		env, err := initService()
		if err != nil {
			return err
		}

		zap.L().Info("processing batch",
			zap.Int("artists", len(identifiers)),
			zap.Int("concurrency", cfg.Batch.Concurrency),
		)

		records := env.Service.EnrichBatch(ctx, identifiers, batchForce)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return err
		}

		if batchShowMetrics {
			menc := json.NewEncoder(os.Stderr)
			menc.SetIndent("", "  ")
			return menc.Encode(env.Service.Metrics())
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "file with one artist ID or URL per line")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "bypass cached provider results")
	batchCmd.Flags().BoolVar(&batchShowMetrics, "show-metrics", false, "print provider metrics to stderr after the run")
	rootCmd.AddCommand(batchCmd)
}

// readIdentifiers reads one identifier per line, skipping blanks and
// #-comments.
func readIdentifiers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open identifier file")
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "read identifier file")
	}
	return ids, nil
}
