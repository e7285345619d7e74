package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var batchGlob string

var batchCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Ingest several spreadsheets concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		paths := args
		if batchGlob != "" {
			matched, err := filepath.Glob(batchGlob)
			if err != nil {
				return eris.Wrapf(err, "bad glob %q", batchGlob)
			}
			paths = append(paths, matched...)
		}
		sort.Strings(paths)
		if len(paths) == 0 {
			return eris.New("no input files; pass paths or --glob")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summaries, batchErr := env.Service.IngestBatch(ctx, paths)

		var total, processed, failed, failedDocs int
		for _, s := range summaries {
			if s == nil {
				failedDocs++
				continue
			}
			total += s.TotalBundles
			processed += s.Processed
			failed += s.Failed
		}
		zap.L().Info("batch complete",
			zap.Int("documents", len(paths)),
			zap.Int("failed_documents", failedDocs),
			zap.Int("shipments", total),
			zap.Int("processed", processed),
			zap.Int("failed", failed),
		)
		fmt.Printf("%d documents (%d failed), %d shipments (%d persisted, %d failed)\n",
			len(paths), failedDocs, total, processed, failed)
		if batchErr != nil {
			return eris.Wrap(batchErr, "some documents failed")
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchGlob, "glob", "", "glob pattern for input files")
	rootCmd.AddCommand(batchCmd)
}
