package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestVerbose bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.xlsx>",
	Short: "Ingest one spreadsheet into the shipment store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Service.IngestFile(ctx, args[0])
		if err != nil {
			return err
		}

		if !ingestVerbose {
			summary.Outcomes = nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			zap.L().Warn("encode summary", zap.Error(err))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestVerbose, "verbose", false, "include per-shipment outcomes in output")
	rootCmd.AddCommand(ingestCmd)
}
