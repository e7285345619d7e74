package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/shipment-ingest/internal/model"
	"github.com/sells-group/shipment-ingest/internal/store"
)

var (
	documentsStatus string
	documentsLimit  int
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents and their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Store.DatabaseURL == "" {
			return eris.New("SHIPMENT_STORE_DATABASE_URL is required")
		}

		st, err := store.NewPostgres(ctx, cfg.Store, nil)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		docs, err := st.ListDocuments(ctx, store.DocumentFilter{
			Status: model.DocumentStatus(documentsStatus),
			Limit:  documentsLimit,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tFILENAME\tTYPE\tSTATUS\tSHIPMENTS\tUPDATED")
		for _, d := range docs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				d.ID, d.Filename, d.Type, d.Status, d.ShipmentCount,
				d.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	documentsCmd.Flags().StringVar(&documentsStatus, "status", "", "filter by status (pending, processing, processed, error)")
	documentsCmd.Flags().IntVar(&documentsLimit, "limit", 50, "max documents to list")
	rootCmd.AddCommand(documentsCmd)
}
