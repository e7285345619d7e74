package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shipment-ingest/internal/model"
	"github.com/sells-group/shipment-ingest/internal/store"
)

var servePort int

// maxUploadBytes caps spreadsheet uploads at 32 MiB.
const maxUploadBytes = 32 << 20

// documentStore is the subset of the postgres store the API touches.
type documentStore interface {
	CreateDocument(ctx context.Context, filename string, docType model.DocumentType) (*model.Document, error)
	GetDocument(ctx context.Context, docID string) (*model.Document, error)
	ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error)
}

// documentProcessor runs the ingestion pipeline for an uploaded document.
type documentProcessor interface {
	ProcessDocument(ctx context.Context, doc *model.Document, data []byte) (*model.DocumentSummary, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document status and upload API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		r := buildRouter(ctx, env.Store, env.Service)
		port := resolvePort(servePort, cfg.Server.Port)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func buildRouter(ctx context.Context, st documentStore, proc documentProcessor) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/documents", func(w http.ResponseWriter, req *http.Request) {
		limit := 50
		if s := req.URL.Query().Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				limit = n
			}
		}
		docs, err := st.ListDocuments(req.Context(), store.DocumentFilter{
			Status: model.DocumentStatus(req.URL.Query().Get("status")),
			Limit:  limit,
		})
		if err != nil {
			zap.L().Error("list documents", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	})

	r.Get("/documents/{id}", func(w http.ResponseWriter, req *http.Request) {
		doc, err := st.GetDocument(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			zap.L().Error("get document", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if doc == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	})

	r.Post("/documents", func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxUploadBytes)
		file, header, err := req.FormFile("file")
		if err != nil {
			http.Error(w, `{"error":"multipart field 'file' is required"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, `{"error":"read upload"}`, http.StatusBadRequest)
			return
		}

		doc, err := st.CreateDocument(req.Context(), header.Filename,
			model.DocumentTypeFromFilename(header.Filename))
		if err != nil {
			zap.L().Error("create document", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		// Process asynchronously; the client polls GET /documents/{id}.
		// Detached from the server context so an in-flight document
		// finishes instead of sticking in processing on shutdown.
		go func() {
			if _, err := proc.ProcessDocument(context.WithoutCancel(ctx), doc, data); err != nil {
				zap.L().Error("async document processing failed",
					zap.String("document_id", doc.ID),
					zap.Error(err),
				)
			}
		}()

		writeJSON(w, http.StatusAccepted, doc)
	})

	return r
}

func resolvePort(flag, cfgPort int) int {
	if flag != 0 {
		return flag
	}
	return cfgPort
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
