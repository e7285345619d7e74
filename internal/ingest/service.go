// Package ingest orchestrates the document pipeline: extraction, header
// mapping, row reconstruction, scoring, and persistence.
package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/shipment-ingest/internal/config"
	"github.com/sells-group/shipment-ingest/internal/extract"
	"github.com/sells-group/shipment-ingest/internal/locate"
	"github.com/sells-group/shipment-ingest/internal/mapper"
	"github.com/sells-group/shipment-ingest/internal/model"
	"github.com/sells-group/shipment-ingest/internal/reconstruct"
	"github.com/sells-group/shipment-ingest/pkg/inference"
)

// Store is the persistence surface the service depends on.
type Store interface {
	CreateDocument(ctx context.Context, filename string, docType model.DocumentType) (*model.Document, error)
	UpdateDocumentStatus(ctx context.Context, docID string, status model.DocumentStatus, shipmentCount int, errMsg string) error
	PersistBundle(ctx context.Context, docID string, b *model.ShipmentBundle) model.PersistenceOutcome
}

// Service runs the ingestion pipeline for uploaded spreadsheets. Documents
// may process concurrently; within one document, bundles persist in sheet
// order.
type Service struct {
	store    Store
	cfg      *config.Config
	infer    inference.Client
	cache    mapper.CacheStore
	resolver *locate.Resolver
}

// NewService wires the pipeline. infer and cache may be nil, which disables
// the inference fallback for unknown headers.
func NewService(store Store, cfg *config.Config, infer inference.Client, cache mapper.CacheStore, resolver *locate.Resolver) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		infer:    infer,
		cache:    cache,
		resolver: resolver,
	}
}

// IngestFile reads one spreadsheet from disk, registers it as a document,
// and processes it to completion.
func (s *Service) IngestFile(ctx context.Context, path string) (*model.DocumentSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read file %s", path)
	}

	filename := filepath.Base(path)
	doc, err := s.store.CreateDocument(ctx, filename, model.DocumentTypeFromFilename(filename))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create document")
	}

	return s.ProcessDocument(ctx, doc, data)
}

// IngestBatch processes several files with bounded concurrency. Each file
// fails or succeeds independently: a bad file never cancels its siblings,
// and the summaries of completed documents survive. The returned error
// joins every per-file failure; summaries[i] is nil for failed files.
func (s *Service) IngestBatch(ctx context.Context, paths []string) ([]*model.DocumentSummary, error) {
	limit := s.cfg.Ingest.MaxConcurrentDocs
	if limit <= 0 {
		limit = 1
	}

	summaries := make([]*model.DocumentSummary, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			summary, err := s.IngestFile(ctx, path)
			if err != nil {
				zap.L().Error("ingest: document failed",
					zap.String("path", path), zap.Error(err))
				errs[i] = err
				return nil
			}
			summaries[i] = summary
			return nil
		})
	}

	_ = g.Wait() // goroutines record errors in errs, never return them

	return summaries, errors.Join(errs...)
}

// ProcessDocument runs the full pipeline over spreadsheet bytes. The
// document transitions pending -> processing -> processed or error; bundle
// failures are recorded in the summary, not escalated.
func (s *Service) ProcessDocument(ctx context.Context, doc *model.Document, data []byte) (*model.DocumentSummary, error) {
	log := zap.L().With(
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.String("doc_type", string(doc.Type)),
	)

	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, model.DocStatusProcessing, 0, ""); err != nil {
		return nil, eris.Wrap(err, "ingest: mark processing")
	}

	summary, err := s.processSheets(ctx, doc, data, log)
	if err != nil {
		if updErr := s.store.UpdateDocumentStatus(ctx, doc.ID, model.DocStatusError, 0, err.Error()); updErr != nil {
			log.Error("ingest: mark error failed", zap.Error(updErr))
		}
		return nil, err
	}

	if err := s.store.UpdateDocumentStatus(ctx, doc.ID, model.DocStatusProcessed, summary.Processed, ""); err != nil {
		return nil, eris.Wrap(err, "ingest: mark processed")
	}

	log.Info("ingest: document processed",
		zap.Int("total_bundles", summary.TotalBundles),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (s *Service) processSheets(ctx context.Context, doc *model.Document, data []byte, log *zap.Logger) (*model.DocumentSummary, error) {
	sheets, err := extract.ReadWorkbook(data)
	if err != nil {
		return nil, err
	}

	m := mapper.New(doc.Type, s.cfg.Mapper, s.infer, s.cache)
	summary := &model.DocumentSummary{DocumentID: doc.ID}

	for _, sheet := range sheets {
		headerIdx := extract.DetectHeaderRow(sheet.Rows, s.cfg.Ingest.DefaultHeaderRow)
		if headerIdx >= len(sheet.Rows)-1 {
			log.Warn("ingest: sheet has no data rows", zap.String("sheet", sheet.Name))
			continue
		}

		mappings := m.MapHeaders(ctx, sheet.Rows[headerIdx])

		classifier := reconstruct.NewClassifier(mappings, s.resolver,
			reconstruct.OrphanPolicy(s.cfg.Ingest.OrphanPolicy))
		acc := classifier.Fold(ctx, sheet.Rows[headerIdx+1:])
		reconstruct.ScoreAll(acc, mappings, s.cfg.Review)

		summary.ReviewNotes = append(summary.ReviewNotes, acc.ReviewNotes...)

		// One bundle at a time; the store serializes shared entities like
		// addresses and each bundle commits or rolls back on its own.
		for _, b := range acc.Finished {
			outcome := s.store.PersistBundle(ctx, doc.ID, b)
			summary.Record(outcome)
		}

		log.Info("ingest: sheet done",
			zap.String("sheet", sheet.Name),
			zap.Int("header_row", headerIdx+1),
			zap.Int("bundles", len(acc.Finished)),
		)
	}

	return summary, nil
}
