package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/shipment-ingest/internal/config"
	"github.com/sells-group/shipment-ingest/internal/locate"
	"github.com/sells-group/shipment-ingest/internal/model"
)

// fakeStore records pipeline calls in memory.
type fakeStore struct {
	mu        sync.Mutex
	statuses  []model.DocumentStatus
	persisted []*model.ShipmentBundle
	failLoads map[string]bool
	lastCount int
	lastErr   string
}

func (f *fakeStore) CreateDocument(ctx context.Context, filename string, docType model.DocumentType) (*model.Document, error) {
	return &model.Document{ID: "doc-1", Filename: filename, Type: docType, Status: model.DocStatusPending}, nil
}

func (f *fakeStore) UpdateDocumentStatus(ctx context.Context, docID string, status model.DocumentStatus, shipmentCount int, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.lastCount = shipmentCount
	f.lastErr = errMsg
	return nil
}

func (f *fakeStore) PersistBundle(ctx context.Context, docID string, b *model.ShipmentBundle) model.PersistenceOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted = append(f.persisted, b)
	if f.failLoads[b.LoadNumber] {
		return model.PersistenceOutcome{LoadNumber: b.LoadNumber, Error: "insert failed"}
	}
	return model.PersistenceOutcome{LoadNumber: b.LoadNumber, Success: true, ShipmentID: "ship-" + b.LoadNumber}
}

func testConfig() *config.Config {
	return &config.Config{
		Mapper: config.MapperConfig{ConfidenceThreshold: 0.7, CacheTTLDays: 7},
		Ingest: config.IngestConfig{OrphanPolicy: "discard", MaxConcurrentDocs: 2},
		Review: config.ReviewConfig{
			Cutoff:             0.8,
			MappingPenaltyCap:  0.3,
			LocationPenaltyCap: 0.3,
			ErrorPenalty:       0.05,
			ErrorPenaltyCap:    0.2,
		},
	}
}

func workbookBytes(t *testing.T, grid [][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	sh, err := f.AddSheet("Loads")
	require.NoError(t, err)
	for _, rowCells := range grid {
		r := sh.AddRow()
		for _, v := range rowCells {
			r.AddCell().Value = v
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func testDocument() *model.Document {
	return &model.Document{ID: "doc-1", Filename: "loads.xlsx", Type: model.DocTypeDefault}
}

func TestProcessDocument_HappyPath(t *testing.T) {
	st := &fakeStore{}
	svc := NewService(st, testConfig(), nil, nil, locate.NewResolver(nil))

	data := workbookBytes(t, [][]string{
		{"Weekly loads"},
		{"Load No", "Ship Date", "Ship To Address", "Item No", "Qty", "Weight"},
		{"L-100", "2024-03-01", "PTP", "ITM-1", "10", "100"},
		{"", "", "", "ITM-2", "5", "50"},
		{"L-200", "2024-03-02", "Penang Port", "ITM-9", "1", "75"},
	})

	summary, err := svc.ProcessDocument(context.Background(), testDocument(), data)
	require.NoError(t, err)

	assert.Equal(t, []model.DocumentStatus{model.DocStatusProcessing, model.DocStatusProcessed}, st.statuses)
	assert.Equal(t, 2, summary.TotalBundles)
	assert.Equal(t, 2, summary.Processed)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 2, st.lastCount)

	require.Len(t, st.persisted, 2)
	assert.Equal(t, "L-100", st.persisted[0].LoadNumber)
	require.Len(t, st.persisted[0].Items, 2)
	assert.InDelta(t, 150, st.persisted[0].TotalWeight, 1e-9)
}

func TestProcessDocument_BundleFailureDoesNotAbort(t *testing.T) {
	st := &fakeStore{failLoads: map[string]bool{"L-100": true}}
	svc := NewService(st, testConfig(), nil, nil, locate.NewResolver(nil))

	data := workbookBytes(t, [][]string{
		{"Load No", "Ship Date", "Ship To Address", "Item No", "Qty", "Weight"},
		{"L-100", "2024-03-01", "PTP", "", "", ""},
		{"L-200", "2024-03-02", "Westports", "", "", ""},
	})

	summary, err := svc.ProcessDocument(context.Background(), testDocument(), data)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalBundles)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Errors, "insert failed")
	assert.Equal(t, model.DocStatusProcessed, st.statuses[len(st.statuses)-1])
}

func TestProcessDocument_BadWorkbookMarksError(t *testing.T) {
	st := &fakeStore{}
	svc := NewService(st, testConfig(), nil, nil, locate.NewResolver(nil))

	_, err := svc.ProcessDocument(context.Background(), testDocument(), []byte("garbage"))
	require.Error(t, err)

	require.Len(t, st.statuses, 2)
	assert.Equal(t, model.DocStatusError, st.statuses[1])
	assert.NotEmpty(t, st.lastErr)
}

func TestProcessDocument_HeaderDetectedPastPreamble(t *testing.T) {
	st := &fakeStore{}
	svc := NewService(st, testConfig(), nil, nil, locate.NewResolver(nil))

	data := workbookBytes(t, [][]string{
		{"Company Sdn Bhd"},
		{"Shipment report"},
		{"Load No", "Ship Date", "Ship To Address", "Item No", "Qty", "Weight"},
		{"L-1", "2024-03-01", "PTP", "", "", ""},
	})

	summary, err := svc.ProcessDocument(context.Background(), testDocument(), data)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalBundles)
}

func TestProcessDocument_ScoresBundles(t *testing.T) {
	st := &fakeStore{}
	svc := NewService(st, testConfig(), nil, nil, locate.NewResolver(nil))

	data := workbookBytes(t, [][]string{
		{"Load No", "Ship Date", "Ship To Address", "Item No", "Qty", "Weight"},
		{"L-1", "2024-03-01", "PTP", "", "", ""},
	})

	_, err := svc.ProcessDocument(context.Background(), testDocument(), data)
	require.NoError(t, err)

	require.Len(t, st.persisted, 1)
	b := st.persisted[0]
	assert.Greater(t, b.Confidence, 0.0)
	assert.LessOrEqual(t, b.Confidence, 1.0)
}

func TestIngestBatch_MissingFileFails(t *testing.T) {
	st := &fakeStore{}
	svc := NewService(st, testConfig(), nil, nil, locate.NewResolver(nil))

	summaries, err := svc.IngestBatch(context.Background(), []string{"/nonexistent/a.xlsx"})
	require.Error(t, err)
	require.Len(t, summaries, 1)
	assert.Nil(t, summaries[0])
}

func TestIngestBatch_BadFileDoesNotAbortSiblings(t *testing.T) {
	st := &fakeStore{}
	svc := NewService(st, testConfig(), nil, nil, locate.NewResolver(nil))

	good := filepath.Join(t.TempDir(), "loads.xlsx")
	data := workbookBytes(t, [][]string{
		{"Load No", "Ship Date", "Ship To Address", "Item No", "Qty", "Weight"},
		{"L-100", "2024-03-01", "PTP", "ITM-1", "10", "100"},
	})
	require.NoError(t, os.WriteFile(good, data, 0o644))

	summaries, err := svc.IngestBatch(context.Background(),
		[]string{good, "/nonexistent/b.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/b.xlsx")

	require.Len(t, summaries, 2)
	require.NotNil(t, summaries[0])
	assert.Nil(t, summaries[1])
	assert.Equal(t, 1, summaries[0].Processed)

	require.Len(t, st.persisted, 1)
	assert.Equal(t, "L-100", st.persisted[0].LoadNumber)
	assert.Equal(t, model.DocStatusProcessed, st.statuses[len(st.statuses)-1])
}
