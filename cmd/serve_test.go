package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shipment-ingest/internal/model"
	"github.com/sells-group/shipment-ingest/internal/store"
)

type fakeAPIStore struct {
	doc *model.Document
}

func (f *fakeAPIStore) CreateDocument(ctx context.Context, filename string, docType model.DocumentType) (*model.Document, error) {
	return &model.Document{ID: "doc-1", Filename: filename, Type: docType, Status: model.DocStatusPending}, nil
}

func (f *fakeAPIStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	return f.doc, nil
}

func (f *fakeAPIStore) ListDocuments(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error) {
	return nil, nil
}

// fakeProcessor records the state of the context it was handed.
type fakeProcessor struct {
	done   chan struct{}
	ctxErr error
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, doc *model.Document, data []byte) (*model.DocumentSummary, error) {
	f.ctxErr = ctx.Err()
	close(f.done)
	return &model.DocumentSummary{DocumentID: doc.ID}, nil
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestResolvePort_FlagSet(t *testing.T) {
	assert.Equal(t, 9090, resolvePort(9090, 8080))
}

func TestResolvePort_FlagZero(t *testing.T) {
	assert.Equal(t, 8080, resolvePort(0, 8080))
}

func TestBuildRouter_Health(t *testing.T) {
	r := buildRouter(context.Background(), &fakeAPIStore{}, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestBuildRouter_GetDocument_NotFound(t *testing.T) {
	r := buildRouter(context.Background(), &fakeAPIStore{doc: nil}, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/documents/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBuildRouter_Upload_MissingFile(t *testing.T) {
	r := buildRouter(context.Background(), &fakeAPIStore{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "file")
}

func TestBuildRouter_Upload_Accepted(t *testing.T) {
	proc := &fakeProcessor{done: make(chan struct{})}
	r := buildRouter(context.Background(), &fakeAPIStore{}, proc)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, "etd_march.xlsx", []byte("payload")))

	assert.Equal(t, http.StatusAccepted, rr.Code)

	var doc model.Document
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "etd_march.xlsx", doc.Filename)

	select {
	case <-proc.done:
	case <-time.After(time.Second):
		t.Fatal("document was never processed")
	}
}

func TestBuildRouter_Upload_ProcessesAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	proc := &fakeProcessor{done: make(chan struct{})}
	r := buildRouter(ctx, &fakeAPIStore{}, proc)

	// Simulate SIGINT arriving before the pipeline runs.
	cancel()

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, uploadRequest(t, "loads.xlsx", []byte("payload")))
	assert.Equal(t, http.StatusAccepted, rr.Code)

	select {
	case <-proc.done:
	case <-time.After(time.Second):
		t.Fatal("document was never processed")
	}
	assert.NoError(t, proc.ctxErr)
}
