package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/config"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/services"
)

func newDatasetAPI(t *testing.T) (*http.ServeMux, *database.Store) {
	t.Helper()
	store, err := database.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{}
	cfg.Store.UploadDir = t.TempDir()

	logger := zap.NewNop()
	handler := NewDatasetHandler(
		cfg,
		store,
		services.NewIngestionService(store, logger),
		services.NewSchemaService(store, logger),
		logger,
	)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux, store
}

func uploadFile(t *testing.T, mux *http.ServeMux, filename, content string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestUploadCSV(t *testing.T) {
	mux, _ := newDatasetAPI(t)

	rec, body := uploadFile(t, mux, "loan data.csv", "age,income\n34,51000\n45,72000\n")
	require.Equal(t, http.StatusOK, rec.Code)

	// Spaces in the filename are sanitized into the dataset id.
	assert.Equal(t, "loan_data", body["dataset_id"])
	assert.Equal(t, "ds_loan_data", body["table_name"])
	assert.Equal(t, float64(2), body["n_rows"])
	assert.Equal(t, float64(2), body["n_cols"])
}

func TestUploadRejectsUnsupportedExtension(t *testing.T) {
	mux, _ := newDatasetAPI(t)

	rec, body := uploadFile(t, mux, "data.xlsx", "not a csv")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unsupported_source", body["error"])
}

func TestUploadRejectsMissingFileField(t *testing.T) {
	mux, _ := newDatasetAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewBufferString("plain"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDatasets(t *testing.T) {
	mux, _ := newDatasetAPI(t)

	rec, body := get(t, mux, "/api/datasets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["datasets"])

	_, _ = uploadFile(t, mux, "b.csv", "x\n1\n")
	_, _ = uploadFile(t, mux, "a.csv", "y\n2\n")

	rec, body = get(t, mux, "/api/datasets")
	require.Equal(t, http.StatusOK, rec.Code)
	datasets := body["datasets"].([]any)
	require.Len(t, datasets, 2)
	// Listing is ordered by dataset id, not ingest time.
	assert.Equal(t, "a", datasets[0].(map[string]any)["dataset_id"])
	assert.Equal(t, "b", datasets[1].(map[string]any)["dataset_id"])
}

func TestPreviewEndpoint(t *testing.T) {
	mux, store := newDatasetAPI(t)
	seed(t, store, `CREATE TABLE ds_t AS SELECT range AS n, 'v' || range::VARCHAR AS s FROM range(100)`)

	rec, body := get(t, mux, "/api/datasets/t/preview?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"n", "s"}, body["columns"])
	assert.Equal(t, float64(5), body["rows_returned"])
	assert.Len(t, body["data"].([]any), 5)
}

func TestPreviewLimitBounds(t *testing.T) {
	mux, store := newDatasetAPI(t)
	seed(t, store, `CREATE TABLE ds_t AS SELECT 1 AS n`)

	rec, body := get(t, mux, "/api/datasets/t/preview?limit=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_parameter", body["error"])

	rec, body = get(t, mux, "/api/datasets/t/preview?limit=1000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_parameter", body["error"])
}

func TestSchemaEndpoint(t *testing.T) {
	mux, store := newDatasetAPI(t)
	seed(t, store, `CREATE TABLE ds_t AS SELECT 1 AS n, 'x' AS s`)

	rec, body := get(t, mux, "/api/datasets/t/schema")
	require.Equal(t, http.StatusOK, rec.Code)

	schema := body["schema"].([]any)
	require.Len(t, schema, 2)
	first := schema[0].(map[string]any)
	assert.Equal(t, "n", first["column_name"])
	assert.Equal(t, "numeric", first["column_kind"])
	second := schema[1].(map[string]any)
	assert.Equal(t, "categorical", second["column_kind"])
}

func TestSchemaMissingDataset(t *testing.T) {
	mux, _ := newDatasetAPI(t)

	rec, body := get(t, mux, "/api/datasets/nope/schema")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "dataset_not_found", body["error"])
}
