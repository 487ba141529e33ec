package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/config"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/services"
)

// maxUploadBytes bounds a single uploaded source file.
const maxUploadBytes = 512 << 20

// DatasetHandler handles dataset upload, listing, preview and schema.
type DatasetHandler struct {
	cfg       *config.Config
	store     *database.Store
	ingestion services.IngestionService
	schema    services.SchemaService
	logger    *zap.Logger
}

// NewDatasetHandler creates a new DatasetHandler.
func NewDatasetHandler(
	cfg *config.Config,
	store *database.Store,
	ingestion services.IngestionService,
	schema services.SchemaService,
	logger *zap.Logger,
) *DatasetHandler {
	return &DatasetHandler{
		cfg:       cfg,
		store:     store,
		ingestion: ingestion,
		schema:    schema,
		logger:    logger.Named("datasets"),
	}
}

// RegisterRoutes registers the dataset handler's routes on the given mux.
func (h *DatasetHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", h.Upload)
	mux.HandleFunc("GET /api/datasets", h.List)
	mux.HandleFunc("GET /api/datasets/{id}/preview", h.Preview)
	mux.HandleFunc("GET /api/datasets/{id}/schema", h.Schema)
}

// Upload accepts a multipart CSV or Parquet file, saves it to the upload
// directory and ingests it under a dataset id derived from the file name.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()
	logger := h.logger.With(zap.String("request_id", requestID))

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_upload", "file field missing or unreadable")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".csv" && ext != ".parquet" {
		_ = ErrorResponse(w, http.StatusBadRequest, "unsupported_source", "only CSV and Parquet files are supported")
		return
	}

	datasetID := database.SanitizeID(strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)))
	if datasetID == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "empty_dataset_id", "filename missing or invalid")
		return
	}

	destPath := filepath.Join(h.cfg.Store.UploadDir, datasetID+ext)
	if err := saveUpload(file, h.cfg.Store.UploadDir, destPath); err != nil {
		logger.Error("Failed to save upload", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "upload_failed", err.Error())
		return
	}

	result, err := h.ingestion.Ingest(r.Context(), destPath, datasetID)
	if err != nil {
		logger.Error("Ingest failed", zap.String("dataset_id", datasetID), zap.Error(err))
		writeEngineError(w, err)
		return
	}

	logger.Info("Upload ingested",
		zap.String("dataset_id", result.DatasetID),
		zap.Int64("n_rows", result.NRows),
		zap.Int("n_cols", result.NCols))
	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		logger.Error("Failed to encode upload response", zap.Error(err))
	}
}

// List returns every registered dataset.
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.store.ListDatasets(r.Context())
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		writeEngineError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"datasets": datasets}); err != nil {
		h.logger.Error("Failed to encode dataset list", zap.Error(err))
	}
}

// Preview returns the first N rows of a dataset.
func (h *DatasetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	table, ok := tablePath(w, r, "id")
	if !ok {
		return
	}
	limit, err := intParam(r, "limit", 25, 1, 500)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	columns, data, err := h.schema.Preview(r.Context(), table, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	response := map[string]any{
		"columns":       columns,
		"data":          data,
		"rows_returned": len(data),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode preview", zap.Error(err))
	}
}

// Schema returns the declared schema of a dataset with column kinds attached.
func (h *DatasetHandler) Schema(w http.ResponseWriter, r *http.Request) {
	table, ok := tablePath(w, r, "id")
	if !ok {
		return
	}

	schema, err := h.schema.GetSchema(r.Context(), table)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, map[string]any{"schema": schema}); err != nil {
		h.logger.Error("Failed to encode schema", zap.Error(err))
	}
}

// saveUpload streams an uploaded file to disk, creating the directory first.
func saveUpload(src io.Reader, dir, destPath string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write upload file: %w", err)
	}
	return nil
}
