package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/metrics"
	"github.com/tabstat/tabstat-engine/pkg/models"
)

// IngestionService materializes uploaded source files into physical tables.
// It is the only writer in the system. Re-ingesting a dataset id replaces the
// table, never appends to it.
type IngestionService interface {
	// Ingest replaces the physical table backing datasetID with the contents
	// of sourcePath, then upserts the registry row, as one critical section.
	// Row and column counts come from the freshly created table.
	Ingest(ctx context.Context, sourcePath, datasetID string) (*models.IngestResult, error)
}

type ingestionService struct {
	store  *database.Store
	logger *zap.Logger
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(store *database.Store, logger *zap.Logger) IngestionService {
	return &ingestionService{
		store:  store,
		logger: logger.Named("ingestion"),
	}
}

func (s *ingestionService) Ingest(ctx context.Context, sourcePath, datasetID string) (*models.IngestResult, error) {
	table, err := database.TableName(datasetID)
	if err != nil {
		return nil, err
	}

	reader, err := sourceReader(sourcePath)
	if err != nil {
		return nil, err
	}

	result := &models.IngestResult{
		DatasetID: datasetID,
		TableName: table,
		Path:      sourcePath,
	}

	// One critical section: table replace, counts, registry upsert. If the
	// create fails, the upsert never runs and readers keep seeing the
	// previous table/registry pair.
	err = s.store.Exclusive(ctx, func(c database.Conn) error {
		create := fmt.Sprintf(`CREATE OR REPLACE TABLE %s AS SELECT * FROM %s`, table, reader)
		if err := c.Exec(ctx, create); err != nil {
			return fmt.Errorf("failed to materialize %s: %w", table, err)
		}

		countRows := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)
		if err := c.QueryRow(ctx, countRows, &result.NRows); err != nil {
			return fmt.Errorf("failed to count rows of %s: %w", table, err)
		}

		countCols := fmt.Sprintf(`SELECT COUNT(*) FROM (DESCRIBE SELECT * FROM %s)`, table)
		if err := c.QueryRow(ctx, countCols, &result.NCols); err != nil {
			return fmt.Errorf("failed to count columns of %s: %w", table, err)
		}

		return c.RegisterDataset(ctx, datasetID, sourcePath, result.NRows, result.NCols)
	})
	metrics.ObserveIngest(result.NRows, err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ingested dataset",
		zap.String("dataset_id", datasetID),
		zap.String("table", table),
		zap.Int64("n_rows", result.NRows),
		zap.Int("n_cols", result.NCols))

	return result, nil
}

// sourceReader picks the DuckDB table function for a source file by extension.
func sourceReader(sourcePath string) (string, error) {
	switch strings.ToLower(filepath.Ext(sourcePath)) {
	case ".csv":
		return "read_csv_auto(" + database.QuoteLiteral(sourcePath) + ")", nil
	case ".parquet":
		return "read_parquet(" + database.QuoteLiteral(sourcePath) + ")", nil
	default:
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedSource, filepath.Base(sourcePath))
	}
}
