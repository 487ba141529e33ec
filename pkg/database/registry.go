package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabstat/tabstat-engine/pkg/models"
)

// The registry is one metadata table beside the dataset tables. It maps a
// dataset id to its physical table's provenance and shape.
const createDatasetsTable = `
	CREATE TABLE IF NOT EXISTS datasets (
		dataset_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		n_rows BIGINT,
		n_cols INTEGER,
		last_ingested TIMESTAMP DEFAULT now()
	)`

const upsertDataset = `
	INSERT INTO datasets (dataset_id, path, n_rows, n_cols, last_ingested)
	VALUES (?, ?, ?, ?, now())
	ON CONFLICT (dataset_id) DO UPDATE SET
		path = excluded.path,
		n_rows = excluded.n_rows,
		n_cols = excluded.n_cols,
		last_ingested = now()`

const listDatasets = `
	SELECT dataset_id, path, n_rows, n_cols, last_ingested
	FROM datasets
	ORDER BY dataset_id`

// initRegistry creates the registry table if it does not exist yet.
func (s *Store) initRegistry(ctx context.Context) error {
	if err := s.Exec(ctx, createDatasetsTable); err != nil {
		return fmt.Errorf("failed to initialize dataset registry: %w", err)
	}
	return nil
}

// RegisterDataset upserts the registry row for a dataset. Ingest calls this on
// the Conn of its Exclusive section so the table replace and the upsert are
// one critical section.
func (c Conn) RegisterDataset(ctx context.Context, datasetID, path string, nRows int64, nCols int) error {
	if err := c.Exec(ctx, upsertDataset, datasetID, path, nRows, nCols); err != nil {
		return fmt.Errorf("failed to register dataset %q: %w", datasetID, err)
	}
	return nil
}

// ListDatasets returns every registry row ordered by dataset id.
func (s *Store) ListDatasets(ctx context.Context) ([]models.Dataset, error) {
	datasets := make([]models.Dataset, 0)
	err := s.Query(ctx, listDatasets, func(rows *sql.Rows) error {
		for rows.Next() {
			var d models.Dataset
			if err := rows.Scan(&d.DatasetID, &d.Path, &d.NRows, &d.NCols, &d.LastIngested); err != nil {
				return fmt.Errorf("failed to scan dataset row: %w", err)
			}
			datasets = append(datasets, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return datasets, nil
}
