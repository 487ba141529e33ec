package models

import "time"

// Dataset is one row of the registry: the metadata the store keeps about an
// ingested table. The physical table itself lives beside it as ds_<id>.
type Dataset struct {
	DatasetID    string    `json:"dataset_id"`
	Path         string    `json:"path"`
	NRows        int64     `json:"n_rows"`
	NCols        int       `json:"n_cols"`
	LastIngested time.Time `json:"last_ingested"`
}

// IngestResult reports what a completed ingest materialized. Counts are read
// back from the freshly created table, not from the source file.
type IngestResult struct {
	DatasetID string `json:"dataset_id"`
	TableName string `json:"table_name"`
	Path      string `json:"path"`
	NRows     int64  `json:"n_rows"`
	NCols     int    `json:"n_cols"`
}
