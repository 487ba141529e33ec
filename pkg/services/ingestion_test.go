package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestCSV(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestionService(store, zap.NewNop())

	path := writeCSV(t, "loans.csv", "age,income\n34,51000\n45,72000\n29,48000\n")

	result, err := svc.Ingest(ctx, path, "loans")
	require.NoError(t, err)
	assert.Equal(t, "ds_loans", result.TableName)
	assert.Equal(t, int64(3), result.NRows)
	assert.Equal(t, 2, result.NCols)

	datasets, err := store.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "loans", datasets[0].DatasetID)
	assert.Equal(t, int64(3), datasets[0].NRows)
}

func TestReingestReplacesTable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestionService(store, zap.NewNop())

	first := writeCSV(t, "v1.csv", "a,b\n1,2\n3,4\n")
	_, err := svc.Ingest(ctx, first, "ds1")
	require.NoError(t, err)

	second := writeCSV(t, "v2.csv", "a,b,c\n9,9,9\n")
	result, err := svc.Ingest(ctx, second, "ds1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.NRows)
	assert.Equal(t, 3, result.NCols)

	// Old rows are gone: the table was replaced, not appended to.
	var count int64
	require.NoError(t, store.QueryRow(ctx, `SELECT COUNT(*) FROM ds_ds1`, &count))
	assert.Equal(t, int64(1), count)

	var a int64
	require.NoError(t, store.QueryRow(ctx, `SELECT a FROM ds_ds1`, &a))
	assert.Equal(t, int64(9), a)

	datasets, err := store.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, int64(1), datasets[0].NRows)
	assert.Equal(t, 3, datasets[0].NCols)
	assert.Equal(t, second, datasets[0].Path)
}

func TestIngestUnsupportedExtension(t *testing.T) {
	store := newTestStore(t)
	svc := NewIngestionService(store, zap.NewNop())

	_, err := svc.Ingest(context.Background(), "data.xlsx", "x")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedSource)
}

func TestIngestEmptyDatasetID(t *testing.T) {
	store := newTestStore(t)
	svc := NewIngestionService(store, zap.NewNop())

	_, err := svc.Ingest(context.Background(), "data.csv", "")
	assert.ErrorIs(t, err, apperrors.ErrEmptyDatasetID)
}

func TestIngestFailureLeavesRegistryUntouched(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewIngestionService(store, zap.NewNop())

	good := writeCSV(t, "good.csv", "a\n1\n")
	_, err := svc.Ingest(ctx, good, "ds1")
	require.NoError(t, err)

	// A missing source file fails the create step; the registry row must
	// keep describing the previous ingest.
	_, err = svc.Ingest(ctx, filepath.Join(t.TempDir(), "missing.csv"), "ds1")
	require.Error(t, err)

	datasets, err := store.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, good, datasets[0].Path)
}
