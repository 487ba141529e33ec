package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
	"github.com/tabstat/tabstat-engine/pkg/models"
)

func TestGetSchemaClassifiesColumns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	execAll(t, store, `
		CREATE TABLE ds_people AS
		SELECT 30 AS age, 'engineer' AS job, 1.5 AS score, TRUE AS active`)

	schema, err := newTestSchema(store).GetSchema(ctx, "ds_people")
	require.NoError(t, err)
	require.Len(t, schema, 4)

	kinds := make(map[string]models.ColumnKind)
	for _, col := range schema {
		kinds[col.Name] = col.Kind
	}
	assert.Equal(t, models.ColumnKindNumeric, kinds["age"])
	assert.Equal(t, models.ColumnKindCategorical, kinds["job"])
	assert.Equal(t, models.ColumnKindNumeric, kinds["score"])
	assert.Equal(t, models.ColumnKindCategorical, kinds["active"])
}

func TestGetSchemaMissingTable(t *testing.T) {
	store := newTestStore(t)

	_, err := newTestSchema(store).GetSchema(context.Background(), "ds_nope")
	assert.ErrorIs(t, err, apperrors.ErrDatasetNotFound)
}

func TestNumericColumnsPreservesSchemaOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	execAll(t, store, `
		CREATE TABLE ds_t AS
		SELECT 1 AS b, 'x' AS name, 2.0 AS a`)

	numeric, err := newTestSchema(store).NumericColumns(ctx, "ds_t")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, numeric)
}

func TestRequireColumns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	execAll(t, store, `CREATE TABLE ds_t AS SELECT 1 AS a, 2 AS b`)

	schema := newTestSchema(store)
	require.NoError(t, schema.RequireColumns(ctx, "ds_t", "a", "b"))

	err := schema.RequireColumns(ctx, "ds_t", "a", "missing")
	assert.ErrorIs(t, err, apperrors.ErrColumnNotFound)
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	execAll(t, store, `CREATE TABLE ds_t AS SELECT * FROM range(100)`)

	columns, rows, err := newTestSchema(store).Preview(ctx, "ds_t", 25)
	require.NoError(t, err)
	assert.Equal(t, []string{"range"}, columns)
	assert.Len(t, rows, 25)
}
