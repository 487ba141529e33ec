package services

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
	"github.com/tabstat/tabstat-engine/pkg/database"
)

func newCorrelation(t *testing.T) (CorrelationService, *database.Store) {
	t.Helper()
	store := newTestStore(t)
	return NewCorrelationService(store, newTestSchema(store), zap.NewNop()), store
}

func TestCorrelationLinearRelationship(t *testing.T) {
	ctx := context.Background()
	svc, store := newCorrelation(t)
	execAll(t, store, `
		CREATE TABLE ds_t AS
		SELECT range::DOUBLE AS x, 2 * range::DOUBLE AS y, -range::DOUBLE AS z
		FROM range(100)`)

	matrix, err := svc.Matrix(ctx, "ds_t")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, matrix.Columns)

	assert.InDelta(t, 1.0, matrix.At(0, 1), 1e-9)
	assert.InDelta(t, -1.0, matrix.At(0, 2), 1e-9)
	assert.InDelta(t, -1.0, matrix.At(1, 2), 1e-9)
}

func TestCorrelationSymmetricUnitDiagonal(t *testing.T) {
	ctx := context.Background()
	svc, store := newCorrelation(t)
	execAll(t, store, `
		CREATE TABLE ds_t AS
		SELECT
			range::DOUBLE AS a,
			(range * range)::DOUBLE AS b,
			((range * 7919) % 104729)::DOUBLE AS c
		FROM range(200)`)

	matrix, err := svc.Matrix(ctx, "ds_t")
	require.NoError(t, err)
	n := len(matrix.Columns)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, matrix.At(i, i))
		for j := 0; j < n; j++ {
			assert.Equal(t, matrix.At(i, j), matrix.At(j, i))
			assert.LessOrEqual(t, math.Abs(matrix.At(i, j)), 1.0+1e-9)
		}
	}
}

func TestCorrelationIgnoresCategoricalColumns(t *testing.T) {
	ctx := context.Background()
	svc, store := newCorrelation(t)
	execAll(t, store, `
		CREATE TABLE ds_t AS
		SELECT range::DOUBLE AS x, 3 * range::DOUBLE AS y, 'label' AS c
		FROM range(50)`)

	matrix, err := svc.Matrix(ctx, "ds_t")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, matrix.Columns)
}

func TestCorrelationZeroVarianceColumnIsNaN(t *testing.T) {
	ctx := context.Background()
	svc, store := newCorrelation(t)
	execAll(t, store, `
		CREATE TABLE ds_t AS
		SELECT range::DOUBLE AS x, 5.0 AS flat
		FROM range(50)`)

	matrix, err := svc.Matrix(ctx, "ds_t")
	require.NoError(t, err)

	// The constant column correlates with nothing, but its diagonal is still
	// forced to 1.
	i := 0
	j := 1
	assert.True(t, math.IsNaN(matrix.At(i, j)))
	assert.Equal(t, 1.0, matrix.At(j, j))
}

func TestCorrelationInsufficientColumns(t *testing.T) {
	ctx := context.Background()
	svc, store := newCorrelation(t)
	execAll(t, store, `CREATE TABLE ds_t AS SELECT 1.0 AS only, 'x' AS c`)

	_, err := svc.Matrix(ctx, "ds_t")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientColumns)
}

func TestCorrelationMissingTable(t *testing.T) {
	svc, _ := newCorrelation(t)

	_, err := svc.Matrix(context.Background(), "ds_nope")
	assert.ErrorIs(t, err, apperrors.ErrDatasetNotFound)
}
