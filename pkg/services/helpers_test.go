package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/database"
)

// newTestStore opens an in-memory DuckDB store for a test.
func newTestStore(t *testing.T) *database.Store {
	t.Helper()
	store, err := database.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// execAll runs DDL/DML statements against the test store.
func execAll(t *testing.T, store *database.Store, stmts ...string) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range stmts {
		require.NoError(t, store.Exec(ctx, stmt))
	}
}

// newTestSchema wires a schema service over the test store.
func newTestSchema(store *database.Store) SchemaService {
	return NewSchemaService(store, zap.NewNop())
}
