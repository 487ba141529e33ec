package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/models"
)

// SchemaService reads declared table schemas from the store and classifies
// each column as numeric or categorical. Classification happens once per
// schema fetch; the resulting kind tag is what the metric engines dispatch on.
type SchemaService interface {
	// GetSchema returns the declared schema of a table with column kinds
	// attached. Returns ErrDatasetNotFound when the table does not exist.
	GetSchema(ctx context.Context, table string) ([]models.ColumnSchema, error)

	// NumericColumns returns the names of the numeric columns of a table, in
	// schema order.
	NumericColumns(ctx context.Context, table string) ([]string, error)

	// RequireColumns returns ErrColumnNotFound unless every named column
	// exists in the table's schema.
	RequireColumns(ctx context.Context, table string, columns ...string) error

	// Preview returns the first limit rows of a table for display.
	Preview(ctx context.Context, table string, limit int) ([]string, [][]any, error)
}

type schemaService struct {
	store  *database.Store
	logger *zap.Logger
}

// NewSchemaService creates a new schema service.
func NewSchemaService(store *database.Store, logger *zap.Logger) SchemaService {
	return &schemaService{
		store:  store,
		logger: logger.Named("schema"),
	}
}

func (s *schemaService) GetSchema(ctx context.Context, table string) ([]models.ColumnSchema, error) {
	query := fmt.Sprintf(
		`SELECT column_name, column_type FROM (DESCRIBE SELECT * FROM %s)`, table)

	schema := make([]models.ColumnSchema, 0)
	err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var col models.ColumnSchema
			if err := rows.Scan(&col.Name, &col.Type); err != nil {
				return fmt.Errorf("failed to scan schema row: %w", err)
			}
			col.Kind = models.ClassifyColumnType(col.Type)
			schema = append(schema, col)
		}
		return nil
	})
	if err != nil {
		if isMissingTable(err) {
			return nil, fmt.Errorf("%w: table %s", apperrors.ErrDatasetNotFound, table)
		}
		return nil, err
	}
	return schema, nil
}

func (s *schemaService) NumericColumns(ctx context.Context, table string) ([]string, error) {
	schema, err := s.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}
	numeric := make([]string, 0, len(schema))
	for _, col := range schema {
		if col.Kind == models.ColumnKindNumeric {
			numeric = append(numeric, col.Name)
		}
	}
	return numeric, nil
}

func (s *schemaService) RequireColumns(ctx context.Context, table string, columns ...string) error {
	schema, err := s.GetSchema(ctx, table)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(schema))
	for _, col := range schema {
		present[col.Name] = struct{}{}
	}
	for _, name := range columns {
		if _, ok := present[name]; !ok {
			return fmt.Errorf("%w: column %q in table %s", apperrors.ErrColumnNotFound, name, table)
		}
	}
	return nil
}

func (s *schemaService) Preview(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	query := fmt.Sprintf(`SELECT * FROM %s LIMIT %d`, table, limit)

	var columns []string
	data := make([][]any, 0, limit)
	err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
		var err error
		columns, err = rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read result columns: %w", err)
		}
		for rows.Next() {
			values := make([]any, len(columns))
			ptrs := make([]any, len(columns))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return fmt.Errorf("failed to scan preview row: %w", err)
			}
			data = append(data, values)
		}
		return nil
	})
	if err != nil {
		if isMissingTable(err) {
			return nil, nil, fmt.Errorf("%w: table %s", apperrors.ErrDatasetNotFound, table)
		}
		return nil, nil, err
	}
	return columns, data, nil
}

// isMissingTable recognizes DuckDB's catalog error for a table that was never
// ingested. The driver exposes no typed error for it.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "does not exist")
}
