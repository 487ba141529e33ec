package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/models"
)

// psiFlagThreshold is the conventional "significant drift" cutoff.
const psiFlagThreshold = 0.2

// missingCategory stands in for NULL in categorical PSI: missing values are a
// category of their own, not dropped.
const missingCategory = "NA"

// DriftService compares a reference and a current dataset column by column
// using the Population Stability Index. Only the selected columns are ever
// fetched, never whole tables.
type DriftService interface {
	// ComputeDriftTable computes PSI for the given columns (nil defaults to
	// the intersection of both schemas) and returns rows sorted by PSI
	// descending, undefined PSI last. A column is treated as numeric only if
	// both sides declare a numeric type.
	ComputeDriftTable(ctx context.Context, refTable, curTable string, columns []string, bins int) ([]models.PsiRow, error)
}

type driftService struct {
	store  *database.Store
	schema SchemaService
	logger *zap.Logger
}

// NewDriftService creates a new drift service.
func NewDriftService(store *database.Store, schema SchemaService, logger *zap.Logger) DriftService {
	return &driftService{
		store:  store,
		schema: schema,
		logger: logger.Named("drift"),
	}
}

func (s *driftService) ComputeDriftTable(ctx context.Context, refTable, curTable string, columns []string, bins int) ([]models.PsiRow, error) {
	refKinds, refOrder, err := s.columnKinds(ctx, refTable)
	if err != nil {
		return nil, err
	}
	curKinds, _, err := s.columnKinds(ctx, curTable)
	if err != nil {
		return nil, err
	}

	if columns == nil {
		for _, name := range refOrder {
			if _, ok := curKinds[name]; ok {
				columns = append(columns, name)
			}
		}
	} else {
		for _, name := range columns {
			if _, ok := refKinds[name]; !ok {
				return nil, fmt.Errorf("%w: column %q in table %s", apperrors.ErrColumnNotFound, name, refTable)
			}
			if _, ok := curKinds[name]; !ok {
				return nil, fmt.Errorf("%w: column %q in table %s", apperrors.ErrColumnNotFound, name, curTable)
			}
		}
	}
	if len(columns) == 0 {
		return nil, apperrors.ErrNoSharedColumns
	}

	results := make([]models.PsiRow, 0, len(columns))
	for _, name := range columns {
		row, err := s.columnPSI(ctx, refTable, curTable, name, refKinds[name], curKinds[name], bins)
		if err != nil {
			return nil, err
		}
		results = append(results, row)
	}

	// Undefined PSI sorts below every defined value via a sentinel.
	sortKey := func(r models.PsiRow) float64 {
		if r.PSI == nil {
			return -1
		}
		return *r.PSI
	}
	sort.SliceStable(results, func(i, j int) bool {
		return sortKey(results[i]) > sortKey(results[j])
	})

	return results, nil
}

// columnKinds fetches a table's schema once and returns the kind per column
// plus the schema column order.
func (s *driftService) columnKinds(ctx context.Context, table string) (map[string]models.ColumnKind, []string, error) {
	schema, err := s.schema.GetSchema(ctx, table)
	if err != nil {
		return nil, nil, err
	}
	kinds := make(map[string]models.ColumnKind, len(schema))
	order := make([]string, 0, len(schema))
	for _, col := range schema {
		kinds[col.Name] = col.Kind
		order = append(order, col.Name)
	}
	return kinds, order, nil
}

// columnPSI computes one drift row. The column counts as numeric only when
// both sides agree; otherwise both sides are compared as categories.
func (s *driftService) columnPSI(ctx context.Context, refTable, curTable, column string, refKind, curKind models.ColumnKind, bins int) (models.PsiRow, error) {
	row := models.PsiRow{Column: column}

	if refKind == models.ColumnKindNumeric && curKind == models.ColumnKindNumeric {
		row.Kind = models.ColumnKindNumeric

		ref, err := s.fetchNumeric(ctx, refTable, column)
		if err != nil {
			return row, err
		}
		cur, err := s.fetchNumeric(ctx, curTable, column)
		if err != nil {
			return row, err
		}
		row.RefN = int64(len(ref))
		row.CurN = int64(len(cur))

		if psi, ok := psiNumeric(ref, cur, bins); ok {
			row.PSI = &psi
		}
	} else {
		row.Kind = models.ColumnKindCategorical

		ref, refN, err := s.fetchCategorical(ctx, refTable, column)
		if err != nil {
			return row, err
		}
		cur, curN, err := s.fetchCategorical(ctx, curTable, column)
		if err != nil {
			return row, err
		}
		row.RefN = refN
		row.CurN = curN

		if psi, ok := psiCategorical(ref, cur); ok {
			row.PSI = &psi
		}
	}

	row.Flagged = row.PSI != nil && *row.PSI > psiFlagThreshold
	return row, nil
}

// fetchNumeric pulls one column's non-null values as floats.
func (s *driftService) fetchNumeric(ctx context.Context, table, column string) ([]float64, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, database.QuoteIdent(column), table)

	values := make([]float64, 0)
	err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var v sql.NullFloat64
			if err := rows.Scan(&v); err != nil {
				return fmt.Errorf("failed to scan numeric value: %w", err)
			}
			if v.Valid {
				values = append(values, v.Float64)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// fetchCategorical pulls one column as strings, mapping NULL to the missing
// category. The second return is the non-null count.
func (s *driftService) fetchCategorical(ctx context.Context, table, column string) ([]string, int64, error) {
	query := fmt.Sprintf(`SELECT CAST(%s AS VARCHAR) FROM %s`, database.QuoteIdent(column), table)

	values := make([]string, 0)
	var nonNull int64
	err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var v sql.NullString
			if err := rows.Scan(&v); err != nil {
				return fmt.Errorf("failed to scan categorical value: %w", err)
			}
			if v.Valid {
				values = append(values, v.String)
				nonNull++
			} else {
				values = append(values, missingCategory)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return values, nonNull, nil
}
