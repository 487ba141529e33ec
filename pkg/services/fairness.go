package services

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/models"
)

// FairnessService computes demographic-parity selection rates. The target is
// binarized per row inside the store; no raw rows are transferred.
type FairnessService interface {
	// DemographicParity binarizes targetColumn with `operator threshold`
	// (operator is ">" or "<=") and returns either the overall selection rate
	// (empty sensitiveAttribute) or the parity difference with the per-group
	// table sorted by selection rate descending. Returns (nil, nil) when the
	// table has no rows, on either path.
	DemographicParity(ctx context.Context, table, targetColumn string, threshold float64, operator, sensitiveAttribute string) (*models.FairnessResult, error)
}

type fairnessService struct {
	store  *database.Store
	schema SchemaService
	logger *zap.Logger
}

// NewFairnessService creates a new fairness service.
func NewFairnessService(store *database.Store, schema SchemaService, logger *zap.Logger) FairnessService {
	return &fairnessService{
		store:  store,
		schema: schema,
		logger: logger.Named("fairness"),
	}
}

func (s *fairnessService) DemographicParity(ctx context.Context, table, targetColumn string, threshold float64, operator, sensitiveAttribute string) (*models.FairnessResult, error) {
	if operator != ">" && operator != "<=" {
		return nil, fmt.Errorf("%w: got %q", apperrors.ErrInvalidOperator, operator)
	}

	required := []string{targetColumn}
	if sensitiveAttribute != "" {
		required = append(required, sensitiveAttribute)
	}
	if err := s.schema.RequireColumns(ctx, table, required...); err != nil {
		return nil, err
	}

	target := database.QuoteIdent(targetColumn)
	selected := fmt.Sprintf(`AVG(CASE WHEN %s %s ? THEN 1 ELSE 0 END)`, target, operator)

	if sensitiveAttribute == "" {
		query := fmt.Sprintf(`SELECT %s AS selection_rate FROM %s`, selected, table)

		var rate sql.NullFloat64
		err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
			for rows.Next() {
				if err := rows.Scan(&rate); err != nil {
					return fmt.Errorf("failed to scan selection rate: %w", err)
				}
			}
			return nil
		}, threshold)
		if err != nil {
			return nil, err
		}
		// AVG over zero rows is NULL: no data, not a real rate of 0.
		if !rate.Valid {
			return nil, nil
		}
		return &models.FairnessResult{OverallSelectionRate: &rate.Float64}, nil
	}

	attr := database.QuoteIdent(sensitiveAttribute)
	query := fmt.Sprintf(`
		SELECT
			COALESCE(CAST(%s AS VARCHAR), '%s') AS grp,
			%s AS selection_rate,
			COUNT(*) AS n
		FROM %s
		GROUP BY grp
		ORDER BY selection_rate DESC`,
		attr, missingCategory, selected, table)

	groups := make([]models.GroupStat, 0)
	err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var g models.GroupStat
			if err := rows.Scan(&g.Group, &g.SelectionRate, &g.N); err != nil {
				return fmt.Errorf("failed to scan group stats: %w", err)
			}
			groups = append(groups, g)
		}
		return nil
	}, threshold)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}

	// Rows are sorted by selection rate descending: the parity difference is
	// the first minus the last.
	parity := groups[0].SelectionRate - groups[len(groups)-1].SelectionRate
	return &models.FairnessResult{
		ParityDifference: &parity,
		Groups:           groups,
	}, nil
}
