package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/models"
)

// DistributionService computes histograms and value counts by push-down
// aggregation. Raw rows are only ever transferred for the bounded display
// sample, never for the counts.
type DistributionService interface {
	// Histogram computes uniform-width bins anchored at the observed minimum,
	// plus an independent random sample of at most sampleSize values. Returns
	// (nil, nil) when the column has no non-null values or is constant.
	Histogram(ctx context.Context, table, column string, bins, sampleSize int) (*models.HistogramResult, error)

	// ValueCounts groups by the column (nulls coalesced to "<NA>") and
	// returns the topK most frequent values.
	ValueCounts(ctx context.Context, table, column string, topK int) ([]models.ValueCount, error)
}

type distributionService struct {
	store  *database.Store
	schema SchemaService
	logger *zap.Logger
}

// NewDistributionService creates a new distribution service.
func NewDistributionService(store *database.Store, schema SchemaService, logger *zap.Logger) DistributionService {
	return &distributionService{
		store:  store,
		schema: schema,
		logger: logger.Named("distribution"),
	}
}

func (s *distributionService) Histogram(ctx context.Context, table, column string, bins, sampleSize int) (*models.HistogramResult, error) {
	if err := s.schema.RequireColumns(ctx, table, column); err != nil {
		return nil, err
	}
	col := database.QuoteIdent(column)

	statsQuery := fmt.Sprintf(
		`SELECT MIN(%s), MAX(%s), COUNT(%s) FROM %s`, col, col, col, table)

	var minVal, maxVal sql.NullFloat64
	var nonNull int64
	if err := s.store.QueryRow(ctx, statsQuery, &minVal, &maxVal, &nonNull); err != nil {
		return nil, err
	}
	if nonNull == 0 || !minVal.Valid || !maxVal.Valid {
		return nil, nil
	}

	width := (maxVal.Float64 - minVal.Float64) / float64(bins)
	if width == 0 {
		// Constant column: no bin width to divide by.
		return nil, nil
	}

	binQuery := fmt.Sprintf(`
		SELECT FLOOR((%s - %s) / %s) AS bin_num, COUNT(*) AS count
		FROM %s
		WHERE %s IS NOT NULL
		GROUP BY bin_num
		ORDER BY bin_num`,
		col, sqlFloat(minVal.Float64), sqlFloat(width), table, col)

	result := &models.HistogramResult{Bins: make([]models.HistogramBin, 0, bins+1)}
	err := s.store.Query(ctx, binQuery, func(rows *sql.Rows) error {
		for rows.Next() {
			var binNum float64
			var count int64
			if err := rows.Scan(&binNum, &count); err != nil {
				return fmt.Errorf("failed to scan histogram bin: %w", err)
			}
			start := minVal.Float64 + binNum*width
			result.Bins = append(result.Bins, models.HistogramBin{
				Start: start,
				End:   start + width,
				Count: count,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	n := int64(sampleSize)
	if nonNull < n {
		n = nonNull
	}
	sampleQuery := fmt.Sprintf(`
		SELECT v FROM (SELECT %s AS v FROM %s WHERE %s IS NOT NULL)
		USING SAMPLE %d ROWS`,
		col, table, col, n)

	result.Sample = make([]float64, 0, n)
	err = s.store.Query(ctx, sampleQuery, func(rows *sql.Rows) error {
		for rows.Next() {
			var v float64
			if err := rows.Scan(&v); err != nil {
				return fmt.Errorf("failed to scan sample value: %w", err)
			}
			result.Sample = append(result.Sample, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *distributionService) ValueCounts(ctx context.Context, table, column string, topK int) ([]models.ValueCount, error) {
	if err := s.schema.RequireColumns(ctx, table, column); err != nil {
		return nil, err
	}
	col := database.QuoteIdent(column)

	query := fmt.Sprintf(`
		SELECT COALESCE(CAST(%s AS VARCHAR), '<NA>') AS value, COUNT(*) AS count
		FROM %s
		GROUP BY %s
		ORDER BY count DESC
		LIMIT %d`,
		col, table, col, topK)

	counts := make([]models.ValueCount, 0, topK)
	err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var vc models.ValueCount
			if err := rows.Scan(&vc.Value, &vc.Count); err != nil {
				return fmt.Errorf("failed to scan value count: %w", err)
			}
			counts = append(counts, vc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// sqlFloat renders a float64 as a SQL literal that round-trips exactly.
func sqlFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
