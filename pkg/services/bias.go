package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/models"
)

// topBinsRetained caps the bin-concentration table of a numeric bias result.
const topBinsRetained = 10

// topValuesRetained caps the top-values table of a categorical bias result.
// Minority share and imbalance ratio are computed over this truncated set,
// not the true global minimum; entropy is not truncated.
const topValuesRetained = 20

// BiasService computes per-column data-quality signals with severity
// classification. Numeric and categorical columns get disjoint metric sets.
type BiasService interface {
	// NumericBias computes skew, Tukey outliers, zero/missing shares and
	// uniform-bin concentration for a numeric column. Returns (nil, nil) when
	// the table is empty or the column has no non-null values.
	NumericBias(ctx context.Context, table, column string, bins int) (*models.NumericBiasResult, error)

	// CategoricalBias computes majority/minority shares, imbalance, entropy
	// and effective-K for a categorical column. Returns (nil, nil) when the
	// table is empty.
	CategoricalBias(ctx context.Context, table, column string) (*models.CategoricalBiasResult, error)
}

type biasService struct {
	store  *database.Store
	schema SchemaService
	logger *zap.Logger
}

// NewBiasService creates a new bias metrics service.
func NewBiasService(store *database.Store, schema SchemaService, logger *zap.Logger) BiasService {
	return &biasService{
		store:  store,
		schema: schema,
		logger: logger.Named("bias"),
	}
}

// numericStats is the single-pass aggregate every numeric bias metric derives
// from. Nullable fields are NULL on empty or all-null columns.
type numericStats struct {
	totalRows int64
	nonNull   int64
	mean      sql.NullFloat64
	stddev    sql.NullFloat64
	skewness  sql.NullFloat64
	q1        sql.NullFloat64
	q3        sql.NullFloat64
	min       sql.NullFloat64
	max       sql.NullFloat64
	zeroCount sql.NullInt64
	nullCount sql.NullInt64
}

func (s *biasService) NumericBias(ctx context.Context, table, column string, bins int) (*models.NumericBiasResult, error) {
	if err := s.schema.RequireColumns(ctx, table, column); err != nil {
		return nil, err
	}
	col := database.QuoteIdent(column)

	statsQuery := fmt.Sprintf(`
		SELECT
			COUNT(*) AS total_rows,
			COUNT(%[1]s) AS non_null_count,
			AVG(%[1]s) AS mean_val,
			STDDEV(%[1]s) AS std_val,
			SKEWNESS(%[1]s) AS skew_val,
			PERCENTILE_CONT(0.25) WITHIN GROUP (ORDER BY %[1]s) AS q1,
			PERCENTILE_CONT(0.75) WITHIN GROUP (ORDER BY %[1]s) AS q3,
			MIN(%[1]s) AS min_val,
			MAX(%[1]s) AS max_val,
			SUM(CASE WHEN %[1]s = 0 THEN 1 ELSE 0 END) AS zero_count,
			SUM(CASE WHEN %[1]s IS NULL THEN 1 ELSE 0 END) AS null_count
		FROM %[2]s`,
		col, table)

	var st numericStats
	if err := s.store.QueryRow(ctx, statsQuery,
		&st.totalRows, &st.nonNull, &st.mean, &st.stddev, &st.skewness,
		&st.q1, &st.q3, &st.min, &st.max, &st.zeroCount, &st.nullCount,
	); err != nil {
		return nil, err
	}
	if st.totalRows == 0 || !st.min.Valid || !st.max.Valid {
		return nil, nil
	}

	outlierFrac, err := s.outlierFraction(ctx, table, col, st)
	if err != nil {
		return nil, err
	}

	topBins, maxBinShare, err := s.binConcentration(ctx, table, col, st, bins)
	if err != nil {
		return nil, err
	}

	skew := 0.0
	if st.skewness.Valid {
		skew = st.skewness.Float64
	}

	return &models.NumericBiasResult{
		MaxBinShare:     maxBinShare,
		BinSeverity:     models.BinConcentrationSeverity(maxBinShare),
		Skew:            skew,
		OutlierFrac:     outlierFrac,
		OutlierSeverity: models.OutlierSeverity(outlierFrac),
		ZeroShare:       float64(st.zeroCount.Int64) / float64(st.totalRows),
		MissingShare:    float64(st.nullCount.Int64) / float64(st.totalRows),
		TopBins:         topBins,
	}, nil
}

// outlierFraction applies Tukey's rule. A zero IQR is a degenerate
// distribution, not an outlier-heavy one: the fraction is 0 by definition.
func (s *biasService) outlierFraction(ctx context.Context, table, col string, st numericStats) (float64, error) {
	if !st.q1.Valid || !st.q3.Valid {
		return 0, nil
	}
	iqr := st.q3.Float64 - st.q1.Float64
	if iqr <= 0 || st.nonNull == 0 {
		return 0, nil
	}

	lower := st.q1.Float64 - 1.5*iqr
	upper := st.q3.Float64 + 1.5*iqr
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE %s IS NOT NULL AND (%s < %s OR %s > %s)`,
		table, col, col, sqlFloat(lower), col, sqlFloat(upper))

	var outliers int64
	if err := s.store.QueryRow(ctx, query, &outliers); err != nil {
		return 0, err
	}
	return float64(outliers) / float64(st.nonNull), nil
}

// binConcentration bins the column the same way the histogram does and keeps
// the top bins by share. A constant column occupies a single bin entirely.
func (s *biasService) binConcentration(ctx context.Context, table, col string, st numericStats, bins int) ([]models.BinShare, float64, error) {
	width := (st.max.Float64 - st.min.Float64) / float64(bins)
	if width == 0 {
		bin := fmt.Sprintf("[%.2f, %.2f]", st.min.Float64, st.max.Float64)
		return []models.BinShare{{Bin: bin, Share: 1.0}}, 1.0, nil
	}

	query := fmt.Sprintf(`
		WITH binned AS (
			SELECT
				%[3]s + FLOOR((%[1]s - %[3]s) / %[4]s) * %[4]s AS bin_start,
				COUNT(*) AS count
			FROM %[2]s
			WHERE %[1]s IS NOT NULL
			GROUP BY bin_start
		)
		SELECT bin_start, CAST(count AS DOUBLE) / %[5]d AS share
		FROM binned
		ORDER BY share DESC
		LIMIT %[6]d`,
		col, table, sqlFloat(st.min.Float64), sqlFloat(width), st.nonNull, topBinsRetained)

	topBins := make([]models.BinShare, 0, topBinsRetained)
	maxShare := 0.0
	err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var start, share float64
			if err := rows.Scan(&start, &share); err != nil {
				return fmt.Errorf("failed to scan bin share: %w", err)
			}
			if share > maxShare {
				maxShare = share
			}
			topBins = append(topBins, models.BinShare{
				Bin:   fmt.Sprintf("[%.2f, %.2f)", start, start+width),
				Share: share,
			})
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return topBins, maxShare, nil
}

func (s *biasService) CategoricalBias(ctx context.Context, table, column string) (*models.CategoricalBiasResult, error) {
	if err := s.schema.RequireColumns(ctx, table, column); err != nil {
		return nil, err
	}
	col := database.QuoteIdent(column)

	query := fmt.Sprintf(`
		WITH value_counts AS (
			SELECT
				COALESCE(CAST(%[1]s AS VARCHAR), '<NA>') AS value,
				COUNT(*) AS count
			FROM %[2]s
			GROUP BY %[1]s
		),
		totals AS (
			SELECT
				COUNT(*) AS total_rows,
				SUM(CASE WHEN %[1]s IS NULL THEN 1 ELSE 0 END) AS null_count
			FROM %[2]s
		)
		SELECT
			v.value,
			v.count,
			CAST(v.count AS DOUBLE) / t.total_rows AS share,
			t.total_rows,
			t.null_count
		FROM value_counts v
		CROSS JOIN totals t
		ORDER BY v.count DESC
		LIMIT %[3]d`,
		col, table, topValuesRetained)

	var totalRows, nullCount int64
	top := make([]models.ValueShare, 0, topValuesRetained)
	err := s.store.Query(ctx, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var vs models.ValueShare
			var nulls sql.NullInt64
			if err := rows.Scan(&vs.Value, &vs.Count, &vs.Share, &totalRows, &nulls); err != nil {
				return fmt.Errorf("failed to scan value share: %w", err)
			}
			nullCount = nulls.Int64
			top = append(top, vs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(top) == 0 {
		return nil, nil
	}

	majorityShare := top[0].Share
	minorityShare := top[len(top)-1].Share
	imbalance := math.Inf(1)
	if minorityShare > 0 {
		imbalance = majorityShare / minorityShare
	}

	entropy, observedK, err := s.entropy(ctx, table, col)
	if err != nil {
		return nil, err
	}

	missingShare := 0.0
	if totalRows > 0 {
		missingShare = float64(nullCount) / float64(totalRows)
	}

	return &models.CategoricalBiasResult{
		MajorityLabel:     top[0].Value,
		MajorityShare:     majorityShare,
		MinorityShare:     minorityShare,
		ImbalanceRatio:    imbalance,
		Entropy:           entropy,
		EffectiveK:        math.Exp(entropy),
		ObservedK:         observedK,
		MissingShare:      missingShare,
		MajoritySeverity:  models.MajorityShareSeverity(majorityShare),
		ImbalanceSeverity: models.ImbalanceSeverity(imbalance),
		TopValues:         top,
		Total:             totalRows,
	}, nil
}

// entropy computes natural-log Shannon entropy over ALL observed category
// shares, not just the retained top values. A null group counts as its own
// category here, matching the share denominator, so exp(entropy) can never
// exceed the observed category count.
func (s *biasService) entropy(ctx context.Context, table, col string) (float64, int64, error) {
	query := fmt.Sprintf(`
		WITH value_shares AS (
			SELECT CAST(COUNT(*) AS DOUBLE) / (SELECT COUNT(*) FROM %[2]s) AS p
			FROM %[2]s
			GROUP BY %[1]s
			HAVING p > 0
		)
		SELECT SUM(-p * LN(p)) AS entropy, COUNT(*) AS observed_k
		FROM value_shares`,
		col, table)

	var entropy sql.NullFloat64
	var observedK int64
	if err := s.store.QueryRow(ctx, query, &entropy, &observedK); err != nil {
		return 0, 0, err
	}
	return entropy.Float64, observedK, nil
}
