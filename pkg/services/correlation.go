package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/apperrors"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/models"
)

// CorrelationService reconstructs a full Pearson correlation matrix from one
// aggregate query. Each unordered pair is computed exactly once inside the
// store; no per-row data ever reaches this process.
type CorrelationService interface {
	// Matrix computes the symmetric correlation matrix over the numeric
	// column set. Returns ErrInsufficientColumns with fewer than 2 numeric
	// columns. Off-diagonal entries the store cannot define (zero variance)
	// come back as NaN; the diagonal is forced to 1.0.
	Matrix(ctx context.Context, table string) (*models.CorrelationMatrix, error)
}

type correlationService struct {
	store  *database.Store
	schema SchemaService
	logger *zap.Logger
}

// NewCorrelationService creates a new correlation service.
func NewCorrelationService(store *database.Store, schema SchemaService, logger *zap.Logger) CorrelationService {
	return &correlationService{
		store:  store,
		schema: schema,
		logger: logger.Named("correlation"),
	}
}

// pairTerm addresses one CORR(a,b) scalar in the single result row.
type pairTerm struct {
	i, j int
}

func (s *correlationService) Matrix(ctx context.Context, table string) (*models.CorrelationMatrix, error) {
	numeric, err := s.schema.NumericColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(numeric) < 2 {
		return nil, fmt.Errorf("%w: table %s has %d", apperrors.ErrInsufficientColumns, table, len(numeric))
	}

	index := make(map[string]int, len(numeric))
	for i, name := range numeric {
		index[name] = i
	}

	// Diagonal terms plus each unordered pair once, lexicographic tie-break.
	terms := make([]string, 0, len(numeric)*(len(numeric)+1)/2)
	pairs := make([]pairTerm, 0, cap(terms))
	for i, a := range numeric {
		qa := database.QuoteIdent(a)
		terms = append(terms, fmt.Sprintf("CORR(%s, %s)", qa, qa))
		pairs = append(pairs, pairTerm{i, i})
		for _, b := range numeric {
			if a < b {
				terms = append(terms, fmt.Sprintf("CORR(%s, %s)", qa, database.QuoteIdent(b)))
				pairs = append(pairs, pairTerm{i, index[b]})
			}
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(terms, ", "), table)

	scalars := make([]sql.NullFloat64, len(terms))
	dest := make([]any, len(terms))
	for i := range scalars {
		dest[i] = &scalars[i]
	}
	if err := s.store.QueryRow(ctx, query, dest...); err != nil {
		return nil, err
	}

	matrix := &models.CorrelationMatrix{
		Columns: numeric,
		Values:  make([][]float64, len(numeric)),
	}
	for i := range matrix.Values {
		matrix.Values[i] = make([]float64, len(numeric))
	}
	for k, p := range pairs {
		v := math.NaN()
		if scalars[k].Valid {
			v = scalars[k].Float64
		}
		matrix.Values[p.i][p.j] = v
		matrix.Values[p.j][p.i] = v
	}
	for i := range matrix.Values {
		matrix.Values[i][i] = 1.0
	}
	return matrix, nil
}
