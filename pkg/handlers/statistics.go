package handlers

import (
	"math"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/config"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/services"
)

// StatisticsHandler exposes the statistics engines as JSON endpoints. It only
// parses parameters, calls the engine and forwards results; no formula lives
// here. Configured stats defaults apply when a caller omits a knob.
type StatisticsHandler struct {
	cfg          *config.Config
	distribution services.DistributionService
	bias         services.BiasService
	drift        services.DriftService
	fairness     services.FairnessService
	correlation  services.CorrelationService
	logger       *zap.Logger
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(
	cfg *config.Config,
	distribution services.DistributionService,
	bias services.BiasService,
	drift services.DriftService,
	fairness services.FairnessService,
	correlation services.CorrelationService,
	logger *zap.Logger,
) *StatisticsHandler {
	return &StatisticsHandler{
		cfg:          cfg,
		distribution: distribution,
		bias:         bias,
		drift:        drift,
		fairness:     fairness,
		correlation:  correlation,
		logger:       logger.Named("statistics"),
	}
}

// RegisterRoutes registers the statistics handler's routes on the given mux.
func (h *StatisticsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasets/{id}/distributions/numeric", h.NumericDistribution)
	mux.HandleFunc("GET /api/datasets/{id}/distributions/categorical", h.CategoricalDistribution)
	mux.HandleFunc("GET /api/datasets/{id}/bias/numeric", h.NumericBias)
	mux.HandleFunc("GET /api/datasets/{id}/bias/categorical", h.CategoricalBias)
	mux.HandleFunc("GET /api/datasets/{id}/correlation", h.Correlation)
	mux.HandleFunc("GET /api/datasets/{ref}/drift/{cur}", h.Drift)
	mux.HandleFunc("GET /api/datasets/{id}/fairness", h.Fairness)
}

// NumericDistribution returns the histogram and display sample for a numeric
// column.
func (h *StatisticsHandler) NumericDistribution(w http.ResponseWriter, r *http.Request) {
	table, ok := tablePath(w, r, "id")
	if !ok {
		return
	}
	column, err := requiredParam(r, "column")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	bins, err := intParam(r, "bins", h.cfg.Stats.HistogramBins, 5, 80)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	sampleSize, err := intParam(r, "sample_size", h.cfg.Stats.SampleSize, 1000, 500000)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	result, err := h.distribution.Histogram(r.Context(), table, column, bins, sampleSize)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if result == nil {
		_ = ErrorResponse(w, http.StatusNotFound, "no_data", "no data available for this column")
		return
	}
	h.write(w, map[string]any{
		"histogram":   result.Bins,
		"sample":      result.Sample,
		"sample_size": len(result.Sample),
	})
}

// CategoricalDistribution returns value counts for a categorical column.
func (h *StatisticsHandler) CategoricalDistribution(w http.ResponseWriter, r *http.Request) {
	table, ok := tablePath(w, r, "id")
	if !ok {
		return
	}
	column, err := requiredParam(r, "column")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	topK, err := intParam(r, "top_k", h.cfg.Stats.TopK, 5, 50)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	counts, err := h.distribution.ValueCounts(r.Context(), table, column, topK)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.write(w, map[string]any{"value_counts": counts})
}

// NumericBias returns bias metrics for a numeric column.
func (h *StatisticsHandler) NumericBias(w http.ResponseWriter, r *http.Request) {
	table, ok := tablePath(w, r, "id")
	if !ok {
		return
	}
	column, err := requiredParam(r, "column")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	bins, err := intParam(r, "bins", h.cfg.Stats.HistogramBins, 5, 80)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	metrics, err := h.bias.NumericBias(r.Context(), table, column, bins)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if metrics == nil {
		_ = ErrorResponse(w, http.StatusNotFound, "no_data", "could not compute bias metrics for this column")
		return
	}
	h.write(w, map[string]any{"metrics": metrics})
}

// CategoricalBias returns bias metrics for a categorical column.
func (h *StatisticsHandler) CategoricalBias(w http.ResponseWriter, r *http.Request) {
	table, ok := tablePath(w, r, "id")
	if !ok {
		return
	}
	column, err := requiredParam(r, "column")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	metrics, err := h.bias.CategoricalBias(r.Context(), table, column)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if metrics == nil {
		_ = ErrorResponse(w, http.StatusNotFound, "no_data", "could not compute bias metrics for this column")
		return
	}
	h.write(w, map[string]any{"metrics": metrics})
}

// Correlation returns the full numeric correlation matrix.
func (h *StatisticsHandler) Correlation(w http.ResponseWriter, r *http.Request) {
	table, ok := tablePath(w, r, "id")
	if !ok {
		return
	}

	matrix, err := h.correlation.Matrix(r.Context(), table)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.write(w, map[string]any{
		"columns":     matrix.Columns,
		"correlation": jsonMatrix(matrix.Values),
	})
}

// jsonMatrix maps undefined correlations to null; NaN is not representable in
// JSON.
func jsonMatrix(values [][]float64) [][]any {
	out := make([][]any, len(values))
	for i, row := range values {
		out[i] = make([]any, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				out[i][j] = nil
			} else {
				out[i][j] = v
			}
		}
	}
	return out
}

// Drift compares a reference and a current dataset column by column.
func (h *StatisticsHandler) Drift(w http.ResponseWriter, r *http.Request) {
	refTable, ok := tablePath(w, r, "ref")
	if !ok {
		return
	}
	curTable, ok := tablePath(w, r, "cur")
	if !ok {
		return
	}
	bins, err := intParam(r, "bins", h.cfg.Stats.DriftBins, 5, 30)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	var columns []string
	if raw := r.URL.Query().Get("columns"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				columns = append(columns, c)
			}
		}
	}

	rows, err := h.drift.ComputeDriftTable(r.Context(), refTable, curTable, columns, bins)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.write(w, map[string]any{
		"reference_dataset": r.PathValue("ref"),
		"current_dataset":   r.PathValue("cur"),
		"n_bins":            bins,
		"psi_metrics":       rows,
	})
}

// Fairness computes demographic parity for a binarized target.
func (h *StatisticsHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	table, ok := tablePath(w, r, "id")
	if !ok {
		return
	}
	target, err := requiredParam(r, "target_column")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	threshold, err := floatParam(r, "threshold")
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}
	operator := r.URL.Query().Get("comparison_operator")
	if operator == "" {
		operator = ">"
	}
	sensitive := r.URL.Query().Get("sensitive_attribute")

	result, err := h.fairness.DemographicParity(r.Context(), table, target, threshold, operator, sensitive)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if result == nil {
		_ = ErrorResponse(w, http.StatusNotFound, "no_data", "no data to compute fairness metrics")
		return
	}
	h.write(w, result)
}

func (h *StatisticsHandler) write(w http.ResponseWriter, data any) {
	if err := WriteJSON(w, http.StatusOK, data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// tablePath derives the physical table name from a dataset id path segment.
func tablePath(w http.ResponseWriter, r *http.Request, segment string) (string, bool) {
	table, err := database.TableName(r.PathValue(segment))
	if err != nil {
		writeEngineError(w, err)
		return "", false
	}
	return table, true
}
