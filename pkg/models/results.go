package models

// HistogramBin is one uniform-width bin of a numeric histogram.
type HistogramBin struct {
	Start float64 `json:"bin_start"`
	End   float64 `json:"bin_end"`
	Count int64   `json:"count"`
}

// HistogramResult pairs the push-down bin counts with an independently drawn
// bounded sample used only for display (box plots), never for the counts.
type HistogramResult struct {
	Bins   []HistogramBin `json:"histogram"`
	Sample []float64      `json:"sample"`
}

// ValueCount is one row of a categorical value-counts result.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// BinShare is one retained bin of the numeric bias bin-concentration table.
type BinShare struct {
	Bin   string  `json:"bin"`
	Share float64 `json:"share"`
}

// NumericBiasResult carries the per-column data-quality signals for a numeric
// column. Shares are fractions of all rows except MaxBinShare and OutlierFrac,
// which are fractions of non-null rows.
type NumericBiasResult struct {
	MaxBinShare     float64    `json:"max_bin_share"`
	BinSeverity     Severity   `json:"bin_level"`
	Skew            float64    `json:"skew"`
	OutlierFrac     float64    `json:"outlier_frac"`
	OutlierSeverity Severity   `json:"out_level"`
	ZeroShare       float64    `json:"zero_share"`
	MissingShare    float64    `json:"missing_share"`
	TopBins         []BinShare `json:"bins_table"`
}

// ValueShare is one retained category of the categorical bias top-values table.
type ValueShare struct {
	Value string  `json:"value"`
	Count int64   `json:"count"`
	Share float64 `json:"share"`
}

// CategoricalBiasResult carries the per-column data-quality signals for a
// categorical column. MinorityShare is the smallest non-zero share among the
// retained top values, not the true global minimum when more than the retained
// limit of distinct values exist; ImbalanceRatio is +Inf when it is zero.
// Entropy and EffectiveK are computed over all observed categories, so
// EffectiveK <= ObservedK always holds.
type CategoricalBiasResult struct {
	MajorityLabel     string       `json:"majority_label"`
	MajorityShare     float64      `json:"majority_share"`
	MinorityShare     float64      `json:"minority_share"`
	ImbalanceRatio    float64      `json:"imbalance_ratio"`
	Entropy           float64      `json:"entropy"`
	EffectiveK        float64      `json:"effective_k"`
	ObservedK         int64        `json:"observed_k"`
	MissingShare      float64      `json:"missing_share"`
	MajoritySeverity  Severity     `json:"maj_level"`
	ImbalanceSeverity Severity     `json:"irr_level"`
	TopValues         []ValueShare `json:"top_table"`
	Total             int64        `json:"total"`
}

// PsiRow is one column of a drift comparison. PSI is nil when it is undefined
// (either side empty after coercion); callers must treat that distinctly from
// a real zero.
type PsiRow struct {
	Column  string     `json:"column"`
	Kind    ColumnKind `json:"type"`
	RefN    int64      `json:"ref_n"`
	CurN    int64      `json:"cur_n"`
	PSI     *float64   `json:"psi"`
	Flagged bool       `json:"flagged"`
}

// GroupStat is one sensitive-attribute group of a fairness result.
type GroupStat struct {
	Group         string  `json:"group"`
	SelectionRate float64 `json:"selection_rate"`
	N             int64   `json:"n"`
}

// FairnessResult is either the overall selection rate (no sensitive attribute
// given) or the demographic parity difference with the per-group table sorted
// by selection rate descending.
type FairnessResult struct {
	OverallSelectionRate *float64    `json:"overall_selection_rate,omitempty"`
	ParityDifference     *float64    `json:"demographic_parity_difference,omitempty"`
	Groups               []GroupStat `json:"group_statistics,omitempty"`
}

// CorrelationMatrix is the symmetric Pearson matrix over the numeric column
// set. The diagonal is forced to 1.0; an off-diagonal entry is NaN when the
// store could not define the correlation (zero variance).
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"matrix"`
}

// At returns the correlation between columns i and j.
func (m *CorrelationMatrix) At(i, j int) float64 {
	return m.Values[i][j]
}
