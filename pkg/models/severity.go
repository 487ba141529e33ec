package models

// Severity classifies how concerning a bias signal is.
type Severity string

const (
	SeverityOK     Severity = "ok"
	SeverityInfo   Severity = "info"
	SeverityMild   Severity = "mild"
	SeveritySevere Severity = "severe"
)

// grade walks thresholds from most to least severe and returns the first level
// the value reaches.
func grade(value, severe, mild, info float64) Severity {
	switch {
	case value >= severe:
		return SeveritySevere
	case value >= mild:
		return SeverityMild
	case value >= info:
		return SeverityInfo
	default:
		return SeverityOK
	}
}

// BinConcentrationSeverity grades the largest histogram bin's share of
// non-null values.
func BinConcentrationSeverity(maxBinShare float64) Severity {
	return grade(maxBinShare, 0.40, 0.25, 0.20)
}

// OutlierSeverity grades the Tukey-rule outlier fraction.
func OutlierSeverity(outlierFrac float64) Severity {
	return grade(outlierFrac, 0.20, 0.10, 0.05)
}

// MajorityShareSeverity grades how dominant the majority category is.
func MajorityShareSeverity(majorityShare float64) Severity {
	return grade(majorityShare, 0.90, 0.70, 0.60)
}

// ImbalanceSeverity grades the majority/minority share ratio. The ratio may be
// +Inf, which grades severe.
func ImbalanceSeverity(imbalanceRatio float64) Severity {
	return grade(imbalanceRatio, 10, 5, 3)
}
