package services

import (
	"math"
	"sort"
)

// psiEpsilon is the floor applied to every proportion before the log-ratio.
// It keeps ln and division defined on empty bins and makes the formula
// symmetric under swapping reference and current.
const psiEpsilon = 1e-6

// psiFromProportions applies the core PSI formula to aligned proportion
// vectors: sum((ref - cur) * ln(ref / cur)) with both sides clipped to
// psiEpsilon. Inputs must be the same length.
func psiFromProportions(refP, curP []float64) float64 {
	psi := 0.0
	for i := range refP {
		r := math.Max(refP[i], psiEpsilon)
		c := math.Max(curP[i], psiEpsilon)
		psi += (r - c) * math.Log(r/c)
	}
	return psi
}

// quantile returns the q-th quantile of a sorted slice using linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := q * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// quantileEdges computes bins+1 evenly spaced quantile edges of the reference
// values, deduplicated. Fewer than 2 distinct edges means the reference is
// constant.
func quantileEdges(ref []float64, bins int) []float64 {
	sorted := make([]float64, len(ref))
	copy(sorted, ref)
	sort.Float64s(sorted)

	edges := make([]float64, 0, bins+1)
	for i := 0; i <= bins; i++ {
		e := quantile(sorted, float64(i)/float64(bins))
		if len(edges) == 0 || e != edges[len(edges)-1] {
			edges = append(edges, e)
		}
	}
	return edges
}

// binCounts buckets values into the half-open intervals defined by edges:
// (edges[i], edges[i+1]], with the first interval also closed at the left.
// Values outside the edge range are dropped.
func binCounts(values, edges []float64) []float64 {
	counts := make([]float64, len(edges)-1)
	for _, v := range values {
		if v < edges[0] || v > edges[len(edges)-1] {
			continue
		}
		// SearchFloat64s lands on the edge itself for exact matches; the
		// right-closed convention puts edge values in the bin below.
		idx := sort.SearchFloat64s(edges, v)
		if idx > 0 {
			idx--
		}
		counts[idx]++
	}
	return counts
}

// psiNumeric computes PSI between two numeric series. Binning derives from
// the reference only: bins+1 quantile edges, deduplicated. A constant
// reference defines PSI as exactly 0 (no shift is detectable). The second
// return is false when PSI is undefined (either side empty, or no current
// value falls inside the reference range).
func psiNumeric(ref, cur []float64, bins int) (float64, bool) {
	if len(ref) == 0 || len(cur) == 0 {
		return 0, false
	}

	edges := quantileEdges(ref, bins)
	if len(edges) < 2 {
		return 0, true
	}

	refCounts := binCounts(ref, edges)
	curCounts := binCounts(cur, edges)

	refTotal, curTotal := 0.0, 0.0
	for i := range refCounts {
		refTotal += refCounts[i]
		curTotal += curCounts[i]
	}
	if refTotal == 0 || curTotal == 0 {
		return 0, false
	}

	refP := make([]float64, len(refCounts))
	curP := make([]float64, len(curCounts))
	for i := range refCounts {
		refP[i] = refCounts[i] / refTotal
		curP[i] = curCounts[i] / curTotal
	}
	return psiFromProportions(refP, curP), true
}

// psiCategorical computes PSI between two categorical series. Missing values
// must already be mapped to their sentinel category by the caller. Categories
// align on the union of both sides; a category absent from one side gets
// proportion 0 before the epsilon clip.
func psiCategorical(ref, cur []string) (float64, bool) {
	if len(ref) == 0 || len(cur) == 0 {
		return 0, false
	}

	refCounts := make(map[string]float64, len(ref))
	for _, v := range ref {
		refCounts[v]++
	}
	curCounts := make(map[string]float64, len(cur))
	for _, v := range cur {
		curCounts[v]++
	}

	union := make([]string, 0, len(refCounts)+len(curCounts))
	for k := range refCounts {
		union = append(union, k)
	}
	for k := range curCounts {
		if _, ok := refCounts[k]; !ok {
			union = append(union, k)
		}
	}
	sort.Strings(union)

	refTotal := float64(len(ref))
	curTotal := float64(len(cur))
	refP := make([]float64, len(union))
	curP := make([]float64, len(union))
	for i, k := range union {
		refP[i] = refCounts[k] / refTotal
		curP[i] = curCounts[k] / curTotal
	}
	return psiFromProportions(refP, curP), true
}
