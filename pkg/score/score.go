// Package score implements the match-percentage scorer (component I,
// spec.md §4.I): SymbolPercent turns a symbol's diff_score/max_score into
// the percentage pkg/objdiffapi stores on diff.SymbolDiff; this package
// also rolls those up into per-section and per-object percentages, weighted
// by size, with weights always taken from the *left* (target) object so
// that code added only in the base side never dilutes the score
// (spec.md §4.I: "All weights use left (target) sizes").
//
// Grounded on pkg/score's sibling, the teacher's programfiledump.go
// summary-statistics pass (a flat reduce over already-computed
// per-record values, no recomputation of the records themselves).
package score

// SymbolPercent returns the match percentage for a single symbol
// (spec.md §3: "match_percent = (1 - diff_score/max_score)*100 when
// max_score > 0"). A symbol with no content to compare (max_score <= 0,
// e.g. an empty function against an empty function) is a perfect match
// by spec.md §8's "Empty-diff idempotence" property.
func SymbolPercent(diffScore, maxScore float64) float64 {
	if maxScore <= 0 {
		return 100.0
	}
	pct := (1 - diffScore/maxScore) * 100
	if pct < 0 {
		pct = 0
	}
	return pct
}

// Weighted pairs a match percentage with the weight (left/target size in
// bytes) it should contribute to a rollup.
type Weighted struct {
	Percent float64
	Weight  uint64
}

// WeightedMean computes the size-weighted mean match percentage
// (spec.md §4.I: "weighted mean... weighted by symbol/section size").
// Zero-weight entries (size unknown) are excluded from the weighted sum
// but still counted via an equal-share fallback when every entry is
// zero-weight, so a rollup over symbols with no size information still
// produces a meaningful average instead of a vacuous 100%.
func WeightedMean(items []Weighted) float64 {
	if len(items) == 0 {
		return 100.0
	}
	var sum, totalWeight float64
	for _, it := range items {
		sum += it.Percent * float64(it.Weight)
		totalWeight += float64(it.Weight)
	}
	if totalWeight == 0 {
		var plain float64
		for _, it := range items {
			plain += it.Percent
		}
		return plain / float64(len(items))
	}
	return sum / totalWeight
}

// SectionPercent rolls up a section's symbol percentages, weighted by
// each symbol's left (target) size.
func SectionPercent(symbols []Weighted) float64 {
	return WeightedMean(symbols)
}

// ObjectPercent rolls up an object's section percentages, weighted by
// each section's left (target) size.
func ObjectPercent(sections []Weighted) float64 {
	return WeightedMean(sections)
}
