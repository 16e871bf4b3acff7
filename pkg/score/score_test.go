package score

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolPercentEqualInputs(t *testing.T) {
	// spec.md §8: diff(obj, obj).match_percent == 100.0
	require.Equal(t, 100.0, SymbolPercent(0, 10))
}

func TestSymbolPercentEmptyDiffIdempotence(t *testing.T) {
	// spec.md §8: two empty sections -> zero-length diff, match_percent == 100.0.
	require.Equal(t, 100.0, SymbolPercent(0, 0))
}

func TestSymbolPercentPartialMismatch(t *testing.T) {
	require.InDelta(t, 75.0, SymbolPercent(1, 4), 1e-9)
}

func TestSymbolPercentNeverNegative(t *testing.T) {
	require.Equal(t, 0.0, SymbolPercent(10, 4))
}

func TestWeightedMeanBySize(t *testing.T) {
	items := []Weighted{
		{Percent: 100, Weight: 10},
		{Percent: 50, Weight: 30},
	}
	// (100*10 + 50*30) / 40 = (1000+1500)/40 = 62.5
	require.InDelta(t, 62.5, WeightedMean(items), 1e-9)
}

func TestWeightedMeanAllZeroWeightFallsBackToPlainMean(t *testing.T) {
	items := []Weighted{{Percent: 100}, {Percent: 50}}
	require.InDelta(t, 75.0, WeightedMean(items), 1e-9)
}

func TestWeightedMeanEmpty(t *testing.T) {
	require.Equal(t, 100.0, WeightedMean(nil))
}
