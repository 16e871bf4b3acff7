package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objdiffgo/objdiff/pkg/objerrors"
)

func TestAlignLevenshteinIdentical(t *testing.T) {
	left := []int{1, 2, 3}
	right := []int{1, 2, 3}
	script, err := Align(left, right, Options{Algorithm: AlgorithmLevenshtein})
	require.NoError(t, err)
	require.Len(t, script, 3)
	for _, s := range script {
		assert.Equal(t, OpMatch, s.Op)
	}
}

// TestAlignLevenshteinDeleteBias reproduces spec.md §8's scenario 6:
// [1,2,3,4,5] vs [1,3,4,5] aligns as Match, Delete, Match, Match, Match.
func TestAlignLevenshteinDeleteBias(t *testing.T) {
	left := []int{1, 2, 3, 4, 5}
	right := []int{1, 3, 4, 5}
	script, err := Align(left, right, Options{Algorithm: AlgorithmLevenshtein})
	require.NoError(t, err)
	require.Len(t, script, 5)
	assert.Equal(t, OpMatch, script[0].Op)
	assert.Equal(t, OpDelete, script[1].Op)
	assert.Equal(t, 1, script[1].LeftIndex)
	assert.Equal(t, OpMatch, script[2].Op)
	assert.Equal(t, OpMatch, script[3].Op)
	assert.Equal(t, OpMatch, script[4].Op)
}

func TestAlignLevenshteinReplace(t *testing.T) {
	left := []int{1, 2, 3}
	right := []int{1, 9, 3}
	script, err := Align(left, right, Options{Algorithm: AlgorithmLevenshtein})
	require.NoError(t, err)
	require.Len(t, script, 3)
	assert.Equal(t, OpMatch, script[0].Op)
	assert.Equal(t, OpReplace, script[1].Op)
	assert.Equal(t, OpMatch, script[2].Op)
}

func TestAlignSafetyCap(t *testing.T) {
	left := make([]int, 40000)
	right := make([]int, 40000)
	_, err := Align(left, right, Options{Algorithm: AlgorithmLevenshtein})
	assert.ErrorIs(t, err, objerrors.ErrAlignmentTooLarge)
}

func TestAlignLCSMatchesLevenshteinOnSimpleCase(t *testing.T) {
	left := []int{1, 2, 3, 4, 5}
	right := []int{1, 3, 4, 5}
	script, err := Align(left, right, Options{Algorithm: AlgorithmLCS})
	require.NoError(t, err)
	matches := 0
	for _, s := range script {
		if s.Op == OpMatch {
			matches++
		}
	}
	assert.Equal(t, 4, matches)
}

func TestAlignMyers(t *testing.T) {
	left := []int{1, 2, 3, 4, 5}
	right := []int{1, 3, 4, 5}
	script, err := Align(left, right, Options{Algorithm: AlgorithmMyers})
	require.NoError(t, err)
	matches := 0
	for _, s := range script {
		if s.Op == OpMatch {
			matches++
		}
	}
	assert.Equal(t, 4, matches)
}

func TestAlignPatienceWithUniqueAnchors(t *testing.T) {
	left := []int{1, 2, 3, 4, 5}
	right := []int{9, 2, 3, 4, 8}
	script, err := Align(left, right, Options{Algorithm: AlgorithmPatience})
	require.NoError(t, err)
	matches := 0
	for _, s := range script {
		if s.Op == OpMatch {
			matches++
		}
	}
	assert.Equal(t, 3, matches)
}

func TestAlignEmptySequences(t *testing.T) {
	script, err := Align([]int{}, []int{}, Options{Algorithm: AlgorithmLevenshtein})
	require.NoError(t, err)
	assert.Empty(t, script)
}

func TestAlignAllInsertions(t *testing.T) {
	script, err := Align([]int{}, []int{1, 2, 3}, Options{Algorithm: AlgorithmLevenshtein})
	require.NoError(t, err)
	require.Len(t, script, 3)
	for _, s := range script {
		assert.Equal(t, OpInsert, s.Op)
	}
}
