package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	_, ok := Aggregate(nil)
	assert.False(t, ok)

	_, ok = Aggregate([]int{})
	assert.False(t, ok)

	// All zeros count as absent, not lowest severity.
	_, ok = Aggregate([]int{0, 0, 0})
	assert.False(t, ok)
}

func TestAggregate_SingleScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		score int
		want  float64
	}{
		{1, 0.0},
		{2, 0.25},
		{3, 0.5},
		{4, 0.75},
		{5, 1.0},
	}

	for _, tc := range cases {
		v, ok := Aggregate([]int{tc.score})
		require.True(t, ok)
		assert.InDelta(t, tc.want, v, 1e-9, "score %d", tc.score)
	}
}

func TestAggregate_QuadraticMean(t *testing.T) {
	t.Parallel()

	// RMS of {1, 5} = sqrt(13) ≈ 3.6056; normalized ≈ 0.6514.
	v, ok := Aggregate([]int{1, 5})
	require.True(t, ok)
	assert.InDelta(t, (math.Sqrt(13)-1)/4, v, 1e-9)

	// The quadratic mean exceeds the arithmetic mean for unequal scores.
	arith := (1.0 + 5.0) / 2
	assert.Greater(t, v, (arith-1)/4)
}

func TestAggregate_ZerosExcludedEntirely(t *testing.T) {
	t.Parallel()

	withZeros, ok1 := Aggregate([]int{3, 0, 4, 0})
	without, ok2 := Aggregate([]int{3, 4})
	require.True(t, ok1)
	require.True(t, ok2)
	assert.InDelta(t, without, withZeros, 1e-12)
}

func TestAggregate_MonotoneInScores(t *testing.T) {
	t.Parallel()

	lo, _ := Aggregate([]int{2, 2, 2})
	hi, _ := Aggregate([]int{2, 2, 3})
	assert.Greater(t, hi, lo)
}

func TestAggregate_BoundsHold(t *testing.T) {
	t.Parallel()

	for s := MinScore; s <= MaxScore; s++ {
		v, ok := Aggregate([]int{s, s, s, s})
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestValidScore(t *testing.T) {
	t.Parallel()

	assert.False(t, ValidScore(0))
	assert.False(t, ValidScore(-1))
	assert.False(t, ValidScore(6))
	for s := 1; s <= 5; s++ {
		assert.True(t, ValidScore(s))
	}
}

func TestCategorize_Thresholds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		v    float64
		want Category
	}{
		{0.0, VeryLow},
		{0.1, VeryLow},
		{0.10000001, Low},
		{0.4, Low},
		{0.41, Medium},
		{0.7, Medium},
		{0.71, High},
		{0.9, High},
		{0.91, VeryHigh},
		{1.0, VeryHigh},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Categorize(tc.v), "value %v", tc.v)
	}
}

func TestAggregateCategory(t *testing.T) {
	t.Parallel()

	c, ok := AggregateCategory([]int{5, 5})
	require.True(t, ok)
	assert.Equal(t, VeryHigh, c)

	c, ok = AggregateCategory([]int{1})
	require.True(t, ok)
	assert.Equal(t, VeryLow, c)

	_, ok = AggregateCategory(nil)
	assert.False(t, ok)
}
