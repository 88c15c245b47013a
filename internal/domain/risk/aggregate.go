package risk

import "math"

// Score bounds for every criterion on the platform.
const (
	MinScore = 1
	MaxScore = 5
)

// ValidScore reports whether s is a recordable criterion score.
func ValidScore(s int) bool {
	return s >= MinScore && s <= MaxScore
}

// Aggregate reduces a set of criterion scores to a single normalized value in
// [0, 1] using the quadratic mean.  Scores that are absent or zero are
// excluded from both numerator and denominator rather than treated as lowest
// severity.  When no score qualifies, ok is false and the aggregate is
// undefined.
func Aggregate(scores []int) (value float64, ok bool) {
	var sumSquares float64
	var n int
	for _, s := range scores {
		if s == 0 {
			continue
		}
		sumSquares += float64(s) * float64(s)
		n++
	}
	if n == 0 {
		return 0, false
	}
	rms := math.Sqrt(sumSquares / float64(n))
	return clamp01((rms - 1) / 4), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Categorize maps a normalized aggregate in [0, 1] onto the five-step scale.
// The thresholds are inclusive upper bounds.
func Categorize(v float64) Category {
	switch {
	case v <= 0.1:
		return VeryLow
	case v <= 0.4:
		return Low
	case v <= 0.7:
		return Medium
	case v <= 0.9:
		return High
	default:
		return VeryHigh
	}
}

// AggregateCategory is a convenience that aggregates and categorizes in one
// step.  ok is false when the score set is empty after exclusions, in which
// case the category is undefined and must not be composed further.
func AggregateCategory(scores []int) (Category, bool) {
	v, ok := Aggregate(scores)
	if !ok {
		return "", false
	}
	return Categorize(v), true
}
