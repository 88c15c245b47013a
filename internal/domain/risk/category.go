// Package risk implements the category model, score aggregation, and the
// composition matrix used to derive overall risk from threat and asset
// assessments.
package risk

import (
	"fmt"
	"strings"
)

// Category is a qualitative risk level on the five-step scale used across the
// platform for likelihood, impact, and overall risk alike.
type Category string

const (
	VeryLow  Category = "Very Low"
	Low      Category = "Low"
	Medium   Category = "Medium"
	High     Category = "High"
	VeryHigh Category = "Very High"
)

// Categories lists all levels in ascending order of severity.
var Categories = []Category{VeryLow, Low, Medium, High, VeryHigh}

// categoryPriority maps each level to its ordinal severity, 1 through 5.
var categoryPriority = map[Category]int{
	VeryLow:  1,
	Low:      2,
	Medium:   3,
	High:     4,
	VeryHigh: 5,
}

// Priority returns the ordinal severity of the category, 1 (Very Low) through
// 5 (Very High).  Unknown categories return 0 so they always lose comparisons.
func (c Category) Priority() int {
	return categoryPriority[c]
}

// Valid reports whether c is one of the five defined levels.
func (c Category) Valid() bool {
	_, ok := categoryPriority[c]
	return ok
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory converts a string to a Category, accepting any casing and
// surrounding whitespace.  It returns an error for unrecognised values.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "very low", "verylow", "vl":
		return VeryLow, nil
	case "low", "l":
		return Low, nil
	case "medium", "m":
		return Medium, nil
	case "high", "h":
		return High, nil
	case "very high", "veryhigh", "vh":
		return VeryHigh, nil
	default:
		return "", fmt.Errorf("risk: unknown category %q", s)
	}
}

// Max returns the more severe of two categories.  When the priorities are
// equal the receiver wins.
func (c Category) Max(other Category) Category {
	if other.Priority() > c.Priority() {
		return other
	}
	return c
}
