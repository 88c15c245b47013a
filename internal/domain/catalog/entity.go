// Package catalog defines the immutable reference entities of the platform:
// the assets under assessment, the threat catalog, and the control catalog.
package catalog

import "strings"

// Asset is one assessable element of the space system, identified by its
// ordinal position in the catalog.  Assets are immutable once loaded.
type Asset struct {
	Ordinal     int    `json:"ordinal"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Component   string `json:"component"`
}

// Label returns the human-readable "Category - Subcategory - Component" form
// used in listings and diagnostics.
func (a Asset) Label() string {
	return a.Category + " - " + a.Subcategory + " - " + a.Component
}

// Threat is a named adversarial scenario from the threat catalog.
type Threat struct {
	Name string `json:"name"`
}

// Control is a security measure from the control catalog.  Criteria,
// ThreatsAddressed, and Segment carry free text resolved at apply time by the
// criterion table, threat matcher, and segment resolver respectively.
type Control struct {
	ID               string `json:"id"`
	Cluster          string `json:"cluster"`
	Title            string `json:"title"`
	Criteria         string `json:"criteria"`
	ThreatsAddressed string `json:"threats_addressed"`
	Segment          string `json:"segment"`
	Description      string `json:"description"`
	Reference        string `json:"reference"`
	Lifecycle        string `json:"lifecycle"`
}

// Addresses reports whether the control declares the given threat in its
// threats-addressed text, by exact case-insensitive token match or by the
// threat name being contained in a declared token.
func (c Control) Addresses(threatName string) bool {
	want := strings.ToLower(strings.TrimSpace(threatName))
	if want == "" {
		return false
	}
	for _, tok := range strings.Split(c.ThreatsAddressed, ",") {
		declared := strings.ToLower(strings.TrimSpace(tok))
		if declared == "" {
			continue
		}
		if declared == want || strings.Contains(declared, want) {
			return true
		}
	}
	return false
}
