// Package controls implements segment compatibility resolution, threat
// matching, and the control effect engine that owns the applied-control set.
package controls

import (
	"sort"
	"strings"

	"github.com/orbitsec/spacerisk/internal/domain/catalog"
)

// userGroundTokens are the segment tokens that additionally match ground-side
// assets whose subcategory names a user segment.
var userGroundTokens = map[string]struct{}{
	"user ground segment": {},
	"human resources":     {},
}

// normalizeSegmentToken trims and lowercases a token and applies the "human"
// alias used by older control catalogs.
func normalizeSegmentToken(raw string) string {
	tok := strings.ToLower(strings.TrimSpace(raw))
	if tok == "human" {
		return "user ground segment"
	}
	return tok
}

// tokenMatchesAsset reports whether a normalized segment token is compatible
// with the asset.
func tokenMatchesAsset(tok string, a catalog.Asset) bool {
	category := strings.ToLower(a.Category)
	subcategory := strings.ToLower(a.Subcategory)

	if tok == category {
		return true
	}
	// An empty subcategory must not substring-match every token.
	if subcategory != "" && (strings.Contains(subcategory, tok) || strings.Contains(tok, subcategory)) {
		return true
	}
	if _, ok := userGroundTokens[tok]; ok {
		return category == "ground" && strings.Contains(subcategory, "user")
	}
	return false
}

// ResolveSegments resolves a control's comma-separated segment expression to
// the ordinals of compatible assets, sorted ascending.  An empty, garbled, or
// non-matching expression yields an empty set; callers log the diagnostic but
// never treat it as an error.
func ResolveSegments(expr string, assets []catalog.Asset) []int {
	matched := make(map[int]struct{})
	for _, raw := range strings.Split(expr, ",") {
		tok := normalizeSegmentToken(raw)
		if tok == "" {
			continue
		}
		for _, a := range assets {
			if tokenMatchesAsset(tok, a) {
				matched[a.Ordinal] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(matched))
	for ord := range matched {
		out = append(out, ord)
	}
	sort.Ints(out)
	return out
}
