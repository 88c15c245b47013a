package controls

import (
	"sort"
	"strings"
	"unicode"

	"github.com/orbitsec/spacerisk/internal/domain/catalog"
)

// MatchKind tags how a declared threat name resolved against the catalog.
type MatchKind int

const (
	// NoMatch means no catalog threat resolved from the declared text.
	NoMatch MatchKind = iota
	// Fuzzy means one or more threats resolved through substring or
	// normalized-form comparison.
	Fuzzy
	// Exact means the declared text equals a catalog threat name.
	Exact
)

func (k MatchKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Fuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// MatchResult carries the resolved threat names for one declared name.
// A declared name may legitimately resolve to several live threats; callers
// iterate the whole set.
type MatchResult struct {
	Kind    MatchKind
	Threats []string
}

// normalizeThreatName lowercases and strips whitespace and punctuation so
// "Denial-of-Service" and "denial of service" compare equal.
func normalizeThreatName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MatchThreat resolves a single declared threat name against the catalog.
// Exact equality short-circuits; otherwise every threat whose name contains
// the declared text, is contained in it (case-insensitive), or shares its
// normalized form is included.
func MatchThreat(declared string, threats []catalog.Threat) MatchResult {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return MatchResult{Kind: NoMatch}
	}

	for _, th := range threats {
		if th.Name == declared {
			return MatchResult{Kind: Exact, Threats: []string{th.Name}}
		}
	}

	foldDeclared := strings.ToLower(declared)
	normDeclared := normalizeThreatName(declared)
	var matched []string
	for _, th := range threats {
		foldName := strings.ToLower(th.Name)
		if strings.Contains(foldName, foldDeclared) ||
			strings.Contains(foldDeclared, foldName) ||
			normalizeThreatName(th.Name) == normDeclared {
			matched = append(matched, th.Name)
		}
	}
	if len(matched) == 0 {
		return MatchResult{Kind: NoMatch}
	}
	return MatchResult{Kind: Fuzzy, Threats: matched}
}

// MatchDeclaredThreats resolves a control's whole comma-separated
// threats-addressed text into the union of matched threat names, sorted.
func MatchDeclaredThreats(threatsAddressed string, threats []catalog.Threat) []string {
	seen := make(map[string]struct{})
	for _, tok := range strings.Split(threatsAddressed, ",") {
		res := MatchThreat(tok, threats)
		for _, name := range res.Threats {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
