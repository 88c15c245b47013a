// Package assessment holds the criterion tables and the in-memory score store
// that every risk computation reads from.
package assessment

import (
	"sort"
	"strings"
)

// Criterion counts per context kind.
const (
	NumThreatCriteria = 7
	NumAssetCriteria  = 9
)

// ThreatCriteria names the seven criteria scored per threat per asset.
// Indices 0-4 feed the likelihood aggregate, 5-6 the impact aggregate.
var ThreatCriteria = []string{
	"Vulnerability effectiveness",
	"Mitigation Presence",
	"Detection Probability",
	"Access Complexity",
	"Privilege Requirement",
	"Response Delay",
	"Resilience Impact",
}

// AssetCriteria names the nine criteria scored once per asset.
// Indices 0-3 feed the likelihood aggregate, 4-8 the impact aggregate.
var AssetCriteria = []string{
	"Dependency",
	"Penetration",
	"Cyber Maturity",
	"Trust",
	"Performance",
	"Schedule",
	"Costs",
	"Reputation",
	"Recovery",
}

// Criterion index subsets feeding each aggregate, per context kind.
var (
	ThreatLikelihoodIndexes = []int{0, 1, 2, 3, 4}
	ThreatImpactIndexes     = []int{5, 6}
	AssetLikelihoodIndexes  = []int{0, 1, 2, 3}
	AssetImpactIndexes      = []int{4, 5, 6, 7, 8}
)

// threatCriterionKeys are the short names controls use to reference threat
// criteria, by index.
var threatCriterionKeys = []string{
	"vulnerability", "mitigation", "detection", "access",
	"privilege", "response", "resilience",
}

// ResolveCriteria parses a control's free-text criteria declaration into
// threat-criterion indices.  Tokens are comma-separated and matched
// case-insensitively: a token resolves to an index when it is a prefix of the
// full criterion name or starts with the criterion's short key.  Unknown
// tokens are dropped; the result is sorted and duplicate-free.
func ResolveCriteria(text string) []int {
	seen := make(map[int]struct{})
	for _, raw := range strings.Split(text, ",") {
		tok := strings.ToLower(strings.TrimSpace(raw))
		if tok == "" {
			continue
		}
		for i, full := range ThreatCriteria {
			if strings.HasPrefix(strings.ToLower(full), tok) ||
				strings.HasPrefix(tok, threatCriterionKeys[i]) {
				seen[i] = struct{}{}
			}
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
