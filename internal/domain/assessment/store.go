package assessment

import (
	"fmt"
	"sort"

	"github.com/orbitsec/spacerisk/internal/domain/risk"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// Context identifies a score namespace.  The zero value is the single
// asset-assessment context; a non-empty Threat names a per-threat context.
type Context struct {
	Threat string
}

// AssetContext returns the asset-assessment context.
func AssetContext() Context { return Context{} }

// ThreatContext returns the context for scores recorded against a threat.
func ThreatContext(name string) Context { return Context{Threat: name} }

// IsAsset reports whether the context is the asset-assessment one.
func (c Context) IsAsset() bool { return c.Threat == "" }

func (c Context) String() string {
	if c.IsAsset() {
		return "asset"
	}
	return "threat:" + c.Threat
}

// criterionCount returns how many criteria the context kind carries.
func (c Context) criterionCount() int {
	if c.IsAsset() {
		return NumAssetCriteria
	}
	return NumThreatCriteria
}

// likelihoodIndexes returns the criterion indices feeding the likelihood
// aggregate for this context kind.
func (c Context) likelihoodIndexes() []int {
	if c.IsAsset() {
		return AssetLikelihoodIndexes
	}
	return ThreatLikelihoodIndexes
}

// impactIndexes returns the criterion indices feeding the impact aggregate.
func (c Context) impactIndexes() []int {
	if c.IsAsset() {
		return AssetImpactIndexes
	}
	return ThreatImpactIndexes
}

// scoreKey addresses one criterion score.
type scoreKey struct {
	ctx       Context
	asset     int
	criterion int
}

// Store is the in-memory criterion score store.  It is the single source of
// truth for every aggregate and rollup; queries always recompute from it.
// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	scores map[scoreKey]int
}

// NewStore returns an empty score store.
func NewStore() *Store {
	return &Store{scores: make(map[scoreKey]int)}
}

// Set records a score for (ctx, asset, criterion).  Scores outside [1, 5],
// negative ordinals, and out-of-range criterion indices are rejected with an
// InvalidScore or validation error, and the store is left untouched.
func (s *Store) Set(ctx Context, asset, criterion, score int) error {
	if !risk.ValidScore(score) {
		return errors.New(errors.CodeInvalidScore,
			fmt.Sprintf("score %d outside [%d, %d]", score, risk.MinScore, risk.MaxScore))
	}
	if asset < 0 {
		return errors.InvalidParam(fmt.Sprintf("asset ordinal %d is negative", asset))
	}
	if criterion < 0 || criterion >= ctx.criterionCount() {
		return errors.New(errors.ErrCodeUnknownCriterion,
			fmt.Sprintf("criterion index %d outside [0, %d) for %s context",
				criterion, ctx.criterionCount(), ctx))
	}
	s.scores[scoreKey{ctx, asset, criterion}] = score
	return nil
}

// Get returns the score at (ctx, asset, criterion) and whether it exists.
func (s *Store) Get(ctx Context, asset, criterion int) (int, bool) {
	v, ok := s.scores[scoreKey{ctx, asset, criterion}]
	return v, ok
}

// Delete removes the score at (ctx, asset, criterion), reporting whether one
// was present.
func (s *Store) Delete(ctx Context, asset, criterion int) bool {
	k := scoreKey{ctx, asset, criterion}
	_, ok := s.scores[k]
	delete(s.scores, k)
	return ok
}

// Adjust shifts an existing score by delta, clamped to [1, 5].  Scores are
// never created here; when no score exists at the key, Adjust reports false
// and changes nothing.
func (s *Store) Adjust(ctx Context, asset, criterion, delta int) bool {
	k := scoreKey{ctx, asset, criterion}
	v, ok := s.scores[k]
	if !ok {
		return false
	}
	v += delta
	if v < risk.MinScore {
		v = risk.MinScore
	}
	if v > risk.MaxScore {
		v = risk.MaxScore
	}
	s.scores[k] = v
	return true
}

// LikelihoodScores returns the recorded likelihood-subset scores for an asset
// in the given context, in criterion order.  Absent criteria are skipped.
func (s *Store) LikelihoodScores(ctx Context, asset int) []int {
	return s.collect(ctx, asset, ctx.likelihoodIndexes())
}

// ImpactScores returns the recorded impact-subset scores for an asset in the
// given context, in criterion order.
func (s *Store) ImpactScores(ctx Context, asset int) []int {
	return s.collect(ctx, asset, ctx.impactIndexes())
}

func (s *Store) collect(ctx Context, asset int, indexes []int) []int {
	out := make([]int, 0, len(indexes))
	for _, i := range indexes {
		if v, ok := s.scores[scoreKey{ctx, asset, i}]; ok {
			out = append(out, v)
		}
	}
	return out
}

// HasScores reports whether the asset has at least one recorded score in the
// given context.
func (s *Store) HasScores(ctx Context, asset int) bool {
	for i := 0; i < ctx.criterionCount(); i++ {
		if _, ok := s.scores[scoreKey{ctx, asset, i}]; ok {
			return true
		}
	}
	return false
}

// AnalyzedAssets returns the sorted ordinals of assets with at least one
// recorded score in the given context.
func (s *Store) AnalyzedAssets(ctx Context) []int {
	seen := make(map[int]struct{})
	for k := range s.scores {
		if k.ctx == ctx {
			seen[k.asset] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}

// AnalyzedThreats returns the sorted names of threats with at least one
// recorded score.
func (s *Store) AnalyzedThreats() []string {
	seen := make(map[string]struct{})
	for k := range s.scores {
		if !k.ctx.IsAsset() {
			seen[k.ctx.Threat] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of recorded scores.
func (s *Store) Len() int {
	return len(s.scores)
}

// ScoreRecord is the flat export form of one score, used for snapshots and
// persistence.
type ScoreRecord struct {
	Threat    string `json:"threat,omitempty"`
	Asset     int    `json:"asset"`
	Criterion int    `json:"criterion"`
	Score     int    `json:"score"`
}

// Export returns every score as a deterministic, sorted record slice.
func (s *Store) Export() []ScoreRecord {
	out := make([]ScoreRecord, 0, len(s.scores))
	for k, v := range s.scores {
		out = append(out, ScoreRecord{
			Threat:    k.ctx.Threat,
			Asset:     k.asset,
			Criterion: k.criterion,
			Score:     v,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Threat != out[j].Threat {
			return out[i].Threat < out[j].Threat
		}
		if out[i].Asset != out[j].Asset {
			return out[i].Asset < out[j].Asset
		}
		return out[i].Criterion < out[j].Criterion
	})
	return out
}

// Restore replaces the store contents with the given records.  Invalid
// records abort the restore with an error and leave the store unchanged.
func (s *Store) Restore(records []ScoreRecord) error {
	fresh := NewStore()
	for _, r := range records {
		if err := fresh.Set(Context{Threat: r.Threat}, r.Asset, r.Criterion, r.Score); err != nil {
			return errors.Wrap(err, errors.CodeUnknown,
				fmt.Sprintf("invalid snapshot record (threat=%q asset=%d criterion=%d)",
					r.Threat, r.Asset, r.Criterion))
		}
	}
	s.scores = fresh.scores
	return nil
}

// Clear removes every recorded score.
func (s *Store) Clear() {
	s.scores = make(map[scoreKey]int)
}
