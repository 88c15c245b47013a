// Package rollup computes per-threat risk rollups and the all-threat summary
// over the assessment score store.  Every call recomputes from the store;
// nothing is cached.
package rollup

import (
	"context"

	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/internal/domain/risk"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// Result is one threat's rollup: the maximum combined risk across its
// assessed assets, together with the asset that produced it.  Empty when no
// asset qualifies.
type Result struct {
	Threat     string        `json:"threat"`
	Empty      bool          `json:"empty"`
	Asset      int           `json:"asset,omitempty"`
	AssetLabel string        `json:"asset_label,omitempty"`
	Likelihood risk.Category `json:"likelihood,omitempty"`
	Impact     risk.Category `json:"impact,omitempty"`
	Risk       risk.Category `json:"risk,omitempty"`
}

// Service derives rollups from the score store and catalogs.
type Service struct {
	store   *assessment.Store
	assets  catalog.AssetRepository
	threats catalog.ThreatRepository
	logger  logging.Logger
}

// NewService constructs the rollup service.
func NewService(
	store *assessment.Store,
	assets catalog.AssetRepository,
	threats catalog.ThreatRepository,
	logger logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		store:   store,
		assets:  assets,
		threats: threats,
		logger:  logger.Named("rollup"),
	}
}

// ForThreat computes the rollup for one threat.
//
// Asset ordinals are walked ascending.  An asset qualifies when it has at
// least one score in the threat context and all four aggregates — threat and
// asset likelihood, threat and asset impact — are defined.  Per qualifying
// asset, combined likelihood and impact each compose the threat-context
// category with the asset-context category, and risk derives from the pair.
// The strictly greater risk wins; ties keep the earlier ordinal.
func (s *Service) ForThreat(ctx context.Context, threatName string) (Result, error) {
	if _, err := s.threats.ByName(ctx, threatName); err != nil {
		return Result{}, errors.Wrap(err, errors.CodeUnknown,
			"threat not in catalog: "+threatName)
	}

	result := Result{Threat: threatName, Empty: true}
	tctx := assessment.ThreatContext(threatName)
	actx := assessment.AssetContext()

	best := 0
	for _, ordinal := range s.store.AnalyzedAssets(tctx) {
		tl, ok := categoryOf(s.store.LikelihoodScores(tctx, ordinal))
		if !ok {
			continue
		}
		ti, ok := categoryOf(s.store.ImpactScores(tctx, ordinal))
		if !ok {
			continue
		}
		al, ok := categoryOf(s.store.LikelihoodScores(actx, ordinal))
		if !ok {
			continue
		}
		ai, ok := categoryOf(s.store.ImpactScores(actx, ordinal))
		if !ok {
			continue
		}

		likelihood := risk.ComposeSameKind(tl, al)
		impact := risk.ComposeSameKind(ti, ai)
		combined := risk.DeriveRisk(likelihood, impact)

		if combined.Priority() > best {
			best = combined.Priority()
			result.Empty = false
			result.Asset = ordinal
			result.Likelihood = likelihood
			result.Impact = impact
			result.Risk = combined
			if asset, err := s.assets.ByOrdinal(ctx, ordinal); err == nil {
				result.AssetLabel = asset.Label()
			}
		}
	}

	if result.Empty {
		s.logger.Debug("rollup empty", logging.String("threat", threatName))
	}
	return result, nil
}

// Summary computes the rollup for every threat in the catalog, in catalog
// order.  Threats with no qualifying asset appear as empty rows.
func (s *Service) Summary(ctx context.Context) ([]Result, error) {
	threats, err := s.threats.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to load threat catalog")
	}
	out := make([]Result, 0, len(threats))
	for _, th := range threats {
		r, err := s.ForThreat(ctx, th.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func categoryOf(scores []int) (risk.Category, bool) {
	v, ok := risk.Aggregate(scores)
	if !ok {
		return "", false
	}
	return risk.Categorize(v), true
}
