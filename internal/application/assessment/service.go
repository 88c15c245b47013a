// Package assessment provides the score write/read service over the domain
// score store, aggregate queries, and snapshot save/load.
package assessment

import (
	"context"
	"fmt"

	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/internal/domain/risk"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// EventSink receives assessment lifecycle events.  A nil sink disables
// emission.
type EventSink interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// ScoreUpdate is the payload emitted on every score mutation.
type ScoreUpdate struct {
	Threat    string `json:"threat,omitempty"`
	Asset     int    `json:"asset"`
	Criterion int    `json:"criterion"`
	Score     int    `json:"score,omitempty"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// AggregateResult is one aggregate query answer.  Defined is false when the
// subset holds no scores; Value and Category are then zero values and callers
// surface empty fields, never an error.
type AggregateResult struct {
	Defined  bool          `json:"defined"`
	Value    float64       `json:"value,omitempty"`
	Category risk.Category `json:"category,omitempty"`
}

// Aggregates pairs the likelihood and impact answers for one asset in one
// context.
type Aggregates struct {
	Likelihood AggregateResult `json:"likelihood"`
	Impact     AggregateResult `json:"impact"`
}

// Service is the application-layer facade over the criterion score store.
// Like the store it fronts, it is single-actor; callers serialize access.
type Service struct {
	store  *assessment.Store
	assets catalog.AssetRepository
	snaps  SnapshotRepository
	logger logging.Logger
	events EventSink
}

// NewService constructs the assessment service.  snaps and events may be nil;
// snapshot operations then fail with an invalid-state error and no events are
// emitted.
func NewService(
	store *assessment.Store,
	assets catalog.AssetRepository,
	snaps SnapshotRepository,
	logger logging.Logger,
	events EventSink,
) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		store:  store,
		assets: assets,
		snaps:  snaps,
		logger: logger.Named("assessment"),
		events: events,
	}
}

// Store exposes the underlying score store for collaborating services.
func (s *Service) Store() *assessment.Store { return s.store }

// SetScore validates the asset ordinal against the catalog and records the
// score.  threat is empty for the asset-assessment context.  Rejected writes
// mutate nothing.
func (s *Service) SetScore(ctx context.Context, threat string, asset, criterion, score int) error {
	if _, err := s.assets.ByOrdinal(ctx, asset); err != nil {
		return errors.Wrap(err, errors.CodeUnknown,
			fmt.Sprintf("asset ordinal %d not in catalog", asset))
	}
	sctx := assessment.Context{Threat: threat}
	if err := s.store.Set(sctx, asset, criterion, score); err != nil {
		return err
	}
	s.logger.Debug("score set",
		logging.String("context", sctx.String()),
		logging.Int("asset", asset),
		logging.Int("criterion", criterion),
		logging.Int("score", score))
	s.emit(ctx, "assessment.updated", ScoreUpdate{
		Threat: threat, Asset: asset, Criterion: criterion, Score: score,
	})
	return nil
}

// RemoveScore deletes the score at (threat, asset, criterion), reporting
// whether one was present.
func (s *Service) RemoveScore(ctx context.Context, threat string, asset, criterion int) bool {
	sctx := assessment.Context{Threat: threat}
	if !s.store.Delete(sctx, asset, criterion) {
		return false
	}
	s.emit(ctx, "assessment.updated", ScoreUpdate{
		Threat: threat, Asset: asset, Criterion: criterion, Deleted: true,
	})
	return true
}

// Score returns the recorded score at (threat, asset, criterion) and whether
// one exists.
func (s *Service) Score(threat string, asset, criterion int) (int, bool) {
	return s.store.Get(assessment.Context{Threat: threat}, asset, criterion)
}

// Aggregate computes the likelihood and impact aggregates for one asset in
// the given context.  Empty subsets yield undefined results, never errors.
func (s *Service) Aggregate(threat string, asset int) Aggregates {
	sctx := assessment.Context{Threat: threat}
	return Aggregates{
		Likelihood: aggregate(s.store.LikelihoodScores(sctx, asset)),
		Impact:     aggregate(s.store.ImpactScores(sctx, asset)),
	}
}

func aggregate(scores []int) AggregateResult {
	v, ok := risk.Aggregate(scores)
	if !ok {
		return AggregateResult{}
	}
	return AggregateResult{Defined: true, Value: v, Category: risk.Categorize(v)}
}

// AnalyzedAssets returns the sorted ordinals with at least one recorded score
// in the given context.
func (s *Service) AnalyzedAssets(threat string) []int {
	return s.store.AnalyzedAssets(assessment.Context{Threat: threat})
}

// AnalyzedThreats returns the sorted names of threats with recorded scores.
func (s *Service) AnalyzedThreats() []string {
	return s.store.AnalyzedThreats()
}

// Clear drops every recorded score.
func (s *Service) Clear(ctx context.Context) {
	s.store.Clear()
	s.emit(ctx, "assessment.cleared", struct{}{})
}

func (s *Service) emit(ctx context.Context, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn("failed to publish assessment event",
			logging.String("event_type", eventType),
			logging.Err(err))
	}
}
