package controls

import (
	"context"
	"fmt"

	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

// EventSink receives control lifecycle events.  The Kafka producer satisfies
// it in production; a nil sink disables event emission.
type EventSink interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Effect summarizes what one apply or remove operation touched.
type Effect struct {
	ControlID string   `json:"control_id"`
	Threats   []string `json:"threats"`
	Criteria  []int    `json:"criteria"`
	Assets    []int    `json:"assets"`
	Touched   int      `json:"touched"`
}

// Engine owns the applied-control set and is the only mutator of criterion
// scores besides direct score writes.  It is single-actor: callers serialize
// access, the engine performs no locking and caches no rollups.
type Engine struct {
	store    *assessment.Store
	controls catalog.ControlRepository
	assets   catalog.AssetRepository
	threats  catalog.ThreatRepository
	applied  []string
	logger   logging.Logger
	events   EventSink
}

// NewEngine constructs a control effect engine.  events may be nil.
func NewEngine(
	store *assessment.Store,
	controls catalog.ControlRepository,
	assets catalog.AssetRepository,
	threats catalog.ThreatRepository,
	logger logging.Logger,
	events EventSink,
) *Engine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Engine{
		store:    store,
		controls: controls,
		assets:   assets,
		threats:  threats,
		logger:   logger.Named("controls"),
		events:   events,
	}
}

// Applied returns the applied control ids in application order.
func (e *Engine) Applied() []string {
	out := make([]string, len(e.applied))
	copy(out, e.applied)
	return out
}

// RestoreApplied replaces the applied set without shifting any score.  Used
// when loading a snapshot whose scores already reflect the applied controls.
func (e *Engine) RestoreApplied(ids []string) {
	e.applied = make([]string, len(ids))
	copy(e.applied, ids)
}

// IsApplied reports whether the control id is currently applied.
func (e *Engine) IsApplied(id string) bool {
	for _, a := range e.applied {
		if a == id {
			return true
		}
	}
	return false
}

// Apply applies the control's effect: for every matched threat, resolved
// criterion index, and compatible asset ordinal, the existing score at that
// triple is decremented by 1, floored at 1.  Scores are never created.  The
// control id is then appended to the applied set.
//
// Returns CTL_002 DuplicateApply when already applied and CTL_001 when the id
// is unknown.  A control that resolves to no threats, criteria, or assets
// applies successfully with zero effect; the gap is logged, not failed.
func (e *Engine) Apply(ctx context.Context, id string) (*Effect, error) {
	if e.IsApplied(id) {
		return nil, errors.New(errors.CodeDuplicateApply,
			fmt.Sprintf("control %s is already applied", id))
	}

	effect, err := e.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	effect.Touched = e.shift(effect, -1)
	e.applied = append(e.applied, id)

	e.logger.Info("control applied",
		logging.String("control_id", id),
		logging.Int("touched", effect.Touched),
		logging.Int("threats", len(effect.Threats)),
		logging.Int("assets", len(effect.Assets)))
	e.emit(ctx, "control.applied", effect)
	return effect, nil
}

// Remove reverses a previously applied control by incrementing the same
// triples by 1, capped at 5, then erasing the id from the applied set.
// Returns CTL_003 NotApplied when the control is not a member.
//
// Reversal is exact only when no floor or cap fired during the lifetime of
// the application; the engine keeps no per-control delta ledger.
func (e *Engine) Remove(ctx context.Context, id string) (*Effect, error) {
	if !e.IsApplied(id) {
		return nil, errors.New(errors.CodeNotApplied,
			fmt.Sprintf("control %s is not applied", id))
	}

	effect, err := e.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	effect.Touched = e.shift(effect, +1)
	e.erase(id)

	e.logger.Info("control removed",
		logging.String("control_id", id),
		logging.Int("touched", effect.Touched))
	e.emit(ctx, "control.removed", effect)
	return effect, nil
}

// ClearAll removes every applied control.  A control whose removal fails
// keeps its membership, since its score shifts were never reversed; the
// first failure is returned after the remaining controls are attempted.
func (e *Engine) ClearAll(ctx context.Context) error {
	var firstErr error
	for _, id := range e.Applied() {
		if _, err := e.Remove(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// resolve loads the control and computes its threat, criterion, and asset
// targets.
func (e *Engine) resolve(ctx context.Context, id string) (*Effect, error) {
	control, err := e.controls.ByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeControlNotFound,
			fmt.Sprintf("control %s not found", id))
	}

	assets, err := e.assets.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to load asset catalog")
	}
	threats, err := e.threats.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "failed to load threat catalog")
	}

	effect := &Effect{
		ControlID: id,
		Threats:   MatchDeclaredThreats(control.ThreatsAddressed, threats),
		Criteria:  assessment.ResolveCriteria(control.Criteria),
		Assets:    ResolveSegments(control.Segment, assets),
	}

	if len(effect.Threats) == 0 {
		e.logger.Warn("control matches no threats",
			logging.String("control_id", id),
			logging.String("declared", control.ThreatsAddressed))
	}
	if len(effect.Criteria) == 0 {
		e.logger.Warn("control names no known criterion",
			logging.String("control_id", id),
			logging.String("criteria", control.Criteria))
	}
	if len(effect.Assets) == 0 {
		e.logger.Warn("control segment resolves to no assets",
			logging.String("control_id", id),
			logging.String("segment", control.Segment))
	}
	return effect, nil
}

// shift adjusts every existing score in the effect's threat × criterion ×
// asset cross product by delta and returns how many triples held a score.
func (e *Engine) shift(effect *Effect, delta int) int {
	touched := 0
	for _, threat := range effect.Threats {
		ctx := assessment.ThreatContext(threat)
		for _, criterion := range effect.Criteria {
			for _, asset := range effect.Assets {
				if e.store.Adjust(ctx, asset, criterion, delta) {
					touched++
				}
			}
		}
	}
	return touched
}

func (e *Engine) erase(id string) {
	for i, a := range e.applied {
		if a == id {
			e.applied = append(e.applied[:i], e.applied[i+1:]...)
			return
		}
	}
}

func (e *Engine) emit(ctx context.Context, eventType string, payload interface{}) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, eventType, payload); err != nil {
		e.logger.Warn("failed to publish control event",
			logging.String("event_type", eventType),
			logging.Err(err))
	}
}
