package controls

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

type stubAssetRepo struct{ assets []catalog.Asset }

func (r *stubAssetRepo) List(context.Context) ([]catalog.Asset, error) { return r.assets, nil }

func (r *stubAssetRepo) ByOrdinal(_ context.Context, ordinal int) (catalog.Asset, error) {
	if ordinal < 0 || ordinal >= len(r.assets) {
		return catalog.Asset{}, errors.NotFound(fmt.Sprintf("asset %d", ordinal))
	}
	return r.assets[ordinal], nil
}

type stubThreatRepo struct{ threats []catalog.Threat }

func (r *stubThreatRepo) List(context.Context) ([]catalog.Threat, error) { return r.threats, nil }

func (r *stubThreatRepo) ByName(_ context.Context, name string) (catalog.Threat, error) {
	for _, th := range r.threats {
		if th.Name == name {
			return th, nil
		}
	}
	return catalog.Threat{}, errors.NotFound(fmt.Sprintf("threat %q", name))
}

type stubControlRepo struct{ controls []catalog.Control }

func (r *stubControlRepo) List(context.Context) ([]catalog.Control, error) { return r.controls, nil }

func (r *stubControlRepo) ByID(_ context.Context, id string) (catalog.Control, error) {
	for _, c := range r.controls {
		if c.ID == id {
			return c, nil
		}
	}
	return catalog.Control{}, errors.New(errors.CodeControlNotFound,
		fmt.Sprintf("control %s not found", id))
}

func (r *stubControlRepo) ForThreat(_ context.Context, threatName string) ([]catalog.Control, error) {
	var out []catalog.Control
	for _, c := range r.controls {
		if c.Addresses(threatName) {
			out = append(out, c)
		}
	}
	return out, nil
}

type recordingSink struct {
	events []string
}

func (s *recordingSink) Publish(_ context.Context, eventType string, _ interface{}) error {
	s.events = append(s.events, eventType)
	return nil
}

// newTestEngine wires an engine over the default catalogs plus the given
// controls, returning the engine, its store, and the event sink.
func newTestEngine(controls ...catalog.Control) (*Engine, *assessment.Store, *recordingSink) {
	store := assessment.NewStore()
	sink := &recordingSink{}
	engine := NewEngine(
		store,
		&stubControlRepo{controls: controls},
		&stubAssetRepo{assets: catalog.DefaultAssets()},
		&stubThreatRepo{threats: catalog.DefaultThreats()},
		nil,
		sink,
	)
	return engine, store, sink
}

// jammingControl targets criterion indices 1 and 2 on space assets 7 and 8.
func jammingControl(id string) catalog.Control {
	return catalog.Control{
		ID:               id,
		Title:            "Uplink encryption",
		Criteria:         "Detection, Mitigation",
		ThreatsAddressed: "Jamming",
		Segment:          "Space",
	}
}

func TestEngine_Apply(t *testing.T) {
	engine, store, sink := newTestEngine(jammingControl("C-01"))
	ctx := context.Background()
	tctx := assessment.ThreatContext("Jamming")

	require.NoError(t, store.Set(tctx, 7, 1, 3))
	require.NoError(t, store.Set(tctx, 7, 2, 1))
	require.NoError(t, store.Set(tctx, 8, 1, 5))
	// criterion outside the control's reach stays untouched
	require.NoError(t, store.Set(tctx, 7, 0, 4))

	effect, err := engine.Apply(ctx, "C-01")
	require.NoError(t, err)

	assert.Equal(t, "C-01", effect.ControlID)
	assert.Equal(t, []string{"Jamming"}, effect.Threats)
	assert.Equal(t, []int{1, 2}, effect.Criteria)
	assert.Equal(t, []int{7, 8}, effect.Assets)
	assert.Equal(t, 3, effect.Touched)

	got := func(asset, criterion int) int {
		v, ok := store.Get(tctx, asset, criterion)
		require.True(t, ok)
		return v
	}
	assert.Equal(t, 2, got(7, 1))
	assert.Equal(t, 1, got(7, 2), "score already at the floor stays at 1")
	assert.Equal(t, 4, got(8, 1))
	assert.Equal(t, 4, got(7, 0), "criterion outside the control is untouched")

	// absent triples are never created
	_, ok := store.Get(tctx, 8, 2)
	assert.False(t, ok)

	assert.True(t, engine.IsApplied("C-01"))
	assert.Equal(t, []string{"C-01"}, engine.Applied())
	assert.Equal(t, []string{"control.applied"}, sink.events)
}

func TestEngine_Apply_Duplicate(t *testing.T) {
	engine, store, _ := newTestEngine(jammingControl("C-01"))
	ctx := context.Background()
	require.NoError(t, store.Set(assessment.ThreatContext("Jamming"), 7, 1, 4))

	_, err := engine.Apply(ctx, "C-01")
	require.NoError(t, err)

	_, err = engine.Apply(ctx, "C-01")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDuplicateApply))

	// the score moved exactly once
	v, _ := store.Get(assessment.ThreatContext("Jamming"), 7, 1)
	assert.Equal(t, 3, v)
}

func TestEngine_Apply_UnknownControl(t *testing.T) {
	engine, _, sink := newTestEngine()

	_, err := engine.Apply(context.Background(), "C-99")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeControlNotFound))
	assert.Empty(t, engine.Applied())
	assert.Empty(t, sink.events)
}

func TestEngine_Apply_ZeroEffect(t *testing.T) {
	engine, _, _ := newTestEngine(catalog.Control{
		ID:               "C-02",
		Criteria:         "Telepathy",
		ThreatsAddressed: "Solar Flare",
		Segment:          "Atlantis",
	})

	effect, err := engine.Apply(context.Background(), "C-02")
	require.NoError(t, err)
	assert.Zero(t, effect.Touched)
	assert.Empty(t, effect.Threats)
	assert.Empty(t, effect.Criteria)
	assert.Empty(t, effect.Assets)
	assert.True(t, engine.IsApplied("C-02"))
}

func TestEngine_Remove(t *testing.T) {
	engine, store, sink := newTestEngine(jammingControl("C-01"))
	ctx := context.Background()
	tctx := assessment.ThreatContext("Jamming")

	require.NoError(t, store.Set(tctx, 7, 1, 3))
	require.NoError(t, store.Set(tctx, 8, 2, 4))

	_, err := engine.Apply(ctx, "C-01")
	require.NoError(t, err)

	effect, err := engine.Remove(ctx, "C-01")
	require.NoError(t, err)
	assert.Equal(t, 2, effect.Touched)
	assert.False(t, engine.IsApplied("C-01"))
	assert.Empty(t, engine.Applied())

	// apply then remove round-trips when no clamp fired
	v, _ := store.Get(tctx, 7, 1)
	assert.Equal(t, 3, v)
	v, _ = store.Get(tctx, 8, 2)
	assert.Equal(t, 4, v)

	assert.Equal(t, []string{"control.applied", "control.removed"}, sink.events)
}

func TestEngine_Remove_CapsAtMax(t *testing.T) {
	engine, store, _ := newTestEngine(jammingControl("C-01"))
	ctx := context.Background()
	tctx := assessment.ThreatContext("Jamming")

	// a score at the floor absorbs the decrement, so removal overshoots
	// its pre-apply value but never the cap
	require.NoError(t, store.Set(tctx, 7, 1, 1))
	require.NoError(t, store.Set(tctx, 7, 2, 5))

	_, err := engine.Apply(ctx, "C-01")
	require.NoError(t, err)
	v, _ := store.Get(tctx, 7, 2)
	assert.Equal(t, 4, v)

	_, err = engine.Remove(ctx, "C-01")
	require.NoError(t, err)

	v, _ = store.Get(tctx, 7, 1)
	assert.Equal(t, 2, v)
	v, _ = store.Get(tctx, 7, 2)
	assert.Equal(t, 5, v)
}

func TestEngine_Remove_NotApplied(t *testing.T) {
	engine, _, _ := newTestEngine(jammingControl("C-01"))

	_, err := engine.Remove(context.Background(), "C-01")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotApplied))
}

func TestEngine_ClearAll(t *testing.T) {
	engine, store, _ := newTestEngine(
		jammingControl("C-01"),
		catalog.Control{
			ID:               "C-03",
			Criteria:         "Access Complexity",
			ThreatsAddressed: "Replay",
			Segment:          "Ground Stations",
		},
	)
	ctx := context.Background()

	require.NoError(t, store.Set(assessment.ThreatContext("Jamming"), 7, 1, 3))
	require.NoError(t, store.Set(assessment.ThreatContext("Replay"), 0, 3, 4))

	_, err := engine.Apply(ctx, "C-01")
	require.NoError(t, err)
	_, err = engine.Apply(ctx, "C-03")
	require.NoError(t, err)
	require.Len(t, engine.Applied(), 2)

	require.NoError(t, engine.ClearAll(ctx))
	assert.Empty(t, engine.Applied())

	v, _ := store.Get(assessment.ThreatContext("Jamming"), 7, 1)
	assert.Equal(t, 3, v)
	v, _ = store.Get(assessment.ThreatContext("Replay"), 0, 3)
	assert.Equal(t, 4, v)
}

// flakyControlRepo fails lookups for one id, standing in for a database
// backend losing a row between apply and removal.
type flakyControlRepo struct {
	stubControlRepo
	failID string
}

func (r *flakyControlRepo) ByID(ctx context.Context, id string) (catalog.Control, error) {
	if id == r.failID {
		return catalog.Control{}, errors.New(errors.ErrCodeDatabaseError,
			fmt.Sprintf("control %s lookup failed", id))
	}
	return r.stubControlRepo.ByID(ctx, id)
}

func TestEngine_ClearAll_KeepsControlsWhoseRemovalFailed(t *testing.T) {
	repo := &flakyControlRepo{stubControlRepo: stubControlRepo{controls: []catalog.Control{
		jammingControl("C-01"),
		jammingControl("C-02"),
	}}}
	store := assessment.NewStore()
	engine := NewEngine(store, repo,
		&stubAssetRepo{assets: catalog.DefaultAssets()},
		&stubThreatRepo{threats: catalog.DefaultThreats()},
		nil, nil)
	ctx := context.Background()

	require.NoError(t, store.Set(assessment.ThreatContext("Jamming"), 7, 1, 4))

	_, err := engine.Apply(ctx, "C-01")
	require.NoError(t, err)
	_, err = engine.Apply(ctx, "C-02")
	require.NoError(t, err)

	repo.failID = "C-01"
	err = engine.ClearAll(ctx)
	require.Error(t, err)

	// C-01's score shifts were never reversed, so it stays a member and a
	// later ClearAll can retry it.
	assert.Equal(t, []string{"C-01"}, engine.Applied())

	repo.failID = ""
	require.NoError(t, engine.ClearAll(ctx))
	assert.Empty(t, engine.Applied())
	v, _ := store.Get(assessment.ThreatContext("Jamming"), 7, 1)
	assert.Equal(t, 4, v)
}
