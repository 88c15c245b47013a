package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appassessment "github.com/orbitsec/spacerisk/internal/application/assessment"
	"github.com/orbitsec/spacerisk/internal/application/controls"
	"github.com/orbitsec/spacerisk/internal/application/rollup"
	domainassessment "github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/internal/infrastructure/catalog/csvcatalog"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
	"github.com/orbitsec/spacerisk/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memSnapshotRepo is an in-memory snapshot store for handler tests.
type memSnapshotRepo struct {
	snaps map[string]*appassessment.Snapshot
}

func newMemSnapshotRepo() *memSnapshotRepo {
	return &memSnapshotRepo{snaps: make(map[string]*appassessment.Snapshot)}
}

func (r *memSnapshotRepo) Save(_ context.Context, snap *appassessment.Snapshot) error {
	clone := *snap
	r.snaps[snap.Name] = &clone
	return nil
}

func (r *memSnapshotRepo) Load(_ context.Context, name string) (*appassessment.Snapshot, error) {
	snap, ok := r.snaps[name]
	if !ok {
		return nil, errors.NotFound("snapshot " + name + " not found")
	}
	clone := *snap
	return &clone, nil
}

func (r *memSnapshotRepo) List(_ context.Context) ([]appassessment.SnapshotInfo, error) {
	infos := make([]appassessment.SnapshotInfo, 0, len(r.snaps))
	for _, snap := range r.snaps {
		infos = append(infos, appassessment.SnapshotInfo{
			ID: snap.ID, Name: snap.Name, CreatedAt: snap.CreatedAt, Count: len(snap.Scores),
		})
	}
	return infos, nil
}

type testAPI struct {
	router    *gin.Engine
	store     *domainassessment.Store
	engine    *controls.Engine
	snapshot  *memSnapshotRepo
	collector prometheus.MetricsCollector
	metrics   *prometheus.AppMetrics
}

// jamming control touching detection+mitigation criteria on space assets.
func testControls() []catalog.Control {
	return []catalog.Control{{
		ID:               "SR-001",
		Title:            "Uplink signal authentication",
		Criteria:         "Detection, Mitigation",
		ThreatsAddressed: "Jamming",
		Segment:          "Space",
	}}
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cats := csvcatalog.NewCatalogs(catalog.DefaultAssets(), catalog.DefaultThreats(), testControls())
	store := domainassessment.NewStore()
	snaps := newMemSnapshotRepo()

	svc := appassessment.NewService(store, cats.Assets(), snaps, nil, nil)
	engine := controls.NewEngine(store, cats.Controls(), cats.Assets(), cats.Threats(), nil, nil)
	rollups := rollup.NewService(store, cats.Assets(), cats.Threats(), nil)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "spacerisk"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)

	var mu sync.Mutex
	router := gin.New()
	api := router.Group("/api/v1")

	score := NewScoreHandler(svc, &mu).WithMetrics(metrics)
	api.PUT("/scores", score.Set)
	api.GET("/scores", score.Get)
	api.DELETE("/scores", score.Remove)
	api.GET("/scores/aggregate", score.Aggregate)
	api.POST("/scores/clear", score.Clear)
	api.GET("/analyzed/assets", score.AnalyzedAssets)
	api.GET("/analyzed/threats", score.AnalyzedThreats)

	ctl := NewControlHandler(engine, cats.Controls(), &mu).WithMetrics(metrics)
	api.GET("/controls", ctl.List)
	api.GET("/controls/applied", ctl.Applied)
	api.POST("/controls/clear", ctl.Clear)
	api.GET("/controls/:id", ctl.Get)
	api.POST("/controls/:id/apply", ctl.Apply)
	api.POST("/controls/:id/remove", ctl.Remove)
	api.GET("/threats/:name/controls", ctl.ForThreat)

	roll := NewRollupHandler(rollups, &mu).WithMetrics(metrics)
	api.GET("/rollup/summary", roll.Summary)
	api.GET("/rollup/threats/:name", roll.ForThreat)

	cat := NewCatalogHandler(cats.Assets(), cats.Threats())
	api.GET("/catalog/assets", cat.Assets)
	api.GET("/catalog/threats", cat.Threats)
	api.GET("/catalog/criteria", cat.Criteria)

	snap := NewSnapshotHandler(svc, engine, &mu).WithMetrics(metrics)
	api.GET("/snapshots", snap.List)
	api.POST("/snapshots", snap.Save)
	api.POST("/snapshots/:name/load", snap.Load)

	return &testAPI{router: router, store: store, engine: engine, snapshot: snaps, collector: collector, metrics: metrics}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

func (a *testAPI) putScore(t *testing.T, threat string, asset, criterion, score int) {
	t.Helper()
	rec := a.do(t, http.MethodPut, "/api/v1/scores", SetScoreRequest{
		Threat: threat, Asset: asset, Criterion: criterion, Score: score,
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
}

func TestScoreHandler_SetAndGet(t *testing.T) {
	api := newTestAPI(t)

	api.putScore(t, "Jamming", 2, 1, 4)

	rec := api.do(t, http.MethodGet, "/api/v1/scores?threat=Jamming&asset=2&criterion=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Present bool `json:"present"`
		Score   int  `json:"score"`
	}
	decode(t, rec, &body)
	assert.True(t, body.Present)
	assert.Equal(t, 4, body.Score)
}

func TestScoreHandler_RejectsInvalidScore(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/scores", SetScoreRequest{
		Threat: "Jamming", Asset: 2, Criterion: 1, Score: 6,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, errors.ErrCodeInvalidScore.String(), body.Code)
}

func TestScoreHandler_RejectsUnknownAsset(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/scores", SetScoreRequest{
		Threat: "Jamming", Asset: 99, Criterion: 1, Score: 3,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScoreHandler_RemoveReportsPresence(t *testing.T) {
	api := newTestAPI(t)
	api.putScore(t, "Jamming", 2, 1, 4)

	rec := api.do(t, http.MethodDelete, "/api/v1/scores?threat=Jamming&asset=2&criterion=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Removed bool `json:"removed"`
	}
	decode(t, rec, &body)
	assert.True(t, body.Removed)

	rec = api.do(t, http.MethodDelete, "/api/v1/scores?threat=Jamming&asset=2&criterion=1", nil)
	decode(t, rec, &body)
	assert.False(t, body.Removed)
}

func TestScoreHandler_RemoveRequiresParams(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodDelete, "/api/v1/scores?asset=2", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodDelete, "/api/v1/scores?asset=two&criterion=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreHandler_Aggregate(t *testing.T) {
	api := newTestAPI(t)
	api.putScore(t, "Jamming", 2, 0, 3)
	api.putScore(t, "Jamming", 2, 5, 5)

	rec := api.do(t, http.MethodGet, "/api/v1/scores/aggregate?threat=Jamming&asset=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var agg appassessment.Aggregates
	decode(t, rec, &agg)
	assert.True(t, agg.Likelihood.Defined)
	assert.True(t, agg.Impact.Defined)
	assert.InDelta(t, 1.0, agg.Impact.Value, 1e-9)
}

func TestScoreHandler_AggregateUndefinedIsNotAnError(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/scores/aggregate?threat=Jamming&asset=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var agg appassessment.Aggregates
	decode(t, rec, &agg)
	assert.False(t, agg.Likelihood.Defined)
	assert.False(t, agg.Impact.Defined)
}

func TestScoreHandler_AnalyzedListings(t *testing.T) {
	api := newTestAPI(t)
	api.putScore(t, "Jamming", 7, 0, 3)
	api.putScore(t, "Jamming", 2, 0, 3)
	api.putScore(t, "", 2, 0, 3)

	rec := api.do(t, http.MethodGet, "/api/v1/analyzed/assets?threat=Jamming", nil)
	var assets struct {
		Assets []int `json:"assets"`
	}
	decode(t, rec, &assets)
	assert.Equal(t, []int{2, 7}, assets.Assets)

	rec = api.do(t, http.MethodGet, "/api/v1/analyzed/threats", nil)
	var threats struct {
		Threats []string `json:"threats"`
	}
	decode(t, rec, &threats)
	assert.Equal(t, []string{"Jamming"}, threats.Threats)
}

func TestScoreHandler_Clear(t *testing.T) {
	api := newTestAPI(t)
	api.putScore(t, "Jamming", 2, 1, 4)

	rec := api.do(t, http.MethodPost, "/api/v1/scores/clear", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, api.store.Len())
}

func TestControlHandler_ApplyRemoveRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	// existing score on a space asset, detection criterion
	api.putScore(t, "Jamming", 7, 2, 4)

	rec := api.do(t, http.MethodPost, "/api/v1/controls/SR-001/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var effect controls.Effect
	decode(t, rec, &effect)
	assert.Equal(t, "SR-001", effect.ControlID)
	assert.Equal(t, 1, effect.Touched)

	rec = api.do(t, http.MethodGet, "/api/v1/controls/applied", nil)
	var applied struct {
		Applied []string `json:"applied"`
	}
	decode(t, rec, &applied)
	assert.Equal(t, []string{"SR-001"}, applied.Applied)

	rec = api.do(t, http.MethodPost, "/api/v1/controls/SR-001/remove", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestControlHandler_DuplicateApplyConflicts(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/controls/SR-001/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/controls/SR-001/apply", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, errors.CodeDuplicateApply.String(), body.Code)
}

func TestControlHandler_UnknownControl(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/controls/NOPE/apply", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/v1/controls/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestControlHandler_ListAndForThreat(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/controls", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Total int `json:"total"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Total)

	rec = api.do(t, http.MethodGet, "/api/v1/threats/Jamming/controls", nil)
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Total)

	rec = api.do(t, http.MethodGet, "/api/v1/threats/Hijacking/controls", nil)
	decode(t, rec, &list)
	assert.Equal(t, 0, list.Total)
}

func TestControlHandler_Clear(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/v1/controls/SR-001/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/controls/clear", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, api.engine.Applied())
}

func TestRollupHandler_ForThreat(t *testing.T) {
	api := newTestAPI(t)
	// full aggregate set for asset 2 under Jamming
	api.putScore(t, "Jamming", 2, 0, 3)
	api.putScore(t, "Jamming", 2, 5, 3)
	api.putScore(t, "", 2, 0, 3)
	api.putScore(t, "", 2, 4, 3)

	rec := api.do(t, http.MethodGet, "/api/v1/rollup/threats/Jamming", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result rollup.Result
	decode(t, rec, &result)
	assert.False(t, result.Empty)
	assert.Equal(t, 2, result.Asset)
	assert.NotEmpty(t, result.Risk)
}

func TestRollupHandler_UnknownThreat(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/rollup/threats/Solar%20Flare", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRollupHandler_Summary(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/rollup/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Threats []rollup.Result `json:"threats"`
		Total   int             `json:"total"`
	}
	decode(t, rec, &body)
	assert.Equal(t, len(catalog.DefaultThreats()), body.Total)
	for _, row := range body.Threats {
		assert.True(t, row.Empty)
	}
}

func TestCatalogHandler_Assets(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/catalog/assets", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Assets []struct {
			Ordinal int    `json:"ordinal"`
			Label   string `json:"label"`
		} `json:"assets"`
		Total int `json:"total"`
	}
	decode(t, rec, &body)
	assert.Equal(t, len(catalog.DefaultAssets()), body.Total)
	assert.Equal(t, "Ground - Mission Control - Telemetry processing", body.Assets[2].Label)
}

func TestCatalogHandler_Criteria(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/api/v1/catalog/criteria?context=threat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Criteria []criterionView `json:"criteria"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Criteria, domainassessment.NumThreatCriteria)
	assert.Equal(t, "likelihood", body.Criteria[0].Kind)
	assert.Equal(t, "impact", body.Criteria[5].Kind)

	rec = api.do(t, http.MethodGet, "/api/v1/catalog/criteria?context=asset", nil)
	decode(t, rec, &body)
	require.Len(t, body.Criteria, domainassessment.NumAssetCriteria)
	assert.Equal(t, "impact", body.Criteria[4].Kind)

	rec = api.do(t, http.MethodGet, "/api/v1/catalog/criteria?context=orbit", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshotHandler_SaveLoadRoundTrip(t *testing.T) {
	api := newTestAPI(t)
	api.putScore(t, "Jamming", 7, 2, 4)
	rec := api.do(t, http.MethodPost, "/api/v1/controls/SR-001/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/v1/snapshots", SaveSnapshotRequest{Name: "baseline"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// mutate past the saved state
	rec = api.do(t, http.MethodPost, "/api/v1/controls/clear", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodPost, "/api/v1/scores/clear", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, 0, api.store.Len())

	rec = api.do(t, http.MethodPost, "/api/v1/snapshots/baseline/load", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, []string{"SR-001"}, api.engine.Applied())
	score, ok := api.store.Get(domainassessment.ThreatContext("Jamming"), 7, 2)
	require.True(t, ok)
	assert.Equal(t, 3, score)
}

func TestSnapshotHandler_LoadUnknown(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/snapshots/ghost/load", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshotHandler_List(t *testing.T) {
	api := newTestAPI(t)
	for i := 0; i < 2; i++ {
		rec := api.do(t, http.MethodPost, "/api/v1/snapshots", SaveSnapshotRequest{Name: fmt.Sprintf("snap-%d", i)})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/api/v1/snapshots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Total int `json:"total"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 2, body.Total)
}

func TestHealthHandler_Probes(t *testing.T) {
	router := gin.New()
	healthy := NewHealthHandler("test",
		HealthCheckFunc{ComponentName: "ok", Fn: func(context.Context) error { return nil }})
	router.GET("/healthz", healthy.Liveness)
	router.GET("/readyz", healthy.Readiness)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler_NotReady(t *testing.T) {
	router := gin.New()
	h := NewHealthHandler("test",
		HealthCheckFunc{ComponentName: "db", Fn: func(context.Context) error { return fmt.Errorf("connection refused") }})
	router.GET("/readyz", h.Readiness)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status     string                    `json:"status"`
		Components map[string]ComponentCheck `json:"components"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "unhealthy", body.Components["db"].Status)
}
