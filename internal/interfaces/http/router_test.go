package http

import (
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
	"github.com/orbitsec/spacerisk/internal/interfaces/http/handlers"
	"github.com/orbitsec/spacerisk/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cats := csvcatalog.NewCatalogs(catalog.DefaultAssets(), catalog.DefaultThreats(), nil)
	store := domainassessment.NewStore()
	svc := appassessment.NewService(store, cats.Assets(), nil, nil, nil)
	engine := controls.NewEngine(store, cats.Controls(), cats.Assets(), cats.Threats(), nil, nil)
	rollups := rollup.NewService(store, cats.Assets(), cats.Threats(), nil)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "spacerisk"}, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	logCfg := middleware.DefaultLoggingConfig()
	cors := middleware.DefaultCORSConfig()

	return NewRouter(RouterConfig{
		ScoreHandler:     handlers.NewScoreHandler(svc, &mu),
		ControlHandler:   handlers.NewControlHandler(engine, cats.Controls(), &mu),
		RollupHandler:    handlers.NewRollupHandler(rollups, &mu),
		CatalogHandler:   handlers.NewCatalogHandler(cats.Assets(), cats.Threats()),
		SnapshotHandler:  handlers.NewSnapshotHandler(svc, engine, &mu),
		HealthHandler:    handlers.NewHealthHandler("test"),
		Logging:          &logCfg,
		CORS:             &cors,
		Metrics:          prometheus.NewAppMetrics(collector),
		MetricsCollector: collector,
	})
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewRouter_RouteTree(t *testing.T) {
	router := newTestRouter(t)

	assert.Equal(t, http.StatusOK, get(router, "/healthz").Code)
	assert.Equal(t, http.StatusOK, get(router, "/readyz").Code)
	assert.Equal(t, http.StatusOK, get(router, "/metrics").Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/catalog/assets").Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/catalog/threats").Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/catalog/criteria").Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/controls").Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/controls/applied").Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/rollup/summary").Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/analyzed/threats").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/nope").Code)
}

func TestNewRouter_NilHandlersLeaveRoutesOut(t *testing.T) {
	router := NewRouter(RouterConfig{})

	assert.Equal(t, http.StatusNotFound, get(router, "/healthz").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/controls").Code)
}

func TestNewRouter_MetricsCountRequests(t *testing.T) {
	router := newTestRouter(t)

	get(router, "/api/v1/controls")
	body := get(router, "/metrics").Body.String()
	assert.Contains(t, body, "spacerisk_http_requests_total")
}
