// Package http assembles the gin route tree and the HTTP server for the
// SpaceRisk API.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
	"github.com/orbitsec/spacerisk/internal/interfaces/http/handlers"
	"github.com/orbitsec/spacerisk/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware the route tree needs.
// Nil handlers leave their routes unregistered; nil middleware is skipped.
type RouterConfig struct {
	ScoreHandler    *handlers.ScoreHandler
	ControlHandler  *handlers.ControlHandler
	RollupHandler   *handlers.RollupHandler
	CatalogHandler  *handlers.CatalogHandler
	SnapshotHandler *handlers.SnapshotHandler
	HealthHandler   *handlers.HealthHandler

	Logger      logging.Logger
	Logging     *middleware.LoggingConfig
	CORS        *middleware.CORSConfig
	RateLimiter *middleware.TokenBucketLimiter

	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the complete route tree: public probes and metrics, then
// /api/v1 resource groups.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.Logging != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, *cfg.Logging))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.RateLimiter != nil {
		api.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	registerScoreRoutes(api, cfg.ScoreHandler)
	registerControlRoutes(api, cfg.ControlHandler)
	registerRollupRoutes(api, cfg.RollupHandler)
	registerCatalogRoutes(api, cfg.CatalogHandler)
	registerSnapshotRoutes(api, cfg.SnapshotHandler)

	return r
}

func registerScoreRoutes(r *gin.RouterGroup, h *handlers.ScoreHandler) {
	if h == nil {
		return
	}
	scores := r.Group("/scores")
	scores.PUT("", h.Set)
	scores.GET("", h.Get)
	scores.DELETE("", h.Remove)
	scores.GET("/aggregate", h.Aggregate)
	scores.POST("/clear", h.Clear)

	analyzed := r.Group("/analyzed")
	analyzed.GET("/assets", h.AnalyzedAssets)
	analyzed.GET("/threats", h.AnalyzedThreats)
}

func registerControlRoutes(r *gin.RouterGroup, h *handlers.ControlHandler) {
	if h == nil {
		return
	}
	ctl := r.Group("/controls")
	ctl.GET("", h.List)
	ctl.GET("/applied", h.Applied)
	ctl.POST("/clear", h.Clear)
	ctl.GET("/:id", h.Get)
	ctl.POST("/:id/apply", h.Apply)
	ctl.POST("/:id/remove", h.Remove)

	r.GET("/threats/:name/controls", h.ForThreat)
}

func registerRollupRoutes(r *gin.RouterGroup, h *handlers.RollupHandler) {
	if h == nil {
		return
	}
	rollup := r.Group("/rollup")
	rollup.GET("/summary", h.Summary)
	rollup.GET("/threats/:name", h.ForThreat)
}

func registerCatalogRoutes(r *gin.RouterGroup, h *handlers.CatalogHandler) {
	if h == nil {
		return
	}
	cat := r.Group("/catalog")
	cat.GET("/assets", h.Assets)
	cat.GET("/threats", h.Threats)
	cat.GET("/criteria", h.Criteria)
}

func registerSnapshotRoutes(r *gin.RouterGroup, h *handlers.SnapshotHandler) {
	if h == nil {
		return
	}
	snaps := r.Group("/snapshots")
	snaps.GET("", h.List)
	snaps.POST("", h.Save)
	snaps.POST("/:name/load", h.Load)
}

// SetMode maps the server config mode onto gin's global mode.
func SetMode(mode string) {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
