// Package app assembles the full SpaceRisk service from configuration:
// catalogs, score store, engines, optional postgres/redis/kafka
// infrastructure, and the HTTP server.  Both the apiserver binary and the
// CLI serve command boot through it.
package app

import (
	"context"
	"sync"
	"time"

	appassessment "github.com/orbitsec/spacerisk/internal/application/assessment"
	"github.com/orbitsec/spacerisk/internal/application/controls"
	"github.com/orbitsec/spacerisk/internal/application/rollup"
	"github.com/orbitsec/spacerisk/internal/config"
	"github.com/orbitsec/spacerisk/internal/domain/assessment"
	"github.com/orbitsec/spacerisk/internal/domain/catalog"
	"github.com/orbitsec/spacerisk/internal/infrastructure/catalog/csvcatalog"
	"github.com/orbitsec/spacerisk/internal/infrastructure/database/postgres"
	"github.com/orbitsec/spacerisk/internal/infrastructure/database/postgres/repositories"
	"github.com/orbitsec/spacerisk/internal/infrastructure/database/redis"
	"github.com/orbitsec/spacerisk/internal/infrastructure/messaging/kafka"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
	httpapi "github.com/orbitsec/spacerisk/internal/interfaces/http"
	"github.com/orbitsec/spacerisk/internal/interfaces/http/handlers"
	"github.com/orbitsec/spacerisk/internal/interfaces/http/middleware"
)

// Version is stamped at build time via ldflags.
var Version = "dev"

// App is the assembled service.
type App struct {
	Config   *config.Config
	Logger   logging.Logger
	Catalogs *csvcatalog.Catalogs

	// Effective catalog sources: the CSV-loaded repositories, or their
	// database-seeded counterparts when postgres is configured.
	Assets       catalog.AssetRepository
	Threats      catalog.ThreatRepository
	ControlsRepo catalog.ControlRepository

	Store      *assessment.Store
	Assessment *appassessment.Service
	Engine     *controls.Engine
	Rollup     *rollup.Service

	Server *httpapi.Server

	producer *kafka.Producer
	pg       *postgres.Connection
	rd       *redis.Client
	limiter  *middleware.TokenBucketLimiter
}

// New wires the application.  Postgres, redis, and kafka attach only when
// their config sections carry an address; everything else runs in memory.
func New(cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	catalogs, err := csvcatalog.Load(cfg.Catalog, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:       cfg,
		Logger:       logger,
		Catalogs:     catalogs,
		Assets:       catalogs.Assets(),
		Threats:      catalogs.Threats(),
		ControlsRepo: catalogs.Controls(),
		Store:        assessment.NewStore(),
	}

	// Metrics come up first so every later component can record into them.
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "spacerisk",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, err
	}
	metrics := prometheus.NewAppMetrics(collector)

	var events *kafka.Producer
	if cfg.Assessment.EmitEvents && len(cfg.Kafka.Brokers) > 0 {
		events = kafka.NewProducer(cfg.Kafka, logger).WithMetrics(metrics)
		a.producer = events
	}
	var assessSink appassessment.EventSink
	var controlSink controls.EventSink
	if events != nil {
		assessSink = events
		controlSink = events
	}

	snapshots, err := a.buildSnapshotRepository(cfg, logger, metrics)
	if err != nil {
		a.Close()
		return nil, err
	}

	if a.pg != nil {
		if err := a.seedDatabaseCatalogs(logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Assessment = appassessment.NewService(a.Store, a.Assets, snapshots, logger, assessSink)
	a.Engine = controls.NewEngine(a.Store, a.ControlsRepo, a.Assets, a.Threats, logger, controlSink)
	a.Rollup = rollup.NewService(a.Store, a.Assets, a.Threats, logger)

	a.buildServer(cfg, logger, metrics, collector)

	return a, nil
}

// buildSnapshotRepository picks the snapshot backend: postgres when
// configured, optionally fronted by the redis cache.  Without postgres,
// snapshot operations fail with an invalid-state error.
func (a *App) buildSnapshotRepository(cfg *config.Config, logger logging.Logger, metrics *prometheus.AppMetrics) (appassessment.SnapshotRepository, error) {
	if cfg.Database.Host == "" {
		logger.Info("no database configured, snapshots disabled")
		return nil, nil
	}

	conn, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.pg = conn

	if cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database), cfg.Database.MigrationPath); err != nil {
			return nil, err
		}
	}

	var repo appassessment.SnapshotRepository = repositories.NewSnapshotRepository(conn.DB(), logger).WithMetrics(metrics)

	if cfg.Redis.Addr != "" && cfg.Assessment.SnapshotCacheEnabled {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		a.rd = client
		cache := redis.NewRedisCache(client, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
		repo = redis.NewCachedSnapshotRepository(repo, cache, cfg.Assessment.SnapshotTTL, logger).WithMetrics(metrics)
	}
	return repo, nil
}

// seedDatabaseCatalogs writes the CSV-loaded catalogs into postgres and
// switches catalog reads over to the database-backed repositories.
func (a *App) seedDatabaseCatalogs(logger logging.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	assets, err := a.Assets.List(ctx)
	if err != nil {
		return err
	}
	threats, err := a.Threats.List(ctx)
	if err != nil {
		return err
	}
	ctls, err := a.ControlsRepo.List(ctx)
	if err != nil {
		return err
	}

	dbCatalog := repositories.NewCatalogRepository(a.pg.DB(), logger)
	if err := dbCatalog.Seed(ctx, assets, threats, ctls); err != nil {
		return err
	}

	a.Assets = dbCatalog.Assets()
	a.Threats = dbCatalog.Threats()
	a.ControlsRepo = dbCatalog.Controls()
	logger.Info("catalogs seeded into database",
		logging.Int("assets", len(assets)),
		logging.Int("threats", len(threats)),
		logging.Int("controls", len(ctls)))
	return nil
}

func (a *App) buildServer(cfg *config.Config, logger logging.Logger, metrics *prometheus.AppMetrics, collector prometheus.MetricsCollector) {
	mu := &sync.Mutex{}

	checkers := []handlers.HealthChecker{}
	if a.pg != nil {
		checkers = append(checkers, handlers.HealthCheckFunc{ComponentName: "postgres", Fn: a.pg.HealthCheck})
	}
	if a.rd != nil {
		checkers = append(checkers, handlers.HealthCheckFunc{ComponentName: "redis", Fn: a.rd.HealthCheck})
	}

	a.limiter = middleware.NewTokenBucketLimiter(middleware.DefaultRateLimitConfig())
	logCfg := middleware.DefaultLoggingConfig()
	corsCfg := middleware.DefaultCORSConfig()

	httpapi.SetMode(cfg.Server.Mode)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		ScoreHandler:     handlers.NewScoreHandler(a.Assessment, mu).WithMetrics(metrics),
		ControlHandler:   handlers.NewControlHandler(a.Engine, a.ControlsRepo, mu).WithMetrics(metrics),
		RollupHandler:    handlers.NewRollupHandler(a.Rollup, mu).WithMetrics(metrics),
		CatalogHandler:   handlers.NewCatalogHandler(a.Assets, a.Threats),
		SnapshotHandler:  handlers.NewSnapshotHandler(a.Assessment, a.Engine, mu).WithMetrics(metrics),
		HealthHandler:    handlers.NewHealthHandler(Version, checkers...).WithMetrics(metrics),
		Logger:           logger,
		Logging:          &logCfg,
		CORS:             &corsCfg,
		RateLimiter:      a.limiter,
		Metrics:          metrics,
		MetricsCollector: collector,
	})

	a.Server = httpapi.NewServer(cfg.Server, router, logger)
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer cancel()
	if err := a.Server.Stop(stopCtx); err != nil {
		a.Logger.Error("shutdown failed", logging.Err(err))
		return err
	}
	return nil
}

// Close releases every attached infrastructure handle.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.Logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if a.rd != nil {
		if err := a.rd.Close(); err != nil {
			a.Logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Logger.Warn("postgres close failed", logging.Err(err))
		}
	}
}

// NewLogger builds the process logger from the log config section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	output := cfg.Output
	if output == "" {
		output = "stdout"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: []string{output},
	})
}
