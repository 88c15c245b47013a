// Background worker entry point: consumes assessment and control events and
// logs an audit trail of scoring activity.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/orbitsec/spacerisk/internal/app"
	"github.com/orbitsec/spacerisk/internal/config"
	"github.com/orbitsec/spacerisk/internal/infrastructure/database/redis"
	"github.com/orbitsec/spacerisk/internal/infrastructure/messaging/kafka"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
)

// latestEventKey holds the most recent event envelope per topic, giving
// dashboards a cheap "what changed last" pointer without replaying the log.
const latestEventKey = "latest_event:"

var workerTopics = []string{
	kafka.TopicAssessmentUpdated,
	kafka.TopicAssessmentCleared,
	kafka.TopicAssessmentRestored,
	kafka.TopicControlApplied,
	kafka.TopicControlRemoved,
}

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")

	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("no kafka brokers configured, nothing to consume")
		os.Exit(1)
	}

	logger.Info("starting spacerisk worker",
		logging.String("version", app.Version),
		logging.Any("topics", workerTopics),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && ctx.Err() == nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	var processed atomic.Int64

	var cache redis.Cache
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer client.Close()
		cache = redis.NewRedisCache(client, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
	}

	handler := func(hctx context.Context, env *kafka.EventEnvelope) error {
		processed.Add(1)
		logger.Info("event processed",
			logging.String("event_id", env.EventID),
			logging.String("event_type", env.EventType),
			logging.String("source", env.Source),
		)
		if cache != nil {
			if err := cache.Set(hctx, latestEventKey+env.EventType, env, 0); err != nil {
				logger.Warn("failed to store latest event pointer", logging.Err(err))
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	consumers := make([]*kafka.Consumer, 0, len(workerTopics))
	for _, topic := range workerTopics {
		c := kafka.NewConsumer(cfg.Kafka, topic, handler, logger)
		consumers = append(consumers, c)
		g.Go(func() error { return c.Run(gctx) })
	}

	g.Go(func() error {
		interval := cfg.Worker.HeartbeatInterval
		if interval <= 0 {
			interval = 30 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				logger.Info("worker heartbeat", logging.Int64("events_processed", processed.Load()))
			}
		}
	})

	err := g.Wait()
	for _, c := range consumers {
		if cerr := c.Close(); cerr != nil {
			logger.Warn("consumer close failed", logging.Err(cerr))
		}
	}
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}
