// API server entry point for SpaceRisk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/orbitsec/spacerisk/internal/app"
	"github.com/orbitsec/spacerisk/internal/config"
	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/logging"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	logger.Info("starting spacerisk api server",
		logging.String("version", app.Version),
		logging.Int("port", cfg.Server.Port),
	)

	// File-backed configs hot-reload the log level; everything else needs a
	// restart.
	if *configPath != "" {
		level := cfg.Log.Level
		config.Watch(*configPath, func(next *config.Config) {
			if next.Log.Level == level {
				return
			}
			if logging.SetLevel(logger, next.Log.Level) {
				level = next.Log.Level
				logger.Info("log level updated", logging.String("level", level))
			}
		})
	}

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", logging.Err(err))
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("server exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}
