// Package bootstrap opens the process-wide dependencies the server runs on.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"happythoughts/internal/cache"
	"happythoughts/internal/config"
	"happythoughts/internal/database"
	"happythoughts/internal/middleware"
	"happythoughts/internal/observability"
	"happythoughts/internal/seed"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedFile, when set, loads thought fixtures into an empty database.
	SeedFile string
}

// Runtime holds the opened stores and the metrics registry. Redis is nil when
// it is not configured or not reachable.
type Runtime struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// InitRuntime connects to the database and Redis and optionally seeds fixtures.
func InitRuntime(cfg *config.Config, opts Options) (*Runtime, error) {
	reg := NewRegistry()
	metrics := observability.NewMetrics(reg)

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rt := &Runtime{
		DB:       db,
		Redis:    cache.Connect(cfg.RedisURL, metrics),
		Registry: reg,
		Metrics:  metrics,
	}

	if opts.SeedFile != "" {
		if err := seedIfEmpty(db, opts.SeedFile); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	return rt, nil
}

func seedIfEmpty(db *gorm.DB, path string) error {
	fixtures, err := seed.LoadFixtures(path)
	if err != nil {
		return fmt.Errorf("failed to load seed fixtures: %w", err)
	}
	seeder := seed.NewSeeder(db)
	n, err := seeder.SeedIfEmpty(fixtures)
	if err != nil {
		return fmt.Errorf("failed to seed thoughts: %w", err)
	}
	middleware.Logger.Info("seed fixtures applied", slog.String("file", path), slog.Int("thoughts", n))
	return nil
}

// Close releases Redis and the database pool.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if rt.DB != nil {
		if err := database.Close(rt.DB); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
