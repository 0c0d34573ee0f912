// Package bootstrap wires the process-level runtime shared by every command.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"catspot/internal/cache"
	"catspot/internal/config"
	"catspot/internal/database"
	"catspot/internal/observability"
	"catspot/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SkipSchema connects without running migrations.
	SkipSchema bool
	// Seed, when set, populates the database after the schema is applied.
	Seed *seed.Options
}

// Runtime holds the shared connections.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
// A nil Redis client means Redis was unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: !opts.SkipSchema})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rt := &Runtime{DB: db, Redis: cache.GetClient()}

	if opts.Seed != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("refusing to seed demo data in %q", cfg.Env)
		}
		if _, err := seed.NewSeeder(db, *opts.Seed).Run(ctx); err != nil {
			return nil, fmt.Errorf("seeding failed: %w", err)
		}
	}

	observability.GlobalLogger.Info("runtime ready",
		slog.String("env", cfg.Env),
		slog.Bool("redis", rt.Redis != nil),
	)
	return rt, nil
}

// TracingConfig maps application config onto the tracer settings.
func TracingConfig(cfg *config.Config, service string) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:    service,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	}
}
