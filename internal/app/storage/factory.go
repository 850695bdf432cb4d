// Package storage opens the local message store selected by the configuration.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/thv-history-sync/database"
	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/db"
	"github.com/stacklok/thv-history-sync/internal/store"
	"github.com/stacklok/thv-history-sync/internal/store/memory"
	"github.com/stacklok/thv-history-sync/internal/store/mongo"
	"github.com/stacklok/thv-history-sync/internal/store/postgres"
	"github.com/stacklok/thv-history-sync/internal/store/sqlite"
)

// TracerName is the name used for the store tracers
const TracerName = "github.com/stacklok/thv-history-sync/store"

type settings struct {
	tracer trace.Tracer
}

// Option configures NewStore
type Option func(*settings)

// WithTracer enables store spans
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// NewStore opens the store of the configured type. The caller owns the
// returned store and must Close it.
func NewStore(ctx context.Context, cfg *config.StorageConfig, opts ...Option) (store.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage configuration is required")
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	slog.Info("Opening message store", "type", cfg.Type)

	switch cfg.Type {
	case config.StorageTypePostgres:
		return newPostgresStore(ctx, cfg.Database, &s)
	case config.StorageTypeMongo:
		return newMongoStore(ctx, cfg.Mongo, &s)
	case config.StorageTypeSQLite:
		if cfg.SQLite == nil {
			return nil, fmt.Errorf("sqlite configuration is required for storage type %s", cfg.Type)
		}
		return sqlite.Open(ctx, cfg.SQLite.Path, sqlite.WithTracer(s.tracer))
	case config.StorageTypeMemory:
		slog.Warn("Using in-memory store, history is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}

func newPostgresStore(ctx context.Context, cfg *config.DatabaseConfig, s *settings) (store.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required for storage type %s", config.StorageTypePostgres)
	}

	connStr, err := db.MigrationConnectionString(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateUp(connStr); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	slog.Info("Database migrations applied")

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	st, err := postgres.New(pool, postgres.WithSchema(cfg.GetSchema()), postgres.WithTracer(s.tracer))
	if err != nil {
		pool.Close()
		return nil, err
	}
	return st, nil
}

func newMongoStore(ctx context.Context, cfg *config.MongoConfig, s *settings) (store.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo configuration is required for storage type %s", config.StorageTypeMongo)
	}

	uri, err := cfg.GetURI()
	if err != nil {
		return nil, err
	}

	return mongo.Connect(ctx, uri, cfg.GetDatabase(),
		mongo.WithMaxPoolSize(cfg.MaxPoolSize),
		mongo.WithTracer(s.tracer),
	)
}
