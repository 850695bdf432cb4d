// Package postgres implements store.Store on PostgreSQL. Each thread is kept
// in its own table, and the thread_partitions catalog table records which
// thread owns which table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/thv-history-sync/internal/otel"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// TracerName is the name used for the PostgreSQL store tracer
const TracerName = "github.com/stacklok/thv-history-sync/store/postgres"

// maxIdentifierLen is PostgreSQL's NAMEDATALEN - 1
const maxIdentifierLen = 63

const (
	codeUniqueViolation = "23505"
	codeDuplicateTable  = "42P07"
)

// Store is a PostgreSQL-backed message store
type Store struct {
	pool   *pgxpool.Pool
	schema string
	tracer trace.Tracer

	// known holds the tables this process has already created, so captures
	// skip the DDL round trips.
	known sync.Map
}

var (
	_ store.Store           = (*Store)(nil)
	_ store.PartitionLister = (*Store)(nil)
)

// Option configures the Store
type Option func(*Store)

// WithSchema sets the schema holding the thread tables (default public)
func WithSchema(schema string) Option {
	return func(s *Store) {
		if schema != "" {
			s.schema = schema
		}
	}
}

// WithTracer sets the OpenTelemetry tracer. Tracing is disabled when unset.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// New creates a store on top of an existing pool. The pool is owned by the
// store and closed by Close.
func New(pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	s := &Store{pool: pool, schema: "public"}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) table(thread store.ThreadID) (name, ident string) {
	name = store.PartitionName(thread, maxIdentifierLen)
	return name, pgx.Identifier{s.schema, name}.Sanitize()
}

func (s *Store) startSpan(ctx context.Context, op, partition string) (context.Context, trace.Span) {
	return otel.StartDBSpan(ctx, s.tracer, "postgres."+op, semconv.DBSystemPostgreSQL, otel.AttrPartition.String(partition))
}

// EnsurePartition creates the thread table if it does not exist and records
// it in the catalog.
func (s *Store) EnsurePartition(ctx context.Context, thread store.ThreadID) (err error) {
	name, ident := s.table(thread)
	ctx, span := s.startSpan(ctx, "EnsurePartition", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	return s.ensureTable(ctx, thread, name, ident)
}

func (s *Store) ensureTable(ctx context.Context, thread store.ThreadID, name, ident string) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(createTableSQL, ident)); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	// New tables get the unique index right away so a capture that lands
	// before the first sync cannot store a duplicate key.
	if err := s.createIndex(ctx, name, ident); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, registerPartitionSQL, string(thread), name); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to register partition %s: %w", name, err)
	}
	s.known.Store(name, struct{}{})
	return nil
}

func (s *Store) createIndex(ctx context.Context, name, ident string) error {
	indexName := store.IndexName(name, maxIdentifierLen)
	sql := fmt.Sprintf(createIndexSQL, pgx.Identifier{indexName}.Sanitize(), ident)
	if _, err := s.pool.Exec(ctx, sql); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create index %s: %w", indexName, err)
	}
	return nil
}

// isAlreadyExists reports whether err is the error a concurrent CREATE ... IF
// NOT EXISTS raises when it loses the race on the system catalogs.
func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUniqueViolation || pgErr.Code == codeDuplicateTable
}

// CountByThread returns the number of rows in the thread table
func (s *Store) CountByThread(ctx context.Context, thread store.ThreadID) (count int64, err error) {
	name, ident := s.table(thread)
	ctx, span := s.startSpan(ctx, "CountByThread", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	if err := s.pool.QueryRow(ctx, fmt.Sprintf(countSQL, ident)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", name, err)
	}
	span.SetAttributes(otel.AttrResultCount.Int64(count))
	return count, nil
}

// EnsureUniqueIndex looks the index up in pg_indexes and creates it when missing
func (s *Store) EnsureUniqueIndex(ctx context.Context, thread store.ThreadID) (err error) {
	name, ident := s.table(thread)
	ctx, span := s.startSpan(ctx, "EnsureUniqueIndex", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	indexName := store.IndexName(name, maxIdentifierLen)

	var exists bool
	if err := s.pool.QueryRow(ctx, indexExistsSQL, s.schema, name, indexName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up index %s: %w", indexName, err)
	}
	if exists {
		return nil
	}

	slog.Info("Creating unique message key index", "table", name, "index", indexName)
	return s.createIndex(ctx, name, ident)
}

// UpsertBatch writes every message in one transaction, each inside its own
// savepoint so a failing record is rolled back alone and the rest still commit.
func (s *Store) UpsertBatch(
	ctx context.Context,
	thread store.ThreadID,
	msgs []store.Message,
) (result store.UpsertResult, err error) {
	name, ident := s.table(thread)
	ctx, span := s.startSpan(ctx, "UpsertBatch", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	if len(msgs) == 0 {
		return result, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		result.Failed = len(msgs)
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("Failed to rollback upsert transaction", "table", name, "error", err)
		}
	}()

	upsert := fmt.Sprintf(upsertSQL, ident)
	var errs []error
	for _, msg := range msgs {
		inserted, err := upsertOne(ctx, tx, upsert, thread, msg)
		if err != nil {
			result.Failed++
			errs = append(errs, fmt.Errorf("message %q: %w", msg.Key, err))
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return store.UpsertResult{Failed: len(msgs)}, fmt.Errorf("failed to commit upsert into %s: %w", name, err)
	}

	if len(errs) > 0 {
		return result, fmt.Errorf("%d of %d records failed: %w", result.Failed, len(msgs), errors.Join(errs...))
	}
	return result, nil
}

func upsertOne(ctx context.Context, tx pgx.Tx, sql string, thread store.ThreadID, msg store.Message) (bool, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, err
	}

	var inserted bool
	err = sp.QueryRow(ctx, sql, msg.Key, string(thread), msg.Timestamp, []byte(msg.Payload)).Scan(&inserted)
	if err != nil {
		_ = sp.Rollback(ctx)
		return false, err
	}
	return inserted, sp.Commit(ctx)
}

// Insert writes a single message. The table is created on first use, and a
// duplicate key is reported as an error.
func (s *Store) Insert(ctx context.Context, msg store.Message) (err error) {
	name, ident := s.table(msg.ThreadID)
	ctx, span := s.startSpan(ctx, "Insert", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	if _, ok := s.known.Load(name); !ok {
		if err := s.ensureTable(ctx, msg.ThreadID, name, ident); err != nil {
			return err
		}
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(insertSQL, ident),
		msg.Key, string(msg.ThreadID), msg.Timestamp, []byte(msg.Payload))
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", name, err)
	}
	return nil
}

// Partitions returns the catalog of thread tables
func (s *Store) Partitions(ctx context.Context) (map[store.ThreadID]string, error) {
	rows, err := s.pool.Query(ctx, listPartitionsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	defer rows.Close()

	out := make(map[store.ThreadID]string)
	for rows.Next() {
		var thread, table string
		if err := rows.Scan(&thread, &table); err != nil {
			return nil, fmt.Errorf("failed to scan partition: %w", err)
		}
		out[store.ThreadID(thread)] = table
	}
	return out, rows.Err()
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	slog.Info("Closing database connection pool")
	s.pool.Close()
	return nil
}
