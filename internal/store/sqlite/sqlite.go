// Package sqlite implements store.Store on a local SQLite file with one table per thread.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/stacklok/thv-history-sync/internal/otel"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// TracerName is the name used for the SQLite store tracer
const TracerName = "github.com/stacklok/thv-history-sync/store/sqlite"

var dbSystem = semconv.DBSystemKey.String("sqlite")

// Store is a SQLite-backed message store. A single connection serializes all
// writers; WAL mode keeps readers from blocking on it.
type Store struct {
	db     *sql.DB
	tracer trace.Tracer
}

var _ store.Store = (*Store)(nil)

// Option configures the Store
type Option func(*Store)

// WithTracer sets the OpenTelemetry tracer. Tracing is disabled when unset.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// Open opens (or creates) the database file
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	slog.Info("SQLite store opened", "path", path)
	return s, nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (*Store) table(thread store.ThreadID) (name, ident string) {
	name = store.PartitionName(thread, 0)
	return name, quote(name)
}

func (s *Store) startSpan(ctx context.Context, op, table string) (context.Context, trace.Span) {
	return otel.StartDBSpan(ctx, s.tracer, "sqlite."+op, dbSystem, otel.AttrPartition.String(table))
}

// EnsurePartition creates the thread table if missing
func (s *Store) EnsurePartition(ctx context.Context, thread store.ThreadID) (err error) {
	name, ident := s.table(thread)
	ctx, span := s.startSpan(ctx, "EnsurePartition", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	return s.ensureTable(ctx, name, ident)
}

func (s *Store) ensureTable(ctx context.Context, name, ident string) error {
	err := retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	message_key TEXT NOT NULL CHECK (message_key <> ''),
	thread_id   TEXT NOT NULL,
	sent_at     INTEGER NOT NULL,
	payload     TEXT NOT NULL CHECK (json_valid(payload)),
	stored_at   INTEGER NOT NULL
)`, ident))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return s.createIndex(ctx, name, ident)
}

// createIndex builds the message_key unique index. New tables get it at
// creation so captured duplicates are rejected before the first sync.
func (s *Store) createIndex(ctx context.Context, name, ident string) error {
	indexName := store.IndexName(name, 0)
	err := retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (message_key)`, quote(indexName), ident))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", indexName, err)
	}
	return nil
}

// CountByThread returns the row count of the thread table, 0 when it does not exist
func (s *Store) CountByThread(ctx context.Context, thread store.ThreadID) (count int64, err error) {
	name, ident := s.table(thread)
	ctx, span := s.startSpan(ctx, "CountByThread", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	exists, err := s.objectExists(ctx, "table", name)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}

	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+ident).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", name, err)
	}
	span.SetAttributes(otel.AttrResultCount.Int64(count))
	return count, nil
}

func (s *Store) objectExists(ctx context.Context, kind, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = ? AND name = ?`, kind, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s %s: %w", kind, name, err)
	}
	return n > 0, nil
}

// EnsureUniqueIndex looks the index up in sqlite_master and creates it when missing
func (s *Store) EnsureUniqueIndex(ctx context.Context, thread store.ThreadID) (err error) {
	name, ident := s.table(thread)
	ctx, span := s.startSpan(ctx, "EnsureUniqueIndex", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	indexName := store.IndexName(name, 0)
	exists, err := s.objectExists(ctx, "index", indexName)
	if err != nil || exists {
		return err
	}

	slog.Info("Creating unique message key index", "table", name, "index", indexName)
	return s.createIndex(ctx, name, ident)
}

// UpsertBatch writes the batch in one transaction. A record that violates a
// constraint fails on its own; the remaining records are still written.
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

	var errs []error
	err = retryOnContention(ctx, func() error {
		result = store.UpsertResult{}
		errs = errs[:0]
		return s.upsertTx(ctx, ident, thread, msgs, &result, &errs)
	})
	if err != nil {
		return store.UpsertResult{Failed: len(msgs)}, fmt.Errorf("upsert into %s failed: %w", name, err)
	}

	if len(errs) > 0 {
		return result, fmt.Errorf("%d of %d records failed: %w", result.Failed, len(msgs), errors.Join(errs...))
	}
	return result, nil
}

func (s *Store) upsertTx(
	ctx context.Context,
	ident string,
	thread store.ThreadID,
	msgs []store.Message,
	result *store.UpsertResult,
	errs *[]error,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	update := fmt.Sprintf(
		`UPDATE %s SET thread_id = ?, sent_at = ?, payload = ?, stored_at = ? WHERE message_key = ?`, ident)
	insert := fmt.Sprintf(
		`INSERT INTO %s (message_key, thread_id, sent_at, payload, stored_at) VALUES (?, ?, ?, ?, ?)`, ident)

	now := time.Now().UnixMilli()
	for _, msg := range msgs {
		res, err := tx.ExecContext(ctx, update,
			string(thread), msg.Timestamp.UnixMilli(), string(msg.Payload), now, msg.Key)
		if err == nil {
			var n int64
			if n, err = res.RowsAffected(); err == nil && n > 0 {
				result.Updated++
				continue
			}
		}
		if err == nil {
			_, err = tx.ExecContext(ctx, insert,
				msg.Key, string(thread), msg.Timestamp.UnixMilli(), string(msg.Payload), now)
		}
		if err != nil {
			if isTransient(err) {
				return err
			}
			result.Failed++
			*errs = append(*errs, fmt.Errorf("message %q: %w", msg.Key, err))
			continue
		}
		result.Inserted++
	}

	return tx.Commit()
}

// Insert writes a single row, creating the table on first use
func (s *Store) Insert(ctx context.Context, msg store.Message) (err error) {
	name, ident := s.table(msg.ThreadID)
	ctx, span := s.startSpan(ctx, "Insert", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	if err := s.ensureTable(ctx, name, ident); err != nil {
		return err
	}

	err = retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (message_key, thread_id, sent_at, payload, stored_at) VALUES (?, ?, ?, ?, ?)`, ident),
			msg.Key, string(msg.ThreadID), msg.Timestamp.UnixMilli(), string(msg.Payload), time.Now().UnixMilli())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", name, err)
	}
	return nil
}

// Ping verifies the database is usable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
