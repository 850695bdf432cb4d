// Package mongo implements store.Store on MongoDB with one collection per thread.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/thv-history-sync/internal/otel"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// TracerName is the name used for the MongoDB store tracer
const TracerName = "github.com/stacklok/thv-history-sync/store/mongo"

const (
	// maxNamespaceLen bounds "<database>.<collection>"
	maxNamespaceLen = 255

	codeNamespaceExists = 48

	fieldKey       = "messageKey"
	fieldThreadID  = "threadId"
	fieldTimestamp = "timestamp"
	fieldPayload   = "payload"
	fieldStoredAt  = "storedAt"

	disconnectTimeout = 10 * time.Second
)

// Store is a MongoDB-backed message store
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	tracer trace.Tracer

	// known holds the collections this process has already set up
	known sync.Map
}

var _ store.Store = (*Store)(nil)

// Option configures the Store
type Option func(*settings)

type settings struct {
	maxPoolSize uint64
	tracer      trace.Tracer
}

// WithMaxPoolSize limits the driver connection pool
func WithMaxPoolSize(n uint64) Option {
	return func(s *settings) {
		s.maxPoolSize = n
	}
}

// WithTracer sets the OpenTelemetry tracer. Tracing is disabled when unset.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// Connect dials MongoDB, verifies the connection and returns a store on the given database
func Connect(ctx context.Context, uri, database string, opts ...Option) (*Store, error) {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}

	clientOpts := options.Client().ApplyURI(uri)
	if cfg.maxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(cfg.maxPoolSize)
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	slog.Info("MongoDB connection established", "database", database)

	return &Store{
		client: client,
		db:     client.Database(database),
		tracer: cfg.tracer,
	}, nil
}

func (s *Store) collectionName(thread store.ThreadID) string {
	return store.PartitionName(thread, maxNamespaceLen-len(s.db.Name())-1)
}

func (s *Store) startSpan(ctx context.Context, op, collection string) (context.Context, trace.Span) {
	return otel.StartDBSpan(ctx, s.tracer, "mongo."+op, semconv.DBSystemMongoDB, otel.AttrPartition.String(collection))
}

// EnsurePartition creates the thread collection; an existing collection is not an error
func (s *Store) EnsurePartition(ctx context.Context, thread store.ThreadID) (err error) {
	name := s.collectionName(thread)
	ctx, span := s.startSpan(ctx, "EnsurePartition", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	return s.ensureCollection(ctx, name)
}

// ensureCollection creates the collection together with its unique key index,
// so a capture that arrives before the first sync cannot store a duplicate.
func (s *Store) ensureCollection(ctx context.Context, name string) error {
	if err := s.db.CreateCollection(ctx, name); err != nil && !isNamespaceExists(err) {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	if err := s.createIndex(ctx, name); err != nil {
		return err
	}
	s.known.Store(name, struct{}{})
	return nil
}

// createIndex is a no-op when an identical index already exists
func (s *Store) createIndex(ctx context.Context, name string) error {
	indexName := store.IndexName(name, 0)
	_, err := s.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: fieldKey, Value: 1}},
		Options: options.Index().SetName(indexName).SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", indexName, err)
	}
	return nil
}

func isNamespaceExists(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(codeNamespaceExists)
}

// CountByThread counts the documents of the thread collection
func (s *Store) CountByThread(ctx context.Context, thread store.ThreadID) (count int64, err error) {
	name := s.collectionName(thread)
	ctx, span := s.startSpan(ctx, "CountByThread", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	count, err = s.db.Collection(name).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count documents in %s: %w", name, err)
	}
	span.SetAttributes(otel.AttrResultCount.Int64(count))
	return count, nil
}

// EnsureUniqueIndex lists the collection indexes and creates the unique key index when missing
func (s *Store) EnsureUniqueIndex(ctx context.Context, thread store.ThreadID) (err error) {
	name := s.collectionName(thread)
	ctx, span := s.startSpan(ctx, "EnsureUniqueIndex", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	indexName := store.IndexName(name, 0)
	indexes := s.db.Collection(name).Indexes()

	specs, err := indexes.ListSpecifications(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes of %s: %w", name, err)
	}
	for _, spec := range specs {
		if spec.Name == indexName {
			return nil
		}
	}

	slog.Info("Creating unique message key index", "collection", name, "index", indexName)
	return s.createIndex(ctx, name)
}

// UpsertBatch sends one unordered bulk write of keyed upserts, so a failing
// record does not stop the others.
func (s *Store) UpsertBatch(
	ctx context.Context,
	thread store.ThreadID,
	msgs []store.Message,
) (result store.UpsertResult, err error) {
	name := s.collectionName(thread)
	ctx, span := s.startSpan(ctx, "UpsertBatch", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	if len(msgs) == 0 {
		return result, nil
	}

	var (
		models  = make([]mongo.WriteModel, 0, len(msgs))
		encErrs []error
	)
	now := time.Now()
	for _, msg := range msgs {
		msg.ThreadID = thread
		doc, err := document(msg, now)
		if err != nil {
			result.Failed++
			encErrs = append(encErrs, fmt.Errorf("message %q: %w", msg.Key, err))
			continue
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: fieldKey, Value: msg.Key}}).
			SetUpdate(bson.D{{Key: "$set", Value: doc}}).
			SetUpsert(true))
	}

	if len(models) > 0 {
		res, err := s.db.Collection(name).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if res != nil {
			result.Inserted += int(res.UpsertedCount)
			result.Updated += int(res.MatchedCount)
		}
		if err != nil {
			var bwe mongo.BulkWriteException
			if !errors.As(err, &bwe) {
				result = store.UpsertResult{Failed: len(msgs)}
				return result, fmt.Errorf("bulk upsert into %s failed: %w", name, err)
			}
			result.Failed += len(bwe.WriteErrors)
			encErrs = append(encErrs, bwe)
		}
	}

	if len(encErrs) > 0 {
		return result, fmt.Errorf("%d of %d records failed: %w", result.Failed, len(msgs), errors.Join(encErrs...))
	}
	return result, nil
}

// Insert writes a single document, setting the collection up on first use
func (s *Store) Insert(ctx context.Context, msg store.Message) (err error) {
	name := s.collectionName(msg.ThreadID)
	ctx, span := s.startSpan(ctx, "Insert", name)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	if _, ok := s.known.Load(name); !ok {
		if err := s.ensureCollection(ctx, name); err != nil {
			return err
		}
	}

	doc, err := document(msg, time.Now())
	if err != nil {
		return fmt.Errorf("failed to encode message %q: %w", msg.Key, err)
	}
	if _, err := s.db.Collection(name).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", name, err)
	}
	return nil
}

// document maps a message onto the stored BSON shape. JSON object payloads
// are stored as embedded documents, anything else as its raw JSON text.
func document(msg store.Message, storedAt time.Time) (bson.D, error) {
	var payload any = string(msg.Payload)
	if len(msg.Payload) > 0 && msg.Payload[0] == '{' {
		var embedded bson.D
		if err := bson.UnmarshalExtJSON(msg.Payload, false, &embedded); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		payload = embedded
	}

	return bson.D{
		{Key: fieldKey, Value: msg.Key},
		{Key: fieldThreadID, Value: string(msg.ThreadID)},
		{Key: fieldTimestamp, Value: msg.Timestamp},
		{Key: fieldPayload, Value: payload},
		{Key: fieldStoredAt, Value: storedAt},
	}, nil
}

// Ping verifies the primary is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	slog.Info("Closing MongoDB connection")
	return s.client.Disconnect(ctx)
}
