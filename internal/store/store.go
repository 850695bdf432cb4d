// Package store defines the local message store that mirrors remote chat
// thread history. Every thread lives in its own partition (a table or a
// collection, depending on the backend) named after the thread.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
	"unicode/utf8"
)

// PartitionPrefix is prepended to a thread ID to form its partition name
const PartitionPrefix = "thread-"

// ThreadID identifies a conversation thread on the remote
type ThreadID string

// Message is a single chat record as mirrored locally
type Message struct {
	// Key is unique within the thread
	Key string `json:"key"`

	ThreadID ThreadID `json:"threadId"`

	// Timestamp has millisecond precision
	Timestamp time.Time `json:"timestamp"`

	// Payload is the remote record, verbatim
	Payload json.RawMessage `json:"payload"`
}

// UpsertResult counts what happened to each record of an upsert batch
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Inserter writes a single message without any uniqueness assumption
type Inserter interface {
	Insert(ctx context.Context, msg Message) error
}

// Store is the local per-thread message store.
// Implementations must be safe for concurrent use across threads.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go
type Store interface {
	Inserter

	// EnsurePartition creates the thread's partition if it does not exist
	EnsurePartition(ctx context.Context, thread ThreadID) error

	// CountByThread returns the number of records stored for the thread
	CountByThread(ctx context.Context, thread ThreadID) (int64, error)

	// EnsureUniqueIndex checks for the unique index on the message key and creates it when missing
	EnsureUniqueIndex(ctx context.Context, thread ThreadID) error

	// UpsertBatch inserts or overwrites every message by key. All records are
	// attempted; an error is returned when at least one of them failed.
	UpsertBatch(ctx context.Context, thread ThreadID, msgs []Message) (UpsertResult, error)

	Ping(ctx context.Context) error
	Close() error
}

// PartitionLister is implemented by stores that keep a catalog of the
// partitions they created, keyed by thread.
type PartitionLister interface {
	Partitions(ctx context.Context) (map[ThreadID]string, error)
}

// PartitionName returns the partition name for a thread. When the plain name
// would be longer than maxLen bytes it is truncated and suffixed with a hash of
// the thread ID so distinct threads never collide. A maxLen of 0 means no limit.
func PartitionName(thread ThreadID, maxLen int) string {
	name := PartitionPrefix + string(thread)
	return fitName(name, string(thread), maxLen)
}

// IndexName returns the name of the unique key index for a partition
func IndexName(partition string, maxLen int) string {
	return fitName(partition+"_key_uniq", partition, maxLen)
}

func fitName(name, hashInput string, maxLen int) string {
	if maxLen <= 0 || len(name) <= maxLen {
		return name
	}

	sum := sha256.Sum256([]byte(hashInput))
	suffix := "-" + hex.EncodeToString(sum[:])[:12]

	keep := maxLen - len(suffix)
	if keep < 0 {
		keep = 0
	}
	// Cut on a rune boundary.
	for keep > 0 && keep < len(name) && !utf8.RuneStart(name[keep]) {
		keep--
	}
	return name[:keep] + suffix
}
