// Package memory provides an in-process implementation of store.Store.
// It is used for development setups and tests; nothing survives a restart.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/stacklok/thv-history-sync/internal/store"
)

// ErrDuplicateKey is returned by Insert when the key is already stored
var ErrDuplicateKey = errors.New("duplicate message key")

// partition is unique by key from creation, like the database backends
type partition struct {
	rows        []store.Message
	byKey       map[string]int
	indexChecks int
}

// Store keeps one partition per thread behind a single mutex
type Store struct {
	mu         sync.RWMutex
	partitions map[store.ThreadID]*partition
	closed     bool
}

var (
	_ store.Store           = (*Store)(nil)
	_ store.PartitionLister = (*Store)(nil)
)

// New returns an empty store
func New() *Store {
	return &Store{partitions: make(map[store.ThreadID]*partition)}
}

// EnsurePartition creates the thread's partition if missing
func (s *Store) EnsurePartition(_ context.Context, thread store.ThreadID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.partitionLocked(thread)
	return nil
}

// CountByThread returns the number of stored rows for the thread
func (s *Store) CountByThread(_ context.Context, thread store.ThreadID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	p, ok := s.partitions[thread]
	if !ok {
		return 0, nil
	}
	return int64(len(p.rows)), nil
}

// EnsureUniqueIndex records the check; partitions are always unique by key
func (s *Store) EnsureUniqueIndex(_ context.Context, thread store.ThreadID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.partitionLocked(thread).indexChecks++
	return nil
}

// UpsertBatch inserts or overwrites every message by key
func (s *Store) UpsertBatch(_ context.Context, thread store.ThreadID, msgs []store.Message) (store.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result store.UpsertResult
	if err := s.checkOpen(); err != nil {
		result.Failed = len(msgs)
		return result, err
	}

	p := s.partitionLocked(thread)
	var errs []error
	for _, msg := range msgs {
		if msg.Key == "" {
			result.Failed++
			errs = append(errs, fmt.Errorf("message without key"))
			continue
		}
		msg.ThreadID = thread
		if i, ok := p.byKey[msg.Key]; ok {
			p.rows[i] = msg
			result.Updated++
			continue
		}
		p.byKey[msg.Key] = len(p.rows)
		p.rows = append(p.rows, msg)
		result.Inserted++
	}

	if len(errs) > 0 {
		return result, fmt.Errorf("%d of %d records failed: %w", result.Failed, len(msgs), errors.Join(errs...))
	}
	return result, nil
}

// Insert appends the message to its thread partition
func (s *Store) Insert(_ context.Context, msg store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	p := s.partitionLocked(msg.ThreadID)
	if _, ok := p.byKey[msg.Key]; ok {
		return fmt.Errorf("insert %q: %w", msg.Key, ErrDuplicateKey)
	}
	p.byKey[msg.Key] = len(p.rows)
	p.rows = append(p.rows, msg)
	return nil
}

// Messages returns a copy of the thread's rows, newest first
func (s *Store) Messages(thread store.ThreadID) []store.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.partitions[thread]
	if !ok {
		return nil
	}
	out := slices.Clone(p.rows)
	slices.SortStableFunc(out, func(a, b store.Message) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// Partitions returns the partition name of every thread seen so far
func (s *Store) Partitions(_ context.Context) (map[store.ThreadID]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	out := make(map[store.ThreadID]string, len(s.partitions))
	for thread := range s.partitions {
		out[thread] = store.PartitionName(thread, 0)
	}
	return out, nil
}

// IndexChecks reports how many times EnsureUniqueIndex ran for the thread
func (s *Store) IndexChecks(thread store.ThreadID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.partitions[thread]; ok {
		return p.indexChecks
	}
	return 0
}

// Ping fails once the store is closed
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen()
}

// Close drops all data
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.partitions = nil
	return nil
}

func (s *Store) checkOpen() error {
	if s.closed {
		return errors.New("memory store is closed")
	}
	return nil
}

func (s *Store) partitionLocked(thread store.ThreadID) *partition {
	p, ok := s.partitions[thread]
	if !ok {
		p = &partition{byKey: make(map[string]int)}
		s.partitions[thread] = p
	}
	return p
}
