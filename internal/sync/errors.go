package sync

import (
	"errors"
	"fmt"

	"github.com/stacklok/thv-history-sync/internal/store"
)

// ErrorKind classifies a thread sync failure
type ErrorKind string

// Error kinds
const (
	KindRemoteCountUnavailable ErrorKind = "remote_count_unavailable"
	KindRemoteFetch            ErrorKind = "remote_fetch"
	KindStoreRead              ErrorKind = "store_read"
	KindStoreWrite             ErrorKind = "store_write"
	KindPartitionSetup         ErrorKind = "partition_setup"
	KindIndexSetup             ErrorKind = "index_setup"
	KindInternal               ErrorKind = "internal"
)

// Sentinel errors matched by errors.Is against an *Error of the same kind
var (
	ErrRemoteCountUnavailable = errors.New("remote message count unavailable")
	ErrRemoteFetch            = errors.New("remote fetch failed")
	ErrStoreRead              = errors.New("local store read failed")
	ErrStoreWrite             = errors.New("local store write failed")
	ErrPartitionSetup         = errors.New("partition setup failed")
	ErrIndexSetup             = errors.New("unique index setup failed")
	ErrInternal               = errors.New("internal error")
)

var sentinels = map[ErrorKind]error{
	KindRemoteCountUnavailable: ErrRemoteCountUnavailable,
	KindRemoteFetch:            ErrRemoteFetch,
	KindStoreRead:              ErrStoreRead,
	KindStoreWrite:             ErrStoreWrite,
	KindPartitionSetup:         ErrPartitionSetup,
	KindIndexSetup:             ErrIndexSetup,
	KindInternal:               ErrInternal,
}

// Error is a thread sync failure
type Error struct {
	Kind   ErrorKind
	Thread store.ThreadID
	Err    error
}

func newError(kind ErrorKind, thread store.ThreadID, err error) *Error {
	return &Error{Kind: kind, Thread: thread, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if s, ok := sentinels[e.Kind]; ok {
		msg = s.Error()
	}
	if e.Thread != "" {
		msg = fmt.Sprintf("thread %s: %s", e.Thread, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
