package store

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPartitionName(t *testing.T) {
	t.Parallel()

	long := ThreadID(strings.Repeat("x", 100))

	tests := []struct {
		name   string
		thread ThreadID
		maxLen int
		want   string
	}{
		{name: "short_id", thread: "general", maxLen: 63, want: "thread-general"},
		{name: "no_limit", thread: long, maxLen: 0, want: "thread-" + string(long)},
		{name: "exact_limit", thread: "abc", maxLen: 10, want: "thread-abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PartitionName(tt.thread, tt.maxLen))
		})
	}
}

func TestPartitionName_Truncated(t *testing.T) {
	t.Parallel()

	a := ThreadID(strings.Repeat("a", 80) + "-one")
	b := ThreadID(strings.Repeat("a", 80) + "-two")

	nameA := PartitionName(a, 63)
	nameB := PartitionName(b, 63)

	assert.LessOrEqual(t, len(nameA), 63)
	assert.LessOrEqual(t, len(nameB), 63)
	assert.True(t, strings.HasPrefix(nameA, PartitionPrefix))
	assert.NotEqual(t, nameA, nameB)
	assert.Equal(t, nameA, PartitionName(a, 63), "names must be stable")
}

func TestPartitionName_MultibyteBoundary(t *testing.T) {
	t.Parallel()

	thread := ThreadID(strings.Repeat("é", 40))
	name := PartitionName(thread, 30)

	assert.LessOrEqual(t, len(name), 30)
	assert.True(t, strings.HasPrefix(name, PartitionPrefix))
	assert.True(t, utf8.ValidString(name))
}

func TestIndexName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "thread-general_key_uniq", IndexName("thread-general", 63))
	assert.LessOrEqual(t, len(IndexName(strings.Repeat("t", 70), 63)), 63)
}
