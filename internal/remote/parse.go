package remote

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/stacklok/thv-history-sync/internal/config"
	"github.com/stacklok/thv-history-sync/internal/store"
)

// ParseMessage extracts the key and timestamp of a single remote record.
// The record itself is kept verbatim as the payload.
func ParseMessage(thread store.ThreadID, raw []byte, fields config.FieldsConfig) (store.Message, error) {
	if !gjson.ValidBytes(raw) {
		return store.Message{}, fmt.Errorf("message is not valid JSON")
	}
	return parseResult(thread, gjson.ParseBytes(raw), fields)
}

func parseResult(thread store.ThreadID, rec gjson.Result, fields config.FieldsConfig) (store.Message, error) {
	if !rec.IsObject() {
		return store.Message{}, fmt.Errorf("message must be a JSON object")
	}

	key := rec.Get(fields.Key)
	if !key.Exists() || key.Type == gjson.Null || key.String() == "" {
		return store.Message{}, fmt.Errorf("message has no key at %q", fields.Key)
	}

	ts, err := parseTimestamp(rec.Get(fields.Timestamp))
	if err != nil {
		return store.Message{}, fmt.Errorf("message %s: %w", key.String(), err)
	}

	return store.Message{
		Key:       key.String(),
		ThreadID:  thread,
		Timestamp: ts,
		Payload:   json.RawMessage(rec.Raw),
	}, nil
}

// parseTimestamp accepts unix milliseconds (number or numeric string) or an RFC 3339 string.
func parseTimestamp(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()), nil
	case gjson.String:
		if ms, err := strconv.ParseInt(v.Str, 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		t, err := time.Parse(time.RFC3339Nano, v.Str)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", v.Str)
		}
		return t.Truncate(time.Millisecond), nil
	default:
		return time.Time{}, fmt.Errorf("missing or invalid timestamp")
	}
}

// parseMessages reads the message array from a history response
func parseMessages(thread store.ThreadID, body []byte, fields config.FieldsConfig) ([]store.Message, error) {
	list, err := arrayAt(body, fields.Messages)
	if err != nil {
		return nil, err
	}

	out := make([]store.Message, 0, len(list))
	for i, rec := range list {
		msg, err := parseResult(thread, rec, fields)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, msg)
	}
	return out, nil
}

// parseCount reads the message count from a thread response. A missing, null
// or negative value is reported as nil.
func parseCount(body []byte, path string) (*int64, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	v := gjson.GetBytes(body, path)
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		n := v.Int()
		if n < 0 {
			slog.Warn("Ignoring negative message count", "path", path, "count", n)
			return nil, nil
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("message count at %q is not a number", path)
	}
}

// parseThreads reads the thread list; each element is either an ID string or
// an object carrying it in "id".
func parseThreads(body []byte, path string) ([]store.ThreadID, error) {
	list, err := arrayAt(body, path)
	if err != nil {
		return nil, err
	}

	out := make([]store.ThreadID, 0, len(list))
	for i, v := range list {
		id := v
		if v.IsObject() {
			id = v.Get("id")
		}
		if (id.Type != gjson.String && id.Type != gjson.Number) || id.String() == "" {
			return nil, fmt.Errorf("thread %d has no id", i)
		}
		out = append(out, store.ThreadID(id.String()))
	}
	return out, nil
}

func arrayAt(body []byte, path string) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}
	v := gjson.ParseBytes(body)
	if path != "" {
		v = v.Get(path)
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("expected a JSON array at %q", path)
	}
	return v.Array(), nil
}
