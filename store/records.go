// Package store persists a record of every call_tool_chain execution
// (and, optionally, every individual tool call within it) to a NATS
// JetStream key-value bucket, keyed so a caller can later pull the full
// trajectory of one execution.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// ExecutionsBucket is the KV bucket name for storing execution records.
const ExecutionsBucket = "TOOLBRIDGE_EXECUTIONS"

// DefaultTTL is the default retention for execution records.
const DefaultTTL = 7 * 24 * time.Hour

// CallRecord describes one tool dispatch that happened during an
// execution, for trajectory reconstruction.
type CallRecord struct {
	ToolName   string `json:"tool_name"`
	Args       string `json:"args"`
	Result     string `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// ExecutionRecord is one call_tool_chain run.
type ExecutionRecord struct {
	ExecutionID string       `json:"execution_id"`
	Script      string       `json:"script"`
	Status      string       `json:"status"` // "success", "tool_error", "v8_error", "serialization_error", "error"
	Result      string       `json:"result,omitempty"`
	Error       string       `json:"error,omitempty"`
	Calls       []CallRecord `json:"calls,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	DurationMs  int64        `json:"duration_ms"`
}

// CallRecordStore persists ExecutionRecords to a KV bucket.
type CallRecordStore struct {
	bucket jetstream.KeyValue
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a CallRecordStore.
type Option func(*CallRecordStore)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *CallRecordStore) { s.ttl = ttl }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *CallRecordStore) { s.logger = logger }
}

// New creates a CallRecordStore backed by js, creating or updating the
// executions bucket idempotently.
func New(ctx context.Context, js jetstream.JetStream, opts ...Option) (*CallRecordStore, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream handle required")
	}
	s := &CallRecordStore{ttl: DefaultTTL, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      ExecutionsBucket,
		Description: "Tool chain execution records",
		TTL:         s.ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}
	s.bucket = bucket
	return s, nil
}

// Store saves record under its ExecutionID.
func (s *CallRecordStore) Store(ctx context.Context, record *ExecutionRecord) error {
	if record.ExecutionID == "" {
		return fmt.Errorf("execution_id is required")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := s.bucket.Put(ctx, record.ExecutionID, data); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Get retrieves the record for executionID.
func (s *CallRecordStore) Get(ctx context.Context, executionID string) (*ExecutionRecord, error) {
	entry, err := s.bucket.Get(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	var record ExecutionRecord
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &record, nil
}

// Recent returns every stored record whose StartedAt falls within since
// of now, most recent first. Intended for small-scale operational
// inspection, not high-volume querying.
func (s *CallRecordStore) Recent(ctx context.Context, since time.Duration) ([]*ExecutionRecord, error) {
	keys, err := s.bucket.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []*ExecutionRecord{}, nil
		}
		return nil, fmt.Errorf("list keys: %w", err)
	}

	cutoff := time.Now().Add(-since)
	var records []*ExecutionRecord
	for _, key := range keys {
		entry, err := s.bucket.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, jetstream.ErrKeyDeleted) && !errors.Is(err, jetstream.ErrKeyNotFound) {
				s.logger.Warn("store: failed to get key", "key", key, "error", err)
			}
			continue
		}
		var record ExecutionRecord
		if err := json.Unmarshal(entry.Value(), &record); err != nil {
			s.logger.Warn("store: failed to unmarshal record", "key", key, "error", err)
			continue
		}
		if record.StartedAt.Before(cutoff) {
			continue
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})
	return records, nil
}
