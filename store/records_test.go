package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/toolbridge/store"
)

func newTestJetStream(t *testing.T) jetstream.JetStream {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	require.NoError(t, err)
	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "test NATS server failed to start")
	t.Cleanup(ns.Shutdown)

	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	js, err := jetstream.New(conn)
	require.NoError(t, err)
	return js
}

func TestStoreAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, newTestJetStream(t))
	require.NoError(t, err)

	record := &store.ExecutionRecord{
		ExecutionID: "exec-1",
		Script:      `return add({a:2,b:3});`,
		Status:      "success",
		Result:      "5",
		Calls: []store.CallRecord{
			{ToolName: "add", Args: `{"a":2,"b":3}`, Result: "5", DurationMs: 1},
		},
		StartedAt:   time.Now().Add(-time.Second),
		CompletedAt: time.Now(),
		DurationMs:  1000,
	}
	require.NoError(t, s.Store(ctx, record))

	got, err := s.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, record.Script, got.Script)
	assert.Equal(t, record.Status, got.Status)
	require.Len(t, got.Calls, 1)
	assert.Equal(t, "add", got.Calls[0].ToolName)
}

func TestStoreRequiresExecutionID(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, newTestJetStream(t))
	require.NoError(t, err)

	err = s.Store(ctx, &store.ExecutionRecord{Script: "return 1;"})
	require.Error(t, err)
}

func TestRecentFiltersByAge(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, newTestJetStream(t))
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, s.Store(ctx, &store.ExecutionRecord{
		ExecutionID: "old",
		Status:      "success",
		StartedAt:   now.Add(-2 * time.Hour),
	}))
	require.NoError(t, s.Store(ctx, &store.ExecutionRecord{
		ExecutionID: "fresh",
		Status:      "success",
		StartedAt:   now.Add(-time.Minute),
	}))

	records, err := s.Recent(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].ExecutionID)
}

func TestRecentOnEmptyBucket(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(ctx, newTestJetStream(t))
	require.NoError(t, err)

	records, err := s.Recent(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, records)
}
