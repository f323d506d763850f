package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/toolbridge/bridge"
	"github.com/c360studio/toolbridge/executor"
	"github.com/c360studio/toolbridge/service"
)

func startTestServer(t *testing.T) *server.Server {
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
	return ns
}

func newTestClient(t *testing.T) *bridge.Client {
	t.Helper()
	pool := executor.NewPool(context.Background(), 4, nil)
	client := bridge.NewClient(bridge.Config{TimeoutMS: 5000, Executor: pool})
	client.RegisterSyncTool(bridge.ToolDescriptor{
		Name:    "add",
		Inputs:  map[string]any{"type": "object"},
		Outputs: map[string]any{"type": "number"},
	}, "add", bridge.SyncCallerFunc(func(_ string, args map[string]any) (any, error) {
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return a + b, nil
	}))
	return client
}

func TestComponentServesCallToolChain(t *testing.T) {
	ns := startTestServer(t)

	component := service.NewComponent(newTestClient(t), service.Config{URL: ns.ClientURL()})
	require.NoError(t, component.Start(context.Background()))
	defer component.Shutdown(time.Second)

	assert.True(t, component.IsRunning())

	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer conn.Close()

	payload, _ := json.Marshal(map[string]string{"script": `return add({a:2,b:3});`})
	msg, err := conn.Request(service.CallToolChainSubject, payload, 10*time.Second)
	require.NoError(t, err)

	var resp struct {
		Result any    `json:"result"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &resp))
	assert.Empty(t, resp.Error)
	assert.Equal(t, float64(5), resp.Result)
}

func TestComponentReportsScriptErrorsWithKind(t *testing.T) {
	ns := startTestServer(t)

	component := service.NewComponent(newTestClient(t), service.Config{URL: ns.ClientURL()})
	require.NoError(t, component.Start(context.Background()))
	defer component.Shutdown(time.Second)

	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer conn.Close()

	payload, _ := json.Marshal(map[string]string{"script": `throw new Error("nope");`})
	msg, err := conn.Request(service.CallToolChainSubject, payload, 10*time.Second)
	require.NoError(t, err)

	var resp struct {
		Error string `json:"error"`
		Kind  string `json:"error_kind"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &resp))
	assert.Contains(t, resp.Error, "nope")
	assert.Equal(t, "tool_error", resp.Kind)
}

func TestComponentRejectsMalformedRequests(t *testing.T) {
	ns := startTestServer(t)

	component := service.NewComponent(newTestClient(t), service.Config{URL: ns.ClientURL()})
	require.NoError(t, component.Start(context.Background()))
	defer component.Shutdown(time.Second)

	conn, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer conn.Close()

	msg, err := conn.Request(service.CallToolChainSubject, []byte("{not json"), 10*time.Second)
	require.NoError(t, err)

	var resp struct {
		Error string `json:"error"`
		Kind  string `json:"error_kind"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &resp))
	assert.Contains(t, resp.Error, "invalid request")
	assert.Equal(t, "serialization", resp.Kind)
}

func TestComponentStartTwiceFails(t *testing.T) {
	ns := startTestServer(t)

	component := service.NewComponent(newTestClient(t), service.Config{URL: ns.ClientURL()})
	require.NoError(t, component.Start(context.Background()))
	defer component.Shutdown(time.Second)

	require.Error(t, component.Start(context.Background()))
}
