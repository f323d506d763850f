// Package service exposes a Client as a NATS request/reply endpoint, so
// remote callers can submit a script over the wire and receive back its
// JSON result or a typed error.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/toolbridge/bridge"
	"github.com/c360studio/toolbridge/metrics"
	"github.com/c360studio/toolbridge/store"
)

// CallToolChainSubject is the NATS subject the Component subscribes to.
const CallToolChainSubject = "toolbridge.call_tool_chain"

// Config configures a Component's NATS connection.
type Config struct {
	// URL is the NATS server URL. Empty means run an embedded server.
	URL string
	// Subject overrides CallToolChainSubject when non-empty.
	Subject string
	// RecordStore, if non-nil, persists one store.ExecutionRecord per
	// decoded request; a request that fails to decode is not recorded.
	RecordStore *store.CallRecordStore
	Logger      *slog.Logger
}

// request is the wire shape of a call_tool_chain request.
type request struct {
	Script string `json:"script"`
}

// response is the wire shape of a call_tool_chain reply.
type response struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"error_kind,omitempty"` // "v8_error", "tool_error", "serialization_error" or "error" for a failed run; "serialization" for an undecodable request
}

// Component runs a subscription loop translating NATS requests into
// bridge.Client.CallToolChain calls.
type Component struct {
	client  *bridge.Client
	cfg     Config
	logger  *slog.Logger
	subject string

	embeddedServer *server.Server
	conn           *nats.Conn
	js             jetstream.JetStream
	sub            *nats.Subscription

	mu        sync.RWMutex
	running   bool
	startTime time.Time
}

// NewComponent wires client into a Component ready to Start.
func NewComponent(client *bridge.Client, cfg Config) *Component {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	subject := cfg.Subject
	if subject == "" {
		subject = CallToolChainSubject
	}
	return &Component{client: client, cfg: cfg, logger: logger, subject: subject}
}

// Start connects to NATS (embedded or external) and begins serving
// requests.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("component already running")
	}

	if err := c.connectNATS(); err != nil {
		return fmt.Errorf("connect NATS: %w", err)
	}

	sub, err := c.conn.Subscribe(c.subject, c.handleRequest)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", c.subject, err)
	}
	c.sub = sub
	c.running = true
	c.startTime = time.Now()

	c.logger.Info("toolbridge service started", "subject", c.subject)
	return nil
}

func (c *Component) connectNATS() error {
	if c.cfg.URL != "" {
		conn, err := nats.Connect(c.cfg.URL)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		c.conn = conn
	} else {
		opts := &server.Options{
			Port:      -1,
			JetStream: true,
			NoLog:     true,
			NoSigs:    true,
		}
		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}
		c.embeddedServer = ns

		conn, err := nats.Connect(ns.ClientURL())
		if err != nil {
			ns.Shutdown()
			return fmt.Errorf("connect to embedded NATS: %w", err)
		}
		c.conn = conn
	}

	js, err := jetstream.New(c.conn)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	c.js = js
	return nil
}

// JetStream returns the component's JetStream handle, for callers that
// want to build a store.CallRecordStore against the same connection.
func (c *Component) JetStream() jetstream.JetStream {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.js
}

// SetRecordStore attaches or replaces the execution record store used by
// handleRequest, for callers that build the store from the component's
// own JetStream handle after Start.
func (c *Component) SetRecordStore(s *store.CallRecordStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.RecordStore = s
}

func (c *Component) handleRequest(msg *nats.Msg) {
	start := time.Now()
	metrics.ExecutionsActive.Inc()
	defer metrics.ExecutionsActive.Dec()

	var req request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.reply(msg, response{Error: fmt.Sprintf("invalid request: %s", err), Kind: "serialization"})
		return
	}

	result, err := c.client.CallToolChain(req.Script)
	status := "success"
	var resp response
	if err != nil {
		status = errorKind(err)
		resp = response{Error: err.Error(), Kind: status}
	} else {
		resp = response{Result: result}
	}
	metrics.ObserveExecution(status, time.Since(start))

	c.mu.RLock()
	recordStore := c.cfg.RecordStore
	c.mu.RUnlock()

	if recordStore != nil {
		record := &store.ExecutionRecord{
			ExecutionID: uuid.NewString(),
			Script:      req.Script,
			Status:      status,
			StartedAt:   start,
			CompletedAt: time.Now(),
			DurationMs:  time.Since(start).Milliseconds(),
		}
		if err != nil {
			record.Error = err.Error()
		} else if data, merr := json.Marshal(result); merr == nil {
			record.Result = string(data)
		}
		if serr := recordStore.Store(context.Background(), record); serr != nil {
			c.logger.Warn("failed to persist execution record", "error", serr)
		}
	}

	c.reply(msg, resp)
}

func errorKind(err error) string {
	switch {
	case bridge.IsV8Error(err):
		return "v8_error"
	case bridge.IsToolError(err):
		return "tool_error"
	case bridge.IsSerializationError(err):
		return "serialization_error"
	default:
		return "error"
	}
}

func (c *Component) reply(msg *nats.Msg, resp response) {
	data, err := json.Marshal(resp)
	if err != nil {
		data, _ = json.Marshal(response{Error: "failed to serialize response", Kind: "serialization"})
	}
	if err := msg.Respond(data); err != nil {
		c.logger.Warn("failed to send reply", "error", err)
	}
}

// Shutdown drains the subscription and closes the NATS connection,
// shutting down an embedded server if one was started.
func (c *Component) Shutdown(timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}

	if c.sub != nil {
		_ = c.sub.Drain()
	}
	if c.conn != nil {
		_ = c.conn.Drain()
		c.conn.Close()
	}
	if c.embeddedServer != nil {
		c.embeddedServer.Shutdown()
		c.embeddedServer.WaitForShutdown()
	}
	c.running = false
	return nil
}

// IsRunning reports whether the component is currently serving requests.
func (c *Component) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Uptime returns how long the component has been running.
func (c *Component) Uptime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.running {
		return 0
	}
	return time.Since(c.startTime)
}
