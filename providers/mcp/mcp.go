// Package mcp adapts a single MCP (Model Context Protocol) server,
// connected over stdio, onto bridge.AsyncCaller and bridge.MetadataProvider
// so its tools can be registered into a tool chain under one prefix.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/c360studio/toolbridge/bridge"
)

// Provider wraps one MCP server connection.
type Provider struct {
	name    string
	command string
	args    []string
	env     map[string]string

	mu      sync.RWMutex
	client  *mcp.Client
	session *mcp.ClientSession
	running bool
}

// New returns a Provider that will launch command with args and env when
// Start is called.
func New(name, command string, args []string, env map[string]string) *Provider {
	return &Provider{name: name, command: command, args: args, env: env}
}

// Start connects to the MCP server over a stdio CommandTransport.
func (p *Provider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	p.client = mcp.NewClient(&mcp.Implementation{
		Name:    "toolbridge",
		Version: "1.0.0",
	}, nil)

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	for k, v := range p.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	transport := &mcp.CommandTransport{Command: cmd}
	session, err := p.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect to MCP server %s: %w", p.name, err)
	}
	p.session = session
	p.running = true
	return nil
}

// Stop closes the server connection.
func (p *Provider) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	var err error
	if p.session != nil {
		err = p.session.Close()
		p.session = nil
	}
	p.running = false
	return err
}

// ListTools fetches the server's tool list and converts each to a
// bridge.ToolDescriptor. All MCP tools are treated as async: an MCP call
// round-trips over stdio and must not block the engine thread.
func (p *Provider) ListTools() ([]bridge.ToolDescriptor, error) {
	p.mu.RLock()
	session := p.session
	running := p.running
	p.mu.RUnlock()
	if !running || session == nil {
		return nil, fmt.Errorf("MCP server %s is not running", p.name)
	}

	result, err := session.ListTools(context.Background(), nil)
	if err != nil {
		return nil, fmt.Errorf("list tools from %s: %w", p.name, err)
	}

	out := make([]bridge.ToolDescriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		// The SDK exposes the input schema as a typed jsonschema value;
		// a JSON round trip recovers the opaque tree the descriptor wants.
		schema := map[string]any{}
		if t.InputSchema != nil {
			if data, err := json.Marshal(t.InputSchema); err == nil {
				var m map[string]any
				if json.Unmarshal(data, &m) == nil {
					schema = m
				}
			}
		}
		out = append(out, bridge.ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			IsAsync:     true,
			Inputs:      schema,
			Outputs:     map[string]any{"type": "object"},
		})
	}
	return out, nil
}

// Call invokes name on the MCP server with args and returns its text
// content parsed back into JSON, falling back to the bare text when it
// isn't valid JSON.
func (p *Provider) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	p.mu.RLock()
	session := p.session
	running := p.running
	p.mu.RUnlock()
	if !running || session == nil {
		return nil, bridge.NewCallError(fmt.Sprintf("MCP server %s is not running", p.name))
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, bridge.NewCallError(fmt.Sprintf("call tool %s: %s", name, err))
	}

	text := formatContent(result.Content)
	if result.IsError {
		return nil, bridge.NewCallError(fmt.Sprintf("tool %s returned error: %s", name, text))
	}

	var parsed any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed, nil
	}
	return text, nil
}

// formatContent renders MCP content blocks as a single string, preferring
// text content and falling back to JSON encoding for anything else.
func formatContent(content []mcp.Content) string {
	var result string
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			result += v.Text
		default:
			if data, err := json.Marshal(c); err == nil {
				result += string(data)
			}
		}
	}
	return result
}
