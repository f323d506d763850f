package bridge

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/toolbridge/interfacetext"
)

// Config configures a Client. Executor is the async dispatch target (a
// nil Executor falls back to an unbounded dispatcher; see NewClient);
// TimeoutMS and MaxHeapMB fall back to their defaults (30000 ms, 128 MB)
// when zero.
type Config struct {
	TimeoutMS int
	MaxHeapMB int
	Executor  asyncDispatcher
	Logger    *slog.Logger
}

// Client is the host-facing surface: register tools and callers, read
// back descriptors and interface text, and run scripts through the
// sandboxed bridge.
type Client struct {
	mu       sync.RWMutex
	callers  map[string]CallerEntry
	executor asyncDispatcher
	timeout  time.Duration
	maxHeap  int
	logger   *slog.Logger
	ifaceGen *interfacetext.Generator
}

// NewClient constructs a Client from cfg. A nil Executor is replaced
// with an inline dispatcher that runs async calls on their own goroutine
// with no bound, suitable only for tests.
func NewClient(cfg Config) *Client {
	timeoutMS := cfg.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = 30000
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	executor := cfg.Executor
	if executor == nil {
		executor = unboundedDispatcher{}
	}
	return &Client{
		callers:  make(map[string]CallerEntry),
		executor: executor,
		timeout:  time.Duration(timeoutMS) * time.Millisecond,
		maxHeap:  cfg.MaxHeapMB,
		logger:   logger,
		ifaceGen: interfacetext.NewGenerator(),
	}
}

// unboundedDispatcher spawns one goroutine per call with no limit; used
// only when a Client is built without an explicit executor.
type unboundedDispatcher struct{}

func (unboundedDispatcher) Go(fn func()) { go fn() }

// RegisterAsyncTool inserts or overwrites a caller entry for descriptor,
// keyed by descriptor.Name, routing calls to caller via rawName. The
// descriptor's IsAsync is forced to match the registration kind so the
// generated interface text can never disagree with dispatch.
// Overwriting an existing entry is not an error; it is logged.
func (c *Client) RegisterAsyncTool(descriptor ToolDescriptor, rawName string, caller AsyncCaller) {
	descriptor.IsAsync = true
	c.register(CallerEntry{Tool: descriptor, RawName: rawName, Kind: CallerAsync, Async: caller})
}

// RegisterSyncTool inserts or overwrites a caller entry for descriptor,
// keyed by descriptor.Name, routing calls to caller via rawName. The
// descriptor's IsAsync is forced to false to match the registration
// kind.
func (c *Client) RegisterSyncTool(descriptor ToolDescriptor, rawName string, caller SyncCaller) {
	descriptor.IsAsync = false
	c.register(CallerEntry{Tool: descriptor, RawName: rawName, Kind: CallerSync, Sync: caller})
}

func (c *Client) register(entry CallerEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.callers[entry.Tool.Name]; exists {
		c.logger.Warn("tool registration overwritten", "name", entry.Tool.Name)
	}
	c.callers[entry.Tool.Name] = entry
	c.ifaceGen.Invalidate(entry.Tool.Name)
}

// RegisterAsyncSource lists tools from provider, renames each descriptor
// to "prefix.originalName", and registers it, preserving the original
// name as raw_name.
func (c *Client) RegisterAsyncSource(provider MetadataProvider, caller AsyncCaller, prefix string) error {
	descs, err := provider.ListTools()
	if err != nil {
		return fmt.Errorf("list tools from async source %q: %w", prefix, err)
	}
	for _, d := range descs {
		raw := d.Name
		d.Name = applyPrefix(prefix, d.Name)
		c.RegisterAsyncTool(d, raw, caller)
	}
	return nil
}

// RegisterSyncSource lists tools from provider, renames each descriptor
// to "prefix.originalName", and registers it, preserving the original
// name as raw_name.
func (c *Client) RegisterSyncSource(provider MetadataProvider, caller SyncCaller, prefix string) error {
	descs, err := provider.ListTools()
	if err != nil {
		return fmt.Errorf("list tools from sync source %q: %w", prefix, err)
	}
	for _, d := range descs {
		raw := d.Name
		d.Name = applyPrefix(prefix, d.Name)
		c.RegisterSyncTool(d, raw, caller)
	}
	return nil
}

func applyPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// GetTool returns the descriptor registered under name.
func (c *Client) GetTool(name string) (ToolDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.callers[name]
	if !ok {
		return ToolDescriptor{}, false
	}
	return entry.Tool, true
}

// GetTools returns every registered descriptor.
func (c *Client) GetTools() []ToolDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(c.callers))
	for _, entry := range c.callers {
		out = append(out, entry.Tool)
	}
	return out
}

// InterfaceText returns the generated TypeScript declaration block for
// the tool registered under name, for hosts that prompt an LLM with the
// tools it can call.
func (c *Client) InterfaceText(name string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.callers[name]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	return c.ifaceGen.ToInterfaceText(toInterfaceDescriptor(entry.Tool)), true
}

// AllInterfaceText returns every registered tool's interface text,
// concatenated in name order, for hosts that want one prompt-ready block
// describing the full tool set.
func (c *Client) AllInterfaceText() string {
	tools := c.GetTools()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	var b strings.Builder
	for _, t := range tools {
		b.WriteString(c.ifaceGen.ToInterfaceText(toInterfaceDescriptor(t)))
		b.WriteString("\n")
	}
	return b.String()
}

func toInterfaceDescriptor(t ToolDescriptor) interfacetext.Descriptor {
	return interfacetext.Descriptor{
		Name:        t.Name,
		Description: t.Description,
		Tags:        t.Tags,
		Inputs:      t.Inputs,
		Outputs:     t.Outputs,
		IsAsync:     t.IsAsync,
	}
}

// CallToolChain runs script inside a fresh engine runtime with every
// currently-registered tool installed, and returns its JSON result.
func (c *Client) CallToolChain(script string) (any, error) {
	c.mu.RLock()
	callers := make(map[string]CallerEntry, len(c.callers))
	for k, v := range c.callers {
		callers[k] = v
	}
	c.mu.RUnlock()

	vm := newEngineRuntime(c.maxHeap)
	codec, err := newJSONCodec(vm)
	if err != nil {
		return nil, WrapV8Error(err)
	}

	sender := newCompletionChan()
	shared := newSharedState(sender)
	defer close(sender)

	if err := installTools(vm, codec, callers, shared, c.executor, c.logger); err != nil {
		return nil, WrapV8Error(err)
	}

	return runDriver(vm, codec, shared, script, c.timeout)
}
