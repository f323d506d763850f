// Package bridge implements the sandboxed tool-orchestration execution
// bridge: it exposes typed tool stubs as callable globals inside a fresh
// goja runtime, routes calls made from script to host-side providers, and
// drives the runtime's microtask loop until the top-level script promise
// settles, under a wall-clock timeout.
package bridge

// ToolDescriptor is the plain data describing one tool: its access name,
// human-facing metadata, and the JSON schemas for its input and output.
// name may contain exactly one '.' separating a namespace from a leaf;
// descriptors with no '.' are installed at the global root.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Inputs      map[string]any `json:"inputs"`
	Outputs     map[string]any `json:"outputs"`
	IsAsync     bool           `json:"is_async"`
}

// CallerKind distinguishes which capability a CallerEntry carries.
type CallerKind int

const (
	// CallerAsync marks a CallerEntry whose Async field holds the caller.
	CallerAsync CallerKind = iota
	// CallerSync marks a CallerEntry whose Sync field holds the caller.
	CallerSync
)

// CallerEntry pairs a tool descriptor with the provider-side caller that
// actually executes it. RawName is the provider-visible name as reported
// by the provider before any prefix the host applied for scoping; the
// bridge always dispatches using RawName, never the possibly-prefixed
// descriptor name.
type CallerEntry struct {
	Tool    ToolDescriptor
	RawName string
	Kind    CallerKind
	Async   AsyncCaller
	Sync    SyncCaller
}
