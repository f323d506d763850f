package bridge

import "context"

// CallError is the error type a provider returns for a failed tool call;
// its message is surfaced verbatim to script as the rejection text.
type CallError struct {
	Message string
}

func (e *CallError) Error() string { return e.Message }

// NewCallError wraps a plain message as a CallError.
func NewCallError(msg string) *CallError { return &CallError{Message: msg} }

// AsyncCaller may be invoked from any goroutine; it performs the actual
// tool I/O off the engine thread and reports its result (or a CallError)
// once complete. The result may be any JSON-serialisable value, not just
// an object.
type AsyncCaller interface {
	Call(ctx context.Context, name string, args map[string]any) (any, error)
}

// SyncCaller is invoked on the engine thread and must not block
// indefinitely: the driver loop makes no progress while it runs. Its
// result, like AsyncCaller's, may be any JSON-serialisable value.
type SyncCaller interface {
	Call(name string, args map[string]any) (any, error)
}

// MetadataProvider is an optional auxiliary capability used only by host
// glue (register_async_source / register_sync_source) to populate the
// caller table; it is never consulted during execution.
type MetadataProvider interface {
	ListTools() ([]ToolDescriptor, error)
}

// AsyncCallerFunc adapts a plain function to the AsyncCaller interface.
type AsyncCallerFunc func(ctx context.Context, name string, args map[string]any) (any, error)

func (f AsyncCallerFunc) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	return f(ctx, name, args)
}

// SyncCallerFunc adapts a plain function to the SyncCaller interface.
type SyncCallerFunc func(name string, args map[string]any) (any, error)

func (f SyncCallerFunc) Call(name string, args map[string]any) (any, error) {
	return f(name, args)
}
