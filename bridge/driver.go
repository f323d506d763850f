package bridge

import (
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// pollInterval is the blocking-wait poll interval: short enough to
// bound scheduler idleness, long enough not to spin.
const pollInterval = 5 * time.Millisecond

// runDriver wraps script as an immediately-invoked async function,
// compiles and runs it on the engine thread, then alternates microtask
// pumps and completion drains until the top-level promise settles or the
// execution times out.
func runDriver(vm *goja.Runtime, codec *jsonCodec, shared *sharedState, script string, timeout time.Duration) (any, error) {
	wrapped := fmt.Sprintf("(async function(){\n%s\n})()", script)

	prog, err := goja.Compile("<tool-chain>", wrapped, true)
	if err != nil {
		return nil, WrapV8Error(fmt.Errorf("compile: %w", err))
	}

	// The interrupt covers the one gap the poll loop cannot: a script
	// that busy-loops without ever yielding control back to the driver.
	timer := time.AfterFunc(timeout, func() { vm.Interrupt("execution timeout") })
	settled := func() {
		timer.Stop()
		vm.ClearInterrupt()
	}
	defer settled()

	v, err := vm.RunProgram(prog)
	if err != nil {
		if isInterrupt(err) {
			return nil, NewV8Error("execution timeout")
		}
		return nil, WrapV8Error(fmt.Errorf("run: %w", err))
	}

	promise, ok := asPromise(v)
	if !ok {
		// The async wrapper is always applied, so this branch is
		// defensive only.
		return engineValueToJSON(codec, v)
	}

	start := time.Now()
	for {
		if closed := drainAvailable(vm, codec, shared); closed {
			return nil, WrapV8Error(fmt.Errorf("execution incomplete: completion channel closed"))
		}

		pumpMicrotasks(vm)

		switch promise.State() {
		case goja.PromiseStateFulfilled:
			settled()
			return engineValueToJSON(codec, promise.Result())
		case goja.PromiseStateRejected:
			settled()
			// ToString of the rejection value, not JSON: an Error object
			// stringifies to "Error: <message>", which is what the caller
			// sees as the tool error text.
			return nil, NewToolError(promise.Result().String())
		}

		if time.Since(start) > timeout {
			return nil, NewV8Error("execution timeout")
		}

		select {
		case c, ok := <-shared.sender:
			if !ok {
				return nil, WrapV8Error(fmt.Errorf("execution incomplete: completion channel closed"))
			}
			applyCompletion(codec, shared, c)
		case <-time.After(pollInterval):
		}
	}
}

// drainAvailable applies every completion currently buffered in the
// channel without blocking. It reports whether the channel was found
// closed.
func drainAvailable(vm *goja.Runtime, codec *jsonCodec, shared *sharedState) (closed bool) {
	for {
		select {
		case c, ok := <-shared.sender:
			if !ok {
				return true
			}
			applyCompletion(codec, shared, c)
		default:
			return false
		}
	}
}

// applyCompletion looks up and removes the resolver for c.ID; a
// completion with no matching resolver belonged to a no-longer-tracked
// call (e.g. one abandoned after timeout) and is dropped silently.
func applyCompletion(codec *jsonCodec, shared *sharedState, c Completion) {
	p, ok := shared.takeResolver(c.ID)
	if !ok {
		return
	}
	if c.IsErr {
		p.reject(c.ErrMsg)
		return
	}
	val, err := jsonToEngineValue(codec, c.Value)
	if err != nil {
		p.reject("failed to serialize tool result")
		return
	}
	p.resolve(val)
}

// isInterrupt reports whether err is goja's interrupt error, raised when
// the timeout timer fires mid-execution.
func isInterrupt(err error) bool {
	var ie *goja.InterruptedError
	return errors.As(err, &ie)
}

// asPromise reports whether v is a goja Promise and returns it.
func asPromise(v goja.Value) (*goja.Promise, bool) {
	if v == nil {
		return nil, false
	}
	p, ok := v.Export().(*goja.Promise)
	return p, ok
}

// pumpMicrotasks instructs the engine to run all pending microtasks so
// that promise continuations scheduled by the most recent completion
// drain run before the driver inspects promise state again. goja has no
// public "flush job queue" call distinct from program execution, so
// running an empty program stands in for a microtask checkpoint.
func pumpMicrotasks(vm *goja.Runtime) {
	_, _ = vm.RunString("")
}
