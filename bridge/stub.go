package bridge

import (
	"context"
	"log/slog"

	"github.com/dop251/goja"
)

// asyncDispatcher runs fn on the external task executor, off the engine
// goroutine. It never blocks the caller and never touches engine state.
type asyncDispatcher interface {
	Go(fn func())
}

// newNativeStub builds the native function bound under one tool's
// access path. The closure carries everything the call needs; unlike an
// opaque address a C callback would dereference, a Go closure gives the
// stub a safe, GC-tracked handle to its callbackState.
func newNativeStub(vm *goja.Runtime, codec *jsonCodec, cs *callbackState, pool asyncDispatcher, logger *slog.Logger) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var argVal goja.Value
		if len(call.Arguments) > 0 {
			argVal = call.Argument(0)
		}

		var args any
		if argVal != nil {
			parsed, err := engineValueToJSON(codec, argVal)
			if err != nil {
				logger.Debug("tool argument failed to serialise, dispatching with null",
					"tool", cs.toolName, "error", err)
				args = nil
			} else {
				args = parsed
			}
		}
		argsMap := argToMap(args)

		if cs.isAsync {
			return dispatchAsync(vm, cs, pool, argsMap)
		}
		return dispatchSync(vm, codec, cs, argsMap)
	}
}

func dispatchAsync(vm *goja.Runtime, cs *callbackState, pool asyncDispatcher, args map[string]any) goja.Value {
	if cs.async == nil {
		panic(vm.NewGoError(NewToolError("no caller registered for tool")))
	}

	promise, resolve, reject := vm.NewPromise()

	id := cs.shared.allocID()
	cs.shared.registerResolver(id, resolverPair{
		resolve: func(v any) { resolve(v) },
		reject:  func(v any) { reject(v) },
	})

	caller := cs.async
	rawName := cs.rawName
	sender := cs.shared.sender

	pool.Go(func() {
		result, err := caller.Call(context.Background(), rawName, args)
		completion := Completion{ID: id}
		if err != nil {
			completion.IsErr = true
			completion.ErrMsg = err.Error()
		} else {
			completion.Value = result
		}
		sendCompletion(sender, completion)
	})

	return vm.ToValue(promise)
}

// sendCompletion delivers a completion to the engine thread. The only
// failure mode is that the driver loop has already returned and closed
// the channel, in which case the send panics; that panic is recovered
// and the completion is dropped silently, since the execution it
// belonged to has already ended.
func sendCompletion(sender completionChan, c Completion) {
	defer func() { _ = recover() }()
	sender <- c
}

func dispatchSync(vm *goja.Runtime, codec *jsonCodec, cs *callbackState, args map[string]any) goja.Value {
	if cs.sync == nil {
		panic(vm.NewGoError(NewToolError("no caller registered for tool")))
	}
	result, err := cs.sync.Call(cs.rawName, args)
	if err != nil {
		panic(vm.NewGoError(err))
	}
	val, err := jsonToEngineValue(codec, result)
	if err != nil {
		panic(vm.NewGoError(err))
	}
	return val
}
