package bridge

import (
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/c360studio/toolbridge/interfacetext"
)

// installTools walks every tool's sanitised access path, materialises
// namespace objects as needed, and binds a native stub per tool under
// the global root.
func installTools(vm *goja.Runtime, codec *jsonCodec, callers map[string]CallerEntry, shared *sharedState, pool asyncDispatcher, logger *slog.Logger) error {
	global := vm.GlobalObject()

	for name, entry := range callers {
		ns, leaf, hasNamespace := interfacetext.AccessPath(name)

		target := global
		if hasNamespace {
			obj, err := ensureNamespace(vm, global, ns)
			if err != nil {
				return fmt.Errorf("install tool %q: %w", name, err)
			}
			target = obj
		}

		cs := &callbackState{
			toolName: name,
			rawName:  entry.RawName,
			isAsync:  entry.Kind == CallerAsync,
			async:    entry.Async,
			sync:     entry.Sync,
			shared:   shared,
		}

		stub := newNativeStub(vm, codec, cs, pool, logger)
		if err := target.Set(leaf, stub); err != nil {
			return fmt.Errorf("install tool %q: bind %q: %w", name, leaf, err)
		}
	}
	return nil
}

// ensureNamespace looks up key on root; if it already holds an object it
// is reused, otherwise a fresh object is created and bound. Descending
// through a non-object existing binding is an install error.
func ensureNamespace(vm *goja.Runtime, root *goja.Object, key string) (*goja.Object, error) {
	existing := root.Get(key)
	if existing != nil && !goja.IsUndefined(existing) && !goja.IsNull(existing) {
		obj := existing.ToObject(vm)
		if obj == nil {
			return nil, fmt.Errorf("namespace %q already bound to a non-object value", key)
		}
		return obj, nil
	}
	obj := vm.NewObject()
	if err := root.Set(key, obj); err != nil {
		return nil, fmt.Errorf("bind namespace %q: %w", key, err)
	}
	return obj, nil
}
