package bridge

import (
	"sync"

	"github.com/dop251/goja"
)

var (
	platformOnce sync.Once
)

// bootstrapPlatform runs exactly once per process, regardless of how
// many executions occur concurrently. goja needs no actual process-wide
// init (unlike V8's platform/isolate setup) so the guarded body below is
// a documented no-op; the guard itself is kept so that a future engine
// swap with real bootstrap cost has somewhere to put it without touching
// call sites.
func bootstrapPlatform() {
	platformOnce.Do(func() {
		// goja.New() needs no shared platform state; nothing to do here.
	})
}

// defaultMaxHeapMB is the default isolate heap upper bound.
const defaultMaxHeapMB = 128

// newEngineRuntime creates a fresh, per-execution goja runtime with the
// given heap ceiling (in megabytes) approximated via goja's call-stack
// limit, since goja has no native byte-accounted heap cap the way V8
// does. maxHeapMB <= 0 uses the default.
func newEngineRuntime(maxHeapMB int) *goja.Runtime {
	bootstrapPlatform()
	if maxHeapMB <= 0 {
		maxHeapMB = defaultMaxHeapMB
	}
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	// Crude but monotone approximation: more permitted megabytes allow a
	// deeper call stack. This bounds runaway recursion only; memory
	// allocated without deep recursion is not limited.
	vm.SetMaxCallStackSize(maxHeapMB * 64)
	return vm
}
