package bridge

import "sync/atomic"

// resolverPair is the persistent handle a resolved/rejected promise needs:
// the two functions goja's NewPromise returns for settling it.
type resolverPair struct {
	resolve func(any)
	reject  func(any)
}

// sharedState is the per-execution shared bridge state: a monotonically
// increasing id allocator, a pending counter mutated only from the
// engine thread, the resolvers table, and the completion channel's
// producer endpoint.
//
// Native stubs reach this state through closures that capture
// *sharedState directly, so there is no separate small-integer handle
// table: the garbage collector keeps this value alive for exactly as
// long as any native stub closure referencing it is reachable, which is
// exactly the lifetime of one execution.
type sharedState struct {
	nextID    uint64 // atomic
	pending   int64  // engine-thread only
	resolvers map[uint64]resolverPair
	sender    completionChan
}

func newSharedState(sender completionChan) *sharedState {
	return &sharedState{
		resolvers: make(map[uint64]resolverPair),
		sender:    sender,
	}
}

// allocID returns the next id, starting at 1.
func (s *sharedState) allocID() uint64 {
	return atomic.AddUint64(&s.nextID, 1)
}

// registerResolver records a pending resolver and increments pending.
// Called only from the engine thread.
func (s *sharedState) registerResolver(id uint64, p resolverPair) {
	s.resolvers[id] = p
	s.pending++
}

// takeResolver removes and returns the resolver for id, if any, and
// decrements pending with saturation. Called only from the engine thread.
func (s *sharedState) takeResolver(id uint64) (resolverPair, bool) {
	p, ok := s.resolvers[id]
	if !ok {
		return resolverPair{}, false
	}
	delete(s.resolvers, id)
	if s.pending > 0 {
		s.pending--
	}
	return p, true
}

// callbackState is the record a native stub closes over to dispatch a
// call: which tool it represents, the caller to invoke, and a back
// reference to the shared bridge state. It needs no explicit
// stable-address management because Go closures reference it directly.
type callbackState struct {
	toolName string
	rawName  string
	isAsync  bool
	async    AsyncCaller
	sync     SyncCaller
	shared   *sharedState
}
