package bridge

// Completion is the message delivered from an executor task to the
// engine thread carrying the result of one async tool call. Value is
// whatever JSON-serialisable value the provider returned — an object,
// array, string, number, boolean, or null — not only an object.
type Completion struct {
	ID     uint64
	Value  any
	ErrMsg string
	IsErr  bool
}

// completionChan is the multi-producer, single-consumer channel carrying
// Completion values from executor tasks to the driver loop. A plain
// buffered Go channel already is MPSC; no further synchronisation is
// needed around sends.
type completionChan chan Completion

// newCompletionChan allocates a completion channel with a 256-entry
// buffer, so a burst of up to that many sends from the executor does not
// block a producer goroutine on the consumer's poll cadence.
func newCompletionChan() completionChan {
	return make(completionChan, 256)
}
