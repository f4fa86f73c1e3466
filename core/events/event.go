package events

// Event represents a confirmation emitted by the marketplace ledger.
type Event interface {
	EventType() string
}

// Record is a flattened, string-valued view of an event used for logging and
// downstream fan-out.
type Record struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Recorder is implemented by events that can render themselves as a Record.
type Recorder interface {
	Event
	Record() *Record
}

// Emitter broadcasts confirmed events to downstream subscribers (metrics,
// logs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies Emitter while discarding all events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit implements the Emitter interface.
func (f EmitterFunc) Emit(evt Event) {
	if f != nil {
		f(evt)
	}
}

// Fanout forwards each event to every emitter in order.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, emitter := range f {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
