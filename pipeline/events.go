package pipeline

import (
	"sync"
	"time"
)

// State is a step of the refinement state machine.
type State string

const (
	StatePlanning        State = "PLANNING"
	StateStyling         State = "STYLING"
	StateVisualizing     State = "VISUALIZING"
	StateCritiquing      State = "CRITIQUING"
	StateAccepted        State = "ACCEPTED"
	StateRoundsExhausted State = "ROUNDS_EXHAUSTED"
	StateCompleted       State = "COMPLETED"
	StateFailed          State = "FAILED"
)

// Terminal reports whether no further events follow s for the run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Event is emitted on every state transition of a run.
type Event struct {
	RunID   string        `json:"run_id"`
	State   State         `json:"state"`
	Round   int           `json:"round,omitempty"`
	Message string        `json:"message,omitempty"`
	Time    time.Time     `json:"time"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Observer receives run events. Implementations must not block.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

// Observers fans events out to every registered observer in order.
type Observers struct {
	mu   sync.RWMutex
	list []Observer
}

// NewObservers creates a fan-out over obs; nil entries are skipped.
func NewObservers(obs ...Observer) *Observers {
	o := &Observers{}
	for _, ob := range obs {
		o.Add(ob)
	}
	return o
}

// Add registers ob.
func (o *Observers) Add(ob Observer) {
	if ob == nil {
		return
	}
	o.mu.Lock()
	o.list = append(o.list, ob)
	o.mu.Unlock()
}

// OnEvent forwards e to every observer.
func (o *Observers) OnEvent(e Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ob := range o.list {
		ob.OnEvent(e)
	}
}

// Recorder keeps every event it sees. Useful in tests and for the CLI's
// round summary.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// OnEvent appends e.
func (r *Recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// States returns the recorded states in order.
func (r *Recorder) States() []State {
	events := r.Events()
	out := make([]State, len(events))
	for i, e := range events {
		out[i] = e.State
	}
	return out
}
