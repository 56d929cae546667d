// Package status tracks the lifecycle of the server connection.
package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/intransparency/msgcenter/internal/bus"
)

// State represents a connection state.
type State string

const (
	Connecting   State = "CONNECTING"
	Open         State = "OPEN"
	Reconnecting State = "RECONNECTING"
	Closed       State = "CLOSED"
)

// validTransitions defines allowed state transitions. Closed is
// terminal: nothing leaves it.
var validTransitions = map[State][]State{
	Connecting:   {Open, Reconnecting, Closed},
	Open:         {Reconnecting, Closed},
	Reconnecting: {Open, Closed},
	Closed:       {},
}

// Machine tracks and enforces connection state transitions, counting
// reconnect attempts for backoff bookkeeping.
type Machine struct {
	mu       sync.RWMutex
	current  State
	attempts int
	bus      *bus.Bus
}

// NewMachine creates a state machine starting in Connecting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{current: Connecting, bus: b}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Attempts returns the number of reconnect attempts since the
// connection was last open.
func (m *Machine) Attempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts
}

// RecordAttempt increments the reconnect attempt counter and returns
// the new count.
func (m *Machine) RecordAttempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	return m.attempts
}

// Transition attempts to move to a new state. Returns an error if the
// transition is not allowed. Entering Open resets the attempt counter.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		from := m.current
		m.mu.Unlock()
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}
	from := m.current
	m.current = to
	if to == Open {
		m.attempts = 0
	}
	attempts := m.attempts
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindStatusChanged,
			Timestamp: time.Now(),
			Payload: StatusChange{
				From:     from,
				To:       to,
				Attempts: attempts,
			},
		})
	}
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From     State
	To       State
	Attempts int
}
