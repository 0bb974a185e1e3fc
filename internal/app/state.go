package app

import (
	"fmt"
	"sync"

	"github.com/bft-labs/bulkship/internal/ports"
)

// State is the dispatcher's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateAccumulating
	StateFlushing
	StateDraining
	StateClosed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAccumulating:
		return "Accumulating"
	case StateFlushing:
		return "Flushing"
	case StateDraining:
		return "Draining"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// validTransitions lists, for each state, the states it may move to.
var validTransitions = map[State][]State{
	StateIdle:         {StateAccumulating},
	StateAccumulating: {StateFlushing, StateDraining},
	StateFlushing:     {StateAccumulating},
	StateDraining:     {StateClosed},
}

// stateMachine tracks the dispatcher state. Reads are safe from any
// goroutine; transitions are made by the dispatcher loop only.
type stateMachine struct {
	mu      sync.RWMutex
	state   State
	logger  ports.Logger
	emitter EventEmitter
}

func newStateMachine(logger ports.Logger, emitter EventEmitter) *stateMachine {
	return &stateMachine{
		state:   StateIdle,
		logger:  logger,
		emitter: emitter,
	}
}

func (m *stateMachine) current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// transition moves to next. An invalid transition means the dispatcher
// loop is broken, so it panics rather than continue and lose operations.
func (m *stateMachine) transition(next State) {
	m.mu.Lock()
	prev := m.state
	if !canTransition(prev, next) {
		m.mu.Unlock()
		panic(fmt.Sprintf("app: invalid dispatcher transition %s -> %s", prev, next))
	}
	m.state = next
	m.mu.Unlock()

	m.emitter.OnStateChange(prev, next)
	m.logger.Debug("dispatcher state",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
	)
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
