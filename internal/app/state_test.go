package app

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateAccumulating, "Accumulating"},
		{StateFlushing, "Flushing"},
		{StateDraining, "Draining"},
		{StateClosed, "Closed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateAccumulating, true},
		{StateAccumulating, StateFlushing, true},
		{StateFlushing, StateAccumulating, true},
		{StateAccumulating, StateDraining, true},
		{StateDraining, StateClosed, true},
		{StateIdle, StateClosed, false},
		{StateFlushing, StateDraining, false},
		{StateDraining, StateAccumulating, false},
		{StateClosed, StateAccumulating, false},
	}

	for _, tt := range tests {
		if got := canTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("canTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStateMachine_InvalidTransitionPanics(t *testing.T) {
	m := newStateMachine(mockLogger{}, nopEmitter{})

	defer func() {
		if recover() == nil {
			t.Error("expected panic on invalid transition")
		}
	}()
	m.transition(StateClosed)
}

func TestStateMachine_ReportsTransitions(t *testing.T) {
	em := &mockEmitter{}
	m := newStateMachine(mockLogger{}, em)

	m.transition(StateAccumulating)
	m.transition(StateDraining)

	if m.current() != StateDraining {
		t.Errorf("current() = %v, want Draining", m.current())
	}
	events := em.States()
	if len(events) != 2 || events[1] != (stateChangeEvent{StateAccumulating, StateDraining}) {
		t.Errorf("events = %v", events)
	}
}
