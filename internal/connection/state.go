package connection

import (
	"fmt"
	"sync"
)

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected means no connection exists and no loop is running.
	StateDisconnected State = iota

	// StateConnecting means a connect attempt is in progress.
	StateConnecting

	// StateConnected means the socket is established and subscriptions replayed.
	StateConnected

	// StateReconnecting means a backoff sleep is in progress before the next attempt.
	StateReconnecting

	// StateFatalError means the retry budget is exhausted; terminal until Start is called again.
	StateFatalError
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFatalError:
		return "fatal_error"
	default:
		return "unknown"
	}
}

// stateMachine holds the current State and is its only mutator.
// The manager's run loop is the single writer; reads may come from any goroutine.
type stateMachine struct {
	mu       sync.Mutex
	current  State
	observer func(old, new State)
}

func newStateMachine(observer func(old, new State)) *stateMachine {
	return &stateMachine{observer: observer}
}

// State returns the current state.
func (sm *stateMachine) State() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// transition moves to next if the transition is legal. A self-transition is a
// no-op. The observer is invoked exactly once per effective change,
// synchronously, after the field is updated.
func (sm *stateMachine) transition(next State) error {
	sm.mu.Lock()
	old := sm.current
	if next == old {
		sm.mu.Unlock()
		return nil
	}
	if !legalTransition(old, next) {
		sm.mu.Unlock()
		return fmt.Errorf("illegal state transition %s -> %s", old, next)
	}
	sm.current = next
	sm.mu.Unlock()

	if sm.observer != nil {
		sm.observer(old, next)
	}
	return nil
}

// legalTransition encodes the allowed edges of the state graph.
func legalTransition(from, to State) bool {
	// Explicit stop is legal from everywhere.
	if to == StateDisconnected {
		return true
	}

	switch from {
	case StateDisconnected:
		return to == StateConnecting
	case StateConnecting:
		return to == StateConnected || to == StateReconnecting || to == StateFatalError
	case StateConnected:
		return to == StateReconnecting || to == StateFatalError
	case StateReconnecting:
		return to == StateConnecting
	default:
		return false
	}
}
