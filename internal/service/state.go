package service

import (
	"strings"
	"sync"

	"github.com/kubeadapt/clusterview/internal/errors"
)

// State is the lifecycle state of the service.
type State string

// Service lifecycle states.
const (
	StateStarting State = "starting"
	StateSyncing  State = "syncing"
	StateRunning  State = "running"
	StateDegraded State = "degraded"
	StateStopping State = "stopping"
)

// StateMachine tracks the service lifecycle state and the reason for it.
type StateMachine struct {
	mu          sync.RWMutex
	state       State
	stateReason string
	since       int64
	clock       errors.Clock
}

// NewStateMachine creates a StateMachine starting in StateStarting.
func NewStateMachine(clock errors.Clock) *StateMachine {
	return &StateMachine{
		state: StateStarting,
		since: clock.Now().UnixMilli(),
		clock: clock,
	}
}

// State returns the current state.
func (sm *StateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// StateReason returns the human-readable reason for the current state.
func (sm *StateMachine) StateReason() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.stateReason
}

// Since returns the unix millisecond time of the last state change.
func (sm *StateMachine) Since() int64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.since
}

// TransitionTo sets the state with a reason. It reports whether the state
// changed.
func (sm *StateMachine) TransitionTo(state State, reason string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	changed := sm.state != state
	if changed {
		sm.since = sm.clock.Now().UnixMilli()
	}
	sm.state = state
	sm.stateReason = reason
	return changed
}

// ObserveErrors moves between running and degraded based on the active error
// codes. Other states are left alone. It reports whether the state changed.
func (sm *StateMachine) ObserveErrors(codes []string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.state != StateRunning && sm.state != StateDegraded {
		return false
	}

	next, reason := StateRunning, ""
	if len(codes) > 0 {
		next, reason = StateDegraded, "active errors: "+strings.Join(codes, ", ")
	}
	changed := sm.state != next
	if changed {
		sm.since = sm.clock.Now().UnixMilli()
	}
	sm.state = next
	sm.stateReason = reason
	return changed
}
