package model

import "strconv"

// ActorState is the lifecycle state of an actor as reported by the telemetry API.
type ActorState int

// Actor lifecycle states. Invalid marks a partial record that carries no
// meaningful children.
const (
	ActorStateInvalid             ActorState = -1
	ActorStateDependenciesUnready ActorState = 0
	ActorStatePendingCreation     ActorState = 1
	ActorStateAlive               ActorState = 2
	ActorStateRestarting          ActorState = 3
	ActorStateDead                ActorState = 4
)

// String returns the upper-case state name used by the dashboard.
func (s ActorState) String() string {
	switch s {
	case ActorStateInvalid:
		return "INVALID"
	case ActorStateDependenciesUnready:
		return "DEPENDENCIES_UNREADY"
	case ActorStatePendingCreation:
		return "PENDING_CREATION"
	case ActorStateAlive:
		return "ALIVE"
	case ActorStateRestarting:
		return "RESTARTING"
	case ActorStateDead:
		return "DEAD"
	default:
		return "UNKNOWN(" + strconv.Itoa(int(s)) + ")"
	}
}

// Actor is a node in the actor tree. Each actor owns its children; a nil
// Children map means the field was absent, an empty map means no children.
type Actor struct {
	ActorID    string           `json:"actorId"`
	ActorTitle string           `json:"actorTitle,omitempty"`
	ActorClass string           `json:"actorClass,omitempty"`
	JobID      string           `json:"jobId,omitempty"`
	IPAddress  string           `json:"ipAddress,omitempty"`
	PID        int              `json:"pid,omitempty"`
	State      ActorState       `json:"state"`
	Children   map[string]Actor `json:"children,omitempty"`
}
