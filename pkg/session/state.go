package session

import "github.com/getmockd/replayd/pkg/config"

// Mode is the session mode (record or playback).
type Mode = config.Mode

// Modes.
const (
	ModePlayback = config.ModePlayback
	ModeRecord   = config.ModeRecord
)

// Scope selects how long a session lives.
type Scope int

// Scopes.
const (
	// ScopeMethod is one session per test; the default.
	ScopeMethod Scope = iota
	// ScopeClass is one session shared by all tests of a class, for
	// infrastructure that cannot be rebuilt per test.
	ScopeClass
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeMethod:
		return "method"
	case ScopeClass:
		return "class"
	default:
		return "unknown"
	}
}

// State is a session lifecycle state.
type State int

// Lifecycle states.
const (
	StateCreated State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// canTransition reports whether from -> to is a legal move. A failed start
// goes straight to STOPPED.
func canTransition(from, to State) bool {
	switch from {
	case StateCreated:
		return to == StateStarting
	case StateStarting:
		return to == StateRunning || to == StateStopped
	case StateRunning:
		return to == StateStopping
	case StateStopping:
		return to == StateStopped
	default:
		return false
	}
}
