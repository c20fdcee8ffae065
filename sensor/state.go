package sensor

import "sync/atomic"

// State represents the lifecycle stage of a sensor channel.
//
// Exactly one state holds at any time:
// Created → (start) → Running → (stop) → Stopped → (start) → Running → …;
// any state → (release) → Released, which is terminal.
type State uint32

const (
	// CreatedState indicates the channel exists but has never been started.
	CreatedState State = iota
	// RunningState indicates the session is started and the daemon streams data.
	RunningState
	// StoppedState indicates the session was started and then stopped.
	StoppedState
	// ReleasedState indicates the remote session has been released; terminal.
	ReleasedState
)

func (s State) String() string {
	switch s {
	case CreatedState:
		return "created"
	case RunningState:
		return "running"
	case StoppedState:
		return "stopped"
	case ReleasedState:
		return "released"
	default:
		return "unknown"
	}
}

// AtomicState holds a State with atomic access.
type AtomicState struct {
	state atomic.Uint32
}

// Get returns the current state.
func (st *AtomicState) Get() State {
	return State(st.state.Load())
}

// Set sets the current state.
func (st *AtomicState) Set(state State) {
	st.state.Store(uint32(state))
}

func (st *AtomicState) String() string {
	return st.Get().String()
}

// IsRunning returns if the current state is running.
func (st *AtomicState) IsRunning() bool {
	return st.Get() == RunningState
}

// IsReleased returns if the current state is released.
func (st *AtomicState) IsReleased() bool {
	return st.Get() == ReleasedState
}
