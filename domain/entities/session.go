package entities

import "fmt"

// SessionState is the lifecycle state of a realtime voice session.
type SessionState string

const (
	// SessionStateIdle is the initial state. A stopped session returns
	// here and may be started again.
	SessionStateIdle SessionState = "idle"
	// SessionStateStarting covers resource acquisition: output device,
	// microphone, then the socket handshake.
	SessionStateStarting SessionState = "starting"
	// SessionStateActive means the socket is open and audio is flowing
	// in both directions.
	SessionStateActive SessionState = "active"
	// SessionStateStopping covers teardown initiated by the caller.
	SessionStateStopping SessionState = "stopping"
	// SessionStateFailed is terminal for the current run: acquisition
	// failed or the server closed the socket. Stop() still applies and
	// returns the session to idle.
	SessionStateFailed SessionState = "failed"
)

// validTransitions enumerates the legal state machine edges. A dropped
// socket is terminal; the only way out of failed is an explicit stop.
var validTransitions = map[SessionState][]SessionState{
	SessionStateIdle:     {SessionStateStarting},
	SessionStateStarting: {SessionStateActive, SessionStateFailed, SessionStateStopping},
	SessionStateActive:   {SessionStateStopping, SessionStateFailed},
	SessionStateStopping: {SessionStateIdle},
	SessionStateFailed:   {SessionStateStopping},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s SessionState) CanTransition(next SessionState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next if the edge is legal, or an error naming the
// rejected edge.
func (s SessionState) Transition(next SessionState) (SessionState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("invalid session transition %s -> %s", s, next)
	}
	return next, nil
}

// Terminal reports whether the session has finished its current run.
// Idle is reusable; failed requires a stop before restarting.
func (s SessionState) Terminal() bool {
	return s == SessionStateIdle || s == SessionStateFailed
}
