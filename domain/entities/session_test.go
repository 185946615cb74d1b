package entities

import "testing"

func TestSessionStateTransitions(t *testing.T) {
	tests := []struct {
		name  string
		from  SessionState
		to    SessionState
		legal bool
	}{
		{"idle to starting", SessionStateIdle, SessionStateStarting, true},
		{"starting to active", SessionStateStarting, SessionStateActive, true},
		{"starting to failed", SessionStateStarting, SessionStateFailed, true},
		{"starting to stopping", SessionStateStarting, SessionStateStopping, true},
		{"active to stopping", SessionStateActive, SessionStateStopping, true},
		{"active to failed", SessionStateActive, SessionStateFailed, true},
		{"stopping to idle", SessionStateStopping, SessionStateIdle, true},
		{"failed to stopping", SessionStateFailed, SessionStateStopping, true},
		{"idle to active skips starting", SessionStateIdle, SessionStateActive, false},
		{"failed to active without stop", SessionStateFailed, SessionStateActive, false},
		{"failed to starting without stop", SessionStateFailed, SessionStateStarting, false},
		{"active to idle skips stopping", SessionStateActive, SessionStateIdle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.legal {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.legal)
			}

			next, err := tt.from.Transition(tt.to)
			if tt.legal {
				if err != nil {
					t.Errorf("Transition(%s -> %s) unexpected error: %v", tt.from, tt.to, err)
				}
				if next != tt.to {
					t.Errorf("Transition returned %s, want %s", next, tt.to)
				}
			} else {
				if err == nil {
					t.Errorf("Transition(%s -> %s) expected error", tt.from, tt.to)
				}
				if next != tt.from {
					t.Errorf("rejected transition should keep state %s, got %s", tt.from, next)
				}
			}
		})
	}
}

func TestSessionStateTerminal(t *testing.T) {
	terminal := map[SessionState]bool{
		SessionStateIdle:     true,
		SessionStateStarting: false,
		SessionStateActive:   false,
		SessionStateStopping: false,
		SessionStateFailed:   true,
	}
	for state, want := range terminal {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", state, got, want)
		}
	}
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "hello")

	if msg.Role != RoleUser {
		t.Errorf("expected role %s, got %s", RoleUser, msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("expected content 'hello', got '%s'", msg.Content)
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}
