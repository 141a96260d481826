package models

import (
	"testing"
	"time"
)

// ============== Endpoint Tests ==============

func TestEndpointAddress(t *testing.T) {
	ep := Endpoint{User: "deploy", Host: "files1.example.com", Password: "secret", Path: "/srv/data/"}

	if got := ep.Address(); got != "deploy@files1.example.com:/srv/data/" {
		t.Errorf("Address() = %s, want deploy@files1.example.com:/srv/data/", got)
	}
	if got := ep.String(); got != ep.Address() {
		t.Errorf("String() = %s, want %s", got, ep.Address())
	}
}

func TestEndpointAddress_EmptyFieldsPassThrough(t *testing.T) {
	ep := Endpoint{}
	if got := ep.Address(); got != "@:" {
		t.Errorf("Address() = %q, want %q", got, "@:")
	}
}

func TestEndpointSSHPort(t *testing.T) {
	if got := (Endpoint{}).SSHPort(); got != 22 {
		t.Errorf("SSHPort() = %d, want 22", got)
	}
	if got := (Endpoint{Port: 2222}).SSHPort(); got != 2222 {
		t.Errorf("SSHPort() = %d, want 2222", got)
	}
}

func TestEndpointDialAddress(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		expected string
	}{
		{"default port", Endpoint{Host: "example.com"}, "example.com:22"},
		{"custom port", Endpoint{Host: "example.com", Port: 2222}, "example.com:2222"},
		{"ipv6", Endpoint{Host: "::1"}, "[::1]:22"},
		{"bracketed ipv6", Endpoint{Host: "[::1]", Port: 2200}, "[::1]:2200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.DialAddress(); got != tt.expected {
				t.Errorf("DialAddress() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestSessionEndpoint(t *testing.T) {
	s := Session{
		Source: Endpoint{Host: "a"},
		Dest:   Endpoint{Host: "b"},
	}
	if s.Endpoint(SideSource).Host != "a" {
		t.Error("source side should return the source endpoint")
	}
	if s.Endpoint(SideDest).Host != "b" {
		t.Error("destination side should return the destination endpoint")
	}
}

// ============== SessionConfig Tests ==============

func TestSessionConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SessionConfig
		wantErr bool
	}{
		{"valid", SessionConfig{MaxAttempts: 3, Backoff: time.Second}, false},
		{"zero backoff", SessionConfig{MaxAttempts: 1}, false},
		{"no attempts", SessionConfig{MaxAttempts: 0}, true},
		{"negative backoff", SessionConfig{MaxAttempts: 1, Backoff: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if _, ok := err.(*ValidationError); !ok {
					t.Errorf("Validate() error type = %T, want *ValidationError", err)
				}
			}
		})
	}
}

// ============== AttemptState Tests ==============

func TestAttemptStateCanRetry(t *testing.T) {
	state := AttemptState{MaxAttempts: 3}

	for i, want := range []bool{true, true, false} {
		state.Index = i
		if got := state.CanRetry(); got != want {
			t.Errorf("CanRetry() at index %d = %v, want %v", i, got, want)
		}
		if state.Number() != i+1 {
			t.Errorf("Number() = %d, want %d", state.Number(), i+1)
		}
	}
}

func TestAttemptStateSingleAttempt(t *testing.T) {
	state := AttemptState{MaxAttempts: 1}
	if state.CanRetry() {
		t.Error("a budget of one attempt should never retry")
	}
}

// ============== Outcome Tests ==============

func TestOutcomeExitCode(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		expected int
	}{
		{OutcomeSuccess, 0},
		{OutcomeDryRun, 0},
		{OutcomeExhausted, 2},
		{OutcomeMismatch, 3},
		{OutcomeAborted, 4},
		{OutcomeCancelled, 5},
		{Outcome("unknown"), 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			if got := tt.outcome.ExitCode(); got != tt.expected {
				t.Errorf("ExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestOutcomeTerminal(t *testing.T) {
	notified := map[Outcome]bool{
		OutcomeSuccess:   true,
		OutcomeMismatch:  true,
		OutcomeExhausted: true,
		OutcomeAborted:   false,
		OutcomeCancelled: false,
		OutcomeDryRun:    false,
	}

	for outcome, want := range notified {
		if got := outcome.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", outcome, got, want)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "retry.max_attempts", Message: "must be at least 1"}
	if err.Error() != "retry.max_attempts: must be at least 1" {
		t.Errorf("Error() = %s", err.Error())
	}
}
