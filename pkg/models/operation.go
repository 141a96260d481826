package models

import (
	"time"
)

// State is a step of the verification loop
type State string

const (
	// StatePreCheck computes the source checksum
	StatePreCheck State = "pre_check"
	// StateTransferring runs the transfer tool
	StateTransferring State = "transferring"
	// StatePostCheck computes the destination checksum and compares
	StatePostCheck State = "post_check"
	// StateDone is terminal
	StateDone State = "done"
)

// Default retry settings
const (
	DefaultMaxAttempts = 100
	DefaultBackoff     = 10 * time.Second
)

// SessionConfig holds everything a controller needs for one run
type SessionConfig struct {
	ID            string
	Session       Session
	MaxAttempts   int
	Backoff       time.Duration
	NotifyOnAbort bool
	DryRun        bool
	ToolName      string
	CreatedAt     time.Time
}

// Validate checks the retry constants and the endpoints.
// Endpoint fields are not checked: empty input is passed through on purpose.
func (c *SessionConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return &ValidationError{Field: "MaxAttempts", Message: "max attempts must be at least 1"}
	}
	if c.Backoff < 0 {
		return &ValidationError{Field: "Backoff", Message: "backoff cannot be negative"}
	}
	return nil
}

// AttemptState tracks progress through the retry budget
type AttemptState struct {
	Index       int // zero-based index of the current attempt
	MaxAttempts int
	Backoff     time.Duration
}

// CanRetry reports whether another attempt fits in the budget
func (a AttemptState) CanRetry() bool {
	return a.Index+1 < a.MaxAttempts
}

// Number returns the one-based attempt number
func (a AttemptState) Number() int {
	return a.Index + 1
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
