package models

import (
	"time"
)

// Outcome is how a run ended
type Outcome string

const (
	// OutcomeSuccess means checksums matched after a successful transfer
	OutcomeSuccess Outcome = "success"
	// OutcomeMismatch means the transfer succeeded but the checksums differ
	OutcomeMismatch Outcome = "mismatch"
	// OutcomeExhausted means every attempt failed in the transfer tool
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeAborted means a checksum session could not be completed
	OutcomeAborted Outcome = "aborted"
	// OutcomeCancelled means the run was interrupted
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeDryRun means the transfer ran with --dry-run and nothing was verified
	OutcomeDryRun Outcome = "dry_run"
)

// ExitCode returns the exit code used with --strict-exit
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeSuccess, OutcomeDryRun:
		return 0
	case OutcomeExhausted:
		return 2
	case OutcomeMismatch:
		return 3
	case OutcomeAborted:
		return 4
	case OutcomeCancelled:
		return 5
	default:
		return 2
	}
}

// Terminal reports whether the outcome sends a notification by default
func (o Outcome) Terminal() bool {
	return o == OutcomeSuccess || o == OutcomeMismatch || o == OutcomeExhausted
}

// SyncReport represents the result of a run
type SyncReport struct {
	OperationID string
	Source      string
	Dest        string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Outcome  Outcome
	Attempts int // transfer invocations

	SourceChecksum string
	DestChecksum   string

	// Failures holds the diagnostic output of each failed transfer
	Failures []AttemptFailure

	// Err is the error that ended the run, if any
	Err error

	// Notification is the message sent, empty when nothing was sent
	Notification string
	NotifyErr    error
}

// AttemptFailure records one failed transfer invocation
type AttemptFailure struct {
	Attempt    int
	ExitCode   int
	Diagnostic string
	Timestamp  time.Time
}
