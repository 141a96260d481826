package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/syncwarden/pkg/models"
)

// EventType names a step reported by the controller
type EventType string

const (
	EventAttemptStart   EventType = "attempt_start"
	EventChecksum       EventType = "checksum"
	EventTransferStart  EventType = "transfer_start"
	EventTransferFailed EventType = "transfer_failed"
	EventBackoff        EventType = "backoff"
	EventComparison     EventType = "comparison"
)

// ProgressUpdate represents a progress notification during a run
type ProgressUpdate struct {
	Type        EventType
	Attempt     int // one-based
	MaxAttempts int
	Side        models.Side
	Host        string
	Digest      string
	ExitCode    int
	Diagnostic  string
	Wait        time.Duration
	Match       bool
	Reason      string
}

// Formatter defines the interface for output formatting.
// Implementations include human-readable, progress and JSON formatters.
type Formatter interface {
	// Start initializes the formatter for a new run
	Start(writer io.Writer, session *models.SessionConfig) error

	// Progress reports a step of the run
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the outcome
	Complete(report *models.SyncReport) error

	// Error reports an error the user should see immediately
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// NullFormatter prints nothing
type NullFormatter struct{}

func (NullFormatter) Start(io.Writer, *models.SessionConfig) error { return nil }
func (NullFormatter) Progress(ProgressUpdate) error                { return nil }
func (NullFormatter) Complete(*models.SyncReport) error            { return nil }
func (NullFormatter) Error(error) error                            { return nil }
func (NullFormatter) Name() string                                 { return "null" }

// QuietFormatter drops progress and the summary but still reports errors
type QuietFormatter struct {
	NullFormatter
	errWriter io.Writer
}

// NewQuietFormatter creates a formatter writing only errors to errWriter
func NewQuietFormatter(errWriter io.Writer) *QuietFormatter {
	if errWriter == nil {
		errWriter = os.Stderr
	}
	return &QuietFormatter{errWriter: errWriter}
}

// Error reports err immediately
func (f *QuietFormatter) Error(err error) error {
	_, werr := fmt.Fprintf(f.errWriter, "%s %v\n", failColor.Sprint("Error:"), err)
	return werr
}

// Name returns the formatter name
func (f *QuietFormatter) Name() string {
	return "quiet"
}

// New returns the formatter for the given name. errOut receives errors that
// must interrupt the user (connectivity failures).
func New(name string, progress bool, errOut io.Writer) Formatter {
	switch name {
	case "json":
		return NewJSONFormatter()
	case "quiet":
		return NewQuietFormatter(errOut)
	case "none":
		return NullFormatter{}
	default:
		if progress {
			return NewProgressFormatter(errOut)
		}
		return NewHumanFormatter(errOut)
	}
}

// firstLine returns the first non-empty line of s
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
