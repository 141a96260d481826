package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/syncwarden/pkg/models"
)

// JSONFormatter writes one JSON object per line
type JSONFormatter struct {
	encoder *json.Encoder
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

type jsonStart struct {
	Event       string `json:"event"`
	ID          string `json:"id"`
	Source      string `json:"source"`
	Dest        string `json:"dest"`
	MaxAttempts int    `json:"max_attempts"`
	BackoffMS   int64  `json:"backoff_ms"`
}

type jsonProgress struct {
	Event       EventType `json:"event"`
	Attempt     int       `json:"attempt,omitempty"`
	MaxAttempts int       `json:"max_attempts,omitempty"`
	Side        string    `json:"side,omitempty"`
	Host        string    `json:"host,omitempty"`
	Digest      string    `json:"digest,omitempty"`
	ExitCode    int       `json:"exit_code,omitempty"`
	Diagnostic  string    `json:"diagnostic,omitempty"`
	WaitMS      int64     `json:"wait_ms,omitempty"`
	Match       *bool     `json:"match,omitempty"`
	Reason      string    `json:"reason,omitempty"`
}

type jsonReport struct {
	Event          string    `json:"event"`
	ID             string    `json:"id"`
	Outcome        string    `json:"outcome"`
	ExitCode       int       `json:"exit_code"`
	Attempts       int       `json:"attempts"`
	SourceChecksum string    `json:"source_checksum,omitempty"`
	DestChecksum   string    `json:"dest_checksum,omitempty"`
	Error          string    `json:"error,omitempty"`
	Notification   string    `json:"notification,omitempty"`
	NotifyError    string    `json:"notify_error,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	DurationMS     int64     `json:"duration_ms"`
}

type jsonError struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, session *models.SessionConfig) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.encoder = json.NewEncoder(writer)
	return f.encoder.Encode(jsonStart{
		Event:       "start",
		ID:          session.ID,
		Source:      session.Session.Source.String(),
		Dest:        session.Session.Dest.String(),
		MaxAttempts: session.MaxAttempts,
		BackoffMS:   session.Backoff.Milliseconds(),
	})
}

// Progress reports a step of the run
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	if f.encoder == nil {
		return nil
	}
	p := jsonProgress{
		Event:       update.Type,
		Attempt:     update.Attempt,
		MaxAttempts: update.MaxAttempts,
		Side:        string(update.Side),
		Host:        update.Host,
		Digest:      update.Digest,
		ExitCode:    update.ExitCode,
		Diagnostic:  update.Diagnostic,
		WaitMS:      update.Wait.Milliseconds(),
		Reason:      update.Reason,
	}
	if update.Type == EventComparison {
		match := update.Match
		p.Match = &match
	}
	return f.encoder.Encode(p)
}

// Complete writes the final report
func (f *JSONFormatter) Complete(report *models.SyncReport) error {
	if f.encoder == nil {
		f.encoder = json.NewEncoder(os.Stdout)
	}
	r := jsonReport{
		Event:          "complete",
		ID:             report.OperationID,
		Outcome:        string(report.Outcome),
		ExitCode:       report.Outcome.ExitCode(),
		Attempts:       report.Attempts,
		SourceChecksum: report.SourceChecksum,
		DestChecksum:   report.DestChecksum,
		Notification:   report.Notification,
		StartTime:      report.StartTime,
		EndTime:        report.EndTime,
		DurationMS:     report.Duration.Milliseconds(),
	}
	if report.Err != nil {
		r.Error = report.Err.Error()
	}
	if report.NotifyErr != nil {
		r.NotifyError = report.NotifyErr.Error()
	}
	return f.encoder.Encode(r)
}

// Error writes an error event
func (f *JSONFormatter) Error(err error) error {
	if f.encoder == nil {
		f.encoder = json.NewEncoder(os.Stdout)
	}
	return f.encoder.Encode(jsonError{Event: "error", Error: err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
