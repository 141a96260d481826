package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/sdejongh/syncwarden/pkg/models"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer    io.Writer
	errWriter io.Writer
	session   *models.SessionConfig
	startTime time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(errWriter io.Writer) *HumanFormatter {
	if errWriter == nil {
		errWriter = os.Stderr
	}
	return &HumanFormatter{errWriter: errWriter}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, session *models.SessionConfig) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.session = session
	f.startTime = time.Now()

	fmt.Fprintf(f.writer, "Syncing %s -> %s (up to %d attempts, %s backoff)\n",
		session.Session.Source, session.Session.Dest, session.MaxAttempts, session.Backoff)
	return nil
}

// Progress reports a step of the run
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case EventAttemptStart:
		fmt.Fprintf(f.writer, "[%d/%d] Computing %s checksum on %s...\n",
			update.Attempt, update.MaxAttempts, update.Side, update.Host)
	case EventChecksum:
		fmt.Fprintf(f.writer, "      %s checksum %s\n", update.Side, dimColor.Sprint(update.Digest))
	case EventTransferStart:
		fmt.Fprintf(f.writer, "[%d/%d] Transferring...\n", update.Attempt, update.MaxAttempts)
	case EventTransferFailed:
		fmt.Fprintf(f.writer, "[%d/%d] %s transfer failed (exit %d): %s\n",
			update.Attempt, update.MaxAttempts, failColor.Sprint("✗"), update.ExitCode, firstLine(update.Diagnostic))
	case EventBackoff:
		fmt.Fprintf(f.writer, "      %s\n", warnColor.Sprintf("Retrying in %s...", update.Wait))
	case EventComparison:
		mark := okColor.Sprint("✓")
		if !update.Match {
			mark = failColor.Sprint("✗")
		}
		fmt.Fprintf(f.writer, "      %s %s\n", mark, update.Reason)
	}
	return nil
}

// Complete displays the outcome
func (f *HumanFormatter) Complete(report *models.SyncReport) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Run %s finished in %s\n", report.OperationID, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(f.writer, "  Attempts:     %d\n", report.Attempts)
	if report.SourceChecksum != "" {
		fmt.Fprintf(f.writer, "  Source:       %s\n", report.SourceChecksum)
	}
	if report.DestChecksum != "" {
		fmt.Fprintf(f.writer, "  Destination:  %s\n", report.DestChecksum)
	}
	if report.Notification != "" {
		status := "sent"
		if report.NotifyErr != nil {
			status = fmt.Sprintf("failed: %v", report.NotifyErr)
		}
		fmt.Fprintf(f.writer, "  Notification: %s\n", status)
	}

	fmt.Fprintf(f.writer, "Status: %s\n", outcomeColor(report.Outcome).Sprint(report.Outcome))
	if report.Err != nil {
		fmt.Fprintf(f.writer, "  %v\n", report.Err)
	}
	return nil
}

// Error shows an error on the error writer right away
func (f *HumanFormatter) Error(err error) error {
	fmt.Fprintf(f.errWriter, "%s %v\n", failColor.Sprint("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func outcomeColor(o models.Outcome) *color.Color {
	switch o {
	case models.OutcomeSuccess, models.OutcomeDryRun:
		return okColor
	case models.OutcomeCancelled:
		return warnColor
	default:
		return failColor
	}
}
