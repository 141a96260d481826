// Package sync drives one verified transfer: checksum the source, run the
// transfer tool, checksum the destination, compare, and retry transfer
// failures with a fixed backoff.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/sdejongh/syncwarden/pkg/compare"
	"github.com/sdejongh/syncwarden/pkg/logging"
	"github.com/sdejongh/syncwarden/pkg/models"
	"github.com/sdejongh/syncwarden/pkg/notify"
	"github.com/sdejongh/syncwarden/pkg/output"
	"github.com/sdejongh/syncwarden/pkg/remote"
)

// Checksummer returns the content digest of an endpoint's path
type Checksummer interface {
	Checksum(ctx context.Context, endpoint models.Endpoint) (string, error)
}

// Transferer copies source to dest with the external tool
type Transferer interface {
	Transfer(ctx context.Context, source, dest models.Endpoint) models.TransferOutcome
}

// Controller owns the retry loop for a single session. It is not safe for
// concurrent use and runs at most one transfer at a time.
type Controller struct {
	config    *models.SessionConfig
	checksums Checksummer
	transfer  Transferer
	notifier  notify.Notifier
	formatter output.Formatter
	logger    logging.Logger
	clock     clockwork.Clock

	state models.AttemptState
}

// NewController creates a controller for config. nil notifier, formatter
// and logger are replaced by no-op implementations.
func NewController(
	config *models.SessionConfig,
	checksums Checksummer,
	transfer Transferer,
	notifier notify.Notifier,
	formatter output.Formatter,
	logger logging.Logger,
) *Controller {
	if notifier == nil {
		notifier = notify.NewNullNotifier()
	}
	if formatter == nil {
		formatter = output.NullFormatter{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if config.ToolName == "" {
		config.ToolName = "rsync"
	}

	return &Controller{
		config:    config,
		checksums: checksums,
		transfer:  transfer,
		notifier:  notifier,
		formatter: formatter,
		logger:    logger.WithFields(logging.Fields{"run": config.ID}),
		clock:     clockwork.NewRealClock(),
		state: models.AttemptState{
			MaxAttempts: config.MaxAttempts,
			Backoff:     config.Backoff,
		},
	}
}

// SetClock replaces the clock used for backoff sleeps
func (c *Controller) SetClock(clock clockwork.Clock) {
	c.clock = clock
}

// State returns the current attempt state
func (c *Controller) State() models.AttemptState {
	return c.state
}

// Run executes the loop until a terminal state is reached. The returned
// error is non-nil only when the run could not start; every sync outcome,
// including failures, is described by the report.
func (c *Controller) Run(ctx context.Context) (*models.SyncReport, error) {
	if err := c.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}

	src := c.config.Session.Source
	dst := c.config.Session.Dest

	report := &models.SyncReport{
		OperationID: c.config.ID,
		Source:      src.String(),
		Dest:        dst.String(),
		StartTime:   c.clock.Now(),
	}

	if err := c.formatter.Start(nil, c.config); err != nil {
		return nil, fmt.Errorf("failed to start output: %w", err)
	}
	c.logger.Info(ctx, "Starting sync", logging.Fields{
		"source":       src.String(),
		"destination":  dst.String(),
		"max_attempts": c.state.MaxAttempts,
		"backoff":      c.state.Backoff.String(),
	})

	state := models.StatePreCheck
	var before string

	for state != models.StateDone {
		if ctx.Err() != nil {
			c.cancel(ctx, report)
			break
		}

		switch state {
		case models.StatePreCheck:
			c.formatter.Progress(output.ProgressUpdate{
				Type:        output.EventAttemptStart,
				Attempt:     c.state.Number(),
				MaxAttempts: c.state.MaxAttempts,
				Side:        models.SideSource,
				Host:        src.Host,
			})
			sum, ok := c.checksum(ctx, report, models.SideSource, src)
			if !ok {
				state = models.StateDone
				continue
			}
			before = sum
			report.SourceChecksum = sum
			state = models.StateTransferring

		case models.StateTransferring:
			state = c.runTransfer(ctx, report, src, dst)

		case models.StatePostCheck:
			after, ok := c.checksum(ctx, report, models.SideDest, dst)
			if !ok {
				state = models.StateDone
				continue
			}
			report.DestChecksum = after
			c.verify(ctx, report, before, after)
			state = models.StateDone
		}
	}

	report.EndTime = c.clock.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	c.formatter.Complete(report)

	return report, nil
}

// runTransfer performs one transfer invocation and returns the next state
func (c *Controller) runTransfer(ctx context.Context, report *models.SyncReport, src, dst models.Endpoint) models.State {
	c.formatter.Progress(output.ProgressUpdate{
		Type:        output.EventTransferStart,
		Attempt:     c.state.Number(),
		MaxAttempts: c.state.MaxAttempts,
	})

	report.Attempts++
	outcome := c.transfer.Transfer(ctx, src, dst)

	if ctx.Err() != nil {
		c.cancel(ctx, report)
		return models.StateDone
	}

	if outcome.Succeeded {
		c.logger.Info(ctx, "Transfer completed", logging.Fields{"attempt": c.state.Number()})
		if c.config.DryRun {
			report.Outcome = models.OutcomeDryRun
			c.logger.Info(ctx, "Dry run finished, skipping verification", nil)
			return models.StateDone
		}
		return models.StatePostCheck
	}

	report.Failures = append(report.Failures, models.AttemptFailure{
		Attempt:    c.state.Number(),
		ExitCode:   outcome.ExitCode,
		Diagnostic: outcome.Diagnostic,
		Timestamp:  c.clock.Now(),
	})
	c.logger.Error(ctx, fmt.Sprintf("%s error: %s", titled(c.config.ToolName), strings.TrimSpace(outcome.Diagnostic)), nil,
		logging.Fields{"attempt": c.state.Number(), "exit_code": outcome.ExitCode})
	c.formatter.Progress(output.ProgressUpdate{
		Type:        output.EventTransferFailed,
		Attempt:     c.state.Number(),
		MaxAttempts: c.state.MaxAttempts,
		ExitCode:    outcome.ExitCode,
		Diagnostic:  outcome.Diagnostic,
	})

	if !c.state.CanRetry() {
		message := fmt.Sprintf("Failed to %s after %d attempts from %s to %s.",
			c.config.ToolName, c.state.MaxAttempts, src.Host, dst.Host)
		c.logger.Error(ctx, message, nil, nil)
		report.Outcome = models.OutcomeExhausted
		report.Err = &TransferError{Attempts: report.Attempts, Last: outcome}
		c.notify(ctx, report, message)
		return models.StateDone
	}

	c.logger.Warn(ctx, fmt.Sprintf("%s failure. Attempt %d of %d. Retrying in %v seconds...",
		titled(c.config.ToolName), c.state.Number(), c.state.MaxAttempts, c.state.Backoff.Seconds()), nil)
	c.state.Index++
	c.formatter.Progress(output.ProgressUpdate{Type: output.EventBackoff, Wait: c.state.Backoff})

	if !c.sleep(ctx) {
		c.cancel(ctx, report)
		return models.StateDone
	}
	return models.StatePreCheck
}

// checksum computes one digest. On failure the run is aborted: the error is
// logged, shown to the user immediately and recorded in the report.
func (c *Controller) checksum(ctx context.Context, report *models.SyncReport, side models.Side, endpoint models.Endpoint) (string, bool) {
	sum, err := c.checksums.Checksum(ctx, endpoint)
	if err == nil {
		c.logger.Debug(ctx, "Checksum computed", logging.Fields{"side": string(side), "host": endpoint.Host, "digest": sum})
		c.formatter.Progress(output.ProgressUpdate{
			Type:   output.EventChecksum,
			Side:   side,
			Host:   endpoint.Host,
			Digest: sum,
		})
		return sum, true
	}

	if ctx.Err() != nil {
		c.cancel(ctx, report)
		return "", false
	}

	var connErr *remote.ConnectivityError
	if errors.As(err, &connErr) {
		c.logger.Error(ctx, "Connection error", err, logging.Fields{"side": string(side), "host": endpoint.Host})
	} else {
		c.logger.Error(ctx, "Checksum error", err, logging.Fields{"side": string(side), "host": endpoint.Host})
	}
	c.formatter.Error(err)

	report.Outcome = models.OutcomeAborted
	report.Err = err
	if c.config.NotifyOnAbort {
		c.notify(ctx, report, fmt.Sprintf("%s from %s to %s aborted: %v",
			c.config.ToolName, c.config.Session.Source.Host, c.config.Session.Dest.Host, err))
	}
	return "", false
}

// verify compares the digests; a mismatch is terminal and never retried
func (c *Controller) verify(ctx context.Context, report *models.SyncReport, before, after string) {
	cmp := compare.Digests(before, after)
	c.formatter.Progress(output.ProgressUpdate{
		Type:   output.EventComparison,
		Match:  cmp.Match(),
		Reason: cmp.Reason,
	})

	if cmp.Match() {
		message := fmt.Sprintf("%s from %s to %s completed successfully, hash match",
			c.config.ToolName, c.config.Session.Source.Host, c.config.Session.Dest.Host)
		c.logger.Info(ctx, message, nil)
		report.Outcome = models.OutcomeSuccess
		c.notify(ctx, report, message)
		return
	}

	message := fmt.Sprintf("Hash mismatch error after %s", c.config.ToolName)
	c.logger.Error(ctx, message, nil, logging.Fields{"source_digest": before, "dest_digest": after})
	report.Outcome = models.OutcomeMismatch
	report.Err = &IntegrityError{SourceDigest: before, DestDigest: after}
	c.notify(ctx, report, message)
}

// notify sends message once; failures are logged and recorded, nothing more
func (c *Controller) notify(ctx context.Context, report *models.SyncReport, message string) {
	report.Notification = message
	if err := c.notifier.Notify(ctx, message); err != nil {
		report.NotifyErr = err
		c.logger.Warn(ctx, "Notification failed", logging.Fields{"error": err.Error()})
	}
}

func (c *Controller) cancel(ctx context.Context, report *models.SyncReport) {
	if report.Outcome == models.OutcomeCancelled {
		return
	}
	report.Outcome = models.OutcomeCancelled
	report.Err = ctx.Err()
	c.logger.Warn(ctx, "Sync cancelled", logging.Fields{"attempt": c.state.Number()})
}

// sleep blocks for the backoff. It returns false if ctx ended first.
func (c *Controller) sleep(ctx context.Context) bool {
	if c.state.Backoff <= 0 {
		return true
	}
	select {
	case <-c.clock.After(c.state.Backoff):
		return true
	case <-ctx.Done():
		return false
	}
}

func titled(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
