package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/sdejongh/syncwarden/internal/platform"
	"github.com/sdejongh/syncwarden/pkg/compare"
	"github.com/sdejongh/syncwarden/pkg/config"
	"github.com/sdejongh/syncwarden/pkg/credentials"
	"github.com/sdejongh/syncwarden/pkg/logging"
	"github.com/sdejongh/syncwarden/pkg/models"
	"github.com/sdejongh/syncwarden/pkg/notify"
	"github.com/sdejongh/syncwarden/pkg/output"
	"github.com/sdejongh/syncwarden/pkg/ratelimit"
	"github.com/sdejongh/syncwarden/pkg/remote"
	"github.com/sdejongh/syncwarden/pkg/transfer"
)

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cfg *config.Config, flags *RunFlags) error {
	// Endpoints
	if flags.Source != "" {
		ep, err := platform.ParseRemote(flags.Source)
		if err != nil {
			return err
		}
		cfg.Source = endpointConfig(ep)
	}
	if flags.Dest != "" {
		ep, err := platform.ParseRemote(flags.Dest)
		if err != nil {
			return err
		}
		cfg.Destination = endpointConfig(ep)
	}

	// Retry policy
	if flags.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = flags.MaxAttempts
	}
	if flags.Backoff > 0 {
		cfg.Retry.Backoff = flags.Backoff
	}

	// Notification
	if flags.Webhook != "" {
		cfg.Notify.WebhookURL = flags.Webhook
	}
	if flags.NotifyAbort {
		cfg.Notify.OnAbort = true
	}

	// Checksum
	if flags.Algorithm != "" {
		cfg.Checksum.Algorithm = flags.Algorithm
	}
	if flags.Mode != "" {
		cfg.Checksum.Mode = flags.Mode
	}
	if flags.KnownHosts != "" {
		cfg.SSH.KnownHosts = flags.KnownHosts
	}
	if flags.KeyFile != "" {
		cfg.SSH.KeyFile = flags.KeyFile
	}

	// Transfer
	if flags.Bandwidth != "" {
		cfg.Transfer.BandwidthLimit = flags.Bandwidth
	}
	if len(flags.Exclude) > 0 {
		cfg.Transfer.Exclude = flags.Exclude
	}
	if flags.Delete {
		cfg.Transfer.Delete = true
	}

	// Output format
	if flags.Output != "" {
		cfg.Output.Format = flags.Output
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Logging
	if flags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = flags.LogFile
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}

	return cfg.Validate()
}

func endpointConfig(ep models.Endpoint) config.EndpointConfig {
	return config.EndpointConfig{
		User: ep.User,
		Host: ep.Host,
		Port: ep.Port,
		Path: platform.NormalizeRemotePath(ep.Path),
	}
}

// gatherEndpoints merges configuration, environment and, when stdin is
// interactive, prompts for whatever is still missing
func gatherEndpoints(ctx context.Context, cfg *config.Config, flags *RunFlags) (models.Session, error) {
	var source credentials.Source = credentials.StaticSource{Session: models.Session{
		Source: cfg.Source.Endpoint(),
		Dest:   cfg.Destination.Endpoint(),
	}}
	source = credentials.NewEnvSource(source)

	if !flags.NoPrompt && term.IsTerminal(int(os.Stdin.Fd())) {
		source = credentials.NewPromptSource(source)
	}

	return source.Endpoints(ctx)
}

// createSession creates the controller configuration
func createSession(cfg *config.Config, session models.Session, toolName string, dryRun bool) (*models.SessionConfig, error) {
	operation := &models.SessionConfig{
		ID:            uuid.New().String(),
		Session:       session,
		MaxAttempts:   cfg.Retry.MaxAttempts,
		Backoff:       cfg.Retry.Backoff,
		NotifyOnAbort: cfg.Notify.OnAbort,
		DryRun:        dryRun,
		ToolName:      toolName,
		CreatedAt:     time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}

// createRunner builds the transfer runner from the transfer section
func createRunner(cfg *config.Config, dryRun bool) (*transfer.Runner, error) {
	limit, err := ratelimit.Parse(cfg.Transfer.BandwidthLimit)
	if err != nil {
		return nil, err
	}

	return transfer.NewRunner(transfer.Options{
		Binary:    cfg.Transfer.Binary,
		Flags:     cfg.Transfer.Flags,
		Bandwidth: limit,
		Exclude:   cfg.Transfer.Exclude,
		Delete:    cfg.Transfer.Delete,
		DryRun:    dryRun,
		ExtraArgs: cfg.Transfer.ExtraArgs,
	}), nil
}

// createChecksumClient builds the SSH checksum client
func createChecksumClient(cfg *config.Config) (*remote.ChecksumClient, error) {
	algorithm, err := compare.ParseAlgorithm(cfg.Checksum.Algorithm)
	if err != nil {
		return nil, err
	}
	mode, err := compare.ParseMode(cfg.Checksum.Mode)
	if err != nil {
		return nil, err
	}

	executor := remote.NewSSHExecutor(remote.Options{
		KnownHostsFile: cfg.SSH.KnownHosts,
		KeyFile:        cfg.SSH.KeyFile,
		UseAgent:       cfg.SSH.UseAgent,
		ConnectTimeout: cfg.SSH.ConnectTimeout,
	})
	return remote.NewChecksumClient(executor, compare.NewChecksummer(algorithm, mode)), nil
}

func createNotifier(cfg *config.Config) notify.Notifier {
	return notify.New(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
}

func createFormatter(cfg *config.Config) output.Formatter {
	name := cfg.Output.Format
	if cfg.Output.Quiet {
		name = "quiet"
	}
	return output.New(name, cfg.Output.Progress, os.Stderr)
}

// createLogger creates the run log, plus a stderr log in verbose mode
func createLogger(cfg *config.Config) (logging.Logger, error) {
	var loggers []logging.Logger

	if cfg.Logging.Enabled {
		format := logging.FormatText
		if cfg.Logging.Format == "json" {
			format = logging.FormatJSON
		}

		fileLogger, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      logging.ParseLevel(cfg.Logging.Level),
			MaxSize:    cfg.Logging.MaxSize,
			MaxBackups: cfg.Logging.MaxBackups,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		loggers = append(loggers, fileLogger)
	}

	if globalFlags.Verbose {
		loggers = append(loggers, logging.NewWriterLogger(os.Stderr, logging.FormatText, logging.DebugLevel))
	}

	switch len(loggers) {
	case 0:
		return logging.NewNullLogger(), nil
	case 1:
		return loggers[0], nil
	default:
		return logging.NewMulti(loggers...), nil
	}
}
