package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/syncwarden/pkg/sync"
)

// RunFlags holds run and check command flags
type RunFlags struct {
	Source      string
	Dest        string
	MaxAttempts int
	Backoff     time.Duration
	Webhook     string
	NotifyAbort bool
	DryRun      bool
	StrictExit  bool
	NoPrompt    bool
	Bandwidth   string
	Exclude     []string
	Delete      bool
	Algorithm   string
	Mode        string
	KnownHosts  string
	KeyFile     string
	Output      string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var runFlags RunFlags

// ExitError carries a process exit code for an already reported outcome
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Transfer and verify a tree between two remote hosts",
		Long: `Copy a path from the source host to the destination host with rsync,
verify the content with checksums taken over SSH before and after the
transfer, retry transfer failures with a fixed backoff and post the outcome
to the configured webhook.

Endpoints not given by flags or configuration are prompted for.`,
		Example: `  syncwarden run --source alice@files1:/srv/data/ --dest bob@files2:/backup/data/
  syncwarden run --max-attempts 5 --backoff 30s --webhook https://chat.example.com/hooks/abc`,
		RunE: runRun,
	}

	addEndpointFlags(cmd, &runFlags)

	cmd.Flags().IntVar(&runFlags.MaxAttempts, "max-attempts", 0, "maximum transfer attempts (default from config: 100)")
	cmd.Flags().DurationVar(&runFlags.Backoff, "backoff", 0, "wait between transfer attempts (default from config: 10s)")
	cmd.Flags().StringVar(&runFlags.Webhook, "webhook", "", "webhook URL receiving the outcome message")
	cmd.Flags().BoolVar(&runFlags.NotifyAbort, "notify-on-abort", false, "also notify when a checksum or connection fails")
	cmd.Flags().BoolVar(&runFlags.DryRun, "dry-run", false, "pass --dry-run to rsync and skip verification")
	cmd.Flags().BoolVar(&runFlags.StrictExit, "strict-exit", false, "exit with a non-zero code when the sync does not succeed")
	cmd.Flags().StringVarP(&runFlags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringSliceVar(&runFlags.Exclude, "exclude", []string{}, "patterns passed to rsync --exclude")
	cmd.Flags().BoolVar(&runFlags.Delete, "delete", false, "delete destination files absent from the source")
	cmd.Flags().StringVarP(&runFlags.Output, "output", "o", "", "output format: human, json")

	// Logging flags
	cmd.Flags().StringVar(&runFlags.LogFile, "log-file", "", "log file (default: logs/rsync_transfer.log)")
	cmd.Flags().StringVar(&runFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&runFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

// addEndpointFlags registers the flags shared by run and check
func addEndpointFlags(cmd *cobra.Command, flags *RunFlags) {
	cmd.Flags().StringVarP(&flags.Source, "source", "s", "", "source as [user@]host[:port]:path")
	cmd.Flags().StringVarP(&flags.Dest, "dest", "d", "", "destination as [user@]host[:port]:path")
	cmd.Flags().BoolVar(&flags.NoPrompt, "no-prompt", false, "never prompt; missing fields stay empty")
	cmd.Flags().StringVar(&flags.Algorithm, "checksum", "", "checksum algorithm: md5, sha256")
	cmd.Flags().StringVar(&flags.Mode, "checksum-mode", "", "checksum mode: file, tree")
	cmd.Flags().StringVar(&flags.KnownHosts, "known-hosts", "", "known_hosts file for host key verification")
	cmd.Flags().StringVarP(&flags.KeyFile, "identity", "i", "", "private key for the checksum sessions")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cfg, &runFlags); err != nil {
		return err
	}

	// Create logger first so that every setup failure reaches the run log
	logger, err := createLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	// The tool must exist before anything is asked of the user
	runner, err := createRunner(cfg, runFlags.DryRun)
	if err != nil {
		return err
	}
	if err := runner.CheckInstalled(ctx); err != nil {
		logger.Error(ctx, fmt.Sprintf("%s is not installed.", titled(runner.Name())), err, nil)
		return err
	}

	session, err := gatherEndpoints(ctx, cfg, &runFlags)
	if err != nil {
		logger.Error(ctx, "Failed to read endpoints", err, nil)
		return fmt.Errorf("failed to read endpoints: %w", err)
	}

	operation, err := createSession(cfg, session, runner.Name(), runFlags.DryRun)
	if err != nil {
		logger.Error(ctx, "Invalid session", err, nil)
		return fmt.Errorf("failed to create session: %w", err)
	}

	checksums, err := createChecksumClient(cfg)
	if err != nil {
		return err
	}

	formatter := createFormatter(cfg)
	notifier := createNotifier(cfg)

	controller := sync.NewController(operation, checksums, runner, notifier, formatter, logger)

	report, err := controller.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if runFlags.StrictExit {
		if code := report.Outcome.ExitCode(); code != 0 {
			return &ExitError{Code: code}
		}
	}
	return nil
}

func titled(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ExitCode maps an error returned by a command to a process exit code
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
