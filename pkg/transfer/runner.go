// Package transfer invokes the external synchronization tool.
package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/sdejongh/syncwarden/pkg/models"
	"github.com/sdejongh/syncwarden/pkg/ratelimit"
)

// DefaultBinary is the transfer tool looked up on PATH
const DefaultBinary = "rsync"

// DefaultFlags enable archive mode, compression and verbose output
var DefaultFlags = []string{"-avz"}

// ToolNotInstalledError reports that the transfer tool cannot be run on this host
type ToolNotInstalledError struct {
	Binary string
	Err    error
}

func (e *ToolNotInstalledError) Error() string {
	return fmt.Sprintf("%s is not installed on this system: %v", e.Binary, e.Err)
}

func (e *ToolNotInstalledError) Unwrap() error {
	return e.Err
}

// Options configures the transfer invocation
type Options struct {
	Binary    string
	Flags     []string
	Bandwidth ratelimit.Limit
	Exclude   []string
	Delete    bool
	DryRun    bool
	ExtraArgs []string

	// Output receives the tool's stdout and stderr as they are produced (optional)
	Output io.Writer
}

// Runner runs one transfer per call. The tool is opaque: its own retry and
// delta logic is not inspected.
type Runner struct {
	opts Options
}

// NewRunner creates a runner, filling in the default binary and flags
func NewRunner(opts Options) *Runner {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Flags == nil {
		opts.Flags = DefaultFlags
	}
	return &Runner{opts: opts}
}

// Name returns the tool name used in messages
func (r *Runner) Name() string {
	name := r.opts.Binary
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Args returns the arguments passed to the tool for one transfer
func (r *Runner) Args(source, dest models.Endpoint) []string {
	args := append([]string{}, r.opts.Flags...)
	if flag := r.opts.Bandwidth.RsyncFlag(); flag != "" {
		args = append(args, flag)
	}
	for _, pattern := range r.opts.Exclude {
		args = append(args, "--exclude="+pattern)
	}
	if r.opts.Delete {
		args = append(args, "--delete")
	}
	if r.opts.DryRun {
		args = append(args, "--dry-run")
	}
	if port := remoteShellPort(source, dest); port != models.DefaultSSHPort {
		args = append(args, "-e", fmt.Sprintf("ssh -p %d", port))
	}
	args = append(args, r.opts.ExtraArgs...)
	return append(args, source.Address(), dest.Address())
}

// remoteShellPort returns the port passed to the remote shell. A single -e
// applies to both endpoints, so configuration rejects differing ports.
func remoteShellPort(source, dest models.Endpoint) int {
	if source.Port != 0 {
		return source.Port
	}
	return dest.SSHPort()
}

// CheckInstalled runs "<tool> --version" and fails if it cannot
func (r *Runner) CheckInstalled(ctx context.Context) error {
	_, err := r.Version(ctx)
	return err
}

// Version returns the first line printed by "<tool> --version"
func (r *Runner) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, r.opts.Binary, "--version").Output()
	if err != nil {
		return "", &ToolNotInstalledError{Binary: r.opts.Binary, Err: err}
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// Transfer copies source to dest. The outcome carries stderr on failure and
// stdout on success.
func (r *Runner) Transfer(ctx context.Context, source, dest models.Endpoint) models.TransferOutcome {
	cmd := exec.CommandContext(ctx, r.opts.Binary, r.Args(source, dest)...)

	var stdout, stderr bytes.Buffer
	if r.opts.Output != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.opts.Output)
		cmd.Stderr = io.MultiWriter(&stderr, r.opts.Output)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	if err == nil {
		return models.TransferOutcome{Succeeded: true, Diagnostic: stdout.String()}
	}

	outcome := models.TransferOutcome{Diagnostic: stderr.String(), ExitCode: -1}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		outcome.ExitCode = exitErr.ExitCode()
	}
	if outcome.Diagnostic == "" {
		outcome.Diagnostic = err.Error()
	}
	return outcome
}
