package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sdejongh/syncwarden/pkg/config"
	"github.com/sdejongh/syncwarden/pkg/logging"
	"github.com/sdejongh/syncwarden/pkg/models"
	"github.com/sdejongh/syncwarden/pkg/output"
	"github.com/sdejongh/syncwarden/pkg/transfer"
)

func TestApplyFlagsToConfig(t *testing.T) {
	cfg := config.Default()
	flags := &RunFlags{
		Source:      "alice@files1:2222:/srv//data/",
		Dest:        "bob@files2:2222:/backup/",
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		Webhook:     "https://chat.example.com/hooks/abc",
		Bandwidth:   "10M",
		Algorithm:   "sha256",
		LogLevel:    "debug",
	}

	if err := applyFlagsToConfig(cfg, flags); err != nil {
		t.Fatalf("applyFlagsToConfig failed: %v", err)
	}

	if cfg.Source != (config.EndpointConfig{User: "alice", Host: "files1", Port: 2222, Path: "/srv/data/"}) {
		t.Errorf("Unexpected source %+v", cfg.Source)
	}
	if cfg.Destination.Port != 2222 {
		t.Errorf("Expected destination port 2222, got %d", cfg.Destination.Port)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.Backoff != 30*time.Second {
		t.Errorf("Unexpected retry %+v", cfg.Retry)
	}
	if cfg.Notify.WebhookURL != flags.Webhook {
		t.Errorf("Webhook not applied")
	}
	if cfg.Checksum.Algorithm != "sha256" || cfg.Logging.Level != "debug" {
		t.Errorf("Checksum or logging flags not applied")
	}
}

func TestApplyFlagsToConfig_KeepsConfigWhenUnset(t *testing.T) {
	cfg := config.Default()
	cfg.Retry.MaxAttempts = 7
	cfg.Source.Host = "configured"

	if err := applyFlagsToConfig(cfg, &RunFlags{}); err != nil {
		t.Fatal(err)
	}
	if cfg.Retry.MaxAttempts != 7 || cfg.Source.Host != "configured" {
		t.Errorf("Config values were overridden by empty flags: %+v", cfg)
	}
}

func TestApplyFlagsToConfig_Invalid(t *testing.T) {
	tests := map[string]RunFlags{
		"bad remote":    {Source: "alice@:/srv"},
		"bad bandwidth": {Bandwidth: "lots"},
		"bad checksum":  {Algorithm: "crc"},
		"port mismatch": {Source: "a@h1:2222:/x", Dest: "b@h2:/y"},
	}
	for name, flags := range tests {
		flags := flags
		t.Run(name, func(t *testing.T) {
			if err := applyFlagsToConfig(config.Default(), &flags); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestCreateSession(t *testing.T) {
	cfg := config.Default()
	session := models.Session{
		Source: models.Endpoint{User: "alice", Host: "files1", Path: "/a"},
		Dest:   models.Endpoint{User: "bob", Host: "files2", Path: "/b"},
	}

	op, err := createSession(cfg, session, "rsync", false)
	if err != nil {
		t.Fatalf("createSession failed: %v", err)
	}
	if op.ID == "" {
		t.Error("Expected a run ID")
	}
	if op.MaxAttempts != models.DefaultMaxAttempts || op.Backoff != models.DefaultBackoff {
		t.Errorf("Unexpected retry constants %d/%v", op.MaxAttempts, op.Backoff)
	}

	other, _ := createSession(cfg, session, "rsync", false)
	if other.ID == op.ID {
		t.Error("Run IDs must be unique")
	}

	cfg.Retry.MaxAttempts = 0
	if _, err := createSession(cfg, session, "rsync", false); err == nil {
		t.Error("Expected validation error for zero attempts")
	}
}

func TestCreateLogger(t *testing.T) {
	defer func(v bool) { globalFlags.Verbose = v }(globalFlags.Verbose)
	globalFlags.Verbose = false

	cfg := config.Default()
	cfg.Logging.Enabled = false
	logger, err := createLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := logger.(*logging.NullLogger); !ok {
		t.Errorf("Expected NullLogger when disabled, got %T", logger)
	}

	cfg.Logging.Enabled = true
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err = createLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()
	if _, ok := logger.(*logging.FileLogger); !ok {
		t.Errorf("Expected FileLogger, got %T", logger)
	}

	globalFlags.Verbose = true
	multi, err := createLogger(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer multi.Close()
	if _, ok := multi.(logging.Multi); !ok {
		t.Errorf("Expected Multi logger in verbose mode, got %T", multi)
	}
}

func TestCreateFormatter(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "json"
	if _, ok := createFormatter(cfg).(*output.JSONFormatter); !ok {
		t.Error("Expected JSON formatter")
	}

	cfg.Output.Quiet = true
	if _, ok := createFormatter(cfg).(*output.QuietFormatter); !ok {
		t.Error("Expected quiet formatter, which still reports errors")
	}
}

func TestExitCode(t *testing.T) {
	if code := ExitCode(&ExitError{Code: 3}); code != 3 {
		t.Errorf("Expected 3, got %d", code)
	}
	if code := ExitCode(errors.New("boom")); code != 1 {
		t.Errorf("Expected 1 for setup errors, got %d", code)
	}
}

func TestRunCommand_MissingToolIsLogged(t *testing.T) {
	defer func(g GlobalFlags, r RunFlags) { globalFlags, runFlags = g, r }(globalFlags, runFlags)

	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "rsync_transfer.log")
	cfgPath := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("transfer:\n  binary: %q\nlogging:\n  file: %q\n",
		filepath.Join(dir, "missing", "rsync"), logPath)
	if err := os.WriteFile(cfgPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	globalFlags = GlobalFlags{ConfigFile: cfgPath}

	cmd := NewRunCommand()
	cmd.SetArgs([]string{"--no-prompt"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	var notInstalled *transfer.ToolNotInstalledError
	if !errors.As(err, &notInstalled) {
		t.Fatalf("Expected ToolNotInstalledError, got %v", err)
	}
	if code := ExitCode(err); code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Run log not written: %v", err)
	}
	if !strings.Contains(string(data), " - ERROR - Rsync is not installed.") {
		t.Errorf("Missing tool not logged:\n%s", data)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	defer func(p string) { globalFlags.ConfigFile = p }(globalFlags.ConfigFile)
	globalFlags.ConfigFile = filepath.Join(t.TempDir(), "config.yaml")

	cmd := NewConfigCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	cmd.SetArgs([]string{"init"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	cmd.SetArgs([]string{"init"})
	if err := cmd.Execute(); err == nil {
		t.Error("Expected an error when the file exists")
	}

	out.Reset()
	cmd.SetArgs([]string{"show"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out.String(), "max_attempts: 100") {
		t.Errorf("Unexpected config output:\n%s", out.String())
	}
}

func TestGlobalFlags(t *testing.T) {
	defer func(g GlobalFlags, nc bool) { globalFlags, color.NoColor = g, nc }(globalFlags, color.NoColor)
	color.NoColor = false

	root := &cobra.Command{Use: "syncwarden", Run: func(*cobra.Command, []string) {}}
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	AddGlobalFlags(root)

	root.SetArgs([]string{"--no-color", "--config", "/tmp/x.yaml"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !color.NoColor {
		t.Error("--no-color should disable colors")
	}
	if GetGlobalFlags().ConfigFile != "/tmp/x.yaml" {
		t.Errorf("Unexpected config file %q", GetGlobalFlags().ConfigFile)
	}

	root.SetArgs([]string{"-v", "-q"})
	if err := root.Execute(); err == nil {
		t.Error("--verbose and --quiet should be mutually exclusive")
	}
}
