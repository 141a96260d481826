package compare

import (
	"fmt"
	"strings"
)

// Algorithm selects the remote checksum utility
type Algorithm string

const (
	// MD5 runs md5sum (default, matches the legacy behaviour)
	MD5 Algorithm = "md5"
	// SHA256 runs sha256sum
	SHA256 Algorithm = "sha256"
)

// Mode selects what the digest covers
type Mode string

const (
	// ModeFile digests the path directly
	ModeFile Mode = "file"
	// ModeTree digests every regular file under a directory, in sorted order
	ModeTree Mode = "tree"
)

// ParseAlgorithm parses an algorithm name
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "", "md5":
		return MD5, nil
	case "sha256":
		return SHA256, nil
	default:
		return "", fmt.Errorf("unsupported checksum algorithm: %s (use: md5, sha256)", s)
	}
}

// ParseMode parses a checksum mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "file":
		return ModeFile, nil
	case "tree":
		return ModeTree, nil
	default:
		return "", fmt.Errorf("unsupported checksum mode: %s (use: file, tree)", s)
	}
}

// Tool returns the name of the remote utility
func (a Algorithm) Tool() string {
	if a == SHA256 {
		return "sha256sum"
	}
	return "md5sum"
}

// Checksummer builds remote checksum commands
type Checksummer struct {
	Algorithm Algorithm
	Mode      Mode
}

// NewChecksummer creates a command builder for the given algorithm and mode
func NewChecksummer(algorithm Algorithm, mode Mode) *Checksummer {
	return &Checksummer{Algorithm: algorithm, Mode: mode}
}

// Command returns the shell command printing "<digest> <name>" for path
func (c *Checksummer) Command(path string) string {
	tool := c.Algorithm.Tool()
	if c.Mode == ModeTree {
		// Relative names keep the digest independent of where the tree lives.
		return fmt.Sprintf("cd %s && find . -type f -print0 | LC_ALL=C sort -z | xargs -0 -r %s | %s",
			RemotePath(path), tool, tool)
	}
	return fmt.Sprintf("%s %s", tool, RemotePath(path))
}

// Name returns the checksummer name
func (c *Checksummer) Name() string {
	return fmt.Sprintf("%s/%s", c.Algorithm, c.Mode)
}

// ParseDigest returns the first whitespace-delimited token of the command output
func ParseDigest(output string) (string, error) {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "", fmt.Errorf("checksum command produced no output")
	}
	return fields[0], nil
}

// RemotePath quotes a remote path for a POSIX shell, leaving a leading
// "~" or "~user" prefix unquoted so the remote shell expands it
func RemotePath(p string) string {
	if !strings.HasPrefix(p, "~") {
		return ShellQuote(p)
	}
	prefix, rest, slash := strings.Cut(p, "/")
	if !isLoginName(prefix[1:]) {
		return ShellQuote(p)
	}
	if !slash {
		return prefix
	}
	if rest == "" {
		return prefix + "/"
	}
	return prefix + "/" + ShellQuote(rest)
}

func isLoginName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// ShellQuote quotes s for a POSIX shell
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
