// Package credentials gathers the two endpoints of a session.
package credentials

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sdejongh/syncwarden/pkg/models"
)

// Environment variables consulted for passwords
const (
	EnvSourcePassword = "SYNCWARDEN_SOURCE_PASSWORD"
	EnvDestPassword   = "SYNCWARDEN_DEST_PASSWORD"
)

// Source supplies the source and destination endpoints
type Source interface {
	Endpoints(ctx context.Context) (models.Session, error)
}

// StaticSource returns a fixed session, typically built from config and flags
type StaticSource struct {
	Session models.Session
}

// Endpoints returns the configured session unchanged
func (s StaticSource) Endpoints(ctx context.Context) (models.Session, error) {
	return s.Session, nil
}

// EnvSource fills empty passwords from the environment
type EnvSource struct {
	Base   Source
	Lookup func(string) (string, bool)
}

// NewEnvSource wraps base with os.LookupEnv
func NewEnvSource(base Source) *EnvSource {
	return &EnvSource{Base: base, Lookup: os.LookupEnv}
}

// Endpoints returns base's session with passwords taken from the environment
// where none were given
func (s *EnvSource) Endpoints(ctx context.Context) (models.Session, error) {
	session, err := s.Base.Endpoints(ctx)
	if err != nil {
		return session, err
	}
	if v, ok := s.Lookup(EnvSourcePassword); ok && session.Source.Password == "" {
		session.Source.Password = v
	}
	if v, ok := s.Lookup(EnvDestPassword); ok && session.Dest.Password == "" {
		session.Dest.Password = v
	}
	return session, nil
}

// PromptSource asks the operator for every field left empty by Base.
// Input is free text and is not validated.
type PromptSource struct {
	Base Source
	In   io.Reader
	Out  io.Writer

	// ReadPassword reads a line without echo. When nil, passwords are read
	// like any other field.
	ReadPassword func() (string, error)

	reader *bufio.Reader
}

// NewPromptSource creates a prompt source on stdin/stderr. Password entry is
// masked when stdin is a terminal.
func NewPromptSource(base Source) *PromptSource {
	p := &PromptSource{Base: base, In: os.Stdin, Out: os.Stderr}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		p.ReadPassword = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(p.Out)
			return string(b), err
		}
	}
	return p
}

// Endpoints prompts for source then destination fields
func (p *PromptSource) Endpoints(ctx context.Context) (models.Session, error) {
	var session models.Session
	if p.Base != nil {
		var err error
		if session, err = p.Base.Endpoints(ctx); err != nil {
			return session, err
		}
	}

	if err := p.Fill(ctx, models.SideSource, &session.Source); err != nil {
		return session, err
	}
	if err := p.Fill(ctx, models.SideDest, &session.Dest); err != nil {
		return session, err
	}
	return session, nil
}

// Fill prompts for the empty fields of endpoint
func (p *PromptSource) Fill(ctx context.Context, side models.Side, endpoint *models.Endpoint) error {
	fields := []struct {
		label  string
		target *string
		secret bool
	}{
		{"username", &endpoint.User, false},
		{"host", &endpoint.Host, false},
		{"password", &endpoint.Password, true},
		{"remote path", &endpoint.Path, false},
	}

	for _, f := range fields {
		if *f.target != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		value, err := p.ask(fmt.Sprintf("Enter %s %s: ", side, f.label), f.secret)
		if err != nil {
			return fmt.Errorf("failed to read %s %s: %w", side, f.label, err)
		}
		*f.target = value
	}
	return nil
}

func (p *PromptSource) ask(prompt string, secret bool) (string, error) {
	fmt.Fprint(p.Out, prompt)

	if secret && p.ReadPassword != nil {
		return p.ReadPassword()
	}

	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
