package credentials

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/syncwarden/pkg/models"
)

func TestPromptSource_AsksFourFieldsPerEndpoint(t *testing.T) {
	in := strings.NewReader("alice\nfiles1\nsecret1\n/srv/data/\nbob\nfiles2\nsecret2\n/backup/\n")
	var out bytes.Buffer
	p := &PromptSource{In: in, Out: &out}

	session, err := p.Endpoints(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.Endpoint{User: "alice", Host: "files1", Password: "secret1", Path: "/srv/data/"}, session.Source)
	assert.Equal(t, models.Endpoint{User: "bob", Host: "files2", Password: "secret2", Path: "/backup/"}, session.Dest)
	assert.Equal(t, 8, strings.Count(out.String(), "Enter "))
	assert.Contains(t, out.String(), "Enter destination password: ")
}

func TestPromptSource_AcceptsEmptyInput(t *testing.T) {
	in := strings.NewReader("\n\n\n\n\n\n\n\n")
	p := &PromptSource{In: in, Out: io.Discard}

	session, err := p.Endpoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Session{}, session)
}

func TestPromptSource_OnlyAsksMissingFields(t *testing.T) {
	base := StaticSource{Session: models.Session{
		Source: models.Endpoint{User: "alice", Host: "files1", Path: "/srv/"},
		Dest:   models.Endpoint{User: "bob", Host: "files2", Path: "/dst/"},
	}}
	var out bytes.Buffer
	var masked int
	p := &PromptSource{
		Base: base,
		In:   strings.NewReader(""),
		Out:  &out,
		ReadPassword: func() (string, error) {
			masked++
			return "pw", nil
		},
	}

	session, err := p.Endpoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, masked)
	assert.Equal(t, "pw", session.Source.Password)
	assert.Equal(t, "pw", session.Dest.Password)
	assert.NotContains(t, out.String(), "username")
}

func TestPromptSource_LastLineWithoutNewline(t *testing.T) {
	ep := models.Endpoint{User: "u", Host: "h", Password: "p"}
	p := &PromptSource{In: strings.NewReader("/data"), Out: io.Discard}

	require.NoError(t, p.Fill(context.Background(), models.SideSource, &ep))
	assert.Equal(t, "/data", ep.Path)
}

func TestPromptSource_InputClosed(t *testing.T) {
	p := &PromptSource{In: strings.NewReader("alice\n"), Out: io.Discard}

	_, err := p.Endpoints(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF))
	assert.Contains(t, err.Error(), "source host")
}

func TestPromptSource_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &PromptSource{In: strings.NewReader("x\n"), Out: io.Discard}

	_, err := p.Endpoints(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnvSource(t *testing.T) {
	env := map[string]string{EnvSourcePassword: "from-env", EnvDestPassword: "ignored"}
	s := &EnvSource{
		Base: StaticSource{Session: models.Session{
			Dest: models.Endpoint{Password: "explicit"},
		}},
		Lookup: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	}

	session, err := s.Endpoints(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", session.Source.Password)
	assert.Equal(t, "explicit", session.Dest.Password)
}
