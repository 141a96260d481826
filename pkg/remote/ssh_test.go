package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/sdejongh/syncwarden/pkg/models"
)

// testServer is a minimal SSH server answering exec requests
type testServer struct {
	listener net.Listener
	config   *ssh.ServerConfig
	handler  func(command string) (stdout string, status uint32)

	mu       sync.Mutex
	commands []string
}

func newTestServer(t *testing.T, password string, handler func(string) (string, uint32)) *testServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(_ ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == password {
				return nil, nil
			}
			return nil, errors.New("password rejected")
		},
	}
	config.AddHostKey(hostKey)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &testServer{listener: listener, config: config, handler: handler}
	go s.serve()
	t.Cleanup(func() { listener.Close() })
	return s
}

func (s *testServer) endpoint(user, password, path string) models.Endpoint {
	host, portStr, _ := net.SplitHostPort(s.listener.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return models.Endpoint{User: user, Host: host, Port: port, Password: password, Path: path}
}

func (s *testServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *testServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *testServer) handleConn(conn net.Conn) {
	_, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(channel, requests)
	}
}

func (s *testServer) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()
	for req := range requests {
		if req.Type != "exec" {
			req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		s.mu.Unlock()

		stdout, status := s.handler(payload.Command)
		io.WriteString(channel, stdout)
		channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{status}))
		go ssh.DiscardRequests(requests)
		return
	}
}

func TestSSHExecutor_Run(t *testing.T) {
	server := newTestServer(t, "hunter2", func(cmd string) (string, uint32) {
		return "abc123  /srv/data\n", 0
	})

	executor := NewSSHExecutor(Options{})
	out, err := executor.Run(context.Background(), server.endpoint("deploy", "hunter2", "/srv/data"), "md5sum '/srv/data'")

	require.NoError(t, err)
	assert.Equal(t, "abc123  /srv/data\n", out)
	assert.Equal(t, []string{"md5sum '/srv/data'"}, server.received())
}

func TestSSHExecutor_NewSessionPerCall(t *testing.T) {
	server := newTestServer(t, "pw", func(cmd string) (string, uint32) {
		return "x  y\n", 0
	})

	executor := NewSSHExecutor(Options{})
	ep := server.endpoint("u", "pw", "p")
	for i := 0; i < 3; i++ {
		_, err := executor.Run(context.Background(), ep, "true")
		require.NoError(t, err)
	}
	assert.Len(t, server.received(), 3)
}

func TestSSHExecutor_AuthRejected(t *testing.T) {
	server := newTestServer(t, "right", func(cmd string) (string, uint32) {
		return "", 0
	})

	executor := NewSSHExecutor(Options{})
	_, err := executor.Run(context.Background(), server.endpoint("deploy", "wrong", "/srv"), "md5sum /srv")

	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "authenticate", connErr.Op)
	assert.Empty(t, server.received())
}

func TestSSHExecutor_Unreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	executor := NewSSHExecutor(Options{})
	_, err = executor.Run(context.Background(), models.Endpoint{Host: "127.0.0.1", Port: addr.Port, Password: "x"}, "true")

	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "connect", connErr.Op)
	assert.Contains(t, connErr.Error(), "connection error with 127.0.0.1")
}

func TestSSHExecutor_CommandFails(t *testing.T) {
	server := newTestServer(t, "pw", func(cmd string) (string, uint32) {
		return "", 1
	})

	executor := NewSSHExecutor(Options{})
	_, err := executor.Run(context.Background(), server.endpoint("u", "pw", "/missing"), "md5sum '/missing'")

	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	var exitErr *ssh.ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestSSHExecutor_MissingKnownHosts(t *testing.T) {
	executor := NewSSHExecutor(Options{KnownHostsFile: "/nonexistent/known_hosts"})
	_, err := executor.Run(context.Background(), models.Endpoint{Host: "example.invalid"}, "true")

	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "prepare authentication", connErr.Op)
}

func TestSSHExecutor_MissingKeyFile(t *testing.T) {
	executor := NewSSHExecutor(Options{KeyFile: "/nonexistent/id_ed25519"})
	_, err := executor.Run(context.Background(), models.Endpoint{Host: "example.invalid"}, "true")

	var connErr *ConnectivityError
	require.ErrorAs(t, err, &connErr)
}
