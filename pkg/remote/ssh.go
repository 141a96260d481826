// Package remote runs commands on SSH endpoints, one session per call.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/sdejongh/syncwarden/pkg/models"
)

// Executor runs a command on an endpoint and returns its standard output
type Executor interface {
	Run(ctx context.Context, endpoint models.Endpoint, command string) (string, error)
}

// ContextDialer opens the TCP connection underneath an SSH session
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Options configures SSH authentication and host key checking
type Options struct {
	// KnownHostsFile enables host key verification; empty accepts any key
	KnownHostsFile string
	// KeyFile is a private key used when no password is given
	KeyFile string
	// UseAgent enables ssh-agent authentication through SSH_AUTH_SOCK
	UseAgent bool
	// ConnectTimeout bounds the TCP handshake only; 0 leaves it to the OS
	ConnectTimeout time.Duration
}

// SSHExecutor runs commands over a fresh SSH connection per call
type SSHExecutor struct {
	opts   Options
	dialer ContextDialer
}

// NewSSHExecutor creates an executor using the given options
func NewSSHExecutor(opts Options) *SSHExecutor {
	return &SSHExecutor{
		opts:   opts,
		dialer: &net.Dialer{Timeout: opts.ConnectTimeout},
	}
}

// SetDialer replaces the TCP dialer
func (e *SSHExecutor) SetDialer(d ContextDialer) {
	e.dialer = d
}

// Run opens a session, runs command and closes everything before returning
func (e *SSHExecutor) Run(ctx context.Context, endpoint models.Endpoint, command string) (string, error) {
	config, cleanup, err := e.clientConfig(endpoint)
	if err != nil {
		return "", &ConnectivityError{Host: endpoint.Host, Op: "prepare authentication", Err: err}
	}
	defer cleanup()

	addr := endpoint.DialAddress()
	conn, err := e.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", &ConnectivityError{Host: endpoint.Host, Op: "connect", Err: err}
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return "", &ConnectivityError{Host: endpoint.Host, Op: "authenticate", Err: err}
	}
	client := ssh.NewClient(clientConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", &ConnectivityError{Host: endpoint.Host, Op: "open session", Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()

	if err := session.Run(command); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &CommandError{
			Host:    endpoint.Host,
			Command: command,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}

	return stdout.String(), nil
}

// clientConfig builds the auth chain: password first, then agent, then key file
func (e *SSHExecutor) clientConfig(endpoint models.Endpoint) (*ssh.ClientConfig, func(), error) {
	cleanup := func() {}
	var methods []ssh.AuthMethod

	if endpoint.Password != "" {
		password := endpoint.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	if e.opts.UseAgent {
		if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
			if agentConn, err := net.Dial("unix", sock); err == nil {
				methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(agentConn).Signers))
				cleanup = func() { agentConn.Close() }
			}
		}
	}

	if e.opts.KeyFile != "" {
		signer, err := loadSigner(e.opts.KeyFile)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if e.opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(e.opts.KnownHostsFile)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            endpoint.User,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
	}, cleanup, nil
}

func loadSigner(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("private key %s is encrypted; load it into ssh-agent instead", path)
		}
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return signer, nil
}
