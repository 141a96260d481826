package models

import (
	"fmt"
	"strings"
)

// Side identifies one end of a transfer
type Side string

const (
	// SideSource is the host the tree is copied from
	SideSource Side = "source"
	// SideDest is the host the tree is copied to
	SideDest Side = "destination"
)

// Endpoint identifies one side of a transfer.
// Endpoints are gathered once at startup and never modified afterwards.
type Endpoint struct {
	User     string
	Host     string
	Port     int
	Password string // used only for checksum sessions, never for the transfer
	Path     string
}

// Address returns the user@host:path form used by the transfer tool
func (e Endpoint) Address() string {
	return fmt.Sprintf("%s@%s:%s", e.User, e.Host, e.Path)
}

// DefaultSSHPort is used when an endpoint does not name a port
const DefaultSSHPort = 22

// SSHPort returns the configured port or 22
func (e Endpoint) SSHPort() int {
	if e.Port == 0 {
		return DefaultSSHPort
	}
	return e.Port
}

// DialAddress returns host:port for the SSH session, defaulting to port 22
func (e Endpoint) DialAddress() string {
	port := e.SSHPort()
	host := e.Host
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// String returns the address with the password left out
func (e Endpoint) String() string {
	return e.Address()
}

// Session is the pair of endpoints synchronized by one process run
type Session struct {
	Source Endpoint
	Dest   Endpoint
}

// Endpoint returns the endpoint for the given side
func (s Session) Endpoint(side Side) Endpoint {
	if side == SideDest {
		return s.Dest
	}
	return s.Source
}

// TransferOutcome is the result of one transfer tool invocation
type TransferOutcome struct {
	Succeeded  bool
	Diagnostic string // stderr on failure, stdout on success
	ExitCode   int
}
