package remote

import (
	"fmt"
)

// ConnectivityError reports that a remote session could not be established
type ConnectivityError struct {
	Host string
	Op   string
	Err  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("connection error with %s: failed to %s: %v", e.Host, e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// CommandError reports that the remote command ran but did not produce a usable result
type CommandError struct {
	Host    string
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("command %q on %s failed: %v: %s", e.Command, e.Host, e.Err, e.Stderr)
	}
	return fmt.Sprintf("command %q on %s failed: %v", e.Command, e.Host, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
