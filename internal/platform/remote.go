package platform

import (
	"path"
	"strconv"
	"strings"

	"github.com/sdejongh/syncwarden/pkg/models"
)

// ParseRemote parses "[user@]host[:port]:path" into an endpoint. IPv6 hosts
// must be bracketed: "user@[::1]:22:/data". Missing parts stay empty so they
// can be prompted for later.
func ParseRemote(spec string) (models.Endpoint, error) {
	var ep models.Endpoint
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ep, &RemoteError{Spec: spec, Message: "remote is empty"}
	}

	if i := strings.LastIndex(spec, "@"); i >= 0 {
		ep.User = spec[:i]
		spec = spec[i+1:]
	}

	var rest string
	if strings.HasPrefix(spec, "[") {
		end := strings.Index(spec, "]")
		if end < 0 {
			return ep, &RemoteError{Spec: spec, Message: "unterminated IPv6 address"}
		}
		ep.Host = spec[1:end]
		rest = strings.TrimPrefix(spec[end+1:], ":")
	} else {
		host, after, _ := strings.Cut(spec, ":")
		ep.Host = host
		rest = after
	}

	if ep.Host == "" {
		return ep, &RemoteError{Spec: spec, Message: "host is empty"}
	}

	if port, p, ok := strings.Cut(rest, ":"); ok && isPort(port) {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return ep, &RemoteError{Spec: spec, Message: "invalid port " + port}
		}
		ep.Port = n
		rest = p
	}
	ep.Path = rest

	return ep, nil
}

// NormalizeRemotePath cleans a remote POSIX path, keeping a trailing slash
// since the transfer tool treats "dir/" and "dir" differently
func NormalizeRemotePath(p string) string {
	if p == "" {
		return p
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

func isPort(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// RemoteError represents a remote spec that cannot be parsed
type RemoteError struct {
	Spec    string
	Message string
}

func (e *RemoteError) Error() string {
	return "invalid remote '" + e.Spec + "': " + e.Message
}
