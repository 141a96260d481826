// Package ratelimit parses bandwidth limits and converts them for the transfer tool.
package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
)

// Limit is a transfer rate in bytes per second; 0 means unlimited
type Limit int64

// Parse parses strings such as "512K", "10M", "1G" or "1048576".
// Units are binary (K = 1024). A trailing "B" or "/s" is accepted.
func Parse(s string) (Limit, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}

	upper := strings.ToUpper(s)
	upper = strings.TrimSuffix(upper, "/S")
	upper = strings.TrimSuffix(upper, "IB")
	upper = strings.TrimSuffix(upper, "B")

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(upper, "K"):
		multiplier = 1 << 10
	case strings.HasSuffix(upper, "M"):
		multiplier = 1 << 20
	case strings.HasSuffix(upper, "G"):
		multiplier = 1 << 30
	}
	if multiplier > 1 {
		upper = upper[:len(upper)-1]
	}

	value, err := strconv.ParseFloat(upper, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth limit %q: %w", s, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid bandwidth limit %q: must not be negative", s)
	}

	return Limit(value * float64(multiplier)), nil
}

// Unlimited reports whether no limit applies
func (l Limit) Unlimited() bool {
	return l <= 0
}

// KiBPerSecond returns the limit in KiB/s, rounded up so small limits stay non-zero
func (l Limit) KiBPerSecond() int64 {
	if l <= 0 {
		return 0
	}
	return (int64(l) + 1023) / 1024
}

// RsyncFlag returns the --bwlimit flag, or "" when unlimited
func (l Limit) RsyncFlag() string {
	if l.Unlimited() {
		return ""
	}
	return fmt.Sprintf("--bwlimit=%d", l.KiBPerSecond())
}

// String formats the limit in human-readable form
func (l Limit) String() string {
	if l.Unlimited() {
		return "unlimited"
	}
	const unit = 1024
	if l < unit {
		return fmt.Sprintf("%d B/s", int64(l))
	}
	div, exp := int64(unit), 0
	for n := int64(l) / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB/s", float64(l)/float64(div), "KMGTPE"[exp])
}
