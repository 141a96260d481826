package compare

import (
	"fmt"
	"strings"
)

// Result represents the outcome of comparing two checksums
type Result string

const (
	// Same indicates the digests are identical
	Same Result = "same"
	// Different indicates the digests differ
	Different Result = "different"
)

// Comparison holds the result of comparing the source and destination digests
type Comparison struct {
	SourceDigest string
	DestDigest   string
	Result       Result
	Reason       string
}

// Match reports whether the digests were identical
func (c *Comparison) Match() bool {
	return c.Result == Same
}

// Digests compares the digest taken before the transfer with the one taken after.
// Comparison is exact apart from letter case, since some tools print upper-case hex.
func Digests(source, dest string) *Comparison {
	c := &Comparison{SourceDigest: source, DestDigest: dest}

	if strings.EqualFold(source, dest) {
		c.Result = Same
		c.Reason = "checksums match"
		return c
	}

	c.Result = Different
	c.Reason = fmt.Sprintf("checksum mismatch: source=%s, dest=%s", source, dest)
	return c
}
