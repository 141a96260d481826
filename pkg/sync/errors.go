package sync

import (
	"fmt"

	"github.com/sdejongh/syncwarden/pkg/models"
)

// TransferError reports that every attempt failed in the transfer tool
type TransferError struct {
	Attempts int
	Last     models.TransferOutcome
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed after %d attempts (last exit code %d)", e.Attempts, e.Last.ExitCode)
}

// IntegrityError reports that the transfer succeeded but the content differs
type IntegrityError struct {
	SourceDigest string
	DestDigest   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum mismatch: source=%s, dest=%s", e.SourceDigest, e.DestDigest)
}
