package remote

import (
	"context"

	"github.com/sdejongh/syncwarden/pkg/compare"
	"github.com/sdejongh/syncwarden/pkg/models"
)

// ChecksumClient computes content digests of remote paths
type ChecksumClient struct {
	executor Executor
	builder  *compare.Checksummer
}

// NewChecksumClient creates a client running builder's command through executor
func NewChecksumClient(executor Executor, builder *compare.Checksummer) *ChecksumClient {
	return &ChecksumClient{executor: executor, builder: builder}
}

// Checksum returns the digest of endpoint.Path on the endpoint's host
func (c *ChecksumClient) Checksum(ctx context.Context, endpoint models.Endpoint) (string, error) {
	command := c.builder.Command(endpoint.Path)

	out, err := c.executor.Run(ctx, endpoint, command)
	if err != nil {
		return "", err
	}

	digest, err := compare.ParseDigest(out)
	if err != nil {
		return "", &CommandError{Host: endpoint.Host, Command: command, Err: err}
	}
	return digest, nil
}
