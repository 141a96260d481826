package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sdejongh/syncwarden/pkg/compare"
	"github.com/sdejongh/syncwarden/pkg/models"
)

var checkFlags RunFlags

// NewCheckCommand creates the check command
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the tool and both hosts without transferring",
		Long: `Check that rsync is installed, open a checksum session on both hosts and
print both digests. Nothing is transferred and no notification is sent.`,
		RunE: runCheck,
	}

	addEndpointFlags(cmd, &checkFlags)

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := applyFlagsToConfig(cfg, &checkFlags); err != nil {
		return err
	}

	runner, err := createRunner(cfg, false)
	if err != nil {
		return err
	}
	if err := runner.CheckInstalled(ctx); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s is installed\n", color.GreenString("✓"), runner.Name())

	session, err := gatherEndpoints(ctx, cfg, &checkFlags)
	if err != nil {
		return fmt.Errorf("failed to read endpoints: %w", err)
	}

	checksums, err := createChecksumClient(cfg)
	if err != nil {
		return err
	}

	digests := make(map[models.Side]string, 2)
	for _, side := range []models.Side{models.SideSource, models.SideDest} {
		endpoint := session.Endpoint(side)
		sum, err := checksums.Checksum(ctx, endpoint)
		if err != nil {
			fmt.Fprintf(out, "%s %s %s\n", color.RedString("✗"), side, endpoint)
			return err
		}
		digests[side] = sum
		fmt.Fprintf(out, "%s %s %s: %s\n", color.GreenString("✓"), side, endpoint, sum)
	}

	cmp := compare.Digests(digests[models.SideSource], digests[models.SideDest])
	if cmp.Match() {
		fmt.Fprintln(out, color.GreenString("Checksums match"))
	} else {
		fmt.Fprintln(out, color.YellowString("Checksums differ: %s", cmp.Reason))
	}
	return nil
}
