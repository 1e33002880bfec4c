package update

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	force     bool
	checkOnly bool
)

func NewUpdateCmd() *cobra.Command {
	updateCmd := &cobra.Command{
		Use:           "update",
		Short:         "Update the infragen binary to the latest version",
		Long:          "Updates the infragen binary to the latest version by downloading the latest release from github and installing it",
		SilenceErrors: true,
		RunE:          runUpdate,
	}

	optionalFlags := pflag.NewFlagSet("optional", pflag.ExitOnError)
	optionalFlags.SortFlags = false
	optionalFlags.BoolVar(&force, "force", false, "Force update without user confirmation")
	optionalFlags.BoolVar(&checkOnly, "check-only", false, "Only check for updates, don't install")
	updateCmd.Flags().AddFlagSet(optionalFlags)

	updateCmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Printf("%s\n\n", c.Short)
		fmt.Printf("Optional Flags:\n%s\n", optionalFlags.FlagUsages())
		return nil
	})

	return updateCmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	opts := parseUpdateOpts()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := NewUpdater(opts).Run(ctx); err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}

	return nil
}

func parseUpdateOpts() UpdaterOpts {
	return UpdaterOpts{
		Force:     force,
		CheckOnly: checkOnly,
	}
}
