package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// GlobalFlags holds flags shared by every command
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	NoColor    bool
}

var globalFlags GlobalFlags

// AddGlobalFlags registers the persistent flags and the hook applying them
func AddGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&globalFlags.ConfigFile, "config", "",
		"config file (default is $SYNCWARDEN_CONFIG or $HOME/.config/syncwarden/config.yaml)")
	flags.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "also write the run log to stderr at debug level")
	flags.BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "only report errors")
	flags.BoolVar(&globalFlags.NoColor, "no-color", false, "disable colored output (also honours NO_COLOR)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		applyGlobalFlags()
	}
}

// applyGlobalFlags applies settings that do not depend on a command
func applyGlobalFlags() {
	if globalFlags.NoColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}
