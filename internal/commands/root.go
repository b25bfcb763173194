package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/tally/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "tally",
		Short:   "Ledger and overdraft fee tracker fed by mobile money SMS",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newInitCommand(),
		newSyncCommand(),
		newWatchCommand(),
		newCategorizeCommand(),
		newMapCommand(),
		newUncategorizedCommand(),
		newRulesCommand(),
		newFeesCommand(),
		newExportCommand(),
		newGrammarsCommand(),
	)

	return rootCmd
}
