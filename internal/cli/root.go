package cli

import (
	"fmt"
	"os"

	"github.com/hadup-labs/hadup/internal/branding"
	"github.com/hadup-labs/hadup/internal/config"
	"github.com/hadup-labs/hadup/internal/updater"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` provisions the Hadoop analytics stack (a Java runtime, Apache
Hadoop, Hive, and Spark) onto this machine. Runs are idempotent: re-run
after any failure and completed steps are skipped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Skip the banner for commands that manage their own output.
		if name := cmd.Name(); name == "version" || name == "config" {
			return
		}

		// Non-blocking banner from cached version check.
		u := updater.New(buildVersion)
		u.CheckAndPrintBanner(os.Stderr, config.Dir())
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}
