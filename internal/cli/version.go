package cli

import (
	"encoding/json"
	"fmt"

	"github.com/hadup-labs/hadup/internal/branding"
	"github.com/hadup-labs/hadup/internal/updater"
	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
	versionCheck bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version info as JSON")
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionShort {
			fmt.Println(buildVersion)
			return nil
		}

		if versionJSON {
			info := map[string]string{
				"version": buildVersion,
				"commit":  buildCommit,
				"date":    buildDate,
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling version info: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("%s version %s (commit: %s, built: %s)\n", branding.CLIName(), buildVersion, buildCommit, buildDate)

		if versionCheck {
			u := updater.New(buildVersion)
			release, err := u.CheckLatestVersion()
			if err != nil {
				return fmt.Errorf("checking latest version: %w", err)
			}
			available, err := updater.IsUpdateAvailable(buildVersion, release.Version)
			if err != nil {
				return fmt.Errorf("comparing versions: %w", err)
			}
			if available {
				updater.PrintUpdateBanner(cmd.OutOrStdout(), buildVersion, release.Version)
			} else {
				fmt.Println("You are on the latest version.")
			}
		}
		return nil
	},
}
