package cli

import (
	"fmt"
	"os"

	"github.com/hadup-labs/hadup/internal/branding"
	"github.com/hadup-labs/hadup/internal/chain"
	"github.com/hadup-labs/hadup/internal/config"
	"github.com/hadup-labs/hadup/internal/envstore"
	"github.com/spf13/cobra"
)

func init() {
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envPathCmd)
	rootCmd.AddCommand(envCmd)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect registered environment state",
	Long:  `Inspect the dependency home variables registered during provisioning.`,
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show registered dependency homes",
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()

		specs := chain.Default(config.Mirror(), config.InstallRoot())
		for _, spec := range specs {
			home, ok := envstore.ProcessEnv{}.Read(spec.EnvKey)
			if !ok {
				fmt.Printf("%s=(not registered)\n", spec.EnvKey)
				continue
			}
			marker := ""
			if _, err := os.Stat(home); err != nil {
				marker = "  (path missing)"
			}
			fmt.Printf("%s=%s%s\n", spec.EnvKey, home, marker)
		}
		return nil
	},
}

var envPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the scope files environment state is persisted to",
	RunE: func(cmd *cobra.Command, args []string) error {
		machine := envstore.DefaultMachinePath(branding.CLIName())
		user := envstore.DefaultUserPath(branding.HomeDir())

		fmt.Printf("machine: %s%s\n", machine, existsMarker(machine))
		fmt.Printf("user:    %s%s\n", user, existsMarker(user))
		return nil
	},
}

func existsMarker(path string) string {
	if _, err := os.Stat(path); err != nil {
		return "  (not created yet)"
	}
	return ""
}
