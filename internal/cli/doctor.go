package cli

import (
	"fmt"
	"os"

	"github.com/hadup-labs/hadup/internal/chain"
	"github.com/hadup-labs/hadup/internal/config"
	"github.com/hadup-labs/hadup/internal/envstore"
	"github.com/hadup-labs/hadup/internal/platform"
	"github.com/hadup-labs/hadup/internal/probe"
	"github.com/spf13/cobra"
)

var doctorChainFile string

func init() {
	doctorCmd.Flags().StringVar(&doctorChainFile, "chain", "", "Path to a chain manifest overriding the built-in chain")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Health check for the provisioned stack",
	Long: `Run diagnostic checks against the provisioned stack without changing
anything: privileges, extraction tooling, and the state of every chain
dependency (environment registration, install path, probed version).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()

		fmt.Println("Privilege check:")
		if platform.IsElevated() {
			fmt.Println("  [ OK ] running elevated, machine-scope provisioning available")
		} else {
			fmt.Println("  [WARN] not elevated; `provision` needs sudo or --user")
		}

		fmt.Println("Tooling check:")
		checkBinary("tar")

		specs, err := resolveChain(doctorChainFile, config.Mirror(), config.InstallRoot())
		if err != nil {
			return err
		}

		fmt.Println("Chain check:")
		runner := probe.ExecRunner{}
		for _, spec := range specs {
			checkDependency(cmd, runner, spec)
		}
		return nil
	},
}

func checkBinary(name string) {
	path, err := probe.ExecRunner{}.LookPath(name)
	if err != nil {
		fmt.Printf("  [MISS] %s not found on PATH\n", name)
		return
	}
	fmt.Printf("  [ OK ] %s found at %s\n", name, path)
}

func checkDependency(cmd *cobra.Command, runner probe.Runner, spec chain.Spec) {
	home, ok := envstore.ProcessEnv{}.Read(spec.EnvKey)
	if !ok {
		fmt.Printf("  [MISS] %s: %s not registered\n", spec.Name, spec.EnvKey)
		return
	}
	if _, err := os.Stat(home); err != nil {
		fmt.Printf("  [FAIL] %s: %s points to missing path %s\n", spec.Name, spec.EnvKey, home)
		return
	}
	if len(spec.VersionCommand) == 0 {
		fmt.Printf("  [ OK ] %s at %s\n", spec.Name, home)
		return
	}

	detected, err := probe.DetectVersion(cmd.Context(), runner, spec.VersionCommand[0], spec.VersionCommand[1:]...)
	if err != nil {
		fmt.Printf("  [FAIL] %s: version probe failed: %v\n", spec.Name, err)
		return
	}
	if spec.MinVersion != "" {
		minimum, perr := probe.ParseToken(spec.MinVersion)
		if perr == nil && !probe.AtLeast(detected, minimum) {
			fmt.Printf("  [FAIL] %s: version %s below minimum %s\n", spec.Name, detected, spec.MinVersion)
			return
		}
	}
	fmt.Printf("  [ OK ] %s %s at %s\n", spec.Name, detected, home)
}
