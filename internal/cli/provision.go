package cli

import (
	"fmt"

	"github.com/hadup-labs/hadup/internal/branding"
	"github.com/hadup-labs/hadup/internal/chain"
	"github.com/hadup-labs/hadup/internal/config"
	"github.com/hadup-labs/hadup/internal/envstore"
	"github.com/hadup-labs/hadup/internal/fetch"
	"github.com/hadup-labs/hadup/internal/platform"
	"github.com/hadup-labs/hadup/internal/probe"
	"github.com/hadup-labs/hadup/internal/provision"
	"github.com/spf13/cobra"
)

var (
	provisionMirror    string
	provisionRoot      string
	provisionChainFile string
	provisionUserScope bool
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Install the full dependency chain",
	Long: `Provision the dependency chain in order: JDK, Hadoop, Hive, Spark.
Each dependency is checked for a compatible existing install first; missing
ones are downloaded, unpacked, and registered in machine environment state.
The chain stops at the first failure; fix the cause and re-run.`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringVar(&provisionMirror, "mirror", "", "Download host for stack artifacts")
	provisionCmd.Flags().StringVar(&provisionRoot, "install-root", "", "Directory dependencies are unpacked into")
	provisionCmd.Flags().StringVar(&provisionChainFile, "chain", "", "Path to a chain manifest overriding the built-in chain")
	provisionCmd.Flags().BoolVar(&provisionUserScope, "user", false, "Register environment entries at user scope instead of machine scope")
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	config.Load()

	mirror := provisionMirror
	if mirror == "" {
		mirror = config.Mirror()
	}
	installRoot := provisionRoot
	if installRoot == "" {
		installRoot = config.InstallRoot()
	}

	if !provisionUserScope && !platform.IsElevated() {
		return fmt.Errorf("machine-scope provisioning requires elevated privileges; re-run with sudo or pass --user")
	}

	specs, err := resolveChain(provisionChainFile, mirror, installRoot)
	if err != nil {
		return err
	}

	store := resolveStore()
	runner := probe.ExecRunner{}

	installer := &provision.Installer{
		Env:       store,
		Fetcher:   fetch.New(),
		Runner:    runner,
		Bootstrap: &provision.ExecBootstrapper{Runner: runner},
		Out:       cmd.OutOrStdout(),
	}
	orchestrator := &provision.Orchestrator{
		Installer: installer,
		Out:       cmd.OutOrStdout(),
	}

	if err := orchestrator.Run(cmd.Context(), specs); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "✓ All %d dependencies provisioned. Open a new shell to pick up the environment.\n", len(specs))
	return nil
}

// resolveChain loads the chain manifest if one is configured, falling back
// to the built-in default chain.
func resolveChain(chainFile, mirror, installRoot string) ([]chain.Spec, error) {
	if chainFile == "" {
		chainFile = config.Get(config.KeyChainFile)
	}
	if chainFile != "" {
		return chain.Load(chainFile, installRoot)
	}
	return chain.Default(mirror, installRoot), nil
}

// resolveStore picks the environment scope: machine by default, user when
// --user is set (the machine file is then left untouched).
func resolveStore() envstore.Store {
	machine := envstore.DefaultMachinePath(branding.CLIName())
	user := envstore.DefaultUserPath(branding.HomeDir())
	if provisionUserScope {
		return envstore.NewFileStore(user, "")
	}
	return envstore.NewFileStore(machine, user)
}
