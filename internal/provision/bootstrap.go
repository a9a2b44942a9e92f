package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/hadup-labs/hadup/internal/probe"
)

// Bootstrapper installs a dependency through an external package manager.
// The only contract with the provisioner is: on success, the dependency
// becomes discoverable via normal command-path lookup.
type Bootstrapper interface {
	Install(ctx context.Context, pkg string) error
}

// packageManagers are tried in order; the first one on PATH wins.
var packageManagers = []struct {
	bin  string
	args func(pkg string) []string
}{
	{"apt-get", func(pkg string) []string { return []string{"install", "-y", pkg} }},
	{"dnf", func(pkg string) []string { return []string{"install", "-y", pkg} }},
	{"brew", func(pkg string) []string { return []string{"install", pkg} }},
	{"choco", func(pkg string) []string { return []string{"install", "-y", pkg} }},
}

// ExecBootstrapper shells out to the first available system package manager.
type ExecBootstrapper struct {
	Runner probe.Runner
}

func (b *ExecBootstrapper) Install(ctx context.Context, pkg string) error {
	for _, pm := range packageManagers {
		if _, err := b.Runner.LookPath(pm.bin); err != nil {
			continue
		}
		out, err := b.Runner.CombinedOutput(ctx, pm.bin, pm.args(pkg)...)
		if err != nil {
			return fmt.Errorf("bootstrapping %s via %s: %w (%s)", pkg, pm.bin, err, strings.TrimSpace(out))
		}
		return nil
	}
	return fmt.Errorf("bootstrapping %s: no supported package manager found on PATH", pkg)
}
