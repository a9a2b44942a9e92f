package provision

import (
	"fmt"

	"github.com/hadup-labs/hadup/internal/probe"
)

// IncompatibleError reports a pre-existing install whose detected version
// fails the minimum threshold. Fatal: the provisioner never replaces an
// operator-managed existing install, so the operator must upgrade manually.
type IncompatibleError struct {
	Dep      string
	Detected probe.Token
	Minimum  probe.Token
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf(
		"%s %s is already installed but below the minimum supported %s; upgrade it manually and re-run",
		e.Dep, e.Detected, e.Minimum,
	)
}

// InstallError wraps a failure with the dependency that owns it.
type InstallError struct {
	Dep string
	Err error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("installing %s: %v", e.Dep, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// ChainError wraps the first InstallError encountered and its ordinal
// position in the chain. Later dependencies are never attempted.
type ChainError struct {
	Pos int
	Dep string
	Err error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("provisioning stopped at step %d (%s): %v", e.Pos+1, e.Dep, e.Err)
}

func (e *ChainError) Unwrap() error { return e.Err }
