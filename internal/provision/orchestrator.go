package provision

import (
	"context"
	"fmt"
	"io"

	"github.com/hadup-labs/hadup/internal/chain"
)

// Orchestrator drives the ordered provisioning chain. Dependencies are
// provisioned strictly sequentially (installer i+1 observes every
// environment write committed by installer i) and the chain short-circuits
// on the first fatal failure because later steps require the failed one's
// environment state.
type Orchestrator struct {
	Installer *Installer

	// Out receives per-step status lines; defaults to io.Discard.
	Out io.Writer
}

func (o *Orchestrator) out() io.Writer {
	if o.Out == nil {
		return io.Discard
	}
	return o.Out
}

// Run provisions each spec in order. On failure it returns a ChainError
// naming the failing dependency and its position; no later dependency is
// attempted.
func (o *Orchestrator) Run(ctx context.Context, specs []chain.Spec) error {
	for i, spec := range specs {
		fmt.Fprintf(o.out(), "[%d/%d] %s\n", i+1, len(specs), spec.Name)

		state, err := o.Installer.EnsureInstalled(ctx, spec)
		if err != nil {
			fmt.Fprintf(o.out(), "  ✗ %s\n", spec.Name)
			return &ChainError{Pos: i, Dep: spec.Name, Err: err}
		}

		fmt.Fprintf(o.out(), "  ✓ %s (%s)\n", spec.Name, state.Path)
	}
	return nil
}
