package probe

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner is the external command boundary: PATH lookups and version-query
// command execution. Tests substitute a fake; production code uses ExecRunner.
type Runner interface {
	// LookPath resolves a command name on the current process PATH.
	LookPath(name string) (string, error)

	// CombinedOutput runs a command and returns its combined stdout+stderr.
	// Version banners routinely go to stderr (javac does), so the streams
	// are never separated here.
	CombinedOutput(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (ExecRunner) CombinedOutput(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

// DetectVersion runs a version-query command and extracts its version token.
// Some version flags exit non-zero after printing the banner, so a command
// error is ignored as long as there is output to probe.
func DetectVersion(ctx context.Context, r Runner, name string, args ...string) (Token, error) {
	out, err := r.CombinedOutput(ctx, name, args...)
	if err != nil && out == "" {
		return nil, fmt.Errorf("running %s: %w", name, err)
	}
	tok, err := ExtractVersion(out)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", name, err)
	}
	return tok, nil
}
