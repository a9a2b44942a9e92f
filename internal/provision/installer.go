package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/hadup-labs/hadup/internal/archive"
	"github.com/hadup-labs/hadup/internal/chain"
	"github.com/hadup-labs/hadup/internal/envstore"
	"github.com/hadup-labs/hadup/internal/fetch"
	"github.com/hadup-labs/hadup/internal/probe"
)

// State is the derived installation state of one dependency. It is computed
// fresh on every run from the environment store and command path, consumed,
// and discarded, never persisted by the provisioner itself.
type State struct {
	Present bool
	Path    string
	Version probe.Token
}

// Installer provisions a single dependency end to end.
type Installer struct {
	Env       envstore.Store
	Fetcher   *fetch.Fetcher
	Runner    probe.Runner
	Bootstrap Bootstrapper

	// Out receives status and progress lines; defaults to io.Discard.
	Out io.Writer
}

func (ins *Installer) out() io.Writer {
	if ins.Out == nil {
		return io.Discard
	}
	return ins.Out
}

// EnsureInstalled checks whether spec is already installed at a compatible
// version and installs it if absent. A pre-existing incompatible install is
// fatal and never auto-upgraded. Fetch and extract failures are fatal to
// this dependency; the idempotent design makes a full re-run the retry
// mechanism.
func (ins *Installer) EnsureInstalled(ctx context.Context, spec chain.Spec) (State, error) {
	// Presence via registered environment state.
	if home, ok := ins.Env.Read(spec.EnvKey); ok {
		state, err := ins.confirmExisting(ctx, spec, home)
		if err != nil {
			return State{}, &InstallError{Dep: spec.Name, Err: err}
		}
		fmt.Fprintf(ins.out(), "  %s already installed at %s\n", spec.Name, state.Path)
		return state, nil
	}

	var (
		state State
		err   error
	)
	if spec.Bootstrap != "" {
		state, err = ins.ensureBootstrapped(ctx, spec)
	} else {
		state, err = ins.ensureArtifact(ctx, spec)
	}
	if err != nil {
		return State{}, &InstallError{Dep: spec.Name, Err: err}
	}
	return state, nil
}

// confirmExisting validates a presence-confirmed dependency against its
// minimum version. Dependencies without a version command are compatible by
// presence alone.
func (ins *Installer) confirmExisting(ctx context.Context, spec chain.Spec, home string) (State, error) {
	if len(spec.VersionCommand) == 0 {
		return State{Present: true, Path: home}, nil
	}

	detected, err := probe.DetectVersion(ctx, ins.Runner, spec.VersionCommand[0], spec.VersionCommand[1:]...)
	if err != nil {
		return State{}, err
	}
	if err := checkMinimum(spec, detected); err != nil {
		return State{}, err
	}
	return State{Present: true, Path: home, Version: detected}, nil
}

func checkMinimum(spec chain.Spec, detected probe.Token) error {
	if spec.MinVersion == "" {
		return nil
	}
	minimum, err := probe.ParseToken(spec.MinVersion)
	if err != nil {
		return fmt.Errorf("parsing minimum version %q: %w", spec.MinVersion, err)
	}
	if !probe.AtLeast(detected, minimum) {
		return &IncompatibleError{Dep: spec.Name, Detected: detected, Minimum: minimum}
	}
	return nil
}

// ensureBootstrapped provisions a dependency through the package manager.
// If the version command already resolves on PATH the dependency is present
// but unregistered; it is validated and registered without bootstrapping.
func (ins *Installer) ensureBootstrapped(ctx context.Context, spec chain.Spec) (State, error) {
	cmdName := spec.Bootstrap
	if len(spec.VersionCommand) > 0 {
		cmdName = spec.VersionCommand[0]
	}

	if _, err := ins.Runner.LookPath(cmdName); err != nil {
		fmt.Fprintf(ins.out(), "  %s not found, installing %s via package manager\n", spec.Name, spec.Bootstrap)
		if err := ins.Bootstrap.Install(ctx, spec.Bootstrap); err != nil {
			return State{}, err
		}
		// The bootstrap registers variables and PATH entries this process
		// does not yet see.
		if err := ins.Env.RefreshProcessView(); err != nil {
			return State{}, err
		}
	}

	binPath, err := ins.Runner.LookPath(cmdName)
	if err != nil {
		return State{}, fmt.Errorf("%s still not on PATH after bootstrap: %w", cmdName, err)
	}

	var detected probe.Token
	if len(spec.VersionCommand) > 0 {
		detected, err = probe.DetectVersion(ctx, ins.Runner, spec.VersionCommand[0], spec.VersionCommand[1:]...)
		if err != nil {
			return State{}, err
		}
		if err := checkMinimum(spec, detected); err != nil {
			return State{}, err
		}
	}

	// The home is the directory above bin/ (…/jdk/bin/javac → …/jdk).
	home := filepath.Dir(filepath.Dir(binPath))
	if err := ins.register(spec, home); err != nil {
		return State{}, err
	}
	return State{Present: true, Path: home, Version: detected}, nil
}

// ensureArtifact provisions a dependency by fetching and unpacking its
// archive. An already-present resolved install path skips both steps, so a
// re-run after a crash resumes where the previous run committed.
func (ins *Installer) ensureArtifact(ctx context.Context, spec chain.Spec) (State, error) {
	resolved := filepath.Join(spec.InstallRoot, spec.TopLevelDir)

	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		dest, err := ins.artifactDest(spec)
		if err != nil {
			return State{}, err
		}

		fmt.Fprintf(ins.out(), "  fetching %s\n", spec.DownloadURL)
		if err := ins.Fetcher.Fetch(ctx, spec.DownloadURL, dest, ins.progressPrinter(spec.Name)); err != nil {
			return State{}, err
		}

		fmt.Fprintf(ins.out(), "  unpacking %s\n", filepath.Base(dest))
		job := archive.Job{ArchivePath: dest, TargetDir: spec.InstallRoot, Kind: archive.Kind(spec.ArchiveKind)}
		if err := archive.Extract(ctx, job); err != nil {
			if !errors.Is(err, archive.ErrSourceMissing) {
				return State{}, err
			}
			// Manual cleanup between runs; nothing to unpack.
			fmt.Fprintf(ins.out(), "  %s: archive removed out-of-band, skipping extraction\n", spec.Name)
		}
	}

	if err := ins.register(spec, resolved); err != nil {
		return State{}, err
	}
	return State{Present: true, Path: resolved}, nil
}

// artifactDest derives the deterministic download destination under the
// install root from the artifact URL.
func (ins *Installer) artifactDest(spec chain.Spec) (string, error) {
	u, err := url.Parse(spec.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("parsing download URL %q: %w", spec.DownloadURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("download URL %q has no file name", spec.DownloadURL)
	}
	return filepath.Join(spec.InstallRoot, name), nil
}

// register writes the resolved home path into persistent environment state
// and refreshes the process view so later chain entries observe it.
func (ins *Installer) register(spec chain.Spec, home string) error {
	if err := ins.Env.Write(spec.EnvKey, home); err != nil {
		return fmt.Errorf("registering %s: %w", spec.EnvKey, err)
	}
	if err := ins.Env.RefreshProcessView(); err != nil {
		return fmt.Errorf("refreshing environment after registering %s: %w", spec.EnvKey, err)
	}
	fmt.Fprintf(ins.out(), "  registered %s=%s\n", spec.EnvKey, home)
	return nil
}

// progressPrinter renders in-flight transfer progress, printing each percent
// value once, the way a human watches a download tick up.
func (ins *Installer) progressPrinter(dep string) fetch.ProgressFunc {
	lastPercent := -1
	return func(p fetch.Progress) {
		if p.Percent < 0 || p.Percent == lastPercent {
			return
		}
		lastPercent = p.Percent
		fmt.Fprintf(ins.out(), "\r  downloading %s... %d%%", dep, p.Percent)
		if p.Percent == 100 {
			fmt.Fprintln(ins.out())
		}
	}
}
