package provision

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hadup-labs/hadup/internal/chain"
	"github.com/hadup-labs/hadup/internal/envstore"
	"github.com/hadup-labs/hadup/internal/fetch"
	"github.com/hadup-labs/hadup/internal/probe"
)

// fakeRunner fakes PATH lookups and version-command output.
type fakeRunner struct {
	paths  map[string]string
	output string
	outErr error
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", errors.New("executable not found")
}

func (f *fakeRunner) CombinedOutput(_ context.Context, _ string, _ ...string) (string, error) {
	return f.output, f.outErr
}

// fakeBootstrapper records installs and optionally makes a command visible
// on the fake PATH afterwards, like a real package manager would.
type fakeBootstrapper struct {
	installed []string
	err       error
	runner    *fakeRunner
	register  map[string]string
}

func (f *fakeBootstrapper) Install(_ context.Context, pkg string) error {
	if f.err != nil {
		return f.err
	}
	f.installed = append(f.installed, pkg)
	for name, path := range f.register {
		f.runner.paths[name] = path
	}
	return nil
}

func newInstaller(env envstore.Store, runner *fakeRunner, boot Bootstrapper, client *http.Client) *Installer {
	return &Installer{
		Env:       env,
		Fetcher:   fetch.New(fetch.WithHTTPClient(client), fetch.WithPollInterval(time.Millisecond)),
		Runner:    runner,
		Bootstrap: boot,
	}
}

func javaSpec() chain.Spec {
	return chain.Spec{
		Name:           "java",
		EnvKey:         "JAVA_HOME",
		MinVersion:     "1.8",
		VersionCommand: []string{"javac", "-version"},
		Bootstrap:      "temurin-8-jdk",
	}
}

func TestEnsureInstalled_AlreadyPresentCompatible(t *testing.T) {
	env := envstore.NewMemStore()
	env.Seed("JAVA_HOME", "/usr/lib/jvm/temurin-8")
	runner := &fakeRunner{output: "javac 1.8.0_112"}

	ins := newInstaller(env, runner, &fakeBootstrapper{}, http.DefaultClient)
	state, err := ins.EnsureInstalled(context.Background(), javaSpec())
	if err != nil {
		t.Fatalf("EnsureInstalled failed: %v", err)
	}

	if !state.Present || state.Path != "/usr/lib/jvm/temurin-8" {
		t.Errorf("state = %+v", state)
	}
	if state.Version.String() != "1.8.0" {
		t.Errorf("detected version = %s", state.Version)
	}
}

func TestEnsureInstalled_AlreadyPresentIncompatible(t *testing.T) {
	env := envstore.NewMemStore()
	env.Seed("JAVA_HOME", "/usr/lib/jvm/jdk-1.7")
	runner := &fakeRunner{output: "javac 1.7.0_80"}

	boot := &fakeBootstrapper{}
	ins := newInstaller(env, runner, boot, http.DefaultClient)
	_, err := ins.EnsureInstalled(context.Background(), javaSpec())

	var incompat *IncompatibleError
	if !errors.As(err, &incompat) {
		t.Fatalf("error = %v, want *IncompatibleError", err)
	}

	// The diagnosis must name both versions so the operator can act
	// without reading logs.
	msg := err.Error()
	if !strings.Contains(msg, "1.7.0") || !strings.Contains(msg, "1.8") {
		t.Errorf("message missing versions: %q", msg)
	}

	// Never auto-upgrade an operator-managed install.
	if len(boot.installed) != 0 {
		t.Errorf("bootstrap attempted for incompatible existing install")
	}
}

func TestEnsureInstalled_VersionUnresolvedIsFatal(t *testing.T) {
	env := envstore.NewMemStore()
	env.Seed("JAVA_HOME", "/usr/lib/jvm/unknown")
	runner := &fakeRunner{output: "garbled output with no digits"}

	ins := newInstaller(env, runner, &fakeBootstrapper{}, http.DefaultClient)
	_, err := ins.EnsureInstalled(context.Background(), javaSpec())

	if !errors.Is(err, probe.ErrVersionUnresolved) {
		t.Fatalf("error = %v, want ErrVersionUnresolved", err)
	}
	var ie *InstallError
	if !errors.As(err, &ie) || ie.Dep != "java" {
		t.Errorf("error should wrap the owning dependency: %v", err)
	}
}

func TestEnsureInstalled_BootstrapsAbsentRuntime(t *testing.T) {
	env := envstore.NewMemStore()
	runner := &fakeRunner{paths: map[string]string{}, output: "javac 1.8.0_112"}
	boot := &fakeBootstrapper{
		runner:   runner,
		register: map[string]string{"javac": "/usr/lib/jvm/temurin-8/bin/javac"},
	}

	ins := newInstaller(env, runner, boot, http.DefaultClient)
	state, err := ins.EnsureInstalled(context.Background(), javaSpec())
	if err != nil {
		t.Fatalf("EnsureInstalled failed: %v", err)
	}

	if len(boot.installed) != 1 || boot.installed[0] != "temurin-8-jdk" {
		t.Errorf("bootstrap installs = %v", boot.installed)
	}

	// Home is the directory above bin/.
	if state.Path != "/usr/lib/jvm/temurin-8" {
		t.Errorf("resolved home = %q", state.Path)
	}
	if home, ok := env.Read("JAVA_HOME"); !ok || home != "/usr/lib/jvm/temurin-8" {
		t.Errorf("JAVA_HOME not registered: %q, %v", home, ok)
	}
	if env.Refreshes < 2 {
		t.Errorf("process view refreshed %d times, want at least 2 (post-bootstrap and post-registration)", env.Refreshes)
	}
}

func TestEnsureInstalled_PresentOnPathSkipsBootstrap(t *testing.T) {
	env := envstore.NewMemStore()
	runner := &fakeRunner{
		paths:  map[string]string{"javac": "/usr/lib/jvm/temurin-11/bin/javac"},
		output: "javac 11.0.2",
	}
	boot := &fakeBootstrapper{runner: runner}

	ins := newInstaller(env, runner, boot, http.DefaultClient)
	state, err := ins.EnsureInstalled(context.Background(), javaSpec())
	if err != nil {
		t.Fatalf("EnsureInstalled failed: %v", err)
	}

	if len(boot.installed) != 0 {
		t.Errorf("bootstrap ran for a dependency already on PATH")
	}
	if state.Path != "/usr/lib/jvm/temurin-11" {
		t.Errorf("resolved home = %q", state.Path)
	}
}

// serveZip returns a server and hit counter serving a zip archive whose
// single top-level directory is topDir.
func serveZip(t *testing.T, topDir string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(topDir + "/marker.txt")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("ok"))
	zw.Close()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(buf.Bytes())
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestEnsureInstalled_FetchExtractRegister(t *testing.T) {
	server, _ := serveZip(t, "hadoop-3.3.6")
	installRoot := t.TempDir()

	spec := chain.Spec{
		Name:        "hadoop",
		EnvKey:      "HADOOP_HOME",
		DownloadURL: server.URL + "/hadoop-3.3.6.zip",
		ArchiveKind: "zip",
		TopLevelDir: "hadoop-3.3.6",
		InstallRoot: installRoot,
	}

	env := envstore.NewMemStore()
	ins := newInstaller(env, &fakeRunner{}, &fakeBootstrapper{}, server.Client())

	state, err := ins.EnsureInstalled(context.Background(), spec)
	if err != nil {
		t.Fatalf("EnsureInstalled failed: %v", err)
	}

	want := filepath.Join(installRoot, "hadoop-3.3.6")
	if state.Path != want {
		t.Errorf("resolved path = %q, want %q", state.Path, want)
	}

	// Registration visibility: the registered path is readable through the
	// store and exists on the filesystem.
	home, ok := env.Read("HADOOP_HOME")
	if !ok || home != want {
		t.Errorf("HADOOP_HOME = %q, %v", home, ok)
	}
	if _, err := os.Stat(filepath.Join(home, "marker.txt")); err != nil {
		t.Errorf("registered path missing extracted content: %v", err)
	}
	if env.Refreshes == 0 {
		t.Error("process view never refreshed after registration")
	}
}

func TestEnsureInstalled_SkipsFetchWhenResolvedPathExists(t *testing.T) {
	server, hits := serveZip(t, "hadoop-3.3.6")
	installRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(installRoot, "hadoop-3.3.6"), 0755); err != nil {
		t.Fatal(err)
	}

	spec := chain.Spec{
		Name:        "hadoop",
		EnvKey:      "HADOOP_HOME",
		DownloadURL: server.URL + "/hadoop-3.3.6.zip",
		ArchiveKind: "zip",
		TopLevelDir: "hadoop-3.3.6",
		InstallRoot: installRoot,
	}

	env := envstore.NewMemStore()
	ins := newInstaller(env, &fakeRunner{}, &fakeBootstrapper{}, server.Client())

	if _, err := ins.EnsureInstalled(context.Background(), spec); err != nil {
		t.Fatalf("EnsureInstalled failed: %v", err)
	}

	if got := hits.Load(); got != 0 {
		t.Errorf("server hit %d times for an already-unpacked install", got)
	}
	if home, ok := env.Read("HADOOP_HOME"); !ok || home == "" {
		t.Error("existing unpacked install was not registered")
	}
}

func TestEnsureInstalled_FetchFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mirror outage", http.StatusBadGateway)
	}))
	defer server.Close()

	spec := chain.Spec{
		Name:        "hadoop",
		EnvKey:      "HADOOP_HOME",
		DownloadURL: server.URL + "/hadoop-3.3.6.tar.gz",
		ArchiveKind: "tar",
		TopLevelDir: "hadoop-3.3.6",
		InstallRoot: t.TempDir(),
	}

	env := envstore.NewMemStore()
	ins := newInstaller(env, &fakeRunner{}, &fakeBootstrapper{}, server.Client())

	_, err := ins.EnsureInstalled(context.Background(), spec)

	var fe *fetch.Error
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want wrapped *fetch.Error", err)
	}
	if _, ok := env.Read("HADOOP_HOME"); ok {
		t.Error("failed install must not register an environment entry")
	}
}
