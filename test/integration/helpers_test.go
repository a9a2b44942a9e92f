//go:build integration

package integration_test

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hadup-labs/hadup/internal/envstore"
)

// testEnv holds the isolated directories one provisioning run operates on.
type testEnv struct {
	InstallRoot string // where artifacts are downloaded and unpacked
	MachineFile string // machine-scope env file
	UserFile    string // user-scope env file
	Store       *envstore.FileStore
}

// setupTestEnv creates isolated temp directories and an env store whose
// scope files live inside them. Env keys written during the test leak into
// the process environment via the store, so tests must use unique keys and
// register them with t.Setenv first for automatic restore.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	scopeDir := t.TempDir()
	env := &testEnv{
		InstallRoot: t.TempDir(),
		MachineFile: filepath.Join(scopeDir, "machine.sh"),
		UserFile:    filepath.Join(scopeDir, "user.sh"),
	}
	env.Store = envstore.NewFileStore(env.MachineFile, env.UserFile)
	return env
}

// artifactServer serves zip archives and counts requests per path.
type artifactServer struct {
	*httptest.Server
	hits map[string]*atomic.Int64
}

// newArtifactServer builds zip archives for the given top-level dirs and
// serves each at /<dir>.zip.
func newArtifactServer(t *testing.T, topDirs ...string) *artifactServer {
	t.Helper()

	archives := make(map[string][]byte)
	hits := make(map[string]*atomic.Int64)
	for _, dir := range topDirs {
		route := "/" + dir + ".zip"
		archives[route] = buildZip(t, dir)
		hits[route] = &atomic.Int64{}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		hits[r.URL.Path].Add(1)
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return &artifactServer{Server: srv, hits: hits}
}

// hitCount returns how many times the artifact for topDir was requested.
func (s *artifactServer) hitCount(topDir string) int64 {
	return s.hits["/"+topDir+".zip"].Load()
}

// buildZip returns a zip archive containing topDir/marker.txt and
// topDir/bin/launcher.
func buildZip(t *testing.T, topDir string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		topDir + "/marker.txt":   "installed\n",
		topDir + "/bin/launcher": "#!/bin/sh\n",
	}
	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// writeChainManifest writes a manifest file and returns its path.
func writeChainManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing chain manifest: %v", err)
	}
	return path
}

// assertScopeFileContains fails if the scope file does not contain substr.
func assertScopeFileContains(t *testing.T, path, substr string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading scope file %s: %v", path, err)
	}
	if !strings.Contains(string(data), substr) {
		t.Errorf("scope file %s does not contain %q.\nContents:\n%s", path, substr, string(data))
	}
}

// assertDirExists fails the test if the directory does not exist.
func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected directory to exist: %s (error: %v)", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory, but it is a file", path)
	}
}
