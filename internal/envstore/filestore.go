package envstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// FileStore persists machine-scoped environment entries to a profile-style
// env file sourced by login shells, and mirrors every write into the current
// process environment. A second, user-scoped file is read (never written) so
// RefreshProcessView sees entries registered out-of-band.
//
// On Unix the machine file lives at /etc/profile.d/<cli>.sh and holds
// `export KEY="VALUE"` lines; later provisioning stages and the stack itself
// discover dependency homes through it.
type FileStore struct {
	MachinePath string
	UserPath    string
}

// DefaultMachinePath returns the machine-scope env file path for this OS.
func DefaultMachinePath(cliName string) string {
	if runtime.GOOS == "windows" {
		pd := os.Getenv("PROGRAMDATA")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return filepath.Join(pd, cliName, "env.cmd")
	}
	return filepath.Join("/etc/profile.d", cliName+".sh")
}

// DefaultUserPath returns the user-scope env file path (~/.<cli>/env.sh).
func DefaultUserPath(homeDir string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", homeDir, "env.sh")
	}
	return filepath.Join(home, homeDir, "env.sh")
}

// NewFileStore returns a store over the given machine and user scope files.
// The user path may be empty if no user scope exists.
func NewFileStore(machinePath, userPath string) *FileStore {
	return &FileStore{MachinePath: machinePath, UserPath: userPath}
}

// Read returns the current process view of key. The process view is kept in
// sync by Write and RefreshProcessView, so this observes both entries this
// run registered and entries inherited from the parent environment.
func (s *FileStore) Read(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// Write persists key=value to the machine scope file and sets it in the
// current process immediately. The file is rewritten atomically
// (temp sibling + rename) so a crash never leaves a truncated scope file.
func (s *FileStore) Write(key, value string) error {
	if value == "" {
		return fmt.Errorf("refusing to write empty value for %s", key)
	}

	entries, err := parseScopeFile(s.MachinePath)
	if err != nil {
		return err
	}
	entries[key] = value

	if err := writeScopeFile(s.MachinePath, entries); err != nil {
		return err
	}
	return os.Setenv(key, value)
}

// RefreshProcessView re-reads the machine and user scope files and applies
// every entry to the process environment, user scope last. PATH is treated
// specially: persisted segments are concatenated onto the live PATH rather
// than replacing it, mirroring how login shells compose the two scopes.
func (s *FileStore) RefreshProcessView() error {
	for _, path := range []string{s.MachinePath, s.UserPath} {
		if path == "" {
			continue
		}
		entries, err := parseScopeFile(path)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.EqualFold(k, "PATH") {
				appendPath(entries[k])
				continue
			}
			if err := os.Setenv(k, entries[k]); err != nil {
				return fmt.Errorf("applying %s: %w", k, err)
			}
		}
	}
	return nil
}

// appendPath adds segments to the live PATH, skipping ones already present.
func appendPath(segments string) {
	current := os.Getenv("PATH")
	have := make(map[string]bool)
	for _, p := range filepath.SplitList(current) {
		have[p] = true
	}
	for _, p := range filepath.SplitList(segments) {
		if p == "" || have[p] {
			continue
		}
		current = current + string(os.PathListSeparator) + p
		have[p] = true
	}
	os.Setenv("PATH", current)
}

// parseScopeFile reads a scope file of `export KEY="VALUE"` (or bare
// KEY=VALUE) lines. A missing file is an empty scope, not an error.
func parseScopeFile(path string) (map[string]string, error) {
	entries := make(map[string]string)

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening scope file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if key != "" {
			entries[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading scope file %s: %w", path, err)
	}
	return entries, nil
}

// writeScopeFile rewrites the scope file with sorted entries via a temp
// sibling and rename.
func writeScopeFile(path string, entries map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating scope directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# Managed by hadup. Manual edits to managed keys are overwritten.\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "export %s=%q\n", k, entries[k])
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing scope file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing scope file: %w", err)
	}
	return nil
}
