package envstore

import (
	"fmt"
	"os"
	"sync"
)

// Store reads and writes persistent machine-level environment entries and
// exposes the read view to the current process.
//
// Write must be durable across process restarts: the provisioning chain may
// resume after a reboot triggered by an earlier step. Write is never called
// with an empty value: an indeterminate dependency location is represented
// by absence, not an empty entry.
type Store interface {
	// Read returns the value for key and whether it is set (and non-empty).
	Read(key string) (string, bool)

	// Write durably persists key=value at machine scope and makes it
	// visible to the current process immediately.
	Write(key, value string) error

	// RefreshProcessView re-derives the process's in-memory environment
	// from the persisted scopes. Must be called after any step that may
	// have mutated environment state out-of-band (e.g. a package-manager
	// bootstrap), because such steps register variables the process does
	// not yet see.
	RefreshProcessView() error
}

// MemStore is an in-memory Store for tests. Refreshes are counted so tests
// can assert the visibility contract without touching the real environment.
type MemStore struct {
	mu        sync.Mutex
	values    map[string]string
	Refreshes int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (m *MemStore) Read(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok && v != ""
}

func (m *MemStore) Write(key, value string) error {
	if value == "" {
		return fmt.Errorf("refusing to write empty value for %s", key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemStore) RefreshProcessView() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Refreshes++
	return nil
}

// Seed pre-populates an entry, bypassing the empty-value check, to model
// pre-existing machine state in tests.
func (m *MemStore) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

var _ Store = (*MemStore)(nil)
var _ Store = (*FileStore)(nil)

// ProcessEnv is a Store view backed directly by the process environment,
// used by read-only surfaces (doctor, env listing) that must observe
// variables however they were registered.
type ProcessEnv struct{}

func (ProcessEnv) Read(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func (ProcessEnv) Write(key, value string) error {
	if value == "" {
		return fmt.Errorf("refusing to write empty value for %s", key)
	}
	return os.Setenv(key, value)
}

func (ProcessEnv) RefreshProcessView() error { return nil }
