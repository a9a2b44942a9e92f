package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

// IsElevated reports whether the process can write machine-scoped state.
// Machine-scope environment registration and /opt installs need it; the
// provision command refuses to start without it unless user scope is chosen.
func IsElevated() bool {
	if runtime.GOOS == "windows" {
		return canWriteDir(os.Getenv("PROGRAMDATA"))
	}
	return os.Geteuid() == 0
}

// canWriteDir probes writability by creating and removing a marker file.
// Windows has no euid; actual access checks are the only reliable signal.
func canWriteDir(dir string) bool {
	if dir == "" {
		return false
	}
	marker := filepath.Join(dir, ".hadup-elevation-probe")
	f, err := os.Create(marker)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(marker)
	return true
}
