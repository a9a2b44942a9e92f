package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/hadup-labs/hadup/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Well-known configuration keys.
const (
	KeyMirror      = "mirror"       // download host for stack artifacts
	KeyInstallRoot = "install_root" // directory dependencies are unpacked into
	KeyChainFile   = "chain_file"   // optional chain manifest override
)

// DefaultMirror is the download host used when no mirror is configured.
const DefaultMirror = "https://archive.apache.org/dist"

// Dir returns the path to the Hadup config directory (~/.hadup/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.hadup/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Mirror returns the configured download host, falling back to the default.
func Mirror() string {
	if m := Get(KeyMirror); m != "" {
		return m
	}
	return DefaultMirror
}

// InstallRoot returns the configured install root, falling back to the
// platform default (/opt/hadup, or %PROGRAMDATA%\hadup on Windows).
func InstallRoot() string {
	if r := Get(KeyInstallRoot); r != "" {
		return r
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("PROGRAMDATA"); pd != "" {
			return filepath.Join(pd, "hadup")
		}
		return `C:\hadup`
	}
	return "/opt/hadup"
}
