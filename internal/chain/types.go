package chain

// Spec is the immutable descriptor of one dependency in the chain. One
// instance exists per dependency, created from built-in defaults or a chain
// manifest at process start, and never mutated afterwards.
type Spec struct {
	// Name identifies the dependency in diagnostics ("java", "hadoop").
	Name string `yaml:"name" json:"name"`

	// EnvKey is the persistent home-path variable registered after a
	// successful install (JAVA_HOME, HADOOP_HOME, ...). Reading code
	// outside the provisioner treats it as the canonical discovery
	// mechanism.
	EnvKey string `yaml:"env_key" json:"env_key"`

	// MinVersion is the minimum-supported version threshold in dotted
	// form ("1.8"). Empty means any present version is acceptable.
	MinVersion string `yaml:"min_version,omitempty" json:"min_version,omitempty"`

	// VersionCommand is the external version-query command and its
	// arguments ("javac -version"). Combined stdout+stderr is the probe
	// input.
	VersionCommand []string `yaml:"version_command,omitempty" json:"version_command,omitempty"`

	// DownloadURL points to the single immutable artifact for this
	// dependency at a fixed version. Empty for bootstrap-only entries.
	DownloadURL string `yaml:"download_url,omitempty" json:"download_url,omitempty"`

	// ArchiveKind is "tar" or "zip".
	ArchiveKind string `yaml:"archive_kind,omitempty" json:"archive_kind,omitempty"`

	// TopLevelDir is the archive's known top-level directory; joined with
	// InstallRoot it becomes the registered home path.
	TopLevelDir string `yaml:"top_level_dir,omitempty" json:"top_level_dir,omitempty"`

	// InstallRoot is where the artifact is downloaded and unpacked.
	InstallRoot string `yaml:"install_root,omitempty" json:"install_root,omitempty"`

	// Bootstrap names a system package to install through the external
	// package manager instead of fetching an archive. On success the
	// dependency becomes discoverable via normal command-path lookup.
	Bootstrap string `yaml:"bootstrap,omitempty" json:"bootstrap,omitempty"`
}

// Manifest is the on-disk chain definition.
type Manifest struct {
	Version int    `yaml:"version" json:"version"`
	Chain   []Spec `yaml:"chain" json:"chain"`
}
