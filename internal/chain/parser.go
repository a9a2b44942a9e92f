package chain

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Load reads a chain manifest, validates it against the embedded JSON
// schema, and returns the specs with fill-in defaults applied.
func Load(path, installRoot string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chain manifest %s: %w", path, err)
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating chain manifest %s: %w", path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("chain manifest %s: %s", path, result.Summary())
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing chain manifest %s: %w", path, err)
	}

	specs := m.Chain
	for i := range specs {
		if specs[i].InstallRoot == "" {
			specs[i].InstallRoot = installRoot
		}
		if specs[i].ArchiveKind == "" && specs[i].DownloadURL != "" {
			specs[i].ArchiveKind = "tar"
		}
	}
	return specs, nil
}
