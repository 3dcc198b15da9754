package decl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML hand-over format for external extractors.
type Manifest struct {
	Files []File `yaml:"files"`
}

// LoadManifest loads and parses a YAML declaration manifest.
func LoadManifest(path string) ([]File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	files, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	return files, nil
}

// ParseManifest parses YAML manifest data.
func ParseManifest(data []byte) ([]File, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}

	for i := range m.Files {
		if m.Files[i].Path == "" {
			return nil, fmt.Errorf("file #%d has no path", i+1)
		}

		applyFileDefaults(&m.Files[i])
	}

	return m.Files, nil
}

// applyFileDefaults propagates the file path and module into declarations
// and members that leave them empty.
func applyFileDefaults(f *File) {
	for i := range f.Declarations {
		d := &f.Declarations[i]
		if d.Module == "" {
			d.Module = f.Module
		}

		if d.Location.File == "" {
			d.Location.File = f.Path
		}

		for j := range d.Members {
			if d.Members[j].Location.File == "" {
				d.Members[j].Location.File = f.Path
			}
		}
	}
}

// MarshalManifest serializes files as a YAML manifest.
func MarshalManifest(files []File) ([]byte, error) {
	return yaml.Marshal(Manifest{Files: files})
}
