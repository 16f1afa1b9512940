// Package workspace manages the velo.json workspace manifest: which
// binaries a build produces and where the workspace root is.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const ConfigFileName = "velo.json"

// Config represents the workspace manifest.
type Config struct {
	Version   string            `json:"version"`
	Workspace WorkspaceMetadata `json:"workspace"`
	Binaries  []Binary          `json:"binaries"`
}

// WorkspaceMetadata contains workspace-level metadata.
type WorkspaceMetadata struct {
	Name string `json:"name"`
}

// Binary is one produced binary. Name is the logical, published name; Bin
// is the on-disk cargo target name when it differs (the logical name is
// then published as a symlink to the canonical file).
type Binary struct {
	Name string `json:"name"`
	Bin  string `json:"bin,omitempty"`
}

// DiskName returns the name cargo writes to disk.
func (b Binary) DiskName() string {
	if b.Bin != "" {
		return b.Bin
	}
	return b.Name
}

// NewConfig creates a manifest with defaults.
func NewConfig(name string) *Config {
	return &Config{
		Version:   "1",
		Workspace: WorkspaceMetadata{Name: name},
	}
}

// LoadConfig loads the manifest from dir.
func LoadConfig(dir string) (*Config, error) {
	return LoadConfigFrom(filepath.Join(dir, ConfigFileName))
}

// LoadConfigFrom loads the manifest from the specified file.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Save writes the manifest into dir.
func (c *Config) Save(dir string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindRoot walks up from dir looking for a velo.json or a Cargo.toml and
// returns the first directory that carries one.
func FindRoot(dir string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "Cargo.toml")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("not inside a workspace (no %s or Cargo.toml found)", ConfigFileName)
}
