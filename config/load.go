package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/teranos/lore/errors"
)

// ManifestName is the workspace manifest file name.
const ManifestName = "lore.toml"

var globalConfig *Config
var globalManifestPath string

// Load reads the workspace configuration: defaults, then the nearest
// lore.toml found by walking up from the working directory, then LORE_
// environment variables. The result is cached for the process lifetime.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	manifest := FindManifest()
	if manifest == "" {
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrInvalidWorkspace, "no lore.toml found in this directory or any parent"),
			"run 'lore workspace init' to create one")
	}

	config, err := LoadFromFile(manifest)
	if err != nil {
		return nil, err
	}

	globalConfig = config
	globalManifestPath = manifest
	return globalConfig, nil
}

// LoadFromFile loads configuration from a specific manifest path,
// bypassing the upward search but keeping defaults and env binding.
func LoadFromFile(manifestPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(manifestPath)
	v.SetConfigType("toml")

	v.SetEnvPrefix("LORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest %s", manifestPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal manifest %s", manifestPath)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ManifestPath returns the path of the loaded manifest, or empty when
// Load has not succeeded yet.
func ManifestPath() string {
	return globalManifestPath
}

// WorkspaceRoot returns the directory containing the loaded manifest.
func WorkspaceRoot() string {
	if globalManifestPath == "" {
		return ""
	}
	return filepath.Dir(globalManifestPath)
}

// RecordsDir resolves the configured records directory against the
// workspace root.
func (c *Config) RecordsDir(root string) string {
	if filepath.IsAbs(c.Workspace.Records) {
		return c.Workspace.Records
	}
	return filepath.Join(root, c.Workspace.Records)
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	globalManifestPath = ""
}

// FindManifest searches for lore.toml by walking up the directory tree.
// Returns the path of the first manifest found, or empty string.
func FindManifest() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		manifest := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(manifest); err == nil {
			return manifest
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
