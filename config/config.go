// Package config loads the LORE workspace manifest (lore.toml) through
// Viper, with LORE_-prefixed environment overrides and an upward
// directory search so commands work from anywhere inside a workspace.
package config

import "fmt"

// Config represents the workspace manifest
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Query     QueryConfig     `mapstructure:"query"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Log       LogConfig       `mapstructure:"log"`
}

// WorkspaceConfig locates the record files and declares the entity types
// the workspace knows about. Declared types exist on the graph even when
// no record of that type is present yet.
type WorkspaceConfig struct {
	Records string   `mapstructure:"records"` // records directory, relative to the manifest
	Types   []string `mapstructure:"types"`   // declared entity types
	Format  string   `mapstructure:"format"`  // manifest format version (semver)
}

// QueryConfig tunes query surfaces. Zero values mean no limit.
type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"` // applied when a query has no limit clause (0 = unlimited)
}

// WatchConfig tunes the workspace file watcher.
type WatchConfig struct {
	DebounceMs int `mapstructure:"debounce_ms"` // delay before a changed workspace is reloaded
}

// LogConfig selects the logger output encoding.
type LogConfig struct {
	JSON bool `mapstructure:"json"` // structured JSON instead of the console encoder
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Workspace: {Records: %s, Types: %d, Format: %s}}",
		c.Workspace.Records, len(c.Workspace.Types), c.Workspace.Format)
}
