package config

import "github.com/spf13/viper"

// Format version written by 'lore workspace init' and accepted by this
// binary. Manifests declare theirs in [workspace] format.
const CurrentFormatVersion = "1.0.0"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Workspace defaults
	v.SetDefault("workspace.records", "records")
	v.SetDefault("workspace.format", CurrentFormatVersion)

	// Query defaults
	v.SetDefault("query.default_limit", 0) // unlimited

	// Watcher defaults
	v.SetDefault("watch.debounce_ms", 500)

	// Logging defaults
	v.SetDefault("log.json", false)
}
