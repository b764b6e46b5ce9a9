// Package config loads crate's settings from the config file, CRATE_
// environment variables and bound command-line flags.
package config

// Default configuration values.
const (
	DefaultMatchMode      = "hybrid"
	DefaultDurationBucket = 2
	DefaultAction         = "report"
	DefaultKeepStrategy   = "best"
	DefaultOutput         = "plain"

	// DefaultMinSize includes every audio file.
	DefaultMinSize = "0"

	// DefaultWorkers of zero sizes the extraction pool from the host.
	DefaultWorkers = 0

	// DefaultRetentionDays is how long run history is kept.
	DefaultRetentionDays = 30

	// EnvPrefix prefixes environment overrides, e.g. CRATE_MATCH_MODE.
	EnvPrefix = "CRATE"
)

// DefaultExclusions are skipped in every scan.
var DefaultExclusions = []string{
	".AppleDouble",
	"._*",
	".Trash*",
}

// DefaultComponentLevels are the per-component log levels.
var DefaultComponentLevels = map[string]string{
	"scanner": "info",
	"resolve": "info",
	"cache":   "warn",
	"tags":    "warn",
}
