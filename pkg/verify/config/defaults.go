// Package config provides configuration management for modelverify.
package config

// Default configuration values.
const (
	// DefaultAPIBase is the ModelScope API endpoint.
	DefaultAPIBase = "https://modelscope.cn"

	// DefaultRevision is the manifest revision to verify against.
	DefaultRevision = "master"

	// DefaultRetentionDays is how long history records are kept.
	DefaultRetentionDays = 30

	// DefaultOutputFormat is the report formatter used when none is
	// requested.
	DefaultOutputFormat = "pretty"
)

// DefaultCriticalSuffixes are file suffixes whose local absence blocks
// the overall-valid verdict.
var DefaultCriticalSuffixes = []string{".safetensors", ".index.json"}

// DefaultCriticalNames are exact filenames whose local absence blocks
// the overall-valid verdict.
var DefaultCriticalNames = []string{"config.json", "tokenizer.json"}
