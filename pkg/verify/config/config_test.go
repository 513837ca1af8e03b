package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Point XDG_CONFIG_HOME at an empty dir so no real config file leaks
	// into the test.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIBase, cfg.APIBase)
	assert.Equal(t, DefaultRevision, cfg.Revision)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, DefaultOutputFormat, cfg.Output)
	assert.Equal(t, DefaultCriticalSuffixes, cfg.Critical.Suffixes)
	assert.Equal(t, DefaultCriticalNames, cfg.Critical.Names)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, DefaultRetentionDays, cfg.History.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "modelverify")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := `
repository: Qwen/Qwen3-235B-A22B
revision: v1.0.0
local_dir: /data/models/qwen3
workers: 4
output: json
critical:
  suffixes: [".safetensors"]
  names: ["config.json"]
cache:
  enabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Qwen/Qwen3-235B-A22B", cfg.Repository)
	assert.Equal(t, "v1.0.0", cfg.Revision)
	assert.Equal(t, "/data/models/qwen3", cfg.LocalDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, []string{".safetensors"}, cfg.Critical.Suffixes)
	assert.Equal(t, []string{"config.json"}, cfg.Critical.Names)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MODELVERIFY_REVISION", "main")
	t.Setenv("MODELVERIFY_OUTPUT", "plain")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Revision)
	assert.Equal(t, "plain", cfg.Output)
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "modelverify")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(":\n  bad yaml ["), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tilde", "~/models", filepath.Join(home, "models")},
		{"bare tilde", "~", home},
		{"absolute", "/data/models", "/data/models"},
		{"relative", "models", "models"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	assert.Equal(t, "modelverify", filepath.Base(dir))
	assert.True(t, filepath.IsAbs(dir))
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	assert.Equal(t, DefaultAPIBase, v.GetString("api_base"))
	assert.Equal(t, DefaultRevision, v.GetString("revision"))
	assert.False(t, v.GetBool("cache.enabled"))
	assert.NotEmpty(t, v.GetString("cache.path"))
	assert.NotEmpty(t, v.GetString("history.path"))
}
