package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFirstDefaults(t *testing.T) {
	cfg, err := LoadFirst(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".gamedeck"), cfg.DataDir)
	assert.Equal(t, filepath.Join(home, ".gamedeck", "gamelist.db"), cfg.Database)
	assert.Equal(t, filepath.Join(home, ".gamedeck", "es_systems.cfg"), cfg.SystemsConfig)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Serve.Bind)
	assert.Error(t, cfg.ValidateS3())
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.json")
	content := `{
  "data_dir": "` + dir + `",
  "ignore_gamelist": true,
  "mame_dat": "/dats/mame.xml",
  "log": {"level": "debug"},
  "s3": {"host": "s3.local", "bucket": "gamelists", "force_path_style": true}
}`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadFirst("", p, "/etc/never.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gamelist.db"), cfg.Database)
	assert.True(t, cfg.IgnoreGamelist)
	assert.False(t, cfg.ParseGamelistOnly)
	assert.Equal(t, "/dats/mame.xml", cfg.MameDat)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.S3.ForcePathStyle)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.NoError(t, cfg.ValidateS3())
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"log": {"level": "loud"}}`), 0o644))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "Level")

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{`), 0o644))
	_, err = LoadFirst(broken)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GAMEDECK_DATABASE", filepath.Join(dir, "override.db"))
	t.Setenv("GAMEDECK_IGNORE_GAMELIST", "true")
	t.Setenv("GAMEDECK_SERVE_BIND", ":9999")
	t.Setenv("GAMEDECK_S3_BUCKET", "backups")
	t.Setenv("GAMEDECK_LOG_FILE", filepath.Join(dir, "gamedeck.log"))

	cfg, err := LoadFirst(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "override.db"), cfg.Database)
	assert.True(t, cfg.IgnoreGamelist)
	assert.Equal(t, ":9999", cfg.Serve.Bind)
	assert.Equal(t, "backups", cfg.S3.Bucket)
	assert.Equal(t, filepath.Join(dir, "gamedeck.log"), cfg.Log.File)
}

func TestSettingKeys(t *testing.T) {
	keys := settingKeys(reflect.TypeOf(Config{}), "")
	for _, want := range []string{"data_dir", "parse_gamelist_only", "fbneo_dat", "log.max_keep_days", "serve.bind", "s3.session_token", "s3.force_path_style"} {
		assert.Contains(t, keys, want)
	}
}
