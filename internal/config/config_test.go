package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
jwt:
  secret: short
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 1800, cfg.Session.TestBudgetSeconds)
	assert.Equal(t, 1800, cfg.Session.PracticeBudgetSeconds)
	assert.Equal(t, 5, cfg.Session.ActiveListLimit)
	assert.Equal(t, 10, cfg.Endless.BatchSize)
	assert.Equal(t, 30, cfg.Endless.RecentWindow)
	assert.Equal(t, "none", cfg.Storage.Type)
	assert.Equal(t, "assessment.db", cfg.Database.Path)
}

func TestLoadConfig_ReleaseRequiresStrongSecret(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: release
jwt:
  secret: too-short
`)

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
session:
  test_budget_seconds: 600
  practice_budget_seconds: 900
  active_list_limit: 3
jwt:
  secret: x
  expire_hours: 2
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 600, cfg.Session.TestBudgetSeconds)
	assert.Equal(t, 900, cfg.Session.PracticeBudgetSeconds)
	assert.Equal(t, 3, cfg.Session.ActiveListLimit)
	assert.Equal(t, "2h0m0s", cfg.JWT.ExpireTime.String())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Mode: "debug"},
			Database: DatabaseConfig{Driver: "sqlite"},
			Storage:  StorageConfig{Type: "none"},
			Session:  SessionConfig{TestBudgetSeconds: 10, PracticeBudgetSeconds: 10},
		}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.Database.Driver = "oracle"
	assert.Error(t, c.Validate())

	c = base()
	c.Storage.Type = "s3"
	assert.Error(t, c.Validate())

	c = base()
	c.Session.TestBudgetSeconds = 0
	assert.Error(t, c.Validate())
}
