package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "Ventas CLI", config.Name)
	assert.Equal(t, "1.0.0", config.Version)
	assert.Equal(t, "ventas", config.Compiler.Table)
	assert.Equal(t, 5, config.Compiler.DefaultLimit)
	assert.Equal(t, 200, config.Compiler.ListingCap)
	assert.Equal(t, 50, config.Compiler.FallbackCap)
	assert.Equal(t, []string{"data/ventas.csv", "data/ventas_demo.csv", "ventas.csv"}, config.Data.CSVCandidates)
	assert.Equal(t, "data/ventas.sqlite", config.Data.SQLitePath)
	assert.Equal(t, "memory", config.Cache.Backend)
	assert.NotNil(t, config.MCPServer)
	require.NoError(t, config.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing name",
			mutate:  func(c *Config) { c.Name = "" },
			wantErr: true,
			errMsg:  "application name is required",
		},
		{
			name:    "missing version",
			mutate:  func(c *Config) { c.Version = "" },
			wantErr: true,
			errMsg:  "application version is required",
		},
		{
			name:    "missing table",
			mutate:  func(c *Config) { c.Compiler.Table = "" },
			wantErr: true,
			errMsg:  "compiler table is required",
		},
		{
			name:    "non positive limit",
			mutate:  func(c *Config) { c.Compiler.DefaultLimit = 0 },
			wantErr: true,
			errMsg:  "default_limit must be positive",
		},
		{
			name:    "missing sqlite path",
			mutate:  func(c *Config) { c.Data.SQLitePath = "" },
			wantErr: true,
			errMsg:  "sqlite path is required",
		},
		{
			name:    "no csv candidates",
			mutate:  func(c *Config) { c.Data.CSVCandidates = nil },
			wantErr: true,
			errMsg:  "at least one csv candidate",
		},
		{
			name:    "redis without address",
			mutate:  func(c *Config) { c.Cache.Backend = "redis" },
			wantErr: true,
			errMsg:  "redis_addr is required",
		},
		{
			name:    "unknown cache backend",
			mutate:  func(c *Config) { c.Cache.Backend = "memcached" },
			wantErr: true,
			errMsg:  "unsupported cache backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
name: Tienda
version: 2.0.0
compiler:
  table: ventas
  default_limit: 10
data:
  sqlite_path: /tmp/ventas.sqlite
cache:
  backend: redis
  redis_addr: localhost:6379
  ttl: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "Tienda", config.Name)
	assert.Equal(t, 10, config.Compiler.DefaultLimit)
	assert.Equal(t, 200, config.Compiler.ListingCap, "unset fields keep defaults")
	assert.Equal(t, "/tmp/ventas.sqlite", config.Data.SQLitePath)
	assert.Equal(t, "redis", config.Cache.Backend)
	assert.Equal(t, 30*time.Second, config.Cache.TTL)
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Tienda","web":{"addr":":9090"}}`), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", config.Web.Addr)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	bad := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(bad, []byte("x = 1"), 0644))
	_, err = LoadConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file format")

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [unclosed"), 0644))
	_, err = LoadConfig(broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	original := DefaultConfig()
	original.Compiler.DefaultLimit = 8
	require.NoError(t, SaveConfig(original, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Compiler.DefaultLimit)
	assert.Equal(t, original.Data, loaded.Data)
}

func TestLoadOrDefault(t *testing.T) {
	t.Run("default path may be missing", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		config, err := LoadOrDefault(DefaultConfigPath)
		require.NoError(t, err)
		assert.Equal(t, "Ventas CLI", config.Name)
	})

	t.Run("explicit path must exist", func(t *testing.T) {
		_, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("VENTAS_DEFAULT_LIMIT", "12")
		t.Setenv("VENTAS_SQLITE_PATH", "/tmp/other.sqlite")
		t.Setenv("VENTAS_LOG_LEVEL", "debug")

		config, err := LoadOrDefault("")
		require.NoError(t, err)
		assert.Equal(t, 12, config.Compiler.DefaultLimit)
		assert.Equal(t, "/tmp/other.sqlite", config.Data.SQLitePath)
		assert.Equal(t, "debug", config.LogLevel)
	})
}

func TestMCPServerConfig_IsToolEnabled(t *testing.T) {
	var nilConfig *MCPServerConfig
	assert.True(t, nilConfig.IsToolEnabled("query_database"))

	config := &MCPServerConfig{DisabledTools: []string{"export_to_file"}}
	assert.True(t, config.IsToolEnabled("query_database"))
	assert.False(t, config.IsToolEnabled("export_to_file"))
}
