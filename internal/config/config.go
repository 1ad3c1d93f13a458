package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

// Config holds the complete application configuration
type Config struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	Compiler CompilerConfig `yaml:"compiler" json:"compiler"`
	Data     DataConfig     `yaml:"data" json:"data"`
	Web      WebConfig      `yaml:"web" json:"web"`
	Cache    CacheConfig    `yaml:"cache" json:"cache"`

	MCPServer *MCPServerConfig `yaml:"mcp_server,omitempty" json:"mcp_server,omitempty"`

	// AgentConfig points at the LLM agent YAML; empty disables the agent.
	AgentConfig string `yaml:"agent_config,omitempty" json:"agent_config,omitempty"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`
}

// CompilerConfig holds the question compiler settings
type CompilerConfig struct {
	Table        string `yaml:"table" json:"table"`
	DefaultLimit int    `yaml:"default_limit" json:"default_limit"`
	ListingCap   int    `yaml:"listing_cap" json:"listing_cap"`
	FallbackCap  int    `yaml:"fallback_cap" json:"fallback_cap"`
	EmptyCap     int    `yaml:"empty_cap" json:"empty_cap"`
}

// DataConfig holds dataset and output locations
type DataConfig struct {
	CSVCandidates []string `yaml:"csv_candidates" json:"csv_candidates"`
	SQLitePath    string   `yaml:"sqlite_path" json:"sqlite_path"`
	OutputDir     string   `yaml:"output_dir" json:"output_dir"`
}

// WebConfig holds the HTTP server settings
type WebConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// CacheConfig holds the query result cache settings
type CacheConfig struct {
	Backend   string        `yaml:"backend" json:"backend"`
	Size      int           `yaml:"size" json:"size"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	RedisDB   int           `yaml:"redis_db,omitempty" json:"redis_db,omitempty"`
}

// MCPServerConfig holds MCP server configuration
type MCPServerConfig struct {
	Name          string   `yaml:"name" json:"name"`
	DisabledTools []string `yaml:"disabled_tools,omitempty" json:"disabled_tools,omitempty"`
}

// IsToolEnabled reports whether the named tool should be registered
func (m *MCPServerConfig) IsToolEnabled(name string) bool {
	if m == nil {
		return true
	}
	for _, disabled := range m.DisabledTools {
		if disabled == name {
			return false
		}
	}
	return true
}

// ErrConfigNotFound is returned by LoadConfig for a missing file
var ErrConfigNotFound = errors.New("config file not found")

// DefaultConfigPath is where the CLI looks when --config is not given
const DefaultConfigPath = "~/.ventas-cli/config.yaml"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:    "Ventas CLI",
		Version: "1.0.0",
		Compiler: CompilerConfig{
			Table:        "ventas",
			DefaultLimit: 5,
			ListingCap:   200,
			FallbackCap:  50,
			EmptyCap:     20,
		},
		Data: DataConfig{
			CSVCandidates: []string{"data/ventas.csv", "data/ventas_demo.csv", "ventas.csv"},
			SQLitePath:    "data/ventas.sqlite",
			OutputDir:     "data",
		},
		Web: WebConfig{
			Addr: ":8080",
		},
		Cache: CacheConfig{
			Backend: "memory",
			Size:    128,
			TTL:     5 * time.Minute,
		},
		MCPServer: &MCPServerConfig{
			Name: "Ventas MCP Server",
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// LoadConfig loads configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	path, err := homedir.Expand(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}

	return config, nil
}

// LoadOrDefault loads configPath when it exists and falls back to defaults
// otherwise. Environment overrides are applied and the result validated.
func LoadOrDefault(configPath string) (*Config, error) {
	config := DefaultConfig()
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		switch {
		case err == nil:
			config = loaded
		case errors.Is(err, ErrConfigNotFound) && configPath == DefaultConfigPath:
		default:
			return nil, err
		}
	}

	config.ApplyEnv()
	if err := config.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config *Config, configPath string) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	switch filepath.Ext(configPath) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML config: %w", err)
		}
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", filepath.Ext(configPath))
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from VENTAS_* environment variables
func (c *Config) ApplyEnv() {
	if v := os.Getenv("VENTAS_TABLE"); v != "" {
		c.Compiler.Table = v
	}
	if v := os.Getenv("VENTAS_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Compiler.DefaultLimit = n
		}
	}
	if v := os.Getenv("VENTAS_CSV"); v != "" {
		c.Data.CSVCandidates = strings.Split(v, string(os.PathListSeparator))
	}
	if v := os.Getenv("VENTAS_SQLITE_PATH"); v != "" {
		c.Data.SQLitePath = v
	}
	if v := os.Getenv("VENTAS_OUTPUT_DIR"); v != "" {
		c.Data.OutputDir = v
	}
	if v := os.Getenv("VENTAS_WEB_ADDR"); v != "" {
		c.Web.Addr = v
	}
	if v := os.Getenv("VENTAS_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("VENTAS_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
	}
	if v := os.Getenv("VENTAS_AGENT_CONFIG"); v != "" {
		c.AgentConfig = v
	}
	if v := os.Getenv("VENTAS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("VENTAS_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

// ExpandPaths resolves a leading ~ in every path setting
func (c *Config) ExpandPaths() error {
	paths := []*string{&c.Data.SQLitePath, &c.Data.OutputDir, &c.AgentConfig}
	for i := range c.Data.CSVCandidates {
		paths = append(paths, &c.Data.CSVCandidates[i])
	}
	for _, p := range paths {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name is required")
	}

	if c.Version == "" {
		return fmt.Errorf("application version is required")
	}

	if c.Compiler.Table == "" {
		return fmt.Errorf("compiler table is required")
	}
	if c.Compiler.DefaultLimit <= 0 {
		return fmt.Errorf("compiler default_limit must be positive")
	}

	if c.Data.SQLitePath == "" {
		return fmt.Errorf("sqlite path is required")
	}
	if len(c.Data.CSVCandidates) == 0 {
		return fmt.Errorf("at least one csv candidate is required")
	}

	switch c.Cache.Backend {
	case "", "none", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}

	return nil
}
