package agent

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the agent configuration file.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig groups the LLM, loop and security settings.
type AgentConfig struct {
	LLM      LLMConfig      `yaml:"llm"`
	Loop     LoopConfig     `yaml:"loop"`
	Security SecurityConfig `yaml:"security"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Region      string        `yaml:"region"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LoopConfig bounds the tool calling loop.
type LoopConfig struct {
	MaxIterations int `yaml:"max_iterations"`
}

// SecurityConfig controls SQL checks and auditing of tool calls.
type SecurityConfig struct {
	EnableAudit  bool   `yaml:"enable_audit"`
	AuditLogPath string `yaml:"audit_log_path"`
	MaxRows      int    `yaml:"max_rows"`
}

var supportedProviders = []string{"openai", "googleai", "ollama", "bedrock"}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	setDefaults(config)
	overrideWithEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	config := &Config{}
	setDefaults(config)
	return config
}

func setDefaults(config *Config) {
	ac := &config.Agent

	if ac.LLM.Provider == "" {
		ac.LLM.Provider = "bedrock"
	}
	if ac.LLM.Model == "" {
		ac.LLM.Model = defaultModel(ac.LLM.Provider)
	}
	if ac.LLM.Provider == "bedrock" && ac.LLM.Region == "" {
		ac.LLM.Region = "us-east-1"
	}
	if ac.LLM.Timeout == 0 {
		ac.LLM.Timeout = 60 * time.Second
	}

	if ac.Loop.MaxIterations == 0 {
		ac.Loop.MaxIterations = 5
	}

	if ac.Security.AuditLogPath == "" {
		ac.Security.AuditLogPath = "data/agent_audit.log"
	}
	if ac.Security.MaxRows == 0 {
		ac.Security.MaxRows = 100
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "googleai":
		return "gemini-1.5-flash"
	case "ollama":
		return "llama3.1"
	}
	return "amazon.nova-lite-v1:0"
}

func overrideWithEnv(config *Config) {
	ac := &config.Agent

	if provider := os.Getenv("VENTAS_LLM_PROVIDER"); provider != "" {
		ac.LLM.Provider = provider
	}
	if model := os.Getenv("VENTAS_LLM_MODEL"); model != "" {
		ac.LLM.Model = model
	}
	if apiKey := os.Getenv("VENTAS_LLM_API_KEY"); apiKey != "" {
		ac.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("VENTAS_LLM_BASE_URL"); baseURL != "" {
		ac.LLM.BaseURL = baseURL
	}
	if region := os.Getenv("VENTAS_LLM_REGION"); region != "" {
		ac.LLM.Region = region
	}
	if temp := os.Getenv("VENTAS_LLM_TEMPERATURE"); temp != "" {
		if t, err := strconv.ParseFloat(temp, 64); err == nil {
			ac.LLM.Temperature = t
		}
	}
	if audit := os.Getenv("VENTAS_LLM_AUDIT"); audit != "" {
		ac.Security.EnableAudit = strings.ToLower(audit) == "true"
	}
}

func validateConfig(config *Config) error {
	ac := &config.Agent

	if !contains(supportedProviders, ac.LLM.Provider) {
		return fmt.Errorf("unsupported LLM provider: %s, supported: %v", ac.LLM.Provider, supportedProviders)
	}
	if ac.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}
	if (ac.LLM.Provider == "openai" || ac.LLM.Provider == "googleai") && ac.LLM.APIKey == "" {
		return fmt.Errorf("API key is required for provider: %s", ac.LLM.Provider)
	}
	if ac.LLM.Temperature < 0 || ac.LLM.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if ac.Loop.MaxIterations <= 0 {
		return fmt.Errorf("loop max_iterations must be positive")
	}
	if ac.Security.MaxRows <= 0 {
		return fmt.Errorf("security max_rows must be positive")
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
