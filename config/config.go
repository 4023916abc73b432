// Package config loads conference declarations from YAML files.
//
// Values may reference environment variables as ${VAR}, ${VAR:-default} or
// $VAR; they are expanded before parsing. LoadEnvFiles reads .env.local and
// .env first so credentials can live next to the configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/roundtable/logging"
)

// Config is the root of a conference file.
type Config struct {
	Name               string        `yaml:"name"`
	Model              ModelConfig   `yaml:"model"`
	StepBudget         int           `yaml:"step_budget"`
	MaxConcurrentRuns  int           `yaml:"max_concurrent_runs"`
	MaxHistoryMessages int           `yaml:"max_history_messages"`
	Stream             bool          `yaml:"stream"`
	Preamble           string        `yaml:"preamble"`
	Tools              []string      `yaml:"tools"`
	Agents             []AgentConfig `yaml:"agents"`
	Logging            LoggingConfig `yaml:"logging"`
	Metrics            MetricsConfig `yaml:"metrics"`
}

// ModelConfig selects and configures a language model provider.
type ModelConfig struct {
	Provider    string   `yaml:"provider"` // openai | anthropic | gemini | ollama | scripted
	Name        string   `yaml:"name"`
	APIKey      string   `yaml:"api_key"`
	BaseURL     string   `yaml:"base_url"` // OpenAI compatible gateways, or the Ollama host
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	Replies     []string `yaml:"replies"` // scripted provider only
}

// IsZero reports whether no provider is configured.
func (m ModelConfig) IsZero() bool { return m.Provider == "" }

// AgentConfig declares one agent.
type AgentConfig struct {
	Name          string       `yaml:"name"`
	Nickname      string       `yaml:"nickname"`
	SystemMessage string       `yaml:"system_message"`
	Next          string       `yaml:"next"`
	Entry         bool         `yaml:"entry"`
	Tools         *[]string    `yaml:"tools"` // nil = all conference tools
	Model         *ModelConfig `yaml:"model"`
}

// LoggingConfig mirrors logging.LoggerConfig.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `yaml:"listen"` // e.g. ":9090"; empty disables
	Path   string `yaml:"path"`
}

// Load reads, expands and parses a conference file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands environment references in data and decodes it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate reports structural problems that do not need a model to detect.
// Graph level rules (entry points, next agents) are checked again by Build.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Agents) == 0 {
		errs = append(errs, errors.New("no agents declared"))
	}
	if err := c.Model.validate(); err != nil && !c.Model.IsZero() {
		errs = append(errs, fmt.Errorf("model: %w", err))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.Logging.Format))
	}

	seen := map[string]bool{}
	entries := 0
	for i, a := range c.Agents {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: name is required", i))
			continue
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate name %q", i, a.Name))
		}
		seen[a.Name] = true
		if a.Entry {
			entries++
		}
		if a.Next == "" {
			errs = append(errs, fmt.Errorf("agent %s: next is required", a.Name))
		}
		switch {
		case a.Model != nil:
			if err := a.Model.validate(); err != nil {
				errs = append(errs, fmt.Errorf("agent %s: model: %w", a.Name, err))
			}
		case c.Model.IsZero():
			errs = append(errs, fmt.Errorf("agent %s: no model and no default model", a.Name))
		}
	}
	if len(c.Agents) > 0 && entries != 1 {
		errs = append(errs, fmt.Errorf("exactly one entry agent required, got %d", entries))
	}

	return errors.Join(errs...)
}

func (m ModelConfig) validate() error {
	switch m.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama, ProviderScripted:
		return nil
	case "":
		return errors.New("provider is required")
	default:
		return fmt.Errorf("unknown provider %q", m.Provider)
	}
}

// LoggerConfig converts the logging block.
func (c *Config) LoggerConfig() (*logging.LoggerConfig, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = level
	cfg.Format = c.Logging.Format
	cfg.AddSource = c.Logging.AddSource
	return cfg, nil
}
