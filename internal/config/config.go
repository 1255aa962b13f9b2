package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration unmarshals YAML strings like "30s" or "4s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	EmbedLLM   LLMConfig        `yaml:"embed_llm"`
	Completion CompletionConfig `yaml:"completion"`
	Index      IndexConfig      `yaml:"index"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// LLMConfig selects the embedding collaborator. Provider is "ollama" or
// "openai"; BaseURL and Model are passed through to the client.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// CompletionConfig configures the external completion service used for
// match refinement. An empty Key disables refinement and the orchestrator
// falls back to retrieval-only results.
type CompletionConfig struct {
	Key            string      `yaml:"key"`
	BaseURL        string      `yaml:"base_url"`
	Model          string      `yaml:"model"`
	Timeout        Duration    `yaml:"timeout"`
	InterCallDelay Duration    `yaml:"inter_call_delay"`
	Retry          RetryConfig `yaml:"retry"`
}

// RetryConfig is the backoff policy for transient completion-service
// failures: BaseDelay doubling per attempt up to MaxAttempts.
type RetryConfig struct {
	BaseDelay   Duration `yaml:"base_delay"`
	Multiplier  float64  `yaml:"multiplier"`
	MaxAttempts int      `yaml:"max_attempts"`
}

type IndexConfig struct {
	Dir string `yaml:"dir"`
}

const (
	defaultCompletionBase = "https://api.groq.com/openai/v1"
	defaultModel          = "llama-3.3-70b-versatile"
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Completion.BaseURL == "" {
		c.Completion.BaseURL = defaultCompletionBase
	}
	if c.Completion.Model == "" {
		c.Completion.Model = defaultModel
	}
	if c.Completion.Timeout == 0 {
		c.Completion.Timeout = Duration(30 * time.Second)
	}
	if c.Completion.InterCallDelay == 0 {
		c.Completion.InterCallDelay = Duration(4 * time.Second)
	}
	if c.Completion.Retry.BaseDelay == 0 {
		c.Completion.Retry.BaseDelay = Duration(5 * time.Second)
	}
	if c.Completion.Retry.Multiplier == 0 {
		c.Completion.Retry.Multiplier = 2
	}
	if c.Completion.Retry.MaxAttempts == 0 {
		c.Completion.Retry.MaxAttempts = 3
	}
	if c.Index.Dir == "" {
		c.Index.Dir = "./vector_db"
	}
}
