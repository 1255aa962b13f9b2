package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  dsn: "postgres://localhost:5432/mapper?sslmode=disable"
  debug: true
embed_llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "nomic-embed-text"
completion:
  key: "secret"
  timeout: 10s
  inter_call_delay: 2s
  retry:
    base_delay: 1s
    multiplier: 3
    max_attempts: 5
index:
  dir: "/tmp/vectors"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EmbedLLM.Model != "nomic-embed-text" {
		t.Errorf("embed model = %q", cfg.EmbedLLM.Model)
	}
	if cfg.Completion.Timeout.Std() != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Completion.Timeout.Std())
	}
	if cfg.Completion.Retry.MaxAttempts != 5 || cfg.Completion.Retry.Multiplier != 3 {
		t.Errorf("retry = %+v", cfg.Completion.Retry)
	}
	if cfg.Index.Dir != "/tmp/vectors" {
		t.Errorf("index dir = %q", cfg.Index.Dir)
	}
	// Unset fields fall back to defaults.
	if cfg.Completion.BaseURL == "" || cfg.Completion.Model == "" {
		t.Error("completion defaults not applied")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("embed_llm:\n  provider: ollama\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Completion.InterCallDelay.Std() != 4*time.Second {
		t.Errorf("inter-call delay default = %v", cfg.Completion.InterCallDelay.Std())
	}
	if cfg.Completion.Retry.BaseDelay.Std() != 5*time.Second || cfg.Completion.Retry.MaxAttempts != 3 {
		t.Errorf("retry defaults = %+v", cfg.Completion.Retry)
	}
	if cfg.Index.Dir != "./vector_db" {
		t.Errorf("index dir default = %q", cfg.Index.Dir)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("completion:\n  timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}
