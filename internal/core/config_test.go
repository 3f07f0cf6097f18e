package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	cfg, err := cm.LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.VaultPath != "vault" {
		t.Errorf("vault path = %q", cfg.VaultPath)
	}
	if cfg.CacheTTLHours != 6 {
		t.Errorf("cache ttl = %d", cfg.CacheTTLHours)
	}
	if cfg.Mode != models.ModeSingle {
		t.Errorf("mode = %q", cfg.Mode)
	}
	if cfg.ConfidenceThreshold != 0.6 {
		t.Errorf("threshold = %v", cfg.ConfidenceThreshold)
	}
	if cfg.PollIntervalSeconds != 120 {
		t.Errorf("poll interval = %d", cfg.PollIntervalSeconds)
	}
	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("ollama host = %q", cfg.Ollama.Host)
	}
	// Per-step models default to the main model.
	if cfg.Ollama.DomainModel != cfg.Ollama.Model || cfg.Ollama.FullModel != cfg.Ollama.Model {
		t.Errorf("step models = %q/%q/%q", cfg.Ollama.DomainModel, cfg.Ollama.GroupModel, cfg.Ollama.FullModel)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	rc := `
vault_path: /data/brain
classification_mode: pipeline
confidence_threshold: 0.75
ollama:
  model: mistral:7b
  domain_model: gemma:2b
`
	if err := os.WriteFile(filepath.Join(dir, ".parabrainrc"), []byte(rc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfigurationManager(dir).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.VaultPath != "/data/brain" {
		t.Errorf("vault path = %q", cfg.VaultPath)
	}
	if cfg.Mode != models.ModePipeline {
		t.Errorf("mode = %q", cfg.Mode)
	}
	if cfg.ConfidenceThreshold != 0.75 {
		t.Errorf("threshold = %v", cfg.ConfidenceThreshold)
	}
	if cfg.Ollama.Model != "mistral:7b" {
		t.Errorf("model = %q", cfg.Ollama.Model)
	}
	if cfg.Ollama.DomainModel != "gemma:2b" {
		t.Errorf("domain model override lost, got %q", cfg.Ollama.DomainModel)
	}
	if cfg.Ollama.GroupModel != "mistral:7b" {
		t.Errorf("unset step model should fall back to the main model, got %q", cfg.Ollama.GroupModel)
	}
	// Unset keys keep their defaults.
	if cfg.CacheTTLHours != 6 {
		t.Errorf("cache ttl = %d", cfg.CacheTTLHours)
	}
}

func TestLoadConfig_TokensFromEnvironment(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-from-env")
	t.Setenv("SLACK_CHANNEL_ID", "C999")

	cfg, err := NewConfigurationManager(t.TempDir()).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Slack.BotToken != "xoxb-from-env" {
		t.Errorf("bot token = %q", cfg.Slack.BotToken)
	}
	if cfg.Slack.ChannelID != "C999" {
		t.Errorf("channel id = %q", cfg.Slack.ChannelID)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".parabrainrc"), []byte("vault_path: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfigurationManager(dir).LoadConfig(); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestValidateConfig(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())

	if err := cm.ValidateConfig(defaultConfig()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if err := cm.ValidateConfig(nil); err == nil {
		t.Fatal("nil config must not validate")
	}

	tests := []struct {
		name    string
		mutate  func(*models.Config)
		wantMsg string
	}{
		{"empty vault path", func(c *models.Config) { c.VaultPath = "" }, "vault_path"},
		{"zero ttl", func(c *models.Config) { c.CacheTTLHours = 0 }, "cache_ttl_hours"},
		{"bad mode", func(c *models.Config) { c.Mode = "turbo" }, "mode"},
		{"threshold above one", func(c *models.Config) { c.ConfidenceThreshold = 1.5 }, "confidence_threshold"},
		{"negative threshold", func(c *models.Config) { c.ConfidenceThreshold = -0.1 }, "confidence_threshold"},
		{"zero poll interval", func(c *models.Config) { c.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"empty ollama host", func(c *models.Config) { c.Ollama.Host = "" }, "ollama.host"},
		{"empty model", func(c *models.Config) { c.Ollama.Model = "" }, "ollama.model"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cm.ValidateConfig(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q missing %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidateConfig_CollectsAllProblems(t *testing.T) {
	cfg := defaultConfig()
	cfg.VaultPath = ""
	cfg.Mode = "turbo"
	cfg.ConfidenceThreshold = 2

	err := NewConfigurationManager(t.TempDir()).ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"vault_path", "mode", "confidence_threshold"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should report %q:\n%v", want, err)
		}
	}
}
