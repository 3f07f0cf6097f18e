// Package core contains the business logic for parabrain, including
// configuration loading, inbox processing, task indicator parsing,
// status commands, and system health checks.
package core

import (
	"fmt"
	"strings"

	"github.com/parabrain-dev/parabrain/pkg/models"
	"github.com/spf13/viper"
)

// ConfigurationManager defines the interface for loading and validating
// configuration from the .parabrainrc file.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading the YAML configuration file.
type viperConfigManager struct {
	// basePath is the root directory where .parabrainrc resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// defaultConfig returns a Config populated with sensible defaults.
func defaultConfig() *models.Config {
	return &models.Config{
		VaultPath:             "vault",
		CacheTTLHours:         6,
		Mode:                  models.ModeSingle,
		SOPPath:               "sop",
		ConfidenceThreshold:   0.6,
		PollIntervalSeconds:   120,
		FailureAlertThreshold: 3,
		Ollama: models.OllamaConfig{
			Host:                 "http://localhost:11434",
			Model:                "llama3.2",
			TimeoutSeconds:       30,
			HealthTimeoutSeconds: 5,
		},
	}
}

// LoadConfig reads the .parabrainrc file from the base path using Viper.
// If the file does not exist, sensible defaults are returned. Secrets
// (Slack tokens) may also come from environment variables, which take
// precedence over the file.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigName(".parabrainrc")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	// Set Viper defaults so missing keys fall back gracefully.
	v.SetDefault("vault_path", cfg.VaultPath)
	v.SetDefault("cache_ttl_hours", cfg.CacheTTLHours)
	v.SetDefault("classification_mode", string(cfg.Mode))
	v.SetDefault("sop_path", cfg.SOPPath)
	v.SetDefault("confidence_threshold", cfg.ConfidenceThreshold)
	v.SetDefault("poll_interval_seconds", cfg.PollIntervalSeconds)
	v.SetDefault("failure_alert_threshold", cfg.FailureAlertThreshold)
	v.SetDefault("ollama.host", cfg.Ollama.Host)
	v.SetDefault("ollama.model", cfg.Ollama.Model)
	v.SetDefault("ollama.timeout_seconds", cfg.Ollama.TimeoutSeconds)
	v.SetDefault("ollama.health_timeout_seconds", cfg.Ollama.HealthTimeoutSeconds)

	// Tokens come from the environment when not in the file.
	_ = v.BindEnv("slack.bot_token", "SLACK_BOT_TOKEN")
	_ = v.BindEnv("slack.channel_id", "SLACK_CHANNEL_ID")
	_ = v.BindEnv("slack.user_id", "SLACK_USER_ID")
	_ = v.BindEnv("slack.webhook_url", "SLACK_WEBHOOK_URL")
	_ = v.BindEnv("ollama.host", "OLLAMA_HOST")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading .parabrainrc: %w", err)
		}
		// No config file found, continue with defaults and env.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Per-step pipeline models fall back to the main model.
	if cfg.Ollama.DomainModel == "" {
		cfg.Ollama.DomainModel = cfg.Ollama.Model
	}
	if cfg.Ollama.GroupModel == "" {
		cfg.Ollama.GroupModel = cfg.Ollama.Model
	}
	if cfg.Ollama.FullModel == "" {
		cfg.Ollama.FullModel = cfg.Ollama.Model
	}

	return cfg, nil
}

// validModes is the set of allowed classification modes.
var validModes = map[models.ClassificationMode]bool{
	models.ModeSingle:   true,
	models.ModePipeline: true,
}

// ValidateConfig checks the provided configuration for invalid values and
// returns a clear error message identifying the problem.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.VaultPath == "" {
		errs = append(errs, "vault_path must not be empty")
	}

	if cfg.CacheTTLHours <= 0 {
		errs = append(errs, fmt.Sprintf("cache_ttl_hours must be positive, got %d", cfg.CacheTTLHours))
	}

	if !validModes[cfg.Mode] {
		errs = append(errs, fmt.Sprintf("mode %q is invalid, must be one of: single, pipeline", cfg.Mode))
	}

	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Sprintf("confidence_threshold %.2f is invalid, must be between 0 and 1", cfg.ConfidenceThreshold))
	}

	if cfg.PollIntervalSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("poll_interval_seconds must be positive, got %d", cfg.PollIntervalSeconds))
	}

	if cfg.FailureAlertThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("failure_alert_threshold must be positive, got %d", cfg.FailureAlertThreshold))
	}

	if cfg.Ollama.Host == "" {
		errs = append(errs, "ollama.host must not be empty")
	}

	if cfg.Ollama.Model == "" {
		errs = append(errs, "ollama.model must not be empty")
	}

	if cfg.Ollama.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Sprintf("ollama.timeout_seconds must be positive, got %d", cfg.Ollama.TimeoutSeconds))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
