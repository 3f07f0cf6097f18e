package models

// ClassificationMode selects the classification strategy.
type ClassificationMode string

const (
	// ModeSingle issues one completion call covering all axes.
	ModeSingle ClassificationMode = "single"
	// ModePipeline resolves domain, then category group, then
	// subcategory+label in three dependent completion calls.
	ModePipeline ClassificationMode = "pipeline"
)

// OllamaConfig holds local model server settings.
type OllamaConfig struct {
	Host                 string `yaml:"host" mapstructure:"host"`
	Model                string `yaml:"model" mapstructure:"model"`
	TimeoutSeconds       int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	HealthTimeoutSeconds int    `yaml:"health_timeout_seconds" mapstructure:"health_timeout_seconds"`

	// Optional per-step model overrides for pipeline mode.
	DomainModel string `yaml:"domain_model,omitempty" mapstructure:"domain_model"`
	GroupModel  string `yaml:"group_model,omitempty" mapstructure:"group_model"`
	FullModel   string `yaml:"full_model,omitempty" mapstructure:"full_model"`
}

// SlackConfig holds capture channel settings.
type SlackConfig struct {
	BotToken   string `yaml:"bot_token,omitempty" mapstructure:"bot_token"`
	ChannelID  string `yaml:"channel_id,omitempty" mapstructure:"channel_id"`
	UserID     string `yaml:"user_id,omitempty" mapstructure:"user_id"`
	WebhookURL string `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
}

// Config holds system-wide settings read from .parabrainrc via Viper.
type Config struct {
	VaultPath             string             `yaml:"vault_path" mapstructure:"vault_path"`
	CacheTTLHours         int                `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	Mode                  ClassificationMode `yaml:"classification_mode" mapstructure:"classification_mode"`
	SOPPath               string             `yaml:"sop_path,omitempty" mapstructure:"sop_path"`
	ConfidenceThreshold   float64            `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	PollIntervalSeconds   int                `yaml:"poll_interval_seconds" mapstructure:"poll_interval_seconds"`
	FailureAlertThreshold int                `yaml:"failure_alert_threshold" mapstructure:"failure_alert_threshold"`
	Ollama                OllamaConfig       `yaml:"ollama" mapstructure:"ollama"`
	Slack                 SlackConfig        `yaml:"slack" mapstructure:"slack"`
}
