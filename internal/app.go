// Package internal provides the App struct that wires all components of the
// parabrain system together and initializes the CLI layer.
package internal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/parabrain-dev/parabrain/internal/classify"
	"github.com/parabrain-dev/parabrain/internal/cli"
	"github.com/parabrain-dev/parabrain/internal/core"
	"github.com/parabrain-dev/parabrain/internal/integration"
	"github.com/parabrain-dev/parabrain/internal/llm"
	"github.com/parabrain-dev/parabrain/internal/observability"
	"github.com/parabrain-dev/parabrain/internal/storage"
	"github.com/parabrain-dev/parabrain/internal/vault"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

// App holds all service dependencies for the parabrain system.
type App struct {
	BasePath string
	Config   *models.Config

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Vault layer
	Scanner vault.Scanner
	Writer  vault.NoteWriter

	// Classification
	LLMClient  *llm.Client
	Prompts    *classify.PromptBuilder
	Classifier classify.Classifier

	// State
	State storage.StateStore

	// Channel integration
	Slack integration.ChannelClient

	// Core services
	Inbox  core.InboxProcessor
	Status core.StatusHandler
	Fixer  core.FixHandler
	Health core.HealthChecker
	Digest core.DigestGenerator

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of the parabrain system.
// basePath is the root directory where configuration and state live
// (typically the directory containing .parabrainrc).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	vaultPath := cfg.VaultPath
	if !filepath.IsAbs(vaultPath) {
		vaultPath = filepath.Join(basePath, vaultPath)
	}
	stateDir := filepath.Join(basePath, ".state")

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".parabrain_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}
	if app.EventLog != nil {
		thresholds := observability.DefaultAlertThresholds()
		if cfg.FailureAlertThreshold > 0 {
			thresholds.MaxFailuresPerDay = cfg.FailureAlertThreshold
		}
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, thresholds)
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Slack.WebhookURL)
	}

	// --- Vault layer ---
	cachePath := filepath.Join(stateDir, "vault_structure.json")
	app.Scanner = vault.NewScanner(vaultPath, cachePath, cfg.CacheTTLHours, app.EventLog)
	app.Writer = vault.NewNoteWriter(vaultPath)

	// --- Classification ---
	app.LLMClient = llm.NewClient(cfg.Ollama)

	sopPath := cfg.SOPPath
	if sopPath != "" && !filepath.IsAbs(sopPath) {
		sopPath = filepath.Join(basePath, sopPath)
	}
	app.Prompts = classify.NewPromptBuilder(classify.LoadSOP(sopPath))

	app.Classifier = classify.New(app.LLMClient, app.Scanner, app.Prompts, cfg.Mode, classify.StepModels{
		Domain: cfg.Ollama.DomainModel,
		Group:  cfg.Ollama.GroupModel,
		Full:   cfg.Ollama.FullModel,
	})

	// --- State ---
	app.State = storage.NewStateStore(stateDir)

	// --- Channel integration ---
	if cfg.Slack.BotToken != "" {
		app.Slack = integration.NewSlackClient(cfg.Slack)
	}

	// --- Core services ---
	app.Status = core.NewStatusHandler(app.State, app.Writer, app.Slack)
	app.Fixer = core.NewFixHandler(app.State, app.Writer, app.Scanner, app.Slack)
	app.Health = core.NewHealthChecker(app.LLMClient, app.State)
	app.Digest = core.NewDigestGenerator(vaultPath, app.Slack)
	if app.Slack != nil {
		app.Inbox = core.NewInboxProcessor(app.Slack, app.Classifier, app.Writer, app.State, app.Status, app.Fixer, app.EventLog, core.InboxConfig{
			ConfidenceThreshold:   cfg.ConfidenceThreshold,
			PollInterval:          time.Duration(cfg.PollIntervalSeconds) * time.Second,
			FailureAlertThreshold: cfg.FailureAlertThreshold,
		})
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Scanner = app.Scanner
	cli.Writer = app.Writer
	cli.Classifier = app.Classifier
	cli.LLMClient = app.LLMClient
	cli.State = app.State
	cli.Inbox = app.Inbox
	cli.Health = app.Health
	cli.Digest = app.Digest
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the parabrain data directory.
// It checks the PARABRAIN_HOME env var, then walks up from the current
// directory looking for a .parabrainrc file.
func ResolveBasePath() string {
	if home := os.Getenv("PARABRAIN_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".parabrainrc")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	// Fall back to cwd.
	cwd, _ := os.Getwd()
	return cwd
}
