package cli

import (
	"github.com/parabrain-dev/parabrain/internal/classify"
	"github.com/parabrain-dev/parabrain/internal/core"
	"github.com/parabrain-dev/parabrain/internal/llm"
	"github.com/parabrain-dev/parabrain/internal/observability"
	"github.com/parabrain-dev/parabrain/internal/storage"
	"github.com/parabrain-dev/parabrain/internal/vault"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath   string
	Config     *models.Config
	Scanner    vault.Scanner
	Writer     vault.NoteWriter
	Classifier classify.Classifier
	LLMClient  *llm.Client
	State      storage.StateStore
	Inbox      core.InboxProcessor
	Health     core.HealthChecker
	Digest     core.DigestGenerator

	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
