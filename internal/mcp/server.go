// Package mcp provides an MCP (Model Context Protocol) server that exposes
// parabrain functionality as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/parabrain-dev/parabrain/internal/classify"
	"github.com/parabrain-dev/parabrain/internal/core"
	"github.com/parabrain-dev/parabrain/internal/observability"
	"github.com/parabrain-dev/parabrain/internal/vault"
)

// Server wraps parabrain services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	classifier  classify.Classifier
	scanner     vault.Scanner
	writer      vault.NoteWriter
	health      core.HealthChecker
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
}

// NewServer creates a new MCP server with the given service dependencies.
// health, metricsCalc, and alertEngine may be nil if disabled.
func NewServer(
	classifier classify.Classifier,
	scanner vault.Scanner,
	writer vault.NoteWriter,
	health core.HealthChecker,
	metricsCalc observability.MetricsCalculator,
	alertEngine observability.AlertEngine,
	version string,
) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		classifier:  classifier,
		scanner:     scanner,
		writer:      writer,
		health:      health,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "parabrain", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on the given transport, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type classifyTextInput struct {
	Text string `json:"text" jsonschema:"required,the captured text to classify"`
}

type classificationOutput struct {
	Domain        string  `json:"domain"`
	CategoryGroup string  `json:"para_type"`
	Subcategory   string  `json:"subject"`
	CategoryLabel string  `json:"category"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
	VaultPath     string  `json:"vault_path"`
}

type fileNoteInput struct {
	Text           string         `json:"text" jsonschema:"required,the captured text to file as a note"`
	Classification map[string]any `json:"classification" jsonschema:"required,classification payload with domain, para_type, subject, category, confidence"`
}

type fileNoteOutput struct {
	Path string `json:"path"`
}

type getVocabularyInput struct {
	ForceRefresh bool `json:"force_refresh,omitempty" jsonschema:"rescan the vault instead of serving the cache"`
}

type vocabularyOutput struct {
	Domains        []string `json:"domains"`
	CategoryGroups []string `json:"para_types"`
	Subcategories  []string `json:"subjects"`
}

type rescanVaultInput struct{}

type rescanVaultOutput struct {
	Domains int    `json:"domains"`
	Message string `json:"message"`
}

type healthCheckInput struct{}

type healthCheckOutput struct {
	Healthy     bool     `json:"healthy"`
	Issues      []string `json:"issues,omitempty"`
	LastSuccess string   `json:"last_success,omitempty"`
	FailedToday int      `json:"failed_today"`
	ModelReady  bool     `json:"model_ready"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	MessagesProcessed int            `json:"messages_processed"`
	MessagesFailed    int            `json:"messages_failed"`
	NotesCreated      int            `json:"notes_created"`
	LowConfidence     int            `json:"low_confidence"`
	NotesByDomain     map[string]int `json:"notes_by_domain"`
	NotesByLabel      map[string]int `json:"notes_by_label"`
	LLMTimeouts       int            `json:"llm_timeouts"`
	AverageConfidence float64        `json:"average_confidence"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "classify_text",
		Description: "Classify captured text into the vault taxonomy. Returns domain, PARA group, subject, category label, and confidence.",
	}, s.handleClassifyText)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "file_note",
		Description: "Write a note into the vault using an explicit classification payload. Invalid payloads are rejected with a field-level error.",
	}, s.handleFileNote)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_vocabulary",
		Description: "Get the vault vocabulary: known domains, PARA groups, and subject folders.",
	}, s.handleGetVocabulary)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "rescan_vault",
		Description: "Force a fresh vault scan and refresh the structure cache.",
	}, s.handleRescanVault)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "health_check",
		Description: "Check pipeline health: model server reachability, last run recency, and failure counts.",
	}, s.handleHealthCheck)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log, including processed messages, filed notes, and confidence.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (daily failures, stale runs, model timeouts).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleClassifyText(ctx context.Context, _ *gomcp.CallToolRequest, input classifyTextInput) (*gomcp.CallToolResult, classificationOutput, error) {
	if input.Text == "" {
		return errorResult("text is required"), classificationOutput{}, nil
	}

	result, err := s.classifier.Classify(ctx, input.Text)
	if err != nil {
		return errorResult(fmt.Sprintf("classifying text: %s", err)), classificationOutput{}, nil
	}

	out := classificationOutput{
		Domain:        result.Domain,
		CategoryGroup: string(result.CategoryGroup),
		Subcategory:   result.Subcategory,
		CategoryLabel: string(result.CategoryLabel),
		Confidence:    result.Confidence,
		Reasoning:     result.Reasoning,
		VaultPath:     result.VaultPath(),
	}
	return nil, out, nil
}

func (s *Server) handleFileNote(_ context.Context, _ *gomcp.CallToolRequest, input fileNoteInput) (*gomcp.CallToolResult, fileNoteOutput, error) {
	if input.Text == "" {
		return errorResult("text is required"), fileNoteOutput{}, nil
	}

	structure, err := s.scanner.GetStructure(false)
	if err != nil {
		return errorResult(fmt.Sprintf("loading vault structure: %s", err)), fileNoteOutput{}, nil
	}

	result, err := classify.ValidatePayload(input.Classification, structure)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid classification: %s", err)), fileNoteOutput{}, nil
	}

	path, err := s.writer.CreateNote(result, input.Text, nil, time.Now())
	if err != nil {
		return errorResult(fmt.Sprintf("creating note: %s", err)), fileNoteOutput{}, nil
	}

	return nil, fileNoteOutput{Path: path}, nil
}

func (s *Server) handleGetVocabulary(_ context.Context, _ *gomcp.CallToolRequest, input getVocabularyInput) (*gomcp.CallToolResult, vocabularyOutput, error) {
	structure, err := s.scanner.GetStructure(input.ForceRefresh)
	if err != nil {
		return errorResult(fmt.Sprintf("loading vault structure: %s", err)), vocabularyOutput{}, nil
	}

	vocab := structure.Flatten()
	out := vocabularyOutput{
		Domains:        vocab.Domains,
		CategoryGroups: vocab.CategoryGroups,
		Subcategories:  vocab.Subcategories,
	}
	return nil, out, nil
}

func (s *Server) handleRescanVault(_ context.Context, _ *gomcp.CallToolRequest, _ rescanVaultInput) (*gomcp.CallToolResult, rescanVaultOutput, error) {
	structure, err := s.scanner.Rescan()
	if err != nil {
		return errorResult(fmt.Sprintf("rescanning vault: %s", err)), rescanVaultOutput{}, nil
	}

	out := rescanVaultOutput{
		Domains: len(structure),
		Message: fmt.Sprintf("vault rescanned, %d domains indexed", len(structure)),
	}
	return nil, out, nil
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *gomcp.CallToolRequest, _ healthCheckInput) (*gomcp.CallToolResult, healthCheckOutput, error) {
	if s.health == nil {
		return errorResult("health checker not available"), healthCheckOutput{}, nil
	}

	report, err := s.health.Check(ctx, 0)
	if err != nil {
		return errorResult(fmt.Sprintf("checking health: %s", err)), healthCheckOutput{}, nil
	}

	out := healthCheckOutput{
		Healthy:     report.Healthy,
		Issues:      report.Issues,
		FailedToday: report.FailedToday,
		ModelReady:  report.ModelStatus.Ready,
	}
	if !report.LastSuccess.IsZero() {
		out.LastSuccess = report.LastSuccess.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		MessagesProcessed: metrics.MessagesProcessed,
		MessagesFailed:    metrics.MessagesFailed,
		NotesCreated:      metrics.NotesCreated,
		LowConfidence:     metrics.LowConfidence,
		NotesByDomain:     metrics.NotesByDomain,
		NotesByLabel:      metrics.NotesByLabel,
		LLMTimeouts:       metrics.LLMTimeouts,
		AverageConfidence: metrics.AverageConfidence,
		EventCount:        metrics.EventCount,
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}

	return nil, out, nil
}

// --- Helpers ---

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		NotesByDomain: make(map[string]int),
		NotesByLabel:  make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
