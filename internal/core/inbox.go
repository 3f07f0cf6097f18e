package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parabrain-dev/parabrain/internal/classify"
	"github.com/parabrain-dev/parabrain/internal/integration"
	"github.com/parabrain-dev/parabrain/internal/llm"
	"github.com/parabrain-dev/parabrain/internal/observability"
	"github.com/parabrain-dev/parabrain/internal/storage"
	"github.com/parabrain-dev/parabrain/internal/vault"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

// skipPrefixes are message prefixes handled by other flows, not the
// classification pipeline.
var skipPrefixes = []string{"fix:", "done:", "progress:", "blocked:", "backlog:"}

// RunSummary reports the outcome of one processing cycle.
type RunSummary struct {
	Fetched   int
	Processed int
	Failed    int
	Skipped   int
}

// InboxProcessor fetches captured messages, classifies them, and files
// notes into the vault.
type InboxProcessor interface {
	// ProcessAll runs one processing cycle over all new messages.
	ProcessAll(ctx context.Context) (*RunSummary, error)
	// Run polls continuously until the context is cancelled.
	Run(ctx context.Context) error
}

// InboxConfig carries the tunables for inbox processing.
type InboxConfig struct {
	ConfidenceThreshold   float64
	PollInterval          time.Duration
	FailureAlertThreshold int
}

type inboxProcessor struct {
	slack      integration.ChannelClient
	classifier classify.Classifier
	writer     vault.NoteWriter
	state      storage.StateStore
	handler    StatusHandler
	fixer      FixHandler
	events     observability.EventLog
	cfg        InboxConfig
	now        func() time.Time
}

// NewInboxProcessor creates an InboxProcessor with all dependencies
// injected. events, handler, and fixer may be nil.
func NewInboxProcessor(
	slack integration.ChannelClient,
	classifier classify.Classifier,
	writer vault.NoteWriter,
	state storage.StateStore,
	handler StatusHandler,
	fixer FixHandler,
	events observability.EventLog,
	cfg InboxConfig,
) InboxProcessor {
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.6
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Minute
	}
	if cfg.FailureAlertThreshold == 0 {
		cfg.FailureAlertThreshold = 3
	}
	return &inboxProcessor{
		slack:      slack,
		classifier: classifier,
		writer:     writer,
		state:      state,
		handler:    handler,
		fixer:      fixer,
		events:     events,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ProcessAll fetches messages newer than the last processed timestamp and
// handles them oldest first. Per-message failures land in the dead letter
// log; the cycle itself only fails on fetch errors.
func (p *inboxProcessor) ProcessAll(ctx context.Context) (*RunSummary, error) {
	messages, err := p.slack.FetchMessages(ctx, p.state.LastTS(), 0)
	if err != nil {
		_ = p.state.RecordFailedRun(err.Error())
		p.logEvent("ERROR", "inbox.fetch_failed", "fetching messages failed", map[string]any{"error": err.Error()})
		p.alertCritical(ctx, err)
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	summary := &RunSummary{Fetched: len(messages)}

	if len(messages) == 0 {
		_ = p.state.RecordSuccessfulRun()
		p.logEvent("INFO", "inbox.run_completed", "no new messages", nil)
		return summary, nil
	}

	// Slack returns newest first; process oldest first.
	for i := len(messages) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		switch p.processMessage(ctx, messages[i]) {
		case outcomeProcessed:
			summary.Processed++
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
		}
	}

	_, _ = p.state.CleanupProcessed()

	if summary.Failed == 0 {
		_ = p.state.RecordSuccessfulRun()
	} else {
		_ = p.state.RecordFailedRun(fmt.Sprintf("%d messages failed processing", summary.Failed))
	}
	p.logEvent("INFO", "inbox.run_completed", "processing cycle finished", map[string]any{
		"fetched":   summary.Fetched,
		"processed": summary.Processed,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	})

	if failures := p.state.FailedCountToday(); failures >= p.cfg.FailureAlertThreshold {
		alert := fmt.Sprintf(
			"⚠️ *Second Brain Alert*\n\n%d messages failed processing today.\nCheck the dead letter log for details.",
			failures,
		)
		if err := p.slack.SendDM(ctx, alert); err != nil {
			p.logEvent("WARN", "inbox.alert_failed", "failure alert DM not sent", map[string]any{"error": err.Error()})
		}
	}

	return summary, nil
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processMessage classifies and files one message. Failures are recorded
// in the dead letter log and never abort the cycle.
func (p *inboxProcessor) processMessage(ctx context.Context, msg models.CapturedMessage) outcome {
	text := msg.Text
	lower := strings.ToLower(text)

	// Status and fix commands arrive as thread replies on a filed message.
	if msg.ThreadTS != "" && msg.ThreadTS != msg.TS {
		if IsStatusCommand(text) {
			if p.handler != nil {
				if _, err := p.handler.HandleCommand(ctx, msg.ThreadTS, text); err != nil {
					p.logEvent("WARN", "inbox.status_failed", "status command not applied", map[string]any{
						"ts": msg.TS, "error": err.Error(),
					})
				}
			}
			return outcomeSkipped
		}
		if IsFixCommand(text) {
			if p.fixer != nil {
				if newPath, err := p.fixer.HandleFix(ctx, msg.ThreadTS, text); err != nil {
					p.logEvent("WARN", "inbox.fix_failed", "fix command not applied", map[string]any{
						"ts": msg.TS, "error": err.Error(),
					})
				} else {
					p.logEvent("INFO", "note.moved", "note re-filed", map[string]any{
						"ts": msg.ThreadTS, "path": newPath,
					})
				}
			}
			return outcomeSkipped
		}
	}

	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return outcomeSkipped
		}
	}

	if p.state.IsProcessed(msg.TS) {
		return outcomeSkipped
	}

	indicators := ParseTaskIndicators(text)
	classifyText := text
	if indicators.IsTask {
		classifyText = indicators.CleanText
	}

	result, err := p.classifier.Classify(ctx, classifyText)
	if err != nil {
		p.recordFailure(msg, err)
		return outcomeFailed
	}

	if result.Confidence >= p.cfg.ConfidenceThreshold {
		if err := p.fileNote(ctx, msg, result, indicators); err != nil {
			p.recordFailure(msg, err)
			return outcomeFailed
		}
	} else {
		p.logEvent("INFO", "inbox.low_confidence", "message below confidence threshold", map[string]any{
			"ts": msg.TS, "confidence": result.Confidence,
		})
		reply := fmt.Sprintf(
			"⚠️ Low confidence (%.0f%%)\nBest guess: %s/%s\nReasoning: %s\n_Please repost with more context_",
			result.Confidence*100,
			result.Domain,
			result.CategoryGroup,
			truncate(result.Reasoning, 100),
		)
		if err := p.slack.ReplyToMessage(ctx, msg.TS, reply); err != nil {
			p.recordFailure(msg, err)
			return outcomeFailed
		}
	}

	if err := p.state.MarkProcessed(msg.TS); err != nil {
		p.logEvent("WARN", "inbox.state_error", "marking message processed failed", map[string]any{
			"ts": msg.TS, "error": err.Error(),
		})
	}
	if err := p.state.SetLastTS(msg.TS); err != nil {
		p.logEvent("WARN", "inbox.state_error", "recording last timestamp failed", map[string]any{
			"ts": msg.TS, "error": err.Error(),
		})
	}
	p.logEvent("INFO", "inbox.processed", "message processed", map[string]any{"ts": msg.TS})
	return outcomeProcessed
}

// fileNote writes the note, downloads attachments, records the mapping,
// and confirms in a thread reply.
func (p *inboxProcessor) fileNote(ctx context.Context, msg models.CapturedMessage, result *models.ClassificationResult, indicators models.TaskIndicators) error {
	var taskInfo *models.TaskInfo
	if indicators.IsTask {
		board := indicators.Domain
		if board == "" {
			board = result.Domain
		}
		taskInfo = &models.TaskInfo{
			Type:     "task",
			Status:   models.StatusBacklog,
			Board:    board,
			Priority: indicators.Priority,
			Project:  indicators.Project,
			View:     indicators.View,
		}
	}

	notePath, err := p.writer.CreateNote(result, msg.Text, taskInfo, p.now())
	if err != nil {
		return fmt.Errorf("creating note: %w", err)
	}

	p.processAttachments(ctx, msg, notePath)

	if err := p.state.SetNoteForMessage(msg.TS, notePath); err != nil {
		p.logEvent("WARN", "inbox.state_error", "recording message mapping failed", map[string]any{
			"ts": msg.TS, "error": err.Error(),
		})
	}

	p.logEvent("INFO", "note.created", "note filed", map[string]any{
		"ts":         msg.TS,
		"path":       notePath,
		"domain":     result.Domain,
		"category":   string(result.CategoryLabel),
		"confidence": result.Confidence,
	})

	taskLine := "\n"
	if taskInfo != nil {
		taskLine = " (task → backlog)\n"
	}
	reply := fmt.Sprintf(
		"✓ Filed to *%s*%sCategory: %s\nConfidence: %.0f%%\n_Reply `fix: <domain>` to correct_",
		result.VaultPath(),
		taskLine,
		result.CategoryLabel,
		result.Confidence*100,
	)
	if taskInfo != nil {
		reply += "\n_Reply `!done` to mark done_"
	}
	if err := p.slack.ReplyToMessage(ctx, msg.TS, reply); err != nil {
		return fmt.Errorf("confirming filed note: %w", err)
	}

	return nil
}

// processAttachments downloads message files next to the note and appends
// markdown links. Download failures are logged and skipped.
func (p *inboxProcessor) processAttachments(ctx context.Context, msg models.CapturedMessage, notePath string) {
	if len(msg.Attachments) == 0 {
		return
	}

	destDir := filepath.Dir(notePath)
	existing := make(map[string]bool)
	var links []vault.AttachmentLink

	for _, att := range msg.Attachments {
		name := att.Name
		if name == "" {
			name = att.Title
		}
		if name == "" {
			name = "attachment"
		}
		safeName := vault.SafeAttachmentName(name, existing)
		if err := p.slack.DownloadFile(ctx, att, filepath.Join(destDir, safeName)); err != nil {
			p.logEvent("WARN", "inbox.attachment_failed", "attachment download failed", map[string]any{
				"ts": msg.TS, "name": name, "error": err.Error(),
			})
			continue
		}
		existing[safeName] = true
		links = append(links, vault.AttachmentLink{DisplayName: name, FileName: safeName})
	}

	if len(links) > 0 {
		if err := p.writer.AppendAttachments(notePath, links); err != nil {
			p.logEvent("WARN", "inbox.attachment_failed", "appending attachment links failed", map[string]any{
				"ts": msg.TS, "error": err.Error(),
			})
		}
	}
}

// recordFailure logs a failed message to the dead letter queue. Model
// infrastructure errors are tagged separately so transient outages do not
// trigger the same follow-up as processing bugs.
func (p *inboxProcessor) recordFailure(msg models.CapturedMessage, err error) {
	errorType := "processing"
	if errors.Is(err, llm.ErrServerUnavailable) || errors.Is(err, llm.ErrTimeout) || errors.Is(err, llm.ErrModelNotFound) {
		errorType = "ollama"
	}
	if errors.Is(err, llm.ErrTimeout) {
		p.logEvent("WARN", "llm.timeout", "model request timed out", map[string]any{"ts": msg.TS})
	}

	_ = p.state.LogDeadLetter(storage.DeadLetter{
		Time:      p.now(),
		MessageTS: msg.TS,
		Text:      msg.Text,
		Error:     err.Error(),
		ErrorType: errorType,
	})
	p.logEvent("ERROR", "inbox.failed", "message processing failed", map[string]any{
		"ts": msg.TS, "error": err.Error(), "error_type": errorType,
	})
}

// alertCritical sends a DM when a whole cycle fails. Alert failures are
// swallowed.
func (p *inboxProcessor) alertCritical(ctx context.Context, cause error) {
	msg := fmt.Sprintf(
		"\U0001f6a8 *Second Brain Critical Error*\n\nProcessing failed completely:\n```%s```",
		truncate(cause.Error(), 500),
	)
	_ = p.slack.SendDM(ctx, msg)
}

// Run polls the channel until the context is cancelled. Cycle errors are
// logged and the loop continues.
func (p *inboxProcessor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := p.ProcessAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logEvent("ERROR", "inbox.cycle_error", "processing cycle failed", map[string]any{"error": err.Error()})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *inboxProcessor) logEvent(level, eventType, message string, data map[string]any) {
	if p.events == nil {
		return
	}
	_ = p.events.Write(observability.Event{
		Time:    p.now(),
		Level:   level,
		Type:    eventType,
		Message: message,
		Data:    data,
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// MessageTime converts a channel timestamp ("1727212345.000100") to a
// time.Time. Zero time is returned for unparseable input.
func MessageTime(ts string) time.Time {
	secs, _, _ := strings.Cut(ts, ".")
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
