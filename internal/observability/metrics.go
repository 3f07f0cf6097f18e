package observability

import (
	"fmt"
	"time"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	MessagesProcessed int            `json:"messages_processed"`
	MessagesFailed    int            `json:"messages_failed"`
	NotesCreated      int            `json:"notes_created"`
	LowConfidence     int            `json:"low_confidence"`
	NotesByDomain     map[string]int `json:"notes_by_domain"`
	NotesByLabel      map[string]int `json:"notes_by_label"`
	LLMTimeouts       int            `json:"llm_timeouts"`
	VaultRescans      int            `json:"vault_rescans"`
	AverageConfidence float64        `json:"average_confidence"`
	EventCount        int            `json:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		NotesByDomain: make(map[string]int),
		NotesByLabel:  make(map[string]int),
	}

	m.EventCount = len(events)

	var confidenceSum float64
	var confidenceCount int

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case "inbox.processed":
			m.MessagesProcessed++
		case "inbox.failed":
			m.MessagesFailed++
		case "inbox.low_confidence":
			m.LowConfidence++
		case "note.created":
			m.NotesCreated++
			if domain, ok := event.Data["domain"].(string); ok {
				m.NotesByDomain[domain]++
			}
			if label, ok := event.Data["category"].(string); ok {
				m.NotesByLabel[label]++
			}
			if conf, ok := event.Data["confidence"].(float64); ok {
				confidenceSum += conf
				confidenceCount++
			}
		case "llm.timeout":
			m.LLMTimeouts++
		case "vault.rescanned":
			m.VaultRescans++
		}
	}

	if confidenceCount > 0 {
		m.AverageConfidence = confidenceSum / float64(confidenceCount)
	}

	return m, nil
}
