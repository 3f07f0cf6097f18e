package observability

import (
	"fmt"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	MaxFailuresPerDay int `yaml:"max_failures_per_day" json:"max_failures_per_day"`
	StaleRunHours     int `yaml:"stale_run_hours" json:"stale_run_hours"`
	MaxLLMTimeouts    int `yaml:"max_llm_timeouts" json:"max_llm_timeouts"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		MaxFailuresPerDay: 3,
		StaleRunHours:     24,
		MaxLLMTimeouts:    5,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by reading events and checking thresholds.
type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
}

// NewAlertEngine creates a new AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
	}
}

// Evaluate reads events and checks all alert conditions, returning any triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := time.Now().UTC()
	var alerts []Alert

	failureAlerts, err := ae.checkDailyFailures(now)
	if err != nil {
		return nil, fmt.Errorf("checking daily failures: %w", err)
	}
	alerts = append(alerts, failureAlerts...)

	staleAlerts, err := ae.checkStaleRuns(now)
	if err != nil {
		return nil, fmt.Errorf("checking stale runs: %w", err)
	}
	alerts = append(alerts, staleAlerts...)

	timeoutAlerts, err := ae.checkLLMTimeouts(now)
	if err != nil {
		return nil, fmt.Errorf("checking llm timeouts: %w", err)
	}
	alerts = append(alerts, timeoutAlerts...)

	return alerts, nil
}

// checkDailyFailures counts inbox failures in the current UTC day and alerts
// once the threshold is crossed.
func (ae *alertEngine) checkDailyFailures(now time.Time) ([]Alert, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	events, err := ae.eventLog.Read(EventFilter{Type: "inbox.failed", Since: &dayStart})
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	if len(events) >= ae.thresholds.MaxFailuresPerDay {
		alerts = append(alerts, Alert{
			ID:          "daily-failures",
			Condition:   "too_many_failures_today",
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("%d messages failed processing today, at or over the limit of %d", len(events), ae.thresholds.MaxFailuresPerDay),
			TriggeredAt: now,
		})
	}

	return alerts, nil
}

// checkStaleRuns looks for the most recent successful inbox run and alerts
// when it is older than the threshold.
func (ae *alertEngine) checkStaleRuns(now time.Time) ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{Type: "inbox.run_completed"})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	var lastRun time.Time
	for _, event := range events {
		if event.Time.After(lastRun) {
			lastRun = event.Time
		}
	}

	threshold := time.Duration(ae.thresholds.StaleRunHours) * time.Hour
	var alerts []Alert
	if now.Sub(lastRun) > threshold {
		alerts = append(alerts, Alert{
			ID:          "stale-run",
			Condition:   "inbox_run_stale",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("no successful inbox run for more than %d hours", ae.thresholds.StaleRunHours),
			TriggeredAt: now,
		})
	}

	return alerts, nil
}

// checkLLMTimeouts counts model timeouts over the last 24 hours.
func (ae *alertEngine) checkLLMTimeouts(now time.Time) ([]Alert, error) {
	since := now.Add(-24 * time.Hour)
	events, err := ae.eventLog.Read(EventFilter{Type: "llm.timeout", Since: &since})
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	if len(events) >= ae.thresholds.MaxLLMTimeouts {
		alerts = append(alerts, Alert{
			ID:          "llm-timeouts",
			Condition:   "llm_timeouts_elevated",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("%d model timeouts in the last 24 hours, at or over the limit of %d", len(events), ae.thresholds.MaxLLMTimeouts),
			TriggeredAt: now,
		})
	}

	return alerts, nil
}
