package core

import (
	"context"
	"fmt"
	"time"

	"github.com/parabrain-dev/parabrain/internal/llm"
	"github.com/parabrain-dev/parabrain/internal/storage"
)

// DefaultMaxRunAge is how recent the last successful run must be for the
// system to count as healthy.
const DefaultMaxRunAge = time.Hour

// HealthProber is the subset of the model client the health check needs.
type HealthProber interface {
	HealthCheck(ctx context.Context) llm.HealthStatus
}

// HealthReport summarizes the state of the whole pipeline.
type HealthReport struct {
	Healthy     bool
	Issues      []string
	LastSuccess time.Time
	FailedToday int
	ModelStatus llm.HealthStatus
}

// HealthChecker verifies that the model server is reachable and that
// processing runs have been completing recently.
type HealthChecker interface {
	Check(ctx context.Context, maxRunAge time.Duration) (*HealthReport, error)
}

type healthChecker struct {
	prober HealthProber
	state  storage.StateStore
	now    func() time.Time
}

// NewHealthChecker creates a HealthChecker over the given model prober
// and state store.
func NewHealthChecker(prober HealthProber, state storage.StateStore) HealthChecker {
	return &healthChecker{
		prober: prober,
		state:  state,
		now:    time.Now,
	}
}

func (h *healthChecker) Check(ctx context.Context, maxRunAge time.Duration) (*HealthReport, error) {
	if maxRunAge <= 0 {
		maxRunAge = DefaultMaxRunAge
	}

	report := &HealthReport{}

	report.ModelStatus = h.prober.HealthCheck(ctx)
	if !report.ModelStatus.Ready {
		report.Issues = append(report.Issues, fmt.Sprintf("Model: %s", report.ModelStatus.Error))
	}

	status, err := h.state.RunStatus()
	if err != nil {
		report.Issues = append(report.Issues, "Cannot read run status (state may be corrupted)")
	} else if status != nil {
		report.LastSuccess = status.LastSuccess
		switch {
		case status.LastSuccess.IsZero():
			report.Issues = append(report.Issues, "No successful run recorded yet")
		case h.now().Sub(status.LastSuccess) > maxRunAge:
			report.Issues = append(report.Issues, fmt.Sprintf(
				"Last successful run was %s ago (limit %s)",
				h.now().Sub(status.LastSuccess).Round(time.Minute),
				maxRunAge,
			))
		}
	}

	report.FailedToday = h.state.FailedCountToday()
	if report.FailedToday > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("Failures today: %d messages", report.FailedToday))
	}

	report.Healthy = len(report.Issues) == 0
	return report, nil
}
