package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/parabrain-dev/parabrain/internal/llm"
	"github.com/parabrain-dev/parabrain/internal/storage"
)

type fakeProber struct {
	status llm.HealthStatus
}

func (f *fakeProber) HealthCheck(context.Context) llm.HealthStatus { return f.status }

func readyProber() *fakeProber {
	return &fakeProber{status: llm.HealthStatus{
		ServerRunning:  true,
		ModelAvailable: true,
		ModelName:      "llama3.2:latest",
		Ready:          true,
	}}
}

func newTestHealthChecker(prober HealthProber, state storage.StateStore, at time.Time) *healthChecker {
	return &healthChecker{
		prober: prober,
		state:  state,
		now:    func() time.Time { return at },
	}
}

func TestHealthCheck_AllGood(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	state := newFakeState()
	state.runStatus = &storage.RunStatus{LastSuccess: now.Add(-10 * time.Minute)}

	h := newTestHealthChecker(readyProber(), state, now)
	report, err := h.Check(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Healthy {
		t.Errorf("expected healthy, issues: %v", report.Issues)
	}
	if report.FailedToday != 0 {
		t.Errorf("failed today = %d", report.FailedToday)
	}
}

func TestHealthCheck_ModelDown(t *testing.T) {
	state := newFakeState()
	state.runStatus = &storage.RunStatus{LastSuccess: time.Now()}
	prober := &fakeProber{status: llm.HealthStatus{Error: "Ollama server not running. Start with: ollama serve"}}

	h := NewHealthChecker(prober, state)
	report, err := h.Check(context.Background(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if report.Healthy {
		t.Fatal("expected unhealthy")
	}
	if len(report.Issues) != 1 || !strings.HasPrefix(report.Issues[0], "Model: ") {
		t.Errorf("issues = %v", report.Issues)
	}
}

func TestHealthCheck_NoRunYet(t *testing.T) {
	h := NewHealthChecker(readyProber(), newFakeState())
	report, err := h.Check(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if report.Healthy {
		t.Fatal("expected unhealthy")
	}
	if report.Issues[0] != "No successful run recorded yet" {
		t.Errorf("issues = %v", report.Issues)
	}
}

func TestHealthCheck_StaleRun(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	state := newFakeState()
	state.runStatus = &storage.RunStatus{LastSuccess: now.Add(-3 * time.Hour)}

	h := newTestHealthChecker(readyProber(), state, now)
	report, err := h.Check(context.Background(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if report.Healthy {
		t.Fatal("expected unhealthy")
	}
	if !strings.Contains(report.Issues[0], "Last successful run was 3h0m0s ago") {
		t.Errorf("issues = %v", report.Issues)
	}
}

func TestHealthCheck_FailuresToday(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	state := newFakeState()
	state.runStatus = &storage.RunStatus{LastSuccess: now.Add(-time.Minute)}
	state.failedToday = 4

	h := newTestHealthChecker(readyProber(), state, now)
	report, err := h.Check(context.Background(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if report.Healthy {
		t.Fatal("expected unhealthy")
	}
	if !strings.Contains(report.Issues[0], "Failures today: 4 messages") {
		t.Errorf("issues = %v", report.Issues)
	}
	if report.FailedToday != 4 {
		t.Errorf("failed today = %d", report.FailedToday)
	}
}

func TestHealthCheck_CorruptedState(t *testing.T) {
	state := newFakeState()
	state.statusErr = errors.New("bad json")

	h := NewHealthChecker(readyProber(), state)
	report, err := h.Check(context.Background(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if report.Healthy {
		t.Fatal("expected unhealthy")
	}
	if !strings.Contains(report.Issues[0], "state may be corrupted") {
		t.Errorf("issues = %v", report.Issues)
	}
}
