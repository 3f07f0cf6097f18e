package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/parabrain-dev/parabrain/internal/observability"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

// mockDashboardMetrics implements observability.MetricsCalculator.
type mockDashboardMetrics struct {
	metrics *observability.Metrics
	err     error
}

func (m *mockDashboardMetrics) Calculate(_ time.Time) (*observability.Metrics, error) {
	return m.metrics, m.err
}

func TestDashboardModel_Init(t *testing.T) {
	m := newDashboardModel()

	if m.activePanel != panelVault {
		t.Errorf("expected activePanel = %d, got %d", panelVault, m.activePanel)
	}
	if !m.loading {
		t.Error("expected loading = true on init")
	}
	if m.domainCounts == nil {
		t.Error("expected domainCounts to be initialized")
	}

	// Init should return a command (loadData).
	cmd := m.Init()
	if cmd == nil {
		t.Error("expected Init to return a non-nil command")
	}
}

func TestDashboardModel_QuitKeys(t *testing.T) {
	for _, key := range []string{"q", "esc", "ctrl+c"} {
		t.Run(key, func(t *testing.T) {
			m := newDashboardModel()
			var msg tea.Msg
			switch key {
			case "q":
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
			case "esc":
				msg = tea.KeyMsg{Type: tea.KeyEsc}
			case "ctrl+c":
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			}
			_, cmd := m.Update(msg)
			if cmd == nil {
				t.Fatal("expected quit command")
			}
		})
	}
}

func TestDashboardModel_TabCyclesPanels(t *testing.T) {
	m := newDashboardModel()

	for want := 1; want <= panelCount; want++ {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = updated.(dashboardModel)
		if m.activePanel != want%panelCount {
			t.Fatalf("after %d tabs activePanel = %d, want %d", want, m.activePanel, want%panelCount)
		}
	}
}

func TestDashboardModel_DataLoaded(t *testing.T) {
	m := newDashboardModel()

	updated, _ := m.Update(dataLoadedMsg{
		domainCounts: map[string]int{"Work": 3, "Personal": 2},
		metrics:      &metricsSnapshot{notesCreated: 5, averageConfidence: 0.8},
		alerts:       []alertSnapshot{{severity: "high", message: "too many failures"}},
	})
	m = updated.(dashboardModel)

	if m.loading {
		t.Error("loading should be false after data arrives")
	}
	if m.domainCounts["Work"] != 3 {
		t.Errorf("domainCounts[Work] = %d, want 3", m.domainCounts["Work"])
	}
	if m.metricsData == nil || m.metricsData.notesCreated != 5 {
		t.Error("metrics snapshot not stored")
	}
	if len(m.alerts) != 1 {
		t.Errorf("alerts = %d, want 1", len(m.alerts))
	}
}

func TestDashboardModel_DataLoadError(t *testing.T) {
	m := newDashboardModel()

	updated, _ := m.Update(dataLoadedMsg{err: errors.New("vault unreadable")})
	m = updated.(dashboardModel)

	if m.err == nil {
		t.Fatal("expected error to be stored")
	}

	m.width = 80
	m.height = 24
	view := m.View()
	if !strings.Contains(view, "vault unreadable") {
		t.Errorf("view does not surface the error: %q", view)
	}
}

func TestDashboardModel_ViewShowsDomains(t *testing.T) {
	m := newDashboardModel()
	m.loading = false
	m.width = 80
	m.height = 40
	m.domainCounts = map[string]int{"Work": 4}

	view := m.View()
	if !strings.Contains(view, "Work") {
		t.Errorf("view does not list the Work domain:\n%s", view)
	}
	if !strings.Contains(view, "4 subjects") {
		t.Errorf("view does not show the subject count:\n%s", view)
	}
}

func TestLoadData_UsesServices(t *testing.T) {
	origScanner := Scanner
	origMetrics := MetricsCalc
	origAlerts := AlertEngine
	defer func() {
		Scanner = origScanner
		MetricsCalc = origMetrics
		AlertEngine = origAlerts
	}()

	Scanner = &scannerMock{
		rescanFn: func() (models.Structure, error) {
			return models.Structure{
				"Work": {
					"1_Projects":  {"website", "homelab"},
					"3_Resources": {"go"},
				},
			}, nil
		},
	}
	MetricsCalc = &mockDashboardMetrics{
		metrics: &observability.Metrics{NotesCreated: 2, EventCount: 7},
	}
	AlertEngine = &alertsMock{
		evaluateFn: func() ([]observability.Alert, error) {
			return []observability.Alert{
				{Severity: observability.SeverityLow, Message: "minor"},
				{Severity: observability.SeverityHigh, Message: "major"},
			}, nil
		},
	}

	msg := loadData()
	loaded, ok := msg.(dataLoadedMsg)
	if !ok {
		t.Fatalf("loadData returned %T, want dataLoadedMsg", msg)
	}
	if loaded.err != nil {
		t.Fatalf("unexpected error: %v", loaded.err)
	}
	if loaded.domainCounts["Work"] != 3 {
		t.Errorf("domainCounts[Work] = %d, want 3 subjects", loaded.domainCounts["Work"])
	}
	if loaded.metrics == nil || loaded.metrics.eventCount != 7 {
		t.Error("metrics snapshot missing")
	}
	// High severity sorts first.
	if len(loaded.alerts) != 2 || loaded.alerts[0].severity != "high" {
		t.Errorf("alerts = %+v, want high severity first", loaded.alerts)
	}
}
