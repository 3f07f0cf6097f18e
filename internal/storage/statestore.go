// Package storage persists processing state: message-to-note mappings,
// processed-message tracking for idempotency, run health records, and the
// dead-letter log.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ProcessedTTL is how long processed-message entries are retained before
// cleanup.
const ProcessedTTL = 30 * 24 * time.Hour

// RunStatus records the outcome of processing runs, used by health checks.
type RunStatus struct {
	LastSuccess time.Time      `json:"last_success,omitempty"`
	LastFailure time.Time      `json:"last_failure,omitempty"`
	LastError   string         `json:"last_error,omitempty"`
	Failures    map[string]int `json:"failures,omitempty"` // day (2006-01-02) -> count
}

// DeadLetter is one failed message appended to the dead-letter log.
type DeadLetter struct {
	Time      time.Time `json:"time"`
	MessageTS string    `json:"message_ts"`
	Text      string    `json:"text"`
	Error     string    `json:"error"`
	ErrorType string    `json:"error_type"` // "ollama" or "processing"
}

// StateStore is the persistence layer for inbox processing state.
type StateStore interface {
	// Message-to-note mapping.
	NoteForMessage(ts string) (string, bool)
	SetNoteForMessage(ts, notePath string) error
	RemoveMessageMapping(ts string) error

	// Idempotency tracking.
	IsProcessed(ts string) bool
	MarkProcessed(ts string) error
	CleanupProcessed() (int, error)

	// Last fetched channel timestamp.
	LastTS() string
	SetLastTS(ts string) error

	// Run health bookkeeping.
	RecordSuccessfulRun() error
	RecordFailedRun(reason string) error
	RunStatus() (*RunStatus, error)
	FailedCountToday() int

	// Dead-letter log.
	LogDeadLetter(letter DeadLetter) error
}

type fileStateStore struct {
	stateDir string
	now      func() time.Time
}

// NewStateStore creates a StateStore persisting JSON state files under
// stateDir.
func NewStateStore(stateDir string) StateStore {
	return &fileStateStore{stateDir: stateDir, now: time.Now}
}

func (s *fileStateStore) mappingPath() string   { return filepath.Join(s.stateDir, "message_mapping.json") }
func (s *fileStateStore) processedPath() string { return filepath.Join(s.stateDir, "processed_messages.json") }
func (s *fileStateStore) runStatusPath() string { return filepath.Join(s.stateDir, "run_status.json") }
func (s *fileStateStore) lastTSPath() string    { return filepath.Join(s.stateDir, "last_processed_ts") }
func (s *fileStateStore) deadLetterPath() string {
	return filepath.Join(s.stateDir, "dead_letter.jsonl")
}

// readJSON loads a JSON state file into out. A missing or unreadable file
// leaves out untouched: readers treat a replaced-or-corrupt file as empty
// state, never as an error.
func readJSON(path string, out any) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, out)
}

// writeJSON persists v atomically: full write to a temp file, then a single
// rename, so concurrent readers never see a partial document.
func (s *fileStateStore) writeJSON(path string, v any) error {
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	tmp, err := os.CreateTemp(s.stateDir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

func (s *fileStateStore) NoteForMessage(ts string) (string, bool) {
	mapping := map[string]string{}
	readJSON(s.mappingPath(), &mapping)
	path, ok := mapping[ts]
	if !ok {
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

func (s *fileStateStore) SetNoteForMessage(ts, notePath string) error {
	mapping := map[string]string{}
	readJSON(s.mappingPath(), &mapping)
	mapping[ts] = notePath
	return s.writeJSON(s.mappingPath(), mapping)
}

func (s *fileStateStore) RemoveMessageMapping(ts string) error {
	mapping := map[string]string{}
	readJSON(s.mappingPath(), &mapping)
	if _, ok := mapping[ts]; !ok {
		return nil
	}
	delete(mapping, ts)
	return s.writeJSON(s.mappingPath(), mapping)
}

func (s *fileStateStore) IsProcessed(ts string) bool {
	processed := map[string]time.Time{}
	readJSON(s.processedPath(), &processed)
	_, ok := processed[ts]
	return ok
}

func (s *fileStateStore) MarkProcessed(ts string) error {
	processed := map[string]time.Time{}
	readJSON(s.processedPath(), &processed)
	processed[ts] = s.now()
	return s.writeJSON(s.processedPath(), processed)
}

// CleanupProcessed drops processed-message entries older than ProcessedTTL
// and returns how many were removed.
func (s *fileStateStore) CleanupProcessed() (int, error) {
	processed := map[string]time.Time{}
	readJSON(s.processedPath(), &processed)

	cutoff := s.now().Add(-ProcessedTTL)
	removed := 0
	for ts, at := range processed {
		if at.Before(cutoff) {
			delete(processed, ts)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, s.writeJSON(s.processedPath(), processed)
}

func (s *fileStateStore) LastTS() string {
	data, err := os.ReadFile(s.lastTSPath())
	if err != nil {
		return "0"
	}
	ts := string(data)
	if ts == "" {
		return "0"
	}
	return ts
}

func (s *fileStateStore) SetLastTS(ts string) error {
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(s.lastTSPath(), []byte(ts), 0o644); err != nil {
		return fmt.Errorf("writing last timestamp: %w", err)
	}
	return nil
}

func (s *fileStateStore) readRunStatus() *RunStatus {
	status := &RunStatus{}
	readJSON(s.runStatusPath(), status)
	if status.Failures == nil {
		status.Failures = map[string]int{}
	}
	return status
}

func (s *fileStateStore) RecordSuccessfulRun() error {
	status := s.readRunStatus()
	status.LastSuccess = s.now()
	return s.writeJSON(s.runStatusPath(), status)
}

func (s *fileStateStore) RecordFailedRun(reason string) error {
	status := s.readRunStatus()
	now := s.now()
	status.LastFailure = now
	status.LastError = reason
	status.Failures[now.Format("2006-01-02")]++
	return s.writeJSON(s.runStatusPath(), status)
}

func (s *fileStateStore) RunStatus() (*RunStatus, error) {
	if _, err := os.Stat(s.runStatusPath()); err != nil {
		if os.IsNotExist(err) {
			return s.readRunStatus(), nil
		}
		return nil, fmt.Errorf("reading run status: %w", err)
	}
	return s.readRunStatus(), nil
}

func (s *fileStateStore) FailedCountToday() int {
	status := s.readRunStatus()
	return status.Failures[s.now().Format("2006-01-02")]
}

// LogDeadLetter appends the failed message to the dead-letter JSONL log.
func (s *fileStateStore) LogDeadLetter(letter DeadLetter) error {
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if letter.Time.IsZero() {
		letter.Time = s.now()
	}
	data, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("marshalling dead letter: %w", err)
	}
	f, err := os.OpenFile(s.deadLetterPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening dead-letter log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending dead letter: %w", err)
	}
	return nil
}
