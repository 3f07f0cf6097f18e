package core

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

func TestParseFixCommand(t *testing.T) {
	tests := []struct {
		text       string
		wantDomain string
		wantOK     bool
	}{
		{"fix: work", "work", true},
		{"fix:personal", "personal", true},
		{"FIX: Work", "work", true},
		{"  fix:  studies  ", "studies", true},
		{"fix:", "", false},
		{"!done", "", false},
		{"please fix: work", "", false},
		{"fixture: notes", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			domain, ok := ParseFixCommand(tt.text)
			if ok != tt.wantOK || domain != tt.wantDomain {
				t.Errorf("ParseFixCommand(%q) = (%q, %v), want (%q, %v)",
					tt.text, domain, ok, tt.wantDomain, tt.wantOK)
			}
			if IsFixCommand(tt.text) != tt.wantOK {
				t.Errorf("IsFixCommand(%q) = %v, want %v", tt.text, !tt.wantOK, tt.wantOK)
			}
		})
	}
}

func newFixFixture() (*fakeState, *fakeWriter, *fakeChannel, FixHandler) {
	state := newFakeState()
	writer := newFakeWriter()
	slack := &fakeChannel{}
	scanner := &fakeVaultScanner{structure: models.Structure{
		"Personal": {"2_Areas": {"health"}},
		"Work":     {"1_Projects": {"website"}},
	}}
	return state, writer, slack, NewFixHandler(state, writer, scanner, slack)
}

func TestHandleFix_MovesNoteAndUpdatesMapping(t *testing.T) {
	state, writer, slack, handler := newFixFixture()
	state.notes["1718000100.000100"] = "/vault/Work/1_Projects/website/note.md"

	newPath, err := handler.HandleFix(context.Background(), "1718000100.000100", "fix: personal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer.moves["/vault/Work/1_Projects/website/note.md"] != "Personal" {
		t.Errorf("moves = %v, want note moved to Personal", writer.moves)
	}
	if state.notes["1718000100.000100"] != newPath {
		t.Errorf("mapping = %q, want %q", state.notes["1718000100.000100"], newPath)
	}
	if len(slack.replies) != 1 {
		t.Fatalf("replies = %+v, want 1", slack.replies)
	}
	reply := slack.replies[0]
	if reply.ts != "1718000100.000100" {
		t.Errorf("reply threaded on %q, want the parent message", reply.ts)
	}
	if !strings.Contains(reply.text, "✓ Moved to *Personal*") {
		t.Errorf("reply = %q", reply.text)
	}
}

func TestHandleFix_Errors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		setup   func(*fakeState, *fakeWriter)
		wantErr string
	}{
		{
			name:    "invalid command",
			command: "!done",
			wantErr: "invalid fix command",
		},
		{
			name:    "unknown domain",
			command: "fix: finance",
			wantErr: `unknown domain "finance"`,
		},
		{
			name:    "no note filed",
			command: "fix: work",
			wantErr: "no note filed for message",
		},
		{
			name:    "move fails",
			command: "fix: personal",
			setup: func(s *fakeState, w *fakeWriter) {
				s.notes["1718000100.000100"] = "/vault/Work/1_Projects/website/note.md"
				w.moveErr = fmt.Errorf("creating target folder: permission denied")
			},
			wantErr: "moving note",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, writer, _, handler := newFixFixture()
			if tt.setup != nil {
				tt.setup(state, writer)
			}

			_, err := handler.HandleFix(context.Background(), "1718000100.000100", tt.command)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestHandleFix_StaleMappingRemoved(t *testing.T) {
	state, writer, _, handler := newFixFixture()
	state.notes["1718000100.000100"] = "/vault/Work/1_Projects/website/gone.md"
	writer.moveErr = fmt.Errorf("reading note: %w", fs.ErrNotExist)

	_, err := handler.HandleFix(context.Background(), "1718000100.000100", "fix: personal")
	if err == nil {
		t.Fatal("expected error for a missing note")
	}
	if _, found := state.notes["1718000100.000100"]; found {
		t.Error("stale mapping should be removed when the note no longer exists")
	}
}

func TestHandleFix_UnknownDomainListsVault(t *testing.T) {
	_, _, _, handler := newFixFixture()

	_, err := handler.HandleFix(context.Background(), "1718000100.000100", "fix: finance")
	if err == nil || !strings.Contains(err.Error(), "Personal, Work") {
		t.Errorf("error should list the vault's domains, got %v", err)
	}
}

func TestHandleFix_NilReplier(t *testing.T) {
	state := newFakeState()
	writer := newFakeWriter()
	scanner := &fakeVaultScanner{structure: models.Structure{"Work": {"1_Projects": {"website"}}}}
	handler := NewFixHandler(state, writer, scanner, nil)
	state.notes["1718000100.000100"] = "/vault/Work/1_Projects/website/note.md"

	if _, err := handler.HandleFix(context.Background(), "1718000100.000100", "fix: work"); err != nil {
		t.Fatalf("unexpected error with nil replier: %v", err)
	}
}

func TestHandleFix_ReplyFailureAfterMove(t *testing.T) {
	state, writer, slack, handler := newFixFixture()
	state.notes["1718000100.000100"] = "/vault/Work/1_Projects/website/note.md"
	slack.replyErr = fmt.Errorf("channel_not_found")

	newPath, err := handler.HandleFix(context.Background(), "1718000100.000100", "fix: personal")
	if err == nil || !strings.Contains(err.Error(), "note moved but reply failed") {
		t.Errorf("error = %v", err)
	}
	if newPath == "" {
		t.Error("new path should be returned even when the reply fails")
	}
	if writer.moves["/vault/Work/1_Projects/website/note.md"] != "Personal" {
		t.Error("move should have happened before the reply")
	}
}