package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/parabrain-dev/parabrain/internal/storage"
	"github.com/parabrain-dev/parabrain/internal/vault"
)

// FixHandler re-files a note when a "fix: <domain>" thread reply corrects
// a misclassified capture.
type FixHandler interface {
	// HandleFix moves the note filed for the parent message into the
	// corrected domain. It returns the note's new path on success.
	HandleFix(ctx context.Context, parentTS, commandText string) (string, error)
}

var fixCommandPattern = regexp.MustCompile(`^fix:\s*(\S+)`)

// ParseFixCommand extracts the target domain from a "fix: <domain>" reply.
func ParseFixCommand(text string) (string, bool) {
	m := fixCommandPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(text)))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsFixCommand reports whether text is a fix command.
func IsFixCommand(text string) bool {
	_, ok := ParseFixCommand(text)
	return ok
}

type fixHandler struct {
	state   storage.StateStore
	writer  vault.NoteWriter
	scanner vault.Scanner
	slack   Replier
	now     func() time.Time
}

// NewFixHandler creates a FixHandler with all dependencies injected.
// slack may be nil, in which case no confirmation reply is sent.
func NewFixHandler(state storage.StateStore, writer vault.NoteWriter, scanner vault.Scanner, slack Replier) FixHandler {
	return &fixHandler{
		state:   state,
		writer:  writer,
		scanner: scanner,
		slack:   slack,
		now:     time.Now,
	}
}

func (h *fixHandler) HandleFix(ctx context.Context, parentTS, commandText string) (string, error) {
	target, ok := ParseFixCommand(commandText)
	if !ok {
		return "", fmt.Errorf("invalid fix command: %q", commandText)
	}

	domain, err := h.resolveDomain(target)
	if err != nil {
		return "", err
	}

	notePath, found := h.state.NoteForMessage(parentTS)
	if !found {
		return "", fmt.Errorf("no note filed for message %s", parentTS)
	}

	newPath, err := h.writer.MoveNote(notePath, domain, h.now())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// The note was removed out of band; drop the stale mapping so
			// later commands fail fast.
			_ = h.state.RemoveMessageMapping(parentTS)
		}
		return "", fmt.Errorf("moving note: %w", err)
	}

	if err := h.state.SetNoteForMessage(parentTS, newPath); err != nil {
		return newPath, fmt.Errorf("note moved but mapping not updated: %w", err)
	}

	if h.slack != nil {
		reply := fmt.Sprintf("✓ Moved to *%s* as `%s`", domain, filepath.Base(newPath))
		if err := h.slack.ReplyToMessage(ctx, parentTS, reply); err != nil {
			return newPath, fmt.Errorf("note moved but reply failed: %w", err)
		}
	}

	return newPath, nil
}

// resolveDomain matches the requested domain against the vault's discovered
// domains, case-insensitively.
func (h *fixHandler) resolveDomain(target string) (string, error) {
	structure, err := h.scanner.GetStructure(false)
	if err != nil {
		return "", fmt.Errorf("loading vault structure: %w", err)
	}
	for _, domain := range structure.Domains() {
		if strings.EqualFold(domain, target) {
			return domain, nil
		}
	}
	return "", fmt.Errorf("unknown domain %q; vault has: %s", target, strings.Join(structure.Domains(), ", "))
}
