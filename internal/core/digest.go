package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/parabrain-dev/parabrain/internal/vault"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

// DigestGenerator builds the morning digest of open items from the vault
// and delivers it as a DM.
type DigestGenerator interface {
	// Generate renders the digest text from the vault's current notes.
	Generate() (string, error)
	// Deliver generates the digest and sends it as a DM.
	Deliver(ctx context.Context) error
}

// DMSender is the subset of the channel client the digest needs.
type DMSender interface {
	SendDM(ctx context.Context, text string) error
}

type digestGenerator struct {
	vaultPath string
	slack     DMSender
	listNotes func(string) ([]vault.NoteInfo, error)
	now       func() time.Time
}

// NewDigestGenerator creates a DigestGenerator reading notes under
// vaultPath. slack may be nil, in which case only Generate is usable.
func NewDigestGenerator(vaultPath string, slack DMSender) DigestGenerator {
	return &digestGenerator{
		vaultPath: vaultPath,
		slack:     slack,
		listNotes: vault.ListNotes,
		now:       time.Now,
	}
}

var priorityRank = map[models.TaskPriority]int{
	models.PriorityHigh:   0,
	models.PriorityMedium: 1,
	models.PriorityLow:    2,
}

func (g *digestGenerator) Generate() (string, error) {
	notes, err := g.listNotes(g.vaultPath)
	if err != nil {
		return "", fmt.Errorf("listing vault notes: %w", err)
	}

	var open, blocked []vault.NoteInfo
	for _, note := range notes {
		switch note.Frontmatter.Status {
		case models.StatusBacklog, models.StatusInProgress:
			open = append(open, note)
		case models.StatusBlocked:
			blocked = append(blocked, note)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Daily Digest - %s*\n", g.now().Format("January 2, 2006"))

	if len(open) == 0 && len(blocked) == 0 {
		b.WriteString("\nNo open tasks. Capture one with `todo:` to get started.")
		return b.String(), nil
	}

	// Highest priority first, oldest first within a priority.
	sort.SliceStable(open, func(i, j int) bool {
		ri, rj := notePriority(open[i]), notePriority(open[j])
		if ri != rj {
			return ri < rj
		}
		return noteCreated(open[i]).Before(noteCreated(open[j]))
	})

	if len(open) > 0 {
		b.WriteString("\n*Top 3 Actions:*\n")
		for i, note := range open {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, note.Title, note.Frontmatter.Domain)
		}
	}

	if stalled := oldestNote(open); stalled != nil && len(open) > 3 {
		fmt.Fprintf(&b, "\n*You might be avoiding:* %s (%s)\n", stalled.Title, stalled.Frontmatter.Domain)
	}

	if len(blocked) > 0 {
		b.WriteString("\n*Blocked:*\n")
		for _, note := range blocked {
			fmt.Fprintf(&b, "• %s (%s)\n", note.Title, note.Frontmatter.Domain)
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func (g *digestGenerator) Deliver(ctx context.Context) error {
	if g.slack == nil {
		return fmt.Errorf("slack client not configured")
	}
	text, err := g.Generate()
	if err != nil {
		return err
	}
	if err := g.slack.SendDM(ctx, text); err != nil {
		return fmt.Errorf("sending digest: %w", err)
	}
	return nil
}

func notePriority(note vault.NoteInfo) int {
	if note.Frontmatter.Task == nil {
		return 3
	}
	if r, ok := priorityRank[note.Frontmatter.Task.Priority]; ok {
		return r
	}
	return 3
}

func noteCreated(note vault.NoteInfo) time.Time {
	t, err := time.Parse(time.RFC3339, note.Frontmatter.Created)
	if err != nil {
		return time.Time{}
	}
	return t
}

// oldestNote returns the open note with the earliest parseable creation
// time, or nil when none have one.
func oldestNote(open []vault.NoteInfo) *vault.NoteInfo {
	var oldest *vault.NoteInfo
	var oldestAt time.Time
	for i := range open {
		at := noteCreated(open[i])
		if at.IsZero() {
			continue
		}
		if oldest == nil || at.Before(oldestAt) {
			oldest = &open[i]
			oldestAt = at
		}
	}
	return oldest
}
