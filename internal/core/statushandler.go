package core

import (
	"context"
	"fmt"

	"github.com/parabrain-dev/parabrain/internal/storage"
	"github.com/parabrain-dev/parabrain/internal/vault"
	"github.com/parabrain-dev/parabrain/pkg/models"
)

// StatusHandler applies task status commands ("!done", "!progress",
// "!blocked", "!backlog") sent as thread replies to a filed message.
type StatusHandler interface {
	// HandleCommand updates the status of the note filed for the message
	// with the given timestamp. It returns the new status on success.
	HandleCommand(ctx context.Context, parentTS, commandText string) (models.TaskStatus, error)
}

// Replier posts threaded replies; it is the subset of the channel client
// that the status handler needs.
type Replier interface {
	ReplyToMessage(ctx context.Context, ts, text string) error
}

type statusHandler struct {
	state  storage.StateStore
	writer vault.NoteWriter
	slack  Replier
}

// NewStatusHandler creates a StatusHandler with all dependencies injected.
// slack may be nil, in which case no confirmation reply is sent.
func NewStatusHandler(state storage.StateStore, writer vault.NoteWriter, slack Replier) StatusHandler {
	return &statusHandler{
		state:  state,
		writer: writer,
		slack:  slack,
	}
}

func (h *statusHandler) HandleCommand(ctx context.Context, parentTS, commandText string) (models.TaskStatus, error) {
	status, ok := ParseStatusCommand(commandText)
	if !ok {
		return "", fmt.Errorf("invalid status command: %q", commandText)
	}

	notePath, found := h.state.NoteForMessage(parentTS)
	if !found {
		return "", fmt.Errorf("no note filed for message %s", parentTS)
	}

	if err := h.writer.UpdateStatus(notePath, status); err != nil {
		return "", fmt.Errorf("updating status: %w", err)
	}

	if h.slack != nil {
		reply := fmt.Sprintf("✓ Status updated to *%s*", status)
		if err := h.slack.ReplyToMessage(ctx, parentTS, reply); err != nil {
			return status, fmt.Errorf("status updated but reply failed: %w", err)
		}
	}

	return status, nil
}
