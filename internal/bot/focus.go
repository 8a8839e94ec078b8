package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskplanner/internal/focus"
	"taskplanner/internal/service"
)

// handleFocus takes "[task id] [focus break sets]"; missing numbers come
// from the config.
func (b *Bot) handleFocus(ctx context.Context, chatID int64, args string) error {
	fields := strings.Fields(args)
	var taskID uint
	if len(fields) > 0 {
		id, err := parseID(fields[0])
		if err != nil {
			return b.sendText(chatID, "Usage: /focus [task id] [focus min] [break min] [sets]")
		}
		taskID = id
		fields = fields[1:]
	}

	settings := []int{b.config.FocusMinutes, b.config.BreakMinutes, b.config.FocusSets}
	for i, raw := range fields {
		if i >= len(settings) {
			break
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return b.sendText(chatID, "Focus, break and sets must be whole numbers.")
		}
		settings[i] = n
	}

	st, err := b.svc.Focus.Start(ctx, chatID, taskID, settings[0], settings[1], settings[2])
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return b.sendText(chatID, "Focus, break and sets must be positive.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	return b.sendText(chatID, "🍅 Started. "+formatFocus(st))
}

func (b *Bot) handlePause(chatID int64) error {
	if !b.svc.Focus.Pause(chatID) {
		return b.sendText(chatID, "Nothing to pause.")
	}
	return b.handleStatus(chatID)
}

func (b *Bot) handleResume(chatID int64) error {
	if !b.svc.Focus.Resume(chatID) {
		return b.sendText(chatID, "Nothing to resume.")
	}
	return b.handleStatus(chatID)
}

func (b *Bot) handleStop(chatID int64) error {
	if !b.svc.Focus.Stop(chatID) {
		return b.sendText(chatID, "No focus session running.")
	}
	return b.sendText(chatID, "⏹ Focus session stopped.")
}

func (b *Bot) handleStatus(chatID int64) error {
	st, ok := b.svc.Focus.State(chatID)
	if !ok || st.Phase == focus.PhaseIdle {
		return b.sendText(chatID, "No focus session running. Start one with /focus.")
	}
	return b.sendText(chatID, formatFocus(st))
}
