package bot

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskplanner/internal/model"
	"taskplanner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageNote
	stageDue
	stagePriority
	stageTag
)

type conversationState struct {
	stage conversationStage
	input service.TaskInput
}

func (b *Bot) startNewTaskConversation(chatID int64) error {
	log.Printf("[info] start new task conversation chat=%d", chatID)
	b.setConversation(chatID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(chatID, "🆕 New task.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	state := b.getConversation(chatID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(chatID, "The title cannot be empty.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageNote
		return b.sendWithReplyMarkup(chatID, "✏️ Add a short note (or skip).", skipKeyboard())
	case stageNote:
		if !isSkipInput(text) {
			state.input.Note = text
		}
		state.stage = stageDue
		return b.sendWithReplyMarkup(chatID, "⏰ Due time as <code>2025-11-30 18:00</code> or <code>2025-11-30</code> (or skip).", skipKeyboard())
	case stageDue:
		if !isSkipInput(text) {
			due, err := parseDue(text, b.now().Location())
			if err != nil {
				return b.sendWithReplyMarkup(chatID, "Cannot read that date. Use <code>2025-11-30 18:00</code> or skip.", skipKeyboard())
			}
			state.input.DueAt = &due
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(chatID, "❗ Priority?", priorityKeyboard())
	case stagePriority:
		priority, err := model.ParsePriority(skipToEmpty(text))
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Pick low, medium or high.", priorityKeyboard())
		}
		state.input.Priority = priority
		state.stage = stageTag
		return b.sendWithReplyMarkup(chatID, "🏷 Which quadrant?", tagKeyboard())
	case stageTag:
		tag, err := model.ParseTag(skipToEmpty(text))
		if err != nil {
			return b.sendWithReplyMarkup(chatID, "Pick do now, schedule, delegate or eliminate.", tagKeyboard())
		}
		state.input.Tag = tag
		b.clearConversation(chatID)
		return b.createTask(ctx, chatID, state.input)
	default:
		b.clearConversation(chatID)
		return b.sendText(chatID, "Dialog reset. Try /newtask again.")
	}
}

func skipToEmpty(text string) string {
	if isSkipInput(text) {
		return ""
	}
	return text
}
