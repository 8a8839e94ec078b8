package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskplanner/internal/query"
	"taskplanner/internal/repository"
	"taskplanner/internal/service"
)

const (
	cbDonePrefix   = "done:"
	cbDeletePrefix = "delete:"
)

const viewTimeout = 5 * time.Second

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.sendText(chatID, "Usage: /add title | note | due | priority | tag | repeat\n"+
			"Example: <code>/add Pay rent | | 2024-06-01 09:00 | high | schedule | monthly</code>")
	}
	input, err := parseTaskLine(args, b.now().Location())
	if err != nil {
		return b.sendText(chatID, escape(err.Error()))
	}
	return b.createTask(ctx, chatID, input)
}

func (b *Bot) createTask(ctx context.Context, chatID int64, input service.TaskInput) error {
	task, err := b.svc.Tasks.Add(ctx, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the task: %s", escape(err.Error())))
	}
	log.Printf("[info] task created id=%d chat=%d", task.ID, chatID)

	var summary strings.Builder
	summary.WriteString("✅ <b>Task saved</b>\n")
	summary.WriteString(formatTask(*task, b.now()))
	return b.sendText(chatID, strings.TrimSpace(summary.String()))
}

// sendTaskList renders the chat's live view once it reflects every write
// made so far.
func (b *Bot) sendTaskList(ctx context.Context, chatID int64) error {
	view, err := b.viewFor(chatID)
	if err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, viewTimeout)
	defer cancel()
	res, err := view.WaitFor(waitCtx, b.taskRepo.Seq())
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Tasks</b> · %s\n", formatParams(res.Params)))
	if len(res.Tasks) == 0 {
		builder.WriteString("\nNothing here. Add a task with /newtask or /add.")
		return b.sendText(chatID, builder.String())
	}
	builder.WriteString("Tap a button to complete a task.\n\n")

	now := b.now()
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range res.Tasks {
		builder.WriteString(formatTask(task, now))
		label := fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 20))
		if task.IsDone {
			label = fmt.Sprintf("↩️ #%d · %s", task.ID, shortTitle(task.Title, 20))
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbDonePrefix, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, task.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, args string) error {
	view, err := b.viewFor(chatID)
	if err != nil {
		return err
	}
	view.SetQuery(args)
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleFilter(ctx context.Context, chatID int64, args string) error {
	f, err := query.ParseFilter(args)
	if args == "" || err != nil {
		return b.sendText(chatID, "Usage: /filter "+joinNames(query.Filters()))
	}
	view, err := b.viewFor(chatID)
	if err != nil {
		return err
	}
	view.SetFilter(f)
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleSort(ctx context.Context, chatID int64, args string) error {
	s, err := query.ParseSort(args)
	if args == "" || err != nil {
		return b.sendText(chatID, "Usage: /sort "+joinNames(query.Sorts()))
	}
	view, err := b.viewFor(chatID)
	if err != nil {
		return err
	}
	view.SetSort(s)
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleGroup(ctx context.Context, chatID int64, args string) error {
	g, err := query.ParseGroup(args)
	if args == "" || err != nil {
		return b.sendText(chatID, "Usage: /group "+joinNames(query.Groups()))
	}
	view, err := b.viewFor(chatID)
	if err != nil {
		return err
	}
	view.SetGroup(g)
	return b.sendTaskList(ctx, chatID)
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.sendText(chatID, "Give the task id: /done 12")
	}
	taskID, err := parseID(args)
	if err != nil {
		return b.sendText(chatID, "Task id must be a number.")
	}
	return b.toggleTask(ctx, chatID, taskID)
}

func (b *Bot) toggleTask(ctx context.Context, chatID int64, taskID uint) error {
	task, err := b.svc.Tasks.ToggleDone(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(chatID, "Task not found.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	log.Printf("[info] task toggled id=%d done=%t", task.ID, task.IsDone)
	if task.IsDone {
		return b.sendText(chatID, fmt.Sprintf("✅ «%s» done.", escape(normalizeTitle(task.Title))))
	}
	return b.sendText(chatID, fmt.Sprintf("↩️ «%s» is open again.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) error {
	if args == "" {
		return b.sendText(chatID, "Give the task id: /delete 12")
	}
	taskID, err := parseID(args)
	if err != nil {
		return b.sendText(chatID, "Task id must be a number.")
	}
	return b.askDeleteConfirmation(ctx, chatID, taskID)
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, taskID uint) error {
	task, err := b.svc.Tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(chatID, "Task not found.")
		}
		return err
	}

	text := fmt.Sprintf("Delete task \"%s\" (#%d)?", escape(normalizeTitle(task.Title)), task.ID)
	b.setConfirmation(chatID, confirmationRequest{taskID: task.ID})
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	chatID := msg.Chat.ID
	switch text := strings.TrimSpace(msg.Text); {
	case isConfirmInput(text):
		b.clearConfirmation(chatID)
		return b.deleteTask(ctx, chatID, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(chatID)
		return b.sendText(chatID, "Kept.")
	default:
		return b.sendWithReplyMarkup(chatID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, taskID uint) error {
	task, err := b.svc.Tasks.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(chatID, "Task not found or already deleted.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	if err := b.svc.Tasks.Delete(ctx, taskID); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not delete the task: %s", escape(err.Error())))
	}
	log.Printf("[info] task deleted id=%d", task.ID)
	return b.sendText(chatID, fmt.Sprintf("🗑 Task \"%s\" deleted.", escape(normalizeTitle(task.Title))))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	b.ack(cb)
	if !b.allowed(chatID) {
		return nil
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbDonePrefix):
		log.Printf("[info] callback toggle chat=%d task=%s", chatID, strings.TrimPrefix(data, cbDonePrefix))
		taskID, err := parseID(strings.TrimPrefix(data, cbDonePrefix))
		if err != nil {
			return nil
		}
		return b.toggleTask(ctx, chatID, taskID)
	case strings.HasPrefix(data, cbDeletePrefix):
		log.Printf("[info] callback delete request chat=%d task=%s", chatID, strings.TrimPrefix(data, cbDeletePrefix))
		taskID, err := parseID(strings.TrimPrefix(data, cbDeletePrefix))
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, chatID, taskID)
	default:
		return nil
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	chatID := msg.Chat.ID
	switch strings.TrimSpace(strings.ToLower(msg.Text)) {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(chatID)
	case strings.ToLower(menuLabelTasks):
		return true, b.sendTaskList(ctx, chatID)
	case strings.ToLower(menuLabelPlan):
		return true, b.handlePlan(ctx, chatID)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(chatID)
	default:
		return false, nil
	}
}
