package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskplanner/internal/model"
	"taskplanner/internal/repository"
	"taskplanner/internal/service"
)

func (b *Bot) handlePlan(ctx context.Context, chatID int64) error {
	if err := b.svc.Plans.Load(ctx); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load the plan: %s", escape(err.Error())))
	}
	return b.sendText(chatID, formatPlan("🎯 <b>Today's plan</b>", b.svc.Plans.Today()))
}

func (b *Bot) handleTomorrow(ctx context.Context, chatID int64) error {
	plan, err := b.svc.Plans.TomorrowPlan(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load the plan: %s", escape(err.Error())))
	}
	return b.sendText(chatID, formatPlan("🌙 <b>Tomorrow's plan</b>", plan))
}

// handlePlanSet takes "[today|tomorrow|yyyy-mm-dd] id id ...". The date
// defaults to tomorrow; ids are ranked in the order given.
func (b *Bot) handlePlanSet(ctx context.Context, chatID int64, args string) error {
	fields := strings.Fields(args)
	date := b.svc.Plans.TomorrowKey()
	if len(fields) > 0 {
		switch first := strings.ToLower(fields[0]); {
		case first == "today":
			date = b.svc.Plans.TodayKey()
			fields = fields[1:]
		case first == "tomorrow":
			fields = fields[1:]
		case strings.Contains(first, "-"):
			date = first
			fields = fields[1:]
		}
	}
	if len(fields) == 0 {
		return b.sendText(chatID, fmt.Sprintf("Usage: /planset [today|tomorrow|yyyy-mm-dd] id id ... (up to %d tasks in order)", service.MaxPlanSize))
	}

	selected := make([]model.Task, 0, len(fields))
	for _, raw := range fields {
		id, err := parseID(strings.Trim(raw, ","))
		if err != nil {
			return b.sendText(chatID, fmt.Sprintf("%q is not a task id.", escape(raw)))
		}
		selected = append(selected, model.Task{ID: id})
	}

	plan, err := b.svc.Plans.SetPlan(ctx, date, selected)
	switch {
	case errors.Is(err, service.ErrPlanCapacity):
		return b.sendText(chatID, fmt.Sprintf("A plan holds at most %d tasks.", service.MaxPlanSize))
	case errors.Is(err, service.ErrValidation):
		return b.sendText(chatID, "Date must look like 2025-11-30.")
	case errors.Is(err, repository.ErrNotFound):
		return b.sendText(chatID, "One of the tasks does not exist; the plan was not changed.")
	case err != nil:
		return b.sendText(chatID, fmt.Sprintf("Could not save the plan: %s", escape(err.Error())))
	}
	return b.sendText(chatID, formatPlan(fmt.Sprintf("🎯 <b>Plan for %s</b>", date), plan))
}

func (b *Bot) handleUnplan(ctx context.Context, chatID int64, args string) error {
	taskID, err := parseID(args)
	if err != nil {
		return b.sendText(chatID, "Give the task id: /unplan 12")
	}
	if err := b.svc.Plans.RemoveFromPlan(ctx, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.sendText(chatID, "Task not found.")
		}
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	return b.sendText(chatID, fmt.Sprintf("Task #%d removed from its plan.", taskID))
}

func (b *Bot) handleCalendar(ctx context.Context, chatID int64, args string) error {
	day := b.now()
	if args != "" {
		parsed, err := time.ParseInLocation(service.DateLayout, args, day.Location())
		if err != nil {
			return b.sendText(chatID, "Date must look like 2025-11-30.")
		}
		day = parsed
	}
	tasks, err := b.svc.Calendar.TasksForDay(ctx, day)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📆 <b>%s</b>\n", day.Format("Mon, 02 Jan 2006")))
	if len(tasks) == 0 {
		builder.WriteString("— nothing due")
	}
	now := b.now()
	for _, task := range tasks {
		builder.WriteString(formatTask(task, now))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleDates(ctx context.Context, chatID int64) error {
	dates, err := b.svc.Calendar.DatesWithTasks(ctx)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Error: %s", escape(err.Error())))
	}
	if len(dates) == 0 {
		return b.sendText(chatID, "No task has a due date yet.")
	}
	return b.sendText(chatID, "📆 <b>Days with tasks</b>\n"+strings.Join(dates, "\n"))
}
