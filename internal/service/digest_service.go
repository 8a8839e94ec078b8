package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"taskplanner/internal/model"
	"taskplanner/internal/query"
	"taskplanner/internal/repository"
)

// DigestService builds human-readable summaries for daily notifications.
type DigestService struct {
	taskRepo *repository.TaskRepository
}

func NewDigestService(taskRepo *repository.TaskRepository) *DigestService {
	return &DigestService{taskRepo: taskRepo}
}

// Summary lists today's plan, overdue tasks and what is due in the next 72 hours.
func (s *DigestService) Summary(ctx context.Context, now time.Time) (string, error) {
	plan, err := s.taskRepo.GetByPlanDate(ctx, DateKey(now))
	if err != nil {
		return "", err
	}
	tasks, err := s.taskRepo.ListAll(ctx)
	if err != nil {
		return "", err
	}

	active := query.ComputeView(tasks, query.Params{Filter: query.FilterActive, Sort: query.SortDueAsc}, now)
	var overdue []model.Task
	for _, task := range active {
		if task.DueAt != nil && task.DueAt.Before(now) {
			overdue = append(overdue, task)
		}
	}
	upcoming := query.ComputeView(tasks, query.Params{
		Filter: query.FilterActive,
		Sort:   query.SortDueAsc,
		Group:  query.GroupUpcoming,
	}, now)

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	builder.WriteString("🎯 <b>Today's plan</b>\n")
	if len(plan) == 0 {
		builder.WriteString("— no plan for today, use /plan\n")
	} else {
		for _, task := range plan {
			builder.WriteString(formatPlanned(task))
		}
	}

	if len(overdue) > 0 {
		builder.WriteString("\n⚠️ <b>Overdue</b>\n")
		for _, task := range overdue {
			builder.WriteString(formatTask(task, now))
		}
	}

	builder.WriteString("\n⏳ <b>Next 72 hours</b>\n")
	if len(upcoming) == 0 {
		builder.WriteString("— nothing due\n")
	} else {
		for _, task := range upcoming {
			builder.WriteString(formatTask(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatPlanned(task model.Task) string {
	mark := "▫️"
	if task.IsDone {
		mark = "✅"
	}
	rank := 0
	if task.IvyRank != nil {
		rank = *task.IvyRank
	}
	return fmt.Sprintf("%d. %s %s\n", rank, mark, html.EscapeString(strings.TrimSpace(task.Title)))
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if task.DueAt != nil {
		d := task.DueAt.In(now.Location())
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= 24*time.Hour:
			icon = "⏳"
		}
	}

	title := html.EscapeString(strings.TrimSpace(task.Title))
	sb.WriteString(fmt.Sprintf("%s %s <i>(%s)</i>", icon, title, strings.ToLower(string(task.Priority))))

	if task.DueAt != nil {
		d := task.DueAt.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s · <b>overdue</b>", d.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s", d.Format("2006-01-02 15:04")))
		}
	}

	if task.Note != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Note))))
	}

	sb.WriteByte('\n')
	return sb.String()
}
