package service

import (
	"context"
	"time"

	"taskplanner/internal/model"
	"taskplanner/internal/repository"
)

// CalendarService answers day-oriented questions about due tasks.
type CalendarService struct {
	taskRepo *repository.TaskRepository
	loc      *time.Location
}

func NewCalendarService(taskRepo *repository.TaskRepository, loc *time.Location) *CalendarService {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarService{taskRepo: taskRepo, loc: loc}
}

// TasksForDay returns the tasks due on the calendar day of day, ordered by due time.
func (s *CalendarService) TasksForDay(ctx context.Context, day time.Time) ([]model.Task, error) {
	day = day.In(s.loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.loc)
	return s.taskRepo.GetByDueRange(ctx, start, start.AddDate(0, 0, 1))
}

// DatesWithTasks lists the days that have at least one due task.
func (s *CalendarService) DatesWithTasks(ctx context.Context) ([]string, error) {
	return s.taskRepo.DistinctDueDates(ctx, s.loc)
}
