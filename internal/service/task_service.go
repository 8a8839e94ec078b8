package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"taskplanner/internal/model"
	"taskplanner/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title    string
	Note     string
	DueAt    *time.Time
	Priority model.Priority
	Tag      model.Tag
	Repeat   *model.Recurrence
}

// ReminderSyncer keeps alarms in line with stored tasks.
type ReminderSyncer interface {
	Sync(task model.Task)
	CancelAll(taskID uint)
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo  *repository.TaskRepository
	reminders ReminderSyncer
	now       func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, reminders ReminderSyncer, now func() time.Time) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{taskRepo: taskRepo, reminders: reminders, now: now}
}

func (s *TaskService) Add(ctx context.Context, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	task := model.Task{
		Title:     title,
		Note:      strings.TrimSpace(input.Note),
		DueAt:     input.DueAt,
		Priority:  input.Priority,
		Tag:       input.Tag,
		CreatedAt: s.now(),
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.Tag == "" {
		task.Tag = model.TagDoNow
	}
	if input.Repeat != nil {
		repeat := input.Repeat.Type
		task.RepeatType = &repeat
		task.RepeatInterval = input.Repeat.Interval
		if task.RepeatInterval < 1 {
			task.RepeatInterval = 1
		}
	}

	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}
	s.syncReminders(task)
	return &task, nil
}

// Update replaces the stored record; ID and CreatedAt are kept as stored.
func (s *TaskService) Update(ctx context.Context, task *model.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return fmt.Errorf("update task %d: %w", task.ID, err)
	}
	s.syncReminders(*task)
	return nil
}

// ToggleDone flips completion. Completing a recurring task that has a due
// time also creates its next occurrence.
func (s *TaskService) ToggleDone(ctx context.Context, id uint) (*model.Task, error) {
	var (
		task *model.Task
		next *model.Task
	)
	err := s.taskRepo.Transaction(ctx, func(tx *repository.TaskRepository) error {
		var err error
		task, err = tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		task.IsDone = !task.IsDone
		if err := tx.Update(ctx, task); err != nil {
			return err
		}
		next = s.nextOccurrence(*task)
		if next == nil {
			return nil
		}
		return tx.Create(ctx, next)
	})
	if err != nil {
		return nil, fmt.Errorf("toggle task %d: %w", id, err)
	}

	s.syncReminders(*task)
	if next != nil {
		log.Printf("[info] task %d repeats as task %d due %s", task.ID, next.ID, next.DueAt.Format(time.RFC3339))
		s.syncReminders(*next)
	}
	return task, nil
}

// Delete removes the task, renumbers the plan it was part of and cancels
// its reminders.
func (s *TaskService) Delete(ctx context.Context, id uint) error {
	err := s.taskRepo.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		if task.IvyDate == nil {
			return nil
		}
		return tx.CompactPlan(ctx, *task.IvyDate)
	})
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if s.reminders != nil {
		s.reminders.CancelAll(id)
	}
	return nil
}

func (s *TaskService) Get(ctx context.Context, id uint) (*model.Task, error) {
	return s.taskRepo.GetByID(ctx, id)
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.taskRepo.ListAll(ctx)
}

func (s *TaskService) nextOccurrence(task model.Task) *model.Task {
	rule, ok := task.Recurrence()
	if !ok || !task.IsDone || task.DueAt == nil {
		return nil
	}
	due := rule.Next(*task.DueAt)
	next := model.Task{
		Title:          task.Title,
		Note:           task.Note,
		DueAt:          &due,
		Priority:       task.Priority,
		Tag:            task.Tag,
		RepeatType:     task.RepeatType,
		RepeatInterval: rule.Interval,
		CreatedAt:      s.now(),
	}
	return &next
}

func (s *TaskService) syncReminders(task model.Task) {
	if s.reminders != nil {
		s.reminders.Sync(task)
	}
}
