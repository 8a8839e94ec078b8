package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskplanner/internal/model"
	"taskplanner/internal/repository"
)

// MaxPlanSize caps the number of tasks in one daily plan.
const MaxPlanSize = 6

// DateLayout is the calendar key format of a plan (yyyy-MM-dd).
const DateLayout = "2006-01-02"

// DateKey formats t as a plan key in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// PlanService manages the ranked daily plans (Ivy Lee method).
type PlanService struct {
	taskRepo *repository.TaskRepository
	now      func() time.Time

	mu    sync.RWMutex
	today []model.Task
}

func NewPlanService(taskRepo *repository.TaskRepository, now func() time.Time) *PlanService {
	if now == nil {
		now = time.Now
	}
	return &PlanService{taskRepo: taskRepo, now: now}
}

func (s *PlanService) TodayKey() string {
	return DateKey(s.now())
}

func (s *PlanService) TomorrowKey() string {
	return DateKey(s.now().AddDate(0, 0, 1))
}

// PlanForDate returns the plan of date ordered by rank.
func (s *PlanService) PlanForDate(ctx context.Context, date string) ([]model.Task, error) {
	if err := validateDateKey(date); err != nil {
		return nil, err
	}
	return s.taskRepo.GetByPlanDate(ctx, date)
}

// SetPlan makes selected the plan of date. Ranks follow the selection order
// starting at 1; tasks previously planned for date but not selected are
// removed from the plan. A selected task planned for another date moves here
// and that date is renumbered. Duplicate selections count once. The whole
// call is rejected when more than MaxPlanSize distinct tasks are selected or
// any of them does not exist.
func (s *PlanService) SetPlan(ctx context.Context, date string, selected []model.Task) ([]model.Task, error) {
	if err := validateDateKey(date); err != nil {
		return nil, err
	}

	order := make([]uint, 0, len(selected))
	chosen := make(map[uint]bool, len(selected))
	for _, task := range selected {
		if chosen[task.ID] {
			continue
		}
		chosen[task.ID] = true
		order = append(order, task.ID)
	}
	if len(order) > MaxPlanSize {
		return nil, fmt.Errorf("%w: %d tasks selected, at most %d", ErrPlanCapacity, len(order), MaxPlanSize)
	}

	err := s.taskRepo.Transaction(ctx, func(tx *repository.TaskRepository) error {
		existing, err := tx.GetByPlanDate(ctx, date)
		if err != nil {
			return err
		}
		for _, task := range existing {
			if chosen[task.ID] {
				continue
			}
			if err := tx.ClearPlanSlot(ctx, task.ID); err != nil {
				return err
			}
		}
		var vacated []string
		for i, id := range order {
			task, err := tx.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if task.IvyDate != nil && *task.IvyDate != date {
				vacated = append(vacated, *task.IvyDate)
			}
			if err := tx.SetPlanSlot(ctx, id, date, i+1); err != nil {
				return err
			}
		}
		for _, other := range vacated {
			if err := tx.CompactPlan(ctx, other); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set plan %s: %w", date, err)
	}

	plan, err := s.taskRepo.GetByPlanDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if date == s.TodayKey() {
		s.setToday(plan)
	}
	return plan, nil
}

// SetTomorrowPlan is the evening ritual: pick tomorrow's tasks.
func (s *PlanService) SetTomorrowPlan(ctx context.Context, selected []model.Task) ([]model.Task, error) {
	return s.SetPlan(ctx, s.TomorrowKey(), selected)
}

func (s *PlanService) TomorrowPlan(ctx context.Context) ([]model.Task, error) {
	return s.taskRepo.GetByPlanDate(ctx, s.TomorrowKey())
}

// RemoveFromPlan drops one task from its plan and closes the rank gap it
// leaves behind.
func (s *PlanService) RemoveFromPlan(ctx context.Context, id uint) error {
	err := s.taskRepo.Transaction(ctx, func(tx *repository.TaskRepository) error {
		task, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.ClearPlanSlot(ctx, id); err != nil {
			return err
		}
		if task.IvyDate == nil {
			return nil
		}
		return tx.CompactPlan(ctx, *task.IvyDate)
	})
	if err != nil {
		return fmt.Errorf("remove task %d from plan: %w", id, err)
	}
	return s.Load(ctx)
}

// Load refreshes the cached plan for today.
func (s *PlanService) Load(ctx context.Context) error {
	plan, err := s.taskRepo.GetByPlanDate(ctx, s.TodayKey())
	if err != nil {
		return err
	}
	s.setToday(plan)
	return nil
}

// Today returns the cached plan for today as of the last Load or SetPlan.
func (s *PlanService) Today() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Task, len(s.today))
	copy(out, s.today)
	return out
}

func (s *PlanService) setToday(plan []model.Task) {
	s.mu.Lock()
	s.today = plan
	s.mu.Unlock()
}

func validateDateKey(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: plan date %q is not yyyy-MM-dd", ErrValidation, date)
	}
	return nil
}
