package service

import (
	"context"
	"errors"
	"testing"

	"taskplanner/internal/model"
	"taskplanner/internal/repository"
)

func planIDs(tasks []model.Task) []uint {
	out := make([]uint, len(tasks))
	for i, task := range tasks {
		out[i] = task.ID
	}
	return out
}

func rankOf(t *testing.T, svc *PlanService, id uint) *int {
	t.Helper()
	task, err := svc.taskRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get %d: %v", id, err)
	}
	return task.IvyRank
}

func TestSetPlanRanksBySelectionAndDropsUnselected(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewPlanService(repo, fixedClock(baseTime))
	t1 := seed(t, repo, "T1")
	t2 := seed(t, repo, "T2")
	t3 := seed(t, repo, "T3")
	date := "2024-05-11"

	if _, err := svc.SetPlan(ctx, date, []model.Task{t1, t2}); err != nil {
		t.Fatalf("first plan: %v", err)
	}
	plan, err := svc.SetPlan(ctx, date, []model.Task{t3, t1})
	if err != nil {
		t.Fatalf("second plan: %v", err)
	}

	if got := planIDs(plan); len(got) != 2 || got[0] != t3.ID || got[1] != t1.ID {
		t.Fatalf("plan = %v, want [%d %d]", got, t3.ID, t1.ID)
	}
	if r := rankOf(t, svc, t3.ID); r == nil || *r != 1 {
		t.Fatalf("T3 rank = %v, want 1", r)
	}
	if r := rankOf(t, svc, t1.ID); r == nil || *r != 2 {
		t.Fatalf("T1 rank = %v, want 2", r)
	}
	cleared, _ := repo.GetByID(ctx, t2.ID)
	if cleared.IvyDate != nil || cleared.IvyRank != nil {
		t.Fatalf("T2 still planned: date=%v rank=%v", cleared.IvyDate, cleared.IvyRank)
	}
}

func TestSetPlanRejectsOverCapacity(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewPlanService(repo, fixedClock(baseTime))
	var tasks []model.Task
	for i := 0; i < MaxPlanSize+1; i++ {
		tasks = append(tasks, seed(t, repo, "task"))
	}
	date := "2024-05-11"
	if _, err := svc.SetPlan(ctx, date, tasks[:2]); err != nil {
		t.Fatalf("seed plan: %v", err)
	}

	_, err := svc.SetPlan(ctx, date, tasks)
	if !errors.Is(err, ErrPlanCapacity) {
		t.Fatalf("err = %v, want ErrPlanCapacity", err)
	}
	plan, _ := svc.PlanForDate(ctx, date)
	if got := planIDs(plan); len(got) != 2 || got[0] != tasks[0].ID {
		t.Fatalf("rejected call changed the plan: %v", got)
	}
}

func TestSetPlanRanksAreDense(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewPlanService(repo, fixedClock(baseTime))
	var tasks []model.Task
	for i := 0; i < MaxPlanSize; i++ {
		tasks = append(tasks, seed(t, repo, "task"))
	}

	selections := [][]int{{5, 0, 3}, {0}, {1, 2, 3, 4, 5, 0}, {4, 4, 2}, {}}
	for _, sel := range selections {
		var picked []model.Task
		distinct := map[uint]bool{}
		for _, i := range sel {
			picked = append(picked, tasks[i])
			distinct[tasks[i].ID] = true
		}
		plan, err := svc.SetPlan(ctx, "2024-05-12", picked)
		if err != nil {
			t.Fatalf("selection %v: %v", sel, err)
		}
		if len(plan) != len(distinct) {
			t.Fatalf("selection %v: plan size %d, want %d", sel, len(plan), len(distinct))
		}
		for i, task := range plan {
			if task.IvyRank == nil || *task.IvyRank != i+1 {
				t.Fatalf("selection %v: position %d has rank %v", sel, i, task.IvyRank)
			}
		}
	}
}

func TestSetPlanUnknownTaskRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewPlanService(repo, fixedClock(baseTime))
	t1 := seed(t, repo, "T1")

	_, err := svc.SetPlan(ctx, "2024-05-11", []model.Task{t1, {ID: 999}})
	if err == nil {
		t.Fatal("expected error for unknown task")
	}
	if r := rankOf(t, svc, t1.ID); r != nil {
		t.Fatalf("T1 rank = %d after rollback", *r)
	}
}

func TestSetPlanValidatesDate(t *testing.T) {
	svc := NewPlanService(newTestRepo(t), fixedClock(baseTime))
	if _, err := svc.SetPlan(context.Background(), "11/05/2024", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestTomorrowPlanAndTodayCache(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewPlanService(repo, fixedClock(baseTime))
	a := seed(t, repo, "a")
	b := seed(t, repo, "b")

	if svc.TomorrowKey() != "2024-05-11" || svc.TodayKey() != "2024-05-10" {
		t.Fatalf("keys = %s / %s", svc.TodayKey(), svc.TomorrowKey())
	}
	if _, err := svc.SetTomorrowPlan(ctx, []model.Task{b, a}); err != nil {
		t.Fatalf("tomorrow: %v", err)
	}
	tomorrow, err := svc.TomorrowPlan(ctx)
	if err != nil || len(tomorrow) != 2 || tomorrow[0].ID != b.ID {
		t.Fatalf("tomorrow plan = %v, %v", planIDs(tomorrow), err)
	}
	if len(svc.Today()) != 0 {
		t.Fatal("today cache picked up tomorrow's plan")
	}

	// a moves from tomorrow into today
	if _, err := svc.SetPlan(ctx, svc.TodayKey(), []model.Task{a}); err != nil {
		t.Fatalf("today: %v", err)
	}
	if got := planIDs(svc.Today()); len(got) != 1 || got[0] != a.ID {
		t.Fatalf("today cache = %v", got)
	}

	if err := svc.RemoveFromPlan(ctx, a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(svc.Today()) != 0 {
		t.Fatal("today cache not refreshed after removal")
	}
	tomorrow, _ = svc.TomorrowPlan(ctx)
	if got := planIDs(tomorrow); len(got) != 1 || got[0] != b.ID {
		t.Fatalf("tomorrow plan after move = %v", got)
	}
}

func assertDenseRanks(t *testing.T, plan []model.Task, want ...uint) {
	t.Helper()
	if got := planIDs(plan); len(got) != len(want) {
		t.Fatalf("plan = %v, want %v", got, want)
	}
	for i, task := range plan {
		if task.ID != want[i] || task.IvyRank == nil || *task.IvyRank != i+1 {
			t.Fatalf("slot %d = id %d rank %v, want id %d rank %d", i, task.ID, task.IvyRank, want[i], i+1)
		}
	}
}

func TestSetPlanRenumbersVacatedDate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewPlanService(repo, fixedClock(baseTime))
	a := seed(t, repo, "a")
	b := seed(t, repo, "b")
	c := seed(t, repo, "c")

	if _, err := svc.SetPlan(ctx, "2024-05-11", []model.Task{a, b, c}); err != nil {
		t.Fatalf("first plan: %v", err)
	}
	moved, err := svc.SetPlan(ctx, "2024-05-12", []model.Task{a})
	if err != nil {
		t.Fatalf("second plan: %v", err)
	}
	assertDenseRanks(t, moved, a.ID)

	left, err := svc.PlanForDate(ctx, "2024-05-11")
	if err != nil {
		t.Fatalf("plan for date: %v", err)
	}
	assertDenseRanks(t, left, b.ID, c.ID)
}

func TestRemoveFromPlanRenumbers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewPlanService(repo, fixedClock(baseTime))
	a := seed(t, repo, "a")
	b := seed(t, repo, "b")
	c := seed(t, repo, "c")

	if _, err := svc.SetPlan(ctx, svc.TodayKey(), []model.Task{a, b, c}); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if err := svc.RemoveFromPlan(ctx, b.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	assertDenseRanks(t, svc.Today(), a.ID, c.ID)

	if err := svc.RemoveFromPlan(ctx, 99); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing task err = %v", err)
	}
}
