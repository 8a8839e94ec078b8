// Package query derives the visible task list from the full table and the
// session's query parameters.
package query

import (
	"sort"
	"strings"
	"time"

	"taskplanner/internal/model"
)

// UpcomingWindow is how far ahead the upcoming group looks.
const UpcomingWindow = 72 * time.Hour

// ComputeView filters by completion, then text, then group, and finally
// sorts. It returns a new slice and never modifies tasks.
func ComputeView(tasks []model.Task, p Params, now time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !matchFilter(task, p.Filter) {
			continue
		}
		if !matchText(task, p.Query) {
			continue
		}
		if !matchGroup(task, p.Group, now) {
			continue
		}
		out = append(out, task)
	}
	sortTasks(out, p.Sort)
	return out
}

func matchFilter(task model.Task, f Filter) bool {
	switch f {
	case FilterActive:
		return !task.IsDone
	case FilterDone:
		return task.IsDone
	default:
		return true
	}
}

func matchText(task model.Task, q string) bool {
	if strings.TrimSpace(q) == "" {
		return true
	}
	needle := strings.ToLower(q)
	return strings.Contains(strings.ToLower(task.Title), needle) ||
		strings.Contains(strings.ToLower(task.Note), needle)
}

func matchGroup(task model.Task, g Group, now time.Time) bool {
	switch g {
	case GroupUpcoming:
		if task.DueAt == nil {
			return false
		}
		return !task.DueAt.Before(now) && !task.DueAt.After(now.Add(UpcomingWindow))
	case GroupDoNow:
		return task.Tag == model.TagDoNow
	case GroupSchedule:
		return task.Tag == model.TagSchedule
	case GroupDelegate:
		return task.Tag == model.TagDelegate
	case GroupEliminate:
		return task.Tag == model.TagEliminate
	default:
		return true
	}
}

func sortTasks(tasks []model.Task, s Sort) {
	var less func(a, b *model.Task) bool
	switch s {
	case SortCreatedAsc:
		less = func(a, b *model.Task) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case SortDueAsc:
		less = func(a, b *model.Task) bool { return dueLess(a, b, false) }
	case SortDueDesc:
		less = func(a, b *model.Task) bool { return dueLess(a, b, true) }
	case SortPriorityDesc:
		less = func(a, b *model.Task) bool {
			if la, lb := a.Priority.Level(), b.Priority.Level(); la != lb {
				return la > lb
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	case SortPriorityAsc:
		less = func(a, b *model.Task) bool {
			if la, lb := a.Priority.Level(), b.Priority.Level(); la != lb {
				return la < lb
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	default:
		less = func(a, b *model.Task) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(&tasks[i], &tasks[j])
	})
}

// dueLess orders open tasks before done ones and dated before undated,
// then by due time, then newest first.
func dueLess(a, b *model.Task, descending bool) bool {
	if a.IsDone != b.IsDone {
		return !a.IsDone
	}
	if (a.DueAt == nil) != (b.DueAt == nil) {
		return a.DueAt != nil
	}
	if a.DueAt != nil && !a.DueAt.Equal(*b.DueAt) {
		if descending {
			return a.DueAt.After(*b.DueAt)
		}
		return a.DueAt.Before(*b.DueAt)
	}
	return a.CreatedAt.After(b.CreatedAt)
}
