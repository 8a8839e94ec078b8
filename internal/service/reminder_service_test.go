package service

import (
	"context"
	"testing"
	"time"

	"taskplanner/internal/model"
)

func TestPlanRemindersOffsets(t *testing.T) {
	cases := []struct {
		name    string
		due     time.Duration
		offsets []int
	}{
		{"one hour out", time.Hour, []int{2}},
		{"thirteen hours out", 13 * time.Hour, []int{1, 2}},
		{"two days out", 48 * time.Hour, []int{0, 1, 2}},
		{"thirty minutes out", 30 * time.Minute, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			due := baseTime.Add(tc.due)
			task := model.Task{ID: 7, Title: "report", DueAt: &due}
			triggers := PlanReminders(task, baseTime)
			if len(triggers) != len(tc.offsets) {
				t.Fatalf("got %d triggers, want %d", len(triggers), len(tc.offsets))
			}
			for i, tr := range triggers {
				idx := tc.offsets[i]
				if tr.OffsetIndex != idx || tr.AlarmID != AlarmID(7, idx) {
					t.Errorf("trigger %d = %+v", i, tr)
				}
				if !tr.At.Equal(due.Add(-ReminderOffsets[idx])) {
					t.Errorf("trigger %d at %s", i, tr.At)
				}
				if tr.At.Before(baseTime) {
					t.Errorf("trigger %d is in the past", i)
				}
			}
		})
	}
}

func TestPlanRemindersSkipsDoneUndatedAndPastDue(t *testing.T) {
	due := baseTime.Add(48 * time.Hour)
	past := baseTime.Add(-time.Hour)
	for name, task := range map[string]model.Task{
		"done":     {ID: 1, DueAt: &due, IsDone: true},
		"undated":  {ID: 2},
		"past due": {ID: 3, DueAt: &past},
	} {
		if got := PlanReminders(task, baseTime); len(got) != 0 {
			t.Errorf("%s: got %d triggers", name, len(got))
		}
	}
}

func TestAlarmIDsAreDistinctPerTaskAndOffset(t *testing.T) {
	seen := map[int64]bool{}
	for id := uint(1); id <= 50; id++ {
		for i := range ReminderOffsets {
			a := AlarmID(id, i)
			if seen[a] {
				t.Fatalf("alarm id %d reused", a)
			}
			seen[a] = true
		}
	}
}

func newTestReminders(t *testing.T, notifier Notifier) *ReminderService {
	t.Helper()
	sched := NewSchedulerService(time.UTC)
	return NewReminderService(newTestRepo(t), sched, notifier, fixedClock(baseTime))
}

func pendingIDs(s *ReminderService) []int64 {
	var out []int64
	for _, tr := range s.Pending() {
		out = append(out, tr.AlarmID)
	}
	return out
}

func TestSyncIsIdempotent(t *testing.T) {
	s := newTestReminders(t, nil)
	due := baseTime.Add(48 * time.Hour)
	task := model.Task{ID: 4, Title: "taxes", DueAt: &due}

	s.Sync(task)
	first := pendingIDs(s)
	s.Sync(task)
	second := pendingIDs(s)
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("pending = %v then %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("pending changed: %v vs %v", first, second)
		}
	}
	if got := len(s.scheduler.cron.Entries()); got != 3 {
		t.Fatalf("cron entries = %d, want 3", got)
	}
}

func TestSyncCancelsWhenDoneOrUndated(t *testing.T) {
	s := newTestReminders(t, nil)
	due := baseTime.Add(48 * time.Hour)
	task := model.Task{ID: 4, Title: "taxes", DueAt: &due}
	s.Sync(task)

	task.IsDone = true
	s.Sync(task)
	if got := pendingIDs(s); len(got) != 0 {
		t.Fatalf("done task still has alarms %v", got)
	}

	task.IsDone = false
	s.Sync(task)
	task.DueAt = nil
	s.Sync(task)
	if got := pendingIDs(s); len(got) != 0 {
		t.Fatalf("undated task still has alarms %v", got)
	}
	if got := len(s.scheduler.cron.Entries()); got != 0 {
		t.Fatalf("cron entries = %d, want 0", got)
	}
}

func TestCancelSingleOffset(t *testing.T) {
	s := newTestReminders(t, nil)
	due := baseTime.Add(48 * time.Hour)
	s.Sync(model.Task{ID: 9, DueAt: &due})
	s.Cancel(9, 1)
	s.Cancel(9, 1)
	got := pendingIDs(s)
	if len(got) != 2 || got[0] != AlarmID(9, 0) || got[1] != AlarmID(9, 2) {
		t.Fatalf("pending = %v", got)
	}
}

func TestFireNotifiesOnce(t *testing.T) {
	rec := &recordingNotifier{}
	s := newTestReminders(t, rec)
	due := baseTime.Add(time.Hour)
	s.Sync(model.Task{ID: 3, Title: "call bank", DueAt: &due})
	pending := s.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	s.fire(pending[0])
	s.fire(pending[0])

	sent := rec.sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d notifications, want 1", len(sent))
	}
	if sent[0].TaskID != 3 || sent[0].Title != "Reminder: call bank" || sent[0].Body != "Task is due in 1 hour" {
		t.Fatalf("notification = %+v", sent[0])
	}
	if len(s.Pending()) != 0 {
		t.Fatal("fired alarm still pending")
	}
}

func TestRestoreRegistersStoredTasks(t *testing.T) {
	s := newTestReminders(t, nil)
	open := seed(t, s.taskRepo, "open", dueIn(48*time.Hour))
	seed(t, s.taskRepo, "done", dueIn(48*time.Hour), func(task *model.Task) { task.IsDone = true })
	seed(t, s.taskRepo, "someday")

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, tr := range s.Pending() {
		if tr.TaskID != open.ID {
			t.Fatalf("unexpected alarm for task %d", tr.TaskID)
		}
	}
	if len(s.Pending()) != 3 {
		t.Fatalf("pending = %d, want 3", len(s.Pending()))
	}
}
