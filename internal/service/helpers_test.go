package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"taskplanner/internal/model"
	"taskplanner/internal/repository"
)

var baseTime = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestRepo(t *testing.T) *repository.TaskRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return repository.NewTaskRepository(db)
}

func seed(t *testing.T, repo *repository.TaskRepository, title string, mutate ...func(*model.Task)) model.Task {
	t.Helper()
	task := model.Task{Title: title, Priority: model.PriorityMedium, Tag: model.TagDoNow, CreatedAt: baseTime}
	for _, fn := range mutate {
		fn(&task)
	}
	if err := repo.Create(context.Background(), &task); err != nil {
		t.Fatalf("create %q: %v", title, err)
	}
	return task
}

func dueIn(d time.Duration) func(*model.Task) {
	return func(task *model.Task) {
		due := baseTime.Add(d)
		task.DueAt = &due
	}
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func (r *recordingNotifier) sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.got...)
}

// syncRecorder stands in for the reminder registry.
type syncRecorder struct {
	synced    []uint
	cancelled []uint
}

func (s *syncRecorder) Sync(task model.Task) { s.synced = append(s.synced, task.ID) }

func (s *syncRecorder) CancelAll(taskID uint) { s.cancelled = append(s.cancelled, taskID) }
