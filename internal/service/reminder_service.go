package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskplanner/internal/model"
	"taskplanner/internal/repository"
)

const notifyTimeout = 10 * time.Second

// ReminderService keeps one cron entry per pending alarm and delivers
// fired alarms through the notifier.
type ReminderService struct {
	taskRepo  *repository.TaskRepository
	scheduler *SchedulerService
	notifier  Notifier
	now       func() time.Time

	mu      sync.Mutex
	entries map[int64]alarmEntry
}

type alarmEntry struct {
	entryID cron.EntryID
	trigger Trigger
}

func NewReminderService(taskRepo *repository.TaskRepository, scheduler *SchedulerService, notifier Notifier, now func() time.Time) *ReminderService {
	if now == nil {
		now = time.Now
	}
	return &ReminderService{
		taskRepo:  taskRepo,
		scheduler: scheduler,
		notifier:  notifier,
		now:       now,
		entries:   make(map[int64]alarmEntry),
	}
}

// SetNotifier swaps the delivery target; used once the bot is up.
func (s *ReminderService) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Register schedules trigger, replacing any alarm with the same id.
func (s *ReminderService) Register(trigger Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(trigger.AlarmID)
	entryID := s.scheduler.ScheduleAt(trigger.At, func() { s.fire(trigger) })
	s.entries[trigger.AlarmID] = alarmEntry{entryID: entryID, trigger: trigger}
}

// Cancel removes the alarm of taskID at offsetIndex; missing alarms are ignored.
func (s *ReminderService) Cancel(taskID uint, offsetIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(AlarmID(taskID, offsetIndex))
}

// CancelAll removes every alarm of taskID.
func (s *ReminderService) CancelAll(taskID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range ReminderOffsets {
		s.cancelLocked(AlarmID(taskID, i))
	}
}

// Sync brings the alarms of task in line with its current state. Running it
// twice for the same task leaves the same alarm set.
func (s *ReminderService) Sync(task model.Task) {
	s.CancelAll(task.ID)
	for _, trigger := range PlanReminders(task, s.now()) {
		s.Register(trigger)
	}
}

// Restore re-registers alarms for every stored task, e.g. after a restart.
func (s *ReminderService) Restore(ctx context.Context) error {
	tasks, err := s.taskRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}
	for _, task := range tasks {
		s.Sync(task)
	}
	log.Printf("[info] restored reminders: %d pending", len(s.Pending()))
	return nil
}

// Pending returns the triggers that have not fired yet, ordered by alarm id.
func (s *ReminderService) Pending() []Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Trigger, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.trigger)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AlarmID < out[j].AlarmID })
	return out
}

func (s *ReminderService) cancelLocked(alarmID int64) {
	entry, ok := s.entries[alarmID]
	if !ok {
		return
	}
	s.scheduler.Remove(entry.entryID)
	delete(s.entries, alarmID)
}

func (s *ReminderService) fire(trigger Trigger) {
	s.mu.Lock()
	entry, ok := s.entries[trigger.AlarmID]
	if !ok || !entry.trigger.At.Equal(trigger.At) {
		// replaced or cancelled after cron picked it up
		s.mu.Unlock()
		return
	}
	s.scheduler.Remove(entry.entryID)
	delete(s.entries, trigger.AlarmID)
	notifier := s.notifier
	s.mu.Unlock()

	if notifier == nil {
		log.Printf("[info] reminder for task %d: %s", trigger.TaskID, trigger.Message)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	err := notifier.Notify(ctx, Notification{
		TaskID: trigger.TaskID,
		Title:  trigger.Title,
		Body:   trigger.Message,
	})
	if err != nil {
		log.Printf("send reminder for task %d: %v", trigger.TaskID, err)
	}
}
