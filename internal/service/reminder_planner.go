package service

import (
	"fmt"
	"strings"
	"time"

	"taskplanner/internal/model"
)

// ReminderOffsets are how long before the due time each alarm fires.
var ReminderOffsets = []time.Duration{24 * time.Hour, 12 * time.Hour, time.Hour}

var reminderLabels = []string{"1 day", "12 hours", "1 hour"}

// Trigger is one alarm to register for a task.
type Trigger struct {
	AlarmID     int64
	TaskID      uint
	OffsetIndex int
	At          time.Time
	Title       string
	Message     string
}

// AlarmID identifies the alarm of a task at one offset. Re-registering the
// same id replaces the previous alarm.
func AlarmID(taskID uint, offsetIndex int) int64 {
	return int64(taskID)*10 + int64(offsetIndex)
}

// PlanReminders returns the alarms that must exist for task at now. Done
// tasks, undated tasks and tasks already past due get none, which means
// every alarm of theirs has to be cancelled.
func PlanReminders(task model.Task, now time.Time) []Trigger {
	if task.IsDone || task.DueAt == nil || !task.DueAt.After(now) {
		return nil
	}
	var triggers []Trigger
	for i, offset := range ReminderOffsets {
		at := task.DueAt.Add(-offset)
		if at.Before(now) {
			continue
		}
		triggers = append(triggers, Trigger{
			AlarmID:     AlarmID(task.ID, i),
			TaskID:      task.ID,
			OffsetIndex: i,
			At:          at,
			Title:       fmt.Sprintf("Reminder: %s", strings.TrimSpace(task.Title)),
			Message:     fmt.Sprintf("Task is due in %s", reminderLabels[i]),
		})
	}
	return triggers
}
