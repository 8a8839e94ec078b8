package model

import "time"

// Task represents a single item in the planner.
type Task struct {
	ID             uint   `gorm:"primaryKey"`
	Title          string `gorm:"not null"`
	Note           string
	IsDone         bool `gorm:"default:false;index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DueAt          *time.Time  `gorm:"index"`
	Priority       Priority    `gorm:"size:16;default:MEDIUM"`
	Tag            Tag         `gorm:"size:16;default:DO_NOW"`
	RepeatType     *RepeatType `gorm:"size:16"`
	RepeatInterval int         `gorm:"default:1"`
	IvyDate        *string     `gorm:"size:10;index"` // yyyy-MM-dd
	IvyRank        *int        // 1..6, set together with IvyDate
}

// HasDue reports whether the task carries a due time.
func (t Task) HasDue() bool {
	return t.DueAt != nil
}

// Planned reports whether the task belongs to a daily plan.
func (t Task) Planned() bool {
	return t.IvyDate != nil
}

// Recurrence returns the repeat rule of the task, if any.
func (t Task) Recurrence() (Recurrence, bool) {
	if t.RepeatType == nil {
		return Recurrence{}, false
	}
	interval := t.RepeatInterval
	if interval < 1 {
		interval = 1
	}
	return Recurrence{Type: *t.RepeatType, Interval: interval}, true
}
