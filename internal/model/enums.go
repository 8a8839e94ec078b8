package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is a three-level ordered importance.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Level maps the priority onto its total order: LOW < MEDIUM < HIGH.
// Unknown values rank as MEDIUM.
func (p Priority) Level() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	default:
		return 1
	}
}

func ParsePriority(raw string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LOW", "L":
		return PriorityLow, nil
	case "MEDIUM", "M", "":
		return PriorityMedium, nil
	case "HIGH", "H":
		return PriorityHigh, nil
	}
	return "", fmt.Errorf("unknown priority %q", raw)
}

// Tag is the Eisenhower quadrant of a task.
type Tag string

const (
	TagDoNow     Tag = "DO_NOW"
	TagSchedule  Tag = "SCHEDULE"
	TagDelegate  Tag = "DELEGATE"
	TagEliminate Tag = "ELIMINATE"
)

func ParseTag(raw string) (Tag, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.NewReplacer("-", "_", " ", "_").Replace(value)
	switch value {
	case "DO_NOW", "DONOW", "":
		return TagDoNow, nil
	case "SCHEDULE":
		return TagSchedule, nil
	case "DELEGATE":
		return TagDelegate, nil
	case "ELIMINATE":
		return TagEliminate, nil
	}
	return "", fmt.Errorf("unknown tag %q", raw)
}

// RepeatType is the unit of a recurrence rule.
type RepeatType string

const (
	RepeatDaily   RepeatType = "DAILY"
	RepeatWeekly  RepeatType = "WEEKLY"
	RepeatMonthly RepeatType = "MONTHLY"
	RepeatYearly  RepeatType = "YEARLY"
)

func ParseRepeatType(raw string) (RepeatType, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DAILY", "DAY":
		return RepeatDaily, nil
	case "WEEKLY", "WEEK":
		return RepeatWeekly, nil
	case "MONTHLY", "MONTH":
		return RepeatMonthly, nil
	case "YEARLY", "YEAR":
		return RepeatYearly, nil
	}
	return "", fmt.Errorf("unknown repeat type %q", raw)
}

// Recurrence describes how a task repeats: every Interval units of Type.
type Recurrence struct {
	Type     RepeatType
	Interval int
}

// Next returns the occurrence following t.
func (r Recurrence) Next(t time.Time) time.Time {
	n := r.Interval
	if n < 1 {
		n = 1
	}
	switch r.Type {
	case RepeatDaily:
		return t.AddDate(0, 0, n)
	case RepeatWeekly:
		return t.AddDate(0, 0, 7*n)
	case RepeatMonthly:
		return t.AddDate(0, n, 0)
	case RepeatYearly:
		return t.AddDate(n, 0, 0)
	default:
		return t
	}
}
