// Package focus implements the Pomodoro focus/break cycle.
package focus

import (
	"fmt"
	"time"
)

// Phase of a focus session.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFocus
	PhaseBreak
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFocus:
		return "focus"
	case PhaseBreak:
		return "break"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// AlertWindow is how long after a phase boundary JustAlerted reports true.
const AlertWindow = 500 * time.Millisecond

// State is an observable copy of a session.
type State struct {
	TaskTitle   string
	Phase       Phase
	Remaining   time.Duration
	CurrentSet  int
	TotalSets   int
	Running     bool
	Paused      bool
	LastAlertAt time.Time
}

// JustAlerted reports whether a phase boundary happened within AlertWindow of now.
func (s State) JustAlerted(now time.Time) bool {
	if s.LastAlertAt.IsZero() {
		return false
	}
	since := now.Sub(s.LastAlertAt)
	return since >= 0 && since <= AlertWindow
}

// Alert is emitted exactly once per phase boundary.
type Alert struct {
	Seq      int
	At       time.Time
	From     Phase
	To       Phase
	Set      int // set number after the transition
	Finished bool
}

// Machine is the focus state machine without any clock of its own.
// Callers feed elapsed time through Advance.
type Machine struct {
	state    State
	focusDur time.Duration
	breakDur time.Duration
	seq      int
}

func NewMachine(title string) *Machine {
	return &Machine{state: State{TaskTitle: title, CurrentSet: 1, TotalSets: 1}}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) SetTitle(title string) {
	m.state.TaskTitle = title
}

// Start resets the session into the first focus phase.
func (m *Machine) Start(focus, brk time.Duration, sets int) {
	if sets < 1 {
		sets = 1
	}
	m.focusDur = focus
	m.breakDur = brk
	m.state.Phase = PhaseFocus
	m.state.Remaining = focus
	m.state.CurrentSet = 1
	m.state.TotalSets = sets
	m.state.Running = true
	m.state.Paused = false
}

// Advance counts elapsed time down. When the phase runs out it moves to the
// next one and returns the alert for that boundary.
func (m *Machine) Advance(elapsed time.Duration, now time.Time) (Alert, bool) {
	if m.state.Phase == PhaseIdle || m.state.Paused {
		return Alert{}, false
	}
	m.state.Remaining -= elapsed
	if m.state.Remaining > 0 {
		return Alert{}, false
	}

	from := m.state.Phase
	switch from {
	case PhaseFocus:
		if m.state.CurrentSet >= m.state.TotalSets {
			m.state.Phase = PhaseIdle
			m.state.Remaining = 0
			m.state.Running = false
		} else {
			m.state.Phase = PhaseBreak
			m.state.Remaining = m.breakDur
		}
	case PhaseBreak:
		m.state.CurrentSet++
		m.state.Phase = PhaseFocus
		m.state.Remaining = m.focusDur
	}

	m.seq++
	m.state.LastAlertAt = now
	return Alert{
		Seq:      m.seq,
		At:       now,
		From:     from,
		To:       m.state.Phase,
		Set:      m.state.CurrentSet,
		Finished: m.state.Phase == PhaseIdle,
	}, true
}

// Pause freezes the countdown. Only legal while a phase is active.
func (m *Machine) Pause() bool {
	if m.state.Phase == PhaseIdle || m.state.Paused {
		return false
	}
	m.state.Paused = true
	return true
}

// Resume continues from the frozen remaining time. Only legal while paused.
func (m *Machine) Resume() bool {
	if m.state.Phase == PhaseIdle || !m.state.Paused {
		return false
	}
	m.state.Paused = false
	return true
}

// Stop forces the session idle. Reports whether anything was running.
func (m *Machine) Stop() bool {
	wasActive := m.state.Phase != PhaseIdle
	m.state.Phase = PhaseIdle
	m.state.Running = false
	m.state.Paused = false
	return wasActive
}
