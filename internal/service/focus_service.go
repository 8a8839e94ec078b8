package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"taskplanner/internal/focus"
	"taskplanner/internal/repository"
)

// UnknownTaskTitle labels a session whose task cannot be found.
const UnknownTaskTitle = "Unknown Task"

// FocusService runs one focus session per chat.
type FocusService struct {
	taskRepo *repository.TaskRepository
	notifier Notifier
	opts     []focus.Option

	mu       sync.Mutex
	sessions map[int64]*focus.Timer
}

func NewFocusService(taskRepo *repository.TaskRepository, notifier Notifier, opts ...focus.Option) *FocusService {
	return &FocusService{
		taskRepo: taskRepo,
		notifier: notifier,
		opts:     opts,
		sessions: make(map[int64]*focus.Timer),
	}
}

// SetNotifier swaps the delivery target for future sessions.
func (s *FocusService) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Start begins a session for taskID in chatID, replacing the chat's
// previous session. A zero taskID starts an untitled session.
func (s *FocusService) Start(ctx context.Context, chatID int64, taskID uint, focusMinutes, breakMinutes, sets int) (focus.State, error) {
	if focusMinutes <= 0 || breakMinutes <= 0 || sets <= 0 {
		return focus.State{}, fmt.Errorf("%w: focus, break and sets must be positive", ErrValidation)
	}

	title := ""
	if taskID != 0 {
		task, err := s.taskRepo.GetByID(ctx, taskID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			title = UnknownTaskTitle
		case err != nil:
			return focus.State{}, fmt.Errorf("load focus task: %w", err)
		default:
			title = task.Title
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.sessions[chatID]; ok {
		prev.Close()
	}
	notifier := s.notifier
	opts := append([]focus.Option{}, s.opts...)
	opts = append(opts, focus.OnAlert(func(a focus.Alert) {
		s.alert(notifier, chatID, title, a)
	}))
	timer := focus.NewTimer(title, opts...)
	s.sessions[chatID] = timer
	timer.Start(focusMinutes, breakMinutes, sets)
	return timer.State(), nil
}

func (s *FocusService) Pause(chatID int64) bool {
	timer, ok := s.session(chatID)
	return ok && timer.Pause()
}

func (s *FocusService) Resume(chatID int64) bool {
	timer, ok := s.session(chatID)
	return ok && timer.Resume()
}

// Stop ends the chat's session. Safe to call when none is running.
func (s *FocusService) Stop(chatID int64) bool {
	s.mu.Lock()
	timer, ok := s.sessions[chatID]
	delete(s.sessions, chatID)
	s.mu.Unlock()
	return ok && timer.Stop()
}

func (s *FocusService) State(chatID int64) (focus.State, bool) {
	timer, ok := s.session(chatID)
	if !ok {
		return focus.State{}, false
	}
	return timer.State(), true
}

// Close stops every session.
func (s *FocusService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID, timer := range s.sessions {
		timer.Close()
		delete(s.sessions, chatID)
	}
}

func (s *FocusService) session(chatID int64) (*focus.Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.sessions[chatID]
	return timer, ok
}

func (s *FocusService) alert(notifier Notifier, chatID int64, title string, a focus.Alert) {
	if title == "" {
		title = "Focus"
	}
	var body string
	switch {
	case a.Finished:
		body = "Session complete. Well done!"
	case a.To == focus.PhaseBreak:
		body = fmt.Sprintf("Set %d done, take a break.", a.Set)
	default:
		body = fmt.Sprintf("Break over, set %d starts now.", a.Set)
	}
	if notifier == nil {
		log.Printf("[info] focus alert for chat %d: %s", chatID, body)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := notifier.Notify(ctx, Notification{ChatID: chatID, Title: "⏰ " + title, Body: body}); err != nil {
		log.Printf("send focus alert to chat %d: %v", chatID, err)
	}
}
