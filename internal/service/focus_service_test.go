package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskplanner/internal/focus"
)

type silentTicker struct{ c chan time.Time }

func (s silentTicker) C() <-chan time.Time { return s.c }
func (s silentTicker) Stop()               {}

func newTestFocus(t *testing.T, notifier Notifier) *FocusService {
	t.Helper()
	svc := NewFocusService(newTestRepo(t), notifier, focus.WithTicker(func(time.Duration) focus.Ticker {
		return silentTicker{c: make(chan time.Time)}
	}))
	t.Cleanup(svc.Close)
	return svc
}

func TestFocusStartResolvesTitle(t *testing.T) {
	ctx := context.Background()
	svc := newTestFocus(t, nil)
	task := seed(t, svc.taskRepo, "Deep work")

	st, err := svc.Start(ctx, 1, task.ID, 25, 5, 4)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.TaskTitle != "Deep work" || st.Phase != focus.PhaseFocus || st.Remaining != 25*time.Minute || st.TotalSets != 4 {
		t.Fatalf("state = %+v", st)
	}

	st, err = svc.Start(ctx, 2, 404, 25, 5, 4)
	if err != nil {
		t.Fatalf("start unknown: %v", err)
	}
	if st.TaskTitle != UnknownTaskTitle {
		t.Fatalf("title = %q", st.TaskTitle)
	}
}

func TestFocusStartValidates(t *testing.T) {
	svc := newTestFocus(t, nil)
	if _, err := svc.Start(context.Background(), 1, 0, 0, 5, 4); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if _, ok := svc.State(1); ok {
		t.Fatal("rejected start left a session behind")
	}
}

func TestFocusControlsPerChat(t *testing.T) {
	svc := newTestFocus(t, nil)
	if _, err := svc.Start(context.Background(), 1, 0, 25, 5, 1); err != nil {
		t.Fatalf("start: %v", err)
	}

	if svc.Pause(2) || svc.Resume(2) || svc.Stop(2) {
		t.Fatal("chat 2 has no session")
	}
	if !svc.Pause(1) || svc.Pause(1) {
		t.Fatal("pause sequence wrong")
	}
	if st, _ := svc.State(1); !st.Paused {
		t.Fatalf("state = %+v", st)
	}
	if !svc.Resume(1) {
		t.Fatal("resume refused")
	}
	if !svc.Stop(1) || svc.Stop(1) {
		t.Fatal("stop should report once")
	}
	if _, ok := svc.State(1); ok {
		t.Fatal("session kept after stop")
	}
}

func TestFocusAlertMessages(t *testing.T) {
	rec := &recordingNotifier{}
	svc := newTestFocus(t, rec)
	svc.alert(rec, 5, "Essay", focus.Alert{From: focus.PhaseFocus, To: focus.PhaseBreak, Set: 1})
	svc.alert(rec, 5, "Essay", focus.Alert{From: focus.PhaseBreak, To: focus.PhaseFocus, Set: 2})
	svc.alert(rec, 5, "", focus.Alert{From: focus.PhaseFocus, To: focus.PhaseIdle, Set: 2, Finished: true})

	sent := rec.sent()
	if len(sent) != 3 {
		t.Fatalf("sent = %d", len(sent))
	}
	want := []string{"Set 1 done, take a break.", "Break over, set 2 starts now.", "Session complete. Well done!"}
	for i, n := range sent {
		if n.ChatID != 5 || n.Body != want[i] {
			t.Errorf("notification %d = %+v", i, n)
		}
	}
	if sent[2].Title != "⏰ Focus" {
		t.Errorf("untitled alert title = %q", sent[2].Title)
	}
}
