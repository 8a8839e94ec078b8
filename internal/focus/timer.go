package focus

import (
	"sync"
	"time"
)

// Ticker is the subset of time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	*time.Ticker
}

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

// Option configures a Timer.
type Option func(*Timer)

// WithInterval sets the tick period; each tick counts this much time down.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.interval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

func WithTicker(factory func(time.Duration) Ticker) Option {
	return func(t *Timer) { t.newTicker = factory }
}

// OnTick registers a handler called with the state after every tick.
func OnTick(fn func(State)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// OnAlert registers a handler called once per phase boundary.
func OnAlert(fn func(Alert)) Option {
	return func(t *Timer) { t.onAlert = fn }
}

// Timer drives a Machine from a ticker. At most one countdown goroutine is
// live; starting, pausing or stopping retires the previous one and any tick
// it still delivers is ignored.
type Timer struct {
	mu        sync.Mutex
	machine   *Machine
	interval  time.Duration
	now       func() time.Time
	newTicker func(time.Duration) Ticker
	onTick    func(State)
	onAlert   func(Alert)
	gen       uint64
	stop      chan struct{}
}

func NewTimer(title string, opts ...Option) *Timer {
	t := &Timer{
		machine:   NewMachine(title),
		interval:  time.Second,
		now:       time.Now,
		newTicker: newRealTicker,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.machine.State()
}

// Start begins a new session; a running one is discarded.
func (t *Timer) Start(focusMinutes, breakMinutes, sets int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.machine.Start(time.Duration(focusMinutes)*time.Minute, time.Duration(breakMinutes)*time.Minute, sets)
	t.startCountdownLocked()
}

func (t *Timer) Pause() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.machine.Pause() {
		return false
	}
	t.cancelLocked()
	return true
}

func (t *Timer) Resume() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.machine.Resume() {
		return false
	}
	t.startCountdownLocked()
	return true
}

// Stop cancels the countdown and forces the session idle. Always safe.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	return t.machine.Stop()
}

// Close releases the countdown; the owner calls it on teardown.
func (t *Timer) Close() {
	t.Stop()
}

func (t *Timer) startCountdownLocked() {
	t.cancelLocked()
	stop := make(chan struct{})
	t.stop = stop
	go t.run(t.gen, stop, t.newTicker(t.interval))
}

func (t *Timer) cancelLocked() {
	t.gen++
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) run(gen uint64, stop <-chan struct{}, tk Ticker) {
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C():
			if !t.tick(gen) {
				return
			}
		}
	}
}

func (t *Timer) tick(gen uint64) bool {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return false
	}
	alert, fired := t.machine.Advance(t.interval, t.now())
	state := t.machine.State()
	finished := state.Phase == PhaseIdle
	if finished {
		t.stop = nil
	}
	onTick, onAlert := t.onTick, t.onAlert
	t.mu.Unlock()

	if fired && onAlert != nil {
		onAlert(alert)
	}
	if onTick != nil {
		onTick(state)
	}
	return !finished
}
