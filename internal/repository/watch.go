package repository

import (
	"log"
	"sync"
	"sync/atomic"

	"taskplanner/internal/model"
)

// watchHub fans full-table snapshots out to subscribers. Loading and
// delivery happen under one lock so a newer snapshot is never overtaken
// by an older one.
type watchHub struct {
	mu   sync.Mutex
	seq  atomic.Uint64
	next int
	subs map[int]chan model.Snapshot
}

func newWatchHub() *watchHub {
	return &watchHub{subs: make(map[int]chan model.Snapshot)}
}

func (h *watchHub) subscribe(load func() ([]model.Task, error)) (int, <-chan model.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tasks, err := load()
	if err != nil {
		return 0, nil, err
	}
	ch := make(chan model.Snapshot, 1)
	offer(ch, model.Snapshot{Seq: h.seq.Load(), Tasks: tasks})

	h.next++
	h.subs[h.next] = ch
	return h.next, ch, nil
}

func (h *watchHub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *watchHub) publish(load func() ([]model.Task, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq := h.seq.Add(1)
	if len(h.subs) == 0 {
		return
	}
	tasks, err := load()
	if err != nil {
		log.Printf("store: snapshot: %v", err)
		return
	}
	for _, ch := range h.subs {
		offer(ch, model.Snapshot{Seq: seq, Tasks: tasks})
	}
}

// offer replaces any undelivered snapshot with the newest one.
func offer(ch chan model.Snapshot, snap model.Snapshot) {
	tasks := make([]model.Task, len(snap.Tasks))
	copy(tasks, snap.Tasks)
	snap.Tasks = tasks
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
