package query

import (
	"context"
	"sync"
	"time"

	"taskplanner/internal/model"
)

// Result is one recomputed visible list.
type Result struct {
	Tasks  []model.Task
	Params Params
	Seq    uint64 // store snapshot the list was computed from
}

// View recomputes the visible list whenever the store publishes a snapshot
// or a query parameter changes. Pending inputs are coalesced so only the
// newest snapshot and the newest parameters are ever combined.
type View struct {
	now func() time.Time

	mu            sync.Mutex
	params        Params
	paramsVersion uint64
	result        Result
	resultVersion uint64
	ready         bool
	updated       chan struct{}

	wake    chan struct{}
	updates chan Result
}

func NewView(now func() time.Time) *View {
	if now == nil {
		now = time.Now
	}
	return &View{
		now:     now,
		params:  DefaultParams(),
		updated: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		updates: make(chan Result, 1),
	}
}

// Run consumes snapshots until ctx is done or the channel closes.
func (v *View) Run(ctx context.Context, snapshots <-chan model.Snapshot) {
	go v.loop(ctx, snapshots)
}

// Updates yields freshly computed results; only the newest is buffered.
func (v *View) Updates() <-chan Result {
	return v.updates
}

func (v *View) Params() Params {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.params
}

func (v *View) SetParams(p Params) {
	v.update(func(cur *Params) { *cur = p })
}

func (v *View) SetQuery(q string) {
	v.update(func(p *Params) { p.Query = q })
}

func (v *View) SetFilter(f Filter) {
	v.update(func(p *Params) { p.Filter = f })
}

func (v *View) SetSort(s Sort) {
	v.update(func(p *Params) { p.Sort = s })
}

func (v *View) SetGroup(g Group) {
	v.update(func(p *Params) { p.Group = g })
}

// update applies fn to the parameters under the lock and wakes the runner.
func (v *View) update(fn func(*Params)) {
	v.mu.Lock()
	fn(&v.params)
	v.paramsVersion++
	v.mu.Unlock()

	select {
	case v.wake <- struct{}{}:
	default:
	}
}

// Current waits for a result computed with the latest parameters.
func (v *View) Current(ctx context.Context) (Result, error) {
	return v.WaitFor(ctx, 0)
}

// WaitFor waits for a result computed with the latest parameters from a
// snapshot at least as new as seq.
func (v *View) WaitFor(ctx context.Context, seq uint64) (Result, error) {
	for {
		v.mu.Lock()
		if v.ready && v.resultVersion == v.paramsVersion && v.result.Seq >= seq {
			res := v.result
			v.mu.Unlock()
			return res, nil
		}
		wait := v.updated
		v.mu.Unlock()

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-wait:
		}
	}
}

func (v *View) loop(ctx context.Context, snapshots <-chan model.Snapshot) {
	var (
		snap model.Snapshot
		have bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snapshots:
			if !ok {
				return
			}
			snap, have = s, true
		case <-v.wake:
		}

	drain:
		for {
			select {
			case s, ok := <-snapshots:
				if !ok {
					return
				}
				snap, have = s, true
			case <-v.wake:
			default:
				break drain
			}
		}

		if have {
			v.recompute(snap)
		}
	}
}

func (v *View) recompute(snap model.Snapshot) {
	v.mu.Lock()
	params, version := v.params, v.paramsVersion
	v.mu.Unlock()

	res := Result{
		Tasks:  ComputeView(snap.Tasks, params, v.now()),
		Params: params,
		Seq:    snap.Seq,
	}

	v.mu.Lock()
	v.result = res
	v.resultVersion = version
	v.ready = true
	close(v.updated)
	v.updated = make(chan struct{})
	v.mu.Unlock()

	for {
		select {
		case v.updates <- res:
			return
		default:
		}
		select {
		case <-v.updates:
		default:
		}
	}
}
