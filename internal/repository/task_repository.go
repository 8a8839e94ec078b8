package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"taskplanner/internal/model"
)

// ErrNotFound is returned by id-addressed operations when no task matches.
var ErrNotFound = errors.New("task not found")

// TaskRepository is the durable task store. Every committed write publishes
// a fresh snapshot to Observe subscribers.
type TaskRepository struct {
	db    *gorm.DB
	watch *watchHub
	inTx  bool
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db, watch: newWatchHub()}
}

// Create inserts the task and stores the assigned id on it.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	r.changed(ctx)
	return nil
}

// Update overwrites every column except id, created_at and the plan slot.
// Plan fields only change through SetPlanSlot and ClearPlanSlot.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	res := r.db.WithContext(ctx).Model(task).Select("*").Omit("ID", "CreatedAt", "IvyDate", "IvyRank").Updates(task)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update task %d: %w", task.ID, ErrNotFound)
	}
	r.changed(ctx)
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	r.changed(ctx)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).First(&task, id).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("get task %d: %w", id, ErrNotFound)
	default:
		return nil, fmt.Errorf("get task: %w", err)
	}
}

func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetByPlanDate returns the plan for date ordered by rank; unranked rows last.
func (r *TaskRepository) GetByPlanDate(ctx context.Context, date string) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("ivy_date = ?", date).
		Order("ivy_rank IS NULL, ivy_rank ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list plan %s: %w", date, err)
	}
	return tasks, nil
}

// GetByDueRange returns tasks with start <= due < end ordered by due time.
func (r *TaskRepository) GetByDueRange(ctx context.Context, start, end time.Time) ([]model.Task, error) {
	// SQLite keeps timestamps as text with the writer's offset, so range
	// comparison happens on parsed values.
	dated, err := r.listDated(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Task
	for _, task := range dated {
		if task.DueAt.Before(start) || !task.DueAt.Before(end) {
			continue
		}
		out = append(out, task)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueAt.Before(*out[j].DueAt)
	})
	return out, nil
}

// DistinctDueDates returns the sorted yyyy-MM-dd days, in loc, that have a due task.
func (r *TaskRepository) DistinctDueDates(ctx context.Context, loc *time.Location) ([]string, error) {
	if loc == nil {
		loc = time.Local
	}
	dated, err := r.listDated(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(dated))
	dates := make([]string, 0, len(dated))
	for _, task := range dated {
		day := task.DueAt.In(loc).Format("2006-01-02")
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		dates = append(dates, day)
	}
	sort.Strings(dates)
	return dates, nil
}

// SetPlanSlot assigns the task to the plan of date at rank.
func (r *TaskRepository) SetPlanSlot(ctx context.Context, id uint, date string, rank int) error {
	return r.updatePlanFields(ctx, id, map[string]interface{}{"ivy_date": date, "ivy_rank": rank})
}

// ClearPlanSlot removes the task from whatever plan holds it.
func (r *TaskRepository) ClearPlanSlot(ctx context.Context, id uint) error {
	return r.updatePlanFields(ctx, id, map[string]interface{}{"ivy_date": nil, "ivy_rank": nil})
}

// CompactPlan renumbers the plan of date to ranks 1..N, keeping its order.
func (r *TaskRepository) CompactPlan(ctx context.Context, date string) error {
	plan, err := r.GetByPlanDate(ctx, date)
	if err != nil {
		return err
	}
	for i, task := range plan {
		if task.IvyRank != nil && *task.IvyRank == i+1 {
			continue
		}
		if err := r.SetPlanSlot(ctx, task.ID, date, i+1); err != nil {
			return err
		}
	}
	return nil
}

// Transaction runs fn against a repository bound to one database
// transaction. Subscribers see a single snapshot after commit.
func (r *TaskRepository) Transaction(ctx context.Context, fn func(tx *TaskRepository) error) error {
	if r.inTx {
		return fn(r)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TaskRepository{db: tx, watch: r.watch, inTx: true})
	})
	if err != nil {
		return err
	}
	r.changed(ctx)
	return nil
}

// Observe streams full task snapshots until ctx is cancelled. The first
// value is the current table; the channel only ever holds the newest one.
func (r *TaskRepository) Observe(ctx context.Context) (<-chan model.Snapshot, error) {
	id, ch, err := r.watch.subscribe(func() ([]model.Task, error) {
		return r.ListAll(ctx)
	})
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		r.watch.unsubscribe(id)
	}()
	return ch, nil
}

// Seq is the sequence number of the most recent committed write. A
// snapshot with Seq >= this value reflects that write.
func (r *TaskRepository) Seq() uint64 {
	return r.watch.seq.Load()
}

func (r *TaskRepository) updatePlanFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Task{ID: id}).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update plan slot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update plan slot %d: %w", id, ErrNotFound)
	}
	r.changed(ctx)
	return nil
}

func (r *TaskRepository) listDated(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("due_at IS NOT NULL").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list dated tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) changed(ctx context.Context) {
	if r.inTx || r.watch == nil {
		return
	}
	r.watch.publish(func() ([]model.Task, error) {
		return r.ListAll(context.WithoutCancel(ctx))
	})
}
