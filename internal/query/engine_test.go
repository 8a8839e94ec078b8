package query

import (
	"reflect"
	"testing"
	"time"

	"taskplanner/internal/model"
)

var base = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time { return base.Add(time.Duration(minutes) * time.Minute) }

func due(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func ids(tasks []model.Task) []uint {
	out := make([]uint, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func TestPrioritySortDescending(t *testing.T) {
	levels := []model.Priority{
		model.PriorityLow, model.PriorityHigh, model.PriorityMedium, model.PriorityHigh,
		model.PriorityLow, model.PriorityHigh, model.PriorityMedium, model.PriorityLow,
	}
	var tasks []model.Task
	for i, p := range levels {
		tasks = append(tasks, model.Task{ID: uint(i + 1), Title: "t", Priority: p, CreatedAt: at(i + 1)})
	}

	p := DefaultParams()
	p.Sort = SortPriorityDesc
	got := ids(ComputeView(tasks, p, base))
	want := []uint{6, 4, 2, 7, 3, 8, 5, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("priority desc = %v, want %v", got, want)
	}

	p.Sort = SortPriorityAsc
	got = ids(ComputeView(tasks, p, base))
	want = []uint{8, 5, 1, 7, 3, 6, 4, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("priority asc = %v, want %v", got, want)
	}
}

func TestCreatedSorts(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, CreatedAt: at(2)},
		{ID: 2, CreatedAt: at(3)},
		{ID: 3, CreatedAt: at(1)},
	}
	p := DefaultParams()
	if got := ids(ComputeView(tasks, p, base)); !reflect.DeepEqual(got, []uint{2, 1, 3}) {
		t.Fatalf("created desc = %v", got)
	}
	p.Sort = SortCreatedAsc
	if got := ids(ComputeView(tasks, p, base)); !reflect.DeepEqual(got, []uint{3, 1, 2}) {
		t.Fatalf("created asc = %v", got)
	}
}

func dueFixture() []model.Task {
	return []model.Task{
		{ID: 1, CreatedAt: at(1), DueAt: due(5 * time.Hour)},
		{ID: 2, CreatedAt: at(2)},
		{ID: 3, CreatedAt: at(3), DueAt: due(1 * time.Hour), IsDone: true},
		{ID: 4, CreatedAt: at(4), DueAt: due(2 * time.Hour)},
		{ID: 5, CreatedAt: at(5), DueAt: due(2 * time.Hour)},
		{ID: 6, CreatedAt: at(6), IsDone: true},
		{ID: 7, CreatedAt: at(7)},
	}
}

func TestDueSorts(t *testing.T) {
	p := DefaultParams()
	p.Sort = SortDueAsc
	got := ids(ComputeView(dueFixture(), p, base))
	want := []uint{5, 4, 1, 7, 2, 3, 6}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("due asc = %v, want %v", got, want)
	}

	p.Sort = SortDueDesc
	got = ids(ComputeView(dueFixture(), p, base))
	want = []uint{1, 5, 4, 7, 2, 3, 6}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("due desc = %v, want %v", got, want)
	}
}

func TestDueSortsKeepDoneAndUndatedLast(t *testing.T) {
	for _, s := range []Sort{SortDueAsc, SortDueDesc} {
		p := DefaultParams()
		p.Sort = s
		out := ComputeView(dueFixture(), p, base)
		seenDone, seenUndated := false, false
		for _, task := range out {
			if task.IsDone {
				seenDone = true
				continue
			}
			if seenDone {
				t.Fatalf("%s: open task %d after a done task", s, task.ID)
			}
			if task.DueAt == nil {
				seenUndated = true
			} else if seenUndated {
				t.Fatalf("%s: dated task %d after an undated one", s, task.ID)
			}
		}
	}
}

func TestCompletionFilter(t *testing.T) {
	tasks := []model.Task{{ID: 1}, {ID: 2, IsDone: true}, {ID: 3}}
	cases := map[Filter][]uint{
		FilterAll:    {1, 2, 3},
		FilterActive: {1, 3},
		FilterDone:   {2},
	}
	for f, want := range cases {
		p := DefaultParams()
		p.Filter = f
		p.Sort = SortCreatedAsc // equal timestamps keep input order
		if got := ids(ComputeView(tasks, p, base)); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %v, want %v", f, got, want)
		}
	}
}

func TestTextFilterMatchesTitleOrNote(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Title: "Buy MILK"},
		{ID: 2, Title: "Call mom", Note: "ask about milkshake recipe"},
		{ID: 3, Title: "Gym"},
	}
	p := DefaultParams()
	p.Sort = SortCreatedAsc
	p.Query = "Milk"
	if got := ids(ComputeView(tasks, p, base)); !reflect.DeepEqual(got, []uint{1, 2}) {
		t.Fatalf("query match = %v", got)
	}
	p.Query = "   "
	if got := ids(ComputeView(tasks, p, base)); len(got) != 3 {
		t.Fatalf("blank query should pass everything, got %v", got)
	}
}

func TestGroupFilter(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, Tag: model.TagDoNow, DueAt: due(72 * time.Hour)},
		{ID: 2, Tag: model.TagSchedule, DueAt: due(72*time.Hour + time.Second)},
		{ID: 3, Tag: model.TagDelegate},
		{ID: 4, Tag: model.TagEliminate, DueAt: due(-time.Hour)},
		{ID: 5, Tag: model.TagDoNow, DueAt: due(0)},
	}
	cases := map[Group][]uint{
		GroupAll:       {1, 2, 3, 4, 5},
		GroupUpcoming:  {1, 5},
		GroupDoNow:     {1, 5},
		GroupSchedule:  {2},
		GroupDelegate:  {3},
		GroupEliminate: {4},
	}
	for g, want := range cases {
		p := DefaultParams()
		p.Group = g
		p.Sort = SortCreatedAsc
		if got := ids(ComputeView(tasks, p, base)); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %v, want %v", g, got, want)
		}
	}
}

func TestComputeViewIsPure(t *testing.T) {
	tasks := dueFixture()
	before := ids(tasks)
	for _, f := range Filters() {
		for _, s := range Sorts() {
			for _, g := range Groups() {
				p := Params{Query: "", Filter: f, Sort: s, Group: g}
				first := ComputeView(tasks, p, base)
				second := ComputeView(tasks, p, base)
				if !reflect.DeepEqual(first, second) {
					t.Fatalf("%v: results differ between calls", p)
				}
				if len(first) > len(tasks) {
					t.Fatalf("%v: output larger than input", p)
				}
			}
		}
	}
	if !reflect.DeepEqual(ids(tasks), before) {
		t.Fatal("input slice was reordered")
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, f := range Filters() {
		if got, err := ParseFilter(f.String()); err != nil || got != f {
			t.Errorf("filter %s: %v %v", f, got, err)
		}
	}
	for _, s := range Sorts() {
		if got, err := ParseSort(s.String()); err != nil || got != s {
			t.Errorf("sort %s: %v %v", s, got, err)
		}
	}
	for _, g := range Groups() {
		if got, err := ParseGroup(g.String()); err != nil || got != g {
			t.Errorf("group %s: %v %v", g, got, err)
		}
	}
	if got, err := ParseSort("Due-Asc"); err != nil || got != SortDueAsc {
		t.Errorf("ParseSort(Due-Asc) = %v, %v", got, err)
	}
	if _, err := ParseGroup("someday"); err == nil {
		t.Error("expected error for unknown group")
	}
}
