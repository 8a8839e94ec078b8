package query

import (
	"fmt"
	"strings"
)

// Filter selects tasks by completion.
type Filter int

const (
	FilterAll Filter = iota
	FilterActive
	FilterDone
)

// Sort is one of the six orderings of the visible list.
type Sort int

const (
	SortCreatedDesc Sort = iota
	SortCreatedAsc
	SortDueAsc
	SortDueDesc
	SortPriorityDesc
	SortPriorityAsc
)

// Group narrows the list to upcoming tasks or one Eisenhower quadrant.
type Group int

const (
	GroupAll Group = iota
	GroupUpcoming
	GroupDoNow
	GroupSchedule
	GroupDelegate
	GroupEliminate
)

// Params is the session-scoped query state.
type Params struct {
	Query  string
	Filter Filter
	Sort   Sort
	Group  Group
}

func DefaultParams() Params {
	return Params{Filter: FilterAll, Sort: SortCreatedDesc, Group: GroupAll}
}

func Filters() []Filter { return []Filter{FilterAll, FilterActive, FilterDone} }

func Sorts() []Sort {
	return []Sort{SortCreatedDesc, SortCreatedAsc, SortDueAsc, SortDueDesc, SortPriorityDesc, SortPriorityAsc}
}

func Groups() []Group {
	return []Group{GroupAll, GroupUpcoming, GroupDoNow, GroupSchedule, GroupDelegate, GroupEliminate}
}

func (f Filter) String() string {
	switch f {
	case FilterAll:
		return "all"
	case FilterActive:
		return "active"
	case FilterDone:
		return "done"
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

func (s Sort) String() string {
	switch s {
	case SortCreatedDesc:
		return "created_desc"
	case SortCreatedAsc:
		return "created_asc"
	case SortDueAsc:
		return "due_asc"
	case SortDueDesc:
		return "due_desc"
	case SortPriorityDesc:
		return "priority_desc"
	case SortPriorityAsc:
		return "priority_asc"
	}
	return fmt.Sprintf("Sort(%d)", int(s))
}

func (g Group) String() string {
	switch g {
	case GroupAll:
		return "all"
	case GroupUpcoming:
		return "upcoming"
	case GroupDoNow:
		return "do_now"
	case GroupSchedule:
		return "schedule"
	case GroupDelegate:
		return "delegate"
	case GroupEliminate:
		return "eliminate"
	}
	return fmt.Sprintf("Group(%d)", int(g))
}

func ParseFilter(raw string) (Filter, error) {
	key := normalize(raw)
	for _, f := range Filters() {
		if f.String() == key {
			return f, nil
		}
	}
	return FilterAll, fmt.Errorf("unknown filter %q", raw)
}

func ParseSort(raw string) (Sort, error) {
	key := normalize(raw)
	for _, s := range Sorts() {
		if s.String() == key {
			return s, nil
		}
	}
	return SortCreatedDesc, fmt.Errorf("unknown sort %q", raw)
}

func ParseGroup(raw string) (Group, error) {
	key := normalize(raw)
	for _, g := range Groups() {
		if g.String() == key {
			return g, nil
		}
	}
	return GroupAll, fmt.Errorf("unknown group %q", raw)
}

func normalize(raw string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
}
