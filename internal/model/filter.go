package model

import (
	"fmt"
	"strings"
)

// Filter is the client-side list selection.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// Filters lists the selections in display order.
var Filters = []Filter{FilterAll, FilterPending, FilterCompleted}

// ParseFilter accepts all, pending or completed; empty means all.
func ParseFilter(raw string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterCompleted:
		return f, nil
	}
	return "", fmt.Errorf("invalid filter %q (want all, pending or completed)", raw)
}

// Status maps the selection to the status the remote query should match.
// ok is false for "all", meaning no filter.
func (f Filter) Status() (s Status, ok bool) {
	switch f {
	case FilterPending:
		return StatusPending, true
	case FilterCompleted:
		return StatusCompleted, true
	}
	return "", false
}

// Matches is the predicate form of Status.
func (f Filter) Matches(t Todo) bool {
	s, ok := f.Status()
	return !ok || t.Status == s
}

// Next cycles all -> pending -> completed -> all.
func (f Filter) Next() Filter {
	for i, v := range Filters {
		if v == f {
			return Filters[(i+1)%len(Filters)]
		}
	}
	return FilterAll
}

func (f Filter) String() string {
	if f == "" {
		return string(FilterAll)
	}
	return string(f)
}
