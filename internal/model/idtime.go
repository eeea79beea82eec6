package model

import (
	"fmt"
	"slices"
	"strconv"
	"time"
)

// idTimestampLen is the number of leading hex characters that carry the
// creation time (a big-endian uint32 of Unix seconds).
const idTimestampLen = 8

// CreatedAt returns the creation instant encoded in the first eight hex
// characters of id. Everything after the prefix is ignored.
func CreatedAt(id string) (time.Time, error) {
	if len(id) < idTimestampLen {
		return time.Time{}, fmt.Errorf("%w: %q is shorter than %d characters", ErrMalformedID, id, idTimestampLen)
	}
	secs, err := strconv.ParseUint(id[:idTimestampLen], 16, 32)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q has a non-hex prefix", ErrMalformedID, id)
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

// SortNewestFirst returns a copy of todos ordered by decoded creation time,
// most recent first. Todos whose id cannot be decoded go last, in their
// original relative order.
func SortNewestFirst(todos []Todo) []Todo {
	type keyed struct {
		todo Todo
		ts   time.Time
		ok   bool
	}
	ks := make([]keyed, len(todos))
	for i, t := range todos {
		ts, err := CreatedAt(t.ID)
		ks[i] = keyed{todo: t, ts: ts, ok: err == nil}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		switch {
		case a.ok && !b.ok:
			return -1
		case !a.ok && b.ok:
			return 1
		case !a.ok && !b.ok:
			return 0
		}
		return b.ts.Compare(a.ts)
	})
	out := make([]Todo, len(ks))
	for i, k := range ks {
		out[i] = k.todo
	}
	return out
}
