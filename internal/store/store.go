// Package store keeps the client's view of the todo list in sync with the
// remote store. Every successful mutation is followed by one full refresh;
// the local list is never patched in place.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/remote"
)

// ErrSuperseded is returned by a refresh whose response arrived after a
// newer refresh was issued. The response is dropped.
var ErrSuperseded = errors.New("refresh superseded by a newer one")

// Remote is the part of the remote store the Store needs.
// *remote.Client satisfies it.
type Remote interface {
	List(ctx context.Context, f model.Filter) ([]model.Todo, error)
	Create(ctx context.Context, description string) (model.Todo, error)
	Update(ctx context.Context, id string, p remote.Patch) (model.Todo, error)
	Replace(ctx context.Context, t model.Todo) (model.Todo, error)
	Delete(ctx context.Context, id string) error
}

// Strategy selects how mutations touch the local list before the remote answers.
type Strategy string

const (
	// StrategyRefresh leaves the list alone until the confirming refresh.
	StrategyRefresh Strategy = "refresh"
	// StrategyOptimistic shows the expected result immediately and rolls
	// back if the remote rejects the change.
	StrategyOptimistic Strategy = "optimistic"
)

// ParseStrategy accepts "refresh" (or empty) and "optimistic".
func ParseStrategy(raw string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case "", StrategyRefresh:
		return StrategyRefresh, nil
	case StrategyOptimistic:
		return s, nil
	}
	return "", fmt.Errorf("invalid strategy %q (want refresh or optimistic)", raw)
}

// Store owns the authoritative in-memory list. It is safe for concurrent use.
type Store struct {
	remote   Remote
	logger   *slog.Logger
	strategy Strategy

	mu     sync.Mutex
	todos  []model.Todo
	filter model.Filter
	seq    uint64 // last refresh issued
	gen    uint64 // bumped on every list replacement
}

// Option tunes a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStrategy picks the mutation strategy. Default is StrategyRefresh.
func WithStrategy(st Strategy) Option {
	return func(s *Store) {
		if st != "" {
			s.strategy = st
		}
	}
}

// New returns an empty store with filter "all".
func New(r Remote, opts ...Option) *Store {
	s := &Store{
		remote:   r,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		strategy: StrategyRefresh,
		todos:    []model.Todo{},
		filter:   model.FilterAll,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Todos returns a copy of the current list.
func (s *Store) Todos() []model.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTodos(s.todos)
}

// Filter returns the selection the last refresh was issued with.
func (s *Store) Filter() model.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Version changes every time the local list is replaced, including
// optimistic patches and their rollbacks.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Strategy reports the configured mutation strategy.
func (s *Store) Strategy() Strategy { return s.strategy }

// Refresh fetches the list for f, sorts it newest first and replaces the
// local list. On failure the list is left as it was.
func (s *Store) Refresh(ctx context.Context, f model.Filter) ([]model.Todo, error) {
	if f == "" {
		f = model.FilterAll
	}
	s.mu.Lock()
	s.seq++
	ticket := s.seq
	s.filter = f
	s.mu.Unlock()

	todos, err := s.remote.List(ctx, f)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.seq {
		s.logger.Info("dropping stale refresh", "filter", f.String(), "ticket", ticket, "latest", s.seq)
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, &model.OpError{Op: model.OpFetch, Err: err}
	}
	s.todos = model.SortNewestFirst(todos)
	s.gen++
	s.logger.Debug("refreshed", "filter", f.String(), "count", len(s.todos))
	return cloneTodos(s.todos), nil
}

// Reload refreshes with the current filter.
func (s *Store) Reload(ctx context.Context) ([]model.Todo, error) {
	return s.Refresh(ctx, s.Filter())
}

// Create adds a pending todo. An empty description is rejected without
// contacting the remote store.
func (s *Store) Create(ctx context.Context, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return model.ErrEmptyDescription
	}
	if _, err := s.remote.Create(ctx, description); err != nil {
		return &model.OpError{Op: model.OpCreate, Err: err}
	}
	return s.afterMutation(ctx)
}

// Update replaces the description of the todo identified by id.
func (s *Store) Update(ctx context.Context, id, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return model.ErrEmptyDescription
	}
	undo := s.patch(func(t model.Todo) (model.Todo, bool) {
		if t.ID != id {
			return t, true
		}
		t.Description = description
		return t, true
	})
	if _, err := s.remote.Update(ctx, id, remote.Patch{Description: &description}); err != nil {
		undo()
		return &model.OpError{Op: model.OpUpdate, Err: err}
	}
	return s.afterMutation(ctx)
}

// SetStatus flips the todo's status. The whole todo is sent back with only
// the status changed, since the remote store replaces rather than merges.
func (s *Store) SetStatus(ctx context.Context, t model.Todo) error {
	next := t
	next.Status = t.Status.Toggle()
	f := s.Filter()
	undo := s.patch(func(cur model.Todo) (model.Todo, bool) {
		if cur.ID != t.ID {
			return cur, true
		}
		return next, f.Matches(next)
	})
	if _, err := s.remote.Replace(ctx, next); err != nil {
		undo()
		return &model.OpError{Op: model.OpStatus, Err: err}
	}
	return s.afterMutation(ctx)
}

// Delete removes the todo identified by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	undo := s.patch(func(t model.Todo) (model.Todo, bool) {
		return t, t.ID != id
	})
	if err := s.remote.Delete(ctx, id); err != nil {
		undo()
		return &model.OpError{Op: model.OpDelete, Err: err}
	}
	return s.afterMutation(ctx)
}

// afterMutation issues the single confirming refresh. A superseded refresh
// is not a failure of the mutation.
func (s *Store) afterMutation(ctx context.Context) error {
	if _, err := s.Reload(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return err
	}
	return nil
}

// patch applies fn to a copy of the list when the optimistic strategy is on.
// fn returns the replacement and whether to keep it. The returned func
// restores the previous list unless something replaced it in between.
func (s *Store) patch(fn func(model.Todo) (model.Todo, bool)) (undo func()) {
	if s.strategy != StrategyOptimistic {
		return func() {}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.todos
	next := make([]model.Todo, 0, len(prev))
	for _, t := range prev {
		if nt, keep := fn(t); keep {
			next = append(next, nt)
		}
	}
	s.todos = next
	s.gen++
	gen := s.gen

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.gen == gen {
			s.todos = prev
			s.gen++
		}
	}
}

// Committed reports whether a mutation reached the remote store: err is nil
// or only the confirming refresh failed.
func Committed(err error) bool {
	return err == nil || model.IsOp(err, model.OpFetch)
}

func cloneTodos(in []model.Todo) []model.Todo {
	out := make([]model.Todo, len(in))
	copy(out, in)
	return out
}
