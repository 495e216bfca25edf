// Package store keeps the in-process copy of the task collection and only
// changes it after the remote service has confirmed a mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"tasklist/internal/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrEmptyText    = errors.New("task text is empty")
	// ErrBadReply marks a confirmed mutation whose reply cannot be stored.
	ErrBadReply = errors.New("unusable server reply")
)

// Remote is the CRUD surface of the task service.
type Remote interface {
	List(ctx context.Context) ([]model.Task, error)
	Create(ctx context.Context, task model.Task) (model.Task, error)
	Update(ctx context.Context, task model.Task) (model.Task, error)
	Delete(ctx context.Context, id string) error
}

// Store holds tasks in insertion order with no duplicate ids.
type Store struct {
	remote Remote
	now    func() time.Time
	ids    *idSource

	mu    sync.RWMutex
	tasks []model.Task
}

type Option func(*Store)

// WithClock overrides the time source used for ids and createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(remote Remote, opts ...Option) *Store {
	s := &Store{remote: remote, now: time.Now, ids: &idSource{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces local state with the server's collection.
func (s *Store) Load(ctx context.Context) error {
	tasks, err := s.remote.List(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	tasks = dedupe(tasks)

	s.mu.Lock()
	s.tasks = tasks
	s.mu.Unlock()
	return nil
}

// Add creates a task from draft and appends the server's copy.
func (s *Store) Add(ctx context.Context, draft model.Draft) (model.Task, error) {
	text := strings.TrimSpace(draft.Text)
	if text == "" {
		return model.Task{}, ErrEmptyText
	}
	draft = draft.WithDefaults()

	now := s.now()
	task := model.Task{
		ID:        s.ids.next(now),
		Text:      text,
		Completed: false,
		Category:  draft.Category,
		Priority:  draft.Priority,
		CreatedAt: now.UTC(),
		DueDate:   draft.DueDate,
	}

	created, err := s.remote.Create(ctx, task)
	if err != nil {
		return model.Task{}, fmt.Errorf("add task: %w", err)
	}
	if created.ID == "" {
		return model.Task{}, fmt.Errorf("add task: %w: empty id", ErrBadReply)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(created.ID); idx >= 0 {
		s.tasks[idx] = created
	} else {
		s.tasks = append(s.tasks, created)
	}
	return created, nil
}

// Edit merges patch over the current task and stores the server's reply.
// An unknown id returns ErrTaskNotFound without contacting the service.
func (s *Store) Edit(ctx context.Context, id string, patch model.Patch) (model.Task, error) {
	current, ok := s.Get(id)
	if !ok {
		return model.Task{}, fmt.Errorf("edit task %s: %w", id, ErrTaskNotFound)
	}
	return s.update(ctx, patch.Apply(current), "edit")
}

// ToggleComplete flips the completed flag of the task with id.
func (s *Store) ToggleComplete(ctx context.Context, id string) (model.Task, error) {
	current, ok := s.Get(id)
	if !ok {
		return model.Task{}, fmt.Errorf("toggle task %s: %w", id, ErrTaskNotFound)
	}
	completed := !current.Completed
	return s.update(ctx, model.Patch{Completed: &completed}.Apply(current), "toggle")
}

func (s *Store) update(ctx context.Context, merged model.Task, op string) (model.Task, error) {
	returned, err := s.remote.Update(ctx, merged)
	if err != nil {
		return model.Task{}, fmt.Errorf("%s task %s: %w", op, merged.ID, err)
	}
	if returned.ID != merged.ID {
		return model.Task{}, fmt.Errorf("%s task %s: %w: reply id %q", op, merged.ID, ErrBadReply, returned.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Removed while in flight: the reply is dropped.
	if idx := s.indexOf(merged.ID); idx >= 0 {
		s.tasks[idx] = returned
	}
	return returned, nil
}

// Remove deletes the task remotely, then locally.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.remote.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove task %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		s.tasks = append(s.tasks[:idx:idx], s.tasks[idx+1:]...)
	}
	return nil
}

// Tasks returns a copy of the collection in insertion order.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.tasks...)
}

func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.tasks[idx], true
	}
	return model.Task{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// indexOf expects s.mu to be held.
func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// dedupe keeps the first occurrence of every id.
func dedupe(tasks []model.Task) []model.Task {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// idSource hands out millisecond timestamps that never repeat.
type idSource struct {
	mu   sync.Mutex
	last int64
}

func (g *idSource) next(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
