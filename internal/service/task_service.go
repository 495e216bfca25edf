package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tasklist/internal/filter"
	"tasklist/internal/model"
)

var (
	ErrTitleRequired   = errors.New("task text is required")
	ErrNothingToChange = errors.New("nothing to change")
)

var dueDateLayouts = []string{"2006-01-02 15:04", "2006-01-02"}

// TaskStore is the subset of the task store the front ends drive.
type TaskStore interface {
	Load(ctx context.Context) error
	Add(ctx context.Context, draft model.Draft) (model.Task, error)
	Edit(ctx context.Context, id string, patch model.Patch) (model.Task, error)
	Remove(ctx context.Context, id string) error
	ToggleComplete(ctx context.Context, id string) (model.Task, error)
	Tasks() []model.Task
	Get(id string) (model.Task, bool)
}

// TaskInput represents data typed in to create or edit a task.
type TaskInput struct {
	Text     string
	Category model.Category
	Priority model.Priority
	DueDate  *time.Time
}

// TaskService validates user input before it reaches the store.
type TaskService struct {
	store TaskStore
}

func NewTaskService(store TaskStore) *TaskService {
	return &TaskService{store: store}
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (model.Task, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return model.Task{}, ErrTitleRequired
	}
	return s.store.Add(ctx, model.Draft{
		Text:     text,
		Category: input.Category,
		Priority: input.Priority,
		DueDate:  input.DueDate,
	})
}

// EditTask overwrites text, category, priority and due date of a task.
// Empty fields in input keep the current values.
func (s *TaskService) EditTask(ctx context.Context, id string, input TaskInput) (model.Task, error) {
	var patch model.Patch
	if text := strings.TrimSpace(input.Text); text != "" {
		patch.Text = &text
	}
	if input.Category != "" {
		patch.Category = &input.Category
	}
	if input.Priority != "" {
		patch.Priority = &input.Priority
	}
	patch.DueDate = input.DueDate
	if patch.IsEmpty() {
		return model.Task{}, ErrNothingToChange
	}
	return s.store.Edit(ctx, id, patch)
}

func (s *TaskService) ToggleTask(ctx context.Context, id string) (model.Task, error) {
	return s.store.ToggleComplete(ctx, id)
}

func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	return s.store.Remove(ctx, id)
}

// Refresh reloads the collection from the server.
func (s *TaskService) Refresh(ctx context.Context) error {
	return s.store.Load(ctx)
}

func (s *TaskService) GetTask(id string) (model.Task, bool) {
	return s.store.Get(id)
}

// All returns every task in insertion order.
func (s *TaskService) All() []model.Task {
	return s.store.Tasks()
}

// List returns the tasks that pass sel.
func (s *TaskService) List(sel filter.Selection) []model.Task {
	return filter.Apply(s.store.Tasks(), sel)
}

// ParseDueDate reads "2006-01-02" or "2006-01-02 15:04" in loc.
func ParseDueDate(text string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(text)
	for _, layout := range dueDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid due date %q", text)
}
