// Package filter derives the displayed subset of tasks from a selection of
// status, priority and category. It never changes the tasks it reads.
package filter

import (
	"fmt"
	"strings"

	"tasklist/internal/model"
)

// Status narrows tasks by completion.
type Status string

const (
	StatusAll       Status = "All"
	StatusCompleted Status = "Completed"
	StatusActive    Status = "Active"
)

func Statuses() []Status {
	return []Status{StatusAll, StatusCompleted, StatusActive}
}

// ParseStatus matches raw against the known statuses ignoring case. Empty means All.
func ParseStatus(raw string) (Status, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return StatusAll, nil
	}
	for _, s := range Statuses() {
		if strings.EqualFold(value, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// Selection is the current filter. The zero value shows every task.
// A nil Priority or Category means that dimension is not narrowed.
type Selection struct {
	Status   Status
	Priority *model.Priority
	Category *model.Category
}

func (s *Selection) SetStatus(status Status) {
	s.Status = status
}

// SelectPriority narrows by p, or clears the dimension when p is already selected.
func (s *Selection) SelectPriority(p model.Priority) {
	if s.Priority != nil && *s.Priority == p {
		s.Priority = nil
		return
	}
	s.Priority = &p
}

// SelectCategory narrows by c, or clears the dimension when c is already selected.
func (s *Selection) SelectCategory(c model.Category) {
	if s.Category != nil && *s.Category == c {
		s.Category = nil
		return
	}
	s.Category = &c
}

// Clear resets status to All and drops both optional dimensions.
func (s *Selection) Clear() {
	*s = Selection{}
}

func (s Selection) status() Status {
	if s.Status == "" {
		return StatusAll
	}
	return s.Status
}

// IsActive reports whether any dimension narrows the list.
func (s Selection) IsActive() bool {
	return s.status() != StatusAll || s.Priority != nil || s.Category != nil
}

// Match reports whether task passes every dimension.
func (s Selection) Match(task model.Task) bool {
	switch s.status() {
	case StatusCompleted:
		if !task.Completed {
			return false
		}
	case StatusActive:
		if task.Completed {
			return false
		}
	}
	if s.Priority != nil && task.Priority != *s.Priority {
		return false
	}
	if s.Category != nil && task.Category != *s.Category {
		return false
	}
	return true
}

func (s Selection) String() string {
	parts := []string{string(s.status())}
	if s.Priority != nil {
		parts = append(parts, "priority "+string(*s.Priority))
	}
	if s.Category != nil {
		parts = append(parts, "category "+string(*s.Category))
	}
	return strings.Join(parts, ", ")
}

// Apply returns the tasks matching sel in their original order.
func Apply(tasks []model.Task, sel Selection) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if sel.Match(task) {
			out = append(out, task)
		}
	}
	return out
}
