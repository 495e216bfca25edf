package model

import "time"

// Task is a single to-do item as the remote service stores it.
type Task struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Category  Category   `json:"category"`
	Priority  Priority   `json:"priority"`
	CreatedAt time.Time  `json:"createdAt"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
}

// Draft carries what a user types in before a task exists.
type Draft struct {
	Text     string
	Category Category
	Priority Priority
	DueDate  *time.Time
}

// WithDefaults fills the category and priority the add dialog preselects.
func (d Draft) WithDefaults() Draft {
	if d.Category == "" {
		d.Category = CategoryPersonal
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	return d
}

// Patch overwrites only the fields that are set.
type Patch struct {
	Text      *string
	Completed *bool
	Category  *Category
	Priority  *Priority
	DueDate   *time.Time
}

// Apply returns a copy of task with the patch merged over it.
func (p Patch) Apply(task Task) Task {
	out := task
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Priority != nil {
		out.Priority = *p.Priority
	}
	if p.DueDate != nil {
		due := *p.DueDate
		out.DueDate = &due
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Text == nil && p.Completed == nil && p.Category == nil && p.Priority == nil && p.DueDate == nil
}
