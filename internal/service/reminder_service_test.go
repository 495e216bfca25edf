package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tasklist/internal/model"
)

func at(ts time.Time) *time.Time { return &ts }

func TestDueSummaryGroupsAndOrders(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{
		{ID: "1", Text: "later", DueDate: at(now.Add(10 * 24 * time.Hour)), Priority: model.PriorityLow},
		{ID: "2", Text: "soon b", DueDate: at(now.Add(30 * time.Hour)), Priority: model.PriorityHigh},
		{ID: "3", Text: "late", DueDate: at(now.Add(-time.Hour)), Category: model.CategoryWork},
		{ID: "4", Text: "soon a", DueDate: at(now.Add(2 * time.Hour))},
		{ID: "5", Text: "done", DueDate: at(now.Add(-time.Hour)), Completed: true},
		{ID: "6", Text: "no date"},
		{ID: "7", Text: "edge", DueDate: at(now.Add(48 * time.Hour))},
		{ID: "8", Text: "tomorrow-ish", DueDate: at(now.Add(25 * time.Hour))},
	}

	got := NewReminderService().DueSummary(tasks, now, model.ThemeLight)

	assert.Contains(t, got, "<b>Due tasks</b>")
	assert.NotContains(t, got, "done")
	assert.NotContains(t, got, "no date")

	overdue := strings.Index(got, "Overdue")
	soonA := strings.Index(got, "soon a")
	soonB := strings.Index(got, "soon b")
	later := strings.Index(got, "later")
	assert.True(t, overdue >= 0 && overdue < soonA)
	assert.True(t, soonA < soonB)
	assert.True(t, soonB < later)
	assert.Contains(t, got, "late <i>(Work)</i>")
	assert.Contains(t, got, "<b>overdue</b>")

	assert.Contains(t, got, "edge <i>()</i> · May 12, 12:00 · ≈2 d. left")
	assert.Contains(t, got, "tomorrow-ish <i>()</i> · May 11, 13:00 · ≈2 d. left")
	assert.Contains(t, got, "soon a <i>()</i> · May 10, 14:00 · ≈1 d. left")
	edge := strings.Index(got, "edge")
	assert.True(t, soonB < edge && edge < later, "a task due in exactly 48h is due soon")
}

func TestDueSummaryEmpty(t *testing.T) {
	now := time.Now()
	got := NewReminderService().DueSummary([]model.Task{{ID: "1", Text: "x"}}, now, model.ThemeDark)
	assert.Empty(t, got)
}

func TestDueSummaryEscapesAndUsesTheme(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{{ID: "1", Text: "<script>", DueDate: at(now.Add(time.Hour))}}

	got := NewReminderService().DueSummary(tasks, now, model.ThemeDark)
	assert.Contains(t, got, "&lt;script&gt;")
	assert.True(t, strings.HasPrefix(got, PaletteFor(model.ThemeDark).Header))
}
