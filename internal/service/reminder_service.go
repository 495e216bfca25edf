package service

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"tasklist/internal/model"
)

// DueSoonWindow is how far ahead a due date counts as "due soon".
const DueSoonWindow = 48 * time.Hour

// ReminderService builds human-readable summaries of tasks with due dates.
type ReminderService struct{}

func NewReminderService() *ReminderService {
	return &ReminderService{}
}

// DueSummary lists open tasks that carry a due date: overdue first, then due
// within 48 hours, then the rest. It returns "" when nothing is due.
func (s *ReminderService) DueSummary(tasks []model.Task, now time.Time, theme model.Theme) string {
	var overdue, soon, later []model.Task
	for _, task := range tasks {
		if task.Completed || task.DueDate == nil {
			continue
		}
		due := *task.DueDate
		switch {
		case now.After(due):
			overdue = append(overdue, task)
		case due.Sub(now) <= DueSoonWindow:
			soon = append(soon, task)
		default:
			later = append(later, task)
		}
	}
	if len(overdue)+len(soon)+len(later) == 0 {
		return ""
	}

	palette := PaletteFor(theme)
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s <b>Due tasks</b>\n", palette.Header))
	builder.WriteString(fmt.Sprintf("%s %s\n", palette.Calendar, now.Format("Jan 2, 2006")))

	writeGroup(&builder, palette.Overdue, "Overdue", overdue, now)
	writeGroup(&builder, palette.DueSoon, "Due soon", soon, now)
	writeGroup(&builder, palette.Open, "Later", later, now)

	return strings.TrimSpace(builder.String())
}

func writeGroup(builder *strings.Builder, icon, title string, tasks []model.Task, now time.Time) {
	if len(tasks) == 0 {
		return
	}
	sortByDueDate(tasks)
	builder.WriteString(fmt.Sprintf("\n%s <b>%s</b>\n", icon, title))
	for _, task := range tasks {
		builder.WriteString(formatDueTask(task, now))
	}
}

func sortByDueDate(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(*tasks[j].DueDate)
	})
}

func formatDueTask(task model.Task, now time.Time) string {
	due := task.DueDate.In(now.Location())
	line := fmt.Sprintf("• %s %s <i>(%s)</i> · %s", PriorityMark(task.Priority),
		html.EscapeString(strings.TrimSpace(task.Text)), task.Category, FormatDue(due))
	if now.After(due) {
		line += " — <b>overdue</b>"
	} else {
		daysLeft := int(math.Ceil(due.Sub(now).Hours() / 24))
		if daysLeft < 1 {
			daysLeft = 1
		}
		line += fmt.Sprintf(" · ≈%d d. left", daysLeft)
	}
	return line + "\n"
}

// FormatDue renders a due date the way the task list shows it.
func FormatDue(t time.Time) string {
	return t.Format("Jan 2, 15:04")
}
