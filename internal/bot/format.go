package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tasklist/internal/filter"
	"tasklist/internal/model"
	"tasklist/internal/service"
)

const (
	// Telegram accepts at most 100 inline buttons per message.
	maxButtonTasks = 30
	maxMessageLen  = 4000
)

// renderTaskList builds the list message and its inline buttons.
func renderTaskList(tasks []model.Task, sel filter.Selection, palette service.Palette, now time.Time) (string, tgbotapi.InlineKeyboardMarkup) {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%s <b>My Tasks</b>\n", palette.Header))
	if sel.IsActive() {
		builder.WriteString(fmt.Sprintf("🔎 %s\n", escape(sel.String())))
	}
	builder.WriteByte('\n')

	if len(tasks) == 0 {
		builder.WriteString(fmt.Sprintf("%s %s", palette.Empty, msgNoTasksMatch))
		rows := [][]tgbotapi.InlineKeyboardButton{}
		if sel.IsActive() {
			builder.WriteString("\nSend /clear to clear the filters.")
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✖️ Clear Filters", cbFilterClear),
			))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(menuLabelFilters, cbFilterOpen),
		))
		return builder.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		builder.WriteString(formatTask(task, palette, now))
		if i >= maxButtonTasks {
			continue
		}

		toggleLabel := "✅ " + shortText(task.Text, 20)
		if task.Completed {
			toggleLabel = "↩️ " + shortText(task.Text, 20)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel, cbTogglePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("✏️", cbEditPrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+task.ID),
		))
	}
	if len(tasks) > maxButtonTasks {
		builder.WriteString(fmt.Sprintf("Buttons cover the first %d tasks. Use /done &lt;id&gt; or /edit &lt;id&gt; for the rest.", maxButtonTasks))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(menuLabelFilters, cbFilterOpen),
	))

	return strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func formatTask(task model.Task, palette service.Palette, now time.Time) string {
	var b strings.Builder
	icon := palette.Open
	text := escape(task.Text)
	if task.Completed {
		icon = palette.Done
		text = "<s>" + text + "</s>"
	}
	b.WriteString(fmt.Sprintf("%s %s\n", icon, text))
	b.WriteString(fmt.Sprintf("   %s %s · %s %s", service.PriorityMark(task.Priority), task.Priority,
		service.CategoryMark(task.Category), task.Category))
	if task.DueDate != nil {
		due := task.DueDate.In(now.Location())
		mark := palette.Calendar
		if !task.Completed {
			switch {
			case now.After(due):
				mark = palette.Overdue
			case due.Sub(now) <= service.DueSoonWindow:
				mark = palette.DueSoon
			}
		}
		b.WriteString(fmt.Sprintf(" · %s %s", mark, service.FormatDue(due)))
	}
	b.WriteString(fmt.Sprintf("\n   <code>#%s</code>\n\n", escape(task.ID)))
	return b.String()
}

func shortText(text string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// splitMessage cuts text on line breaks into chunks of at most limit runes.
// A single longer line is cut by runes.
func splitMessage(text string, limit int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if chunk := strings.TrimSpace(current.String()); chunk != "" {
			chunks = append(chunks, chunk)
		}
		current.Reset()
		currentLen = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if currentLen+len(runes) > limit {
			flush()
		}
		current.WriteString(string(runes))
		currentLen += len(runes)
	}
	flush()
	return chunks
}
