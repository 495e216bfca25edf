package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklist/internal/filter"
	"tasklist/internal/model"
	"tasklist/internal/service"
)

func manyTasks(n int, text string) []model.Task {
	tasks := make([]model.Task, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, model.Task{
			ID:       fmt.Sprintf("%d", i+1),
			Text:     fmt.Sprintf("%s %d", text, i+1),
			Category: model.CategoryWork,
			Priority: model.PriorityMedium,
		})
	}
	return tasks
}

func countButtons(markup tgbotapi.InlineKeyboardMarkup) int {
	total := 0
	for _, row := range markup.InlineKeyboard {
		total += len(row)
	}
	return total
}

func TestRenderTaskListCapsButtons(t *testing.T) {
	now := time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)

	text, markup := renderTaskList(manyTasks(40, "task"), filter.Selection{}, service.PaletteFor(model.ThemeLight), now)

	assert.LessOrEqual(t, countButtons(markup), 100)
	assert.Contains(t, text, "task 40")
	assert.Contains(t, text, "/done &lt;id&gt;")

	_, small := renderTaskList(manyTasks(2, "task"), filter.Selection{}, service.PaletteFor(model.ThemeLight), now)
	assert.Equal(t, 7, countButtons(small))
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 100))

	text := strings.Repeat("line of text\n", 50)
	chunks := splitMessage(text, 100)
	require.Greater(t, len(chunks), 1)
	var joined []string
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
		assert.True(t, strings.HasSuffix(chunk, "line of text"))
		joined = append(joined, chunk)
	}
	assert.Equal(t, strings.TrimSpace(text), strings.Join(joined, "\n"))

	long := splitMessage(strings.Repeat("я", 250), 100)
	require.Len(t, long, 3)
	assert.Equal(t, 100, utf8.RuneCountInString(long[0]))
}
