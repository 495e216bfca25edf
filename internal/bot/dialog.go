package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"tasklist/internal/model"
	"tasklist/internal/service"
	"tasklist/internal/store"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageText
	stageCategory
	stagePriority
	stageDueDate
)

type conversationState struct {
	stage conversationStage
	// editID is set when the dialog edits an existing task.
	editID string
	input  service.TaskInput
}

func (s *conversationState) editing() bool {
	return s.editID != ""
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start new task conversation user=%d", msg.From.ID)
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageText})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New task.\n<b>Step 1:</b> what needs to be done?", cancelKeyboard())
}

func (b *Bot) startEditConversation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	if taskID == "" {
		return b.sendText(chatID, "Send the task id: /edit 1712044800000")
	}
	if _, err := b.ensureUser(ctx, from); err != nil {
		return err
	}
	task, ok := b.taskSvc.GetTask(taskID)
	if !ok {
		return b.sendText(chatID, msgTaskNotFound)
	}
	log.Printf("[info] start edit conversation user=%d task=%s", from.ID, taskID)
	b.clearConfirmation(from.ID)
	b.setConversation(from.ID, &conversationState{stage: stageText, editID: task.ID})
	text := fmt.Sprintf("✏️ Edit task.\nCurrent text: <i>%s</i>\n<b>Step 1:</b> send the new text or «Skip».", escape(task.Text))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageText:
		switch {
		case state.editing() && isSkipInput(text):
		case text == "":
			return b.sendWithReplyMarkup(msg.Chat.ID, "The task description can't be empty. What needs to be done?", cancelKeyboard())
		default:
			state.input.Text = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 Pick a category (or «Skip»).", categoryKeyboard())
	case stageCategory:
		if !isSkipInput(text) {
			category, err := model.ParseCategory(stripMark(text))
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the categories below.", categoryKeyboard())
			}
			state.input.Category = category
		}
		state.stage = stagePriority
		return b.sendWithReplyMarkup(msg.Chat.ID, "⚡ Pick a priority (or «Skip»).", priorityKeyboard())
	case stagePriority:
		if !isSkipInput(text) {
			priority, err := model.ParsePriority(stripMark(text))
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the priorities below.", priorityKeyboard())
			}
			state.input.Priority = priority
		}
		state.stage = stageDueDate
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ Due date as <code>2025-11-30</code> or <code>2025-11-30 18:00</code> (or «Skip»).", skipKeyboard())
	case stageDueDate:
		if !isSkipInput(text) {
			due, err := service.ParseDueDate(text, b.now().Location())
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Can't read that date. Use <code>2025-11-30</code> or «Skip».", skipKeyboard())
			}
			state.input.DueDate = &due
		}
		b.clearConversation(msg.From.ID)
		return b.finishConversation(ctx, msg.From, state, msg.Chat.ID)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Dialog reset. Try again with /newtask.")
	}
}

func (b *Bot) finishConversation(ctx context.Context, from *tgbotapi.User, state *conversationState, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	var task model.Task
	if state.editing() {
		task, err = b.taskSvc.EditTask(ctx, state.editID, state.input)
	} else {
		task, err = b.taskSvc.CreateTask(ctx, state.input)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTitleRequired):
			return b.sendText(chatID, "The task description can't be empty.")
		case errors.Is(err, store.ErrTaskNotFound):
			return b.sendText(chatID, msgTaskNotFound)
		case state.editing():
			b.logFailure("edit", state.editID, err)
			return b.sendAlert(chatID, msgFailedUpdate)
		default:
			b.logFailure("add", "", err)
			return b.sendAlert(chatID, msgFailedAdd)
		}
	}

	verb := "saved"
	if state.editing() {
		verb = "updated"
	}
	log.Printf("[info] task %s id=%s user=%d", verb, task.ID, user.ID)

	var summary strings.Builder
	summary.WriteString(fmt.Sprintf("✅ <b>Task %s</b>\n", verb))
	summary.WriteString(fmt.Sprintf("• <b>Text:</b> %s\n", escape(task.Text)))
	summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s %s\n", service.CategoryMark(task.Category), task.Category))
	summary.WriteString(fmt.Sprintf("• <b>Priority:</b> %s %s\n", service.PriorityMark(task.Priority), task.Priority))
	if task.DueDate != nil {
		summary.WriteString(fmt.Sprintf("• <b>Due:</b> %s\n", service.FormatDue(task.DueDate.In(b.now().Location()))))
	}
	if err := b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendTaskList(chatID, user)
}

// stripMark drops a leading emoji added by the keyboards.
func stripMark(text string) string {
	if idx := strings.LastIndex(text, " "); idx >= 0 {
		return text[idx+1:]
	}
	return text
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
