package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"tasklist/internal/filter"
	"tasklist/internal/model"
	"tasklist/internal/repository"
	"tasklist/internal/service"
	"tasklist/internal/store"
	"tasklist/internal/taskapi"
)

const (
	cbTogglePrefix   = "toggle:"
	cbEditPrefix     = "edit:"
	cbDeletePrefix   = "delete:"
	cbConfirmPrefix  = "confirm:"
	cbCancelPrefix   = "cancel:"
	cbStatusPrefix   = "fs:"
	cbPriorityPrefix = "fp:"
	cbCategoryPrefix = "fc:"
	cbFilterClear    = "fclear"
	cbFilterOpen     = "fopen"
	cbShowTasks      = "tasks"
)

const (
	btnSkip             = "⏭️ Skip"
	btnConfirmDelete    = "🗑 Delete"
	btnCancel           = "↩️ Cancel"
	btnCancelDialog     = "⏪ Cancel input"
	menuLabelNewTask    = "➕ New task"
	menuLabelTasks      = "📋 Tasks"
	menuLabelFilters    = "🔎 Filters"
	menuLabelTheme      = "🌓 Theme"
	menuLabelHelp       = "ℹ️ Help"
	msgNoTasksMatch     = "No tasks match your filters"
	msgTaskNotFound     = "Task not found."
	msgTaskGone         = "Task not found or already deleted."
	msgFailedLoad       = "Failed to load tasks from server."
	msgFailedAdd        = "Failed to add task."
	msgFailedUpdate     = "Failed to update task."
	msgFailedDelete     = "Failed to delete task."
	msgUnknownInput     = "I didn't get that. Send /newtask to add a task or /help for the command list."
	msgDeleteConfirmAsk = "Confirm or cancel deleting the task."
)

// sender is the part of the Telegram API the bot writes to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type confirmationRequest struct {
	taskID string
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	out           sender
	userRepo      *repository.UserRepository
	taskSvc       *service.TaskService
	reminderSvc   *service.ReminderService
	filters       *filter.Registry
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, reminderSvc *service.ReminderService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, userRepo, taskSvc, reminderSvc)
	b.api = api
	return b, nil
}

func newBot(out sender, userRepo *repository.UserRepository, taskSvc *service.TaskService, reminderSvc *service.ReminderService) *Bot {
	return &Bot{
		out:           out,
		userRepo:      userRepo,
		taskSvc:       taskSvc,
		reminderSvc:   reminderSvc,
		filters:       filter.NewRegistry(),
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot has no telegram api")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.Chat == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, msgUnknownInput)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "edit":
		return b.startEditConversation(ctx, msg.Chat.ID, msg.From, strings.TrimSpace(msg.CommandArguments()))
	case "done":
		return b.handleDone(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "filter":
		return b.sendFilterMenu(msg.Chat.ID)
	case "clear":
		b.filters.Update(msg.Chat.ID, func(s *filter.Selection) { s.Clear() })
		return b.handleListTasks(ctx, msg)
	case "theme":
		return b.handleTheme(ctx, msg)
	case "reload":
		return b.handleReload(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unsupported command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep your to-do list in sync.</b>\n\n%s", escape(name), commandList)
	return b.sendText(msg.Chat.ID, text)
}

const commandList = "Commands:\n" +
	"• /tasks — show tasks with the current filter\n" +
	"• /newtask — add a task step by step\n" +
	"• /edit &lt;id&gt; — edit a task\n" +
	"• /done &lt;id&gt; — mark a task done or not done\n" +
	"• /delete &lt;id&gt; — delete a task\n" +
	"• /filter — filter by status, priority or category\n" +
	"• /clear — clear all filters\n" +
	"• /theme — switch between light and dark\n" +
	"• /reload — reload tasks from the server\n" +
	"• /report — tasks with due dates\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+commandList)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendTaskList(msg.Chat.ID, user)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Send the task id: /done 1712044800000")
	}
	return b.toggleTaskAndRefresh(ctx, msg.Chat.ID, msg.From, id)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Send the task id: /delete 1712044800000")
	}
	return b.askDeleteConfirmation(msg.Chat.ID, msg.From, id)
}

func (b *Bot) handleTheme(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	theme := user.Theme.Toggle()
	if err := b.userRepo.SetTheme(ctx, msg.From.ID, theme); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not switch theme: %s", escape(err.Error())))
	}
	user.Theme = theme
	log.Printf("[info] theme switched user=%d theme=%s", msg.From.ID, theme)

	label := "Light"
	if theme == model.ThemeDark {
		label = "Dark"
	}
	palette := service.PaletteFor(theme)
	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("%s %s theme on.", palette.Header, label)); err != nil {
		return err
	}
	return b.sendTaskList(msg.Chat.ID, user)
}

func (b *Bot) handleReload(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.taskSvc.Refresh(ctx); err != nil {
		b.logFailure("load", "", err)
		return b.sendAlert(msg.Chat.ID, msgFailedLoad)
	}
	return b.sendTaskList(msg.Chat.ID, user)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text := b.reminderSvc.DueSummary(b.taskSvc.All(), b.now(), user.Theme)
	if text == "" {
		return b.sendText(msg.Chat.ID, "Nothing is due. 🎉")
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Deletion cancelled.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, msgDeleteConfirmAsk, confirmKeyboard())
	}
}

// SendDueReminders reloads tasks and sends the due summary to every known user.
func (b *Bot) SendDueReminders(ctx context.Context) error {
	if err := b.taskSvc.Refresh(ctx); err != nil {
		b.logFailure("load", "", err)
	}
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	tasks := b.taskSvc.All()
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text := b.reminderSvc.DueSummary(tasks, now, user.Theme)
		if text == "" {
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			log.Printf("send reminder to %d: %v", user.TelegramID, err)
		}
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.out.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	log.Printf("[info] callback user=%d data=%s", cb.From.ID, data)

	switch {
	case strings.HasPrefix(data, cbTogglePrefix):
		return b.toggleTaskAndRefresh(ctx, chatID, cb.From, strings.TrimPrefix(data, cbTogglePrefix))
	case strings.HasPrefix(data, cbEditPrefix):
		return b.startEditConversation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbEditPrefix))
	case strings.HasPrefix(data, cbDeletePrefix):
		return b.askDeleteConfirmation(chatID, cb.From, strings.TrimPrefix(data, cbDeletePrefix))
	case strings.HasPrefix(data, cbConfirmPrefix):
		b.clearConfirmation(cb.From.ID)
		return b.deleteTaskAndRefresh(ctx, chatID, cb.From, strings.TrimPrefix(data, cbConfirmPrefix))
	case strings.HasPrefix(data, cbCancelPrefix):
		b.clearConfirmation(cb.From.ID)
		return b.sendText(chatID, "Deletion cancelled.")
	case strings.HasPrefix(data, cbStatusPrefix),
		strings.HasPrefix(data, cbPriorityPrefix),
		strings.HasPrefix(data, cbCategoryPrefix),
		data == cbFilterClear:
		return b.applyFilterCallback(chatID, cb.Message.MessageID, data)
	case data == cbFilterOpen:
		return b.sendFilterMenu(chatID)
	case data == cbShowTasks:
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		return b.sendTaskList(chatID, user)
	default:
		return nil
	}
}

func (b *Bot) applyFilterCallback(chatID int64, messageID int, data string) error {
	var parseErr error
	sel := b.filters.Update(chatID, func(s *filter.Selection) {
		switch {
		case data == cbFilterClear:
			s.Clear()
		case strings.HasPrefix(data, cbStatusPrefix):
			status, err := filter.ParseStatus(strings.TrimPrefix(data, cbStatusPrefix))
			if err != nil {
				parseErr = err
				return
			}
			s.SetStatus(status)
		case strings.HasPrefix(data, cbPriorityPrefix):
			p, err := model.ParsePriority(strings.TrimPrefix(data, cbPriorityPrefix))
			if err != nil {
				parseErr = err
				return
			}
			s.SelectPriority(p)
		case strings.HasPrefix(data, cbCategoryPrefix):
			c, err := model.ParseCategory(strings.TrimPrefix(data, cbCategoryPrefix))
			if err != nil {
				parseErr = err
				return
			}
			s.SelectCategory(c)
		}
	})
	if parseErr != nil {
		log.Printf("filter callback %q: %v", data, parseErr)
		return nil
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, filterMenuText(sel), filterKeyboard(sel))
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := b.out.Send(edit)
	return err
}

func (b *Bot) sendFilterMenu(chatID int64) error {
	sel := b.filters.Get(chatID)
	msg := tgbotapi.NewMessage(chatID, filterMenuText(sel))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = filterKeyboard(sel)
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) askDeleteConfirmation(chatID int64, from *tgbotapi.User, taskID string) error {
	task, ok := b.taskSvc.GetTask(taskID)
	if !ok {
		return b.sendText(chatID, msgTaskNotFound)
	}

	text := fmt.Sprintf("Delete task «%s»?\nAre you sure you want to delete this task?", escape(shortText(task.Text, 60)))
	b.setConfirmation(from.ID, confirmationRequest{taskID: task.ID})
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = deleteConfirmKeyboard(task.ID)
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) toggleTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.ToggleTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return b.sendText(chatID, msgTaskNotFound)
		}
		if taskapi.IsNotFound(err) {
			return b.resyncAfterStaleTask(ctx, chatID, user)
		}
		b.logFailure("toggle", taskID, err)
		return b.sendAlert(chatID, msgFailedUpdate)
	}

	log.Printf("[info] task toggled id=%s user=%d completed=%t", task.ID, user.ID, task.Completed)
	return b.sendTaskList(chatID, user)
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	task, ok := b.taskSvc.GetTask(taskID)
	if !ok {
		return b.sendTextWithRemove(chatID, msgTaskGone)
	}

	if err := b.taskSvc.DeleteTask(ctx, taskID); err != nil {
		if taskapi.IsNotFound(err) {
			return b.resyncAfterStaleTask(ctx, chatID, user)
		}
		b.logFailure("delete", taskID, err)
		return b.sendAlert(chatID, msgFailedDelete)
	}

	log.Printf("[info] task deleted id=%s user=%d", task.ID, user.ID)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Task «%s» deleted.", escape(shortText(task.Text, 60)))); err != nil {
		return err
	}
	return b.sendTaskList(chatID, user)
}

// resyncAfterStaleTask reloads the list when the server no longer knows a task.
func (b *Bot) resyncAfterStaleTask(ctx context.Context, chatID int64, user *model.User) error {
	if err := b.taskSvc.Refresh(ctx); err != nil {
		b.logFailure("load", "", err)
	}
	if err := b.sendText(chatID, msgTaskGone); err != nil {
		return err
	}
	return b.sendTaskList(chatID, user)
}

func (b *Bot) sendTaskList(chatID int64, user *model.User) error {
	sel := b.filters.Get(chatID)
	tasks := b.taskSvc.List(sel)
	text, markup := renderTaskList(tasks, sel, service.PaletteFor(user.Theme), b.now())

	chunks := splitMessage(text, maxMessageLen)
	for i, chunk := range chunks {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(chunks)-1 {
			msg.ReplyMarkup = markup
		}
		if _, err := b.out.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelFilters):
		return true, b.sendFilterMenu(msg.Chat.ID)
	case strings.ToLower(menuLabelTheme):
		return true, b.handleTheme(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) logFailure(op, taskID string, err error) {
	log.WithFields(log.Fields{"op": op, "task_id": taskID}).WithError(err).Warn("task operation failed")
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendAlert(chatID int64, text string) error {
	return b.sendText(chatID, "⚠️ <b>Error</b>\n"+escape(text))
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.out.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func escape(s string) string {
	return html.EscapeString(s)
}
