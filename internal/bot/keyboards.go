package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tasklist/internal/filter"
	"tasklist/internal/model"
	"tasklist/internal/service"
)

const selectedMark = "• "

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelFilters),
			tgbotapi.NewKeyboardButton(menuLabelTheme),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnConfirmDelete),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var first, second []tgbotapi.KeyboardButton
	for i, c := range model.Categories() {
		btn := tgbotapi.NewKeyboardButton(categoryLabel(c))
		if i < 3 {
			first = append(first, btn)
		} else {
			second = append(second, btn)
		}
	}
	kb := tgbotapi.NewReplyKeyboard(
		first,
		second,
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var row []tgbotapi.KeyboardButton
	for _, p := range model.Priorities() {
		row = append(row, tgbotapi.NewKeyboardButton(priorityLabel(p)))
	}
	kb := tgbotapi.NewReplyKeyboard(
		row,
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func deleteConfirmKeyboard(taskID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnConfirmDelete, cbConfirmPrefix+taskID),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+taskID),
		),
	)
}

// filterKeyboard marks the selected value of every dimension.
func filterKeyboard(sel filter.Selection) tgbotapi.InlineKeyboardMarkup {
	var statusRow []tgbotapi.InlineKeyboardButton
	current := sel.Status
	if current == "" {
		current = filter.StatusAll
	}
	for _, s := range filter.Statuses() {
		statusRow = append(statusRow, tgbotapi.NewInlineKeyboardButtonData(
			markIf(s == current, string(s)), cbStatusPrefix+string(s)))
	}

	var priorityRow []tgbotapi.InlineKeyboardButton
	for _, p := range model.Priorities() {
		selected := sel.Priority != nil && *sel.Priority == p
		priorityRow = append(priorityRow, tgbotapi.NewInlineKeyboardButtonData(
			markIf(selected, priorityLabel(p)), cbPriorityPrefix+string(p)))
	}

	var categoryRows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, c := range model.Categories() {
		selected := sel.Category != nil && *sel.Category == c
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			markIf(selected, categoryLabel(c)), cbCategoryPrefix+string(c)))
		if i == 2 {
			categoryRows = append(categoryRows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		categoryRows = append(categoryRows, row)
	}

	rows := [][]tgbotapi.InlineKeyboardButton{statusRow, priorityRow}
	rows = append(rows, categoryRows...)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✖️ Clear", cbFilterClear),
		tgbotapi.NewInlineKeyboardButtonData(menuLabelTasks, cbShowTasks),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func filterMenuText(sel filter.Selection) string {
	return fmt.Sprintf("🔎 <b>Filters</b>\nCurrent: %s\nTap a selected priority or category again to drop it.", escape(sel.String()))
}

func markIf(selected bool, label string) string {
	if selected {
		return selectedMark + label
	}
	return label
}

func categoryLabel(c model.Category) string {
	return service.CategoryMark(c) + " " + string(c)
}

func priorityLabel(p model.Priority) string {
	return service.PriorityMark(p) + " " + string(p)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirmDelete) || value == "delete" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel input"
}
