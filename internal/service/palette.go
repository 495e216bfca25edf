package service

import "tasklist/internal/model"

// Palette is the icon set used to render tasks for a theme.
type Palette struct {
	Header   string
	Open     string
	Done     string
	DueSoon  string
	Overdue  string
	Calendar string
	Empty    string
}

var (
	lightPalette = Palette{
		Header:   "☀️",
		Open:     "⚪",
		Done:     "✅",
		DueSoon:  "⏳",
		Overdue:  "⚠️",
		Calendar: "🗓",
		Empty:    "🔍",
	}
	darkPalette = Palette{
		Header:   "🌙",
		Open:     "⚫",
		Done:     "✔️",
		DueSoon:  "⌛",
		Overdue:  "❗",
		Calendar: "📆",
		Empty:    "🔦",
	}
)

// PaletteFor picks the icons for theme. Unknown themes render as light.
func PaletteFor(theme model.Theme) Palette {
	if theme == model.ThemeDark {
		return darkPalette
	}
	return lightPalette
}

// PriorityMark is the coloured dot shown next to a priority.
func PriorityMark(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "🔴"
	case model.PriorityMedium:
		return "🟡"
	case model.PriorityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

// CategoryMark is the icon shown next to a category.
func CategoryMark(c model.Category) string {
	switch c {
	case model.CategoryWork:
		return "💼"
	case model.CategoryPersonal:
		return "🧩"
	case model.CategoryShopping:
		return "🛒"
	case model.CategoryHealth:
		return "🩺"
	default:
		return "🏷️"
	}
}
