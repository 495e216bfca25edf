package model

import (
	"fmt"
	"strings"
)

// Category groups tasks by area of life.
type Category string

const (
	CategoryWork     Category = "Work"
	CategoryPersonal Category = "Personal"
	CategoryShopping Category = "Shopping"
	CategoryHealth   Category = "Health"
	CategoryOther    Category = "Other"
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{CategoryWork, CategoryPersonal, CategoryShopping, CategoryHealth, CategoryOther}
}

// ParseCategory matches raw against the known categories ignoring case.
func ParseCategory(raw string) (Category, error) {
	value := strings.TrimSpace(raw)
	for _, c := range Categories() {
		if strings.EqualFold(value, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

// Priority tells how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// ParsePriority matches raw against the known priorities ignoring case.
func ParsePriority(raw string) (Priority, error) {
	value := strings.TrimSpace(raw)
	for _, p := range Priorities() {
		if strings.EqualFold(value, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q", raw)
}

// Theme is the colour scheme a user picked.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle flips between light and dark. Anything unknown counts as light.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}
