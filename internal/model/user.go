package model

import "time"

// User stores Telegram user metadata and display preferences.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	Theme      Theme `gorm:"default:light"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
