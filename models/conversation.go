package models

import "time"

// ConversationTurn is one question/answer exchange with the tutor. Rows are append-only.
type ConversationTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Response  string    `gorm:"type:text;not null" json:"response"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}
