package models

import (
	"time"
)

// Message is one broadcast message captured from the chat feed. Rows are
// immutable once written; the pipeline only reads them back.
type Message struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	MessageID int64  `gorm:"uniqueIndex;not null"`

	Date         time.Time `gorm:"not null;index;index:idx_messages_date_block,priority:1"`
	Text         string    `gorm:"type:text"`
	IsBlockTrade bool      `gorm:"index;index:idx_messages_date_block,priority:2"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "messages"
}
