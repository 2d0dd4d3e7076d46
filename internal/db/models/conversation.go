package models

import "time"

// Conversation maps an upstream conversation to the account that owns it.
// Only the mapping and title are stored, never message content.
type Conversation struct {
	ID             uint   `gorm:"primaryKey"`
	ConversationID string `gorm:"uniqueIndex;size:36"`
	Title          string
	AccountID      uint   `gorm:"index"`
	ModelName      string `gorm:"size:64"`
	IsValid        bool   `gorm:"default:true"` // false once the conversation vanished upstream
	CreateTime     time.Time
	ActiveTime     *time.Time
}
