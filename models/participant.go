package models

import "time"

// Participant is an invited counter-party identity bound to one conversation.
type Participant struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	Nickname       string    `gorm:"size:80;not null" json:"nickname"`
	Token          string    `gorm:"size:64;uniqueIndex;not null" json:"token,omitempty"`
	Language       string    `gorm:"size:8;default:en" json:"language"`
	JoinedAt       time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
