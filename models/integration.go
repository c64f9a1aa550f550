package models

import "time"

const BridgeKindDiscord = "discord"

// BridgeIntegration holds the credentials of the external chat bridge attached
// to a conversation. At most one per conversation.
type BridgeIntegration struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"uniqueIndex;not null" json:"conversation_id"`
	Kind           string    `gorm:"size:20;not null" json:"kind"`
	BotToken       string    `gorm:"size:255;not null" json:"-"`
	ChannelID      string    `gorm:"size:64;not null" json:"channel_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
