package models

import "time"

// Conversation is a chat room with a stable invite code.
type Conversation struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:200;not null" json:"name"`
	InviteCode string    `gorm:"size:16;uniqueIndex;not null" json:"invite_code"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Participants []Participant `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Messages     []Message     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
