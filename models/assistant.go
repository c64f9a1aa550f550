package models

import "time"

// Email assistant modes.
const (
	EmailModePolish    = "polish"
	EmailModeSummarize = "summarize"
)

// EmailHistory records one email assistant run.
type EmailHistory struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	InputText  string    `gorm:"type:text;not null" json:"input_text"`
	OutputText string    `gorm:"type:text;not null" json:"output_text"`
	Mode       string    `gorm:"size:20;not null" json:"mode"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// ProposalHistory records a proposal drafted from the history of some rooms.
// RoomIDs is a comma separated list.
type ProposalHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RoomIDs      string    `gorm:"size:255;not null" json:"room_ids"`
	Instructions string    `gorm:"type:text" json:"instructions"`
	Proposal     string    `gorm:"type:text;not null" json:"proposal"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}
