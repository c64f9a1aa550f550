package models

import "time"

// Origin is the category of the entity that produced a message.
type Origin string

const (
	OriginPrimary Origin = "primary-party"
	OriginCounter Origin = "counter-party"
	OriginBridge  Origin = "bridge"
)

// Valid reports whether o is one of the known origins.
func (o Origin) Valid() bool {
	switch o {
	case OriginPrimary, OriginCounter, OriginBridge:
		return true
	}
	return false
}

const LanguageUnknown = "unknown"

// Message is the persisted, immutable record of one relayed message.
type Message struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ConversationID   uint      `gorm:"index:idx_messages_conv_created,priority:1;not null" json:"conversation_id"`
	Origin           Origin    `gorm:"size:20;not null" json:"origin"`
	OriginID         *uint     `json:"origin_id"`
	OriginalText     string    `gorm:"type:text;not null" json:"original_text"`
	OriginalLanguage string    `gorm:"size:16;not null" json:"original_language"`
	TranslatedText   *string   `gorm:"type:text" json:"translated_text"`
	Tone             string    `gorm:"size:20;not null" json:"tone"`
	CreatedAt        time.Time `gorm:"index:idx_messages_conv_created,priority:2" json:"created_at"`
}

// RelayText is what gets mirrored elsewhere: the translation when there is one.
func (m Message) RelayText() string {
	if m.TranslatedText != nil && *m.TranslatedText != "" {
		return *m.TranslatedText
	}
	return m.OriginalText
}
