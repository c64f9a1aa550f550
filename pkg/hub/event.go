package hub

import "talklink/models"

// Event types pushed to live connections.
const (
	EventHistory    = "history"
	EventMessage    = "message"
	EventPresence   = "presence"
	EventTyping     = "typing"
	EventSuggestion = "assistant_suggestion"
	EventError      = "error"
)

// Presence kinds.
const (
	PresenceJoined = "joined"
	PresenceLeft   = "left"
)

// Event is one outbound frame. Only the fields relevant to Type are set; an
// empty history carries no messages field.
type Event struct {
	Type           string           `json:"type"`
	ConversationID uint             `json:"conversation_id,omitempty"`
	Messages       []models.Message `json:"messages,omitempty"`
	Message        *models.Message  `json:"message,omitempty"`
	Kind           string           `json:"kind,omitempty"`
	Nickname       string           `json:"nickname,omitempty"`
	IsTyping       *bool            `json:"is_typing,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	SuggestedQuery string           `json:"suggested_query,omitempty"`
	Error          string           `json:"error,omitempty"`
}

func HistoryEvent(convID uint, msgs []models.Message) Event {
	return Event{Type: EventHistory, ConversationID: convID, Messages: msgs}
}

// MessageEvent carries a persisted message and the display name of whoever
// sent it, which the stored record does not keep.
func MessageEvent(m models.Message, nickname string) Event {
	return Event{Type: EventMessage, ConversationID: m.ConversationID, Message: &m, Nickname: nickname}
}

func PresenceEvent(convID uint, kind, nickname string) Event {
	return Event{Type: EventPresence, ConversationID: convID, Kind: kind, Nickname: nickname}
}

func TypingEvent(convID uint, nickname string, typing bool) Event {
	return Event{Type: EventTyping, ConversationID: convID, Nickname: nickname, IsTyping: &typing}
}

func SuggestionEvent(convID uint, reason, query string) Event {
	return Event{Type: EventSuggestion, ConversationID: convID, Reason: reason, SuggestedQuery: query}
}

func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Error: msg}
}
