package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when an external chat surface cannot be
// reached or refuses a post.
var ErrUnavailable = errors.New("bridge unavailable")

// Credentials identify the external channel a conversation is mirrored to.
type Credentials struct {
	Kind      string
	BotToken  string
	ChannelID string
}

// InboundFunc receives messages written on the external side.
type InboundFunc func(authorName, text string)

// Handle is one live attachment.
type Handle interface {
	Send(ctx context.Context, displayName, text string) error
	Close() error
}

// Gateway opens attachments for one kind of external surface.
type Gateway interface {
	Attach(ctx context.Context, conversationID uint, creds Credentials, onMessage InboundFunc) (Handle, error)
}

// FormatPost renders an attributed post for the external side.
func FormatPost(displayName, text string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return text
	}
	return fmt.Sprintf("**%s**: %s", name, text)
}
