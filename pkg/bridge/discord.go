package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// discordMaxContent is Discord's message length limit in characters.
const discordMaxContent = 2000

// DiscordGateway mirrors conversations into Discord channels with a bot account.
type DiscordGateway struct {
	logger *logrus.Logger
}

func NewDiscordGateway(logger *logrus.Logger) *DiscordGateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &DiscordGateway{logger: logger}
}

func (g *DiscordGateway) Attach(ctx context.Context, conversationID uint, creds Credentials, onMessage InboundFunc) (Handle, error) {
	if strings.TrimSpace(creds.BotToken) == "" || strings.TrimSpace(creds.ChannelID) == "" {
		return nil, errors.New("discord bot token and channel id are required")
	}

	s, err := discordgo.New("Bot " + creds.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		g.logger.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"bot":             r.User.Username,
		}).Info("[discord] ready")
	})
	s.AddHandler(func(_ *discordgo.Session, mc *discordgo.MessageCreate) {
		if !acceptMessage(creds.ChannelID, mc) {
			return
		}
		onMessage(authorName(mc), mc.Content)
	})

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("open discord gateway: %w", err)
	}
	return &discordHandle{session: s, channelID: creds.ChannelID}, nil
}

type discordHandle struct {
	session   *discordgo.Session
	channelID string
}

func (h *discordHandle) Send(ctx context.Context, displayName, text string) error {
	content := truncateRunes(FormatPost(displayName, text), discordMaxContent)
	if _, err := h.session.ChannelMessageSend(h.channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (h *discordHandle) Close() error {
	return h.session.Close()
}

// acceptMessage drops bot authors (our own posts included) and other channels.
func acceptMessage(channelID string, mc *discordgo.MessageCreate) bool {
	if mc == nil || mc.Message == nil || mc.Author == nil {
		return false
	}
	if mc.Author.Bot || mc.ChannelID != channelID {
		return false
	}
	return strings.TrimSpace(mc.Content) != ""
}

func authorName(mc *discordgo.MessageCreate) string {
	if mc.Member != nil && mc.Member.Nick != "" {
		return mc.Member.Nick
	}
	if mc.Author.GlobalName != "" {
		return mc.Author.GlobalName
	}
	return mc.Author.Username
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
