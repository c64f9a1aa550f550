package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"talklink/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestAppendMessageAssignsNonDecreasingTimestamps(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	conv, err := s.CreateConversation(ctx, "Budget sync")
	req.NoError(err)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Minute), base.Add(time.Minute)}
	i := 0
	s.now = func() time.Time { t := clock[i]; i++; return t }

	var got []models.Message
	for _, text := range []string{"one", "two", "three"} {
		m, err := s.AppendMessage(ctx, models.Message{
			ConversationID:   conv.ID,
			Origin:           models.OriginPrimary,
			OriginalText:     text,
			OriginalLanguage: "en",
			TranslatedText:   strPtr(text + "-ko"),
			Tone:             "professional",
		})
		req.NoError(err)
		got = append(got, m)
	}

	req.Less(got[0].ID, got[1].ID)
	req.Less(got[1].ID, got[2].ID)
	req.True(got[1].CreatedAt.Equal(got[0].CreatedAt), "clock went backwards, timestamp must not")
	req.True(got[2].CreatedAt.After(got[1].CreatedAt))
}

func TestAppendMessageUnknownConversation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendMessage(context.Background(), models.Message{ConversationID: 404, OriginalText: "x", Origin: models.OriginBridge})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecentMessagesReturnsLastNAscending(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	conv, err := s.CreateConversation(ctx, "Room")
	req.NoError(err)

	for i := 0; i < 7; i++ {
		_, err := s.AppendMessage(ctx, models.Message{
			ConversationID:   conv.ID,
			Origin:           models.OriginCounter,
			OriginalText:     fmt.Sprintf("m%d", i),
			OriginalLanguage: "en",
			Tone:             "professional",
		})
		req.NoError(err)
	}

	msgs, err := s.RecentMessages(ctx, conv.ID, 3)
	req.NoError(err)
	req.Len(msgs, 3)
	req.Equal([]string{"m4", "m5", "m6"}, []string{msgs[0].OriginalText, msgs[1].OriginalText, msgs[2].OriginalText})
	req.Nil(msgs[0].TranslatedText)
}

func TestParticipantsAndInvites(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	conv, err := s.CreateConversation(ctx, "Room")
	req.NoError(err)
	req.Len(conv.InviteCode, 8)

	byCode, err := s.ConversationByInvite(ctx, conv.InviteCode)
	req.NoError(err)
	req.Equal(conv.ID, byCode.ID)

	p, err := s.CreateParticipant(ctx, conv.ID, " Bob ", "")
	req.NoError(err)
	req.Equal("Bob", p.Nickname)
	req.Equal("en", p.Language)

	found, err := s.ParticipantByToken(ctx, p.Token)
	req.NoError(err)
	req.Equal(p.ID, found.ID)

	_, err = s.ParticipantByToken(ctx, "nope")
	req.ErrorIs(err, ErrNotFound)
}

func TestIntegrationsReplaceAndDelete(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	conv, err := s.CreateConversation(ctx, "Room")
	req.NoError(err)

	_, err = s.SaveIntegration(ctx, models.BridgeIntegration{ConversationID: conv.ID, Kind: models.BridgeKindDiscord, BotToken: "a", ChannelID: "1"})
	req.NoError(err)
	_, err = s.SaveIntegration(ctx, models.BridgeIntegration{ConversationID: conv.ID, Kind: models.BridgeKindDiscord, BotToken: "b", ChannelID: "2"})
	req.NoError(err)

	all, err := s.Integrations(ctx)
	req.NoError(err)
	req.Len(all, 1)
	req.Equal("2", all[0].ChannelID)

	req.NoError(s.DeleteIntegration(ctx, conv.ID))
	_, err = s.GetIntegration(ctx, conv.ID)
	req.ErrorIs(err, ErrNotFound)
}

func TestDeleteConversationIsIdempotent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)
	conv, err := s.CreateConversation(ctx, "Room")
	req.NoError(err)
	_, err = s.AppendMessage(ctx, models.Message{ConversationID: conv.ID, Origin: models.OriginPrimary, OriginalText: "x", OriginalLanguage: "en", Tone: "professional"})
	req.NoError(err)

	req.NoError(s.DeleteConversation(ctx, conv.ID))
	req.NoError(s.DeleteConversation(ctx, conv.ID))

	_, err = s.GetConversation(ctx, conv.ID)
	req.ErrorIs(err, ErrNotFound)
	msgs, err := s.RecentMessages(ctx, conv.ID, 10)
	req.NoError(err)
	req.Empty(msgs)
}

func TestAssistantHistoryNewestFirst(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	s := newTestStore(t)

	for _, in := range []string{"first", "second", "third"} {
		_, err := s.SaveEmailHistory(ctx, models.EmailHistory{InputText: in, OutputText: "out-" + in, Mode: models.EmailModePolish})
		req.NoError(err)
	}
	got, err := s.EmailHistory(ctx, 2)
	req.NoError(err)
	req.Len(got, 2)
	req.Equal("third", got[0].InputText)
	req.Equal("second", got[1].InputText)

	_, err = s.SaveProposalHistory(ctx, models.ProposalHistory{RoomIDs: "1,2", Proposal: "Dear client"})
	req.NoError(err)
	props, err := s.ProposalHistory(ctx, 0)
	req.NoError(err)
	req.Len(props, 1)
	req.Equal("1,2", props[0].RoomIDs)
}
