// Package compose drafts business writing with the translation oracle: email
// polishing and summaries, and proposals built from conversation history.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"talklink/models"
	"talklink/pkg/metrics"
	"talklink/pkg/store"
	"talklink/pkg/translate"
)

// ErrNoRooms is returned when a proposal names no existing conversation.
var ErrNoRooms = errors.New("at least one existing room is required")

// proposalHistoryLimit is how many messages of each room feed a proposal.
const proposalHistoryLimit = 100

// Store is the persistence the assistant needs.
type Store interface {
	GetConversation(ctx context.Context, id uint) (models.Conversation, error)
	RecentMessages(ctx context.Context, conversationID uint, limit int) ([]models.Message, error)
	SaveEmailHistory(ctx context.Context, h models.EmailHistory) (models.EmailHistory, error)
	SaveProposalHistory(ctx context.Context, h models.ProposalHistory) (models.ProposalHistory, error)
}

// Summary is the structured digest of an incoming email.
type Summary struct {
	Summary     string `json:"summary"`
	ActionItems string `json:"action_items"`
	Intentions  string `json:"intentions"`
}

// ProposalRequest selects the rooms a proposal is drafted from.
type ProposalRequest struct {
	RoomIDs      []uint
	Instructions string
	Profile      map[string]any
}

type Service struct {
	oracle translate.Completer
	store  Store
	logger *logrus.Logger
}

func New(oracle translate.Completer, st Store, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{oracle: oracle, store: st, logger: logger}
}

const polishPrompt = `You are a business communication expert.
Rewrite the input as a polished business email in English.

Rules:
- Courteous, professional tone
- Greeting, body and closing
- Keep technical terms as they are
- Preserve the writer's intent

Reply with the email only.`

const summarizePrompt = `You assist a Korean freelancer who receives emails in English.
Read the email and reply ONLY with this JSON object, values written in Korean:
{
  "summary": "three to five sentence summary",
  "action_items": "what the freelancer has to do, one per line",
  "intentions": "hidden intent or nuance, empty string if none"
}`

// Polish rewrites text as a business email. Blank text yields an empty result
// without calling the oracle.
func (s *Service) Polish(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	out, err := s.oracle.Complete(ctx, translate.Prompt{
		System:      polishPrompt,
		User:        text,
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	metrics.RecordAssistant("polish", err == nil)
	if err != nil {
		return "", err
	}
	s.saveEmail(ctx, text, out, models.EmailModePolish)
	return out, nil
}

// Summarize digests an email. When the completion is not the requested JSON
// the whole text becomes the summary.
func (s *Service) Summarize(ctx context.Context, text string) (Summary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Summary{}, nil
	}
	out, err := s.oracle.Complete(ctx, translate.Prompt{
		System:      summarizePrompt,
		User:        text,
		Temperature: 0.3,
		MaxTokens:   1000,
		JSON:        true,
	})
	metrics.RecordAssistant("summarize", err == nil)
	if err != nil {
		return Summary{}, err
	}
	sum := parseSummary(out)
	raw, _ := json.Marshal(sum)
	s.saveEmail(ctx, text, string(raw), models.EmailModeSummarize)
	return sum, nil
}

func parseSummary(out string) Summary {
	var sum Summary
	if err := json.Unmarshal([]byte(translate.StripCodeFence(out)), &sum); err != nil || sum.Summary == "" {
		return Summary{Summary: out}
	}
	return sum
}

func (s *Service) saveEmail(ctx context.Context, in, out, mode string) {
	_, err := s.store.SaveEmailHistory(ctx, models.EmailHistory{InputText: in, OutputText: out, Mode: mode})
	if err != nil {
		s.logger.WithError(err).WithField("mode", mode).Warn("[compose] failed to save email history")
	}
}

// Proposal drafts a proposal from the recent history of the selected rooms.
// Unknown room ids are skipped; ErrNoRooms is returned when none is left.
func (s *Service) Proposal(ctx context.Context, req ProposalRequest) (string, error) {
	ids := lo.Uniq(lo.Filter(req.RoomIDs, func(id uint, _ int) bool { return id != 0 }))
	if len(ids) == 0 {
		return "", ErrNoRooms
	}

	var sections []string
	for _, id := range ids {
		conv, err := s.store.GetConversation(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			s.logger.WithField("conversation_id", id).Debug("[compose] skipping unknown room")
			continue
		} else if err != nil {
			return "", fmt.Errorf("read room %d: %w", id, err)
		}
		msgs, err := s.store.RecentMessages(ctx, id, proposalHistoryLimit)
		if err != nil {
			return "", fmt.Errorf("read room %d: %w", id, err)
		}
		lines := lo.Map(msgs, func(m models.Message, _ int) string {
			return fmt.Sprintf("[%s] %s", m.Origin, m.OriginalText)
		})
		sections = append(sections, "## Room: "+conv.Name+"\n"+strings.Join(lines, "\n"))
	}
	if len(sections) == 0 {
		return "", ErrNoRooms
	}

	system, err := proposalPrompt(req.Profile, req.Instructions)
	if err != nil {
		return "", err
	}
	out, err := s.oracle.Complete(ctx, translate.Prompt{
		System:      system,
		User:        strings.Join(sections, "\n\n"),
		Temperature: 0.5,
		MaxTokens:   3000,
	})
	metrics.RecordAssistant("proposal", err == nil)
	if err != nil {
		return "", err
	}

	roomIDs := strings.Join(lo.Map(ids, func(id uint, _ int) string { return strconv.FormatUint(uint64(id), 10) }), ",")
	if _, err := s.store.SaveProposalHistory(ctx, models.ProposalHistory{
		RoomIDs:      roomIDs,
		Instructions: strings.TrimSpace(req.Instructions),
		Proposal:     out,
	}); err != nil {
		s.logger.WithError(err).Warn("[compose] failed to save proposal history")
	}
	return out, nil
}

func proposalPrompt(profile map[string]any, instructions string) (string, error) {
	if profile == nil {
		profile = map[string]any{}
	}
	p, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		instructions = "None"
	}
	var b strings.Builder
	b.WriteString("You write freelance project proposals.\n")
	b.WriteString("Draft a proposal from the conversation history and the freelancer profile below.\n\n")
	b.WriteString("## Freelancer profile\n")
	b.Write(p)
	b.WriteString("\n\n## Additional instructions\n")
	b.WriteString(instructions)
	b.WriteString("\n\n## Structure\n")
	b.WriteString("1. Hook: the client's specific need from the conversation\n")
	b.WriteString("2. Relevant experience\n")
	b.WriteString("3. Approach\n")
	b.WriteString("4. Timeline and budget, if discussed\n")
	b.WriteString("5. A clear next step\n\n")
	b.WriteString("Write concise professional English. Reply with the proposal only.")
	return b.String(), nil
}
