package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"talklink/models"
	"talklink/pkg/cache"
	"talklink/pkg/hub"
	"talklink/pkg/metrics"
	"talklink/pkg/translate"
)

// State is where a message is in the pipeline.
type State string

const (
	StateRejected    State = "REJECTED"
	StateReceived    State = "RECEIVED"
	StateTranslating State = "TRANSLATING"
	StatePersisting  State = "PERSISTING"
	StateFanningOut  State = "FANNING_OUT"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// Inbound is one message entering the relay.
type Inbound struct {
	ConversationID uint
	Origin         models.Origin
	OriginID       *uint
	Nickname       string
	Text           string
	Tone           string
	// Reply receives sender-only warnings and errors. Nil for bridge and
	// HTTP submissions.
	Reply hub.Conn
}

// Outcome is the final result of one pipeline run.
type Outcome struct {
	State   State
	Message *models.Message
	// Degraded is set when the message was relayed untranslated.
	Degraded bool
	Err      error
}

// MessageStore appends to the conversation log.
type MessageStore interface {
	AppendMessage(ctx context.Context, msg models.Message) (models.Message, error)
}

// TranslationCache memoizes translations by (text, tone).
type TranslationCache interface {
	Get(text, tone string) (cache.Translation, bool)
	Put(text, tone string, tr cache.Translation)
}

// Subscribers fans events out to the live members of a conversation.
type Subscribers interface {
	Broadcast(conversationID uint, ev hub.Event)
	Teardown(conversationID uint) int
}

// Bridge forwards relayed messages to an attached external chat.
type Bridge interface {
	Forward(conversationID uint, displayName, text string) bool
	Detach(conversationID uint) bool
}

// Engine runs the relay pipeline. Messages of one conversation are persisted
// and fanned out in submission order; translations run concurrently.
type Engine struct {
	translator translate.Translator
	cache      TranslationCache
	store      MessageStore
	subs       Subscribers
	bridge     Bridge
	logger     *logrus.Logger

	mu    sync.Mutex
	tails map[uint]chan struct{}
	wg    sync.WaitGroup
}

// New builds an engine over its collaborators; all of them are required.
func New(tr translate.Translator, c TranslationCache, st MessageStore, subs Subscribers, br Bridge, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		translator: tr,
		cache:      c,
		store:      st,
		subs:       subs,
		bridge:     br,
		logger:     logger,
		tails:      make(map[uint]chan struct{}),
	}
}

// Submit validates in and starts its pipeline. The returned channel yields
// exactly one Outcome. Cancelling ctx after Submit returns does not stop the
// pipeline.
func (e *Engine) Submit(ctx context.Context, in Inbound) <-chan Outcome {
	out := make(chan Outcome, 1)

	tone, err := e.validate(&in)
	if err != nil {
		if in.Reply != nil {
			_ = in.Reply.Send(hub.ErrorEvent(err.Error()))
		}
		metrics.RecordRelay(string(in.Origin), string(StateRejected), 0)
		out <- Outcome{State: StateRejected, Err: err}
		close(out)
		return out
	}

	// the ticket is taken here so that submission order is persistence order
	e.mu.Lock()
	prev := e.tails[in.ConversationID]
	done := make(chan struct{})
	e.tails[in.ConversationID] = done
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run(context.WithoutCancel(ctx), in, tone, prev, done, out)
	return out
}

// Wait blocks until every submitted pipeline has finished.
func (e *Engine) Wait() { e.wg.Wait() }

// Teardown detaches the bridge and drops every subscription of a conversation.
func (e *Engine) Teardown(conversationID uint) {
	detached := e.bridge.Detach(conversationID)
	dropped := e.subs.Teardown(conversationID)
	e.logger.WithFields(logrus.Fields{
		"component":       "relay",
		"conversation_id": conversationID,
		"bridge_detached": detached,
		"subscribers":     dropped,
	}).Info("[relay] conversation torn down")
}

func (e *Engine) validate(in *Inbound) (translate.Tone, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return "", invalid("text", "message is empty")
	}
	if in.ConversationID == 0 {
		return "", invalid("conversation", "not attached to a conversation")
	}
	if !in.Origin.Valid() {
		return "", invalid("origin", fmt.Sprintf("unknown origin %q", in.Origin))
	}
	tone, err := translate.ParseTone(in.Tone)
	if err != nil {
		return "", invalid("tone", err.Error())
	}
	return tone, nil
}

func (e *Engine) run(ctx context.Context, in Inbound, tone translate.Tone, prev, done chan struct{}, out chan<- Outcome) {
	start := time.Now()
	waited := prev == nil
	res := Outcome{State: StateReceived}
	log := e.logger.WithFields(logrus.Fields{
		"component":       "relay",
		"conversation_id": in.ConversationID,
		"origin":          in.Origin,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("[relay] pipeline panicked")
			res = Outcome{State: StateFailed, Err: fmt.Errorf("pipeline panic: %v", r)}
		}
		if !waited {
			<-prev
		}
		close(done)
		e.mu.Lock()
		if e.tails[in.ConversationID] == done {
			delete(e.tails, in.ConversationID)
		}
		e.mu.Unlock()

		metrics.RecordRelay(string(in.Origin), string(res.State), time.Since(start))
		log.WithField("state", res.State).Debug("[relay] finished")
		out <- res
		close(out)
		e.wg.Done()
	}()

	e.subs.Broadcast(in.ConversationID, hub.TypingEvent(in.ConversationID, in.Nickname, true))

	res.State = StateTranslating
	tr, err := e.Translate(ctx, in.Text, tone)
	if err != nil {
		res.Degraded = true
		log.WithError(err).Warn("[relay] translation unavailable, relaying original")
		if in.Reply != nil {
			_ = in.Reply.Send(hub.ErrorEvent("Translation unavailable: " + err.Error()))
		}
	}

	e.subs.Broadcast(in.ConversationID, hub.TypingEvent(in.ConversationID, in.Nickname, false))

	if !waited {
		<-prev
		waited = true
	}

	res.State = StatePersisting
	msg := models.Message{
		ConversationID:   in.ConversationID,
		Origin:           in.Origin,
		OriginID:         in.OriginID,
		OriginalText:     in.Text,
		OriginalLanguage: models.LanguageUnknown,
		Tone:             string(tone),
	}
	if !res.Degraded {
		text := tr.Text
		msg.TranslatedText = &text
		if tr.DetectedLanguage != "" {
			msg.OriginalLanguage = tr.DetectedLanguage
		}
	}
	saved, err := e.store.AppendMessage(ctx, msg)
	if err != nil {
		log.WithError(err).Error("[relay] persist failed")
		if in.Reply != nil {
			_ = in.Reply.Send(hub.ErrorEvent("Failed to save message"))
		}
		res.State = StateFailed
		res.Err = fmt.Errorf("%w: %w", ErrPersistence, err)
		return
	}
	res.Message = &saved

	res.State = StateFanningOut
	e.subs.Broadcast(in.ConversationID, hub.MessageEvent(saved, in.Nickname))

	// bridge messages never go back to the bridge
	if in.Origin != models.OriginBridge {
		e.bridge.Forward(in.ConversationID, in.Nickname, saved.RelayText())
	}

	if tr.Hint != nil && tr.Hint.ShouldSearch {
		e.subs.Broadcast(in.ConversationID, hub.SuggestionEvent(in.ConversationID, tr.Hint.Reason, tr.Hint.SuggestedQuery))
	}

	res.State = StateDone
}

// Translation is a cache-aware translation result.
type Translation struct {
	Text             string
	DetectedLanguage string
	Hint             *translate.SearchHint
	Cached           bool
}

// Translate resolves text through the cache, then the oracle. Errors wrap
// translate.ErrUnavailable.
func (e *Engine) Translate(ctx context.Context, text string, tone translate.Tone) (Translation, error) {
	text = strings.TrimSpace(text)
	if hit, ok := e.cache.Get(text, string(tone)); ok {
		metrics.RecordCacheLookup(true)
		return Translation{Text: hit.Text, DetectedLanguage: hit.DetectedLanguage, Cached: true}, nil
	}
	metrics.RecordCacheLookup(false)

	r, err := e.translator.Translate(ctx, text, tone)
	if err != nil {
		if !errors.Is(err, translate.ErrUnavailable) {
			err = translate.Unavailable("oracle failed", err)
		}
		return Translation{}, err
	}
	e.cache.Put(text, string(tone), cache.Translation{Text: r.Text, DetectedLanguage: r.DetectedLanguage})
	return Translation{Text: r.Text, DetectedLanguage: r.DetectedLanguage, Hint: r.Hint}, nil
}
