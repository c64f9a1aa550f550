package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"talklink/models"
	"talklink/pkg/metrics"
)

const (
	DefaultQueueSize = 64
	sendTimeout      = 15 * time.Second
)

// InboundHandler is called for every message written on an attached
// external channel.
type InboundHandler func(conversationID uint, authorName, text string)

// IntegrationSource lists the persisted bridge configurations.
type IntegrationSource interface {
	Integrations(ctx context.Context) ([]models.BridgeIntegration, error)
}

type outbound struct {
	displayName string
	text        string
}

type attachment struct {
	convID  uint
	kind    string
	handle  Handle
	queue   chan outbound
	done    chan struct{}
	drained chan struct{}
	once    sync.Once
}

// Manager owns the zero-or-one attachment of every conversation. Outbound
// posts are queued per attachment and sent in order by one goroutine.
type Manager struct {
	queueSize int
	logger    *logrus.Logger

	mu        sync.Mutex
	gateways  map[string]Gateway
	attached  map[uint]*attachment
	onInbound InboundHandler
}

func NewManager(queueSize int, logger *logrus.Logger) *Manager {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		queueSize: queueSize,
		logger:    logger,
		gateways:  make(map[string]Gateway),
		attached:  make(map[uint]*attachment),
	}
}

// Register makes a gateway available for Credentials.Kind == kind.
func (m *Manager) Register(kind string, gw Gateway) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gateways[kind] = gw
}

// OnInbound sets the handler for messages coming from external channels.
func (m *Manager) OnInbound(h InboundHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onInbound = h
}

// Attach connects conversationID to an external channel, replacing any
// existing attachment.
func (m *Manager) Attach(ctx context.Context, conversationID uint, creds Credentials) error {
	m.mu.Lock()
	gw, ok := m.gateways[creds.Kind]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no gateway for kind %q", ErrUnavailable, creds.Kind)
	}

	handle, err := gw.Attach(ctx, conversationID, creds, func(author, text string) {
		m.dispatch(conversationID, author, text)
	})
	if err != nil {
		return fmt.Errorf("%w: attach %s: %w", ErrUnavailable, creds.Kind, err)
	}

	a := &attachment{
		convID:  conversationID,
		kind:    creds.Kind,
		handle:  handle,
		queue:   make(chan outbound, m.queueSize),
		done:    make(chan struct{}),
		drained: make(chan struct{}),
	}
	go m.drain(a)

	m.mu.Lock()
	old := m.attached[conversationID]
	m.attached[conversationID] = a
	n := len(m.attached)
	m.mu.Unlock()

	if old != nil {
		m.stop(old)
	}
	metrics.SetActiveBridges(n)
	m.logger.WithFields(logrus.Fields{
		"component":       "bridge",
		"conversation_id": conversationID,
		"kind":            creds.Kind,
		"channel_id":      creds.ChannelID,
	}).Info("[bridge] attached")
	return nil
}

// Detach closes the attachment of conversationID. Detaching a conversation
// without one is a no-op.
func (m *Manager) Detach(conversationID uint) bool {
	m.mu.Lock()
	a := m.attached[conversationID]
	delete(m.attached, conversationID)
	n := len(m.attached)
	m.mu.Unlock()

	if a == nil {
		return false
	}
	m.stop(a)
	metrics.SetActiveBridges(n)
	m.logger.WithFields(logrus.Fields{
		"component":       "bridge",
		"conversation_id": conversationID,
	}).Info("[bridge] detached")
	return true
}

// Attached reports whether conversationID currently has an attachment.
func (m *Manager) Attached(conversationID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.attached[conversationID]
	return ok
}

// Forward queues a post for the conversation's external channel. It never
// blocks: without an attachment, or with a full queue, the post is dropped.
func (m *Manager) Forward(conversationID uint, displayName, text string) bool {
	m.mu.Lock()
	a := m.attached[conversationID]
	m.mu.Unlock()
	if a == nil {
		return false
	}

	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.queue <- outbound{displayName: displayName, text: text}:
		return true
	default:
		metrics.RecordBridgePost(a.kind, false)
		m.logger.WithFields(logrus.Fields{
			"component":       "bridge",
			"conversation_id": conversationID,
		}).Warn("[bridge] outbound queue full, dropping post")
		return false
	}
}

// Restore attaches every persisted integration. Failures are logged and
// skipped; the number of successful attachments is returned.
func (m *Manager) Restore(ctx context.Context, src IntegrationSource) (int, error) {
	list, err := src.Integrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("list integrations: %w", err)
	}
	ok := 0
	for _, in := range list {
		creds := Credentials{Kind: in.Kind, BotToken: in.BotToken, ChannelID: in.ChannelID}
		if err := m.Attach(ctx, in.ConversationID, creds); err != nil {
			m.logger.WithError(err).WithField("conversation_id", in.ConversationID).Warn("[bridge] restore failed")
			continue
		}
		ok++
	}
	return ok, nil
}

// Close detaches everything.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.attached
	m.attached = make(map[uint]*attachment)
	m.mu.Unlock()

	for _, a := range all {
		m.stop(a)
	}
	metrics.SetActiveBridges(0)
}

func (m *Manager) dispatch(conversationID uint, author, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	m.mu.Lock()
	h := m.onInbound
	m.mu.Unlock()
	if h == nil {
		m.logger.WithField("conversation_id", conversationID).Warn("[bridge] inbound message with no handler")
		return
	}
	h(conversationID, author, text)
}

func (m *Manager) drain(a *attachment) {
	defer close(a.drained)
	for {
		select {
		case <-a.done:
			// posts queued before the detach still go out
			for {
				select {
				case o := <-a.queue:
					m.post(a, o)
				default:
					return
				}
			}
		case o := <-a.queue:
			m.post(a, o)
		}
	}
}

func (m *Manager) post(a *attachment, o outbound) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	err := a.handle.Send(ctx, o.displayName, o.text)
	cancel()
	metrics.RecordBridgePost(a.kind, err == nil)
	if err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"component":       "bridge",
			"conversation_id": a.convID,
		}).Warn("[bridge] post failed")
	}
}

func (m *Manager) stop(a *attachment) {
	a.once.Do(func() {
		close(a.done)
		<-a.drained
		if err := a.handle.Close(); err != nil {
			m.logger.WithError(err).WithField("conversation_id", a.convID).Warn("[bridge] close failed")
		}
	})
}
