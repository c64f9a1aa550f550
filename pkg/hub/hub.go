package hub

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"talklink/models"
	"talklink/pkg/metrics"
)

// DefaultHistoryLimit is how many messages a joining connection is replayed.
const DefaultHistoryLimit = 100

// Conn is a live connection as seen by the registry. Send must not block on
// the network; transports queue the frame and write it from their own goroutine.
type Conn interface {
	ID() string
	Nickname() string
	Send(Event) error
}

// HistorySource reads the most recent messages of a conversation, oldest first.
type HistorySource interface {
	RecentMessages(ctx context.Context, conversationID uint, limit int) ([]models.Message, error)
}

type member struct {
	conn   Conn
	convID uint

	// mu orders deliveries to this connection. Until ready, live events are
	// held in pending so the history frame always goes out first.
	mu      sync.Mutex
	ready   bool
	pending []Event
	// lastID is the newest message in the history frame; live messages at
	// or below it were already replayed.
	lastID uint
}

// replayed reports whether ev carries a message the member already got in
// its history frame; m.mu must be held.
func (m *member) replayed(ev Event) bool {
	return ev.Type == EventMessage && ev.Message != nil && ev.Message.ID <= m.lastID
}

// Registry tracks which connection is attached to which conversation and
// delivers events to them.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[uint]map[string]*member
	byConn map[string]*member

	history HistorySource
	limit   int
	logger  *logrus.Logger
}

func New(history HistorySource, limit int, logger *logrus.Logger) *Registry {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		rooms:   make(map[uint]map[string]*member),
		byConn:  make(map[string]*member),
		history: history,
		limit:   limit,
		logger:  logger,
	}
}

// Join attaches conn to conversationID, leaving any previous conversation,
// and sends it the history frame before any live event. The history is also
// returned.
func (r *Registry) Join(ctx context.Context, conn Conn, conversationID uint) ([]models.Message, error) {
	m := &member{conn: conn, convID: conversationID}

	r.mu.Lock()
	prev := r.detachLocked(conn.ID())
	var prevOthers []*member
	if prev != nil && prev.convID != conversationID {
		prevOthers = lo.Values(r.rooms[prev.convID])
	}
	room := r.rooms[conversationID]
	if room == nil {
		room = make(map[string]*member)
		r.rooms[conversationID] = room
	}
	room[conn.ID()] = m
	r.byConn[conn.ID()] = m
	r.mu.Unlock()

	rejoin := prev != nil && prev.convID == conversationID
	if prev == nil {
		metrics.SubscriberJoined()
	}
	if prev != nil && !rejoin {
		r.deliverAll(prevOthers, PresenceEvent(prev.convID, PresenceLeft, conn.Nickname()))
	}

	msgs, err := r.history.RecentMessages(ctx, conversationID, r.limit)
	if err != nil {
		r.mu.Lock()
		current := r.byConn[conn.ID()] == m
		if current {
			r.detachLocked(conn.ID())
		}
		r.mu.Unlock()
		if current {
			metrics.SubscriberLeft()
		}
		return nil, fmt.Errorf("load history: %w", err)
	}

	m.mu.Lock()
	if n := len(msgs); n > 0 {
		m.lastID = msgs[n-1].ID
	}
	r.send(m, HistoryEvent(conversationID, msgs))
	for _, ev := range m.pending {
		if m.replayed(ev) {
			continue
		}
		r.send(m, ev)
	}
	m.pending = nil
	m.ready = true
	m.mu.Unlock()

	if !rejoin {
		r.BroadcastOthers(conversationID, conn.ID(), PresenceEvent(conversationID, PresenceJoined, conn.Nickname()))
	}

	r.logger.WithFields(logrus.Fields{
		"component":       "hub",
		"conversation_id": conversationID,
		"conn":            conn.ID(),
		"history":         len(msgs),
	}).Debug("[hub] joined")
	return msgs, nil
}

// Leave detaches conn from its conversation and tells the other members.
// It reports the conversation left, if any.
func (r *Registry) Leave(conn Conn) (uint, bool) {
	r.mu.Lock()
	m := r.detachLocked(conn.ID())
	var others []*member
	if m != nil {
		others = lo.Values(r.rooms[m.convID])
	}
	r.mu.Unlock()

	if m == nil {
		return 0, false
	}
	metrics.SubscriberLeft()
	r.deliverAll(others, PresenceEvent(m.convID, PresenceLeft, conn.Nickname()))
	return m.convID, true
}

// Disconnect is an implicit Leave for a connection that went away.
func (r *Registry) Disconnect(conn Conn) {
	if convID, ok := r.Leave(conn); ok {
		r.logger.WithFields(logrus.Fields{
			"component":       "hub",
			"conversation_id": convID,
			"conn":            conn.ID(),
		}).Debug("[hub] disconnected")
	}
}

// ConversationOf reports which conversation conn is attached to.
func (r *Registry) ConversationOf(conn Conn) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byConn[conn.ID()]
	if !ok {
		return 0, false
	}
	return m.convID, true
}

// MembersOf returns a snapshot of the connections attached to conversationID.
func (r *Registry) MembersOf(conversationID uint) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.MapToSlice(r.rooms[conversationID], func(_ string, m *member) Conn { return m.conn })
}

// Broadcast delivers ev to every member of conversationID.
func (r *Registry) Broadcast(conversationID uint, ev Event) {
	r.deliverAll(r.snapshot(conversationID), ev)
}

// BroadcastOthers delivers ev to every member of conversationID except exceptID.
func (r *Registry) BroadcastOthers(conversationID uint, exceptID string, ev Event) {
	members := lo.Filter(r.snapshot(conversationID), func(m *member, _ int) bool {
		return m.conn.ID() != exceptID
	})
	r.deliverAll(members, ev)
}

// Teardown drops every subscription of conversationID, notifying each
// dropped connection. It returns how many were dropped.
func (r *Registry) Teardown(conversationID uint) int {
	r.mu.Lock()
	room := r.rooms[conversationID]
	delete(r.rooms, conversationID)
	members := lo.Values(room)
	for _, m := range members {
		delete(r.byConn, m.conn.ID())
	}
	r.mu.Unlock()

	for range members {
		metrics.SubscriberLeft()
	}
	r.deliverAll(members, ErrorEvent("conversation closed"))
	return len(members)
}

func (r *Registry) snapshot(conversationID uint) []*member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.rooms[conversationID])
}

// detachLocked removes the connection's membership; r.mu must be held.
func (r *Registry) detachLocked(connID string) *member {
	m, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	delete(r.byConn, connID)
	if room := r.rooms[m.convID]; room != nil {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.rooms, m.convID)
		}
	}
	return m
}

func (r *Registry) deliverAll(members []*member, ev Event) {
	for _, m := range members {
		r.deliver(m, ev)
	}
}

func (r *Registry) deliver(m *member, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		m.pending = append(m.pending, ev)
		return
	}
	if m.replayed(ev) {
		return
	}
	r.send(m, ev)
}

// send writes one event; m.mu must be held.
func (r *Registry) send(m *member, ev Event) {
	err := m.conn.Send(ev)
	metrics.RecordDelivery(ev.Type, err == nil)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"component":       "hub",
			"conversation_id": m.convID,
			"conn":            m.conn.ID(),
			"event":           ev.Type,
		}).Warn("[hub] delivery failed")
	}
}
