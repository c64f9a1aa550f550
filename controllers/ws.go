package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"talklink/middleware"
	"talklink/models"
	"talklink/pkg/hub"
	"talklink/pkg/relay"
	"talklink/pkg/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 1 << 20 // 1MB
	sendQueueSize  = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("send queue full")
)

// wsFrame is every inbound frame; which fields matter depends on Type.
type wsFrame struct {
	Type           string `json:"type" validate:"required,oneof=join leave send typing"`
	ConversationID uint   `json:"conversation_id" validate:"required_if=Type join"`
	Text           string `json:"text" validate:"required_if=Type send,max=4000"`
	Tone           string `json:"tone" validate:"omitempty,oneof=professional friendly negotiation update issue"`
	IsTyping       bool   `json:"is_typing"`
}

// identity is who is on the other end of a connection.
type identity struct {
	origin   models.Origin
	originID *uint
	nickname string
	// guests are bound to the room they were invited to
	conversationID uint
}

// wsConn adapts a websocket to hub.Conn with its own write queue, so a slow
// client never holds up fan-out.
type wsConn struct {
	id     string
	nick   string
	ws     *websocket.Conn
	send   chan hub.Event
	closed chan struct{}
	once   sync.Once
}

func (c *wsConn) ID() string       { return c.id }
func (c *wsConn) Nickname() string { return c.nick }

func (c *wsConn) Send(ev hub.Event) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.send <- ev:
		return nil
	default:
		return errSlowConsumer
	}
}

func (c *wsConn) close() {
	c.once.Do(func() { close(c.closed) })
}

func (c *wsConn) writePump(logger *logrus.Entry) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case ev := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(ev); err != nil {
				logger.WithError(err).Debug("[ws] write failed")
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (a *App) authenticate(c *gin.Context) (identity, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return identity{}, errors.New("missing token query")
	}
	switch strings.ToLower(strings.TrimSpace(c.DefaultQuery("sender_type", "host"))) {
	case "host":
		claims, err := middleware.ParseHostToken(a.Config.JWTSecret, token)
		if err != nil {
			return identity{}, err
		}
		return identity{origin: models.OriginPrimary, nickname: claims.Name}, nil
	case "guest":
		p, err := a.Store.ParticipantByToken(c.Request.Context(), token)
		if err != nil {
			return identity{}, errors.New("invalid guest token")
		}
		pid := p.ID
		return identity{
			origin:         models.OriginCounter,
			originID:       &pid,
			nickname:       p.Nickname,
			conversationID: p.ConversationID,
		}, nil
	default:
		return identity{}, errors.New("sender_type must be host or guest")
	}
}

// LiveWS serves the live conversation protocol.
//
//	-> {type: "join", conversation_id}
//	-> {type: "leave"}
//	-> {type: "send", text, tone?}
//	-> {type: "typing", is_typing}
//	<- history | message | presence | typing | assistant_suggestion | error
func LiveWS(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, err := a.authenticate(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			a.Logger.WithError(err).Warn("[ws] upgrade error")
			return
		}

		conn := &wsConn{
			id:     uuid.NewString(),
			nick:   who.nickname,
			ws:     ws,
			send:   make(chan hub.Event, sendQueueSize),
			closed: make(chan struct{}),
		}
		log := a.Logger.WithFields(logrus.Fields{
			"component": "ws",
			"conn":      conn.id,
			"origin":    who.origin,
		})
		go conn.writePump(log)
		defer func() {
			a.Hub.Disconnect(conn)
			a.Limiter.Forget(conn.id)
			conn.close()
		}()

		// Setup read limits and pong handler for keepalive
		ws.SetReadLimit(maxMessageSize)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			mt, raw, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Debug("[ws] read error")
				}
				return
			}
			// Only handle text/binary frames with JSON
			if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
				continue
			}
			var frame wsFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				_ = conn.Send(hub.ErrorEvent("invalid frame"))
				continue
			}
			frame.Type = strings.ToLower(strings.TrimSpace(frame.Type))
			if err := validate.Struct(frame); err != nil {
				_ = conn.Send(hub.ErrorEvent("invalid " + frame.Type + " frame"))
				continue
			}
			a.handleFrame(conn, who, frame, log)
		}
	}
}

func (a *App) handleFrame(conn *wsConn, who identity, frame wsFrame, log *logrus.Entry) {
	switch frame.Type {
	case "join":
		if who.origin == models.OriginCounter && frame.ConversationID != who.conversationID {
			_ = conn.Send(hub.ErrorEvent("guests may only join the room they were invited to"))
			return
		}
		ctx := context.Background()
		if _, err := a.Store.GetConversation(ctx, frame.ConversationID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				_ = conn.Send(hub.ErrorEvent("conversation not found"))
			} else {
				_ = conn.Send(hub.ErrorEvent("failed to load conversation"))
			}
			return
		}
		if _, err := a.Hub.Join(ctx, conn, frame.ConversationID); err != nil {
			log.WithError(err).Warn("[ws] join failed")
			_ = conn.Send(hub.ErrorEvent("failed to load history"))
		}

	case "leave":
		a.Hub.Leave(conn)

	case "send":
		if !a.Limiter.Allow(conn.id) {
			_ = conn.Send(hub.ErrorEvent("too many messages, slow down"))
			return
		}
		convID, _ := a.Hub.ConversationOf(conn)
		// the outcome is reported to the sender through conn
		_ = a.Engine.Submit(context.Background(), relay.Inbound{
			ConversationID: convID,
			Origin:         who.origin,
			OriginID:       who.originID,
			Nickname:       who.nickname,
			Text:           frame.Text,
			Tone:           frame.Tone,
			Reply:          conn,
		})

	case "typing":
		if convID, ok := a.Hub.ConversationOf(conn); ok {
			a.Hub.BroadcastOthers(convID, conn.id, hub.TypingEvent(convID, who.nickname, frame.IsTyping))
		}
	}
}
