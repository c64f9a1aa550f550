package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"talklink/controllers"
	"talklink/middleware"
	"talklink/models"
	"talklink/pkg/bridge"
	"talklink/pkg/cache"
	"talklink/pkg/compose"
	"talklink/pkg/config"
	"talklink/pkg/hub"
	"talklink/pkg/relay"
	"talklink/pkg/store"
	"talklink/pkg/translate"
)

const jwtSecret = "routes-test-secret"

type recordingGateway struct {
	mu    sync.Mutex
	posts []string
}

func (g *recordingGateway) Attach(ctx context.Context, convID uint, creds bridge.Credentials, on bridge.InboundFunc) (bridge.Handle, error) {
	if creds.BotToken == "bad" {
		return nil, fmt.Errorf("401 unauthorized")
	}
	return g, nil
}

func (g *recordingGateway) Send(ctx context.Context, name, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.posts = append(g.posts, bridge.FormatPost(name, text))
	return nil
}

func (g *recordingGateway) Close() error { return nil }

func (g *recordingGateway) Posts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.posts...)
}

type harness struct {
	srv     *httptest.Server
	app     *controllers.App
	gateway *recordingGateway
	token   string
}

func newHarness(t *testing.T, oracle translate.Translator) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	st, err := store.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, st.Migrate())

	cfg := &config.Config{AppEnv: "development", JWTSecret: jwtSecret, HistoryLimit: 100}
	reg := hub.New(st, cfg.HistoryLimit, logger)
	gw := &recordingGateway{}
	bridges := bridge.NewManager(8, logger)
	bridges.Register(models.BridgeKindDiscord, gw)
	engine := relay.New(oracle, cache.NewTranslationCache(100, time.Hour), st, reg, bridges, logger)

	app := &controllers.App{
		Config:  cfg,
		Store:   st,
		Engine:  engine,
		Hub:     reg,
		Bridges: bridges,
		Compose: compose.New(echoCompleter(), st, logger),
		Limiter: middleware.NewLimiter(time.Second, 1000),
		Logger:  logger,
	}
	r := gin.New()
	RegisterRoutes(r, app)
	srv := httptest.NewServer(r)

	tok, err := middleware.SignHostToken(jwtSecret, "1", "민수", time.Hour)
	require.NoError(t, err)

	t.Cleanup(func() {
		srv.Close()
		bridges.Close()
		engine.Wait()
		_ = st.Close()
	})
	return &harness{srv: srv, app: app, gateway: gw, token: tok}
}

func (h *harness) do(t *testing.T, method, path string, body any, auth bool) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (h *harness) dial(t *testing.T, senderType, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws?sender_type=" + senderType + "&token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// next reads frames until one of the wanted type arrives.
func next(t *testing.T, ws *websocket.Conn, typ string) hub.Event {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev hub.Event
		require.NoError(t, ws.ReadJSON(&ev))
		if ev.Type == typ {
			return ev
		}
	}
}

func koEnOracle() translate.Translator {
	return translate.TranslatorFunc(func(ctx context.Context, text string, tone translate.Tone) (translate.Result, error) {
		switch text {
		case "안녕하세요, 예산은 얼마인가요?":
			return translate.Result{Text: "Hello, what is the budget?", DetectedLanguage: "ko"}, nil
		case "About ten thousand dollars.":
			return translate.Result{Text: "약 1만 달러입니다.", DetectedLanguage: "en"}, nil
		}
		return translate.Result{Text: "<" + text + ">", DetectedLanguage: "en"}, nil
	})
}

// echoCompleter answers summaries with JSON and everything else with the
// first line of the user turn.
func echoCompleter() translate.Completer {
	return translate.CompleterFunc(func(ctx context.Context, p translate.Prompt) (string, error) {
		if p.JSON {
			return `{"summary":"견적 요청","action_items":"- 견적서 보내기","intentions":""}`, nil
		}
		first, _, _ := strings.Cut(p.User, "\n")
		return "DRAFT: " + first, nil
	})
}

func createRoom(t *testing.T, h *harness) (uint, string) {
	t.Helper()
	code, body := h.do(t, http.MethodPost, "/api/rooms", map[string]string{"name": "Budget call"}, true)
	require.Equal(t, http.StatusCreated, code)
	return uint(body["id"].(float64)), body["invite_code"].(string)
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, koEnOracle())

	code, _ := h.do(t, http.MethodGet, "/api/rooms", nil, false)
	require.Equal(t, http.StatusUnauthorized, code)

	id, invite := createRoom(t, h)

	code, body := h.do(t, http.MethodGet, "/api/rooms/invite/"+strings.ToLower(invite), nil, false)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, id, body["id"])

	code, body = h.do(t, http.MethodPost, fmt.Sprintf("/api/rooms/%d/join", id), map[string]string{"nickname": "Bob"}, false)
	require.Equal(t, http.StatusCreated, code)
	require.NotEmpty(t, body["token"])

	code, body = h.do(t, http.MethodPost, fmt.Sprintf("/api/messages/%d", id), map[string]string{"text": "안녕하세요, 예산은 얼마인가요?"}, true)
	require.Equal(t, http.StatusCreated, code)
	msg := body["message"].(map[string]any)
	require.Equal(t, "Hello, what is the budget?", msg["translated_text"])
	require.Equal(t, "ko", msg["original_language"])
	require.Equal(t, "primary-party", msg["origin"])

	code, body = h.do(t, http.MethodGet, fmt.Sprintf("/api/messages/%d?limit=10", id), nil, true)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["messages"], 1)

	code, _ = h.do(t, http.MethodPost, fmt.Sprintf("/api/messages/%d", id), map[string]string{"text": "   "}, true)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(t, http.MethodDelete, fmt.Sprintf("/api/rooms/%d", id), nil, true)
	require.Equal(t, http.StatusOK, code)
	code, _ = h.do(t, http.MethodGet, fmt.Sprintf("/api/rooms/%d", id), nil, true)
	require.Equal(t, http.StatusNotFound, code)
	code, _ = h.do(t, http.MethodDelete, fmt.Sprintf("/api/rooms/%d", id), nil, true)
	require.Equal(t, http.StatusOK, code)
}

func TestTranslateEndpoints(t *testing.T) {
	h := newHarness(t, koEnOracle())

	code, body := h.do(t, http.MethodPost, "/api/translate", map[string]string{"text": "About ten thousand dollars.", "tone": "negotiation"}, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "약 1만 달러입니다.", body["translation"])
	require.Equal(t, false, body["cached"])

	_, body = h.do(t, http.MethodPost, "/api/translate", map[string]string{"text": "About ten thousand dollars.", "tone": "negotiation"}, true)
	require.Equal(t, true, body["cached"])

	code, _ = h.do(t, http.MethodPost, "/api/translate", map[string]string{"text": "hi", "tone": "rude"}, true)
	require.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(t, http.MethodPost, "/api/translate/detect", map[string]string{"text": "이 가격은 너무 비쌉니다. 조금 할인해 주실 수 있나요?"}, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ko", body["language"])
}

func TestTranslateUnavailable(t *testing.T) {
	h := newHarness(t, translate.TranslatorFunc(func(ctx context.Context, text string, tone translate.Tone) (translate.Result, error) {
		return translate.Result{}, translate.Unavailable("OPENROUTER_API_KEY is not set", translate.ErrNoCredential)
	}))
	code, _ := h.do(t, http.MethodPost, "/api/translate", map[string]string{"text": "hello"}, true)
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestIntegrationSettings(t *testing.T) {
	h := newHarness(t, koEnOracle())
	id, _ := createRoom(t, h)
	path := fmt.Sprintf("/api/rooms/%d/integration", id)

	code, body := h.do(t, http.MethodGet, path, nil, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, false, body["configured"])

	code, _ = h.do(t, http.MethodPost, path, map[string]any{"bot_token": "bad", "channel_id": "c"}, true)
	require.Equal(t, http.StatusBadGateway, code)

	code, body = h.do(t, http.MethodPost, path, map[string]any{"bot_token": "good", "channel_id": "123"}, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["attached"])
	require.NotContains(t, body, "bot_token")

	_, body = h.do(t, http.MethodPost, fmt.Sprintf("/api/messages/%d", id), map[string]string{"text": "안녕하세요, 예산은 얼마인가요?"}, true)
	require.NotNil(t, body["message"])
	require.Eventually(t, func() bool { return len(h.gateway.Posts()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "**민수**: Hello, what is the budget?", h.gateway.Posts()[0])

	code, body = h.do(t, http.MethodPost, path, map[string]any{"is_active": false}, true)
	require.Equal(t, http.StatusOK, code)
	require.False(t, h.app.Bridges.Attached(id))
}

func TestLiveConversationOverWebsocket(t *testing.T) {
	h := newHarness(t, koEnOracle())
	id, _ := createRoom(t, h)
	_, joined := h.do(t, http.MethodPost, fmt.Sprintf("/api/rooms/%d/join", id), map[string]string{"nickname": "Bob"}, false)
	guestToken := joined["token"].(string)

	host := h.dial(t, "host", h.token)
	require.NoError(t, host.WriteJSON(map[string]any{"type": "join", "conversation_id": id}))
	hist := next(t, host, hub.EventHistory)
	require.EqualValues(t, id, hist.ConversationID)
	require.Empty(t, hist.Messages)

	guest := h.dial(t, "guest", guestToken)
	require.NoError(t, guest.WriteJSON(map[string]any{"type": "join", "conversation_id": id}))
	next(t, guest, hub.EventHistory)

	presence := next(t, host, hub.EventPresence)
	require.Equal(t, hub.PresenceJoined, presence.Kind)
	require.Equal(t, "Bob", presence.Nickname)

	require.NoError(t, guest.WriteJSON(map[string]any{"type": "send", "text": "About ten thousand dollars.", "tone": "professional"}))
	for _, ws := range []*websocket.Conn{host, guest} {
		ev := next(t, ws, hub.EventMessage)
		require.Equal(t, "About ten thousand dollars.", ev.Message.OriginalText)
		require.Equal(t, "약 1만 달러입니다.", *ev.Message.TranslatedText)
		require.Equal(t, models.OriginCounter, ev.Message.Origin)
		require.NotNil(t, ev.Message.OriginID)
		require.Equal(t, "Bob", ev.Nickname)
	}

	require.NoError(t, guest.WriteJSON(map[string]any{"type": "send", "text": ""}))
	errEv := next(t, guest, hub.EventError)
	require.NotEmpty(t, errEv.Error)

	require.NoError(t, guest.Close())
	left := next(t, host, hub.EventPresence)
	require.Equal(t, hub.PresenceLeft, left.Kind)
	require.Equal(t, "Bob", left.Nickname)
}

func TestGuestCannotJoinAnotherRoom(t *testing.T) {
	h := newHarness(t, koEnOracle())
	id, _ := createRoom(t, h)
	other, _ := createRoom(t, h)
	_, joined := h.do(t, http.MethodPost, fmt.Sprintf("/api/rooms/%d/join", id), map[string]string{"nickname": "Bob"}, false)

	guest := h.dial(t, "guest", joined["token"].(string))
	require.NoError(t, guest.WriteJSON(map[string]any{"type": "join", "conversation_id": other}))
	ev := next(t, guest, hub.EventError)
	require.Contains(t, ev.Error, "invited")
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	h := newHarness(t, koEnOracle())
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws?sender_type=guest&token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEmailAndProposalAssistant(t *testing.T) {
	h := newHarness(t, koEnOracle())
	id, _ := createRoom(t, h)

	code, body := h.do(t, http.MethodPost, "/api/email/polish", map[string]string{"text": "send files pls"}, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "DRAFT: send files pls", body["polished"])

	code, body = h.do(t, http.MethodPost, "/api/email/summarize", map[string]string{"text": "Could you quote by Friday?"}, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "견적 요청", body["summary"])
	require.Equal(t, "- 견적서 보내기", body["action_items"])

	code, body = h.do(t, http.MethodGet, "/api/email/history?limit=5", nil, true)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["history"], 2)

	code, _ = h.do(t, http.MethodPost, "/api/proposal/generate", map[string]any{"room_ids": []uint{}}, true)
	require.Equal(t, http.StatusBadRequest, code)

	code, body = h.do(t, http.MethodPost, "/api/proposal/generate", map[string]any{"room_ids": []uint{id}, "instructions": "short"}, true)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "DRAFT: ## Room: Budget call", body["proposal"])

	code, body = h.do(t, http.MethodGet, "/api/proposal/history", nil, true)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["history"], 1)

	code, _ = h.do(t, http.MethodPost, "/api/email/polish", map[string]string{"text": "x"}, false)
	require.Equal(t, http.StatusUnauthorized, code)
}
