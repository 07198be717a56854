package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"branchPicker/internal/modules/picker/domain"
	"branchPicker/internal/modules/picker/infrastructure"
	"branchPicker/internal/shared/auth"
)

type wireMessage struct {
	Topic    string            `json:"topic"`
	Action   string            `json:"action"`
	Metadata map[string]string `json:"metadata"`
	Data     json.RawMessage   `json:"data"`
}

func startBridge(t *testing.T, deps Dependencies) (string, *infrastructure.Hub) {
	t.Helper()
	hub := infrastructure.NewHub()
	e := echo.New()
	e.GET("/ws/widget", NewBridgeWebsocketHandler(hub, deps))
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/widget", hub
}

func dialURL(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dialBridge(t *testing.T, deps Dependencies) (*websocket.Conn, *infrastructure.Hub) {
	t.Helper()
	url, hub := startBridge(t, deps)
	return dialURL(t, url), hub
}

func readUntil(t *testing.T, conn *websocket.Conn, topic string) wireMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", topic, err)
		}
		if msg.Topic == topic {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(infrastructure.Command{Action: action, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", action, err)
	}
}

func TestBridge_InitToggleFilter(t *testing.T) {
	deps := newDeps(scenarioFetcher())
	deps.InitTimeout = 2 * time.Second
	conn, hub := dialBridge(t, deps)

	readUntil(t, conn, domain.TopicSystemConnected)
	send(t, conn, "init", map[string]any{
		"config": map[string]any{"contentType": "blog", "multiple": true},
		"value":  []any{},
		"host":   map[string]any{"branch": "eu"},
	})

	var view domain.EntryView
	msg := readUntil(t, conn, domain.TopicEntriesRender)
	if err := json.Unmarshal(msg.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Total != 2 || view.Selected != 0 {
		t.Fatalf("unexpected initial view: %#v", view)
	}
	if hub.Subscribers(domain.ContentChangedTopic("blog")) != 1 {
		t.Fatal("session should watch its content type")
	}

	send(t, conn, "toggle", domain.SelectionKey{UID: "b", Branch: "eu"})
	set := readUntil(t, conn, domain.TopicFieldSet)
	var value domain.FieldValue
	if err := json.Unmarshal(set.Data, &value); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if len(value.List) != 1 || value.List[0].UID != "b" || value.List[0].Branch != "eu" {
		t.Fatalf("unexpected field value: %#v", value)
	}
	msg = readUntil(t, conn, domain.TopicEntriesRender)
	if err := json.Unmarshal(msg.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Selected != 1 {
		t.Fatalf("expected one selected record, got %d", view.Selected)
	}

	send(t, conn, "filter", map[string]string{"query": "beta"})
	msg = readUntil(t, conn, domain.TopicEntriesRender)
	if err := json.Unmarshal(msg.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Visible != 1 || view.Query != "beta" {
		t.Fatalf("unexpected filtered view: %#v", view)
	}
}

func TestBridge_ToggleBeforeInit(t *testing.T) {
	deps := newDeps(scenarioFetcher())
	deps.InitTimeout = 2 * time.Second
	conn, _ := dialBridge(t, deps)

	readUntil(t, conn, domain.TopicSystemConnected)
	send(t, conn, "toggle", domain.SelectionKey{UID: "a"})
	msg := readUntil(t, conn, domain.TopicSystemError)
	if msg.Metadata["action"] != "toggle" {
		t.Fatalf("unexpected error metadata: %#v", msg.Metadata)
	}
}

func TestBridge_InitTimeoutClosesSession(t *testing.T) {
	deps := newDeps(scenarioFetcher())
	deps.InitTimeout = 50 * time.Millisecond
	conn, _ := dialBridge(t, deps)

	readUntil(t, conn, domain.TopicSystemConnected)
	msg := readUntil(t, conn, domain.TopicSystemError)
	if !strings.Contains(string(msg.Data), "host bridge not ready") {
		t.Fatalf("unexpected error payload: %s", msg.Data)
	}
}

func TestBridge_WidgetsSharingTokenStayConnected(t *testing.T) {
	const secret = "bridge-secret"
	validator, err := auth.NewJWTValidator(secret, "")
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "editor",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	deps := newDeps(scenarioFetcher())
	deps.Validator = validator
	deps.InitTimeout = 2 * time.Second
	url, hub := startBridge(t, deps)

	initMsg := map[string]any{
		"config": map[string]any{"contentType": "blog", "multiple": true},
		"value":  []any{},
		"host":   map[string]any{"branch": "eu"},
	}
	first := dialURL(t, url+"?token="+token)
	readUntil(t, first, domain.TopicSystemConnected)
	send(t, first, "init", initMsg)
	readUntil(t, first, domain.TopicEntriesRender)

	second := dialURL(t, url+"?token="+token)
	readUntil(t, second, domain.TopicSystemConnected)
	send(t, second, "init", initMsg)
	readUntil(t, second, domain.TopicEntriesRender)

	if n := hub.Subscribers(domain.ContentChangedTopic("blog")); n != 2 {
		t.Fatalf("expected both widgets subscribed, got %d", n)
	}

	send(t, first, "filter", map[string]string{"query": "beta"})
	var view domain.EntryView
	msg := readUntil(t, first, domain.TopicEntriesRender)
	if err := json.Unmarshal(msg.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Visible != 1 {
		t.Fatalf("first widget should still be served, got %#v", view)
	}

	send(t, second, "reload", nil)
	msg = readUntil(t, second, domain.TopicEntriesRender)
	if err := json.Unmarshal(msg.Data, &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Total != 2 || view.Query != "" {
		t.Fatalf("second widget state leaked from the first: %#v", view)
	}
}
