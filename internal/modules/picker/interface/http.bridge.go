package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/application/usecase"
	"branchPicker/internal/modules/picker/domain"
	"branchPicker/internal/modules/picker/infrastructure"
	"branchPicker/internal/shared/auth"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// InitPayload is sent by the bridge page once the host SDK is available.
type InitPayload struct {
	Config domain.HostOptions `json:"config"`
	Value  domain.FieldValue  `json:"value"`
	Host   domain.HostContext `json:"host"`
}

type filterPayload struct {
	Query string `json:"query"`
}

// bridgeSession binds one websocket client to its widget session. Its handlers
// run on the client's read loop, so they never overlap.
type bridgeSession struct {
	hub     *infrastructure.Hub
	client  *infrastructure.Client
	claims  *auth.Claims
	deps    Dependencies
	session *usecase.WidgetSession
	topic   string
}

// NewBridgeWebsocketHandler exposes /ws/widget. The page must send init within
// the configured timeout or the connection is closed.
func NewBridgeWebsocketHandler(hub *infrastructure.Hub, deps Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		peerIP := c.RealIP()

		claims, err := deps.Validator.Validate(auth.ExtractToken(c.Request(), "token"))
		if err != nil {
			slog.Warn("bridge ws auth failed", slog.String("ip", peerIP), slog.Any("error", err))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing token")
		}

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			slog.Error("bridge ws upgrade failed", slog.String("ip", peerIP), slog.String("reqID", requestID), slog.Any("error", err))
			return err
		}

		client := infrastructure.NewClient(hub, conn, claims.Subject, claims.SessionID, deps.SendBuffer, nil)
		bridge := &bridgeSession{hub: hub, client: client, claims: claims, deps: deps}
		bridge.register(client.Commands())
		hub.AttachClient(client, nil)

		go client.WritePump()
		go client.ReadPump()
		go bridge.awaitInit(deps.initTimeout())

		client.SendDomainMessage(&domain.Message{
			Topic:  domain.TopicSystemConnected,
			Entity: domain.SystemEntity,
			Action: domain.ActionConnected,
			Metadata: map[string]string{
				"sessionId": claims.SessionID,
				"userId":    claims.Subject,
			},
			Data: map[string]any{
				"initTimeoutMs": deps.initTimeout().Milliseconds(),
			},
			Timestamp: time.Now().UTC(),
		})

		slog.Info("bridge ws connected", slog.String("userId", claims.Subject), slog.String("sessionId", claims.SessionID), slog.String("ip", peerIP), slog.String("reqID", requestID))
		return nil
	}
}

func (b *bridgeSession) register(commands *infrastructure.CommandProcessor) {
	commands.Register("init", b.handleInit)
	commands.Register("toggle", b.handleToggle)
	commands.Register("select", b.handleToggle)
	commands.Register("filter", b.handleFilter)
	commands.Register("reload", b.handleReload)
}

func (b *bridgeSession) awaitInit(timeout time.Duration) {
	err := b.client.WaitReady(context.Background(), timeout)
	if err == nil {
		return
	}
	slog.Warn("bridge ws init timeout", slog.String("sessionId", b.client.SessionID()), slog.Duration("timeout", timeout), slog.Any("error", err))
	b.client.SendDomainMessage(domain.NewSystemError(port.ErrBridgeNotReady.Error(), time.Now()))
	time.AfterFunc(500*time.Millisecond, b.client.Close)
}

func (b *bridgeSession) handleInit(ctx context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	var payload InitPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		slog.Warn("bridge ws init decode failed", slog.String("sessionId", client.SessionID()), slog.Any("error", err))
		sendCommandError(client, "init", "invalid payload")
		return
	}

	cfg := domain.ResolveConfig(payload.Config, payload.Host, b.deps.Defaults)
	if !b.claims.AllowsStack(cfg.APIKey) {
		slog.Warn("bridge ws stack mismatch", slog.String("sessionId", client.SessionID()), slog.String("stack", b.claims.Stack))
		sendCommandError(client, "init", auth.ErrStackMismatch.Error())
		return
	}

	field := infrastructure.NewBridgeField(client, payload.Value)
	b.session = newSession(b.deps, client.SessionID(), cfg, field)

	if b.topic != "" {
		b.hub.Unsubscribe(client, b.topic)
	}
	b.topic = domain.ContentChangedTopic(cfg.ContentType)
	b.hub.Subscribe(client, b.topic)
	client.MarkReady()

	slog.Info("bridge ws initialised", slog.String("sessionId", client.SessionID()), slog.String("contentType", cfg.ContentType), slog.String("target", cfg.TargetBranch), slog.String("current", cfg.CurrentBranch), slog.Bool("multiple", cfg.Multiple))
	b.load(ctx, client)
}

func (b *bridgeSession) handleToggle(ctx context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	if b.session == nil {
		sendCommandError(client, "toggle", "session not initialised")
		return
	}
	var key domain.SelectionKey
	if err := json.Unmarshal(cmd.Payload, &key); err != nil || trimmed(key.UID) == "" {
		sendCommandError(client, "toggle", "invalid payload")
		return
	}
	_, view, err := b.session.Toggle(ctx, key)
	if err != nil {
		slog.Warn("bridge ws toggle failed", slog.String("sessionId", client.SessionID()), slog.String("uid", key.UID), slog.String("branch", key.EffectiveBranch()), slog.Any("error", err))
		_, message := statusFor(err)
		sendCommandError(client, "toggle", message)
		return
	}
	client.SendDomainMessage(domain.NewRenderMessage(view, time.Now()))
}

func (b *bridgeSession) handleFilter(ctx context.Context, client *infrastructure.Client, cmd infrastructure.Command) {
	if b.session == nil {
		sendCommandError(client, "filter", "session not initialised")
		return
	}
	var payload filterPayload
	if len(cmd.Payload) > 0 {
		if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
			sendCommandError(client, "filter", "invalid payload")
			return
		}
	}
	view, err := b.session.Filter(ctx, payload.Query)
	if err != nil {
		sendCommandError(client, "filter", err.Error())
		return
	}
	client.SendDomainMessage(domain.NewRenderMessage(view, time.Now()))
}

func (b *bridgeSession) handleReload(ctx context.Context, client *infrastructure.Client, _ infrastructure.Command) {
	if b.session == nil {
		sendCommandError(client, "reload", "session not initialised")
		return
	}
	b.load(ctx, client)
}

// load runs a render cycle. A failed cycle still renders: the view carries the error.
func (b *bridgeSession) load(ctx context.Context, client *infrastructure.Client) {
	view, err := b.session.Load(ctx)
	if err != nil && !errors.Is(err, port.ErrMissingContentType) {
		slog.Warn("bridge ws render failed", slog.String("sessionId", client.SessionID()), slog.Any("error", err))
	}
	client.SendDomainMessage(domain.NewRenderMessage(view, time.Now()))
}

func sendCommandError(client *infrastructure.Client, action, reason string) {
	message := domain.NewSystemError(reason, time.Now())
	message.Metadata = map[string]string{"action": action}
	client.SendDomainMessage(message)
}
