package transport

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"branchPicker/internal/modules/picker/domain"
	"branchPicker/internal/modules/picker/infrastructure"
)

// RenderRequest carries everything a stateless host keeps on its side.
type RenderRequest struct {
	Config domain.HostOptions `json:"config"`
	Host   domain.HostContext `json:"host"`
	Value  domain.FieldValue  `json:"value"`
	Query  string             `json:"query,omitempty"`
}

// RenderResponse is the view plus the raw entry set it was built from. Entries
// keep the persisted JSON shape so a client can echo them into SelectRequest.
type RenderResponse struct {
	domain.EntryView
	Entries []domain.Entry `json:"entries"`
}

// SelectRequest applies one click. Entries may be echoed back from the entries
// of a previous RenderResponse to skip the refetch.
type SelectRequest struct {
	Config  domain.HostOptions  `json:"config"`
	Host    domain.HostContext  `json:"host"`
	Value   domain.FieldValue   `json:"value"`
	Entries []domain.Entry      `json:"entries,omitempty"`
	Entry   domain.SelectionKey `json:"entry"`
	Query   string              `json:"query,omitempty"`
}

type SelectResponse struct {
	Value   domain.FieldValue `json:"value"`
	Changed bool              `json:"changed"`
	View    domain.EntryView  `json:"view"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRenderHTTPHandler exposes POST /api/v1/entries/render.
func NewRenderHTTPHandler(deps Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req RenderRequest
		if err := c.Bind(&req); err != nil {
			slog.Warn("render http: invalid request body", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		cfg := domain.ResolveConfig(req.Config, req.Host, deps.Defaults)

		claims, err := authorize(c, deps.Validator, cfg.APIKey)
		if err != nil {
			status, message := statusFor(err)
			slog.Warn("render http: unauthorized", slog.String("ip", c.RealIP()), slog.Any("error", err))
			return echo.NewHTTPError(status, message)
		}

		session := newSession(deps, claims.SessionID, cfg, infrastructure.NewMemoryField(req.Value))
		if _, err := session.Filter(c.Request().Context(), req.Query); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "unable to read field value")
		}
		view, err := session.Load(c.Request().Context())
		if err != nil {
			status, _ := statusFor(err)
			slog.Warn("render http: load failed", slog.String("contentType", cfg.ContentType), slog.Int("status", status), slog.Any("error", err))
			return c.JSON(status, renderResponse(view, nil))
		}

		slog.Info("render http: rendered", slog.String("contentType", cfg.ContentType), slog.Int("total", view.Total), slog.Int("visible", view.Visible), slog.String("sessionId", claims.SessionID))
		return c.JSON(http.StatusOK, renderResponse(view, session.Entries()))
	}
}

// NewSelectHTTPHandler exposes POST /api/v1/entries/select.
func NewSelectHTTPHandler(deps Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req SelectRequest
		if err := c.Bind(&req); err != nil {
			slog.Warn("select http: invalid request body", slog.Any("error", err))
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if trimmed(req.Entry.UID) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "entry uid is required")
		}
		cfg := domain.ResolveConfig(req.Config, req.Host, deps.Defaults)

		claims, err := authorize(c, deps.Validator, cfg.APIKey)
		if err != nil {
			status, message := statusFor(err)
			slog.Warn("select http: unauthorized", slog.String("ip", c.RealIP()), slog.Any("error", err))
			return echo.NewHTTPError(status, message)
		}

		ctx := c.Request().Context()
		field := infrastructure.NewMemoryField(req.Value)
		session := newSession(deps, claims.SessionID, cfg, field)
		if _, err := session.Filter(ctx, req.Query); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "unable to read field value")
		}
		if req.Entries != nil {
			session.UseEntries(&domain.EntrySet{ContentType: cfg.ContentType, Entries: req.Entries})
		} else if _, err := session.Load(ctx); err != nil {
			status, message := statusFor(err)
			slog.Warn("select http: load failed", slog.String("contentType", cfg.ContentType), slog.Int("status", status), slog.Any("error", err))
			return c.JSON(status, errorResponse{Error: message})
		}

		output, view, err := session.Toggle(ctx, req.Entry)
		if err != nil {
			status, message := statusFor(err)
			slog.Warn("select http: toggle failed", slog.String("uid", req.Entry.UID), slog.String("branch", req.Entry.EffectiveBranch()), slog.Any("error", err))
			return c.JSON(status, errorResponse{Error: message})
		}

		return c.JSON(http.StatusOK, SelectResponse{Value: output.Value, Changed: output.Changed, View: view})
	}
}

func renderResponse(view domain.EntryView, set *domain.EntrySet) RenderResponse {
	out := RenderResponse{EntryView: view, Entries: []domain.Entry{}}
	if set != nil && set.Entries != nil {
		out.Entries = set.Entries
	}
	return out
}

// NewHealthHandler exposes GET /healthz.
func NewHealthHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}
