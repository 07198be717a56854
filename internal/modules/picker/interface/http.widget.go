package transport

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"branchPicker/internal/modules/picker/domain"
	"branchPicker/internal/modules/picker/infrastructure"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateRenderer renders the widget page. html/template escapes every record
// field, so entry text is never interpreted as markup.
type TemplateRenderer struct {
	templates *template.Template
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.New("widget").Funcs(template.FuncMap{
		"toJSON": func(v any) (template.JS, error) {
			raw, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(raw), nil
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

func (r *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// WidgetPage is the data handed to widget.html.
type WidgetPage struct {
	View          domain.EntryView
	SocketPath    string
	Token         string
	HostOrigin    string
	Options       domain.HostOptions
	Value         domain.FieldValue
	InitTimeoutMs int64
}

// NewWidgetPageHandler exposes GET /widget. The first render happens on the
// server; later renders arrive over the bridge socket.
func NewWidgetPageHandler(deps Dependencies, socketPath string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var opts domain.HostOptions
		if raw := trimmed(c.QueryParam("config")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &opts); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "config must be a JSON object")
			}
		}
		var value domain.FieldValue
		if raw := trimmed(c.QueryParam("value")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "value must be JSON")
			}
		}
		host := domain.HostContext{Branch: c.QueryParam("branch"), URL: c.QueryParam("url")}
		cfg := domain.ResolveConfig(opts, host, deps.Defaults)

		claims, err := authorize(c, deps.Validator, cfg.APIKey)
		if err != nil {
			status, message := statusFor(err)
			slog.Warn("widget page: unauthorized", slog.String("ip", c.RealIP()), slog.Any("error", err))
			return echo.NewHTTPError(status, message)
		}

		ctx := c.Request().Context()
		session := newSession(deps, claims.SessionID, cfg, infrastructure.NewMemoryField(value))
		if _, err := session.Filter(ctx, c.QueryParam("q")); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "unable to read field value")
		}
		view, err := session.Load(ctx)
		status := http.StatusOK
		if err != nil {
			status, _ = statusFor(err)
			slog.Warn("widget page: load failed", slog.String("contentType", cfg.ContentType), slog.Int("status", status), slog.Any("error", err))
		}

		return c.Render(status, "widget.html", WidgetPage{
			View:          view,
			SocketPath:    socketPath,
			Token:         strings.TrimSpace(c.QueryParam("token")),
			HostOrigin:    hostOrigin(c.QueryParam("origin"), host.URL),
			Options:       opts,
			Value:         value,
			InitTimeoutMs: deps.initTimeout().Milliseconds(),
		})
	}
}

// hostOrigin returns the scheme://host of the first http(s) candidate. The page
// only talks to the parent window on that origin; empty disables the channel.
func hostOrigin(candidates ...string) string {
	for _, raw := range candidates {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || parsed.Host == "" {
			continue
		}
		if parsed.Scheme != "https" && parsed.Scheme != "http" {
			continue
		}
		return parsed.Scheme + "://" + parsed.Host
	}
	return ""
}
