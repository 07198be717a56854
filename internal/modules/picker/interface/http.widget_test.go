package transport

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestWidgetPage_EscapesEntryText(t *testing.T) {
	t.Parallel()

	renderer, err := NewTemplateRenderer()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	e := echo.New()
	e.Renderer = renderer

	query := url.Values{}
	query.Set("config", `{"contentType":"blog","multiple":true}`)
	query.Set("value", `[{"uid":"a","_branch":"main"}]`)
	query.Set("branch", "eu")
	req := httptest.NewRequest(http.MethodGet, "/widget?"+query.Encode(), nil)
	rec := httptest.NewRecorder()

	if err := NewWidgetPageHandler(newDeps(scenarioFetcher()), "/ws/widget")(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<b>Alpha</b>") {
		t.Fatal("entry title must be escaped")
	}
	if !strings.Contains(body, "&lt;b&gt;Alpha&lt;/b&gt;") {
		t.Fatalf("expected escaped title in body")
	}
	if !strings.Contains(body, "Eu Branch") || !strings.Contains(body, `class="entry selected"`) {
		t.Fatalf("expected both groups and a selected record")
	}
}

func TestWidgetPage_BadConfig(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/widget?config=%7Bnope", nil)
	rec := httptest.NewRecorder()
	err := NewWidgetPageHandler(newDeps(scenarioFetcher()), "/ws/widget")(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func renderWidget(t *testing.T, query url.Values) string {
	t.Helper()
	renderer, err := NewTemplateRenderer()
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	e := echo.New()
	e.Renderer = renderer
	req := httptest.NewRequest(http.MethodGet, "/widget?"+query.Encode(), nil)
	rec := httptest.NewRecorder()
	if err := NewWidgetPageHandler(newDeps(scenarioFetcher()), "/ws/widget")(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec.Body.String()
}

func TestWidgetPage_ParentChannelUsesHostOrigin(t *testing.T) {
	t.Parallel()

	query := url.Values{}
	query.Set("config", `{"contentType":"blog"}`)
	query.Set("url", "https://app.cms.example/#!/stack/entry?branch=eu")
	body := renderWidget(t, query)

	if strings.Contains(body, `"*"`) {
		t.Fatal("page must not post to any origin")
	}
	if !strings.Contains(body, `hostOrigin: "https:\/\/app.cms.example"`) {
		t.Fatalf("expected host origin in page data")
	}

	query.Set("origin", "https://other.example:8443/path")
	if body := renderWidget(t, query); !strings.Contains(body, `hostOrigin: "https:\/\/other.example:8443"`) {
		t.Fatalf("explicit origin should win")
	}
}

func TestWidgetPage_ServerRowsInertUntilLive(t *testing.T) {
	t.Parallel()

	query := url.Values{}
	query.Set("config", `{"contentType":"blog","currentBranch":"eu"}`)
	body := renderWidget(t, query)

	if !strings.Contains(body, `id="root" data-live="false" data-content-type="blog"`) {
		t.Fatal("server-rendered list must start inert and carry the content type")
	}
	if !strings.Contains(body, `data-uid="b" data-branch="eu"`) {
		t.Fatal("rows must carry their composite key for the delegated click handler")
	}
}

func TestHostOrigin(t *testing.T) {
	cases := map[string]string{
		"https://app.example/entries?x=1": "https://app.example",
		"http://localhost:3000":           "http://localhost:3000",
		"javascript:alert(1)":             "",
		"/relative/path":                  "",
		"":                                "",
	}
	for input, expected := range cases {
		if got := hostOrigin(input); got != expected {
			t.Fatalf("hostOrigin(%q) = %q, expected %q", input, got, expected)
		}
	}
	if got := hostOrigin("", "https://fallback.example/x"); got != "https://fallback.example" {
		t.Fatalf("expected fallback candidate, got %q", got)
	}
}
