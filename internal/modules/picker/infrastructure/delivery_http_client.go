package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/domain"
)

// DeliveryHTTPClient implements EntryFetcher against the CMS delivery REST API.
type DeliveryHTTPClient struct {
	endpoints *EndpointMap
	client    *http.Client
	timeout   time.Duration

	mu   sync.Mutex
	rest map[string]*RESTClient
}

func NewDeliveryHTTPClient(endpoints *EndpointMap, timeout time.Duration, client *http.Client) *DeliveryHTTPClient {
	if endpoints == nil {
		endpoints = NewEndpointMap(FamilyDelivery)
	}
	if client == nil {
		client = &http.Client{Timeout: timeoutOrDefault(timeout)}
	}
	return &DeliveryHTTPClient{
		endpoints: endpoints,
		client:    client,
		timeout:   timeoutOrDefault(timeout),
		rest:      make(map[string]*RESTClient),
	}
}

type entriesPayload struct {
	Entries []map[string]any `json:"entries"`
}

func (c *DeliveryHTTPClient) FetchEntries(ctx context.Context, branch domain.BranchConfig) ([]domain.Entry, error) {
	contentType := strings.TrimSpace(branch.ContentType)
	if contentType == "" {
		return nil, port.ErrMissingContentType
	}

	rest := c.restFor(branch.Region)
	endpoint := "/v3/content_types/" + url.PathEscape(contentType) + "/entries"

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := rest.NewRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		slog.Error("delivery request build failed", slog.String("contentType", contentType), slog.String("branch", branch.Branch), slog.Any("error", err))
		return nil, err
	}

	values := url.Values{}
	values.Set("environment", branch.Environment)
	values.Set("branch", branch.Branch)
	req.URL.RawQuery = values.Encode()

	req.Header.Set("api_key", branch.APIKey)
	req.Header.Set("access_token", branch.DeliveryToken)
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("delivery request", slog.String("url", req.URL.String()), slog.String("branch", branch.Branch))

	res, err := rest.Do(req)
	if err != nil {
		slog.Error("delivery request error", slog.String("contentType", contentType), slog.String("branch", branch.Branch), slog.Any("error", err))
		return nil, fmt.Errorf("delivery request failed: %w", err)
	}
	defer res.Body.Close()

	slog.Debug("delivery response", slog.Int("status", res.StatusCode), slog.String("url", req.URL.String()))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		slog.Error("delivery fetch unexpected status", slog.Int("status", res.StatusCode), slog.String("url", req.URL.String()), slog.String("body", strings.TrimSpace(string(body))))
		statusErr := &port.StatusError{Branch: branch.Branch, StatusCode: res.StatusCode}
		switch res.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			statusErr.Err = port.ErrDeliveryForbidden
		case http.StatusNotFound:
			statusErr.Err = port.ErrDeliveryNotFound
		}
		return nil, statusErr
	}

	return decodeEntries(res.Body)
}

func (c *DeliveryHTTPClient) restFor(region string) *RESTClient {
	base := c.endpoints.BaseURL(region)
	c.mu.Lock()
	defer c.mu.Unlock()
	if rest, ok := c.rest[base]; ok {
		return rest
	}
	rest := NewRESTClient(base, 0, c.client)
	c.rest[base] = rest
	return rest
}

func decodeEntries(body io.Reader) ([]domain.Entry, error) {
	var payload entriesPayload
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	entries := make([]domain.Entry, 0, len(payload.Entries))
	for _, raw := range payload.Entries {
		if raw == nil {
			continue
		}
		entries = append(entries, domain.EntryFromPayload(raw))
	}
	slog.Debug("delivery payload decoded", slog.Int("entries", len(entries)))
	return entries, nil
}

var _ port.EntryFetcher = (*DeliveryHTTPClient)(nil)
