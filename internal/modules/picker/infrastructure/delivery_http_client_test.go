package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/domain"
)

func endpointsFor(server *httptest.Server) *EndpointMap {
	endpoints := NewEndpointMap(FamilyDelivery)
	endpoints.hosts[domain.RegionNA] = server.URL
	return endpoints
}

func TestDeliveryHTTPClient_FetchEntries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/v3/content_types/blog/entries" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("environment"); got != "production" {
			t.Errorf("unexpected environment %q", got)
		}
		if got := r.URL.Query().Get("branch"); got != "eu" {
			t.Errorf("unexpected branch %q", got)
		}
		if got := r.Header.Get("api_key"); got != "stack-key" {
			t.Errorf("unexpected api_key %q", got)
		}
		if got := r.Header.Get("access_token"); got != "delivery-token" {
			t.Errorf("unexpected access_token %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entries":[{"uid":"a","title":"Alpha"},{"uid":"b","title":"Beta","description":"second"}]}`))
	}))
	defer server.Close()

	client := NewDeliveryHTTPClient(endpointsFor(server), time.Second, server.Client())
	entries, err := client.FetchEntries(context.Background(), domain.BranchConfig{
		Branch:        "eu",
		ContentType:   "blog",
		APIKey:        "stack-key",
		DeliveryToken: "delivery-token",
		Environment:   "production",
		Region:        "mars",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].UID != "a" || entries[1].Description != "second" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestDeliveryHTTPClient_MissingEntriesIsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":0}`))
	}))
	defer server.Close()

	entries, err := NewDeliveryHTTPClient(endpointsFor(server), time.Second, server.Client()).
		FetchEntries(context.Background(), domain.BranchConfig{Branch: "main", ContentType: "blog"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestDeliveryHTTPClient_StatusErrors(t *testing.T) {
	t.Parallel()

	cases := map[int]error{
		http.StatusUnauthorized:        port.ErrDeliveryForbidden,
		http.StatusForbidden:           port.ErrDeliveryForbidden,
		http.StatusNotFound:            port.ErrDeliveryNotFound,
		http.StatusInternalServerError: nil,
	}
	for status, sentinel := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error_message":"nope"}`, status)
		}))

		_, err := NewDeliveryHTTPClient(endpointsFor(server), time.Second, server.Client()).
			FetchEntries(context.Background(), domain.BranchConfig{Branch: "main", ContentType: "blog"})
		server.Close()

		var statusErr *port.StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("status %d: expected StatusError, got %v", status, err)
		}
		if statusErr.StatusCode != status || statusErr.Branch != "main" {
			t.Fatalf("status %d: unexpected error fields %#v", status, statusErr)
		}
		if sentinel != nil && !errors.Is(err, sentinel) {
			t.Fatalf("status %d: expected %v, got %v", status, sentinel, err)
		}
	}
}

func TestDeliveryHTTPClient_MissingContentTypeSendsNothing(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	_, err := NewDeliveryHTTPClient(endpointsFor(server), time.Second, server.Client()).
		FetchEntries(context.Background(), domain.BranchConfig{Branch: "main", ContentType: " "})
	if !errors.Is(err, port.ErrMissingContentType) {
		t.Fatalf("expected ErrMissingContentType, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request, got %d", hits.Load())
	}
}

func TestDeliveryHTTPClient_InvalidJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := NewDeliveryHTTPClient(endpointsFor(server), time.Second, server.Client()).
		FetchEntries(context.Background(), domain.BranchConfig{Branch: "main", ContentType: "blog"})
	if err == nil {
		t.Fatal("expected decode error")
	}
}
