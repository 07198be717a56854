package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/domain"
)

// WidgetSession is the state of one embedded widget: its resolved configuration,
// the host field handle and the entries of the last render cycle.
type WidgetSession struct {
	mu       sync.Mutex
	id       string
	config   domain.WidgetConfig
	field    port.HostField
	loader   *LoadEntriesUseCase
	selector *SelectEntryUseCase
	entries  *domain.EntrySet
	query    string
	loadErr  error
}

func NewWidgetSession(id string, cfg domain.WidgetConfig, field port.HostField, loader *LoadEntriesUseCase, selector *SelectEntryUseCase) *WidgetSession {
	if selector == nil {
		selector = NewSelectEntryUseCase()
	}
	return &WidgetSession{
		id:       id,
		config:   cfg,
		field:    field,
		loader:   loader,
		selector: selector,
	}
}

func (s *WidgetSession) ID() string { return s.id }

func (s *WidgetSession) Config() domain.WidgetConfig { return s.config }

// Entries returns the entry set of the last successful render cycle.
func (s *WidgetSession) Entries() *domain.EntrySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries
}

// UseEntries installs an entry set fetched elsewhere, skipping the fetch.
func (s *WidgetSession) UseEntries(set *domain.EntrySet) {
	s.mu.Lock()
	s.entries = set
	s.loadErr = nil
	s.mu.Unlock()
}

// Load runs a full render cycle. On failure the returned view carries the error
// state and the error is returned as well.
func (s *WidgetSession) Load(ctx context.Context) (domain.EntryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.loader.Execute(ctx, s.config)
	if err != nil {
		s.entries = nil
		s.loadErr = err
		slog.Warn("widget-session load failed", slog.String("sessionId", s.id), slog.String("contentType", s.config.ContentType), slog.Any("error", err))
		return s.errorViewLocked(), err
	}
	s.entries = set
	s.loadErr = nil
	return s.viewLocked(ctx)
}

// View rebuilds the view model from the held entries and the current field value.
func (s *WidgetSession) View(ctx context.Context) (domain.EntryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.errorViewLocked(), nil
	}
	return s.viewLocked(ctx)
}

// Filter changes the text filter and re-renders without refetching.
func (s *WidgetSession) Filter(ctx context.Context, query string) (domain.EntryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	if s.loadErr != nil {
		return s.errorViewLocked(), nil
	}
	return s.viewLocked(ctx)
}

// Toggle applies a click on the entry designated by key and returns the new view.
func (s *WidgetSession) Toggle(ctx context.Context, key domain.SelectionKey) (*SelectEntryOutput, domain.EntryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	output, err := s.selector.Execute(ctx, SelectEntryInput{
		Config:  s.config,
		Entries: s.entries,
		Field:   s.field,
		Key:     key,
	})
	if err != nil {
		return nil, domain.EntryView{}, err
	}
	view, err := s.viewLocked(ctx)
	return output, view, err
}

func (s *WidgetSession) viewLocked(ctx context.Context) (domain.EntryView, error) {
	value, err := s.field.Value(ctx)
	if err != nil {
		return domain.EntryView{}, err
	}
	return domain.BuildView(s.entries, value, s.config.Multiple, s.query), nil
}

func (s *WidgetSession) errorViewLocked() domain.EntryView {
	view := domain.ErrorView(s.config.ContentType, s.config.Multiple, s.loadErr)
	if errors.Is(s.loadErr, port.ErrMissingContentType) {
		view.Error = "Content type is not configured for this field."
	}
	return view
}
