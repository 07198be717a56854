package handler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/application/usecase"
	"branchPicker/internal/modules/picker/domain"
)

// ContentChangedHandler forwards CMS publish events of one Kafka topic to the
// widget sessions watching the affected content type.
type ContentChangedHandler struct {
	kafkaTopic    string
	allowedEvents map[string]struct{}
	broadcastUC   *usecase.BroadcastUseCase
	now           func() time.Time
}

func NewContentChangedHandler(kafkaTopic string, allowedEvents []string, broadcastUC *usecase.BroadcastUseCase) *ContentChangedHandler {
	eventSet := make(map[string]struct{}, len(allowedEvents))
	for _, e := range allowedEvents {
		if v := strings.TrimSpace(strings.ToLower(e)); v != "" {
			eventSet[v] = struct{}{}
		}
	}
	return &ContentChangedHandler{
		kafkaTopic:    kafkaTopic,
		allowedEvents: eventSet,
		broadcastUC:   broadcastUC,
		now:           time.Now,
	}
}

func (h *ContentChangedHandler) Topic() string { return h.kafkaTopic }

func (h *ContentChangedHandler) Handle(ctx context.Context, event *domain.ContentEvent) error {
	if event == nil || strings.TrimSpace(event.ContentTypeUID) == "" {
		return nil
	}
	if len(h.allowedEvents) > 0 {
		if _, ok := h.allowedEvents[strings.ToLower(strings.TrimSpace(event.Event))]; !ok {
			return nil
		}
	}
	slog.Info("content-changed forwarding", slog.String("contentType", event.ContentTypeUID), slog.String("entryUid", event.EntryUID), slog.String("branch", event.Branch), slog.String("event", event.Event))
	h.broadcastUC.Execute(ctx, domain.NewContentChangedMessage(*event, h.now()))
	return nil
}

var _ port.TopicHandler = (*ContentChangedHandler)(nil)
