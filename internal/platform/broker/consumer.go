package broker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"branchPicker/internal/modules/picker/domain"
)

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
	}
}

// Consume reads until ctx is done. Undecodable messages are logged and skipped.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(topic string, event *domain.ContentEvent) error) error {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			continue
		}
		event, ok := decodeEvent(m.Value)
		if !ok {
			slog.Warn("kafka message skipped", slog.String("topic", m.Topic), slog.Int64("offset", m.Offset))
			continue
		}
		slog.Info("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("event", event.Event),
			slog.String("contentType", event.ContentTypeUID),
			slog.String("entryUid", event.EntryUID),
			slog.String("branch", event.Branch),
		)
		if err := handler(m.Topic, event); err != nil {
			slog.Warn("kafka handler error", slog.Any("error", err))
		}
	}
}

// webhookEvent is the nested shape of CMS webhooks relayed verbatim to Kafka.
type webhookEvent struct {
	Module string `json:"module"`
	Event  string `json:"event"`
	Data   struct {
		Entry struct {
			UID string `json:"uid"`
		} `json:"entry"`
		ContentType struct {
			UID string `json:"uid"`
		} `json:"content_type"`
		Branch struct {
			UID string `json:"uid"`
		} `json:"branch"`
		Environment struct {
			Name string `json:"name"`
		} `json:"environment"`
	} `json:"data"`
}

// decodeEvent accepts the flat event shape and the nested webhook shape.
func decodeEvent(raw []byte) (*domain.ContentEvent, bool) {
	var flat domain.ContentEvent
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, false
	}
	if strings.TrimSpace(flat.ContentTypeUID) != "" {
		return &flat, true
	}

	var hook webhookEvent
	if err := json.Unmarshal(raw, &hook); err != nil {
		return nil, false
	}
	if strings.TrimSpace(hook.Data.ContentType.UID) == "" {
		return nil, false
	}
	event := hook.Event
	if module := strings.TrimSpace(hook.Module); module != "" && !strings.Contains(event, ".") {
		event = module + "." + event
	}
	return &domain.ContentEvent{
		Event:          event,
		ContentTypeUID: hook.Data.ContentType.UID,
		EntryUID:       hook.Data.Entry.UID,
		Branch:         hook.Data.Branch.UID,
		Environment:    hook.Data.Environment.Name,
	}, true
}
