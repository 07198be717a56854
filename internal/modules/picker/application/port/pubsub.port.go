package port

import (
	"context"

	"branchPicker/internal/modules/picker/domain"
)

// Broadcaster fans a message out to the connected widget sessions.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg *domain.Message)
}

// TopicHandler handles the content events of one Kafka topic.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, event *domain.ContentEvent) error
}
