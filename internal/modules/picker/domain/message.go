package domain

import "time"

// Message is the envelope exchanged with the bridge page and fanned out by the hub.
type Message struct {
	Topic      string            `json:"topic"`
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Data       any               `json:"data,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// ContentEvent is a publish notification emitted by the CMS for one entry.
type ContentEvent struct {
	Event          string `json:"event"`
	ContentTypeUID string `json:"content_type_uid"`
	EntryUID       string `json:"entry_uid"`
	Branch         string `json:"branch"`
	Environment    string `json:"environment"`
}

// NewRenderMessage wraps a view model for the bridge page.
func NewRenderMessage(view EntryView, at time.Time) *Message {
	return &Message{
		Topic:     TopicEntriesRender,
		Entity:    EntriesEntity,
		Action:    ActionRender,
		Metadata:  map[string]string{"contentType": view.ContentType},
		Data:      view,
		Timestamp: at.UTC(),
	}
}

// NewFieldSetMessage asks the bridge page to write the full value to the host field.
func NewFieldSetMessage(value FieldValue, at time.Time) *Message {
	return &Message{
		Topic:     TopicFieldSet,
		Entity:    FieldEntity,
		Action:    ActionSet,
		Data:      value,
		Timestamp: at.UTC(),
	}
}

// NewSystemError reports a session level failure to the bridge page.
func NewSystemError(reason string, at time.Time) *Message {
	return &Message{
		Topic:     TopicSystemError,
		Entity:    SystemEntity,
		Action:    ActionError,
		Data:      map[string]string{"error": reason},
		Timestamp: at.UTC(),
	}
}

// NewContentChangedMessage tells sessions watching the content type that entries changed.
func NewContentChangedMessage(event ContentEvent, at time.Time) *Message {
	return &Message{
		Topic:      ContentChangedTopic(event.ContentTypeUID),
		Entity:     EntriesEntity,
		Action:     ActionChanged,
		ResourceID: event.EntryUID,
		Metadata: map[string]string{
			"contentType": event.ContentTypeUID,
			"branch":      effectiveBranch(event.Branch),
			"entryUid":    event.EntryUID,
			"event":       event.Event,
		},
		Timestamp: at.UTC(),
	}
}
