package domain

import "strings"

const (
	SystemEntity  = "system"
	EntriesEntity = "entries"
	FieldEntity   = "field"

	TopicSystemConnected = SystemEntity + ".connected"
	TopicSystemPong      = SystemEntity + ".pong"
	TopicSystemError     = SystemEntity + ".error"
	TopicEntriesRender   = EntriesEntity + ".render"
	TopicFieldSet        = FieldEntity + ".set"

	ActionConnected = "connected"
	ActionPong      = "pong"
	ActionError     = "error"
	ActionRender    = "render"
	ActionSet       = "set"
	ActionChanged   = "changed"
)

// ContentChangedTopic returns the topic sessions subscribe to for one content type.
func ContentChangedTopic(contentType string) string {
	cleaned := strings.ToLower(strings.TrimSpace(contentType))
	if cleaned == "" {
		return ""
	}
	return EntriesEntity + "." + cleaned + "." + ActionChanged
}
