package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultBranch is assumed for entries and selection keys that carry no branch.
	DefaultBranch = "main"
	// TargetBranchLabel is the group label of the target branch regardless of its name.
	TargetBranchLabel = "Main Branch"
)

// Entry is one record returned by the delivery API. Display fields are lifted out
// of the payload; everything else stays in Fields untouched.
type Entry struct {
	UID            string
	Title          string
	Description    string
	UpdatedAt      string
	ContentTypeUID string
	Branch         string
	BranchLabel    string
	Fields         map[string]any
}

// EntryFromPayload builds an Entry from a decoded JSON object.
func EntryFromPayload(payload map[string]any) Entry {
	entry := Entry{Fields: payload}
	entry.UID = stringField(payload, "uid")
	entry.Title = stringField(payload, "title")
	entry.Description = stringField(payload, "description")
	entry.UpdatedAt = stringField(payload, "updated_at")
	entry.ContentTypeUID = stringField(payload, "_content_type_uid")
	entry.Branch = stringField(payload, "_branch")
	entry.BranchLabel = stringField(payload, "_branch_label")
	return entry
}

// EffectiveBranch returns the entry branch, defaulting to main.
func (e Entry) EffectiveBranch() string {
	return effectiveBranch(e.Branch)
}

// Key returns the composite key of the entry.
func (e Entry) Key() string {
	return compositeKey(e.UID, e.Branch)
}

// WithBranch returns a shallow copy tagged with the branch name and its group label.
func (e Entry) WithBranch(branch, label string) Entry {
	tagged := e
	tagged.Fields = make(map[string]any, len(e.Fields)+2)
	for key, value := range e.Fields {
		tagged.Fields[key] = value
	}
	tagged.Branch = branch
	tagged.BranchLabel = label
	tagged.Fields["_branch"] = branch
	tagged.Fields["_branch_label"] = label
	return tagged
}

// MarshalJSON emits the raw payload with the display and branch fields applied on top.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+4)
	for key, value := range e.Fields {
		out[key] = value
	}
	out["uid"] = e.UID
	setIfPresent(out, "title", e.Title)
	setIfPresent(out, "description", e.Description)
	setIfPresent(out, "updated_at", e.UpdatedAt)
	setIfPresent(out, "_content_type_uid", e.ContentTypeUID)
	setIfPresent(out, "_branch", e.Branch)
	setIfPresent(out, "_branch_label", e.BranchLabel)
	return json.Marshal(out)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	*e = EntryFromPayload(payload)
	return nil
}

// BranchLabel returns the display label of a secondary branch ("eu" -> "Eu Branch").
func BranchLabel(branch string) string {
	trimmed := strings.TrimSpace(branch)
	if trimmed == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(r)) + trimmed[size:] + " Branch"
}

// TagEntries copies every entry and tags the copy with its source branch.
func TagEntries(entries []Entry, branch, label string) []Entry {
	tagged := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		tagged = append(tagged, entry.WithBranch(branch, label))
	}
	return tagged
}

func effectiveBranch(branch string) string {
	if trimmed := strings.TrimSpace(branch); trimmed != "" {
		return trimmed
	}
	return DefaultBranch
}

func compositeKey(uid, branch string) string {
	return strings.TrimSpace(uid) + "@" + effectiveBranch(branch)
}

func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	switch typed := payload[key].(type) {
	case string:
		return typed
	case nil:
		return ""
	default:
		return fmt.Sprint(typed)
	}
}

func setIfPresent(target map[string]any, key, value string) {
	if value == "" {
		return
	}
	target[key] = value
}
