package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SelectionKey is the composite key persisted in the host field for one selected entry.
type SelectionKey struct {
	UID            string `json:"uid"`
	ContentTypeUID string `json:"_content_type_uid,omitempty"`
	Branch         string `json:"_branch,omitempty"`
}

// EffectiveBranch returns the key branch, defaulting to main for values written
// before entries carried a branch.
func (k SelectionKey) EffectiveBranch() string {
	return effectiveBranch(k.Branch)
}

// Matches reports whether the key designates the entry. It agrees with Key: uids
// compare trimmed, branches compare effective.
func (k SelectionKey) Matches(entry Entry) bool {
	return strings.TrimSpace(k.UID) == strings.TrimSpace(entry.UID) && k.EffectiveBranch() == entry.EffectiveBranch()
}

// Key returns the composite key string used for lookups.
func (k SelectionKey) Key() string {
	return compositeKey(k.UID, k.Branch)
}

// NewSelectionKey builds the key persisted for an entry. The entry's own content
// type wins over the configured one.
func NewSelectionKey(entry Entry, contentType string) SelectionKey {
	ct := strings.TrimSpace(entry.ContentTypeUID)
	if ct == "" {
		ct = strings.TrimSpace(contentType)
	}
	return SelectionKey{
		UID:            entry.UID,
		ContentTypeUID: ct,
		Branch:         entry.EffectiveBranch(),
	}
}

// FieldValue is the value held by the host field: null, one key, or a list of keys.
type FieldValue struct {
	Single *SelectionKey
	List   []SelectionKey
	IsList bool
}

// SingleValue wraps one key.
func SingleValue(key SelectionKey) FieldValue {
	return FieldValue{Single: &key}
}

// ListValue wraps an ordered list of keys. A nil list still encodes as [].
func ListValue(keys ...SelectionKey) FieldValue {
	list := make([]SelectionKey, len(keys))
	copy(list, keys)
	return FieldValue{List: list, IsList: true}
}

// IsEmpty reports whether nothing is selected.
func (v FieldValue) IsEmpty() bool {
	if v.IsList {
		return len(v.List) == 0
	}
	return v.Single == nil
}

// Keys returns the selected keys in order.
func (v FieldValue) Keys() []SelectionKey {
	if v.IsList {
		out := make([]SelectionKey, len(v.List))
		copy(out, v.List)
		return out
	}
	if v.Single != nil {
		return []SelectionKey{*v.Single}
	}
	return nil
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.IsList {
		list := v.List
		if list == nil {
			list = []SelectionKey{}
		}
		return json.Marshal(list)
	}
	if v.Single != nil {
		return json.Marshal(v.Single)
	}
	return []byte("null"), nil
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*v = FieldValue{}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var list []SelectionKey
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("decode field value list: %w", err)
		}
		*v = ListValue(list...)
	case '{':
		var key SelectionKey
		if err := json.Unmarshal(trimmed, &key); err != nil {
			return fmt.Errorf("decode field value: %w", err)
		}
		*v = SingleValue(key)
	default:
		return fmt.Errorf("decode field value: unexpected token %q", trimmed[0])
	}
	return nil
}

// IsSelected reports whether the entry is part of the persisted value.
// Multi-select requires a list; single-select compares against the single key.
func IsSelected(value FieldValue, entry Entry, multiple bool) bool {
	if multiple {
		if !value.IsList {
			return false
		}
		for _, key := range value.List {
			if key.Matches(entry) {
				return true
			}
		}
		return false
	}
	if value.Single == nil {
		return false
	}
	return value.Single.Matches(entry)
}

// Toggle removes the first key matching the entry, or appends a new one.
// A value that is not a list starts over as an empty list.
func Toggle(value FieldValue, entry Entry, contentType string) FieldValue {
	current := []SelectionKey{}
	if value.IsList {
		current = value.List
	}
	for i, key := range current {
		if key.Matches(entry) {
			next := make([]SelectionKey, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			return ListValue(next...)
		}
	}
	next := make([]SelectionKey, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, NewSelectionKey(entry, contentType))
	return ListValue(next...)
}

// Select replaces the value with the entry key. There is no deselect path: the
// second return is false when the entry was already the selected one.
func Select(value FieldValue, entry Entry, contentType string) (FieldValue, bool) {
	if !value.IsList && value.Single != nil && value.Single.Matches(entry) {
		return value, false
	}
	return SingleValue(NewSelectionKey(entry, contentType)), true
}

// Apply runs the mode's selection rule and reports whether the value changed.
func Apply(value FieldValue, entry Entry, contentType string, multiple bool) (FieldValue, bool) {
	if multiple {
		return Toggle(value, entry, contentType), true
	}
	return Select(value, entry, contentType)
}
