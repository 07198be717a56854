package domain

import (
	"fmt"
	"strings"
)

// EntrySet is the merged result of one render cycle, target branch first.
type EntrySet struct {
	ContentType string   `json:"contentType"`
	Entries     []Entry  `json:"entries"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Find returns the entry designated by the composite key.
func (s *EntrySet) Find(key SelectionKey) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, entry := range s.Entries {
		if key.Matches(entry) {
			return entry, true
		}
	}
	return Entry{}, false
}

// DuplicateUIDs returns uids present in more than one branch, in first-seen order.
func DuplicateUIDs(entries []Entry) []string {
	branches := make(map[string]map[string]struct{})
	order := make([]string, 0)
	for _, entry := range entries {
		set, ok := branches[entry.UID]
		if !ok {
			set = make(map[string]struct{})
			branches[entry.UID] = set
			order = append(order, entry.UID)
		}
		set[entry.EffectiveBranch()] = struct{}{}
	}
	dups := make([]string, 0)
	for _, uid := range order {
		if len(branches[uid]) > 1 {
			dups = append(dups, uid)
		}
	}
	return dups
}

// EntryRecord is one row of the view model. Text fields are raw text; the
// serializer is responsible for escaping them.
type EntryRecord struct {
	Key         string `json:"key"`
	UID         string `json:"uid"`
	Branch      string `json:"branch"`
	BranchLabel string `json:"branchLabel"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	Selected    bool   `json:"selected"`
}

// BranchGroup collects the visible records of one branch.
type BranchGroup struct {
	Branch  string        `json:"branch"`
	Label   string        `json:"label"`
	Records []EntryRecord `json:"records"`
}

// EntryView is the declarative render output consumed by templates and the bridge page.
type EntryView struct {
	ContentType string        `json:"contentType"`
	Multiple    bool          `json:"multiple"`
	Query       string        `json:"query,omitempty"`
	Groups      []BranchGroup `json:"groups"`
	Total       int           `json:"total"`
	Visible     int           `json:"visible"`
	Selected    int           `json:"selected"`
	Warnings    []string      `json:"warnings,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// Empty reports whether no record survived the filter.
func (v EntryView) Empty() bool {
	return v.Visible == 0
}

// BuildView groups entries by branch in first-seen order, flags selected records
// and applies the text filter.
func BuildView(set *EntrySet, value FieldValue, multiple bool, query string) EntryView {
	view := EntryView{
		Multiple: multiple,
		Query:    strings.TrimSpace(query),
		Groups:   []BranchGroup{},
	}
	if set == nil {
		return view
	}
	view.ContentType = set.ContentType
	view.Total = len(set.Entries)
	view.Warnings = append(view.Warnings, set.Warnings...)

	index := make(map[string]int)
	for _, entry := range set.Entries {
		selected := IsSelected(value, entry, multiple)
		if selected {
			view.Selected++
		}
		if !MatchesQuery(entry, view.Query) {
			continue
		}
		branch := entry.EffectiveBranch()
		pos, ok := index[branch]
		if !ok {
			label := entry.BranchLabel
			if label == "" {
				label = BranchLabel(branch)
			}
			view.Groups = append(view.Groups, BranchGroup{Branch: branch, Label: label})
			pos = len(view.Groups) - 1
			index[branch] = pos
		}
		view.Groups[pos].Records = append(view.Groups[pos].Records, newRecord(entry, selected))
		view.Visible++
	}
	return view
}

// ErrorView is rendered when the primary branch could not be loaded.
func ErrorView(contentType string, multiple bool, err error) EntryView {
	return EntryView{
		ContentType: contentType,
		Multiple:    multiple,
		Groups:      []BranchGroup{},
		Error:       fmt.Sprintf("Error loading entries: %v", err),
	}
}

// MatchesQuery is a case-insensitive substring match over title and description.
func MatchesQuery(entry Entry, query string) bool {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return true
	}
	haystack := strings.ToLower(entry.Title + " " + entry.Description)
	return strings.Contains(haystack, needle)
}

func newRecord(entry Entry, selected bool) EntryRecord {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = entry.UID
	}
	return EntryRecord{
		Key:         entry.Key(),
		UID:         entry.UID,
		Branch:      entry.EffectiveBranch(),
		BranchLabel: entry.BranchLabel,
		Title:       title,
		Description: entry.Description,
		UpdatedAt:   entry.UpdatedAt,
		Selected:    selected,
	}
}
