package usecase

import (
	"context"
	"errors"
	"sync"

	"branchPicker/internal/modules/picker/domain"
)

type fakeFetcher struct {
	mu       sync.Mutex
	calls    []domain.BranchConfig
	entries  map[string][]domain.Entry
	failures map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{entries: map[string][]domain.Entry{}, failures: map[string]error{}}
}

func (f *fakeFetcher) FetchEntries(_ context.Context, branch domain.BranchConfig) ([]domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, branch)
	if err := f.failures[branch.Branch]; err != nil {
		return nil, err
	}
	return f.entries[branch.Branch], nil
}

func (f *fakeFetcher) branches() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for _, call := range f.calls {
		out[call.Branch]++
	}
	return out
}

type fakeField struct {
	value  domain.FieldValue
	writes []domain.FieldValue
	err    error
}

func (f *fakeField) Value(context.Context) (domain.FieldValue, error) {
	return f.value, nil
}

func (f *fakeField) SetValue(_ context.Context, value domain.FieldValue) error {
	if f.err != nil {
		return f.err
	}
	f.value = value
	f.writes = append(f.writes, value)
	return nil
}

var errBoom = errors.New("boom")

func boolPtr(v bool) *bool { return &v }

func payloadEntries(uids ...string) []domain.Entry {
	out := make([]domain.Entry, 0, len(uids))
	for _, uid := range uids {
		out = append(out, domain.EntryFromPayload(map[string]any{"uid": uid, "title": "Entry " + uid}))
	}
	return out
}
