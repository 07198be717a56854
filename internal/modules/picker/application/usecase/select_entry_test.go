package usecase

import (
	"context"
	"errors"
	"testing"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/domain"
)

func mergedSet() *domain.EntrySet {
	return &domain.EntrySet{
		ContentType: "blog",
		Entries: append(
			domain.TagEntries(payloadEntries("a"), "main", domain.TargetBranchLabel),
			domain.TagEntries(payloadEntries("b", "a"), "eu", "Eu Branch")...,
		),
	}
}

func TestSelectEntry_MultipleWritesWholeList(t *testing.T) {
	t.Parallel()

	field := &fakeField{value: domain.ListValue()}
	uc := NewSelectEntryUseCase()
	cfg := scenarioConfig()

	for _, key := range []domain.SelectionKey{{UID: "a", Branch: "main"}, {UID: "b", Branch: "eu"}} {
		out, err := uc.Execute(context.Background(), SelectEntryInput{Config: cfg, Entries: mergedSet(), Field: field, Key: key})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.Changed {
			t.Fatal("expected a change")
		}
	}
	if len(field.writes) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(field.writes))
	}
	last := field.writes[1]
	if len(last.List) != 2 || last.List[0].UID != "a" || last.List[1].Branch != "eu" {
		t.Fatalf("expected full list on every write, got %#v", last.List)
	}
	if last.List[0].ContentTypeUID != "blog" {
		t.Fatalf("expected content type on key, got %#v", last.List[0])
	}
}

func TestSelectEntry_SingleReselectSkipsWrite(t *testing.T) {
	t.Parallel()

	field := &fakeField{value: domain.SingleValue(domain.SelectionKey{UID: "a", Branch: "main"})}
	cfg := scenarioConfig()
	cfg.Multiple = false

	out, err := NewSelectEntryUseCase().Execute(context.Background(), SelectEntryInput{
		Config: cfg, Entries: mergedSet(), Field: field, Key: domain.SelectionKey{UID: "a"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Changed || len(field.writes) != 0 {
		t.Fatalf("expected no write, got changed=%v writes=%d", out.Changed, len(field.writes))
	}
}

func TestSelectEntry_UnknownKey(t *testing.T) {
	t.Parallel()

	field := &fakeField{}
	_, err := NewSelectEntryUseCase().Execute(context.Background(), SelectEntryInput{
		Config: scenarioConfig(), Entries: mergedSet(), Field: field, Key: domain.SelectionKey{UID: "b", Branch: "main"},
	})
	if !errors.Is(err, port.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestSelectEntry_WriteFailure(t *testing.T) {
	t.Parallel()

	field := &fakeField{value: domain.ListValue(), err: errBoom}
	_, err := NewSelectEntryUseCase().Execute(context.Background(), SelectEntryInput{
		Config: scenarioConfig(), Entries: mergedSet(), Field: field, Key: domain.SelectionKey{UID: "a", Branch: "eu"},
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
