package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/domain"
)

type SelectEntryInput struct {
	Config  domain.WidgetConfig
	Entries *domain.EntrySet
	Field   port.HostField
	Key     domain.SelectionKey
}

type SelectEntryOutput struct {
	Entry   domain.Entry
	Value   domain.FieldValue
	Changed bool
}

// SelectEntryUseCase applies a click on an entry to the host field value.
type SelectEntryUseCase struct{}

func NewSelectEntryUseCase() *SelectEntryUseCase {
	return &SelectEntryUseCase{}
}

func (uc *SelectEntryUseCase) Execute(ctx context.Context, input SelectEntryInput) (*SelectEntryOutput, error) {
	entry, ok := input.Entries.Find(input.Key)
	if !ok {
		slog.Warn("select-entry unknown key", slog.String("uid", input.Key.UID), slog.String("branch", input.Key.EffectiveBranch()))
		return nil, port.ErrEntryNotFound
	}

	current, err := input.Field.Value(ctx)
	if err != nil {
		return nil, fmt.Errorf("read field value: %w", err)
	}

	next, changed := domain.Apply(current, entry, input.Config.ContentType, input.Config.Multiple)
	if !changed {
		slog.Debug("select-entry already selected", slog.String("uid", entry.UID), slog.String("branch", entry.EffectiveBranch()))
		return &SelectEntryOutput{Entry: entry, Value: current, Changed: false}, nil
	}

	if err := input.Field.SetValue(ctx, next); err != nil {
		return nil, fmt.Errorf("write field value: %w", err)
	}
	slog.Info("select-entry field written", slog.String("uid", entry.UID), slog.String("branch", entry.EffectiveBranch()), slog.Bool("multiple", input.Config.Multiple), slog.Int("selected", len(next.Keys())))
	return &SelectEntryOutput{Entry: entry, Value: next, Changed: true}, nil
}
