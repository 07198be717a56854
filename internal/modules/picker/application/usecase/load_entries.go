package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/domain"
)

// LoadEntriesUseCase runs the fetch half of a render cycle: the target branch is
// required, the current branch is best effort.
type LoadEntriesUseCase struct {
	Fetcher port.EntryFetcher
}

func NewLoadEntriesUseCase(fetcher port.EntryFetcher) *LoadEntriesUseCase {
	return &LoadEntriesUseCase{Fetcher: fetcher}
}

func (uc *LoadEntriesUseCase) Execute(ctx context.Context, cfg domain.WidgetConfig) (*domain.EntrySet, error) {
	if strings.TrimSpace(cfg.ContentType) == "" {
		return nil, port.ErrMissingContentType
	}

	target := cfg.Target()
	var (
		primary   []domain.Entry
		secondary []domain.Entry
		warning   string
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		entries, err := uc.Fetcher.FetchEntries(groupCtx, target)
		if err != nil {
			return fmt.Errorf("load target branch %q: %w", target.Branch, err)
		}
		primary = domain.TagEntries(entries, target.Branch, target.Label)
		return nil
	})

	if cfg.NeedsSecondary() {
		current := cfg.Secondary()
		group.Go(func() error {
			entries, err := uc.Fetcher.FetchEntries(groupCtx, current)
			if err != nil {
				slog.Warn("load-entries secondary branch failed", slog.String("branch", current.Branch), slog.String("contentType", current.ContentType), slog.Any("error", err))
				warning = fmt.Sprintf("entries of branch %q could not be loaded", current.Branch)
				return nil
			}
			secondary = domain.TagEntries(entries, current.Branch, current.Label)
			return nil
		})
	} else {
		slog.Debug("load-entries secondary branch skipped", slog.String("target", cfg.TargetBranch), slog.String("current", cfg.CurrentBranch), slog.Bool("showBothBranches", cfg.ShowBothBranches))
	}

	if err := group.Wait(); err != nil {
		slog.Error("load-entries target branch failed", slog.String("branch", target.Branch), slog.String("contentType", target.ContentType), slog.Any("error", err))
		return nil, err
	}

	merged := make([]domain.Entry, 0, len(primary)+len(secondary))
	merged = append(merged, primary...)
	merged = append(merged, secondary...)

	set := &domain.EntrySet{ContentType: cfg.ContentType, Entries: merged}
	if warning != "" {
		set.Warnings = append(set.Warnings, warning)
	}
	for _, uid := range domain.DuplicateUIDs(merged) {
		slog.Warn("load-entries duplicate uid across branches", slog.String("uid", uid), slog.String("contentType", cfg.ContentType))
		set.Warnings = append(set.Warnings, fmt.Sprintf("entry %q exists in more than one branch", uid))
	}

	slog.Info("load-entries done", slog.String("contentType", cfg.ContentType), slog.Int("target", len(primary)), slog.Int("current", len(secondary)))
	return set, nil
}
