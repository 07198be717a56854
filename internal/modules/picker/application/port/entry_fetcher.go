package port

import (
	"context"
	"errors"
	"fmt"

	"branchPicker/internal/modules/picker/domain"
)

var (
	// ErrMissingContentType is returned before any request when no content type is configured.
	ErrMissingContentType = errors.New("content type not configured")
	// ErrDeliveryForbidden indicates the delivery API rejected the credentials.
	ErrDeliveryForbidden = errors.New("delivery fetch forbidden")
	// ErrDeliveryNotFound indicates the content type or branch does not exist.
	ErrDeliveryNotFound = errors.New("delivery fetch not found")
	// ErrEntryNotFound is returned when a composite key matches no rendered entry.
	ErrEntryNotFound = errors.New("entry not found in rendered set")
)

// StatusError carries the status code of a non-2xx delivery response.
type StatusError struct {
	Branch     string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch entries for branch %q: unexpected status %d", e.Branch, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Err }

// EntryFetcher reads the entries of one content type from one branch.
type EntryFetcher interface {
	FetchEntries(ctx context.Context, branch domain.BranchConfig) ([]domain.Entry, error)
}
