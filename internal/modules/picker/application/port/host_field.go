package port

import (
	"context"
	"errors"

	"branchPicker/internal/modules/picker/domain"
)

// ErrBridgeNotReady is returned when the host bridge did not initialise in time.
var ErrBridgeNotReady = errors.New("host bridge not ready")

// HostField is the host-managed field the widget reads once and writes on every change.
type HostField interface {
	Value(ctx context.Context) (domain.FieldValue, error)
	SetValue(ctx context.Context, value domain.FieldValue) error
}
