package infrastructure

import (
	"context"
	"sync"
	"time"

	"branchPicker/internal/modules/picker/application/port"
	"branchPicker/internal/modules/picker/domain"
)

// MemoryField holds a field value for hosts that keep state on their side and
// exchange it per request.
type MemoryField struct {
	mu    sync.RWMutex
	value domain.FieldValue
	sets  int
}

func NewMemoryField(initial domain.FieldValue) *MemoryField {
	return &MemoryField{value: initial}
}

func (f *MemoryField) Value(context.Context) (domain.FieldValue, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value, nil
}

func (f *MemoryField) SetValue(_ context.Context, value domain.FieldValue) error {
	f.mu.Lock()
	f.value = value
	f.sets++
	f.mu.Unlock()
	return nil
}

// Writes returns how many times the value was written.
func (f *MemoryField) Writes() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.sets
}

// BridgeField is the host field seen through a bridge connection: the value the
// page sent on init, and a field.set message for every write.
type BridgeField struct {
	MemoryField
	client *Client
	now    func() time.Time
}

func NewBridgeField(client *Client, initial domain.FieldValue) *BridgeField {
	return &BridgeField{MemoryField: MemoryField{value: initial}, client: client, now: time.Now}
}

func (f *BridgeField) SetValue(ctx context.Context, value domain.FieldValue) error {
	if err := f.MemoryField.SetValue(ctx, value); err != nil {
		return err
	}
	f.client.SendDomainMessage(domain.NewFieldSetMessage(value, f.now()))
	return nil
}

var (
	_ port.HostField = (*MemoryField)(nil)
	_ port.HostField = (*BridgeField)(nil)
)
