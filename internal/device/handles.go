package device

import (
	"context"
	"fmt"
)

// Handle is a borrowed view of one block. Readings come from the registry
// cache, so a handle always reflects the state loaded by the last
// RefreshCache or write through the registry.
type Handle interface {
	ID() string
	Name() string
	Kind() Kind
	ConstructID() string
	GridID() string
	IsWorking() bool
}

// Switchable is a block with an on/off switch. Only lights expose it.
type Switchable interface {
	Handle
	Enabled() bool
	SetEnabled(ctx context.Context, enabled bool) error
}

// PowerStore is a block that stores electrical energy.
type PowerStore interface {
	Handle
	MaxStoredPower() float64
	CurrentStoredPower() float64
}

// GasTank is a block that stores a gas by fill ratio.
type GasTank interface {
	Handle
	Gas() GasType
	Capacity() float64
	FilledRatio() float64
}

// TextSurface is a block that displays text.
type TextSurface interface {
	Handle
	WriteText(ctx context.Context, text string, hints DisplayHints) error
}

// StorageOwner is a block with one or more inventory slots.
type StorageOwner interface {
	Handle
	InventoryCount() int
	Inventory(ctx context.Context, index int) (Inventory, error)
}

// Renamable is a block whose display name can change.
type Renamable interface {
	Handle
	Rename(ctx context.Context, name string) error
}

// Inventory is one storage slot of a block.
type Inventory interface {
	ID() string
	OwnerName() string
	Items(ctx context.Context) ([]Item, error)
	// TransferItemTo moves the whole stack into dst, merging with a stack of
	// the same category and subtype when one exists.
	TransferItemTo(ctx context.Context, dst Inventory, item Item) error
}

// Group is a resolved, ordered set of handles sharing a role.
type Group struct {
	Name    string
	Members []Handle
}

// Len returns the number of members.
func (g Group) Len() int {
	return len(g.Members)
}

// OfType keeps the handles that implement T, preserving order.
func OfType[T any](handles []Handle) []T {
	out := make([]T, 0, len(handles))
	for _, h := range handles {
		if v, ok := h.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// block is the base handle every kind shares.
type block struct {
	reg *Registry
	id  string
}

// snapshot returns the cached device or an empty record when it has been
// removed since the handle was resolved.
func (b *block) snapshot() *Device {
	if d := b.reg.cached(b.id); d != nil {
		return d
	}
	return &Device{ID: b.id}
}

func (b *block) ID() string          { return b.id }
func (b *block) Name() string        { return b.snapshot().Name }
func (b *block) Kind() Kind          { return b.snapshot().Kind }
func (b *block) ConstructID() string { return b.snapshot().ConstructID }
func (b *block) GridID() string      { return b.snapshot().GridID }
func (b *block) IsWorking() bool     { return b.snapshot().IsWorking() }

func (b *block) Rename(ctx context.Context, name string) error {
	return b.reg.Rename(ctx, b.id, name)
}

func (b *block) String() string {
	return fmt.Sprintf("%s(%s)", b.Name(), b.id)
}

type lamp struct{ *block }

func (l lamp) Enabled() bool { return l.snapshot().Enabled }

func (l lamp) SetEnabled(ctx context.Context, enabled bool) error {
	return l.reg.SetEnabled(ctx, l.id, enabled)
}

type battery struct{ *block }

func (b battery) MaxStoredPower() float64 {
	if p := b.snapshot().State.Power; p != nil {
		return p.MaxStored
	}
	return 0
}

func (b battery) CurrentStoredPower() float64 {
	if p := b.snapshot().State.Power; p != nil {
		return p.CurrentStored
	}
	return 0
}

type gasTank struct{ *block }

func (g gasTank) Gas() GasType {
	if s := g.snapshot().State.Gas; s != nil {
		return s.Gas
	}
	return ""
}

func (g gasTank) Capacity() float64 {
	if s := g.snapshot().State.Gas; s != nil {
		return s.Capacity
	}
	return 0
}

func (g gasTank) FilledRatio() float64 {
	if s := g.snapshot().State.Gas; s != nil {
		return s.FilledRatio
	}
	return 0
}

type textPanel struct{ *block }

func (p textPanel) WriteText(ctx context.Context, text string, hints DisplayHints) error {
	return p.reg.WriteDisplay(ctx, p.id, DisplayState{
		ContentType: hints.ContentType,
		FontSize:    hints.FontSize,
		Text:        text,
	})
}

type storageBlock struct{ *block }

func (s storageBlock) InventoryCount() int {
	return len(s.reg.cachedSlots(s.id))
}

func (s storageBlock) Inventory(_ context.Context, index int) (Inventory, error) {
	for _, slot := range s.reg.cachedSlots(s.id) {
		if slot.SlotIndex == index {
			return &inventory{reg: s.reg, slot: slot, owner: s.Name()}, nil
		}
	}
	return nil, fmt.Errorf("%s slot %d: %w", s.Name(), index, ErrInventoryNotFound)
}

type inventory struct {
	reg   *Registry
	slot  Slot
	owner string
}

func (i *inventory) ID() string        { return i.slot.ID }
func (i *inventory) OwnerName() string { return i.owner }

func (i *inventory) Items(ctx context.Context) ([]Item, error) {
	return i.reg.inventories.ListItems(ctx, i.slot.ID)
}

func (i *inventory) TransferItemTo(ctx context.Context, dst Inventory, item Item) error {
	if dst == nil {
		return ErrInventoryNotFound
	}
	return i.reg.TransferItem(ctx, item.ID, i.slot.ID, dst.ID())
}

// newHandle wraps a device in the handle type matching its kind.
func (r *Registry) newHandle(id string, kind Kind) Handle {
	base := &block{reg: r, id: id}
	switch {
	case kind == KindLight:
		return lamp{base}
	case kind == KindBattery:
		return battery{base}
	case kind == KindGasTank:
		return gasTank{base}
	case kind == KindTextPanel:
		return textPanel{base}
	case kind.HasStorage():
		return storageBlock{base}
	default:
		return base
	}
}
