package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ChangeFunc is called after a write through the registry changes a device.
// It receives a copy and must not block.
type ChangeFunc func(d Device)

// Registry is the device directory. It wraps the repositories with an
// in-memory cache of devices and inventory slots and hands out capability
// handles that read from that cache.
//
// Cached entries are never mutated in place; every write replaces the entry,
// so handles can read a snapshot without holding the lock. Writes that read
// a device before persisting it hold writeMu, so concurrent writers (the
// controller, MQTT state ingress, the API) never persist a stale copy.
//
// All public methods are thread-safe.
type Registry struct {
	repo        Repository
	groups      GroupRepository
	inventories InventoryRepository

	writeMu sync.Mutex

	cacheMu sync.RWMutex
	cache   map[string]*Device
	slots   map[string][]Slot // by device ID, ordered by slot index

	listenersMu sync.RWMutex
	listeners   []ChangeFunc

	logger Logger
}

// NewRegistry creates a device registry over the given repositories.
func NewRegistry(repo Repository, groups GroupRepository, inventories InventoryRepository) *Registry {
	return &Registry{
		repo:        repo,
		groups:      groups,
		inventories: inventories,
		cache:       make(map[string]*Device),
		slots:       make(map[string][]Slot),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// OnChange registers fn to be called after every device write.
func (r *Registry) OnChange(fn ChangeFunc) {
	r.listenersMu.Lock()
	r.listeners = append(r.listeners, fn)
	r.listenersMu.Unlock()
}

// RefreshCache reloads all devices and inventory slots from the repositories.
// The host calls this before every invocation so handles observe external
// changes made since the last tick.
func (r *Registry) RefreshCache(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	slots, err := r.inventories.ListSlots(ctx)
	if err != nil {
		return fmt.Errorf("loading inventories: %w", err)
	}

	cache := make(map[string]*Device, len(devices))
	for i := range devices {
		cache[devices[i].ID] = devices[i].DeepCopy()
	}
	bySlot := make(map[string][]Slot)
	for _, s := range slots {
		bySlot[s.DeviceID] = append(bySlot[s.DeviceID], s)
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.slots = bySlot
	r.cacheMu.Unlock()

	r.logger.Debug("device cache refreshed", "devices", len(devices), "inventories", len(slots))
	return nil
}

// cached returns the cached entry for id, or nil. The entry must be treated
// as read-only.
func (r *Registry) cached(id string) *Device {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return r.cache[id]
}

func (r *Registry) cachedSlots(deviceID string) []Slot {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return r.slots[deviceID]
}

// GetDevice retrieves a device by ID.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	if d := r.cached(id); d != nil {
		return d.DeepCopy(), nil
	}

	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(d)
	return d, nil
}

// ListDevices returns every cached device ordered by name.
func (r *Registry) ListDevices(_ context.Context) []Device {
	r.cacheMu.RLock()
	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		devices = append(devices, *d.DeepCopy())
	}
	r.cacheMu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
	return devices
}

// CreateDevice validates and persists a new device, generating its ID when empty.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}

	r.store(d)
	r.logger.Info("device created", "id", d.ID, "name", d.Name, "kind", d.Kind)
	return nil
}

// DeleteDevice removes a device, its memberships and its inventories.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	delete(r.slots, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// SetEnabled flips the operator switch of a device.
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	return r.update(ctx, id, func(d *Device) error {
		d.Enabled = enabled
		return nil
	})
}

// Rename changes the display name of a device.
func (r *Registry) Rename(ctx context.Context, id, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return r.update(ctx, id, func(d *Device) error {
		d.Name = name
		return nil
	})
}

// ApplyReading merges a partial reading from a bridge into a device.
func (r *Registry) ApplyReading(ctx context.Context, id string, reading Reading) error {
	return r.update(ctx, id, func(d *Device) error {
		if reading.Enabled != nil {
			d.Enabled = *reading.Enabled
		}
		if reading.Functional != nil {
			d.Functional = *reading.Functional
		}
		if reading.Power != nil {
			p := *reading.Power
			d.State.Power = &p
		}
		if reading.Gas != nil {
			g := *reading.Gas
			d.State.Gas = &g
		}
		return ValidateState(d.Kind, d.State)
	})
}

// WriteDisplay replaces the content of a text panel in a single write.
func (r *Registry) WriteDisplay(ctx context.Context, id string, display DisplayState) error {
	d, err := r.write(ctx, id, func(d *Device) error {
		if d.Kind != KindTextPanel {
			return fmt.Errorf("%s is a %s: %w", d.Name, d.Kind, ErrNotSupported)
		}
		d.State.Display = &display
		if err := ValidateState(d.Kind, d.State); err != nil {
			return err
		}
		return r.repo.UpdateState(ctx, d.ID, d.State)
	})
	if err != nil {
		return err
	}

	r.notify(d)
	r.logger.Debug("display written", "id", id, "bytes", len(display.Text))
	return nil
}

// update loads a copy, applies fn, persists the whole row and swaps the
// cache entry. Listeners run after the write lock is released.
func (r *Registry) update(ctx context.Context, id string, fn func(*Device) error) error {
	d, err := r.write(ctx, id, func(d *Device) error {
		if err := fn(d); err != nil {
			return err
		}
		return r.repo.Update(ctx, d)
	})
	if err != nil {
		return err
	}

	r.notify(d)
	return nil
}

// write runs one read-modify-write cycle under writeMu. persist receives a
// private copy and must store it; the cache is only swapped on success.
func (r *Registry) write(ctx context.Context, id string, persist func(*Device) error) (*Device, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	d, err := r.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := persist(d); err != nil {
		return nil, err
	}
	r.store(d)
	return d, nil
}

func (r *Registry) store(d *Device) {
	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()
}

func (r *Registry) notify(d *Device) {
	r.listenersMu.RLock()
	listeners := r.listeners
	r.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(*d.DeepCopy())
	}
}

// CreateGroup persists a role group with members in the given order.
func (r *Registry) CreateGroup(ctx context.Context, name string, memberIDs []string) (*DeviceGroup, error) {
	group := &DeviceGroup{Name: name}
	if err := r.groups.Create(ctx, group); err != nil {
		return nil, err
	}
	if err := r.groups.SetMembers(ctx, group.ID, memberIDs); err != nil {
		return nil, err
	}
	r.logger.Info("group created", "name", name, "members", len(memberIDs))
	return group, nil
}

// AddInventory creates an inventory slot on a storage-capable device.
func (r *Registry) AddInventory(ctx context.Context, slot *Slot) error {
	d, err := r.GetDevice(ctx, slot.DeviceID)
	if err != nil {
		return err
	}
	if !d.Kind.HasStorage() {
		return fmt.Errorf("%s is a %s: %w", d.Name, d.Kind, ErrNotSupported)
	}
	if err := r.inventories.CreateSlot(ctx, slot); err != nil {
		return err
	}

	r.cacheMu.Lock()
	slots := append(append([]Slot(nil), r.slots[slot.DeviceID]...), *slot)
	sort.Slice(slots, func(i, j int) bool { return slots[i].SlotIndex < slots[j].SlotIndex })
	r.slots[slot.DeviceID] = slots
	r.cacheMu.Unlock()
	return nil
}

// AddItem stores a stack in an inventory slot.
func (r *Registry) AddItem(ctx context.Context, item *Item) error {
	return r.inventories.AddItem(ctx, item)
}

// TransferItem moves one stack between inventory slots as its own transaction.
func (r *Registry) TransferItem(ctx context.Context, itemID, srcInventoryID, dstInventoryID string) error {
	if err := r.inventories.TransferItem(ctx, itemID, srcInventoryID, dstInventoryID); err != nil {
		return err
	}
	r.logger.Debug("item transferred", "item", itemID, "from", srcInventoryID, "to", dstInventoryID)
	return nil
}

// DeviceByName resolves the first device, by ID order, carrying an exact name.
// Returns ErrDeviceNotFound when none does.
func (r *Registry) DeviceByName(_ context.Context, name string) (Handle, error) {
	r.cacheMu.RLock()
	var match *Device
	for _, d := range r.cache {
		if d.Name == name && (match == nil || d.ID < match.ID) {
			match = d
		}
	}
	r.cacheMu.RUnlock()

	if match == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrDeviceNotFound)
	}
	return r.newHandle(match.ID, match.Kind), nil
}

// GroupByName resolves a group into handles in member order. Members that are
// no longer in the registry are dropped. Returns ErrGroupNotFound when the
// group does not exist; an existing group may resolve with zero members.
func (r *Registry) GroupByName(ctx context.Context, name string) (Group, error) {
	g, err := r.groups.GetByName(ctx, name)
	if err != nil {
		return Group{Name: name}, fmt.Errorf("%q: %w", name, err)
	}
	ids, err := r.groups.GetMemberDeviceIDs(ctx, g.ID)
	if err != nil {
		return Group{Name: name}, err
	}

	group := Group{Name: g.Name, Members: make([]Handle, 0, len(ids))}
	r.cacheMu.RLock()
	for _, id := range ids {
		if d, ok := r.cache[id]; ok {
			group.Members = append(group.Members, r.newHandle(d.ID, d.Kind))
		}
	}
	r.cacheMu.RUnlock()
	return group, nil
}

// Devices returns handles for every device matching pred, ordered by name.
func (r *Registry) Devices(ctx context.Context, pred func(Handle) bool) ([]Handle, error) {
	var handles []Handle
	for _, d := range r.ListDevices(ctx) {
		h := r.newHandle(d.ID, d.Kind)
		if pred == nil || pred(h) {
			handles = append(handles, h)
		}
	}
	return handles, nil
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices int          `json:"total_devices"`
	Working      int          `json:"working"`
	Inventories  int          `json:"inventories"`
	ByKind       map[Kind]int `json:"by_kind"`
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{
		TotalDevices: len(r.cache),
		ByKind:       make(map[Kind]int),
	}
	for _, d := range r.cache {
		stats.ByKind[d.Kind]++
		if d.IsWorking() {
			stats.Working++
		}
	}
	for _, s := range r.slots {
		stats.Inventories += len(s)
	}
	return stats
}
