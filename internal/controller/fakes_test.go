package controller

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gridctl/internal/device"
)

// fakeDirectory is an in-memory Directory.
type fakeDirectory struct {
	devices map[string]device.Handle
	groups  map[string]device.Group
	order   []device.Handle
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		devices: make(map[string]device.Handle),
		groups:  make(map[string]device.Group),
	}
}

func (d *fakeDirectory) add(hs ...device.Handle) {
	for _, h := range hs {
		d.devices[h.Name()] = h
		d.order = append(d.order, h)
	}
}

func (d *fakeDirectory) group(name string, members ...device.Handle) {
	d.groups[name] = device.Group{Name: name, Members: members}
}

func (d *fakeDirectory) DeviceByName(_ context.Context, name string) (device.Handle, error) {
	if h, ok := d.devices[name]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("%q: %w", name, device.ErrDeviceNotFound)
}

func (d *fakeDirectory) GroupByName(_ context.Context, name string) (device.Group, error) {
	if g, ok := d.groups[name]; ok {
		return g, nil
	}
	return device.Group{Name: name}, fmt.Errorf("%q: %w", name, device.ErrGroupNotFound)
}

func (d *fakeDirectory) Devices(_ context.Context, pred func(device.Handle) bool) ([]device.Handle, error) {
	var out []device.Handle
	for _, h := range d.order {
		if pred == nil || pred(h) {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// fakeBlock is a plain block. Only fakeLight exposes its switch; writes
// counts every state change made through it.
type fakeBlock struct {
	id, name   string
	kind       device.Kind
	construct  string
	grid       string
	enabled    bool
	functional bool
	setErr     error
	writes     int
}

func newBlock(name string, kind device.Kind) *fakeBlock {
	return &fakeBlock{
		id: "id-" + name, name: name, kind: kind,
		construct: "asteroid", grid: "asteroid-main",
		enabled: true, functional: true,
	}
}

func (b *fakeBlock) ID() string          { return b.id }
func (b *fakeBlock) Name() string        { return b.name }
func (b *fakeBlock) Kind() device.Kind   { return b.kind }
func (b *fakeBlock) ConstructID() string { return b.construct }
func (b *fakeBlock) GridID() string      { return b.grid }
func (b *fakeBlock) IsWorking() bool     { return b.enabled && b.functional }

type fakeLight struct {
	*fakeBlock
}

func newLight(name string, on bool) *fakeLight {
	l := &fakeLight{fakeBlock: newBlock(name, device.KindLight)}
	l.enabled = on
	return l
}

func (l *fakeLight) Enabled() bool { return l.enabled }

func (l *fakeLight) SetEnabled(_ context.Context, on bool) error {
	if l.setErr != nil {
		return l.setErr
	}
	l.enabled = on
	l.writes++
	return nil
}

type fakeBattery struct {
	*fakeBlock
	max, current float64
}

func newBattery(name string, max, current float64) *fakeBattery {
	return &fakeBattery{fakeBlock: newBlock(name, device.KindBattery), max: max, current: current}
}

func (b *fakeBattery) MaxStoredPower() float64     { return b.max }
func (b *fakeBattery) CurrentStoredPower() float64 { return b.current }

type fakeTank struct {
	*fakeBlock
	capacity, ratio float64
}

func newTank(name string, capacity, ratio float64) *fakeTank {
	return &fakeTank{fakeBlock: newBlock(name, device.KindGasTank), capacity: capacity, ratio: ratio}
}

func (t *fakeTank) Gas() device.GasType  { return device.GasOxygen }
func (t *fakeTank) Capacity() float64    { return t.capacity }
func (t *fakeTank) FilledRatio() float64 { return t.ratio }

type fakePanel struct {
	*fakeBlock
	texts []string
	hints []device.DisplayHints
}

func newPanel(name string) *fakePanel {
	return &fakePanel{fakeBlock: newBlock(name, device.KindTextPanel)}
}

func (p *fakePanel) WriteText(_ context.Context, text string, hints device.DisplayHints) error {
	p.texts = append(p.texts, text)
	p.hints = append(p.hints, hints)
	return nil
}

// fakeStorage is a storage block whose inventories live in memory.
type fakeStorage struct {
	*fakeBlock
	slots []*fakeInventory
}

func newStorage(name string, kind device.Kind, slots int) *fakeStorage {
	s := &fakeStorage{fakeBlock: newBlock(name, kind)}
	for i := 0; i < slots; i++ {
		s.slots = append(s.slots, &fakeInventory{id: fmt.Sprintf("%s/%d", name, i), owner: name})
	}
	return s
}

func (s *fakeStorage) InventoryCount() int { return len(s.slots) }

func (s *fakeStorage) Inventory(_ context.Context, index int) (device.Inventory, error) {
	if index < 0 || index >= len(s.slots) {
		return nil, device.ErrInventoryNotFound
	}
	return s.slots[index], nil
}

func (s *fakeStorage) put(category device.ItemCategory, subtype string, amount float64) device.Item {
	inv := s.slots[0]
	inv.seq++
	item := device.Item{
		ID:          fmt.Sprintf("%s-item-%d", inv.id, inv.seq),
		InventoryID: inv.id,
		Category:    category,
		Subtype:     subtype,
		Amount:      amount,
	}
	inv.items = append(inv.items, item)
	return item
}

type fakeInventory struct {
	mu       sync.Mutex
	id       string
	owner    string
	items    []device.Item
	seq      int
	failFor  map[string]error // by subtype
	attempts []string
}

func (i *fakeInventory) ID() string        { return i.id }
func (i *fakeInventory) OwnerName() string { return i.owner }

func (i *fakeInventory) Items(context.Context) ([]device.Item, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]device.Item(nil), i.items...), nil
}

func (i *fakeInventory) TransferItemTo(_ context.Context, dst device.Inventory, item device.Item) error {
	i.mu.Lock()
	i.attempts = append(i.attempts, item.Subtype)
	if err := i.failFor[item.Subtype]; err != nil {
		i.mu.Unlock()
		return err
	}
	idx := -1
	for n, it := range i.items {
		if it.ID == item.ID {
			idx = n
		}
	}
	if idx < 0 {
		i.mu.Unlock()
		return device.ErrItemNotFound
	}
	i.items = append(i.items[:idx], i.items[idx+1:]...)
	i.mu.Unlock()

	d := dst.(*fakeInventory)
	d.mu.Lock()
	item.InventoryID = d.id
	d.items = append(d.items, item)
	d.mu.Unlock()
	return nil
}

// recordingEcho collects echoed lines.
type recordingEcho struct {
	lines []string
}

func (e *recordingEcho) Echo(line string) {
	e.lines = append(e.lines, line)
}

func (e *recordingEcho) contains(line string) bool {
	for _, l := range e.lines {
		if l == line {
			return true
		}
	}
	return false
}

// recordingSink collects measurements.
type recordingSink struct {
	resources map[string]float64
	transfers []bool
	commands  []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{resources: make(map[string]float64)}
}

func (s *recordingSink) RecordResource(class string, _, _, percent float64) {
	s.resources[class] = percent
}

func (s *recordingSink) RecordTransfer(_, _ string, success bool) {
	s.transfers = append(s.transfers, success)
}

func (s *recordingSink) RecordCommand(command string, _ bool) {
	s.commands = append(s.commands, command)
}
