package device

import "time"

// Device is one addressable block in the registry.
// This matches the devices table in migrations/20260301_120000_grid_schema.up.sql.
type Device struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ConstructID string `json:"construct_id"`
	GridID      string `json:"grid_id"`
	Kind        Kind   `json:"kind"`

	// Enabled is the operator switch; Functional is false when the block is
	// damaged or unpowered. A device is working only when both are true.
	Enabled    bool `json:"enabled"`
	Functional bool `json:"functional"`

	State State `json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsWorking reports the operational state of the device.
func (d *Device) IsWorking() bool {
	return d.Enabled && d.Functional
}

// DeepCopy returns an independent copy. The cache hands these out so callers
// never alias cached readings.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	cpy.State = d.State.clone()
	return &cpy
}

// State holds kind-specific readings. Only the section matching the device
// kind is populated.
type State struct {
	Power   *PowerState   `json:"power,omitempty"`
	Gas     *GasState     `json:"gas,omitempty"`
	Display *DisplayState `json:"display,omitempty"`
}

func (s State) clone() State {
	var out State
	if s.Power != nil {
		p := *s.Power
		out.Power = &p
	}
	if s.Gas != nil {
		g := *s.Gas
		out.Gas = &g
	}
	if s.Display != nil {
		d := *s.Display
		out.Display = &d
	}
	return out
}

// PowerState is a battery reading in MWh.
type PowerState struct {
	MaxStored     float64 `json:"max_stored" yaml:"max_stored"`
	CurrentStored float64 `json:"current_stored" yaml:"current_stored"`
}

// GasState is a tank reading. Capacity is in litres, FilledRatio in [0,1].
type GasState struct {
	Gas         GasType `json:"gas"`
	Capacity    float64 `json:"capacity"`
	FilledRatio float64 `json:"filled_ratio"`
}

// DisplayState is what a text panel is currently showing.
type DisplayState struct {
	ContentType ContentType `json:"content_type"`
	FontSize    float64     `json:"font_size"`
	Text        string      `json:"text"`
}

// Kind classifies a block.
type Kind string

// Kind constants.
const (
	KindBattery           Kind = "battery"
	KindGasTank           Kind = "gas_tank"
	KindLight             Kind = "light"
	KindTextPanel         Kind = "text_panel"
	KindCargoContainer    Kind = "cargo_container"
	KindReactor           Kind = "reactor"
	KindRefinery          Kind = "refinery"
	KindAssembler         Kind = "assembler"
	KindConnector         Kind = "connector"
	KindProgrammableBlock Kind = "programmable_block"
)

// AllKinds returns all valid kind values.
func AllKinds() []Kind {
	return []Kind{
		KindBattery, KindGasTank, KindLight, KindTextPanel, KindCargoContainer,
		KindReactor, KindRefinery, KindAssembler, KindConnector, KindProgrammableBlock,
	}
}

// HasStorage reports whether blocks of this kind can own inventories.
func (k Kind) HasStorage() bool {
	switch k {
	case KindCargoContainer, KindReactor, KindRefinery, KindAssembler, KindConnector:
		return true
	default:
		return false
	}
}

// GasType is the gas a tank holds.
type GasType string

// Gas types.
const (
	GasOxygen   GasType = "oxygen"
	GasHydrogen GasType = "hydrogen"
)

// ContentType is the display mode hint of a text panel.
type ContentType string

// Content types.
const (
	ContentNone         ContentType = "none"
	ContentTextAndImage ContentType = "text_and_image"
)

// DisplayHints are the presentation settings applied with every panel write.
type DisplayHints struct {
	ContentType ContentType
	FontSize    float64
}

// ItemCategory tags an inventory entry. Ore is raw; every other category is refined.
type ItemCategory string

// Item categories.
const (
	CategoryOre       ItemCategory = "ore"
	CategoryIngot     ItemCategory = "ingot"
	CategoryComponent ItemCategory = "component"
	CategoryTool      ItemCategory = "tool"
)

// IsRaw reports whether the category is unrefined ore.
func (c ItemCategory) IsRaw() bool {
	return c == CategoryOre
}

// Item is one stack in an inventory slot.
type Item struct {
	ID          string       `json:"id"`
	InventoryID string       `json:"inventory_id"`
	Category    ItemCategory `json:"category"`
	Subtype     string       `json:"subtype"`
	Amount      float64      `json:"amount"`
	UnitVolume  float64      `json:"unit_volume"`
}

// Volume returns the space the stack occupies.
func (i Item) Volume() float64 {
	return i.Amount * i.UnitVolume
}

// Slot is an inventory row. MaxVolume of 0 means unbounded.
type Slot struct {
	ID        string  `json:"id"`
	DeviceID  string  `json:"device_id"`
	SlotIndex int     `json:"slot_index"`
	MaxVolume float64 `json:"max_volume"`
}

// DeviceGroup is a persisted group definition. Members are stored separately.
type DeviceGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Reading is a partial state update from a bridge. Nil fields are left untouched.
type Reading struct {
	Enabled    *bool       `json:"enabled,omitempty"`
	Functional *bool       `json:"functional,omitempty"`
	Power      *PowerState `json:"power,omitempty"`
	Gas        *GasState   `json:"gas,omitempty"`
}
