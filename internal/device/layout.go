package device

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layout describes a construct's blocks, their inventories and role groups.
// It is the seed format for `gridctl seed --layout`.
type Layout struct {
	Construct string         `yaml:"construct"`
	Devices   []LayoutDevice `yaml:"devices"`
	Groups    []LayoutGroup  `yaml:"groups"`
}

// LayoutDevice is one block in a layout file.
type LayoutDevice struct {
	Name        string            `yaml:"name"`
	Kind        Kind              `yaml:"kind"`
	Grid        string            `yaml:"grid"`
	Enabled     *bool             `yaml:"enabled"`
	Functional  *bool             `yaml:"functional"`
	Power       *PowerState       `yaml:"power"`
	Gas         *LayoutGas        `yaml:"gas"`
	Inventories []LayoutInventory `yaml:"inventories"`
}

// LayoutGas is a tank reading in a layout file.
type LayoutGas struct {
	Gas         GasType `yaml:"gas"`
	Capacity    float64 `yaml:"capacity"`
	FilledRatio float64 `yaml:"filled_ratio"`
}

// LayoutInventory is one slot in a layout file; slots are indexed in order.
type LayoutInventory struct {
	MaxVolume float64      `yaml:"max_volume"`
	Items     []LayoutItem `yaml:"items"`
}

// LayoutItem is one stack in a layout file.
type LayoutItem struct {
	Category   ItemCategory `yaml:"category"`
	Subtype    string       `yaml:"subtype"`
	Amount     float64      `yaml:"amount"`
	UnitVolume float64      `yaml:"unit_volume"`
}

// LayoutGroup names a role group by its member names.
type LayoutGroup struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// ImportSummary counts what ImportLayout wrote.
type ImportSummary struct {
	Devices     int
	Skipped     int
	Inventories int
	Items       int
	Groups      int
}

// LoadLayout reads a layout YAML file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}

	var layout Layout
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	if layout.Construct == "" {
		return nil, fmt.Errorf("%w: layout construct is required", ErrInvalidDevice)
	}
	return &layout, nil
}

// ImportLayout writes a layout into the registry. Devices already present on
// the construct under the same name are kept as they are; groups that
// already exist are left untouched.
func (r *Registry) ImportLayout(ctx context.Context, layout *Layout) (ImportSummary, error) {
	var summary ImportSummary

	existing := make(map[string]string)
	for _, d := range r.ListDevices(ctx) {
		if d.ConstructID == layout.Construct {
			existing[d.Name] = d.ID
		}
	}

	for _, ld := range layout.Devices {
		if _, ok := existing[ld.Name]; ok {
			summary.Skipped++
			continue
		}

		d := &Device{
			Name:        ld.Name,
			ConstructID: layout.Construct,
			GridID:      ld.Grid,
			Kind:        ld.Kind,
			Enabled:     boolOr(ld.Enabled, true),
			Functional:  boolOr(ld.Functional, true),
		}
		if d.GridID == "" {
			d.GridID = layout.Construct
		}
		if ld.Power != nil {
			p := *ld.Power
			d.State.Power = &p
		}
		if ld.Gas != nil {
			d.State.Gas = &GasState{Gas: ld.Gas.Gas, Capacity: ld.Gas.Capacity, FilledRatio: ld.Gas.FilledRatio}
		}
		if d.Kind == KindTextPanel {
			d.State.Display = &DisplayState{ContentType: ContentNone}
		}

		if err := r.CreateDevice(ctx, d); err != nil {
			return summary, fmt.Errorf("device %q: %w", ld.Name, err)
		}
		existing[d.Name] = d.ID
		summary.Devices++

		for idx, inv := range ld.Inventories {
			slot := &Slot{DeviceID: d.ID, SlotIndex: idx, MaxVolume: inv.MaxVolume}
			if err := r.AddInventory(ctx, slot); err != nil {
				return summary, fmt.Errorf("device %q slot %d: %w", ld.Name, idx, err)
			}
			summary.Inventories++

			for _, li := range inv.Items {
				item := &Item{
					InventoryID: slot.ID,
					Category:    li.Category,
					Subtype:     li.Subtype,
					Amount:      li.Amount,
					UnitVolume:  li.UnitVolume,
				}
				if err := r.AddItem(ctx, item); err != nil {
					return summary, fmt.Errorf("device %q item %q: %w", ld.Name, li.Subtype, err)
				}
				summary.Items++
			}
		}
	}

	for _, lg := range layout.Groups {
		ids := make([]string, 0, len(lg.Members))
		for _, name := range lg.Members {
			id, ok := existing[name]
			if !ok {
				return summary, fmt.Errorf("group %q member %q: %w", lg.Name, name, ErrDeviceNotFound)
			}
			ids = append(ids, id)
		}

		if _, err := r.CreateGroup(ctx, lg.Name, ids); err != nil {
			if errors.Is(err, ErrGroupExists) {
				continue
			}
			return summary, fmt.Errorf("group %q: %w", lg.Name, err)
		}
		summary.Groups++
	}

	return summary, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
