package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gridctl/internal/device"
)

var testPolicy = NewPolicy([]string{
	"Iron", "Nickel", "Cobalt", "Silicon", "Gold",
	"Platinum", "Uranium", "Silver", "Magnesium", "Stone",
})

type consolidateFixture struct {
	dir      *fakeDirectory
	echo     *recordingEcho
	sink     *recordingSink
	cargo    *fakeStorage
	refinery *fakeStorage
	c        *Consolidator
}

func newConsolidateFixture() *consolidateFixture {
	f := &consolidateFixture{
		dir:      newFakeDirectory(),
		echo:     &recordingEcho{},
		sink:     newRecordingSink(),
		cargo:    newStorage("Asteroid - L. Cargo C", device.KindCargoContainer, 1),
		refinery: newStorage("Asteroid - Refinery", device.KindRefinery, 2),
	}
	f.dir.add(f.cargo, f.refinery)
	f.c = NewConsolidator(f.dir, testPolicy, f.echo, f.sink, nil)
	return f
}

func TestPolicy_Eligible(t *testing.T) {
	tests := []struct {
		item device.Item
		want bool
	}{
		{device.Item{Category: device.CategoryIngot, Subtype: "Iron"}, true},
		{device.Item{Category: device.CategoryOre, Subtype: "Iron"}, false},
		{device.Item{Category: device.CategoryComponent, Subtype: "SteelPlate"}, false},
		{device.Item{Category: device.CategoryIngot, Subtype: "iron"}, false},
		{device.Item{Category: device.CategoryOre, Subtype: "Stone"}, false},
		{device.Item{Category: device.CategoryIngot, Subtype: "Stone"}, true},
	}

	for _, tt := range tests {
		if got := testPolicy.Eligible(tt.item); got != tt.want {
			t.Errorf("Eligible(%s %s) = %v, want %v", tt.item.Category, tt.item.Subtype, got, tt.want)
		}
	}
}

func TestPolicy_Immutable(t *testing.T) {
	names := []string{"Iron"}
	p := NewPolicy(names)
	names[0] = "Gold"

	if !p.Eligible(device.Item{Category: device.CategoryIngot, Subtype: "Iron"}) {
		t.Error("policy changed when the source slice changed")
	}
	m := p.Materials()
	m[0] = "Gold"
	if p.Materials()[0] != "Iron" {
		t.Error("policy changed through Materials()")
	}
}

// Scenario D: a refined and a raw entry with the same subtype on one device.
func TestConsolidate_SkipsOre(t *testing.T) {
	f := newConsolidateFixture()
	f.refinery.put(device.CategoryIngot, "Iron", 100)
	f.refinery.put(device.CategoryOre, "Iron", 500)

	report, err := f.c.Consolidate(context.Background(), "asteroid", "Asteroid - L. Cargo C")
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}

	attempts := f.refinery.slots[0].attempts
	if len(attempts) != 1 {
		t.Fatalf("attempted %d transfers, want 1", len(attempts))
	}
	if report.ItemsFound != 2 || report.Transferred != 1 || len(report.Outcomes) != 1 {
		t.Errorf("report = %+v", report)
	}
	if o := report.Outcomes[0]; !o.Success || o.Category != device.CategoryIngot || o.Source != "Asteroid - Refinery" {
		t.Errorf("outcome = %+v", o)
	}

	left, _ := f.refinery.slots[0].Items(context.Background())
	if len(left) != 1 || left[0].Category != device.CategoryOre {
		t.Errorf("refinery left with %+v, want only the ore", left)
	}

	for _, line := range []string{
		"Found item: Iron in Asteroid - Refinery",
		"Transferred Iron to Asteroid - L. Cargo C",
	} {
		if !f.echo.contains(line) {
			t.Errorf("missing echo %q in %v", line, f.echo.lines)
		}
	}
}

func TestConsolidate_OneOutcomePerEligibleEntry(t *testing.T) {
	f := newConsolidateFixture()
	f.refinery.slots[0].failFor = map[string]error{
		"Gold":   device.ErrInventoryFull,
		"Silver": errors.New("conveyor broken"),
	}
	f.refinery.put(device.CategoryIngot, "Gold", 5)
	f.refinery.put(device.CategoryIngot, "Silver", 5)
	f.refinery.put(device.CategoryIngot, "Nickel", 5)
	f.refinery.put(device.CategoryComponent, "Motor", 2)

	assembler := newStorage("Asteroid - Assembler", device.KindAssembler, 1)
	assembler.put(device.CategoryIngot, "Cobalt", 7)
	f.dir.add(assembler)

	report, err := f.c.Consolidate(context.Background(), "asteroid", "Asteroid - L. Cargo C")
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}

	if len(report.Outcomes) != 4 {
		t.Fatalf("outcomes = %d, want 4 (Gold, Silver, Nickel, Cobalt)", len(report.Outcomes))
	}
	if report.Failed != 2 || report.Transferred != 2 {
		t.Errorf("failed=%d transferred=%d, want 2/2", report.Failed, report.Transferred)
	}
	if report.Sources != 2 {
		t.Errorf("sources = %d, want 2 (cargo destination excluded)", report.Sources)
	}

	var gold TransferOutcome
	for _, o := range report.Outcomes {
		if o.Subtype == "Gold" {
			gold = o
		}
	}
	if gold.Success || !errors.Is(gold.Err(), device.ErrInventoryFull) || gold.Error == "" {
		t.Errorf("gold outcome = %+v", gold)
	}
	if !f.echo.contains("Failed to transfer Gold to Asteroid - L. Cargo C") {
		t.Errorf("missing failure echo in %v", f.echo.lines)
	}
	if len(f.sink.transfers) != 4 {
		t.Errorf("sink saw %d transfers, want 4", len(f.sink.transfers))
	}
}

func TestConsolidate_OnlyLocalConstruct(t *testing.T) {
	f := newConsolidateFixture()
	ship := newStorage("Ship Cargo", device.KindCargoContainer, 1)
	ship.construct = "ship"
	ship.put(device.CategoryIngot, "Iron", 10)
	f.dir.add(ship)

	report, err := f.c.Consolidate(context.Background(), "asteroid", "Asteroid - L. Cargo C")
	if err != nil {
		t.Fatalf("Consolidate() error = %v", err)
	}
	if len(ship.slots[0].attempts) != 0 || report.ItemsFound != 0 {
		t.Errorf("scanned a block on another construct: %+v", report)
	}
}

func TestConsolidate_DestinationFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *consolidateFixture) string
		wantErr  error
		wantEcho string
	}{
		{
			name:     "missing destination",
			setup:    func(*consolidateFixture) string { return "Nope" },
			wantErr:  ErrDestinationNotFound,
			wantEcho: "Storage container 'Nope' not found!",
		},
		{
			name:     "destination is not a cargo container",
			setup:    func(*consolidateFixture) string { return "Asteroid - Refinery" },
			wantErr:  ErrDestinationNotFound,
			wantEcho: "Storage container 'Asteroid - Refinery' not found!",
		},
		{
			name: "destination without inventory",
			setup: func(f *consolidateFixture) string {
				f.dir.add(newStorage("Broken Cargo", device.KindCargoContainer, 0))
				return "Broken Cargo"
			},
			wantErr:  ErrDestinationNoStorage,
			wantEcho: "Storage container 'Broken Cargo' has no inventory!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConsolidateFixture()
			f.refinery.put(device.CategoryIngot, "Iron", 1)
			dest := tt.setup(f)

			report, err := f.c.Consolidate(context.Background(), "asteroid", dest)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Consolidate() error = %v, want %v", err, tt.wantErr)
			}
			if report.ItemsFound != 0 || len(f.refinery.slots[0].attempts) != 0 {
				t.Error("scan ran despite operation-level failure")
			}
			if len(f.echo.lines) != 1 || f.echo.lines[0] != tt.wantEcho {
				t.Errorf("echo = %v, want exactly %q", f.echo.lines, tt.wantEcho)
			}
		})
	}
}

func TestConsolidate_Cancelled(t *testing.T) {
	f := newConsolidateFixture()
	f.refinery.put(device.CategoryIngot, "Iron", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.c.Consolidate(ctx, "asteroid", "Asteroid - L. Cargo C"); !errors.Is(err, context.Canceled) {
		t.Errorf("Consolidate() error = %v, want context.Canceled", err)
	}
}
