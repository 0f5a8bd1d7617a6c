package device

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr error
	}{
		{"valid battery", func(*Device) {}, nil},
		{"blank name", func(d *Device) { d.Name = "  " }, ErrInvalidName},
		{"long name", func(d *Device) { d.Name = strings.Repeat("x", maxNameLength+1) }, ErrInvalidName},
		{"no construct", func(d *Device) { d.ConstructID = "" }, ErrInvalidDevice},
		{"unknown kind", func(d *Device) { d.Kind = "warp_drive" }, ErrInvalidKind},
		{"negative charge", func(d *Device) { d.State.Power.CurrentStored = -1 }, ErrInvalidState},
		{"NaN capacity", func(d *Device) { d.State.Power.MaxStored = math.NaN() }, ErrInvalidState},
		{"power on light", func(d *Device) { d.Kind = KindLight }, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDevice("id", "Battery")
			tt.mutate(d)
			err := ValidateDevice(d)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDevice() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateState_Gas(t *testing.T) {
	tests := []struct {
		name    string
		gas     GasState
		wantErr bool
	}{
		{"empty tank", GasState{Gas: GasOxygen, Capacity: 0, FilledRatio: 0}, false},
		{"full hydrogen", GasState{Gas: GasHydrogen, Capacity: 5000000, FilledRatio: 1}, false},
		{"ratio above one", GasState{Gas: GasOxygen, Capacity: 1, FilledRatio: 1.01}, true},
		{"negative ratio", GasState{Gas: GasOxygen, Capacity: 1, FilledRatio: -0.1}, true},
		{"unknown gas", GasState{Gas: "nitrogen", Capacity: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gas := tt.gas
			err := ValidateState(KindGasTank, State{Gas: &gas})
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateState() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKind_HasStorage(t *testing.T) {
	for _, k := range AllKinds() {
		want := k == KindCargoContainer || k == KindReactor || k == KindRefinery ||
			k == KindAssembler || k == KindConnector
		if got := k.HasStorage(); got != want {
			t.Errorf("%s.HasStorage() = %v, want %v", k, got, want)
		}
	}
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := GenerateID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID %s", id)
		}
		seen[id] = struct{}{}
	}
}
