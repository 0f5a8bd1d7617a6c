package controller

import (
	"math"
	"math/rand"
	"testing"

	"github.com/nerrad567/gridctl/internal/device"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name     string
		readings []CapacityReading
		want     AggregatedMetric
	}{
		{
			name:     "empty group",
			readings: nil,
			want:     AggregatedMetric{Class: ResourcePower},
		},
		{
			name:     "zero capacity",
			readings: []CapacityReading{{Capacity: 0, Current: 0}, {Capacity: 0, Current: 0}},
			want:     AggregatedMetric{Class: ResourcePower},
		},
		{
			name:     "quarter charge",
			readings: []CapacityReading{{Capacity: 600, Current: 100}, {Capacity: 400, Current: 150}},
			want:     AggregatedMetric{Class: ResourcePower, TotalCapacity: 1000, TotalCurrent: 250, Percent: 25},
		},
		{
			name:     "full",
			readings: []CapacityReading{{Capacity: 3, Current: 3}},
			want:     AggregatedMetric{Class: ResourcePower, TotalCapacity: 3, TotalCurrent: 3, Percent: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(ResourcePower, tt.readings)
			if got != tt.want {
				t.Errorf("Aggregate() = %+v, want %+v", got, tt.want)
			}
			if math.IsNaN(got.Percent) {
				t.Error("Percent is NaN")
			}
		})
	}
}

func TestAggregate_PercentInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 500; run++ {
		n := rng.Intn(6)
		tanks := make([]device.GasTank, 0, n)
		for i := 0; i < n; i++ {
			capacity := rng.Float64() * 1e6
			if rng.Intn(5) == 0 {
				capacity = 0
			}
			tanks = append(tanks, newTank("t", capacity, rng.Float64()))
		}

		m := Aggregate(ResourceOxygen, GasReadings(tanks))
		if m.Percent < 0 || m.Percent > 100 || math.IsNaN(m.Percent) {
			t.Fatalf("run %d: percent %v out of [0,100]", run, m.Percent)
		}
	}
}

func TestPowerAndGasReadings(t *testing.T) {
	power := PowerReadings([]device.PowerStore{newBattery("b", 3, 1.5)})
	if len(power) != 1 || power[0] != (CapacityReading{Capacity: 3, Current: 1.5}) {
		t.Errorf("PowerReadings() = %+v", power)
	}

	gas := GasReadings([]device.GasTank{newTank("t", 1000, 0.25)})
	if len(gas) != 1 || gas[0] != (CapacityReading{Capacity: 1000, Current: 250}) {
		t.Errorf("GasReadings() = %+v", gas)
	}
}

func TestResourceClass_Label(t *testing.T) {
	for class, want := range map[ResourceClass]string{
		ResourcePower:    "Battery",
		ResourceOxygen:   "Oxygen",
		ResourceHydrogen: "Hydrogen",
	} {
		if got := class.Label(); got != want {
			t.Errorf("%s.Label() = %q, want %q", class, got, want)
		}
	}
}
