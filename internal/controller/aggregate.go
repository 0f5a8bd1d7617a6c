package controller

import "github.com/nerrad567/gridctl/internal/device"

// ResourceClass names a monitored resource.
type ResourceClass string

// Monitored resource classes, in display order.
const (
	ResourcePower    ResourceClass = "power"
	ResourceOxygen   ResourceClass = "oxygen"
	ResourceHydrogen ResourceClass = "hydrogen"
)

// Label is the display name of the class on the status panel.
func (c ResourceClass) Label() string {
	switch c {
	case ResourcePower:
		return "Battery"
	case ResourceOxygen:
		return "Oxygen"
	case ResourceHydrogen:
		return "Hydrogen"
	default:
		return string(c)
	}
}

// CapacityReading is one device's maximum and current amount.
type CapacityReading struct {
	Capacity float64
	Current  float64
}

// AggregatedMetric is the sum of a class's readings and its fill percentage.
type AggregatedMetric struct {
	Class         ResourceClass `json:"class"`
	TotalCapacity float64       `json:"total_capacity"`
	TotalCurrent  float64       `json:"total_current"`
	Percent       float64       `json:"percent"`
}

// Aggregate sums readings into a metric. Percent is 0 when the total
// capacity is 0, which covers an empty or absent group.
func Aggregate(class ResourceClass, readings []CapacityReading) AggregatedMetric {
	m := AggregatedMetric{Class: class}
	for _, r := range readings {
		m.TotalCapacity += r.Capacity
		m.TotalCurrent += r.Current
	}
	if m.TotalCapacity > 0 {
		m.Percent = m.TotalCurrent / m.TotalCapacity * 100
	}
	return m
}

// PowerReadings reads stored and maximum charge from batteries.
func PowerReadings(batteries []device.PowerStore) []CapacityReading {
	readings := make([]CapacityReading, 0, len(batteries))
	for _, b := range batteries {
		readings = append(readings, CapacityReading{
			Capacity: b.MaxStoredPower(),
			Current:  b.CurrentStoredPower(),
		})
	}
	return readings
}

// GasReadings reads tanks, deriving the current amount as capacity × fill ratio.
func GasReadings(tanks []device.GasTank) []CapacityReading {
	readings := make([]CapacityReading, 0, len(tanks))
	for _, t := range tanks {
		readings = append(readings, CapacityReading{
			Capacity: t.Capacity(),
			Current:  t.Capacity() * t.FilledRatio(),
		})
	}
	return readings
}
