package controller

import "testing"

func TestRenderStatus(t *testing.T) {
	metrics := []AggregatedMetric{
		{Class: ResourcePower, Percent: 25},
		{Class: ResourceOxygen, Percent: 0},
		{Class: ResourceHydrogen, Percent: 66.66666},
	}

	tests := []struct {
		name   string
		online bool
		want   string
	}{
		{
			name:   "online",
			online: true,
			want:   "Asteroid - S. Reactor A is Online\nBattery: 25.0%\nOxygen: 0.0%\nHydrogen: 66.7%",
		},
		{
			name:   "offline",
			online: false,
			want:   "Asteroid - S. Reactor A is Offline\nBattery: 25.0%\nOxygen: 0.0%\nHydrogen: 66.7%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderStatus("Asteroid - S. Reactor A", tt.online, metrics)
			if got != tt.want {
				t.Errorf("RenderStatus() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}
