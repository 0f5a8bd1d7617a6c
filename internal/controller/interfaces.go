package controller

import (
	"context"

	"github.com/nerrad567/gridctl/internal/device"
)

// Directory resolves names to device handles. Absence is reported as an
// error wrapping device.ErrDeviceNotFound or device.ErrGroupNotFound and is
// never fatal here.
type Directory interface {
	DeviceByName(ctx context.Context, name string) (device.Handle, error)
	GroupByName(ctx context.Context, name string) (device.Group, error)
	Devices(ctx context.Context, pred func(device.Handle) bool) ([]device.Handle, error)
}

// Echoer is the diagnostic channel.
type Echoer interface {
	Echo(line string)
}

type discardEcho struct{}

func (discardEcho) Echo(string) {}

// Logger defines the logging interface used by the controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricSink receives measurements as they are produced. Implementations
// must not block.
type MetricSink interface {
	RecordResource(class string, capacity, current, percent float64)
	RecordTransfer(source, subtype string, success bool)
	RecordCommand(command string, success bool)
}

// NopSink discards all measurements.
type NopSink struct{}

func (NopSink) RecordResource(string, float64, float64, float64) {}
func (NopSink) RecordTransfer(string, string, bool)               {}
func (NopSink) RecordCommand(string, bool)                        {}

// MultiSink fans measurements out to several sinks.
type MultiSink []MetricSink

func (m MultiSink) RecordResource(class string, capacity, current, percent float64) {
	for _, s := range m {
		s.RecordResource(class, capacity, current, percent)
	}
}

func (m MultiSink) RecordTransfer(source, subtype string, success bool) {
	for _, s := range m {
		s.RecordTransfer(source, subtype, success)
	}
}

func (m MultiSink) RecordCommand(command string, success bool) {
	for _, s := range m {
		s.RecordCommand(command, success)
	}
}
