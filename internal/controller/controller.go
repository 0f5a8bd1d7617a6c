package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gridctl/internal/device"
)

// DefaultFontSize is the status panel font size when none is configured.
const DefaultFontSize = 1.5

// Names are the device and group names the controller works with.
type Names struct {
	Display          string
	Target           string
	AlertLights      string
	Batteries        string
	OxygenTanks      string
	HydrogenTanks    string
	CargoDestination string
}

// Options configure a Controller.
type Options struct {
	Names Names

	// Self names the block the controller runs on. Its construct and grid
	// scope local enumeration. When empty or missing, ConstructID is used.
	Self        string
	ConstructID string

	AllowDestinationOverride bool
	FontSize                 float64
	Policy                   Policy

	Echo    Echoer
	Metrics MetricSink
	Logger  Logger
}

// Controller holds the handles resolved once per process and runs commands.
type Controller struct {
	dir  Directory
	opts Options

	display device.TextSurface
	target  device.Handle
	lights  []device.Switchable

	constructID string
	gridID      string

	consolidator *Consolidator

	stateMu sync.Mutex
	state   State

	echo    Echoer
	metrics MetricSink
	logger  Logger
}

// New resolves the display, target, alert lights and self block and returns
// a ready controller. Missing pieces are echoed once here; the operations
// that need them become no-ops.
func New(ctx context.Context, dir Directory, opts Options) *Controller {
	c := &Controller{
		dir:     dir,
		opts:    opts,
		echo:    opts.Echo,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if c.echo == nil {
		c.echo = discardEcho{}
	}
	if c.metrics == nil {
		c.metrics = NopSink{}
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.opts.FontSize <= 0 {
		c.opts.FontSize = DefaultFontSize
	}

	if h, err := dir.DeviceByName(ctx, opts.Names.Display); err == nil {
		if panel, ok := h.(device.TextSurface); ok {
			c.display = panel
		}
	}
	if c.display == nil {
		c.echo.Echo("LCD panel not found!")
	}

	if h, err := dir.DeviceByName(ctx, opts.Names.Target); err == nil {
		c.target = h
	} else {
		c.echo.Echo("Target block not found!")
	}

	if g, err := dir.GroupByName(ctx, opts.Names.AlertLights); err == nil {
		c.lights = device.OfType[device.Switchable](g.Members)
	}
	if len(c.lights) == 0 {
		c.echo.Echo("Light group not found or empty!")
	}

	c.constructID, c.gridID = opts.ConstructID, opts.ConstructID
	if opts.Self != "" {
		if self, err := dir.DeviceByName(ctx, opts.Self); err == nil {
			c.constructID, c.gridID = self.ConstructID(), self.GridID()
		} else {
			c.logger.Warn("self block not found, using configured construct",
				"self", opts.Self, "construct", opts.ConstructID)
		}
	}

	c.consolidator = NewConsolidator(dir, opts.Policy, c.echo, c.metrics, c.logger)
	return c
}

// ConstructID is the local construct used to scope consolidation.
func (c *Controller) ConstructID() string { return c.constructID }

// GridID is the grid the controller's own block sits on.
func (c *Controller) GridID() string { return c.gridID }

// Ready reports whether the display, target and alert lights all resolved.
func (c *Controller) Ready() bool {
	return c.display != nil && c.target != nil && len(c.lights) > 0
}

// StatusReport is the outcome of one status update.
type StatusReport struct {
	Target  string             `json:"target"`
	Online  bool               `json:"online"`
	Metrics []AggregatedMetric `json:"metrics"`
	Text    string             `json:"text"`
}

// UpdateStatus aggregates the resource groups, writes the status panel and
// mirrors the target's operational state onto the alert lights.
//
// When the display, target or light group is unavailable nothing is written
// and ErrPreconditionFailed is returned.
func (c *Controller) UpdateStatus(ctx context.Context) (StatusReport, error) {
	if !c.Ready() {
		return StatusReport{}, ErrPreconditionFailed
	}

	metrics := []AggregatedMetric{
		Aggregate(ResourcePower, PowerReadings(device.OfType[device.PowerStore](c.groupMembers(ctx, c.opts.Names.Batteries)))),
		Aggregate(ResourceOxygen, GasReadings(device.OfType[device.GasTank](c.groupMembers(ctx, c.opts.Names.OxygenTanks)))),
		Aggregate(ResourceHydrogen, GasReadings(device.OfType[device.GasTank](c.groupMembers(ctx, c.opts.Names.HydrogenTanks)))),
	}
	for _, m := range metrics {
		c.metrics.RecordResource(string(m.Class), m.TotalCapacity, m.TotalCurrent, m.Percent)
	}

	online := c.target.IsWorking()
	report := StatusReport{
		Target:  c.target.Name(),
		Online:  online,
		Metrics: metrics,
		Text:    RenderStatus(c.target.Name(), online, metrics),
	}

	var errs []error
	hints := device.DisplayHints{ContentType: device.ContentTextAndImage, FontSize: c.opts.FontSize}
	if err := c.display.WriteText(ctx, report.Text, hints); err != nil {
		errs = append(errs, fmt.Errorf("writing display: %w", err))
	}
	if err := SyncToState(ctx, c.lights, online); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

// ToggleAlertLights flips the alert light group and returns the new state.
func (c *Controller) ToggleAlertLights(ctx context.Context) (bool, error) {
	return ToggleGroup(ctx, c.lights)
}

// MoveItems consolidates refined materials on the local construct into destination.
func (c *Controller) MoveItems(ctx context.Context, destination string) (Report, error) {
	return c.consolidator.Consolidate(ctx, c.constructID, destination)
}

// groupMembers resolves a group for this invocation. A missing group is
// treated as empty.
func (c *Controller) groupMembers(ctx context.Context, name string) []device.Handle {
	g, err := c.dir.GroupByName(ctx, name)
	if err != nil {
		c.logger.Debug("group unavailable, treating as empty", "group", name, "error", err)
		return nil
	}
	return g.Members
}
