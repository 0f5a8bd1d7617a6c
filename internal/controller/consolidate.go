package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gridctl/internal/device"
)

// Policy is the immutable set of material subtypes eligible for consolidation.
type Policy struct {
	names     []string
	materials map[string]struct{}
}

// NewPolicy copies names into a policy. Later changes to names have no effect.
func NewPolicy(names []string) Policy {
	p := Policy{
		names:     append([]string(nil), names...),
		materials: make(map[string]struct{}, len(names)),
	}
	for _, n := range names {
		p.materials[n] = struct{}{}
	}
	return p
}

// Materials returns a copy of the policy list.
func (p Policy) Materials() []string {
	return append([]string(nil), p.names...)
}

// Eligible reports whether an entry should move: its subtype is listed and
// it is not raw ore.
func (p Policy) Eligible(item device.Item) bool {
	if item.Category.IsRaw() {
		return false
	}
	_, ok := p.materials[item.Subtype]
	return ok
}

// TransferOutcome records one attempted move.
type TransferOutcome struct {
	Success     bool                `json:"success"`
	Subtype     string              `json:"subtype"`
	Category    device.ItemCategory `json:"category"`
	Amount      float64             `json:"amount"`
	Source      string              `json:"source"`
	Destination string              `json:"destination"`
	Error       string              `json:"error,omitempty"`

	err error
}

// Err returns the transfer failure, or nil on success.
func (o TransferOutcome) Err() error {
	return o.err
}

// Report summarises one consolidation run.
type Report struct {
	RunID       string            `json:"run_id"`
	Destination string            `json:"destination"`
	Sources     int               `json:"sources"`
	ItemsFound  int               `json:"items_found"`
	Transferred int               `json:"transferred"`
	Failed      int               `json:"failed"`
	Outcomes    []TransferOutcome `json:"outcomes"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// Eligible is the number of attempted transfers.
func (r Report) Eligible() int {
	return len(r.Outcomes)
}

// Consolidator moves refined materials from local storage blocks into one
// cargo container.
type Consolidator struct {
	dir     Directory
	policy  Policy
	echo    Echoer
	metrics MetricSink
	logger  Logger
}

// NewConsolidator creates a consolidator. Nil echo, metrics and logger discard.
func NewConsolidator(dir Directory, policy Policy, echo Echoer, metrics MetricSink, logger Logger) *Consolidator {
	if echo == nil {
		echo = discardEcho{}
	}
	if metrics == nil {
		metrics = NopSink{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Consolidator{dir: dir, policy: policy, echo: echo, metrics: metrics, logger: logger}
}

// Consolidate scans slot 0 of every storage block on localConstructID and
// moves each eligible entry into slot 0 of destinationName.
//
// A missing destination, a destination that is not a cargo container and a
// destination without a primary inventory fail the whole run before any scan.
// Item failures are recorded in the report and never stop the scan. The
// destination itself is not scanned.
func (c *Consolidator) Consolidate(ctx context.Context, localConstructID, destinationName string) (report Report, err error) {
	report = Report{
		RunID:       uuid.NewString(),
		Destination: destinationName,
		StartedAt:   time.Now().UTC(),
	}
	defer func() { report.FinishedAt = time.Now().UTC() }()

	dest, err := c.dir.DeviceByName(ctx, destinationName)
	if err != nil || dest.Kind() != device.KindCargoContainer {
		c.echo.Echo(fmt.Sprintf("Storage container '%s' not found!", destinationName))
		return report, fmt.Errorf("%q: %w", destinationName, ErrDestinationNotFound)
	}

	var destInv device.Inventory
	if owner, ok := dest.(device.StorageOwner); ok {
		destInv, err = owner.Inventory(ctx, 0)
	}
	if destInv == nil || err != nil {
		c.echo.Echo(fmt.Sprintf("Storage container '%s' has no inventory!", destinationName))
		return report, fmt.Errorf("%q: %w", destinationName, ErrDestinationNoStorage)
	}

	sources, err := c.dir.Devices(ctx, device.All(device.OnConstruct(localConstructID), device.HasInventory))
	if err != nil {
		return report, fmt.Errorf("listing storage blocks: %w", err)
	}

	for _, h := range sources {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if h.ID() == dest.ID() {
			continue
		}
		c.scan(ctx, h, destInv, &report)
	}

	c.logger.Info("consolidation finished",
		"run_id", report.RunID,
		"destination", destinationName,
		"sources", report.Sources,
		"found", report.ItemsFound,
		"transferred", report.Transferred,
		"failed", report.Failed,
	)
	return report, nil
}

// scan handles one source block.
func (c *Consolidator) scan(ctx context.Context, h device.Handle, dst device.Inventory, report *Report) {
	owner, ok := h.(device.StorageOwner)
	if !ok {
		return
	}
	src, err := owner.Inventory(ctx, 0)
	if err != nil {
		c.logger.Debug("skipping block without primary inventory", "block", h.Name(), "error", err)
		return
	}
	items, err := src.Items(ctx)
	if err != nil {
		c.logger.Warn("reading inventory failed", "block", h.Name(), "error", err)
		return
	}
	report.Sources++

	for _, item := range items {
		report.ItemsFound++
		c.echo.Echo(fmt.Sprintf("Found item: %s in %s", item.Subtype, h.Name()))

		if !c.policy.Eligible(item) {
			continue
		}

		outcome := TransferOutcome{
			Subtype:     item.Subtype,
			Category:    item.Category,
			Amount:      item.Amount,
			Source:      h.Name(),
			Destination: report.Destination,
		}

		if err := src.TransferItemTo(ctx, dst, item); err != nil {
			outcome.err = err
			outcome.Error = err.Error()
			report.Failed++
			c.echo.Echo(fmt.Sprintf("Failed to transfer %s to %s", item.Subtype, report.Destination))
			if !errors.Is(err, device.ErrInventoryFull) && !errors.Is(err, device.ErrItemNotFound) {
				c.logger.Warn("transfer failed", "item", item.Subtype, "source", h.Name(), "error", err)
			}
		} else {
			outcome.Success = true
			report.Transferred++
			c.echo.Echo(fmt.Sprintf("Transferred %s to %s", item.Subtype, report.Destination))
		}

		c.metrics.RecordTransfer(h.Name(), item.Subtype, outcome.Success)
		report.Outcomes = append(report.Outcomes, outcome)
	}
}
