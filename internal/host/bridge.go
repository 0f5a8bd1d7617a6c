package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gridctl/internal/device"
	"github.com/nerrad567/gridctl/internal/diagnostics"
)

// handleCommand runs the payload of a command message as an invocation
// argument.
func (h *Host) handleCommand(ctx context.Context) func(string) error {
	return func(argument string) error {
		_, err := h.invoke(ctx, "mqtt", argument)
		return err
	}
}

// handleReading applies a bridge reading to the registry. Readings only
// update the database and cache; the next invocation observes them.
func (h *Host) handleReading(ctx context.Context) func(string, []byte) error {
	return func(id string, payload []byte) error {
		var reading device.Reading
		if err := json.Unmarshal(payload, &reading); err != nil {
			return fmt.Errorf("decoding reading for %s: %w", id, err)
		}
		if err := h.registry.ApplyReading(ctx, id, reading); err != nil {
			return fmt.Errorf("applying reading for %s: %w", id, err)
		}
		return nil
	}
}

// enqueueChange is the registry change listener. It must not block, so a
// full queue drops the snapshot.
func (h *Host) enqueueChange(d device.Device) {
	select {
	case h.changes <- d:
	default:
		h.logger.Debug("device change dropped, publish queue full", "device", d.ID)
	}
}

func (h *Host) publishChanges(ctx context.Context) {
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-h.changes:
			if err := h.opts.Broker.PublishSnapshot(d.ID, d); err != nil {
				h.logger.Warn("publishing device snapshot", "device", d.ID, "error", err)
			}
		}
	}
}

func (h *Host) forwardEcho(ctx context.Context, lines <-chan diagnostics.Line) {
	defer h.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := h.opts.Broker.PublishEcho(h.opts.ConstructID, line.Text); err != nil {
				h.logger.Debug("publishing echo line", "seq", line.Seq, "error", err)
			}
		}
	}
}
