package controller

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State is the dispatcher state.
type State int

// Dispatcher states.
const (
	StateIdle State = iota
	StateDispatching
)

func (s State) String() string {
	if s == StateDispatching {
		return "dispatching"
	}
	return "idle"
}

// Result describes one dispatched invocation. Exactly one of Status,
// LightsOn and Consolidation is set for a known command that ran.
type Result struct {
	RunID     string        `json:"run_id"`
	Command   Command       `json:"command"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Status        *StatusReport `json:"status,omitempty"`
	LightsOn      *bool         `json:"lights_on,omitempty"`
	Consolidation *Report       `json:"consolidation,omitempty"`
}

// State returns the current dispatcher state.
func (c *Controller) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Dispatch parses argument and runs the matching command to completion.
// A dispatch arriving while another is running gets ErrBusy. An unknown
// command is echoed and returns a nil error.
func (c *Controller) Dispatch(ctx context.Context, argument string) (Result, error) {
	c.stateMu.Lock()
	if c.state == StateDispatching {
		c.stateMu.Unlock()
		return Result{Command: ParseCommand(argument)}, ErrBusy
	}
	c.state = StateDispatching
	c.stateMu.Unlock()

	defer func() {
		c.stateMu.Lock()
		c.state = StateIdle
		c.stateMu.Unlock()
	}()

	res := Result{
		RunID:     uuid.NewString(),
		Command:   ParseCommand(argument),
		StartedAt: time.Now().UTC(),
	}

	err := c.run(ctx, &res)
	res.Duration = time.Since(res.StartedAt)

	c.metrics.RecordCommand(string(res.Command.Kind), err == nil)
	c.logger.Debug("dispatch finished",
		"run_id", res.RunID,
		"command", res.Command.Kind,
		"duration", res.Duration,
		"error", err,
	)
	return res, err
}

func (c *Controller) run(ctx context.Context, res *Result) error {
	switch res.Command.Kind {
	case CommandUpdateStatus:
		status, err := c.UpdateStatus(ctx)
		if err == nil || status.Text != "" {
			res.Status = &status
		}
		return err

	case CommandToggleAlertLights:
		on, err := c.ToggleAlertLights(ctx)
		if len(c.lights) > 0 {
			res.LightsOn = &on
		}
		return err

	case CommandMoveItems:
		report, err := c.MoveItems(ctx, c.destination(res.Command))
		res.Consolidation = &report
		return err

	default:
		c.echo.Echo("Unknown argument: " + res.Command.Argument)
		return nil
	}
}

// destination picks the move_items target: the override when allowed,
// otherwise the configured container.
func (c *Controller) destination(cmd Command) string {
	if cmd.Destination != "" && c.opts.AllowDestinationOverride {
		return cmd.Destination
	}
	if cmd.Destination != "" {
		c.logger.Debug("destination override ignored", "requested", cmd.Destination)
	}
	return c.opts.Names.CargoDestination
}
