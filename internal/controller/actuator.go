package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/gridctl/internal/device"
)

// SyncToState switches every member to state. A member that fails to switch
// does not stop the rest; all failures are returned joined.
func SyncToState(ctx context.Context, group []device.Switchable, state bool) error {
	var errs []error
	for _, sw := range group {
		if err := sw.SetEnabled(ctx, state); err != nil {
			errs = append(errs, fmt.Errorf("switching %s: %w", sw.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ToggleGroup sets every member to the negation of the first member's state
// and returns the new state. Only the first member is read, so a mixed group
// converges on one state instead of each member flipping. An empty group is
// left alone.
func ToggleGroup(ctx context.Context, group []device.Switchable) (bool, error) {
	if len(group) == 0 {
		return false, nil
	}
	next := !group[0].Enabled()
	return next, SyncToState(ctx, group, next)
}
