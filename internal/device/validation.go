package device

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100
	maxTextLength = 4096
)

var validKinds map[Kind]struct{}

func init() {
	validKinds = make(map[Kind]struct{}, len(AllKinds()))
	for _, k := range AllKinds() {
		validKinds[k] = struct{}{}
	}
}

// ValidKind reports whether k is a known kind.
func ValidKind(k Kind) bool {
	_, ok := validKinds[k]
	return ok
}

// ValidateDevice checks a device before it is persisted.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalidDevice)
	}
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if strings.TrimSpace(d.ConstructID) == "" {
		return fmt.Errorf("%w: construct_id is required", ErrInvalidDevice)
	}
	if !ValidKind(d.Kind) {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}
	return ValidateState(d.Kind, d.State)
}

// ValidateName checks a device display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateState checks readings are finite, non-negative and belong to the kind.
func ValidateState(kind Kind, s State) error {
	if s.Power != nil {
		if kind != KindBattery {
			return fmt.Errorf("%w: power reading on %s", ErrInvalidState, kind)
		}
		if err := validateMeasure("power.max_stored", s.Power.MaxStored); err != nil {
			return err
		}
		if err := validateMeasure("power.current_stored", s.Power.CurrentStored); err != nil {
			return err
		}
	}

	if s.Gas != nil {
		if kind != KindGasTank {
			return fmt.Errorf("%w: gas reading on %s", ErrInvalidState, kind)
		}
		switch s.Gas.Gas {
		case GasOxygen, GasHydrogen:
		default:
			return fmt.Errorf("%w: unknown gas %q", ErrInvalidState, s.Gas.Gas)
		}
		if err := validateMeasure("gas.capacity", s.Gas.Capacity); err != nil {
			return err
		}
		if err := validateMeasure("gas.filled_ratio", s.Gas.FilledRatio); err != nil {
			return err
		}
		if s.Gas.FilledRatio > 1 {
			return fmt.Errorf("%w: gas.filled_ratio %v above 1", ErrInvalidState, s.Gas.FilledRatio)
		}
	}

	if s.Display != nil {
		if kind != KindTextPanel {
			return fmt.Errorf("%w: display on %s", ErrInvalidState, kind)
		}
		if len(s.Display.Text) > maxTextLength {
			return fmt.Errorf("%w: display text exceeds %d bytes", ErrInvalidState, maxTextLength)
		}
		if s.Display.FontSize < 0 {
			return fmt.Errorf("%w: negative font size", ErrInvalidState)
		}
	}

	return nil
}

func validateMeasure(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidState, field, v)
	}
	return nil
}

// GenerateID returns a new unique identifier for devices, groups, slots and items.
func GenerateID() string {
	return uuid.New().String()
}
