package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/gridctl/internal/device"
)

// Scope selects which devices a pass covers.
type Scope string

const (
	// ScopeGrid covers the controller's own grid only, not subgrids docked
	// or attached to it.
	ScopeGrid Scope = "grid"
	// ScopeConstruct covers every grid of the construct.
	ScopeConstruct Scope = "construct"
)

// ParseScope maps a config or flag value onto a Scope.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case ScopeGrid, ScopeConstruct:
		return sc, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidScope)
	}
}

// Lister enumerates device handles. *device.Registry satisfies it.
type Lister interface {
	Devices(ctx context.Context, pred func(device.Handle) bool) ([]device.Handle, error)
}

// Echoer receives diagnostic lines.
type Echoer interface {
	Echo(line string)
}

// Logger defines the logging interface used by the prefixer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type discardEcho struct{}

func (discardEcho) Echo(string) {}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Options configure one pass.
type Options struct {
	Prefix      string
	Scope       Scope
	GridID      string
	ConstructID string
}

// Rename records one changed name.
type Rename struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Report summarises a pass. Skipped counts devices that already had the
// prefix or could not be renamed.
type Report struct {
	Total   int      `json:"total"`
	Renamed int      `json:"renamed"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Renames []Rename `json:"renames,omitempty"`
}

// Prefixer runs name-prefix passes over a device directory.
type Prefixer struct {
	devices Lister
	echo    Echoer
	logger  Logger
}

// New creates a Prefixer. Nil echo and logger discard.
func New(devices Lister, echo Echoer, logger Logger) *Prefixer {
	if echo == nil {
		echo = discardEcho{}
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Prefixer{devices: devices, echo: echo, logger: logger}
}

// Run prepends opts.Prefix to every in-scope device name that lacks it.
// A failed rename is counted and reported in the joined error; the pass
// continues with the remaining devices.
func (p *Prefixer) Run(ctx context.Context, opts Options) (Report, error) {
	var report Report

	if opts.Prefix == "" {
		return report, ErrEmptyPrefix
	}
	if opts.Scope == "" {
		opts.Scope = ScopeGrid
	}
	pred, err := scopePredicate(opts)
	if err != nil {
		return report, err
	}

	p.echo.Echo("Starting ship component renaming process...")
	p.echo.Echo("Prefix to use: " + opts.Prefix)

	handles, err := p.devices.Devices(ctx, pred)
	if err != nil {
		return report, fmt.Errorf("listing devices: %w", err)
	}
	report.Total = len(handles)
	p.echo.Echo(fmt.Sprintf("Found %d blocks on the local %s.", report.Total, opts.Scope))

	var errs []error
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		name := h.Name()
		if strings.HasPrefix(name, opts.Prefix) {
			report.Skipped++
			continue
		}
		r, ok := h.(device.Renamable)
		if !ok {
			report.Skipped++
			continue
		}

		newName := opts.Prefix + name
		if err := r.Rename(ctx, newName); err != nil {
			report.Skipped++
			report.Failed++
			errs = append(errs, fmt.Errorf("renaming %q: %w", name, err))
			p.logger.Warn("rename failed", "device", h.ID(), "name", name, "error", err)
			continue
		}

		report.Renamed++
		report.Renames = append(report.Renames, Rename{ID: h.ID(), From: name, To: newName})
		p.echo.Echo(fmt.Sprintf("Renamed: '%s' to '%s'", name, newName))
	}

	p.echo.Echo(fmt.Sprintf("Renaming process complete. %d blocks were renamed.", report.Renamed))
	p.echo.Echo(fmt.Sprintf("%d blocks already had the prefix or were not renamed.", report.Skipped))
	p.logger.Info("provisioning finished",
		"scope", opts.Scope,
		"total", report.Total,
		"renamed", report.Renamed,
		"skipped", report.Skipped,
	)
	return report, errors.Join(errs...)
}

func scopePredicate(opts Options) (func(device.Handle) bool, error) {
	switch opts.Scope {
	case ScopeGrid:
		return device.OnGrid(opts.GridID), nil
	case ScopeConstruct:
		return device.OnConstruct(opts.ConstructID), nil
	default:
		return nil, fmt.Errorf("%q: %w", opts.Scope, ErrInvalidScope)
	}
}
