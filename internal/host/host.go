package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nerrad567/gridctl/internal/controller"
	"github.com/nerrad567/gridctl/internal/device"
	"github.com/nerrad567/gridctl/internal/diagnostics"
	"github.com/nerrad567/gridctl/internal/history"
)

// changeBuffer bounds device snapshots waiting to be published.
const changeBuffer = 64

// Dispatcher runs one invocation argument. *controller.Controller satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, argument string) (controller.Result, error)
}

// Registry is the part of *device.Registry the host drives.
type Registry interface {
	RefreshCache(ctx context.Context) error
	ApplyReading(ctx context.Context, id string, reading device.Reading) error
	OnChange(fn device.ChangeFunc)
}

// Broker is the part of *mqtt.Client the host uses.
type Broker interface {
	SubscribeCommands(constructID string, run func(argument string) error) error
	SubscribeReadings(apply func(deviceID string, reading []byte) error) error
	PublishSnapshot(deviceID string, snapshot any) error
	PublishEcho(constructID, line string) error
	ReleaseRoutes() error
}

// EchoSource streams diagnostic lines. *diagnostics.Channel satisfies it.
type EchoSource interface {
	Subscribe(buffer int) (<-chan diagnostics.Line, func())
}

// HistoryStore persists invocations. *history.SQLiteRepository satisfies it.
type HistoryStore interface {
	Create(ctx context.Context, entry *history.Entry) error
}

// Logger defines the logging interface used by the host.
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

// Options configure a Host.
type Options struct {
	ConstructID string

	// Schedule is a cron spec for the blank-argument status tick. Empty
	// disables the tick.
	Schedule string

	// Broker enables MQTT ingress and egress when non-nil.
	Broker Broker

	// Echo, when set with a Broker, is forwarded to gridctl/echo/<construct>.
	Echo EchoSource

	// History, when set, receives every completed invocation.
	History HistoryStore

	Logger Logger
}

// Invocation is the last completed dispatch.
type Invocation struct {
	Source   string            `json:"source"`
	Result   controller.Result `json:"result"`
	Error    string            `json:"error,omitempty"`
	Finished time.Time         `json:"finished"`
}

// Host serialises invocations and wires the scheduler and broker to them.
type Host struct {
	registry Registry
	ctrl     Dispatcher
	opts     Options
	logger   Logger

	// mu serialises invocations from every source.
	mu sync.Mutex

	lastMu sync.RWMutex
	last   *Invocation

	runMu    sync.Mutex
	running  bool
	runCtx   context.Context
	cancel   context.CancelFunc
	cron     *cron.Cron
	stopEcho func()
	changes  chan device.Device
	wg       sync.WaitGroup
}

// New creates a host. The schedule, if any, is validated here.
func New(registry Registry, ctrl Dispatcher, opts Options) (*Host, error) {
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	h := &Host{
		registry: registry,
		ctrl:     ctrl,
		opts:     opts,
		logger:   opts.Logger,
	}

	if opts.Schedule != "" {
		h.cron = cron.New()
		if _, err := h.cron.AddFunc(opts.Schedule, h.tick); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, opts.Schedule, err)
		}
	}

	if opts.Broker != nil {
		h.changes = make(chan device.Device, changeBuffer)
		registry.OnChange(h.enqueueChange)
	}
	return h, nil
}

// Invoke refreshes the registry and dispatches argument. Concurrent calls
// wait for each other. Cancelling ctx does not abort an invocation once it
// has started; a consolidation always runs to completion.
func (h *Host) Invoke(ctx context.Context, argument string) (controller.Result, error) {
	return h.invoke(ctx, "direct", argument)
}

func (h *Host) invoke(ctx context.Context, source, argument string) (controller.Result, error) {
	ctx = context.WithoutCancel(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.registry.RefreshCache(ctx); err != nil {
		err = fmt.Errorf("refreshing registry: %w", err)
		h.record(ctx, source, controller.Result{Command: controller.ParseCommand(argument)}, err)
		return controller.Result{}, err
	}

	res, err := h.ctrl.Dispatch(ctx, argument)
	h.record(ctx, source, res, err)
	if err != nil {
		h.logger.Warn("invocation failed",
			"source", source,
			"command", res.Command.Kind,
			"error", err,
		)
	}
	return res, err
}

func (h *Host) record(ctx context.Context, source string, res controller.Result, err error) {
	inv := &Invocation{Source: source, Result: res, Finished: time.Now().UTC()}
	if err != nil {
		inv.Error = err.Error()
	}
	h.lastMu.Lock()
	h.last = inv
	h.lastMu.Unlock()

	if h.opts.History == nil {
		return
	}
	entry := historyEntry(inv)
	if createErr := h.opts.History.Create(ctx, &entry); createErr != nil {
		h.logger.Warn("recording invocation failed", "run_id", res.RunID, "error", createErr)
	}
}

// historyEntry flattens an invocation into a history row. Details carry the
// headline numbers of whichever report the command produced.
func historyEntry(inv *Invocation) history.Entry {
	res := inv.Result
	entry := history.Entry{
		RunID:     res.RunID,
		Source:    inv.Source,
		Command:   string(res.Command.Kind),
		Argument:  res.Command.Argument,
		Success:   inv.Error == "",
		Error:     inv.Error,
		Duration:  res.Duration,
		CreatedAt: inv.Finished,
	}

	switch {
	case res.Status != nil:
		entry.Details = map[string]any{
			"target": res.Status.Target,
			"online": res.Status.Online,
		}
		for _, m := range res.Status.Metrics {
			entry.Details[string(m.Class)+"_percent"] = m.Percent
		}
	case res.LightsOn != nil:
		entry.Details = map[string]any{"lights_on": *res.LightsOn}
	case res.Consolidation != nil:
		r := res.Consolidation
		entry.Details = map[string]any{
			"destination": r.Destination,
			"sources":     r.Sources,
			"transferred": r.Transferred,
			"failed":      r.Failed,
		}
	}
	return entry
}

// Last returns the most recent invocation, if any.
func (h *Host) Last() (Invocation, bool) {
	h.lastMu.RLock()
	defer h.lastMu.RUnlock()
	if h.last == nil {
		return Invocation{}, false
	}
	return *h.last, true
}

// Start begins the schedule and the broker subscriptions. The host runs
// until Stop is called or ctx is cancelled.
func (h *Host) Start(ctx context.Context) error {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.running {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	h.cancel = cancel

	if b := h.opts.Broker; b != nil {
		if err := b.SubscribeCommands(h.opts.ConstructID, h.handleCommand(ctx)); err != nil {
			cancel()
			return fmt.Errorf("subscribing to commands: %w", err)
		}
		if err := b.SubscribeReadings(h.handleReading(ctx)); err != nil {
			_ = b.ReleaseRoutes()
			cancel()
			return fmt.Errorf("subscribing to device readings: %w", err)
		}

		h.wg.Add(1)
		go h.publishChanges(ctx)

		if h.opts.Echo != nil {
			lines, stop := h.opts.Echo.Subscribe(changeBuffer)
			h.stopEcho = stop
			h.wg.Add(1)
			go h.forwardEcho(ctx, lines)
		}
	}

	h.running = true
	h.runCtx = ctx
	if h.cron != nil {
		h.cron.Start()
	}

	h.logger.Info("host started",
		"construct", h.opts.ConstructID,
		"schedule", h.opts.Schedule,
		"mqtt", h.opts.Broker != nil,
	)
	return nil
}

// Stop halts the schedule, waits for a running tick and releases the broker
// subscriptions. ctx bounds the wait.
func (h *Host) Stop(ctx context.Context) error {
	h.runMu.Lock()
	if !h.running {
		h.runMu.Unlock()
		return nil
	}
	h.running = false
	cancel, stopEcho := h.cancel, h.stopEcho
	h.stopEcho = nil
	h.runMu.Unlock()

	var cronDone <-chan struct{}
	if h.cron != nil {
		cronDone = h.cron.Stop().Done()
	}

	if b := h.opts.Broker; b != nil {
		if err := b.ReleaseRoutes(); err != nil {
			h.logger.Debug("releasing MQTT routes failed", "error", err)
		}
	}
	if stopEcho != nil {
		stopEcho()
	}

	done := make(chan struct{})
	go func() {
		if cronDone != nil {
			<-cronDone
		}
		cancel()
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("host stopped")
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("waiting for host shutdown: %w", ctx.Err())
	}
}

// tick runs the scheduled blank-argument invocation.
func (h *Host) tick() {
	h.runMu.Lock()
	ctx := h.runCtx
	h.runMu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if _, err := h.invoke(ctx, "schedule", ""); err != nil {
		h.logger.Debug("scheduled tick finished with error", "error", err)
	}
}
