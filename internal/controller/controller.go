package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/metrics"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
)

const (
	DefaultQueueSize      = 64
	DefaultSampleInterval = time.Second

	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second

	// stallWindows is how many consecutive unchanged samples flag a present surface as stalled.
	stallWindows = 2
)

// controllerCmd is the command interface for the Controller actor.
type controllerCmd interface{ isControllerCmd() }

type baseControllerCmd struct{}

func (baseControllerCmd) isControllerCmd() {}

type deliverCmd struct {
	baseControllerCmd
	command       domain.Command
	correlationID string
}

type statusCmd struct {
	baseControllerCmd
	replyChannel chan domain.OverlayStatus
}

type stopCmd struct {
	baseControllerCmd
}

type createResult struct {
	generation uint64
	surface    domain.OverlaySurface
	err        error
}

// Options tunes a Controller. Zero values fall back to defaults.
type Options struct {
	QueueSize      int
	SampleInterval time.Duration
	// OnIdle is called on the actor goroutine whenever the controller returns to ABSENT after a
	// HIDE, a failed create, or a HIDE with nothing to hide. It must not block. overlayd only logs
	// here and keeps serving its HTTP boundary; the indicator removal and Running() report the idle state.
	OnIdle func()
}

// Controller is the single writer over the ABSENT/ATTACHING/PRESENT state.
type Controller struct {
	cmdCh          chan controllerCmd
	results        chan createResult
	clock          clockwork.Clock
	factory        domain.SurfaceFactory
	indicator      domain.Indicator
	onIdle         func()
	sampleInterval time.Duration
	stopTimeout    time.Duration
	done           chan struct{}
	stopOnce       sync.Once
	running        atomic.Bool

	// owned by the run goroutine
	state      overlayState
	generation uint64
	created    uint64
	lastErr    error
	updatedAt  time.Time
}

// New creates a controller and starts its actor goroutine.
func New(factory domain.SurfaceFactory, indicator domain.Indicator, clock clockwork.Clock, opts Options) *Controller {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = DefaultSampleInterval
	}

	c := &Controller{
		cmdCh:          make(chan controllerCmd, opts.QueueSize),
		results:        make(chan createResult, 1),
		clock:          clock,
		factory:        factory,
		indicator:      indicator,
		onIdle:         opts.OnIdle,
		sampleInterval: opts.SampleInterval,
		stopTimeout:    stopTimeout,
		done:           make(chan struct{}),
		state:          absentState{},
		updatedAt:      clock.Now(),
	}
	metrics.ControllerState.Set(0)
	go c.run()
	return c
}

// Send implements domain.CommandSender. It returns once cmd is queued; processing is asynchronous.
func (c *Controller) Send(ctx context.Context, cmd domain.Command) error {
	if cmd != domain.CommandShow && cmd != domain.CommandHide {
		return fmt.Errorf("%w: %d", domain.ErrUnknownCommand, cmd)
	}

	select {
	case <-c.done:
		return domain.ErrControllerStopped
	default:
	}

	corrID, _ := correlation.ID(ctx)
	select {
	case c.cmdCh <- deliverCmd{command: cmd, correlationID: corrID}:
		return nil
	case <-c.done:
		return domain.ErrControllerStopped
	case <-ctx.Done():
		return fmt.Errorf("queue %s command: %w", cmd, ctx.Err())
	}
}

// Status returns a point-in-time view of the controller.
func (c *Controller) Status(ctx context.Context) (domain.OverlayStatus, error) {
	replyCh := make(chan domain.OverlayStatus, 1)

	select {
	case c.cmdCh <- statusCmd{replyChannel: replyCh}:
	case <-c.done:
		return domain.OverlayStatus{}, domain.ErrControllerStopped
	case <-ctx.Done():
		return domain.OverlayStatus{}, ctx.Err()
	}

	// Use timeout to prevent blocking forever if the actor is stuck
	timer := c.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case status := <-replyCh:
		return status, nil
	case <-c.done:
		return domain.OverlayStatus{}, domain.ErrControllerStopped
	case <-ctx.Done():
		return domain.OverlayStatus{}, ctx.Err()
	case <-timer.Chan():
		return domain.OverlayStatus{}, fmt.Errorf("status query timed out after %v", commandTimeout)
	}
}

// Running reports whether a surface exists or is being created. It is derived from the state,
// never tracked separately.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Done is closed once the actor goroutine has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Stop destroys any surface (waiting for an in-flight create), removes the indicator and stops
// the actor. Blocks until the actor has exited or the stop timeout is reached.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		select {
		case c.cmdCh <- stopCmd{}:
		case <-c.done:
			return
		}

		timeout := c.clock.NewTimer(c.stopTimeout)
		defer timeout.Stop()

		select {
		case <-c.done:
			slog.Info("Overlay controller stopped gracefully")
		case <-timeout.Chan():
			slog.Warn("Overlay controller stop timeout exceeded", "timeout", c.stopTimeout)
			metrics.ControllerStopTimeoutsTotal.Inc()
		}
	})
}

func (c *Controller) run() {
	defer close(c.done)

	// Panic recovery wrapper
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Overlay controller panic recovered", "panic", r)
			metrics.ControllerPanicsTotal.Inc()
			c.teardown(context.Background())
		}
	}()

	sampler := c.clock.NewTicker(c.sampleInterval)
	defer sampler.Stop()

	for {
		select {
		case cmd := <-c.cmdCh:
			switch cm := cmd.(type) {
			case deliverCmd:
				c.handleCommand(cm)
			case statusCmd:
				cm.replyChannel <- c.status()
			case stopCmd:
				c.teardown(context.Background())
				return
			default:
				slog.Warn("Overlay controller received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		case res := <-c.results:
			c.handleResult(res)
		case <-sampler.Chan():
			c.handleSample()
		}
	}
}

func commandContext(correlationID string) context.Context {
	ctx := context.Background()
	if correlationID != "" {
		ctx = correlation.WithID(ctx, correlationID)
	}
	return ctx
}

func (c *Controller) handleCommand(cm deliverCmd) {
	ctx := commandContext(cm.correlationID)
	outcome := "applied"

	switch st := c.state.(type) {
	case absentState:
		if cm.command == domain.CommandShow {
			c.beginAttach(ctx, cm.correlationID)
		} else {
			// Nothing to hide, but the boundary still must not linger.
			outcome = "stale"
			c.signalIdle(ctx)
		}

	case *attachingState:
		switch {
		case cm.command == domain.CommandShow && st.draining:
			st.showAfterDrain = true
			outcome = "deferred"
		case cm.command == domain.CommandShow:
			outcome = "stale"
		case st.draining:
			if !st.showAfterDrain {
				outcome = "stale"
			}
			st.showAfterDrain = false
		default:
			st.draining = true
			st.cancel()
			slog.InfoContext(ctx, "Hide received while attaching, cancelling create", "generation", st.generation)
		}

	case *presentState:
		if cm.command == domain.CommandShow {
			outcome = "stale"
		} else {
			st.surface.Destroy()
			slog.InfoContext(ctx, "Overlay hidden", "surface_id", st.surface.ID(), "generation", st.generation, "counter", st.surface.Counter())
			c.enterAbsent(ctx)
		}
	}

	if outcome == "stale" {
		slog.DebugContext(ctx, "Ignoring command", "command", cm.command.String(), "state", c.state.name(), "reason", domain.ErrStaleCommand)
	}
	metrics.ControllerCommandsTotal.WithLabelValues(cm.command.String(), outcome).Inc()
}

func (c *Controller) beginAttach(ctx context.Context, correlationID string) {
	c.generation++
	generation := c.generation

	if err := c.indicator.Show(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to show background indicator", "error", err)
	}

	attachCtx, cancel := context.WithCancel(ctx)
	c.setState(&attachingState{generation: generation, cancel: cancel, correlationID: correlationID})
	slog.DebugContext(ctx, "Creating overlay", "generation", generation)

	go c.create(attachCtx, generation)
}

// create runs off the actor goroutine. results has room for the single in-flight create, so the
// send never blocks even if the actor has already exited.
func (c *Controller) create(ctx context.Context, generation uint64) {
	res := createResult{generation: generation}
	defer func() {
		if r := recover(); r != nil {
			res.surface = nil
			res.err = fmt.Errorf("surface factory panic: %v", r)
		}
		c.results <- res
	}()

	res.surface, res.err = c.factory.NewSurface(ctx)
}

func (c *Controller) handleResult(res createResult) {
	st, ok := c.state.(*attachingState)
	if !ok || st.generation != res.generation {
		if res.surface != nil {
			res.surface.Destroy()
		}
		slog.Warn("Discarded create result for an earlier generation", "generation", res.generation)
		return
	}
	st.cancel()
	ctx := commandContext(st.correlationID)

	if st.draining {
		if res.surface != nil {
			res.surface.Destroy()
		}
		slog.InfoContext(ctx, "Drained cancelled create", "generation", st.generation, "had_surface", res.surface != nil)
		c.enterAbsent(ctx)
		if st.showAfterDrain {
			c.beginAttach(ctx, st.correlationID)
		}
		return
	}

	if res.err != nil {
		c.lastErr = res.err
		if errors.Is(res.err, domain.ErrDisplayServerRejected) {
			slog.WarnContext(ctx, "Overlay rejected by display server", "generation", st.generation, "error", res.err)
		} else {
			slog.ErrorContext(ctx, "Overlay create failed", "generation", st.generation, "error", res.err)
		}
		c.enterAbsent(ctx)
		return
	}

	c.created++
	c.lastErr = nil
	c.setState(&presentState{
		generation: st.generation,
		surface:    res.surface,
		lastSample: res.surface.Counter(),
	})
	slog.InfoContext(ctx, "Overlay shown", "surface_id", res.surface.ID(), "generation", st.generation)
}

func (c *Controller) enterAbsent(ctx context.Context) {
	c.setState(absentState{})
	if err := c.indicator.Remove(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to remove background indicator", "error", err)
	}
	c.signalIdle(ctx)
}

func (c *Controller) signalIdle(ctx context.Context) {
	metrics.ControllerIdleSignalsTotal.Inc()
	slog.DebugContext(ctx, "Background boundary idle")
	if c.onIdle != nil {
		c.onIdle()
	}
}

// handleSample flags a present surface whose counter did not move for stallWindows samples.
func (c *Controller) handleSample() {
	depth := len(c.cmdCh)
	metrics.ControllerCommandChannelDepth.Set(float64(depth))
	if depth > cap(c.cmdCh)*4/5 {
		slog.Warn("Command channel near capacity", "depth", depth, "capacity", cap(c.cmdCh))
	}

	st, ok := c.state.(*presentState)
	if !ok {
		return
	}

	value := st.surface.Counter()
	metrics.OverlayCounterValue.Set(float64(value))

	if value != st.lastSample {
		if st.stalled {
			slog.Info("Overlay counter advancing again", "surface_id", st.surface.ID(), "counter", value)
		}
		st.lastSample = value
		st.unchanged = 0
		st.stalled = false
		return
	}

	st.unchanged++
	if st.unchanged >= stallWindows && !st.stalled {
		st.stalled = true
		metrics.OverlayStallsTotal.Inc()
		slog.Warn("Overlay counter stalled",
			"surface_id", st.surface.ID(),
			"counter", value,
			"lifecycle", st.surface.LifecycleState().String(),
			"windows", st.unchanged,
		)
	}
}

// reapLateResult destroys the surface of a create that outlived teardown. At most one create is
// ever in flight, so one receive is enough.
func (c *Controller) reapLateResult() {
	res := <-c.results
	if res.surface != nil {
		res.surface.Destroy()
		slog.Info("Destroyed overlay created after shutdown", "surface_id", res.surface.ID(), "generation", res.generation)
	}
}

func (c *Controller) status() domain.OverlayStatus {
	status := domain.OverlayStatus{
		State:           c.state.name(),
		Running:         c.running.Load(),
		Generation:      c.generation,
		SurfacesCreated: c.created,
		UpdatedAt:       c.updatedAt,
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	if st, ok := c.state.(*presentState); ok {
		status.SurfaceID = st.surface.ID()
		status.Lifecycle = st.surface.LifecycleState().String()
		status.Counter = st.surface.Counter()
		status.Stalled = st.stalled
	}
	return status
}

func (c *Controller) setState(s overlayState) {
	c.state = s
	c.running.Store(s.name() != domain.ControllerAbsent)
	c.updatedAt = c.clock.Now()
	metrics.ControllerState.Set(stateValue(s))
}

// teardown runs on stop or after a panic. An in-flight create is cancelled and awaited so its
// surface cannot outlive the controller.
func (c *Controller) teardown(ctx context.Context) {
	switch st := c.state.(type) {
	case *attachingState:
		st.cancel()
		timer := c.clock.NewTimer(c.stopTimeout)
		defer timer.Stop()
		select {
		case res := <-c.results:
			if res.surface != nil {
				res.surface.Destroy()
			}
		case <-timer.Chan():
			slog.Warn("Create still in flight at shutdown, destroying it once it completes", "generation", st.generation)
			go c.reapLateResult()
		}
	case *presentState:
		st.surface.Destroy()
		slog.Info("Overlay destroyed on shutdown", "surface_id", st.surface.ID())
	}

	c.setState(absentState{})
	if err := c.indicator.Remove(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to remove background indicator", "error", err)
	}
}
