// Package toggle drives SHOW/HIDE cycles from a single user-visible started flag.
package toggle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/metrics"
	"github.com/pscheid92/overlayd/internal/platform/correlation"
)

const (
	DefaultCadence  = time.Second
	DefaultCooldown = 2 * time.Second
)

// Options tunes a Loop. Zero values fall back to defaults.
type Options struct {
	Cadence  time.Duration
	Cooldown time.Duration
}

// Loop sends SHOW, waits, sends HIDE, waits, and repeats while started. The started flag is
// private to the loop.
type Loop struct {
	sender   domain.CommandSender
	clock    clockwork.Clock
	cadence  time.Duration
	cooldown time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	started     bool
	coolingDown bool
	running     bool
	done        chan struct{}
}

// New creates a stopped loop.
func New(sender domain.CommandSender, clock clockwork.Clock, opts Options) *Loop {
	if opts.Cadence <= 0 {
		opts.Cadence = DefaultCadence
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		sender:   sender,
		clock:    clock,
		cadence:  opts.Cadence,
		cooldown: opts.Cooldown,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Toggle flips the started flag and returns its new value. Turning the loop off disables the
// trigger for the cooldown; toggling while disabled returns domain.ErrCoolingDown.
func (l *Loop) Toggle(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.coolingDown {
		return l.started, domain.ErrCoolingDown
	}

	l.started = !l.started
	if l.started {
		// a loop still finishing its last HIDE simply keeps going
		if !l.running {
			l.running = true
			l.done = make(chan struct{})
			go l.run(l.done)
		}
		slog.InfoContext(ctx, "Toggle loop started", "cadence", l.cadence)
		return true, nil
	}

	l.coolingDown = true
	l.clock.AfterFunc(l.cooldown, func() {
		l.mu.Lock()
		l.coolingDown = false
		l.mu.Unlock()
	})
	slog.InfoContext(ctx, "Toggle loop stopping", "cooldown", l.cooldown)
	return false, nil
}

// Started returns the flag.
func (l *Loop) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

// Enabled reports whether the trigger accepts a toggle.
func (l *Loop) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.coolingDown
}

// Running reports whether the loop goroutine is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// ButtonLabel is the trigger caption. It keeps reading STOP until the cooldown after stopping
// has passed.
func (l *Loop) ButtonLabel() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started && !l.coolingDown {
		return "START"
	}
	return "STOP"
}

// Wait blocks until the loop goroutine has exited or ctx is done.
func (l *Loop) Wait(ctx context.Context) error {
	l.mu.Lock()
	done := l.done
	l.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close aborts the loop without finishing the current cycle and waits for it to exit.
func (l *Loop) Close() {
	l.cancel()
	_ = l.Wait(context.Background())
}

func (l *Loop) run(done chan struct{}) {
	defer close(done)

	for {
		ctx := correlation.WithID(l.ctx, correlation.NewID())

		l.send(ctx, domain.CommandShow)
		if !l.wait() {
			l.exit()
			return
		}
		l.send(ctx, domain.CommandHide)
		if !l.wait() {
			l.exit()
			return
		}

		// The flag check and giving up running share one critical section, so a Toggle that turns
		// the loop back on either keeps this goroutine going or starts a new one.
		l.mu.Lock()
		if !l.started {
			l.running = false
			l.mu.Unlock()
			slog.InfoContext(ctx, "Toggle loop finished")
			return
		}
		l.mu.Unlock()
	}
}

func (l *Loop) exit() {
	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

func (l *Loop) send(ctx context.Context, cmd domain.Command) {
	if err := l.sender.Send(ctx, cmd); err != nil {
		metrics.ToggleCommandsSentTotal.WithLabelValues(cmd.String(), "error").Inc()
		slog.WarnContext(ctx, "Failed to send command", "command", cmd.String(), "error", err)
		return
	}
	metrics.ToggleCommandsSentTotal.WithLabelValues(cmd.String(), "ok").Inc()
	slog.DebugContext(ctx, "Command sent", "command", cmd.String())
}

func (l *Loop) wait() bool {
	timer := l.clock.NewTimer(l.cadence)
	select {
	case <-timer.Chan():
		return true
	case <-l.ctx.Done():
		timer.Stop()
		return false
	}
}
