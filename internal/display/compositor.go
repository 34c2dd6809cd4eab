// Package display is an in-process compositor implementing domain.DisplayServer. It composes
// attached top-level windows into a frame buffer on a frame clock.
package display

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/metrics"
)

var (
	ErrAlreadyAttached = errors.New("window already attached")
	ErrNoFrame         = errors.New("no frame composed yet")
)

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// Options configures the compositor.
type Options struct {
	Width, Height int
	// AttachLatency delays every Attach, modelling a slow platform call.
	AttachLatency time.Duration
}

// WindowInfo describes one attached window.
type WindowInfo struct {
	ID         string           `json:"id"`
	Placement  domain.Placement `json:"placement"`
	Bounds     image.Rectangle  `json:"bounds"`
	Frames     uint64           `json:"frames"`
	AttachedAt time.Time        `json:"attached_at"`
}

type attachedWindow struct {
	window     domain.Window
	placement  domain.Placement
	attachedAt time.Time
	frames     uint64
}

// Compositor attaches windows and composes them. Safe for concurrent use.
type Compositor struct {
	clock         clockwork.Clock
	permissions   domain.PermissionChecker
	size          image.Point
	attachLatency time.Duration

	mu        sync.Mutex
	windows   []*attachedWindow
	focused   string
	lastFrame *image.RGBA
	frames    uint64
}

// NewCompositor creates a compositor. Attach is refused unless permissions grants draw-overlay.
func NewCompositor(clock clockwork.Clock, permissions domain.PermissionChecker, opts Options) *Compositor {
	if opts.Width <= 0 {
		opts.Width = 1080
	}
	if opts.Height <= 0 {
		opts.Height = 1920
	}
	return &Compositor{
		clock:         clock,
		permissions:   permissions,
		size:          image.Pt(opts.Width, opts.Height),
		attachLatency: opts.AttachLatency,
	}
}

// Attach implements domain.DisplayServer.
func (c *Compositor) Attach(ctx context.Context, w domain.Window, p domain.Placement) error {
	if p.Type == domain.WindowTypeApplicationOverlay && !c.permissions.IsGranted(domain.PermissionDrawOverlay) {
		metrics.DisplayAttachRejectionsTotal.WithLabelValues("permission").Inc()
		return fmt.Errorf("%w: %s permission not granted", domain.ErrDisplayServerRejected, domain.PermissionDrawOverlay)
	}

	if c.attachLatency > 0 {
		timer := c.clock.NewTimer(c.attachLatency)
		select {
		case <-timer.Chan():
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(w) >= 0 {
		metrics.DisplayAttachRejectionsTotal.WithLabelValues("duplicate").Inc()
		return fmt.Errorf("%w: %s", ErrAlreadyAttached, w.ID())
	}

	c.windows = append(c.windows, &attachedWindow{
		window:     w,
		placement:  p,
		attachedAt: c.clock.Now(),
	})
	metrics.DisplayAttachedWindows.Set(float64(len(c.windows)))
	slog.Debug("Window attached", "window_id", w.ID(), "x", p.X, "y", p.Y)
	return nil
}

// Detach implements domain.DisplayServer. Unknown windows are ignored.
func (c *Compositor) Detach(w domain.Window) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(w)
	if i < 0 {
		return nil
	}
	c.windows = slices.Delete(c.windows, i, i+1)
	metrics.DisplayAttachedWindows.Set(float64(len(c.windows)))
	slog.Debug("Window detached", "window_id", w.ID())
	return nil
}

func (c *Compositor) indexOf(w domain.Window) int {
	return slices.IndexFunc(c.windows, func(aw *attachedWindow) bool { return aw.window == w })
}

// SetFocus records that app gained input focus. Overlay windows are never focusable, so a focus
// change never detaches or reorders them.
func (c *Compositor) SetFocus(app string) {
	c.mu.Lock()
	prev := c.focused
	c.focused = app
	c.mu.Unlock()

	if prev != app {
		metrics.DisplayFocusChangesTotal.Inc()
		slog.Info("Focus changed", "from", prev, "to", app)
	}
}

// Focused returns the app holding input focus.
func (c *Compositor) Focused() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// Windows returns the attached windows in z-order, bottom first.
func (c *Compositor) Windows() []WindowInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]WindowInfo, 0, len(c.windows))
	for _, aw := range c.zOrdered() {
		out = append(out, WindowInfo{
			ID:         aw.window.ID(),
			Placement:  aw.placement,
			Bounds:     c.bounds(aw),
			Frames:     aw.frames,
			AttachedAt: aw.attachedAt,
		})
	}
	return out
}

// zOrdered keeps attach order within a layer and puts overlays above application windows.
func (c *Compositor) zOrdered() []*attachedWindow {
	ordered := slices.Clone(c.windows)
	slices.SortStableFunc(ordered, func(a, b *attachedWindow) int {
		return int(a.placement.Type) - int(b.placement.Type)
	})
	return ordered
}

func (c *Compositor) bounds(aw *attachedWindow) image.Rectangle {
	size := image.Pt(aw.placement.Width, aw.placement.Height)
	if aw.placement.WrapContent() {
		size = aw.window.Measure()
	}

	var origin image.Point
	switch aw.placement.Gravity {
	case domain.GravityTopRight:
		origin = image.Pt(c.size.X-aw.placement.X-size.X, aw.placement.Y)
	case domain.GravityBottomLeft:
		origin = image.Pt(aw.placement.X, c.size.Y-aw.placement.Y-size.Y)
	case domain.GravityBottomRight:
		origin = image.Pt(c.size.X-aw.placement.X-size.X, c.size.Y-aw.placement.Y-size.Y)
	default:
		origin = image.Pt(aw.placement.X, aw.placement.Y)
	}
	return image.Rectangle{Min: origin, Max: origin.Add(size)}
}

// ComposeFrame draws every attached window into a new frame and notifies each window.
func (c *Compositor) ComposeFrame() *image.RGBA {
	start := c.clock.Now()

	c.mu.Lock()
	ordered := c.zOrdered()
	c.mu.Unlock()

	frame := image.NewRGBA(image.Rectangle{Max: c.size})
	for _, aw := range ordered {
		r := c.bounds(aw)
		aw.window.Draw(frame, r.Min)
	}

	now := c.clock.Now()
	for _, aw := range ordered {
		aw.window.OnFrame(now)
	}

	c.mu.Lock()
	for _, aw := range ordered {
		// windows detached while drawing are no longer tracked
		if c.indexOf(aw.window) >= 0 {
			aw.frames++
		}
	}
	c.lastFrame = frame
	c.frames++
	c.mu.Unlock()

	metrics.DisplayFramesTotal.Inc()
	metrics.DisplayFrameDuration.Observe(c.clock.Since(start).Seconds())
	return frame
}

// Frames returns the number of composed frames.
func (c *Compositor) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// LastFrame returns the most recent frame or nil.
func (c *Compositor) LastFrame() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFrame
}

// WritePNG encodes the most recent frame.
func (c *Compositor) WritePNG(w io.Writer) error {
	frame := c.LastFrame()
	if frame == nil {
		return ErrNoFrame
	}
	return png.Encode(w, frame)
}

// Run composes a frame every interval until ctx is cancelled.
func (c *Compositor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Compositor started", "width", c.size.X, "height", c.size.Y, "frame_interval", interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Compositor stopped", "frames", c.Frames())
			return nil
		case <-ticker.Chan():
			c.ComposeFrame()
		}
	}
}
