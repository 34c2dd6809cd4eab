package domain

import (
	"context"
	"image"
	"image/draw"
	"time"
)

// WindowType is the display-server layer class of a window.
type WindowType int

const (
	WindowTypeApplication WindowType = iota
	WindowTypeApplicationOverlay
)

// WindowFlags describe input and rendering behavior of an attached window.
type WindowFlags uint32

const (
	FlagNotFocusable WindowFlags = 1 << iota
	FlagAltFocusableIME
	FlagTranslucent
)

// Has reports whether all bits of f2 are set.
func (f WindowFlags) Has(f2 WindowFlags) bool { return f&f2 == f2 }

// Gravity anchors a window's offset.
type Gravity int

const (
	GravityTopLeft Gravity = iota
	GravityTopRight
	GravityBottomLeft
	GravityBottomRight
)

// Placement is how a window is attached: fixed offset, sized to content when Width/Height are zero.
type Placement struct {
	X, Y    int
	Width   int // 0 = wrap content
	Height  int // 0 = wrap content
	Gravity Gravity
	Type    WindowType
	Flags   WindowFlags
}

// WrapContent reports whether the window is sized to its content.
func (p Placement) WrapContent() bool { return p.Width == 0 && p.Height == 0 }

// Window is what a display server composes. Implementations must be safe for concurrent use
// because the display server renders from its own frame loop.
type Window interface {
	ID() string
	// Measure returns the content size used for wrap-content placement.
	Measure() image.Point
	// Draw renders the window into dst with its top-left corner at origin.
	Draw(dst draw.Image, origin image.Point)
	// OnFrame is called after each composed frame that included this window.
	OnFrame(frameTime time.Time)
}

// DisplayServer attaches top-level windows outside any application window tree.
type DisplayServer interface {
	// Attach registers w. It may block; it returns an error wrapping ErrDisplayServerRejected
	// when the platform refuses the window (for example without overlay permission).
	Attach(ctx context.Context, w Window, p Placement) error
	// Detach removes w. Detaching an unknown or already detached window is a no-op.
	Detach(w Window) error
}
