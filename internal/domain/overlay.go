package domain

import (
	"context"
	"time"
)

// OverlaySurface is a live, attached overlay owned by the controller.
type OverlaySurface interface {
	ID() string
	Counter() int64
	LifecycleState() LifecycleState
	// Destroy tears the surface down exactly once; later calls are no-ops.
	Destroy()
}

// SurfaceFactory creates fully attached surfaces or fails without leaving anything attached.
type SurfaceFactory interface {
	NewSurface(ctx context.Context) (OverlaySurface, error)
}

// ControllerState is the externally visible controller state.
type ControllerState string

const (
	ControllerAbsent    ControllerState = "absent"
	ControllerAttaching ControllerState = "attaching"
	ControllerPresent   ControllerState = "present"
)

// OverlayStatus is a point-in-time view of the controller.
type OverlayStatus struct {
	State           ControllerState `json:"state"`
	Running         bool            `json:"running"`
	SurfaceID       string          `json:"surface_id,omitempty"`
	Lifecycle       string          `json:"lifecycle,omitempty"`
	Counter         int64           `json:"counter"`
	Stalled         bool            `json:"stalled"`
	Generation      uint64          `json:"generation"`
	SurfacesCreated uint64          `json:"surfaces_created"`
	LastError       string          `json:"last_error,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Indicator is the persistent, silent notification shown while the background boundary is active.
type Indicator interface {
	Show(ctx context.Context) error
	Remove(ctx context.Context) error
	Active() bool
}
