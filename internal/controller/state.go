package controller

import (
	"context"

	"github.com/pscheid92/overlayd/internal/domain"
)

// overlayState is a tagged union: absentState, *attachingState or *presentState.
type overlayState interface {
	name() domain.ControllerState
}

type absentState struct{}

func (absentState) name() domain.ControllerState { return domain.ControllerAbsent }

// attachingState is a create in flight for generation. A HIDE marks it draining; the surface
// it eventually produces is destroyed instead of published.
type attachingState struct {
	generation     uint64
	cancel         context.CancelFunc
	correlationID  string
	draining       bool
	showAfterDrain bool
}

func (*attachingState) name() domain.ControllerState { return domain.ControllerAttaching }

type presentState struct {
	generation uint64
	surface    domain.OverlaySurface
	lastSample int64
	unchanged  int
	stalled    bool
}

func (*presentState) name() domain.ControllerState { return domain.ControllerPresent }

func stateValue(s overlayState) float64 {
	switch s.(type) {
	case *attachingState:
		return 1
	case *presentState:
		return 2
	default:
		return 0
	}
}
