package domain

import "errors"

var (
	ErrInvalidTransition     = errors.New("invalid lifecycle transition")
	ErrAlreadyRestored       = errors.New("saved state already restored")
	ErrNotRestored           = errors.New("saved state not restored")
	ErrDisplayServerRejected = errors.New("display server rejected window")
	ErrControllerStopped     = errors.New("overlay controller stopped")
	ErrCoolingDown           = errors.New("toggle is cooling down")
	ErrUnknownCommand        = errors.New("unknown command")

	// ErrStaleCommand classifies SHOW while a surface exists and HIDE while none does.
	// Both are no-ops; the error is only used for logging and metrics labels.
	ErrStaleCommand = errors.New("stale command")
)
