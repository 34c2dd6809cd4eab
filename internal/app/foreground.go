package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/lifecycle"
)

const sessionStateKey = "foreground_session"

// screenBinder is the part of the permission screen a session binds to.
type screenBinder interface {
	Bind(owner domain.LifecycleOwner) func()
}

// Foreground tracks the current foreground session.
type Foreground struct {
	screen screenBinder

	mu       sync.Mutex
	owner    *lifecycle.Owner
	unbind   func()
	saved    lifecycle.Snapshot
	sessions int
}

// NewForeground creates a foreground tracker. Resume must be called to open the first session.
func NewForeground(screen screenBinder) *Foreground {
	return &Foreground{screen: screen}
}

// Resume ends the current session, if any, and opens a new one restored from its saved state.
func (f *Foreground) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.closeLocked(); err != nil {
		return err
	}

	owner := lifecycle.NewOwner()
	if err := owner.RestoreState(f.saved); err != nil {
		return fmt.Errorf("restore foreground session: %w", err)
	}

	restored, ok, err := owner.SavedStateRegistry().ConsumeRestored(sessionStateKey)
	if err != nil {
		return fmt.Errorf("restore foreground session: %w", err)
	}
	if ok {
		if n, isInt := restored["sessions"].(int); isInt {
			f.sessions = n
		}
	}
	f.sessions++

	sessions := f.sessions
	if err := owner.SavedStateRegistry().RegisterProvider(sessionStateKey, func() lifecycle.Bundle {
		return lifecycle.Bundle{"sessions": sessions}
	}); err != nil {
		return fmt.Errorf("register foreground state: %w", err)
	}

	f.unbind = f.screen.Bind(owner)
	if err := owner.AdvanceAll(domain.SetupEvents...); err != nil {
		f.unbind()
		f.unbind = nil
		return fmt.Errorf("resume foreground session: %w", err)
	}
	f.owner = owner

	slog.Info("Foreground session resumed", "session", sessions)
	return nil
}

// Background saves and destroys the current session. It is a no-op without one.
func (f *Foreground) Background() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeLocked()
}

func (f *Foreground) closeLocked() error {
	if f.owner == nil {
		return nil
	}

	snapshot, err := f.owner.Save()
	if err != nil {
		return fmt.Errorf("save foreground session: %w", err)
	}
	f.saved = snapshot

	f.unbind()
	f.unbind = nil
	if err := f.owner.Teardown(); err != nil {
		return fmt.Errorf("tear down foreground session: %w", err)
	}
	f.owner = nil
	return nil
}

// State returns the lifecycle state of the current session, or StateDestroyed when backgrounded.
func (f *Foreground) State() domain.LifecycleState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owner == nil {
		return domain.StateDestroyed
	}
	return f.owner.State()
}

// Sessions counts foreground sessions opened so far, carried across sessions in saved state.
func (f *Foreground) Sessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions
}
