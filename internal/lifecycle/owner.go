package lifecycle

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pscheid92/overlayd/internal/domain"
)

// Owner is the lifecycle, saved-state and object-store owner of one detached surface.
type Owner struct {
	mu        sync.Mutex
	state     domain.LifecycleState
	observers map[int]domain.LifecycleObserver
	nextID    int

	registry *SavedStateRegistry
	store    *ObjectStore
}

// NewOwner creates an owner in StateInitialized. RestoreState must be called before Advance.
func NewOwner() *Owner {
	return &Owner{
		state:     domain.StateInitialized,
		observers: make(map[int]domain.LifecycleObserver),
		registry:  newSavedStateRegistry(),
		store:     NewObjectStore(),
	}
}

// State returns the current lifecycle state.
func (o *Owner) State() domain.LifecycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SavedStateRegistry returns the owner's state-restoration registry.
func (o *Owner) SavedStateRegistry() *SavedStateRegistry { return o.registry }

// ObjectStore returns the transient object store scoped to this owner.
func (o *Owner) ObjectStore() *ObjectStore { return o.store }

// RestoreState initializes the saved-state registry from snapshot (nil for a fresh start).
func (o *Owner) RestoreState(snapshot Snapshot) error {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	if state != domain.StateInitialized {
		return fmt.Errorf("restore in state %s: %w", state, domain.ErrAlreadyRestored)
	}
	return o.registry.restore(snapshot)
}

// Save collects every registered provider into a snapshot.
func (o *Owner) Save() (Snapshot, error) {
	return o.registry.save()
}

// Observe registers fn and calls it immediately with the current state.
// The returned cancel func removes the observer.
func (o *Owner) Observe(fn domain.LifecycleObserver) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.observers[id] = fn
	current := o.state
	o.mu.Unlock()

	fn(current)

	return func() {
		o.mu.Lock()
		delete(o.observers, id)
		o.mu.Unlock()
	}
}

// Advance applies one forward transition. It fails with ErrInvalidTransition unless the
// owner is in the event's only allowed source state.
func (o *Owner) Advance(event domain.LifecycleEvent) error {
	if !o.registry.Restored() {
		return fmt.Errorf("advance %s: %w", event, domain.ErrNotRestored)
	}

	o.mu.Lock()
	if o.state != event.Source() {
		from := o.state
		o.mu.Unlock()
		return fmt.Errorf("%s from %s: %w", event, from, domain.ErrInvalidTransition)
	}
	o.state = event.Target()
	state := o.state
	observers := make([]domain.LifecycleObserver, 0, len(o.observers))
	for _, fn := range o.observers {
		observers = append(observers, fn)
	}
	o.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}

	if state == domain.StateDestroyed {
		o.store.Clear()
	}

	slog.Debug("Lifecycle advanced", "event", event.String(), "state", state.String())
	return nil
}

// AdvanceAll applies events in order and stops at the first failure.
func (o *Owner) AdvanceAll(events ...domain.LifecycleEvent) error {
	for _, ev := range events {
		if err := o.Advance(ev); err != nil {
			return err
		}
	}
	return nil
}

// Teardown applies whatever remains of PAUSE, STOP, DESTROY from the current state.
// An owner that never reached RESUMED has nothing to pause or stop and moves straight to
// DESTROYED. Teardown on a destroyed owner is a no-op.
func (o *Owner) Teardown() error {
	o.mu.Lock()
	state := o.state
	o.mu.Unlock()

	switch {
	case state == domain.StateDestroyed:
		return nil
	case state < domain.StateResumed:
		o.finish()
		return nil
	}

	for _, ev := range domain.TeardownEvents {
		if o.State() > ev.Source() {
			continue
		}
		if err := o.Advance(ev); err != nil {
			return err
		}
	}
	return nil
}

func (o *Owner) finish() {
	o.mu.Lock()
	o.state = domain.StateDestroyed
	observers := make([]domain.LifecycleObserver, 0, len(o.observers))
	for _, fn := range o.observers {
		observers = append(observers, fn)
	}
	o.mu.Unlock()

	for _, fn := range observers {
		fn(domain.StateDestroyed)
	}
	o.store.Clear()
}
