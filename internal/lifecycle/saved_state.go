package lifecycle

import (
	"fmt"
	"maps"
	"sync"

	"github.com/pscheid92/overlayd/internal/domain"
)

// Bundle is one provider's saved values.
type Bundle map[string]any

// Snapshot is the full saved state of an owner, keyed by provider.
type Snapshot map[string]Bundle

// StateProvider produces a bundle when the owner saves its state.
type StateProvider func() Bundle

// SavedStateRegistry lets content register providers and consume restored bundles.
type SavedStateRegistry struct {
	mu        sync.Mutex
	restored  bool
	pending   Snapshot
	providers map[string]StateProvider
}

func newSavedStateRegistry() *SavedStateRegistry {
	return &SavedStateRegistry{providers: make(map[string]StateProvider)}
}

// Restored reports whether restore has run.
func (r *SavedStateRegistry) Restored() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.restored
}

func (r *SavedStateRegistry) restore(snapshot Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.restored {
		return domain.ErrAlreadyRestored
	}
	r.restored = true
	r.pending = make(Snapshot, len(snapshot))
	for k, b := range snapshot {
		r.pending[k] = maps.Clone(b)
	}
	return nil
}

// RegisterProvider adds a provider under key. Keys are unique.
func (r *SavedStateRegistry) RegisterProvider(key string, p StateProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.restored {
		return fmt.Errorf("register %q: %w", key, domain.ErrNotRestored)
	}
	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("provider %q already registered", key)
	}
	r.providers[key] = p
	return nil
}

// UnregisterProvider removes the provider under key, if any.
func (r *SavedStateRegistry) UnregisterProvider(key string) {
	r.mu.Lock()
	delete(r.providers, key)
	r.mu.Unlock()
}

// ConsumeRestored returns the restored bundle for key once; later calls return false.
func (r *SavedStateRegistry) ConsumeRestored(key string) (Bundle, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.restored {
		return nil, false, fmt.Errorf("consume %q: %w", key, domain.ErrNotRestored)
	}
	b, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	return b, ok, nil
}

func (r *SavedStateRegistry) save() (Snapshot, error) {
	r.mu.Lock()
	if !r.restored {
		r.mu.Unlock()
		return nil, fmt.Errorf("save: %w", domain.ErrNotRestored)
	}
	providers := maps.Clone(r.providers)
	out := make(Snapshot, len(r.pending)+len(providers))
	// Unconsumed restored state survives another save round.
	for k, b := range r.pending {
		out[k] = maps.Clone(b)
	}
	r.mu.Unlock()

	for k, p := range providers {
		out[k] = p()
	}
	return out, nil
}
