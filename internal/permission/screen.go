package permission

import (
	"sync"

	"github.com/pscheid92/overlayd/internal/domain"
)

// Status is one row of the permission screen.
type Status struct {
	Kind    domain.PermissionKind `json:"kind"`
	Granted bool                  `json:"granted"`
}

// Screen caches permission values for display and rechecks them whenever its owner resumes.
type Screen struct {
	checker domain.PermissionChecker

	mu        sync.Mutex
	values    map[domain.PermissionKind]bool
	refreshes int
}

// NewScreen creates a screen and loads the current values.
func NewScreen(checker domain.PermissionChecker) *Screen {
	s := &Screen{checker: checker}
	s.Refresh()
	return s
}

// Bind rechecks permissions every time owner reports RESUMED. The returned func stops observing.
func (s *Screen) Bind(owner domain.LifecycleOwner) func() {
	return owner.Observe(func(state domain.LifecycleState) {
		if state == domain.StateResumed {
			s.Refresh()
		}
	})
}

// Refresh reloads every permission from the checker.
func (s *Screen) Refresh() {
	values := make(map[domain.PermissionKind]bool, len(domain.AllPermissions))
	for _, k := range domain.AllPermissions {
		values[k] = s.checker.IsGranted(k)
	}

	s.mu.Lock()
	s.values = values
	s.refreshes++
	s.mu.Unlock()
}

// Statuses returns the cached values in display order.
func (s *Screen) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Status, 0, len(domain.AllPermissions))
	for _, k := range domain.AllPermissions {
		out = append(out, Status{Kind: k, Granted: s.values[k]})
	}
	return out
}

// Refreshes counts reloads, including the initial one.
func (s *Screen) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}
