// Package permission models the platform permissions the foreground app asks for and the status
// screen that shows them.
package permission

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pscheid92/overlayd/internal/domain"
)

// SettingsAction is the platform settings page that lets the user grant a permission.
type SettingsAction struct {
	Kind   domain.PermissionKind `json:"kind"`
	Action string                `json:"action"`
}

var settingsActions = map[domain.PermissionKind]string{
	domain.PermissionDrawOverlay:          "settings/manage-overlay-permission",
	domain.PermissionNotificationListener: "settings/notification-listener",
	domain.PermissionBatteryUnrestricted:  "settings/ignore-battery-optimization",
}

// Store holds granted permissions. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	granted map[domain.PermissionKind]bool
}

// NewStore creates a store with the given kinds granted.
func NewStore(granted ...domain.PermissionKind) *Store {
	s := &Store{granted: make(map[domain.PermissionKind]bool, len(domain.AllPermissions))}
	for _, k := range granted {
		s.granted[k] = true
	}
	return s
}

// IsGranted implements domain.PermissionChecker.
func (s *Store) IsGranted(kind domain.PermissionKind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted[kind]
}

// Grant marks kind as granted.
func (s *Store) Grant(kind domain.PermissionKind) {
	s.set(kind, true)
}

// Revoke marks kind as not granted.
func (s *Store) Revoke(kind domain.PermissionKind) {
	s.set(kind, false)
}

func (s *Store) set(kind domain.PermissionKind, granted bool) {
	s.mu.Lock()
	changed := s.granted[kind] != granted
	s.granted[kind] = granted
	s.mu.Unlock()

	if changed {
		slog.Info("Permission changed", "kind", kind, "granted", granted)
	}
}

// OpenSettings returns the settings page for kind.
func (s *Store) OpenSettings(kind domain.PermissionKind) (SettingsAction, error) {
	action, ok := settingsActions[kind]
	if !ok {
		return SettingsAction{}, fmt.Errorf("no settings page for permission %q", kind)
	}
	slog.Debug("Opening permission settings", "kind", kind, "action", action)
	return SettingsAction{Kind: kind, Action: action}, nil
}
