package domain

import "fmt"

// PermissionKind names a platform permission the foreground app asks the user for.
type PermissionKind string

const (
	PermissionDrawOverlay          PermissionKind = "draw-overlay"
	PermissionNotificationListener PermissionKind = "notification-listener"
	PermissionBatteryUnrestricted  PermissionKind = "battery-unrestricted"
)

// AllPermissions lists every kind in display order.
var AllPermissions = []PermissionKind{
	PermissionDrawOverlay,
	PermissionNotificationListener,
	PermissionBatteryUnrestricted,
}

// ParsePermissionKind validates a kind name.
func ParsePermissionKind(s string) (PermissionKind, error) {
	for _, k := range AllPermissions {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown permission kind %q", s)
}

// PermissionChecker answers whether a permission is currently granted.
type PermissionChecker interface {
	IsGranted(kind PermissionKind) bool
}
