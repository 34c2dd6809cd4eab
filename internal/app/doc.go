// Package app holds the foreground application session: the permission screen the user returns
// to after granting permissions in system settings.
//
// Each return to the foreground creates a fresh lifecycle owner, restores it from the previous
// session's saved state and walks it to RESUMED, which refreshes the bound permission screen.
package app
