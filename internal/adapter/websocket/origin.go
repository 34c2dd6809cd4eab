package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// NewCheckOrigin returns the upgrader's origin check. Requests without an Origin header
// (overlayctl, curl) and pages served by the daemon itself always pass. allowed lists extra
// origins as scheme://host[:port]; in development any loopback origin passes too.
func NewCheckOrigin(isDevelopment bool, allowed ...string) func(r *http.Request) bool {
	allowedSet := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		if u, err := url.Parse(a); err == nil && u.Host != "" {
			allowedSet[strings.ToLower(u.Scheme+"://"+u.Host)] = true
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			slog.Warn("Malformed WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
			return false
		}

		switch {
		case strings.EqualFold(u.Host, r.Host):
			return true
		case allowedSet[strings.ToLower(u.Scheme+"://"+u.Host)]:
			return true
		case isDevelopment && isLoopback(u.Hostname()):
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
