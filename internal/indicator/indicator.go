// Package indicator implements the persistent, silent notification shown while the background
// boundary is active.
package indicator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pscheid92/overlayd/internal/metrics"
)

// Channel describes the notification channel the indicator posts to.
type Channel struct {
	ID         string
	Name       string
	Importance string
	Silent     bool
}

// DefaultChannel is low importance and makes no sound or vibration.
func DefaultChannel() Channel {
	return Channel{
		ID:         "overlay_service",
		Name:       "Overlay service",
		Importance: "low",
		Silent:     true,
	}
}

// LogIndicator records the indicator through structured logs and the indicator_active gauge.
type LogIndicator struct {
	channel Channel

	mu             sync.Mutex
	channelCreated bool
	active         bool
	shows          int
}

// NewLogIndicator creates an indicator. The channel is set up lazily on first Show.
func NewLogIndicator(channel Channel) *LogIndicator {
	return &LogIndicator{channel: channel}
}

// Show posts the indicator. Showing an active indicator is a no-op.
func (i *LogIndicator) Show(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.channelCreated {
		slog.InfoContext(ctx, "Notification channel created",
			"channel_id", i.channel.ID, "importance", i.channel.Importance, "silent", i.channel.Silent)
		i.channelCreated = true
	}
	if i.active {
		return nil
	}

	i.active = true
	i.shows++
	metrics.IndicatorActive.Set(1)
	slog.InfoContext(ctx, "Background indicator shown", "channel_id", i.channel.ID)
	return nil
}

// Remove withdraws the indicator. Removing an inactive indicator is a no-op.
func (i *LogIndicator) Remove(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.active {
		return nil
	}
	i.active = false
	metrics.IndicatorActive.Set(0)
	slog.InfoContext(ctx, "Background indicator removed", "channel_id", i.channel.ID)
	return nil
}

// Active implements domain.Indicator.
func (i *LogIndicator) Active() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// Shows counts how many times the indicator went from hidden to shown.
func (i *LogIndicator) Shows() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.shows
}
