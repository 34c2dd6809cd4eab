package surface

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/metrics"
)

// DefaultTickInterval is how often the badge counter increments.
const DefaultTickInterval = 100 * time.Millisecond

// updateTask waits one interval, runs tick, and repeats until stopped.
type updateTask struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func startUpdateTask(clock clockwork.Clock, interval time.Duration, tick func()) *updateTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &updateTask{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run(ctx, clock, interval, tick)
	return t
}

func (t *updateTask) run(ctx context.Context, clock clockwork.Clock, interval time.Duration, tick func()) {
	defer close(t.done)

	// A tick that panics cannot reschedule itself; treat it as cancellation.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Update task panic recovered, task cancelled", "panic", r)
			metrics.UpdateTaskPanicsTotal.Inc()
		}
	}()

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// Both cases may be ready; cancellation wins.
			if ctx.Err() != nil {
				return
			}
			tick()
			metrics.UpdateTicksTotal.Inc()
		}
	}
}

// stop cancels the task and blocks until its goroutine has exited.
func (t *updateTask) stop() {
	t.stopOnce.Do(t.cancel)
	<-t.done
}
