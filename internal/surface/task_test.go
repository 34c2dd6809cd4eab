package surface

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTask_TicksEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var n atomic.Int64

	task := startUpdateTask(clock, testInterval, func() { n.Add(1) })
	defer task.stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for want := int64(1); want <= 5; want++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(testInterval)
		require.Eventually(t, func() bool { return n.Load() == want }, time.Second, time.Millisecond)
	}
}

func TestUpdateTask_NoTickBeforeInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var n atomic.Int64

	task := startUpdateTask(clock, testInterval, func() { n.Add(1) })
	defer task.stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(testInterval - time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(0), n.Load())
}

func TestUpdateTask_StopJoins(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var n atomic.Int64

	task := startUpdateTask(clock, testInterval, func() { n.Add(1) })
	task.stop()
	task.stop()

	select {
	case <-task.done:
	default:
		t.Fatal("task goroutine still running after stop")
	}

	clock.Advance(5 * testInterval)
	assert.Equal(t, int64(0), n.Load())
}

func TestUpdateTask_PanicCancelsTask(t *testing.T) {
	clock := clockwork.NewFakeClock()
	before := testutil.ToFloat64(metrics.UpdateTaskPanicsTotal)

	task := startUpdateTask(clock, testInterval, func() { panic("boom") })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(testInterval)

	select {
	case <-task.done:
	case <-time.After(time.Second):
		t.Fatal("panicking task did not exit")
	}
	task.stop()

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UpdateTaskPanicsTotal))
}
