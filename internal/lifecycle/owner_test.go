package lifecycle

import (
	"errors"
	"testing"

	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoredOwner(t *testing.T) *Owner {
	t.Helper()
	o := NewOwner()
	require.NoError(t, o.RestoreState(nil))
	return o
}

func TestOwner_SetupAndTeardownSequence(t *testing.T) {
	o := restoredOwner(t)

	var seen []domain.LifecycleState
	cancel := o.Observe(func(s domain.LifecycleState) { seen = append(seen, s) })
	defer cancel()

	require.NoError(t, o.AdvanceAll(domain.SetupEvents...))
	assert.Equal(t, domain.StateResumed, o.State())

	require.NoError(t, o.AdvanceAll(domain.TeardownEvents...))
	assert.Equal(t, domain.StateDestroyed, o.State())

	assert.Equal(t, []domain.LifecycleState{
		domain.StateInitialized,
		domain.StateCreated,
		domain.StateStarted,
		domain.StateResumed,
		domain.StatePaused,
		domain.StateStopped,
		domain.StateDestroyed,
	}, seen)
}

func TestOwner_AdvanceOutOfOrder(t *testing.T) {
	tests := []struct {
		name  string
		setup []domain.LifecycleEvent
		event domain.LifecycleEvent
	}{
		{"resume before create", nil, domain.EventResume},
		{"start twice", []domain.LifecycleEvent{domain.EventCreate, domain.EventStart}, domain.EventStart},
		{"pause before resume", []domain.LifecycleEvent{domain.EventCreate, domain.EventStart}, domain.EventPause},
		{"destroy from resumed", domain.SetupEvents, domain.EventDestroy},
		{"create after destroy", append(append([]domain.LifecycleEvent{}, domain.SetupEvents...), domain.TeardownEvents...), domain.EventCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := restoredOwner(t)
			require.NoError(t, o.AdvanceAll(tt.setup...))
			before := o.State()

			err := o.Advance(tt.event)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
			assert.Equal(t, before, o.State(), "failed advance must not change state")
		})
	}
}

func TestOwner_AdvanceBeforeRestore(t *testing.T) {
	o := NewOwner()

	err := o.Advance(domain.EventCreate)
	assert.ErrorIs(t, err, domain.ErrNotRestored)
	assert.Equal(t, domain.StateInitialized, o.State())
}

func TestOwner_RestoreTwice(t *testing.T) {
	o := restoredOwner(t)
	assert.ErrorIs(t, o.RestoreState(nil), domain.ErrAlreadyRestored)

	require.NoError(t, o.Advance(domain.EventCreate))
	assert.ErrorIs(t, o.RestoreState(Snapshot{}), domain.ErrAlreadyRestored)
}

func TestOwner_ObserveDeliversCurrentState(t *testing.T) {
	o := restoredOwner(t)
	require.NoError(t, o.AdvanceAll(domain.SetupEvents...))

	var first domain.LifecycleState = -1
	cancel := o.Observe(func(s domain.LifecycleState) {
		if first == -1 {
			first = s
		}
	})
	defer cancel()

	assert.Equal(t, domain.StateResumed, first)
}

func TestOwner_ObserveCancel(t *testing.T) {
	o := restoredOwner(t)

	calls := 0
	cancel := o.Observe(func(domain.LifecycleState) { calls++ })
	cancel()

	require.NoError(t, o.Advance(domain.EventCreate))
	assert.Equal(t, 1, calls, "only the initial delivery")
}

func TestOwner_TeardownFromResumed(t *testing.T) {
	o := restoredOwner(t)
	require.NoError(t, o.AdvanceAll(domain.SetupEvents...))

	require.NoError(t, o.Teardown())
	assert.Equal(t, domain.StateDestroyed, o.State())

	require.NoError(t, o.Teardown(), "second teardown is a no-op")
}

func TestOwner_TeardownFromPartialSetup(t *testing.T) {
	o := restoredOwner(t)
	require.NoError(t, o.Advance(domain.EventCreate))

	var last domain.LifecycleState
	o.Observe(func(s domain.LifecycleState) { last = s })

	require.NoError(t, o.Teardown())
	assert.Equal(t, domain.StateDestroyed, o.State())
	assert.Equal(t, domain.StateDestroyed, last)
}

func TestOwner_TeardownFromPaused(t *testing.T) {
	o := restoredOwner(t)
	require.NoError(t, o.AdvanceAll(domain.SetupEvents...))
	require.NoError(t, o.Advance(domain.EventPause))

	require.NoError(t, o.Teardown())
	assert.Equal(t, domain.StateDestroyed, o.State())
}

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestOwner_DestroyClearsObjectStore(t *testing.T) {
	o := restoredOwner(t)
	rec := &closeRecorder{}
	o.ObjectStore().GetOrCreate("counter", func() any { return rec })
	require.NoError(t, o.AdvanceAll(domain.SetupEvents...))

	require.NoError(t, o.AdvanceAll(domain.TeardownEvents...))

	assert.True(t, rec.closed)
	assert.Zero(t, o.ObjectStore().Len())
}
