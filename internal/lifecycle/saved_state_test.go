package lifecycle

import (
	"testing"

	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavedStateRegistry_RequiresRestore(t *testing.T) {
	o := NewOwner()
	reg := o.SavedStateRegistry()

	err := reg.RegisterProvider("badge", func() Bundle { return nil })
	assert.ErrorIs(t, err, domain.ErrNotRestored)

	_, _, err = reg.ConsumeRestored("badge")
	assert.ErrorIs(t, err, domain.ErrNotRestored)

	_, err = o.Save()
	assert.ErrorIs(t, err, domain.ErrNotRestored)
}

func TestSavedStateRegistry_SaveAndRestoreRoundTrip(t *testing.T) {
	first := restoredOwner(t)
	require.NoError(t, first.SavedStateRegistry().RegisterProvider("badge", func() Bundle {
		return Bundle{"counter": int64(42)}
	}))

	snap, err := first.Save()
	require.NoError(t, err)

	second := NewOwner()
	require.NoError(t, second.RestoreState(snap))

	b, ok, err := second.SavedStateRegistry().ConsumeRestored("badge")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(42), b["counter"])

	_, ok, err = second.SavedStateRegistry().ConsumeRestored("badge")
	require.NoError(t, err)
	assert.False(t, ok, "restored bundles are consumed once")
}

func TestSavedStateRegistry_UnconsumedStateSurvivesSave(t *testing.T) {
	o := NewOwner()
	require.NoError(t, o.RestoreState(Snapshot{"other": {"x": 1}}))

	snap, err := o.Save()
	require.NoError(t, err)
	assert.Equal(t, 1, snap["other"]["x"])
}

func TestSavedStateRegistry_DuplicateProvider(t *testing.T) {
	reg := restoredOwner(t).SavedStateRegistry()
	require.NoError(t, reg.RegisterProvider("badge", func() Bundle { return nil }))

	assert.Error(t, reg.RegisterProvider("badge", func() Bundle { return nil }))

	reg.UnregisterProvider("badge")
	assert.NoError(t, reg.RegisterProvider("badge", func() Bundle { return nil }))
}

func TestObjectStore_GetOrCreate(t *testing.T) {
	s := NewObjectStore()
	calls := 0
	create := func() any { calls++; return calls }

	assert.Equal(t, 1, s.GetOrCreate("k", create))
	assert.Equal(t, 1, s.GetOrCreate("k", create))
	assert.Equal(t, 1, calls)

	s.Clear()
	assert.Equal(t, 2, s.GetOrCreate("k", create))
	assert.Zero(t, s.Len(), "cleared store does not retain new objects")
}

func TestObjectStore_UniqueScopes(t *testing.T) {
	assert.NotEqual(t, NewOwner().ObjectStore().ID(), NewOwner().ObjectStore().ID())
}
