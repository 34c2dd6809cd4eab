package surface

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 100 * time.Millisecond

type fakeDisplay struct {
	mu          sync.Mutex
	attachErr   error
	attached    map[string]domain.Window
	placements  []domain.Placement
	detachCalls int
	onAttach    func(w domain.Window)
	onDetach    func(w domain.Window)
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{attached: make(map[string]domain.Window)}
}

func (d *fakeDisplay) Attach(_ context.Context, w domain.Window, p domain.Placement) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attachErr != nil {
		return d.attachErr
	}
	if d.onAttach != nil {
		d.onAttach(w)
	}
	d.attached[w.ID()] = w
	d.placements = append(d.placements, p)
	return nil
}

func (d *fakeDisplay) Detach(w domain.Window) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detachCalls++
	if d.onDetach != nil {
		d.onDetach(w)
	}
	delete(d.attached, w.ID())
	return nil
}

func (d *fakeDisplay) attachedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.attached)
}

func newTestBuilder(display domain.DisplayServer, clock clockwork.Clock) *Builder {
	cfg := DefaultConfig()
	cfg.TickInterval = testInterval
	return NewBuilder(display, clock, cfg)
}

func advanceAndWait(t *testing.T, clock *clockwork.FakeClock, s *Surface, want int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(testInterval)
	require.Eventually(t, func() bool { return s.Counter() == want }, time.Second, time.Millisecond)
}

func TestCreate_CounterStartsAtZeroAndIncrements(t *testing.T) {
	clock := clockwork.NewFakeClock()
	display := newFakeDisplay()

	s, err := newTestBuilder(display, clock).Create(context.Background())
	require.NoError(t, err)
	defer s.Destroy()

	assert.Equal(t, int64(0), s.Counter())
	assert.Equal(t, domain.StateResumed, s.LifecycleState())
	assert.Equal(t, 1, display.attachedCount())

	for want := int64(1); want <= 3; want++ {
		advanceAndWait(t, clock, s, want)
	}
}

func TestCreate_UsesOverlayPlacement(t *testing.T) {
	display := newFakeDisplay()

	s, err := NewBuilder(display, clockwork.NewFakeClock(), Config{Placement: DefaultPlacement()}).Create(context.Background())
	require.NoError(t, err)
	defer s.Destroy()

	require.Len(t, display.placements, 1)
	p := display.placements[0]
	assert.Equal(t, 100, p.X)
	assert.Equal(t, 100, p.Y)
	assert.True(t, p.WrapContent())
	assert.Equal(t, domain.GravityTopLeft, p.Gravity)
	assert.Equal(t, domain.WindowTypeApplicationOverlay, p.Type)
	assert.True(t, p.Flags.Has(domain.FlagNotFocusable|domain.FlagAltFocusableIME|domain.FlagTranslucent))
}

func TestCreate_ContentFirstObservesResumed(t *testing.T) {
	display := newFakeDisplay()
	var stateAtAttach domain.LifecycleState
	display.onAttach = func(w domain.Window) {
		owner, _, _, err := w.(*Container).treeOwners()
		require.NoError(t, err)
		stateAtAttach = owner.State()
	}

	s, err := newTestBuilder(display, clockwork.NewFakeClock()).Create(context.Background())
	require.NoError(t, err)
	defer s.Destroy()

	assert.Equal(t, domain.StateResumed, stateAtAttach)
	assert.Equal(t, domain.StateResumed, s.Content().FirstObservedState())
	assert.True(t, s.Content().Mounted())
}

func TestDestroy_DestroyedOnlyAfterDetach(t *testing.T) {
	display := newFakeDisplay()
	var stateAtDetach domain.LifecycleState
	display.onDetach = func(w domain.Window) {
		owner, _, _, err := w.(*Container).treeOwners()
		require.NoError(t, err)
		stateAtDetach = owner.State()
	}

	s, err := newTestBuilder(display, clockwork.NewFakeClock()).Create(context.Background())
	require.NoError(t, err)

	s.Destroy()

	assert.Equal(t, domain.StateResumed, stateAtDetach)
	assert.Equal(t, domain.StateDestroyed, s.LifecycleState())
	assert.Equal(t, 0, display.attachedCount())
	assert.False(t, s.Attached())
	assert.False(t, s.Content().Mounted())
}

func TestDestroy_NoTicksAfterReturn(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s, err := newTestBuilder(newFakeDisplay(), clock).Create(context.Background())
	require.NoError(t, err)

	advanceAndWait(t, clock, s, 1)

	// A tick is due right now; destroy must still win.
	clock.Advance(testInterval - time.Millisecond)
	s.Destroy()
	after := s.Counter()

	clock.Advance(10 * testInterval)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, s.Counter())
}

func TestDestroy_Idempotent(t *testing.T) {
	display := newFakeDisplay()
	s, err := newTestBuilder(display, clockwork.NewFakeClock()).Create(context.Background())
	require.NoError(t, err)

	s.Destroy()
	s.Destroy()

	assert.Equal(t, 1, display.detachCalls)
	assert.Equal(t, domain.StateDestroyed, s.LifecycleState())
}

func TestCreate_RejectedRollsBack(t *testing.T) {
	display := newFakeDisplay()
	display.attachErr = fmt.Errorf("%w: draw-overlay not granted", domain.ErrDisplayServerRejected)

	s, err := newTestBuilder(display, clockwork.NewFakeClock()).Create(context.Background())

	require.ErrorIs(t, err, domain.ErrDisplayServerRejected)
	assert.Nil(t, s)
	assert.Equal(t, 0, display.attachedCount())
	assert.Equal(t, 1, display.detachCalls)
}

func TestCreate_CancelledContext(t *testing.T) {
	display := newFakeDisplay()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBuilder(display, clockwork.NewFakeClock()).Create(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, display.attachedCount())
}

func TestNewSurface_NoTypedNilOnError(t *testing.T) {
	display := newFakeDisplay()
	display.attachErr = domain.ErrDisplayServerRejected

	s, err := newTestBuilder(display, clockwork.NewFakeClock()).NewSurface(context.Background())

	require.Error(t, err)
	assert.True(t, s == nil)
}

func TestCreate_UniqueSurfaces(t *testing.T) {
	b := newTestBuilder(newFakeDisplay(), clockwork.NewFakeClock())

	a, err := b.Create(context.Background())
	require.NoError(t, err)
	defer a.Destroy()
	c, err := b.Create(context.Background())
	require.NoError(t, err)
	defer c.Destroy()

	assert.NotEqual(t, a.ID(), c.ID())
}
