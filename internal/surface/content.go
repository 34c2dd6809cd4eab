package surface

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/lifecycle"
)

const (
	counterModelKey  = "overlay.counter"
	counterStateKey  = "overlay.counter"
	counterBundleKey = "value"
)

var errAlreadyMounted = errors.New("content already mounted")

// counterModel is the badge's transient state, kept in the owner's object store.
type counterModel struct {
	value atomic.Int64
}

// Content is the live counter badge. Its update task starts as soon as it is mounted.
type Content struct {
	clock    clockwork.Clock
	interval time.Duration
	style    BadgeStyle

	mu            sync.Mutex
	model         *counterModel
	task          *updateTask
	stopObserving func()
	registry      *lifecycle.SavedStateRegistry
	mounted       bool
	firstObserved domain.LifecycleState
	lastObserved  domain.LifecycleState
	firstFrameAt  time.Time

	frames atomic.Uint64
}

func newContent(clock clockwork.Clock, interval time.Duration, style BadgeStyle) *Content {
	return &Content{
		clock:         clock,
		interval:      interval,
		style:         style,
		model:         &counterModel{},
		firstObserved: -1,
	}
}

func (c *Content) mount(owner domain.LifecycleOwner, registry *lifecycle.SavedStateRegistry, store *lifecycle.ObjectStore) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return errAlreadyMounted
	}
	c.mounted = true
	c.mu.Unlock()

	model, err := bindCounter(registry, store)
	if err != nil {
		c.mu.Lock()
		c.mounted = false
		c.mu.Unlock()
		return err
	}

	// Observe delivers the current state synchronously, so it runs outside c.mu.
	stopObserving := owner.Observe(c.observe)
	task := startUpdateTask(c.clock, c.interval, func() { model.value.Add(1) })

	c.mu.Lock()
	c.model = model
	c.registry = registry
	c.stopObserving = stopObserving
	c.task = task
	c.mu.Unlock()
	return nil
}

func bindCounter(registry *lifecycle.SavedStateRegistry, store *lifecycle.ObjectStore) (*counterModel, error) {
	model, ok := store.GetOrCreate(counterModelKey, func() any { return &counterModel{} }).(*counterModel)
	if !ok {
		return nil, fmt.Errorf("object %q has unexpected type", counterModelKey)
	}

	restored, found, err := registry.ConsumeRestored(counterStateKey)
	if err != nil {
		return nil, err
	}
	if found {
		if v, ok := restored[counterBundleKey].(int64); ok {
			model.value.Store(v)
		}
	}

	err = registry.RegisterProvider(counterStateKey, func() lifecycle.Bundle {
		return lifecycle.Bundle{counterBundleKey: model.value.Load()}
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}

func (c *Content) observe(state domain.LifecycleState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.firstObserved == -1 {
		c.firstObserved = state
	}
	c.lastObserved = state
}

func (c *Content) unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	task := c.task
	stopObserving := c.stopObserving
	registry := c.registry
	c.task = nil
	c.stopObserving = nil
	c.mu.Unlock()

	if task != nil {
		task.stop()
	}
	if stopObserving != nil {
		stopObserving()
	}
	if registry != nil {
		registry.UnregisterProvider(counterStateKey)
	}
}

// Counter returns the current counter value.
func (c *Content) Counter() int64 {
	c.mu.Lock()
	model := c.model
	c.mu.Unlock()
	return model.value.Load()
}

// Mounted reports whether the content is attached to a container.
func (c *Content) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}

// FirstObservedState is the lifecycle state delivered when the content started observing its owner.
// It is -1 if the content never mounted.
func (c *Content) FirstObservedState() domain.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstObserved
}

// FirstFrameAt is when the display server first composed this content; zero if never.
func (c *Content) FirstFrameAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstFrameAt
}

// Frames counts composed frames that included this content.
func (c *Content) Frames() uint64 { return c.frames.Load() }

func (c *Content) text() string {
	return strconv.FormatInt(c.Counter(), 10)
}

// Measure returns the badge size for the current counter.
func (c *Content) Measure() image.Point {
	return c.style.Measure(c.text())
}

// Draw renders the badge.
func (c *Content) Draw(dst draw.Image, origin image.Point) {
	c.style.Draw(dst, origin, c.text())
}

func (c *Content) onFrame(frameTime time.Time) {
	c.frames.Add(1)
	c.mu.Lock()
	if c.firstFrameAt.IsZero() {
		c.firstFrameAt = frameTime
	}
	c.mu.Unlock()
}
