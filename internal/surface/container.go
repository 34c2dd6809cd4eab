package surface

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/lifecycle"
)

var errNoTreeOwner = errors.New("container has no lifecycle owner")

// Container is the window group handed to the display server. It carries the three
// tree-scoped capabilities that mounted content looks up: lifecycle owner, saved-state
// registry and object store.
type Container struct {
	id string

	mu       sync.Mutex
	owner    domain.LifecycleOwner
	registry *lifecycle.SavedStateRegistry
	store    *lifecycle.ObjectStore
	children []*Content
}

func newContainer(id string) *Container {
	return &Container{id: id}
}

// ID implements domain.Window.
func (c *Container) ID() string { return c.id }

func (c *Container) setTreeOwners(owner domain.LifecycleOwner, registry *lifecycle.SavedStateRegistry, store *lifecycle.ObjectStore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = owner
	c.registry = registry
	c.store = store
}

func (c *Container) treeOwners() (domain.LifecycleOwner, *lifecycle.SavedStateRegistry, *lifecycle.ObjectStore, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owner == nil || c.registry == nil || c.store == nil {
		return nil, nil, nil, errNoTreeOwner
	}
	return c.owner, c.registry, c.store, nil
}

// AddChild mounts content inside the container.
func (c *Container) AddChild(content *Content) error {
	owner, registry, store, err := c.treeOwners()
	if err != nil {
		return fmt.Errorf("add child to %s: %w", c.id, err)
	}
	if err := content.mount(owner, registry, store); err != nil {
		return fmt.Errorf("mount content in %s: %w", c.id, err)
	}

	c.mu.Lock()
	c.children = append(c.children, content)
	c.mu.Unlock()
	return nil
}

// removeChildren unmounts every child; each unmount joins its update task.
func (c *Container) removeChildren() {
	c.mu.Lock()
	children := c.children
	c.children = nil
	c.mu.Unlock()

	for _, child := range children {
		child.unmount()
	}
}

func (c *Container) snapshotChildren() []*Content {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Content, len(c.children))
	copy(out, c.children)
	return out
}

// Measure implements domain.Window: children are stacked vertically.
func (c *Container) Measure() image.Point {
	var size image.Point
	for _, child := range c.snapshotChildren() {
		m := child.Measure()
		size.X = max(size.X, m.X)
		size.Y += m.Y
	}
	return size
}

// Draw implements domain.Window.
func (c *Container) Draw(dst draw.Image, origin image.Point) {
	at := origin
	for _, child := range c.snapshotChildren() {
		child.Draw(dst, at)
		at.Y += child.Measure().Y
	}
}

// OnFrame implements domain.Window.
func (c *Container) OnFrame(frameTime time.Time) {
	for _, child := range c.snapshotChildren() {
		child.onFrame(frameTime)
	}
}
