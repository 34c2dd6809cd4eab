package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/overlayd/internal/domain"
	"github.com/pscheid92/overlayd/internal/lifecycle"
	"github.com/pscheid92/overlayd/internal/metrics"
)

// DefaultPlacement is a top-left, wrap-content, non-focusable translucent overlay at (100, 100).
func DefaultPlacement() domain.Placement {
	return domain.Placement{
		X:       100,
		Y:       100,
		Gravity: domain.GravityTopLeft,
		Type:    domain.WindowTypeApplicationOverlay,
		Flags:   domain.FlagNotFocusable | domain.FlagAltFocusableIME | domain.FlagTranslucent,
	}
}

// Config controls how surfaces are built.
type Config struct {
	Placement    domain.Placement
	TickInterval time.Duration
	Style        BadgeStyle
}

// DefaultConfig returns the stock badge at the default placement.
func DefaultConfig() Config {
	return Config{
		Placement:    DefaultPlacement(),
		TickInterval: DefaultTickInterval,
		Style:        DefaultBadgeStyle(),
	}
}

// Builder creates overlay surfaces on one display server.
type Builder struct {
	display domain.DisplayServer
	clock   clockwork.Clock
	config  Config
}

// NewBuilder creates a builder. Zero fields in cfg fall back to DefaultConfig values.
func NewBuilder(display domain.DisplayServer, clock clockwork.Clock, cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.Style.Face == nil {
		cfg.Style = def.Style
	}
	return &Builder{display: display, clock: clock, config: cfg}
}

// NewSurface implements domain.SurfaceFactory.
func (b *Builder) NewSurface(ctx context.Context) (domain.OverlaySurface, error) {
	s, err := b.Create(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create builds, attaches and mounts a new surface. On failure everything that was set up
// is torn down before returning.
func (b *Builder) Create(ctx context.Context) (*Surface, error) {
	id := uuid.New().String()

	// 1. container and content handles
	container := newContainer(id)
	content := newContent(b.clock, b.config.TickInterval, b.config.Style)

	s := &Surface{
		id:        id,
		display:   b.display,
		container: container,
		content:   content,
	}

	// 2-3. the owner must report RESUMED before anything can observe it
	owner := lifecycle.NewOwner()
	s.owner = owner
	if err := owner.RestoreState(nil); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("restore overlay %s: %w", id, err)
	}
	if err := owner.AdvanceAll(domain.SetupEvents...); err != nil {
		s.Destroy()
		return nil, fmt.Errorf("resume overlay %s: %w", id, err)
	}

	// 4. publish owner, registry and a fresh store on the container
	container.setTreeOwners(owner, owner.SavedStateRegistry(), owner.ObjectStore())

	if err := ctx.Err(); err != nil {
		s.Destroy()
		metrics.AttachFailuresTotal.WithLabelValues("cancelled").Inc()
		return nil, fmt.Errorf("create overlay %s: %w", id, err)
	}

	// 5. attach to the display server
	if err := b.display.Attach(ctx, container, b.config.Placement); err != nil {
		s.Destroy()
		metrics.AttachFailuresTotal.WithLabelValues(attachFailureReason(ctx, err)).Inc()
		return nil, fmt.Errorf("attach overlay %s: %w", id, err)
	}

	// 6. mount content; this starts the update task
	if err := container.AddChild(content); err != nil {
		s.Destroy()
		metrics.AttachFailuresTotal.WithLabelValues("mount").Inc()
		return nil, fmt.Errorf("mount overlay %s: %w", id, err)
	}

	metrics.SurfacesCreatedTotal.Inc()
	slog.DebugContext(ctx, "Overlay surface created", "surface_id", id)
	return s, nil
}

func attachFailureReason(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil:
		return "cancelled"
	case errors.Is(err, domain.ErrDisplayServerRejected):
		return "rejected"
	default:
		return "error"
	}
}

// Surface is one attached overlay.
type Surface struct {
	id      string
	display domain.DisplayServer
	content *Content
	owner   *lifecycle.Owner

	mu          sync.Mutex
	container   *Container
	destroyOnce sync.Once
}

// ID implements domain.OverlaySurface.
func (s *Surface) ID() string { return s.id }

// Counter implements domain.OverlaySurface.
func (s *Surface) Counter() int64 { return s.content.Counter() }

// LifecycleState implements domain.OverlaySurface.
func (s *Surface) LifecycleState() domain.LifecycleState {
	if s.owner == nil {
		return domain.StateInitialized
	}
	return s.owner.State()
}

// Content exposes the mounted badge.
func (s *Surface) Content() *Content { return s.content }

// Attached reports whether the surface still holds its container.
func (s *Surface) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container != nil
}

// Destroy detaches the container, unmounts the content (joining its update task), releases the
// container and walks the owner through PAUSE, STOP, DESTROY. Only the first call has an effect.
func (s *Surface) Destroy() {
	s.destroyOnce.Do(s.destroy)
}

func (s *Surface) destroy() {
	s.mu.Lock()
	container := s.container
	s.container = nil
	s.mu.Unlock()

	if container != nil {
		if err := s.display.Detach(container); err != nil {
			slog.Warn("Failed to detach overlay", "surface_id", s.id, "error", err)
		}
		container.removeChildren()
	}

	if s.owner != nil {
		if err := s.owner.Teardown(); err != nil {
			slog.Error("Overlay lifecycle teardown failed", "surface_id", s.id, "error", err)
		}
	}

	metrics.SurfacesDestroyedTotal.Inc()
	slog.Debug("Overlay surface destroyed", "surface_id", s.id, "counter", s.content.Counter())
}
