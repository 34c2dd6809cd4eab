package domain

// LifecycleState is the ordered lifecycle of a detached surface.
type LifecycleState int

const (
	StateInitialized LifecycleState = iota // constructed, no event applied yet
	StateCreated
	StateStarted
	StateResumed
	StatePaused
	StateStopped
	StateDestroyed
)

func (s LifecycleState) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateResumed:
		return "resumed"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// LifecycleEvent moves a lifecycle owner one step forward.
type LifecycleEvent int

const (
	EventCreate LifecycleEvent = iota
	EventStart
	EventResume
	EventPause
	EventStop
	EventDestroy
)

func (e LifecycleEvent) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventStart:
		return "start"
	case EventResume:
		return "resume"
	case EventPause:
		return "pause"
	case EventStop:
		return "stop"
	case EventDestroy:
		return "destroy"
	default:
		return "unknown"
	}
}

// Source returns the only state from which e may be applied.
func (e LifecycleEvent) Source() LifecycleState {
	return LifecycleState(e)
}

// Target returns the state reached by applying e.
func (e LifecycleEvent) Target() LifecycleState {
	return LifecycleState(e) + 1
}

// SetupEvents and TeardownEvents are the canonical sequences a detached surface walks through.
var (
	SetupEvents    = []LifecycleEvent{EventCreate, EventStart, EventResume}
	TeardownEvents = []LifecycleEvent{EventPause, EventStop, EventDestroy}
)

// LifecycleObserver is notified synchronously with the owner's state.
type LifecycleObserver func(state LifecycleState)

// LifecycleOwner is the tree-scoped lifecycle capability content looks up from its container.
type LifecycleOwner interface {
	State() LifecycleState
	Observe(fn LifecycleObserver) (cancel func())
}
