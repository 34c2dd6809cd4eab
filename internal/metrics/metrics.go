package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redis Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// PubSubMessagesReceived tracks command bus messages by outcome
	PubSubMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pubsub_messages_received_total",
			Help: "Command bus messages received by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)
)

// Circuit Breaker Metrics
var (
	// CircuitBreakerState tracks breaker state per component (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)

	// CircuitBreakerStateChanges counts breaker transitions by target state
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"component", "to_state"},
	)
)

// Overlay Surface Metrics
var (
	// SurfacesCreatedTotal tracks surfaces that were fully attached and mounted
	SurfacesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_surfaces_created_total",
			Help: "Total overlay surfaces fully attached and mounted",
		},
	)

	// SurfacesDestroyedTotal tracks surface teardowns (including rollbacks of failed creates)
	SurfacesDestroyedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_surfaces_destroyed_total",
			Help: "Total overlay surface teardowns",
		},
	)

	// AttachFailuresTotal tracks failed surface creations by reason
	AttachFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_attach_failures_total",
			Help: "Failed overlay creations by reason (rejected/cancelled/mount/error)",
		},
		[]string{"reason"},
	)

	// UpdateTicksTotal tracks counter increments across all surfaces
	UpdateTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_update_ticks_total",
			Help: "Total update task ticks",
		},
	)

	// UpdateTaskPanicsTotal tracks update tasks cancelled by a panicking tick
	UpdateTaskPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_update_task_panics_total",
			Help: "Update tasks cancelled by a recovered panic",
		},
	)

	// OverlayCounterValue tracks the last sampled counter of the present surface
	OverlayCounterValue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overlay_counter_value",
			Help: "Last sampled counter value of the present overlay",
		},
	)

	// OverlayStallsTotal tracks surfaces whose counter stopped advancing while present
	OverlayStallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_stalls_total",
			Help: "Present overlays whose counter was unchanged across consecutive sample windows",
		},
	)
)

// Controller Metrics
var (
	// ControllerCommandsTotal tracks processed commands by command and outcome
	ControllerCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controller_commands_total",
			Help: "Processed control commands by command and outcome (applied/stale/deferred)",
		},
		[]string{"command", "outcome"},
	)

	// ControllerState tracks the controller state (0=absent, 1=attaching, 2=present)
	ControllerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "controller_state",
			Help: "Overlay controller state (0=absent, 1=attaching, 2=present)",
		},
	)

	// ControllerCommandChannelDepth tracks current command channel depth
	ControllerCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "controller_command_channel_depth",
			Help: "Current command channel depth",
		},
	)

	// ControllerIdleSignalsTotal tracks boundary shutdown signals
	ControllerIdleSignalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "controller_idle_signals_total",
			Help: "Times the background boundary signalled shutdown",
		},
	)

	// ControllerPanicsTotal tracks controller panic recoveries
	ControllerPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "controller_panics_total",
			Help: "Total controller panic recoveries",
		},
	)

	// ControllerStopTimeoutsTotal tracks controller stops that exceeded timeout
	ControllerStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "controller_stop_timeouts_total",
			Help: "Controller stops that exceeded timeout",
		},
	)

	// IndicatorActive tracks whether the foreground indicator is shown
	IndicatorActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indicator_active",
			Help: "Whether the background-active indicator is shown (0/1)",
		},
	)
)

// Display Server Metrics
var (
	// DisplayAttachedWindows tracks windows currently attached to the compositor
	DisplayAttachedWindows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "display_attached_windows",
			Help: "Windows currently attached to the compositor",
		},
	)

	// DisplayAttachRejectionsTotal tracks attach calls refused by the compositor
	DisplayAttachRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "display_attach_rejections_total",
			Help: "Attach calls refused by the compositor by reason",
		},
		[]string{"reason"},
	)

	// DisplayFramesTotal tracks composed frames
	DisplayFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "display_frames_total",
			Help: "Total composed frames",
		},
	)

	// DisplayFrameDuration tracks frame composition time in seconds
	DisplayFrameDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "display_frame_duration_seconds",
			Help:    "Frame composition duration in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .016, .025, .05},
		},
	)

	// DisplayFocusChangesTotal tracks simulated focus changes between apps
	DisplayFocusChangesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "display_focus_changes_total",
			Help: "Focus changes reported to the compositor",
		},
	)
)

// Control Boundary Metrics
var (
	// ControlCommandsReceivedTotal tracks commands arriving at the background boundary by transport
	ControlCommandsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "control_commands_received_total",
			Help: "Commands received at the control boundary by transport and command",
		},
		[]string{"transport", "command"},
	)

	// ToggleCommandsSentTotal tracks commands sent by the toggle loop
	ToggleCommandsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toggle_commands_sent_total",
			Help: "Commands sent by the toggle loop by command and status",
		},
		[]string{"command", "status"},
	)

	// ControlRequestsRateLimitedTotal tracks API requests rejected by the rate limiter
	ControlRequestsRateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "control_requests_rate_limited_total",
			Help: "API requests rejected by the rate limiter by request class",
		},
		[]string{"class"},
	)

	// StatusStreamClients tracks connected status stream websocket clients
	StatusStreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "status_stream_clients",
			Help: "Connected status stream clients",
		},
	)
)
