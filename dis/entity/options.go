package entity

import (
	"log/slog"
	"time"
)

// DefaultHeartbeat is the silence tolerated before a remote entity expires
const DefaultHeartbeat = 5 * time.Second

// Container groups instantiated remote entities; it is opaque to the engine
type Container interface{}

// EntityEvent is called when a remote entity is created or updated
type EntityEvent func(e *RemoteEntity)

// RemovalEvent is called after a remote entity leaves the map and before its handle is released
type RemovalEvent func(e *RemoteEntity, reason RemovalReason)

// managerOptions holds configuration for a Manager
type managerOptions struct {
	heartbeat time.Duration
	container Container
	clock     func() time.Time
	metrics   *Metrics
	logger    *slog.Logger

	onCreated []EntityEvent
	onUpdated []EntityEvent
	onRemoved []RemovalEvent
}

// defaultOptions returns the default manager options
func defaultOptions() *managerOptions {
	return &managerOptions{
		heartbeat: DefaultHeartbeat,
		clock:     time.Now,
		logger:    slog.Default(),
	}
}

// Option is a functional option for configuring a Manager
type Option func(*managerOptions)

// WithHeartbeat sets the heartbeat interval
func WithHeartbeat(d time.Duration) Option {
	return func(o *managerOptions) {
		if d > 0 {
			o.heartbeat = d
		}
	}
}

// WithHeartbeatSeconds sets the heartbeat interval in fractional seconds
func WithHeartbeatSeconds(s float64) Option {
	return WithHeartbeat(time.Duration(s * float64(time.Second)))
}

// WithContainer sets the container passed to the instantiator
func WithContainer(c Container) Option {
	return func(o *managerOptions) {
		o.container = c
	}
}

// WithClock sets the clock used for PDUs delivered through a dispatcher
// and for ticks driven by a session
func WithClock(clock func() time.Time) Option {
	return func(o *managerOptions) {
		o.clock = clock
	}
}

// WithMetrics shares a metrics instance with the manager
func WithMetrics(m *Metrics) Option {
	return func(o *managerOptions) {
		o.metrics = m
	}
}

// WithLogger sets the logger for the manager
func WithLogger(logger *slog.Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// OnCreated registers a callback for newly discovered remote entities
func OnCreated(fn EntityEvent) Option {
	return func(o *managerOptions) {
		o.onCreated = append(o.onCreated, fn)
	}
}

// OnUpdated registers a callback for updates to known remote entities
func OnUpdated(fn EntityEvent) Option {
	return func(o *managerOptions) {
		o.onUpdated = append(o.onUpdated, fn)
	}
}

// OnRemoved registers a callback for removed remote entities
func OnRemoved(fn RemovalEvent) Option {
	return func(o *managerOptions) {
		o.onRemoved = append(o.onRemoved, fn)
	}
}
