// Package session drives a dispatcher and an entity manager from a
// datagram connection on a single goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/edgeo/drivers/dis/dis"
	"github.com/edgeo/drivers/dis/dis/entity"
)

// Errors
var (
	ErrAlreadyRunning = errors.New("session: already running")
	ErrClosed         = errors.New("session: closed")
	ErrNoDestination  = errors.New("session: no destination configured")
)

// Conn is a datagram connection
type Conn interface {
	// Receive returns one datagram. It must honor the context deadline and
	// return an error wrapping net.ErrClosed once the connection is closed.
	Receive(ctx context.Context) ([]byte, net.Addr, error)
	Send(ctx context.Context, data []byte) error
	Close() error
}

// State represents the session state
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session binds a connection to a dispatcher and an optional entity manager
type Session struct {
	opts       *sessionOptions
	conn       Conn
	dispatcher *dis.Dispatcher
	manager    *entity.Manager
	logger     *slog.Logger

	state atomic.Int32
}

// New creates a session. When manager is non-nil it is subscribed to the
// dispatcher and ticked by Run on the manager's own clock.
func New(conn Conn, dispatcher *dis.Dispatcher, manager *entity.Manager, opts ...Option) *Session {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	if manager != nil {
		manager.Subscribe(dispatcher)
	}

	return &Session{
		opts:       options,
		conn:       conn,
		dispatcher: dispatcher,
		manager:    manager,
		logger:     options.logger,
	}
}

// State returns the current state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Dispatcher returns the session dispatcher
func (s *Session) Dispatcher() *dis.Dispatcher {
	return s.dispatcher
}

// Manager returns the entity manager, or nil
func (s *Session) Manager() *entity.Manager {
	return s.manager
}

// Metrics returns the dispatcher metrics
func (s *Session) Metrics() *dis.Metrics {
	return s.dispatcher.Metrics()
}

// Run receives and dispatches datagrams in arrival order and ticks the
// entity manager every tick interval, until ctx is done. It returns nil
// on cancellation or Close, and the receive error when the connection is
// closed underneath it. Other receive errors are counted and retried at
// the next tick.
func (s *Session) Run(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if s.State() == StateClosed {
			return ErrClosed
		}
		return ErrAlreadyRunning
	}
	defer s.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))

	s.logger.Info("session started", slog.Duration("tick", s.opts.tickInterval))

	nextTick := time.Now().Add(s.opts.tickInterval)
	for {
		if ctx.Err() != nil {
			s.logger.Info("session stopped")
			return nil
		}

		if !time.Now().Before(nextTick) {
			s.tick()
			nextTick = time.Now().Add(s.opts.tickInterval)
		}

		rctx, cancel := context.WithDeadline(ctx, nextTick)
		data, _, err := s.conn.Receive(rctx)
		cancel()

		if err != nil {
			if isTimeout(err) || ctx.Err() != nil {
				continue
			}
			if s.State() == StateClosed {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.logger.Warn("connection closed", slog.String("error", err.Error()))
				return fmt.Errorf("receive: %w", err)
			}
			s.dispatcher.Metrics().ReceiveErrors.Inc()
			s.logger.Debug("receive error", slog.String("error", err.Error()))
			waitUntil(ctx, nextTick)
			continue
		}

		if err := s.dispatcher.Dispatch(data); err != nil {
			s.logger.Debug("dispatch error", slog.String("error", err.Error()))
		}
	}
}

// waitUntil blocks until t or until ctx is done
func waitUntil(ctx context.Context, t time.Time) {
	timer := time.NewTimer(time.Until(t))
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *Session) tick() {
	if s.manager == nil {
		return
	}
	if n := s.manager.Tick(s.manager.Now()); n > 0 {
		s.logger.Debug("expired remote entities", slog.Int("count", n))
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Send encodes and transmits one PDU
func (s *Session) Send(ctx context.Context, pdu dis.PDU) error {
	if s.State() == StateClosed {
		return ErrClosed
	}

	data, err := s.dispatcher.Codec().Encode(pdu)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok && s.opts.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.sendTimeout)
		defer cancel()
	}

	if err := s.conn.Send(ctx, data); err != nil {
		return fmt.Errorf("send %s: %w", pdu.PDUHeader().PDUType, err)
	}

	metrics := s.dispatcher.Metrics()
	metrics.PDUsSent.Inc()
	metrics.BytesSent.Add(int64(len(data)))
	metrics.RecordActivity()
	return nil
}

// Close closes the connection; a running Run returns shortly after
func (s *Session) Close() error {
	if State(s.state.Swap(int32(StateClosed))) == StateClosed {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	s.logger.Info("session closed")
	return nil
}
