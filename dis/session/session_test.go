package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeo/drivers/dis/dis"
	"github.com/edgeo/drivers/dis/dis/entity"
)

var errConnClosed = errors.New("fake conn closed")

type fakeConn struct {
	in     chan []byte
	mu     sync.Mutex
	sent   [][]byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case data := <-c.in:
		return data, &net.UDPAddr{IP: net.IPv4(10, 0, 0, 1), Port: dis.DefaultPort}, nil
	case <-c.closed:
		return nil, nil, errConnClosed
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func (c *fakeConn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type nopHandle struct{}

func (nopHandle) Release() {}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestCodec(t *testing.T) *dis.Codec {
	t.Helper()
	codec, err := dis.NewCodec()
	require.NoError(t, err)
	return codec
}

func TestSession_RunTracksAndExpiresEntities(t *testing.T) {
	codec := newTestCodec(t)
	conn := newFakeConn()

	var now atomic.Int64
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now.Store(t0.UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()).UTC() }

	created := make(chan dis.EntityID, 1)
	removed := make(chan entity.RemovalReason, 1)

	matcher := entity.NewMatcher(entity.NewNode(0, "root", "generic"))
	mgr := entity.NewManager(matcher,
		entity.InstantiatorFunc(func(entity.Prototype, *dis.EntityStatePDU, entity.Container) (entity.Handle, error) {
			return nopHandle{}, nil
		}),
		entity.WithClock(clock),
		entity.WithLogger(quiet),
		entity.OnCreated(func(e *entity.RemoteEntity) { created <- e.ID }),
		entity.OnRemoved(func(_ *entity.RemoteEntity, r entity.RemovalReason) { removed <- r }),
	)

	s := New(conn, dis.NewDispatcher(codec, dis.WithLogger(quiet)), mgr,
		WithTickInterval(5*time.Millisecond),
		WithLogger(quiet),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	id := dis.EntityID{Site: 1, Application: 2, Entity: 3}
	data, err := codec.Encode(dis.NewEntityStatePDU(dis.ProtocolVersion7, 1, id, dis.EntityType{Kind: dis.KindPlatform}))
	require.NoError(t, err)
	conn.in <- data

	select {
	case got := <-created:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("entity was not created")
	}

	now.Store(t0.Add(entity.DefaultHeartbeat + 100*time.Millisecond).UnixNano())

	select {
	case r := <-removed:
		assert.Equal(t, entity.RemovedExpired, r)
	case <-time.After(2 * time.Second):
		t.Fatal("entity did not expire")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, int64(1), s.Metrics().PDUsDecoded.Value())
}

func TestSession_RunTwice(t *testing.T) {
	conn := newFakeConn()
	s := New(conn, dis.NewDispatcher(newTestCodec(t)), nil, WithLogger(quiet))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.State() == StateRunning }, 2*time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Run(ctx), ErrAlreadyRunning)

	cancel()
	assert.NoError(t, <-done)
}

func TestSession_CloseStopsRun(t *testing.T) {
	conn := newFakeConn()
	s := New(conn, dis.NewDispatcher(newTestCodec(t)), nil, WithLogger(quiet))

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	require.Eventually(t, func() bool { return s.State() == StateRunning }, 2*time.Second, time.Millisecond)

	require.NoError(t, s.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
	assert.ErrorIs(t, s.Run(context.Background()), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestSession_Send(t *testing.T) {
	codec := newTestCodec(t)
	conn := newFakeConn()
	s := New(conn, dis.NewDispatcher(codec), nil, WithLogger(quiet))

	sig := dis.NewSignalPDU(dis.ProtocolVersion7, 1, dis.RadioID{Entity: dis.EntityID{Site: 1}, Radio: 1})
	sig.Data = []byte{1, 2, 3, 4, 5}
	require.NoError(t, s.Send(context.Background(), sig))
	require.Equal(t, 1, conn.sentCount())

	got, err := codec.Decode(conn.sent[0])
	require.NoError(t, err)
	assert.Equal(t, sig.Data, got.(*dis.SignalPDU).Data)
	assert.Equal(t, int64(1), s.Metrics().PDUsSent.Value())
	assert.Equal(t, int64(40), s.Metrics().BytesSent.Value())

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Send(context.Background(), sig), ErrClosed)
}

func TestSession_SendRejectsInvalidPDU(t *testing.T) {
	conn := newFakeConn()
	s := New(conn, dis.NewDispatcher(newTestCodec(t)), nil, WithLogger(quiet))

	sig := dis.NewSignalPDU(dis.ProtocolVersion7, 1, dis.RadioID{})
	sig.Data = make([]byte, 9000)
	assert.ErrorIs(t, s.Send(context.Background(), sig), dis.ErrPDUTooLarge)
	assert.Equal(t, 0, conn.sentCount())
}

type failingConn struct {
	err   error
	calls atomic.Int64
}

func (c *failingConn) Receive(context.Context) ([]byte, net.Addr, error) {
	c.calls.Add(1)
	return nil, nil, c.err
}

func (c *failingConn) Send(context.Context, []byte) error { return nil }

func (c *failingConn) Close() error { return nil }

func TestSession_RunWaitsForTickAfterReceiveError(t *testing.T) {
	conn := &failingConn{err: errors.New("read: connection refused")}
	s := New(conn, dis.NewDispatcher(newTestCodec(t)), nil,
		WithTickInterval(20*time.Millisecond),
		WithLogger(quiet),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	calls := conn.calls.Load()
	assert.GreaterOrEqual(t, calls, int64(1))
	assert.LessOrEqual(t, calls, int64(10), "one receive attempt per tick")
	assert.Equal(t, calls, s.Metrics().ReceiveErrors.Value())
}

func TestSession_RunReturnsWhenConnClosedUnderneath(t *testing.T) {
	conn := &failingConn{err: fmt.Errorf("read udp: %w", net.ErrClosed)}
	s := New(conn, dis.NewDispatcher(newTestCodec(t)), nil, WithLogger(quiet))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, net.ErrClosed)
	assert.Equal(t, int64(1), conn.calls.Load())
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_TicksOnManagerClock(t *testing.T) {
	codec := newTestCodec(t)
	conn := newFakeConn()

	created := make(chan struct{}, 1)
	matcher := entity.NewMatcher(entity.NewNode(0, "root", "generic"))
	mgr := entity.NewManager(matcher,
		entity.InstantiatorFunc(func(entity.Prototype, *dis.EntityStatePDU, entity.Container) (entity.Handle, error) {
			return nopHandle{}, nil
		}),
		entity.WithLogger(quiet),
		entity.OnCreated(func(*entity.RemoteEntity) { created <- struct{}{} }),
	)

	s := New(conn, dis.NewDispatcher(codec, dis.WithLogger(quiet)), mgr,
		WithTickInterval(2*time.Millisecond),
		WithLogger(quiet),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	data, err := codec.Encode(dis.NewEntityStatePDU(dis.ProtocolVersion7, 1,
		dis.EntityID{Site: 1, Application: 1, Entity: 1}, dis.EntityType{Kind: dis.KindPlatform}))
	require.NoError(t, err)
	conn.in <- data

	select {
	case <-created:
	case <-time.After(2 * time.Second):
		t.Fatal("entity was not created")
	}

	time.Sleep(30 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, mgr.RemoteCount())
	assert.Equal(t, int64(0), mgr.Metrics().Expired.Value())
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(context.DeadlineExceeded))
	assert.False(t, isTimeout(errConnClosed))
}
