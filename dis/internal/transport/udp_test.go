package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLoopback(t *testing.T) *UDPTransport {
	t.Helper()
	tr := NewUDPTransport("127.0.0.1:0")
	require.NoError(t, tr.Open(context.Background()))
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestUDPTransport_RoundTrip(t *testing.T) {
	a := openLoopback(t)
	b := openLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	payload := []byte{7, 1, 26, 4, 0, 0, 0, 0, 0, 32, 0, 0}
	require.NoError(t, a.Send(ctx, b.LocalAddr().(*net.UDPAddr), payload))

	got, from, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, a.LocalAddr().(*net.UDPAddr).Port, from.Port)
}

func TestUDPTransport_ReceiveTimeout(t *testing.T) {
	tr := openLoopback(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := tr.Receive(ctx)
	require.Error(t, err)
	netErr, ok := err.(net.Error)
	require.True(t, ok)
	assert.True(t, netErr.Timeout())
}

func TestUDPTransport_Closed(t *testing.T) {
	tr := NewUDPTransport("127.0.0.1:0")
	_, _, err := tr.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.False(t, tr.IsClosed())

	require.NoError(t, tr.Open(context.Background()))
	require.NoError(t, tr.Close())
	assert.True(t, tr.IsClosed())
	assert.NoError(t, tr.Close())

	_, _, err = tr.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNotOpen)
	err = tr.Send(context.Background(), &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 3000}, []byte{1})
	assert.ErrorIs(t, err, ErrNotOpen)
}
