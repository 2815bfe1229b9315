package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUDP_Loopback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rx, err := OpenUDP(ctx, UDPConfig{LocalAddr: "127.0.0.1:0", Timeout: time.Second})
	require.NoError(t, err)
	defer rx.Close()
	assert.Nil(t, rx.Destination())

	tx, err := OpenUDP(ctx, UDPConfig{LocalAddr: "127.0.0.1:0", Destination: rx.LocalAddr().String()})
	require.NoError(t, err)
	defer tx.Close()
	require.NotNil(t, tx.Destination())

	require.NoError(t, tx.Send(ctx, []byte{7, 1, 26, 4}))

	data, from, err := rx.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 1, 26, 4}, data)
	assert.Equal(t, tx.LocalAddr().String(), from.String())
}

func TestOpenUDP_NoDestination(t *testing.T) {
	conn, err := OpenUDP(context.Background(), UDPConfig{LocalAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	defer conn.Close()

	assert.ErrorIs(t, conn.Send(context.Background(), []byte{1}), ErrNoDestination)
}

func TestOpenUDP_DefaultPort(t *testing.T) {
	conn, err := OpenUDP(context.Background(), UDPConfig{LocalAddr: "127.0.0.1:0", Destination: "127.0.0.1"})
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, 3000, conn.Destination().Port)
}

func TestUDPConn_ReceiveAfterCloseReportsClosed(t *testing.T) {
	conn, err := OpenUDP(context.Background(), UDPConfig{LocalAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, _, err = conn.Receive(context.Background())
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestOpenUDP_Broadcast(t *testing.T) {
	conn, err := OpenUDP(context.Background(), UDPConfig{LocalAddr: "127.0.0.1:0", Broadcast: true, Port: 3001})
	require.NoError(t, err)
	defer conn.Close()

	require.NotNil(t, conn.Destination())
	assert.True(t, conn.Destination().IP.Equal(net.IPv4bcast))
	assert.Equal(t, 3001, conn.Destination().Port)
	assert.True(t, conn.broadcast)
}
