package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/edgeo/drivers/dis/dis"
	"github.com/edgeo/drivers/dis/dis/internal/transport"
)

// UDPConfig describes a UDP endpoint
type UDPConfig struct {
	// LocalAddr is the bind address, e.g. ":3000".
	LocalAddr string
	// Destination receives sent datagrams. Empty with Broadcast set
	// means the limited broadcast address on Port.
	Destination string
	Broadcast   bool
	Port        int

	// Zero values keep the transport defaults.
	Timeout    time.Duration
	BufferSize int
}

// UDPConn adapts the UDP transport to Conn
type UDPConn struct {
	tr        *transport.UDPTransport
	dest      *net.UDPAddr
	broadcast bool
	port      int
}

// OpenUDP binds a UDP socket for a session
func OpenUDP(ctx context.Context, cfg UDPConfig) (*UDPConn, error) {
	port := cfg.Port
	if port == 0 {
		port = dis.DefaultPort
	}

	var dest *net.UDPAddr
	broadcast := false
	switch {
	case cfg.Destination != "":
		addr, err := net.ResolveUDPAddr("udp4", withPort(cfg.Destination, port))
		if err != nil {
			return nil, fmt.Errorf("resolve destination: %w", err)
		}
		dest = addr
	case cfg.Broadcast:
		dest = &net.UDPAddr{IP: net.IPv4bcast, Port: port}
		broadcast = true
	}

	tr := transport.NewUDPTransport(cfg.LocalAddr)
	if cfg.Timeout > 0 {
		tr.SetReadTimeout(cfg.Timeout)
		tr.SetWriteTimeout(cfg.Timeout)
	}
	tr.SetBufferSize(cfg.BufferSize)
	if err := tr.Open(ctx); err != nil {
		return nil, err
	}
	return &UDPConn{tr: tr, dest: dest, broadcast: broadcast, port: port}, nil
}

func withPort(host string, port int) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Receive implements Conn
func (c *UDPConn) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	data, addr, err := c.tr.Receive(ctx)
	if err != nil {
		if c.tr.IsClosed() || errors.Is(err, transport.ErrNotOpen) {
			return nil, nil, fmt.Errorf("%w: %w", net.ErrClosed, err)
		}
		return nil, nil, err
	}
	return data, addr, nil
}

// Send implements Conn
func (c *UDPConn) Send(ctx context.Context, data []byte) error {
	switch {
	case c.broadcast:
		return c.tr.Broadcast(ctx, c.port, data)
	case c.dest != nil:
		return c.tr.Send(ctx, c.dest, data)
	default:
		return ErrNoDestination
	}
}

// Close implements Conn
func (c *UDPConn) Close() error {
	return c.tr.Close()
}

// LocalAddr returns the bound address
func (c *UDPConn) LocalAddr() net.Addr {
	return c.tr.LocalAddr()
}

// Destination returns the send address, nil if receive-only
func (c *UDPConn) Destination() *net.UDPAddr {
	return c.dest
}
