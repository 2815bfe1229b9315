// Package transport carries DIS datagrams over UDP
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/edgeo/drivers/dis/dis"
)

// ErrNotOpen is returned when the transport is used before Open or after Close
var ErrNotOpen = errors.New("transport not open")

// UDPTransport sends and receives DIS datagrams over UDP/IPv4
type UDPTransport struct {
	localAddr    string
	conn         *net.UDPConn
	mu           sync.RWMutex
	readTimeout  time.Duration
	writeTimeout time.Duration
	bufferSize   int
	closed       bool
}

// NewUDPTransport creates a new UDP transport bound to localAddr ("" for any)
func NewUDPTransport(localAddr string) *UDPTransport {
	return &UDPTransport{
		localAddr:    localAddr,
		readTimeout:  3 * time.Second,
		writeTimeout: 3 * time.Second,
		bufferSize:   dis.MaxDatagramLength,
	}
}

// SetReadTimeout sets the read timeout used when the context has no deadline
func (t *UDPTransport) SetReadTimeout(d time.Duration) {
	t.mu.Lock()
	t.readTimeout = d
	t.mu.Unlock()
}

// SetWriteTimeout sets the write timeout used when the context has no deadline
func (t *UDPTransport) SetWriteTimeout(d time.Duration) {
	t.mu.Lock()
	t.writeTimeout = d
	t.mu.Unlock()
}

// SetBufferSize sets the receive buffer size; datagrams longer than it are truncated by the kernel
func (t *UDPTransport) SetBufferSize(n int) {
	t.mu.Lock()
	if n > 0 {
		t.bufferSize = n
	}
	t.mu.Unlock()
}

// Open binds the UDP socket
func (t *UDPTransport) Open(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil && !t.closed {
		return nil
	}

	var addr *net.UDPAddr
	var err error

	if t.localAddr != "" {
		addr, err = net.ResolveUDPAddr("udp4", t.localAddr)
		if err != nil {
			return fmt.Errorf("resolve local address: %w", err)
		}
	}

	var lc net.ListenConfig
	pc, err := lc.ListenPacket(ctx, "udp4", addrString(addr))
	if err != nil {
		return fmt.Errorf("listen UDP: %w", err)
	}

	t.conn = pc.(*net.UDPConn)
	t.closed = false
	return nil
}

func addrString(addr *net.UDPAddr) string {
	if addr == nil {
		return ":0"
	}
	return addr.String()
}

// Close closes the UDP socket
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil || t.closed {
		return nil
	}

	t.closed = true
	return t.conn.Close()
}

// LocalAddr returns the bound address
func (t *UDPTransport) LocalAddr() net.Addr {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// Send writes one datagram to addr
func (t *UDPTransport) Send(ctx context.Context, addr *net.UDPAddr, data []byte) error {
	t.mu.RLock()
	conn := t.conn
	closed := t.closed
	writeTimeout := t.writeTimeout
	t.mu.RUnlock()

	if conn == nil || closed {
		return ErrNotOpen
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	n, err := conn.WriteToUDP(data, addr)
	if err != nil {
		return fmt.Errorf("write UDP: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("partial write: %d of %d bytes", n, len(data))
	}

	return nil
}

// Broadcast writes one datagram to the limited broadcast address
func (t *UDPTransport) Broadcast(ctx context.Context, port int, data []byte) error {
	addr := &net.UDPAddr{
		IP:   net.IPv4bcast,
		Port: port,
	}
	return t.Send(ctx, addr, data)
}

// Receive reads one datagram
func (t *UDPTransport) Receive(ctx context.Context) ([]byte, *net.UDPAddr, error) {
	t.mu.RLock()
	conn := t.conn
	closed := t.closed
	readTimeout := t.readTimeout
	size := t.bufferSize
	t.mu.RUnlock()

	if conn == nil || closed {
		return nil, nil, ErrNotOpen
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(readTimeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, nil, fmt.Errorf("set read deadline: %w", err)
	}

	buf := make([]byte, size)
	n, addr, err := conn.ReadFromUDP(buf)
	if err != nil {
		return nil, nil, err
	}

	return buf[:n], addr, nil
}

// IsClosed returns true if the transport is closed
func (t *UDPTransport) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}
