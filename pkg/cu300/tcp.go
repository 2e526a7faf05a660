// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

// TCPTransport speaks GENIBus over a TCP socket, typically a ser2net-style
// serial server in raw mode.
type TCPTransport struct {
	addr string
	conn net.Conn

	writeTimeout time.Duration
}

// NewTCPTransport creates a TCP transport for host:port.
func NewTCPTransport(host string, port int) *TCPTransport {
	return &TCPTransport{
		addr:         net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		writeTimeout: 5 * time.Second,
	}
}

// Connect dials the remote end. The context bounds the dial.
func (t *TCPTransport) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		// Frames are tiny; don't let Nagle sit on them.
		_ = tc.SetNoDelay(true)
	}
	t.conn = conn
	return nil
}

// Close shuts the socket down.
func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// Write sends p in full before returning.
func (t *TCPTransport) Write(p []byte) error {
	if t.conn == nil {
		return ErrNotConnected
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	_, err := t.conn.Write(p)
	return err
}

// ReadExact reads exactly n bytes within the timeout.
func (t *TCPTransport) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	if t.conn == nil {
		return nil, ErrNotConnected
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	got, err := io.ReadFull(t.conn, buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, fmt.Errorf("%w: %d of %d bytes after %v", genibus.ErrTimeout, got, n, timeout)
		}
		return nil, err
	}
	return buf, nil
}

func (t *TCPTransport) String() string {
	return fmt.Sprintf("tcp %s", t.addr)
}
