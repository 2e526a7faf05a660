// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

// startEchoServer listens on loopback and hands each accepted connection to
// handle. It returns the host and port to dial.
func startEchoServer(t *testing.T, handle func(net.Conn)) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go handle(conn)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func TestTCPTransportReadExact(t *testing.T) {
	payload := []byte{0x24, 0x02, 0x04, 0x20, 0xAA, 0xBB}
	host, port := startEchoServer(t, func(conn net.Conn) {
		defer conn.Close()
		// Dribble the bytes out to force ReadFull to assemble them.
		for _, b := range payload {
			_, _ = conn.Write([]byte{b})
			time.Sleep(time.Millisecond)
		}
	})

	tr := NewTCPTransport(host, port)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	got, err := tr.ReadExact(len(payload), time.Second)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestTCPTransportReadTimeout(t *testing.T) {
	host, port := startEchoServer(t, func(conn net.Conn) {
		// Say nothing; hold the connection open.
		time.Sleep(time.Second)
		conn.Close()
	})

	tr := NewTCPTransport(host, port)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	_, err := tr.ReadExact(4, 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, genibus.ErrTimeout,
		"a silent peer must surface the protocol timeout sentinel")
}

func TestTCPTransportWriteReaches(t *testing.T) {
	received := make(chan []byte, 1)
	host, port := startEchoServer(t, func(conn net.Conn) {
		defer conn.Close()
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err == nil {
			received <- buf[:n]
		}
	})

	tr := NewTCPTransport(host, port)
	require.NoError(t, tr.Connect(context.Background()))
	defer tr.Close()

	frame := genibus.AppendCRC([]byte{genibus.SdDataRequest, 0x02, 0x20, 0x04})
	require.NoError(t, tr.Write(frame))

	select {
	case got := <-received:
		assert.Equal(t, frame, got)
	case <-time.After(time.Second):
		t.Fatal("server never received the frame")
	}
}

func TestTCPTransportNotConnected(t *testing.T) {
	tr := NewTCPTransport("127.0.0.1", 1)
	assert.ErrorIs(t, tr.Write([]byte{0x27}), ErrNotConnected)
	_, err := tr.ReadExact(1, time.Millisecond)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, tr.Close())
}

func TestTCPTransportConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	require.NoError(t, ln.Close()) // free the port, nothing listens now

	tr := NewTCPTransport("127.0.0.1", addr.Port)
	assert.Error(t, tr.Connect(context.Background()))
}
