// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

// Package cu300 drives a Grundfos CU300 pump controller over GENIBus: the
// protocol engine with its connection state machine and serialization lock,
// the transports it runs on, and a polling coordinator for periodic reads.
package cu300

import (
	"context"
	"time"
)

// Transport is the byte-stream capability set the protocol engine requires.
// Implementations wrap a serial port, a TCP socket, or a WebSocket bridge.
//
// Write must fully flush before returning success. ReadExact returns exactly
// n bytes or an error — never a short slice; when nothing arrives before the
// timeout it returns an error wrapping genibus.ErrTimeout. A transport is
// used by exactly one engine and replaced, not reopened, on reconnect.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	Write(p []byte) error
	ReadExact(n int, timeout time.Duration) ([]byte, error)
	String() string
}
