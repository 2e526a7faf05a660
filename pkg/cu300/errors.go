// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"errors"
	"fmt"

	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

// ErrorKind classifies an operation failure so callers can pick a recovery
// policy without string matching.
type ErrorKind int

const (
	// KindUnknown is the zero value, for errors this package did not produce.
	KindUnknown ErrorKind = iota
	// KindConnection: the transport could not be opened, written, or read.
	// The coordinator responds by scheduling a reconnect.
	KindConnection
	// KindProtocol: the byte stream was readable but the frame was invalid —
	// bad checksum, bad delimiter, inconsistent length, unknown data point.
	KindProtocol
	// KindTimeout: the device stayed silent past the deadline. Distinct from
	// KindProtocol so "device silent" and "device replied garbage" diverge.
	KindTimeout
	// KindValidation: caller input out of contract; no I/O was attempted.
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindTimeout:
		return "timeout"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by operations that require an established
// connection.
var ErrNotConnected = errors.New("cu300: not connected")

// OpError is the tagged failure type every engine operation returns.
type OpError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("cu300: %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Kind extracts the classification from an error chain.
func Kind(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUnknown
}

// classifyExchange maps receiver and codec failures onto the taxonomy.
func classifyExchange(err error) ErrorKind {
	switch {
	case errors.Is(err, genibus.ErrTimeout):
		return KindTimeout
	case errors.Is(err, genibus.ErrChecksumMismatch),
		errors.Is(err, genibus.ErrInvalidDelimiter),
		errors.Is(err, genibus.ErrInvalidLength),
		errors.Is(err, genibus.ErrIncompleteFrame),
		errors.Is(err, genibus.ErrUnknownDataPoint),
		errors.Is(err, genibus.ErrDeviceNak):
		return KindProtocol
	default:
		return KindConnection
	}
}
