// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import (
	"errors"
	"fmt"
	"time"
)

// ExactReader is the slice of the transport contract the receiver needs:
// return exactly n bytes, or an error. A short read is always an error,
// never a truncated success. Reads that produce nothing at all before the
// timeout return ErrTimeout (possibly wrapped).
type ExactReader interface {
	ReadExact(n int, timeout time.Duration) ([]byte, error)
}

// Receiver assembles exactly one validated frame per ReadFrame call. It
// holds no state across calls; the whole frame must arrive within the
// configured timeout.
type Receiver struct {
	timeout time.Duration
}

// NewReceiver creates a receiver with the given whole-frame deadline.
func NewReceiver(timeout time.Duration) *Receiver {
	return &Receiver{timeout: timeout}
}

// ReadFrame reads one frame from src. Failure modes are distinct: a silent
// device surfaces ErrTimeout, a known-bad delimiter ErrInvalidDelimiter, an
// out-of-bounds length ErrInvalidLength, a body that never completes
// ErrIncompleteFrame, and a complete frame with a bad trailer
// ErrChecksumMismatch.
func (r *Receiver) ReadFrame(src ExactReader) (*Frame, error) {
	deadline := time.Now().Add(r.timeout)

	// Await delimiter. A timeout here means the device said nothing.
	sd, err := src.ReadExact(1, time.Until(deadline))
	if err != nil {
		return nil, fmt.Errorf("awaiting delimiter: %w", err)
	}
	switch sd[0] {
	case SdDataRequest, SdDataReply, SdDataMessage:
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrInvalidDelimiter, sd[0])
	}

	// Await length. From here on a stalled stream is an incomplete frame,
	// not a silent device.
	ln, err := r.readRemainder(src, 1, deadline, "length")
	if err != nil {
		return nil, err
	}
	length := int(ln[0])
	if length < addressBytes || length > MaxPduLen {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	// Await body: addresses, payload, checksum trailer.
	body, err := r.readRemainder(src, length+2, deadline, "body")
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 0, length+frameOverhead)
	raw = append(raw, sd[0], ln[0])
	raw = append(raw, body...)
	return ParseFrame(raw)
}

func (r *Receiver) readRemainder(src ExactReader, n int, deadline time.Time, what string) ([]byte, error) {
	b, err := src.ReadExact(n, time.Until(deadline))
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return nil, fmt.Errorf("%w: %s (%v)", ErrIncompleteFrame, what, err)
		}
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	return b, nil
}
