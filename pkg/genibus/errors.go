// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import "errors"

// Receiver and codec failures. These bubble up unchanged; the engine layer
// classifies them but never recovers from malformed input.
var (
	// ErrInvalidDelimiter is returned when the first byte of a frame is not
	// a known start delimiter.
	ErrInvalidDelimiter = errors.New("genibus: invalid start delimiter")

	// ErrInvalidLength is returned when the declared frame length is outside
	// protocol bounds.
	ErrInvalidLength = errors.New("genibus: invalid frame length")

	// ErrIncompleteFrame is returned when fewer bytes than the declared
	// length arrived before the read deadline.
	ErrIncompleteFrame = errors.New("genibus: incomplete frame")

	// ErrChecksumMismatch is returned when a structurally complete frame
	// fails CRC validation.
	ErrChecksumMismatch = errors.New("genibus: checksum mismatch")

	// ErrTimeout is returned when the device sent nothing at all within the
	// read deadline. Transports return it from ReadExact so callers can tell
	// a silent device from one that replied garbage.
	ErrTimeout = errors.New("genibus: read timeout")

	// ErrUnknownDataPoint is returned when a symbolic name has no catalog
	// entry. This indicates a configuration error, not a wire problem.
	ErrUnknownDataPoint = errors.New("genibus: unknown data point")

	// ErrDeviceNak is returned when a reply block carries a non-zero
	// acknowledge code.
	ErrDeviceNak = errors.New("genibus: device rejected request")
)
