// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import "fmt"

// Frame is one complete checksummed unit of wire transmission.
type Frame struct {
	Start      byte
	Length     byte
	DestAddr   byte
	SourceAddr byte
	Payload    []byte // APDU blocks, without addresses or trailer
	CRC        uint16
}

// ParseFrame splits a raw telegram into its fields, validating structure and
// checksum. The checksum is verified before anything else is interpreted.
func ParseFrame(raw []byte) (*Frame, error) {
	if len(raw) < frameOverhead+addressBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrIncompleteFrame, len(raw))
	}
	switch raw[0] {
	case SdDataRequest, SdDataReply, SdDataMessage:
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrInvalidDelimiter, raw[0])
	}
	length := int(raw[1])
	if length < addressBytes || length > MaxPduLen {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if len(raw) != length+frameOverhead {
		return nil, fmt.Errorf("%w: declared %d, have %d bytes", ErrIncompleteFrame, length, len(raw))
	}
	if !CheckCRC(raw) {
		return nil, fmt.Errorf("%w: frame %x", ErrChecksumMismatch, raw)
	}
	payload := make([]byte, length-addressBytes)
	copy(payload, raw[4:len(raw)-2])
	return &Frame{
		Start:      raw[0],
		Length:     raw[1],
		DestAddr:   raw[2],
		SourceAddr: raw[3],
		Payload:    payload,
		CRC:        uint16(raw[len(raw)-2])<<8 | uint16(raw[len(raw)-1]),
	}, nil
}

// Bytes reassembles the frame to wire format, recomputing the checksum.
func (f *Frame) Bytes() []byte {
	raw := make([]byte, 0, int(f.Length)+frameOverhead)
	raw = append(raw, f.Start, f.Length, f.DestAddr, f.SourceAddr)
	raw = append(raw, f.Payload...)
	return AppendCRC(raw)
}
