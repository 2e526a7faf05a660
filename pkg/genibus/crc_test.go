// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import (
	"bytes"
	"testing"
)

// The documented handshake telegram for source address 0x01. Everything in
// the codec is pinned to this byte sequence.
var goldenConnectRequest = []byte{
	0x27, 0x0E, 0xFE, 0x01,
	0x00, 0x02, 0x02, 0x03,
	0x04, 0x02, 0x2E, 0x2F,
	0x02, 0x02, 0x94, 0x95,
	0xA2, 0xAA,
}

func TestCalculateCRC_GoldenFrame(t *testing.T) {
	body := goldenConnectRequest[1 : len(goldenConnectRequest)-2]
	crc := CalculateCRC(body)
	if crc != 0xA2AA {
		t.Errorf("CRC mismatch: expected 0xA2AA, got 0x%04X", crc)
	}
}

func TestCalculateCRC_Deterministic(t *testing.T) {
	data := []byte{0x0E, 0xFE, 0x01, 0x00, 0x02}
	if CalculateCRC(data) != CalculateCRC(data) {
		t.Error("CRC should be deterministic")
	}
}

func TestAppendCRC_RoundTrip(t *testing.T) {
	stripped := goldenConnectRequest[:len(goldenConnectRequest)-2]
	framed := AppendCRC(stripped)

	if !bytes.Equal(framed, goldenConnectRequest) {
		t.Errorf("AppendCRC mismatch:\n got %X\nwant %X", framed, goldenConnectRequest)
	}
	if !CheckCRC(framed) {
		t.Error("CheckCRC should accept a frame produced by AppendCRC")
	}
}

func TestCheckCRC_Golden(t *testing.T) {
	if !CheckCRC(goldenConnectRequest) {
		t.Error("CheckCRC rejected the documented handshake telegram")
	}
}

func TestCheckCRC_ShortInput(t *testing.T) {
	for i := 0; i < frameOverhead; i++ {
		if CheckCRC(goldenConnectRequest[:i]) {
			t.Errorf("CheckCRC accepted %d-byte input", i)
		}
	}
}

func TestCheckCRC_CorruptedPayload(t *testing.T) {
	// Any single corrupted byte after the delimiter must fail validation.
	for i := 1; i < len(goldenConnectRequest); i++ {
		corrupted := append([]byte(nil), goldenConnectRequest...)
		corrupted[i] ^= 0xFF
		if CheckCRC(corrupted) {
			t.Errorf("CheckCRC accepted frame with byte %d corrupted", i)
		}
	}
}
