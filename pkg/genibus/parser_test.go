// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import (
	"errors"
	"math"
	"testing"
)

// buildReply assembles a device reply frame from raw APDU blocks.
func buildReply(blocks ...[]byte) []byte {
	length := addressBytes
	for _, b := range blocks {
		length += len(b)
	}
	raw := []byte{SdDataReply, byte(length), 0x04, 0x20}
	for _, b := range blocks {
		raw = append(raw, b...)
	}
	return AppendCRC(raw)
}

func TestParseReply_Measurements(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Measurements: []string{"h", "q", "speed"}}

	// h raw 100 -> 10.0 m, q raw 50 -> 10.0 m3/h, speed raw 40 -> 2000 rpm
	raw := buildReply([]byte{ClassMeasuredData, (AckOK << 6) | 3, 100, 50, 40})

	reply, err := ParseReply(cat, DeviceFamilyCU300, raw, req)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}

	want := map[string]float64{"h": 10.0, "q": 10.0, "speed": 2000}
	for name, expected := range want {
		got, ok := reply.Values[name]
		if !ok {
			t.Errorf("missing value for %q", name)
			continue
		}
		if math.Abs(got-expected) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, got, expected)
		}
	}
}

func TestParseReply_UnavailableOmitted(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Measurements: []string{"h", "q"}}

	raw := buildReply([]byte{ClassMeasuredData, (AckOK << 6) | 2, 100, 0xFF})

	reply, err := ParseReply(cat, DeviceFamilyCU300, raw, req)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if _, ok := reply.Values["h"]; !ok {
		t.Error("h should be present")
	}
	if _, ok := reply.Values["q"]; ok {
		t.Error("q raw 0xFF should be omitted, not decoded")
	}
}

func TestParseReply_SixteenBitWidths(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{MeasurementClass: ClassMeasuredData16, Measurements: []string{"h", "q"}}

	// h raw 0x01F4 (500) -> 5.00 m, q raw 0x00C8 (200) -> 4.00 m3/h
	raw := buildReply([]byte{ClassMeasuredData16, (AckOK << 6) | 4, 0x01, 0xF4, 0x00, 0xC8})

	reply, err := ParseReply(cat, DeviceFamilyCU300, raw, req)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if h := reply.Values["h"]; math.Abs(h-5.0) > 1e-9 {
		t.Errorf("h = %v, want 5.0", h)
	}
	if q := reply.Values["q"]; math.Abs(q-4.0) > 1e-9 {
		t.Errorf("q = %v, want 4.0", q)
	}
}

func TestParseReply_MultipleBlocks(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{
		ProtocolData: []string{"buf_len"},
		Parameters:   []string{"unit_addr"},
		Measurements: []string{"unit_family"},
	}

	raw := buildReply(
		[]byte{ClassProtocolData, (AckOK << 6) | 1, 70},
		[]byte{ClassConfigParams, (AckOK << 6) | 1, 0x20},
		[]byte{ClassMeasuredData, (AckOK << 6) | 1, 2},
	)

	reply, err := ParseReply(cat, DeviceFamilyCU300, raw, req)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if reply.Values["buf_len"] != 70 {
		t.Errorf("buf_len = %v, want 70", reply.Values["buf_len"])
	}
	if reply.Values["unit_addr"] != 0x20 {
		t.Errorf("unit_addr = %v, want 32", reply.Values["unit_addr"])
	}
	if reply.Values["unit_family"] != 2 {
		t.Errorf("unit_family = %v, want 2", reply.Values["unit_family"])
	}
}

func TestParseReply_Strings(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Strings: []string{"unit_name"}}

	body := append([]byte{8}, []byte("SQF 2.5")...)
	raw := buildReply(append([]byte{ClassASCIIStrings, (AckOK << 6) | byte(len(body))}, body...))

	reply, err := ParseReply(cat, DeviceFamilyCU300, raw, req)
	if err != nil {
		t.Fatalf("ParseReply: %v", err)
	}
	if reply.Strings["unit_name"] != "SQF 2.5" {
		t.Errorf("unit_name = %q, want %q", reply.Strings["unit_name"], "SQF 2.5")
	}
}

func TestParseReply_DeviceNak(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Measurements: []string{"h"}}

	raw := buildReply([]byte{ClassMeasuredData, (AckUnknownDataItem << 6) | 0})

	_, err := ParseReply(cat, DeviceFamilyCU300, raw, req)
	if !errors.Is(err, ErrDeviceNak) {
		t.Errorf("expected ErrDeviceNak, got %v", err)
	}
}

func TestParseReply_UnexpectedClass(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Measurements: []string{"h"}}

	raw := buildReply([]byte{ClassTestData, (AckOK << 6) | 1, 0x00})

	if _, err := ParseReply(cat, DeviceFamilyCU300, raw, req); err == nil {
		t.Error("expected failure for unrequested block class")
	}
}

func TestParseReply_BlockLengthMismatch(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Measurements: []string{"h", "q"}}

	// Two points requested, one byte answered.
	raw := buildReply([]byte{ClassMeasuredData, (AckOK << 6) | 1, 100})

	if _, err := ParseReply(cat, DeviceFamilyCU300, raw, req); err == nil {
		t.Error("expected failure for block length mismatch")
	}
}

func TestParseReply_CorruptedChecksum(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Measurements: []string{"h"}}

	raw := buildReply([]byte{ClassMeasuredData, (AckOK << 6) | 1, 100})
	raw[len(raw)-1] ^= 0x01

	_, err := ParseReply(cat, DeviceFamilyCU300, raw, req)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestParseInfoReply(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Measurements: []string{"h", "q"}}

	// h: extended info (sif=3) with unit/zero/range; q: head only (sif=0).
	raw := buildReply([]byte{
		ClassMeasuredData, (AckOK << 6) | 5,
		0x83, 25, 0, 254,
		0x80,
	})

	info, err := ParseInfoReply(cat, DeviceFamilyCU300, raw, req)
	if err != nil {
		t.Fatalf("ParseInfoReply: %v", err)
	}

	h := info["h"]
	if !h.Extended || h.Unit != 25 || h.Zero != 0 || h.Range != 254 {
		t.Errorf("h info = %+v, want extended unit=25 zero=0 range=254", h)
	}
	q := info["q"]
	if q.Extended || q.Head != 0x80 {
		t.Errorf("q info = %+v, want head-only 0x80", q)
	}
}

func TestParseInfoReply_Truncated(t *testing.T) {
	cat := DefaultCatalog()
	req := GetValuesRequest{Measurements: []string{"h"}}

	// Extended head but only one trailing byte.
	raw := buildReply([]byte{ClassMeasuredData, (AckOK << 6) | 2, 0x83, 25})

	if _, err := ParseInfoReply(cat, DeviceFamilyCU300, raw, req); err == nil {
		t.Error("expected failure for truncated extended info")
	}
}
