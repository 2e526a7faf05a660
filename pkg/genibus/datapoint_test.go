// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import (
	"errors"
	"math"
	"testing"
)

func TestCatalogLookup(t *testing.T) {
	cat := DefaultCatalog()

	dp, err := cat.Lookup(DeviceFamilyCU300, ClassMeasuredData, "h")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if dp.ID != 37 || dp.Scale != 0.1 {
		t.Errorf("h = %+v, want id 37 scale 0.1", dp)
	}

	// Same name, different class, different entry.
	dp16, err := cat.Lookup(DeviceFamilyCU300, ClassMeasuredData16, "h")
	if err != nil {
		t.Fatalf("Lookup class 8: %v", err)
	}
	if dp16.Width != 2 {
		t.Errorf("16-bit h width = %d, want 2", dp16.Width)
	}

	for _, tc := range []struct {
		family string
		class  byte
		name   string
	}{
		{DeviceFamilyCU300, ClassMeasuredData, "no_such_point"},
		{DeviceFamilyCU300, ClassCommands, "h"},
		{"mq3000", ClassMeasuredData, "h"},
	} {
		if _, err := cat.Lookup(tc.family, tc.class, tc.name); !errors.Is(err, ErrUnknownDataPoint) {
			t.Errorf("Lookup(%q, %d, %q): expected ErrUnknownDataPoint, got %v", tc.family, tc.class, tc.name, err)
		}
	}
}

func TestCatalogRegisterReplaces(t *testing.T) {
	cat := NewCatalog()
	cat.Register("x", DataPoint{Name: "v", ID: 1, Class: ClassMeasuredData})
	cat.Register("x", DataPoint{Name: "v", ID: 9, Class: ClassMeasuredData})

	dp, err := cat.Lookup("x", ClassMeasuredData, "v")
	if err != nil {
		t.Fatal(err)
	}
	if dp.ID != 9 {
		t.Errorf("ID = %d, want 9 after re-registration", dp.ID)
	}
}

func TestDataPointDecode(t *testing.T) {
	tests := []struct {
		name string
		dp   DataPoint
		raw  []byte
		want float64
		ok   bool
	}{
		{"unscaled", DataPoint{}, []byte{42}, 42, true},
		{"scaled", DataPoint{Scale: 0.1}, []byte{100}, 10, true},
		{"scale and offset", DataPoint{Scale: 0.5, Offset: -20}, []byte{100}, 30, true},
		{"signed negative", DataPoint{Signed: true}, []byte{0xF6}, -10, true},
		{"unavailable 8-bit", DataPoint{}, []byte{0xFF}, 0, false},
		{"16-bit big-endian", DataPoint{Width: 2}, []byte{0x01, 0x00}, 256, true},
		{"16-bit scaled", DataPoint{Width: 2, Scale: 0.01}, []byte{0x01, 0xF4}, 5, true},
		{"16-bit signed", DataPoint{Width: 2, Signed: true}, []byte{0xFF, 0x9C}, -100, true},
		{"unavailable 16-bit", DataPoint{Width: 2}, []byte{0xFF, 0xFF}, 0, false},
		{"width mismatch", DataPoint{Width: 2}, []byte{0x01}, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.dp.Decode(tc.raw)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if ok && math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Decode = %v, want %v", got, tc.want)
			}
		})
	}
}
