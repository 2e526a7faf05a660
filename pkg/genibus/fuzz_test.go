// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// pickNames draws a random non-empty subset of the given names, in order.
func pickNames(rng *rand.Rand, names []string) []string {
	var out []string
	for _, n := range names {
		if rng.Intn(2) == 1 {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		out = append(out, names[rng.Intn(len(names))])
	}
	return out
}

var fuzzMeasurements = []string{"p", "speed", "h", "q", "t_w", "act_mode1", "act_mode2", "act_mode3", "alarm_code"}

// TestFuzzBuildParse_RandomRequests builds GET frames from random request
// subsets and verifies each one round-trips through ParseFrame with the
// length field and checksum intact.
func TestFuzzBuildParse_RandomRequests(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	cat := DefaultCatalog()

	for i := 0; i < rounds; i++ {
		req := GetValuesRequest{Measurements: pickNames(rng, fuzzMeasurements)}
		if rng.Intn(2) == 1 {
			req.ProtocolData = pickNames(rng, []string{"buf_len", "unit_bus_mode"})
		}
		if rng.Intn(2) == 1 {
			req.Parameters = pickNames(rng, []string{"unit_addr", "group_addr"})
		}

		hdr := RequestHeader(byte(rng.Intn(256)), byte(rng.Intn(256)))
		raw, err := BuildGetValues(cat, DeviceFamilyCU300, hdr, req)
		if err != nil {
			t.Fatalf("Round %d: BuildGetValues: %v", i, err)
		}

		frame, err := ParseFrame(raw)
		if err != nil {
			t.Errorf("Round %d: built frame does not parse: %v", i, err)
			continue
		}
		if frame.DestAddr != hdr.DestAddr || frame.SourceAddr != hdr.SourceAddr {
			t.Errorf("Round %d: address mismatch: got %02X->%02X, want %02X->%02X",
				i, frame.SourceAddr, frame.DestAddr, hdr.SourceAddr, hdr.DestAddr)
		}
		if int(frame.Length) != addressBytes+len(frame.Payload) {
			t.Errorf("Round %d: length field %d for %d payload bytes", i, frame.Length, len(frame.Payload))
		}
	}
}

// TestFuzzParseFrame_RandomBytes feeds random byte slices to ParseFrame
// and verifies it rejects them without panicking.
func TestFuzzParseFrame_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(300)
		data := make([]byte, length)
		rng.Read(data)

		// Random garbage should essentially never carry a valid checksum.
		if frame, err := ParseFrame(data); err == nil {
			if !CheckCRC(data) {
				t.Errorf("Round %d: accepted frame with bad checksum: %+v", i, frame)
			}
		}
	}
}

// TestFuzzReceiver_CorruptedFrames corrupts one byte of a valid frame and
// verifies the receiver reports an error rather than a frame.
func TestFuzzReceiver_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	cat := DefaultCatalog()

	for i := 0; i < rounds; i++ {
		req := GetValuesRequest{Measurements: pickNames(rng, fuzzMeasurements)}
		raw, err := BuildGetValues(cat, DeviceFamilyCU300, RequestHeader(DefaultUnitAddr, DefaultSourceAddr), req)
		if err != nil {
			t.Fatalf("Round %d: BuildGetValues: %v", i, err)
		}

		// Skip the delimiter so corruption stays inside the checksummed span.
		idx := rng.Intn(len(raw)-1) + 1
		raw[idx] ^= byte(rng.Intn(255) + 1)

		src := &scriptReader{data: raw}
		if frame, err := NewReceiver(10 * time.Millisecond).ReadFrame(src); err == nil {
			t.Errorf("Round %d: corrupted byte %d, got frame %+v", i, idx, frame)
		}
	}
}

// TestFuzzReceiver_RandomStreams feeds random byte streams to the receiver
// and verifies it never panics and never returns a frame that fails its
// own checksum.
func TestFuzzReceiver_RandomStreams(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		src := &scriptReader{data: data}
		frame, err := NewReceiver(10 * time.Millisecond).ReadFrame(src)
		if err == nil && !CheckCRC(frame.Bytes()) {
			t.Errorf("Round %d: receiver returned frame with bad checksum", i)
		}
	}
}

// TestFuzzDecode_RandomValues decodes random raw bytes through every default
// catalog entry and verifies decoding never panics and respects the
// unavailable sentinel.
func TestFuzzDecode_RandomValues(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	cat := DefaultCatalog()
	points := make([]*DataPoint, 0, len(fuzzMeasurements))
	for _, name := range fuzzMeasurements {
		dp, err := cat.Lookup(DeviceFamilyCU300, ClassMeasuredData, name)
		if err != nil {
			t.Fatal(err)
		}
		points = append(points, dp)
	}

	for i := 0; i < rounds; i++ {
		dp := points[rng.Intn(len(points))]
		raw := make([]byte, dp.wireWidth())
		rng.Read(raw)

		v, ok := dp.Decode(raw)
		allSet := true
		for _, b := range raw {
			if b != 0xFF {
				allSet = false
			}
		}
		if allSet && ok {
			t.Errorf("Round %d: %s decoded the unavailable sentinel to %v", i, dp.Name, v)
		}
		if !allSet && !ok {
			t.Errorf("Round %d: %s rejected valid raw bytes % X", i, dp.Name, raw)
		}
	}
}
