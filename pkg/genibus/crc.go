// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

// CalculateCRC computes the GENIBus telegram checksum for the given data.
// The input is every telegram byte after the start delimiter, up to but not
// including the checksum trailer.
func CalculateCRC(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}
	return crc ^ 0xFFFF
}

// AppendCRC returns telegram with its two checksum bytes appended, high byte
// first. The telegram must start with the delimiter and end with the last
// payload byte.
func AppendCRC(telegram []byte) []byte {
	crc := CalculateCRC(telegram[1:])
	out := make([]byte, 0, len(telegram)+2)
	out = append(out, telegram...)
	return append(out, byte(crc>>8), byte(crc))
}

// CheckCRC reports whether telegram carries a valid checksum trailer.
// It never fails loudly: malformed or short input is simply not valid.
// Callers use this both to validate received frames and to decide whether a
// buffer already ends in a checksum before appending one.
func CheckCRC(telegram []byte) bool {
	if len(telegram) < frameOverhead {
		return false
	}
	want := uint16(telegram[len(telegram)-2])<<8 | uint16(telegram[len(telegram)-1])
	return CalculateCRC(telegram[1:len(telegram)-2]) == want
}
