// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import "fmt"

// SetValue pairs a symbolic data point name with the raw byte to write.
type SetValue struct {
	Name  string
	Value byte
}

// appendAPDUHeader writes the two-byte block header: class, then the
// operation in the top two bits with the body length in the low six.
func appendAPDUHeader(dst []byte, class, op byte, bodyLen int) []byte {
	return append(dst, class, (op<<6)|byte(bodyLen)&0x3F)
}

// buildGetAPDU builds a GET or INFO block carrying identifiers only.
func buildGetAPDU(cat *Catalog, family string, class, op byte, names []string) ([]byte, error) {
	points, err := cat.lookupAll(family, class, names)
	if err != nil {
		return nil, err
	}
	apdu := appendAPDUHeader(nil, class, op, len(points))
	for _, dp := range points {
		apdu = append(apdu, dp.ID)
	}
	return apdu, nil
}

// buildSetAPDU builds a SET block carrying identifier/value pairs.
func buildSetAPDU(cat *Catalog, family string, class byte, values []SetValue) ([]byte, error) {
	apdu := appendAPDUHeader(nil, class, OpSet, len(values)*2)
	for _, sv := range values {
		dp, err := cat.Lookup(family, class, sv.Name)
		if err != nil {
			return nil, err
		}
		apdu = append(apdu, dp.ID, sv.Value)
	}
	return apdu, nil
}

// buildCommandAPDU builds a SET block for the command class. Commands carry
// identifiers only; issuing a command is setting it.
func buildCommandAPDU(cat *Catalog, family string, commands []string) ([]byte, error) {
	points, err := cat.lookupAll(family, ClassCommands, commands)
	if err != nil {
		return nil, err
	}
	apdu := appendAPDUHeader(nil, ClassCommands, OpSet, len(points))
	for _, dp := range points {
		apdu = append(apdu, dp.ID)
	}
	return apdu, nil
}

// assemblePDU wraps APDU blocks in the frame header and checksum trailer.
// The blocks must already be in wire emission order.
func assemblePDU(hdr Header, blocks [][]byte) ([]byte, error) {
	length := addressBytes
	for _, b := range blocks {
		length += len(b)
	}
	if length > MaxPduLen {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidLength, length, MaxPduLen)
	}
	pdu := make([]byte, 0, length+frameOverhead)
	pdu = append(pdu, hdr.StartDelimiter, byte(length), hdr.DestAddr, hdr.SourceAddr)
	for _, b := range blocks {
		pdu = append(pdu, b...)
	}
	return AppendCRC(pdu), nil
}
