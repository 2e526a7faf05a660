// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import (
	"fmt"
	"strings"
)

// FormatFrame renders a frame in human-readable form for logs and the
// capture dump tool.
func FormatFrame(f *Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s len=%d dest=0x%02X src=0x%02X crc=0x%04X\n",
		FormatDelimiter(f.Start), f.Length, f.DestAddr, f.SourceAddr, f.CRC)

	payload := f.Payload
	for len(payload) >= 2 {
		class := payload[0]
		op := payload[1] >> 6
		bodyLen := int(payload[1] & 0x3F)
		if len(payload) < 2+bodyLen {
			fmt.Fprintf(&b, "  [truncated block class=%s]\n", FormatClass(class))
			break
		}
		fmt.Fprintf(&b, "  %s %s: %s\n", FormatClass(class), formatOp(f.Start, op), hexDump(payload[2:2+bodyLen]))
		payload = payload[2+bodyLen:]
	}
	if len(payload) == 1 {
		fmt.Fprintf(&b, "  [stray byte 0x%02X]\n", payload[0])
	}
	return b.String()
}

// FormatDelimiter returns the name of a start delimiter byte.
func FormatDelimiter(sd byte) string {
	switch sd {
	case SdDataRequest:
		return "DATA_REQUEST"
	case SdDataReply:
		return "DATA_REPLY"
	case SdDataMessage:
		return "DATA_MESSAGE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", sd)
	}
}

// FormatClass returns the name of an APDU class byte.
func FormatClass(class byte) string {
	switch class {
	case ClassProtocolData:
		return "PROTOCOL_DATA"
	case ClassBusData:
		return "BUS_DATA"
	case ClassMeasuredData:
		return "MEASURED_DATA"
	case ClassCommands:
		return "COMMANDS"
	case ClassConfigParams:
		return "CONFIG_PARAMS"
	case ClassReferenceValues:
		return "REFERENCE_VALUES"
	case ClassTestData:
		return "TEST_DATA"
	case ClassASCIIStrings:
		return "ASCII_STRINGS"
	case ClassMeasuredData16:
		return "MEASURED_DATA_16"
	default:
		return fmt.Sprintf("CLASS_%d", class)
	}
}

// formatOp names the operation bits. In replies the same bits carry the
// acknowledge code instead.
func formatOp(sd, op byte) string {
	if sd == SdDataReply {
		switch op {
		case AckOK:
			return "ACK_OK"
		case AckUnknownClass:
			return "ACK_UNKNOWN_CLASS"
		case AckUnknownDataItem:
			return "ACK_UNKNOWN_ITEM"
		default:
			return "ACK_ILLEGAL_OP"
		}
	}
	switch op {
	case OpGet:
		return "GET"
	case OpSet:
		return "SET"
	case OpInfo:
		return "INFO"
	default:
		return fmt.Sprintf("OP_%d", op)
	}
}

func hexDump(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(parts, " ")
}
