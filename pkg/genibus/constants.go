// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

// Package genibus implements the Grundfos GENIBus application-layer protocol
// as spoken by CU300 pump controllers.
//
// The package covers frame construction, CRC computation, the data point
// catalog, request builders, reply parsing, and a frame receiver for
// assembling exactly one validated frame from a byte stream. It knows nothing
// about transports beyond the minimal ExactReader contract.
package genibus

// Frame start delimiters
const (
	SdDataRequest byte = 0x27 // master -> slave, reply expected
	SdDataReply   byte = 0x24 // slave -> master
	SdDataMessage byte = 0x26 // master -> slave, no reply
)

// Frame geometry
const (
	// MaxPduLen bounds the length byte: address bytes plus payload.
	MaxPduLen = 252
	// Bytes outside the length field: delimiter, length, two CRC bytes.
	frameOverhead = 4
	// The length byte counts the two address bytes before the payload.
	addressBytes = 2
)

// Bus addresses
const (
	ConnectionReqAddr byte = 0xFE // handshake destination before unit_addr is known
	BroadcastAddr     byte = 0xFF
	DefaultUnitAddr   byte = 0x20
	DefaultSourceAddr byte = 0x04
)

// APDU classes
const (
	ClassProtocolData    byte = 0
	ClassBusData         byte = 1
	ClassMeasuredData    byte = 2
	ClassCommands        byte = 3
	ClassConfigParams    byte = 4
	ClassReferenceValues byte = 5
	ClassTestData        byte = 6
	ClassASCIIStrings    byte = 7
	ClassMeasuredData16  byte = 8
)

// APDU operations
const (
	OpGet  byte = 0
	OpSet  byte = 2
	OpInfo byte = 3
)

// Reply acknowledge codes, carried in the top two bits of a reply
// block header
const (
	AckOK               byte = 0
	AckUnknownClass     byte = 1
	AckUnknownDataItem  byte = 2
	AckIllegalOperation byte = 3
)

// CRC-16-CCITT configuration. The GENIBus checksum is CCITT over every byte
// after the start delimiter, with the final value complemented.
const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// DeviceFamilyCU300 keys the built-in data point table.
const DeviceFamilyCU300 = "cu300"
