// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

// Header carries the addressing of a request frame.
type Header struct {
	StartDelimiter byte
	DestAddr       byte
	SourceAddr     byte
}

// RequestHeader returns the header for a normal unicast data request.
func RequestHeader(destAddr, sourceAddr byte) Header {
	return Header{StartDelimiter: SdDataRequest, DestAddr: destAddr, SourceAddr: sourceAddr}
}

// GetValuesRequest names the data points to read, grouped by collection.
// Empty collections are skipped. MeasurementClass selects between 8-bit and
// 16-bit measured data; zero means ClassMeasuredData.
type GetValuesRequest struct {
	MeasurementClass byte
	ProtocolData     []string
	Parameters       []string
	Measurements     []string
	References       []string
	Strings          []string
}

func (r GetValuesRequest) measurementClass() byte {
	if r.MeasurementClass == 0 {
		return ClassMeasuredData
	}
	return r.MeasurementClass
}

// BuildGetValues builds a GET request frame. Blocks are emitted in the wire
// convention order: protocol data, parameters, measurements, references,
// strings.
func BuildGetValues(cat *Catalog, family string, hdr Header, req GetValuesRequest) ([]byte, error) {
	var blocks [][]byte
	add := func(class byte, names []string) error {
		if len(names) == 0 {
			return nil
		}
		apdu, err := buildGetAPDU(cat, family, class, OpGet, names)
		if err != nil {
			return err
		}
		blocks = append(blocks, apdu)
		return nil
	}
	if err := add(ClassProtocolData, req.ProtocolData); err != nil {
		return nil, err
	}
	if err := add(ClassConfigParams, req.Parameters); err != nil {
		return nil, err
	}
	if err := add(req.measurementClass(), req.Measurements); err != nil {
		return nil, err
	}
	if err := add(ClassReferenceValues, req.References); err != nil {
		return nil, err
	}
	if err := add(ClassASCIIStrings, req.Strings); err != nil {
		return nil, err
	}
	return assemblePDU(hdr, blocks)
}

// BuildSetValues builds a SET request frame writing parameter and reference
// values. Parameters are emitted before references.
func BuildSetValues(cat *Catalog, family string, hdr Header, parameters, references []SetValue) ([]byte, error) {
	var blocks [][]byte
	if len(parameters) > 0 {
		apdu, err := buildSetAPDU(cat, family, ClassConfigParams, parameters)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, apdu)
	}
	if len(references) > 0 {
		apdu, err := buildSetAPDU(cat, family, ClassReferenceValues, references)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, apdu)
	}
	return assemblePDU(hdr, blocks)
}

// BuildSetCommands builds a SET request frame issuing the named commands.
func BuildSetCommands(cat *Catalog, family string, hdr Header, commands []string) ([]byte, error) {
	apdu, err := buildCommandAPDU(cat, family, commands)
	if err != nil {
		return nil, err
	}
	return assemblePDU(hdr, [][]byte{apdu})
}

// BuildGetInfo builds an INFO request frame asking the device to describe
// the named data points (scaling, unit, range).
func BuildGetInfo(cat *Catalog, family string, hdr Header, req GetValuesRequest) ([]byte, error) {
	var blocks [][]byte
	add := func(class byte, names []string) error {
		if len(names) == 0 {
			return nil
		}
		apdu, err := buildGetAPDU(cat, family, class, OpInfo, names)
		if err != nil {
			return err
		}
		blocks = append(blocks, apdu)
		return nil
	}
	if err := add(req.measurementClass(), req.Measurements); err != nil {
		return nil, err
	}
	if err := add(ClassConfigParams, req.Parameters); err != nil {
		return nil, err
	}
	if err := add(ClassReferenceValues, req.References); err != nil {
		return nil, err
	}
	return assemblePDU(hdr, blocks)
}

// ConnectRequest is the fixed handshake exchange: it asks the not-yet-known
// device for its buffer size, bus mode, addressing and identity.
var ConnectRequest = GetValuesRequest{
	ProtocolData: []string{"buf_len", "unit_bus_mode"},
	Parameters:   []string{"unit_addr", "group_addr"},
	Measurements: []string{"unit_family", "unit_type"},
}

// BuildConnectRequest builds the handshake frame sent to the connection
// request address before normal polling begins.
func BuildConnectRequest(cat *Catalog, family string, sourceAddr byte) ([]byte, error) {
	return BuildGetValues(cat, family, RequestHeader(ConnectionReqAddr, sourceAddr), ConnectRequest)
}
