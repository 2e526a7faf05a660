// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import "fmt"

// Reply holds the decoded contents of a response frame, keyed by the
// symbolic names of the requested data points. Points the device reported as
// unavailable are omitted entirely.
type Reply struct {
	Values  map[string]float64
	Strings map[string]string
}

// ParseReply decodes a GET response against the request that produced it.
// The protocol carries no identifiers in reply data, so values are matched
// positionally: each reply block is paired with the requested collection of
// the same class and decoded point by point using catalog widths.
//
// The checksum is re-verified before any payload interpretation. A block for
// a class that was not requested is a parse failure, not a silent skip.
func ParseReply(cat *Catalog, family string, raw []byte, req GetValuesRequest) (*Reply, error) {
	frame, err := ParseFrame(raw)
	if err != nil {
		return nil, err
	}
	reply := &Reply{
		Values:  make(map[string]float64),
		Strings: make(map[string]string),
	}

	expected := map[byte][]string{}
	if len(req.ProtocolData) > 0 {
		expected[ClassProtocolData] = req.ProtocolData
	}
	if len(req.Parameters) > 0 {
		expected[ClassConfigParams] = req.Parameters
	}
	if len(req.Measurements) > 0 {
		expected[req.measurementClass()] = req.Measurements
	}
	if len(req.References) > 0 {
		expected[ClassReferenceValues] = req.References
	}

	payload := frame.Payload
	for len(payload) > 0 {
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: truncated block header", ErrIncompleteFrame)
		}
		class := payload[0]
		ack := payload[1] >> 6
		bodyLen := int(payload[1] & 0x3F)
		if len(payload) < 2+bodyLen {
			return nil, fmt.Errorf("%w: block body short (%d of %d bytes)", ErrIncompleteFrame, len(payload)-2, bodyLen)
		}
		body := payload[2 : 2+bodyLen]
		payload = payload[2+bodyLen:]

		if ack != AckOK {
			return nil, fmt.Errorf("%w: class %d, ack %d", ErrDeviceNak, class, ack)
		}

		if class == ClassASCIIStrings {
			if err := decodeStringBlock(cat, family, body, req.Strings, reply); err != nil {
				return nil, err
			}
			continue
		}

		names, ok := expected[class]
		if !ok {
			return nil, fmt.Errorf("genibus: unexpected reply block class %d", class)
		}
		delete(expected, class)

		points, err := cat.lookupAll(family, class, names)
		if err != nil {
			return nil, err
		}
		if err := decodeValueBlock(points, body, reply.Values); err != nil {
			return nil, err
		}
	}
	return reply, nil
}

// decodeValueBlock maps positional reply bytes back to the requested points
// using each point's declared wire width.
func decodeValueBlock(points []*DataPoint, body []byte, out map[string]float64) error {
	want := 0
	for _, dp := range points {
		want += dp.wireWidth()
	}
	if len(body) != want {
		return fmt.Errorf("genibus: reply block length %d, expected %d for %d points", len(body), want, len(points))
	}
	off := 0
	for _, dp := range points {
		w := dp.wireWidth()
		if v, ok := dp.Decode(body[off : off+w]); ok {
			out[dp.Name] = v
		}
		off += w
	}
	return nil
}

// decodeStringBlock handles the one variable-length class. A string reply
// body is the data point identifier followed by ASCII characters.
func decodeStringBlock(cat *Catalog, family string, body []byte, requested []string, reply *Reply) error {
	if len(body) < 1 {
		return fmt.Errorf("genibus: empty string block")
	}
	id := body[0]
	for _, name := range requested {
		dp, err := cat.Lookup(family, ClassASCIIStrings, name)
		if err != nil {
			return err
		}
		if dp.ID == id {
			reply.Strings[name] = string(body[1:])
			return nil
		}
	}
	return fmt.Errorf("genibus: string reply for unrequested id %d", id)
}

// PointInfo is the device's self-description of a data point, returned by an
// INFO request. Extended entries carry the unit and the scaling range.
type PointInfo struct {
	Head     byte
	Unit     byte
	Zero     byte
	Range    byte
	Extended bool
}

// ParseInfoReply decodes an INFO response built by BuildGetInfo. Each point
// answers with a head byte; when the scale information format in the low two
// bits indicates scaled data, three more bytes (unit, zero, range) follow.
func ParseInfoReply(cat *Catalog, family string, raw []byte, req GetValuesRequest) (map[string]PointInfo, error) {
	frame, err := ParseFrame(raw)
	if err != nil {
		return nil, err
	}

	expected := map[byte][]string{}
	if len(req.Measurements) > 0 {
		expected[req.measurementClass()] = req.Measurements
	}
	if len(req.Parameters) > 0 {
		expected[ClassConfigParams] = req.Parameters
	}
	if len(req.References) > 0 {
		expected[ClassReferenceValues] = req.References
	}

	out := make(map[string]PointInfo)
	payload := frame.Payload
	for len(payload) > 0 {
		if len(payload) < 2 {
			return nil, fmt.Errorf("%w: truncated block header", ErrIncompleteFrame)
		}
		class := payload[0]
		ack := payload[1] >> 6
		bodyLen := int(payload[1] & 0x3F)
		if len(payload) < 2+bodyLen {
			return nil, fmt.Errorf("%w: block body short", ErrIncompleteFrame)
		}
		body := payload[2 : 2+bodyLen]
		payload = payload[2+bodyLen:]

		if ack != AckOK {
			return nil, fmt.Errorf("%w: class %d, ack %d", ErrDeviceNak, class, ack)
		}
		names, ok := expected[class]
		if !ok {
			return nil, fmt.Errorf("genibus: unexpected info block class %d", class)
		}
		delete(expected, class)

		for _, name := range names {
			if len(body) < 1 {
				return nil, fmt.Errorf("genibus: info block exhausted before %q", name)
			}
			info := PointInfo{Head: body[0]}
			body = body[1:]
			if info.Head&0x03 >= 2 {
				if len(body) < 3 {
					return nil, fmt.Errorf("genibus: truncated extended info for %q", name)
				}
				info.Unit, info.Zero, info.Range = body[0], body[1], body[2]
				info.Extended = true
				body = body[3:]
			}
			out[name] = info
		}
		if len(body) != 0 {
			return nil, fmt.Errorf("genibus: %d trailing bytes in info block class %d", len(body), class)
		}
	}
	return out, nil
}
