// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package genibus

import "fmt"

// DataPoint describes one named, addressable value on the device: its wire
// identifier, APDU class, and the rule for converting raw wire bytes into a
// physical value.
type DataPoint struct {
	Name   string
	ID     byte
	Class  byte
	Width  int // bytes on the wire, 1 or 2
	Signed bool
	Scale  float64 // physical = raw*Scale + Offset; zero means 1
	Offset float64
	Unit   string
}

// Decode converts raw wire bytes into a physical value. The second return is
// false when the device reported the value as unavailable (all bits set),
// in which case the entry should be omitted rather than substituted.
func (dp *DataPoint) Decode(raw []byte) (float64, bool) {
	if len(raw) != dp.wireWidth() {
		return 0, false
	}
	var u uint16
	switch dp.wireWidth() {
	case 1:
		u = uint16(raw[0])
		if u == 0xFF {
			return 0, false
		}
	case 2:
		u = uint16(raw[0])<<8 | uint16(raw[1])
		if u == 0xFFFF {
			return 0, false
		}
	}
	var v float64
	if dp.Signed {
		if dp.wireWidth() == 1 {
			v = float64(int8(u))
		} else {
			v = float64(int16(u))
		}
	} else {
		v = float64(u)
	}
	scale := dp.Scale
	if scale == 0 {
		scale = 1
	}
	return v*scale + dp.Offset, true
}

func (dp *DataPoint) wireWidth() int {
	if dp.Width == 2 {
		return 2
	}
	return 1
}

type catalogKey struct {
	family string
	class  byte
	name   string
}

// Catalog resolves symbolic data point names to protocol identifiers and
// decoding rules. It is built once, then shared read-only; the protocol
// layers receive it by injection rather than through package state.
type Catalog struct {
	items map[catalogKey]*DataPoint
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{items: make(map[catalogKey]*DataPoint)}
}

// Register adds a data point to the catalog under the given device family.
// Registering the same (family, class, name) twice replaces the entry.
func (c *Catalog) Register(family string, dp DataPoint) {
	p := dp
	c.items[catalogKey{family, dp.Class, dp.Name}] = &p
}

// Lookup resolves a symbolic name within a device family and APDU class.
// A miss is a configuration error, surfaced as ErrUnknownDataPoint.
func (c *Catalog) Lookup(family string, class byte, name string) (*DataPoint, error) {
	dp, ok := c.items[catalogKey{family, class, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %q (family %s, class %d)", ErrUnknownDataPoint, name, family, class)
	}
	return dp, nil
}

// lookupAll resolves a list of names in request order.
func (c *Catalog) lookupAll(family string, class byte, names []string) ([]*DataPoint, error) {
	points := make([]*DataPoint, 0, len(names))
	for _, name := range names {
		dp, err := c.Lookup(family, class, name)
		if err != nil {
			return nil, err
		}
		points = append(points, dp)
	}
	return points, nil
}

// DefaultCatalog returns the built-in CU300 data point table. The table is
// the static mapping the rest of the system consumes; device-specific
// additions go through Register.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	// Protocol data
	c.Register(DeviceFamilyCU300, DataPoint{Name: "df_buf_len", ID: 0, Class: ClassProtocolData})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "buf_len", ID: 2, Class: ClassProtocolData})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "unit_bus_mode", ID: 3, Class: ClassProtocolData})

	// Measured data
	c.Register(DeviceFamilyCU300, DataPoint{Name: "p", ID: 34, Class: ClassMeasuredData, Scale: 5, Unit: "W"})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "speed", ID: 35, Class: ClassMeasuredData, Scale: 50, Unit: "rpm"})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "h", ID: 37, Class: ClassMeasuredData, Scale: 0.1, Unit: "m"})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "q", ID: 39, Class: ClassMeasuredData, Scale: 0.2, Unit: "m3/h"})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "t_w", ID: 58, Class: ClassMeasuredData, Unit: "C"})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "act_mode1", ID: 81, Class: ClassMeasuredData})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "act_mode2", ID: 82, Class: ClassMeasuredData})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "act_mode3", ID: 83, Class: ClassMeasuredData})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "unit_family", ID: 148, Class: ClassMeasuredData})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "unit_type", ID: 149, Class: ClassMeasuredData})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "alarm_code", ID: 163, Class: ClassMeasuredData})

	// 16-bit measured data, higher resolution variants
	c.Register(DeviceFamilyCU300, DataPoint{Name: "h", ID: 37, Class: ClassMeasuredData16, Width: 2, Scale: 0.01, Unit: "m"})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "q", ID: 39, Class: ClassMeasuredData16, Width: 2, Scale: 0.02, Unit: "m3/h"})

	// Commands
	c.Register(DeviceFamilyCU300, DataPoint{Name: "RESET", ID: 0, Class: ClassCommands})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "RESET_ALARM", ID: 1, Class: ClassCommands})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "STOP", ID: 5, Class: ClassCommands})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "START", ID: 6, Class: ClassCommands})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "REMOTE", ID: 7, Class: ClassCommands})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "LOCAL", ID: 8, Class: ClassCommands})

	// Configuration parameters
	c.Register(DeviceFamilyCU300, DataPoint{Name: "unit_addr", ID: 46, Class: ClassConfigParams})
	c.Register(DeviceFamilyCU300, DataPoint{Name: "group_addr", ID: 47, Class: ClassConfigParams})

	// Reference values
	c.Register(DeviceFamilyCU300, DataPoint{Name: "ref", ID: 1, Class: ClassReferenceValues, Unit: "%"})

	// ASCII strings
	c.Register(DeviceFamilyCU300, DataPoint{Name: "unit_name", ID: 8, Class: ClassASCIIStrings})

	return c
}
