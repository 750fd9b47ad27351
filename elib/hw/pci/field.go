// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
)

// Unit says how a field's raw value is to be read.
type Unit uint8

const (
	Flag Unit = iota
	Number
	Enum
	Count
	// lanes, raw value is the width (x1, x2, ... x32)
	Lanes
	// 4-bit code, 1 = 2.5 GT/s ... 6 = 64 GT/s
	Speed
	// 3-bit exponent, 128 << n bytes
	Payload
	// address bits, already in position
	Address
	Reserved
)

var unitNames = [...]string{
	Flag:     "flag",
	Number:   "number",
	Enum:     "enum",
	Count:    "count",
	Lanes:    "lanes",
	Speed:    "GT/s",
	Payload:  "bytes",
	Address:  "address",
	Reserved: "reserved",
}

func (u Unit) String() string { return elib.Stringer(unitNames[:], int(u)) }

// Field is a bit range [Shift+Width-1:Shift] of a register.
type Field struct {
	Name  string
	Shift uint8
	Width uint8
	Unit  Unit
}

func (f Field) Mask() uint32 {
	if f.Width >= 32 {
		return ^uint32(0)
	}
	return (1<<f.Width - 1) << f.Shift
}

func (f Field) Get(x uint32) uint32  { return (x & f.Mask()) >> f.Shift }
func (f Field) Bool(x uint32) bool   { return x&f.Mask() != 0 }
func (f Field) Uint8(x uint32) uint8 { return uint8(f.Get(x)) }

// Put returns x with the field replaced by v.
func (f Field) Put(x, v uint32) uint32 {
	return x&^f.Mask() | (v<<f.Shift)&f.Mask()
}

func (f Field) String() string {
	if f.Width == 1 {
		return fmt.Sprintf("%s[%d]", f.Name, f.Shift)
	}
	return fmt.Sprintf("%s[%d:%d]", f.Name, f.Shift+f.Width-1, f.Shift)
}

// Layout is the field table of one register.
type Layout struct {
	Name   string
	Width  uint8
	Fields []Field
}

// Validate checks that each field fits in the register, fields don't
// overlap, and names are unique.
func (l Layout) Validate() error {
	var used uint64
	names := make(map[string]bool)
	for _, f := range l.Fields {
		if f.Width == 0 || int(f.Shift)+int(f.Width) > int(l.Width) {
			return fmt.Errorf("%s: %v outside %d-bit register", l.Name, f, l.Width)
		}
		m := uint64(f.Mask())
		if used&m != 0 {
			return fmt.Errorf("%s: %v overlaps", l.Name, f)
		}
		used |= m
		if names[f.Name] {
			return fmt.Errorf("%s: duplicate field %s", l.Name, f.Name)
		}
		names[f.Name] = true
	}
	return nil
}

// Lookup finds a field by name.
func (l Layout) Lookup(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Unused is the mask of bits no field describes.
func (l Layout) Unused() uint32 {
	var m uint32
	for _, f := range l.Fields {
		m |= f.Mask()
	}
	all := ^uint32(0)
	if l.Width < 32 {
		all = 1<<l.Width - 1
	}
	return all &^ m
}

// FieldValue is one decoded field of a register.
type FieldValue struct {
	Name  string `yaml:"name"`
	Unit  string `yaml:"unit"`
	Value uint32 `yaml:"value"`
}

// Decode lists every field of x in table order.
func (l Layout) Decode(x uint32) []FieldValue {
	v := make([]FieldValue, 0, len(l.Fields))
	for _, f := range l.Fields {
		v = append(v, FieldValue{Name: f.Name, Unit: f.Unit.String(), Value: f.Get(x)})
	}
	return v
}

// Encode builds a register from name/value pairs; names not in the table
// are ignored.
func (l Layout) Encode(values map[string]uint32) (x uint32) {
	for _, f := range l.Fields {
		if v, ok := values[f.Name]; ok {
			x = f.Put(x, v)
		}
	}
	return
}

// Flags is the set of bits described by Flag fields.
func (l Layout) Flags(x uint32) (names []string) {
	for _, f := range l.Fields {
		if f.Unit == Flag && f.Bool(x) {
			names = append(names, f.Name)
		}
	}
	return
}

// NameTable returns a bit-indexed name table of the layout's flags, for
// elib.PlusMinus and friends.
func (l Layout) NameTable() []string {
	n := make([]string, l.Width)
	for _, f := range l.Fields {
		if f.Unit == Flag && f.Width == 1 {
			n[f.Shift] = f.Name
		}
	}
	return n
}

// PlusMinus renders the layout's flags of x lspci style.
func (l Layout) PlusMinus(x uint32) string {
	return elib.PlusMinus(l.NameTable(), uint64(x))
}

// Speeds, indexed by the 4-bit link speed code, in MT/s.
var speedMTs = [...]uint{0, 2500, 5000, 8000, 16000, 32000, 64000}

// LinkSpeed is the 4-bit link speed encoding shared by the Express link
// registers.
type LinkSpeed uint8

// MTs returns the rate in MT/s, 0 for reserved codes.
func (s LinkSpeed) MTs() uint {
	if int(s) < len(speedMTs) {
		return speedMTs[s]
	}
	return 0
}

func (s LinkSpeed) String() string {
	mt := s.MTs()
	if mt == 0 {
		return "unknown"
	}
	if mt%1000 == 0 {
		return fmt.Sprintf("%dGT/s", mt/1000)
	}
	return fmt.Sprintf("%d.%dGT/s", mt/1000, (mt%1000)/100)
}

// LinkWidth is the negotiated or maximum lane count.
type LinkWidth uint8

func (w LinkWidth) String() string { return fmt.Sprintf("x%d", uint8(w)) }

// PayloadSize is a 3-bit exponent, 128 << n bytes.
type PayloadSize uint8

func (p PayloadSize) Bytes() uint { return 128 << p }

func (p PayloadSize) String() string { return fmt.Sprintf("%d bytes", p.Bytes()) }
