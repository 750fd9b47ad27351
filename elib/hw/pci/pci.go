// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pci decodes PCI configuration space: the standard header, the
// legacy and extended capability chains, and the legacy capability records.
//
// Nothing here touches hardware. A ConfigSpace is an immutable copy of
// bytes obtained from some byte source; every other value is derived from
// it on demand.
package pci

import (
	"fmt"
	"strconv"
	"strings"
)

// Configuration space sizes.
const (
	HeaderSize        = 0x40
	LegacyConfigSize  = 0x100
	ExtendedConfigMin = 0x100
	ConfigSize        = 0x1000
)

type BusAddress struct {
	Domain        uint16
	Bus, Slot, Fn uint8
}

func (a BusAddress) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%01x", a.Domain, a.Bus, a.Slot, a.Fn)
}

// Less orders addresses by domain, bus, slot, function.
func (a BusAddress) Less(b BusAddress) bool {
	if a.Domain != b.Domain {
		return a.Domain < b.Domain
	}
	if a.Bus != b.Bus {
		return a.Bus < b.Bus
	}
	if a.Slot != b.Slot {
		return a.Slot < b.Slot
	}
	return a.Fn < b.Fn
}

// ParseBusAddress accepts "dddd:bb:ss.f" and "bb:ss.f".
func ParseBusAddress(s string) (a BusAddress, err error) {
	bad := func() (BusAddress, error) {
		return BusAddress{}, fmt.Errorf("%q: invalid bus address", s)
	}
	dot := strings.LastIndexByte(s, '.')
	if dot < 0 {
		return bad()
	}
	fn, err := strconv.ParseUint(s[dot+1:], 16, 3)
	if err != nil {
		return bad()
	}
	f := strings.Split(s[:dot], ":")
	if len(f) == 2 {
		f = append([]string{"0"}, f...)
	}
	if len(f) != 3 {
		return bad()
	}
	domain, err := strconv.ParseUint(f[0], 16, 16)
	if err != nil {
		return bad()
	}
	bus, err := strconv.ParseUint(f[1], 16, 8)
	if err != nil {
		return bad()
	}
	slot, err := strconv.ParseUint(f[2], 16, 5)
	if err != nil {
		return bad()
	}
	a = BusAddress{
		Domain: uint16(domain),
		Bus:    uint8(bus),
		Slot:   uint8(slot),
		Fn:     uint8(fn),
	}
	return a, nil
}

// ConfigSpace is a read-only copy of a function's configuration space.
// Its declared length is the number of bytes the source produced, at least
// HeaderSize and at most ConfigSize.
type ConfigSpace struct {
	b []byte
}

// NewConfigSpace copies b. Bytes beyond ConfigSize are ignored; fewer than
// HeaderSize bytes is a *TruncatedError.
func NewConfigSpace(b []byte) (ConfigSpace, error) {
	if len(b) < HeaderSize {
		return ConfigSpace{}, &TruncatedError{
			What: "header",
			Need: HeaderSize,
			Have: len(b),
		}
	}
	if len(b) > ConfigSize {
		b = b[:ConfigSize]
	}
	return ConfigSpace{b: append([]byte(nil), b...)}, nil
}

// Len is the declared length.
func (c ConfigSpace) Len() int { return len(c.b) }

// IsExtended reports whether the declared length reaches into extended
// configuration space.
func (c ConfigSpace) IsExtended() bool { return len(c.b) > ExtendedConfigMin }

// Bytes returns a copy of the buffer.
func (c ConfigSpace) Bytes() []byte { return append([]byte(nil), c.b...) }

func (c ConfigSpace) check(what string, o, n uint) error {
	if o+n > uint(len(c.b)) || o+n < o {
		have := 0
		if o < uint(len(c.b)) {
			have = len(c.b) - int(o)
		}
		return &TruncatedError{What: what, Offset: o, Need: int(n), Have: have}
	}
	return nil
}

func (c ConfigSpace) Uint8(o uint) (uint8, error) {
	if err := c.check("u8", o, 1); err != nil {
		return 0, err
	}
	return c.b[o], nil
}

func (c ConfigSpace) Uint16(o uint) (uint16, error) {
	if err := c.check("u16", o, 2); err != nil {
		return 0, err
	}
	return le16(c.b[o:]), nil
}

func (c ConfigSpace) Uint32(o uint) (uint32, error) {
	if err := c.check("u32", o, 4); err != nil {
		return 0, err
	}
	return le32(c.b[o:]), nil
}

// Window returns a copy of n bytes at o.
func (c ConfigSpace) Window(o, n uint) ([]byte, error) {
	if err := c.check("window", o, n); err != nil {
		return nil, err
	}
	return append([]byte(nil), c.b[o:o+n]...), nil
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }
func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func put16(b []byte, v uint16) { b[0], b[1] = byte(v), byte(v>>8) }
func put32(b []byte, v uint32) {
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
}
