// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import "fmt"

type BaseAddressReg uint32

func (b BaseAddressReg) IsMem() bool {
	return b&(1<<0) == 0
}

// Is64 reports a memory BAR whose upper address bits are in the next BAR.
func (b BaseAddressReg) Is64() bool {
	return b.IsMem() && (b>>1)&3 == 2
}

func (b BaseAddressReg) IsPrefetchable() bool {
	return b.IsMem() && b&(1<<3) != 0
}

func (b BaseAddressReg) Addr() uint32 {
	if !b.IsMem() {
		return uint32(b &^ 0x3)
	}
	return uint32(b &^ 0xf)
}

func (b BaseAddressReg) Valid() bool {
	return b.Addr() != 0
}

func (b BaseAddressReg) String() string {
	if b == 0 {
		return "{}"
	}
	x := uint32(b)
	tp := "mem"
	loc := ""
	if !b.IsMem() {
		tp = "i/o"
	} else {
		switch (x >> 1) & 3 {
		case 0:
			loc = "32-bit "
		case 1:
			loc = "< 1M "
		case 2:
			loc = "64-bit "
		case 3:
			loc = "unknown "
		}
		if x&(1<<3) != 0 {
			loc += "prefetchable "
		}
	}
	return fmt.Sprintf("{%s: %s0x%08x}", tp, loc, b.Addr())
}

// Region is a BAR, or a pair of BARs for 64-bit memory, with its full
// address.
type Region struct {
	Index        int    `yaml:"index"`
	IO           bool   `yaml:"io"`
	Wide         bool   `yaml:"wide"`
	Prefetchable bool   `yaml:"prefetchable"`
	Addr         uint64 `yaml:"addr"`
}

func (r Region) String() string {
	if r.IO {
		return fmt.Sprintf("Region %d: I/O ports at %04x", r.Index, r.Addr)
	}
	bits, pf := "32-bit", "non-prefetchable"
	if r.Wide {
		bits = "64-bit"
	}
	if r.Prefetchable {
		pf = "prefetchable"
	}
	return fmt.Sprintf("Region %d: Memory at %08x (%s, %s)", r.Index, r.Addr, bits, pf)
}

// Regions lists the non-zero BARs. A 64-bit BAR takes the following
// register as its upper half; a 64-bit BAR in the last slot is kept as
// 32 bits.
func Regions(bars []BaseAddressReg) (rs []Region) {
	for i := 0; i < len(bars); i++ {
		b := bars[i]
		r := Region{
			Index:        i,
			IO:           !b.IsMem(),
			Prefetchable: b.IsPrefetchable(),
			Addr:         uint64(b.Addr()),
		}
		if b.Is64() && i+1 < len(bars) {
			r.Wide = true
			i++
			r.Addr |= uint64(bars[i]) << 32
		}
		if r.Addr != 0 {
			rs = append(rs, r)
		}
	}
	return
}

// Regions returns the device's decoded BARs.
func (d *DeviceConfig) Regions() []Region { return Regions(d.BaseAddressRegs[:]) }

// Regions returns the bridge's decoded BARs.
func (b *BridgeConfig) Regions() []Region { return Regions(b.BaseAddressRegs[:]) }
