// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
)

/* Header type 1 (PCI-to-PCI bridges) */
type BridgeConfig struct {
	ConfigHeader

	BaseAddressRegs [2]BaseAddressReg

	PrimaryBus       uint8
	SecondaryBus     uint8
	SubordinateBus   uint8
	SecondaryLatency uint8

	// [3:0] range type, 0 16-bit, 1 32-bit
	// [7:4] address bits [15:12]
	IOBase  uint8
	IOLimit uint8

	SecondaryStatus Status

	// [3:0] reserved
	// [15:4] address bits [31:20]
	MemoryBase  uint16
	MemoryLimit uint16

	// [3:0] range type, 0 32-bit, 1 64-bit
	// [15:4] address bits [31:20]
	PrefetchBase  uint16
	PrefetchLimit uint16

	PrefetchBaseUpper  uint32
	PrefetchLimitUpper uint32

	IOBaseUpper  uint16
	IOLimitUpper uint16

	CapabilityOffset uint8
	Reserved         [3]uint8

	RomAddress ExpansionROM

	InterruptLine uint8
	InterruptPin
	BridgeControl
}

func (b *BridgeConfig) CapPointer() uint8 { return b.CapabilityOffset }

func (b *BridgeConfig) MarshalBinary() ([]byte, error) { return marshal(b) }

type BridgeControl uint16

var BridgeControlLayout = Layout{Name: "BridgeCtl", Width: 16, Fields: []Field{
	{"Parity", 0, 1, Flag},
	{"SERR", 1, 1, Flag},
	{"NoISA", 2, 1, Flag},
	{"VGA", 3, 1, Flag},
	{"VGA16", 4, 1, Flag},
	{"MAbort", 5, 1, Flag},
	{">Reset", 6, 1, Flag},
	{"FastB2B", 7, 1, Flag},
	{"PriDiscTmr", 8, 1, Flag},
	{"SecDiscTmr", 9, 1, Flag},
	{"DiscTmrStat", 10, 1, Flag},
	{"DiscTmrSERREn", 11, 1, Flag},
}}

func (c BridgeControl) String() string { return BridgeControlLayout.PlusMinus(uint32(c)) }

type WindowKind uint8

const (
	IOWindow WindowKind = iota
	MemoryWindow
	PrefetchWindow
)

var windowKindNames = [...]string{
	IOWindow:       "I/O",
	MemoryWindow:   "memory",
	PrefetchWindow: "prefetchable memory",
}

func (k WindowKind) String() string { return elib.Stringer(windowKindNames[:], int(k)) }

func (k WindowKind) MarshalYAML() (interface{}, error) { return k.String(), nil }

// Window is an address range a bridge forwards to its secondary side.
type Window struct {
	Kind  WindowKind `yaml:"kind"`
	Base  uint64     `yaml:"base"`
	Limit uint64     `yaml:"limit"`
	// 32-bit I/O or 64-bit memory decoding
	Wide bool `yaml:"wide"`
	// base <= limit
	Enabled bool `yaml:"enabled"`
	// range type indicator not recognized or base/limit types disagree
	Unknown bool `yaml:"unknown,omitempty"`
}

func (w Window) Size() uint64 {
	if !w.Enabled {
		return 0
	}
	return w.Limit - w.Base + 1
}

func (w Window) String() string {
	s := fmt.Sprintf("%s %08x-%08x", w.Kind, w.Base, w.Limit)
	if !w.Enabled {
		return s + " [disabled]"
	}
	return s + fmt.Sprintf(" [size=%s]", SizeString(w.Size()))
}

// SizeString renders a power-of-two-ish size lspci style: 4K, 1M, 9M.
func SizeString(n uint64) string {
	for _, u := range []struct {
		shift uint
		s     string
	}{{40, "T"}, {30, "G"}, {20, "M"}, {10, "K"}} {
		if n >= 1<<u.shift && n&(1<<u.shift-1) == 0 {
			return fmt.Sprintf("%d%s", n>>u.shift, u.s)
		}
	}
	return fmt.Sprintf("%d", n)
}

// I/O windows are 4K aligned, memory windows 1M aligned.
const (
	ioGranularity  = 1<<12 - 1
	memGranularity = 1<<20 - 1
	rangeTypeMask  = 0xf
)

func (b *BridgeConfig) IO() (w Window) {
	w.Kind = IOWindow
	t := b.IOBase & rangeTypeMask
	w.Unknown = t != b.IOLimit&rangeTypeMask || t > 1
	w.Wide = t == 1
	w.Base = uint64(b.IOBase&^rangeTypeMask) << 8
	w.Limit = uint64(b.IOLimit&^rangeTypeMask)<<8 | ioGranularity
	if w.Wide {
		w.Base |= uint64(b.IOBaseUpper) << 16
		w.Limit |= uint64(b.IOLimitUpper) << 16
	}
	w.Enabled = w.Base <= w.Limit
	return
}

func (b *BridgeConfig) Memory() (w Window) {
	w.Kind = MemoryWindow
	w.Unknown = b.MemoryBase&rangeTypeMask != 0 || b.MemoryLimit&rangeTypeMask != 0
	w.Base = uint64(b.MemoryBase&^rangeTypeMask) << 16
	w.Limit = uint64(b.MemoryLimit&^rangeTypeMask)<<16 | memGranularity
	w.Enabled = w.Base <= w.Limit
	return
}

func (b *BridgeConfig) Prefetchable() (w Window) {
	w.Kind = PrefetchWindow
	t := b.PrefetchBase & rangeTypeMask
	w.Unknown = t != b.PrefetchLimit&rangeTypeMask || t > 1
	w.Wide = t == 1
	w.Base = uint64(b.PrefetchBase&^rangeTypeMask) << 16
	w.Limit = uint64(b.PrefetchLimit&^rangeTypeMask)<<16 | memGranularity
	if w.Wide {
		w.Base |= uint64(b.PrefetchBaseUpper) << 32
		w.Limit |= uint64(b.PrefetchLimitUpper) << 32
	}
	w.Enabled = w.Base <= w.Limit
	return
}

// Windows returns the I/O, memory and prefetchable windows in that order.
func (b *BridgeConfig) Windows() []Window {
	return []Window{b.IO(), b.Memory(), b.Prefetchable()}
}
