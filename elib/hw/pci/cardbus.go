// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

// CardBusRange is one base/limit register pair of a CardBus bridge.
type CardBusRange struct {
	Base  uint32
	Limit uint32
}

/* Header type 2 (PCI-to-CardBus bridges), first 64 bytes */
type CardBusHeader struct {
	ConfigHeader

	// PC Card socket status and control registers
	SocketBase BaseAddressReg

	CapabilityOffset uint8
	Reserved         uint8

	SecondaryStatus Status

	PCIBus         uint8
	CardBusBus     uint8
	SubordinateBus uint8
	CardBusLatency uint8

	Memory [2]CardBusRange
	IO     [2]CardBusRange

	InterruptLine uint8
	InterruptPin
	CardBusControl
}

// CardBusConfig adds the registers CardBus bridges keep just past the
// standard header. They read as zero when the source stopped at 64 bytes.
type CardBusConfig struct {
	CardBusHeader

	Subsystem DeviceID
	// PC Card 16-bit interface legacy mode base address
	LegacyBase uint32
}

func (c *CardBusConfig) CapPointer() uint8 { return c.CapabilityOffset }

func (c *CardBusConfig) MarshalBinary() ([]byte, error) { return marshal(&c.CardBusHeader) }

func (c *CardBusConfig) decodeLegacy(cs ConfigSpace) {
	if v, err := cs.Uint16(0x40); err == nil {
		c.Subsystem.Vendor = VendorID(v)
	}
	if v, err := cs.Uint16(0x42); err == nil {
		c.Subsystem.Device = VendorDeviceID(v)
	}
	if v, err := cs.Uint32(0x44); err == nil {
		c.LegacyBase = v
	}
}

type CardBusControl uint16

const (
	CardBusPrefetch0 CardBusControl = 1 << 8
	CardBusPrefetch1 CardBusControl = 1 << 9
)

var CardBusControlLayout = Layout{Name: "BridgeCtl", Width: 16, Fields: []Field{
	{"Parity", 0, 1, Flag},
	{"SERR", 1, 1, Flag},
	{"ISA", 2, 1, Flag},
	{"VGA", 3, 1, Flag},
	{"MAbort", 5, 1, Flag},
	{">Reset", 6, 1, Flag},
	{"16bInt", 7, 1, Flag},
	{"PrefMem0", 8, 1, Flag},
	{"PrefMem1", 9, 1, Flag},
	{"PostWrite", 10, 1, Flag},
}}

func (c CardBusControl) String() string { return CardBusControlLayout.PlusMinus(uint32(c)) }

// Memory windows are 4K aligned.
const cardBusMemGranularity = 1<<12 - 1

// MemoryWindow returns memory window i, 0 or 1.
func (c *CardBusConfig) MemoryWindow(i int) (w Window) {
	r := c.Memory[i]
	w.Kind = MemoryWindow
	if c.CardBusControl&(CardBusPrefetch0<<uint(i)) != 0 {
		w.Kind = PrefetchWindow
	}
	w.Base = uint64(r.Base &^ cardBusMemGranularity)
	w.Limit = uint64(r.Limit | cardBusMemGranularity)
	w.Enabled = w.Base <= w.Limit
	return
}

// IOWindow returns I/O window i, 0 or 1. Windows are 4 byte aligned and
// decode 16 or 32 address bits as the base's low bits say.
func (c *CardBusConfig) IOWindow(i int) (w Window) {
	r := c.IO[i]
	w.Kind = IOWindow
	switch r.Base & 3 {
	case 0:
		w.Base = uint64(r.Base & 0xfffc)
		w.Limit = uint64(r.Limit&0xffff) | 3
	case 1:
		w.Wide = true
		w.Base = uint64(r.Base &^ 3)
		w.Limit = uint64(r.Limit) | 3
	default:
		w.Unknown = true
		w.Base = uint64(r.Base &^ 3)
		w.Limit = uint64(r.Limit) | 3
	}
	w.Enabled = w.Base <= w.Limit
	return
}

// Windows returns memory windows 0 and 1 then I/O windows 0 and 1.
func (c *CardBusConfig) Windows() []Window {
	return []Window{c.MemoryWindow(0), c.MemoryWindow(1), c.IOWindow(0), c.IOWindow(1)}
}
