// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/platinasystems/pcitool/elib"
)

// Each function has 256 bytes of configuration address space, the first
// 64 bytes are standardized, the first 16 of which are common to every
// header type:
type ConfigHeader struct {
	DeviceID
	Command
	Status

	Revision uint8

	// Distinguishes programming interface for device.
	// For example, different standards for USB controllers.
	SoftwareInterface

	DeviceClass

	CacheSize    uint8
	LatencyTimer uint8

	// If bit 7 of this register is set, the device has multiple functions;
	// otherwise, it is a single function device.
	Tp uint8

	Bist BIST
}

func (c *ConfigHeader) Common() *ConfigHeader { return c }

func (c ConfigHeader) Type() HeaderType {
	return HeaderType(c.Tp &^ (1 << 7))
}

func (c ConfigHeader) IsMultiFunction() bool { return c.Tp&(1<<7) != 0 }

type HeaderType uint8

const (
	Normal HeaderType = iota
	Bridge
	CardBus
)

var headerTypeNames = [...]string{
	Normal:  "normal",
	Bridge:  "bridge",
	CardBus: "cardbus",
}

func (t HeaderType) String() string { return elib.StringerHex(headerTypeNames[:], int(t)) }

type SoftwareInterface uint8

func (x SoftwareInterface) String() string {
	return fmt.Sprintf("0x%02x", uint8(x))
}

type Command uint16

const (
	IOEnable Command = 1 << iota
	MemoryEnable
	BusMasterEnable
	SpecialCycles
	WriteInvalidate
	VgaPaletteSnoop
	Parity
	AddressDataStepping
	SERR
	BackToBackWrite
	INTxEmulationDisable
)

var CommandLayout = Layout{Name: "Control", Width: 16, Fields: []Field{
	{"I/O", 0, 1, Flag},
	{"Mem", 1, 1, Flag},
	{"BusMaster", 2, 1, Flag},
	{"SpecCycle", 3, 1, Flag},
	{"MemWINV", 4, 1, Flag},
	{"VGASnoop", 5, 1, Flag},
	{"ParErr", 6, 1, Flag},
	{"Stepping", 7, 1, Flag},
	{"SERR", 8, 1, Flag},
	{"FastB2B", 9, 1, Flag},
	{"DisINTx", 10, 1, Flag},
}}

func (c Command) String() string { return CommandLayout.PlusMinus(uint32(c)) }

type Status uint16

const (
	StatusINTx         Status = 1 << 3
	StatusCapabilities Status = 1 << 4
	Status66MHz        Status = 1 << 5
)

var (
	statusDevsel = Field{"DEVSEL", 9, 2, Enum}

	StatusLayout = Layout{Name: "Status", Width: 16, Fields: []Field{
		{"INTx", 3, 1, Flag},
		{"Cap", 4, 1, Flag},
		{"66MHz", 5, 1, Flag},
		{"UDF", 6, 1, Flag},
		{"FastB2B", 7, 1, Flag},
		{"ParErr", 8, 1, Flag},
		statusDevsel,
		{">TAbort", 11, 1, Flag},
		{"<TAbort", 12, 1, Flag},
		{"<MAbort", 13, 1, Flag},
		{">SERR", 14, 1, Flag},
		{"<PERR", 15, 1, Flag},
	}}
)

var devselNames = [...]string{"fast", "medium", "slow"}

func (s Status) HasCapabilities() bool { return s&StatusCapabilities != 0 }

func (s Status) Devsel() string {
	return elib.Stringer(devselNames[:], int(statusDevsel.Get(uint32(s))))
}

func (s Status) String() string {
	return StatusLayout.PlusMinus(uint32(s)) + " DEVSEL=" + s.Devsel()
}

// BIST is the built-in self test register.
type BIST uint8

func (b BIST) Capable() bool { return b&(1<<7) != 0 }
func (b BIST) Running() bool { return b&(1<<6) != 0 }
func (b BIST) Code() uint8   { return uint8(b & 0xf) }

// Device/vendor ID from PCI config space.
type VendorID uint16
type VendorDeviceID uint16

func (v VendorID) String() string       { return fmt.Sprintf("%04x", uint16(v)) }
func (d VendorDeviceID) String() string { return fmt.Sprintf("%04x", uint16(d)) }

// Vendor/Device pair
type DeviceID struct {
	Vendor VendorID
	Device VendorDeviceID
}

func (d DeviceID) String() string { return d.Vendor.String() + ":" + d.Device.String() }

// Header is the decoded first 64 bytes. The concrete type, selected by the
// low 7 bits of the header type register, is one of *DeviceConfig,
// *BridgeConfig, *CardBusConfig, or *RawConfig for header types this
// package does not know.
type Header interface {
	Common() *ConfigHeader
	// Offset of the first legacy capability, 0 if none.
	CapPointer() uint8
	// The 64 header bytes this value was decoded from.
	MarshalBinary() ([]byte, error)
}

type InterruptPin uint8

var interruptPinNames = [...]string{"none", "INTA", "INTB", "INTC", "INTD"}

func (p InterruptPin) String() string { return elib.StringerHex(interruptPinNames[:], int(p)) }

// ExpansionROM is the expansion ROM base address register.
type ExpansionROM uint32

func (r ExpansionROM) Addr() uint32  { return uint32(r) &^ 0x7ff }
func (r ExpansionROM) Enabled() bool { return r&1 != 0 }

/* Header type 0 (normal devices) */
type DeviceConfig struct {
	ConfigHeader

	// Base addresses specify locations in memory or I/O space.
	BaseAddressRegs [6]BaseAddressReg

	CardBusCIS uint32

	SubID DeviceID

	RomAddress ExpansionROM

	// Config space offset of start of capability list.
	CapabilityOffset uint8
	Reserved         [7]uint8

	InterruptLine uint8
	InterruptPin
	MinGrant   uint8
	MaxLatency uint8
}

func (d *DeviceConfig) CapPointer() uint8 { return d.CapabilityOffset }

func (d *DeviceConfig) MarshalBinary() ([]byte, error) { return marshal(d) }

// RawConfig is a header of unknown type; only the common part is decoded.
type RawConfig struct {
	ConfigHeader
	Rest [HeaderSize - 16]uint8
}

func (r *RawConfig) CapPointer() uint8 { return 0 }

func (r *RawConfig) MarshalBinary() ([]byte, error) { return marshal(r) }

func marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeHeader decodes the standard 64-byte header. Header types other than
// Normal, Bridge and CardBus decode to *RawConfig with a nil error; the
// caller decides how to report them.
func DecodeHeader(cs ConfigSpace) (Header, error) {
	b, err := cs.Window(0, HeaderSize)
	if err != nil {
		return nil, err
	}
	var h Header
	var v interface{}
	switch HeaderType(b[0xe] &^ (1 << 7)) {
	case Normal:
		d := new(DeviceConfig)
		h, v = d, d
	case Bridge:
		d := new(BridgeConfig)
		h, v = d, d
	case CardBus:
		d := new(CardBusConfig)
		h, v = d, &d.CardBusHeader
	default:
		d := new(RawConfig)
		h, v = d, d
	}
	if err = binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return nil, err
	}
	if c, ok := h.(*CardBusConfig); ok {
		c.decodeLegacy(cs)
	}
	return h, nil
}

// Unsupported returns a *UnsupportedError for a header this package could
// only partially decode, or nil.
func Unsupported(h Header) error {
	if r, ok := h.(*RawConfig); ok {
		return &UnsupportedError{What: "header type", Value: uint(r.Type())}
	}
	return nil
}
