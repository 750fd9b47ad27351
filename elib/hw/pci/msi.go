// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import "fmt"

const (
	msiControl = 0x2
	msiAddress = 0x4
)

var (
	msiMultipleCapable = Field{"Count", 1, 3, Count}
	msiMultipleEnable  = Field{"Enable/Count", 4, 3, Count}

	MSIControlLayout = Layout{Name: "MSI Control", Width: 16, Fields: []Field{
		{"Enable", 0, 1, Flag},
		msiMultipleCapable,
		msiMultipleEnable,
		{"64bit", 7, 1, Flag},
		{"Maskable", 8, 1, Flag},
	}}
)

// [0] enable
// [3:1] log2 of vectors requested
// [6:4] log2 of vectors allocated
// [7] 64-bit address
// [8] per-vector masking
type MSIControl uint16

func (c MSIControl) Enabled() bool   { return c&(1<<0) != 0 }
func (c MSIControl) Is64() bool      { return c&(1<<7) != 0 }
func (c MSIControl) Maskable() bool  { return c&(1<<8) != 0 }
func (c MSIControl) Capable() uint   { return 1 << msiMultipleCapable.Get(uint32(c)) }
func (c MSIControl) Allocated() uint { return 1 << msiMultipleEnable.Get(uint32(c)) }

func (c MSIControl) String() string {
	return fmt.Sprintf("%s Count=%d/%d", MSIControlLayout.PlusMinus(uint32(c)), c.Allocated(), c.Capable())
}

// size returns the capability length the control register implies.
func (c MSIControl) size() int {
	n := 0xa
	if c.Is64() {
		n += 4
	}
	if c.Maskable() {
		n = n + 2 + 8
	}
	return n
}

type MSICap struct {
	Offset  uint16
	Control MSIControl
	Address uint64
	Data    uint16
	// Valid when Control.Maskable().
	Mask    uint32
	Pending uint32
}

func (*MSICap) CapabilityKey() Key { return Key{ID: uint16(MSI)} }

func (m *MSICap) String() string {
	return fmt.Sprintf("MSI: %v Address: %016x Data: %04x", m.Control, m.Address, m.Data)
}

func DecodeMSI(r *RawCapability) (*MSICap, error) {
	if err := short("msi", r.Offset, r.Data, msiAddress); err != nil {
		return nil, err
	}
	m := &MSICap{
		Offset:  r.Offset,
		Control: MSIControl(r.U16(msiControl)),
	}
	if err := short("msi", r.Offset, r.Data, m.Control.size()); err != nil {
		return nil, err
	}
	o := uint(msiAddress)
	m.Address = uint64(r.U32(o))
	o += 4
	if m.Control.Is64() {
		m.Address |= uint64(r.U32(o)) << 32
		o += 4
	}
	m.Data = r.U16(o)
	o += 4
	if m.Control.Maskable() {
		m.Mask = r.U32(o)
		m.Pending = r.U32(o + 4)
	}
	return m, nil
}
