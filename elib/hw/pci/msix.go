// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import "fmt"

const (
	msixControl = 0x2
	msixTable   = 0x4
	msixPBA     = 0x8
	msixMinSize = 0xc
)

var (
	msixTableSize = Field{"Count", 0, 11, Count}

	MSIXControlLayout = Layout{Name: "MSI-X Control", Width: 16, Fields: []Field{
		msixTableSize,
		{"Masked", 14, 1, Flag},
		{"Enable", 15, 1, Flag},
	}}

	msixBIR    = Field{"BAR", 0, 3, Number}
	msixOffset = Field{"Offset", 3, 29, Address}

	MSIXTableLayout = Layout{Name: "MSI-X Table", Width: 32, Fields: []Field{
		msixBIR,
		msixOffset,
	}}
)

type MSIXControl uint16

func (c MSIXControl) Enabled() bool { return c&(1<<15) != 0 }
func (c MSIXControl) Masked() bool  { return c&(1<<14) != 0 }

// TableSize is the number of table entries; the register holds N-1.
func (c MSIXControl) TableSize() uint { return uint(msixTableSize.Get(uint32(c))) + 1 }

func (c MSIXControl) String() string {
	return fmt.Sprintf("%s Count=%d", MSIXControlLayout.PlusMinus(uint32(c)), c.TableSize())
}

// MSIXLocation is a BAR indicator and an 8-byte aligned offset into it.
type MSIXLocation uint32

func (l MSIXLocation) BAR() uint8     { return msixBIR.Uint8(uint32(l)) }
func (l MSIXLocation) Offset() uint32 { return uint32(l) &^ 7 }
func (l MSIXLocation) String() string { return fmt.Sprintf("BAR=%d offset=%08x", l.BAR(), l.Offset()) }

type MSIXCap struct {
	Offset  uint16
	Control MSIXControl
	Table   MSIXLocation
	PBA     MSIXLocation
}

func (*MSIXCap) CapabilityKey() Key { return Key{ID: uint16(MSIX)} }

func (m *MSIXCap) String() string {
	return fmt.Sprintf("MSI-X: %v Vector table: %v PBA: %v", m.Control, m.Table, m.PBA)
}

func DecodeMSIX(r *RawCapability) (*MSIXCap, error) {
	if err := short("msi-x", r.Offset, r.Data, msixMinSize); err != nil {
		return nil, err
	}
	return &MSIXCap{
		Offset:  r.Offset,
		Control: MSIXControl(r.U16(msixControl)),
		Table:   MSIXLocation(r.U32(msixTable)),
		PBA:     MSIXLocation(r.U32(msixPBA)),
	}, nil
}
