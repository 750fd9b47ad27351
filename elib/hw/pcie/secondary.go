// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Link control 3:
//
//	[0] perform equalization
//	[1] link equalization request interrupt enable
//	[15:9] enable lower SKP OS generation vector
type LnkCtl3 uint32

var (
	lnkCtl3SKP = field("LowerSKPOSGenVec", 9, 7, pci.Number)

	LnkCtl3Layout = pci.Layout{Name: "LnkCtl3", Width: 32, Fields: []pci.Field{
		flag("PerformEqu", 0),
		flag("LnkEquIntrruptEn", 1),
		lnkCtl3SKP,
	}}
)

func (c LnkCtl3) String() string { return LnkCtl3Layout.PlusMinus(uint32(c)) }

// Lane equalization control, one per lane:
//
//	[3:0] downstream port transmitter preset
//	[6:4] downstream port receiver preset hint
//	[11:8] upstream port transmitter preset
//	[14:12] upstream port receiver preset hint
type LaneEqCtl uint16

var (
	laneDownTx = field("DownstreamTxPreset", 0, 4, pci.Enum)
	laneDownRx = field("DownstreamRxHint", 4, 3, pci.Enum)
	laneUpTx   = field("UpstreamTxPreset", 8, 4, pci.Enum)
	laneUpRx   = field("UpstreamRxHint", 12, 3, pci.Enum)

	LaneEqCtlLayout = pci.Layout{Name: "LaneEqCtl", Width: 16, Fields: []pci.Field{
		laneDownTx,
		laneDownRx,
		laneUpTx,
		laneUpRx,
	}}
)

func (c LaneEqCtl) DownstreamTxPreset() uint8 { return laneDownTx.Uint8(uint32(c)) }
func (c LaneEqCtl) DownstreamRxHint() uint8   { return laneDownRx.Uint8(uint32(c)) }
func (c LaneEqCtl) UpstreamTxPreset() uint8   { return laneUpTx.Uint8(uint32(c)) }
func (c LaneEqCtl) UpstreamRxHint() uint8     { return laneUpRx.Uint8(uint32(c)) }

func (c LaneEqCtl) String() string {
	return fmt.Sprintf("DownTx %d DownRx %d UpTx %d UpRx %d",
		c.DownstreamTxPreset(), c.DownstreamRxHint(), c.UpstreamTxPreset(), c.UpstreamRxHint())
}

const (
	secLnkCtl3   = 0x4
	secLaneErr   = 0x8
	secLaneEq    = 0xc
	secMinSize   = 0xc
	secMaxLanes  = 32
	laneEqCtlLen = 2
)

// SecondaryPCIe is the secondary PCI Express extended capability.
type SecondaryPCIe struct {
	Offset  uint16
	Version uint8
	Control LnkCtl3
	// Bit n set when lane n detected an error.
	LaneErrors uint32
	LaneEq     []LaneEqCtl
}

func (*SecondaryPCIe) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.SecondaryPCIeCapability)}
}

func (s *SecondaryPCIe) String() string {
	return fmt.Sprintf("Secondary PCI Express LnkCtl3: %v LaneErrStat: %x, %d lanes",
		s.Control, s.LaneErrors, len(s.LaneEq))
}

// DecodeSecondaryPCIe decodes lanes equalization control registers, or as
// many as the window holds when lanes is 0. The lane count comes from the
// function's maximum link width.
func DecodeSecondaryPCIe(r *pci.RawCapability, lanes int) (*SecondaryPCIe, error) {
	if err := pci.CheckSize("secondary pci express", r, secMinSize); err != nil {
		return nil, err
	}
	s := &SecondaryPCIe{
		Offset:     r.Offset,
		Version:    r.Version,
		Control:    LnkCtl3(r.U32(secLnkCtl3)),
		LaneErrors: r.U32(secLaneErr),
	}
	avail := (len(r.Data) - secLaneEq) / laneEqCtlLen
	if lanes <= 0 || lanes > avail {
		lanes = avail
	}
	if lanes > secMaxLanes {
		lanes = secMaxLanes
	}
	s.LaneEq = make([]LaneEqCtl, lanes)
	for i := range s.LaneEq {
		s.LaneEq[i] = LaneEqCtl(r.U16(secLaneEq + laneEqCtlLen*uint(i)))
	}
	return s, nil
}
