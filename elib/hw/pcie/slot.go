// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Slot capabilities:
//
//	[0] attention button
//	[1] power controller
//	[2] MRL sensor
//	[3] attention indicator
//	[4] power indicator
//	[5] hot-plug surprise
//	[6] hot-plug capable
//	[14:7] slot power limit value
//	[16:15] slot power limit scale
//	[17] electromechanical interlock
//	[18] no command completed support
//	[31:19] physical slot number
type SltCap uint32

var (
	sltCapPowerValue = field("PowerLimit", 7, 8, pci.Number)
	sltCapPowerScale = field("PowerScale", 15, 2, pci.Enum)
	sltCapSlot       = field("PhysicalSlot", 19, 13, pci.Number)

	SltCapLayout = pci.Layout{Name: "SltCap", Width: 32, Fields: []pci.Field{
		flag("AttnBtn", 0),
		flag("PwrCtrl", 1),
		flag("MRL", 2),
		flag("AttnInd", 3),
		flag("PwrInd", 4),
		flag("Surprise", 5),
		flag("HotPlug", 6),
		sltCapPowerValue,
		sltCapPowerScale,
		flag("Interlock", 17),
		flag("NoCompl", 18),
		sltCapSlot,
	}}
)

func (c SltCap) PhysicalSlot() uint16 { return uint16(sltCapSlot.Get(uint32(c))) }

// PowerLimit is in watts.
func (c SltCap) PowerLimit() float64 {
	return powerLimit(sltCapPowerValue.Get(uint32(c)), sltCapPowerScale.Get(uint32(c)))
}

func (c SltCap) String() string {
	return fmt.Sprintf("%s Slot #%d, PowerLimit %.3fW",
		SltCapLayout.PlusMinus(uint32(c)), c.PhysicalSlot(), c.PowerLimit())
}

// Slot control:
//
//	[0] attention button pressed enable
//	[1] power fault detected enable
//	[2] MRL sensor changed enable
//	[3] presence detect changed enable
//	[4] command completed interrupt enable
//	[5] hot-plug interrupt enable
//	[7:6] attention indicator control
//	[9:8] power indicator control
//	[10] power controller control
//	[11] electromechanical interlock control
//	[12] data link layer state changed enable
type SltCtl uint16

var (
	sltCtlAttnInd = field("AttnInd", 6, 2, pci.Enum)
	sltCtlPwrInd  = field("PwrInd", 8, 2, pci.Enum)

	SltCtlLayout = pci.Layout{Name: "SltCtl", Width: 16, Fields: []pci.Field{
		flag("AttnBtn", 0),
		flag("PwrFlt", 1),
		flag("MRL", 2),
		flag("PresDet", 3),
		flag("CmdCplt", 4),
		flag("HPIrq", 5),
		sltCtlAttnInd,
		sltCtlPwrInd,
		flag("Power", 10),
		flag("Interlock", 11),
		flag("LinkChg", 12),
	}}
)

var indicatorNames = [...]string{"Unknown", "On", "Blink", "Off"}

func (c SltCtl) AttentionIndicator() string {
	return elib.Stringer(indicatorNames[:], int(sltCtlAttnInd.Get(uint32(c))))
}

func (c SltCtl) PowerIndicator() string {
	return elib.Stringer(indicatorNames[:], int(sltCtlPwrInd.Get(uint32(c))))
}

func (c SltCtl) String() string {
	return fmt.Sprintf("Enable: %s Control: AttnInd %s, PwrInd %s",
		SltCtlLayout.PlusMinus(uint32(c)), c.AttentionIndicator(), c.PowerIndicator())
}

// Slot status:
//
//	[0] attention button pressed
//	[1] power fault detected
//	[2] MRL sensor changed
//	[3] presence detect changed
//	[4] command completed
//	[5] MRL sensor state
//	[6] presence detect state
//	[7] electromechanical interlock status
//	[8] data link layer state changed
type SltSta uint16

var SltStaLayout = pci.Layout{Name: "SltSta", Width: 16, Fields: []pci.Field{
	flag("AttnBtn", 0),
	flag("PowerFlt", 1),
	flag("MRL", 2),
	flag("PresDet", 3),
	flag("CmdCplt", 4),
	flag("MRLOpen", 5),
	flag("Present", 6),
	flag("Interlock", 7),
	flag("LinkChg", 8),
}}

func (s SltSta) Present() bool  { return s&(1<<6) != 0 }
func (s SltSta) String() string { return SltStaLayout.PlusMinus(uint32(s)) }

// Root control:
//
//	[0] system error on correctable error
//	[1] system error on non-fatal error
//	[2] system error on fatal error
//	[3] PME interrupt enable
//	[4] CRS software visibility enable
type RootCtl uint16

var RootCtlLayout = pci.Layout{Name: "RootCtl", Width: 16, Fields: []pci.Field{
	flag("ErrCorrectable", 0),
	flag("ErrNon-Fatal", 1),
	flag("ErrFatal", 2),
	flag("PMEIntEna", 3),
	flag("CRSVisible", 4),
}}

func (c RootCtl) String() string { return RootCtlLayout.PlusMinus(uint32(c)) }

// Root capabilities: [0] CRS software visibility.
type RootCap uint16

var RootCapLayout = pci.Layout{Name: "RootCap", Width: 16, Fields: []pci.Field{
	flag("CRSVisible", 0),
}}

func (c RootCap) String() string { return RootCapLayout.PlusMinus(uint32(c)) }

// Root status:
//
//	[15:0] PME requester ID
//	[16] PME status
//	[17] PME pending
type RootSta uint32

var (
	rootStaRequester = field("PMEReqID", 0, 16, pci.Number)

	RootStaLayout = pci.Layout{Name: "RootSta", Width: 32, Fields: []pci.Field{
		rootStaRequester,
		flag("PMEStatus", 16),
		flag("PMEPending", 17),
	}}
)

func (s RootSta) Requester() uint16 { return uint16(rootStaRequester.Get(uint32(s))) }

func (s RootSta) String() string {
	return fmt.Sprintf("PME ReqID %04x, %s", s.Requester(), RootStaLayout.PlusMinus(uint32(s)))
}
