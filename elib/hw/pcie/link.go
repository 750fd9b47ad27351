// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"
	"strings"

	"github.com/platinasystems/pcitool/elib"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Link capabilities:
//
//	[3:0] max link speed
//	[9:4] max link width
//	[11:10] ASPM support
//	[14:12] L0s exit latency
//	[17:15] L1 exit latency
//	[18] clock power management
//	[19] surprise down error reporting
//	[20] data link layer active reporting
//	[21] link bandwidth notification
//	[22] ASPM optionality compliance
//	[31:24] port number
type LnkCap uint32

var (
	lnkCapSpeed = field("Speed", 0, 4, pci.Speed)
	lnkCapWidth = field("Width", 4, 6, pci.Lanes)
	lnkCapASPM  = field("ASPM", 10, 2, pci.Enum)
	lnkCapL0s   = field("L0sExit", 12, 3, pci.Enum)
	lnkCapL1    = field("L1Exit", 15, 3, pci.Enum)
	lnkCapPort  = field("Port", 24, 8, pci.Number)

	LnkCapLayout = pci.Layout{Name: "LnkCap", Width: 32, Fields: []pci.Field{
		lnkCapSpeed,
		lnkCapWidth,
		lnkCapASPM,
		lnkCapL0s,
		lnkCapL1,
		flag("ClockPM", 18),
		flag("Surprise", 19),
		flag("LLActRep", 20),
		flag("BwNot", 21),
		flag("ASPMOptComp", 22),
		lnkCapPort,
	}}
)

var (
	aspmSupport    = [...]string{"not supported", "L0s", "L1", "L0s L1"}
	l0sExitLatency = [...]string{"<64ns", "<128ns", "<256ns", "<512ns", "<1us", "<2us", "<4us", "unlimited"}
	l1ExitLatency  = [...]string{"<1us", "<2us", "<4us", "<8us", "<16us", "<32us", "<64us", "unlimited"}
)

func (c LnkCap) Speed() pci.LinkSpeed { return pci.LinkSpeed(lnkCapSpeed.Get(uint32(c))) }
func (c LnkCap) Width() pci.LinkWidth { return pci.LinkWidth(lnkCapWidth.Get(uint32(c))) }
func (c LnkCap) Port() uint8          { return lnkCapPort.Uint8(uint32(c)) }
func (c LnkCap) ASPM() string {
	return elib.Stringer(aspmSupport[:], int(lnkCapASPM.Get(uint32(c))))
}

func (c LnkCap) String() string {
	x := uint32(c)
	return fmt.Sprintf("Port #%d, Speed %v, Width %v, ASPM %s, Exit Latency L0s %s, L1 %s %s",
		c.Port(), c.Speed(), c.Width(), c.ASPM(),
		elib.Stringer(l0sExitLatency[:], int(lnkCapL0s.Get(x))),
		elib.Stringer(l1ExitLatency[:], int(lnkCapL1.Get(x))),
		LnkCapLayout.PlusMinus(x))
}

// Link control:
//
//	[1:0] ASPM control
//	[3] read completion boundary
//	[4] link disable
//	[5] retrain link
//	[6] common clock configuration
//	[7] extended synch
//	[8] enable clock power management
//	[9] hardware autonomous width disable
//	[10] link bandwidth management interrupt enable
//	[11] link autonomous bandwidth interrupt enable
type LnkCtl uint16

var (
	lnkCtlASPM = field("ASPM", 0, 2, pci.Enum)

	LnkCtlLayout = pci.Layout{Name: "LnkCtl", Width: 16, Fields: []pci.Field{
		lnkCtlASPM,
		flag("RCB", 3),
		flag("Disabled", 4),
		flag("Retrain", 5),
		flag("CommClk", 6),
		flag("ExtSynch", 7),
		flag("ClockPM", 8),
		flag("AutWidDis", 9),
		flag("BWInt", 10),
		flag("AutBWInt", 11),
	}}
)

var aspmControl = [...]string{"Disabled", "L0s Enabled", "L1 Enabled", "L0s L1 Enabled"}

func (c LnkCtl) ASPM() string {
	return elib.Stringer(aspmControl[:], int(lnkCtlASPM.Get(uint32(c))))
}

// RCB is the read completion boundary in bytes.
func (c LnkCtl) RCB() uint {
	if c&(1<<3) != 0 {
		return 128
	}
	return 64
}

func (c LnkCtl) String() string {
	return fmt.Sprintf("ASPM %s; RCB %d bytes, %s", c.ASPM(), c.RCB(), LnkCtlLayout.PlusMinus(uint32(c)))
}

// Link status:
//
//	[3:0] current link speed
//	[9:4] negotiated link width
//	[11] link training
//	[12] slot clock configuration
//	[13] data link layer link active
//	[14] link bandwidth management status
//	[15] link autonomous bandwidth status
type LnkSta uint16

var (
	lnkStaSpeed = field("Speed", 0, 4, pci.Speed)
	lnkStaWidth = field("Width", 4, 6, pci.Lanes)

	LnkStaLayout = pci.Layout{Name: "LnkSta", Width: 16, Fields: []pci.Field{
		lnkStaSpeed,
		lnkStaWidth,
		flag("Train", 11),
		flag("SlotClk", 12),
		flag("DLActive", 13),
		flag("BWMgmt", 14),
		flag("ABWMgmt", 15),
	}}
)

func (s LnkSta) Speed() pci.LinkSpeed { return pci.LinkSpeed(lnkStaSpeed.Get(uint32(s))) }
func (s LnkSta) Width() pci.LinkWidth { return pci.LinkWidth(lnkStaWidth.Get(uint32(s))) }
func (s LnkSta) Training() bool       { return s&(1<<11) != 0 }
func (s LnkSta) Active() bool         { return s&(1<<13) != 0 }

func (s LnkSta) String() string {
	return fmt.Sprintf("Speed %v, Width %v %s", s.Speed(), s.Width(), LnkStaLayout.PlusMinus(uint32(s)))
}

// Downgraded reports whether the link trained below what both ends of it
// are capable of on this side.
func (l *Link) Downgraded() bool {
	return l.Status.Speed() < l.Capabilities.Speed() || l.Status.Width() < l.Capabilities.Width()
}

// Link capabilities 2:
//
//	[7:1] supported link speeds vector, bit 1 = 2.5GT/s
//	[8] crosslink supported
type LnkCap2 uint32

var (
	lnkCap2Speeds = field("SupportedSpeeds", 1, 7, pci.Number)

	LnkCap2Layout = pci.Layout{Name: "LnkCap2", Width: 32, Fields: []pci.Field{
		lnkCap2Speeds,
		flag("Crosslink", 8),
	}}
)

// SupportedSpeeds lists the speeds of the supported link speeds vector,
// slowest first.
func (c LnkCap2) SupportedSpeeds() (s []pci.LinkSpeed) {
	v := lnkCap2Speeds.Get(uint32(c))
	for i := uint(0); i < 7; i++ {
		if v&(1<<i) != 0 {
			s = append(s, pci.LinkSpeed(i+1))
		}
	}
	return
}

func (c LnkCap2) String() string {
	var speeds []string
	for _, s := range c.SupportedSpeeds() {
		speeds = append(speeds, s.String())
	}
	return fmt.Sprintf("Supported Link Speeds: %s, %s",
		strings.Join(speeds, ", "), LnkCap2Layout.PlusMinus(uint32(c)))
}

// Link control 2:
//
//	[3:0] target link speed
//	[4] enter compliance
//	[5] hardware autonomous speed disable
//	[6] selectable de-emphasis
//	[9:7] transmit margin
//	[10] enter modified compliance
//	[11] compliance SOS
//	[15:12] compliance preset/de-emphasis
type LnkCtl2 uint16

var (
	lnkCtl2Target = field("TargetSpeed", 0, 4, pci.Speed)
	lnkCtl2Margin = field("TransmitMargin", 7, 3, pci.Enum)
	lnkCtl2Preset = field("CompliancePreset", 12, 4, pci.Number)

	LnkCtl2Layout = pci.Layout{Name: "LnkCtl2", Width: 16, Fields: []pci.Field{
		lnkCtl2Target,
		flag("EnterCompliance", 4),
		flag("SpeedDis", 5),
		flag("SelectableDeEmphasis", 6),
		lnkCtl2Margin,
		flag("EnterModifiedCompliance", 10),
		flag("ComplianceSOS", 11),
		lnkCtl2Preset,
	}}
)

func (c LnkCtl2) TargetSpeed() pci.LinkSpeed { return pci.LinkSpeed(lnkCtl2Target.Get(uint32(c))) }
func (c LnkCtl2) TransmitMargin() uint8      { return lnkCtl2Margin.Uint8(uint32(c)) }
func (c LnkCtl2) CompliancePreset() uint8    { return lnkCtl2Preset.Uint8(uint32(c)) }

func (c LnkCtl2) String() string {
	return fmt.Sprintf("Target Link Speed: %v, %s Transmit Margin %d, Compliance Preset %d",
		c.TargetSpeed(), LnkCtl2Layout.PlusMinus(uint32(c)), c.TransmitMargin(), c.CompliancePreset())
}

// Link status 2:
//
//	[0] current de-emphasis level, 1 = -3.5dB
//	[1] equalization complete
//	[2] equalization phase 1 successful
//	[3] equalization phase 2 successful
//	[4] equalization phase 3 successful
//	[5] link equalization request
//	[6] retimer presence detected
//	[7] two retimers presence detected
//	[9:8] crosslink resolution
//	[14:12] downstream component presence
//	[15] DRS message received
type LnkSta2 uint16

var (
	lnkSta2Crosslink  = field("Crosslink", 8, 2, pci.Enum)
	lnkSta2Downstream = field("DownstreamComp", 12, 3, pci.Enum)

	LnkSta2Layout = pci.Layout{Name: "LnkSta2", Width: 16, Fields: []pci.Field{
		flag("DeEmphasis", 0),
		flag("EqualizationComplete", 1),
		flag("EqualizationPhase1", 2),
		flag("EqualizationPhase2", 3),
		flag("EqualizationPhase3", 4),
		flag("LinkEqualizationRequest", 5),
		flag("Retimer", 6),
		flag("2Retimers", 7),
		lnkSta2Crosslink,
		lnkSta2Downstream,
		flag("DRSReceived", 15),
	}}
)

// DeEmphasis is the current de-emphasis level.
func (s LnkSta2) DeEmphasis() string {
	if s&1 != 0 {
		return "-3.5dB"
	}
	return "-6dB"
}

func (s LnkSta2) EqualizationComplete() bool { return s&(1<<1) != 0 }

var crosslinkResolution = [...]string{"unsupported", "Upstream Port", "Downstream Port", "incomplete"}

func (s LnkSta2) Crosslink() string {
	return elib.Stringer(crosslinkResolution[:], int(lnkSta2Crosslink.Get(uint32(s))))
}

func (s LnkSta2) String() string {
	return fmt.Sprintf("Current De-emphasis Level: %s, %s Crosslink: %s",
		s.DeEmphasis(), LnkSta2Layout.PlusMinus(uint32(s)&^1), s.Crosslink())
}
