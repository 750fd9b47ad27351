// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

func flag(name string, bit uint8) pci.Field {
	return pci.Field{Name: name, Shift: bit, Width: 1, Unit: pci.Flag}
}

func field(name string, shift, width uint8, u pci.Unit) pci.Field {
	return pci.Field{Name: name, Shift: shift, Width: width, Unit: u}
}

// Device capabilities:
//
//	[2:0] x where max payload size = 2^(7+x)
//	[4:3] phantom functions
//	[5] extended tags
//	[8:6] L0s acceptable latency
//	[11:9] L1 acceptable latency
//	[12] attention button present
//	[13] attention indicator present
//	[14] power indicator present
//	[15] role based error reporting
//	[25:18] slot power limit value
//	[27:26] slot power limit scale
//	[28] function level reset
type DevCap uint32

var (
	devCapPayload    = field("MaxPayload", 0, 3, pci.Payload)
	devCapPhantom    = field("PhantFunc", 3, 2, pci.Number)
	devCapL0s        = field("L0s", 6, 3, pci.Enum)
	devCapL1         = field("L1", 9, 3, pci.Enum)
	devCapPowerValue = field("SlotPowerLimit", 18, 8, pci.Number)
	devCapPowerScale = field("SlotPowerScale", 26, 2, pci.Enum)

	DevCapLayout = pci.Layout{Name: "DevCap", Width: 32, Fields: []pci.Field{
		devCapPayload,
		devCapPhantom,
		flag("ExtTag", 5),
		devCapL0s,
		devCapL1,
		flag("AttnBtn", 12),
		flag("AttnInd", 13),
		flag("PwrInd", 14),
		flag("RBE", 15),
		devCapPowerValue,
		devCapPowerScale,
		flag("FLReset", 28),
	}}
)

var (
	l0sLatencies = [...]string{"64ns", "128ns", "256ns", "512ns", "1us", "2us", "4us", "unlimited"}
	l1Latencies  = [...]string{"1us", "2us", "4us", "8us", "16us", "32us", "64us", "unlimited"}
)

func (c DevCap) MaxPayload() pci.PayloadSize { return pci.PayloadSize(devCapPayload.Get(uint32(c))) }
func (c DevCap) PhantomFunctions() uint8     { return devCapPhantom.Uint8(uint32(c)) }
func (c DevCap) FLR() bool                   { return c&(1<<28) != 0 }

func (c DevCap) L0sLatency() string {
	return elib.Stringer(l0sLatencies[:], int(devCapL0s.Get(uint32(c))))
}

func (c DevCap) L1Latency() string {
	return elib.Stringer(l1Latencies[:], int(devCapL1.Get(uint32(c))))
}

// SlotPowerLimit is in watts.
func (c DevCap) SlotPowerLimit() float64 {
	return powerLimit(devCapPowerValue.Get(uint32(c)), devCapPowerScale.Get(uint32(c)))
}

var powerScales = [...]float64{1.0, 0.1, 0.01, 0.001}

func powerLimit(value, scale uint32) float64 {
	return float64(value) * powerScales[scale&3]
}

func (c DevCap) String() string {
	return fmt.Sprintf("MaxPayload %v, PhantFunc %d, Latency L0s %s, L1 %s %s SlotPowerLimit %.3fW",
		c.MaxPayload(), c.PhantomFunctions(), c.L0sLatency(), c.L1Latency(),
		DevCapLayout.PlusMinus(uint32(c)), c.SlotPowerLimit())
}

// Device control:
//
//	[0] correctable error reporting enable
//	[1] non-fatal error reporting enable
//	[2] fatal error reporting enable
//	[3] unsupported request reporting enable
//	[4] relaxed ordering
//	[7:5] max payload size
//	[8] extended tags
//	[9] phantom functions
//	[10] aux power PM
//	[11] no snoop
//	[14:12] max read request size
//	[15] bridge configuration retry enable or initiate FLR
type DevCtl uint16

var (
	devCtlPayload = field("MaxPayload", 5, 3, pci.Payload)
	devCtlReadReq = field("MaxReadReq", 12, 3, pci.Payload)

	DevCtlLayout = pci.Layout{Name: "DevCtl", Width: 16, Fields: []pci.Field{
		flag("CorrErr", 0),
		flag("NonFatalErr", 1),
		flag("FatalErr", 2),
		flag("UnsupReq", 3),
		flag("RlxdOrd", 4),
		devCtlPayload,
		flag("ExtTag", 8),
		flag("PhantFunc", 9),
		flag("AuxPwr", 10),
		flag("NoSnoop", 11),
		devCtlReadReq,
		flag("BrConfRtry", 15),
	}}
)

func (c DevCtl) MaxPayload() pci.PayloadSize { return pci.PayloadSize(devCtlPayload.Get(uint32(c))) }
func (c DevCtl) MaxReadRequest() pci.PayloadSize {
	return pci.PayloadSize(devCtlReadReq.Get(uint32(c)))
}

func (c DevCtl) String() string {
	return fmt.Sprintf("%s MaxPayload %v, MaxReadReq %v",
		DevCtlLayout.PlusMinus(uint32(c)), c.MaxPayload(), c.MaxReadRequest())
}

type DevSta uint16

var DevStaLayout = pci.Layout{Name: "DevSta", Width: 16, Fields: []pci.Field{
	flag("CorrErr", 0),
	flag("NonFatalErr", 1),
	flag("FatalErr", 2),
	flag("UnsupReq", 3),
	flag("AuxPwr", 4),
	flag("TransPend", 5),
	flag("EmergencyPowerReduction", 6),
}}

func (s DevSta) String() string { return DevStaLayout.PlusMinus(uint32(s)) }

// Device capabilities 2:
//
//	[3:0] completion timeout ranges supported
//	[4] completion timeout disable supported
//	[5] ARI forwarding
//	[6] AtomicOp routing
//	[7] 32-bit AtomicOp completer
//	[8] 64-bit AtomicOp completer
//	[9] 128-bit CAS completer
//	[10] no RO-enabled PR-PR passing
//	[11] LTR
//	[13:12] TPH completer
//	[19:18] OBFF
//	[20] extended fmt field
//	[21] end-end TLP prefix
//	[23:22] max end-end TLP prefixes
//	[25:24] emergency power reduction
//	[26] emergency power reduction init required
//	[31] FRS
type DevCap2 uint32

var (
	devCap2Timeout = field("CmplTimeoutRanges", 0, 4, pci.Enum)
	devCap2TPH     = field("TPHComp", 12, 2, pci.Enum)
	devCap2OBFF    = field("OBFF", 18, 2, pci.Enum)
	devCap2EPR     = field("EmergencyPowerReduction", 24, 2, pci.Enum)

	DevCap2Layout = pci.Layout{Name: "DevCap2", Width: 32, Fields: []pci.Field{
		devCap2Timeout,
		flag("TimeoutDis", 4),
		flag("ARIFwd", 5),
		flag("AtomicOpsRouting", 6),
		flag("32bitAtomicComp", 7),
		flag("64bitAtomicComp", 8),
		flag("128bitCASComp", 9),
		flag("NROPrPrP", 10),
		flag("LTR", 11),
		devCap2TPH,
		devCap2OBFF,
		flag("ExtFmt", 20),
		flag("EETLPPrefix", 21),
		field("MaxEETLPPrefixes", 22, 2, pci.Count),
		devCap2EPR,
		flag("EmergencyPowerReductionInit", 26),
		flag("FRS", 31),
	}}
)

var (
	timeoutRanges = [...]string{
		0x0: "Not Supported",
		0x1: "Range A",
		0x2: "Range B",
		0x3: "Range AB",
		0x6: "Range BC",
		0x7: "Range ABC",
		0xe: "Range BCD",
		0xf: "Range ABCD",
	}
	obffSupport = [...]string{"Not Supported", "Via message", "Via WAKE#", "Via message/WAKE#"}
)

func (c DevCap2) TimeoutRanges() string {
	return elib.Stringer(timeoutRanges[:], int(devCap2Timeout.Get(uint32(c))))
}

func (c DevCap2) OBFF() string {
	return elib.Stringer(obffSupport[:], int(devCap2OBFF.Get(uint32(c))))
}

func (c DevCap2) LTR() bool { return c&(1<<11) != 0 }
func (c DevCap2) ARI() bool { return c&(1<<5) != 0 }

func (c DevCap2) String() string {
	return fmt.Sprintf("Completion Timeout: %s, %s OBFF %s",
		c.TimeoutRanges(), DevCap2Layout.PlusMinus(uint32(c)), c.OBFF())
}

// Device control 2:
//
//	[3:0] completion timeout value
//	[4] completion timeout disable
//	[5] ARI forwarding enable
//	[6] AtomicOp requester enable
//	[7] AtomicOp egress blocking
//	[8] IDO request enable
//	[9] IDO completion enable
//	[10] LTR enable
//	[11] emergency power reduction request
//	[12] 10-bit tag requester enable
//	[14:13] OBFF enable
//	[15] end-end TLP prefix blocking
type DevCtl2 uint16

var (
	devCtl2Timeout = field("CmplTimeout", 0, 4, pci.Enum)
	devCtl2OBFF    = field("OBFF", 13, 2, pci.Enum)

	DevCtl2Layout = pci.Layout{Name: "DevCtl2", Width: 16, Fields: []pci.Field{
		devCtl2Timeout,
		flag("TimeoutDis", 4),
		flag("ARIFwd", 5),
		flag("AtomicOpsCtl", 6),
		flag("EgressBlck", 7),
		flag("IDOReq", 8),
		flag("IDOCompl", 9),
		flag("LTR", 10),
		flag("EmergencyPowerReductionReq", 11),
		flag("10BitTagReq", 12),
		devCtl2OBFF,
		flag("EETLPPrefixBlk", 15),
	}}
)

var (
	timeoutValues = [...]string{
		0x0: "50us to 50ms",
		0x1: "50us to 100us",
		0x2: "1ms to 10ms",
		0x5: "16ms to 55ms",
		0x6: "65ms to 210ms",
		0x9: "260ms to 900ms",
		0xa: "1s to 3.5s",
		0xd: "4s to 13s",
		0xe: "17s to 64s",
	}
	obffEnable = [...]string{"Disabled", "Via message A", "Via message B", "Via WAKE#"}
)

func (c DevCtl2) Timeout() string {
	return elib.Stringer(timeoutValues[:], int(devCtl2Timeout.Get(uint32(c))))
}

func (c DevCtl2) OBFF() string {
	return elib.Stringer(obffEnable[:], int(devCtl2OBFF.Get(uint32(c))))
}

func (c DevCtl2) String() string {
	return fmt.Sprintf("Completion Timeout: %s, %s OBFF %s",
		c.Timeout(), DevCtl2Layout.PlusMinus(uint32(c)), c.OBFF())
}

type DevSta2 uint16

func (s DevSta2) String() string { return fmt.Sprintf("%04x", uint16(s)) }
