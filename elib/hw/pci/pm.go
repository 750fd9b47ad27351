// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
)

// Power management capability registers, offsets from capability start.
const (
	pmCapabilities = 0x2
	pmControl      = 0x4
	pmBridge       = 0x6
	pmData         = 0x7
	pmMinSize      = 0x6
)

var (
	pmcVersion    = Field{"Version", 0, 3, Number}
	pmcAuxCurrent = Field{"AuxCurrent", 6, 3, Enum}
	pmcPMESupport = Field{"PME", 11, 5, Number}

	PMCLayout = Layout{Name: "PMC", Width: 16, Fields: []Field{
		pmcVersion,
		{"PMEClk", 3, 1, Flag},
		{"ImmReadiness", 4, 1, Flag},
		{"DSI", 5, 1, Flag},
		pmcAuxCurrent,
		{"D1", 9, 1, Flag},
		{"D2", 10, 1, Flag},
		pmcPMESupport,
	}}

	pmcsrPowerState = Field{"PowerState", 0, 2, Enum}
	pmcsrDataSelect = Field{"DSel", 9, 4, Number}
	pmcsrDataScale  = Field{"DScale", 13, 2, Number}

	PMCSRLayout = Layout{Name: "PMCSR", Width: 16, Fields: []Field{
		pmcsrPowerState,
		{"NoSoftRst", 3, 1, Flag},
		{"PME-Enable", 8, 1, Flag},
		pmcsrDataSelect,
		pmcsrDataScale,
		{"PME", 15, 1, Flag},
	}}

	PMBridgeLayout = Layout{Name: "PMCSR_BSE", Width: 8, Fields: []Field{
		{"B2/B3", 6, 1, Flag},
		{"BPCC_En", 7, 1, Flag},
	}}
)

type PMC uint16

var auxCurrentNames = [...]string{"0mA", "55mA", "100mA", "160mA", "220mA", "270mA", "320mA", "375mA"}

// PME can be asserted from D0, D1, D2, D3hot, D3cold.
var pmeStateNames = []string{"D0", "D1", "D2", "D3hot", "D3cold"}

func (c PMC) Version() uint8 { return pmcVersion.Uint8(uint32(c)) }
func (c PMC) AuxCurrent() string {
	return elib.Stringer(auxCurrentNames[:], int(pmcAuxCurrent.Get(uint32(c))))
}
func (c PMC) D1() bool            { return c&(1<<9) != 0 }
func (c PMC) D2() bool            { return c&(1<<10) != 0 }
func (c PMC) PMESupport() uint8   { return pmcPMESupport.Uint8(uint32(c)) }
func (c PMC) PMEStates() string   { return elib.FlagStringer(pmeStateNames, uint64(c.PMESupport())) }
func (c PMC) Flags() []FieldValue { return PMCLayout.Decode(uint32(c)) }

func (c PMC) String() string {
	return fmt.Sprintf("Ver %d, %s AuxCurrent=%s PME(%s)",
		c.Version(), PMCLayout.PlusMinus(uint32(c)), c.AuxCurrent(), c.PMEStates())
}

type PMCSR uint16

var powerStateNames = [...]string{"D0", "D1", "D2", "D3hot"}

func (c PMCSR) PowerState() string {
	return elib.Stringer(powerStateNames[:], int(pmcsrPowerState.Get(uint32(c))))
}
func (c PMCSR) NoSoftReset() bool { return c&(1<<3) != 0 }
func (c PMCSR) PMEEnabled() bool  { return c&(1<<8) != 0 }
func (c PMCSR) DataSelect() uint8 { return pmcsrDataSelect.Uint8(uint32(c)) }
func (c PMCSR) DataScale() uint8  { return pmcsrDataScale.Uint8(uint32(c)) }
func (c PMCSR) PMEStatus() bool   { return c&(1<<15) != 0 }

func (c PMCSR) String() string {
	return fmt.Sprintf("%s %s DSel=%d DScale=%d",
		c.PowerState(), PMCSRLayout.PlusMinus(uint32(c)), c.DataSelect(), c.DataScale())
}

// PMBridge is the PCI-to-PCI bridge support extension register.
type PMBridge uint8

func (b PMBridge) B2B3() bool        { return b&(1<<6) != 0 }
func (b PMBridge) BPCCEnabled() bool { return b&(1<<7) != 0 }
func (b PMBridge) String() string    { return PMBridgeLayout.PlusMinus(uint32(b)) }

type PowerManagementCap struct {
	Offset        uint16
	Capabilities  PMC
	Control       PMCSR
	BridgeSupport PMBridge
	Data          uint8
}

func (*PowerManagementCap) CapabilityKey() Key { return Key{ID: uint16(PowerManagement)} }

func (p *PowerManagementCap) String() string {
	return fmt.Sprintf("Power Management version %d: %v; Status: %v; Bridge: %v",
		p.Capabilities.Version(), p.Capabilities, p.Control, p.BridgeSupport)
}

// DecodePowerManagement decodes a power management capability. With
// CompatPMBridge the bridge bits come from the low byte of PMCSR.
func DecodePowerManagement(r *RawCapability, compat Compat) (*PowerManagementCap, error) {
	if err := short("power management", r.Offset, r.Data, pmMinSize); err != nil {
		return nil, err
	}
	p := &PowerManagementCap{
		Offset:        r.Offset,
		Capabilities:  PMC(r.U16(pmCapabilities)),
		Control:       PMCSR(r.U16(pmControl)),
		BridgeSupport: PMBridge(r.U8(pmBridge)),
		Data:          r.U8(pmData),
	}
	if compat.Has(CompatPMBridge) {
		p.BridgeSupport = PMBridge(uint8(p.Control) & 0xc0)
	}
	return p, nil
}
