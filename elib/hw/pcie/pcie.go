// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pcie decodes the PCI Express capability and the Express family
// of extended capabilities.
package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

const (
	Type_express_endpoint = iota
	Type_legacy_endpoint
	_
	_
	Type_root_port
	Type_upstream_port
	Type_downstream_port
	Type_pcie_to_pci_bridge
	Type_pci_to_pcie_bridge
	Type_root_complex_integrated_endpoint
	Type_root_complex_event_collector
)

var typeNames = [...]string{
	Type_express_endpoint:                 "Endpoint",
	Type_legacy_endpoint:                  "Legacy Endpoint",
	Type_root_port:                        "Root Port (Slot-)",
	Type_upstream_port:                    "Upstream Port",
	Type_downstream_port:                  "Downstream Port (Slot-)",
	Type_pcie_to_pci_bridge:               "PCI-Express to PCI/PCI-X Bridge",
	Type_pci_to_pcie_bridge:               "PCI/PCI-X to PCI-Express Bridge",
	Type_root_complex_integrated_endpoint: "Root Complex Integrated Endpoint",
	Type_root_complex_event_collector:     "Root Complex Event Collector",
}

type Type uint8

func (t Type) String() string { return elib.Stringer(typeNames[:], int(t)) }

// HasLink reports whether functions of this type implement the link
// registers.
func (t Type) HasLink() bool {
	return t != Type_root_complex_integrated_endpoint && t != Type_root_complex_event_collector
}

// HasRoot reports whether functions of this type implement the root
// registers.
func (t Type) HasRoot() bool {
	return t == Type_root_port || t == Type_root_complex_event_collector
}

var (
	flagsVersion = pci.Field{Name: "Version", Shift: 0, Width: 4, Unit: pci.Number}
	flagsType    = pci.Field{Name: "Type", Shift: 4, Width: 4, Unit: pci.Enum}
	flagsMsi     = pci.Field{Name: "MSI", Shift: 9, Width: 5, Unit: pci.Number}

	FlagsLayout = pci.Layout{Name: "PCIe Capabilities", Width: 16, Fields: []pci.Field{
		flagsVersion,
		flagsType,
		{Name: "Slot", Shift: 8, Width: 1, Unit: pci.Flag},
		flagsMsi,
	}}
)

type Flags struct {
	// [3:0] version (e.g. 2 for pcie gen 2, 3 for gen 3)
	Version uint8

	// [7:4] type (Type_*)
	Type Type

	// [8]
	SlotImplemented bool

	// [13:9]
	Msi uint8
}

func flagsOf(x uint16) (v Flags) {
	r := uint32(x)
	v.Version = flagsVersion.Uint8(r)
	v.Type = Type(flagsType.Get(r))
	v.SlotImplemented = x&(1<<8) != 0
	v.Msi = flagsMsi.Uint8(r)
	return
}

func (f *Flags) String() string {
	return fmt.Sprintf("(v%d) %s, MSI %02x", f.Version, f.Type, f.Msi)
}

// Express capability registers, offsets from capability start.
const (
	expFlags   = 0x02
	expDevCap  = 0x04
	expDevCtl  = 0x08
	expDevSta  = 0x0a
	expLnkCap  = 0x0c
	expLnkCtl  = 0x10
	expLnkSta  = 0x12
	expSltCap  = 0x14
	expSltCtl  = 0x18
	expSltSta  = 0x1a
	expRootCtl = 0x1c
	expRootCap = 0x1e
	expRootSta = 0x20
	expDevCap2 = 0x24
	expDevCtl2 = 0x28
	expDevSta2 = 0x2a
	expLnkCap2 = 0x2c
	expLnkCtl2 = 0x30
	expLnkSta2 = 0x32
	expSltCap2 = 0x34
	expSltCtl2 = 0x38
	expSltSta2 = 0x3a

	expV1Size = 0x24
	expV2Size = 0x3c
)

type Device struct {
	Capabilities DevCap
	Control      DevCtl
	Status       DevSta
}

type Link struct {
	Capabilities LnkCap
	Control      LnkCtl
	Status       LnkSta
}

type Slot struct {
	Capabilities SltCap
	Control      SltCtl
	Status       SltSta
}

type Root struct {
	Control      RootCtl
	Capabilities RootCap
	Status       RootSta
}

type Device2 struct {
	Capabilities DevCap2
	Control      DevCtl2
	Status       DevSta2
}

type Link2 struct {
	Capabilities LnkCap2
	Control      LnkCtl2
	Status       LnkSta2
}

type Slot2 struct {
	Capabilities uint32
	Control      uint16
	Status       uint16
}

// Express is the PCI Express capability. Register blocks the function's
// type or capability version does not implement are nil.
type Express struct {
	Offset uint16
	Flags
	Device
	Link *Link
	Slot *Slot
	Root *Root

	// Version 2 and later.
	Device2 *Device2
	Link2   *Link2
	Slot2   *Slot2
}

func (*Express) CapabilityKey() pci.Key { return pci.Key{ID: uint16(pci.PCIE)} }

func (e *Express) String() string { return "Express " + e.Flags.String() }

// Lines renders the capability's registers lspci -vv style.
func (e *Express) Lines() (l elib.Lines) {
	l.Add(e.String())
	l.Add("DevCap: " + e.Device.Capabilities.String())
	l.Add("DevCtl: " + e.Device.Control.String())
	l.Add("DevSta: " + e.Device.Status.String())
	if e.Link != nil {
		l.Add("LnkCap: " + e.Link.Capabilities.String())
		l.Add("LnkCtl: " + e.Link.Control.String())
		l.Add("LnkSta: " + e.Link.Status.String())
	}
	if e.Slot != nil {
		l.Add("SltCap: " + e.Slot.Capabilities.String())
		l.Add("SltCtl: " + e.Slot.Control.String())
		l.Add("SltSta: " + e.Slot.Status.String())
	}
	if e.Root != nil {
		l.Add("RootCap: " + e.Root.Capabilities.String())
		l.Add("RootCtl: " + e.Root.Control.String())
		l.Add("RootSta: " + e.Root.Status.String())
	}
	if e.Device2 != nil {
		l.Add("DevCap2: " + e.Device2.Capabilities.String())
		l.Add("DevCtl2: " + e.Device2.Control.String())
	}
	if e.Link2 != nil {
		l.Add("LnkCap2: " + e.Link2.Capabilities.String())
		l.Add("LnkCtl2: " + e.Link2.Control.String())
		l.Add("LnkSta2: " + e.Link2.Status.String())
	}
	return
}

// DecodeExpress decodes the PCI Express capability. Version 1 needs 0x24
// bytes, later versions 0x3c.
func DecodeExpress(r *pci.RawCapability) (*Express, error) {
	if err := pci.CheckSize("express", r, expFlags+2); err != nil {
		return nil, err
	}
	e := &Express{
		Offset: r.Offset,
		Flags:  flagsOf(r.U16(expFlags)),
	}
	need := expV1Size
	if e.Version >= 2 {
		need = expV2Size
	}
	if err := pci.CheckSize("express", r, need); err != nil {
		return nil, err
	}
	e.Device = Device{
		Capabilities: DevCap(r.U32(expDevCap)),
		Control:      DevCtl(r.U16(expDevCtl)),
		Status:       DevSta(r.U16(expDevSta)),
	}
	if e.Type.HasLink() {
		e.Link = &Link{
			Capabilities: LnkCap(r.U32(expLnkCap)),
			Control:      LnkCtl(r.U16(expLnkCtl)),
			Status:       LnkSta(r.U16(expLnkSta)),
		}
	}
	if e.SlotImplemented {
		e.Slot = &Slot{
			Capabilities: SltCap(r.U32(expSltCap)),
			Control:      SltCtl(r.U16(expSltCtl)),
			Status:       SltSta(r.U16(expSltSta)),
		}
	}
	if e.Type.HasRoot() {
		e.Root = &Root{
			Control:      RootCtl(r.U16(expRootCtl)),
			Capabilities: RootCap(r.U16(expRootCap)),
			Status:       RootSta(r.U32(expRootSta)),
		}
	}
	if e.Version < 2 {
		return e, nil
	}
	e.Device2 = &Device2{
		Capabilities: DevCap2(r.U32(expDevCap2)),
		Control:      DevCtl2(r.U16(expDevCtl2)),
		Status:       DevSta2(r.U16(expDevSta2)),
	}
	if e.Link != nil {
		e.Link2 = &Link2{
			Capabilities: LnkCap2(r.U32(expLnkCap2)),
			Control:      LnkCtl2(r.U16(expLnkCtl2)),
			Status:       LnkSta2(r.U16(expLnkSta2)),
		}
	}
	if e.Slot != nil {
		e.Slot2 = &Slot2{
			Capabilities: r.U32(expSltCap2),
			Control:      r.U16(expSltCtl2),
			Status:       r.U16(expSltSta2),
		}
	}
	return e, nil
}

// Layouts returns the register tables of this package.
func Layouts() []pci.Layout {
	return []pci.Layout{
		FlagsLayout,
		DevCapLayout, DevCtlLayout, DevStaLayout,
		LnkCapLayout, LnkCtlLayout, LnkStaLayout,
		SltCapLayout, SltCtlLayout, SltStaLayout,
		RootCtlLayout, RootCapLayout, RootStaLayout,
		DevCap2Layout, DevCtl2Layout,
		LnkCap2Layout, LnkCtl2Layout, LnkSta2Layout,
		UELayout, CELayout, AERCtlLayout, RootErrCmdLayout, RootErrStaLayout,
		ACSCapLayout, ACSCtlLayout,
		LnkCtl3Layout, LaneEqCtlLayout,
		ARICapLayout, ARICtlLayout,
		LatencyLayout,
		IOVCapLayout, IOVCtlLayout, IOVStaLayout,
		ElementDescriptionLayout, LinkDescriptionLayout,
		VSECHeaderLayout,
	}
}
