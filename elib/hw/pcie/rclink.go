// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Element self description:
//
//	[3:0] element type
//	[15:8] number of link entries
//	[23:16] component ID
//	[31:24] port number
type ElementDescription uint32

var (
	eltType      = field("EltType", 0, 4, pci.Enum)
	eltTypeWide  = field("EltType", 0, 8, pci.Enum)
	eltLinks     = field("Links", 8, 8, pci.Count)
	eltComponent = field("ComponentID", 16, 8, pci.Number)
	eltPort      = field("PortNumber", 24, 8, pci.Number)

	ElementDescriptionLayout = pci.Layout{Name: "ElementSelfDescription", Width: 32, Fields: []pci.Field{
		eltType,
		eltLinks,
		eltComponent,
		eltPort,
	}}
)

type ElementType uint8

const (
	Element_config ElementType = iota
	Element_egress
	Element_internal
)

var elementTypeNames = [...]string{
	Element_config:   "Config",
	Element_egress:   "Egress",
	Element_internal: "Internal",
}

func (t ElementType) String() string { return elib.StringerWithFormat(elementTypeNames[:], int(t), "??%d") }

func (d ElementDescription) Links() int         { return int(eltLinks.Get(uint32(d))) }
func (d ElementDescription) ComponentID() uint8 { return eltComponent.Uint8(uint32(d)) }
func (d ElementDescription) Port() uint8        { return eltPort.Uint8(uint32(d)) }

// Type reads the 4-bit element type, or all 8 low bits under
// pci.CompatRCLinkElementType.
func (d ElementDescription) Type(c pci.Compat) ElementType {
	if c.Has(pci.CompatRCLinkElementType) {
		return ElementType(eltTypeWide.Get(uint32(d)))
	}
	return ElementType(eltType.Get(uint32(d)))
}

// Link description:
//
//	[0] link valid
//	[1] link type, 0 memory mapped, 1 configuration space
//	[2] associate RCRB header
//	[23:16] target component ID
//	[31:24] target port number
type LinkDescription uint32

var (
	linkTargetComponent = field("TargetComponent", 16, 8, pci.Number)
	linkTargetPort      = field("TargetPort", 24, 8, pci.Number)

	LinkDescriptionLayout = pci.Layout{Name: "LinkDescription", Width: 32, Fields: []pci.Field{
		flag("LinkValid", 0),
		flag("LinkType", 1),
		flag("AssocRCRB", 2),
		linkTargetComponent,
		linkTargetPort,
	}}
)

func (d LinkDescription) Valid() bool              { return d&1 != 0 }
func (d LinkDescription) ConfigSpace() bool        { return d&2 != 0 }
func (d LinkDescription) AssociateRCRB() bool      { return d&4 != 0 }
func (d LinkDescription) TargetComponentID() uint8 { return linkTargetComponent.Uint8(uint32(d)) }
func (d LinkDescription) TargetPort() uint8        { return linkTargetPort.Uint8(uint32(d)) }

func (d LinkDescription) String() string {
	t := "MemMapped"
	if d.ConfigSpace() {
		t = "Config"
	}
	return fmt.Sprintf("TargetPort=%02x TargetComponent=%02x AssocRCRB%s LinkType=%s LinkValid%s",
		d.TargetPort(), d.TargetComponentID(), plusMinus(d.AssociateRCRB()), t, plusMinus(d.Valid()))
}

func plusMinus(b bool) string {
	if b {
		return "+"
	}
	return "-"
}

// LinkEntry is one 16 byte link entry: description, reserved, 64-bit
// address.
type LinkEntry struct {
	Description LinkDescription
	Address     uint64
}

// Target decodes a configuration space link address. Bits [2:0] give
// 8 minus the number of bus number bits; function, device and bus follow
// from bit 12.
func (e LinkEntry) Target() (a pci.BusAddress, base uint64, ok bool) {
	if !e.Description.ConfigSpace() {
		return
	}
	busBits := 8 - uint(e.Address&7)
	a.Fn = uint8(e.Address>>12) & 7
	a.Slot = uint8(e.Address>>15) & 0x1f
	a.Bus = uint8((e.Address >> 20) & (1<<busBits - 1))
	base = e.Address &^ (1<<(20+busBits) - 1)
	return a, base, true
}

func (e LinkEntry) String() string {
	if a, base, ok := e.Target(); ok {
		return fmt.Sprintf("Desc: %v Addr: %02x:%02x.%d CfgSpace=%016x",
			e.Description, a.Bus, a.Slot, a.Fn, base)
	}
	return fmt.Sprintf("Desc: %v Addr: %016x", e.Description, e.Address)
}

const (
	rclinkDescription = 0x4
	rclinkEntries     = 0x10
	rclinkEntrySize   = 0x10
	rclinkMinSize     = 0x10
)

// RCLink is the root complex link declaration extended capability.
type RCLink struct {
	Offset      uint16
	Version     uint8
	Element     ElementDescription
	ElementType ElementType
	Links       []LinkEntry
	// Fewer entries fit in the window than the description declares.
	Incomplete bool
}

func (*RCLink) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.RootComplexLinkDeclaration)}
}

func (l *RCLink) String() string { return "Root Complex Link" }

func (l *RCLink) Lines() (ls elib.Lines) {
	ls.Add(l.String())
	ls.Add(fmt.Sprintf("Desc: PortNumber=%02x ComponentID=%02x EltType=%v",
		l.Element.Port(), l.Element.ComponentID(), l.ElementType))
	for i, e := range l.Links {
		ls.Add(fmt.Sprintf("Link%d: %v", i, e))
	}
	if l.Incomplete {
		ls.Add(fmt.Sprintf("Link%d: <unreadable>", len(l.Links)))
	}
	return
}

func DecodeRCLink(r *pci.RawCapability, c pci.Compat) (*RCLink, error) {
	if err := pci.CheckSize("root complex link", r, rclinkMinSize); err != nil {
		return nil, err
	}
	l := &RCLink{
		Offset:  r.Offset,
		Version: r.Version,
		Element: ElementDescription(r.U32(rclinkDescription)),
	}
	l.ElementType = l.Element.Type(c)
	n := l.Element.Links()
	for i := 0; i < n; i++ {
		o := uint(rclinkEntries + i*rclinkEntrySize)
		if o+rclinkEntrySize > uint(len(r.Data)) {
			l.Incomplete = true
			break
		}
		l.Links = append(l.Links, LinkEntry{
			Description: LinkDescription(r.U32(o)),
			Address:     uint64(r.U32(o+12))<<32 | uint64(r.U32(o+8)),
		})
	}
	return l, nil
}
