// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
)

type Capability uint8

const (
	PowerManagement Capability = iota + 1
	AGP
	VitalProductData
	SlotIdentification
	MSI
	CompactPCIHotSwap
	PCIX
	HyperTransport
	VendorSpecific
	DebugPort
	CompactPciCentralControl
	PCIHotPlugController
	SSVID
	AGP3
	SecureDevice
	PCIE
	MSIX
	SATA
	AdvancedFeatures
	EnhancedAllocation
	FlatteningPortalBridge
)

var capabilityNames = [...]string{
	PowerManagement:          "Power Management",
	AGP:                      "AGP",
	VitalProductData:         "Vital Product Data",
	SlotIdentification:       "Slot ID",
	MSI:                      "MSI",
	CompactPCIHotSwap:        "CompactPCI hot-swap",
	PCIX:                     "PCI-X",
	HyperTransport:           "HyperTransport",
	VendorSpecific:           "Vendor Specific Information",
	DebugPort:                "Debug port",
	CompactPciCentralControl: "CompactPCI central resource control",
	PCIHotPlugController:     "Hot-plug capable",
	SSVID:                    "Subsystem",
	AGP3:                     "AGP3",
	SecureDevice:             "Secure device",
	PCIE:                     "Express",
	MSIX:                     "MSI-X",
	SATA:                     "SATA HBA",
	AdvancedFeatures:         "PCI Advanced Features",
	EnhancedAllocation:       "Enhanced Allocation",
	FlatteningPortalBridge:   "Flattening Portal Bridge",
}

func (c Capability) String() string { return elib.StringerHex(capabilityNames[:], int(c)) }

type ExtCapability uint16

const (
	AdvancedErrorReporting ExtCapability = iota + 1
	VirtualChannel
	DeviceSerialNumber
	PowerBudgeting
	RootComplexLinkDeclaration
	RootComplexInternalLinkControl
	RootComplexEventCollector
	MultiFunctionVC
	VirtualChannel9
	RootComplexRB
	ExtVendorSpecific
	ConfigAccess
	AccessControlServices
	AlternateRoutingID
	AddressTranslationServices
	SingleRootIOVirtualization
	MultiRootIOVirtualization
	Multicast
	PageRequestInterface
	ReservedAMD
	ResizableBAR
	DynamicPowerAllocation
	TPHRequester
	LatencyToleranceReporting
	SecondaryPCIeCapability
	ProtocolMultiplexing
	ProcessAddressSpaceID
	LNRequester
	DownstreamPortContainment
	L1PMSubstates
	PrecisionTimeMeasurement
	MPCIe
	FRSQueueing
	ReadinessTimeReporting
	DesignatedVendorSpecific
	VFResizableBAR
	DataLinkFeature
	PhysicalLayer16
	LaneMargining
	HierarchyID
	NativePCIeEnclosure
	PhysicalLayer32
)

var extCapabilityNames = [...]string{
	AdvancedErrorReporting:         "Advanced Error Reporting",
	VirtualChannel:                 "Virtual Channel",
	DeviceSerialNumber:             "Device Serial Number",
	PowerBudgeting:                 "Power Budgeting",
	RootComplexLinkDeclaration:     "Root Complex Link",
	RootComplexInternalLinkControl: "Root Complex Internal Link",
	RootComplexEventCollector:      "Root Complex Event Collector",
	MultiFunctionVC:                "Multi-Function Virtual Channel",
	VirtualChannel9:                "Virtual Channel",
	RootComplexRB:                  "Root Complex Register Block",
	ExtVendorSpecific:              "Vendor Specific Information",
	ConfigAccess:                   "Config Access Correlation",
	AccessControlServices:          "Access Control Services",
	AlternateRoutingID:             "Alternative Routing-ID Interpretation (ARI)",
	AddressTranslationServices:     "Address Translation Service (ATS)",
	SingleRootIOVirtualization:     "Single Root I/O Virtualization (SR-IOV)",
	MultiRootIOVirtualization:      "Multi-Root I/O Virtualization (MR-IOV)",
	Multicast:                      "Multicast",
	PageRequestInterface:           "Page Request Interface (PRI)",
	ReservedAMD:                    "Reserved for AMD",
	ResizableBAR:                   "Physical Resizable BAR",
	DynamicPowerAllocation:         "Dynamic Power Allocation",
	TPHRequester:                   "Transaction Processing Hints",
	LatencyToleranceReporting:      "Latency Tolerance Reporting",
	SecondaryPCIeCapability:        "Secondary PCI Express",
	ProtocolMultiplexing:           "Protocol Multiplexing",
	ProcessAddressSpaceID:          "Process Address Space ID (PASID)",
	LNRequester:                    "LN Requester",
	DownstreamPortContainment:      "Downstream Port Containment",
	L1PMSubstates:                  "L1 PM Substates",
	PrecisionTimeMeasurement:       "Precision Time Measurement",
	MPCIe:                          "M-PCIe",
	FRSQueueing:                    "FRS Queueing",
	ReadinessTimeReporting:         "Readiness Time Reporting",
	DesignatedVendorSpecific:       "Designated Vendor-Specific",
	VFResizableBAR:                 "VF Resizable BAR",
	DataLinkFeature:                "Data Link Feature",
	PhysicalLayer16:                "Physical Layer 16.0 GT/s",
	LaneMargining:                  "Lane Margining at the Receiver",
	HierarchyID:                    "Hierarchy ID",
	NativePCIeEnclosure:            "Native PCIe Enclosure Management",
	PhysicalLayer32:                "Physical Layer 32.0 GT/s",
}

func (c ExtCapability) String() string { return elib.StringerHex(extCapabilityNames[:], int(c)) }

// Key identifies a capability family: the chain it was found on and its ID.
type Key struct {
	Extended bool
	ID       uint16
}

func (k Key) String() string {
	if k.Extended {
		return fmt.Sprintf("ext %s", ExtCapability(k.ID))
	}
	return Capability(k.ID).String()
}

// RawCapability is one record of a capability chain. Data is a copy of the
// configuration bytes from Offset, header included, up to the next record
// when that follows this one, else to the end of the chain's region.
type RawCapability struct {
	Extended bool
	ID       uint16
	// extended records only
	Version uint8
	Offset  uint16
	// 0 terminates the chain
	Next uint16
	Data []byte
}

func (r *RawCapability) Key() Key { return Key{r.Extended, r.ID} }

func (r *RawCapability) String() string {
	if r.Extended {
		return fmt.Sprintf("[%03x v%d] %v", r.Offset, r.Version, r.Key())
	}
	return fmt.Sprintf("[%02x] %v", r.Offset, r.Key())
}

// U8, U16 and U32 read at o in Data; bytes past the window read as 0.
func (r *RawCapability) U8(o uint) uint8 {
	if o >= uint(len(r.Data)) {
		return 0
	}
	return r.Data[o]
}

func (r *RawCapability) U16(o uint) uint16 {
	if o+2 > uint(len(r.Data)) {
		return 0
	}
	return le16(r.Data[o:])
}

func (r *RawCapability) U32(o uint) uint32 {
	if o+4 > uint(len(r.Data)) {
		return 0
	}
	return le32(r.Data[o:])
}

// Decoded is a capability decoded to its typed form.
type Decoded interface {
	CapabilityKey() Key
}

const (
	legacyAnchor        = 0x34
	cardBusAnchor       = 0x14
	legacyHeaderSize    = 2
	extHeaderSize       = 4
	maxLegacySteps      = 64
	maxExtSteps         = (ConfigSize - ExtendedConfigMin) / extHeaderSize
	legacyPointerMask   = 0xfc
	extPointerMask      = 0xffc
	extHeaderTerminator = 0xffffffff
)

// Walker follows one capability chain. It yields each record once; the
// walk ends at a zero next pointer or at the first malformed link, which
// Err reports. The number of steps is bounded by the region size.
//
//	w := NewWalker(cs, false)
//	for w.Next() {
//		c := w.Capability()
//		...
//	}
//	if err := w.Err(); err != nil {
//		...
//	}
type Walker struct {
	cs       ConfigSpace
	extended bool
	end      uint
	o        uint
	started  bool
	steps    int
	max      int
	seen     map[uint]bool
	c        RawCapability
	err      error
}

// NewWalker starts a walk of the legacy chain, anchored at the header's
// capability pointer, or of the extended chain at 0x100.
func NewWalker(cs ConfigSpace, extended bool) *Walker {
	w := &Walker{cs: cs, extended: extended, seen: make(map[uint]bool)}
	if extended {
		w.end = uint(cs.Len())
		w.max = maxExtSteps
		if !cs.IsExtended() {
			w.started = true
			return w
		}
		w.o = ExtendedConfigMin
		return w
	}
	w.end = uint(cs.Len())
	if w.end > LegacyConfigSize {
		w.end = LegacyConfigSize
	}
	w.max = maxLegacySteps
	w.o = legacyStart(cs)
	if w.o == 0 {
		w.started = true
	}
	return w
}

// legacyStart returns the first legacy capability offset or 0.
func legacyStart(cs ConfigSpace) uint {
	status, err := cs.Uint16(0x06)
	if err != nil || !Status(status).HasCapabilities() {
		return 0
	}
	tp, _ := cs.Uint8(0x0e)
	anchor := uint(legacyAnchor)
	if HeaderType(tp&^(1<<7)) == CardBus {
		anchor = cardBusAnchor
	}
	p, err := cs.Uint8(anchor)
	if err != nil {
		return 0
	}
	return uint(p & legacyPointerMask)
}

func (w *Walker) fail(reason string, args ...interface{}) bool {
	w.err = &ChainError{
		Extended: w.extended,
		Offset:   uint16(w.o),
		Reason:   fmt.Sprintf(reason, args...),
	}
	w.o = 0
	return false
}

// Next advances to the next record, returning false at the end of the
// chain.
func (w *Walker) Next() bool {
	if w.started {
		if w.c.Next == 0 {
			return false
		}
		w.o = uint(w.c.Next)
	}
	if w.o == 0 || w.err != nil {
		return false
	}
	first := !w.started
	w.started = true

	hdr := uint(legacyHeaderSize)
	lo := uint(HeaderSize)
	if w.extended {
		hdr, lo = extHeaderSize, ExtendedConfigMin
	}
	switch {
	case w.o < lo:
		return w.fail("pointer 0x%x below 0x%x", w.o, lo)
	case w.o+hdr > w.end:
		return w.fail("pointer 0x%x past end 0x%x", w.o, w.end)
	case w.seen[w.o]:
		return w.fail("pointer 0x%x revisited", w.o)
	case w.steps >= w.max:
		return w.fail("more than %d records", w.max)
	}
	w.seen[w.o] = true
	w.steps++

	c := RawCapability{Extended: w.extended, Offset: uint16(w.o)}
	if w.extended {
		h, _ := w.cs.Uint32(w.o)
		if h == 0 || h == extHeaderTerminator {
			// empty list, or a function that stops answering
			if !first {
				return w.fail("null header")
			}
			w.c.Next = 0
			return false
		}
		c.ID = uint16(h)
		c.Version = uint8(h>>16) & 0xf
		c.Next = uint16(h>>20) & extPointerMask
	} else {
		id, _ := w.cs.Uint8(w.o)
		next, _ := w.cs.Uint8(w.o + 1)
		if id == 0xff {
			return w.fail("chain broken")
		}
		c.ID = uint16(id)
		c.Next = uint16(next & legacyPointerMask)
	}
	end := w.end
	if n := uint(c.Next); n > w.o && n < end {
		end = n
	}
	c.Data, _ = w.cs.Window(w.o, end-w.o)
	w.c = c
	return true
}

// Capability returns the current record. Its Data is the walker's copy;
// the caller may keep it.
func (w *Walker) Capability() RawCapability { return w.c }

// Err returns the *ChainError that ended the walk early, or nil.
func (w *Walker) Err() error { return w.err }

// ForeachCap calls f for each legacy capability until f returns done or an
// error. A malformed chain is returned only when f did not stop the walk.
func ForeachCap(cs ConfigSpace, f func(c *RawCapability) (done bool, err error)) error {
	return foreach(NewWalker(cs, false), f)
}

// ForeachExtCap is ForeachCap for the extended chain.
func ForeachExtCap(cs ConfigSpace, f func(c *RawCapability) (done bool, err error)) error {
	return foreach(NewWalker(cs, true), f)
}

func foreach(w *Walker, f func(c *RawCapability) (done bool, err error)) error {
	for w.Next() {
		c := w.Capability()
		done, err := f(&c)
		if err != nil || done {
			return err
		}
	}
	return w.Err()
}

// Capabilities returns the whole legacy chain and the diagnostic, if any,
// that cut it short.
func Capabilities(cs ConfigSpace) ([]RawCapability, error) {
	return collect(NewWalker(cs, false))
}

// ExtCapabilities is Capabilities for the extended chain.
func ExtCapabilities(cs ConfigSpace) ([]RawCapability, error) {
	return collect(NewWalker(cs, true))
}

func collect(w *Walker) (cs []RawCapability, err error) {
	for w.Next() {
		cs = append(cs, w.Capability())
	}
	return cs, w.Err()
}

// FindCap returns the first legacy capability with the given ID.
func FindCap(cs ConfigSpace, id Capability) (c RawCapability, found bool) {
	ForeachCap(cs, func(r *RawCapability) (done bool, err error) {
		if found = r.ID == uint16(id); found {
			c = *r
			done = true
		}
		return
	})
	return
}

// FindExtCap returns the first extended capability with the given ID.
func FindExtCap(cs ConfigSpace, id ExtCapability) (c RawCapability, found bool) {
	ForeachExtCap(cs, func(r *RawCapability) (done bool, err error) {
		if found = r.ID == uint16(id); found {
			c = *r
			done = true
		}
		return
	})
	return
}
