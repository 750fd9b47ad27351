// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import "fmt"

const (
	vendorLength  = 0x2
	vendorMinSize = 0x3
	ssvidVendor   = 0x4
	ssvidDevice   = 0x6
	ssvidMinSize  = 0x8
)

// VendorSpecificCap is a legacy vendor specific capability: ID, next
// pointer, a length byte, then Length-3 bytes of vendor data.
type VendorSpecificCap struct {
	Offset uint16
	Length uint8
	// Length bytes from the capability start, header included.
	Data []byte
}

func (*VendorSpecificCap) CapabilityKey() Key { return Key{ID: uint16(VendorSpecific)} }

// Bytes returns the capability's bytes as read.
func (v *VendorSpecificCap) Bytes() []byte { return append([]byte(nil), v.Data...) }

func (v *VendorSpecificCap) String() string {
	return fmt.Sprintf("Vendor Specific Information: Len=%02x", v.Length)
}

// DecodeVendorSpecific fails with a *TruncatedError when the declared
// length runs past the capability's window.
func DecodeVendorSpecific(r *RawCapability) (*VendorSpecificCap, error) {
	if err := short("vendor specific", r.Offset, r.Data, vendorMinSize); err != nil {
		return nil, err
	}
	v := &VendorSpecificCap{
		Offset: r.Offset,
		Length: r.U8(vendorLength),
	}
	n := int(v.Length)
	if n < vendorMinSize {
		n = vendorMinSize
	}
	if err := short("vendor specific", r.Offset, r.Data, n); err != nil {
		return nil, err
	}
	v.Data = append([]byte(nil), r.Data[:n]...)
	return v, nil
}

// SubsystemCap is the bridge subsystem vendor ID capability.
type SubsystemCap struct {
	Offset    uint16
	Subsystem DeviceID
}

func (*SubsystemCap) CapabilityKey() Key { return Key{ID: uint16(SSVID)} }

func (s *SubsystemCap) String() string { return "Subsystem: " + s.Subsystem.String() }

func DecodeSubsystemID(r *RawCapability) (*SubsystemCap, error) {
	if err := short("subsystem id", r.Offset, r.Data, ssvidMinSize); err != nil {
		return nil, err
	}
	return &SubsystemCap{
		Offset: r.Offset,
		Subsystem: DeviceID{
			Vendor: VendorID(r.U16(ssvidVendor)),
			Device: VendorDeviceID(r.U16(ssvidDevice)),
		},
	}, nil
}

// OpaqueCap is a capability with no decoder. It carries the raw window
// unchanged.
type OpaqueCap struct {
	Key
	Version uint8
	Offset  uint16
	Data    []byte
}

func (o *OpaqueCap) CapabilityKey() Key { return o.Key }

func (o *OpaqueCap) Bytes() []byte { return append([]byte(nil), o.Data...) }

func (o *OpaqueCap) String() string {
	return fmt.Sprintf("%v <%d bytes>", o.Key, len(o.Data))
}

// DecodeOpaque never fails.
func DecodeOpaque(r *RawCapability) *OpaqueCap {
	return &OpaqueCap{
		Key:     r.Key(),
		Version: r.Version,
		Offset:  r.Offset,
		Data:    append([]byte(nil), r.Data...),
	}
}

// Layouts returns the register tables of this package.
func Layouts() []Layout {
	return []Layout{
		CommandLayout,
		StatusLayout,
		BridgeControlLayout,
		CardBusControlLayout,
		PMCLayout,
		PMCSRLayout,
		PMBridgeLayout,
		MSIControlLayout,
		MSIXControlLayout,
		MSIXTableLayout,
	}
}
