// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// SR-IOV capabilities:
//
//	[0] VF migration capable
//	[1] ARI capable hierarchy preserved
//	[2] VF 10-bit tag requester supported
//	[31:21] VF migration interrupt message number
type IOVCap uint32

var (
	iovCapMsg = field("MigrationIntMsg", 21, 11, pci.Number)

	IOVCapLayout = pci.Layout{Name: "IOVCap", Width: 32, Fields: []pci.Field{
		flag("Migration", 0),
		flag("ARIHierarchyPreserved", 1),
		flag("10BitTagReq", 2),
		iovCapMsg,
	}}
)

func (c IOVCap) InterruptMessage() uint16 { return uint16(iovCapMsg.Get(uint32(c))) }

func (c IOVCap) String() string {
	return fmt.Sprintf("%s, Interrupt Message Number: %03x",
		IOVCapLayout.PlusMinus(uint32(c)), c.InterruptMessage())
}

// SR-IOV control:
//
//	[0] VF enable
//	[1] VF migration enable
//	[2] VF migration interrupt enable
//	[3] VF memory space enable
//	[4] ARI capable hierarchy
//	[5] VF 10-bit tag requester enable
type IOVCtl uint16

var IOVCtlLayout = pci.Layout{Name: "IOVCtl", Width: 16, Fields: []pci.Field{
	flag("Enable", 0),
	flag("Migration", 1),
	flag("Interrupt", 2),
	flag("MSE", 3),
	flag("ARIHierarchy", 4),
	flag("10BitTagReq", 5),
}}

func (c IOVCtl) Enabled() bool  { return c&1 != 0 }
func (c IOVCtl) String() string { return IOVCtlLayout.PlusMinus(uint32(c)) }

// SR-IOV status: [0] VF migration status.
type IOVSta uint16

var IOVStaLayout = pci.Layout{Name: "IOVSta", Width: 16, Fields: []pci.Field{
	flag("Migration", 0),
}}

func (s IOVSta) String() string { return IOVStaLayout.PlusMinus(uint32(s)) }

const (
	iovCap          = 0x04
	iovCtl          = 0x08
	iovSta          = 0x0a
	iovInitialVFs   = 0x0c
	iovTotalVFs     = 0x0e
	iovNumVFs       = 0x10
	iovFDL          = 0x12
	iovOffset       = 0x14
	iovStride       = 0x16
	iovDevice       = 0x1a
	iovSupportedPgs = 0x1c
	iovSystemPgs    = 0x20
	iovBARs         = 0x24
	iovMigration    = 0x3c
	iovMinSize      = 0x40
	iovNBARs        = 6
)

// SRIOV is the single root I/O virtualization extended capability.
type SRIOV struct {
	Offset       uint16
	Version      uint8
	Capabilities IOVCap
	Control      IOVCtl
	Status       IOVSta

	InitialVFs uint16
	TotalVFs   uint16
	NumVFs     uint16
	// function dependency link
	FDL uint8

	// Routing ID of the first VF relative to the PF and between VFs.
	FirstVFOffset uint16
	VFStride      uint16
	VFDevice      pci.VendorDeviceID

	// Bit n set when pages of 4K << n are supported.
	SupportedPageSizes uint32
	SystemPageSize     uint32

	VFBARs [iovNBARs]pci.BaseAddressReg

	// VF migration state array location.
	MigrationState pci.MSIXLocation
}

func (*SRIOV) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.SingleRootIOVirtualization)}
}

func (s *SRIOV) String() string { return "Single Root I/O Virtualization (SR-IOV)" }

// VFRegions lists the VF BARs.
func (s *SRIOV) VFRegions() []pci.Region { return pci.Regions(s.VFBARs[:]) }

// VFAddress returns the bus address of the nth VF (from 0) of the PF at
// pf, or false when VFs are disabled or n is out of range.
func (s *SRIOV) VFAddress(pf pci.BusAddress, n uint16) (a pci.BusAddress, ok bool) {
	if !s.Control.Enabled() || n >= s.NumVFs {
		return
	}
	rid := uint(pf.Bus)<<8 | uint(pf.Slot)<<3 | uint(pf.Fn)
	rid += uint(s.FirstVFOffset) + uint(n)*uint(s.VFStride)
	if rid > 0xffff {
		return
	}
	a = pci.BusAddress{
		Domain: pf.Domain,
		Bus:    uint8(rid >> 8),
		Slot:   uint8(rid>>3) & 0x1f,
		Fn:     uint8(rid) & 7,
	}
	return a, true
}

func (s *SRIOV) Lines() (l elib.Lines) {
	l.Add(s.String())
	l.Add("IOVCap: " + s.Capabilities.String())
	l.Add("IOVCtl: " + s.Control.String())
	l.Add("IOVSta: " + s.Status.String())
	l.Add(fmt.Sprintf("Initial VFs: %d, Total VFs: %d, Number of VFs: %d, Function Dependency Link: %02x",
		s.InitialVFs, s.TotalVFs, s.NumVFs, s.FDL))
	l.Add(fmt.Sprintf("VF offset: %d, stride: %d, Device ID: %v", s.FirstVFOffset, s.VFStride, s.VFDevice))
	l.Add(fmt.Sprintf("Supported Page Size: %08x, System Page Size: %08x",
		s.SupportedPageSizes, s.SystemPageSize))
	for _, r := range s.VFRegions() {
		l.Add(fmt.Sprintf("VF %v", r))
	}
	l.Add(fmt.Sprintf("VF Migration: offset: %08x, BIR: %d", s.MigrationState.Offset(), s.MigrationState.BAR()))
	return
}

func DecodeSRIOV(r *pci.RawCapability) (*SRIOV, error) {
	if err := pci.CheckSize("sr-iov", r, iovMinSize); err != nil {
		return nil, err
	}
	s := &SRIOV{
		Offset:             r.Offset,
		Version:            r.Version,
		Capabilities:       IOVCap(r.U32(iovCap)),
		Control:            IOVCtl(r.U16(iovCtl)),
		Status:             IOVSta(r.U16(iovSta)),
		InitialVFs:         r.U16(iovInitialVFs),
		TotalVFs:           r.U16(iovTotalVFs),
		NumVFs:             r.U16(iovNumVFs),
		FDL:                r.U8(iovFDL),
		FirstVFOffset:      r.U16(iovOffset),
		VFStride:           r.U16(iovStride),
		VFDevice:           pci.VendorDeviceID(r.U16(iovDevice)),
		SupportedPageSizes: r.U32(iovSupportedPgs),
		SystemPageSize:     r.U32(iovSystemPgs),
		MigrationState:     pci.MSIXLocation(r.U32(iovMigration)),
	}
	for i := range s.VFBARs {
		s.VFBARs[i] = pci.BaseAddressReg(r.U32(iovBARs + 4*uint(i)))
	}
	return s, nil
}
