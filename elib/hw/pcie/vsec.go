// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Vendor specific header:
//
//	[15:0] VSEC ID
//	[19:16] VSEC revision
//	[31:20] VSEC length, header included
type VSECHeader uint32

var (
	vsecID  = field("ID", 0, 16, pci.Number)
	vsecRev = field("Rev", 16, 4, pci.Number)
	vsecLen = field("Len", 20, 12, pci.Count)

	VSECHeaderLayout = pci.Layout{Name: "VSEC Header", Width: 32, Fields: []pci.Field{
		vsecID,
		vsecRev,
		vsecLen,
	}}
)

func (h VSECHeader) ID() uint16      { return uint16(vsecID.Get(uint32(h))) }
func (h VSECHeader) Revision() uint8 { return vsecRev.Uint8(uint32(h)) }
func (h VSECHeader) Length() int     { return int(vsecLen.Get(uint32(h))) }

func (h VSECHeader) String() string {
	return fmt.Sprintf("ID=%04x Rev=%d Len=%03x", h.ID(), h.Revision(), h.Length())
}

const (
	vsecHeader  = 0x4
	vsecMinSize = 0x8
)

// VSEC is an extended vendor specific capability. Its body is opaque.
type VSEC struct {
	Offset  uint16
	Version uint8
	Header  VSECHeader
	// Length bytes from the capability start, headers included.
	Data []byte
}

func (*VSEC) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.ExtVendorSpecific)}
}

func (v *VSEC) ID() uint16      { return v.Header.ID() }
func (v *VSEC) Revision() uint8 { return v.Header.Revision() }

// Bytes returns the capability's bytes as read.
func (v *VSEC) Bytes() []byte { return append([]byte(nil), v.Data...) }

func (v *VSEC) String() string { return "Vendor Specific Information: " + v.Header.String() }

// DecodeVSEC fails with a *pci.TruncatedError when the declared length
// runs past the capability's window.
func DecodeVSEC(r *pci.RawCapability) (*VSEC, error) {
	if err := pci.CheckSize("vendor specific", r, vsecMinSize); err != nil {
		return nil, err
	}
	v := &VSEC{
		Offset:  r.Offset,
		Version: r.Version,
		Header:  VSECHeader(r.U32(vsecHeader)),
	}
	n := v.Header.Length()
	if n < vsecMinSize {
		n = vsecMinSize
	}
	if err := pci.CheckSize("vendor specific", r, n); err != nil {
		return nil, err
	}
	v.Data = append([]byte(nil), r.Data[:n]...)
	return v, nil
}
