// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Access control services capability and control registers share their
// low 7 bits:
//
//	[0] source validation
//	[1] translation blocking
//	[2] P2P request redirect
//	[3] P2P completion redirect
//	[4] upstream forwarding
//	[5] P2P egress control
//	[6] direct translated P2P
//	[15:8] egress control vector size (capability register only)
type ACSFlags uint16

var (
	acsVectorSize = field("EgressVectorSize", 8, 8, pci.Count)

	ACSCapLayout = pci.Layout{Name: "ACSCap", Width: 16, Fields: []pci.Field{
		flag("SrcValid", 0),
		flag("TransBlk", 1),
		flag("ReqRedir", 2),
		flag("CmpltRedir", 3),
		flag("UpstreamFwd", 4),
		flag("EgressCtrl", 5),
		flag("DirectTrans", 6),
		acsVectorSize,
	}}

	ACSCtlLayout = pci.Layout{Name: "ACSCtl", Width: 16, Fields: ACSCapLayout.Fields[:7]}
)

const (
	ACS_source_validation ACSFlags = 1 << iota
	ACS_translation_blocking
	ACS_request_redirect
	ACS_completion_redirect
	ACS_upstream_forwarding
	ACS_egress_control
	ACS_direct_translated
)

func (f ACSFlags) String() string { return ACSCtlLayout.PlusMinus(uint32(f)) }

// EgressVectorSize is the number of bits in the egress control vector; 0
// encodes 256.
func (f ACSFlags) EgressVectorSize() int {
	n := int(acsVectorSize.Get(uint32(f)))
	if n == 0 {
		n = 256
	}
	return n
}

const (
	acsCap     = 0x4
	acsCtl     = 0x6
	acsVector  = 0x8
	acsMinSize = 0x8
)

// ACS is the access control services extended capability.
type ACS struct {
	Offset       uint16
	Version      uint8
	Capabilities ACSFlags
	Control      ACSFlags
	// Egress control vector, when the capability register advertises
	// P2P egress control and the window holds it.
	EgressVector []byte
}

func (*ACS) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.AccessControlServices)}
}

func (a *ACS) String() string {
	return fmt.Sprintf("Access Control Services ACSCap: %v ACSCtl: %v", a.Capabilities, a.Control)
}

func DecodeACS(r *pci.RawCapability) (*ACS, error) {
	if err := pci.CheckSize("access control services", r, acsMinSize); err != nil {
		return nil, err
	}
	a := &ACS{
		Offset:       r.Offset,
		Version:      r.Version,
		Capabilities: ACSFlags(r.U16(acsCap)),
		Control:      ACSFlags(r.U16(acsCtl)),
	}
	if a.Capabilities&ACS_egress_control != 0 {
		n := acsVector + (a.Capabilities.EgressVectorSize()+7)/8
		if n <= len(r.Data) {
			a.EgressVector = append([]byte(nil), r.Data[acsVector:n]...)
		}
	}
	return a, nil
}
