// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// ARI capability:
//
//	[0] MFVC function groups capability
//	[1] ACS function groups capability
//	[15:8] next function number
type ARICap uint16

var (
	ariNextFunction = field("NextFunction", 8, 8, pci.Number)

	ARICapLayout = pci.Layout{Name: "ARICap", Width: 16, Fields: []pci.Field{
		flag("MFVC", 0),
		flag("ACS", 1),
		ariNextFunction,
	}}
)

func (c ARICap) NextFunction() uint8 { return ariNextFunction.Uint8(uint32(c)) }

func (c ARICap) String() string {
	return fmt.Sprintf("%s Next Function: %d", ARICapLayout.PlusMinus(uint32(c)), c.NextFunction())
}

// ARI control:
//
//	[0] MFVC function groups enable
//	[1] ACS function groups enable
//	[6:4] function group
type ARICtl uint16

var (
	ariFunctionGroup = field("FunctionGroup", 4, 3, pci.Number)

	ARICtlLayout = pci.Layout{Name: "ARICtl", Width: 16, Fields: []pci.Field{
		flag("MFVC", 0),
		flag("ACS", 1),
		ariFunctionGroup,
	}}
)

func (c ARICtl) FunctionGroup() uint8 { return ariFunctionGroup.Uint8(uint32(c)) }

func (c ARICtl) String() string {
	return fmt.Sprintf("%s Function Group: %d", ARICtlLayout.PlusMinus(uint32(c)), c.FunctionGroup())
}

const (
	ariCap     = 0x4
	ariCtl     = 0x6
	ariMinSize = 0x8
)

// ARI is the alternative routing-ID interpretation extended capability.
type ARI struct {
	Offset       uint16
	Version      uint8
	Capabilities ARICap
	Control      ARICtl
}

func (*ARI) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.AlternateRoutingID)}
}

func (a *ARI) String() string {
	return fmt.Sprintf("Alternative Routing-ID Interpretation (ARI) ARICap: %v ARICtl: %v",
		a.Capabilities, a.Control)
}

func DecodeARI(r *pci.RawCapability) (*ARI, error) {
	if err := pci.CheckSize("ari", r, ariMinSize); err != nil {
		return nil, err
	}
	return &ARI{
		Offset:       r.Offset,
		Version:      r.Version,
		Capabilities: ARICap(r.U16(ariCap)),
		Control:      ARICtl(r.U16(ariCtl)),
	}, nil
}
