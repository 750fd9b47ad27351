// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Latency is a max snoop or no-snoop latency register:
//
//	[9:0] value
//	[12:10] scale, value * 32^scale ns
type Latency uint16

var (
	latencyValue = field("Value", 0, 10, pci.Number)
	latencyScale = field("Scale", 10, 3, pci.Enum)

	LatencyLayout = pci.Layout{Name: "Latency", Width: 16, Fields: []pci.Field{
		latencyValue,
		latencyScale,
	}}
)

func (l Latency) Value() uint16 { return uint16(latencyValue.Get(uint32(l))) }
func (l Latency) Scale() uint8  { return latencyScale.Uint8(uint32(l)) }

// Nanoseconds is 0 for the reserved scales 6 and 7.
func (l Latency) Nanoseconds() uint64 {
	s := l.Scale()
	if s > 5 {
		return 0
	}
	return uint64(l.Value()) << (5 * s)
}

func (l Latency) String() string { return fmt.Sprintf("%dns", l.Nanoseconds()) }

const (
	ltrSnoop   = 0x4
	ltrNoSnoop = 0x6
	ltrMinSize = 0x8
)

// LTR is the latency tolerance reporting extended capability.
type LTR struct {
	Offset     uint16
	Version    uint8
	MaxSnoop   Latency
	MaxNoSnoop Latency
}

func (*LTR) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.LatencyToleranceReporting)}
}

func (l *LTR) String() string {
	return fmt.Sprintf("Latency Tolerance Reporting Max snoop latency: %v Max no snoop latency: %v",
		l.MaxSnoop, l.MaxNoSnoop)
}

func DecodeLTR(r *pci.RawCapability) (*LTR, error) {
	if err := pci.CheckSize("latency tolerance reporting", r, ltrMinSize); err != nil {
		return nil, err
	}
	return &LTR{
		Offset:     r.Offset,
		Version:    r.Version,
		MaxSnoop:   Latency(r.U16(ltrSnoop)),
		MaxNoSnoop: Latency(r.U16(ltrNoSnoop)),
	}, nil
}
