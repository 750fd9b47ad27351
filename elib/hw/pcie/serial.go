// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcie

import (
	"fmt"
	"strings"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

const (
	dsnLow     = 0x4
	dsnHigh    = 0x8
	dsnMinSize = 0xc
)

// SerialNumber is the device serial number extended capability, an
// IEEE EUI-64.
type SerialNumber struct {
	Offset  uint16
	Version uint8
	Serial  uint64
}

func (*SerialNumber) CapabilityKey() pci.Key {
	return pci.Key{Extended: true, ID: uint16(pci.DeviceSerialNumber)}
}

// String formats the serial most significant byte first: 00-11-22-...
func (s *SerialNumber) String() string {
	b := make([]string, 8)
	for i := range b {
		b[i] = fmt.Sprintf("%02x", uint8(s.Serial>>(56-8*uint(i))))
	}
	return "Device Serial Number " + strings.Join(b, "-")
}

func DecodeSerialNumber(r *pci.RawCapability) (*SerialNumber, error) {
	if err := pci.CheckSize("device serial number", r, dsnMinSize); err != nil {
		return nil, err
	}
	return &SerialNumber{
		Offset:  r.Offset,
		Version: r.Version,
		Serial:  uint64(r.U32(dsnHigh))<<32 | uint64(r.U32(dsnLow)),
	}, nil
}
