// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"bytes"
	"errors"
	"testing"
)

func raw(id Capability, offset uint16, data ...byte) *RawCapability {
	return &RawCapability{ID: uint16(id), Offset: offset, Data: data}
}

func TestDecodePowerManagement(t *testing.T) {
	// Flags: PMEClk- DSI- D1- D2- AuxCurrent=0mA PME(D0-,D1-,D2-,D3hot+,D3cold-)
	// Status: D0 NoSoftRst+ PME-Enable- DSel=0 DScale=0 PME-
	r := raw(PowerManagement, 0x70, 0x01, 0xa8, 0x03, 0x40, 0x08, 0x00, 0x00, 0x00)
	p, err := DecodePowerManagement(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v := p.Capabilities.Version(); v != 3 {
		t.Errorf("version got %d want 3", v)
	}
	if s, want := p.Capabilities.PMEStates(), "D3hot"; s != want {
		t.Errorf("PME got %q want %q", s, want)
	}
	if s, want := p.Capabilities.AuxCurrent(), "0mA"; s != want {
		t.Errorf("AuxCurrent got %q want %q", s, want)
	}
	if p.Capabilities.D1() || p.Capabilities.D2() {
		t.Errorf("D1/D2 set in %#x", uint16(p.Capabilities))
	}
	if s, want := p.Control.String(), "D0 NoSoftRst+ PME-Enable- PME- DSel=0 DScale=0"; s != want {
		t.Errorf("Control got %q want %q", s, want)
	}
	if p.CapabilityKey() != (Key{ID: uint16(PowerManagement)}) {
		t.Errorf("key got %v", p.CapabilityKey())
	}
}

func TestPowerManagementBridgeCompat(t *testing.T) {
	r := raw(PowerManagement, 0x40, 0x01, 0x00, 0x03, 0x00, 0xc8, 0x00, 0x00, 0x00)
	p, err := DecodePowerManagement(r, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.BridgeSupport.B2B3() || p.BridgeSupport.BPCCEnabled() {
		t.Errorf("bridge support from PMCSR without compat: %v", p.BridgeSupport)
	}
	p, _ = DecodePowerManagement(r, CompatPMBridge)
	if !p.BridgeSupport.B2B3() || !p.BridgeSupport.BPCCEnabled() {
		t.Errorf("compat bridge support got %v", p.BridgeSupport)
	}
	if _, err = DecodePowerManagement(raw(PowerManagement, 0x40, 1, 0, 3, 0, 8), 0); !errors.Is(err, ErrTruncated) {
		t.Errorf("5 byte capability: got %v want %v", err, ErrTruncated)
	}
}

func TestDecodeMSI(t *testing.T) {
	// MSI: Enable+ Count=1/1 Maskable- 64bit- Address: fee003b8 Data: 0000
	m, err := DecodeMSI(raw(MSI, 0x80, 0x05, 0x70, 0x01, 0x00, 0xb8, 0x03, 0xe0, 0xfe, 0x00, 0x00))
	if err != nil {
		t.Fatal(err)
	}
	if !m.Control.Enabled() || m.Control.Is64() || m.Control.Maskable() {
		t.Errorf("control got %v", m.Control)
	}
	if m.Address != 0xfee003b8 || m.Data != 0 {
		t.Errorf("got address %x data %x", m.Address, m.Data)
	}
	if s, want := m.Control.String(), "Enable+ 64bit- Maskable- Count=1/1"; s != want {
		t.Errorf("got %q want %q", s, want)
	}

	_, err = DecodeMSI(raw(MSI, 0x80, 0x05, 0x70, 0x01, 0x00, 0xb8, 0x03, 0xe0, 0xfe, 0x00))
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("got %v want %v", err, ErrTruncated)
	}
}

func TestDecodeMSI64Maskable(t *testing.T) {
	b := make([]byte, 24)
	b[0] = uint8(MSI)
	put16(b[2:], 0x195)
	put32(b[4:], 0xfee00000)
	put32(b[8:], 0x1)
	put16(b[12:], 0x4021)
	put32(b[16:], 0x3)
	put32(b[20:], 0x1)
	m, err := DecodeMSI(raw(MSI, 0x50, b...))
	if err != nil {
		t.Fatal(err)
	}
	if m.Address != 0x1fee00000 || m.Data != 0x4021 || m.Mask != 3 || m.Pending != 1 {
		t.Errorf("got %+v", m)
	}
	if m.Control.Capable() != 4 || m.Control.Allocated() != 2 {
		t.Errorf("count got %d/%d want 2/4", m.Control.Allocated(), m.Control.Capable())
	}
	if _, err = DecodeMSI(raw(MSI, 0x50, b[:20]...)); !errors.Is(err, ErrTruncated) {
		t.Errorf("20 byte 64-bit maskable MSI: got %v want %v", err, ErrTruncated)
	}
}

func TestDecodeMSIX(t *testing.T) {
	b := make([]byte, 12)
	b[0] = uint8(MSIX)
	put16(b[2:], 0x800f)
	put32(b[4:], 0x00002000)
	put32(b[8:], 0x00003004)
	m, err := DecodeMSIX(raw(MSIX, 0xb0, b...))
	if err != nil {
		t.Fatal(err)
	}
	if !m.Control.Enabled() || m.Control.Masked() || m.Control.TableSize() != 16 {
		t.Errorf("control got %v", m.Control)
	}
	if m.Table.BAR() != 0 || m.Table.Offset() != 0x2000 || m.PBA.BAR() != 4 || m.PBA.Offset() != 0x3000 {
		t.Errorf("got table %v PBA %v", m.Table, m.PBA)
	}
	if _, err = DecodeMSIX(raw(MSIX, 0xb0, b[:11]...)); !errors.Is(err, ErrTruncated) {
		t.Errorf("got %v want %v", err, ErrTruncated)
	}
}

func TestDecodeVendorSpecific(t *testing.T) {
	w := []byte{0x09, 0x00, 0x0c, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0xaa, 0xbb, 0xcc, 0xdd}
	v, err := DecodeVendorSpecific(raw(VendorSpecific, 0xa0, w...))
	if err != nil {
		t.Fatal(err)
	}
	if v.Length != 12 || !bytes.Equal(v.Bytes(), w[:12]) {
		t.Errorf("got length %d bytes % x", v.Length, v.Bytes())
	}
	w[2] = 0x20
	var te *TruncatedError
	if _, err = DecodeVendorSpecific(raw(VendorSpecific, 0xa0, w...)); !errors.As(err, &te) || te.Need != 0x20 {
		t.Errorf("got %v want a truncated error needing 32 bytes", err)
	}
}

func TestDecodeSubsystemID(t *testing.T) {
	s, err := DecodeSubsystemID(raw(SSVID, 0xb0, 0x0d, 0x00, 0x00, 0x00, 0x12, 0x19, 0x1d, 0x00))
	if err != nil {
		t.Fatal(err)
	}
	if s.String() != "Subsystem: 1912:001d" {
		t.Errorf("got %q", s)
	}
}

func TestDecodeOpaque(t *testing.T) {
	r := &RawCapability{Extended: true, ID: 0x2a, Version: 1, Offset: 0x300, Data: []byte{0x2a, 0, 1, 0, 9, 9}}
	o := DecodeOpaque(r)
	if o.CapabilityKey() != (Key{Extended: true, ID: 0x2a}) || !bytes.Equal(o.Bytes(), r.Data) {
		t.Errorf("got %v", o)
	}
	r.Data[4] = 0
	if o.Data[4] != 9 {
		t.Error("opaque capability shares the walker's buffer")
	}
}
