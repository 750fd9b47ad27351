// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// SATA controller [0106]: Intel Corporation [8086:a102] (rev 31) (prog-if 01)
var normalHeader = []byte{
	0x86, 0x80, 0x02, 0xa1, 0x47, 0x05, 0xb0, 0x02, 0x31, 0x01, 0x06, 0x01, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x40, 0x01, 0x93, 0x00, 0x70, 0x01, 0x93, 0x41, 0x30, 0x00, 0x00, 0x49, 0x30, 0x00, 0x00,
	0x21, 0x30, 0x00, 0x00, 0x00, 0x60, 0x01, 0x93, 0x00, 0x00, 0x00, 0x00, 0x28, 0x10, 0xa5, 0x06,
	0x00, 0x00, 0x00, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0b, 0x01, 0x00, 0x00,
}

// PCI bridge [0604]: Renesas Technology Corp. SH7758 PCIe Switch [PS] [1912:001d]
var bridgeHeader = []byte{
	0x12, 0x19, 0x1d, 0x00, 0x07, 0x00, 0x10, 0x00, 0x00, 0x00, 0x04, 0x06, 0x00, 0x00, 0x01, 0x80,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x05, 0x08, 0x00, 0xf1, 0x01, 0x00, 0x00,
	0x00, 0x92, 0x90, 0x92, 0x01, 0x91, 0xf1, 0x91, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x00, 0x1b, 0x00,
}

// CardBus bridge [0607]: Device [df8e:05ee] (rev 37), random data
var cardBusHeader = []byte{
	0x8e, 0xdf, 0xee, 0x05, 0xb4, 0x00, 0x78, 0x4b, 0x37, 0x00, 0x07, 0x06, 0xf2, 0x29, 0x82, 0x00,
	0x00, 0x80, 0xf8, 0x35, 0x80, 0x00, 0x00, 0x00, 0x6d, 0xba, 0xfe, 0xfc, 0x00, 0x40, 0xf5, 0x11,
	0x00, 0x50, 0x47, 0x22, 0x00, 0x30, 0x85, 0x33, 0x00, 0xc0, 0xd0, 0x44, 0x60, 0x00, 0x00, 0x00,
	0x70, 0x00, 0x00, 0x00, 0x61, 0x00, 0x06, 0x00, 0x70, 0x00, 0x07, 0x00, 0x06, 0x1a, 0x45, 0x05,
	0x22, 0x33, 0x44, 0x55, 0x22, 0x33, 0x00, 0x00,
}

func mustDecodeHeader(t *testing.T, b []byte) Header {
	t.Helper()
	cs, err := NewConfigSpace(b)
	if err != nil {
		t.Fatal(err)
	}
	h, err := DecodeHeader(cs)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestDecodeHeaderNormal(t *testing.T) {
	h := mustDecodeHeader(t, normalHeader)
	got, ok := h.(*DeviceConfig)
	if !ok {
		t.Fatalf("got %T want *DeviceConfig", h)
	}
	want := &DeviceConfig{
		ConfigHeader: ConfigHeader{
			DeviceID:          DeviceID{Vendor: Intel, Device: 0xa102},
			Command:           0x0547,
			Status:            0x02b0,
			Revision:          0x31,
			SoftwareInterface: 0x01,
			DeviceClass:       Storage_SATA,
		},
		BaseAddressRegs: [6]BaseAddressReg{
			0x93014000, 0x93017000, 0x3041, 0x3049, 0x3021, 0x93016000,
		},
		SubID:            DeviceID{Vendor: 0x1028, Device: 0x06a5},
		CapabilityOffset: 0x80,
		InterruptLine:    0x0b,
		InterruptPin:     1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeHeader mismatch (-want +got):\n%s", diff)
	}
	if got.Type() != Normal || got.IsMultiFunction() {
		t.Errorf("got type %v multi-function %v", got.Type(), got.IsMultiFunction())
	}
	if s, want := got.Command.String(),
		"I/O+ Mem+ BusMaster+ SpecCycle- MemWINV- VGASnoop- ParErr+ Stepping- SERR+ FastB2B- DisINTx+"; s != want {
		t.Errorf("Command got %q want %q", s, want)
	}
	if s, want := got.Status.String(),
		"INTx- Cap+ 66MHz+ UDF- FastB2B+ ParErr- >TAbort- <TAbort- <MAbort- >SERR- <PERR- DEVSEL=medium"; s != want {
		t.Errorf("Status got %q want %q", s, want)
	}
	if s, want := got.InterruptPin.String(), "INTA"; s != want {
		t.Errorf("InterruptPin got %q want %q", s, want)
	}
	if n, want := got.DeviceClass.Name(), "SATA controller"; n != want {
		t.Errorf("class got %q want %q", n, want)
	}
	wantRegions := []Region{
		{Index: 0, Addr: 0x93014000},
		{Index: 1, Addr: 0x93017000},
		{Index: 2, IO: true, Addr: 0x3040},
		{Index: 3, IO: true, Addr: 0x3048},
		{Index: 4, IO: true, Addr: 0x3020},
		{Index: 5, Addr: 0x93016000},
	}
	if diff := cmp.Diff(wantRegions, got.Regions()); diff != "" {
		t.Errorf("Regions mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeHeaderBridge(t *testing.T) {
	h := mustDecodeHeader(t, bridgeHeader)
	b, ok := h.(*BridgeConfig)
	if !ok {
		t.Fatalf("got %T want *BridgeConfig", h)
	}
	if b.Type() != Bridge || b.IsMultiFunction() {
		t.Errorf("got type %v multi-function %v", b.Type(), b.IsMultiFunction())
	}
	if b.PrimaryBus != 0x04 || b.SecondaryBus != 0x05 || b.SubordinateBus != 0x08 {
		t.Errorf("got buses %02x/%02x/%02x want 04/05/08",
			b.PrimaryBus, b.SecondaryBus, b.SubordinateBus)
	}
	if !b.Bist.Capable() || b.Bist.Running() || b.Bist.Code() != 0 {
		t.Errorf("BIST got %#x", uint8(b.Bist))
	}
	if b.CapPointer() != 0x40 {
		t.Errorf("CapPointer got %#x want 0x40", b.CapPointer())
	}
	want := []Window{
		{Kind: IOWindow, Base: 0xf000, Limit: 0x0fff, Wide: true},
		{Kind: MemoryWindow, Base: 0x92000000, Limit: 0x929fffff, Enabled: true},
		{Kind: PrefetchWindow, Base: 0x91000000, Limit: 0x91ffffff, Wide: true, Enabled: true},
	}
	if diff := cmp.Diff(want, b.Windows()); diff != "" {
		t.Errorf("Windows mismatch (-want +got):\n%s", diff)
	}
	if s, want := b.Memory().String(), "memory 92000000-929fffff [size=10M]"; s != want {
		t.Errorf("got %q want %q", s, want)
	}
	if s, want := b.BridgeControl.String(),
		"Parity+ SERR+ NoISA- VGA+ VGA16+ MAbort- >Reset- FastB2B- PriDiscTmr- SecDiscTmr- DiscTmrStat- DiscTmrSERREn-"; s != want {
		t.Errorf("BridgeControl got %q want %q", s, want)
	}
}

func TestBridgeWindowTypes(t *testing.T) {
	b := &BridgeConfig{
		IOBase:             0x21,
		IOLimit:            0x31,
		IOBaseUpper:        0x0001,
		IOLimitUpper:       0x0001,
		PrefetchBase:       0xe001,
		PrefetchLimit:      0xe081,
		PrefetchBaseUpper:  0x2,
		PrefetchLimitUpper: 0x2,
		MemoryBase:         0xe1a0,
		MemoryLimit:        0xe1a0,
	}
	io := b.IO()
	if io.Base != 0x12000 || io.Limit != 0x13fff || !io.Enabled || !io.Wide {
		t.Errorf("IO got %+v", io)
	}
	m := b.Memory()
	if m.Size() != 1<<20 || m.Base != 0xe1a00000 || m.Limit != 0xe1afffff {
		t.Errorf("Memory got %+v", m)
	}
	p := b.Prefetchable()
	if p.Base != 0x2e0000000 || p.Limit != 0x2e08fffff || p.Size() != 9<<20 {
		t.Errorf("Prefetchable got %+v", p)
	}
	b.PrefetchLimit = 0xe082
	if p = b.Prefetchable(); !p.Unknown {
		t.Errorf("mismatched range types not flagged: %+v", p)
	}
	b.MemoryBase, b.MemoryLimit = 0xe1b0, 0xe1a0
	if m = b.Memory(); m.Enabled || m.Size() != 0 {
		t.Errorf("base > limit enabled: %+v", m)
	}
}

func TestDecodeHeaderCardBus(t *testing.T) {
	h := mustDecodeHeader(t, cardBusHeader)
	c, ok := h.(*CardBusConfig)
	if !ok {
		t.Fatalf("got %T want *CardBusConfig", h)
	}
	if c.Type() != CardBus || !c.IsMultiFunction() {
		t.Errorf("got type %v multi-function %v", c.Type(), c.IsMultiFunction())
	}
	if c.PCIBus != 0x6d || c.CardBusBus != 0xba || c.SubordinateBus != 0xfe || c.CardBusLatency != 252 {
		t.Errorf("got buses %02x/%02x/%02x latency %d",
			c.PCIBus, c.CardBusBus, c.SubordinateBus, c.CardBusLatency)
	}
	if c.SocketBase != 0x35f88000 || c.CapPointer() != 0x80 {
		t.Errorf("got socket %v capabilities %#x", c.SocketBase, c.CapPointer())
	}
	if want := (DeviceID{Vendor: 0x3322, Device: 0x5544}); c.Subsystem != want {
		t.Errorf("Subsystem got %v want %v", c.Subsystem, want)
	}
	if c.LegacyBase != 0x3322 {
		t.Errorf("LegacyBase got %#x want 0x3322", c.LegacyBase)
	}
	want := []Window{
		{Kind: PrefetchWindow, Base: 0x11f54000, Limit: 0x22475fff, Enabled: true},
		{Kind: MemoryWindow, Base: 0x33853000, Limit: 0x44d0cfff, Enabled: true},
		{Kind: IOWindow, Base: 0x60, Limit: 0x73, Enabled: true},
		{Kind: IOWindow, Base: 0x60060, Limit: 0x70073, Wide: true, Enabled: true},
	}
	if diff := cmp.Diff(want, c.Windows()); diff != "" {
		t.Errorf("Windows mismatch (-want +got):\n%s", diff)
	}
	if s, want := c.CardBusControl.String(),
		"Parity+ SERR- ISA+ VGA- MAbort- >Reset+ 16bInt- PrefMem0+ PrefMem1- PostWrite+"; s != want {
		t.Errorf("BridgeCtl got %q want %q", s, want)
	}
}

func TestCardBusLegacyRegistersAbsent(t *testing.T) {
	h := mustDecodeHeader(t, cardBusHeader[:HeaderSize])
	c := h.(*CardBusConfig)
	if c.Subsystem != (DeviceID{}) || c.LegacyBase != 0 {
		t.Errorf("got %v %#x from a 64 byte header", c.Subsystem, c.LegacyBase)
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	for _, b := range [][]byte{normalHeader, bridgeHeader, cardBusHeader} {
		h := mustDecodeHeader(t, b)
		got, err := h.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, b[:HeaderSize]) {
			t.Errorf("%T round trip:\ngot  % x\nwant % x", h, got, b[:HeaderSize])
		}
	}
}

func TestDecodeHeaderUnknownType(t *testing.T) {
	b := append([]byte(nil), normalHeader...)
	b[0xe] = 0x85
	h := mustDecodeHeader(t, b)
	r, ok := h.(*RawConfig)
	if !ok {
		t.Fatalf("got %T want *RawConfig", h)
	}
	if r.Type() != 5 || !r.IsMultiFunction() {
		t.Errorf("got type %v multi-function %v", r.Type(), r.IsMultiFunction())
	}
	if err := Unsupported(h); !errors.Is(err, ErrUnsupportedVariant) {
		t.Errorf("Unsupported got %v want %v", err, ErrUnsupportedVariant)
	}
	if got, _ := h.MarshalBinary(); !bytes.Equal(got, b) {
		t.Errorf("round trip got % x", got)
	}
}

func TestDecodeHeaderTruncated(t *testing.T) {
	_, err := NewConfigSpace(normalHeader[:HeaderSize-1])
	var te *TruncatedError
	if !errors.As(err, &te) || te.Have != HeaderSize-1 || te.Need != HeaderSize {
		t.Fatalf("got %v want a truncated header error", err)
	}
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("%v is not ErrTruncated", err)
	}
	if _, err = DecodeHeader(ConfigSpace{}); !errors.Is(err, ErrTruncated) {
		t.Errorf("empty space got %v want %v", err, ErrTruncated)
	}
}
