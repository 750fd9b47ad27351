// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testSpace returns an n byte normal header with the capability list bit
// set and the legacy chain anchored at first.
func testSpace(n int, first uint8) []byte {
	b := make([]byte, n)
	copy(b, normalHeader)
	put16(b[0x06:], uint16(StatusCapabilities))
	b[legacyAnchor] = first
	return b
}

func putCap(b []byte, o int, id Capability, next uint8) {
	b[o], b[o+1] = uint8(id), next
}

func putExtCap(b []byte, o int, id ExtCapability, version uint8, next uint16) {
	put32(b[o:], uint32(id)|uint32(version)<<16|uint32(next)<<20)
}

func mustSpace(t *testing.T, b []byte) ConfigSpace {
	t.Helper()
	cs, err := NewConfigSpace(b)
	if err != nil {
		t.Fatal(err)
	}
	return cs
}

type capAt struct {
	ID     uint16
	Offset uint16
	Len    int
}

func walk(cs ConfigSpace, extended bool) (got []capAt, err error) {
	w := NewWalker(cs, extended)
	for w.Next() {
		c := w.Capability()
		got = append(got, capAt{c.ID, c.Offset, len(c.Data)})
	}
	return got, w.Err()
}

func TestLegacyChain(t *testing.T) {
	b := testSpace(LegacyConfigSize, 0x40)
	putCap(b, 0x40, PowerManagement, 0x50)
	putCap(b, 0x50, MSI, 0x70)
	putCap(b, 0x70, PCIE, 0)
	got, err := walk(mustSpace(t, b), false)
	if err != nil {
		t.Fatal(err)
	}
	want := []capAt{
		{uint16(PowerManagement), 0x40, 0x10},
		{uint16(MSI), 0x50, 0x20},
		{uint16(PCIE), 0x70, 0x90},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
}

func TestLegacyChainMasksPointers(t *testing.T) {
	b := testSpace(LegacyConfigSize, 0x43)
	putCap(b, 0x40, PowerManagement, 0x53)
	putCap(b, 0x50, MSI, 0)
	got, err := walk(mustSpace(t, b), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Offset != 0x50 {
		t.Errorf("got %v", got)
	}
}

func TestLegacyChainMalformed(t *testing.T) {
	for _, x := range []struct {
		name  string
		setup func(b []byte)
		n     int
	}{
		{"self loop", func(b []byte) { putCap(b, 0x40, PowerManagement, 0x40) }, 1},
		{"backward loop", func(b []byte) {
			putCap(b, 0x40, PowerManagement, 0x50)
			putCap(b, 0x50, MSI, 0x40)
		}, 2},
		{"into header", func(b []byte) { putCap(b, 0x40, PowerManagement, 0x20) }, 1},
		{"broken", func(b []byte) {
			putCap(b, 0x40, PowerManagement, 0x50)
			putCap(b, 0x50, 0xff, 0xff)
		}, 1},
	} {
		b := testSpace(LegacyConfigSize, 0x40)
		x.setup(b)
		got, err := walk(mustSpace(t, b), false)
		if !errors.Is(err, ErrMalformedChain) {
			t.Errorf("%s: got err %v want %v", x.name, err, ErrMalformedChain)
		}
		var ce *ChainError
		if errors.As(err, &ce) && ce.Extended {
			t.Errorf("%s: legacy chain error marked extended", x.name)
		}
		if len(got) != x.n {
			t.Errorf("%s: got %d capabilities want %d", x.name, len(got), x.n)
		}
	}
}

func TestLegacyChainAbsent(t *testing.T) {
	b := testSpace(LegacyConfigSize, 0x40)
	putCap(b, 0x40, PowerManagement, 0)
	put16(b[0x06:], 0)
	if got, err := walk(mustSpace(t, b), false); len(got) != 0 || err != nil {
		t.Errorf("status without capability list: got %v, %v", got, err)
	}
	b = testSpace(LegacyConfigSize, 0)
	if got, err := walk(mustSpace(t, b), false); len(got) != 0 || err != nil {
		t.Errorf("zero anchor: got %v, %v", got, err)
	}
}

func TestCardBusChainAnchor(t *testing.T) {
	b := make([]byte, LegacyConfigSize)
	copy(b, cardBusHeader)
	b[cardBusAnchor] = 0x80
	putCap(b, 0x80, PowerManagement, 0)
	got, err := walk(mustSpace(t, b), false)
	if err != nil || len(got) != 1 || got[0].Offset != 0x80 {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestTruncatedSpace(t *testing.T) {
	cs := mustSpace(t, testSpace(HeaderSize, 0x40))
	if got, _ := walk(cs, true); len(got) != 0 {
		t.Errorf("extended capabilities from a 64 byte space: %v", got)
	}
	got, err := walk(cs, false)
	if len(got) != 0 {
		t.Errorf("legacy capabilities from a 64 byte space: %v", got)
	}
	if err != nil && !errors.Is(err, ErrMalformedChain) {
		t.Errorf("got %v", err)
	}
	if _, err = DecodeHeader(cs); err != nil {
		t.Error(err)
	}
}

func TestExtendedChain(t *testing.T) {
	b := testSpace(ConfigSize, 0)
	putExtCap(b, 0x100, AdvancedErrorReporting, 2, 0x148)
	putExtCap(b, 0x148, AccessControlServices, 1, 0x110)
	putExtCap(b, 0x110, ExtVendorSpecific, 1, 0)
	cs := mustSpace(t, b)
	got, err := walk(cs, true)
	if err != nil {
		t.Fatal(err)
	}
	want := []capAt{
		{uint16(AdvancedErrorReporting), 0x100, 0x48},
		{uint16(AccessControlServices), 0x148, ConfigSize - 0x148},
		{uint16(ExtVendorSpecific), 0x110, ConfigSize - 0x110},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("walk mismatch (-want +got):\n%s", diff)
	}
	caps, err := ExtCapabilities(cs)
	if err != nil || len(caps) != 3 {
		t.Fatalf("got %d, %v", len(caps), err)
	}
	if caps[0].Version != 2 || caps[0].Next != 0x148 || !caps[0].Extended {
		t.Errorf("got %+v", caps[0])
	}
}

func TestExtendedChainEmpty(t *testing.T) {
	for _, h := range []uint32{0, 0xffffffff} {
		b := testSpace(ConfigSize, 0)
		put32(b[0x100:], h)
		if got, err := walk(mustSpace(t, b), true); len(got) != 0 || err != nil {
			t.Errorf("header %08x: got %v, %v", h, got, err)
		}
	}
}

func TestExtendedChainMalformed(t *testing.T) {
	for _, x := range []struct {
		name  string
		setup func(b []byte)
		n     int
	}{
		{"into legacy space", func(b []byte) { putExtCap(b, 0x100, AdvancedErrorReporting, 1, 0x0fc) }, 1},
		{"self loop", func(b []byte) { putExtCap(b, 0x100, AdvancedErrorReporting, 1, 0x100) }, 1},
		{"cycle", func(b []byte) {
			putExtCap(b, 0x100, AdvancedErrorReporting, 1, 0x200)
			putExtCap(b, 0x200, AccessControlServices, 1, 0x300)
			putExtCap(b, 0x300, DeviceSerialNumber, 1, 0x200)
		}, 3},
		{"null header", func(b []byte) { putExtCap(b, 0x100, AdvancedErrorReporting, 1, 0x200) }, 1},
	} {
		b := testSpace(ConfigSize, 0)
		x.setup(b)
		got, err := walk(mustSpace(t, b), true)
		var ce *ChainError
		if !errors.As(err, &ce) || !ce.Extended {
			t.Errorf("%s: got err %v want an extended chain error", x.name, err)
		}
		if len(got) != x.n {
			t.Errorf("%s: got %d capabilities want %d", x.name, len(got), x.n)
		}
	}
}

func TestExtendedChainPastEnd(t *testing.T) {
	b := testSpace(0x180, 0)
	putExtCap(b, 0x100, AdvancedErrorReporting, 1, 0x400)
	got, err := walk(mustSpace(t, b), true)
	if len(got) != 1 || got[0].Len != 0x80 || !errors.Is(err, ErrMalformedChain) {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestWalkerIsIdempotent(t *testing.T) {
	b := testSpace(ConfigSize, 0x40)
	putCap(b, 0x40, PowerManagement, 0x50)
	putCap(b, 0x50, MSI, 0)
	putExtCap(b, 0x100, AdvancedErrorReporting, 1, 0x140)
	putExtCap(b, 0x140, AccessControlServices, 1, 0)
	cs := mustSpace(t, b)
	for _, extended := range []bool{false, true} {
		first, err1 := walk(cs, extended)
		second, err2 := walk(cs, extended)
		if diff := cmp.Diff(first, second); diff != "" || err1 != err2 {
			t.Errorf("extended %v: walks differ:\n%s", extended, diff)
		}
	}
}

// Every next pointer is random; the walk must still end within the step
// bounds and never yield an offset twice.
func TestWalkerTerminates(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		n := HeaderSize + r.Intn(ConfigSize-HeaderSize+1)
		b := make([]byte, n)
		r.Read(b)
		b[0x06] |= uint8(StatusCapabilities)
		cs := mustSpace(t, b)
		for _, x := range []struct {
			extended bool
			max      int
		}{{false, (LegacyConfigSize - HeaderSize) / legacyHeaderSize}, {true, n / extHeaderSize}} {
			got, _ := walk(cs, x.extended)
			if len(got) > x.max {
				t.Fatalf("%d byte space, extended %v: %d capabilities", n, x.extended, len(got))
			}
			seen := make(map[uint16]bool)
			for _, c := range got {
				if seen[c.Offset] {
					t.Fatalf("offset %#x yielded twice", c.Offset)
				}
				seen[c.Offset] = true
			}
		}
	}
}

func TestForeachCap(t *testing.T) {
	b := testSpace(LegacyConfigSize, 0x40)
	putCap(b, 0x40, PowerManagement, 0x50)
	putCap(b, 0x50, MSI, 0x60)
	putCap(b, 0x60, MSIX, 0x60)
	cs := mustSpace(t, b)

	var ids []uint16
	err := ForeachCap(cs, func(c *RawCapability) (done bool, err error) {
		ids = append(ids, c.ID)
		return c.ID == uint16(MSI), nil
	})
	if err != nil || len(ids) != 2 {
		t.Errorf("stopped walk: got %v, %v", ids, err)
	}
	if err = ForeachCap(cs, func(*RawCapability) (bool, error) { return false, nil }); !errors.Is(err, ErrMalformedChain) {
		t.Errorf("full walk: got %v want %v", err, ErrMalformedChain)
	}
	stop := errors.New("stop")
	if err = ForeachCap(cs, func(*RawCapability) (bool, error) { return false, stop }); err != stop {
		t.Errorf("got %v want %v", err, stop)
	}
	c, found := FindCap(cs, MSI)
	if !found || c.Offset != 0x50 {
		t.Errorf("FindCap got %v, %v", c, found)
	}
	if _, found = FindExtCap(cs, AdvancedErrorReporting); found {
		t.Error("FindExtCap found a capability in a legacy space")
	}
}

func TestRawCapabilityReads(t *testing.T) {
	r := &RawCapability{Data: []byte{1, 2, 3, 4, 5}}
	if r.U8(4) != 5 || r.U8(5) != 0 {
		t.Errorf("U8 got %d %d", r.U8(4), r.U8(5))
	}
	if r.U16(3) != 0x0504 || r.U16(4) != 0 {
		t.Errorf("U16 got %#x %#x", r.U16(3), r.U16(4))
	}
	if r.U32(0) != 0x04030201 || r.U32(2) != 0 {
		t.Errorf("U32 got %#x %#x", r.U32(0), r.U32(2))
	}
}
