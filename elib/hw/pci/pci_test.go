// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import (
	"errors"
	"testing"
)

func TestParseBusAddress(t *testing.T) {
	for _, x := range []struct {
		s    string
		want BusAddress
		ok   bool
	}{
		{"0000:00:1c.0", BusAddress{0, 0, 0x1c, 0}, true},
		{"af:00.1", BusAddress{0, 0xaf, 0, 1}, true},
		{"10000:00:00.0", BusAddress{}, false},
		{"00:20.0", BusAddress{}, false},
		{"00:1f.8", BusAddress{}, false},
		{"00:1f", BusAddress{}, false},
		{"x:00:00.0", BusAddress{}, false},
	} {
		got, err := ParseBusAddress(x.s)
		if (err == nil) != x.ok || got != x.want {
			t.Errorf("ParseBusAddress(%q) got %v, %v", x.s, got, err)
		}
		if x.ok && len(x.s) == 12 && got.String() != x.s {
			t.Errorf("String got %q want %q", got, x.s)
		}
	}
}

func TestBusAddressLess(t *testing.T) {
	a := []BusAddress{
		{0, 0, 0, 0},
		{0, 0, 0, 1},
		{0, 0, 1, 0},
		{0, 1, 0, 0},
		{1, 0, 0, 0},
	}
	for i := 1; i < len(a); i++ {
		if !a[i-1].Less(a[i]) || a[i].Less(a[i-1]) {
			t.Errorf("%v, %v out of order", a[i-1], a[i])
		}
	}
}

func TestConfigSpace(t *testing.T) {
	b := make([]byte, ConfigSize+16)
	b[0x100] = 0xaa
	cs, err := NewConfigSpace(b)
	if err != nil {
		t.Fatal(err)
	}
	if cs.Len() != ConfigSize || !cs.IsExtended() {
		t.Errorf("got len %d extended %v", cs.Len(), cs.IsExtended())
	}
	b[0x100] = 0
	if v, _ := cs.Uint8(0x100); v != 0xaa {
		t.Error("ConfigSpace shares its source buffer")
	}
	if _, err = cs.Uint32(ConfigSize - 2); !errors.Is(err, ErrTruncated) {
		t.Errorf("read past end got %v", err)
	}
	if _, err = cs.Window(ConfigSize-4, 8); !errors.Is(err, ErrTruncated) {
		t.Errorf("window past end got %v", err)
	}

	cs, _ = NewConfigSpace(b[:LegacyConfigSize])
	if cs.IsExtended() {
		t.Error("256 byte space is extended")
	}
	if _, err = cs.Uint16(LegacyConfigSize); !errors.Is(err, ErrTruncated) {
		t.Errorf("got %v", err)
	}
}
