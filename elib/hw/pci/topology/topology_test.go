// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package topology

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/platinasystems/pcitool/elib/hw/pci"
	"github.com/platinasystems/pcitool/elib/hw/pci/access"
	"github.com/platinasystems/pcitool/elib/hw/pci/device"
)

func addr(s string) pci.BusAddress {
	a, err := pci.ParseBusAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func decode(t *testing.T, a string, b []byte) *device.Device {
	cs, err := pci.NewConfigSpace(b)
	if err != nil {
		t.Fatal(err)
	}
	d, err := device.Decode(addr(a), cs, device.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func endpoint(t *testing.T, a string) *device.Device {
	b := make([]byte, pci.HeaderSize)
	b[0], b[1] = 0x86, 0x80
	return decode(t, a, b)
}

func bridge(t *testing.T, a string, secondary, subordinate uint8) *device.Device {
	b := make([]byte, pci.HeaderSize)
	b[0], b[1] = 0x86, 0x80
	b[0xe] = byte(pci.Bridge)
	b[0x19], b[0x1a] = secondary, subordinate
	// memory window 0xe1a00000-0xe1afffff
	b[0x20], b[0x21], b[0x22], b[0x23] = 0xa0, 0xe1, 0xa0, 0xe1
	return decode(t, a, b)
}

func names(ns []*Node) (s []string) {
	for _, n := range ns {
		s = append(s, n.String())
	}
	return
}

// count returns how many times each function appears in the forest.
func count(f *Forest) map[pci.BusAddress]int {
	m := make(map[pci.BusAddress]int)
	f.Walk(func(n *Node, depth int) {
		if !n.Synthetic {
			m[n.Addr]++
		}
	})
	return m
}

func TestBuild(t *testing.T) {
	g := NewWithT(t)
	f := Build([]*device.Device{
		endpoint(t, "af:00.1"),
		bridge(t, "00:03.0", 0xaf, 0xaf),
		endpoint(t, "00:00.0"),
		endpoint(t, "af:00.0"),
		endpoint(t, "3b:00.0"),
	})
	g.Expect(f.Len()).To(Equal(5))
	g.Expect(names(f.Roots)).To(Equal([]string{"0000:00:00.0", "0000:00:03.0", "[0000:3b]"}))

	rp, ok := f.Find(addr("00:03.0"))
	g.Expect(ok).To(BeTrue())
	g.Expect(rp.IsBridge()).To(BeTrue())
	g.Expect(rp.Secondary).To(Equal(uint8(0xaf)))
	g.Expect(names(rp.Children)).To(Equal([]string{"0000:af:00.0", "0000:af:00.1"}))
	g.Expect(rp.Windows).To(HaveLen(3))
	g.Expect(rp.Windows[1].Kind).To(Equal(pci.MemoryWindow))
	g.Expect(rp.Windows[1].Size()).To(Equal(uint64(1 << 20)))

	ep, _ := f.Find(addr("af:00.1"))
	g.Expect(ep.Parent).To(BeIdenticalTo(rp))
	g.Expect(ep.Depth()).To(Equal(1))
	g.Expect(ep.IsBridge()).To(BeFalse())
	g.Expect(ep.Windows).To(BeNil())

	orphan, _ := f.Find(addr("3b:00.0"))
	g.Expect(orphan.Parent.Synthetic).To(BeTrue())
	g.Expect(orphan.Parent.Device).To(BeNil())

	for a, n := range count(f) {
		g.Expect(n).To(Equal(1), a.String())
	}
}

func TestFirstClaimWins(t *testing.T) {
	g := NewWithT(t)
	f := Build([]*device.Device{
		bridge(t, "00:02.0", 1, 1),
		bridge(t, "00:01.0", 1, 1),
		endpoint(t, "01:00.0"),
	})
	n, _ := f.Find(addr("01:00.0"))
	g.Expect(n.Parent.Addr).To(Equal(addr("00:01.0")))
	other, _ := f.Find(addr("00:02.0"))
	g.Expect(other.Children).To(BeEmpty())
}

func TestSelfParent(t *testing.T) {
	g := NewWithT(t)
	f := Build([]*device.Device{
		bridge(t, "02:00.0", 2, 2),
		endpoint(t, "02:01.0"),
	})
	g.Expect(names(f.Roots)).To(Equal([]string{"[0000:02]"}))
	g.Expect(names(f.Roots[0].Children)).To(Equal([]string{"0000:02:00.0", "0000:02:01.0"}))
}

func TestCycle(t *testing.T) {
	g := NewWithT(t)
	f := Build([]*device.Device{
		bridge(t, "01:00.0", 2, 2),
		bridge(t, "02:00.0", 1, 1),
		endpoint(t, "0001:00:00.0"),
	})
	g.Expect(f.Len()).To(Equal(3))
	a, _ := f.Find(addr("01:00.0"))
	b, _ := f.Find(addr("02:00.0"))
	g.Expect(a.Parent).To(BeIdenticalTo(b))
	g.Expect(b.Parent.Synthetic).To(BeTrue())
	g.Expect(names(f.Roots)).To(Equal([]string{"[0000:02]", "0001:00:00.0"}))

	m := count(f)
	g.Expect(m).To(HaveLen(3))
	for a, n := range m {
		g.Expect(n).To(Equal(1), a.String())
	}
}

func TestDuplicatesAndNil(t *testing.T) {
	g := NewWithT(t)
	f := Build([]*device.Device{endpoint(t, "00:00.0"), nil, endpoint(t, "00:00.0")})
	g.Expect(f.Len()).To(Equal(1))
	g.Expect(f.Roots).To(HaveLen(1))
}

func TestBuildFromDump(t *testing.T) {
	g := NewWithT(t)
	src, err := access.OpenDump("../device/testdata/lspci.txt")
	g.Expect(err).NotTo(HaveOccurred())
	devs, err := device.Scan(src, device.Options{})
	g.Expect(err).NotTo(HaveOccurred())

	f := Build(devs)
	g.Expect(names(f.Roots)).To(Equal([]string{"0000:00:03.0"}))
	g.Expect(names(f.Roots[0].Children)).To(Equal([]string{"0000:af:00.0", "0000:af:00.1"}))

	var depths []int
	f.Walk(func(n *Node, depth int) { depths = append(depths, depth) })
	g.Expect(depths).To(Equal([]int{0, 1, 1}))
}
