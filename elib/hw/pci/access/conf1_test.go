// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package access

import (
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

func TestConf1Addr(t *testing.T) {
	g := NewWithT(t)
	g.Expect(conf1Addr(addr("00:00.0"), 0)).To(Equal(uint32(0x80000000)))
	g.Expect(conf1Addr(addr("af:1f.7"), 0x47)).To(Equal(uint32(0x80afff44)))
}

// A regular file stands in for /dev/port: every data read returns the
// four bytes at 0xcfc whatever address was selected.
func fakePort(t *testing.T) *Conf1 {
	b := make([]byte, 0x1000)
	copy(b[conf1Data:], []byte{0x86, 0x80, 0x30, 0x20})
	fn := filepath.Join(t.TempDir(), "port")
	writeFile(t, fn, b)
	c := NewConf1()
	c.Path = fn
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConf1ReadConfig(t *testing.T) {
	g := NewWithT(t)
	c := fakePort(t)

	b, err := c.ReadConfig(addr("03:00.0"), 0, 8)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(b).To(Equal([]byte{0x86, 0x80, 0x30, 0x20, 0x86, 0x80, 0x30, 0x20}))

	b, err = c.ReadConfig(addr("03:00.0"), 2, 4)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(b).To(Equal([]byte{0x30, 0x20, 0x86, 0x80}))

	b, err = c.ReadConfig(addr("03:00.0"), 0, pci.ConfigSize)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(b).To(HaveLen(pci.LegacyConfigSize))

	_, err = c.ReadConfig(addr("0001:03:00.0"), 0, 4)
	g.Expect(err).To(HaveOccurred())
}

func TestConf1Devices(t *testing.T) {
	g := NewWithT(t)
	addrs, err := fakePort(t).Devices()
	g.Expect(err).NotTo(HaveOccurred())
	// Every slot answers and none is multi-function.
	g.Expect(addrs).To(HaveLen(256 * 32))
	g.Expect(addrs[33]).To(Equal(addr("01:01.0")))
}
