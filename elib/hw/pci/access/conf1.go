// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

package access

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

var DevPortPath string = "/dev/port"

// Intel configuration mechanism #1 ports.
const (
	conf1Address = 0xcf8
	conf1Data    = 0xcfc
	conf1Enable  = 1 << 31
	conf1Size    = pci.LegacyConfigSize
)

// Conf1 reads configuration space through the 0xcf8/0xcfc port pair. The
// address port is global to the machine, so every access holds mu.
// Only domain 0 and the first 256 bytes are reachable.
type Conf1 struct {
	Path string

	mu sync.Mutex
	fd int
}

func NewConf1() *Conf1 { return &Conf1{Path: DevPortPath, fd: -1} }

func openConf1(path string) (Source, error) {
	c := NewConf1()
	if path != "" {
		c.Path = path
	}
	return c, nil
}

func (c *Conf1) open() error {
	if c.fd >= 0 {
		return nil
	}
	fd, err := unix.Open(c.Path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return errors.Wrapf(err, "open %s", c.Path)
	}
	c.fd = fd
	return nil
}

func (c *Conf1) Close() (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fd >= 0 {
		err = unix.Close(c.fd)
		c.fd = -1
	}
	return
}

func conf1Addr(a pci.BusAddress, o uint) uint32 {
	return conf1Enable | uint32(a.Bus)<<16 | uint32(a.Slot&0x1f)<<11 |
		uint32(a.Fn&7)<<8 | uint32(o&0xfc)
}

// dword reads one aligned register. mu must be held.
func (c *Conf1) dword(a pci.BusAddress, o uint) (v uint32, err error) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], conf1Addr(a, o))
	if _, err = unix.Pwrite(c.fd, b[:], conf1Address); err != nil {
		return 0, errors.Wrapf(err, "%v: write 0x%x", a, conf1Address)
	}
	if _, err = unix.Pread(c.fd, b[:], conf1Data); err != nil {
		return 0, errors.Wrapf(err, "%v: read 0x%x", a, conf1Data)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (c *Conf1) ReadConfig(addr pci.BusAddress, off, n uint) ([]byte, error) {
	if addr.Domain != 0 {
		return nil, fmt.Errorf("%v: conf1 reaches domain 0 only", addr)
	}
	end := off + n
	if end > conf1Size || end < off {
		end = conf1Size
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.open(); err != nil {
		return nil, err
	}
	var b []byte
	for o := off &^ 3; o < end; o += 4 {
		v, err := c.dword(addr, o)
		if err != nil {
			return nil, err
		}
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], v)
		lo, hi := uint(0), uint(4)
		if o < off {
			lo = off - o
		}
		if o+4 > end {
			hi = end - o
		}
		b = append(b, w[lo:hi]...)
	}
	return b, nil
}

// Devices probes every bus, slot and function of domain 0. Functions
// past 0 are probed only on multi-function devices.
func (c *Conf1) Devices() (addrs []pci.BusAddress, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err = c.open(); err != nil {
		return
	}
	for bus := 0; bus < 256; bus++ {
		for slot := uint8(0); slot < 32; slot++ {
			for fn := uint8(0); fn < 8; fn++ {
				a := pci.BusAddress{Bus: uint8(bus), Slot: slot, Fn: fn}
				var id uint32
				if id, err = c.dword(a, 0); err != nil {
					return nil, err
				}
				if v := uint16(id); v == 0xffff || v == 0 {
					if fn == 0 {
						break
					}
					continue
				}
				addrs = append(addrs, a)
				if fn == 0 {
					var x uint32
					if x, err = c.dword(a, 0xc); err != nil {
						return nil, err
					}
					if x&(1<<23) == 0 {
						break
					}
				}
			}
		}
	}
	return
}
