// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package access

// Linux sysfs PCI access

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/platinasystems/log"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

var SysBusPciPath string = "/sys/bus/pci/devices"

// Sysfs reads config files under a /sys/bus/pci/devices style tree.
// Unprivileged readers get only the first 64 bytes of each file; that
// becomes the declared length.
type Sysfs struct {
	Root string
}

func NewSysfs() *Sysfs { return &Sysfs{Root: SysBusPciPath} }

func (s *Sysfs) Path(addr pci.BusAddress, format string, args ...interface{}) (path string) {
	path = filepath.Join(s.Root, addr.String(), fmt.Sprintf(format, args...))
	return
}

func (s *Sysfs) ReadHexFile(addr pci.BusAddress, name string) (v uint, err error) {
	f, err := os.Open(s.Path(addr, name))
	if err != nil {
		return
	}
	defer f.Close()
	var n int
	if n, err = fmt.Fscanf(f, "0x%x", &v); n != 1 && err == nil {
		err = fmt.Errorf("short read")
	}
	if err != nil {
		err = errors.Wrapf(err, "%s: %s", addr, name)
	}
	return
}

// Devices lists the tree's entries. A missing tree has no devices.
func (s *Sysfs) Devices() (addrs []pci.BusAddress, err error) {
	fis, err := ioutil.ReadDir(s.Root)
	if perr, ok := err.(*os.PathError); ok && perr.Err == syscall.ENOENT {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "sysfs")
	}
	for _, fi := range fis {
		a, perr := pci.ParseBusAddress(fi.Name())
		if perr != nil {
			log.Print("daemon", "warn", "sysfs: skip ", fi.Name())
			continue
		}
		addrs = append(addrs, a)
	}
	sortAddrs(addrs)
	return
}

func (s *Sysfs) ReadConfig(addr pci.BusAddress, off, n uint) ([]byte, error) {
	f, err := os.Open(s.Path(addr, "config"))
	if err != nil {
		return nil, errors.Wrap(err, "sysfs")
	}
	defer f.Close()
	return readAt(f, off, n)
}

// readAt reads until n bytes or end of file.
func readAt(r io.ReaderAt, off, n uint) ([]byte, error) {
	b := make([]byte, n)
	i, err := r.ReadAt(b, int64(off))
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read 0x%x", off)
	}
	return b[:i], nil
}

// Resource is one line of a sysfs resource file: a region as the kernel
// assigned it.
type Resource struct {
	Index uint32
	Base  uint64
	Size  uint64
	Flags uint64
}

// Resources parses addr's resource file. The kernel knows region sizes
// without probing the BARs.
func (s *Sysfs) Resources(addr pci.BusAddress) (rs []Resource, err error) {
	b, err := ioutil.ReadFile(s.Path(addr, "resource"))
	if err != nil {
		return nil, errors.Wrap(err, "sysfs")
	}
	r := bytes.NewReader(b)
	i := 0
	for r.Len() > 0 {
		var (
			v [3]uint64
			n int
		)
		if n, err = fmt.Fscanf(r, "0x%x 0x%x 0x%x\n", &v[0], &v[1], &v[2]); n != 3 || err != nil {
			if n != 3 {
				err = fmt.Errorf("short read")
			}
			return nil, errors.Wrapf(err, "%s: resource line %d", addr, i)
		}
		size := v[0]
		if v[0] != 0 {
			size = 1 + v[1] - v[0]
		}
		rs = append(rs, Resource{
			Index: uint32(i),
			Base:  v[0],
			Size:  size,
			Flags: v[2],
		})
		i++
	}
	return
}
