// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package access

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/platinasystems/log"
	"github.com/platinasystems/pcitool/elib/hw/pci"
)

var ProcBusPciPath string = "/proc/bus/pci"

// Procfs reads /proc/bus/pci. Its devices table has no domain column, so
// it only lists domain 0.
type Procfs struct {
	Root string
}

func NewProcfs() *Procfs { return &Procfs{Root: ProcBusPciPath} }

func (p *Procfs) Path(addr pci.BusAddress) string {
	dir := fmt.Sprintf("%02x", addr.Bus)
	if addr.Domain != 0 {
		dir = fmt.Sprintf("%04x:%02x", addr.Domain, addr.Bus)
	}
	return filepath.Join(p.Root, dir, fmt.Sprintf("%02x.%x", addr.Slot, addr.Fn))
}

// Devices parses the devices table. Each line starts with the bus and
// devfn as four hex digits.
func (p *Procfs) Devices() (addrs []pci.BusAddress, err error) {
	f, err := os.Open(filepath.Join(p.Root, "devices"))
	if perr, ok := err.(*os.PathError); ok && perr.Err == syscall.ENOENT {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "procfs")
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		var bdf uint
		if n, _ := fmt.Sscanf(s.Text(), "%4x", &bdf); n != 1 {
			log.Print("daemon", "warn", "procfs: skip ", s.Text())
			continue
		}
		addrs = append(addrs, pci.BusAddress{
			Bus:  uint8(bdf >> 8),
			Slot: uint8(bdf>>3) & 0x1f,
			Fn:   uint8(bdf) & 7,
		})
	}
	if err = s.Err(); err != nil {
		return nil, errors.Wrap(err, "procfs")
	}
	sortAddrs(addrs)
	return
}

func (p *Procfs) ReadConfig(addr pci.BusAddress, off, n uint) ([]byte, error) {
	f, err := os.Open(p.Path(addr))
	if err != nil {
		return nil, errors.Wrap(err, "procfs")
	}
	defer f.Close()
	return readAt(f, off, n)
}
