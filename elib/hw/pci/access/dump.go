// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package access

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Dump is a Source over the text of "lspci -x" (or -xxx, -xxxx). Each
// function is an address line followed by rows of the form
//
//	OFF: xx xx xx ...
//
// Rows must be contiguous from offset 0; where they stop is the
// function's declared length.
type Dump struct {
	addrs []pci.BusAddress
	m     map[pci.BusAddress][]byte
}

func OpenDump(fn string) (*Dump, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrap(err, "dump")
	}
	defer f.Close()
	d, err := ParseDump(f)
	return d, errors.Wrap(err, fn)
}

func ParseDump(r io.Reader) (*Dump, error) {
	d := &Dump{m: make(map[pci.BusAddress][]byte)}
	var (
		cur    pci.BusAddress
		have   bool
		lineNo int
	)
	s := bufio.NewScanner(r)
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if len(line) == 0 {
			have = false
			continue
		}
		f := strings.Fields(line)
		if strings.HasSuffix(f[0], ":") {
			if !have {
				return nil, errors.Errorf("line %d: row without address", lineNo)
			}
			o, err := strconv.ParseUint(strings.TrimSuffix(f[0], ":"), 16, 16)
			if err == nil {
				err = d.row(cur, uint(o), f[1:])
			}
			if err != nil {
				return nil, errors.Wrapf(err, "line %d", lineNo)
			}
			continue
		}
		a, err := pci.ParseBusAddress(f[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		if _, dup := d.m[a]; dup {
			return nil, errors.Errorf("line %d: %v: duplicate", lineNo, a)
		}
		cur, have = a, true
		d.addrs = append(d.addrs, a)
		d.m[a] = nil
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	sortAddrs(d.addrs)
	return d, nil
}

func (d *Dump) row(a pci.BusAddress, o uint, f []string) error {
	b := d.m[a]
	if o != uint(len(b)) {
		return errors.Errorf("%v: row 0x%x: expected 0x%x", a, o, len(b))
	}
	for _, x := range f {
		v, err := strconv.ParseUint(x, 16, 8)
		if err != nil {
			return errors.Wrapf(err, "%v: row 0x%x", a, o)
		}
		b = append(b, byte(v))
	}
	d.m[a] = b
	return nil
}

func (d *Dump) Devices() ([]pci.BusAddress, error) {
	return append([]pci.BusAddress(nil), d.addrs...), nil
}

func (d *Dump) ReadConfig(addr pci.BusAddress, off, n uint) ([]byte, error) {
	b, ok := d.m[addr]
	if !ok {
		return nil, errors.Wrap(ErrNoDevice, addr.String())
	}
	return clip(b, off, n), nil
}
