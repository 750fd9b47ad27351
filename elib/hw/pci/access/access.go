// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package access fetches configuration space bytes. Each Source is one way
// of getting them: Linux sysfs or procfs, an lspci hex dump, Intel
// configuration mechanism #1 through /dev/port, or memory.
package access

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/platinasystems/pcitool/elib/hw/pci"
)

// Source is a supplier of configuration space bytes.
type Source interface {
	// Devices lists the functions the source can read, in bus order.
	Devices() ([]pci.BusAddress, error)
	// ReadConfig reads up to n bytes at offset off. A short read is not an
	// error; it means the function's configuration space ends there as
	// far as this source can tell.
	ReadConfig(addr pci.BusAddress, off, n uint) ([]byte, error)
}

// ReadConfigSpace reads a function's whole configuration space. Source
// failures come back as *pci.SourceError; fewer than 64 bytes is a
// *pci.TruncatedError.
func ReadConfigSpace(src Source, addr pci.BusAddress) (pci.ConfigSpace, error) {
	b, err := src.ReadConfig(addr, 0, pci.ConfigSize)
	if err != nil {
		return pci.ConfigSpace{}, &pci.SourceError{Addr: addr, Err: err}
	}
	return pci.NewConfigSpace(b)
}

// clip returns what a read of n bytes at off gets from b.
func clip(b []byte, off, n uint) []byte {
	if off >= uint(len(b)) {
		return nil
	}
	end := off + n
	if end > uint(len(b)) || end < off {
		end = uint(len(b))
	}
	return append([]byte(nil), b[off:end]...)
}

func sortAddrs(a []pci.BusAddress) {
	sort.Slice(a, func(i, j int) bool { return a[i].Less(a[j]) })
}

// ErrNoDevice is returned by sources asked for a function they don't have.
var ErrNoDevice = errors.New("no such device")

// Memory is a Source over configuration spaces held in memory.
type Memory struct {
	mu sync.RWMutex
	m  map[pci.BusAddress][]byte
}

func NewMemory() *Memory { return &Memory{m: make(map[pci.BusAddress][]byte)} }

// Add copies b as addr's configuration space.
func (m *Memory) Add(addr pci.BusAddress, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[addr] = append([]byte(nil), b...)
}

func (m *Memory) Devices() ([]pci.BusAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a := make([]pci.BusAddress, 0, len(m.m))
	for addr := range m.m {
		a = append(a, addr)
	}
	sortAddrs(a)
	return a, nil
}

func (m *Memory) ReadConfig(addr pci.BusAddress, off, n uint) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.m[addr]
	if !ok {
		return nil, errors.Wrap(ErrNoDevice, addr.String())
	}
	return clip(b, off, n), nil
}
