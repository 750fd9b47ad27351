// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package device decodes one function's configuration space as a whole:
// header, both capability chains, and each capability record.
//
// Failures below the header are isolated. A malformed chain ends that
// chain with a diagnostic; a capability that fails to decode keeps its
// raw record and carries the error. Only a header failure fails the
// device.
package device

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/platinasystems/log"

	"github.com/platinasystems/pcitool/elib/hw/pci"
	"github.com/platinasystems/pcitool/elib/hw/pci/access"
	"github.com/platinasystems/pcitool/elib/hw/pcie"
)

// Options select behavior the caller must choose explicitly.
type Options struct {
	Compat pci.Compat
}

// Capability is one record of either chain with its decoded value. Value
// is nil when Err is set.
type Capability struct {
	pci.RawCapability
	Value pci.Decoded
	Err   error
}

func (c *Capability) String() string {
	if c.Err != nil {
		return fmt.Sprintf("%v <error: %v>", &c.RawCapability, c.Err)
	}
	if s, ok := c.Value.(fmt.Stringer); ok {
		return fmt.Sprintf("[%03x] %s", c.Offset, s)
	}
	return c.RawCapability.String()
}

type Device struct {
	Addr   pci.BusAddress
	Config pci.ConfigSpace
	Header pci.Header
	// Both chains, ordered by offset; legacy records come first.
	Capabilities []Capability
	// Malformed chains and unsupported variants.
	Diagnostics []error
}

func (d *Device) String() string {
	c := d.Header.Common()
	return fmt.Sprintf("%v %s: %v", d.Addr, c.DeviceClass.Name(), c.DeviceID)
}

// Errors lists the diagnostics followed by each capability's error.
func (d *Device) Errors() []error {
	errs := append([]error(nil), d.Diagnostics...)
	for i := range d.Capabilities {
		if err := d.Capabilities[i].Err; err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Find returns the first capability with key k.
func (d *Device) Find(k pci.Key) (*Capability, bool) {
	for i := range d.Capabilities {
		if d.Capabilities[i].Key() == k {
			return &d.Capabilities[i], true
		}
	}
	return nil, false
}

// Express returns the decoded PCI Express capability, if any.
func (d *Device) Express() (*pcie.Express, bool) {
	c, ok := d.Find(pci.Key{ID: uint16(pci.PCIE)})
	if !ok {
		return nil, false
	}
	e, ok := c.Value.(*pcie.Express)
	return e, ok
}

// Bridge returns the bridge header, if this is a bridge.
func (d *Device) Bridge() (*pci.BridgeConfig, bool) {
	b, ok := d.Header.(*pci.BridgeConfig)
	return b, ok
}

// Express capability versions the decoder knows.
const (
	expressMinVersion = 1
	expressMaxVersion = 2
)

// hints carry what an extended capability decoder needs to know about the
// function that only the Express capability says.
type hints struct {
	rootPort bool
	lanes    int
}

// Decode decodes cs. The returned error is the header's; everything else is
// in the Device.
func Decode(addr pci.BusAddress, cs pci.ConfigSpace, opts Options) (*Device, error) {
	h, err := pci.DecodeHeader(cs)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", addr, err)
	}
	d := &Device{
		Addr:   addr,
		Config: cs,
		Header: h,
	}
	if err = pci.Unsupported(h); err != nil {
		d.Diagnostics = append(d.Diagnostics, err)
	}
	var hs hints
	d.walk(pci.NewWalker(cs, false), &hs, opts)
	if cs.IsExtended() {
		d.walk(pci.NewWalker(cs, true), &hs, opts)
	}
	sort.SliceStable(d.Capabilities, func(i, j int) bool {
		return d.Capabilities[i].Offset < d.Capabilities[j].Offset
	})
	for _, err := range d.Diagnostics {
		log.Print("debug", addr, ": ", err)
	}
	return d, nil
}

func (d *Device) walk(w *pci.Walker, hs *hints, opts Options) {
	for w.Next() {
		c := Capability{RawCapability: w.Capability()}
		c.Value, c.Err = d.decode(&c.RawCapability, hs, opts)
		if c.Err != nil {
			c.Value = nil
		}
		d.Capabilities = append(d.Capabilities, c)
	}
	if err := w.Err(); err != nil {
		d.Diagnostics = append(d.Diagnostics, err)
	}
}

func (d *Device) decode(r *pci.RawCapability, hs *hints, opts Options) (pci.Decoded, error) {
	if r.Extended {
		return decodeExtended(r, hs, opts)
	}
	switch pci.Capability(r.ID) {
	case pci.PowerManagement:
		return pci.DecodePowerManagement(r, opts.Compat)
	case pci.MSI:
		return pci.DecodeMSI(r)
	case pci.MSIX:
		return pci.DecodeMSIX(r)
	case pci.VendorSpecific:
		return pci.DecodeVendorSpecific(r)
	case pci.SSVID:
		return pci.DecodeSubsystemID(r)
	case pci.PCIE:
		e, err := pcie.DecodeExpress(r)
		if err != nil {
			return nil, err
		}
		if e.Version < expressMinVersion || e.Version > expressMaxVersion {
			d.Diagnostics = append(d.Diagnostics, &pci.UnsupportedError{
				What:  fmt.Sprintf("express capability at 0x%02x version", r.Offset),
				Value: uint(e.Version),
			})
			return pci.DecodeOpaque(r), nil
		}
		hs.rootPort = e.Type.HasRoot()
		if e.Link != nil {
			hs.lanes = int(e.Link.Capabilities.Width())
		}
		return e, nil
	}
	return pci.DecodeOpaque(r), nil
}

func decodeExtended(r *pci.RawCapability, hs *hints, opts Options) (pci.Decoded, error) {
	switch pci.ExtCapability(r.ID) {
	case pci.AdvancedErrorReporting:
		return pcie.DecodeAER(r, hs.rootPort)
	case pci.AccessControlServices:
		return pcie.DecodeACS(r)
	case pci.SecondaryPCIeCapability:
		return pcie.DecodeSecondaryPCIe(r, hs.lanes)
	case pci.DeviceSerialNumber:
		return pcie.DecodeSerialNumber(r)
	case pci.AlternateRoutingID:
		return pcie.DecodeARI(r)
	case pci.LatencyToleranceReporting:
		return pcie.DecodeLTR(r)
	case pci.SingleRootIOVirtualization:
		return pcie.DecodeSRIOV(r)
	case pci.RootComplexLinkDeclaration:
		return pcie.DecodeRCLink(r, opts.Compat)
	case pci.ExtVendorSpecific:
		return pcie.DecodeVSEC(r)
	}
	return pci.DecodeOpaque(r), nil
}

// ReadAndDecode reads addr's configuration space from src and decodes it.
func ReadAndDecode(src access.Source, addr pci.BusAddress, opts Options) (*Device, error) {
	cs, err := access.ReadConfigSpace(src, addr)
	if err != nil {
		var se *pci.SourceError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %w", addr, err)
	}
	return Decode(addr, cs, opts)
}

// DecodeAll decodes each of addrs concurrently. Devices that fail are
// left out of the result, which keeps the order of addrs; their errors
// are joined.
func DecodeAll(src access.Source, addrs []pci.BusAddress, opts Options) ([]*Device, error) {
	var wg sync.WaitGroup
	devs := make([]*Device, len(addrs))
	errs := make([]error, len(addrs))
	for i := range addrs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			devs[i], errs[i] = ReadAndDecode(src, addrs[i], opts)
		}(i)
	}
	wg.Wait()
	ok := devs[:0]
	for i, d := range devs {
		if errs[i] != nil {
			log.Print("daemon", "err", addrs[i], ": ", errs[i])
			continue
		}
		ok = append(ok, d)
	}
	return ok, errors.Join(errs...)
}

// Scan decodes every function src lists.
func Scan(src access.Source, opts Options) ([]*Device, error) {
	addrs, err := src.Devices()
	if err != nil {
		return nil, err
	}
	return DecodeAll(src, addrs, opts)
}
