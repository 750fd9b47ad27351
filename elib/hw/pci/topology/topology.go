// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package topology assembles decoded functions into the bus tree their
// bridges describe.
//
// A function's parent is the bridge whose secondary bus is the function's
// bus. Functions on bus 0 with no such bridge are roots. Any other
// function with no bridge for its bus hangs from a synthetic node standing
// in for the unknown parent, one per domain and bus, so each function is
// in the forest exactly once.
package topology

import (
	"fmt"
	"sort"

	"github.com/platinasystems/pcitool/elib/hw/pci"
	"github.com/platinasystems/pcitool/elib/hw/pci/device"
)

type Node struct {
	Addr pci.BusAddress
	// Nil for synthetic nodes.
	Device   *device.Device
	Parent   *Node
	Children []*Node
	// Synthetic nodes stand for the unknown bridge of bus Addr.Bus.
	Synthetic bool

	// Bridges only.
	Secondary, Subordinate uint8
	Windows                []pci.Window
}

func (n *Node) IsBridge() bool { return n.Device != nil && n.Windows != nil }

func (n *Node) String() string {
	if n.Synthetic {
		return fmt.Sprintf("[%04x:%02x]", n.Addr.Domain, n.Addr.Bus)
	}
	return n.Addr.String()
}

// Depth is the number of ancestors.
func (n *Node) Depth() (d int) {
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return
}

type Forest struct {
	Roots []*Node
	nodes map[pci.BusAddress]*Node
}

// Find returns the node of a decoded function.
func (f *Forest) Find(a pci.BusAddress) (*Node, bool) {
	n, ok := f.nodes[a]
	return n, ok
}

// Len is the number of decoded functions in the forest.
func (f *Forest) Len() int { return len(f.nodes) }

// Walk calls fn for each node depth first, parents before children.
func (f *Forest) Walk(fn func(n *Node, depth int)) {
	var walk func(ns []*Node, depth int)
	walk = func(ns []*Node, depth int) {
		for _, n := range ns {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(f.Roots, 0)
}

type busKey struct {
	domain uint16
	bus    uint8
}

func bridgeOf(d *device.Device) (secondary, subordinate uint8, ws []pci.Window, ok bool) {
	switch h := d.Header.(type) {
	case *pci.BridgeConfig:
		return h.SecondaryBus, h.SubordinateBus, h.Windows(), true
	case *pci.CardBusConfig:
		return h.CardBusBus, h.SubordinateBus, h.Windows(), true
	}
	return
}

// Build assembles devs. A bridge whose secondary bus is its own bus does
// not claim it. When two bridges claim a bus the first in address order
// wins. A parent link that would close a cycle is dropped and the
// function treated as orphaned.
func Build(devs []*device.Device) *Forest {
	f := &Forest{nodes: make(map[pci.BusAddress]*Node)}
	var ns []*Node
	for _, d := range devs {
		if d == nil {
			continue
		}
		if _, dup := f.nodes[d.Addr]; dup {
			continue
		}
		n := &Node{Addr: d.Addr, Device: d}
		if sec, sub, ws, ok := bridgeOf(d); ok {
			n.Secondary, n.Subordinate, n.Windows = sec, sub, ws
		}
		f.nodes[d.Addr] = n
		ns = append(ns, n)
	}
	sortNodes(ns)

	claims := make(map[busKey]*Node)
	for _, n := range ns {
		if !n.IsBridge() || n.Secondary == n.Addr.Bus {
			continue
		}
		k := busKey{n.Addr.Domain, n.Secondary}
		if _, taken := claims[k]; !taken {
			claims[k] = n
		}
	}

	for _, n := range ns {
		if p, ok := claims[busKey{n.Addr.Domain, n.Addr.Bus}]; ok && p != n && !ancestor(n, p) {
			n.Parent = p
		}
	}

	synthetic := make(map[busKey]*Node)
	for _, n := range ns {
		if n.Parent != nil {
			n.Parent.Children = append(n.Parent.Children, n)
			continue
		}
		if n.Addr.Bus == 0 {
			f.Roots = append(f.Roots, n)
			continue
		}
		k := busKey{n.Addr.Domain, n.Addr.Bus}
		s, ok := synthetic[k]
		if !ok {
			s = &Node{
				Addr:      pci.BusAddress{Domain: k.domain, Bus: k.bus},
				Synthetic: true,
			}
			synthetic[k] = s
			f.Roots = append(f.Roots, s)
		}
		n.Parent = s
		s.Children = append(s.Children, n)
	}

	sortNodes(f.Roots)
	for _, n := range ns {
		sortNodes(n.Children)
	}
	for _, s := range synthetic {
		sortNodes(s.Children)
	}
	return f
}

// ancestor reports whether n is p or above it.
func ancestor(n, p *Node) bool {
	for ; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

func sortNodes(ns []*Node) {
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].Addr.Less(ns[j].Addr) })
}
