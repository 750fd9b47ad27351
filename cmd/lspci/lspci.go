// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lspci provides a command that lists PCI functions and their
// decoded configuration space.
package lspci

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"
	"gopkg.in/yaml.v3"

	"github.com/platinasystems/pcitool/elib"
	"github.com/platinasystems/pcitool/elib/hw/pci"
	"github.com/platinasystems/pcitool/elib/hw/pci/access"
	"github.com/platinasystems/pcitool/elib/hw/pci/device"
	"github.com/platinasystems/pcitool/elib/hw/pci/topology"
	"github.com/platinasystems/pcitool/goes/lang"
)

const Name = "lspci"

type Command struct {
	w   io.Writer
	src access.Source
}

func New() *Command { return &Command{w: os.Stdout} }

func (*Command) String() string { return Name }

func (*Command) Usage() string {
	return `lspci [-t] [-v] [-yaml] [-pm-bridge] [-rclink-eltype]
[-A METHOD] [-path PATH] [-F FILE] [-s [DOMAIN:]BUS:SLOT.FUNC]`
}

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "list PCI functions",
	}
}

func (*Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	List each PCI function with its class and vendor:device ID.

OPTIONS
	-t	show the bus tree that the bridges describe
	-v	show header, bridge windows and capabilities
	-yaml	print the decoded functions as YAML
	-pm-bridge
		take power management bridge bits from PMCSR
	-rclink-eltype
		read the RC link element type as 8 bits
	-A METHOD
		access method: linux-sysfs (default), linux-proc,
		intel-conf1 or dump
	-path PATH
		directory, port device or file of the access method
	-F FILE	read an lspci -x, -xxx or -xxxx dump
	-s ADDR	show only this function

EXAMPLES
	lspci -t
	lspci -v -s 00:03.0
	lspci -yaml -F lspci.txt`,
	}
}

func (c *Command) Main(args ...string) (err error) {
	flag, args := flags.New(args, "-t", "-v", "-yaml",
		"-pm-bridge", "-rclink-eltype")
	parm, args := parms.New(args, "-A", "-path", "-F", "-s")
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	if c.w == nil {
		c.w = os.Stdout
	}

	var opts device.Options
	if flag.ByName["-pm-bridge"] {
		opts.Compat |= pci.CompatPMBridge
	}
	if flag.ByName["-rclink-eltype"] {
		opts.Compat |= pci.CompatRCLinkElementType
	}

	method, path := parm.ByName["-A"], parm.ByName["-path"]
	if fn := parm.ByName["-F"]; len(fn) > 0 {
		method, path = access.DumpFile, fn
	}
	src := c.src
	if src == nil {
		if src, err = access.Open(method, path); err != nil {
			return
		}
		if closer, ok := src.(io.Closer); ok {
			defer closer.Close()
		}
	}

	addrs, err := src.Devices()
	if err != nil {
		return
	}
	if s := parm.ByName["-s"]; len(s) > 0 {
		a, err := pci.ParseBusAddress(s)
		if err != nil {
			return err
		}
		addrs = filter(addrs, a)
		if len(addrs) == 0 {
			return fmt.Errorf("%v: %w", a, access.ErrNoDevice)
		}
	}

	devs, err := device.DecodeAll(src, addrs, opts)
	verbose := flag.ByName["-v"]
	var res resourcer
	if s, ok := src.(*access.Sysfs); ok {
		res = s
	}
	switch {
	case flag.ByName["-yaml"]:
		if terr := c.yaml(devs, flag.ByName["-t"]); err == nil {
			err = terr
		}
	case flag.ByName["-t"]:
		c.tree(topology.Build(devs), verbose, res)
	default:
		for _, d := range devs {
			fmt.Fprintln(c.w, title(d))
			if verbose {
				c.verbose(d, "\t", res)
			}
		}
	}
	return
}

func filter(addrs []pci.BusAddress, a pci.BusAddress) []pci.BusAddress {
	for _, x := range addrs {
		if x == a {
			return []pci.BusAddress{a}
		}
	}
	return nil
}

func title(d *device.Device) string {
	s := d.String()
	if r := d.Header.Common().Revision; r != 0 {
		s += fmt.Sprintf(" (rev %02x)", r)
	}
	return s
}

type resourcer interface {
	Resources(pci.BusAddress) ([]access.Resource, error)
}

type regioner interface {
	Regions() []pci.Region
}

type liner interface {
	Lines() elib.Lines
}

// sizes maps region index to the size the kernel assigned.
func sizes(res resourcer, a pci.BusAddress) map[int]uint64 {
	if res == nil {
		return nil
	}
	rs, err := res.Resources(a)
	if err != nil {
		return nil
	}
	m := make(map[int]uint64)
	for _, r := range rs {
		if r.Size != 0 {
			m[int(r.Index)] = r.Size
		}
	}
	return m
}

func (c *Command) verbose(d *device.Device, indent string, res resourcer) {
	h := d.Header.Common()
	mf := ""
	if h.IsMultiFunction() {
		mf = ", multi-function"
	}
	fmt.Fprintf(c.w, "%sHeader: %v%s\n", indent, h.Type(), mf)
	fmt.Fprintf(c.w, "%sControl: %v\n", indent, h.Command)
	fmt.Fprintf(c.w, "%sStatus: %v\n", indent, h.Status)
	if r, ok := d.Header.(regioner); ok {
		sz := sizes(res, d.Addr)
		for _, x := range r.Regions() {
			if n, ok := sz[x.Index]; ok {
				fmt.Fprintf(c.w, "%s%v [size=%s]\n", indent, x, pci.SizeString(n))
			} else {
				fmt.Fprintf(c.w, "%s%v\n", indent, x)
			}
		}
	}
	switch b := d.Header.(type) {
	case *pci.BridgeConfig:
		fmt.Fprintf(c.w, "%sBus: primary=%02x, secondary=%02x, subordinate=%02x\n",
			indent, b.PrimaryBus, b.SecondaryBus, b.SubordinateBus)
		for _, w := range b.Windows() {
			fmt.Fprintf(c.w, "%sWindow: %v\n", indent, w)
		}
	case *pci.CardBusConfig:
		fmt.Fprintf(c.w, "%sBus: cardbus=%02x, subordinate=%02x\n",
			indent, b.CardBusBus, b.SubordinateBus)
		for _, w := range b.Windows() {
			fmt.Fprintf(c.w, "%sWindow: %v\n", indent, w)
		}
	}
	for i := range d.Capabilities {
		r := &d.Capabilities[i]
		fmt.Fprintf(c.w, "%sCapabilities: %v\n", indent, r)
		if l, ok := r.Value.(liner); ok && r.Err == nil {
			fmt.Fprint(c.w, prefix(l.Lines(), indent+"\t"))
		}
	}
	for _, err := range d.Diagnostics {
		fmt.Fprintf(c.w, "%sDiagnostic: %v\n", indent, err)
	}
}

func prefix(l elib.Lines, indent string) (s string) {
	for _, x := range l {
		s += indent + x + "\n"
	}
	return
}

type glyphs struct {
	tee, corner, pipe, space string
}

var (
	asciiGlyphs = glyphs{"+- ", "\\- ", "|  ", "   "}
	boxGlyphs   = glyphs{"├─ ", "└─ ", "│  ", "   "}
)

func (c *Command) glyphs() glyphs {
	if f, ok := c.w.(*os.File); ok {
		if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
			return boxGlyphs
		}
	}
	return asciiGlyphs
}

func nodeTitle(n *topology.Node) string {
	if n.Synthetic {
		return n.String()
	}
	return title(n.Device)
}

func (c *Command) tree(f *topology.Forest, verbose bool, res resourcer) {
	g := c.glyphs()
	var walk func(ns []*topology.Node, indent string)
	walk = func(ns []*topology.Node, indent string) {
		for i, n := range ns {
			branch, next := g.tee, g.pipe
			if i == len(ns)-1 {
				branch, next = g.corner, g.space
			}
			fmt.Fprint(c.w, indent, branch, nodeTitle(n), "\n")
			if verbose && !n.Synthetic {
				c.verbose(n.Device, indent+next+"  ", res)
			}
			walk(n.Children, indent+next)
		}
	}
	for _, r := range f.Roots {
		fmt.Fprintln(c.w, nodeTitle(r))
		if verbose && !r.Synthetic {
			c.verbose(r.Device, "  ", res)
		}
		walk(r.Children, "")
	}
}

// Function is the YAML form of a decoded function.
type Function struct {
	Address       string       `yaml:"address"`
	Synthetic     bool         `yaml:"synthetic,omitempty"`
	ID            string       `yaml:"id,omitempty"`
	Class         string       `yaml:"class,omitempty"`
	Revision      uint8        `yaml:"revision,omitempty"`
	Header        string       `yaml:"header,omitempty"`
	MultiFunction bool         `yaml:"multifunction,omitempty"`
	Regions       []pci.Region `yaml:"regions,omitempty"`
	Secondary     *uint8       `yaml:"secondary,omitempty"`
	Subordinate   *uint8       `yaml:"subordinate,omitempty"`
	Windows       []pci.Window `yaml:"windows,omitempty"`
	Capabilities  []Capability `yaml:"capabilities,omitempty"`
	Diagnostics   []string     `yaml:"diagnostics,omitempty"`
	Children      []*Function  `yaml:"children,omitempty"`
}

type Capability struct {
	Offset  uint16 `yaml:"offset"`
	Name    string `yaml:"name"`
	Version uint8  `yaml:"version,omitempty"`
	Length  int    `yaml:"length"`
	Value   string `yaml:"value,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

func newFunction(d *device.Device) *Function {
	h := d.Header.Common()
	f := &Function{
		Address:       d.Addr.String(),
		ID:            h.DeviceID.String(),
		Class:         h.DeviceClass.Name(),
		Revision:      h.Revision,
		Header:        h.Type().String(),
		MultiFunction: h.IsMultiFunction(),
	}
	if r, ok := d.Header.(regioner); ok {
		f.Regions = r.Regions()
	}
	switch b := d.Header.(type) {
	case *pci.BridgeConfig:
		f.Secondary, f.Subordinate = &b.SecondaryBus, &b.SubordinateBus
		f.Windows = b.Windows()
	case *pci.CardBusConfig:
		f.Secondary, f.Subordinate = &b.CardBusBus, &b.SubordinateBus
		f.Windows = b.Windows()
	}
	for i := range d.Capabilities {
		r := &d.Capabilities[i]
		x := Capability{
			Offset:  r.Offset,
			Name:    r.Key().String(),
			Version: r.Version,
			Length:  len(r.Data),
		}
		if r.Err != nil {
			x.Error = r.Err.Error()
		} else if s, ok := r.Value.(fmt.Stringer); ok {
			x.Value = s.String()
		}
		f.Capabilities = append(f.Capabilities, x)
	}
	for _, err := range d.Diagnostics {
		f.Diagnostics = append(f.Diagnostics, err.Error())
	}
	return f
}

func newTree(n *topology.Node) *Function {
	var f *Function
	if n.Synthetic {
		f = &Function{Address: n.String(), Synthetic: true}
	} else {
		f = newFunction(n.Device)
	}
	for _, x := range n.Children {
		f.Children = append(f.Children, newTree(x))
	}
	return f
}

func (c *Command) yaml(devs []*device.Device, tree bool) error {
	var fs []*Function
	if tree {
		for _, r := range topology.Build(devs).Roots {
			fs = append(fs, newTree(r))
		}
	} else {
		for _, d := range devs {
			fs = append(fs, newFunction(d))
		}
	}
	enc := yaml.NewEncoder(c.w)
	enc.SetIndent(2)
	if err := enc.Encode(fs); err != nil {
		return err
	}
	return enc.Close()
}
