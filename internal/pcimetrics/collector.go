// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pcimetrics exports decoded link and error reporting state as
// prometheus metrics. Every scrape re-reads the byte source.
package pcimetrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinasystems/log"
	"github.com/platinasystems/pcitool/elib/hw/pci"
	"github.com/platinasystems/pcitool/elib/hw/pci/access"
	"github.com/platinasystems/pcitool/elib/hw/pci/device"
	"github.com/platinasystems/pcitool/elib/hw/pcie"
)

const (
	namespace   = "pci"
	deviceLabel = "device"
	idLabel     = "id"
	errorLabel  = "error"
)

var (
	deviceLabels = []string{deviceLabel, idLabel}
	errorLabels  = []string{deviceLabel, errorLabel}
)

type Collector struct {
	src  access.Source
	opts device.Options

	devices     *prometheus.Desc
	failed      *prometheus.Desc
	diagnostics *prometheus.Desc
	linkSpeed   *prometheus.Desc
	linkWidth   *prometheus.Desc
	maxSpeed    *prometheus.Desc
	maxWidth    *prometheus.Desc
	ueStatus    *prometheus.Desc
	ueFatal     *prometheus.Desc
	ceStatus    *prometheus.Desc
}

func desc(name, help string, labels []string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
}

func New(src access.Source, opts device.Options) *Collector {
	return &Collector{
		src:         src,
		opts:        opts,
		devices:     desc("devices", "Number of functions decoded", nil),
		failed:      desc("decode_failures", "Number of functions whose header could not be decoded", nil),
		diagnostics: desc("decode_diagnostics", "Malformed chains, unsupported variants and failed capabilities", deviceLabels),
		linkSpeed:   desc("link_speed_mts", "Negotiated link speed in MT/s", deviceLabels),
		linkWidth:   desc("link_width_lanes", "Negotiated link width", deviceLabels),
		maxSpeed:    desc("link_max_speed_mts", "Maximum link speed in MT/s", deviceLabels),
		maxWidth:    desc("link_max_width_lanes", "Maximum link width", deviceLabels),
		ueStatus:    desc("aer_uncorrectable_status", "Uncorrectable error status bit", errorLabels),
		ueFatal:     desc("aer_uncorrectable_fatal", "Uncorrectable error severity bit", errorLabels),
		ceStatus:    desc("aer_correctable_status", "Correctable error status bit", errorLabels),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.devices,
		c.failed,
		c.diagnostics,
		c.linkSpeed,
		c.linkWidth,
		c.maxSpeed,
		c.maxWidth,
		c.ueStatus,
		c.ueFatal,
		c.ceStatus,
	} {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	addrs, err := c.src.Devices()
	if err != nil {
		log.Print("daemon", "err", "pcimetrics: ", err)
		ch <- prometheus.NewInvalidMetric(c.devices, err)
		return
	}
	devs, err := device.DecodeAll(c.src, addrs, c.opts)
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	gauge(c.devices, float64(len(devs)))
	gauge(c.failed, float64(len(addrs)-len(devs)))
	if err != nil {
		log.Print("daemon", "warn", "pcimetrics: ", err)
	}
	for _, d := range devs {
		name, id := d.Addr.String(), d.Header.Common().DeviceID.String()
		gauge(c.diagnostics, float64(len(d.Errors())), name, id)
		if e, ok := d.Express(); ok && e.Link != nil {
			gauge(c.linkSpeed, float64(e.Link.Status.Speed().MTs()), name, id)
			gauge(c.linkWidth, float64(e.Link.Status.Width()), name, id)
			gauge(c.maxSpeed, float64(e.Link.Capabilities.Speed().MTs()), name, id)
			gauge(c.maxWidth, float64(e.Link.Capabilities.Width()), name, id)
		}
		if r, ok := d.Find(pci.Key{Extended: true, ID: uint16(pci.AdvancedErrorReporting)}); ok {
			if a, ok := r.Value.(*pcie.AER); ok {
				c.aer(gauge, name, a)
			}
		}
	}
}

func (c *Collector) aer(gauge func(*prometheus.Desc, float64, ...string), name string, a *pcie.AER) {
	bit := func(x, m uint32) float64 {
		if x&m != 0 {
			return 1
		}
		return 0
	}
	for _, f := range pcie.UELayout.Fields {
		m := uint32(1) << f.Shift
		gauge(c.ueStatus, bit(uint32(a.UESta), m), name, f.Name)
		gauge(c.ueFatal, bit(uint32(a.UESvrt), m), name, f.Name)
	}
	for _, f := range pcie.CELayout.Fields {
		gauge(c.ceStatus, bit(uint32(a.CESta), uint32(1)<<f.Shift), name, f.Name)
	}
}
