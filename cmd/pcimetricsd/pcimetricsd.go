// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pcimetricsd provides a daemon that serves decoded PCI link and
// error reporting state to prometheus.
package pcimetricsd

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinasystems/pcitool/elib/hw/pci"
	"github.com/platinasystems/pcitool/elib/hw/pci/access"
	"github.com/platinasystems/pcitool/elib/hw/pci/device"
	"github.com/platinasystems/pcitool/goes/lang"
	"github.com/platinasystems/pcitool/internal/pcimetrics"
)

const (
	Name          = "pcimetricsd"
	DefaultListen = ":9417"
	MetricsPath   = "/metrics"

	shutdownTimeout = 5 * time.Second
)

type Command struct {
	mu    sync.Mutex
	srv   *http.Server
	addr  net.Addr
	ready chan struct{}
}

func New() *Command { return &Command{ready: make(chan struct{})} }

func (*Command) String() string { return Name }

func (*Command) Usage() string {
	return `pcimetricsd [-go] [-pm-bridge] [-rclink-eltype] [-listen ADDR]
[-A METHOD] [-path PATH] [-F FILE]`
}

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "serve PCI link and error metrics",
	}
}

func (*Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Serve prometheus metrics of each PCI function's negotiated and
	maximum link speed and width, its advanced error reporting status
	and severity bits, and the number of decode diagnostics.
	Every scrape re-reads configuration space.

OPTIONS
	-go	also export Go runtime and process metrics
	-pm-bridge, -rclink-eltype
		compatibility decodings, as with lspci
	-listen ADDR
		address to serve on, default ` + DefaultListen + `
	-A METHOD, -path PATH, -F FILE
		configuration space access, as with lspci`,
	}
}

// Addr waits until the daemon is serving and returns its address.
func (c *Command) Addr() net.Addr {
	<-c.ready
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

func (c *Command) Main(args ...string) (err error) {
	flag, args := flags.New(args, "-go", "-pm-bridge", "-rclink-eltype")
	parm, args := parms.New(args, "-listen", "-A", "-path", "-F")
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	if c.ready == nil {
		c.ready = make(chan struct{})
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
	src, err := access.Open(method, path)
	if err != nil {
		return
	}
	if closer, ok := src.(io.Closer); ok {
		defer closer.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(pcimetrics.New(src, opts))
	if flag.ByName["-go"] {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
		ErrorLog:      errorLog{},
	}))

	listen := parm.ByName["-listen"]
	if len(listen) == 0 {
		listen = DefaultListen
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return
	}
	srv := &http.Server{Handler: mux}
	c.mu.Lock()
	c.srv, c.addr = srv, ln.Addr()
	c.mu.Unlock()
	close(c.ready)

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGTERM, os.Interrupt)
	defer signal.Stop(sigch)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigch:
			log.Print("daemon", "info", Name, ": ", sig)
			c.Close()
		case <-done:
		}
	}()

	log.Print("daemon", "info", Name, ": serving ", ln.Addr(), MetricsPath)
	if err = srv.Serve(ln); err == http.ErrServerClosed {
		err = nil
	}
	return
}

func (c *Command) Close() error {
	c.mu.Lock()
	srv := c.srv
	c.srv = nil
	c.mu.Unlock()
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// errorLog sends promhttp's errors to the daemon log.
type errorLog struct{}

func (errorLog) Println(v ...interface{}) {
	log.Print(append([]interface{}{"daemon", "err", Name, ": "}, v...)...)
}
