// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pcimetricsd

import (
	"io/ioutil"
	"net"
	"net/http"
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

const dump = "../../elib/hw/pci/device/testdata/lspci.txt"

func start(t *testing.T, args ...string) (*Command, <-chan error) {
	c := New()
	errc := make(chan error, 1)
	go func() { errc <- c.Main(args...) }()
	addrc := make(chan net.Addr, 1)
	go func() { addrc <- c.Addr() }()
	select {
	case <-addrc:
	case err := <-errc:
		t.Fatal("exited before serving: ", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout")
	}
	return c, errc
}

func scrape(t *testing.T, c *Command) string {
	resp, err := http.Get("http://" + c.Addr().String() + MetricsPath)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %s want 200", resp.Status)
	}
	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestServe(t *testing.T) {
	g := NewWithT(t)
	c, errc := start(t, "-listen", "127.0.0.1:0", "-F", dump)

	body := scrape(t, c)
	g.Expect(body).To(ContainSubstring("pci_devices 3\n"))
	g.Expect(body).To(ContainSubstring(`pci_link_width_lanes{device="0000:00:03.0",id="8086:2030"} 4`))
	g.Expect(body).To(ContainSubstring(`pci_aer_uncorrectable_fatal{device="0000:00:03.0",error="CmpltAbrt"} 1`))
	g.Expect(body).NotTo(ContainSubstring("go_goroutines"))

	g.Expect(c.Close()).To(Succeed())
	g.Eventually(errc, 10*time.Second).Should(Receive(BeNil()))
	g.Expect(c.Close()).To(Succeed())
}

func TestServeRuntime(t *testing.T) {
	g := NewWithT(t)
	c, errc := start(t, "-go", "-listen", "127.0.0.1:0", "-F", dump)
	g.Expect(scrape(t, c)).To(ContainSubstring("go_goroutines"))
	g.Expect(c.Close()).To(Succeed())
	g.Eventually(errc, 10*time.Second).Should(Receive(BeNil()))
}

func TestArgs(t *testing.T) {
	g := NewWithT(t)
	g.Expect(New().Main("bogus")).To(MatchError(ContainSubstring("unexpected")))
	g.Expect(New().Main("-A", "dump")).To(HaveOccurred())
	g.Expect(New().Main("-listen", "bad address", "-F", dump)).To(HaveOccurred())
}
