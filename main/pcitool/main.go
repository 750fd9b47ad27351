// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This is the pcitool multi-call program. Run it as "pcitool COMMAND" or
// through a link named for the command, e.g. lspci -> pcitool.
package main

import (
	"github.com/platinasystems/pcitool/cmd/lspci"
	"github.com/platinasystems/pcitool/cmd/pcimetricsd"
	"github.com/platinasystems/pcitool/goes"
	"github.com/platinasystems/pcitool/goes/builtin"
)

func Goes() goes.ByName {
	g := make(goes.ByName)
	g.Plot(builtin.New()...)
	g.Plot(lspci.New(), pcimetricsd.New())
	return g
}

func main() {
	Goes().Main()
}
