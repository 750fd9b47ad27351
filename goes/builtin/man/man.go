// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package man

import (
	"fmt"
	"strings"

	"github.com/platinasystems/pcitool/goes"
	"github.com/platinasystems/pcitool/goes/lang"
)

const Name = "man"

type cmd goes.ByName

func New() *cmd { return new(cmd) }

func (*cmd) String() string { return Name }
func (*cmd) Usage() string  { return "man COMMAND...\nCOMMAND -man" }

func (c *cmd) ByName(byName goes.ByName) { *c = cmd(byName) }

func (c *cmd) Main(args ...string) error {
	n := len(args)
	if n == 0 {
		return fmt.Errorf("COMMAND: missing")
	}
	for i, arg := range args {
		g := goes.ByName(*c)[arg]
		if g == nil {
			return fmt.Errorf("%s: not found", arg)
		}
		if g.Man == nil {
			fmt.Fprint(goes.Stdout, arg, ": has no man\n")
			continue
		}
		fmt.Fprintln(goes.Stdout, strings.TrimLeft(g.Man.String(), "\n"))
		if n > 1 && i < n-1 {
			fmt.Fprintln(goes.Stdout)
		}
	}
	return nil
}

func (*cmd) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "print command documentation",
	}
}
