// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package usage

import (
	"fmt"

	"github.com/platinasystems/pcitool/goes"
	"github.com/platinasystems/pcitool/goes/lang"
)

const Name = "usage"

type cmd goes.ByName

func New() *cmd { return new(cmd) }

func (*cmd) String() string { return Name }
func (*cmd) Usage() string  { return "usage COMMAND...\nCOMMAND -usage" }

func (c *cmd) ByName(byName goes.ByName) { *c = cmd(byName) }

func (c *cmd) Complete(args ...string) []string {
	var prefix string
	if len(args) > 0 {
		prefix = args[len(args)-1]
	}
	return goes.ByName(*c).Complete(prefix)
}

func (c *cmd) Main(args ...string) error {
	if len(args) == 0 {
		return fmt.Errorf("COMMAND: missing")
	}
	for _, arg := range args {
		g := goes.ByName(*c)[arg]
		if g == nil {
			return fmt.Errorf("%s: not found", arg)
		}
		fmt.Fprint(goes.Stdout, goes.Text("usage:", g.Usage))
	}
	return nil
}

func (*cmd) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "print a command synopsis",
	}
}
