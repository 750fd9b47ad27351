// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package help

import (
	"fmt"

	"github.com/platinasystems/pcitool/goes"
	"github.com/platinasystems/pcitool/goes/builtin/apropos"
	"github.com/platinasystems/pcitool/goes/lang"
)

const Name = "help"

type cmd goes.ByName

func New() *cmd { return new(cmd) }

func (*cmd) String() string { return Name }

func (*cmd) Usage() string {
	return "help [COMMAND [ARGS]...]\nCOMMAND -help [ARGS]..."
}

func (c *cmd) Complete(args ...string) []string {
	return goes.ByName(*c).Complete(args...)
}

func (c *cmd) ByName(byName goes.ByName) { *c = cmd(byName) }

func (c *cmd) Main(args ...string) error {
	byName := goes.ByName(*c)
	if len(args) == 0 {
		for _, k := range byName.Keys() {
			if g := byName[k]; g.Apropos != nil {
				apropos.Print(k, g.Apropos)
			}
		}
		return nil
	}
	g := byName[args[0]]
	if g == nil {
		return fmt.Errorf("%s: not found", args[0])
	}
	if g.Help != nil {
		fmt.Fprintln(goes.Stdout, g.Help(args[1:]...))
	} else {
		fmt.Fprint(goes.Stdout, goes.Text("usage:", g.Usage))
	}
	return nil
}

func (*cmd) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "print command guidance",
	}
}

func (*cmd) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `NAME
	help - print command guidance

SYNOPSIS
	help [COMMAND [ARGS]...]

DESCRIPTION
	Print context sensitive command help, if available; otherwise, print
	its usage page.

	Print all available apropos if no COMMAND is given.`,
	}
}
