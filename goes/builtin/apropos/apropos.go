// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package apropos

import (
	"fmt"

	"github.com/platinasystems/pcitool/goes"
	"github.com/platinasystems/pcitool/goes/lang"
)

const Name = "apropos"

type cmd goes.ByName

func New() *cmd { return new(cmd) }

func (*cmd) String() string { return Name }
func (*cmd) Usage() string  { return "apropos [COMMAND]...\nCOMMAND -apropos" }

func (c *cmd) ByName(byName goes.ByName) { *c = cmd(byName) }

func (c *cmd) Complete(args ...string) []string {
	return goes.ByName(*c).Complete(args...)
}

// Print formats one apropos line.
func Print(name string, apropos lang.Alt) {
	format := "%-15s %s\n"
	if len(name) >= 16 {
		format = "%s\n\t\t%s\n"
	}
	fmt.Fprintf(goes.Stdout, format, name, apropos)
}

func (c *cmd) Main(args ...string) error {
	byName := goes.ByName(*c)
	if len(args) == 0 {
		for _, k := range byName.Keys() {
			if g := byName[k]; g.Apropos != nil {
				Print(k, g.Apropos)
			}
		}
		return nil
	}
	for _, k := range args {
		g := byName[k]
		if g == nil {
			return fmt.Errorf("%s: not found", k)
		}
		if g.Apropos == nil {
			return fmt.Errorf("%s: has no apropos", k)
		}
		Print(k, g.Apropos)
	}
	return nil
}

func (*cmd) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "print a short command description",
	}
}

func (*cmd) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `NAME
	apropos - print a short command description

SYNOPSIS
	apropos [COMMAND]...

DESCRIPTION
	Print a short description of given or all COMMANDS.`,
	}
}
