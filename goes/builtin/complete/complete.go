// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package complete provides a command that may be used for bash completion
// like this.
//
//	_pcitool() {
//		COMPREPLY=($(pcitool complete ${COMP_WORDS[@]}))
//		return 0
//	}
//	complete -F _pcitool pcitool
package complete

import (
	"fmt"
	"path/filepath"

	"github.com/platinasystems/pcitool/goes"
	"github.com/platinasystems/pcitool/goes/lang"
)

const Name = "complete"

type cmd goes.ByName

func New() *cmd { return new(cmd) }

func (*cmd) String() string { return Name }

func (*cmd) Usage() string {
	return "complete COMMAND [ARGS]...\nCOMMAND -complete [ARGS]..."
}

func (c *cmd) ByName(byName goes.ByName) { *c = cmd(byName) }

func (c *cmd) Main(args ...string) error {
	var ss []string
	byName := goes.ByName(*c)
	if len(args) > 0 && byName[args[0]] == nil && len(args) > 1 {
		args = args[1:]
	}
	if len(args) == 0 {
		ss = byName.Complete("")
	} else if g := byName[args[0]]; g != nil {
		if g.Complete != nil {
			ss = g.Complete(args[1:]...)
		} else if len(args[1:]) > 0 {
			ss, _ = filepath.Glob(args[len(args)-1] + "*")
		}
	} else if len(args) == 1 {
		ss = byName.Complete(args[0])
	} else {
		return fmt.Errorf("%s: not found", args[0])
	}
	for _, s := range ss {
		fmt.Fprintln(goes.Stdout, s)
	}
	return nil
}

func (*cmd) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "tab to complete command argument",
	}
}
