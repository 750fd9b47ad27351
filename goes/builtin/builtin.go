// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package builtin provides the commands that describe the other commands.
package builtin

import (
	"github.com/platinasystems/pcitool/goes/builtin/apropos"
	"github.com/platinasystems/pcitool/goes/builtin/complete"
	"github.com/platinasystems/pcitool/goes/builtin/help"
	"github.com/platinasystems/pcitool/goes/builtin/man"
	"github.com/platinasystems/pcitool/goes/builtin/usage"
)

func New() []interface{} {
	return []interface{}{
		apropos.New(),
		complete.New(),
		help.New(),
		man.New(),
		usage.New(),
	}
}
