// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pci

import "github.com/platinasystems/pcitool/elib"

// Compat selects decodings that follow what lspci prints where lspci and
// the published register layout disagree. The zero value follows the
// published layout.
type Compat uint8

const (
	// Take the power management B2/B3 and BPCC bits from the low byte of
	// PMCSR instead of the bridge support extension register.
	CompatPMBridge Compat = 1 << iota
	// Read the RC link declaration element type as the full low byte of
	// the element self description.
	CompatRCLinkElementType
)

var compatNames = []string{
	"pm-bridge",
	"rclink-eltype",
}

func (c Compat) Has(x Compat) bool { return c&x == x }

func (c Compat) String() string {
	if c == 0 {
		return "none"
	}
	return elib.FlagStringer(compatNames, uint64(c))
}
