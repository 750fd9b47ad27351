// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package elib holds small helpers shared by the register decoders.
package elib

import (
	"fmt"
	"math/bits"
	"strings"
)

// StringerWithFormat returns n[i], or i in the given format when the table
// has no name for it.
func StringerWithFormat(n []string, i int, unknownFormat string) string {
	if i >= 0 && i < len(n) && len(n[i]) > 0 {
		return n[i]
	}
	return fmt.Sprintf(unknownFormat, i)
}

func Stringer(n []string, i int) string    { return StringerWithFormat(n, i, "%d") }
func StringerHex(n []string, i int) string { return StringerWithFormat(n, i, "0x%x") }

// FlagStringerWithFormat names every set bit of x, lowest first, joined
// with ", ".
func FlagStringerWithFormat(n []string, x uint64, unknownFormat string) string {
	var s []string
	for x != 0 {
		i := bits.TrailingZeros64(x)
		if i < len(n) && len(n[i]) > 0 {
			s = append(s, n[i])
		} else {
			s = append(s, fmt.Sprintf(unknownFormat, i))
		}
		x &^= 1 << uint(i)
	}
	return strings.Join(s, ", ")
}

func FlagStringer(n []string, x uint64) string { return FlagStringerWithFormat(n, x, "%d") }

// PlusMinus renders named bits in the +/- style of lspci, e.g.
// "DLP+ SDES- TLP-". Only named bits are shown.
func PlusMinus(n []string, x uint64) string {
	var s []string
	for i, name := range n {
		if len(name) == 0 {
			continue
		}
		if x&(1<<uint(i)) != 0 {
			s = append(s, name+"+")
		} else {
			s = append(s, name+"-")
		}
	}
	return strings.Join(s, " ")
}

type Lines []string

func (l *Lines) Add(s string) { *l = append(*l, s) }
func (l Lines) Indent(indent uint) (s string) {
	pad := strings.Repeat(" ", int(indent))
	for li := range l {
		s += pad + l[li] + "\n"
	}
	return
}
