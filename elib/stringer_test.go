// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package elib

import "testing"

var testNames = []string{
	0: "zero",
	1: "one",
	3: "three",
}

func TestStringer(t *testing.T) {
	for _, x := range []struct {
		i    int
		want string
	}{
		{0, "zero"},
		{1, "one"},
		{2, "2"},
		{3, "three"},
		{9, "9"},
		{-1, "-1"},
	} {
		if got := Stringer(testNames, x.i); got != x.want {
			t.Errorf("Stringer(%d) got %q want %q", x.i, got, x.want)
		}
	}
	if got, want := StringerHex(testNames, 10), "0xa"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestFlagStringer(t *testing.T) {
	if got, want := FlagStringer(testNames, 0xb), "zero, one, three"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
	if got, want := FlagStringer(testNames, 1<<5|1<<1), "one, 5"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
	if got := FlagStringer(testNames, 0); got != "" {
		t.Errorf("got %q want empty", got)
	}
}

func TestPlusMinus(t *testing.T) {
	if got, want := PlusMinus(testNames, 0x8), "zero- one- three+"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestLinesIndent(t *testing.T) {
	var l Lines
	l.Add("a")
	l.Add("b")
	if got, want := l.Indent(2), "  a\n  b\n"; got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
