// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lang

import "testing"

var hello = Alt{
	EnUS: "hello",
	FrFR: "bonjour",
	JaJP: "こんにちは",
	ZhCN: "你好",
}

func Test(t *testing.T) {
	for lang, expect := range hello {
		t.Setenv("LANG", lang)
		if s := hello.String(); s != expect {
			t.Fatalf("%q != %q", s, expect)
		} else {
			t.Logf("%s: %s", lang, s)
		}
	}
}

func TestFallback(t *testing.T) {
	t.Setenv("LANG", DeDE)
	if s := hello.String(); s != "hello" {
		t.Fatalf("%q != %q", s, "hello")
	}
	Default = FrFR
	defer func() { Default = EnUS }()
	if s := hello.String(); s != "bonjour" {
		t.Fatalf("%q != %q", s, "bonjour")
	}
	if s := (Alt{}).String(); s != "" {
		t.Fatalf("%q != %q", s, "")
	}
}
