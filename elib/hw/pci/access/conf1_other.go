// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux

package access

import "fmt"

func openConf1(path string) (Source, error) {
	return nil, fmt.Errorf("%s: unavailable on this platform", IntelConf1)
}
