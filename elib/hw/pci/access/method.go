// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package access

import (
	"fmt"
	"strings"
)

// Access method names, as lspci -A spells them.
const (
	LinuxSysfs = "linux-sysfs"
	LinuxProc  = "linux-proc"
	IntelConf1 = "intel-conf1"
	DumpFile   = "dump"
)

var methods = []string{LinuxSysfs, LinuxProc, IntelConf1, DumpFile}

func Methods() []string { return append([]string(nil), methods...) }

// Open returns the named method's Source. A non-empty path replaces the
// method's default location: the sysfs or procfs directory, the port
// device, or the dump file, which the dump method requires. Sources that
// hold a descriptor implement io.Closer.
func Open(method, path string) (Source, error) {
	switch method {
	case "", LinuxSysfs:
		s := NewSysfs()
		if path != "" {
			s.Root = path
		}
		return s, nil
	case LinuxProc:
		p := NewProcfs()
		if path != "" {
			p.Root = path
		}
		return p, nil
	case IntelConf1:
		return openConf1(path)
	case DumpFile:
		if path == "" {
			return nil, fmt.Errorf("%s: missing file", method)
		}
		return OpenDump(path)
	}
	return nil, fmt.Errorf("%s: unknown access method; try: %s",
		method, strings.Join(methods, ", "))
}
