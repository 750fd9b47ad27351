// Copyright 2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package goes dispatches a multi-call program to its commands. A command
// is any value with String and Main methods; Plot collects the optional
// Usage, Apropos, Man, Complete, Help and Close methods as well.
package goes

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/platinasystems/flags"

	"github.com/platinasystems/pcitool/goes/lang"
)

var (
	Exit = os.Exit

	// Stdout receives what the builtin commands print.
	Stdout io.Writer = os.Stdout
)

type ByName map[string]*Goes

type Goes struct {
	Name     string
	ByName   func(ByName)
	Close    func() error
	Complete func(...string) []string
	Help     func(...string) string
	Main     func(...string) error
	Usage    string
	Apropos  lang.Alt
	Man      lang.Alt
}

type aproposer interface {
	Apropos() lang.Alt
}

type byNamer interface {
	ByName(ByName)
}

type completer interface {
	Complete(...string) []string
}

type helper interface {
	Help(...string) string
}

type mainer interface {
	Main(...string) error
}

type manner interface {
	Man() lang.Alt
}

type usager interface {
	Usage() string
}

func (byName ByName) Keys() []string {
	keys := make([]string, 0, len(byName))
	for k := range byName {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (byName ByName) Complete(args ...string) (ss []string) {
	if len(args) < 1 {
		return
	}
	for _, k := range byName.Keys() {
		if strings.HasPrefix(k, args[len(args)-1]) {
			ss = append(ss, k)
		}
	}
	return
}

// Main runs the args[0] command. When run w/o args this uses os.Args and
// exits instead of returns on error. A leading program name that isn't a
// command is skipped, so both "pcitool lspci -t" and a link named lspci
// work.
//
// If the args has "-h", "-help", or "--help", this runs
// ByName["help"].Main(COMMAND). Similarly for "-apropos", "-complete",
// "-man", and "-usage".
func (byName ByName) Main(args ...string) (err error) {
	if len(args) == 0 {
		args = os.Args
		if len(args) == 0 {
			return
		}
		defer func() {
			for _, g := range byName {
				if g.Close != nil {
					if t := g.Close(); err == nil {
						err = t
					}
				}
			}
			if err != nil && err != io.EOF {
				fmt.Fprintf(os.Stderr, "%s: %v\n",
					filepath.Base(os.Args[0]), err)
				Exit(1)
			}
		}()
	}
	if _, found := byName[args[0]]; !found {
		if _, found = byName[filepath.Base(args[0])]; found {
			args[0] = filepath.Base(args[0])
		} else {
			args = args[1:]
		}
	}
	if len(args) < 1 {
		args = []string{"help"}
	}
	name := args[0]
	args = args[1:]
	flag, args := flags.New(args,
		[]string{"-h", "-help", "--help"},
		[]string{"-apropos", "--apropos"},
		[]string{"-complete", "--complete"},
		[]string{"-man", "--man"},
		[]string{"-usage", "--usage"})
	targs := []string{name}
	switch {
	case flag.ByName["-h"]:
		args = append(targs, args...)
		name = "help"
	case flag.ByName["-apropos"]:
		args = targs
		name = "apropos"
	case flag.ByName["-man"]:
		args = targs
		name = "man"
	case flag.ByName["-usage"]:
		args = targs
		name = "usage"
	case flag.ByName["-complete"]:
		args = append(targs, args...)
		name = "complete"
	}
	g := byName[name]
	if g == nil {
		return fmt.Errorf("%s: command not found", name)
	}
	if err = g.Main(args...); err == io.EOF {
		err = nil
	}
	return
}

// Plot commands on map.
func (byName ByName) Plot(cmds ...interface{}) {
	for _, v := range cmds {
		g, ok := v.(*Goes)
		if ok {
			byName[g.Name] = g
			if g.ByName != nil {
				g.ByName(byName)
			}
			continue
		}
		g = new(Goes)
		if method, found := v.(fmt.Stringer); found {
			g.Name = method.String()
		} else {
			panic(fmt.Errorf("%T: doesn't have String method", v))
		}
		if _, found := byName[g.Name]; found {
			panic(fmt.Errorf("%s: duplicate", g.Name))
		}
		if method, found := v.(mainer); found {
			g.Main = method.Main
		} else {
			panic(fmt.Errorf("%s: doesn't have Main method",
				g.Name))
		}
		if method, found := v.(byNamer); found {
			method.ByName(byName)
		}
		if method, found := v.(io.Closer); found {
			g.Close = method.Close
		}
		if method, found := v.(completer); found {
			g.Complete = method.Complete
		}
		if method, found := v.(helper); found {
			g.Help = method.Help
		}
		if method, found := v.(usager); found {
			g.Usage = method.Usage()
		}
		if method, found := v.(aproposer); found {
			g.Apropos = method.Apropos()
		}
		if method, found := v.(manner); found {
			g.Man = method.Man()
		}
		byName[g.Name] = g
	}
}

// Text formats lines of usage or man text for a terminal: a single line
// as is, more with a tab in front of each.
func Text(prefix, s string) string {
	s = strings.TrimLeft(s, "\n")
	if strings.IndexRune(s, '\n') < 0 {
		return prefix + " " + s + "\n"
	}
	return prefix + "\t" + strings.Replace(s, "\n", "\n\t", -1) + "\n"
}
