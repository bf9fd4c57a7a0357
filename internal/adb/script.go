// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adb

import (
	"strings"

	"github.com/alessio/shellescape"
)

// Script is a command line executed by the device shell.
//
// Scripts built with Sh have every argument quoted. Raw is the only way to
// inject unquoted text such as globs and redirections.
type Script string

// Sh builds a script running name with args, quoting every argument.
func Sh(name string, args ...string) Script {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellescape.Quote(name))
	for _, a := range args {
		parts = append(parts, shellescape.Quote(a))
	}
	return Script(strings.Join(parts, " "))
}

// Raw wraps s without any quoting.
func Raw(s string) Script {
	return Script(s)
}

// Lines joins scripts with newlines.
func Lines(scripts ...Script) Script {
	parts := make([]string, len(scripts))
	for i, s := range scripts {
		parts[i] = string(s)
	}
	return Script(strings.Join(parts, "\n"))
}

// And runs next only if s succeeds.
func (s Script) And(next Script) Script {
	return s + " && " + next
}

// Or runs next only if s fails.
func (s Script) Or(next Script) Script {
	return s + " || " + next
}

// Then runs next after s regardless of its status.
func (s Script) Then(next Script) Script {
	return s + "; " + next
}

// Pipe feeds the output of s to next.
func (s Script) Pipe(next Script) Script {
	return s + " | " + next
}

// OrTrue makes s always succeed.
func (s Script) OrTrue() Script {
	return s.Or("true")
}

// RunAs runs s inside the sandbox of the debuggable package pkg.
func (s Script) RunAs(pkg string) Script {
	return Sh("run-as", pkg, "sh", "-c", string(s))
}

// String implements fmt.Stringer.
func (s Script) String() string {
	return string(s)
}
