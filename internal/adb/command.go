// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adb

import (
	"github.com/alessio/shellescape"
)

// Command is a single adb invocation.
//
// The set of implementations is closed: Shell, Push, Pull, Install, Root
// and Version.
type Command interface {
	// Args returns the arguments passed to the adb binary.
	Args() []string
	isCommand()
}

// Shell runs a script through `adb shell`.
type Shell struct {
	Script Script
}

// Args implements Command.
func (c Shell) Args() []string { return []string{"shell", string(c.Script)} }

func (Shell) isCommand() {}

// Push copies a host file to the device.
type Push struct {
	Local  string
	Remote string
}

// Args implements Command.
func (c Push) Args() []string { return []string{"push", c.Local, c.Remote} }

func (Push) isCommand() {}

// Pull copies a device file to the host.
type Pull struct {
	Remote string
	Local  string
}

// Args implements Command.
func (c Pull) Args() []string { return []string{"pull", c.Remote, c.Local} }

func (Pull) isCommand() {}

// Install installs an APK.
type Install struct {
	APK string
	// Replace reinstalls an existing app keeping its data (-r).
	Replace bool
	// AllowDowngrade permits a lower version code (-d).
	AllowDowngrade bool
}

// Args implements Command.
func (c Install) Args() []string {
	args := []string{"install"}
	if c.Replace {
		args = append(args, "-r")
	}
	if c.AllowDowngrade {
		args = append(args, "-d")
	}
	return append(args, c.APK)
}

func (Install) isCommand() {}

// Root restarts adbd with root permissions.
type Root struct{}

// Args implements Command.
func (Root) Args() []string { return []string{"root"} }

func (Root) isCommand() {}

// Version asks the host adb for its version.
type Version struct{}

// Args implements Command.
func (Version) Args() []string { return []string{"--version"} }

func (Version) isCommand() {}

// String renders the command as it would be typed on the host.
func String(c Command) string {
	return shellescape.QuoteCommand(append([]string{"adb"}, c.Args()...))
}
