// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package subcmds implements the android_helper subcommands.
package subcmds

import (
	"context"
	"fmt"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/system/environ"

	"github.com/1sLand99/angle/cmdsupport/cmdlib"
	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/device"
	"github.com/1sLand99/angle/internal/helper"
	"github.com/1sLand99/angle/internal/site"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	// exitFatal means the device or the build is unusable.
	exitFatal = 2
)

// commonRun holds what every subcommand needs to reach the device.
type commonRun struct {
	subcommands.CommandRunBase
	commonFlags site.CommonFlags
	suite       string
	// bridge overrides the adb binary when set.
	bridge adb.Bridge
}

func (c *commonRun) register(defaultSuite string, bridge adb.Bridge) {
	c.bridge = bridge
	c.commonFlags.Register(&c.Flags)
	c.Flags.StringVar(&c.suite, "suite", defaultSuite, "test suite whose APK is used")
}

// context returns the context of the subcommand r with logging set up.
func (c *commonRun) context(a subcommands.Application, r subcommands.CommandRun, env subcommands.Env) context.Context {
	return c.commonFlags.UseLogging(cli.GetContext(a, r, env))
}

// helper returns a helper initialized for the suite flag.
func (c *commonRun) helper(ctx context.Context) (*helper.Helper, error) {
	if c.suite == "" {
		return nil, cmdlib.NewQuietUsageError(&c.Flags, "-suite is required")
	}
	layout, err := c.commonFlags.Layout()
	if err != nil {
		return nil, err
	}
	h, err := helper.New(ctx, helper.Options{
		Layout:       layout,
		ADB:          c.commonFlags.ADB,
		SuitesConfig: c.commonFlags.SuitesConfig,
		Env:          environ.System(),
		Bridge:       c.bridge,
	})
	if err != nil {
		return nil, err
	}
	if err := h.Initialize(ctx, c.suite); err != nil {
		return nil, err
	}
	if !h.IsAndroid() {
		return nil, errors.Reason("no APK for %s in %s", c.suite, layout.OutDir).Tag(device.Fatal).Err()
	}
	return h, nil
}

// report prints err and returns the exit code it maps to.
func report(a subcommands.Application, err error) int {
	if err == nil {
		return exitOK
	}
	cmdlib.PrintError(a, err)
	if code, ok := adb.ExitCode(err); ok {
		fmt.Fprintf(a.GetErr(), "%s: adb exited with status %d\n", a.GetName(), code)
	}
	if device.Fatal.In(err) {
		return exitFatal
	}
	return exitFailure
}
