// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package subcmds

import (
	"encoding/json"
	"fmt"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/errors"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/suite"
)

// FingerprintCmd prints the build fingerprint of the device.
var FingerprintCmd = fingerprintCmd(nil)

func fingerprintCmd(bridge adb.Bridge) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "fingerprint [options ...]",
		ShortDesc: "print the device build fingerprint",
		CommandRun: func() subcommands.CommandRun {
			c := &fingerprintRun{}
			c.register(suite.SystemInfoSuite, bridge)
			return c
		},
	}
}

type fingerprintRun struct {
	commonRun
}

// Run implements subcommands.CommandRun.
func (c *fingerprintRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := c.context(a, c, env)
	h, err := c.helper(ctx)
	if err != nil {
		return report(a, errors.Annotate(err, "fingerprint").Err())
	}
	fp, err := h.BuildFingerprint(ctx)
	if err != nil {
		return report(a, err)
	}
	fmt.Fprintln(a.GetOut(), fp)
	return exitOK
}

// TempsCmd prints the temperatures of the device.
var TempsCmd = tempsCmd(nil)

func tempsCmd(bridge adb.Bridge) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "temps [options ...]",
		ShortDesc: "print the device thermal zone temperatures",
		CommandRun: func() subcommands.CommandRun {
			c := &tempsRun{}
			c.register(suite.SystemInfoSuite, bridge)
			return c
		},
	}
}

type tempsRun struct {
	commonRun
}

// Run implements subcommands.CommandRun.
func (c *tempsRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := c.context(a, c, env)
	h, err := c.helper(ctx)
	if err != nil {
		return report(a, errors.Annotate(err, "temps").Err())
	}
	temps, err := h.Temps(ctx)
	if err != nil {
		return report(a, err)
	}
	for _, t := range temps {
		fmt.Fprintf(a.GetOut(), "%.1f\n", t)
	}
	return exitOK
}

// SystemInfoCmd prints the GPU information reported by the device.
var SystemInfoCmd = systemInfoCmd(nil)

func systemInfoCmd(bridge adb.Bridge) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "system-info [options ...] [test args ...]",
		ShortDesc: "print the ANGLE system info of the device",
		CommandRun: func() subcommands.CommandRun {
			c := &systemInfoRun{}
			c.register(suite.SystemInfoSuite, bridge)
			return c
		},
	}
}

type systemInfoRun struct {
	commonRun
}

// Run implements subcommands.CommandRun.
func (c *systemInfoRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := c.context(a, c, env)
	h, err := c.helper(ctx)
	if err != nil {
		return report(a, errors.Annotate(err, "system info").Err())
	}
	info, err := h.AngleSystemInfo(ctx, args)
	if err != nil {
		return report(a, err)
	}
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return report(a, errors.Annotate(err, "system info").Err())
	}
	fmt.Fprintln(a.GetOut(), string(out))
	return exitOK
}
