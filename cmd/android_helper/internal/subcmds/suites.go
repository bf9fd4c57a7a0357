// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package subcmds

import (
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/1sLand99/angle/cmdsupport/cmdlib"
	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/suite"
)

// PrepareCmd installs a suite and stages its data.
var PrepareCmd = prepareCmd(nil)

func prepareCmd(bridge adb.Bridge) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "prepare -suite <name> [options ...]",
		ShortDesc: "install a test suite and stage its data",
		CommandRun: func() subcommands.CommandRun {
			c := &prepareRun{}
			c.register("", bridge)
			return c
		},
	}
}

type prepareRun struct {
	commonRun
}

// Run implements subcommands.CommandRun.
func (c *prepareRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := c.context(a, c, env)
	h, err := c.helper(ctx)
	if err != nil {
		return report(a, errors.Annotate(err, "prepare").Err())
	}
	return report(a, h.PrepareSuite(ctx, c.suite))
}

// SyncTracesCmd syncs restricted traces to the device.
var SyncTracesCmd = syncTracesCmd(nil)

func syncTracesCmd(bridge adb.Bridge) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "sync-traces [options ...] <trace> ...",
		ShortDesc: "sync restricted trace data and libraries",
		CommandRun: func() subcommands.CommandRun {
			c := &syncTracesRun{}
			c.register(suite.TraceSuite, bridge)
			return c
		},
	}
}

type syncTracesRun struct {
	commonRun
}

// Run implements subcommands.CommandRun.
func (c *syncTracesRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	if len(args) == 0 {
		return report(a, cmdlib.NewUsageError(&c.Flags, "at least one trace is required"))
	}
	ctx := c.context(a, c, env)
	h, err := c.helper(ctx)
	if err != nil {
		return report(a, errors.Annotate(err, "sync traces").Err())
	}
	if err := h.PrepareRestrictedTraces(ctx, args); err != nil {
		return report(a, err)
	}
	s := h.Stats()
	logging.Debugf(ctx, "%d files transferred, %d up to date", s.Files, s.Skipped)
	return exitOK
}
