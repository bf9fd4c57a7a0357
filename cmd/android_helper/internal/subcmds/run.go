// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package subcmds

import (
	"github.com/google/shlex"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/errors"

	"github.com/1sLand99/angle/cmdsupport/cmdlib"
	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/results"
)

// RunCmd runs a test suite on the device.
var RunCmd = runCmd(nil)

func runCmd(bridge adb.Bridge) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "run -suite <name> [options ...] [-- test args ...]",
		ShortDesc: "run a test suite",
		LongDesc: `Run a test suite on the device and exit with its result.

Test arguments follow a -- separator so that flags such as --gtest_filter
are passed to the tests, for example:

  android_helper run -suite angle_end2end_tests -- --gtest_filter=EGL*

Output flags such as --isolated-script-test-output name host paths; the
artifacts are copied back after the run.`,
		CommandRun: func() subcommands.CommandRun {
			c := &runRun{}
			c.register("", bridge)
			c.Flags.StringVar(&c.testArgs, "test-args", "", "test arguments as a single shell-quoted string, placed before the positional ones")
			c.Flags.StringVar(&c.stdoutFile, "stdout-file", "", "file receiving the stdout of the tests")
			c.Flags.BoolVar(&c.logOutput, "log-output", true, "log the stdout of the tests even when they pass")
			return c
		},
	}
}

type runRun struct {
	commonRun
	testArgs   string
	stdoutFile string
	logOutput  bool
}

// Run implements subcommands.CommandRun.
func (c *runRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	testArgs, err := c.args(args)
	if err != nil {
		return report(a, err)
	}
	ctx := c.context(a, c, env)
	h, err := c.helper(ctx)
	if err != nil {
		return report(a, errors.Annotate(err, "run").Err())
	}
	o := h.RunTests(ctx, c.suite, testArgs, results.Options{
		StdoutFile: c.stdoutFile,
		LogOutput:  c.logOutput,
	})
	return o.ExitCode
}

// args merges -test-args with the positional arguments.
func (c *runRun) args(positional []string) ([]string, error) {
	split, err := shlex.Split(c.testArgs)
	if err != nil {
		return nil, cmdlib.NewUsageError(&c.Flags, "bad -test-args: %s", err)
	}
	return append(split, positional...), nil
}
