// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package results runs a test suite on the device and turns its output into
// an exit code, copying the requested artifacts back to the host.
package results

import (
	"context"
	"os"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/runtime/paniccatcher"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/device"
	"github.com/1sLand99/angle/internal/devtemp"
)

// SuitePreparer makes a suite ready to run.
type SuitePreparer interface {
	EnsureSuite(ctx context.Context, name string) error
}

// Runner runs the prepared suite with flags and returns its stdout.
type Runner interface {
	Run(ctx context.Context, flags []string) ([]byte, error)
}

// Options tune RunTests.
type Options struct {
	// StdoutFile receives the stdout of the tests when set.
	StdoutFile string
	// LogOutput logs stdout even when the tests pass.
	LogOutput bool
}

// Outcome is the result of a test run.
type Outcome struct {
	ExitCode int
	Stdout   string
	// JSON is the decoded result file, nil when it could not be read.
	JSON map[string]interface{}
}

// Collector runs suites and collects their results.
type Collector struct {
	client  *adb.Client
	profile *device.Profile
	suites  SuitePreparer
	runner  Runner
}

// NewCollector returns a collector running tests with runner once suites has
// prepared them.
func NewCollector(client *adb.Client, profile *device.Profile, suites SuitePreparer, runner Runner) *Collector {
	return &Collector{client: client, profile: profile, suites: suites, runner: runner}
}

// RunTests runs suite with args. Output flags naming host paths are pointed
// at device temp paths and the artifacts copied back after the run.
//
// RunTests never fails: any error or panic is logged and reported as a
// failed outcome with whatever stdout was collected.
func (c *Collector) RunTests(ctx context.Context, suite string, args []string, opts Options) Outcome {
	o := Outcome{ExitCode: 1}
	paniccatcher.Do(func() {
		if err := c.runTests(ctx, suite, args, opts, &o); err != nil {
			logging.Errorf(ctx, "Running %s failed: %s", suite, err)
			o.ExitCode = 1
			o.JSON = nil
		}
	}, func(p *paniccatcher.Panic) {
		logging.Errorf(ctx, "Running %s panicked: %v\n%s", suite, p.Reason, p.Stack)
		o.ExitCode = 1
		o.JSON = nil
	})
	return o
}

func (c *Collector) runTests(ctx context.Context, suite string, args []string, opts Options, o *Outcome) error {
	if err := c.suites.EnsureSuite(ctx, suite); err != nil {
		return err
	}

	args, testOutput, err := RemoveFlag(args, TestOutputFlag)
	if err != nil {
		return err
	}
	args, perfOutput, err := RemoveFlag(args, PerfOutputFlag)
	if err != nil {
		return err
	}
	args, renderDir, err := RemoveFlag(args, RenderDirFlag)
	if err != nil {
		return err
	}

	var cleanup devtemp.Stack
	defer cleanup.Release(ctx)

	deviceTestOutput, err := devtemp.NewFile(ctx, c.client, c.profile.TempDir)
	if err != nil {
		return err
	}
	cleanup.Push(deviceTestOutput)
	args = append(args, TestOutputFlag+"="+deviceTestOutput.String())

	var devicePerf, deviceRender *devtemp.Path
	if perfOutput != "" {
		if devicePerf, err = devtemp.NewFile(ctx, c.client, c.profile.TempDir); err != nil {
			return err
		}
		cleanup.Push(devicePerf)
		args = append(args, PerfOutputFlag+"="+devicePerf.String())
	}
	if renderDir != "" {
		if fi, err := os.Stat(renderDir); err != nil || !fi.IsDir() {
			return errors.Reason("dir does not exist: %s", renderDir).Err()
		}
		if deviceRender, err = devtemp.NewDir(ctx, c.client, c.profile.TempDir); err != nil {
			return err
		}
		cleanup.Push(deviceRender)
		args = append(args, RenderDirFlag+"="+deviceRender.String())
	}

	stdout, err := c.runner.Run(ctx, args)
	o.Stdout = string(stdout)
	if err != nil {
		return err
	}

	var testOutputData []byte
	if hasFlag(args, ListTestsFlag) {
		// There may be no output file when listing tests.
		testOutputData = []byte(listTestsResult)
	} else if testOutputData, err = c.client.ReadFile(ctx, deviceTestOutput.String()); err != nil {
		logging.Errorf(ctx, "Unable to read test json output. Stdout:\n%s", o.Stdout)
		o.JSON = nil
		return nil
	}

	if testOutput != "" {
		if err := os.WriteFile(testOutput, testOutputData, 0644); err != nil {
			return errors.Annotate(err, "write test output").Err()
		}
	}

	result, raw, err := Parse(testOutputData)
	if err != nil {
		return err
	}
	o.JSON = raw
	o.ExitCode = result.ExitCode()
	if o.ExitCode != 0 {
		logging.Errorf(ctx, "Tests failed: %s", testOutputData)
	}

	if deviceRender != nil {
		if err := c.client.PullDir(ctx, deviceRender.String(), renderDir); err != nil {
			return err
		}
	}
	if devicePerf != nil {
		if err := c.client.Pull(ctx, devicePerf.String(), perfOutput); err != nil {
			return err
		}
	}

	if opts.LogOutput || o.ExitCode != 0 {
		logging.Infof(ctx, "%s", o.Stdout)
	}
	if o.ExitCode != 0 {
		logging.Errorf(ctx, "Tests failed, see stdout above")
	}
	if opts.StdoutFile != "" {
		if err := os.WriteFile(opts.StdoutFile, stdout, 0644); err != nil {
			return errors.Annotate(err, "write stdout").Err()
		}
	}
	return nil
}
