// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package instrument runs the native test activity of the test package
// through `am instrument`.
package instrument

import (
	"context"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/environ"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/device"
	"github.com/1sLand99/angle/internal/devtemp"
)

const (
	runnerPrefix = "org.chromium.native_test.NativeTestInstrumentationTestRunner."

	// Component is the instrumentation runner of the test package.
	Component = device.PackageName + "/org.chromium.build.gtest_apk.NativeTestInstrumentationTestRunner"
	// Activity hosts the native tests.
	Activity = device.PackageName + ".AngleUnitTestActivity"

	// The harness enforces its own timeouts.
	shardNanoTimeout = "1000000000000000000"
)

// Runner runs instrumented tests on one device.
type Runner struct {
	client  *adb.Client
	profile *device.Profile
	env     environ.Env
}

// NewRunner returns a runner reading its capture settings from env.
func NewRunner(client *adb.Client, profile *device.Profile, env environ.Env) *Runner {
	return &Runner{client: client, profile: profile, env: env}
}

// Command returns the script running the tests with flags and writing their
// stdout to stdoutFile.
func (r *Runner) Command(stdoutFile string, flags []string) adb.Script {
	return adb.Sh("am", "instrument", "--user", r.profile.CurrentUser, "-w",
		"-e", runnerPrefix+"StdoutFile", stdoutFile,
		"-e", "org.chromium.native_test.NativeTest.CommandLineFlags", strings.Join(flags, " "),
		"-e", runnerPrefix+"ShardNanoTimeout", shardNanoTimeout,
		"-e", runnerPrefix+"NativeTestActivity", Activity,
		Component)
}

// Run runs the tests with flags and returns their stdout.
//
// When ANGLE_CAPTURE_OUT_DIR names a host dir, frames are captured on the
// device and copied there after the run.
func (r *Runner) Run(ctx context.Context, flags []string) ([]byte, error) {
	var cleanup devtemp.Stack
	defer cleanup.Release(ctx)

	stdout, err := devtemp.NewFile(ctx, r.client, r.profile.TempDir)
	if err != nil {
		return nil, errors.Annotate(err, "run instrumentation").Err()
	}
	cleanup.Push(stdout)

	cmd := r.Command(stdout.String(), flags)
	if captureDir, ok := r.env.Lookup(CaptureOutDirEnv); ok && captureDir != "" {
		err = r.runWithCapture(ctx, cmd, captureDir, &cleanup)
	} else {
		_, err = r.client.Shell(ctx, cmd)
	}
	if err != nil {
		return nil, errors.Annotate(err, "run instrumentation").Err()
	}

	out, err := r.client.ReadFile(ctx, stdout.String())
	if err != nil {
		return nil, errors.Annotate(err, "run instrumentation: read stdout").Err()
	}
	logging.Debugf(ctx, "Instrumentation wrote %d bytes of stdout", len(out))
	return out, nil
}
