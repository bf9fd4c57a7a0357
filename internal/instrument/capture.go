// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package instrument

import (
	"context"
	"os"
	"sort"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/environ"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/devtemp"
)

// CaptureOutDirEnv names the host dir receiving captured frames.
const CaptureOutDirEnv = "ANGLE_CAPTURE_OUT_DIR"

// OutDirProp holds the device dir the frames are captured into.
const OutDirProp = "debug.angle.capture.out_dir"

// CaptureProps maps capture settings in the environment to the device
// properties read by FrameCapture.
var CaptureProps = map[string]string{
	"ANGLE_CAPTURE_ENABLED":                 "debug.angle.capture.enabled",
	"ANGLE_CAPTURE_FRAME_START":             "debug.angle.capture.frame_start",
	"ANGLE_CAPTURE_FRAME_END":               "debug.angle.capture.frame_end",
	"ANGLE_CAPTURE_MAX_RESIDENT_BINARY_SIZE": "debug.angle.capture.max_resident_binary_size",
	"ANGLE_CAPTURE_BLOCK_SIZE":              "debug.angle.capture.block_size",
	"ANGLE_CAPTURE_TRIGGER":                 "debug.angle.capture.trigger",
	"ANGLE_CAPTURE_END_CAPTURE":             "debug.angle.capture.end_capture",
	"ANGLE_CAPTURE_LABEL":                   "debug.angle.capture.label",
	"ANGLE_CAPTURE_COMPRESSION":             "debug.angle.capture.compression",
	"ANGLE_CAPTURE_VALIDATION":              "debug.angle.capture.validation",
	"ANGLE_CAPTURE_VALIDATION_EXPR":         "debug.angle.capture.validation_expr",
	"ANGLE_CAPTURE_SOURCE_EXT":              "debug.angle.capture.source_ext",
	"ANGLE_CAPTURE_SOURCE_SIZE":             "debug.angle.capture.source_size",
	"ANGLE_CAPTURE_FORCE_SHADOW":            "debug.angle.capture.force_shadow",
}

// captureScript sets every capture property. Unset settings are written as
// empty values so nothing is left over from a previous run.
func captureScript(env environ.Env, deviceOutDir string) adb.Script {
	keys := make([]string, 0, len(CaptureProps))
	for k := range CaptureProps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := []adb.Script{adb.Sh("setprop", OutDirProp, deviceOutDir)}
	for _, k := range keys {
		lines = append(lines, adb.Sh("setprop", CaptureProps[k], env.Get(k)))
	}
	return adb.Lines(lines...)
}

func (r *Runner) runWithCapture(ctx context.Context, cmd adb.Script, hostDir string, cleanup *devtemp.Stack) error {
	if fi, err := os.Stat(hostDir); err != nil || !fi.IsDir() {
		return errors.Reason("%s=%q is not a directory", CaptureOutDirEnv, hostDir).Err()
	}
	deviceDir, err := devtemp.NewDir(ctx, r.client, r.profile.TempDir)
	if err != nil {
		return errors.Annotate(err, "capture").Err()
	}
	cleanup.Push(deviceDir)

	if _, err := r.client.Shell(ctx, captureScript(r.env, deviceDir.String())); err != nil {
		r.resetCaptureProps(ctx)
		return errors.Annotate(err, "capture: set props").Err()
	}
	_, err = r.client.Shell(ctx, cmd)
	r.resetCaptureProps(ctx)
	if err != nil {
		return err
	}
	return errors.Annotate(r.client.PullDir(ctx, deviceDir.String(), hostDir), "capture").Err()
}

func (r *Runner) resetCaptureProps(ctx context.Context) {
	if _, err := r.client.Shell(ctx, captureScript(environ.New(nil), "")); err != nil {
		logging.Warningf(ctx, "Failed to reset capture props: %s", err)
	}
}
