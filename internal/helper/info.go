// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package helper

import (
	"context"
	"encoding/json"
	"path"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/devtemp"
	"github.com/1sLand99/angle/internal/results"
	"github.com/1sLand99/angle/internal/suite"
)

const (
	systemInfoFile = "angle_system_info.json"
	tracePrefix    = "TraceTest."
)

// AngleSystemInfo runs the system info suite and returns the GPU information
// it reports.
func (h *Helper) AngleSystemInfo(ctx context.Context, args []string) (map[string]interface{}, error) {
	if !h.isAndroid {
		return nil, ErrNotAndroid
	}
	if err := h.session.EnsureSuite(ctx, suite.SystemInfoSuite); err != nil {
		return nil, errors.Annotate(err, "system info").Err()
	}

	dir, err := devtemp.NewDir(ctx, h.client, h.profile.TempDir)
	if err != nil {
		return nil, errors.Annotate(err, "system info").Err()
	}
	defer func() {
		if err := dir.Release(ctx); err != nil {
			logging.Warningf(ctx, "%s", err)
		}
	}()

	flags := append(append([]string(nil), args...), results.RenderDirFlag+"="+dir.String())
	if _, err := h.runner.Run(ctx, flags); err != nil {
		return nil, errors.Annotate(err, "system info").Err()
	}
	b, err := h.client.ReadFile(ctx, path.Join(dir.String(), systemInfoFile))
	if err != nil {
		return nil, errors.Annotate(err, "system info").Err()
	}
	var info map[string]interface{}
	if err := json.Unmarshal(b, &info); err != nil {
		return nil, errors.Annotate(err, "system info").Err()
	}
	return info, nil
}

// BuildFingerprint returns the build fingerprint of the device.
func (h *Helper) BuildFingerprint(ctx context.Context) (string, error) {
	if !h.isAndroid {
		return "", ErrNotAndroid
	}
	fp, err := h.client.ShellString(ctx, adb.Sh("getprop", "ro.build.fingerprint"))
	return fp, errors.Annotate(err, "build fingerprint").Err()
}

// Temps returns the temperatures of the device thermal zones in Celsius.
// Unreadable zones are skipped.
func (h *Helper) Temps(ctx context.Context) ([]float64, error) {
	if !h.isAndroid {
		return nil, ErrNotAndroid
	}
	out, err := h.client.ShellString(ctx, adb.Raw("cat /dev/thermal/tz-by-name/*_therm/temp 2>/dev/null").OrTrue())
	if err != nil {
		return nil, errors.Annotate(err, "temps").Err()
	}
	fields := strings.Fields(out)
	logging.Debugf(ctx, "tz-by-name temps: %s", strings.Join(fields, ","))

	var temps []float64
	for _, f := range fields {
		milli, err := strconv.ParseFloat(f, 64)
		if err != nil {
			continue
		}
		temps = append(temps, milli/1e3)
	}
	return temps, nil
}

// TraceFromTestName returns the trace run by a trace test, if testName is
// one.
func TraceFromTestName(testName string) (string, bool) {
	return strings.CutPrefix(testName, tracePrefix)
}
