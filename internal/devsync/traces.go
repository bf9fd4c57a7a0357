// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devsync

import (
	"context"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/device"
)

// SyncTraces syncs the data of the named restricted traces. When the traces
// are not packed in the APK, their libraries and the trace interpreter are
// synced into the app dir too.
func (e *Engine) SyncTraces(ctx context.Context, traces []string) error {
	start := clock.Now(ctx)
	before := e.stats

	var mkdir adb.Script
	if e.profile.UseRunAs {
		mkdir = adb.Sh("mkdir", "-p", AppTempDir).And(adb.Sh("run-as", device.PackageName, "mkdir", "-p", "angle_traces"))
	} else {
		mkdir = adb.Sh("mkdir", "-p", AppTempDir, e.appDir())
	}
	if _, err := e.client.Shell(ctx, mkdir); err != nil {
		return errors.Annotate(err, "sync traces").Err()
	}

	sorted := append([]string(nil), traces...)
	sort.Strings(sorted)
	for i, trace := range sorted {
		logging.Infof(ctx, "Syncing %s trace (%d/%d)", trace, i+1, len(sorted))
		if err := e.syncTrace(ctx, trace); err != nil {
			return errors.Annotate(err, "sync trace %q", trace).Err()
		}
	}
	if e.profile.TracesOutsideAPK {
		if err := e.pushLib(ctx, device.InterpreterLib); err != nil {
			return errors.Annotate(err, "sync traces").Err()
		}
	}

	logging.Infof(ctx, "Synced files for %d traces (%s, %d files already ok) in %s",
		len(sorted), humanize.Bytes(uint64(e.stats.Bytes-before.Bytes)),
		e.stats.Skipped-before.Skipped, clock.Since(ctx, start))
	return nil
}

func (e *Engine) syncTrace(ctx context.Context, trace string) error {
	rel := "src/tests/restricted_traces/" + trace + "/" + trace + ".angledata.gz"
	if _, err := os.Stat(e.layout.Source(rel)); err != nil {
		// Traces may also ship uncompressed.
		rel = "src/tests/restricted_traces/" + trace + "/" + trace + ".angledata"
	}
	if _, err := e.SyncFile(ctx, e.layout.Source(rel), e.profile.ExternalStorage+rel); err != nil {
		return err
	}

	if e.profile.TracesOutsideAPK {
		if err := e.pushLib(ctx, "libangle_restricted_traces_"+trace+".so"); err != nil {
			return err
		}
	}

	// Only built with angle_enable_tracegz.
	tracegz := "gen/tracegz_" + trace + ".gz"
	if _, err := os.Stat(e.layout.Out(tracegz)); err == nil {
		if _, err := e.SyncFile(ctx, e.layout.Out(tracegz), e.profile.ExternalStorage+tracegz); err != nil {
			return err
		}
	}
	return nil
}

// pushLib syncs a library from the build output into the app dir. A missing
// library means the build is incomplete, which is fatal.
func (e *Engine) pushLib(ctx context.Context, lib string) error {
	local := e.layout.Out(lib)
	if _, err := os.Stat(local); err != nil {
		return errors.Reason("missing library %s; is angle_restricted_traces set in gn args?", local).Tag(device.Fatal).Err()
	}
	_, err := e.PushToAppDir(ctx, local)
	return err
}
