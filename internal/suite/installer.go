// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package suite installs test suites on the device and stages the data they
// read at runtime.
package suite

import (
	"context"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/devsync"
	"github.com/1sLand99/angle/internal/device"
	"github.com/1sLand99/angle/internal/site"
)

// Permissions are granted to the test package after install.
var Permissions = []string{
	"android.permission.CAMERA",
	"android.permission.CHANGE_CONFIGURATION",
	"android.permission.READ_EXTERNAL_STORAGE",
	"android.permission.RECORD_AUDIO",
	"android.permission.WRITE_EXTERNAL_STORAGE",
}

// Installer prepares suites on one device.
type Installer struct {
	client  *adb.Client
	profile *device.Profile
	layout  site.Layout
	sync    *devsync.Engine
}

// NewInstaller returns an installer using sync for transfers.
func NewInstaller(client *adb.Client, profile *device.Profile, layout site.Layout, sync *devsync.Engine) *Installer {
	return &Installer{client: client, profile: profile, layout: layout, sync: sync}
}

// PrepareSuite installs the APK of s unless the device already has it, and
// stages the data of its category. It is safe to call repeatedly.
func (i *Installer) PrepareSuite(ctx context.Context, s Suite) error {
	if err := i.install(ctx, s.APK); err != nil {
		return errors.Annotate(err, "prepare suite %q", s.Name).Err()
	}

	grant := adb.Sh("pm", "grant", device.PackageName, Permissions[0])
	for _, p := range Permissions[1:] {
		grant = grant.And(adb.Sh("pm", "grant", device.PackageName, p))
	}
	if _, err := i.client.Shell(ctx, grant); err != nil {
		return errors.Annotate(err, "prepare suite %q: grant permissions", s.Name).Err()
	}
	appops := adb.Sh("appops", "set", device.PackageName, "MANAGE_EXTERNAL_STORAGE", "allow").OrTrue()
	if _, err := i.client.Shell(ctx, appops); err != nil {
		logging.Warningf(ctx, "Failed to allow MANAGE_EXTERNAL_STORAGE: %s", err)
	}

	for _, dir := range []string{i.profile.ExternalStorage, i.profile.TempDir} {
		if _, err := i.client.Shell(ctx, adb.Sh("mkdir", "-p", dir)); err != nil {
			return errors.Annotate(err, "prepare suite %q", s.Name).Err()
		}
	}

	if err := i.stage(ctx, s.Category); err != nil {
		return errors.Annotate(err, "prepare suite %q: stage %s data", s.Name, s.Category).Err()
	}
	return nil
}

func (i *Installer) install(ctx context.Context, apk string) error {
	if i.sameAPKInstalled(ctx, apk) {
		logging.Infof(ctx, "Skipping APK install because host and device hashes match")
		return nil
	}
	fi, err := os.Stat(apk)
	if err != nil {
		return errors.Annotate(err, "install").Tag(device.Fatal).Err()
	}
	logging.Infof(ctx, "Installing apk path=%s size=%s", apk, humanize.Bytes(uint64(fi.Size())))
	return i.client.Install(ctx, apk)
}

func (i *Installer) sameAPKInstalled(ctx context.Context, apk string) bool {
	out, err := i.client.ShellString(ctx, adb.Sh("pm", "path", device.PackageName).OrTrue())
	if err != nil {
		logging.Warningf(ctx, "Failed to find installed APK: %s", err)
		return false
	}
	if out == "" {
		logging.Debugf(ctx, "No installed path found for %s", device.PackageName)
		return false
	}
	// Split APKs print one line per part; the first is the base.
	line := strings.SplitN(out, "\n", 2)[0]
	devicePath := strings.TrimPrefix(strings.TrimSpace(line), "package:")
	logging.Debugf(ctx, "Device APK path is %s", devicePath)

	match, err := i.sync.HashesMatch(ctx, devsync.NewTask(apk, devicePath))
	if err != nil {
		// A non-debuggable test APK on the device breaks run-as.
		logging.Warningf(ctx, "Comparing APK hashes failed: %s", err)
		return false
	}
	return match
}
