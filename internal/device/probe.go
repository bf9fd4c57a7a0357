// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package device

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry"

	"github.com/1sLand99/angle/internal/adb"
)

const (
	// `adb root` restarts adbd which can take quite a few seconds.
	rootPollAttempts = 20
	rootPollInterval = 500 * time.Millisecond
)

// Prober probes the device on first use and caches the result.
type Prober struct {
	client  *adb.Client
	apk     string
	profile *Profile
}

// NewProber returns a prober for the device behind client. apk is the host
// test package, inspected for its native libraries.
func NewProber(client *adb.Client, apk string) *Prober {
	return &Prober{client: client, apk: apk}
}

// Profile returns the device profile, probing the device on the first call.
func (p *Prober) Profile(ctx context.Context) (*Profile, error) {
	if p.profile != nil {
		return p.profile, nil
	}
	profile, err := probe(ctx, p.client, p.apk)
	if err != nil {
		return nil, err
	}
	p.profile = profile
	return profile, nil
}

// Reset forgets the cached profile so the next call probes again.
func (p *Prober) Reset() {
	p.profile = nil
}

func probe(ctx context.Context, client *adb.Client, apk string) (*Profile, error) {
	// Pull a few pieces of data with a single adb trip.
	query := adb.Sh("id", "-u").
		Then(adb.Sh("which", "su").Or(adb.Sh("echo", "noroot"))).
		Then(adb.Sh("am", "get-current-user")).
		Then(adb.Sh("stat", "--format", "%a", "/data"))
	out, err := client.ShellString(ctx, query)
	if err != nil {
		return nil, errors.Annotate(err, "probe device").Tag(Fatal).Err()
	}
	fields := strings.Split(out, "\n")
	if len(fields) != 4 {
		return nil, errors.Reason("probe device: unexpected output %q", out).Tag(Fatal).Err()
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	shellID, suPath, user, dataPermissions := fields[0], fields[1], fields[2], fields[3]

	p := &Profile{}
	if p.HasRoot, err = acquireRoot(ctx, client, shellID, suPath); err != nil {
		return nil, errors.Annotate(err, "probe device").Err()
	}
	if p.CurrentUser, err = currentUser(ctx, user); err != nil {
		return nil, errors.Annotate(err, "probe device").Err()
	}
	p.UseRunAs = useRunAs(ctx, dataPermissions, p.IsMultiUser())
	deriveLayout(ctx, p)

	libs, err := NativeLibs(apk)
	if err != nil {
		return nil, errors.Annotate(err, "probe device").Tag(Fatal).Err()
	}
	// When traces are outside of the apk the interpreter is also outside.
	p.TracesOutsideAPK = !libs.Has(InterpreterLib)

	if logging.IsLogging(ctx, logging.Debug) {
		if df, err := client.ShellString(ctx, adb.Sh("df", "-h")); err == nil {
			logging.Debugf(ctx, "%s", df)
		}
	}
	return p, nil
}

// acquireRoot reports whether adbd runs as root, escalating with `adb root`
// when a su binary is present.
func acquireRoot(ctx context.Context, client *adb.Client, shellID, suPath string) (bool, error) {
	uid, err := strconv.Atoi(shellID)
	if err != nil {
		return false, errors.Reason("acquire root: bad uid %q", shellID).Tag(Fatal).Err()
	}
	if uid == 0 {
		logging.Infof(ctx, "adb already got root")
		return true, nil
	}
	if suPath == "noroot" {
		logging.Warningf(ctx, "adb root not available on this device")
		return false, nil
	}

	logging.Infof(ctx, "Getting adb root (may take a few seconds)")
	if err := client.Root(ctx); err != nil {
		return false, errors.Annotate(err, "acquire root").Tag(Fatal).Err()
	}
	if r := clock.Sleep(ctx, rootPollInterval); r.Err != nil {
		return false, errors.Annotate(r.Err, "acquire root").Tag(Fatal).Err()
	}
	poll := func() retry.Iterator {
		return &retry.Limited{Delay: rootPollInterval, Retries: rootPollAttempts - 1}
	}
	err = retry.Retry(ctx, poll, func() error {
		// adbd may refuse connections while it restarts.
		out, err := client.ShellString(ctx, adb.Sh("id", "-u"))
		if err != nil {
			return err
		}
		if out != "0" {
			return errors.Reason("uid is %q", out).Err()
		}
		return nil
	}, retry.LogCallback(ctx, "adb root"))
	if err != nil {
		// Device has su but we couldn't get adb root. Something is wrong.
		return false, errors.Annotate(err, "failed to get adb root").Tag(Fatal).Err()
	}
	logging.Infof(ctx, "adb root succeeded")
	return true, nil
}

func currentUser(ctx context.Context, user string) (string, error) {
	if _, err := strconv.ParseUint(user, 10, 32); err != nil {
		return "", errors.Reason("current user is not numeric: %q", user).Tag(Fatal).Err()
	}
	logging.Debugf(ctx, "Current user: %s", user)
	return user, nil
}

func useRunAs(ctx context.Context, dataPermissions string, multiUser bool) bool {
	if strings.HasSuffix(dataPermissions, "7") {
		// run-as refuses to work when /data is readable or writable by others.
		logging.Warningf(ctx, "run-as not available due to /data permissions")
		return false
	}
	if multiUser {
		logging.Warningf(ctx, "Disabling run-as for non-default user")
		return false
	}
	return true
}

// deriveLayout fills the storage locations of p, which vary by user and by
// root availability.
func deriveLayout(ctx context.Context, p *Profile) {
	p.ExternalStorage = "/storage/emulated/" + p.CurrentUser + "/chromium_tests_root/"
	p.BaseDir = "/data/user/" + p.CurrentUser + "/" + PackageName + "/"
	if p.HasRoot {
		// /data/local/tmp/ is not writable by apps, so use the app dir.
		p.TempDir = p.BaseDir + "tmp/"
		if p.IsMultiUser() {
			logging.Warningf(ctx, "Using app dir for external storage; may not work with chromium scripts and may require `setenforce 0`")
			p.ExternalStorage = p.BaseDir + "chromium_tests_root/"
		}
	} else {
		// Slower, and logs are fully buffered so they can be truncated on crashes.
		p.TempDir = "/storage/emulated/" + p.CurrentUser + "/"
	}
	logging.Debugf(ctx, "Temp dir: %s", p.TempDir)
	logging.Debugf(ctx, "External storage: %s", p.ExternalStorage)
}
