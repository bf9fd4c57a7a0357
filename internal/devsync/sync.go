// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package devsync keeps host build artifacts in sync with the device,
// transferring only what the device does not already hold.
package devsync

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/device"
	"github.com/1sLand99/angle/internal/site"
)

// AppTempDir is the shared staging dir for files copied into app storage.
// run-as may copy from it but `mv` is not allowed.
const AppTempDir = "/data/local/tmp/angle_traces/"

// Stats accumulates the work done by an Engine.
type Stats struct {
	// Bytes is the total size of transferred files.
	Bytes int64
	// Files is the number of transferred files.
	Files int
	// Skipped is the number of files already up to date.
	Skipped int
}

// Engine syncs files to one device.
type Engine struct {
	client  *adb.Client
	profile *device.Profile
	layout  site.Layout
	stats   Stats
}

// New returns an engine for the device described by profile.
func New(client *adb.Client, profile *device.Profile, layout site.Layout) *Engine {
	return &Engine{client: client, profile: profile, layout: layout}
}

// Stats returns the work done so far.
func (e *Engine) Stats() Stats {
	return e.stats
}

// upToDate checks t and records the outcome in the stats.
func (e *Engine) upToDate(ctx context.Context, t Task) (bool, error) {
	match, err := e.HashesMatch(ctx, t)
	if err != nil {
		return false, err
	}
	if match {
		e.stats.Skipped++
		return true, nil
	}
	fi, err := os.Stat(t.Local)
	if err != nil {
		return false, errors.Annotate(err, "sync %q", t.Local).Err()
	}
	e.stats.Bytes += fi.Size()
	e.stats.Files++
	return false, nil
}

// SyncFile pushes local to remote unless the device copy has the same hash.
// It reports whether a transfer happened.
func (e *Engine) SyncFile(ctx context.Context, local, remote string) (bool, error) {
	t := NewTask(local, remote)
	ok, err := e.upToDate(ctx, t)
	if err != nil || ok {
		return false, errors.Annotate(err, "sync file").Err()
	}
	if err := e.client.Push(ctx, t.Local, t.Remote); err != nil {
		return false, errors.Annotate(err, "sync file").Err()
	}
	return true, nil
}

// appDir is where libraries loadable by the test package live.
func (e *Engine) appDir() string {
	return e.profile.BaseDir + "angle_traces/"
}

// PushToAppDir syncs local into the app's library directory. With run-as,
// the file is staged in AppTempDir and copied by the app, so there are
// briefly two copies of it on the device.
func (e *Engine) PushToAppDir(ctx context.Context, local string) (bool, error) {
	name := filepath.Base(local)
	t := NewTask(local, e.appDir()+name)
	ok, err := e.upToDate(ctx, t)
	if err != nil || ok {
		return false, errors.Annotate(err, "push %q to app dir", name).Err()
	}

	if !e.profile.UseRunAs {
		if err := e.client.Push(ctx, local, e.appDir()); err != nil {
			return false, errors.Annotate(err, "push %q to app dir", name).Err()
		}
		return true, nil
	}

	tmp := path.Join(AppTempDir, name)
	logging.Debugf(ctx, "Pushing %s to %s", local, tmp)
	defer e.client.RemoveFile(ctx, tmp)
	if err := e.client.Push(ctx, local, tmp); err != nil {
		return false, errors.Annotate(err, "push %q to app dir", name).Err()
	}
	cp := adb.Sh("run-as", device.PackageName, "cp", tmp, "./angle_traces/")
	if _, err := e.client.Shell(ctx, cp); err != nil {
		return false, errors.Annotate(err, "push %q to app dir", name).Err()
	}
	return true, nil
}
