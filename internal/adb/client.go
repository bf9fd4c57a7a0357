// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adb

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Client provides the device operations used by the helper on top of a
// Bridge.
type Client struct {
	bridge Bridge
}

// NewClient wraps b.
func NewClient(b Bridge) *Client {
	return &Client{bridge: b}
}

// Shell runs s on the device and returns its raw output.
func (c *Client) Shell(ctx context.Context, s Script) ([]byte, error) {
	out, err := c.bridge.Run(ctx, Shell{Script: s})
	return out, errors.Annotate(err, "shell %q", s).Err()
}

// ShellString runs s on the device and returns its trimmed output.
func (c *Client) ShellString(ctx context.Context, s Script) (string, error) {
	out, err := c.Shell(ctx, s)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Push copies local to remote on the device.
func (c *Client) Push(ctx context.Context, local, remote string) error {
	_, err := c.bridge.Run(ctx, Push{Local: local, Remote: remote})
	return errors.Annotate(err, "push %q to %q", local, remote).Err()
}

// Pull copies remote on the device to local.
func (c *Client) Pull(ctx context.Context, remote, local string) error {
	_, err := c.bridge.Run(ctx, Pull{Remote: remote, Local: local})
	return errors.Annotate(err, "pull %q to %q", remote, local).Err()
}

// Install installs apk, replacing an existing install and allowing downgrades.
func (c *Client) Install(ctx context.Context, apk string) error {
	_, err := c.bridge.Run(ctx, Install{APK: apk, Replace: true, AllowDowngrade: true})
	return errors.Annotate(err, "install %q", apk).Err()
}

// Root restarts adbd as root. It returns before adbd is back.
func (c *Client) Root(ctx context.Context) error {
	_, err := c.bridge.Run(ctx, Root{})
	return errors.Annotate(err, "adb root").Err()
}

// ReadFile returns the content of a device file.
func (c *Client) ReadFile(ctx context.Context, remote string) ([]byte, error) {
	f, err := os.CreateTemp("", "adb-pull-")
	if err != nil {
		return nil, errors.Annotate(err, "read device file %q", remote).Err()
	}
	local := f.Name()
	f.Close()
	defer os.Remove(local)

	if err := c.Pull(ctx, remote, local); err != nil {
		return nil, errors.Annotate(err, "read device file").Err()
	}
	b, err := os.ReadFile(local)
	return b, errors.Annotate(err, "read device file %q", remote).Err()
}

// RemoveFile removes a device file. Failures are logged and ignored.
func (c *Client) RemoveFile(ctx context.Context, remote string) {
	if _, err := c.Shell(ctx, Sh("rm", "-f", remote).OrTrue()); err != nil {
		logging.Warningf(ctx, "Failed to remove %s: %s", remote, err)
	}
}

// PullDir copies the files directly inside remoteDir into localDir.
func (c *Client) PullDir(ctx context.Context, remoteDir, localDir string) error {
	out, err := c.Shell(ctx, Sh("ls", "-1", remoteDir))
	if err != nil {
		return errors.Annotate(err, "pull dir %q", remoteDir).Err()
	}
	for _, f := range strings.Split(string(out), "\n") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if err := c.Pull(ctx, path.Join(remoteDir, f), filepath.Join(localDir, f)); err != nil {
			return errors.Annotate(err, "pull dir %q", remoteDir).Err()
		}
	}
	return nil
}
