// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adb

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// FindADB locates the adb binary and logs its version.
//
// On Windows adb.exe is taken from PATH. Elsewhere the SDK checked out under
// sourceRoot wins over PATH.
func FindADB(ctx context.Context, sourceRoot string, commander Commander) (string, error) {
	adbPath := "adb"
	if runtime.GOOS == "windows" {
		adbPath = "adb.exe"
	} else {
		platformTools := filepath.Join(sourceRoot, "third_party", "android_sdk", "public", "platform-tools")
		if _, err := os.Stat(platformTools); err == nil {
			adbPath = filepath.Join(platformTools, "adb")
		}
	}

	out, err := NewBridge(adbPath, commander).Run(ctx, Version{})
	if err != nil {
		return "", errors.Annotate(err, "find adb").Err()
	}
	info := strings.Join(strings.Split(strings.TrimSpace(string(out)), "\n"), ", ")
	logging.Infof(ctx, "adb --version: %s", info)
	return adbPath, nil
}
