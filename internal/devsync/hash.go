// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strconv"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/1sLand99/angle/internal/adb"
)

// gzTailSize is how much of a gzip file is hashed. The last 8 bytes of gzip
// hold the CRC-32 and the uncompressed size, and the preceding bytes change
// with changes in the middle of the stream.
const gzTailSize = 4096

// Task is one file to keep in sync.
type Task struct {
	Local  string
	Remote string
	// Compressed files are compared by their trailing gzTailSize bytes.
	Compressed bool
}

// NewTask returns the task syncing local to remote.
func NewTask(local, remote string) Task {
	return Task{Local: local, Remote: remote, Compressed: strings.HasSuffix(local, ".gz")}
}

// LocalHash returns the hex SHA-256 of a host file, restricted to its tail
// when compressed.
func LocalHash(local string, compressed bool) (string, error) {
	f, err := os.Open(local)
	if err != nil {
		return "", errors.Annotate(err, "local hash").Err()
	}
	defer f.Close()
	if compressed {
		fi, err := f.Stat()
		if err != nil {
			return "", errors.Annotate(err, "local hash").Err()
		}
		if offset := fi.Size() - gzTailSize; offset > 0 {
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				return "", errors.Annotate(err, "local hash").Err()
			}
		}
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Annotate(err, "local hash %q", local).Err()
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// deviceHashScript prints the hash of t.Remote computed the same way as
// LocalHash, or nothing when the file is missing.
func deviceHashScript(t Task) adb.Script {
	var hash adb.Script
	if t.Compressed {
		hash = adb.Sh("tail", "-c", strconv.Itoa(gzTailSize), t.Remote).Pipe(adb.Sh("sha256sum", "-b"))
	} else {
		hash = adb.Sh("sha256sum", "-b", t.Remote)
	}
	return adb.Sh("test", "-f", t.Remote).And(hash).OrTrue()
}

// DeviceHash returns the hash of t.Remote on the device, empty when the file
// does not exist.
func (e *Engine) DeviceHash(ctx context.Context, t Task) (string, error) {
	script := deviceHashScript(t)
	if e.profile.NeedsRunAs(t.Remote) {
		// Files on /data aren't accessible without root.
		script = e.profile.WrapRunAs(script)
	}
	out, err := e.client.ShellString(ctx, script)
	if err != nil {
		return "", errors.Annotate(err, "device hash").Err()
	}
	// Some sha256sum implementations append the file name.
	if fields := strings.Fields(out); len(fields) > 0 {
		return fields[0], nil
	}
	return "", nil
}

// HashesMatch reports whether the device already holds t.Local at t.Remote.
func (e *Engine) HashesMatch(ctx context.Context, t Task) (bool, error) {
	device, err := e.DeviceHash(ctx, t)
	if err != nil {
		return false, err
	}
	if device == "" {
		logging.Debugf(ctx, "%s not found on device", t.Remote)
		return false, nil
	}
	local, err := LocalHash(t.Local, t.Compressed)
	if err != nil {
		return false, err
	}
	return local == device, nil
}
