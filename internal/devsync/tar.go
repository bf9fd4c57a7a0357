// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devsync

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar"
	"github.com/dustin/go-humanize"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/1sLand99/angle/internal/adb"
)

// SyncDirectory copies every host file matching patterns into external
// storage in a single transfer: the files are packed into archiveName,
// pushed, and unpacked on the device. Patterns are host paths and may use
// `**`.
func (e *Engine) SyncDirectory(ctx context.Context, patterns []string, archiveName string) error {
	f, err := os.CreateTemp("", "devsync-*.tar")
	if err != nil {
		return errors.Annotate(err, "sync directory").Err()
	}
	local := f.Name()
	defer os.Remove(local)

	n, err := e.writeTar(f, patterns)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Annotate(err, "sync directory %q", archiveName).Err()
	}
	if fi, err := os.Stat(local); err == nil {
		logging.Debugf(ctx, "Packed %d entries into %s (%s)", n, archiveName, humanize.Bytes(uint64(fi.Size())))
	}

	root := e.profile.ExternalStorage
	archive := root + archiveName
	if err := e.client.Push(ctx, local, archive); err != nil {
		return errors.Annotate(err, "sync directory %q", archiveName).Err()
	}
	extract := adb.Sh("tar", "--no-same-permissions", "--no-same-owner", "-xf", archive, "-C", root).
		And(adb.Sh("rm", archive)).
		And(adb.Sh("chmod", "-R", "o+r", root))
	if _, err := e.client.Shell(ctx, extract); err != nil {
		return errors.Annotate(err, "sync directory %q", archiveName).Err()
	}
	return nil
}

// writeTar writes a GNU tar of the files matching patterns to w and returns
// the number of entries. Directories are added with their content.
func (e *Engine) writeTar(w io.Writer, patterns []string) (int, error) {
	tw := tar.NewWriter(w)
	seen := stringset.New(0)
	add := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !seen.Add(p) {
			return nil
		}
		return e.addEntry(tw, p, d)
	}
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(pattern)
		if err != nil {
			return 0, errors.Annotate(err, "glob %q", pattern).Err()
		}
		for _, m := range matches {
			if err := filepath.WalkDir(m, add); err != nil {
				return 0, errors.Annotate(err, "add %q", m).Err()
			}
		}
	}
	return seen.Len(), tw.Close()
}

func (e *Engine) addEntry(tw *tar.Writer, p string, d fs.DirEntry) error {
	name, err := e.layout.DeviceName(p)
	if err != nil {
		return err
	}
	fi, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if fi.IsDir() {
		hdr.Name += "/"
	}
	hdr.Format = tar.FormatGNU
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return nil
	}
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
