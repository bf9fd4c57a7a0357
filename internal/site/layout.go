// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package site

import (
	"path/filepath"
	"strings"

	"go.chromium.org/luci/common/errors"
)

// Layout locates host build artifacts. The helper runs from the build output
// directory, which lives two levels below the source checkout by default.
type Layout struct {
	// SourceRoot is the absolute path of the source checkout.
	SourceRoot string
	// OutDir is the absolute path of the build output directory.
	OutDir string
}

// NewLayout resolves sourceRoot and outDir to absolute paths.
func NewLayout(sourceRoot, outDir string) (Layout, error) {
	src, err := filepath.Abs(sourceRoot)
	if err != nil {
		return Layout{}, errors.Annotate(err, "new layout").Err()
	}
	out, err := filepath.Abs(outDir)
	if err != nil {
		return Layout{}, errors.Annotate(err, "new layout").Err()
	}
	return Layout{SourceRoot: src, OutDir: out}, nil
}

// Source returns a path inside the source checkout. rel uses slashes.
func (l Layout) Source(rel string) string {
	return filepath.Join(l.SourceRoot, filepath.FromSlash(rel))
}

// Out returns a path inside the build output directory. rel uses slashes.
func (l Layout) Out(rel string) string {
	return filepath.Join(l.OutDir, filepath.FromSlash(rel))
}

// APK returns the test package built for suite.
func (l Layout) APK(suite string) string {
	return l.Out(suite + "_apk/" + suite + "-debug.apk")
}

// DeviceName maps a host path to its device path relative to the external
// storage root: build outputs keep their path below the output directory and
// sources keep their path below the checkout.
func (l Layout) DeviceName(hostPath string) (string, error) {
	for _, base := range []string{l.OutDir, l.SourceRoot} {
		rel, err := filepath.Rel(base, hostPath)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel), nil
		}
	}
	return "", errors.Reason("%q is outside of %q", hostPath, l.SourceRoot).Err()
}
