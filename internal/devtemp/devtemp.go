// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package devtemp manages temporary device files and directories whose
// removal is guaranteed on every exit path through deferred release.
package devtemp

import (
	"context"
	"encoding/binary"
	"path"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"go.chromium.org/luci/common/data/rand/cryptorand"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/1sLand99/angle/internal/adb"
)

// Releaser is a resource released when its scope exits.
type Releaser interface {
	Release(ctx context.Context) error
}

// Path is a temporary device file or directory.
type Path struct {
	client *adb.Client
	path   string
	dir    bool
}

// String returns the device path.
func (p *Path) String() string {
	return p.path
}

// Release removes the path from the device. A missing file is not an error.
func (p *Path) Release(ctx context.Context) error {
	flag := "-f"
	if p.dir {
		flag = "-rf"
	}
	_, err := p.client.Shell(ctx, adb.Sh("rm", flag, p.path))
	return errors.Annotate(err, "release %q", p.path).Err()
}

// NewFile reserves a unique file name under dir. Nothing is created on the
// device.
func NewFile(ctx context.Context, client *adb.Client, dir string) (*Path, error) {
	suffix, err := randomHex(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "new temp device file").Err()
	}
	return &Path{client: client, path: path.Join(dir, "temp_file-"+suffix)}, nil
}

// NewDir creates a unique directory under dir.
func NewDir(ctx context.Context, client *adb.Client, dir string) (*Path, error) {
	suffix, err := randomHex(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "new temp device dir").Err()
	}
	p := &Path{client: client, path: path.Join(dir, "temp_dir-"+suffix), dir: true}
	if _, err := client.Shell(ctx, adb.Sh("mkdir", "-p", p.path)); err != nil {
		return nil, errors.Annotate(err, "new temp device dir").Err()
	}
	return p, nil
}

// randomHex returns a random 64-bit value in hex.
func randomHex(ctx context.Context) (string, error) {
	var b [8]byte
	if _, err := cryptorand.Read(ctx, b[:]); err != nil {
		return "", err
	}
	return strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 16), nil
}

// Stack releases resources in reverse order of acquisition.
type Stack struct {
	items []Releaser
}

// Push adds r to the stack.
func (s *Stack) Push(r Releaser) {
	s.items = append(s.items, r)
}

// Release releases everything on the stack, last pushed first. Every
// failure is logged as a warning; the combined error is returned for
// callers that care.
func (s *Stack) Release(ctx context.Context) error {
	var result *multierror.Error
	for i := len(s.items) - 1; i >= 0; i-- {
		if err := s.items[i].Release(ctx); err != nil {
			logging.Warningf(ctx, "Cleanup failed: %s", err)
			result = multierror.Append(result, err)
		}
	}
	s.items = nil
	return result.ErrorOrNil()
}
