// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adb

import (
	"go.chromium.org/luci/common/errors"
)

// ExitCodeTag is the key for the exit code of a failed adb invocation.
var ExitCodeTag = errors.NewTagKey("adb_exit_code")

// ExitCode returns the exit code carried by err, if any.
func ExitCode(err error) (int, bool) {
	v, ok := errors.TagValueIn(ExitCodeTag, err)
	if !ok {
		return 0, false
	}
	code, ok := v.(int)
	return code, ok
}
