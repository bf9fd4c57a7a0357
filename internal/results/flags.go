// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package results

import (
	"strings"

	"go.chromium.org/luci/common/errors"
)

// Output flags rewritten to device paths.
const (
	TestOutputFlag = "--isolated-script-test-output"
	PerfOutputFlag = "--isolated-script-test-perf-output"
	RenderDirFlag  = "--render-test-output-dir"
	ListTestsFlag  = "--list-tests"
)

// RemoveFlag removes `name=value` from args and returns the rest of args and
// value. The flag may appear at most once; value is empty if it is absent.
func RemoveFlag(args []string, name string) ([]string, string, error) {
	rest := make([]string, 0, len(args))
	value := ""
	found := false
	for _, a := range args {
		v, ok := strings.CutPrefix(a, name+"=")
		if !ok {
			rest = append(rest, a)
			continue
		}
		if found {
			return nil, "", errors.Reason("%s given more than once", name).Err()
		}
		found = true
		value = v
	}
	return rest, value, nil
}

func hasFlag(args []string, name string) bool {
	for _, a := range args {
		if a == name {
			return true
		}
	}
	return false
}
