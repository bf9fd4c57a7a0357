// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package results

import (
	"encoding/json"

	"go.chromium.org/luci/common/errors"
)

// Result is the part of the isolated script test output deciding whether a
// run passed.
type Result struct {
	NumFailuresByType map[string]int `json:"num_failures_by_type"`
	// Interrupted is normally set to false by the test runner. A missing
	// key counts as interrupted, a null value does not.
	Interrupted  bool `json:"-"`
	IsUnexpected bool `json:"is_unexpected"`
}

// listTestsResult stands in for the result file when only listing tests.
const listTestsResult = `{"interrupted": false}`

// Parse decodes a result file, returning both the typed view and the
// generic JSON object.
func Parse(b []byte) (Result, map[string]interface{}, error) {
	var r Result
	if err := json.Unmarshal(b, &r); err != nil {
		return Result{}, nil, errors.Annotate(err, "parse result").Err()
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Result{}, nil, errors.Annotate(err, "parse result").Err()
	}
	r.Interrupted = true
	if v, ok := raw["interrupted"]; ok {
		r.Interrupted = truthy(v)
	}
	return r, raw, nil
}

// truthy reports whether a decoded JSON value is set to something other
// than null, false, zero or an empty string.
func truthy(v interface{}) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	}
	return true
}

// Failed reports whether the run had failures or did not complete.
func (r Result) Failed() bool {
	return r.NumFailuresByType["FAIL"] != 0 || r.Interrupted || r.IsUnexpected
}

// ExitCode is 1 for failed runs and 0 otherwise.
func (r Result) ExitCode() int {
	if r.Failed() {
		return 1
	}
	return 0
}
