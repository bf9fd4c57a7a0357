// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package device discovers the state of the attached Android device and
// derives where the helper may store files on it.
package device

import (
	"strings"

	"go.chromium.org/luci/common/errors"

	"github.com/1sLand99/angle/internal/adb"
)

const (
	// PackageName is the instrumented test package.
	PackageName = "com.android.angle.test"

	// InterpreterLib is only packed into the APK when traces are inside it.
	InterpreterLib = "libangle_trace_interpreter.so"
)

// Fatal tags errors after which no further progress is possible, such as an
// unreachable device or a failed root escalation.
var Fatal = errors.BoolTag{Key: errors.NewTagKey("fatal device error")}

// Profile is the immutable description of the device derived by one probe.
type Profile struct {
	// HasRoot is true when adbd runs as root.
	HasRoot bool `yaml:"has_root"`
	// CurrentUser is the numeric id of the foreground user.
	CurrentUser string `yaml:"current_user"`
	// UseRunAs is true when app storage must be accessed through run-as.
	UseRunAs bool `yaml:"use_run_as"`
	// ExternalStorage holds test data, ending with a slash.
	ExternalStorage string `yaml:"external_storage"`
	// TempDir holds temporary files, ending with a slash.
	TempDir string `yaml:"temp_dir"`
	// BaseDir is the home directory of the test package, ending with a slash.
	BaseDir string `yaml:"base_dir"`
	// TracesOutsideAPK is true when trace libraries are pushed separately.
	TracesOutsideAPK bool `yaml:"traces_outside_apk"`
}

// IsMultiUser reports whether the foreground user is not the default user.
func (p *Profile) IsMultiUser() bool {
	return p.CurrentUser != "0"
}

// WrapRunAs wraps s in run-as when the profile requires it.
func (p *Profile) WrapRunAs(s adb.Script) adb.Script {
	if p.UseRunAs {
		return s.RunAs(PackageName)
	}
	return s
}

// NeedsRunAs reports whether devicePath must be accessed through run-as.
// Only /data is protected.
func (p *Profile) NeedsRunAs(devicePath string) bool {
	return p.UseRunAs && strings.HasPrefix(devicePath, "/data")
}
