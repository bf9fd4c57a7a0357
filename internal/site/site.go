// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package site contains site local constants and flags for android_helper.
package site

import (
	"context"
	"flag"

	"go.chromium.org/luci/common/logging"
)

// AppName is the name of the CLI.
const AppName = "android_helper"

const (
	// DefaultSourceRoot is the checkout relative to the usual working dir,
	// the build output directory out/<config>.
	DefaultSourceRoot = "../.."
	// DefaultOutDir is the build output directory.
	DefaultOutDir = "."
)

// CommonFlags controls the flags shared by every subcommand.
type CommonFlags struct {
	ADB          string
	SourceRoot   string
	OutDir       string
	SuitesConfig string
	Log          logging.Config
}

// Register sets up the common flags.
func (f *CommonFlags) Register(fl *flag.FlagSet) {
	fl.StringVar(&f.ADB, "adb", "", "path to adb; defaults to the one of the Android SDK in the checkout, then to adb in PATH")
	fl.StringVar(&f.SourceRoot, "source-root", DefaultSourceRoot, "root of the checkout")
	fl.StringVar(&f.OutDir, "out-dir", DefaultOutDir, "build output directory holding the APKs")
	fl.StringVar(&f.SuitesConfig, "suites-config", "", "optional YAML file describing suites")
	f.Log.Level = logging.Info
	f.Log.AddFlags(fl)
}

// Layout returns the host layout named by the flags.
func (f *CommonFlags) Layout() (Layout, error) {
	return NewLayout(f.SourceRoot, f.OutDir)
}

// UseLogging applies the log level flag to ctx.
func (f *CommonFlags) UseLogging(ctx context.Context) context.Context {
	return f.Log.Set(ctx)
}
