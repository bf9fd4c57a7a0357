// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package helper is the entry point for test harnesses running suites on an
// Android device. A Helper owns the device session: the probed profile, the
// prepared suite and every component acting on the device.
package helper

import (
	"context"
	"os"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/environ"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/devsync"
	"github.com/1sLand99/angle/internal/device"
	"github.com/1sLand99/angle/internal/instrument"
	"github.com/1sLand99/angle/internal/results"
	"github.com/1sLand99/angle/internal/site"
	"github.com/1sLand99/angle/internal/suite"
)

// ErrNotAndroid is returned by device operations when the build has no APK
// for the suite Initialize was called with.
var ErrNotAndroid = errors.Reason("not an Android build").Err()

// Options configure a Helper.
type Options struct {
	Layout site.Layout
	// ADB is the adb binary. It is searched for when empty.
	ADB string
	// SuitesConfig is an optional YAML file describing suites.
	SuitesConfig string
	// Env provides the frame capture settings.
	Env environ.Env
	// Bridge overrides the adb bridge, for tests.
	Bridge adb.Bridge
}

// Helper drives one device.
type Helper struct {
	opts     Options
	registry *suite.Registry

	initialized bool
	isAndroid   bool

	client    *adb.Client
	profile   *device.Profile
	sync      *devsync.Engine
	session   *suite.Session
	runner    *instrument.Runner
	collector *results.Collector
}

// New returns a helper. Nothing touches the device until Initialize.
func New(ctx context.Context, opts Options) (*Helper, error) {
	registry := suite.NewRegistry(opts.Layout)
	if opts.SuitesConfig != "" {
		if err := registry.LoadConfig(opts.SuitesConfig); err != nil {
			return nil, errors.Annotate(err, "new helper").Err()
		}
	}
	return &Helper{opts: opts, registry: registry}, nil
}

// Initialize decides whether this is an Android build, which is the case
// when the APK of suiteName exists, and probes the device if so. Only the
// first call has an effect.
func (h *Helper) Initialize(ctx context.Context, suiteName string) error {
	if h.initialized {
		return nil
	}
	apk := h.registry.Lookup(suiteName).APK
	if _, err := os.Stat(apk); err != nil {
		logging.Debugf(ctx, "No APK at %s, not running on Android", apk)
		h.initialized = true
		return nil
	}

	bridge := h.opts.Bridge
	if bridge == nil {
		path := h.opts.ADB
		if path == "" {
			var err error
			if path, err = adb.FindADB(ctx, h.opts.Layout.SourceRoot, nil); err != nil {
				return errors.Annotate(err, "initialize").Tag(device.Fatal).Err()
			}
		}
		bridge = adb.NewBridge(path, nil)
	}
	client := adb.NewClient(bridge)
	profile, err := device.NewProber(client, apk).Profile(ctx)
	if err != nil {
		return errors.Annotate(err, "initialize").Err()
	}

	h.client = client
	h.profile = profile
	h.sync = devsync.New(client, profile, h.opts.Layout)
	h.session = suite.NewSession(h.registry, suite.NewInstaller(client, profile, h.opts.Layout, h.sync))
	h.runner = instrument.NewRunner(client, profile, h.opts.Env)
	h.collector = results.NewCollector(client, profile, h.session, h.runner)
	h.isAndroid = true
	h.initialized = true
	return nil
}

// IsAndroid reports whether Initialize found an Android build.
func (h *Helper) IsAndroid() bool {
	return h.isAndroid
}

// Profile returns the device profile, nil when not on Android.
func (h *Helper) Profile() *device.Profile {
	return h.profile
}

// Stats returns the transfers done so far.
func (h *Helper) Stats() devsync.Stats {
	if h.sync == nil {
		return devsync.Stats{}
	}
	return h.sync.Stats()
}

// PrepareSuite makes sure suiteName is installed and its data staged.
func (h *Helper) PrepareSuite(ctx context.Context, suiteName string) error {
	if !h.isAndroid {
		return ErrNotAndroid
	}
	return h.session.EnsureSuite(ctx, suiteName)
}

// RunTests runs suiteName with args. See results.Collector.RunTests.
func (h *Helper) RunTests(ctx context.Context, suiteName string, args []string, opts results.Options) results.Outcome {
	if !h.isAndroid {
		logging.Errorf(ctx, "Running %s: %s", suiteName, ErrNotAndroid)
		return results.Outcome{ExitCode: 1}
	}
	return h.collector.RunTests(ctx, suiteName, args, opts)
}

// PrepareRestrictedTraces syncs the data and libraries of traces.
func (h *Helper) PrepareRestrictedTraces(ctx context.Context, traces []string) error {
	if !h.isAndroid {
		return ErrNotAndroid
	}
	return h.sync.SyncTraces(ctx, traces)
}
