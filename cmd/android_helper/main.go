// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/logging/gologger"

	"github.com/1sLand99/angle/cmd/android_helper/internal/subcmds"
	"github.com/1sLand99/angle/internal/site"
)

// getApplication returns the android_helper command line application.
func getApplication() *cli.Application {
	return &cli.Application{
		Name:  site.AppName,
		Title: "Runs ANGLE test suites on an Android device through adb",
		Context: func(ctx context.Context) context.Context {
			return gologger.StdConfig.Use(ctx)
		},
		Commands: []*subcommands.Command{
			subcommands.CmdHelp,
			subcmds.ProbeCmd,
			subcmds.FingerprintCmd,
			subcmds.TempsCmd,
			subcmds.PrepareCmd,
			subcmds.SyncTracesCmd,
			subcmds.RunCmd,
			subcmds.SystemInfoCmd,
		},
	}
}

// main is the entrypoint to the android_helper command line application.
func main() {
	os.Exit(subcommands.Run(getApplication(), nil))
}
