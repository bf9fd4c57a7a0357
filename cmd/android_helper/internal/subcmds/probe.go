// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package subcmds

import (
	"fmt"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/errors"
	"gopkg.in/yaml.v3"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/suite"
)

// ProbeCmd prints the device profile.
var ProbeCmd = probeCmd(nil)

func probeCmd(bridge adb.Bridge) *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "probe [options ...]",
		ShortDesc: "probe the device",
		LongDesc:  "Probe the device for root, user and storage layout and print the result.",
		CommandRun: func() subcommands.CommandRun {
			c := &probeRun{}
			c.register(suite.SystemInfoSuite, bridge)
			return c
		},
	}
}

type probeRun struct {
	commonRun
}

// Run implements subcommands.CommandRun.
func (c *probeRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	return report(a, c.innerRun(a, args, env))
}

func (c *probeRun) innerRun(a subcommands.Application, args []string, env subcommands.Env) error {
	ctx := c.context(a, c, env)
	h, err := c.helper(ctx)
	if err != nil {
		return errors.Annotate(err, "probe").Err()
	}
	out, err := yaml.Marshal(h.Profile())
	if err != nil {
		return errors.Annotate(err, "probe").Err()
	}
	fmt.Fprint(a.GetOut(), string(out))
	return nil
}
