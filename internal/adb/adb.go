// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package adb is the single gateway to the Android Debug Bridge.
//
// To regenerate mocks use:
// `mockgen -source=internal/adb/adb.go -destination internal/adb/mocks/mock_bridge.go -package mocks`
package adb

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Bridge executes adb commands.
//
// A non-zero exit status of adb is returned as an error.
type Bridge interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// execBridge runs the adb binary as a subprocess.
type execBridge struct {
	path      string
	commander Commander
}

// NewBridge returns a Bridge running the adb binary at path.
func NewBridge(path string, commander Commander) Bridge {
	if commander == nil {
		commander = ExecCommander{}
	}
	return &execBridge{
		path:      path,
		commander: commander,
	}
}

// Run implements Bridge.
func (b *execBridge) Run(ctx context.Context, c Command) ([]byte, error) {
	args := c.Args()
	logging.Debugf(ctx, "Executing command: %s", String(c))
	out, err := b.commander.Exec(exec.CommandContext(ctx, b.path, args...))
	if err != nil {
		return out, annotateExecError(err, args[0])
	}
	if _, ok := c.(Shell); ok && runtime.GOOS == "windows" {
		out = bytes.ReplaceAll(out, []byte("\r\n"), []byte("\n"))
	}
	return out, nil
}

func annotateExecError(err error, verb string) error {
	a := errors.Annotate(err, "adb %s", verb)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		a = a.Tag(errors.TagValue{Key: ExitCodeTag, Value: exitErr.ExitCode()})
		if stderr != "" {
			a = errors.Annotate(a.Err(), "stderr: %s", stderr)
		}
	}
	return a.Err()
}
