// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adb

import (
	"os/exec"
)

// Commander executes a prepared host process and returns its stdout.
type Commander interface {
	Exec(*exec.Cmd) ([]byte, error)
}

// ExecCommander runs processes for real.
type ExecCommander struct{}

// Exec implements Commander.
//
// Stderr is captured into the returned *exec.ExitError.
func (ExecCommander) Exec(cmd *exec.Cmd) ([]byte, error) {
	return cmd.Output()
}

// FakeCommander is used to fake process results in tests.
type FakeCommander struct {
	CmdOutput string
	Err       error
	FakeFn    func(*exec.Cmd) ([]byte, error)
	// Cmds records every executed command.
	Cmds []*exec.Cmd
}

// Exec implements Commander.
func (f *FakeCommander) Exec(in *exec.Cmd) ([]byte, error) {
	f.Cmds = append(f.Cmds, in)
	if f.FakeFn != nil {
		return f.FakeFn(in)
	}
	return []byte(f.CmdOutput), f.Err
}
