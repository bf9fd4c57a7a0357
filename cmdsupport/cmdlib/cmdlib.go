// Copyright 2018 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package cmdlib holds helpers shared by subcommands.
package cmdlib

import (
	"flag"
	"fmt"
	"io"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/errors"
)

// UserErrorReporter reports a detailed error message to the user.
//
// PrintError() uses a UserErrorReporter to print multi-line user error details
// along with the actual error.
type UserErrorReporter interface {
	// Report a user-friendly error through w.
	ReportUserError(w io.Writer)
}

// PrintError reports errors back to the user.
//
// Detailed error information is printed if err is a UserErrorReporter.
func PrintError(a subcommands.Application, err error) {
	var u UserErrorReporter
	if errors.As(err, &u) {
		u.ReportUserError(a.GetErr())
	} else {
		fmt.Fprintf(a.GetErr(), "%s: %s\n", a.GetName(), err)
	}
}

// NewUsageError creates a new error that also reports flags usage error
// details.
func NewUsageError(flags *flag.FlagSet, format string, a ...interface{}) error {
	return &usageError{
		error: fmt.Errorf(format, a...),
		flags: flags,
	}
}

// NewQuietUsageError creates a new error that only reports flags usage error details
func NewQuietUsageError(flags *flag.FlagSet, format string, a ...interface{}) error {
	return &usageError{
		error: fmt.Errorf(format, a...),
		flags: flags,
		quiet: true,
	}
}

type usageError struct {
	error
	flags *flag.FlagSet
	quiet bool
}

func (e *usageError) ReportUserError(w io.Writer) {
	fmt.Fprintf(w, "%s\n\nUsage:\n\n", e.error)
	if !e.quiet {
		e.flags.SetOutput(w)
		e.flags.PrintDefaults()
	} else {
		fmt.Fprintf(w, "please run `$command -help` to check the usage\n")
	}
}
