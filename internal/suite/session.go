// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package suite

import (
	"context"

	"go.chromium.org/luci/common/logging"
)

// Session tracks the one suite currently prepared on the device.
type Session struct {
	registry  *Registry
	installer *Installer
	current   string
}

// NewSession returns a session with no prepared suite.
func NewSession(registry *Registry, installer *Installer) *Session {
	return &Session{registry: registry, installer: installer}
}

// Current returns the name of the prepared suite, empty if none.
func (s *Session) Current() string {
	return s.current
}

// EnsureSuite prepares the suite called name unless it is the current one.
func (s *Session) EnsureSuite(ctx context.Context, name string) error {
	if s.current == name {
		return nil
	}
	st := s.registry.Lookup(name)
	logging.Debugf(ctx, "Preparing suite %s (%s)", st.Name, st.Category)
	if err := s.installer.PrepareSuite(ctx, st); err != nil {
		return err
	}
	s.current = name
	return nil
}
