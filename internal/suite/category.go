// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package suite

import (
	"strings"

	"go.chromium.org/luci/common/errors"
	"gopkg.in/yaml.v3"
)

// Category selects the data staged on the device for a suite.
type Category int

const (
	// None stages nothing.
	None Category = iota
	Trace
	End2End
	SystemInfo
	DeqpGLES2
	DeqpGLES3
	DeqpGLES31
	DeqpGLES32
	// DeqpOther is a dEQP suite matching none of the known data sets.
	DeqpOther
)

// Well known suite names.
const (
	TraceSuite      = "angle_trace_tests"
	End2EndSuite    = "angle_end2end_tests"
	SystemInfoSuite = "angle_system_info_test"
)

var categoryNames = map[Category]string{
	None:       "none",
	Trace:      "trace",
	End2End:    "end2end",
	SystemInfo: "system_info",
	DeqpGLES2:  "deqp_gles2",
	DeqpGLES3:  "deqp_gles3",
	DeqpGLES31: "deqp_gles31",
	DeqpGLES32: "deqp_gles32",
	DeqpOther:  "deqp_other",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "unknown"
}

// IsDeqp reports whether c is one of the dEQP categories.
func (c Category) IsDeqp() bool {
	return c >= DeqpGLES2 && c <= DeqpOther
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return None, errors.Reason("unknown suite category %q", s).Err()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Category) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Classify derives the category of a suite from its name.
func Classify(name string) Category {
	switch name {
	case TraceSuite:
		return Trace
	case End2EndSuite:
		return End2End
	case SystemInfoSuite:
		return SystemInfo
	}
	if !strings.Contains(name, "_deqp_") {
		return None
	}
	switch {
	case strings.Contains(name, "_gles2_"):
		return DeqpGLES2
	case strings.Contains(name, "_gles3_"):
		return DeqpGLES3
	case strings.Contains(name, "_gles31_"):
		return DeqpGLES31
	case strings.Contains(name, "_gles32_"):
		return DeqpGLES32
	}
	return DeqpOther
}
