// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package suite

import (
	"context"
)

const (
	traceExpectations   = "src/tests/perf_tests/angle_trace_tests_expectations.txt"
	end2endExpectations = "src/tests/angle_end2end_tests_expectations.txt"
)

// stage copies the runtime data of category c to external storage.
func (i *Installer) stage(ctx context.Context, c Category) error {
	switch {
	case c == Trace:
		patterns := []string{
			i.layout.Source("src/tests/restricted_traces/*/*.json"),
			i.layout.Out("gen/trace_list.json"),
		}
		if err := i.sync.SyncDirectory(ctx, patterns, "t.tar"); err != nil {
			return err
		}
		return i.push(ctx, traceExpectations)
	case c.IsDeqp():
		return i.sync.SyncDirectory(ctx, i.deqpPatterns(c), "deqp.tar")
	case c == End2End:
		return i.push(ctx, end2endExpectations)
	}
	return nil
}

func (i *Installer) push(ctx context.Context, rel string) error {
	return i.client.Push(ctx, i.layout.Source(rel), i.profile.ExternalStorage+rel)
}

func (i *Installer) deqpPatterns(c Category) []string {
	patterns := []string{
		i.layout.Source("third_party/VK-GL-CTS/src/external/openglcts/data/gl_cts/data/mustpass/*/*/main/*.txt"),
		i.layout.Source("src/tests/deqp_support/*.txt"),
	}
	switch c {
	case DeqpGLES2:
		patterns = append(patterns, i.layout.Out("gen/vk_gl_cts_data/data/gles2/**"))
	case DeqpGLES3:
		patterns = append(patterns,
			i.layout.Out("gen/vk_gl_cts_data/data/gles3/**"),
			i.layout.Out("gen/vk_gl_cts_data/data/gl_cts/data/gles3/**"))
	case DeqpGLES31:
		patterns = append(patterns,
			i.layout.Out("gen/vk_gl_cts_data/data/gles31/**"),
			i.layout.Out("gen/vk_gl_cts_data/data/gl_cts/data/gles31/**"))
	case DeqpGLES32:
		patterns = append(patterns, i.layout.Out("gen/vk_gl_cts_data/data/gl_cts/data/gles32/**"))
	default:
		// The harness crashes if vk_gl_cts_data/data doesn't exist, so add a file.
		patterns = append(patterns, i.layout.Out("gen/vk_gl_cts_data/data/gles2/data/brick.png"))
	}
	return patterns
}
