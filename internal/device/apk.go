// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package device

import (
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
)

// NativeLibs returns the base names of the shared libraries packed in apk.
func NativeLibs(apk string) (stringset.Set, error) {
	r, err := zip.OpenReader(apk)
	if err != nil {
		return nil, errors.Annotate(err, "native libs of %q", apk).Err()
	}
	defer r.Close()
	libs := stringset.New(0)
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, ".so") {
			libs.Add(path.Base(f.Name))
		}
	}
	return libs, nil
}
