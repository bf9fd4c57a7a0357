// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package suite

import (
	"os"
	"path/filepath"

	"go.chromium.org/luci/common/errors"
	"gopkg.in/yaml.v3"

	"github.com/1sLand99/angle/internal/site"
)

// Suite is a test suite packaged as an APK.
type Suite struct {
	Name     string
	Category Category
	// APK is the host path of the package.
	APK string
}

// Config lists suites whose category or APK can't be derived from the name.
type Config struct {
	Suites []SuiteConfig `yaml:"suites"`
}

// SuiteConfig overrides how one suite is resolved.
type SuiteConfig struct {
	Name string `yaml:"name"`
	// Category defaults to the one derived from the name.
	Category *Category `yaml:"category"`
	// APK is resolved against the build output directory when relative.
	APK string `yaml:"apk"`
}

// Registry resolves suite names. A suite is classified once, when first
// registered or looked up.
type Registry struct {
	layout site.Layout
	suites map[string]Suite
}

// NewRegistry returns an empty registry.
func NewRegistry(layout site.Layout) *Registry {
	return &Registry{layout: layout, suites: map[string]Suite{}}
}

// LoadConfig registers the suites listed in the YAML file at path.
func (r *Registry) LoadConfig(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotate(err, "load suites config").Err()
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return errors.Annotate(err, "load suites config %q", path).Err()
	}
	for _, sc := range cfg.Suites {
		if sc.Name == "" {
			return errors.Reason("load suites config %q: suite without name", path).Err()
		}
		s := Suite{Name: sc.Name, Category: Classify(sc.Name), APK: sc.APK}
		if sc.Category != nil {
			s.Category = *sc.Category
		}
		r.Register(s)
	}
	return nil
}

// Register adds s, replacing any suite of the same name.
func (r *Registry) Register(s Suite) {
	switch {
	case s.APK == "":
		s.APK = r.layout.APK(s.Name)
	case !filepath.IsAbs(s.APK):
		s.APK = r.layout.Out(s.APK)
	}
	r.suites[s.Name] = s
}

// Lookup returns the suite called name, classifying it by name if it was
// never registered.
func (r *Registry) Lookup(name string) Suite {
	if s, ok := r.suites[name]; ok {
		return s
	}
	r.Register(Suite{Name: name, Category: Classify(name)})
	return r.suites[name]
}
