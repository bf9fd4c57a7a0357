// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devtemp

import (
	"context"
	"regexp"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/data/rand/cryptorand"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/adb/adbtest"
)

func TestTempPaths(t *testing.T) {
	t.Parallel()
	Convey("temp paths", t, func() {
		ctx := cryptorand.MockForTest(context.Background(), 42)
		dev := adbtest.New()
		client := adb.NewClient(dev)

		Convey("file names carry a hex suffix and nothing is created", func() {
			f, err := NewFile(ctx, client, "/data/user/0/com.android.angle.test/tmp/")
			So(err, ShouldBeNil)
			So(regexp.MustCompile(`^/data/user/0/com.android.angle.test/tmp/temp_file-[0-9a-f]+$`).MatchString(f.String()), ShouldBeTrue)
			So(dev.Commands, ShouldBeEmpty)

			So(f.Release(ctx), ShouldBeNil)
			So(dev.Shells(), ShouldResemble, []string{"rm -f " + f.String()})
		})
		Convey("two reservations differ", func() {
			a, err := NewFile(ctx, client, "/tmp")
			So(err, ShouldBeNil)
			b, err := NewFile(ctx, client, "/tmp")
			So(err, ShouldBeNil)
			So(a.String(), ShouldNotEqual, b.String())
		})
		Convey("dirs are created and recursively removed", func() {
			d, err := NewDir(ctx, client, "/tmp")
			So(err, ShouldBeNil)
			So(dev.Dirs.Has(d.String()), ShouldBeTrue)
			dev.Files[d.String()+"/frame.png"] = []byte("x")

			So(d.Release(ctx), ShouldBeNil)
			So(dev.Files, ShouldBeEmpty)
			So(dev.Shells()[1], ShouldEqual, "rm -rf "+d.String())
		})
		Convey("dir creation failure is returned", func() {
			dev.Fail("^mkdir ")
			_, err := NewDir(ctx, client, "/tmp")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestStack(t *testing.T) {
	t.Parallel()
	Convey("Stack", t, func() {
		ctx := cryptorand.MockForTest(context.Background(), 7)
		ctx = memlogger.Use(ctx)
		log := logging.Get(ctx).(*memlogger.MemLogger)
		dev := adbtest.New()
		client := adb.NewClient(dev)

		first, err := NewFile(ctx, client, "/tmp")
		So(err, ShouldBeNil)
		second, err := NewDir(ctx, client, "/tmp")
		So(err, ShouldBeNil)

		var s Stack
		s.Push(first)
		s.Push(second)

		Convey("releases in reverse order", func() {
			So(s.Release(ctx), ShouldBeNil)
			shells := dev.Shells()
			So(shells[len(shells)-2], ShouldEqual, "rm -rf "+second.String())
			So(shells[len(shells)-1], ShouldEqual, "rm -f "+first.String())
		})
		Convey("keeps going and logs when a release fails", func() {
			dev.Fail("^rm -rf ")
			err := s.Release(ctx)
			So(err, ShouldNotBeNil)
			So(dev.CountShells("^rm -f "), ShouldEqual, 1)
			So(log.HasFunc(func(m *memlogger.LogEntry) bool { return m.Level == logging.Warning }), ShouldBeTrue)
		})
	})
}
