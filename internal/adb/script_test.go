// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package adb

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScript(t *testing.T) {
	t.Parallel()
	Convey("Script", t, func() {
		Convey("safe arguments are left alone", func() {
			So(Sh("mkdir", "-p", "/data/local/tmp/angle_traces/"), ShouldEqual, Script("mkdir -p /data/local/tmp/angle_traces/"))
		})
		Convey("unsafe arguments are quoted", func() {
			So(Sh("rm", "-f", "/sdcard/a b; reboot"), ShouldEqual, Script("rm -f '/sdcard/a b; reboot'"))
		})
		Convey("empty arguments survive", func() {
			So(Sh("setprop", "debug.angle.capture.label", ""), ShouldEqual, Script("setprop debug.angle.capture.label ''"))
		})
		Convey("operators compose", func() {
			s := Sh("test", "-f", "/a").And(Sh("sha256sum", "-b", "/a")).OrTrue()
			So(s, ShouldEqual, Script("test -f /a && sha256sum -b /a || true"))
			So(Sh("id", "-u").Then(Sh("which", "su").Or(Sh("echo", "noroot"))), ShouldEqual, Script("id -u; which su || echo noroot"))
			So(Sh("tail", "-c", "4096", "/a").Pipe(Sh("sha256sum", "-b")), ShouldEqual, Script("tail -c 4096 /a | sha256sum -b"))
		})
		Convey("run-as wraps the whole script", func() {
			s := Sh("cp", "/data/local/tmp/x", "./angle_traces/").RunAs("com.android.angle.test")
			So(s, ShouldEqual, Script("run-as com.android.angle.test sh -c 'cp /data/local/tmp/x ./angle_traces/'"))
		})
		Convey("lines", func() {
			So(Lines(Sh("setprop", "a", "1"), Sh("setprop", "b", "2")), ShouldEqual, Script("setprop a 1\nsetprop b 2"))
		})
	})
}

func TestCommandArgs(t *testing.T) {
	t.Parallel()
	Convey("Command args", t, func() {
		So(Shell{Script: "id -u"}.Args(), ShouldResemble, []string{"shell", "id -u"})
		So(Push{Local: "a", Remote: "/b"}.Args(), ShouldResemble, []string{"push", "a", "/b"})
		So(Pull{Remote: "/b", Local: "a"}.Args(), ShouldResemble, []string{"pull", "/b", "a"})
		So(Install{APK: "x.apk"}.Args(), ShouldResemble, []string{"install", "x.apk"})
		So(Install{APK: "x.apk", Replace: true, AllowDowngrade: true}.Args(), ShouldResemble, []string{"install", "-r", "-d", "x.apk"})
		So(Root{}.Args(), ShouldResemble, []string{"root"})
		So(String(Shell{Script: "id -u"}), ShouldEqual, "adb shell 'id -u'")
	})
}
