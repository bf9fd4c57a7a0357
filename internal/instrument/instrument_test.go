// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package instrument

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/data/rand/cryptorand"
	"go.chromium.org/luci/common/system/environ"
	. "go.chromium.org/luci/common/testing/assertions"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/adb/adbtest"
	"github.com/1sLand99/angle/internal/device"
)

const tempDir = "/data/user/0/com.android.angle.test/tmp/"

var stdoutFileRE = regexp.MustCompile(`StdoutFile (\S+)`)

func testProfile() *device.Profile {
	return &device.Profile{
		HasRoot:     true,
		CurrentUser: "0",
		UseRunAs:    true,
		TempDir:     tempDir,
		BaseDir:     "/data/user/0/com.android.angle.test/",
	}
}

// seededRand makes temp names deterministic.
func seededRand(ctx context.Context) context.Context {
	return cryptorand.MockForTest(ctx, 0)
}

func TestCommand(t *testing.T) {
	t.Parallel()
	r := NewRunner(nil, testProfile(), environ.New(nil))
	got := r.Command("/tmp/out", []string{"--gtest_filter=Foo.*", "--verbose"}).String()
	want := "am instrument --user 0 -w" +
		" -e org.chromium.native_test.NativeTestInstrumentationTestRunner.StdoutFile /tmp/out" +
		" -e org.chromium.native_test.NativeTest.CommandLineFlags '--gtest_filter=Foo.* --verbose'" +
		" -e org.chromium.native_test.NativeTestInstrumentationTestRunner.ShardNanoTimeout 1000000000000000000" +
		" -e org.chromium.native_test.NativeTestInstrumentationTestRunner.NativeTestActivity com.android.angle.test.AngleUnitTestActivity" +
		" com.android.angle.test/org.chromium.build.gtest_apk.NativeTestInstrumentationTestRunner"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected command (-want +got):\n%s", diff)
	}
}

func TestCaptureScript(t *testing.T) {
	t.Parallel()
	Convey("captureScript", t, func() {
		env := environ.New([]string{"ANGLE_CAPTURE_FRAME_END=10", "ANGLE_CAPTURE_LABEL=foo bar"})
		lines := strings.Split(captureScript(env, "/data/x").String(), "\n")
		So(lines, ShouldHaveLength, len(CaptureProps)+1)
		So(lines[0], ShouldEqual, "setprop debug.angle.capture.out_dir /data/x")
		So(lines[1], ShouldEqual, "setprop debug.angle.capture.block_size ''")
		So(lines, ShouldContain, "setprop debug.angle.capture.frame_end 10")
		So(lines, ShouldContain, "setprop debug.angle.capture.label 'foo bar'")
		So(lines, ShouldContain, "setprop debug.angle.capture.enabled ''")
	})
}

func TestRun(t *testing.T) {
	t.Parallel()
	Convey("Run", t, func() {
		ctx := seededRand(context.Background())
		dev := adbtest.New()
		var seenProps map[string]string
		dev.Handle(`^am instrument`, func(script string) (string, error) {
			m := stdoutFileRE.FindStringSubmatch(script)
			dev.Files[m[1]] = []byte("[ RUN ] Foo.Bar\n")
			seenProps = map[string]string{}
			for k, v := range dev.Props {
				seenProps[k] = v
			}
			if dir := dev.Props[OutDirProp]; dir != "" {
				dev.Files[dir+"/frame_1.angledata"] = []byte("frame")
			}
			return "INSTRUMENTATION_CODE: -1\n", nil
		})

		Convey("returns stdout and removes the temp file", func() {
			r := NewRunner(adb.NewClient(dev), testProfile(), environ.New(nil))
			out, err := r.Run(ctx, []string{"--gtest_filter=Foo.*"})
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, "[ RUN ] Foo.Bar\n")
			So(dev.Files, ShouldBeEmpty)
			So(dev.CountShells(`^rm -f `+tempDir+`temp_file-`), ShouldEqual, 1)
			So(dev.CountShells(`setprop`), ShouldEqual, 0)
		})
		Convey("removes the temp file when the run fails", func() {
			dev.Fail(`^am instrument`)
			r := NewRunner(adb.NewClient(dev), testProfile(), environ.New(nil))
			_, err := r.Run(ctx, nil)
			So(err, ShouldNotBeNil)
			So(dev.CountShells(`^rm -f `+tempDir+`temp_file-`), ShouldEqual, 1)
		})
		Convey("fails when stdout is missing", func() {
			dev.Respond(`^am instrument`, "")
			r := NewRunner(adb.NewClient(dev), testProfile(), environ.New(nil))
			_, err := r.Run(ctx, nil)
			So(err, ShouldErrLike, "read stdout")
		})

		Convey("with frame capture", func() {
			hostDir := t.TempDir()
			env := environ.New([]string{
				CaptureOutDirEnv + "=" + hostDir,
				"ANGLE_CAPTURE_FRAME_END=10",
			})
			r := NewRunner(adb.NewClient(dev), testProfile(), env)

			Convey("sets props around the run and pulls frames", func() {
				_, err := r.Run(ctx, nil)
				So(err, ShouldBeNil)
				So(seenProps[OutDirProp], ShouldStartWith, tempDir+"temp_dir-")
				So(seenProps["debug.angle.capture.frame_end"], ShouldEqual, "10")
				So(seenProps, ShouldContainKey, "debug.angle.capture.enabled")
				So(seenProps["debug.angle.capture.enabled"], ShouldEqual, "")
				for k, v := range dev.Props {
					So(v, ShouldEqual, "")
					So(k, ShouldStartWith, "debug.angle.capture.")
				}
				So(dev.Props, ShouldHaveLength, len(CaptureProps)+1)
				b, err := os.ReadFile(filepath.Join(hostDir, "frame_1.angledata"))
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, "frame")
				So(dev.Dirs.Len(), ShouldEqual, 0)
				So(dev.Files, ShouldBeEmpty)
			})
			Convey("resets props when the run fails", func() {
				dev.Handle(`^am instrument`, func(string) (string, error) {
					dev.Files[dev.Props[OutDirProp]+"/frame_1.angledata"] = []byte("frame")
					return "", adbtest.ErrExit(1, "crashed")
				})
				_, err := r.Run(ctx, nil)
				So(err, ShouldNotBeNil)
				So(dev.Props[OutDirProp], ShouldEqual, "")
				So(dev.Props["debug.angle.capture.frame_end"], ShouldEqual, "")
				So(dev.Pulls(), ShouldBeEmpty)
				So(dev.Files, ShouldBeEmpty)
			})
			Convey("requires an existing host dir", func() {
				env := environ.New([]string{CaptureOutDirEnv + "=" + filepath.Join(hostDir, "missing")})
				r := NewRunner(adb.NewClient(dev), testProfile(), env)
				_, err := r.Run(ctx, nil)
				So(err, ShouldErrLike, "is not a directory")
				So(dev.CountShells(`^am instrument`), ShouldEqual, 0)
			})
		})
	})
}
