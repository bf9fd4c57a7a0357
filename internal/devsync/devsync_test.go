// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devsync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"

	"github.com/1sLand99/angle/internal/adb"
	"github.com/1sLand99/angle/internal/adb/adbtest"
	"github.com/1sLand99/angle/internal/device"
	"github.com/1sLand99/angle/internal/site"
)

const (
	externalStorage = "/storage/emulated/0/chromium_tests_root/"
	baseDir         = "/data/user/0/com.android.angle.test/"
)

func testProfile() *device.Profile {
	return &device.Profile{
		HasRoot:          true,
		CurrentUser:      "0",
		UseRunAs:         true,
		ExternalStorage:  externalStorage,
		TempDir:          baseDir + "tmp/",
		BaseDir:          baseDir,
		TracesOutsideAPK: true,
	}
}

// testLayout returns a checkout in a temp dir with the output dir at
// out/Android.
func testLayout(t *testing.T) site.Layout {
	root := t.TempDir()
	out := filepath.Join(root, "out", "Android")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	return site.Layout{SourceRoot: root, OutDir: out}
}

func writeFile(t *testing.T, p string, content []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func TestLocalHash(t *testing.T) {
	t.Parallel()
	Convey("LocalHash", t, func() {
		dir := t.TempDir()
		Convey("hashes the whole file", func() {
			content := pattern(10000)
			p := writeFile(t, filepath.Join(dir, "a.bin"), content)
			h, err := LocalHash(p, false)
			So(err, ShouldBeNil)
			So(h, ShouldEqual, sum(content))
		})
		Convey("hashes the tail of compressed files", func() {
			content := pattern(10000)
			p := writeFile(t, filepath.Join(dir, "a.gz"), content)
			h, err := LocalHash(p, true)
			So(err, ShouldBeNil)
			So(h, ShouldEqual, sum(content[len(content)-gzTailSize:]))
		})
		Convey("hashes small compressed files whole", func() {
			content := pattern(100)
			p := writeFile(t, filepath.Join(dir, "a.gz"), content)
			h, err := LocalHash(p, true)
			So(err, ShouldBeNil)
			So(h, ShouldEqual, sum(content))
		})
		Convey("fails on missing files", func() {
			_, err := LocalHash(filepath.Join(dir, "missing"), false)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestDeviceHashScript(t *testing.T) {
	t.Parallel()
	Convey("deviceHashScript", t, func() {
		So(deviceHashScript(NewTask("x.bin", "/sdcard/x.bin")), ShouldEqual,
			adb.Script("test -f /sdcard/x.bin && sha256sum -b /sdcard/x.bin || true"))
		So(deviceHashScript(NewTask("x.gz", "/sdcard/x.gz")), ShouldEqual,
			adb.Script("test -f /sdcard/x.gz && tail -c 4096 /sdcard/x.gz | sha256sum -b || true"))
	})
}

func TestSyncFile(t *testing.T) {
	t.Parallel()
	Convey("SyncFile", t, func() {
		ctx := context.Background()
		dev := adbtest.New()
		e := New(adb.NewClient(dev), testProfile(), testLayout(t))
		dir := t.TempDir()

		Convey("transfers at most once", func() {
			p := writeFile(t, filepath.Join(dir, "data.bin"), pattern(5000))
			synced, err := e.SyncFile(ctx, p, externalStorage+"data.bin")
			So(err, ShouldBeNil)
			So(synced, ShouldBeTrue)
			synced, err = e.SyncFile(ctx, p, externalStorage+"data.bin")
			So(err, ShouldBeNil)
			So(synced, ShouldBeFalse)
			So(dev.Pushes(), ShouldHaveLength, 1)
			So(dev.Files[externalStorage+"data.bin"], ShouldResemble, pattern(5000))
			So(e.Stats(), ShouldResemble, Stats{Bytes: 5000, Files: 1, Skipped: 1})
		})
		Convey("transfers changed files", func() {
			p := writeFile(t, filepath.Join(dir, "data.bin"), pattern(5000))
			_, err := e.SyncFile(ctx, p, externalStorage+"data.bin")
			So(err, ShouldBeNil)
			content := pattern(5000)
			content[0]++
			writeFile(t, p, content)
			synced, err := e.SyncFile(ctx, p, externalStorage+"data.bin")
			So(err, ShouldBeNil)
			So(synced, ShouldBeTrue)
		})
		Convey("compressed files only compare their tail", func() {
			const size = 10000
			p := writeFile(t, filepath.Join(dir, "data.angledata.gz"), pattern(size))
			remote := externalStorage + "data.angledata.gz"
			_, err := e.SyncFile(ctx, p, remote)
			So(err, ShouldBeNil)

			corrupt := func(i int) bool {
				content := pattern(size)
				content[i]++
				writeFile(t, p, content)
				synced, err := e.SyncFile(ctx, p, remote)
				So(err, ShouldBeNil)
				return synced
			}
			So(corrupt(0), ShouldBeFalse)
			So(corrupt(size-gzTailSize-1), ShouldBeFalse)
			So(corrupt(size-gzTailSize), ShouldBeTrue)
			So(corrupt(size-1), ShouldBeTrue)
		})
		Convey("uses run-as for app storage", func() {
			p := writeFile(t, filepath.Join(dir, "lib.so"), pattern(10))
			_, err := e.SyncFile(ctx, p, baseDir+"lib.so")
			So(err, ShouldBeNil)
			So(dev.Shells()[0], ShouldStartWith, "run-as com.android.angle.test sh -c ")
		})
		Convey("does not use run-as for external storage", func() {
			p := writeFile(t, filepath.Join(dir, "lib.so"), pattern(10))
			_, err := e.SyncFile(ctx, p, externalStorage+"lib.so")
			So(err, ShouldBeNil)
			So(dev.Shells()[0], ShouldStartWith, "test -f")
		})
		Convey("accepts hashes followed by the file name", func() {
			p := writeFile(t, filepath.Join(dir, "a.bin"), pattern(10))
			dev.Respond(`sha256sum`, sum(pattern(10))+" */sdcard/a.bin\n")
			synced, err := e.SyncFile(ctx, p, "/sdcard/a.bin")
			So(err, ShouldBeNil)
			So(synced, ShouldBeFalse)
		})
		Convey("surfaces push failures", func() {
			_, err := e.SyncFile(ctx, filepath.Join(dir, "missing"), externalStorage+"missing")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPushToAppDir(t *testing.T) {
	t.Parallel()
	Convey("PushToAppDir", t, func() {
		ctx := memlogger.Use(context.Background())
		log := logging.Get(ctx).(*memlogger.MemLogger)
		dev := adbtest.New()
		dev.Home = baseDir
		profile := testProfile()
		e := New(adb.NewClient(dev), profile, testLayout(t))
		p := writeFile(t, filepath.Join(t.TempDir(), "libfoo.so"), pattern(300))

		Convey("stages through the shared temp dir with run-as", func() {
			synced, err := e.PushToAppDir(ctx, p)
			So(err, ShouldBeNil)
			So(synced, ShouldBeTrue)
			So(dev.Pushes()[0].Remote, ShouldEqual, AppTempDir+"libfoo.so")
			So(dev.CountShells(`^run-as com\.android\.angle\.test cp /data/local/tmp/angle_traces/libfoo\.so \./angle_traces/$`), ShouldEqual, 1)
			So(dev.Files[baseDir+"angle_traces/libfoo.so"], ShouldResemble, pattern(300))
			So(dev.Files, ShouldNotContainKey, AppTempDir+"libfoo.so")

			synced, err = e.PushToAppDir(ctx, p)
			So(err, ShouldBeNil)
			So(synced, ShouldBeFalse)
			So(dev.Pushes(), ShouldHaveLength, 1)
		})
		Convey("ignores failure to remove the staged copy", func() {
			dev.Fail(`^rm -f`)
			synced, err := e.PushToAppDir(ctx, p)
			So(err, ShouldBeNil)
			So(synced, ShouldBeTrue)
			So(log.HasFunc(func(e *memlogger.LogEntry) bool {
				return e.Level == logging.Warning && strings.Contains(e.Msg, "Failed to remove")
			}), ShouldBeTrue)
		})
		Convey("removes the staged copy when the copy fails", func() {
			dev.Fail(`^run-as com\.android\.angle\.test cp`)
			_, err := e.PushToAppDir(ctx, p)
			So(err, ShouldNotBeNil)
			So(dev.Files, ShouldNotContainKey, AppTempDir+"libfoo.so")
		})
		Convey("pushes directly without run-as", func() {
			profile.UseRunAs = false
			synced, err := e.PushToAppDir(ctx, p)
			So(err, ShouldBeNil)
			So(synced, ShouldBeTrue)
			So(dev.Pushes()[0].Remote, ShouldEqual, baseDir+"angle_traces/")
			So(dev.Files[baseDir+"angle_traces/libfoo.so"], ShouldResemble, pattern(300))
			So(dev.CountShells(`run-as`), ShouldEqual, 0)
		})
	})
}

func TestSyncDirectory(t *testing.T) {
	t.Parallel()
	Convey("SyncDirectory", t, func() {
		ctx := context.Background()
		dev := adbtest.New()
		layout := testLayout(t)
		e := New(adb.NewClient(dev), testProfile(), layout)

		writeFile(t, layout.Source("src/tests/deqp_support/a.txt"), []byte("a"))
		writeFile(t, layout.Source("src/tests/deqp_support/b.txt"), []byte("b"))
		writeFile(t, layout.Source("src/tests/deqp_support/c.json"), []byte("c"))
		writeFile(t, layout.Out("gen/vk_gl_cts_data/data/gles2/data/brick.png"), []byte("png"))
		writeFile(t, layout.Out("gen/vk_gl_cts_data/data/gles2/shaders/x/y.test"), []byte("y"))

		err := e.SyncDirectory(ctx, []string{
			layout.Source("src/tests/deqp_support/*.txt"),
			layout.Out("gen/vk_gl_cts_data/data/gles2/**"),
		}, "deqp.tar")
		So(err, ShouldBeNil)

		So(dev.Pushes(), ShouldHaveLength, 1)
		So(dev.Pushes()[0].Remote, ShouldEqual, externalStorage+"deqp.tar")
		So(dev.Shells(), ShouldResemble, []string{
			"tar --no-same-permissions --no-same-owner -xf " + externalStorage + "deqp.tar -C " + externalStorage +
				" && rm " + externalStorage + "deqp.tar && chmod -R o+r " + externalStorage,
		})
		So(dev.Files, ShouldNotContainKey, externalStorage+"deqp.tar")
		So(dev.Files[externalStorage+"src/tests/deqp_support/a.txt"], ShouldResemble, []byte("a"))
		So(dev.Files[externalStorage+"src/tests/deqp_support/b.txt"], ShouldResemble, []byte("b"))
		So(dev.Files, ShouldNotContainKey, externalStorage+"src/tests/deqp_support/c.json")
		So(dev.Files[externalStorage+"gen/vk_gl_cts_data/data/gles2/data/brick.png"], ShouldResemble, []byte("png"))
		So(dev.Files[externalStorage+"gen/vk_gl_cts_data/data/gles2/shaders/x/y.test"], ShouldResemble, []byte("y"))
		So(dev.Dirs.Has(externalStorage+"gen/vk_gl_cts_data/data/gles2/shaders/x"), ShouldBeTrue)
	})
}

func TestSyncTraces(t *testing.T) {
	t.Parallel()
	Convey("SyncTraces", t, func() {
		ctx := context.Background()
		dev := adbtest.New()
		dev.Home = baseDir
		layout := testLayout(t)
		profile := testProfile()
		e := New(adb.NewClient(dev), profile, layout)

		gz := bytes.Repeat([]byte("g"), 5000)
		writeFile(t, layout.Source("src/tests/restricted_traces/foo/foo.angledata.gz"), gz)
		writeFile(t, layout.Source("src/tests/restricted_traces/bar/bar.angledata"), []byte("bar"))
		writeFile(t, layout.Out("libangle_restricted_traces_foo.so"), []byte("libfoo"))
		writeFile(t, layout.Out("libangle_restricted_traces_bar.so"), []byte("libbar"))
		writeFile(t, layout.Out(device.InterpreterLib), []byte("interp"))
		writeFile(t, layout.Out("gen/tracegz_foo.gz"), []byte("tracegz"))

		Convey("syncs data and libraries", func() {
			So(e.SyncTraces(ctx, []string{"foo", "bar"}), ShouldBeNil)
			So(dev.Shells()[0], ShouldEqual, "mkdir -p /data/local/tmp/angle_traces/ && run-as com.android.angle.test mkdir -p angle_traces")
			So(dev.Files[externalStorage+"src/tests/restricted_traces/foo/foo.angledata.gz"], ShouldResemble, gz)
			So(dev.Files[externalStorage+"src/tests/restricted_traces/bar/bar.angledata"], ShouldResemble, []byte("bar"))
			So(dev.Files[externalStorage+"gen/tracegz_foo.gz"], ShouldResemble, []byte("tracegz"))
			So(dev.Files, ShouldNotContainKey, externalStorage+"gen/tracegz_bar.gz")
			So(dev.Files[baseDir+"angle_traces/libangle_restricted_traces_foo.so"], ShouldResemble, []byte("libfoo"))
			So(dev.Files[baseDir+"angle_traces/libangle_restricted_traces_bar.so"], ShouldResemble, []byte("libbar"))
			So(dev.Files[baseDir+"angle_traces/"+device.InterpreterLib], ShouldResemble, []byte("interp"))

			// Sorted order, interpreter last.
			var remotes []string
			for _, p := range dev.Pushes() {
				remotes = append(remotes, filepath.Base(p.Remote))
			}
			So(remotes, ShouldResemble, []string{
				"bar.angledata",
				"libangle_restricted_traces_bar.so",
				"foo.angledata.gz",
				"libangle_restricted_traces_foo.so",
				"tracegz_foo.gz",
				device.InterpreterLib,
			})

			pushes := len(dev.Pushes())
			So(e.SyncTraces(ctx, []string{"foo", "bar"}), ShouldBeNil)
			So(dev.Pushes(), ShouldHaveLength, pushes)
			So(e.Stats().Skipped, ShouldEqual, pushes)
		})
		Convey("skips libraries packed in the APK", func() {
			profile.TracesOutsideAPK = false
			So(e.SyncTraces(ctx, []string{"foo"}), ShouldBeNil)
			So(dev.Pushes(), ShouldHaveLength, 2)
			So(dev.Files, ShouldNotContainKey, baseDir+"angle_traces/"+device.InterpreterLib)
		})
		Convey("creates the app dir directly without run-as", func() {
			profile.UseRunAs = false
			So(e.SyncTraces(ctx, []string{"foo"}), ShouldBeNil)
			So(dev.Shells()[0], ShouldEqual, "mkdir -p /data/local/tmp/angle_traces/ "+baseDir+"angle_traces/")
		})
		Convey("a missing library is fatal", func() {
			err := e.SyncTraces(ctx, []string{"baz"})
			So(err, ShouldNotBeNil)
			writeFile(t, layout.Source("src/tests/restricted_traces/baz/baz.angledata"), []byte("baz"))
			err = e.SyncTraces(ctx, []string{"baz"})
			So(device.Fatal.In(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "libangle_restricted_traces_baz.so")
		})
	})
}
