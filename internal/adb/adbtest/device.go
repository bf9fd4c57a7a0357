// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package adbtest provides an in-memory device for tests of code built on
// the adb package.
package adbtest

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/1sLand99/angle/internal/adb"
)

// HandlerFunc answers a shell script. A non-nil error is reported as a
// failed adb invocation.
type HandlerFunc func(script string) (string, error)

type handler struct {
	re *regexp.Regexp
	fn HandlerFunc
}

// Device is a fake device understanding the small shell dialect used by the
// helper: test, rm, mkdir, cp, ls, cat, tail, sha256sum, tar, setprop,
// getprop, id, echo and run-as. Unknown commands succeed silently.
//
// Scripts matching a registered handler bypass the interpreter.
type Device struct {
	// Files is the device filesystem keyed by absolute path.
	Files map[string][]byte
	// Dirs holds directories created with mkdir.
	Dirs stringset.Set
	// Props holds device properties.
	Props map[string]string
	// Home resolves relative paths, like the run-as sandbox does.
	Home string
	// UID is printed by `id -u`.
	UID string
	// Installed holds the content of every installed APK in order.
	Installed [][]byte
	// Commands records every command in execution order.
	Commands []adb.Command
	// OnRoot is called for `adb root`.
	OnRoot func() error

	handlers []handler
}

// New returns an empty device.
func New() *Device {
	return &Device{
		Files: map[string][]byte{},
		Dirs:  stringset.New(0),
		Props: map[string]string{},
		UID:   "2000",
	}
}

// ErrExit builds the error returned for a failed adb invocation.
func ErrExit(code int, reason string) error {
	return errors.Reason("%s", reason).Tag(errors.TagValue{Key: adb.ExitCodeTag, Value: code}).Err()
}

// Handle answers scripts matching pattern with fn. Later registrations win.
func (d *Device) Handle(pattern string, fn HandlerFunc) {
	d.handlers = append(d.handlers, handler{re: regexp.MustCompile(pattern), fn: fn})
}

// Respond answers scripts matching pattern with output.
func (d *Device) Respond(pattern, output string) {
	d.Handle(pattern, func(string) (string, error) { return output, nil })
}

// Fail makes scripts matching pattern fail.
func (d *Device) Fail(pattern string) {
	d.Handle(pattern, func(s string) (string, error) { return "", ErrExit(1, "failed: "+s) })
}

// Run implements adb.Bridge.
func (d *Device) Run(ctx context.Context, cmd adb.Command) ([]byte, error) {
	d.Commands = append(d.Commands, cmd)
	switch c := cmd.(type) {
	case adb.Shell:
		out, err := d.shell(string(c.Script))
		return []byte(out), err
	case adb.Push:
		b, err := os.ReadFile(c.Local)
		if err != nil {
			return nil, ErrExit(1, err.Error())
		}
		remote := c.Remote
		if strings.HasSuffix(remote, "/") || d.Dirs.Has(remote) {
			remote = path.Join(remote, path.Base(c.Local))
		}
		d.Files[remote] = b
		return nil, nil
	case adb.Pull:
		b, ok := d.Files[c.Remote]
		if !ok {
			return nil, ErrExit(1, "remote object '"+c.Remote+"' does not exist")
		}
		if err := os.WriteFile(c.Local, b, 0644); err != nil {
			return nil, ErrExit(1, err.Error())
		}
		return nil, nil
	case adb.Install:
		b, err := os.ReadFile(c.APK)
		if err != nil {
			return nil, ErrExit(1, err.Error())
		}
		d.Installed = append(d.Installed, b)
		return []byte("Success\n"), nil
	case adb.Root:
		if d.OnRoot != nil {
			return nil, d.OnRoot()
		}
		return []byte("restarting adbd as root\n"), nil
	case adb.Version:
		return []byte("Android Debug Bridge version 1.0.41\nVersion 34.0.4-10411341\n"), nil
	}
	return nil, ErrExit(1, "unknown command")
}

// Shells returns the executed shell scripts in order.
func (d *Device) Shells() []string {
	var out []string
	for _, c := range d.Commands {
		if s, ok := c.(adb.Shell); ok {
			out = append(out, string(s.Script))
		}
	}
	return out
}

// Pushes returns the executed pushes in order.
func (d *Device) Pushes() []adb.Push {
	var out []adb.Push
	for _, c := range d.Commands {
		if p, ok := c.(adb.Push); ok {
			out = append(out, p)
		}
	}
	return out
}

// Pulls returns the executed pulls in order.
func (d *Device) Pulls() []adb.Pull {
	var out []adb.Pull
	for _, c := range d.Commands {
		if p, ok := c.(adb.Pull); ok {
			out = append(out, p)
		}
	}
	return out
}

// CountShells returns how many scripts matched pattern.
func (d *Device) CountShells(pattern string) int {
	re := regexp.MustCompile(pattern)
	n := 0
	for _, s := range d.Shells() {
		if re.MatchString(s) {
			n++
		}
	}
	return n
}

func (d *Device) shell(script string) (string, error) {
	for i := len(d.handlers) - 1; i >= 0; i-- {
		if d.handlers[i].re.MatchString(script) {
			return d.handlers[i].fn(script)
		}
	}
	var out strings.Builder
	ok := true
	for _, line := range strings.Split(script, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var err error
		if ok, err = d.runList(line, &out); err != nil {
			return out.String(), ErrExit(2, err.Error())
		}
	}
	if !ok {
		return out.String(), ErrExit(1, "script failed: "+script)
	}
	return out.String(), nil
}

type statement struct {
	op       string
	pipeline [][]string
}

func splitStatements(tokens []string) []statement {
	var stmts []statement
	cur := statement{}
	var argv []string
	flush := func(op string) {
		if len(argv) > 0 {
			cur.pipeline = append(cur.pipeline, argv)
		}
		argv = nil
		if op == "|" {
			return
		}
		if len(cur.pipeline) > 0 {
			stmts = append(stmts, cur)
		}
		cur = statement{op: op}
	}
	for _, t := range tokens {
		switch {
		case t == "&&" || t == "||" || t == ";" || t == "|":
			flush(t)
		case strings.HasSuffix(t, ";") && len(t) > 1:
			argv = append(argv, strings.TrimSuffix(t, ";"))
			flush(";")
		case strings.HasPrefix(t, "2>"):
		default:
			argv = append(argv, t)
		}
	}
	flush("")
	return stmts
}

func (d *Device) runList(line string, out *strings.Builder) (bool, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return false, err
	}
	ok := true
	for i, st := range splitStatements(tokens) {
		if i > 0 {
			if st.op == "&&" && !ok {
				continue
			}
			if st.op == "||" && ok {
				continue
			}
		}
		stdin := ""
		for _, argv := range st.pipeline {
			stdin, ok, err = d.command(argv, stdin)
			if err != nil {
				return false, err
			}
		}
		out.WriteString(stdin)
	}
	return ok, nil
}

func (d *Device) resolve(p string) string {
	if strings.HasPrefix(p, "/") || d.Home == "" {
		return p
	}
	r := path.Join(d.Home, p)
	if strings.HasSuffix(p, "/") {
		r += "/"
	}
	return r
}

func operands(argv []string) []string {
	var out []string
	for _, a := range argv {
		if !strings.HasPrefix(a, "-") {
			out = append(out, a)
		}
	}
	return out
}

func hashOf(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:]) + "\n"
}

func (d *Device) command(argv []string, stdin string) (string, bool, error) {
	args := argv[1:]
	switch argv[0] {
	case "true":
		return "", true, nil
	case "false":
		return "", false, nil
	case "echo":
		return strings.Join(args, " ") + "\n", true, nil
	case "id":
		return d.UID + "\n", true, nil
	case "test":
		if len(args) < 2 {
			return "", false, nil
		}
		p := d.resolve(args[1])
		switch args[0] {
		case "-f":
			_, ok := d.Files[p]
			return "", ok, nil
		case "-d":
			return "", d.Dirs.Has(strings.TrimSuffix(p, "/")), nil
		}
		return "", false, nil
	case "mkdir":
		for _, p := range operands(args) {
			d.Dirs.Add(strings.TrimSuffix(d.resolve(p), "/"))
		}
		return "", true, nil
	case "rm":
		for _, p := range operands(args) {
			p = d.resolve(p)
			delete(d.Files, p)
			prefix := strings.TrimSuffix(p, "/") + "/"
			for f := range d.Files {
				if strings.HasPrefix(f, prefix) {
					delete(d.Files, f)
				}
			}
			d.Dirs.Del(strings.TrimSuffix(p, "/"))
		}
		return "", true, nil
	case "chmod":
		return "", true, nil
	case "cp":
		ops := operands(args)
		if len(ops) != 2 {
			return "", false, nil
		}
		src, dst := d.resolve(ops[0]), d.resolve(ops[1])
		b, ok := d.Files[src]
		if !ok {
			return "", false, nil
		}
		if strings.HasSuffix(dst, "/") || d.Dirs.Has(dst) {
			dst = path.Join(dst, path.Base(src))
		}
		d.Files[dst] = append([]byte(nil), b...)
		return "", true, nil
	case "ls":
		ops := operands(args)
		if len(ops) != 1 {
			return "", false, nil
		}
		prefix := strings.TrimSuffix(d.resolve(ops[0]), "/") + "/"
		names := stringset.New(0)
		for f := range d.Files {
			if rest := strings.TrimPrefix(f, prefix); rest != f {
				names.Add(strings.SplitN(rest, "/", 2)[0])
			}
		}
		sorted := names.ToSlice()
		sort.Strings(sorted)
		if len(sorted) == 0 {
			return "", true, nil
		}
		return strings.Join(sorted, "\n") + "\n", true, nil
	case "cat":
		var out strings.Builder
		for _, p := range operands(args) {
			b, ok := d.Files[d.resolve(p)]
			if !ok {
				return out.String(), false, nil
			}
			out.Write(b)
		}
		return out.String(), true, nil
	case "tail":
		data := []byte(stdin)
		n := -1
		var file string
		for i := 0; i < len(args); i++ {
			if args[i] == "-c" && i+1 < len(args) {
				n, _ = strconv.Atoi(args[i+1])
				i++
				continue
			}
			file = args[i]
		}
		if file != "" {
			b, ok := d.Files[d.resolve(file)]
			if !ok {
				return "", false, nil
			}
			data = b
		}
		if n >= 0 && len(data) > n {
			data = data[len(data)-n:]
		}
		return string(data), true, nil
	case "sha256sum":
		ops := operands(args)
		if len(ops) == 0 {
			return hashOf([]byte(stdin)), true, nil
		}
		b, ok := d.Files[d.resolve(ops[0])]
		if !ok {
			return "", false, nil
		}
		return hashOf(b), true, nil
	case "tar":
		return "", d.untar(args), nil
	case "setprop":
		if len(args) == 0 {
			return "", false, nil
		}
		v := ""
		if len(args) > 1 {
			v = args[1]
		}
		d.Props[args[0]] = v
		return "", true, nil
	case "getprop":
		if len(args) == 0 {
			return "", true, nil
		}
		return d.Props[args[0]] + "\n", true, nil
	case "run-as":
		if len(args) >= 4 && args[1] == "sh" && args[2] == "-c" {
			out, err := d.shell(args[3])
			return out, err == nil, nil
		}
		if len(args) >= 2 {
			return d.command(args[1:], stdin)
		}
		return "", false, nil
	}
	return "", true, nil
}

func (d *Device) untar(args []string) bool {
	var archive, dir string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-xf":
			if i+1 < len(args) {
				archive = d.resolve(args[i+1])
				i++
			}
		case "-C":
			if i+1 < len(args) {
				dir = d.resolve(args[i+1])
				i++
			}
		}
	}
	b, ok := d.Files[archive]
	if !ok {
		return false
	}
	r := tar.NewReader(bytes.NewReader(b))
	for {
		h, err := r.Next()
		if err == io.EOF {
			return true
		}
		if err != nil {
			return false
		}
		target := path.Join(dir, h.Name)
		switch h.Typeflag {
		case tar.TypeDir:
			d.Dirs.Add(target)
		case tar.TypeReg:
			content, err := io.ReadAll(r)
			if err != nil {
				return false
			}
			d.Files[target] = content
		}
	}
}
