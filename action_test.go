package web

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestSequenceLoadTangleWeave(t *testing.T) {
	fsys := fstest.MapFS{
		"doc.w": {Data: []byte("Doc.\n@o out.go @{@<body@>@}\n@d body @{x()@}\n")},
	}
	dir := t.TempDir()
	wovenPath := filepath.Join(dir, "doc.html")

	var logs []string
	opts := &Options{
		FS:        fsys,
		Root:      "doc.w",
		OutDir:    dir,
		WeavePath: wovenPath,
		Verbose:   true,
		Log:       func(s string) { logs = append(logs, s) },
	}

	run := Sequence("litweb", LoadAction, TangleAction, WeaveAction)
	summary, err := run(opts)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	for _, want := range []string{"loaded", "tangled", "wove"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary = %q, want it to mention %q", summary, want)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "out.go")); err != nil {
		t.Errorf("tangled file missing: %v", err)
	}
	if _, err := os.Stat(wovenPath); err != nil {
		t.Errorf("woven file missing: %v", err)
	}
	if len(logs) == 0 {
		t.Error("expected verbose logging, got none")
	}
}

func TestTangleActionWithoutLoadFails(t *testing.T) {
	opts := &Options{}
	if _, err := TangleAction(opts); err == nil {
		t.Error("expected error running TangleAction before LoadAction")
	}
}

func TestWeaveActionRequiresPath(t *testing.T) {
	fsys := fstest.MapFS{"doc.w": {Data: []byte("@o out.go @{x()@}\n")}}
	opts := &Options{FS: fsys, Root: "doc.w"}
	if _, err := LoadAction(opts); err != nil {
		t.Fatalf("LoadAction: %v", err)
	}
	if _, err := WeaveAction(opts); err == nil {
		t.Error("expected error from WeaveAction with no WeavePath set")
	}
}

func TestSequenceStopsAtFirstError(t *testing.T) {
	opts := &Options{FS: fstest.MapFS{}, Root: "missing.w"}
	calls := 0
	noop := func(*Options) (string, error) { calls++; return "", nil }

	run := Sequence("litweb", LoadAction, noop)
	if _, err := run(opts); err == nil {
		t.Fatal("expected LoadAction to fail for a missing root document")
	}
	if calls != 0 {
		t.Errorf("expected Sequence to stop before noop, but it ran %d times", calls)
	}
}
