package web

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"kr.dev/diff"
)

func mustLoad(t *testing.T, src string) *Web {
	t.Helper()
	fsys := fstest.MapFS{"doc.w": {Data: []byte(src)}}
	w, err := Load(fsys, "doc.w", LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return w
}

func TestTangleSimple(t *testing.T) {
	w := mustLoad(t, "@o main.go @{package main\n@<body@>@}\n@d body @{func main() {}@}\n")

	dir := t.TempDir()
	if _, err := Tangle(w, TangleOptions{Dir: dir}); err != nil {
		t.Fatalf("Tangle: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "main.go"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "package main\nfunc main() {}"
	diff.Test(t, t.Errorf, string(got), want)
}

func TestTangleIndentsNestedReference(t *testing.T) {
	// The reference sits two columns in, after a newline; every
	// continuation line of the referenced chunk's body picks up that
	// column, while a reference's first line simply continues the
	// current output line.
	w := mustLoad(t,
		"@o main.go @{line1\n  @<body@>\nline3@}\n" +
			"@d body @{lineA\nlineB@}\n")

	dir := t.TempDir()
	if _, err := Tangle(w, TangleOptions{Dir: dir}); err != nil {
		t.Fatalf("Tangle: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "main.go"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "line1\n  lineA\n  lineB\nline3"
	if string(got) != want {
		t.Errorf("tangled = %q, want %q", got, want)
	}
}

func TestTangleNoIndentResetsColumn(t *testing.T) {
	w := mustLoad(t,
		"@o main.go @{\t@<body@>\n}@}\n"+
			"@d -noindent body @{line one\nline two@}\n")

	dir := t.TempDir()
	if _, err := Tangle(w, TangleOptions{Dir: dir}); err != nil {
		t.Fatalf("Tangle: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "main.go"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// -noindent disables the inherited indentation for the continuation
	// line of this chunk's own body.
	want := "\tline one\nline two\n}"
	if string(got) != want {
		t.Errorf("tangled = %q, want %q", got, want)
	}
}

func TestTangleMultipleDefinitionsConcatenate(t *testing.T) {
	w := mustLoad(t,
		"@o main.go @{@<helpers@>@}\n"+
			"@d helpers @{a()\n@}\n"+
			"@d helpers @{b()@}\n")

	dir := t.TempDir()
	if _, err := Tangle(w, TangleOptions{Dir: dir}); err != nil {
		t.Fatalf("Tangle: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "main.go"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "a()\nb()"
	if string(got) != want {
		t.Errorf("tangled = %q, want %q", got, want)
	}
}

func TestTangleCycleIsAnError(t *testing.T) {
	w := mustLoad(t,
		"@o main.go @{@<a@>@}\n"+
			"@d a @{@<b@>@}\n"+
			"@d b @{@<a@>@}\n")

	dir := t.TempDir()
	if _, err := Tangle(w, TangleOptions{Dir: dir}); err == nil {
		t.Fatal("expected a reference-cycle error")
	}
}

func TestTangleWriteIfChangedSkipsIdenticalContent(t *testing.T) {
	w := mustLoad(t, "@o main.go @{x()@}\n")
	dir := t.TempDir()

	written, err := Tangle(w, TangleOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Tangle: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("first Tangle wrote %v, want one file", written)
	}

	written, err = Tangle(w, TangleOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Tangle: %v", err)
	}
	if len(written) != 0 {
		t.Errorf("second Tangle wrote %v, want none (content unchanged)", written)
	}
}

func TestTangleEmptyOutputFileIsAllowed(t *testing.T) {
	w := mustLoad(t, "@o empty.go @{@}\n")
	dir := t.TempDir()
	written, err := Tangle(w, TangleOptions{Dir: dir})
	if err != nil {
		t.Fatalf("Tangle: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("Tangle wrote %v, want one file", written)
	}
	got, err := os.ReadFile(filepath.Join(dir, "empty.go"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("tangled = %q, want empty", got)
	}
}
