package web

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct{ raw, want string }{
		{"foo", "foo"},
		{"  foo   bar  ", "foo bar"},
		{"foo\tbar\nbaz", "foo bar baz"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := canonicalName(tt.raw); got != tt.want {
			t.Errorf("canonicalName(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIsAbbreviation(t *testing.T) {
	if !isAbbreviation("frob...") {
		t.Error("frob... should be an abbreviation")
	}
	if isAbbreviation("frobnicate") {
		t.Error("frobnicate should not be an abbreviation")
	}
}

func TestWebResolveName(t *testing.T) {
	w := NewWeb()
	w.Add(&Chunk{Kind: Named, Name: "initialize module"})
	w.Add(&Chunk{Kind: Named, Name: "initialize globals"})

	full, err := w.resolveName("initialize...")
	if err == nil {
		t.Fatalf("expected ambiguous-abbreviation error, got full=%q", full)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != KindAmbiguousAbbrev {
		t.Errorf("resolveName error = %v, want a *ParseError with Kind %q", err, KindAmbiguousAbbrev)
	}

	full, err = w.resolveName("initialize module...")
	if err != nil {
		t.Fatalf("resolveName: %v", err)
	}
	if full != "initialize module" {
		t.Errorf("resolveName = %q, want %q", full, "initialize module")
	}

	_, err = w.resolveName("nope")
	if !errors.As(err, &pe) || pe.Kind != KindUndefinedRef {
		t.Errorf("resolveName error = %v, want a *ParseError with Kind %q", err, KindUndefinedRef)
	}
}

func TestWebDefinitionsConcatenatesInOrder(t *testing.T) {
	w := NewWeb()
	first := &Chunk{Kind: Named, Name: "helpers"}
	first.appendCode("a()", 1)
	w.Add(first)

	second := &Chunk{Kind: Named, Name: "helpers"}
	second.appendCode("b()", 2)
	w.Add(second)

	defs, err := w.Definitions("helpers")
	if err != nil {
		t.Fatalf("Definitions: %v", err)
	}
	if len(defs) != 2 || defs[0] != first || defs[1] != second {
		t.Fatalf("Definitions returned wrong order: %v", defs)
	}
}

func TestResolveReferencesPopulatesBacklinks(t *testing.T) {
	w := NewWeb()
	target := &Chunk{Kind: Named, Name: "body"}
	w.Add(target)

	referrer := &Chunk{Kind: Output, Name: "main.go"}
	referrer.Commands = append(referrer.Commands, Command{Kind: CmdReference, RefName: "body"})
	w.Add(referrer)

	if errs := w.resolveReferences(); len(errs) != 0 {
		t.Fatalf("resolveReferences: %v", errs)
	}

	if len(target.ReferencedBy) != 1 || target.ReferencedBy[0].Chunk != referrer {
		t.Errorf("ReferencedBy = %v, want one backlink to referrer", target.ReferencedBy)
	}
}

func TestResolveReferencesUndefined(t *testing.T) {
	w := NewWeb()
	referrer := &Chunk{Kind: Output, Name: "main.go", File: "doc.w"}
	referrer.Commands = append(referrer.Commands, Command{Kind: CmdReference, RefName: "missing", Line: 7})
	w.Add(referrer)

	errs := w.resolveReferences()
	if len(errs) != 1 {
		t.Fatalf("resolveReferences = %v, want exactly one error", errs)
	}
	var pe *ParseError
	if !errors.As(errs[0], &pe) {
		t.Fatalf("resolveReferences error = %v, want a *ParseError", errs[0])
	}
	if pe.Kind != KindUndefinedRef {
		t.Errorf("Kind = %q, want %q", pe.Kind, KindUndefinedRef)
	}
	if pe.File != "doc.w" || pe.Line != 7 {
		t.Errorf("location = %s:%d, want doc.w:7", pe.File, pe.Line)
	}
}

func TestOutputNamesOrderedByFirstDefinition(t *testing.T) {
	w := NewWeb()
	w.Add(&Chunk{Kind: Output, Name: "b.go"})
	w.Add(&Chunk{Kind: Output, Name: "a.go"})
	w.Add(&Chunk{Kind: Output, Name: "b.go"})

	got := w.OutputNames()
	want := []string{"b.go", "a.go"}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("OutputNames mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendCodeMergesAdjacentRuns(t *testing.T) {
	c := &Chunk{Kind: Named}
	c.appendCode("foo", 1)
	c.appendCode("bar", 1)
	if len(c.Commands) != 1 {
		t.Fatalf("expected one merged command, got %d", len(c.Commands))
	}
	if c.Commands[0].Text != "foobar" {
		t.Errorf("merged text = %q, want %q", c.Commands[0].Text, "foobar")
	}
}

func TestCheckOutputsNonEmpty(t *testing.T) {
	w := NewWeb()
	w.output["empty.go"] = nil
	if errs := w.checkOutputsNonEmpty(); len(errs) != 1 {
		t.Errorf("checkOutputsNonEmpty = %v, want one error", errs)
	}
}
