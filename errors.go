package web

import "fmt"

// ErrorKind classifies a ParseError per the error-kind taxonomy in spec
// §7: lexical/syntactic, semantic, I/O, or template.
type ErrorKind string

const (
	KindUnknownMarker        ErrorKind = "unknown-command"
	KindUnclosedChunk        ErrorKind = "unclosed-chunk"
	KindUndefinedRef         ErrorKind = "undefined-reference"
	KindAmbiguousAbbrev      ErrorKind = "ambiguous-abbreviation"
	KindDuplicateOption      ErrorKind = "duplicate-option"
	KindMissingInclude       ErrorKind = "missing-include"
	KindIncludeCycle         ErrorKind = "include-cycle"
	KindTangleCycle          ErrorKind = "tangle-cycle"
	KindMalformedOption      ErrorKind = "malformed-option"
	KindDuplicateOutput      ErrorKind = "duplicate-output"
	KindEmptyOutput          ErrorKind = "empty-output"
	KindUndefinedPlaceholder ErrorKind = "undefined-placeholder"
	KindIO                   ErrorKind = "io"
)

// ParseError is a located, classified error produced by the parser, the
// tangler, and the weaver. The tokenizer and the option parser return plain
// errors, which the parser reports as ParseErrors. Every error that Load,
// Tangle, or Weave returns is either a *ParseError or wraps one; the
// Action steps' own precondition errors are plain errors.
type ParseError struct {
	Kind ErrorKind
	File string
	Line int
	Col  int // 0 when not meaningful for this Kind
	Msg  string
}

func (e *ParseError) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if e.Col > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Col)
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Kind, e.Msg)
}
