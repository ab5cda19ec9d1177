package web

import (
	"errors"
	"fmt"
	"strings"
)

// ChunkKind identifies which of the three closed Chunk variants a Chunk is.
type ChunkKind int

const (
	// Anonymous chunks hold prose; they are never referenced and never tangled.
	Anonymous ChunkKind = iota
	// Named chunks are defined with @d and may be referenced by name.
	Named
	// Output chunks are defined with @o and name a tangled file.
	Output
)

func (k ChunkKind) String() string {
	switch k {
	case Anonymous:
		return "anonymous"
	case Named:
		return "named"
	case Output:
		return "output"
	default:
		return "invalid"
	}
}

// CommandKind identifies which of the closed Command variants a Command is.
// Commands do not nest; a Chunk's command list is always flat.
type CommandKind int

const (
	CmdText CommandKind = iota
	CmdCode
	CmdReference
	CmdFileXref
	CmdMacroXref
	CmdUserIdXref
)

// Command is an atom inside a Chunk's body. The fields populated depend on
// Kind, as noted on each field below.
type Command struct {
	Kind CommandKind

	// Text holds literal content for CmdText and CmdCode, with @@ already
	// unescaped to a literal '@'.
	Text string

	// RefName holds the canonical target name for CmdReference.
	RefName string

	// Line is the source line on which this command began.
	Line int

	// Column is the 0-based column at which a CmdReference marker '@<'
	// appeared, counted from the start of its line, or from the chunk
	// body's opening '@{' when the reference is on that same line; used by
	// the tangler to compute reference-site indentation.
	Column int
}

// Chunk is a contiguous slice of a Web: prose (Anonymous), a named macro
// (Named), or a tangled file (Output).
type Chunk struct {
	Kind ChunkKind

	// File is the path, within the loading fs.FS, of the document this
	// chunk was read from: the root document or one of its @i includes.
	// It locates any error raised against this chunk after parsing (e.g.
	// an undefined reference in one of its commands).
	File string

	// Name is the canonical (whitespace-normalized) name for Named and
	// Output chunks; empty for Anonymous chunks.
	Name string

	// RawName is the name exactly as written in the source header.
	RawName string

	// NoIndent is true when a Named chunk was declared with -noindent:
	// the tangler resets accumulated reference-site indentation to zero
	// for the duration of expanding this chunk's body.
	NoIndent bool

	// Seq is the 1-based position of this chunk among all chunks in the
	// Web, assigned as chunks are added.
	Seq int

	// Line is the source line of this chunk's opening command; for an
	// Anonymous chunk, which has no opening marker, it is the line on which
	// its prose text begins.
	Line int

	Commands []Command

	// UserIdentifiers holds index terms listed for this chunk in the user
	// identifier cross reference that a @u marker renders. The parser never
	// sets it; callers set it directly.
	UserIdentifiers []string

	// ReferencedBy is populated once, after parsing completes, by
	// resolveReferences. It lists every place this chunk (only meaningful
	// for Named and Output chunks) is expanded by a @< name @> reference.
	ReferencedBy []Backlink
}

// Backlink records one place a Chunk is referenced from.
type Backlink struct {
	Chunk        *Chunk
	CommandIndex int
}

// canonicalName whitespace-normalizes a raw chunk name: runs of whitespace
// collapse to a single space, and leading/trailing whitespace is trimmed.
func canonicalName(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// isAbbreviation reports whether a canonical name ends in the abbreviation
// marker "...".
func isAbbreviation(name string) bool {
	return strings.HasSuffix(name, "...")
}

// appendText appends s to the last command if it is a CmdText command,
// otherwise starts a new one. This mirrors the teacher's lazy
// materialize-on-first-text-run approach to accumulating prose.
func (c *Chunk) appendText(s string, line int) {
	if s == "" {
		return
	}
	if n := len(c.Commands); n > 0 && c.Commands[n-1].Kind == CmdText {
		c.Commands[n-1].Text += s
		return
	}
	c.Commands = append(c.Commands, Command{Kind: CmdText, Text: s, Line: line})
}

// appendCode is identical to appendText but for CmdCode commands, which
// unlike CmdText live inside a chunk body rather than in prose.
func (c *Chunk) appendCode(s string, line int) {
	if s == "" {
		return
	}
	if n := len(c.Commands); n > 0 && c.Commands[n-1].Kind == CmdCode {
		c.Commands[n-1].Text += s
		return
	}
	c.Commands = append(c.Commands, Command{Kind: CmdCode, Text: s, Line: line})
}

// Web is the top-level container for a parsed WEB document: an ordered
// sequence of Chunks plus name and output indices built as chunks are
// added.
type Web struct {
	// Chunks holds every Chunk, anonymous or not, in source order.
	Chunks []*Chunk

	// named maps a canonical Named-chunk name to the ordered list of
	// indices into Chunks sharing that name (multiple @d headers with the
	// same name concatenate, in source order, at tangle time).
	named map[string][]int

	// output maps an output file name to the ordered list of indices into
	// Chunks contributing to that file.
	output map[string][]int

	seq  int
	errs []error
}

// NewWeb returns an empty Web ready to receive Chunks via Add.
func NewWeb() *Web {
	return &Web{
		named:  make(map[string][]int),
		output: make(map[string][]int),
	}
}

// addError records a non-fatal error encountered while building the Web.
// Parsing collects these per file rather than stopping at the first one.
func (w *Web) addError(err error) {
	w.errs = append(w.errs, err)
}

// Errors returns every error accumulated while loading the Web, in the
// order encountered.
func (w *Web) Errors() []error {
	return w.errs
}

// Add appends c to the Web, assigning its sequence number and indexing it
// by kind. This is the single entry point every chunk variant goes
// through; Named and Output chunks are additionally indexed by name.
func (w *Web) Add(c *Chunk) {
	w.seq++
	c.Seq = w.seq
	idx := len(w.Chunks)
	w.Chunks = append(w.Chunks, c)

	switch c.Kind {
	case Named:
		w.named[c.Name] = append(w.named[c.Name], idx)
	case Output:
		w.output[c.Name] = append(w.output[c.Name], idx)
	}
}

// resolveName resolves name (possibly an abbreviation) against the Web's
// named-chunk index, returning the canonical full name. An abbreviation
// matching zero or more than one full name is an error. The returned
// error is always a *ParseError classified with KindUndefinedRef or
// KindAmbiguousAbbrev; its File and Line are left zero for the caller,
// which has the reference site's location, to fill in.
func (w *Web) resolveName(name string) (string, error) {
	name = canonicalName(name)
	if !isAbbreviation(name) {
		if _, ok := w.named[name]; !ok {
			return "", &ParseError{Kind: KindUndefinedRef, Msg: fmt.Sprintf("undefined reference: %q", name)}
		}
		return name, nil
	}
	prefix := strings.TrimSuffix(name, "...")
	var matches []string
	for full := range w.named {
		if strings.HasPrefix(full, prefix) {
			matches = append(matches, full)
		}
	}
	switch len(matches) {
	case 0:
		return "", &ParseError{Kind: KindUndefinedRef, Msg: fmt.Sprintf("undefined reference: %q", name)}
	case 1:
		return matches[0], nil
	default:
		return "", &ParseError{Kind: KindAmbiguousAbbrev, Msg: fmt.Sprintf("ambiguous abbreviation %q matches %d names", name, len(matches))}
	}
}

// Definitions returns every Named chunk sharing canonical name, in source
// order. A reference to a multiply defined name expands the concatenation
// of all of its definitions' bodies, in the order they were written.
func (w *Web) Definitions(name string) ([]*Chunk, error) {
	full, err := w.resolveName(name)
	if err != nil {
		return nil, err
	}
	idxs := w.named[full]
	chunks := make([]*Chunk, len(idxs))
	for i, idx := range idxs {
		chunks[i] = w.Chunks[idx]
	}
	return chunks, nil
}

// OutputChunks returns every Output chunk contributing to the named file,
// in source order.
func (w *Web) OutputChunks(name string) []*Chunk {
	idxs := w.output[name]
	chunks := make([]*Chunk, len(idxs))
	for i, idx := range idxs {
		chunks[i] = w.Chunks[idx]
	}
	return chunks
}

// OutputNames returns every output file name, in the order its first chunk
// was defined.
func (w *Web) OutputNames() []string {
	var names []string
	type firstSeen struct {
		name string
		idx  int
	}
	var ordered []firstSeen
	for name, idxs := range w.output {
		ordered = append(ordered, firstSeen{name, idxs[0]})
	}
	// Stable ordering by first occurrence, not map iteration order.
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].idx < ordered[i].idx {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	for _, fs := range ordered {
		names = append(names, fs.name)
	}
	return names
}

// NamedNames returns every canonical Named-chunk name, ordered by first
// definition.
func (w *Web) NamedNames() []string {
	type firstSeen struct {
		name string
		idx  int
	}
	var ordered []firstSeen
	for name, idxs := range w.named {
		ordered = append(ordered, firstSeen{name, idxs[0]})
	}
	for i := range ordered {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].idx < ordered[i].idx {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	var names []string
	for _, fs := range ordered {
		names = append(names, fs.name)
	}
	return names
}

// resolveReferences is the post-parse pass: it resolves every
// CmdReference's target and records the back-link on that target's
// ReferencedBy list. It returns every resolution error encountered (it
// does not stop at the first).
func (w *Web) resolveReferences() []error {
	var errs []error
	for _, c := range w.Chunks {
		for i, cmd := range c.Commands {
			if cmd.Kind != CmdReference {
				continue
			}
			full, err := w.resolveName(cmd.RefName)
			if err != nil {
				var pe *ParseError
				if errors.As(err, &pe) {
					pe.File = c.File
					pe.Line = cmd.Line
				}
				errs = append(errs, err)
				continue
			}
			c.Commands[i].RefName = full
			for _, idx := range w.named[full] {
				target := w.Chunks[idx]
				target.ReferencedBy = append(target.ReferencedBy, Backlink{Chunk: c, CommandIndex: i})
			}
		}
	}
	return errs
}

// checkOutputsNonEmpty verifies every @o file has at least one chunk
// contributing a body; it cannot be empty of chunks (though a chunk's body
// may itself be empty text, which is fine: see the zero-length tangle
// case).
func (w *Web) checkOutputsNonEmpty() []error {
	var errs []error
	for name, idxs := range w.output {
		if len(idxs) == 0 {
			errs = append(errs, &ParseError{Kind: KindEmptyOutput, Msg: fmt.Sprintf("output %q has no chunks", name)})
		}
	}
	return errs
}
