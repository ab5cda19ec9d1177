package web

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"
)

// LoadOptions configures Load. The zero value is a lenient parser reading
// '@' markers with no include permit list.
type LoadOptions struct {
	// Lead is the marker lead character; zero means '@'.
	Lead byte

	// Strict, when true, rejects unknown markers encountered in prose
	// instead of passing them through as literal text.
	Strict bool

	// Permit lists marker names (without the lead character, e.g. "i")
	// whose associated resource may be missing without failing the load;
	// a warning is written to Warn instead.
	Permit map[string]bool

	// Warn receives one line per soft diagnostic. A nil Warn discards
	// them.
	Warn func(string)
}

func (o LoadOptions) lead() byte {
	if o.Lead == 0 {
		return '@'
	}
	return o.Lead
}

func (o LoadOptions) warn(format string, args ...any) {
	if o.Warn != nil {
		o.Warn(fmt.Sprintf(format, args...))
	}
}

// state is the Parser's top-level state, per spec §4.3.
type state int

const (
	stateProse state = iota
	stateInBody
)

// frame is one entry in the include stack: an open tokenizer plus the file
// name it reads from, in the spirit of the teacher's decoderFrame.
type frame struct {
	tok  *Tokenizer
	file string
}

// parser drives the Prose/InBody state machine described in spec §4.3,
// building a Web from a stack of nested Tokenizers (one per open @i
// include, generalizing the teacher's ExpandingDecoder.decoderStack).
type parser struct {
	fsys fs.FS
	opts LoadOptions
	web  *Web

	frames       []frame
	includeStack []string

	state   state
	col     int
	current *Chunk // the Named/Output chunk being built, only valid in stateInBody

	anon      strings.Builder
	anonBlank bool
	anonLine  int
}

// Load parses the named file from fsys into a Web, following @i includes
// rooted at fsys (there is no relative path resolution: an include names a
// path directly within fsys, exactly as the teacher's ExpandingDecoder
// treats include paths as absolute within its fs.FS). Load returns a nil
// Web when name itself cannot be opened; otherwise it returns the Web even
// when errors were encountered. Errors parsing can continue past
// (undefined references, include problems, an unclosed final chunk) are
// collected in Web.Errors() and joined into the returned error. An error
// that stops parsing (such as an unknown marker in a chunk body or a
// malformed header) is returned on its own, is not added to Web.Errors(),
// and skips reference resolution.
func Load(fsys fs.FS, name string, opts LoadOptions) (*Web, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, &ParseError{Kind: KindIO, File: name, Msg: err.Error()}
	}

	p := &parser{
		fsys:         fsys,
		opts:         opts,
		web:          NewWeb(),
		frames:       []frame{{tok: NewTokenizerLead(f, opts.lead()), file: name}},
		includeStack: []string{name},
		anonBlank:    true,
	}

	if err := p.run(); err != nil {
		return p.web, err
	}

	for _, err := range p.web.resolveReferences() {
		p.web.addError(err)
	}
	for _, err := range p.web.checkOutputsNonEmpty() {
		p.web.addError(err)
	}

	if errs := p.web.Errors(); len(errs) > 0 {
		return p.web, errors.Join(errs...)
	}
	return p.web, nil
}

func (p *parser) currentFile() string {
	return p.frames[len(p.frames)-1].file
}

// run drains every frame on the include stack until the root file's
// tokenizer reaches EOF while stateProse and the stack is empty.
func (p *parser) run() error {
	for len(p.frames) > 0 {
		top := &p.frames[len(p.frames)-1]
		tok, err := top.tok.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if p.state == stateInBody {
					p.web.addError(&ParseError{
						Kind: KindUnclosedChunk, File: top.file, Line: top.tok.Line(),
						Msg: fmt.Sprintf("chunk %q never closed with @}", p.current.RawName),
					})
				}
				p.flushAnon()
				p.frames = p.frames[:len(p.frames)-1]
				if len(p.includeStack) > 0 {
					p.includeStack = p.includeStack[:len(p.includeStack)-1]
				}
				continue
			}
			return &ParseError{Kind: KindIO, File: top.file, Line: top.tok.Line(), Msg: err.Error()}
		}

		p.advanceColumn(tok)

		switch p.state {
		case stateProse:
			if err := p.prose(tok); err != nil {
				return err
			}
		case stateInBody:
			if err := p.inBody(tok); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) advanceColumn(t Token) {
	if t.Text == "\n" || t.Text == "@\n" {
		p.col = 0
		return
	}
	p.col += len(t.Text)
}

// flushAnon materializes the accumulated prose buffer into an Anonymous
// chunk and adds it to the Web, unless the buffer is empty or contains
// only whitespace — the anonymous chunk is lazily materialized on first
// non-whitespace content, per spec §4.3.
func (p *parser) flushAnon() {
	if p.anonBlank {
		p.anon.Reset()
		return
	}
	c := &Chunk{Kind: Anonymous, File: p.currentFile(), Line: p.anonLine}
	c.appendText(p.anon.String(), p.anonLine)
	p.web.Add(c)
	p.anon.Reset()
	p.anonBlank = true
}

func (p *parser) appendAnon(s string, line int) {
	if p.anon.Len() == 0 {
		p.anonLine = line
	}
	if p.anonBlank && strings.TrimSpace(s) != "" {
		p.anonBlank = false
	}
	p.anon.WriteString(s)
}

// prose handles one token while in stateProse.
func (p *parser) prose(t Token) error {
	lead := p.opts.lead()
	switch {
	case t.Kind == TokenText:
		p.appendAnon(t.Text, t.Line)
		return nil

	case t.Text == "\n":
		p.appendAnon("\n", t.Line)
		return nil

	case t.Text == string([]byte{lead, lead}):
		p.appendAnon(string(lead), t.Line)
		return nil

	case t.Text == string(lead)+"o":
		p.flushAnon()
		return p.beginChunk(Output, t)

	case t.Text == string(lead)+"d":
		p.flushAnon()
		return p.beginChunk(Named, t)

	case t.Text == string(lead)+"i":
		return p.include(t)

	default:
		if p.opts.Strict {
			return &ParseError{Kind: KindUnknownMarker, File: p.currentFile(), Line: t.Line, Msg: fmt.Sprintf("unknown marker %q in prose", t.Text)}
		}
		p.appendAnon(t.Text, t.Line)
		return nil
	}
}

// beginChunk parses a @d/@o header up to its "@{" sentinel and transitions
// to stateInBody.
func (p *parser) beginChunk(kind ChunkKind, marker Token) error {
	lead := p.opts.lead()
	sentinel := string(lead) + "{"

	var header strings.Builder
	for {
		top := &p.frames[len(p.frames)-1]
		t, err := top.tok.Next()
		if err != nil {
			return &ParseError{Kind: KindUnclosedChunk, File: p.currentFile(), Line: marker.Line, Msg: "header never reached @{"}
		}
		p.advanceColumn(t)
		if t.Text == sentinel {
			break
		}
		if t.Text == "\n" {
			header.WriteByte('\n')
			continue
		}
		header.WriteString(t.Text)
	}

	var parser *OptionParser
	if kind == Named {
		parser = chunkOptionParser()
	} else {
		parser = outputOptionParser()
	}
	opts, err := parser.Parse(header.String())
	if err != nil {
		return &ParseError{Kind: KindMalformedOption, File: p.currentFile(), Line: marker.Line, Msg: err.Error()}
	}

	_, hasIndent := opts["-indent"]
	_, hasNoIndent := opts["-noindent"]
	if hasIndent && hasNoIndent {
		return &ParseError{Kind: KindDuplicateOption, File: p.currentFile(), Line: marker.Line, Msg: "both -indent and -noindent given"}
	}

	raw := strings.Join(opts["argument"], " ")
	c := &Chunk{
		Kind:     kind,
		File:     p.currentFile(),
		RawName:  raw,
		Name:     canonicalName(raw),
		NoIndent: hasNoIndent,
		Line:     marker.Line,
	}
	p.web.Add(c)
	p.current = c
	p.state = stateInBody
	// Column tracking for the tangler's reference-site indentation is
	// relative to a chunk body's own start, not to however much header
	// text preceded "@{" on the same source line.
	p.col = 0
	return nil
}

// include handles a @i marker in prose: it reads to end of line for the
// path, then pushes a new tokenizer frame (or records a soft/hard error).
func (p *parser) include(marker Token) error {
	var path strings.Builder
	for {
		top := &p.frames[len(p.frames)-1]
		t, err := top.tok.Next()
		if err != nil {
			return &ParseError{Kind: KindIO, File: p.currentFile(), Line: marker.Line, Msg: "unterminated @i"}
		}
		p.advanceColumn(t)
		if t.Text == "\n" || t.Text == "@\n" {
			break
		}
		path.WriteString(t.Text)
	}
	name := strings.TrimSpace(path.String())

	if slices.Contains(p.includeStack, name) {
		chain := strings.Join(append(slices.Clone(p.includeStack), name), " -> ")
		p.web.addError(&ParseError{Kind: KindIncludeCycle, File: p.currentFile(), Line: marker.Line, Msg: fmt.Sprintf("include cycle: %s", chain)})
		return nil
	}

	f, err := p.fsys.Open(name)
	if err != nil {
		if p.opts.Permit["i"] {
			p.opts.warn("%s:%d: warning: missing include %q, continuing", p.currentFile(), marker.Line, name)
			return nil
		}
		p.web.addError(&ParseError{Kind: KindMissingInclude, File: p.currentFile(), Line: marker.Line, Msg: fmt.Sprintf("cannot open %q: %v", name, err)})
		return nil
	}

	p.includeStack = append(p.includeStack, name)
	p.frames = append(p.frames, frame{tok: NewTokenizerLead(f, p.opts.lead()), file: name})
	return nil
}

// inBody handles one token while in stateInBody, per spec §4.3.
func (p *parser) inBody(t Token) error {
	lead := p.opts.lead()
	switch {
	case t.Kind == TokenText:
		p.current.appendCode(t.Text, t.Line)
		return nil

	case t.Text == "\n":
		p.current.appendCode("\n", t.Line)
		return nil

	case t.Text == string([]byte{lead, lead}):
		p.current.appendCode(string(lead), t.Line)
		return nil

	case t.Text == string(lead)+"}":
		p.state = stateProse
		p.current = nil
		return nil

	case t.Text == string(lead)+"<":
		return p.reference(t)

	case t.Text == string(lead)+"f":
		p.current.Commands = append(p.current.Commands, Command{Kind: CmdFileXref, Line: t.Line})
		return nil

	case t.Text == string(lead)+"m":
		p.current.Commands = append(p.current.Commands, Command{Kind: CmdMacroXref, Line: t.Line})
		return nil

	case t.Text == string(lead)+"u":
		p.current.Commands = append(p.current.Commands, Command{Kind: CmdUserIdXref, Line: t.Line})
		return nil

	case t.Text == string(lead)+"o", t.Text == string(lead)+"d", t.Text == string(lead)+"i":
		return &ParseError{Kind: KindUnclosedChunk, File: p.currentFile(), Line: t.Line, Msg: fmt.Sprintf("%s inside a chunk body ends it implicitly; close with %s} first", t.Text, string(lead))}

	default:
		return &ParseError{Kind: KindUnknownMarker, File: p.currentFile(), Line: t.Line, Msg: fmt.Sprintf("unknown marker %q inside chunk body", t.Text)}
	}
}

// reference handles a @< name @> reference: it forbids the lead character
// anywhere inside the name (see spec §9's open question on '@' inside
// reference names) and records the column at which '@<' appeared for the
// tangler's indentation rule.
func (p *parser) reference(marker Token) error {
	lead := p.opts.lead()
	col := p.col - len(marker.Text)

	var name strings.Builder
	for {
		top := &p.frames[len(p.frames)-1]
		t, err := top.tok.Next()
		if err != nil {
			return &ParseError{Kind: KindUnclosedChunk, File: p.currentFile(), Line: marker.Line, Msg: "unterminated @< reference"}
		}
		p.advanceColumn(t)
		if t.Text == string(lead)+">" {
			break
		}
		if t.Kind == TokenMarker {
			return &ParseError{Kind: KindUnknownMarker, File: p.currentFile(), Line: t.Line, Msg: fmt.Sprintf("%q not allowed inside a reference name", t.Text)}
		}
		name.WriteString(t.Text)
	}

	p.current.Commands = append(p.current.Commands, Command{
		Kind:    CmdReference,
		RefName: canonicalName(name.String()),
		Line:    marker.Line,
		Column:  col,
	})
	return nil
}
