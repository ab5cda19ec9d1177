package web

import (
	"errors"
	"html"
	"strconv"
	"strings"
)

// ReferenceStyle controls how a chunk's "referenced by" backlinks are
// rendered when weaving: SimpleReference lists only the immediate
// referrer, TransitiveReference walks all the way up to the enclosing
// output file(s).
type ReferenceStyle int

const (
	// SimpleReference lists each chunk directly referencing this one.
	SimpleReference ReferenceStyle = iota
	// TransitiveReference lists, for each direct referrer, the full chain
	// of referrers up to the output file(s) that ultimately include this
	// chunk.
	TransitiveReference
)

// Quote escapes s for inclusion in HTML markup. It is not applied by
// default; a caller producing HTML passes it as WeaveOptions.Quote.
func Quote(s string) string {
	return html.EscapeString(s)
}

// WeaveOptions configures Weave.
type WeaveOptions struct {
	Templates TemplateSet
	Style     ReferenceStyle

	// Quote escapes literal text before it is placed into the woven
	// document. A nil Quote writes text verbatim, without escaping.
	Quote func(string) string
}

// Weave renders w as a single woven document: prose and code interleaved
// per chunk, in Web order. The file, macro, and user identifier cross
// reference sections are rendered only where a chunk body places a @f,
// @m, or @u marker.
func Weave(w *Web, opts WeaveOptions) (string, error) {
	quote := opts.Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}
	ts := opts.Templates

	var sb strings.Builder
	for _, c := range w.Chunks {
		if err := weaveChunk(w, c, ts, opts.Style, quote, &sb); err != nil {
			return "", err
		}
	}

	return sb.String(), nil
}

// weaveChunk renders one chunk's body. The @f/@m/@u xref markers render
// the corresponding cross reference section in place, at the point the
// marker appears, rather than unconditionally at the end of the document:
// a document that never uses @u carries no identifier section at all.
func weaveChunk(w *Web, c *Chunk, ts TemplateSet, style ReferenceStyle, quote func(string) string, sb *strings.Builder) error {
	vars := map[string]string{
		"seq":  strconv.Itoa(c.Seq),
		"name": quote(displayName(c)),
	}

	isBody := c.Kind == Named || c.Kind == Output
	if isBody {
		s, err := expandTemplate(ts.ChunkBegin, vars)
		if err != nil {
			return err
		}
		sb.WriteString(s)
	}

	for _, cmd := range c.Commands {
		switch cmd.Kind {
		case CmdText:
			sb.WriteString(quote(cmd.Text))

		case CmdCode:
			begin, err := expandTemplate(ts.CodeBegin, nil)
			if err != nil {
				return err
			}
			end, err := expandTemplate(ts.CodeEnd, nil)
			if err != nil {
				return err
			}
			sb.WriteString(begin)
			sb.WriteString(quote(cmd.Text))
			sb.WriteString(end)

		case CmdReference:
			refVars := map[string]string{"name": quote(cmd.RefName)}
			defs, err := w.Definitions(cmd.RefName)
			if err != nil {
				var pe *ParseError
				if errors.As(err, &pe) {
					pe.File = c.File
					pe.Line = cmd.Line
					return pe
				}
				return &ParseError{Kind: KindUndefinedRef, File: c.File, Line: cmd.Line, Msg: err.Error()}
			}
			for i, def := range defs {
				if i > 0 {
					sb.WriteString(", ")
				}
				refVars["seq"] = strconv.Itoa(def.Seq)
				s, err := expandTemplate(ts.RefItem, refVars)
				if err != nil {
					return err
				}
				sb.WriteString(s)
			}

		case CmdFileXref:
			s, err := weaveFileXref(w, ts)
			if err != nil {
				return err
			}
			sb.WriteString(s)

		case CmdMacroXref:
			s, err := weaveMacroXref(w, ts)
			if err != nil {
				return err
			}
			sb.WriteString(s)

		case CmdUserIdXref:
			s, err := weaveUserIdXref(w, ts)
			if err != nil {
				return err
			}
			sb.WriteString(s)
		}
	}

	if isBody {
		bl, err := weaveBacklinks(c, ts, style)
		if err != nil {
			return err
		}
		sb.WriteString(bl)
		s, err := expandTemplate(ts.ChunkEnd, vars)
		if err != nil {
			return err
		}
		sb.WriteString(s)
	}
	return nil
}

func displayName(c *Chunk) string {
	if c.Kind == Anonymous {
		return ""
	}
	return c.Name
}

// weaveBacklinks renders one RefToLine per backlink, per the configured
// ReferenceStyle.
func weaveBacklinks(c *Chunk, ts TemplateSet, style ReferenceStyle) (string, error) {
	var seqs []int
	switch style {
	case SimpleReference:
		for _, b := range c.ReferencedBy {
			seqs = append(seqs, b.Chunk.Seq)
		}
	case TransitiveReference:
		seen := map[int]bool{}
		var walk func(*Chunk)
		walk = func(cur *Chunk) {
			for _, b := range cur.ReferencedBy {
				if seen[b.Chunk.Seq] {
					continue
				}
				seen[b.Chunk.Seq] = true
				seqs = append(seqs, b.Chunk.Seq)
				walk(b.Chunk)
			}
		}
		walk(c)
	}

	var sb strings.Builder
	for _, seq := range seqs {
		s, err := expandTemplate(ts.RefToLine, map[string]string{"seq": strconv.Itoa(seq)})
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// weaveFileXref renders the @f file cross reference section: every output
// file name with the chunk sequence numbers contributing to it.
func weaveFileXref(w *Web, ts TemplateSet) (string, error) {
	names := w.OutputNames()
	if len(names) == 0 {
		return "", nil
	}
	var sb strings.Builder
	begin, err := expandTemplate(ts.FileBegin, nil)
	if err != nil {
		return "", err
	}
	sb.WriteString(begin)
	for _, name := range names {
		var refs []string
		for _, c := range w.OutputChunks(name) {
			refs = append(refs, strconv.Itoa(c.Seq))
		}
		line, err := expandTemplate(ts.FileLine, map[string]string{
			"name": Quote(name),
			"refs": strings.Join(refs, ", "),
		})
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
	}
	end, err := expandTemplate(ts.FileEnd, nil)
	if err != nil {
		return "", err
	}
	sb.WriteString(end)
	return sb.String(), nil
}

// weaveMacroXref renders the @m macro cross reference section: every named
// chunk with its defining sequence numbers and referencing sequence
// numbers.
func weaveMacroXref(w *Web, ts TemplateSet) (string, error) {
	names := w.NamedNames()
	if len(names) == 0 {
		return "", nil
	}
	var sb strings.Builder
	begin, err := expandTemplate(ts.MacroBegin, nil)
	if err != nil {
		return "", err
	}
	sb.WriteString(begin)
	for _, name := range names {
		defs, _ := w.Definitions(name)
		var defSeqs, refSeqs []string
		seen := map[int]bool{}
		for _, d := range defs {
			defSeqs = append(defSeqs, strconv.Itoa(d.Seq))
			for _, b := range d.ReferencedBy {
				if seen[b.Chunk.Seq] {
					continue
				}
				seen[b.Chunk.Seq] = true
				refSeqs = append(refSeqs, strconv.Itoa(b.Chunk.Seq))
			}
		}
		line, err := expandTemplate(ts.MacroLine, map[string]string{
			"name": Quote(name),
			"def":  strings.Join(defSeqs, ", "),
			"refs": strings.Join(refSeqs, ", "),
		})
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
	}
	end, err := expandTemplate(ts.MacroEnd, nil)
	if err != nil {
		return "", err
	}
	sb.WriteString(end)
	return sb.String(), nil
}

// weaveUserIdXref renders the @u user identifier cross reference section.
// An empty result (no chunk carries any UserIdentifiers) is not an error;
// it simply omits the section.
func weaveUserIdXref(w *Web, ts TemplateSet) (string, error) {
	index := map[string][]int{}
	var order []string
	for _, c := range w.Chunks {
		for _, id := range c.UserIdentifiers {
			if _, ok := index[id]; !ok {
				order = append(order, id)
			}
			index[id] = append(index[id], c.Seq)
		}
	}
	if len(order) == 0 {
		return "", nil
	}

	var sb strings.Builder
	begin, err := expandTemplate(ts.UserIdBegin, nil)
	if err != nil {
		return "", err
	}
	sb.WriteString(begin)
	for _, id := range order {
		var refs []string
		for _, seq := range index[id] {
			refs = append(refs, strconv.Itoa(seq))
		}
		line, err := expandTemplate(ts.UserIdLine, map[string]string{
			"name": Quote(id),
			"refs": strings.Join(refs, ", "),
		})
		if err != nil {
			return "", err
		}
		sb.WriteString(line)
	}
	end, err := expandTemplate(ts.UserIdEnd, nil)
	if err != nil {
		return "", err
	}
	sb.WriteString(end)
	return sb.String(), nil
}
