package web

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TangleOptions configures Tangle.
type TangleOptions struct {
	// Dir is the directory tangled files are written under; the empty
	// string means the current directory.
	Dir string

	// LineNumbers, when true, is reserved for a future "-l" annotation
	// mode; the core tangler never emits source-line comments today,
	// since the target language is unknown to the model.
	LineNumbers bool
}

// Tangle expands every @o output chunk in w into its target file under
// opts.Dir, writing only files whose content actually changed (comparing
// against any existing file first, matching the teacher's TanglerMake
// behavior) and returns the list of paths written.
func Tangle(w *Web, opts TangleOptions) ([]string, error) {
	var written []string
	for _, name := range w.OutputNames() {
		body, err := tangleOutput(w, name)
		if err != nil {
			return written, err
		}
		path := name
		if opts.Dir != "" {
			path = filepath.Join(opts.Dir, name)
		}
		changed, err := writeIfChanged(path, []byte(body))
		if err != nil {
			return written, &ParseError{Kind: KindIO, File: path, Msg: err.Error()}
		}
		if changed {
			written = append(written, path)
		}
	}
	return written, nil
}

// tangler accumulates one output file's tangled text. atLineStart tracks
// whether the next byte written would begin a fresh output line, carried
// across every recursive reference expansion so a reference sitting mid
// line never gets a spurious leading indent.
type tangler struct {
	sb          strings.Builder
	atLineStart bool
}

// tangleOutput expands a single output file's chunks into their final text.
func tangleOutput(w *Web, name string) (string, error) {
	tg := &tangler{atLineStart: true}
	for _, c := range w.OutputChunks(name) {
		if err := tg.expand(w, c, 0, nil); err != nil {
			return "", err
		}
	}
	return tg.sb.String(), nil
}

func (tg *tangler) writeIndent(col int) {
	if tg.atLineStart && col > 0 {
		tg.sb.WriteString(strings.Repeat(" ", col))
	}
	tg.atLineStart = false
}

// expand writes c's body, recursively expanding @<...@> references at the
// column they appear on their source line. col is the indentation
// inherited from the reference site that pulled this chunk in (0 for a
// top-level @o chunk); it resets to 0 for the duration of expanding a
// -noindent chunk. stack carries the names currently being expanded, for
// cycle detection.
func (tg *tangler) expand(w *Web, c *Chunk, col int, stack []string) error {
	if c.NoIndent {
		col = 0
	}

	for _, cmd := range c.Commands {
		switch cmd.Kind {
		case CmdCode, CmdText:
			lines := strings.Split(cmd.Text, "\n")
			for i, line := range lines {
				if line != "" {
					tg.writeIndent(col)
					tg.sb.WriteString(line)
				}
				if i < len(lines)-1 {
					tg.sb.WriteByte('\n')
					tg.atLineStart = true
				}
			}

		case CmdReference:
			if containsName(stack, cmd.RefName) {
				chain := strings.Join(append(append([]string{}, stack...), cmd.RefName), " -> ")
				return &ParseError{Kind: KindTangleCycle, Line: cmd.Line, Msg: fmt.Sprintf("reference cycle: %s", chain)}
			}
			tg.writeIndent(col)
			refCol := col + cmd.Column
			defs, err := w.Definitions(cmd.RefName)
			if err != nil {
				return &ParseError{Kind: KindUndefinedRef, Line: cmd.Line, Msg: err.Error()}
			}
			// Multiple definitions of the same name concatenate exactly as
			// written, with no separator inserted: a definition that wants
			// a blank line between it and the next already ends in one.
			nextStack := append(append([]string{}, stack...), cmd.RefName)
			for _, def := range defs {
				if err := tg.expand(w, def, refCol, nextStack); err != nil {
					return err
				}
			}

		case CmdFileXref, CmdMacroXref, CmdUserIdXref:
			// Cross reference commands produce no tangled output; they are
			// weave-only.
		}
	}
	return nil
}

func containsName(stack []string, name string) bool {
	for _, s := range stack {
		if s == name {
			return true
		}
	}
	return false
}

// writeIfChanged writes content to path only if the existing file (if any)
// differs, writing via a temp file and rename so a reader never observes a
// partially written file. It reports whether it wrote.
func writeIfChanged(path string, content []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil {
		if string(existing) == string(content) {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, err
		}
	}

	tmp, err := os.CreateTemp(dir, ".web-tangle-*")
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once rename succeeds

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return false, err
	}
	return true, nil
}
