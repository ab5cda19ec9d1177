package web

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Options collects everything an Action needs: which document to load, how
// to parse it, and where tangled/woven output goes. This generalizes the
// original_source tool's argparse.Namespace into a plain struct, in the
// same spirit as the teacher's own flat option structs.
type Options struct {
	// FS is the filesystem the root document and its @i includes are read
	// from. A nil FS defaults to the local OS filesystem rooted at ".".
	FS fs.FS

	// Root is the path of the root WEB document within FS.
	Root string

	// OutDir is the directory tangled files are written under.
	OutDir string

	// WeavePath, if non-empty, is the file the woven document is written
	// to; TangleAction ignores it and WeaveAction requires it.
	WeavePath string

	Load  LoadOptions
	Weave WeaveOptions

	// Verbose, when true, causes each Action to also log its summary to
	// Log as it runs, in addition to returning it. A nil Log discards
	// these lines.
	Verbose bool
	Log     func(string)

	web *Web // populated by LoadAction, consumed by TangleAction/WeaveAction
}

func (o *Options) logf(format string, args ...any) {
	if o.Verbose && o.Log != nil {
		o.Log(fmt.Sprintf(format, args...))
	}
}

func (o *Options) fsys() fs.FS {
	if o.FS != nil {
		return o.FS
	}
	return os.DirFS(".")
}

// Action is one step of a run: load, tangle, or weave. It returns a short
// human-readable summary of what it did alongside any error. Composing
// Actions with Sequence mirrors the original_source tool's
// ActionSequence/LoadAction/TangleAction/WeaveAction, which run in order
// and stop at the first failure.
type Action func(*Options) (string, error)

// Sequence runs each Action in turn, stopping at the first error. Its
// summary joins each step's non-empty summary, prefixed by name.
func Sequence(name string, actions ...Action) Action {
	return func(o *Options) (string, error) {
		var summaries []string
		for _, a := range actions {
			summary, err := a(o)
			if err != nil {
				return strings.Join(summaries, "; "), err
			}
			if summary != "" {
				summaries = append(summaries, summary)
			}
		}
		return fmt.Sprintf("%s: %s", name, strings.Join(summaries, "; ")), nil
	}
}

// LoadAction parses opts.Root (and its @i includes) from opts.FS into a
// Web, stashing it on Options for a following TangleAction/WeaveAction.
func LoadAction(o *Options) (string, error) {
	w, err := Load(o.fsys(), o.Root, o.Load)
	if err != nil {
		return "", err
	}
	o.web = w
	summary := fmt.Sprintf("loaded %s: %d chunks", o.Root, len(w.Chunks))
	o.logf("%s", summary)
	return summary, nil
}

// TangleAction expands every @o chunk in the previously loaded Web and
// writes changed files under opts.OutDir. It requires a prior LoadAction
// in the same Sequence.
func TangleAction(o *Options) (string, error) {
	if o.web == nil {
		return "", fmt.Errorf("web: TangleAction run before LoadAction")
	}
	written, err := Tangle(o.web, TangleOptions{Dir: o.OutDir})
	if err != nil {
		return "", err
	}
	summary := fmt.Sprintf("tangled %d file(s)", len(written))
	o.logf("%s", summary)
	for _, path := range written {
		o.logf("  wrote %s", path)
	}
	return summary, nil
}

// WeaveAction renders the previously loaded Web to opts.WeavePath. It
// requires a prior LoadAction in the same Sequence and a non-empty
// opts.WeavePath.
func WeaveAction(o *Options) (string, error) {
	if o.web == nil {
		return "", fmt.Errorf("web: WeaveAction run before LoadAction")
	}
	if o.WeavePath == "" {
		return "", fmt.Errorf("web: WeaveAction requires Options.WeavePath")
	}
	ts := o.Weave.Templates
	if (ts == TemplateSet{}) {
		ts = PlainTemplates()
	}
	out, err := Weave(o.web, WeaveOptions{Templates: ts, Style: o.Weave.Style, Quote: o.Weave.Quote})
	if err != nil {
		return "", err
	}
	changed, err := writeIfChanged(o.WeavePath, []byte(out))
	if err != nil {
		return "", &ParseError{Kind: KindIO, File: o.WeavePath, Msg: err.Error()}
	}
	summary := fmt.Sprintf("wove %s", o.WeavePath)
	if !changed {
		summary += " (unchanged)"
	}
	o.logf("%s", summary)
	return summary, nil
}
