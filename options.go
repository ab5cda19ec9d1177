package web

import (
	"fmt"
	"strings"
	"unicode"
)

// OptionDef declares one recognized flag (or the positional tail) for an
// OptionParser. Nargs is 0 for a boolean flag, 1 for a flag that consumes
// exactly one following token, or -1 for the catch-all positional tail
// (there must be exactly one OptionDef with Nargs -1 per OptionParser, and
// its Name is the key under which the positional tokens are stored).
type OptionDef struct {
	Name  string
	Nargs int
}

// OptionParser parses the shell-style argument tail of a @d or @o header:
// optional flags first, a positional tail last. This is shared machinery
// between the two header kinds, configured with a different set of
// OptionDefs for each (an @d header recognizes -indent/-noindent; an @o
// header recognizes no flags at all).
type OptionParser struct {
	defs     map[string]OptionDef
	tailName string
}

// NewOptionParser builds an OptionParser recognizing exactly the given
// OptionDefs. It panics if defs does not contain exactly one Nargs -1
// entry; that is a programming error, not a runtime one.
func NewOptionParser(defs ...OptionDef) *OptionParser {
	p := &OptionParser{defs: make(map[string]OptionDef)}
	tailSeen := false
	for _, d := range defs {
		if d.Nargs == -1 {
			if tailSeen {
				panic("web: OptionParser given more than one positional OptionDef")
			}
			tailSeen = true
			p.tailName = d.Name
			continue
		}
		p.defs[d.Name] = d
	}
	if !tailSeen {
		panic("web: OptionParser given no positional OptionDef")
	}
	return p
}

// Parse splits text into whitespace-separated tokens, consumes any
// recognized leading flags, and places every remaining token under the
// positional tail key. An unrecognized "-"-prefixed token while still in
// flag position is an error, as is a flag missing its required value.
func (p *OptionParser) Parse(text string) (map[string][]string, error) {
	tokens := fields(text)
	result := make(map[string][]string)

	i := 0
	for i < len(tokens) && strings.HasPrefix(tokens[i], "-") {
		name := tokens[i]
		def, ok := p.defs[name]
		if !ok {
			return nil, fmt.Errorf("unrecognized option %q", name)
		}
		switch def.Nargs {
		case 0:
			result[name] = nil
			i++
		case 1:
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("option %q requires a value", name)
			}
			result[name] = []string{tokens[i+1]}
			i += 2
		default:
			return nil, fmt.Errorf("option %q has unsupported arity %d", name, def.Nargs)
		}
	}

	result[p.tailName] = tokens[i:]
	return result, nil
}

// fields splits s on runs of whitespace, discarding empty fields, in the
// same spirit as the teacher's cutField/ParseArgs helpers: a simple
// left-to-right scan rather than a full shell tokenizer, since WEB headers
// never need quoting.
func fields(s string) []string {
	var out []string
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return out
		}
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			return append(out, s)
		}
		out = append(out, s[:i])
		s = s[i:]
	}
}

// chunkOptionParser recognizes the -indent/-noindent flags legal on a @d
// header, with the chunk name as the positional tail.
func chunkOptionParser() *OptionParser {
	return NewOptionParser(
		OptionDef{Name: "-indent", Nargs: 0},
		OptionDef{Name: "-noindent", Nargs: 0},
		OptionDef{Name: "argument", Nargs: -1},
	)
}

// outputOptionParser recognizes no flags on a @o header; its entire
// argument tail is the output path.
func outputOptionParser() *OptionParser {
	return NewOptionParser(
		OptionDef{Name: "argument", Nargs: -1},
	)
}
