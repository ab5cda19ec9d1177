// Command litweb tangles and weaves WEB documents.
package main

import (
	"flag"
	"fmt"
	"os"

	"loom.dev/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "litweb:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("litweb", flag.ContinueOnError)
	var (
		outDir     = fs.String("o", ".", "directory to write tangled files under")
		weavePath  = fs.String("w", "", "file to write the woven document to; empty skips weaving")
		lead       = fs.String("c", "@", "command lead character")
		strict     = fs.Bool("strict", false, "reject unknown markers in prose, not just in chunk bodies")
		permitI    = fs.Bool("permit-missing-include", false, "warn instead of failing on a missing @i file")
		transitive = fs.Bool("transitive", false, "render transitive (full up-chain) reference backlinks when weaving")
		verbose    = fs.Bool("v", false, "log each step to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: litweb [flags] document.w")
	}
	if len(*lead) != 1 {
		return fmt.Errorf("-c must be exactly one character")
	}

	permit := map[string]bool{}
	if *permitI {
		permit["i"] = true
	}

	style := web.SimpleReference
	if *transitive {
		style = web.TransitiveReference
	}

	opts := &web.Options{
		Root:   fs.Arg(0),
		OutDir: *outDir,
		Load: web.LoadOptions{
			Lead:   (*lead)[0],
			Strict: *strict,
			Permit: permit,
			Warn: func(s string) {
				fmt.Fprintln(os.Stderr, s)
			},
		},
		Weave: web.WeaveOptions{
			Templates: web.PlainTemplates(),
			Style:     style,
		},
		WeavePath: *weavePath,
		Verbose:   *verbose,
		Log: func(s string) {
			fmt.Fprintln(os.Stderr, s)
		},
	}

	actions := []web.Action{web.LoadAction, web.TangleAction}
	if *weavePath != "" {
		actions = append(actions, web.WeaveAction)
	}

	summary, err := web.Sequence("litweb", actions...)(opts)
	if err != nil {
		return err
	}
	if *verbose {
		fmt.Fprintln(os.Stderr, summary)
	}
	return nil
}
