// Package web parses, tangles, and weaves literate WEB documents.
//
// A WEB document interleaves prose with named and output code fragments.
// Fragments are delimited by two-character markers beginning with '@':
//
//	@o sample.go @{
//	package main
//
//	func main() {
//		@<body@>
//	}
//	@}
//
//	@d body @{
//	println("hello")
//	@}
//
// Tangling expands @o chunks, following @< name @> references transitively
// and honoring the indentation of the reference site, to produce compilable
// source files. Weaving walks the same document through a pluggable set of
// text templates to produce a typeset document; cross references in woven
// output are hyperlinks, not expansions.
//
// # Names
//
// Chunk names are whitespace-normalized (runs of space collapsed, ends
// trimmed) before comparison. A name ending in "..." is an abbreviation; it
// resolves at reference time to the unique full name sharing its non-"..."
// prefix. An abbreviation matching more than one full name is an error.
//
// # Options
//
// @d headers accept -indent (default) or -noindent, controlling whether the
// tangler resets accumulated reference-site indentation to zero while
// expanding that chunk's body. @o headers accept no options; their entire
// argument tail is the output path.
//
// # Includes
//
// @i path, terminated by the end of its line, splices another file into the
// token stream in place. Include cycles are detected and reported with the
// full chain of file names.
//
// # Errors
//
// Parsing collects as many errors as it can per included file rather than
// stopping at the first one; [Web.Errors] returns them after [Load]
// completes. Tangle and Weave fail on the first error they encounter,
// because a partially produced artifact is not a useful one.
package web
