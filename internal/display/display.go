// Package display decides whether fetched content is printable and writes
// it, or a diagnostic, to the right stream.
package display

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// Kind is the classification of fetched content.
type Kind string

const (
	KindDir    Kind = "dir"
	KindText   Kind = "text"
	KindBinary Kind = "binary"
)

// Classify reports how content would be printed. Nil content (the server's
// NULL for a directory) and empty content both get the directory diagnostic.
func Classify(content []byte) Kind {
	if len(content) == 0 {
		return KindDir
	}
	if !utf8.Valid(content) {
		return KindBinary
	}
	return KindText
}

// Print writes text content to stdout unchanged. Directories and binary
// content only produce a one-line diagnostic on stderr.
func Print(stdout, stderr io.Writer, path string, content []byte) Kind {
	kind := Classify(content)
	switch kind {
	case KindDir:
		fmt.Fprintf(stderr, "\"%s\" is a dir\n", path)
	case KindBinary:
		fmt.Fprintf(stderr, "\"%s\" is a binary file\n", path)
	default:
		stdout.Write(content)
	}
	return kind
}
