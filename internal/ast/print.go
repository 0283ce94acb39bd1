package ast

import "strings"

// Print renders a deterministic textual form of an AST node (spec.md §8
// does not require a specific format, only determinism across runs for the
// same tree).
func Print(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

// PrintFile renders a whole file via File.String: package header, then one
// line per top-level declaration. Imports are not printed.
func PrintFile(f *File) string {
	if f == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(f.String())
	return b.String()
}
