// Package treedump renders an ir.Node tree (or a scope slot table) as
// indented text and diffs two renderings, for use in table-driven tests
// across lang/transform and lang/activation. It plays the same role the
// teacher's internal/filetest plays for golden-file comparisons, adapted to
// compare in-memory trees against an inline expected rendering instead of a
// file on disk, since no parser ships in this module to regenerate fixtures
// from source text.
package treedump

import (
	"fmt"
	"strings"

	"github.com/kylelemons/godebug/diff"

	"github.com/jimmyhmiller/rhino-sub001/lang/ir"
	"github.com/jimmyhmiller/rhino-sub001/lang/scope"
)

// Dump renders n and its descendants as one line per node, indented by
// depth, in the form `TOKEN "name" names=[...] const`, where the quoted
// name, the names list and the const marker appear only when set.
func Dump(n *ir.Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n *ir.Node, depth int) {
	if n == nil {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString("<nil>\n")
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Tok.String())
	if n.Name != "" {
		fmt.Fprintf(sb, " %q", n.Name)
	}
	if len(n.Names) > 0 {
		fmt.Fprintf(sb, " names=%v", n.Names)
	}
	if n.Const {
		sb.WriteString(" const")
	}
	sb.WriteString("\n")
	for _, c := range n.Children {
		dump(sb, c, depth+1)
	}
}

// Diff returns a human-readable patch between the rendering of want and got,
// or the empty string if they render identically.
func Diff(want, got *ir.Node) string {
	return diff.Diff(Dump(want), Dump(got))
}

// DumpScope renders a scope's slot table as one line per name, in
// declaration order, in the form "name=value attrs=N".
func DumpScope(s *scope.Scope) string {
	if s == nil {
		return "<nil>\n"
	}
	var sb strings.Builder
	for _, name := range s.Names() {
		v, _ := s.Get(name)
		attrs, _ := s.GetAttributes(name)
		fmt.Fprintf(&sb, "%s=%v attrs=%d\n", name, v, attrs)
	}
	return sb.String()
}

// DiffScope returns a human-readable patch between the slot-table renderings
// of want and got, or the empty string if they render identically.
func DiffScope(want, got *scope.Scope) string {
	return diff.Diff(DumpScope(want), DumpScope(got))
}
