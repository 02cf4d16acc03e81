package transform

import (
	"golang.org/x/exp/slices"

	"github.com/jimmyhmiller/rhino-sub001/lang/ir"
)

// annexBNames implements the Annex B function-in-block hoisting pre-pass:
// for a non-strict function or script body, a FUNCTION declaration that
// appears directly in a nested BLOCK/LOOP/ARRAYCOMP is, in addition to its
// own block-scoped binding, eligible for a second var-style binding at the
// enclosing function/script scope, unless a let/const/function name of the
// same declared directly in a block between it and that scope shadows it.
// The walk never descends into a nested FUNCTION's own body: that function
// gets its own Annex B pass when it is lowered on its own terms.
func annexBNames(root *ir.Node) []string {
	eligible := map[string]bool{}

	var walk func(n *ir.Node, blocked map[string]bool)
	walk = func(n *ir.Node, blocked map[string]bool) {
		if n == nil || n.Tok == ir.FUNCTION {
			return
		}
		if n.Tok == ir.BLOCK || n.Tok == ir.LOOP || n.Tok == ir.ARRAYCOMP {
			if len(n.Names) > 0 {
				inner := make(map[string]bool, len(blocked)+len(n.Names))
				for name := range blocked {
					inner[name] = true
				}
				for _, name := range n.Names {
					inner[name] = true
				}
				blocked = inner
			}
			for _, c := range n.Children {
				if c != nil && c.Tok == ir.FUNCTION && c.Name != "" && !blocked[c.Name] {
					eligible[c.Name] = true
				}
			}
		}
		for _, c := range n.Children {
			walk(c, blocked)
		}
	}

	for _, c := range root.Children {
		walk(c, map[string]bool{})
	}

	names := make([]string, 0, len(eligible))
	for name := range eligible {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
