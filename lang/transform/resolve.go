package transform

import "github.com/jimmyhmiller/rhino-sub001/lang/ir"

// resolveIndexedLocal implements the !createScopeObjects branch of the
// NAME/SETNAME/SETCONST/SETLETINIT/DELPROP rule: resolve the name to its
// activation slot index (computed by an earlier resolver pass, supplied
// here through Options.LocalIndex, the same separation of concerns as the
// teacher's resolver computing slot indices ahead of the CFG-based
// compiler) and rewrite the node to its indexed-local form. A name the
// resolver does not recognize as a local of the current activation is left
// in its scope-object form, since it must still be resolved dynamically
// (a global, or a name reached through an enclosing with-scope).
func (t *transformer) resolveIndexedLocal(n *ir.Node) *ir.Node {
	idx, ok := t.localIndex(n.Name)
	if !ok {
		if n.Tok == ir.SETNAME && t.opts.Strict {
			t.rejectEvalAssignment(n)
			n = n.Clone()
			n.Tok = ir.STRICT_SETNAME
		}
		t.visitChildrenInPlace(n)
		return n
	}

	out := n.Clone()
	out.Index = idx

	switch n.Tok {
	case ir.NAME:
		out.Tok = ir.GETVAR
	case ir.SETNAME:
		if t.opts.Strict {
			t.rejectEvalAssignment(n)
		}
		out.Tok = ir.SETVAR
	case ir.SETCONST:
		out.Tok = ir.SETCONSTVAR
	case ir.SETLETINIT:
		out.Tok = ir.SETLETVAR
	case ir.DELPROP:
		// delete of a statically resolved local always fails: literal false.
		return &ir.Node{Tok: ir.Other, Pos: n.Pos, Name: "false", Index: ir.NoIndex}
	}

	t.visitChildrenInPlace(out)
	return out
}

func (t *transformer) localIndex(name string) (int, bool) {
	if t.opts.LocalIndex == nil {
		return 0, false
	}
	return t.opts.LocalIndex(name)
}
