package transform

import (
	"golang.org/x/exp/slices"

	"github.com/jimmyhmiller/rhino-sub001/lang/ir"
	"github.com/jimmyhmiller/rhino-sub001/lang/token"
)

// visitReturn implements the RETURN rule of section 4.3: when hasFinally is
// set, every enclosing TRY-with-finally and with-scope on the loops stack
// contributes an unwind opcode (JSR to the finally target, or LEAVEWITH)
// prepended before the return; a returned expression is materialized once
// into a temporary and the node becomes RETURN_RESULT, so the unwind block
// runs after the expression is evaluated but before control actually
// leaves.
func (t *transformer) visitReturn(n *ir.Node) *ir.Node {
	var unwind []*ir.Node
	if t.hasFinally {
		for i := len(t.loops) - 1; i >= 0; i-- {
			f := t.loops[i]
			switch f.kind {
			case frameTry:
				unwind = append(unwind, &ir.Node{Tok: ir.JSR, Pos: n.Pos, Target: f.finallyTarget, Index: ir.NoIndex})
			case frameWith:
				unwind = append(unwind, &ir.Node{Tok: ir.LEAVEWITH, Pos: n.Pos, Index: ir.NoIndex})
			}
		}
	}

	var expr *ir.Node
	if len(n.Children) > 0 {
		expr = t.visit(n.Children[0])
	}

	if expr == nil {
		result := &ir.Node{Tok: ir.RETURN, Pos: n.Pos, Flags: n.Flags, Index: ir.NoIndex}
		return spliceUnwind(n.Pos, unwind, result)
	}

	tmp := t.newTempName()
	setTmp := &ir.Node{Tok: ir.SETNAME, Pos: n.Pos, Name: tmp, Children: []*ir.Node{expr}, Index: ir.NoIndex}
	store := &ir.Node{Tok: ir.EXPR_RESULT, Pos: n.Pos, Children: []*ir.Node{setTmp}, Index: ir.NoIndex}
	unwind = append([]*ir.Node{store}, unwind...)

	result := &ir.Node{Tok: ir.RETURN_RESULT, Pos: n.Pos, Name: tmp, Flags: n.Flags, Index: ir.NoIndex}
	return spliceUnwind(n.Pos, unwind, result)
}

// visitJump implements the BREAK/CONTINUE rule: walk the loops stack from
// the innermost frame until the one matching n.Target (the labeled
// statement the parser resolved this jump against); every with-scope
// crossed along the way contributes a LEAVEWITH (preceded by
// COPY_PER_ITER_SCOPE if it carries per-iteration names), and every
// try-with-finally crossed contributes a JSR. The jump itself is rewritten
// to GOTO.
func (t *transformer) visitJump(n *ir.Node) *ir.Node {
	if n.Target == nil {
		panic("transform: break/continue with no target statement")
	}
	// A continue's target must be loop-shaped (IsLoop is set on whichever
	// node n.Target actually points to: the loop itself for an unlabeled
	// continue, or the LABEL for a labeled one wrapping a loop); break has
	// no such restriction, since it may target a SWITCH or a labeled block.
	if n.Tok == ir.CONTINUE && !n.Target.Flags.Has(ir.IsLoop) {
		panic("transform: continue target is not loop-shaped")
	}

	var unwind []*ir.Node
	matched := false
	for i := len(t.loops) - 1; i >= 0; i-- {
		f := t.loops[i]
		if f.stmt == n.Target {
			matched = true
			break
		}
		switch f.kind {
		case frameWith:
			if f.perIterNames != nil {
				unwind = append(unwind, &ir.Node{
					Tok: ir.COPY_PER_ITER_SCOPE, Pos: n.Pos,
					Names: slices.Clone(f.perIterNames), Index: ir.NoIndex,
				})
			}
			unwind = append(unwind, &ir.Node{Tok: ir.LEAVEWITH, Pos: n.Pos, Index: ir.NoIndex})
		case frameTry:
			unwind = append(unwind, &ir.Node{Tok: ir.JSR, Pos: n.Pos, Target: f.finallyTarget, Index: ir.NoIndex})
		}
	}
	if !matched {
		panic("transform: break/continue target not found on the loop stack")
	}

	goTo := &ir.Node{Tok: ir.GOTO, Pos: n.Pos, Target: n.Target, Index: ir.NoIndex}
	return spliceUnwind(n.Pos, unwind, goTo)
}

func spliceUnwind(pos token.Pos, unwind []*ir.Node, tail *ir.Node) *ir.Node {
	if len(unwind) == 0 {
		return tail
	}
	return &ir.Node{Tok: ir.BLOCK, Pos: pos, Children: append(unwind, tail), Index: ir.NoIndex}
}
