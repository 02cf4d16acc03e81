package transform

import (
	"golang.org/x/exp/slices"

	"github.com/jimmyhmiller/rhino-sub001/lang/ir"
)

// wrapSymbolTable implements the BLOCK/LOOP/ARRAYCOMP rule of section 4.3:
// a block carrying a non-empty symbol table (its Names field, populated by
// the parser with the let/const names declared directly in it) is replaced
// by a LET wrapper whose Names list is that symbol table, with one nil
// initializer child per name followed by the original node (its symbol
// table cleared) as the body child, so visiting
// the wrapper never reprocesses it. The original node's own declaration
// statements (its CONST/VAR/LET children) still carry the initializing
// assignments; this wrapper only supplies the TDZ-initialized slots those
// assignments transition out of.
func (t *transformer) wrapSymbolTable(n *ir.Node) *ir.Node {
	names := n.Names
	n.Names = nil

	children := make([]*ir.Node, len(names)+1)
	children[len(names)] = n

	return &ir.Node{Tok: ir.LET, Pos: n.Pos, Names: names, Children: children, Index: ir.NoIndex}
}

// visitLoopStmt pushes a break/continue target frame keyed on n itself
// before lowering a loop's body. The per-iteration wrapper below only pushes
// a with-scope frame keyed on its synthetic ENTERWITH, and nothing else on
// the loops stack is ever keyed to the loop statement, so an ordinary
// unlabeled break/continue (e.g. while(x){ if(y) break }) needs a frame of
// its own to ever match; its unwind is a no-op, the same as a LABEL or
// SWITCH frame. A labeled loop gets an additional frameLabel pushed by the
// enclosing LABEL case, matched first when a label is given; this one
// supplies the fallback target for the unlabeled case.
func (t *transformer) visitLoopStmt(n *ir.Node) *ir.Node {
	t.loops = append(t.loops, &frame{kind: frameLabel, stmt: n})
	var out *ir.Node
	if n.Flags.Has(ir.PerIterationScope) {
		out = t.visitLoop(n)
	} else {
		t.visitChildrenInPlace(n)
		out = n
	}
	t.loops = t.loops[:len(t.loops)-1]
	return out
}

// visitLoop implements section 4.3.1's per-iteration loop wrapper. The
// shape is determined by counting the loop's TARGET children: four for a
// C-style for (body, increment, condition, break), three for for-in/for-of
// (body, condition, break); any other shape is left unwrapped.
func (t *transformer) visitLoop(n *ir.Node) *ir.Node {
	targets := countTargets(n)
	t.opts.Log.Debugf("loop-lowering: per-iteration targets=%d names=%v", targets, n.Names)
	switch targets {
	case 4:
		return t.visitForStyleLoop(n)
	case 3:
		return t.visitForInOfLoop(n)
	default:
		t.visitChildrenInPlace(n)
		return n
	}
}

func countTargets(n *ir.Node) int {
	c := 0
	for _, ch := range n.Children {
		if ch != nil && ch.Tok == ir.TARGET {
			c++
		}
	}
	return c
}

// visitForStyleLoop lowers a C-style `for (let i = 0; …; …)` per-iteration
// loop: an ENTERWITH seeds the per-iteration scope from the current values
// of the named bindings (so the first iteration observes the initializer's
// assignment), a SWITCH_PER_ITER_SCOPE is spliced between the body and the
// increment so each iteration after the first runs against a fresh sibling
// scope copied from the previous one, and a LEAVEWITH closes the scope once
// the loop exits.
func (t *transformer) visitForStyleLoop(n *ir.Node) *ir.Node {
	names := slices.Clone(n.Names)
	body, inc, cond, brk := n.Children[0], n.Children[1], n.Children[2], n.Children[3]

	obj := &ir.Node{Tok: ir.OBJECTLIT, Pos: n.Pos, Keys: names, Index: ir.NoIndex}
	for _, name := range names {
		obj.Children = append(obj.Children, &ir.Node{Tok: ir.NAME, Pos: n.Pos, Name: name, Index: ir.NoIndex})
	}
	enter := &ir.Node{Tok: ir.ENTERWITH, Pos: n.Pos, Children: []*ir.Node{obj}, Index: ir.NoIndex}

	t.loops = append(t.loops, &frame{kind: frameWith, stmt: enter, perIterNames: names})
	visitedBody := t.visit(body)
	switchScope := &ir.Node{Tok: ir.SWITCH_PER_ITER_SCOPE, Pos: n.Pos, Names: slices.Clone(names), Index: ir.NoIndex}
	visitedInc := t.visit(inc)
	visitedCond := t.visit(cond)
	t.loops = t.loops[:len(t.loops)-1]

	loop := &ir.Node{
		Tok:      ir.LOOP,
		Pos:      n.Pos,
		Flags:    n.Flags &^ ir.PerIterationScope,
		Children: []*ir.Node{visitedBody, switchScope, visitedInc, visitedCond, brk},
		Index:    ir.NoIndex,
	}

	leave := &ir.Node{Tok: ir.LEAVEWITH, Pos: n.Pos, Index: ir.NoIndex}
	return &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Children: []*ir.Node{enter, loop, leave}, Index: ir.NoIndex}
}

// visitForInOfLoop lowers a `for (let x of/in …)` per-iteration loop: the
// per-iteration scope's slots all start at TDZ, and no copy-back opcode is
// needed since each iteration's binding is overwritten by the iterator
// before the body runs (the body's first statement is always a
// SETLETINIT).
func (t *transformer) visitForInOfLoop(n *ir.Node) *ir.Node {
	names := slices.Clone(n.Names)
	body, cond, brk := n.Children[0], n.Children[1], n.Children[2]

	obj := &ir.Node{Tok: ir.OBJECTLIT, Pos: n.Pos, Keys: names, Index: ir.NoIndex}
	for range names {
		obj.Children = append(obj.Children, &ir.Node{Tok: ir.TDZ, Pos: n.Pos, Index: ir.NoIndex})
	}
	enter := &ir.Node{Tok: ir.ENTERWITH, Pos: n.Pos, Children: []*ir.Node{obj}, Index: ir.NoIndex}

	t.loops = append(t.loops, &frame{kind: frameWith, stmt: enter})
	wrappedBody := &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Children: []*ir.Node{t.visit(body)}, Index: ir.NoIndex}
	visitedCond := t.visit(cond)
	t.loops = t.loops[:len(t.loops)-1]

	loop := &ir.Node{
		Tok:      ir.LOOP,
		Pos:      n.Pos,
		Flags:    n.Flags &^ ir.PerIterationScope,
		Children: []*ir.Node{wrappedBody, visitedCond, brk},
		Index:    ir.NoIndex,
	}
	leave := &ir.Node{Tok: ir.LEAVEWITH, Pos: n.Pos, Index: ir.NoIndex}
	return &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Children: []*ir.Node{enter, loop, leave}, Index: ir.NoIndex}
}
