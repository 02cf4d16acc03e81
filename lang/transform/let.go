package transform

import "github.com/jimmyhmiller/rhino-sub001/lang/ir"

// A LET/LETEXPR node arriving at visitLetLetExpr carries len(Names)+1
// children: Children[i] for i < len(Names) is the initializer expression
// for Names[i] (nil if that binding has none), and the final child is the
// body the bindings scope over.
func letBody(n *ir.Node) *ir.Node { return n.Children[len(n.Names)] }

// visitLetLetExpr implements section 4.3.2's three lowering modes for a
// LET/LETEXPR wrapper, selected by the flags a parser/earlier pass (or
// wrapSymbolTable, in loop.go) attaches.
func (t *transformer) visitLetLetExpr(n *ir.Node) *ir.Node {
	switch {
	case n.Flags.Has(ir.ConstForLoopScope):
		t.opts.Log.Debugf("let-lowering: const-for-loop-scope names=%v", n.Names)
		return t.letConstForLoop(n)
	case n.Flags.Has(ir.LetForLoopScope):
		t.opts.Log.Debugf("let-lowering: let-for-loop-scope names=%v", n.Names)
		return t.letForLoopScope(n)
	default:
		t.opts.Log.Debugf("let-lowering: plain names=%v createScopeObjects=%v", n.Names, t.createScopeObjects)
		return t.letPlain(n)
	}
}

// letConstForLoop: mode 1. Each name's initializer (or TDZ, if absent) is
// evaluated in the enclosing scope once, at ENTERWITH time; CONST_NAMES
// attached to the ENTERWITH tells the runtime to mark those slots READONLY
// after their first write.
func (t *transformer) letConstForLoop(n *ir.Node) *ir.Node {
	names := n.Names
	body := letBody(n)

	obj := &ir.Node{Tok: ir.OBJECTLIT, Pos: n.Pos, Keys: append([]string(nil), names...), Index: ir.NoIndex}
	for i := range names {
		init := n.Children[i]
		if init == nil {
			init = &ir.Node{Tok: ir.TDZ, Pos: n.Pos, Index: ir.NoIndex}
		}
		obj.Children = append(obj.Children, t.visit(init))
	}
	enter := &ir.Node{Tok: ir.ENTERWITH, Pos: n.Pos, Children: []*ir.Node{obj}, Index: ir.NoIndex}
	enter.Names = append([]string(nil), names...) // CONST_NAMES

	t.loops = append(t.loops, &frame{kind: frameWith, stmt: enter})
	visitedBody := t.visit(body)
	t.loops = t.loops[:len(t.loops)-1]

	withNode := &ir.Node{Tok: ir.WITH, Pos: n.Pos, Children: []*ir.Node{visitedBody}, Index: ir.NoIndex}
	leave := &ir.Node{Tok: ir.LEAVEWITH, Pos: n.Pos, Index: ir.NoIndex}
	return &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Children: []*ir.Node{enter, withNode, leave}, Index: ir.NoIndex}
}

// letForLoopScope: mode 2. All slots start at TDZ; each name's initializer
// runs *inside* the with-scope as a SETLETINIT statement, so a function
// literal in an initializer closes over the per-iteration scope rather than
// the outer one.
func (t *transformer) letForLoopScope(n *ir.Node) *ir.Node {
	names := n.Names
	body := letBody(n)

	obj := &ir.Node{Tok: ir.OBJECTLIT, Pos: n.Pos, Keys: append([]string(nil), names...), Index: ir.NoIndex}
	for range names {
		obj.Children = append(obj.Children, &ir.Node{Tok: ir.TDZ, Pos: n.Pos, Index: ir.NoIndex})
	}
	enter := &ir.Node{Tok: ir.ENTERWITH, Pos: n.Pos, Children: []*ir.Node{obj}, Index: ir.NoIndex}

	t.loops = append(t.loops, &frame{kind: frameWith, stmt: enter})

	var withChildren []*ir.Node
	for i, name := range names {
		init := n.Children[i]
		if init == nil {
			init = &ir.Node{Tok: ir.TDZ, Pos: n.Pos, Index: ir.NoIndex}
		}
		setInit := &ir.Node{Tok: ir.SETLETINIT, Pos: n.Pos, Name: name, Children: []*ir.Node{t.visit(init)}, Index: ir.NoIndex}
		withChildren = append(withChildren, &ir.Node{Tok: ir.EXPR_VOID, Pos: n.Pos, Children: []*ir.Node{setInit}, Index: ir.NoIndex})
	}
	withChildren = append(withChildren, t.visit(body))
	t.loops = t.loops[:len(t.loops)-1]

	withBody := &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Children: withChildren, Index: ir.NoIndex}
	withNode := &ir.Node{Tok: ir.WITH, Pos: n.Pos, Children: []*ir.Node{withBody}, Index: ir.NoIndex}
	leave := &ir.Node{Tok: ir.LEAVEWITH, Pos: n.Pos, Index: ir.NoIndex}
	return &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Children: []*ir.Node{enter, withNode, leave}, Index: ir.NoIndex}
}

// letPlain: mode 3, for an explicit `let`/`letexpr` statement not produced
// by a for-loop header. When the enclosing function needs an activation,
// this produces the same ENTERWITH/WITH/LEAVEWITH triple as the other
// modes; otherwise it flattens to a COMMA (letexpr) or BLOCK (let) of
// SETVAR assignments followed by the body, since the names already have
// dedicated indexed slots in the activation and need no with-scope.
func (t *transformer) letPlain(n *ir.Node) *ir.Node {
	names := n.Names
	body := letBody(n)

	if t.createScopeObjects {
		obj := &ir.Node{Tok: ir.OBJECTLIT, Pos: n.Pos, Keys: append([]string(nil), names...), Index: ir.NoIndex}
		for i := range names {
			init := n.Children[i]
			if init == nil {
				init = &ir.Node{Tok: ir.TDZ, Pos: n.Pos, Index: ir.NoIndex}
			}
			obj.Children = append(obj.Children, t.visit(init))
		}
		enter := &ir.Node{Tok: ir.ENTERWITH, Pos: n.Pos, Children: []*ir.Node{obj}, Index: ir.NoIndex}

		t.loops = append(t.loops, &frame{kind: frameWith, stmt: enter})
		visitedBody := t.visit(body)
		t.loops = t.loops[:len(t.loops)-1]

		withNode := &ir.Node{Tok: ir.WITH, Pos: n.Pos, Children: []*ir.Node{visitedBody}, Index: ir.NoIndex}
		leave := &ir.Node{Tok: ir.LEAVEWITH, Pos: n.Pos, Index: ir.NoIndex}
		return &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Children: []*ir.Node{enter, withNode, leave}, Index: ir.NoIndex}
	}

	var assigns []*ir.Node
	for i, name := range names {
		init := n.Children[i]
		if init == nil {
			init = &ir.Node{Tok: ir.Other, Pos: n.Pos, Index: ir.NoIndex} // undefined literal
		}
		setv := &ir.Node{Tok: ir.SETVAR, Pos: n.Pos, Name: name, Children: []*ir.Node{t.visit(init)}, Index: ir.NoIndex}
		if idx, ok := t.localIndex(name); ok {
			setv.Index = idx
		}
		assigns = append(assigns, setv)
	}
	assigns = append(assigns, t.visit(body))

	tok := ir.BLOCK
	if n.Tok == ir.LETEXPR {
		tok = ir.COMMA
	}
	return &ir.Node{Tok: tok, Pos: n.Pos, Children: assigns, Index: ir.NoIndex}
}

// visitDecl implements the CONST/VAR (and fallen-through LET) declaration
// rule: a for-in/for-of loop variable is erased (the loop wrapper already
// supplies its TDZ scope); otherwise the declaration becomes a BLOCK of
// EXPR_VOID(SET…) statements, one per name.
func (t *transformer) visitDecl(n *ir.Node) *ir.Node {
	if n.Flags.Has(ir.ForInOfLoopVar) {
		return &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Index: ir.NoIndex}
	}

	setTok := ir.SETNAME
	switch n.Tok {
	case ir.CONST:
		setTok = ir.SETCONST
	case ir.LET:
		setTok = ir.SETLETINIT
	}

	var stmts []*ir.Node
	for i, name := range n.Names {
		init := n.Children[i]
		if init == nil {
			init = &ir.Node{Tok: ir.Other, Pos: n.Pos, Index: ir.NoIndex} // undefined literal
		}
		set := &ir.Node{Tok: setTok, Pos: n.Pos, Name: name, Children: []*ir.Node{t.visit(init)}, Index: ir.NoIndex}
		if !t.createScopeObjects {
			set = t.resolveIndexedLocal(set)
		} else if setTok == ir.SETNAME && t.opts.Strict {
			t.rejectEvalAssignment(set)
			set.Tok = ir.STRICT_SETNAME
		}
		stmts = append(stmts, &ir.Node{Tok: ir.EXPR_VOID, Pos: n.Pos, Children: []*ir.Node{set}, Index: ir.NoIndex})
	}
	return &ir.Node{Tok: ir.BLOCK, Pos: n.Pos, Children: stmts, Index: ir.NoIndex}
}
