// Package resolver computes, for one function body, the two facts the node
// transformer (package transform) needs before it can choose between
// scope-object and indexed-local lowering for that function's block-scoped
// declarations: whether the function requires a full activation at all, and
// (when it does not) the activation-slot index assigned to each of its own
// local names.
//
// The walk itself is grounded on the teacher's own resolver: a single
// recursive descent over the tree that assigns each newly bound name the
// next available slot index, stopping at a nested function boundary rather
// than descending into it. Unlike the teacher's, it keeps no stack of
// binding sets: every name declared anywhere in the function body lands in
// one flat table, and a name declared twice keeps its first index. What differs is the tree shape (this package walks
// the scope-and-binding core's ir.Node instead of the teacher's ast.Node)
// and the question being answered: the teacher's resolver turns every name
// into a Local/Free/Cell/Predeclared/Universal binding for its compiler,
// while this one only needs the coarser requires-activation bit and a flat
// name-to-index table, because scope resolution proper (binding NAME nodes
// to enclosing scopes dynamically) is this core's job at transform and
// runtime, not at this stage.
package resolver

import "github.com/jimmyhmiller/rhino-sub001/lang/ir"

// Result is the outcome of resolving one function body.
type Result struct {
	requiresActivation bool
	localIndex         map[string]int
}

// RequiresActivation reports whether the resolved function must lower its
// block-scoped declarations to scope objects (ENTERWITH/LEAVEWITH and
// friends) rather than indexed activation slots.
func (r *Result) RequiresActivation(*ir.Node) bool { return r.requiresActivation }

// LocalIndex looks up the activation-slot index assigned to name. It is
// meaningless (and never consulted by the transformer) when
// RequiresActivation is true.
func (r *Result) LocalIndex(name string) (int, bool) {
	idx, ok := r.localIndex[name]
	return idx, ok
}

// Resolve walks fn (a SCRIPT or FUNCTION body, as produced by a parser ahead
// of transform.Transform) and decides whether it requires a full activation:
// a function that contains a with-statement, references the name "eval"
// (NAME, SETNAME or TYPEOFNAME), or
// encloses a nested function requires one, since either a with-scope or a
// nested closure may need to resolve a name against this function's
// bindings dynamically, which only a real scope object supports. Otherwise
// every name this function itself declares (not one supplied by a nested
// function) is assigned a stable slot index in declaration order.
func Resolve(fn *ir.Node) *Result {
	w := &walker{localIndex: make(map[string]int)}
	w.walk(fn, true)
	return &Result{requiresActivation: w.requiresActivation, localIndex: w.localIndex}
}

type walker struct {
	requiresActivation bool
	localIndex         map[string]int
	next               int
}

func (w *walker) declare(name string) {
	if name == "" {
		return
	}
	if _, ok := w.localIndex[name]; ok {
		return
	}
	w.localIndex[name] = w.next
	w.next++
}

// walk visits n. root is true only for the call's original fn argument, so
// that a nested FUNCTION node (which always starts its own, independently
// resolved activation) is never mistaken for the function being resolved.
func (w *walker) walk(n *ir.Node, root bool) {
	if n == nil {
		return
	}

	switch n.Tok {
	case ir.WITH:
		w.requiresActivation = true

	case ir.NAME, ir.SETNAME, ir.TYPEOFNAME:
		if n.Name == "eval" {
			w.requiresActivation = true
		}

	case ir.FUNCTION:
		if !root {
			// A nested function is a potential closure over this function's
			// locals; it resolves its own body independently (a separate
			// Resolve call over its own tree) and contributes nothing to this
			// function's own local table.
			w.requiresActivation = true
			return
		}

	case ir.BLOCK, ir.LOOP, ir.ARRAYCOMP, ir.LET, ir.LETEXPR, ir.CONST, ir.VAR:
		if !n.Flags.Has(ir.ForInOfLoopVar) {
			for _, name := range n.Names {
				w.declare(name)
			}
		}
	}

	for _, c := range n.Children {
		w.walk(c, false)
	}
}
