// Package transform implements C3, the node transformer: a pure,
// single-pass lowering of a parsed function body into an IR tree whose
// scope-affecting opcodes (ENTERWITH, LEAVEWITH, SWITCH_PER_ITER_SCOPE, ...)
// are the contract between compile time and the activation/scope runtime
// (packages activation and scope).
package transform

import (
	"github.com/jimmyhmiller/rhino-sub001/lang/diag"
	"github.com/jimmyhmiller/rhino-sub001/lang/ir"
	"github.com/jimmyhmiller/rhino-sub001/lang/logger"
)

// Options configures one Transform invocation. Every tunable is passed in
// explicitly rather than read from a global or the environment, the same
// way the teacher's resolver.ResolveFiles takes a Mode bitmask and two
// predicate functions.
type Options struct {
	// RequiresActivation reports whether fn needs a full activation (and
	// therefore scope-object lowering for its block-scoped declarations)
	// rather than indexed-local lowering. The root SCRIPT node always
	// requires one regardless of this predicate.
	RequiresActivation func(fn *ir.Node) bool

	// Strict marks the function body as strict-mode, controlling the
	// SETNAME->STRICT_SETNAME rewrite and the eval-assignment diagnostic.
	Strict bool

	// Reporter receives the one source-level diagnostic this pass can
	// produce: assignment to `eval` in strict mode. May be nil, in which
	// case that diagnostic is silently dropped (lowering never depends on
	// the reporter to decide how to proceed).
	Reporter diag.Reporter

	// Log receives debug-level detail about which opcode shape a loop or
	// let-wrapper lowered to. Defaults to a no-op logger.
	Log logger.Logger

	// LocalIndex resolves a name to its activation slot index when the
	// enclosing function does not require a full activation
	// (!createScopeObjects): the output of an earlier resolver pass over the
	// same function, analogous to how the teacher's resolver computes slot
	// indices before the CFG-based compiler runs. May be nil, in which case
	// every name lowers to its scope-object form regardless of
	// createScopeObjects (acceptable: a scope-object lookup is always
	// correct, just slower than an indexed one).
	LocalIndex func(name string) (int, bool)
}

// frameKind distinguishes what kind of unwind a frame on the loops stack
// requires when a break/continue/return crosses it.
type frameKind int

const (
	// frameLabel marks a LABEL or SWITCH statement: it supplies a
	// break/continue target but requires no unwind opcode of its own.
	frameLabel frameKind = iota
	// frameWith marks a with-like scope (an explicit WITH statement, or one
	// of the synthetic ENTERWITH/LEAVEWITH scopes produced by the loop or
	// let lowering in this package): crossing it emits a LEAVEWITH, and a
	// COPY_PER_ITER_SCOPE first if perIterNames is set.
	frameWith
	// frameTry marks a TRY with a finally block: crossing it emits a JSR to
	// finallyTarget.
	frameTry
)

// frame is one entry of the transformer's loops stack: the enclosing
// LABEL/SWITCH/WITH/TRY statement (or synthetic with-scope) a break,
// continue, or return unwind must account for when it crosses it.
type frame struct {
	kind frameKind
	stmt *ir.Node

	// perIterNames is set on a frameWith produced by the C-style for-loop
	// per-iteration wrapper; its presence is what distinguishes a
	// COPY_PER_ITER_SCOPE+LEAVEWITH unwind from a plain LEAVEWITH.
	perIterNames []string

	// finallyTarget is set on a frameTry: the JSR emitted when a jump
	// crosses it targets this node.
	finallyTarget *ir.Node
}

// transformer carries the loops stack (whose frames also hold the jump
// targets) and the hasFinally flag, the whole of the transform's state, plus
// the Options it was
// constructed with. A transformer is built fresh for each function body, so
// no global mutable state is shared across calls (see the reentrancy note
// in the design notes: a generator's parameter-init block gets its own
// secondary pass with its own transformer).
type transformer struct {
	opts Options

	createScopeObjects bool

	loops    []*frame
	hasFinally bool

	tmp int // counter for synthesized temporary names
}

// Transform lowers root (a SCRIPT or FUNCTION body already annotated by the
// parser with symbol tables and the PER_ITERATION_NAMES/CONST_FOR_LOOP_SCOPE/
// LET_FOR_LOOP_SCOPE/FOR_IN_OF_LOOP_VAR/PER_ITERATION_SCOPE flags of section
// 6) into an IR tree whose break/continue are rewritten to GOTO and whose
// block-scoped declarations are rewritten to the scope-object or
// indexed-local opcodes appropriate to whether the function requires a full
// activation.
func Transform(root *ir.Node, opts Options) *ir.Node {
	if opts.Log == nil {
		opts.Log = logger.Nop
	}
	t := &transformer{opts: opts}
	t.createScopeObjects = root.Tok == ir.SCRIPT || opts.RequiresActivation == nil || opts.RequiresActivation(root)
	t.opts.Log.Debugf("transform: createScopeObjects=%v for %s", t.createScopeObjects, root.Tok)

	if !opts.Strict && (root.Tok == ir.SCRIPT || root.Tok == ir.FUNCTION) {
		if names := annexBNames(root); len(names) > 0 {
			t.opts.Log.Debugf("transform: annex B hoisting names=%v", names)
			hoist := &ir.Node{
				Tok:      ir.VAR,
				Pos:      root.Pos,
				Names:    names,
				Children: make([]*ir.Node, len(names)),
				Index:    ir.NoIndex,
			}
			root.Children = append([]*ir.Node{hoist}, root.Children...)
		}
	}
	return t.visit(root)
}

// visit dispatches on n's token and returns the (possibly new) node that
// should replace n in its parent's child list. Children are visited inside
// each case so that stack pushes/pops happen at the right point relative to
// recursion, per section 4.3.
func (t *transformer) visit(n *ir.Node) *ir.Node {
	if n == nil {
		return nil
	}

	switch n.Tok {
	case ir.LOOP:
		return t.visitLoopStmt(n)

	case ir.BLOCK, ir.ARRAYCOMP:
		if len(n.Names) > 0 && t.createScopeObjects {
			wrapper := t.wrapSymbolTable(n)
			return t.visit(wrapper)
		}
		t.visitChildrenInPlace(n)
		return n

	case ir.LABEL, ir.SWITCH:
		t.loops = append(t.loops, &frame{kind: frameLabel, stmt: n})
		t.visitChildrenInPlace(n)
		t.loops = t.loops[:len(t.loops)-1]
		return n

	case ir.WITH:
		t.loops = append(t.loops, &frame{kind: frameWith, stmt: n})
		t.visitChildrenInPlace(n)
		t.loops = t.loops[:len(t.loops)-1]
		return n

	case ir.TRY:
		if !n.Flags.Has(ir.HasFinally) {
			t.visitChildrenInPlace(n)
			return n
		}
		prevFinally := t.hasFinally
		t.hasFinally = true
		t.loops = append(t.loops, &frame{kind: frameTry, stmt: n, finallyTarget: n.Target})
		t.visitChildrenInPlace(n)
		t.loops = t.loops[:len(t.loops)-1]
		t.hasFinally = prevFinally
		return n

	case ir.YIELD, ir.YIELD_STAR, ir.AWAIT:
		// Recorded as a resumption point on the owning function; generator
		// resumption itself is a non-goal (spec.md section 1), so this pass
		// only needs to leave the node discoverable by a later stage, not
		// rewrite it.
		t.visitChildrenInPlace(n)
		return n

	case ir.RETURN:
		return t.visitReturn(n)

	case ir.BREAK, ir.CONTINUE:
		return t.visitJump(n)

	case ir.LET, ir.LETEXPR:
		if n.Tok == ir.LET && len(n.Children) == len(n.Names) {
			// a plain LET declaration (no body child) lowers like CONST/VAR.
			return t.visitDecl(n)
		}
		return t.visitLetLetExpr(n)

	case ir.CONST, ir.VAR:
		return t.visitDecl(n)

	case ir.TYPEOFNAME, ir.TYPEOF, ir.IFNE:
		return t.visitNoWarnPropagation(n)

	case ir.NAME, ir.SETNAME, ir.SETCONST, ir.SETLETINIT, ir.DELPROP:
		if !t.createScopeObjects {
			return t.resolveIndexedLocal(n)
		}
		if n.Tok == ir.SETNAME && t.opts.Strict {
			t.rejectEvalAssignment(n)
			n = n.Clone()
			n.Tok = ir.STRICT_SETNAME
		}
		t.visitChildrenInPlace(n)
		return n

	default:
		t.visitChildrenInPlace(n)
		return n
	}
}

// visitChildrenInPlace replaces each of n's children with its transformed
// form, in source order.
func (t *transformer) visitChildrenInPlace(n *ir.Node) {
	for i, c := range n.Children {
		n.Children[i] = t.visit(c)
	}
}

// rejectEvalAssignment is the one diagnostic this pass can raise: it never
// stops lowering afterward, per section 4.3.3 ("lowering continues to avoid
// cascading").
func (t *transformer) rejectEvalAssignment(n *ir.Node) {
	if n.Name != "eval" || t.opts.Reporter == nil {
		return
	}
	t.opts.Reporter.SyntaxError(n.Pos, "assignment to %q is not allowed in strict mode", n.Name)
}

// visitNoWarnPropagation implements the TYPEOFNAME/TYPEOF/IFNE rule:
// propagate a no-warn flag into GETPROP subexpressions used only for an
// undefined check, and resolve the defining scope on bare name lookups
// underneath (best-effort: the defining scope is only meaningful once a
// concrete Scope exists at runtime, so this pass only marks the intent via
// NoWarnUndefined; actual scope attachment is the interpreter's job).
func (t *transformer) visitNoWarnPropagation(n *ir.Node) *ir.Node {
	n.Flags |= ir.NoWarnUndefined
	for _, c := range n.Children {
		markNoWarn(c)
	}
	t.visitChildrenInPlace(n)
	return n
}

func markNoWarn(n *ir.Node) {
	if n == nil {
		return
	}
	n.Flags |= ir.NoWarnUndefined
	if n.Tok == ir.GETPROP || n.Tok == ir.NAME {
		for _, c := range n.Children {
			markNoWarn(c)
		}
	}
}

func (t *transformer) newTempName() string {
	t.tmp++
	return "\x00tmp" + itoa(t.tmp)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
