package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyhmiller/rhino-sub001/internal/treedump"
	"github.com/jimmyhmiller/rhino-sub001/lang/diag"
	"github.com/jimmyhmiller/rhino-sub001/lang/ir"
	"github.com/jimmyhmiller/rhino-sub001/lang/token"
)

func name(n string) *ir.Node { return &ir.Node{Tok: ir.NAME, Name: n, Index: ir.NoIndex} }

func countTok(n *ir.Node, tok ir.Token) int {
	if n == nil {
		return 0
	}
	c := 0
	if n.Tok == tok {
		c++
	}
	for _, ch := range n.Children {
		c += countTok(ch, tok)
	}
	return c
}

// scenario 1: two nested blocks each declaring their own `x` lower to two
// distinct ENTERWITH/LEAVEWITH pairs.
func TestNestedBlockSymbolTablesProduceTwoScopePairs(t *testing.T) {
	inner := &ir.Node{Tok: ir.BLOCK, Names: []string{"x"}, Index: ir.NoIndex}
	outerBlock := &ir.Node{
		Tok:      ir.BLOCK,
		Names:    []string{"x"},
		Children: []*ir.Node{inner},
		Index:    ir.NoIndex,
	}
	script := &ir.Node{Tok: ir.SCRIPT, Children: []*ir.Node{outerBlock}, Index: ir.NoIndex}

	out := Transform(script, Options{})

	assert.Equal(t, 2, countTok(out, ir.ENTERWITH))
	assert.Equal(t, 2, countTok(out, ir.LEAVEWITH))
}

func TestConstDeclLowersToSetConstPerName(t *testing.T) {
	decl := &ir.Node{
		Tok:      ir.CONST,
		Names:    []string{"a", "b"},
		Children: []*ir.Node{name("initA"), nil},
		Index:    ir.NoIndex,
	}
	out := Transform(decl, Options{})
	require.Equal(t, ir.BLOCK, out.Tok)
	require.Len(t, out.Children, 2)
	for _, stmt := range out.Children {
		require.Equal(t, ir.EXPR_VOID, stmt.Tok)
		assert.Equal(t, ir.SETCONST, stmt.Children[0].Tok)
	}
	assert.Equal(t, "a", out.Children[0].Children[0].Name)
	assert.Equal(t, "b", out.Children[1].Children[0].Name)
	// the absent initializer for "b" becomes an undefined placeholder, not TDZ.
	assert.Equal(t, ir.Other, out.Children[1].Children[0].Children[0].Tok)
}

// TestConstDeclShapeMatchesExpectedDump exercises the same lowering as
// TestConstDeclLowersToSetConstPerName but asserts the whole shape at once
// via treedump.Diff against an inline expected tree, the same
// expected-rendering-vs-actual idiom the teacher's golden-file tests use.
func TestConstDeclShapeMatchesExpectedDump(t *testing.T) {
	decl := &ir.Node{
		Tok:      ir.CONST,
		Names:    []string{"a", "b"},
		Children: []*ir.Node{name("initA"), nil},
		Index:    ir.NoIndex,
	}
	out := Transform(decl, Options{})

	want := &ir.Node{
		Tok: ir.BLOCK,
		Children: []*ir.Node{
			{Tok: ir.EXPR_VOID, Children: []*ir.Node{
				{Tok: ir.SETCONST, Name: "a", Children: []*ir.Node{{Tok: ir.NAME, Name: "initA"}}},
			}},
			{Tok: ir.EXPR_VOID, Children: []*ir.Node{
				{Tok: ir.SETCONST, Name: "b", Children: []*ir.Node{{Tok: ir.Other}}},
			}},
		},
	}

	assert.Empty(t, treedump.Diff(want, out))
}

// TestAnnexBHoistsBlockFunctionDeclToFunctionScope exercises the Annex B
// pre-pass end to end: a function declared directly inside a nested block
// gets an additional var-style binding prepended at the function's own
// top level, undefined until the block's own declaration runs.
func TestAnnexBHoistsBlockFunctionDeclToFunctionScope(t *testing.T) {
	fn := &ir.Node{
		Tok: ir.FUNCTION,
		Children: []*ir.Node{
			{
				Tok:      ir.BLOCK,
				Children: []*ir.Node{{Tok: ir.FUNCTION, Name: "f", Index: ir.NoIndex}},
				Index:    ir.NoIndex,
			},
		},
		Index: ir.NoIndex,
	}

	out := Transform(fn, Options{})

	want := &ir.Node{
		Tok: ir.FUNCTION,
		Children: []*ir.Node{
			{Tok: ir.BLOCK, Children: []*ir.Node{
				{Tok: ir.EXPR_VOID, Children: []*ir.Node{
					{Tok: ir.SETNAME, Name: "f", Children: []*ir.Node{{Tok: ir.Other}}},
				}},
			}},
			{Tok: ir.BLOCK, Children: []*ir.Node{
				{Tok: ir.FUNCTION, Name: "f"},
			}},
		},
	}
	assert.Empty(t, treedump.Diff(want, out))
}

func TestAnnexBSkipsNameShadowedByLexicalNameInSameBlock(t *testing.T) {
	fn := &ir.Node{
		Tok: ir.FUNCTION,
		Children: []*ir.Node{
			{
				Tok:      ir.BLOCK,
				Names:    []string{"f"},
				Children: []*ir.Node{{Tok: ir.FUNCTION, Name: "f", Index: ir.NoIndex}},
				Index:    ir.NoIndex,
			},
		},
		Index: ir.NoIndex,
	}

	out := Transform(fn, Options{})
	require.Len(t, out.Children, 1, "a let/const/function binding of the same name in the declaring block blocks Annex B hoisting, so no synthetic var is prepended")
}

func TestAnnexBSkippedInStrictMode(t *testing.T) {
	fn := &ir.Node{
		Tok: ir.FUNCTION,
		Children: []*ir.Node{
			{Tok: ir.BLOCK, Children: []*ir.Node{{Tok: ir.FUNCTION, Name: "f", Index: ir.NoIndex}}, Index: ir.NoIndex},
		},
		Index: ir.NoIndex,
	}
	out := Transform(fn, Options{Strict: true})
	require.Len(t, out.Children, 1, "Annex B hoisting only applies to non-strict code")
}

func TestForInOfLoopVarDeclErased(t *testing.T) {
	decl := &ir.Node{Tok: ir.VAR, Names: []string{"x"}, Flags: ir.ForInOfLoopVar, Index: ir.NoIndex}
	out := Transform(decl, Options{})
	assert.Equal(t, ir.BLOCK, out.Tok)
	assert.Empty(t, out.Children)
}

// scenario 2: a C-style per-iteration for loop splices SWITCH_PER_ITER_SCOPE
// between body and increment, with ENTERWITH/LEAVEWITH bracketing the loop.
func TestForStylePerIterationLoopShape(t *testing.T) {
	body := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	inc := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	cond := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	brk := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	loop := &ir.Node{
		Tok:      ir.LOOP,
		Names:    []string{"i"},
		Flags:    ir.PerIterationScope,
		Children: []*ir.Node{body, inc, cond, brk},
		Index:    ir.NoIndex,
	}

	out := Transform(loop, Options{})

	require.Equal(t, ir.BLOCK, out.Tok)
	require.Len(t, out.Children, 3)
	assert.Equal(t, ir.ENTERWITH, out.Children[0].Tok)
	assert.Equal(t, ir.LOOP, out.Children[1].Tok)
	assert.Equal(t, ir.LEAVEWITH, out.Children[2].Tok)

	innerLoop := out.Children[1]
	require.Len(t, innerLoop.Children, 5)
	assert.Equal(t, ir.SWITCH_PER_ITER_SCOPE, innerLoop.Children[1].Tok)
	assert.Equal(t, []string{"i"}, innerLoop.Children[1].Names)
}

func TestForInOfPerIterationLoopShapeNoSwitchOpcode(t *testing.T) {
	body := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	cond := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	brk := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	loop := &ir.Node{
		Tok:      ir.LOOP,
		Names:    []string{"x"},
		Flags:    ir.PerIterationScope,
		Children: []*ir.Node{body, cond, brk},
		Index:    ir.NoIndex,
	}

	out := Transform(loop, Options{})
	require.Equal(t, ir.BLOCK, out.Tok)
	assert.Equal(t, 0, countTok(out, ir.SWITCH_PER_ITER_SCOPE))
	assert.Equal(t, 1, countTok(out, ir.ENTERWITH))
	assert.Equal(t, 1, countTok(out, ir.LEAVEWITH))
}

// an unlabeled break/continue targeting the loop directly (the ordinary
// case, e.g. while(x){ if(y) break }) must match a frame on the loops stack
// without a label or per-iteration wrapper in play.
func TestUnlabeledBreakOutOfBareLoopMatchesLoopItself(t *testing.T) {
	brk := &ir.Node{Tok: ir.BREAK, Index: ir.NoIndex}
	body := &ir.Node{Tok: ir.Other, Children: []*ir.Node{brk}, Index: ir.NoIndex}
	loop := &ir.Node{Tok: ir.LOOP, Flags: ir.IsLoop, Children: []*ir.Node{body}, Index: ir.NoIndex}
	brk.Target = loop

	out := Transform(loop, Options{})

	require.Equal(t, ir.LOOP, out.Tok)
	goTo := out.Children[0].Children[0]
	assert.Equal(t, ir.GOTO, goTo.Tok)
	assert.Same(t, loop, goTo.Target)
}

func TestUnlabeledContinueOutOfBareLoopMatchesLoopItself(t *testing.T) {
	cont := &ir.Node{Tok: ir.CONTINUE, Index: ir.NoIndex}
	body := &ir.Node{Tok: ir.Other, Children: []*ir.Node{cont}, Index: ir.NoIndex}
	loop := &ir.Node{Tok: ir.LOOP, Flags: ir.IsLoop, Children: []*ir.Node{body}, Index: ir.NoIndex}
	cont.Target = loop

	out := Transform(loop, Options{})

	goTo := out.Children[0].Children[0]
	assert.Equal(t, ir.GOTO, goTo.Tok)
	assert.Same(t, loop, goTo.Target)
}

func TestContinueTargetingNonLoopPanics(t *testing.T) {
	cont := &ir.Node{Tok: ir.CONTINUE, Index: ir.NoIndex}
	block := &ir.Node{Tok: ir.BLOCK, Children: []*ir.Node{cont}, Index: ir.NoIndex}
	cont.Target = block // a plain block is never loop-shaped

	assert.Panics(t, func() { Transform(block, Options{}) })
}

// scenario 5: break out of a per-iteration for-loop nested in a try/finally
// emits one COPY_PER_ITER_SCOPE+LEAVEWITH before the break's GOTO. The JSR a
// return out of the try emits is covered by TestReturnWithFinallyEmitsJSR.
func TestBreakFromPerIterationLoopEmitsCopyThenLeave(t *testing.T) {
	brk := &ir.Node{Tok: ir.BREAK, Index: ir.NoIndex}

	body := &ir.Node{Tok: ir.TARGET, Children: []*ir.Node{brk}, Index: ir.NoIndex}
	inc := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	cond := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	loopBrk := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	loop := &ir.Node{
		Tok: ir.LOOP, Names: []string{"i"}, Flags: ir.PerIterationScope,
		Children: []*ir.Node{body, inc, cond, loopBrk}, Index: ir.NoIndex,
	}

	finallyTarget := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	tryNode := &ir.Node{
		Tok: ir.TRY, Flags: ir.HasFinally, Target: finallyTarget,
		Children: []*ir.Node{loop}, Index: ir.NoIndex,
	}
	// the break's target is the TRY itself here, forcing the walk to cross
	// the synthetic per-iteration with-scope before reaching its frame.
	brk.Target = tryNode

	out := Transform(tryNode, Options{})
	require.Equal(t, ir.TRY, out.Tok)

	// find the break's lowered GOTO and confirm COPY_PER_ITER_SCOPE precedes
	// LEAVEWITH precedes GOTO in its containing block.
	blk := out.Children[0] // the per-iteration BLOCK wrapper around the loop
	require.Equal(t, ir.BLOCK, blk.Tok)
	innerLoop := blk.Children[1]
	bodyTarget := innerLoop.Children[0]
	unwindBlock := bodyTarget.Children[0]
	require.Equal(t, ir.BLOCK, unwindBlock.Tok)
	toks := make([]ir.Token, len(unwindBlock.Children))
	for i, c := range unwindBlock.Children {
		toks[i] = c.Tok
	}
	assert.Equal(t, []ir.Token{ir.COPY_PER_ITER_SCOPE, ir.LEAVEWITH, ir.GOTO}, toks)
}

func TestReturnWithFinallyEmitsJSR(t *testing.T) {
	finallyTarget := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	ret := &ir.Node{Tok: ir.RETURN, Index: ir.NoIndex}
	tryNode := &ir.Node{
		Tok: ir.TRY, Flags: ir.HasFinally, Target: finallyTarget,
		Children: []*ir.Node{ret}, Index: ir.NoIndex,
	}

	out := Transform(tryNode, Options{})
	require.Equal(t, ir.TRY, out.Tok)
	unwound := out.Children[0]
	require.Equal(t, ir.BLOCK, unwound.Tok)
	require.Len(t, unwound.Children, 2)
	assert.Equal(t, ir.JSR, unwound.Children[0].Tok)
	assert.Same(t, finallyTarget, unwound.Children[0].Target)
	assert.Equal(t, ir.RETURN, unwound.Children[1].Tok)
}

func TestReturnWithExpressionBecomesReturnResult(t *testing.T) {
	finallyTarget := &ir.Node{Tok: ir.TARGET, Index: ir.NoIndex}
	ret := &ir.Node{Tok: ir.RETURN, Children: []*ir.Node{name("x")}, Index: ir.NoIndex}
	tryNode := &ir.Node{
		Tok: ir.TRY, Flags: ir.HasFinally, Target: finallyTarget,
		Children: []*ir.Node{ret}, Index: ir.NoIndex,
	}

	out := Transform(tryNode, Options{})
	unwound := out.Children[0]
	require.Len(t, unwound.Children, 3)
	assert.Equal(t, ir.EXPR_RESULT, unwound.Children[0].Tok)
	assert.Equal(t, ir.JSR, unwound.Children[1].Tok)
	assert.Equal(t, ir.RETURN_RESULT, unwound.Children[2].Tok)
	assert.NotEmpty(t, unwound.Children[2].Name)
}

func TestStrictModeSetNameBecomesStrictSetName(t *testing.T) {
	set := &ir.Node{Tok: ir.SETNAME, Name: "x", Children: []*ir.Node{name("v")}, Index: ir.NoIndex}
	script := &ir.Node{Tok: ir.SCRIPT, Children: []*ir.Node{set}, Index: ir.NoIndex}

	out := Transform(script, Options{Strict: true})
	assert.Equal(t, ir.STRICT_SETNAME, out.Children[0].Tok)
}

func TestStrictEvalAssignmentReportsSyntaxError(t *testing.T) {
	var list diag.ErrorList
	reporter := &diag.ErrorListReporter{List: &list}

	set := &ir.Node{Tok: ir.SETNAME, Name: "eval", Pos: token.MakePos(1, 1), Children: []*ir.Node{name("v")}, Index: ir.NoIndex}
	script := &ir.Node{Tok: ir.SCRIPT, Children: []*ir.Node{set}, Index: ir.NoIndex}

	Transform(script, Options{Strict: true, Reporter: reporter})
	require.Len(t, list, 1)
}

func TestIndexedLocalResolutionRewritesNameAndSetName(t *testing.T) {
	locals := map[string]int{"x": 0}
	localIndex := func(n string) (int, bool) { i, ok := locals[n]; return i, ok }

	read := name("x")
	set := &ir.Node{Tok: ir.SETNAME, Name: "x", Children: []*ir.Node{name("v")}, Index: ir.NoIndex}
	fn := &ir.Node{Tok: ir.Other, Children: []*ir.Node{read, set}, Index: ir.NoIndex}

	out := Transform(fn, Options{
		RequiresActivation: func(*ir.Node) bool { return false },
		LocalIndex:         localIndex,
	})

	assert.Equal(t, ir.GETVAR, out.Children[0].Tok)
	assert.Equal(t, 0, out.Children[0].Index)
	assert.Equal(t, ir.SETVAR, out.Children[1].Tok)
	assert.Equal(t, 0, out.Children[1].Index)
}

func TestIndexedLocalResolutionLeavesUnknownNameAlone(t *testing.T) {
	read := name("global")
	out := Transform(read, Options{
		RequiresActivation: func(*ir.Node) bool { return false },
		LocalIndex:         func(string) (int, bool) { return 0, false },
	})
	assert.Equal(t, ir.NAME, out.Tok)
}
