// Package ir defines the tree representation shared by the parser's output
// and the node transformer's output: a single tagged-variant Node type
// carrying a token tag, an ordered child list, and a handful of typed
// properties. The parser (out of scope for this module) builds Node trees
// with only the "source" tokens populated (BLOCK, LOOP, LET, CONST, VAR,
// NAME, assignment/jump statements, ...); the node transformer (package
// transform) rewrites those trees in place, splicing in the scope-affecting
// opcodes (ENTERWITH, LEAVEWITH, SWITCH_PER_ITER_SCOPE, ...) described by
// the runtime opcode contract.
package ir

import "github.com/jimmyhmiller/rhino-sub001/lang/token"

// Token tags a Node. The set below is exactly the vocabulary the
// scope-and-binding core reads or writes; it is not a general-purpose
// expression/statement grammar (arithmetic, literals other than what scoping
// needs, etc. are represented generically via Other/OtherExpr so that a real
// parser's richer tree can still carry them through unchanged).
type Token uint8

//nolint:revive
const (
	ILLEGAL Token = iota

	// Containers.
	SCRIPT // the root of a function body or top-level chunk
	BLOCK
	LOOP
	LABEL
	SWITCH
	CASE
	WITH
	TRY
	FINALLY

	// Declarations (pre-lowering).
	LET
	LETEXPR
	CONST
	VAR
	FUNCTION

	// Names.
	NAME     // a read of a bound identifier
	BINDNAME // the target identifier of an assignment, pre-resolution
	SETNAME
	SETCONST
	SETLETINIT
	STRICT_SETNAME
	DELPROP
	TYPEOFNAME
	TYPEOF
	GETPROP

	// Resolved, indexed-local forms (post-lowering, !createScopeObjects).
	GETVAR
	SETVAR
	SETCONSTVAR
	SETLETVAR

	// Scope-object runtime opcodes (post-lowering).
	ENTERWITH
	LEAVEWITH
	SWITCH_PER_ITER_SCOPE
	COPY_PER_ITER_SCOPE
	TDZ
	JSR

	// Control flow.
	RETURN
	RETURN_RESULT
	BREAK
	CONTINUE
	GOTO
	TARGET
	IFEQ
	IFNE

	// Misc expression/statement forms needed to shepherd lowering without
	// caring about their internal structure.
	OBJECTLIT
	ARRAYCOMP
	COMMA
	EXPR_VOID
	EXPR_RESULT
	YIELD
	YIELD_STAR
	AWAIT

	// Catch-all for nodes whose shape this core does not need to inspect
	// (arithmetic, calls, literals, ...). The parser populates Other with
	// whatever opaque payload it likes; the transformer recurses into
	// Children but never switches on Other itself.
	Other
	OtherExpr
)

var tokenNames = [...]string{
	ILLEGAL:               "ILLEGAL",
	SCRIPT:                "SCRIPT",
	BLOCK:                 "BLOCK",
	LOOP:                  "LOOP",
	LABEL:                 "LABEL",
	SWITCH:                "SWITCH",
	CASE:                  "CASE",
	WITH:                  "WITH",
	TRY:                   "TRY",
	FINALLY:               "FINALLY",
	LET:                   "LET",
	LETEXPR:               "LETEXPR",
	CONST:                 "CONST",
	VAR:                   "VAR",
	FUNCTION:              "FUNCTION",
	NAME:                  "NAME",
	BINDNAME:              "BINDNAME",
	SETNAME:               "SETNAME",
	SETCONST:              "SETCONST",
	SETLETINIT:            "SETLETINIT",
	STRICT_SETNAME:        "STRICT_SETNAME",
	DELPROP:               "DELPROP",
	TYPEOFNAME:            "TYPEOFNAME",
	TYPEOF:                "TYPEOF",
	GETPROP:               "GETPROP",
	GETVAR:                "GETVAR",
	SETVAR:                "SETVAR",
	SETCONSTVAR:           "SETCONSTVAR",
	SETLETVAR:             "SETLETVAR",
	ENTERWITH:             "ENTERWITH",
	LEAVEWITH:             "LEAVEWITH",
	SWITCH_PER_ITER_SCOPE: "SWITCH_PER_ITER_SCOPE",
	COPY_PER_ITER_SCOPE:   "COPY_PER_ITER_SCOPE",
	TDZ:                   "TDZ",
	JSR:                   "JSR",
	RETURN:                "RETURN",
	RETURN_RESULT:         "RETURN_RESULT",
	BREAK:                 "BREAK",
	CONTINUE:              "CONTINUE",
	GOTO:                  "GOTO",
	TARGET:                "TARGET",
	IFEQ:                  "IFEQ",
	IFNE:                  "IFNE",
	OBJECTLIT:             "OBJECTLIT",
	ARRAYCOMP:             "ARRAYCOMP",
	COMMA:                 "COMMA",
	EXPR_VOID:             "EXPR_VOID",
	EXPR_RESULT:           "EXPR_RESULT",
	YIELD:                 "YIELD",
	YIELD_STAR:            "YIELD_STAR",
	AWAIT:                 "AWAIT",
	Other:                 "Other",
	OtherExpr:             "OtherExpr",
}

func (t Token) String() string {
	if int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return "Token(?)"
}

// Flags is a bitset of the boolean typed properties a Node may carry.
type Flags uint16

const (
	// ForInOfLoopVar marks a CONST/VAR/LET declaration whose binding is
	// supplied by an enclosing for-in/for-of loop wrapper rather than its own
	// initializer; the declaration is erased by the transformer rather than
	// lowered to a SET opcode.
	ForInOfLoopVar Flags = 1 << iota
	// GeneratorEnd marks a RETURN inside a generator function.
	GeneratorEnd
	// PerIterationScope marks a LOOP that requires the per-iteration scope
	// wrapper of section 4.3.1.
	PerIterationScope
	// ConstForLoopScope marks a LET/LETEXPR wrapper produced for a for-loop
	// header that declared its names with const.
	ConstForLoopScope
	// LetForLoopScope marks a LET/LETEXPR wrapper produced for a for-loop
	// header whose let-declared initializers contain a function literal,
	// requiring the initializers to run inside the WITH scope.
	LetForLoopScope
	// HasFinally marks a TRY node that carries a finally block.
	HasFinally
	// IsLoop marks a LABEL's Next statement (or a bare loop statement) as
	// loop-shaped, for label/break/continue validation.
	IsLoop
	// NoWarnUndefined propagates into GETPROP subexpressions used only for an
	// undefined-check (inside TYPEOFNAME/TYPEOF/IFNE), suppressing a
	// would-be "possibly undefined" diagnostic.
	NoWarnUndefined
	// Strict marks a SETNAME produced inside a strict-mode function; the
	// transformer rewrites it to STRICT_SETNAME.
	Strict
	// Mapped marks a function descriptor (carried on the enclosing
	// SCRIPT/FUNCTION node) as eligible for a mapped arguments object.
	Mapped
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Node is the single tagged-variant tree node used throughout this core.
type Node struct {
	Tok      Token
	Pos      token.Pos
	Children []*Node
	Flags    Flags

	// Name holds the identifier text for name-carrying tokens (NAME,
	// BINDNAME, SETNAME, SETCONST, SETLETINIT, GETVAR, SETVAR, ...) and the
	// function/NFE name for SCRIPT/FUNCTION nodes.
	Name string

	// Names lists the declared names of a property the spec attaches as a
	// typed list: a BLOCK/LOOP/ARRAYCOMP's symbol table, PER_ITERATION_NAMES,
	// CONST_NAMES, DESTRUCTURING_NAMES, or OBJECT_IDS, depending on Tok.
	Names []string

	// Target is the jump target of a BREAK/CONTINUE/GOTO/JSR node, or the
	// finally entry of a TRY node, or the loop/with/try statement a
	// LABEL/TARGET is paired with.
	Target *Node

	// Const records whether a LET/CONST/SETCONST declaration is a const
	// binding.
	Const bool

	// Keys parallels Children for an OBJECTLIT node: Keys[i] is the property
	// name initialized by Children[i].
	Keys []string

	// Index is the resolved activation-slot index for a GETVAR/SETVAR/
	// SETCONSTVAR/SETLETVAR node produced by indexed-local lowering
	// (!createScopeObjects). NoIndex for every other node.
	Index int
}

// NoIndex marks a Node whose Index field is not meaningful.
const NoIndex = -1

// NewNode returns a Node with the given token and children, convenient for
// building trees in tests and in the transformer's rewrite rules.
func NewNode(tok Token, pos token.Pos, children ...*Node) *Node {
	return &Node{Tok: tok, Pos: pos, Children: children, Index: NoIndex}
}

// Clone returns a shallow copy of n with its own Children slice (but shared
// child pointers), so that callers can append/replace children without
// mutating a tree another node still references.
func (n *Node) Clone() *Node {
	cp := *n
	cp.Children = append([]*Node(nil), n.Children...)
	return &cp
}
