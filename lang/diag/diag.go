// Package diag defines the error kinds raised by the scope, activation and
// module-scope packages at run time, and the diagnostic interface consumed
// by the node transformer for the one class of error it can detect at
// lowering time (assignment to eval in strict mode).
//
// The runtime error kinds are deliberately a closed set: they are the
// vocabulary described by the scope-and-binding core, not a general-purpose
// error package. Source-level diagnostics reuse go/scanner.ErrorList, the
// same vendored-in type the lexer/parser layer of this family of engines
// uses to collect and sort positioned errors before reporting them.
package diag

import (
	"fmt"
	"go/scanner"

	"github.com/jimmyhmiller/rhino-sub001/lang/token"
)

// ErrorList collects source-level diagnostics, sorted by position before
// being reported. It is an alias of the standard library's scanner error
// list so that downstream tooling (IDEs, test harnesses) gets the familiar
// "file:line:col: message" formatting for free.
type ErrorList = scanner.ErrorList

// Kind identifies the category of a runtime error raised by this core. Kinds
// map directly onto the error kinds enumerated in the error handling design:
// reference-error kinds (TDZ violations), type-error kinds (const/readonly
// violations, poisoned arguments accessors) and one generic kind for
// unresolved module imports.
type Kind uint8

const (
	_ Kind = iota

	// TDZRead is raised when a GETVAR/NAME read observes a slot still holding
	// the TDZ sentinel.
	TDZRead
	// TDZWrite is raised when a SETVAR/SETNAME write targets a slot still
	// holding the TDZ sentinel, other than through the declaration's own
	// SETLETINIT/SETCONST opcode.
	TDZWrite
	// AssignConst is raised by a second write to a CONST-declared binding, or
	// any non-initializing write to a slot flagged CONST_BINDING.
	AssignConst
	// AssignReadonlyImport is raised by a write through a module scope to a
	// name bound by an import declaration.
	AssignReadonlyImport
	// StrictCaller is raised by reading or writing the poison callee/caller
	// accessor pair of an unmapped arguments object.
	StrictCaller
	// NotExtensible is raised by defineSlot when a non-configurable slot with
	// a conflicting shape already exists.
	NotExtensible
	// ImportUnresolved is raised when a module scope cannot resolve an import
	// because the loader is unavailable or the source module is not loaded.
	ImportUnresolved
)

var kindCategory = [...]string{
	TDZRead:              "ReferenceError",
	TDZWrite:             "ReferenceError",
	AssignConst:          "TypeError",
	AssignReadonlyImport: "TypeError",
	StrictCaller:         "TypeError",
	NotExtensible:        "TypeError",
	ImportUnresolved:     "Error",
}

var kindNames = [...]string{
	TDZRead:              "TDZ_READ",
	TDZWrite:             "TDZ_WRITE",
	AssignConst:          "ASSIGN_CONST",
	AssignReadonlyImport: "ASSIGN_READONLY_IMPORT",
	StrictCaller:         "STRICT_CALLER",
	NotExtensible:        "NOT_EXTENSIBLE",
	ImportUnresolved:     "IMPORT_UNRESOLVED",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Category returns the error category ("ReferenceError", "TypeError" or
// plain "Error") that an embedding interpreter should surface this kind as.
func (k Kind) Category() string {
	if int(k) < len(kindCategory) && kindCategory[k] != "" {
		return kindCategory[k]
	}
	return "Error"
}

// Error is a runtime error carrying its Kind, a human-readable message and
// the source position it was raised at, when known. The position is copied
// from the originating node at the point the opcode is interpreted, per the
// propagation policy of the error handling design: the transformer itself
// never raises these, only the runtime does.
type Error struct {
	Kind    Kind
	Name    string // binding or attribute name involved, when applicable
	Pos     token.Pos
	Message string
}

func (e *Error) Error() string {
	if e.Pos.Unknown() {
		if e.Name != "" {
			return fmt.Sprintf("%s: %s: %s", e.Kind.Category(), e.Name, e.Message)
		}
		return fmt.Sprintf("%s: %s", e.Kind.Category(), e.Message)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s: %s: %s", e.Pos, e.Kind.Category(), e.Name, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind.Category(), e.Message)
}

// Is allows errors.Is(err, diag.Sentinel(diag.TDZRead)) style matching of an
// *Error against the Kind wrapped by a Sentinel value.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && k.kind == e.Kind
}

// New constructs an *Error for the given kind, binding name and position.
func New(kind Kind, pos token.Pos, name, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Name:    name,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	}
}

// kindSentinel lets callers write errors.Is(err, diag.Sentinel(diag.TDZRead))
// without constructing a full message.
type kindSentinel struct{ kind Kind }

// Sentinel returns a minimal error value usable only with errors.Is to test
// whether a returned error carries the given Kind.
func Sentinel(kind Kind) error { return kindSentinel{kind} }

func (s kindSentinel) Error() string { return s.kind.String() }

// Reporter is the diagnostic interface consumed by the node transformer (C3)
// for the one class of source-level error it can detect while lowering:
// assignment to eval in strict mode. It is intentionally narrow; the
// transformer never raises anything else; everything else is either an
// internal-consistency panic (malformed input tree) or a runtime error
// surfaced by the scope/activation/module-scope layers.
type Reporter interface {
	// SyntaxError reports a source-level error at the given position. The
	// transformer continues lowering after reporting, to avoid cascading
	// failures obscuring the real one.
	SyntaxError(pos token.Pos, format string, args ...interface{})
}

// ErrorListReporter adapts an *ErrorList (go/scanner.ErrorList) to the
// Reporter interface. toPosition converts a token.Pos to the go/scanner
// position format used by ErrorList; it is supplied by the embedder since
// this package does not know about file names or newline tables.
type ErrorListReporter struct {
	List       *ErrorList
	ToPosition func(token.Pos) scanner.Position
}

func (r *ErrorListReporter) SyntaxError(pos token.Pos, format string, args ...interface{}) {
	var p scanner.Position
	if r.ToPosition != nil {
		p = r.ToPosition(pos)
	}
	r.List.Add(p, fmt.Sprintf(format, args...))
}
