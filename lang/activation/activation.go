// Package activation implements C2, the activation record: a scope object
// created per function invocation that materializes a function's
// parameters, local var/let/const bindings, its named-function-expression
// binding, and a possibly-materialized reified arguments object.
package activation

import (
	"golang.org/x/exp/slices"

	"github.com/jimmyhmiller/rhino-sub001/lang/scope"
)

// Activation is the innermost scope of a call. Its parent is the function's
// lexical enclosing scope (captured at closure-creation time), not the
// caller's activation: name resolution walks the lexical chain, while the
// Caller field threads the dynamic call stack for features that need it
// (legacy Function.prototype.caller, stack traces).
type Activation struct {
	*scope.Scope

	Func   *Descriptor
	Args   []scope.Value
	Strict bool

	// Caller is a non-owning back-reference to the activation of the
	// function's caller, or nil for the outermost call. It is a plain
	// pointer rather than a weak handle (no weak-reference primitive is
	// assumed here); the interpreter is responsible for nilling it out on
	// return per the design notes so that a closure that outlives its
	// caller's frame does not observe a meaningless pointer, and for
	// restoring the thread's current-activation pointer via a try/finally
	// equivalent so that abrupt exits still unwind it correctly.
	Caller *Activation

	arguments *Arguments
}

// New builds an activation per the construction algorithm of section 4.2:
// parameters are bound first (with rest, if any), then the reified
// arguments object if required, then the function-scope locals (hoisted
// vars, let/const bindings, and the NFE binding), skipping any name already
// shadowed by a parameter.
func New(f *Descriptor, args []scope.Value, enclosing *scope.Scope, caller *Activation, calleeValue scope.Value) (*Activation, error) {
	act := &Activation{
		Scope:  scope.New(enclosing, nil),
		Func:   f,
		Args:   args,
		Strict: f.Strict,
		Caller: caller,
	}

	// Step 2: bind parameters. A repeated name is simply redefined, so only
	// the last occurrence's value survives in the activation (DefineSlot
	// treats a same-name parameter slot as configurable during binding; we
	// fix its final attributes to Permanent just below).
	for i, name := range f.Params {
		var v scope.Value = scope.Undefined
		if i < len(args) {
			v = args[i]
		}
		if _, err := act.Scope.DefineSlot(name, v, scope.Permanent|scope.Configurable); err != nil {
			return nil, err
		}
	}
	// Parameters are permanent (non-configurable) once all positions have
	// been processed; redefining during binding needed Configurable set so a
	// later same-named parameter could overwrite it.
	for _, name := range f.Params {
		_ = act.Scope.SetAttributes(name, scope.Permanent)
	}

	// Step 3: rest parameter.
	if f.HasRest {
		var rest []scope.Value
		if len(args) > len(f.Params) {
			rest = append(rest, args[len(f.Params):]...)
		}
		if _, err := act.Scope.DefineSlot(f.RestName, rest, scope.Permanent); err != nil {
			return nil, err
		}
	}

	// Step 4: reified arguments object, unless this is an arrow function, it
	// is not referenced, or a parameter already named "arguments".
	if f.RequiresArguments && !f.IsArrow && !slices.Contains(f.Params, "arguments") && f.RestName != "arguments" {
		act.arguments = newArguments(act, args, calleeValue)
		if _, err := act.Scope.DefineSlot("arguments", act.arguments, scope.Permanent); err != nil {
			return nil, err
		}
	}

	// Step 6: function-scope locals (step 5, the NFE name, is read off f
	// directly since the descriptor already carries it).
	for _, local := range f.Locals {
		if act.Scope.Has(local.Name) {
			continue // shadowed by a parameter
		}

		switch {
		case local.Kind == LocalConst:
			attrs := scope.Enumerable | scope.ConstBinding | scope.UninitializedConst
			if _, err := act.Scope.DefineSlot(local.Name, scope.TDZ, attrs); err != nil {
				return nil, err
			}

		case local.Kind == LocalLet:
			init := scope.Value(scope.TDZ)
			if local.Temp {
				init = scope.Undefined
			}
			if _, err := act.Scope.DefineSlot(local.Name, init, scope.Permanent); err != nil {
				return nil, err
			}

		case local.Name == f.NFEName && f.NFEName != "":
			attrs := scope.Enumerable | scope.UninitializedConst
			if _, err := act.Scope.DefineSlot(local.Name, scope.Undefined, attrs); err != nil {
				return nil, err
			}

		default: // ordinary var or hoisted function
			if _, err := act.Scope.DefineSlot(local.Name, scope.Undefined, scope.Permanent); err != nil {
				return nil, err
			}
		}
	}

	// The NFE binding may not appear in Locals at all (e.g. its name
	// coincides with no other declaration); make sure it still exists.
	if f.NFEName != "" && !act.Scope.Has(f.NFEName) {
		attrs := scope.Enumerable | scope.UninitializedConst
		if _, err := act.Scope.DefineSlot(f.NFEName, scope.Undefined, attrs); err != nil {
			return nil, err
		}
	}

	// The NFE slot starts at undefined per the construction algorithm; the
	// runtime immediately performs the single initializing store of the
	// function's own value, since by the time an activation exists for a
	// call the callee value is already known. Subsequent stores go through
	// the ordinary Put path and are governed by UninitializedConst/Writable.
	if f.NFEName != "" && calleeValue != nil {
		if err := act.Scope.PutInit(f.NFEName, calleeValue); err != nil {
			return nil, err
		}
	}

	return act, nil
}

// Arguments returns the activation's reified arguments object, or nil if
// none was required.
func (act *Activation) Arguments() *Arguments { return act.arguments }
