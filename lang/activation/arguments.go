package activation

import (
	"github.com/jimmyhmiller/rhino-sub001/lang/diag"
	"github.com/jimmyhmiller/rhino-sub001/lang/scope"
	"github.com/jimmyhmiller/rhino-sub001/lang/token"
)

// Arguments is the reified arguments object of an activation. It is mapped
// (aliasing named parameter slots) or unmapped, per the eligibility rule of
// section 4.2.1: mapped iff the function is non-strict, simple-parameter
// (no defaults, rest, or destructuring).
type Arguments struct {
	act    *Activation
	mapped bool

	// aliasParam[i], for i < len(act.Func.Params), is the parameter name
	// aliased by index i when mapped is true and this index is not shadowed
	// by a later same-named parameter, or "" otherwise.
	aliasParam []string

	// storage holds values for indices that are not (or no longer) aliased:
	// every index when unmapped, and indices beyond the parameter count, or
	// shadowed duplicate-named parameter positions, when mapped.
	storage []scope.Value
	deleted []bool

	length int
	callee scope.Value

	legacyInitialized bool // latch for the legacy read-only view
}

func newArguments(act *Activation, args []scope.Value, callee scope.Value) *Arguments {
	a := &Arguments{
		act:     act,
		mapped:  act.Func.mapped(),
		length:  len(args),
		storage: append([]scope.Value(nil), args...),
		deleted: make([]bool, len(args)),
		callee:  callee,
	}
	if a.mapped {
		params := act.Func.Params
		a.aliasParam = make([]string, len(args))
		for i := range a.aliasParam {
			if i >= len(params) {
				continue // beyond the parameter list: own storage only
			}
			name := params[i]
			if lastParamIndexNamed(params, name) == i {
				a.aliasParam[i] = name
			}
			// else: shadowed by a later same-named parameter; this position
			// keeps its own storage and is never aliased.
		}
	}
	return a
}

func lastParamIndexNamed(params []string, name string) int {
	last := -1
	for i, p := range params {
		if p == name {
			last = i
		}
	}
	return last
}

// Length returns the fixed arguments count captured at construction.
func (a *Arguments) Length() int { return a.length }

func (a *Arguments) isAliased(i int) bool {
	return a.mapped && i >= 0 && i < len(a.aliasParam) && a.aliasParam[i] != ""
}

// Get implements arg[i] reads: for an aliased mapped index, it reads
// through to the activation's named parameter slot; otherwise it reads own
// storage.
func (a *Arguments) Get(i int) (scope.Value, bool, error) {
	if i < 0 || i >= a.length || a.deleted[i] {
		return nil, false, nil
	}
	if a.isAliased(i) {
		v, err := a.act.Scope.Read(a.aliasParam[i], token.NoPos)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	return a.storage[i], true, nil
}

// Set implements arg[i] writes: for an aliased mapped index, it writes
// through to the activation's named parameter slot; otherwise it stores its
// own value.
func (a *Arguments) Set(i int, v scope.Value) error {
	if i < 0 || i >= a.length {
		return nil // silently grows nothing; arguments has fixed length
	}
	if a.legacyReadonly() {
		return nil
	}
	if a.isAliased(i) {
		return a.act.Scope.Put(a.aliasParam[i], v, a.act.Strict, token.NoPos)
	}
	a.storage[i] = v
	return nil
}

// DefineIndexed implements the defineOwnProperty override of section 4.2.1:
// if the index is currently aliased and the incoming descriptor is a data
// descriptor with writable:false, or is an accessor descriptor, the current
// mapped value is first captured into own storage, and the mapping for that
// index is then removed.
func (a *Arguments) DefineIndexed(i int, v scope.Value, writableFalseSupplied, accessor bool) error {
	if i < 0 || i >= a.length {
		return nil
	}
	if a.isAliased(i) && (writableFalseSupplied || accessor) {
		cur, _, err := a.Get(i)
		if err != nil {
			return err
		}
		a.storage[i] = cur
		a.aliasParam[i] = ""
	}
	if !accessor {
		a.storage[i] = v
	}
	return nil
}

// DeleteIndexed performs OrdinaryDelete first (marking the index absent);
// only if that succeeds does it also remove the index's mapping, per
// section 4.2.1.
func (a *Arguments) DeleteIndexed(i int) bool {
	if i < 0 || i >= a.length {
		return true
	}
	a.deleted[i] = true
	if a.isAliased(i) {
		a.aliasParam[i] = ""
	}
	return true
}

// Values returns the arguments in index order, standing in for the
// @@iterator contract of section 4.2.1 (full iterator-protocol machinery is
// the interpreter's concern, out of scope here).
func (a *Arguments) Values() []scope.Value {
	out := make([]scope.Value, 0, a.length)
	for i := 0; i < a.length; i++ {
		v, ok, _ := a.Get(i)
		if !ok {
			v = scope.Undefined
		}
		out = append(out, v)
	}
	return out
}

// Callee returns the callee accessor value: for a mapped arguments object,
// the function value itself; for unmapped, it always raises StrictCaller
// (the poison accessor pair of section 4.2.1).
func (a *Arguments) Callee() (scope.Value, error) {
	if !a.mapped {
		return nil, diag.New(diag.StrictCaller, token.NoPos, "callee", "'callee' property may not be accessed on strict-mode arguments")
	}
	return a.callee, nil
}

// SetCallee mirrors Callee's poison behavior: unmapped arguments reject the
// write with the same error kind; mapped arguments simply overwrite it
// (callee is a plain DONTENUM data property on mapped arguments).
func (a *Arguments) SetCallee(v scope.Value) error {
	if !a.mapped {
		return diag.New(diag.StrictCaller, token.NoPos, "callee", "'callee' property may not be accessed on strict-mode arguments")
	}
	a.callee = v
	return nil
}

// Caller returns the legacy Function.prototype.arguments-style caller
// value. It is undefined (ok=false) unless LegacyCallerArguments is active
// on the function descriptor; when active and the arguments object is
// unmapped, it raises StrictCaller like Callee.
func (a *Arguments) Caller() (scope.Value, bool, error) {
	if !a.act.Func.LegacyCallerArguments {
		return nil, false, nil
	}
	if !a.mapped {
		return nil, false, diag.New(diag.StrictCaller, token.NoPos, "caller", "'caller' property may not be accessed on strict-mode arguments")
	}
	if a.act.Caller == nil {
		return scope.Undefined, true, nil
	}
	return a.act.Caller, true, nil
}

// LatchLegacyReadonly flips the legacy read-only latch: once a legacy
// Function.prototype.arguments accessor has read this object from outside
// the call, Set becomes a no-op for the remainder of its lifetime.
func (a *Arguments) LatchLegacyReadonly() { a.legacyInitialized = true }

func (a *Arguments) legacyReadonly() bool {
	return a.act.Func.LegacyCallerArguments && a.legacyInitialized
}

func (a *Arguments) String() string { return "arguments" }
