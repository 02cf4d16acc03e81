// Package scope implements C1, the scope object: a property container with
// ordered keys, per-slot attribute flags, a prototype link and a
// parent-scope link used for name resolution. Activations (package
// activation) and module scopes (package modscope) both embed a *Scope and
// specialize its behavior; the with-like scope objects pushed and popped by
// ENTERWITH/LEAVEWITH during loop and let lowering (package transform) are
// plain *Scope values.
package scope

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/jimmyhmiller/rhino-sub001/lang/diag"
	"github.com/jimmyhmiller/rhino-sub001/lang/token"
)

// Value is any value a slot may hold. The concrete representation of
// ordinary runtime values (numbers, strings, objects) belongs to the
// interpreter, which is out of scope for this module; this package only
// needs to store and compare them.
type Value interface{}

type sentinel string

func (s sentinel) String() string { return string(s) }

// TDZ is the sentinel value meaning "declared but not yet initialized".
// It is distinct from Undefined and must never leak to user-observable
// positions except as the trigger for a TDZ error.
var TDZ Value = sentinel("<temporal dead zone>")

// Undefined is the sentinel value used for declared-but-unassigned var/NFE
// slots. It is a plain value, not a dead zone: reading and writing it is
// always permitted (subject to the slot's other attributes).
var Undefined Value = sentinel("<undefined>")

// Attrs is a bitset of slot attributes.
type Attrs uint8

const (
	Enumerable Attrs = 1 << iota
	Writable
	Configurable
	ConstBinding
	UninitializedConst
)

// Permanent is the attribute combination used for ordinary parameters,
// var/hoisted-function locals: enumerable and writable, but not
// configurable (cannot be deleted or redefined).
const Permanent = Enumerable | Writable

// DefaultLet is the attribute combination of a freshly declared `let` slot
// per the data model: writable and configurable.
const DefaultLet = Writable | Configurable

func (a Attrs) Has(bit Attrs) bool { return a&bit != 0 }

type slotEntry struct {
	name    string
	value   Value
	attrs   Attrs
	deleted bool
}

// Scope is a mapping from name or index to a slot, plus a prototype
// reference and a parent-scope reference.
type Scope struct {
	parent *Scope
	proto  *Scope

	byName *swiss.Map[string, int]
	slots  []slotEntry
}

// New returns an empty scope with the given parent and prototype (either may
// be nil).
func New(parent, proto *Scope) *Scope {
	return &Scope{
		parent: parent,
		proto:  proto,
		byName: swiss.NewMap[string, int](8),
	}
}

// Parent returns the enclosing scope used for name resolution, or nil.
func (s *Scope) Parent() *Scope { return s.parent }

// SetParent rewires the scope's parent link. Used by the runtime
// SWITCH_PER_ITER_SCOPE opcode to splice a freshly copied sibling scope into
// the chain in place of the current one.
func (s *Scope) SetParent(p *Scope) { s.parent = p }

// Prototype returns the scope's prototype link, or nil.
func (s *Scope) Prototype() *Scope { return s.proto }

func (s *Scope) index(name string) (int, bool) {
	idx, ok := s.byName.Get(name)
	if !ok || s.slots[idx].deleted {
		return 0, false
	}
	return idx, true
}

// Has reports whether name is defined directly on this scope (not walking
// the parent chain).
func (s *Scope) Has(name string) bool {
	_, ok := s.index(name)
	return ok
}

// HasIndex reports whether the slot at the given index is defined and not
// deleted.
func (s *Scope) HasIndex(i int) bool {
	return i >= 0 && i < len(s.slots) && !s.slots[i].deleted
}

// Get returns the value stored at name, or (nil, false) if no such slot is
// defined directly on this scope. A return of (TDZ, true) means the slot is
// declared but not yet initialized; callers that implement GETVAR/NAME must
// check for that sentinel themselves or call Read instead.
func (s *Scope) Get(name string) (Value, bool) {
	idx, ok := s.index(name)
	if !ok {
		return nil, false
	}
	return s.slots[idx].value, true
}

// GetIndex returns the value stored at the given slot index.
func (s *Scope) GetIndex(i int) (Value, bool) {
	if !s.HasIndex(i) {
		return nil, false
	}
	return s.slots[i].value, true
}

// Read implements the GETVAR/NAME read contract: it resolves name, and
// raises TDZRead if the slot currently holds TDZ.
func (s *Scope) Read(name string, pos token.Pos) (Value, error) {
	v, ok := s.Get(name)
	if !ok {
		return nil, fmt.Errorf("scope: no such binding: %s", name)
	}
	if v == TDZ {
		return nil, diag.New(diag.TDZRead, pos, name, "cannot access %q before initialization", name)
	}
	return v, nil
}

// Put implements the ordinary (non-initializing) write contract used by
// SETNAME/STRICT_SETNAME/SETVAR: it raises TDZWrite if the slot is still in
// the dead zone, raises AssignConst if the slot is const/readonly and strict
// is true (or the slot carries CONST_BINDING, which always raises), and is a
// silent no-op for a non-strict write to a readonly, non-const slot.
func (s *Scope) Put(name string, v Value, strict bool, pos token.Pos) error {
	idx, ok := s.index(name)
	if !ok {
		return fmt.Errorf("scope: no such binding: %s", name)
	}
	sl := &s.slots[idx]
	if sl.value == TDZ {
		return diag.New(diag.TDZWrite, pos, name, "cannot access %q before initialization", name)
	}
	if !sl.attrs.Has(Writable) {
		if sl.attrs.Has(ConstBinding) || strict {
			return diag.New(diag.AssignConst, pos, name, "assignment to constant variable")
		}
		return nil
	}
	sl.value = v
	return nil
}

// PutInit implements the declaration's own initializing write
// (SETLETINIT/SETCONST): it always stores the value regardless of TDZ, and
// if the slot is UninitializedConst, clears that flag and Writable so the
// slot becomes permanently readonly after this single transition.
func (s *Scope) PutInit(name string, v Value) error {
	idx, ok := s.index(name)
	if !ok {
		return fmt.Errorf("scope: no such binding: %s", name)
	}
	sl := &s.slots[idx]
	sl.value = v
	if sl.attrs.Has(UninitializedConst) {
		sl.attrs = sl.attrs &^ UninitializedConst &^ Writable
	}
	return nil
}

// PutIndex stores a value directly by slot index, bypassing name lookup.
// Used by the resolved SETVAR/SETCONSTVAR/SETLETVAR opcodes once the
// transformer has determined createScopeObjects is false.
func (s *Scope) PutIndex(i int, v Value) error {
	if !s.HasIndex(i) {
		return fmt.Errorf("scope: no such slot: %d", i)
	}
	s.slots[i].value = v
	return nil
}

// DefineSlot creates a new named slot, or redefines an existing one if it is
// configurable. It fails with a NotExtensible error if a non-configurable
// slot of the same name already exists.
func (s *Scope) DefineSlot(name string, v Value, attrs Attrs) (int, error) {
	if idx, ok := s.index(name); ok {
		if !s.slots[idx].attrs.Has(Configurable) {
			return 0, diag.New(diag.NotExtensible, token.NoPos, name, "cannot redefine non-configurable property %q", name)
		}
		s.slots[idx] = slotEntry{name: name, value: v, attrs: attrs}
		return idx, nil
	}
	idx := len(s.slots)
	s.slots = append(s.slots, slotEntry{name: name, value: v, attrs: attrs})
	s.byName.Put(name, idx)
	return idx, nil
}

// SetAttributes overwrites the attribute bitset of an existing slot.
func (s *Scope) SetAttributes(name string, attrs Attrs) error {
	idx, ok := s.index(name)
	if !ok {
		return fmt.Errorf("scope: no such binding: %s", name)
	}
	s.slots[idx].attrs = attrs
	return nil
}

// GetAttributes returns the attribute bitset of an existing slot.
func (s *Scope) GetAttributes(name string) (Attrs, bool) {
	idx, ok := s.index(name)
	if !ok {
		return 0, false
	}
	return s.slots[idx].attrs, true
}

// MarkReadonlyAfterInit flips the Writable bit off for name, leaving every
// other attribute untouched. Used by ENTERWITH when a CONST_NAMES property
// is attached to mark those slots readonly after their first write, without
// going through the UninitializedConst/PutInit dance (the const-for-loop
// names are not in TDZ; they start at their initializer's value).
func (s *Scope) MarkReadonlyAfterInit(name string) error {
	idx, ok := s.index(name)
	if !ok {
		return fmt.Errorf("scope: no such binding: %s", name)
	}
	s.slots[idx].attrs &^= Writable
	return nil
}

// Delete removes a slot if it is configurable, returning whether it was
// removed. Per OrdinaryDelete semantics, a non-configurable slot refuses
// deletion (false, no error). The slot's index is tombstoned rather than
// compacted so that any other slot addressed by index remains valid.
func (s *Scope) Delete(name string) bool {
	idx, ok := s.index(name)
	if !ok {
		return true // deleting an absent property succeeds, per OrdinaryDelete
	}
	if !s.slots[idx].attrs.Has(Configurable) {
		return false
	}
	s.slots[idx].deleted = true
	s.byName.Delete(name)
	return true
}

// GetDefiningScope walks the parent chain starting at s (inclusive) and
// returns the first scope that directly defines name, or nil.
func (s *Scope) GetDefiningScope(name string) *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.Has(name) {
			return sc
		}
	}
	return nil
}

// Names returns the slot names in declaration order, skipping deleted
// slots. Used to materialize OBJECTLIT-style enumeration and to copy named
// slots between per-iteration scopes.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.slots))
	for _, sl := range s.slots {
		if !sl.deleted {
			names = append(names, sl.name)
		}
	}
	return names
}

// Len returns the number of live (non-deleted) slots.
func (s *Scope) Len() int {
	n := 0
	for _, sl := range s.slots {
		if !sl.deleted {
			n++
		}
	}
	return n
}
