// Package modscope implements C4, the module scope: a top-level scope
// whose name lookups for import-bound identifiers delegate, live, to a
// remote module's export table, and whose writes to such names fail.
package modscope

import (
	"sync/atomic"

	"golang.org/x/exp/maps"

	"github.com/jimmyhmiller/rhino-sub001/lang/diag"
	"github.com/jimmyhmiller/rhino-sub001/lang/logger"
	"github.com/jimmyhmiller/rhino-sub001/lang/scope"
	"github.com/jimmyhmiller/rhino-sub001/lang/token"
)

// NamespaceImport is the ImportName sentinel of an ImportEntry for a
// namespace import (`import * as ns from "m"`), as opposed to a named one.
const NamespaceImport = "*"

// ImportEntry describes one binding a module scope's import declarations
// introduce: `localName` resolves, live, to either the namespace object of
// `moduleRequest` (if importName is NamespaceImport) or to
// `getExportBinding(importName)` on it.
type ImportEntry struct {
	ModuleRequest string
	ImportName    string
	LocalName     string
}

// ModuleRecord is the opaque external handle to a loaded module: the only
// capability this core needs from it is reading its current export
// bindings (never cached, since they must reflect live exports) and its
// namespace object.
type ModuleRecord interface {
	GetExportBinding(name string) (scope.Value, error)
	GetNamespaceObject() scope.Value
}

// Loader is the external collaborator that resolves a module specifier to
// a cached module record. Resolution of moduleRequest -> module record is
// cached by this package once it succeeds; the loader itself decides how
// "referencing" maps to a resolution context.
type Loader interface {
	Resolve(moduleRequest string, referencing ModuleRecord) (ModuleKey, error)
	GetCached(key ModuleKey) (ModuleRecord, bool)
}

// ModuleKey identifies a resolved module, stable across resolutions of the
// same specifier from the same referencing module.
type ModuleKey string

// ModuleScope overrides Get/Has/Put on the embedded *scope.Scope so that
// import-bound names resolve through the module graph instead of through
// this scope's own slots. It is created once per module record and lives
// for the realm's lifetime.
type ModuleScope struct {
	*scope.Scope

	self    ModuleRecord
	loader  Loader
	entries []ImportEntry
	log     logger.Logger

	// importEntryMap is built exactly once from entries, lazily, the first
	// time any lookup needs it; entries is immutable for the ModuleScope's
	// lifetime so a racing second build is wasted work, not a correctness
	// problem, and the atomic pointer swap makes the publish safe under
	// concurrent first-use reads of an already-initialized realm.
	importEntryMap atomic.Pointer[map[string]ImportEntry]

	// resolved caches moduleRequest -> resolved ModuleRecord. Bindings
	// themselves are never cached here (they must reflect live exports);
	// only the (comparatively expensive) resolve-and-load step is. Updated
	// via copy-on-write so readers always see a complete, immutable map.
	resolved atomic.Pointer[map[string]ModuleRecord]
}

// New returns a module scope over parent (normally nil or a shared
// universal scope for predeclared globals), backed by self's own record
// (passed to the loader as the referencing module) and loader, with the
// given import entries.
func New(parent *scope.Scope, self ModuleRecord, loader Loader, entries []ImportEntry) *ModuleScope {
	return &ModuleScope{
		Scope:   scope.New(parent, nil),
		self:    self,
		loader:  loader,
		entries: entries,
		log:     logger.Nop,
	}
}

// SetLogger overrides the no-op default logger.
func (m *ModuleScope) SetLogger(l logger.Logger) {
	if l != nil {
		m.log = l
	}
}

func (m *ModuleScope) importEntries() map[string]ImportEntry {
	if p := m.importEntryMap.Load(); p != nil {
		return *p
	}
	built := make(map[string]ImportEntry, len(m.entries))
	for _, e := range m.entries {
		built[e.LocalName] = e
	}
	m.importEntryMap.CompareAndSwap(nil, &built)
	return *m.importEntryMap.Load()
}

// Has reports name as present if it is either an import binding or an
// ordinary slot of this scope.
func (m *ModuleScope) Has(name string) bool {
	if _, ok := m.importEntries()[name]; ok {
		return true
	}
	return m.Scope.Has(name)
}

// Get resolves name: for an import binding it delegates live to the source
// module, swallowing any resolution failure into (nil, false) to match the
// (value, ok) shape of scope.Scope.Get; callers needing the failure reason
// (the interpreter's GETVAR/NAME opcode) should call Read instead.
func (m *ModuleScope) Get(name string) (scope.Value, bool) {
	if e, ok := m.importEntries()[name]; ok {
		v, err := m.resolveImport(e)
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return m.Scope.Get(name)
}

// Read is Get's error-surfacing counterpart, mirroring scope.Scope's own
// Get/Read split: it raises ImportUnresolved when the binding cannot
// currently be resolved.
func (m *ModuleScope) Read(name string, pos token.Pos) (scope.Value, error) {
	if e, ok := m.importEntries()[name]; ok {
		return m.resolveImport(e)
	}
	return m.Scope.Read(name, pos)
}

// Put rejects any write to an import-bound name with AssignReadonlyImport;
// ordinary own slots are written through to the embedded scope unchanged.
func (m *ModuleScope) Put(name string, v scope.Value, strict bool, pos token.Pos) error {
	if _, ok := m.importEntries()[name]; ok {
		return diag.New(diag.AssignReadonlyImport, pos, name, "assignment to import binding %q", name)
	}
	return m.Scope.Put(name, v, strict, pos)
}

func (m *ModuleScope) resolveImport(e ImportEntry) (scope.Value, error) {
	src, err := m.resolveModule(e.ModuleRequest)
	if err != nil {
		return nil, err
	}
	if e.ImportName == NamespaceImport {
		return src.GetNamespaceObject(), nil
	}
	v, err := src.GetExportBinding(e.ImportName)
	if err != nil {
		return nil, diag.New(diag.ImportUnresolved, token.NoPos, e.LocalName,
			"cannot resolve export %q from %q: %v", e.ImportName, e.ModuleRequest, err)
	}
	return v, nil
}

func (m *ModuleScope) resolveModule(moduleRequest string) (ModuleRecord, error) {
	if cache := m.resolved.Load(); cache != nil {
		if rec, ok := (*cache)[moduleRequest]; ok {
			return rec, nil
		}
	}
	if m.loader == nil {
		return nil, diag.New(diag.ImportUnresolved, token.NoPos, moduleRequest, "no module loader configured")
	}
	key, err := m.loader.Resolve(moduleRequest, m.self)
	if err != nil {
		return nil, diag.New(diag.ImportUnresolved, token.NoPos, moduleRequest,
			"resolving module request %q: %v", moduleRequest, err)
	}
	rec, ok := m.loader.GetCached(key)
	if !ok {
		return nil, diag.New(diag.ImportUnresolved, token.NoPos, moduleRequest,
			"module %q is not yet loaded", moduleRequest)
	}
	m.publishResolved(moduleRequest, rec)
	m.log.Debugf("modscope: resolved module request %q", moduleRequest)
	return rec, nil
}

// publishResolved adds moduleRequest -> rec to the resolved cache via
// copy-on-write: a losing CAS race means another goroutine published an
// equivalent entry first, which is harmless since module resolution is
// deterministic for a fixed referencing module.
func (m *ModuleScope) publishResolved(moduleRequest string, rec ModuleRecord) {
	for {
		old := m.resolved.Load()
		next := maps.Clone(derefOrEmpty(old))
		if next == nil {
			next = make(map[string]ModuleRecord, 1)
		}
		next[moduleRequest] = rec
		if m.resolved.CompareAndSwap(old, &next) {
			return
		}
	}
}

func derefOrEmpty(p *map[string]ModuleRecord) map[string]ModuleRecord {
	if p == nil {
		return nil
	}
	return *p
}
