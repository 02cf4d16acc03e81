package modscope

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyhmiller/rhino-sub001/lang/diag"
	"github.com/jimmyhmiller/rhino-sub001/lang/scope"
	"github.com/jimmyhmiller/rhino-sub001/lang/token"
)

// fakeModule is a minimal in-memory ModuleRecord: its export table is a
// plain *scope.Scope, so mutating an export binding (as bump() does to x)
// is immediately visible to every importer, exactly like the real export
// environment record it stands in for.
type fakeModule struct {
	key     ModuleKey
	exports *scope.Scope
	ns      scope.Value
}

func newFakeModule(key ModuleKey) *fakeModule {
	return &fakeModule{key: key, exports: scope.New(nil, nil)}
}

func (f *fakeModule) GetExportBinding(name string) (scope.Value, error) {
	v, ok := f.exports.Get(name)
	if !ok {
		return nil, fmt.Errorf("no such export: %s", name)
	}
	return v, nil
}

func (f *fakeModule) GetNamespaceObject() scope.Value {
	if f.ns == nil {
		return f.exports
	}
	return f.ns
}

// fakeLoader resolves a module request string directly to a pre-registered
// fakeModule; "referencing" is ignored since every test module request is
// globally unique.
type fakeLoader struct {
	byRequest map[string]*fakeModule
	resolves  int
}

func newFakeLoader() *fakeLoader { return &fakeLoader{byRequest: map[string]*fakeModule{}} }

func (l *fakeLoader) register(request string, m *fakeModule) {
	l.byRequest[request] = m
}

func (l *fakeLoader) Resolve(moduleRequest string, referencing ModuleRecord) (ModuleKey, error) {
	l.resolves++
	m, ok := l.byRequest[moduleRequest]
	if !ok {
		return "", fmt.Errorf("unknown module request: %s", moduleRequest)
	}
	return m.key, nil
}

func (l *fakeLoader) GetCached(key ModuleKey) (ModuleRecord, bool) {
	for _, m := range l.byRequest {
		if m.key == key {
			return m, true
		}
	}
	return nil, false
}

// moduleA stands in for:
//
//	export let x = 1;
//	export function bump() { x++; }
func newModuleA() *fakeModule {
	a := newFakeModule("a.js")
	if _, err := a.exports.DefineSlot("x", scope.Value(1), scope.DefaultLet); err != nil {
		panic(err)
	}
	return a
}

func bumpX(a *fakeModule) {
	v, _ := a.exports.Get("x")
	next := v.(int) + 1
	_ = a.exports.Put("x", next, false, token.NoPos)
}

func TestNamedImportReadsLiveExportBinding(t *testing.T) {
	loader := newFakeLoader()
	a := newModuleA()
	loader.register("./a.js", a)

	b := newFakeModule("b.js")
	ms := New(nil, b, loader, []ImportEntry{
		{ModuleRequest: "./a.js", ImportName: "x", LocalName: "x"},
	})
	// bump is b's own local binding (standing in for a same-module helper
	// that calls back into a's bump export); only x itself is imported.
	_, err := ms.DefineSlot("bump", func() { bumpX(a) }, scope.Permanent)
	require.NoError(t, err)

	v, ok := ms.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	bumpFn, ok := ms.Get("bump")
	require.True(t, ok)
	bumpFn.(func())()

	v, ok = ms.Get("x")
	require.True(t, ok)
	assert.Equal(t, 2, v, "import binding must reflect the exporting module's current value, not a snapshot taken at import time")
}

func TestWriteToImportBindingRaisesAssignReadonlyImport(t *testing.T) {
	loader := newFakeLoader()
	a := newModuleA()
	loader.register("./a.js", a)

	b := newFakeModule("b.js")
	ms := New(nil, b, loader, []ImportEntry{
		{ModuleRequest: "./a.js", ImportName: "x", LocalName: "x"},
	})

	err := ms.Put("x", 5, false, token.NoPos)
	require.Error(t, err)
	assert.True(t, diagIs(err, diag.AssignReadonlyImport))
}

func TestNamespaceImportReturnsModuleNamespaceObject(t *testing.T) {
	loader := newFakeLoader()
	a := newModuleA()
	loader.register("./a.js", a)

	b := newFakeModule("b.js")
	ms := New(nil, b, loader, []ImportEntry{
		{ModuleRequest: "./a.js", ImportName: NamespaceImport, LocalName: "ns"},
	})

	v, ok := ms.Get("ns")
	require.True(t, ok)
	assert.Same(t, a.exports, v)
}

func TestHasRecognizesImportBindingsAndOwnSlots(t *testing.T) {
	loader := newFakeLoader()
	a := newModuleA()
	loader.register("./a.js", a)

	b := newFakeModule("b.js")
	ms := New(nil, b, loader, []ImportEntry{
		{ModuleRequest: "./a.js", ImportName: "x", LocalName: "x"},
	})
	_, err := ms.DefineSlot("local", 42, scope.Permanent)
	require.NoError(t, err)

	assert.True(t, ms.Has("x"))
	assert.True(t, ms.Has("local"))
	assert.False(t, ms.Has("nope"))
}

func TestGetFallsThroughToOwnScopeForNonImportNames(t *testing.T) {
	ms := New(nil, newFakeModule("b.js"), newFakeLoader(), nil)
	_, err := ms.DefineSlot("local", "hi", scope.Permanent)
	require.NoError(t, err)

	v, ok := ms.Get("local")
	require.True(t, ok)
	assert.Equal(t, "hi", v)
}

func TestReadSurfacesImportUnresolvedWhenLoaderHasNoModule(t *testing.T) {
	loader := newFakeLoader() // nothing registered
	ms := New(nil, newFakeModule("b.js"), loader, []ImportEntry{
		{ModuleRequest: "./missing.js", ImportName: "y", LocalName: "y"},
	})

	_, err := ms.Read("y", token.NoPos)
	require.Error(t, err)
	assert.True(t, diagIs(err, diag.ImportUnresolved))
}

func TestReadSurfacesImportUnresolvedWithNilLoader(t *testing.T) {
	ms := New(nil, newFakeModule("b.js"), nil, []ImportEntry{
		{ModuleRequest: "./a.js", ImportName: "x", LocalName: "x"},
	})

	_, err := ms.Read("x", token.NoPos)
	require.Error(t, err)
	assert.True(t, diagIs(err, diag.ImportUnresolved))
}

func TestGetSwallowsResolutionFailureIntoNotOk(t *testing.T) {
	ms := New(nil, newFakeModule("b.js"), nil, []ImportEntry{
		{ModuleRequest: "./a.js", ImportName: "x", LocalName: "x"},
	})

	v, ok := ms.Get("x")
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestModuleResolutionIsCachedAcrossLookups(t *testing.T) {
	loader := newFakeLoader()
	a := newModuleA()
	loader.register("./a.js", a)

	b := newFakeModule("b.js")
	ms := New(nil, b, loader, []ImportEntry{
		{ModuleRequest: "./a.js", ImportName: "x", LocalName: "x"},
		{ModuleRequest: "./a.js", ImportName: NamespaceImport, LocalName: "ns"},
	})

	_, _ = ms.Get("x")
	_, _ = ms.Get("ns")
	_, _ = ms.Get("x")

	assert.Equal(t, 1, loader.resolves, "resolving the same module request twice must hit the cache, not the loader")
}

func TestMissingExportNameSurfacesImportUnresolved(t *testing.T) {
	loader := newFakeLoader()
	a := newModuleA()
	loader.register("./a.js", a)

	ms := New(nil, newFakeModule("b.js"), loader, []ImportEntry{
		{ModuleRequest: "./a.js", ImportName: "doesNotExist", LocalName: "missing"},
	})

	_, err := ms.Read("missing", token.NoPos)
	require.Error(t, err)
	assert.True(t, diagIs(err, diag.ImportUnresolved))
}

func diagIs(err error, kind diag.Kind) bool {
	de, ok := err.(*diag.Error)
	return ok && de.Kind == kind
}
