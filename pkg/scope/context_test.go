package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typec-lang/tcc/pkg/source"
)

func TestAddSymbolThenLookupSameContext(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	root := arena.NewContext(nil, Owner{Kind: OwnerPackage})

	ok := root.AddSymbol(sink, source.Location{File: "a.tc", Line: 1, Column: 1}, "x", &Symbol{Kind: KindVariable})
	require.True(t, ok)

	require.NotNil(t, root.Lookup("x"))
	child := arena.NewContext(root, Owner{Kind: OwnerNone})
	assert.Nil(t, child.Lookup("y"))
}

func TestAddSymbolDuplicateIsError(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	root := arena.NewContext(nil, Owner{Kind: OwnerPackage})
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}

	require.True(t, root.AddSymbol(sink, loc, "x", &Symbol{Kind: KindVariable}))
	ok := root.AddSymbol(sink, loc, "x", &Symbol{Kind: KindVariable})
	assert.False(t, ok)
	assert.True(t, sink.Log.HasErrors())
}

func TestAddSymbolShadowingWarnsNotErrors(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}
	root := arena.NewContext(nil, Owner{Kind: OwnerPackage})
	require.True(t, root.AddSymbol(sink, loc, "x", &Symbol{Kind: KindVariable}))

	child := arena.NewContext(root, Owner{Kind: OwnerNone})
	ok := child.AddSymbol(sink, loc, "x", &Symbol{Kind: KindVariable})
	assert.True(t, ok)
	assert.False(t, sink.Log.HasErrors())
	assert.Len(t, sink.Log.All(), 1)
}

func TestSymbolUIDUniqueAcrossProcess(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}
	root := arena.NewContext(nil, Owner{Kind: OwnerPackage})

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		child := arena.NewContext(root, Owner{Kind: OwnerNone})
		sym := &Symbol{Kind: KindVariable}
		require.True(t, child.AddSymbol(sink, loc, "v", sym))
		assert.False(t, seen[sym.UID], "uid %q reused", sym.UID)
		seen[sym.UID] = true
	}
}

func TestLookupScopeClassifiesLocalGlobalUpvalue(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}

	pkgRoot := arena.NewContext(nil, Owner{Kind: OwnerPackage})
	require.True(t, pkgRoot.AddSymbol(sink, loc, "g", &Symbol{Kind: KindVariable}))

	outerFn := arena.NewContext(pkgRoot, Owner{Kind: OwnerFunction})
	require.True(t, outerFn.AddSymbol(sink, loc, "local", &Symbol{Kind: KindVariable}))

	innerFn := arena.NewContext(outerFn, Owner{Kind: OwnerLambda})

	_, class := innerFn.LookupScope("g")
	assert.Equal(t, ClassGlobal, class)

	sym, class := innerFn.LookupScope("local")
	assert.Equal(t, ClassUpvalue, class)
	require.Len(t, outerFn.Codegen.Upvalues, 0, "the defining function itself does not capture its own local")
	require.Len(t, innerFn.Codegen.Upvalues, 1)
	assert.Same(t, sym, innerFn.Codegen.Upvalues[0])

	_, class = outerFn.LookupScope("local")
	assert.Equal(t, ClassLocal, class)
	require.Len(t, outerFn.Codegen.Locals, 1)
}

func TestLookupScopeUpvalueRegistersOnEveryIntermediateFunction(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}

	pkgRoot := arena.NewContext(nil, Owner{Kind: OwnerPackage})
	fnA := arena.NewContext(pkgRoot, Owner{Kind: OwnerFunction})
	require.True(t, fnA.AddSymbol(sink, loc, "v", &Symbol{Kind: KindVariable}))
	fnB := arena.NewContext(fnA, Owner{Kind: OwnerLambda})
	fnC := arena.NewContext(fnB, Owner{Kind: OwnerLambda})

	_, class := fnC.LookupScope("v")
	assert.Equal(t, ClassUpvalue, class)
	assert.Len(t, fnB.Codegen.Upvalues, 1, "intermediate function fnB must also record the capture")
	assert.Len(t, fnC.Codegen.Upvalues, 1)
	assert.Len(t, fnA.Codegen.Upvalues, 0, "the defining function never captures its own local as an upvalue")
}

func TestLookupScopeMarksArgumentUsed(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}
	fn := arena.NewContext(arena.NewContext(nil, Owner{Kind: OwnerPackage}), Owner{Kind: OwnerFunction})
	arg := &Symbol{Kind: KindArgument}
	require.True(t, fn.AddSymbol(sink, loc, "x", arg))

	assert.False(t, arg.Used)
	fn.LookupScope("x")
	assert.True(t, arg.Used)
}

func TestAddExternalSymbolDoesNotMutateOriginal(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}

	defRoot := arena.NewContext(nil, Owner{Kind: OwnerPackage})
	fnSym := &Symbol{Kind: KindFunction, Decl: new(int)}
	require.True(t, defRoot.AddSymbol(sink, loc, "foo", fnSym))
	originalUID := fnSym.UID

	importerRoot := arena.NewContext(nil, Owner{Kind: OwnerPackage})
	alias := importerRoot.AddExternalSymbol("foo", fnSym)

	assert.True(t, alias.External)
	assert.NotEqual(t, originalUID, alias.UID)
	assert.Equal(t, originalUID, fnSym.UID, "aliasing must not touch the original symbol's uid")
	assert.Same(t, fnSym.Decl, alias.Decl)
}

func TestGlobalRegistryRegistersFunctionsAndTypesEagerly(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}
	root := arena.NewContext(nil, Owner{Kind: OwnerPackage})
	nested := arena.NewContext(root, Owner{Kind: OwnerFunction})

	require.True(t, nested.AddSymbol(sink, loc, "helper", &Symbol{Kind: KindFunction}))
	require.True(t, nested.AddSymbol(sink, loc, "local", &Symbol{Kind: KindVariable}))

	assert.Equal(t, 1, arena.Global.Len(), "only the function, not the plain local, registers from a non-root context")
}

func TestCloneKeepsEnvironmentButEmptiesSymbols(t *testing.T) {
	arena := NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	loc := source.Location{File: "a.tc", Line: 1, Column: 1}
	root := arena.NewContext(nil, Owner{Kind: OwnerPackage})
	fn := arena.NewContext(root, Owner{Kind: OwnerFunction})
	fn.Flags.WithinLoop = true
	fn.ActiveClass = "marker"
	require.True(t, fn.AddSymbol(sink, loc, "x", &Symbol{Kind: KindVariable}))

	clone := fn.Clone(root)
	assert.True(t, clone.Flags.WithinLoop)
	assert.Equal(t, "marker", clone.ActiveClass)
	assert.Nil(t, clone.Lookup("x"))
	assert.NotEqual(t, fn.UUID, clone.UUID)
}
