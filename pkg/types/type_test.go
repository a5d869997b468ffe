package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
)

func testSink() *source.Sink { return source.NewSink(source.ModeIntellisense) }

func TestResolveReferenceFindsTypeInScope(t *testing.T) {
	arena := scope.NewArena()
	root := arena.NewContext(nil, scope.Owner{Kind: scope.OwnerPackage})
	target := NewBasic(BasicI32)
	ok := root.AddSymbol(testSink(), source.Location{}, "MyInt", &scope.Symbol{Kind: scope.KindType, Name: "MyInt", Decl: target})
	require.True(t, ok)

	ref := NewReference(root, nil, "MyInt")
	resolved := ref.Resolve(testSink(), source.Location{})
	assert.Same(t, target, resolved)
	assert.Same(t, target, ref.Resolved, "Resolve must cache into Resolved for idempotency")
}

func TestResolveReferenceMissingSymbolProducesErrorType(t *testing.T) {
	arena := scope.NewArena()
	root := arena.NewContext(nil, scope.Owner{Kind: scope.OwnerPackage})

	ref := NewReference(root, nil, "DoesNotExist")
	resolved := ref.Resolve(testSink(), source.Location{})
	assert.True(t, resolved.IsError())
}

func TestResolveReferenceWithTypeArgsInstantiatesGeneric(t *testing.T) {
	arena := scope.NewArena()
	root := arena.NewContext(nil, scope.Owner{Kind: scope.OwnerPackage})

	elemParam := NewGenericParamType("T", nil)
	list := &Type{
		Kind:     KindClass,
		Name:     "List",
		Generics: []*GenericParam{{Name: "T"}},
		Fields:   []Field{{Name: "item", Type: elemParam}},
	}
	ok := root.AddSymbol(testSink(), source.Location{}, "List", &scope.Symbol{Kind: scope.KindType, Name: "List", Decl: list})
	require.True(t, ok)

	ref := NewReference(root, nil, "List")
	ref.TypeArgs = []*Type{NewBasic(BasicI32)}
	resolved := ref.Resolve(testSink(), source.Location{})

	require.False(t, resolved.IsError())
	assert.Equal(t, "i32", resolved.Fields[0].Type.Signature())

	// Same type argument list must return the cached instance (invariant 5).
	ref2 := NewReference(root, nil, "List")
	ref2.TypeArgs = []*Type{NewBasic(BasicI32)}
	resolved2 := ref2.Resolve(testSink(), source.Location{})
	assert.Same(t, resolved, resolved2)
}

func TestReduceWalksNullableAndReference(t *testing.T) {
	inner := NewBasic(BasicBool)
	ref := &Type{Kind: KindReference, Resolved: inner}
	nullable := NewNullable(ref)

	r := nullable.Reduce()
	assert.Equal(t, KindBasic, r.Kind)
	assert.Equal(t, BasicBool, r.Basic)
	assert.True(t, nullable.Is(KindBasic))
}

func TestAllowedNullableRejectsVoidAndDoubleNullable(t *testing.T) {
	assert.False(t, NewBasic(BasicVoid).AllowedNullable())
	assert.False(t, NewBasic(BasicNull).AllowedNullable())
	assert.True(t, NewBasic(BasicI32).AllowedNullable())
	assert.False(t, NewNullable(NewBasic(BasicI32)).AllowedNullable())
}

func TestCloneSubstitutesGenericParam(t *testing.T) {
	param := NewGenericParamType("T", nil)
	boxed := &Type{Kind: KindStruct, Fields: []Field{{Name: "value", Type: param}}}

	clone := boxed.Clone(map[string]*Type{"T": NewBasic(BasicI64)})
	assert.Equal(t, "i64", clone.Fields[0].Type.Signature())
	assert.Equal(t, "'T", boxed.Fields[0].Type.Signature(), "original must be untouched")
}

func TestCloneHandlesSelfReferentialCycle(t *testing.T) {
	node := &Type{Kind: KindClass, Name: "Node"}
	node.Fields = []Field{{Name: "next", Type: NewNullable(node)}}

	clone := node.Clone(nil)
	require.NotNil(t, clone)
	// The self-reference inside the clone must point back at the same clone,
	// not recurse infinitely or point at the original.
	assert.Same(t, clone, clone.Fields[0].Type.Inner)
}

func TestInstantiateCachesByArgumentSignature(t *testing.T) {
	param := GenericParam{Name: "T"}
	box := &Type{Kind: KindClass, Name: "Box", Generics: []*GenericParam{&param}, Fields: []Field{{Name: "v", Type: NewGenericParamType("T", nil)}}}

	a := box.Instantiate(map[string]*Type{"T": NewBasic(BasicI32)})
	b := box.Instantiate(map[string]*Type{"T": NewBasic(BasicI32)})
	c := box.Instantiate(map[string]*Type{"T": NewBasic(BasicBool)})

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Nil(t, a.Generics)
}

func TestSignatureOrderSensitiveForGenericArgs(t *testing.T) {
	a := argsSignature([]*Type{NewBasic(BasicI32), NewBasic(BasicBool)})
	b := argsSignature([]*Type{NewBasic(BasicBool), NewBasic(BasicI32)})
	assert.NotEqual(t, a, b)
}

func TestGetGenericParametersRecursiveBindsFromArray(t *testing.T) {
	declared := NewArray(NewGenericParamType("T", nil))
	actual := NewArray(NewBasic(BasicF64))

	out := map[string]*Type{}
	GetGenericParametersRecursive(declared, actual, out)
	assert.Equal(t, "f64", out["T"].Signature())
}

func TestGetGenericParametersRecursiveBindsFromStructFields(t *testing.T) {
	declared := &Type{Kind: KindStruct, Fields: []Field{{Name: "x", Type: NewGenericParamType("T", nil)}}}
	actual := &Type{Kind: KindStruct, Fields: []Field{{Name: "x", Type: NewBasic(BasicChar)}}}

	out := map[string]*Type{}
	GetGenericParametersRecursive(declared, actual, out)
	assert.Equal(t, "char", out["T"].Signature())
}

func TestSatisfiesConstraintAcceptsInterfaceOrClassOption(t *testing.T) {
	iface := &Type{Kind: KindInterface, Name: "Printable", IMethods: []*InterfaceMethod{
		{Name: "print", Result: NewBasic(BasicVoid)},
	}}
	class := &Type{Kind: KindClass, Name: "Widget", Methods: []*ClassMethod{
		{Name: "print", Result: NewBasic(BasicVoid), IndexInClass: 0},
	}}
	class.Implements = []*Type{iface}

	constraint := NewUnion([]*Type{iface})
	assert.True(t, SatisfiesConstraint(testSink(), source.Location{}, class, constraint))

	other := &Type{Kind: KindClass, Name: "Other"}
	assert.False(t, SatisfiesConstraint(testSink(), source.Location{}, other, constraint))
}

func TestCanAssignStructAllowsFieldReorder(t *testing.T) {
	from := &Type{Kind: KindStruct, Fields: []Field{
		{Name: "y", Type: NewBasic(BasicI32)},
		{Name: "x", Type: NewBasic(BasicBool)},
	}}
	to := &Type{Kind: KindStruct, Fields: []Field{
		{Name: "x", Type: NewBasic(BasicBool)},
		{Name: "y", Type: NewBasic(BasicI32)},
	}}

	res := CanAssign(testSink(), source.Location{}, from, to)
	require.True(t, res.Success)
	assert.Equal(t, []int{1, 0}, res.FieldSwap)
}

func TestCanAssignNullableAbsorbsUnderlyingAndNull(t *testing.T) {
	nullableI32 := NewNullable(NewBasic(BasicI32))

	assert.True(t, CanAssign(testSink(), source.Location{}, NewBasic(BasicI32), nullableI32).Success)
	assert.True(t, CanAssign(testSink(), source.Location{}, NewBasic(BasicNull), nullableI32).Success)
	assert.False(t, CanAssign(testSink(), source.Location{}, NewBasic(BasicNull), NewBasic(BasicI32)).Success)
}

func TestCanAssignClassToInterfaceProducesMethodOrder(t *testing.T) {
	iface := &Type{Kind: KindInterface, Name: "Shape", IMethods: []*InterfaceMethod{
		{Name: "area", Result: NewBasic(BasicF64)},
		{Name: "perimeter", Result: NewBasic(BasicF64)},
	}}
	class := &Type{Kind: KindClass, Name: "Circle", Methods: []*ClassMethod{
		{Name: "perimeter", Result: NewBasic(BasicF64), IndexInClass: 0},
		{Name: "area", Result: NewBasic(BasicF64), IndexInClass: 1},
	}}

	res := CanAssign(testSink(), source.Location{}, class, iface)
	require.True(t, res.Success)
	assert.Equal(t, []int{1, 0}, res.MethodOrder)
}

func TestCanAssignClassToInterfaceMissingMethodFails(t *testing.T) {
	iface := &Type{Kind: KindInterface, Name: "Shape", IMethods: []*InterfaceMethod{{Name: "area", Result: NewBasic(BasicF64)}}}
	class := &Type{Kind: KindClass, Name: "Circle"}

	res := CanAssign(testSink(), source.Location{}, class, iface)
	assert.False(t, res.Success)
}

func TestCanAssignInterfaceToInterfaceRequiresSafeCastWhenNarrower(t *testing.T) {
	wide := &Type{Kind: KindInterface, Name: "Wide", IMethods: []*InterfaceMethod{{Name: "a"}}}
	narrow := &Type{Kind: KindInterface, Name: "Narrow", IMethods: []*InterfaceMethod{{Name: "a"}, {Name: "b"}}}

	res := CanAssign(testSink(), source.Location{}, wide, narrow)
	assert.False(t, res.Success)
	assert.True(t, res.RequiresSafeCast)
}

func TestCanCastNumericWidenAndNarrow(t *testing.T) {
	widen := CanCast(testSink(), source.Location{}, NewBasic(BasicI8), NewBasic(BasicI32))
	require.True(t, widen.Success)
	assert.Equal(t, CastUpcastI, widen.CastSteps[0].Op)

	narrow := CanCast(testSink(), source.Location{}, NewBasic(BasicI32), NewBasic(BasicI8))
	require.True(t, narrow.Success)
	assert.Equal(t, CastDcastI, narrow.CastSteps[0].Op)

	unsignedWiden := CanCast(testSink(), source.Location{}, NewBasic(BasicU8), NewBasic(BasicU32))
	require.True(t, unsignedWiden.Success)
	assert.Equal(t, CastUpcastU, unsignedWiden.CastSteps[0].Op)
}

func TestCanCastIntFloatRoundTrip(t *testing.T) {
	toFloat := CanCast(testSink(), source.Location{}, NewBasic(BasicI32), NewBasic(BasicF64))
	require.True(t, toFloat.Success)
	assert.Equal(t, CastIntToF, toFloat.CastSteps[0].Op)

	toInt := CanCast(testSink(), source.Location{}, NewBasic(BasicF64), NewBasic(BasicI32))
	require.True(t, toInt.Success)
	assert.Equal(t, CastFToInt, toInt.CastSteps[0].Op)
}

func TestCanCastVariantToConstructorRequiresTagCheck(t *testing.T) {
	variant := &Type{Kind: KindVariant, Name: "Option"}
	some := &Type{Kind: KindVariantConstructor, ParentVariant: variant, CtorName: "Some"}
	variant.Constructors = []*VariantConstructor{{Name: "Some"}}

	res := CanCast(testSink(), source.Location{}, variant, some)
	require.True(t, res.Success)
	assert.True(t, res.RequiresTagCheck)
	assert.Equal(t, CastTagCheck, res.CastSteps[0].Op)
}

func TestCanCastRejectsUnrelatedBasicKinds(t *testing.T) {
	res := CanCast(testSink(), source.Location{}, NewBasic(BasicI32), NewBasic(BasicBool))
	assert.False(t, res.Success)
}
