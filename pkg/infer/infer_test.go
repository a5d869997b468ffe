package infer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/parser"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

func inferSource(t *testing.T, src string) (*Engine, *ast.Package, *source.Sink) {
	t.Helper()
	arena := scope.NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	pkg, err := parser.New().Parse("main.tc", src, arena, sink)
	require.NoError(t, err)
	engine := NewEngine(arena, sink)
	engine.Infer(pkg)
	return engine, pkg, sink
}

func errorMessages(sink *source.Sink) []string {
	var out []string
	for _, d := range sink.Log.Errors() {
		out = append(out, d.Message)
	}
	return out
}

func TestInferSimpleFunction(t *testing.T) {
	engine, _, sink := inferSource(t, "fn add(x: i32, y: i32) -> i32 = x + y")
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))

	insts := engine.Instances()
	require.Len(t, insts, 1)
	inst := insts[0]
	assert.Equal(t, "add", inst.Name)
	require.Len(t, inst.ParamTypes, 2)
	assert.Equal(t, "i32", inst.ParamTypes[0].Signature())
	assert.Equal(t, "i32", inst.ResultType.Signature())
	assert.False(t, inst.IsCoroutine)
	assert.Len(t, inst.Returns, 1)
}

func TestGenericMonomorphizationCachesBySignature(t *testing.T) {
	src := `
fn id<T>(x: T) -> T = x
fn main() -> u32 {
	id<i32>(1)
	id<f32>(1.5)
	id<i32>(2)
	return 0
}
`
	engine, _, sink := inferSource(t, src)
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))

	var concrete []*FuncInstance
	for _, inst := range engine.Instances() {
		if inst.Name == "id" {
			concrete = append(concrete, inst)
		}
	}
	// Two distinct signatures, the i32 repeat served from the cache
	// (spec invariant 5, testable properties 4 and S2).
	require.Len(t, concrete, 2)
	assert.NotEqual(t, concrete[0].UID, concrete[1].UID)
	sigs := []string{concrete[0].Signature, concrete[1].Signature}
	assert.Contains(t, sigs, "i32")
	assert.Contains(t, sigs, "f32")
}

func TestGenericInferredFromArgumentTypes(t *testing.T) {
	src := `
fn first<T>(items: T[]) -> T = items[0]
fn main() -> u32 {
	first([1, 2, 3])
	return 0
}
`
	engine, _, sink := inferSource(t, src)
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))

	found := false
	for _, inst := range engine.Instances() {
		if inst.Name == "first" && inst.Signature == "i32" {
			found = true
		}
	}
	assert.True(t, found, "expected first<i32> inferred from the call site")
}

func TestCoroutineWithReturnIsFatal(t *testing.T) {
	src := `
fn gen() {
	yield (1)
	return 2
}
`
	_, _, sink := inferSource(t, src)
	require.True(t, sink.Log.HasErrors())
	assert.Contains(t, strings.Join(errorMessages(sink), "\n"), "coroutine")
}

func TestYieldMarksCoroutineCallable(t *testing.T) {
	engine, _, sink := inferSource(t, "fn gen() { yield (1) }")
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))
	insts := engine.Instances()
	require.Len(t, insts, 1)
	assert.True(t, insts[0].IsCoroutine)
	assert.Len(t, insts[0].Yields, 1)
	assert.Empty(t, insts[0].Returns)
}

func TestVariantConstructorCall(t *testing.T) {
	src := `
type V = A(x: i32) | B
fn main() -> u32 {
	let v = V.A(5)
	return 0
}
`
	engine, pkg, sink := inferSource(t, src)
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))

	mainDecl := pkg.FindDecl("main")
	call := mainDecl.Body.Stmts[0].Expr
	info, ok := engine.Table.Get(call.ID, "")
	require.True(t, ok)
	vc, isCtor := info.InferredType.To(types.KindVariantConstructor)
	require.True(t, isCtor)
	assert.Equal(t, "A", vc.CtorName)
	assert.Equal(t, uint16(0), vc.Tag)
	assert.Equal(t, "V", vc.ParentVariant.Name)
}

func TestVariantConstructorArityChecked(t *testing.T) {
	src := `
type V = A(x: i32) | B
fn main() -> u32 {
	V.A(1, 2)
	return 0
}
`
	_, _, sink := inferSource(t, src)
	require.True(t, sink.Log.HasErrors())
	assert.Contains(t, strings.Join(errorMessages(sink), "\n"), "wrong number of arguments")
}

func TestOperatorOverloadResolvesToMethod(t *testing.T) {
	src := `
class Vec {
	let x: i32
	fn __add__(other: Vec) -> Vec = other
}
fn combine(a: Vec, b: Vec) -> Vec = a + b
`
	engine, pkg, sink := inferSource(t, src)
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))

	combine := pkg.FindDecl("combine")
	sum := combine.Body.Stmts[0].Expr
	info, ok := engine.Table.Get(sum.ID, "")
	require.True(t, ok)
	require.NotNil(t, info.Overload)
	assert.Equal(t, "__add__", info.Overload.MethodName)
	assert.Equal(t, "Vec", info.Overload.ClassType.Name)
}

func TestCallOverloadResolvesToMethod(t *testing.T) {
	src := `
class Adder {
	let base: i32
	fn __call__(x: i32) -> i32 = x
}
fn apply(a: Adder, v: i32) -> i32 = a(v)
`
	engine, pkg, sink := inferSource(t, src)
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))

	apply := pkg.FindDecl("apply")
	call := apply.Body.Stmts[0].Expr
	info, ok := engine.Table.Get(call.ID, "")
	require.True(t, ok)
	require.NotNil(t, info.Overload, "class instance in call position should resolve __call__")
	assert.Equal(t, "__call__", info.Overload.MethodName)
	assert.Equal(t, "Adder", info.Overload.ClassType.Name)
	assert.Equal(t, "i32", info.InferredType.Signature())
}

func TestCallOnNonCallableStillErrors(t *testing.T) {
	src := `
class Plain { let v: i32 }
fn f(p: Plain) -> i32 = p(1)
`
	_, _, sink := inferSource(t, src)
	require.True(t, sink.Log.HasErrors())
	assert.Contains(t, strings.Join(errorMessages(sink), "\n"), "cannot call a value of type")
}

func TestLambdaRecordsUpvalues(t *testing.T) {
	src := `
fn outer() -> i32 {
	let captured = 41
	let f = fn() -> i32 = captured + 1
	return 0
}
`
	engine, _, sink := inferSource(t, src)
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))

	var lambda *FuncInstance
	for _, inst := range engine.Instances() {
		if inst.Name == "<lambda>" {
			lambda = inst
		}
	}
	require.NotNil(t, lambda)
	require.Len(t, lambda.Upvalues, 1)
	assert.Equal(t, "captured", lambda.Upvalues[0].Name)
}

func TestImplicitCastRecordedAgainstHint(t *testing.T) {
	src := `
fn wide(x: i64) -> i64 = x
fn main() -> u32 {
	let small: i32 = 1
	wide(small)
	return 0
}
`
	engine, pkg, sink := inferSource(t, src)
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))

	mainDecl := pkg.FindDecl("main")
	call := mainDecl.Body.Stmts[1].Expr
	arg := call.Args[0]
	info, ok := engine.Table.Get(arg.ID, "")
	require.True(t, ok)
	require.NotNil(t, info.Cast, "i32 argument against i64 parameter should record a cast")
	require.Len(t, info.Cast.CastSteps, 1)
	assert.Equal(t, types.CastUpcastI, info.Cast.CastSteps[0].Op)
}

func TestReservedExpressionKindsAreRejectedStructurally(t *testing.T) {
	src := "fn f() { spawn g() }"
	_, _, sink := inferSource(t, src)
	require.True(t, sink.Log.HasErrors())
	found := false
	for _, d := range sink.Log.Errors() {
		if d.Kind == source.KindNotYetImpl {
			found = true
		}
	}
	assert.True(t, found, "spawn should raise a not-yet-implemented diagnostic, got %v", errorMessages(sink))
}

func TestBreakOutsideLoopIsSemanticError(t *testing.T) {
	_, _, sink := inferSource(t, "fn f() { break }")
	require.True(t, sink.Log.HasErrors())
	assert.Contains(t, strings.Join(errorMessages(sink), "\n"), "break outside a loop")
}

func TestInferIsIdempotent(t *testing.T) {
	src := "fn add(x: i32, y: i32) -> i32 = x + y"
	arena := scope.NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	pkg, err := parser.New().Parse("main.tc", src, arena, sink)
	require.NoError(t, err)
	engine := NewEngine(arena, sink)
	engine.Infer(pkg)
	n := len(engine.Instances())
	engine.Infer(pkg)
	assert.Equal(t, n, len(engine.Instances()), "re-inferring must not duplicate instances")
	assert.False(t, sink.Log.HasErrors(), "errors: %v", errorMessages(sink))
}
