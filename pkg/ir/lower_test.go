package ir

import (
	"strings"
	"testing"

	"github.com/typec-lang/tcc/pkg/infer"
	"github.com/typec-lang/tcc/pkg/parser"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
)

func lowerSource(t *testing.T, src string) (*Program, *infer.Engine, *source.Sink) {
	t.Helper()
	arena := scope.NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	pkg, err := parser.New().Parse("main.tc", src, arena, sink)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	engine := infer.NewEngine(arena, sink)
	engine.Infer(pkg)
	if sink.Log.HasErrors() {
		var msgs []string
		for _, d := range sink.Log.Errors() {
			msgs = append(msgs, d.Message)
		}
		t.Fatalf("inference errors: %s", strings.Join(msgs, "; "))
	}
	low := NewLowerer(engine, sink)
	return low.LowerProgram(), engine, sink
}

func findFunction(t *testing.T, prog *Program, name string) *Function {
	t.Helper()
	for _, fn := range prog.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function %q in program", name)
	return nil
}

func ops(fn *Function) []string {
	out := make([]string, len(fn.Instrs))
	for i, ins := range fn.Instrs {
		out[i] = string(ins.Op)
	}
	return out
}

func containsOpSequence(fn *Function, want ...string) bool {
	i := 0
	for _, op := range ops(fn) {
		if op == want[i] {
			i++
			if i == len(want) {
				return true
			}
		}
	}
	return false
}

func TestLowerAddFunction(t *testing.T) {
	prog, _, _ := lowerSource(t, "fn add(x: i32, y: i32) -> i32 = x + y\nfn main() -> u32 { return 0 }")
	add := findFunction(t, prog, "add")
	if !containsOpSequence(add, "add_i32", "ret_i32") {
		t.Fatalf("add IR missing add_i32 ... ret_i32:\n%s", strings.Join(ops(add), "\n"))
	}
}

func TestLowerGenericCallTargetsDistinctInstances(t *testing.T) {
	src := `
fn id<T>(x: T) -> T = x
fn main() -> u32 {
	id<i32>(1)
	id<f32>(1.5)
	return 0
}
`
	prog, _, _ := lowerSource(t, src)
	main := findFunction(t, prog, "main")

	var targets []string
	for _, ins := range main.Instrs {
		if ins.Op == OpCall {
			targets = append(targets, ins.Args[1].(string))
		}
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 direct calls in main, got %d", len(targets))
	}
	if targets[0] == targets[1] {
		t.Fatalf("both calls target uid %s; monomorphized instances must differ", targets[0])
	}
}

func TestLowerVariantConstruction(t *testing.T) {
	src := `
type V = A(x: i32) | B
fn main() -> u32 {
	let v = V.A(5)
	return 0
}
`
	prog, _, _ := lowerSource(t, src)
	main := findFunction(t, prog, "main")

	if !containsOpSequence(main, "s_alloc", "s_reg_field", "s_reg_field", "const_u16", "s_storef_u16", "const_i32", "s_storef_i32") {
		t.Fatalf("variant construction sequence missing:\n%s", strings.Join(ops(main), "\n"))
	}

	// The tag field sits at offset 0 and the i32 payload at offset 2,
	// after the u16 tag.
	for _, ins := range main.Instrs {
		if ins.Op == OpStructRegF && ins.Args[1].(int) == 1 {
			if ins.Args[2].(int) != 2 {
				t.Fatalf("payload field offset = %v, want 2", ins.Args[2])
			}
		}
	}
}

func TestLowerWhileLoopShape(t *testing.T) {
	src := `
fn count() -> i32 {
	let mut n = 0
	while n < 10 { n = n + 1 }
	return n
}
fn main() -> u32 { return 0 }
`
	prog, _, _ := lowerSource(t, src)
	count := findFunction(t, prog, "count")
	if !containsOpSequence(count, "label", "j_cmp_i32", "j", "label") {
		t.Fatalf("while loop shape missing:\n%s", strings.Join(ops(count), "\n"))
	}
}

func TestLowerClosureCaptures(t *testing.T) {
	src := `
fn outer() -> i32 {
	let captured = 41
	let f = fn() -> i32 = captured + 1
	return 0
}
fn main() -> u32 { return 0 }
`
	prog, _, _ := lowerSource(t, src)
	outer := findFunction(t, prog, "outer")
	if !containsOpSequence(outer, "closure_alloc", "closure_push_env_i32") {
		t.Fatalf("closure capture sequence missing:\n%s", strings.Join(ops(outer), "\n"))
	}
}

func TestLowerCoroutine(t *testing.T) {
	src := `
fn gen() { yield (1) }
fn main() -> u32 { gen(); return 0 }
`
	prog, _, _ := lowerSource(t, src)

	gen := findFunction(t, prog, "gen")
	if !gen.IsCoroutine {
		t.Fatal("gen should be coroutine-callable")
	}
	if !containsOpSequence(gen, "coroutine_fn_alloc", "coroutine_yield", "coroutine_finish") {
		t.Fatalf("coroutine body shape missing:\n%s", strings.Join(ops(gen), "\n"))
	}

	main := findFunction(t, prog, "main")
	found := false
	for _, op := range ops(main) {
		if op == string(OpCoroutineAlloc) {
			found = true
		}
	}
	if !found {
		t.Fatalf("call to a coroutine should lower to coroutine_alloc:\n%s", strings.Join(ops(main), "\n"))
	}
}

func TestLowerCallOverloadDispatchesToMethod(t *testing.T) {
	src := `
class Adder {
	let base: i32
	fn __call__(x: i32) -> i32 = x
}
fn apply(a: Adder, v: i32) -> i32 = a(v)
fn main() -> u32 { return 0 }
`
	prog, _, _ := lowerSource(t, src)
	apply := findFunction(t, prog, "apply")

	// The callee value goes into slot 0 as the receiver, the argument into
	// slot 1, then a direct call to the __call__ method body.
	if !containsOpSequence(apply, "fn_alloc", "fn_set_reg_u64", "fn_set_reg_i32", "call") {
		t.Fatalf("__call__ dispatch sequence missing:\n%s", strings.Join(ops(apply), "\n"))
	}
}

func TestLowerImplicitCastInsertedAtCallSite(t *testing.T) {
	src := `
fn wide(x: i64) -> i64 = x
fn main() -> u32 {
	let small: i32 = 1
	wide(small)
	return 0
}
`
	prog, _, _ := lowerSource(t, src)
	main := findFunction(t, prog, "main")
	found := false
	for _, op := range ops(main) {
		if op == "upcast_i" {
			found = true
		}
	}
	if !found {
		t.Fatalf("i32 -> i64 argument should insert upcast_i:\n%s", strings.Join(ops(main), "\n"))
	}
}

func TestLowerSrcmapBracketsEveryExpression(t *testing.T) {
	prog, _, _ := lowerSource(t, "fn add(x: i32, y: i32) -> i32 = x + y\nfn main() -> u32 { return 0 }")
	add := findFunction(t, prog, "add")
	pushes, pops := 0, 0
	for _, ins := range add.Instrs {
		switch ins.Op {
		case OpSrcmapPush:
			pushes++
		case OpSrcmapPop:
			pops++
		}
	}
	if pushes == 0 || pushes != pops {
		t.Fatalf("srcmap push/pop mismatch: %d pushes, %d pops", pushes, pops)
	}
}

func TestLowerDeterministicText(t *testing.T) {
	src := `
type V = A(x: i32) | B
fn id<T>(x: T) -> T = x
fn main() -> u32 {
	let v = V.A(5)
	id<i32>(1)
	return 0
}
`
	progA, _, _ := lowerSource(t, src)
	progB, _, _ := lowerSource(t, src)
	if progA.Text() != progB.Text() {
		t.Fatal("two compilations of identical source must produce byte-identical IR text")
	}
}

func TestComputeLayoutReportsMissingAnnotation(t *testing.T) {
	arena := scope.NewArena()
	sink := source.NewSink(source.ModeIntellisense)
	root := arena.NewContext(nil, scope.Owner{Kind: scope.OwnerPackage})
	fnCtx := arena.NewContext(root, scope.Owner{Kind: scope.OwnerFunction})

	// A local registered on the codegen bookkeeping but never given a type
	// by inference: layout must report the codegen bug, not guess a size.
	sym := &scope.Symbol{Kind: scope.KindVariable}
	fnCtx.AddSymbol(sink, source.Location{File: "a.tc", Line: 1, Column: 1}, "x", sym)
	fnCtx.LookupScope("x")

	inst := &infer.FuncInstance{UID: "1", Name: "broken", Context: fnCtx}
	layout := ComputeLayout(sink, inst)
	if !sink.Log.HasErrors() {
		t.Fatal("expected a codegen diagnostic for the untyped local")
	}
	if len(layout.Locals) != 0 || layout.LocalsByteSize != 0 {
		t.Fatalf("untyped local must not get a slot, got %+v", layout.Locals)
	}
	d := sink.Log.Errors()[0]
	if d.Kind != source.KindCodegen {
		t.Fatalf("diagnostic kind = %s, want codegen", d.Kind)
	}
}

func TestComputeLayoutReservesArgsAndLocals(t *testing.T) {
	src := `
fn f(a: i32, b: i64) -> i32 {
	let x = 7
	return x
}
fn main() -> u32 { return 0 }
`
	prog, engine, sink := lowerSource(t, src)
	_ = prog
	var inst *infer.FuncInstance
	for _, i := range engine.Instances() {
		if i.Name == "f" {
			inst = i
		}
	}
	if inst == nil {
		t.Fatal("no instance for f")
	}
	layout := ComputeLayout(sink, inst)
	if sink.Log.HasErrors() {
		t.Fatalf("layout raised diagnostics: %v", sink.Log.Errors())
	}
	if layout.ArgsByteSize != 12 {
		t.Errorf("ArgsByteSize = %d, want 12", layout.ArgsByteSize)
	}
	if len(layout.Args) != 2 || layout.Args[1].Offset != 4 {
		t.Errorf("second arg offset = %+v, want 4", layout.Args)
	}
	if layout.LocalsByteSize != 4 {
		t.Errorf("LocalsByteSize = %d, want 4 (one used i32 local)", layout.LocalsByteSize)
	}
}
