package ir

import (
	"fmt"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/infer"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

// Function is one lowered function body: its entry uid (the owning
// context's uuid, spec invariant 9), the linear instruction list, and the
// stack layout the downstream encoder and pkg/regalloc consume.
type Function struct {
	UID         string
	Name        string
	Instrs      []Instr
	Layout      *Layout
	IsCoroutine bool
}

// Program is the full lowering output for one compilation: every concrete
// function instance in creation order, plus the entry preamble that runs
// global initializers and top-level statements before calling main.
type Program struct {
	Functions []*Function
	Preamble  *Function

	// RequiresArgs is true when main takes the String[] arg vector, so the
	// encoder emits the call_main preamble with argument marshalling
	// (spec testable scenario S6).
	RequiresArgs bool
}

// Lowerer drives IR lowering for one compilation. Class and FFI ids are
// owned here, not as package globals, so independent compilations in the
// same process never share counters (spec §5 resource policy).
type Lowerer struct {
	engine *infer.Engine
	sink   *source.Sink

	classIDs    map[*types.Type]int
	nextClassID int
	ffiIDs      map[string]int
	nextFFIID   int
}

func NewLowerer(engine *infer.Engine, sink *source.Sink) *Lowerer {
	return &Lowerer{
		engine:   engine,
		sink:     sink,
		classIDs: make(map[*types.Type]int),
		ffiIDs:   make(map[string]int),
	}
}

// classID assigns (once) and returns the numeric id the VM uses for a class
// in c_alloc / i_is_c instructions.
func (l *Lowerer) classID(t *types.Type) int {
	if id, ok := l.classIDs[t]; ok {
		return id
	}
	id := l.nextClassID
	l.nextClassID++
	l.classIDs[t] = id
	return id
}

// ffiID assigns (once) and returns the id for an `lib.fn` FFI method token.
func (l *Lowerer) ffiID(name string) int {
	if id, ok := l.ffiIDs[name]; ok {
		return id
	}
	id := l.nextFFIID
	l.nextFFIID++
	l.ffiIDs[name] = id
	return id
}

// LowerProgram lowers every concrete function instance the inference engine
// built, in creation order (spec §5: emission order is observable and part
// of the contract).
func (l *Lowerer) LowerProgram() *Program {
	prog := &Program{}
	for _, inst := range l.engine.Instances() {
		if inst.Body == nil {
			continue // FFI stubs and unresolved recursion placeholders have no body to lower
		}
		prog.Functions = append(prog.Functions, l.lowerInstance(inst))
	}
	return prog
}

// LowerEntry builds the entry preamble: package global initializers in
// declaration order, then top-level statements, then the call_main handoff
// (spec §6 "downstream encoder interface", S6). Class static-initializer
// blocks (pkg.StaticInits) are not lowered into the preamble.
func (l *Lowerer) LowerEntry(pkg *ast.Package, main *infer.FuncInstance, requiresArgs bool) *Function {
	inst := &infer.FuncInstance{
		UID:     fmt.Sprintf("%d", pkg.Root.UUID),
		Name:    "<entry>",
		Context: pkg.Root,
	}
	f := &fnLowerer{low: l, inst: inst, fn: &Function{UID: inst.UID, Name: inst.Name}}
	f.emit(OpLabel, source.Location{File: pkg.FilePath}, inst.UID)

	for _, d := range pkg.Decls {
		if d.Kind != ast.DeclGlobalVar {
			continue
		}
		reg := f.visit(d.Value)
		sym := pkg.Root.Lookup(d.Name)
		uid := d.Name
		if sym != nil {
			uid = sym.UID
		}
		f.emit(suffixed(OpGlobal, f.exprType(d.Value)), d.Span.Start, uid, "reg", reg)
	}
	for _, stmt := range pkg.Statements {
		f.lowerStmt(stmt)
	}
	if main != nil {
		f.emit(Op("call_main"), source.Location{File: pkg.FilePath}, main.UID, requiresArgs)
	}
	f.emit(OpRetVoid, source.Location{File: pkg.FilePath})
	f.fn.Layout = &Layout{}
	return f.fn
}

func (l *Lowerer) lowerInstance(inst *infer.FuncInstance) *Function {
	f := &fnLowerer{
		low:      l,
		inst:     inst,
		instance: inst.Signature,
		fn:       &Function{UID: inst.UID, Name: inst.Name, IsCoroutine: inst.IsCoroutine},
	}
	loc := source.Location{}
	if inst.Decl != nil {
		loc = inst.Decl.Span.Start
	}

	f.emit(OpLabel, loc, inst.UID)
	if inst.IsCoroutine {
		f.emit(OpCoroutineFnAlloc, loc)
	}
	f.lowerBlock(inst.Body)

	// A void function may fall off the end of its body; give it an explicit
	// epilogue so every path leaves a terminator for the encoder.
	if inst.IsCoroutine {
		f.emit(OpCoroutineFinish, loc)
	} else if !endsInReturn(f.fn.Instrs) {
		f.emit(OpRetVoid, loc)
	}
	f.fn.Layout = ComputeLayout(l.sink, inst)
	return f.fn
}

func endsInReturn(instrs []Instr) bool {
	for i := len(instrs) - 1; i >= 0; i-- {
		switch instrs[i].Op {
		case OpSrcmapPop, OpSrcmapPush, OpLabel:
			continue
		}
		op := string(instrs[i].Op)
		return op == string(OpRetVoid) || len(op) > 4 && op[:4] == "ret_"
	}
	return false
}

// loopFrame tracks the jump targets an enclosing loop exposes to
// break/continue lowering.
type loopFrame struct {
	continueLabel string
	breakLabel    string
}

// fnLowerer is the per-function lowering state: the output buffer, the
// virtual-register and label counters, and the loop stack.
type fnLowerer struct {
	low      *Lowerer
	inst     *infer.FuncInstance
	instance string
	fn       *Function

	regN   int
	labelN int
	loops  []loopFrame
}

func (f *fnLowerer) emit(op Op, loc source.Location, args ...any) {
	f.fn.Instrs = append(f.fn.Instrs, Instr{Op: op, Args: args, Loc: loc})
}

func (f *fnLowerer) freshReg() Reg {
	f.regN++
	return Reg(fmt.Sprintf("r%d", f.regN))
}

func (f *fnLowerer) freshLabel(hint string) string {
	f.labelN++
	return fmt.Sprintf("%s_%s%d", f.inst.UID, hint, f.labelN)
}

// info returns the inference side-table entry for e under this function's
// monomorphization instance (spec §4.4: inferredType/hintType live in the
// side table, not on the node).
func (f *fnLowerer) info(e *ast.Expr) *infer.Info {
	if e == nil {
		return nil
	}
	if info, ok := f.low.engine.Table.Get(e.ID, f.instance); ok {
		return info
	}
	if f.instance != "" {
		// Sub-expressions shared with the generic origin's first inference
		// (e.g. constant arguments) may only carry an unparameterized entry.
		if info, ok := f.low.engine.Table.Get(e.ID, ""); ok {
			return info
		}
	}
	return nil
}

func (f *fnLowerer) exprType(e *ast.Expr) *types.Type {
	if info := f.info(e); info != nil && info.InferredType != nil {
		return info.InferredType
	}
	return types.NewBasic(types.BasicVoid)
}

// suffix is the `<type>` part of a typed opcode: the basic kind's own name,
// or u64 for every pointer-shaped value (arrays, classes, interfaces,
// structs, functions, variants — their handle is one machine word).
func suffix(t *types.Type) string {
	if t == nil {
		return "u64"
	}
	r := t.Reduce()
	if r != nil && r.Kind == types.KindBasic && r.Basic != types.BasicVoid && r.Basic != types.BasicNull {
		return r.Basic.String()
	}
	return "u64"
}

func suffixed(op Op, t *types.Type) Op {
	return Op(string(op) + "_" + suffix(t))
}

// symbolClass is the storage-class token a tmp_<type> instruction carries
// (spec §4.5 "[global|local|arg|func|reg]").
type symbolClass string

const (
	classGlobal symbolClass = "global"
	classLocal  symbolClass = "local"
	classArg    symbolClass = "arg"
	classFunc   symbolClass = "func"
)

// resolveSymbol finds name's symbol and storage class relative to this
// function. Locals and upvalues were registered on the function's Codegen
// bookkeeping during inference (scope.LookupScope side effects); an upvalue
// reads as a local here because the closure prologue copies captures into
// the frame in capture order.
func (f *fnLowerer) resolveSymbol(name string) (*scope.Symbol, symbolClass) {
	if cg := f.inst.Context.Codegen; cg != nil {
		for _, s := range cg.Upvalues {
			if s.Name == name {
				return s, classLocal
			}
		}
		for _, s := range cg.Locals {
			if s.Name == name {
				return s, classLocal
			}
		}
	}
	if s, ok := f.inst.Context.Symbols[name]; ok {
		switch s.Kind {
		case scope.KindArgument:
			return s, classArg
		case scope.KindFunction:
			return s, classFunc
		case scope.KindVariable, scope.KindVariablePattern:
			return s, classLocal
		}
		return s, classGlobal
	}
	s := f.inst.Context.Lookup(name)
	if s == nil {
		return nil, classGlobal
	}
	if s.Kind == scope.KindFunction {
		return s, classFunc
	}
	return s, classGlobal
}

// fieldOffsets computes each ordered field's byte offset within an
// aggregate plus the total size, using the same sizing table the stack
// layout pass uses.
func fieldOffsets(fields []types.Field) ([]int, int) {
	offsets := make([]int, len(fields))
	total := 0
	for i, fld := range fields {
		offsets[i] = total
		total += sizeOf(fld.Type)
	}
	return offsets, total
}

var invertCmp = map[CmpOp]CmpOp{
	CmpEq: CmpNe, CmpNe: CmpEq,
	CmpGt: CmpLe, CmpLe: CmpGt,
	CmpGe: CmpLt, CmpLt: CmpGe,
}
