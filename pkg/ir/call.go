package ir

import (
	"fmt"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/types"
)

// lowerCall emits the call-frame discipline of spec §4.5: fn_alloc opens a
// frame, fn_set_reg_<type> loads arguments in declared order (with `this`
// at slot 0 for instance methods), then call / call_ptr / call_ffi /
// closure_call transfers control.
func (f *fnLowerer) lowerCall(e *ast.Expr) Reg {
	info := f.info(e)

	// A callee that resolved to a __call__ overload rewrites into a method
	// call on the callee value, same as the other operator overloads.
	if info != nil && info.Overload != nil {
		return f.lowerOverloadCall(e, info, e.Callee, e.Args)
	}

	// Direct call to a resolved function/method instance.
	if info != nil && info.Callee != nil {
		callee := info.Callee
		slot := 0
		isStatic := callee.Decl != nil && callee.Decl.Static
		f.emit(OpFnAlloc, e.Span.Start)
		if callee.IsMethod && !isStatic && e.Callee.Kind == ast.ExprMember {
			recv := f.visit(e.Callee.Target)
			f.emit(Op("fn_set_reg_u64"), e.Span.Start, 0, recv)
			slot = 1
		}
		for i, a := range e.Args {
			reg := f.visit(a)
			f.emit(suffixed(OpFnSetReg, f.argType(callee.ParamTypes, i, a)), a.Span.Start, slot+i, reg)
		}
		dst := f.freshReg()
		if callee.IsCoroutine {
			f.emit(OpCoroutineAlloc, e.Span.Start, dst, callee.UID)
			return dst
		}
		f.emit(OpCall, e.Span.Start, dst, callee.UID)
		return dst
	}

	// `V.A(args)` builds the constructor's tagged struct directly; the
	// argument/field handling is identical to a variant-construct node.
	if _, ok := f.exprType(e).To(types.KindVariantConstructor); ok && e.Callee.Kind == ast.ExprMember {
		return f.lowerVariantConstruct(e)
	}

	calleeType := f.exprType(e.Callee)

	// FFI call: stack-style push discipline (spec §4.5 "FFI calls").
	if ffi, ok := calleeType.To(types.KindFFIMethod); ok {
		for _, a := range e.Args {
			reg := f.visit(a)
			f.emit(suffixed(OpPush, f.exprType(a)), a.Span.Start, reg)
		}
		dst := f.freshReg()
		f.emit(OpCallFFI, e.Span.Start, dst, f.low.ffiID(ffi.Name), len(e.Args))
		if r, isBasic := ffi.Result.To(types.KindBasic); !isBasic || r.Basic != types.BasicVoid {
			f.emit(suffixed(OpPop, ffi.Result), e.Span.Start, dst)
		}
		return dst
	}

	// Interface-dispatched method call: load the method pointer from the
	// receiver's table at the interface's method order index.
	if e.Callee.Kind == ast.ExprMember {
		recvType := f.exprType(e.Callee.Target)
		if iface, ok := recvType.To(types.KindInterface); ok {
			return f.lowerInterfaceCall(e, iface)
		}
	}

	// Indirect call through a function-typed value. Function values are
	// closure objects uniformly (a bare function reference is a
	// zero-capture closure), so dispatch goes through closure_call.
	calleeReg := f.visit(e.Callee)
	fn, _ := calleeType.To(types.KindFunction)
	f.emit(OpFnAlloc, e.Span.Start)
	for i, a := range e.Args {
		reg := f.visit(a)
		var pt *types.Type
		if fn != nil && i < len(fn.Params) {
			pt = fn.Params[i]
		}
		f.emit(suffixed(OpFnSetReg, pickType(pt, f.exprType(a))), a.Span.Start, i, reg)
	}
	dst := f.freshReg()
	f.emit(OpClosureCall, e.Span.Start, dst, calleeReg)
	return dst
}

func (f *fnLowerer) lowerInterfaceCall(e *ast.Expr, iface *types.Type) Reg {
	recv := f.visit(e.Callee.Target)
	idx := -1
	for i, m := range iface.IMethods {
		if m.Name == e.Callee.Field {
			idx = i
			break
		}
	}
	mreg := f.freshReg()
	f.emit(OpClassLoadM, e.Span.Start, mreg, recv, idx)
	f.emit(OpFnAlloc, e.Span.Start)
	f.emit(Op("fn_set_reg_u64"), e.Span.Start, 0, recv)
	for i, a := range e.Args {
		reg := f.visit(a)
		f.emit(suffixed(OpFnSetReg, f.exprType(a)), a.Span.Start, i+1, reg)
	}
	dst := f.freshReg()
	f.emit(OpCallPtr, e.Span.Start, dst, mreg)
	return dst
}

func (f *fnLowerer) argType(declared []*types.Type, i int, a *ast.Expr) *types.Type {
	if i < len(declared) && declared[i] != nil {
		return declared[i]
	}
	return f.exprType(a)
}

func pickType(preferred, fallback *types.Type) *types.Type {
	if preferred != nil {
		return preferred
	}
	return fallback
}

// lowerNew constructs a class instance (spec §4.5 "Class"): allocate,
// register field offsets, populate the method table by context-uuid
// tokens, then invoke the constructor through the table.
func (f *fnLowerer) lowerNew(e *ast.Expr) Reg {
	t := f.exprType(e)
	cls, ok := t.To(types.KindClass)
	if !ok {
		return f.freshReg()
	}
	offsets, dataSize := fieldOffsets(cls.Fields)

	dst := f.freshReg()
	f.emit(OpClassAlloc, e.Span.Start, dst, len(cls.Methods), dataSize, f.low.classID(cls))
	for i := range cls.Fields {
		f.emit(OpClassRegF, e.Span.Start, dst, i, offsets[i])
	}
	initIdx := -1
	for _, m := range cls.Methods {
		f.emit(OpClassStoreM, e.Span.Start, dst, m.IndexInClass, fmt.Sprintf("%d", m.Context.UUID))
		if m.Name == "init" {
			initIdx = m.IndexInClass
		}
	}
	for i, fld := range cls.Fields {
		if len(e.FieldInits) == 0 {
			break
		}
		for _, fi := range e.FieldInits {
			if fi.Name == fld.Name {
				v := f.visit(fi.Value)
				f.emit(suffixed(OpClassStoreF, fld.Type), e.Span.Start, dst, i, offsets[i], v)
			}
		}
	}
	if initIdx >= 0 {
		mreg := f.freshReg()
		f.emit(OpClassLoadM, e.Span.Start, mreg, dst, initIdx)
		f.emit(OpFnAlloc, e.Span.Start)
		f.emit(Op("fn_set_reg_u64"), e.Span.Start, 0, dst)
		for i, a := range e.Args {
			reg := f.visit(a)
			f.emit(suffixed(OpFnSetReg, f.exprType(a)), a.Span.Start, i+1, reg)
		}
		res := f.freshReg()
		f.emit(OpCallPtr, e.Span.Start, res, mreg)
	}
	return dst
}
