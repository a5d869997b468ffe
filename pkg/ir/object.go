package ir

import (
	"fmt"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/infer"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

func (f *fnLowerer) lowerMember(e *ast.Expr) Reg {
	dst := f.freshReg()
	targetType := f.exprType(e.Target)
	r := targetType.Reduce()

	switch r.Kind {
	case types.KindStruct, types.KindVariantConstructor:
		target := f.visit(e.Target)
		if idx, fld, ok := findField(r.Fields, e.Field); ok {
			f.emit(suffixed(OpStructLoadF, fld.Type), e.Span.Start, dst, target, idx)
		}
		return dst
	case types.KindClass:
		target := f.visit(e.Target)
		if idx, fld, ok := findField(r.Fields, e.Field); ok {
			offsets, _ := fieldOffsets(r.Fields)
			f.emit(suffixed(OpClassLoadF, fld.Type), e.Span.Start, dst, target, idx, offsets[idx])
			return dst
		}
		for _, m := range r.Methods {
			if m.Name == e.Field && !m.Static {
				f.emit(OpClassLoadM, e.Span.Start, dst, target, m.IndexInClass)
				return dst
			}
		}
		return dst
	case types.KindInterface:
		target := f.visit(e.Target)
		for i, m := range r.IMethods {
			if m.Name == e.Field {
				f.emit(OpClassLoadM, e.Span.Start, dst, target, i)
				return dst
			}
		}
		return dst
	case types.KindEnum:
		for _, m := range r.EnumMembers {
			if m.Name == e.Field {
				f.emit(Op("const_"+r.EnumBacking.String()), e.Span.Start, dst, m.Value)
				return dst
			}
		}
		return dst
	case types.KindMeta:
		// Static method reference through a class name.
		if cls, ok := r.Inner.To(types.KindClass); ok {
			for _, m := range cls.Methods {
				if m.Name == e.Field && m.Static {
					f.emit(Op("tmp_u64"), e.Span.Start, dst, string(classFunc), fmt.Sprintf("%d", m.Context.UUID))
					return dst
				}
			}
		}
		return dst
	default:
		// Enum members and static accesses reach here when the member
		// expression's own type was already resolved by inference; fall
		// back to the member expression's type for enum constants.
		t := f.exprType(e)
		if en, ok := t.To(types.KindEnum); ok {
			for _, m := range en.EnumMembers {
				if m.Name == e.Field {
					f.emit(Op("const_"+en.EnumBacking.String()), e.Span.Start, dst, m.Value)
					return dst
				}
			}
		}
		return dst
	}
}

func findField(fields []types.Field, name string) (int, types.Field, bool) {
	for i, fld := range fields {
		if fld.Name == name {
			return i, fld, true
		}
	}
	return -1, types.Field{}, false
}

func (f *fnLowerer) lowerIndex(e *ast.Expr) Reg {
	if info := f.info(e); info != nil && info.Overload != nil {
		return f.lowerOverloadCall(e, info, e.Target, []*ast.Expr{e.Index})
	}
	arr := f.visit(e.Target)
	idx := f.visit(e.Index)
	dst := f.freshReg()
	f.emit(suffixed(OpArrayLoadF, f.exprType(e)), e.Span.Start, dst, idx, arr)
	return dst
}

func (f *fnLowerer) lowerIndexSet(e *ast.Expr) Reg {
	if info := f.info(e); info != nil && info.Overload != nil {
		return f.lowerOverloadCall(e, info, e.Target, []*ast.Expr{e.Index, e.Value})
	}
	arr := f.visit(e.Target)
	idx := f.visit(e.Index)
	val := f.visit(e.Value)
	f.emit(suffixed(OpArrayStoreF, f.exprType(e.Value)), e.Span.Start, arr, idx, val)
	return val
}

func (f *fnLowerer) lowerArrayLiteral(e *ast.Expr) Reg {
	t := f.exprType(e)
	elemType := types.NewBasic(types.BasicVoid)
	if arr, ok := t.To(types.KindArray); ok {
		elemType = arr.Inner
	}
	dst := f.freshReg()
	f.emit(OpArrayAlloc, e.Span.Start, dst, len(e.Elements), sizeOf(elemType))
	for i, el := range e.Elements {
		v := f.visit(el)
		idx := f.freshReg()
		f.emit(Op("const_u64"), el.Span.Start, idx, int64(i))
		f.emit(suffixed(OpArrayStoreF, elemType), el.Span.Start, dst, idx, v)
	}
	return dst
}

func (f *fnLowerer) lowerStructLiteral(e *ast.Expr) Reg {
	t := f.exprType(e)
	st, ok := t.To(types.KindStruct)
	if !ok {
		return f.freshReg()
	}
	offsets, total := fieldOffsets(st.Fields)
	dst := f.freshReg()
	f.emit(OpStructAlloc, e.Span.Start, dst, len(st.Fields), total)
	for i := range st.Fields {
		f.emit(OpStructRegF, e.Span.Start, dst, i, offsets[i])
	}
	for _, fi := range e.FieldInits {
		if idx, fld, found := findField(st.Fields, fi.Name); found {
			v := f.visit(fi.Value)
			f.emit(suffixed(OpStructStoreF, fld.Type), fi.Value.Span.Start, dst, idx, v)
		}
	}
	return dst
}

// lowerVariantConstruct builds a tagged-union value as a struct whose
// field 0 is the u16 constructor tag and whose remaining fields are the
// constructor's parameters in declared order (spec testable scenario S3).
func (f *fnLowerer) lowerVariantConstruct(e *ast.Expr) Reg {
	t := f.exprType(e)
	vc, ok := t.To(types.KindVariantConstructor)
	if !ok {
		return f.freshReg()
	}
	tagField := types.Field{Name: "<tag>", Type: types.NewBasic(types.BasicU16)}
	fields := append([]types.Field{tagField}, vc.Fields...)
	offsets, total := fieldOffsets(fields)

	dst := f.freshReg()
	f.emit(OpStructAlloc, e.Span.Start, dst, len(fields), total)
	for i := range fields {
		f.emit(OpStructRegF, e.Span.Start, dst, i, offsets[i])
	}
	tag := f.freshReg()
	f.emit(Op("const_u16"), e.Span.Start, tag, int64(vc.Tag))
	f.emit(Op("s_storef_u16"), e.Span.Start, dst, 0, tag)

	for i, a := range e.Args {
		v := f.visit(a)
		if i < len(vc.Fields) {
			f.emit(suffixed(OpStructStoreF, vc.Fields[i].Type), a.Span.Start, dst, i+1, v)
		}
	}
	for _, fi := range e.FieldInits {
		if idx, fld, found := findField(vc.Fields, fi.Name); found {
			v := f.visit(fi.Value)
			f.emit(suffixed(OpStructStoreF, fld.Type), fi.Value.Span.Start, dst, idx+1, v)
		}
	}
	return dst
}

// lowerLambda emits the closure-creation site: the lambda's own body was
// lowered as a regular function instance; here only the capture list is
// materialized, pushed in the deterministic order inference recorded it
// (spec §4.5 "Closures", §9 "capture list's insertion order").
func (f *fnLowerer) lowerLambda(e *ast.Expr) Reg {
	inst := f.low.engine.LambdaInstance(e)
	dst := f.freshReg()
	if inst == nil {
		f.low.sink.Error(source.NewError(source.KindCodegen, e.Span.Start, "lambda has no inferred instance"))
		return dst
	}
	f.emit(OpClosureAlloc, e.Span.Start, dst, len(inst.Upvalues), inst.UID)
	for _, up := range inst.Upvalues {
		t, _ := up.Decl.(*types.Type)
		src := f.freshReg()
		f.emit(suffixed(OpTmp, t), e.Span.Start, src, string(classLocal), up.UID)
		f.emit(suffixed(OpClosurePushEnv, t), e.Span.Start, dst, src)
	}
	return dst
}

func (f *fnLowerer) lowerAssign(e *ast.Expr) Reg {
	t := f.exprType(e.Target)

	// Compound assignment `a op= b` rewrites to `a = a op b` (spec §4.5).
	if e.Op != "" && e.Op != "=" {
		opName := binaryOpNames[e.Op[:len(e.Op)-1]]
		cur := f.visit(e.Target)
		rhs := f.visit(e.Value)
		dst := f.freshReg()
		f.emit(suffixed(Op(opName), t), e.Span.Start, dst, cur, rhs)
		f.storeTo(e.Target, dst, t)
		return dst
	}

	val := f.visit(e.Value)
	f.storeTo(e.Target, val, t)
	return val
}

// storeTo writes reg into the location e denotes: a local/global variable,
// a struct/class field, or an array slot (spec §4.5 lowering rules for
// `x = y` and field assignments).
func (f *fnLowerer) storeTo(e *ast.Expr, reg Reg, t *types.Type) {
	switch e.Kind {
	case ast.ExprIdentifier:
		sym, class := f.resolveSymbol(e.Name)
		if sym == nil {
			return
		}
		if class == classGlobal {
			f.emit(suffixed(OpGlobal, t), e.Span.Start, sym.UID, "reg", reg)
			return
		}
		f.emit(suffixed(OpTmp, t), e.Span.Start, sym.UID, "reg", reg)
	case ast.ExprMember:
		targetType := f.exprType(e.Target).Reduce()
		target := f.visit(e.Target)
		if idx, fld, ok := findField(targetType.Fields, e.Field); ok {
			if targetType.Kind == types.KindClass {
				offsets, _ := fieldOffsets(targetType.Fields)
				f.emit(suffixed(OpClassStoreF, fld.Type), e.Span.Start, target, idx, offsets[idx], reg)
			} else {
				f.emit(suffixed(OpStructStoreF, fld.Type), e.Span.Start, target, idx, reg)
			}
		}
	case ast.ExprIndex:
		arr := f.visit(e.Target)
		idx := f.visit(e.Index)
		f.emit(suffixed(OpArrayStoreF, t), e.Span.Start, arr, idx, reg)
	default:
		f.low.sink.Error(source.NewError(source.KindCodegen, e.Span.Start, "cannot assign to this expression"))
	}
}

// lowerIf allocates the result temporary before the condition is generated
// and has each branch write to it (spec §4.5 "If-else expressions").
func (f *fnLowerer) lowerIf(e *ast.Expr) Reg {
	dst := f.freshReg()
	elseL := f.freshLabel("else")
	endL := f.freshLabel("endif")

	f.condJump(e.Cond, elseL)
	thenReg := f.visit(e.Then)
	f.emit(suffixed(Op("move"), f.exprType(e.Then)), e.Span.Start, dst, thenReg)
	f.emit(OpJump, e.Span.Start, endL)
	f.emit(OpLabel, e.Span.Start, elseL)
	if e.Else != nil {
		elseReg := f.visit(e.Else)
		f.emit(suffixed(Op("move"), f.exprType(e.Else)), e.Span.Start, dst, elseReg)
	}
	f.emit(OpLabel, e.Span.Start, endL)
	return dst
}

// condJump jumps to falseLabel when cond evaluates false, fusing a basic
// comparison directly into j_cmp_<type> with the inverted opcode.
func (f *fnLowerer) condJump(cond *ast.Expr, falseLabel string) {
	if cond.Kind == ast.ExprBinary {
		if cmp, ok := cmpByOp[cond.Op]; ok {
			lt := f.exprType(cond.Left)
			if r := lt.Reduce(); r != nil && r.Kind == types.KindBasic {
				if info := f.info(cond); info == nil || info.Overload == nil {
					left := f.visit(cond.Left)
					right := f.visit(cond.Right)
					f.emit(suffixed(OpJumpCmp, lt), cond.Span.Start, left, right, int(invertCmp[cmp]), falseLabel)
					return
				}
			}
		}
	}
	reg := f.visit(cond)
	zero := f.freshReg()
	f.emit(Op("const_u8"), cond.Span.Start, zero, int64(0))
	f.emit(Op("j_cmp_u8"), cond.Span.Start, reg, zero, int(CmpEq), falseLabel)
}

func (f *fnLowerer) lowerYield(e *ast.Expr) Reg {
	var reg Reg
	if e.Value != nil {
		reg = f.visit(e.Value)
		f.emit(OpCoroutineYield, e.Span.Start, reg)
	} else {
		f.emit(OpCoroutineYield, e.Span.Start)
	}
	dst := f.freshReg()
	return orReg(reg, dst)
}

func orReg(a, b Reg) Reg {
	if a != "" {
		return a
	}
	return b
}

func (f *fnLowerer) lowerDo(e *ast.Expr) Reg {
	f.lowerBlock(e.DoBody)
	return f.freshReg()
}

// lowerExplicitCast lowers `expr as T` using the cast plan inference
// validated (spec §4.3 cast families).
func (f *fnLowerer) lowerExplicitCast(e *ast.Expr) Reg {
	src := f.visit(e.Operand)
	info := f.info(e)
	if info == nil || info.Cast == nil {
		return src
	}
	return f.emitCastPlan(e, src, f.exprType(e.Operand), info.InferredType, info.Cast)
}

// applyCast appends the implicit coercion recorded for e's hint (spec §4.4:
// lowering, not inference, inserts the cast).
func (f *fnLowerer) applyCast(e *ast.Expr, src Reg, info *infer.Info) Reg {
	return f.emitCastPlan(e, src, info.InferredType, info.HintType, info.Cast)
}

func (f *fnLowerer) emitCastPlan(e *ast.Expr, src Reg, from, to *types.Type, plan *types.Result) Reg {
	loc := e.Span.Start

	// Structural struct reorder: fresh allocation with the destination's
	// field order, prologue copying source fields through their swap
	// indices (spec §4.3 "field-swap metadata", testable property 8).
	if len(plan.FieldSwap) > 0 {
		toStruct, ok := to.To(types.KindStruct)
		if !ok {
			return src
		}
		offsets, total := fieldOffsets(toStruct.Fields)
		dst := f.freshReg()
		f.emit(OpStructAlloc, loc, dst, len(toStruct.Fields), total)
		for i := range toStruct.Fields {
			f.emit(OpStructRegF, loc, dst, i, offsets[i])
		}
		for i, srcIdx := range plan.FieldSwap {
			fld := toStruct.Fields[i]
			tmp := f.freshReg()
			f.emit(suffixed(OpStructLoadF, fld.Type), loc, tmp, src, srcIdx)
			f.emit(suffixed(OpStructStoreF, fld.Type), loc, dst, i, tmp)
		}
		return dst
	}

	reg := src
	for _, step := range plan.CastSteps {
		switch step.Op {
		case types.CastIdentity:
			continue
		case types.CastSafeIntf:
			reg = f.emitSafeCast(e, reg, to)
		case types.CastTagCheck:
			reg = f.emitTagCheck(e, reg, to)
		default:
			dst := f.freshReg()
			f.emit(Op(string(step.Op)), loc, dst, reg, step.From.String(), step.To.String())
			reg = dst
		}
	}
	return reg
}

// emitSafeCast emits the runtime-checked interface downcast: on failure the
// result is null rather than an abort (spec §4.5 "safe casts additionally
// emit null-check branches and alternative return-null paths").
func (f *fnLowerer) emitSafeCast(e *ast.Expr, src Reg, to *types.Type) Reg {
	loc := e.Span.Start
	dst := f.freshReg()
	fail := f.freshLabel("castfail")
	end := f.freshLabel("castend")

	if cls, ok := to.To(types.KindClass); ok {
		chk := f.freshReg()
		f.emit(OpInterfaceIsClass, loc, chk, src, f.low.classID(cls))
		zero := f.freshReg()
		f.emit(Op("const_u8"), loc, zero, int64(0))
		f.emit(Op("j_cmp_u8"), loc, chk, zero, int(CmpEq), fail)
	} else if iface, ok := to.To(types.KindInterface); ok {
		for i := range iface.IMethods {
			f.emit(OpInterfaceHasM, loc, i, src, fail)
		}
	}
	f.emit(Op("move_u64"), loc, dst, src)
	f.emit(OpJump, loc, end)
	f.emit(OpLabel, loc, fail)
	f.emit(Op("const_null"), loc, dst)
	f.emit(OpLabel, loc, end)
	return dst
}

// emitTagCheck narrows a variant value to one constructor, yielding null
// when the runtime tag does not match (spec §4.3 "Variant -> variant
// constructor": requires a run-time tag check).
func (f *fnLowerer) emitTagCheck(e *ast.Expr, src Reg, to *types.Type) Reg {
	loc := e.Span.Start
	dst := f.freshReg()
	vc, ok := to.To(types.KindVariantConstructor)
	if !ok {
		return src
	}
	fail := f.freshLabel("tagfail")
	end := f.freshLabel("tagend")

	tag := f.freshReg()
	f.emit(Op("s_loadf_u16"), loc, tag, src, 0)
	want := f.freshReg()
	f.emit(Op("const_u16"), loc, want, int64(vc.Tag))
	f.emit(Op("j_cmp_u16"), loc, tag, want, int(CmpNe), fail)
	f.emit(Op("move_u64"), loc, dst, src)
	f.emit(OpJump, loc, end)
	f.emit(OpLabel, loc, fail)
	f.emit(Op("const_null"), loc, dst)
	f.emit(OpLabel, loc, end)
	return dst
}
