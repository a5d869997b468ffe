package ir

import (
	"fmt"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/infer"
	"github.com/typec-lang/tcc/pkg/source"
)

// visit lowers one expression to a virtual register holding its value,
// bracketing the emitted run with srcmap_push_loc / srcmap_pop_loc (spec
// §4.5 "Source-location annotations") and appending the implicit cast the
// inference pass recorded when the hint type differs from the inferred one.
func (f *fnLowerer) visit(e *ast.Expr) Reg {
	if e == nil {
		return ""
	}
	loc := e.Span.Start
	f.emit(OpSrcmapPush, loc, loc.File, loc.Line, loc.Column, f.inst.Name)
	reg := f.visitInner(e)
	if info := f.info(e); info != nil && info.Cast != nil && info.HintType != nil {
		reg = f.applyCast(e, reg, info)
	}
	f.emit(OpSrcmapPop, loc)
	return reg
}

func (f *fnLowerer) visitInner(e *ast.Expr) Reg {
	if e.Kind.NotYetImplemented() {
		// Inference already pushed the structured diagnostic; emit nothing.
		return f.freshReg()
	}
	switch e.Kind {
	case ast.ExprLiteral:
		return f.lowerLiteral(e)
	case ast.ExprIdentifier:
		return f.lowerIdentifier(e)
	case ast.ExprBinary:
		return f.lowerBinary(e)
	case ast.ExprUnary:
		return f.lowerUnary(e)
	case ast.ExprCall:
		return f.lowerCall(e)
	case ast.ExprIndex:
		return f.lowerIndex(e)
	case ast.ExprIndexSet:
		return f.lowerIndexSet(e)
	case ast.ExprMember:
		return f.lowerMember(e)
	case ast.ExprNew:
		return f.lowerNew(e)
	case ast.ExprArrayLiteral:
		return f.lowerArrayLiteral(e)
	case ast.ExprStructLiteral:
		return f.lowerStructLiteral(e)
	case ast.ExprVariantConstruct:
		return f.lowerVariantConstruct(e)
	case ast.ExprLambda:
		return f.lowerLambda(e)
	case ast.ExprAssign:
		return f.lowerAssign(e)
	case ast.ExprIf:
		return f.lowerIf(e)
	case ast.ExprYield:
		return f.lowerYield(e)
	case ast.ExprDo:
		return f.lowerDo(e)
	case ast.ExprCast:
		return f.lowerExplicitCast(e)
	default:
		return f.freshReg()
	}
}

func (f *fnLowerer) lowerLiteral(e *ast.Expr) Reg {
	dst := f.freshReg()
	t := f.exprType(e)
	switch e.LitKind {
	case ast.LitInt:
		f.emit(suffixed(OpConst, t), e.Span.Start, dst, e.IntValue)
	case ast.LitFloat:
		f.emit(suffixed(OpConst, t), e.Span.Start, dst, e.FloatValue)
	case ast.LitBool:
		v := int64(0)
		if e.BoolValue {
			v = 1
		}
		f.emit(Op("const_u8"), e.Span.Start, dst, v)
	case ast.LitChar:
		f.emit(Op("const_char"), e.Span.Start, dst, e.IntValue)
	case ast.LitString:
		// Interned into the global constant segment by the encoder (spec §6).
		f.emit(Op("const_str"), e.Span.Start, dst, e.StringValue)
	case ast.LitNull:
		f.emit(Op("const_null"), e.Span.Start, dst)
	}
	return dst
}

func (f *fnLowerer) lowerIdentifier(e *ast.Expr) Reg {
	dst := f.freshReg()
	t := f.exprType(e)
	if e.Name == "this" {
		f.emit(suffixed(OpTmp, t), e.Span.Start, dst, string(classArg), "this")
		return dst
	}
	sym, class := f.resolveSymbol(e.Name)
	if sym == nil {
		// Inference already reported the undefined identifier.
		return dst
	}
	if class == classFunc {
		if d, ok := sym.Decl.(*ast.Decl); ok && d.Context != nil {
			f.emit(Op("tmp_u64"), e.Span.Start, dst, string(classFunc), fmt.Sprintf("%d", d.Context.UUID))
			return dst
		}
	}
	f.emit(suffixed(OpTmp, t), e.Span.Start, dst, string(class), sym.UID)
	return dst
}

var binaryOpNames = map[string]string{
	"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "mod",
	"&": "band", "|": "bor", "^": "bxor", "<<": "shl", ">>": "shr",
}

func (f *fnLowerer) lowerBinary(e *ast.Expr) Reg {
	if info := f.info(e); info != nil && info.Overload != nil {
		return f.lowerOverloadCall(e, info, e.Left, []*ast.Expr{e.Right})
	}

	switch e.Op {
	case "&&", "||":
		return f.lowerShortCircuit(e)
	case "==", "!=", "<", "<=", ">", ">=":
		return f.lowerComparison(e)
	}

	left := f.visit(e.Left)
	right := f.visit(e.Right)
	dst := f.freshReg()
	name, ok := binaryOpNames[e.Op]
	if !ok {
		f.low.sink.Error(source.NewError(source.KindCodegen, e.Span.Start, "unknown binary operator "+e.Op))
		return dst
	}
	f.emit(suffixed(Op(name), f.exprType(e.Left)), e.Span.Start, dst, left, right)
	return dst
}

// lowerComparison materializes a comparison's boolean value with the
// j_cmp family: assume true, jump over the false write when the compare
// holds.
func (f *fnLowerer) lowerComparison(e *ast.Expr) Reg {
	left := f.visit(e.Left)
	right := f.visit(e.Right)
	dst := f.freshReg()
	end := f.freshLabel("cmp")
	f.emit(Op("const_u8"), e.Span.Start, dst, int64(1))
	f.emit(suffixed(OpJumpCmp, f.exprType(e.Left)), e.Span.Start, left, right, int(cmpByOp[e.Op]), end)
	f.emit(Op("const_u8"), e.Span.Start, dst, int64(0))
	f.emit(OpLabel, e.Span.Start, end)
	return dst
}

func (f *fnLowerer) lowerShortCircuit(e *ast.Expr) Reg {
	dst := f.freshReg()
	end := f.freshLabel("sc")
	zero := f.freshReg()
	f.emit(Op("const_u8"), e.Span.Start, zero, int64(0))

	left := f.visit(e.Left)
	f.emit(Op("move_u8"), e.Span.Start, dst, left)
	if e.Op == "&&" {
		// left false: result already false, skip right.
		f.emit(Op("j_cmp_u8"), e.Span.Start, left, zero, int(CmpEq), end)
	} else {
		// left true: result already true, skip right.
		f.emit(Op("j_cmp_u8"), e.Span.Start, left, zero, int(CmpNe), end)
	}
	right := f.visit(e.Right)
	f.emit(Op("move_u8"), e.Span.Start, dst, right)
	f.emit(OpLabel, e.Span.Start, end)
	return dst
}

func (f *fnLowerer) lowerUnary(e *ast.Expr) Reg {
	if info := f.info(e); info != nil && info.Overload != nil {
		return f.lowerOverloadCall(e, info, e.Operand, nil)
	}
	switch e.Op {
	case "++", "--":
		// pre-increment/decrement rewrite to `x = x ± 1` (spec §4.5).
		return f.lowerPreIncDec(e)
	}
	operand := f.visit(e.Operand)
	dst := f.freshReg()
	t := f.exprType(e.Operand)
	switch e.Op {
	case "-":
		f.emit(suffixed(Op("neg"), t), e.Span.Start, dst, operand)
	case "!":
		f.emit(Op("not_u8"), e.Span.Start, dst, operand)
	case "~":
		f.emit(suffixed(Op("bnot"), t), e.Span.Start, dst, operand)
	default:
		f.low.sink.Error(source.NewError(source.KindCodegen, e.Span.Start, "unknown unary operator "+e.Op))
	}
	return dst
}

func (f *fnLowerer) lowerPreIncDec(e *ast.Expr) Reg {
	t := f.exprType(e.Operand)
	cur := f.visit(e.Operand)
	one := f.freshReg()
	f.emit(suffixed(OpConst, t), e.Span.Start, one, int64(1))
	dst := f.freshReg()
	name := "add"
	if e.Op == "--" {
		name = "sub"
	}
	f.emit(suffixed(Op(name), t), e.Span.Start, dst, cur, one)
	f.storeTo(e.Operand, dst, t)
	return dst
}

// lowerOverloadCall rewrites an operator expression into a method call on
// the receiver's class (spec §4.4 "operatorOverloadState ... lowering
// rewrites the expression into a method call").
func (f *fnLowerer) lowerOverloadCall(e *ast.Expr, info *infer.Info, receiver *ast.Expr, args []*ast.Expr) Reg {
	ov := info.Overload
	recv := f.visit(receiver)
	f.emit(OpFnAlloc, e.Span.Start)
	f.emit(Op("fn_set_reg_u64"), e.Span.Start, 0, recv)
	for i, a := range args {
		reg := f.visit(a)
		f.emit(suffixed(OpFnSetReg, f.exprType(a)), a.Span.Start, i+1, reg)
	}
	dst := f.freshReg()
	f.emit(OpCall, e.Span.Start, dst, fmt.Sprintf("%d", ov.Method.Context.UUID))
	return dst
}
