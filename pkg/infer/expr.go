package infer

import (
	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

func voidType() *types.Type { return types.NewBasic(types.BasicVoid) }

// record stores expr's inference result in e.Table and, when hint differs
// from inferred, the implicit cast lowering must insert (spec §4.4
// "lowering ... will insert a CastExpression when visiting").
func (e *Engine) record(expr *ast.Expr, instance string, inferred, hint *types.Type) *types.Type {
	info := &Info{InferredType: inferred, HintType: hint}
	if hint != nil && inferred != nil && inferred.Signature() != hint.Signature() {
		if b, ok := hint.To(types.KindBasic); !ok || b.Basic != types.BasicVoid {
			res := types.CanCast(e.Sink, expr.Span.Start, inferred, hint)
			if res.Success {
				info.Cast = &res
			}
		}
	}
	e.Table.Merge(expr.ID, instance, info)
	return inferred
}

// InferExpr infers (and records) expr's type under ctx, using hint to drive
// expressions whose shape is otherwise ambiguous (integer/float literal
// width, array/struct-literal element type, lambda return type) — spec
// §4.4 "bidirectional": hints flow down, inferred types flow up.
func (e *Engine) InferExpr(ctx *scope.Context, expr *ast.Expr, hint *types.Type, instance string) *types.Type {
	if expr == nil {
		return nil
	}
	if expr.Kind.NotYetImplemented() {
		e.Sink.Error(source.NewErrorSpan(source.KindNotYetImpl, expr.Span, expr.Kind.String()+" is not yet implemented"))
		return e.record(expr, instance, voidType(), hint)
	}

	switch expr.Kind {
	case ast.ExprLiteral:
		return e.record(expr, instance, e.inferLiteral(expr, hint), hint)
	case ast.ExprIdentifier:
		return e.record(expr, instance, e.inferIdentifier(ctx, expr), hint)
	case ast.ExprBinary:
		return e.record(expr, instance, e.inferBinary(ctx, expr, instance), hint)
	case ast.ExprUnary:
		return e.record(expr, instance, e.inferUnary(ctx, expr, instance), hint)
	case ast.ExprCall:
		return e.record(expr, instance, e.inferCall(ctx, expr, hint, instance), hint)
	case ast.ExprIndex:
		return e.record(expr, instance, e.inferIndex(ctx, expr, instance), hint)
	case ast.ExprIndexSet:
		return e.record(expr, instance, e.inferIndexSet(ctx, expr, instance), hint)
	case ast.ExprMember:
		return e.record(expr, instance, e.inferMember(ctx, expr, instance), hint)
	case ast.ExprNew:
		return e.record(expr, instance, e.inferNew(ctx, expr, instance), hint)
	case ast.ExprArrayLiteral:
		return e.record(expr, instance, e.inferArrayLiteral(ctx, expr, hint, instance), hint)
	case ast.ExprStructLiteral:
		return e.record(expr, instance, e.inferStructLiteral(ctx, expr, instance), hint)
	case ast.ExprVariantConstruct:
		return e.record(expr, instance, e.inferVariantConstruct(ctx, expr, instance), hint)
	case ast.ExprLambda:
		return e.record(expr, instance, e.inferLambda(ctx, expr, hint, instance), hint)
	case ast.ExprAssign:
		return e.record(expr, instance, e.inferAssign(ctx, expr, instance), hint)
	case ast.ExprIf:
		return e.record(expr, instance, e.inferIf(ctx, expr, hint, instance), hint)
	case ast.ExprYield:
		return e.record(expr, instance, e.inferYield(ctx, expr, instance), hint)
	case ast.ExprDo:
		return e.record(expr, instance, e.inferDo(ctx, expr, instance), hint)
	case ast.ExprCast:
		return e.record(expr, instance, e.inferCast(ctx, expr, instance), hint)
	default:
		return e.record(expr, instance, voidType(), hint)
	}
}

func (e *Engine) inferLiteral(expr *ast.Expr, hint *types.Type) *types.Type {
	switch expr.LitKind {
	case ast.LitInt:
		if hint != nil {
			if b, ok := hint.To(types.KindBasic); ok && (b.Basic.IsInteger() || b.Basic.IsFloat()) {
				return types.NewBasic(b.Basic)
			}
		}
		return types.NewBasic(types.BasicI32)
	case ast.LitFloat:
		if hint != nil {
			if b, ok := hint.To(types.KindBasic); ok && b.Basic.IsFloat() {
				return types.NewBasic(b.Basic)
			}
		}
		return types.NewBasic(types.BasicF64)
	case ast.LitString:
		return types.NewArray(types.NewBasic(types.BasicChar))
	case ast.LitChar:
		return types.NewBasic(types.BasicChar)
	case ast.LitBool:
		return types.NewBasic(types.BasicBool)
	case ast.LitNull:
		return types.NewBasic(types.BasicNull)
	default:
		return voidType()
	}
}

// inferIdentifier resolves a name reference, special-casing `this` (spec
// §3.1 "this resolves to the nearest enclosing class/implementation") and
// building a function-typed value lazily for a bare function reference.
func (e *Engine) inferIdentifier(ctx *scope.Context, expr *ast.Expr) *types.Type {
	if expr.Name == "this" {
		if cls := scope.GetActiveClass(ctx); cls != nil {
			return cls.(*types.Type)
		}
		if impl := scope.GetActiveImplementation(ctx); impl != nil {
			return impl.(*types.Type)
		}
		e.Sink.Error(source.NewError(source.KindSemantic, expr.Span.Start, "this used outside a class or implementation"))
		return voidType()
	}

	sym, _ := ctx.LookupScope(expr.Name)
	if sym == nil {
		e.Sink.Error(source.NewError(source.KindSymbol, expr.Span.Start, "undefined identifier "+expr.Name))
		return voidType()
	}
	switch sym.Kind {
	case scope.KindVariable, scope.KindVariablePattern, scope.KindArgument:
		if t, ok := sym.Decl.(*types.Type); ok {
			return t
		}
		return voidType()
	case scope.KindFunction:
		d, ok := sym.Decl.(*ast.Decl)
		if !ok {
			return voidType()
		}
		if len(d.Generics) == 0 {
			inst := e.inferFunctionHeader(d, d.Context, "", nil)
			return types.NewFunction(inst.ParamTypes, inst.ResultType)
		}
		params := make([]*types.Type, len(d.Params))
		for i, p := range d.Params {
			params[i] = e.ConvertTypeRef(d.Context, p.Type)
		}
		return types.NewFunction(params, e.ConvertTypeRef(d.Context, d.ReturnType))
	case scope.KindType:
		if t, ok := sym.Decl.(*types.Type); ok {
			return types.NewMeta(t)
		}
		return voidType()
	default:
		return voidType()
	}
}

func (e *Engine) inferBinary(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	left := e.InferExpr(ctx, expr.Left, nil, instance)
	right := e.InferExpr(ctx, expr.Right, left, instance)

	if res := e.resolveOperatorOverload(ctx, expr, "binary", left, []*types.Type{right}, instance); res != nil {
		e.Table.Merge(expr.ID, instance, &Info{Overload: res})
		return res.Method.Result
	}

	switch expr.Op {
	case "==", "!=", "<", "<=", ">", ">=":
		return types.NewBasic(types.BasicBool)
	case "&&", "||":
		return types.NewBasic(types.BasicBool)
	default:
		lr := left.Reduce()
		if lr != nil && lr.Kind == types.KindBasic {
			return types.NewBasic(lr.Basic)
		}
		return left
	}
}

func (e *Engine) inferUnary(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	operand := e.InferExpr(ctx, expr.Operand, nil, instance)
	if res := e.resolveOperatorOverload(ctx, expr, "unary", operand, nil, instance); res != nil {
		e.Table.Merge(expr.ID, instance, &Info{Overload: res})
		return res.Method.Result
	}
	if expr.Op == "!" {
		return types.NewBasic(types.BasicBool)
	}
	return operand
}

func (e *Engine) inferIndex(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	target := e.InferExpr(ctx, expr.Target, nil, instance)
	e.InferExpr(ctx, expr.Index, types.NewBasic(types.BasicI64), instance)
	if res := e.resolveOperatorOverload(ctx, expr, "index", target, nil, instance); res != nil {
		e.Table.Merge(expr.ID, instance, &Info{Overload: res})
		return res.Method.Result
	}
	if arr, ok := target.To(types.KindArray); ok {
		return arr.Inner
	}
	e.Sink.Error(source.NewError(source.KindType, expr.Span.Start, "cannot index non-array type "+target.Signature()))
	return voidType()
}

func (e *Engine) inferIndexSet(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	target := e.InferExpr(ctx, expr.Target, nil, instance)
	e.InferExpr(ctx, expr.Index, types.NewBasic(types.BasicI64), instance)
	elemHint := voidType()
	if arr, ok := target.To(types.KindArray); ok {
		elemHint = arr.Inner
	}
	e.InferExpr(ctx, expr.Value, elemHint, instance)
	if res := e.resolveOperatorOverload(ctx, expr, "index-set", target, nil, instance); res != nil {
		e.Table.Merge(expr.ID, instance, &Info{Overload: res})
		return res.Method.Result
	}
	return elemHint
}

// inferMember handles both static (namespace/type-qualified) and instance
// member access. A qualified Target (plain identifier naming a namespace or
// type symbol) is resolved directly rather than through a generic recursive
// InferExpr call, since a bare type/namespace name carries no runtime value.
func (e *Engine) inferMember(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	if target := expr.Target; target.Kind == ast.ExprIdentifier && target.Name != "this" {
		if sym := ctx.Lookup(target.Name); sym != nil {
			switch sym.Kind {
			case scope.KindNamespace:
				nsCtx, _ := sym.Decl.(*scope.Context)
				if nsCtx == nil {
					return voidType()
				}
				inner := nsCtx.Lookup(expr.Field)
				if inner == nil {
					e.Sink.Error(source.NewError(source.KindSymbol, expr.Span.Start, "undefined member "+expr.Field))
					return voidType()
				}
				return e.typeOfSymbol(inner)
			case scope.KindType:
				t, _ := sym.Decl.(*types.Type)
				return e.staticMemberType(expr, t)
			case scope.KindFFI:
				return e.ffiMemberType(ctx, expr, sym)
			}
		}
	}

	targetType := e.InferExpr(ctx, expr.Target, nil, instance)
	return e.instanceMemberType(expr, targetType)
}

func (e *Engine) typeOfSymbol(sym *scope.Symbol) *types.Type {
	if t, ok := sym.Decl.(*types.Type); ok {
		return t
	}
	if d, ok := sym.Decl.(*ast.Decl); ok && d.Type != nil {
		return d.Type
	}
	return voidType()
}

// ffiMemberType resolves `lib.fn` where lib is a declared FFI block: the
// result is an FFIMethod-kind type whose Name carries the `lib.fn` token IR
// lowering turns into a call_ffi id (spec §4.5 "FFI calls").
func (e *Engine) ffiMemberType(ctx *scope.Context, expr *ast.Expr, sym *scope.Symbol) *types.Type {
	d, ok := sym.Decl.(*ast.Decl)
	if !ok {
		return voidType()
	}
	for _, m := range d.FFIMethods {
		if m.Name != expr.Field {
			continue
		}
		params := make([]*types.Type, len(m.Params))
		for i, p := range m.Params {
			params[i] = e.ConvertTypeRef(ctx, p.Type).Resolve(e.Sink, p.Span.Start)
		}
		result := e.ConvertTypeRef(ctx, m.Result).Resolve(e.Sink, m.Span.Start)
		return &types.Type{Kind: types.KindFFIMethod, Name: d.Name + "." + m.Name, Params: params, Result: result}
	}
	e.Sink.Error(source.NewError(source.KindSymbol, expr.Span.Start, "undefined ffi method "+expr.Field+" on "+d.Name))
	return voidType()
}

func (e *Engine) staticMemberType(expr *ast.Expr, t *types.Type) *types.Type {
	if t == nil {
		return voidType()
	}
	switch t.Kind {
	case types.KindClass:
		for _, m := range t.Methods {
			if m.Name == expr.Field && m.Static {
				return types.NewFunction(paramTypesOf(m.Params), m.Result)
			}
		}
	case types.KindEnum:
		for _, m := range t.EnumMembers {
			if m.Name == expr.Field {
				return t
			}
		}
	}
	e.Sink.Error(source.NewError(source.KindSymbol, expr.Span.Start, "undefined static member "+expr.Field))
	return voidType()
}

func (e *Engine) instanceMemberType(expr *ast.Expr, t *types.Type) *types.Type {
	if t == nil {
		return voidType()
	}
	r := t.Reduce()
	switch r.Kind {
	case types.KindStruct:
		for _, f := range r.Fields {
			if f.Name == expr.Field {
				return f.Type
			}
		}
	case types.KindClass:
		for _, f := range r.Fields {
			if f.Name == expr.Field {
				return f.Type
			}
		}
		for _, m := range r.Methods {
			if m.Name == expr.Field && !m.Static {
				return types.NewFunction(paramTypesOf(m.Params), m.Result)
			}
		}
	case types.KindInterface:
		for _, m := range r.IMethods {
			if m.Name == expr.Field {
				return types.NewFunction(paramTypesOf(m.Params), m.Result)
			}
		}
	case types.KindVariantConstructor:
		for _, f := range r.Fields {
			if f.Name == expr.Field {
				return f.Type
			}
		}
	}
	e.Sink.Error(source.NewError(source.KindSymbol, expr.Span.Start, "undefined member "+expr.Field+" on "+r.Signature()))
	return voidType()
}

func (e *Engine) inferNew(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	target := e.ConvertTypeRef(ctx, expr.TypeRefNode).Resolve(e.Sink, expr.Span.Start)
	r := target.Reduce()
	for _, a := range expr.Args {
		e.InferExpr(ctx, a, nil, instance)
	}
	for _, fi := range expr.FieldInits {
		hint := fieldHint(r, fi.Name)
		e.InferExpr(ctx, fi.Value, hint, instance)
	}
	return target
}

func fieldHint(t *types.Type, name string) *types.Type {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return nil
}

func (e *Engine) inferArrayLiteral(ctx *scope.Context, expr *ast.Expr, hint *types.Type, instance string) *types.Type {
	var elemHint *types.Type
	if hint != nil {
		if arr, ok := hint.To(types.KindArray); ok {
			elemHint = arr.Inner
		}
	}
	var elemType *types.Type
	for _, el := range expr.Elements {
		t := e.InferExpr(ctx, el, elemHint, instance)
		if elemType == nil {
			elemType = t
		}
	}
	if elemType == nil {
		if elemHint != nil {
			elemType = elemHint
		} else {
			elemType = voidType()
		}
	}
	return types.NewArray(elemType)
}

func (e *Engine) inferStructLiteral(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	if expr.TypeRefNode != nil {
		target := e.ConvertTypeRef(ctx, expr.TypeRefNode).Resolve(e.Sink, expr.Span.Start)
		r := target.Reduce()
		for _, fi := range expr.FieldInits {
			e.InferExpr(ctx, fi.Value, fieldHint(r, fi.Name), instance)
		}
		return target
	}
	fields := make([]types.Field, len(expr.FieldInits))
	for i, fi := range expr.FieldInits {
		fields[i] = types.Field{Name: fi.Name, Type: e.InferExpr(ctx, fi.Value, nil, instance)}
	}
	return &types.Type{Kind: types.KindStruct, Fields: fields}
}

func (e *Engine) inferVariantConstruct(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	variant := e.ConvertTypeRef(ctx, expr.TypeRefNode).Resolve(e.Sink, expr.Span.Start)
	r := variant.Reduce()
	var ctor *types.VariantConstructor
	for _, c := range r.Constructors {
		if c.Name == expr.CtorName {
			ctor = c
			break
		}
	}
	if ctor == nil {
		e.Sink.Error(source.NewError(source.KindType, expr.Span.Start, "unknown constructor "+expr.CtorName+" on variant "+r.Name))
		return voidType()
	}
	for i, a := range expr.Args {
		var h *types.Type
		if i < len(ctor.Params) {
			h = ctor.Params[i].Type
		}
		e.InferExpr(ctx, a, h, instance)
	}
	for _, fi := range expr.FieldInits {
		var h *types.Type
		for _, p := range ctor.Params {
			if p.Name == fi.Name {
				h = p.Type
			}
		}
		e.InferExpr(ctx, fi.Value, h, instance)
	}
	return &types.Type{Kind: types.KindVariantConstructor, ParentVariant: r, CtorName: ctor.Name, Tag: ctor.Tag, Fields: ctor.Params}
}

// inferLambda infers a lambda body under a freshly opened Context (spec §3.1
// OwnerLambda), registering it globally by codegen uid rather than by name
// (scope.Symbol doc: "a lambda is never looked up by name").
func (e *Engine) inferLambda(ctx *scope.Context, expr *ast.Expr, hint *types.Type, instance string) *types.Type {
	// The parser opens expr.Context (OwnerLambda) at construction time, the
	// same as every other function-like scope, so inference never mutates
	// the node (spec §9 "do not mutate the AST after construction").
	lambdaCtx := expr.Context
	var hintResult *types.Type
	if hint != nil {
		if fn, ok := hint.To(types.KindFunction); ok {
			hintResult = fn.Result
		}
	}
	paramTypes := make([]*types.Type, len(expr.Params))
	for i, p := range expr.Params {
		var t *types.Type
		if p.Type != nil {
			t = e.ConvertTypeRef(lambdaCtx, p.Type).Resolve(e.Sink, p.Span.Start)
		} else if hint != nil {
			if fn, ok := hint.To(types.KindFunction); ok && i < len(fn.Params) {
				t = fn.Params[i]
			}
		}
		if t == nil {
			t = voidType()
		}
		paramTypes[i] = t
		if sym, ok := lambdaCtx.Symbols[p.Name]; ok {
			sym.Decl = t
		} else {
			lambdaCtx.AddSymbol(e.Sink, p.Span.Start, p.Name, &scope.Symbol{Kind: scope.KindArgument, Decl: t})
		}
	}
	resultType := hintResult
	if expr.ReturnType != nil {
		resultType = e.ConvertTypeRef(lambdaCtx, expr.ReturnType).Resolve(e.Sink, expr.Span.Start)
	}
	if resultType == nil {
		resultType = voidType()
	}

	inst := &FuncInstance{
		UID: jumpID(lambdaCtx), Name: "<lambda>", Body: expr.Body, Context: lambdaCtx,
		ParamTypes: paramTypes, ResultType: resultType, IsCoroutine: expr.IsCoroutine,
	}
	e.instances = append(e.instances, inst)
	e.lambdaInsts[expr] = inst
	lambdaCtx.RegisterToGlobalContext(&scope.Symbol{Kind: scope.KindFunction, Decl: expr})

	prevFn := e.collectingFn
	e.collectingFn = inst
	e.InferBlock(lambdaCtx, expr.Body, instance)
	e.collectingFn = prevFn
	inst.IsCoroutine = inst.IsCoroutine || len(inst.Yields) > 0
	inst.Upvalues = lambdaCtx.Codegen.Upvalues

	return types.NewFunction(paramTypes, resultType)
}

func (e *Engine) inferAssign(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	targetType := e.InferExpr(ctx, expr.Target, nil, instance)
	e.InferExpr(ctx, expr.Value, targetType, instance)
	return targetType
}

func (e *Engine) inferIf(ctx *scope.Context, expr *ast.Expr, hint *types.Type, instance string) *types.Type {
	e.InferExpr(ctx, expr.Cond, types.NewBasic(types.BasicBool), instance)
	thenType := e.InferExpr(ctx, expr.Then, hint, instance)
	if expr.Else == nil {
		return voidType()
	}
	e.InferExpr(ctx, expr.Else, thenType, instance)
	return thenType
}

func (e *Engine) inferYield(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	if e.collectingFn != nil {
		e.collectingFn.Yields = append(e.collectingFn.Yields, expr)
	}
	if expr.Value != nil {
		return e.InferExpr(ctx, expr.Value, nil, instance)
	}
	return voidType()
}

func (e *Engine) inferDo(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	doCtx := e.childBlockContext(ctx, scope.Owner{Kind: scope.OwnerNone})
	doCtx.Flags.WithinDoExpression = true
	e.InferBlock(doCtx, expr.DoBody, instance)
	return voidType()
}

func (e *Engine) inferCast(ctx *scope.Context, expr *ast.Expr, instance string) *types.Type {
	from := e.InferExpr(ctx, expr.Operand, nil, instance)
	to := e.ConvertTypeRef(ctx, expr.TypeRefNode).Resolve(e.Sink, expr.Span.Start)
	res := types.CanCast(e.Sink, expr.Span.Start, from, to)
	if !res.Success {
		e.Sink.Error(source.NewErrorSpan(source.KindType, expr.Span, res.Message))
	} else {
		e.Table.Merge(expr.ID, instance, &Info{InferredType: to, Cast: &res})
	}
	return to
}
