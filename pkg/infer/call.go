package infer

import (
	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

// inferCall infers a call expression (spec §4.4 "Call"). A bare identifier
// or `target.method` callee naming a declared function/class method is
// dispatched through callFunctionDecl, which builds (and, for generics,
// monomorphizes) the concrete FuncInstance; every other callee shape
// (interface method, stored lambda, function-typed field/parameter) falls
// back to treating the callee's own inferred type as a function type.
func (e *Engine) inferCall(ctx *scope.Context, expr *ast.Expr, hint *types.Type, instance string) *types.Type {
	callee := expr.Callee

	if callee.Kind == ast.ExprIdentifier && callee.Name != "this" {
		if sym, _ := ctx.LookupScope(callee.Name); sym != nil && sym.Kind == scope.KindFunction {
			if d, ok := sym.Decl.(*ast.Decl); ok {
				return e.callFunctionDecl(ctx, expr, d, d.Context, nil, false, instance)
			}
		}
	}

	if callee.Kind == ast.ExprMember {
		target := callee.Target
		if target.Kind == ast.ExprIdentifier {
			if sym := ctx.Lookup(target.Name); sym != nil && sym.Kind == scope.KindType {
				if t, ok := sym.Decl.(*types.Type); ok {
					if vct := e.variantCtorCall(ctx, expr, t, callee.Field, instance); vct != nil {
						return vct
					}
					if cm := findMethodByName(t, callee.Field, true); cm != nil {
						if md, ok := cm.Decl.(*ast.Decl); ok {
							return e.callFunctionDecl(ctx, expr, md, cm.Context, t, true, instance)
						}
					}
				}
			}
		}
		targetType := e.InferExpr(ctx, target, nil, instance)
		r := targetType.Reduce()
		if r.Kind == types.KindClass {
			if cm := findMethodByName(r, callee.Field, false); cm != nil {
				if md, ok := cm.Decl.(*ast.Decl); ok {
					return e.callFunctionDecl(ctx, expr, md, cm.Context, r, true, instance)
				}
			}
		}
		return e.callFunctionValue(ctx, expr, e.instanceMemberType(callee, targetType), instance)
	}

	calleeType := e.InferExpr(ctx, callee, nil, instance)
	return e.callFunctionValue(ctx, expr, calleeType, instance)
}

// variantCtorCall handles `V.A(args)` where V names a variant type and A
// one of its constructors, yielding the constructor's tagged value type.
// Returns nil when t is not a variant or the field is not a constructor,
// letting the caller fall through to method-call resolution.
func (e *Engine) variantCtorCall(ctx *scope.Context, expr *ast.Expr, t *types.Type, ctorName string, instance string) *types.Type {
	v, ok := t.To(types.KindVariant)
	if !ok {
		return nil
	}
	for _, c := range v.Constructors {
		if c.Name != ctorName {
			continue
		}
		for i, a := range expr.Args {
			var h *types.Type
			if i < len(c.Params) {
				h = c.Params[i].Type
			}
			e.InferExpr(ctx, a, h, instance)
		}
		if len(expr.Args) != len(c.Params) {
			e.Sink.Error(source.NewError(source.KindType, expr.Span.Start, "wrong number of arguments for constructor "+ctorName))
		}
		return &types.Type{Kind: types.KindVariantConstructor, ParentVariant: v, CtorName: c.Name, Tag: c.Tag, Fields: c.Params}
	}
	return nil
}

func findMethodByName(t *types.Type, name string, static bool) *types.ClassMethod {
	for _, m := range t.Methods {
		if m.Name == name && m.Static == static {
			return m
		}
	}
	return nil
}

// callFunctionDecl infers the call's arguments against d's (possibly
// monomorphized) parameter types and returns its result type.
func (e *Engine) callFunctionDecl(ctx *scope.Context, expr *ast.Expr, d *ast.Decl, declCtx *scope.Context, ownerType *types.Type, isMethod bool, instance string) *types.Type {
	if len(d.Generics) == 0 {
		var inst *FuncInstance
		if isMethod {
			inst = e.inferMethodHeader(d, declCtx, "", nil, ownerType)
		} else {
			inst = e.inferFunctionHeader(d, declCtx, "", ownerType)
		}
		for i, a := range expr.Args {
			var h *types.Type
			if i < len(inst.ParamTypes) {
				h = inst.ParamTypes[i]
			}
			e.InferExpr(ctx, a, h, instance)
		}
		e.Table.Merge(expr.ID, instance, &Info{Callee: inst})
		return inst.ResultType
	}

	var explicit []*types.Type
	if len(expr.TypeArgs) > 0 {
		explicit = make([]*types.Type, len(expr.TypeArgs))
		for i, tr := range expr.TypeArgs {
			explicit[i] = e.ConvertTypeRef(ctx, tr).Resolve(e.Sink, expr.Span.Start)
		}
	}
	argTypes := make([]*types.Type, len(expr.Args))
	for i, a := range expr.Args {
		argTypes[i] = e.InferExpr(ctx, a, nil, instance)
	}
	inst := e.resolveGenericCall(d, declCtx, ownerType, isMethod, explicit, argTypes, expr.Span.Start)
	if inst == nil {
		return voidType()
	}
	e.Table.Merge(expr.ID, instance, &Info{Callee: inst})
	return inst.ResultType
}

func (e *Engine) callFunctionValue(ctx *scope.Context, expr *ast.Expr, calleeType *types.Type, instance string) *types.Type {
	fn, ok := calleeType.To(types.KindFunction)
	if !ok {
		// A class instance used in call position dispatches through its
		// __call__ method (spec §4.4 operator resolution covers call
		// expressions alongside binary/unary/index).
		if res := e.resolveOperatorOverload(ctx, expr, "call", calleeType, nil, instance); res != nil {
			e.Table.Merge(expr.ID, instance, &Info{Overload: res})
			for i, a := range expr.Args {
				var h *types.Type
				if i < len(res.Method.Params) {
					h = res.Method.Params[i].Type
				}
				e.InferExpr(ctx, a, h, instance)
			}
			return res.Method.Result
		}
		e.Sink.Error(source.NewError(source.KindType, expr.Span.Start, "cannot call a value of type "+calleeType.Signature()))
		for _, a := range expr.Args {
			e.InferExpr(ctx, a, nil, instance)
		}
		return voidType()
	}
	for i, a := range expr.Args {
		var h *types.Type
		if i < len(fn.Params) {
			h = fn.Params[i]
		}
		e.InferExpr(ctx, a, h, instance)
	}
	return fn.Result
}
