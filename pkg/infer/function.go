package infer

import (
	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

// inferFunctionHeader infers (and memoizes) a non-generic top-level
// function (spec §4.4 "For a non-generic function ... infer the body once
// and memoize"). ownerType is nil for free functions.
func (e *Engine) inferFunctionHeader(d *ast.Decl, ctx *scope.Context, sig string, ownerType *types.Type) *FuncInstance {
	return e.buildInstance(d, ctx, sig, nil, ownerType, false)
}

func (e *Engine) inferMethodHeader(d *ast.Decl, ctx *scope.Context, sig string, fnType *types.Type, ownerType *types.Type) *FuncInstance {
	return e.buildInstance(d, ctx, sig, nil, ownerType, true)
}

// buildInstance is the shared core of header inference for both free
// functions and methods, generic and non-generic (spec §4.4 function-header
// inference + the inference-cache stack-set, invariant 7).
func (e *Engine) buildInstance(d *ast.Decl, ctx *scope.Context, sig string, paramTypes []*types.Type, ownerType *types.Type, isMethod bool) *FuncInstance {
	key := instKey{decl: d, sig: sig}
	if cache, ok := e.genericCache[d]; ok {
		if inst, ok := cache[sig]; ok {
			return inst
		}
	}
	if e.inferring[key] {
		// Self-recursive header request before the header itself finished:
		// the cache entry is written before the body is walked (below), so
		// this path is only reachable while still resolving parameter/
		// result types themselves — fall back to void rather than loop
		// (spec invariant 7, "breaking recursion").
		return &FuncInstance{UID: jumpID(ctx), Name: d.Name, Decl: d, Context: ctx, ResultType: types.NewBasic(types.BasicVoid)}
	}
	e.inferring[key] = true
	defer delete(e.inferring, key)

	if paramTypes == nil {
		paramTypes = make([]*types.Type, len(d.Params))
		for i, p := range d.Params {
			paramTypes[i] = e.ConvertTypeRef(ctx, p.Type).Resolve(e.Sink, p.Span.Start)
			if sym, ok := ctx.Symbols[p.Name]; ok {
				sym.Decl = paramTypes[i]
			} else {
				ctx.AddSymbol(e.Sink, p.Span.Start, p.Name, &scope.Symbol{Kind: scope.KindArgument, Decl: paramTypes[i]})
			}
		}
	}
	resultType := e.ConvertTypeRef(ctx, d.ReturnType).Resolve(e.Sink, d.Span.Start)

	inst := &FuncInstance{
		UID: jumpID(ctx), Name: d.Name, Decl: d, Body: d.Body, Context: ctx,
		ParamTypes: paramTypes, ResultType: resultType,
		IsMethod: isMethod, ThisType: ownerType, Signature: sig,
	}
	if e.genericCache[d] == nil {
		e.genericCache[d] = make(map[string]*FuncInstance)
	}
	e.genericCache[d][sig] = inst
	e.instances = append(e.instances, inst)

	if d.Body != nil {
		prevFn := e.collectingFn
		e.collectingFn = inst
		e.InferBlock(ctx, d.Body, sig)
		e.collectingFn = prevFn
	}
	inst.IsCoroutine = len(inst.Yields) > 0
	if inst.IsCoroutine && len(inst.Returns) > 0 {
		e.Sink.Error(source.NewError(source.KindSemantic, d.Span.Start, "coroutine function cannot have return statements"))
	}
	if ctx.Codegen != nil {
		inst.Upvalues = ctx.Codegen.Upvalues
	}
	return inst
}

// resolveGenericCall is the entry point ExprCall inference uses for a
// callee that names a generic function or method (spec §4.4 "Function-
// header inference" generic paths). explicitArgs is nil when the call
// supplied no type arguments, in which case generics are extracted from
// argTypes via types.GetGenericParametersRecursive.
func (e *Engine) resolveGenericCall(d *ast.Decl, declCtx *scope.Context, ownerType *types.Type, isMethod bool, explicitArgs []*types.Type, argTypes []*types.Type, loc source.Location) *FuncInstance {
	genericNames := make(map[string]bool, len(d.Generics))
	for _, g := range d.Generics {
		genericNames[g.Name] = true
	}
	declared := make([]*types.Type, len(d.Params))
	for i, p := range d.Params {
		declared[i] = e.ConvertTypeRefWithGenerics(declCtx, p.Type, genericNames).Resolve(e.Sink, p.Span.Start)
	}

	subst := make(map[string]*types.Type, len(d.Generics))
	if explicitArgs != nil {
		if len(explicitArgs) != len(d.Generics) {
			e.Sink.Error(source.NewError(source.KindType, loc, "generic arity mismatch"))
			return nil
		}
		for i, g := range d.Generics {
			arg := explicitArgs[i]
			if g.Constraint != nil {
				constraint := e.ConvertTypeRef(declCtx, g.Constraint).Resolve(e.Sink, loc)
				if !types.SatisfiesConstraint(e.Sink, loc, arg, constraint) {
					e.Sink.Error(source.NewError(source.KindType, loc, "type argument does not satisfy constraint on "+g.Name))
				}
			}
			subst[g.Name] = arg
		}
	} else {
		for i, dt := range declared {
			if i < len(argTypes) {
				types.GetGenericParametersRecursive(dt, argTypes[i], subst)
			}
		}
	}

	args := make([]*types.Type, len(d.Generics))
	for i, g := range d.Generics {
		bound, ok := subst[g.Name]
		if !ok {
			e.Sink.Error(source.NewError(source.KindType, loc, "cannot infer type parameter "+g.Name))
			return nil
		}
		args[i] = bound
	}
	sig := signatureOf(args)

	if cache, ok := e.genericCache[d]; ok {
		if inst, ok := cache[sig]; ok {
			return inst
		}
	}

	cloneCtx := d.Context.Clone(d.Context.Parent)
	for _, g := range d.Generics {
		cloneCtx.AddSymbol(e.Sink, loc, g.Name, &scope.Symbol{Kind: scope.KindType, Decl: subst[g.Name]})
	}
	paramTypes := make([]*types.Type, len(d.Params))
	for i, p := range d.Params {
		paramTypes[i] = e.ConvertTypeRef(cloneCtx, p.Type).Resolve(e.Sink, p.Span.Start)
		cloneCtx.AddSymbol(e.Sink, p.Span.Start, p.Name, &scope.Symbol{Kind: scope.KindArgument, Decl: paramTypes[i]})
	}
	return e.buildInstance(d, cloneCtx, sig, paramTypes, ownerType, isMethod)
}
