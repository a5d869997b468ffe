package infer

import (
	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/types"
)

var basicNames = map[string]types.BasicKind{
	"i8": types.BasicI8, "i16": types.BasicI16, "i32": types.BasicI32, "i64": types.BasicI64,
	"u8": types.BasicU8, "u16": types.BasicU16, "u32": types.BasicU32, "u64": types.BasicU64,
	"f32": types.BasicF32, "f64": types.BasicF64,
	"bool": types.BasicBool, "char": types.BasicChar, "void": types.BasicVoid,
}

// ConvertTypeRef turns a syntactic TypeRef into an (unresolved) types.Type,
// under ctx's scope for later Resolve calls. Primitive basic-type names are
// built directly rather than going through symbol lookup, since they are
// not declared symbols; everything else becomes a KindReference that
// Resolve binds lazily (spec §4.3 "resolve").
func (e *Engine) ConvertTypeRef(ctx *scope.Context, tr *ast.TypeRef) *types.Type {
	if tr == nil {
		return types.NewBasic(types.BasicVoid)
	}
	switch tr.Kind {
	case ast.TypeRefArray:
		return types.NewArray(e.ConvertTypeRef(ctx, tr.Elem))
	case ast.TypeRefNullable:
		return types.NewNullable(e.ConvertTypeRef(ctx, tr.Elem))
	case ast.TypeRefFunction:
		params := make([]*types.Type, len(tr.Params))
		for i, p := range tr.Params {
			params[i] = e.ConvertTypeRef(ctx, p)
		}
		return types.NewFunction(params, e.ConvertTypeRef(ctx, tr.Result))
	case ast.TypeRefUnion:
		options := make([]*types.Type, len(tr.Params))
		for i, o := range tr.Params {
			options[i] = e.ConvertTypeRef(ctx, o)
		}
		return types.NewUnion(options)
	case ast.TypeRefStruct:
		fields := make([]types.Field, len(tr.Fields))
		for i, f := range tr.Fields {
			fields[i] = types.Field{Name: f.Name, Type: e.ConvertTypeRef(ctx, f.Type)}
		}
		return &types.Type{Kind: types.KindStruct, DeclContext: ctx, Fields: fields}
	case ast.TypeRefNamed:
		if len(tr.Path) == 0 {
			if b, ok := basicNames[tr.Name]; ok && len(tr.TypeArgs) == 0 {
				return types.NewBasic(b)
			}
		}
		ref := types.NewReference(ctx, tr.Path, tr.Name)
		for _, a := range tr.TypeArgs {
			ref.TypeArgs = append(ref.TypeArgs, e.ConvertTypeRef(ctx, a))
		}
		return ref
	default:
		return types.NewBasic(types.BasicVoid)
	}
}

// ConvertTypeRefWithGenerics is ConvertTypeRef for a generic declaration
// header: a bare name matching one of the declaration's type parameters
// becomes a GenericParam-kind type instead of a late-bound reference, so
// types.GetGenericParametersRecursive can unify it against call-site
// argument types (spec §4.4 "generic parameter extraction").
func (e *Engine) ConvertTypeRefWithGenerics(ctx *scope.Context, tr *ast.TypeRef, genericNames map[string]bool) *types.Type {
	if tr == nil {
		return types.NewBasic(types.BasicVoid)
	}
	switch tr.Kind {
	case ast.TypeRefArray:
		return types.NewArray(e.ConvertTypeRefWithGenerics(ctx, tr.Elem, genericNames))
	case ast.TypeRefNullable:
		return types.NewNullable(e.ConvertTypeRefWithGenerics(ctx, tr.Elem, genericNames))
	case ast.TypeRefFunction:
		params := make([]*types.Type, len(tr.Params))
		for i, p := range tr.Params {
			params[i] = e.ConvertTypeRefWithGenerics(ctx, p, genericNames)
		}
		return types.NewFunction(params, e.ConvertTypeRefWithGenerics(ctx, tr.Result, genericNames))
	case ast.TypeRefNamed:
		if len(tr.Path) == 0 && len(tr.TypeArgs) == 0 && genericNames[tr.Name] {
			return types.NewGenericParamType(tr.Name, nil)
		}
		return e.ConvertTypeRef(ctx, tr)
	default:
		return e.ConvertTypeRef(ctx, tr)
	}
}
