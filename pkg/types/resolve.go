package types

import (
	"fmt"
	"strings"

	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
)

// Resolve late-binds a ReferenceType to its declared Type, recursing into
// every sub-type reachable from t. It is idempotent (re-running it on an
// already-resolved reference is a no-op) and never mutates t.RefName/RefPath
// — only the cached Resolved pointer (spec invariant 3, §4.3 "resolve").
func (t *Type) Resolve(sink *source.Sink, loc source.Location) *Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case KindReference:
		return t.resolveReference(sink, loc)
	case KindArray, KindNullable, KindMeta:
		t.Inner = t.Inner.Resolve(sink, loc)
		return t
	case KindFunction, KindFFIMethod:
		for i, p := range t.Params {
			t.Params[i] = p.Resolve(sink, loc)
		}
		t.Result = t.Result.Resolve(sink, loc)
		return t
	case KindStruct:
		for i := range t.Fields {
			t.Fields[i].Type = t.Fields[i].Type.Resolve(sink, loc)
		}
		return t
	case KindUnion:
		for i, o := range t.Options {
			t.Options[i] = o.Resolve(sink, loc)
		}
		return t
	default:
		// Class/Interface/Implementation/Variant/Enum/GenericParam/
		// VariantConstructor are resolved once, at declaration time, by the
		// resolver that builds them (pkg/infer); as Type values they are
		// already canonical and resolving them again is a no-op.
		return t
	}
}

func (t *Type) resolveReference(sink *source.Sink, loc source.Location) *Type {
	if t.Resolved != nil {
		return t.Resolved
	}

	ctx := t.DeclContext
	name := t.RefName
	if len(t.RefPath) > 0 {
		// Namespace-qualified reference: walk each path segment as a
		// namespace symbol before the final name lookup (mirrors the
		// import resolver's sub-import traversal, spec §4.2).
		cur := ctx
		for _, seg := range t.RefPath {
			sym := cur.Lookup(seg)
			if sym == nil || sym.Kind != scope.KindNamespace {
				sink.Error(source.NewError(source.KindSymbol, loc, fmt.Sprintf("undefined namespace %q in type reference %s", seg, strings.Join(append(t.RefPath, name), "."))))
				t.Resolved = errorType
				return t.Resolved
			}
			nsCtx, ok := sym.Decl.(*scope.Context)
			if !ok {
				sink.Error(source.NewError(source.KindSymbol, loc, fmt.Sprintf("%q is not a navigable namespace", seg)))
				t.Resolved = errorType
				return t.Resolved
			}
			cur = nsCtx
		}
		ctx = cur
	}

	sym := ctx.Lookup(name)
	if sym == nil {
		sink.Error(source.NewError(source.KindType, loc, fmt.Sprintf("undefined type %q", name)))
		t.Resolved = errorType
		return t.Resolved
	}
	if sym.Kind != scope.KindType {
		sink.Error(source.NewError(source.KindType, loc, fmt.Sprintf("%q is not a type", name)))
		t.Resolved = errorType
		return t.Resolved
	}
	target, ok := sym.Decl.(*Type)
	if !ok || target == nil {
		sink.Error(source.NewError(source.KindCodegen, loc, fmt.Sprintf("type symbol %q has no backing Type (codegen bug)", name)))
		t.Resolved = errorType
		return t.Resolved
	}

	if len(t.TypeArgs) == 0 {
		t.Resolved = target
		return target
	}

	if len(t.TypeArgs) != len(target.Generics) {
		sink.Error(source.NewError(source.KindType, loc, fmt.Sprintf("%q takes %d type argument(s), got %d", name, len(target.Generics), len(t.TypeArgs))))
		t.Resolved = errorType
		return t.Resolved
	}
	subst := make(map[string]*Type, len(t.TypeArgs))
	for i, arg := range t.TypeArgs {
		arg = arg.Resolve(sink, loc)
		param := target.Generics[i]
		if param.Constraint != nil && !SatisfiesConstraint(sink, loc, arg, param.Constraint) {
			sink.Error(source.NewError(source.KindType, loc, fmt.Sprintf("type argument %s does not satisfy constraint on %s", arg.Signature(), param.Name)))
		}
		subst[param.Name] = arg
	}
	concrete := target.Instantiate(subst)
	t.Resolved = concrete
	return concrete
}

// errorType is a sentinel returned when resolution fails, so downstream
// passes can keep walking without a nil-pointer panic. It is a void basic
// type, so Is/To treat it as KindBasic; CanAssign and CanCast always fail
// against it (see IsError).
var errorType = &Type{Kind: KindBasic, Basic: BasicVoid, Name: "<error>"}

// IsError reports whether t is the resolution-failure sentinel.
func (t *Type) IsError() bool { return t == errorType }
