package types

import "strings"

// Signature produces a canonical, order-sensitive string for t, used both
// as a monomorphization cache key (spec invariant 5) and in diagnostic
// messages. Two calls to Signature on structurally identical types that
// were independently resolved must compare equal.
func (t *Type) Signature() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindBasic:
		return t.Basic.String()
	case KindArray:
		return "[]" + t.Inner.Signature()
	case KindNullable:
		return t.Inner.Signature() + "?"
	case KindReference:
		if t.Resolved != nil {
			return t.Resolved.Signature()
		}
		return strings.Join(append(append([]string{}, t.RefPath...), t.RefName), ".")
	case KindGenericParam:
		return "'" + t.ParamName
	case KindFunction, KindFFIMethod:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.Signature()
		}
		return "fn(" + strings.Join(parts, ",") + ")->" + t.Result.Signature()
	case KindStruct:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + ":" + f.Type.Signature()
		}
		return "struct{" + strings.Join(parts, ",") + "}"
	case KindUnion:
		parts := make([]string, len(t.Options))
		for i, o := range t.Options {
			parts[i] = o.Signature()
		}
		return strings.Join(parts, "|")
	case KindClass, KindInterface, KindVariant, KindEnum:
		return t.Name
	case KindVariantConstructor:
		return t.ParentVariant.Signature() + "." + t.CtorName
	case KindMeta:
		return "meta(" + t.Inner.Signature() + ")"
	case KindImplementation:
		return "impl(" + t.Target.Signature() + ")"
	default:
		return t.Kind.String()
	}
}

// argsSignature is the ordered-list signature used as a ConcreteGenerics
// cache key: order-sensitive (List<i32,string> != List<string,i32>) and
// hash-stable across process runs since it derives solely from Signature.
func argsSignature(args []*Type) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Signature()
	}
	return strings.Join(parts, ",")
}
