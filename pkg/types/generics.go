package types

import "github.com/typec-lang/tcc/pkg/source"

// GetGenericParametersRecursive unifies a declared type (which may mention
// generic parameter names) with an actual, fully concrete type, extracting
// the concrete type bound to each parameter name into out. Used to infer a
// generic function's type arguments from its call-site argument types
// (spec §4.3, §4.4 "generic parameter extraction").
//
// The first binding found for a parameter name wins; later occurrences are
// checked for consistency only implicitly (the caller re-validates via
// assignability once all parameters are bound).
func GetGenericParametersRecursive(declared, actual *Type, out map[string]*Type) {
	if declared == nil || actual == nil {
		return
	}
	switch declared.Kind {
	case KindGenericParam:
		if _, exists := out[declared.ParamName]; !exists {
			out[declared.ParamName] = actual
		}
	case KindArray:
		if a, ok := actual.To(KindArray); ok {
			GetGenericParametersRecursive(declared.Inner, a.Inner, out)
		}
	case KindNullable:
		inner := actual
		if actual.Kind == KindNullable {
			inner = actual.Inner
		}
		GetGenericParametersRecursive(declared.Inner, inner, out)
	case KindFunction, KindFFIMethod:
		if actual.Kind == declared.Kind {
			for i := range declared.Params {
				if i < len(actual.Params) {
					GetGenericParametersRecursive(declared.Params[i], actual.Params[i], out)
				}
			}
			GetGenericParametersRecursive(declared.Result, actual.Result, out)
		}
	case KindStruct:
		if actual.Kind == KindStruct {
			byName := make(map[string]*Type, len(actual.Fields))
			for _, f := range actual.Fields {
				byName[f.Name] = f.Type
			}
			for _, f := range declared.Fields {
				if at, ok := byName[f.Name]; ok {
					GetGenericParametersRecursive(f.Type, at, out)
				}
			}
		}
	case KindClass, KindInterface, KindVariant:
		// A concrete instance shares its origin's identity via Name; walk
		// its fields/params too so nested generics (e.g. a class field of
		// type T) still contribute bindings when the actual is itself a
		// monomorphized instance of the same generic origin.
		if actual.Kind == declared.Kind && actual.Name == declared.Name {
			for i := range declared.Fields {
				if i < len(actual.Fields) {
					GetGenericParametersRecursive(declared.Fields[i].Type, actual.Fields[i].Type, out)
				}
			}
		}
	}
}

// SatisfiesConstraint reports whether candidate meets constraint (a Union
// of interface/class types, or nil for unconstrained). A class candidate
// satisfies an interface option via the same method-set check CanAssign
// uses; a class/interface candidate satisfies a class option only by
// nominal identity.
func SatisfiesConstraint(sink *source.Sink, loc source.Location, candidate, constraint *Type) bool {
	if constraint == nil {
		return true
	}
	options := constraint.Options
	if constraint.Kind != KindUnion {
		options = []*Type{constraint}
	}
	for _, opt := range options {
		if opt.Kind == KindInterface {
			if res := CanAssign(sink, loc, candidate, opt); res.Success {
				return true
			}
			continue
		}
		if candidate == opt || (candidate.Kind == opt.Kind && candidate.Name == opt.Name && candidate.Name != "") {
			return true
		}
	}
	return false
}
