// Package scope implements the context graph: nested lexical scopes, symbol
// insertion/lookup with shadowing and upvalue detection, and the flat
// global-generation registry the IR lowering stage emits from.
package scope

// Kind is the variant tag of a Symbol (spec §3.1 "Symbol"). Go has no sum
// types, so a Symbol is one struct with a Kind discriminant and a narrow set
// of kind-specific fields, rather than a type hierarchy with virtual
// dispatch — callers switch on Kind and downcast Decl explicitly.
type Kind int

const (
	KindVariable Kind = iota
	KindVariablePattern
	KindArgument
	KindFunction
	KindOverloadSet
	KindClassAttribute
	KindClassMethod
	KindImplAttribute
	KindImplMethod
	KindType
	KindFFI
	KindNamespace
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindVariablePattern:
		return "variable-pattern"
	case KindArgument:
		return "argument"
	case KindFunction:
		return "function"
	case KindOverloadSet:
		return "overload-set"
	case KindClassAttribute:
		return "class-attribute"
	case KindClassMethod:
		return "class-method"
	case KindImplAttribute:
		return "impl-attribute"
	case KindImplMethod:
		return "impl-method"
	case KindType:
		return "type"
	case KindFFI:
		return "ffi"
	case KindNamespace:
		return "namespace"
	default:
		return "unknown"
	}
}

// registrable reports whether a symbol of this kind is eagerly pushed to the
// global registry on insertion (spec §4.1 addSymbol contract), independent
// of whether its context happens to be a root context.
func (k Kind) registrable() bool {
	switch k {
	case KindFunction, KindType:
		return true
	default:
		return false
	}
}

// Symbol is a named entity in a Context: a declared variable, a function, a
// class member, an FFI descriptor, and so on (spec §3.1 "Symbol").
type Symbol struct {
	Kind Kind
	Name string

	// UID is assigned exactly once, at first insertion into a Context, and
	// is the key used in the GlobalRegistry (spec invariant 1).
	UID string

	// Decl is the AST declaration this symbol names (e.g. a function
	// declaration, a class method, an FFI signature). Kept as `any` so this
	// package never imports pkg/ast — callers type-switch on Kind to know
	// what concrete node to expect.
	Decl any

	// Owner is the Context this symbol was first inserted into. nil until
	// AddSymbol/AddExternalSymbol runs.
	Owner *Context

	// External marks a symbol installed as an import alias: it does not own
	// its Decl, it only points at another package's symbol.
	External bool

	// IsLocal marks a symbol that must not be exported via star-import
	// (spec §4.2 "Importing a symbol marked local is fatal").
	IsLocal bool

	// Used is set by lookupScope for KindArgument symbols; an unused
	// argument is a warning, never an error (spec §4.6).
	Used bool
}

// Lambda is not a distinct Kind: a lambda's body owns its own function-like
// Context (OwnerKind = OwnerLambda) exactly like KindFunction, but the
// lambda itself is never looked up by name, so it is registered to the
// global registry directly via RegisterToGlobalContext rather than through
// AddSymbol's name-indexed table.
