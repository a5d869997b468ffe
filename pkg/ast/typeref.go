package ast

// TypeRefKind discriminates the syntactic shapes a type annotation can take
// in source, before resolution turns it into a types.Type.
type TypeRefKind int

const (
	TypeRefNamed TypeRefKind = iota
	TypeRefArray
	TypeRefNullable
	TypeRefFunction
	TypeRefStruct
	TypeRefUnion
)

// TypeRef is the syntactic type annotation the parser produces (`List<i32>?`,
// `fn(i32) -> bool`, `string`, ...). It is deliberately much thinner than
// types.Type: it has no declaration context and no resolved pointer. A
// later pass (pkg/infer, when it first needs the annotation's meaning)
// builds the corresponding types.Type, which then carries all of that.
type TypeRef struct {
	Span Span
	Kind TypeRefKind

	// Named
	Path     []string
	Name     string
	TypeArgs []*TypeRef

	// Array / Nullable
	Elem *TypeRef

	// Function
	Params []*TypeRef
	Result *TypeRef

	// Struct (anonymous `struct { ... }` annotation)
	Fields []Param
}

func NewNamedTypeRef(span Span, path []string, name string, args []*TypeRef) *TypeRef {
	return &TypeRef{Span: span, Kind: TypeRefNamed, Path: path, Name: name, TypeArgs: args}
}

func NewArrayTypeRef(span Span, elem *TypeRef) *TypeRef {
	return &TypeRef{Span: span, Kind: TypeRefArray, Elem: elem}
}

func NewNullableTypeRef(span Span, elem *TypeRef) *TypeRef {
	return &TypeRef{Span: span, Kind: TypeRefNullable, Elem: elem}
}

func NewFunctionTypeRef(span Span, params []*TypeRef, result *TypeRef) *TypeRef {
	return &TypeRef{Span: span, Kind: TypeRefFunction, Params: params, Result: result}
}

func NewStructTypeRef(span Span, fields []Param) *TypeRef {
	return &TypeRef{Span: span, Kind: TypeRefStruct, Fields: fields}
}

// NewUnionTypeRef builds the `A | B` form a generic constraint takes; the
// options reuse the Params slice.
func NewUnionTypeRef(span Span, options []*TypeRef) *TypeRef {
	return &TypeRef{Span: span, Kind: TypeRefUnion, Params: options}
}
