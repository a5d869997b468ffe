// Package types implements the Type-C type system: canonical type
// representation, structural/nominal matching, assignability, castability,
// generic substitution, and constraint checking (spec §4.3).
package types

import "github.com/typec-lang/tcc/pkg/scope"

// Kind is the variant tag of a Type. As with scope.Symbol, Go has no sum
// types: one struct carries every variant's fields and Kind says which ones
// are meaningful, instead of an interface hierarchy with virtual dispatch.
type Kind int

const (
	KindBasic Kind = iota
	KindArray
	KindStruct
	KindClass
	KindInterface
	KindImplementation
	KindVariant
	KindVariantConstructor
	KindEnum
	KindFunction
	KindNullable
	KindReference
	KindGenericParam
	KindMeta
	KindFFIMethod
	KindUnion
)

func (k Kind) String() string {
	names := [...]string{
		"basic", "array", "struct", "class", "interface", "implementation",
		"variant", "variant-constructor", "enum", "function", "nullable",
		"reference", "generic-param", "meta", "ffi-method", "union",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// BasicKind enumerates the primitive types (spec §3.1 "Type" basic variant).
type BasicKind int

const (
	BasicI8 BasicKind = iota
	BasicI16
	BasicI32
	BasicI64
	BasicU8
	BasicU16
	BasicU32
	BasicU64
	BasicF32
	BasicF64
	BasicBool
	BasicChar
	BasicVoid
	BasicNull
)

var basicNames = [...]string{"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64", "bool", "char", "void", "null"}

func (b BasicKind) String() string { return basicNames[b] }

// byteSize is used by the stack-layout pass (spec §4.5) to size locals,
// arguments, and struct/class fields.
var byteSize = [...]int{1, 2, 4, 8, 1, 2, 4, 8, 4, 8, 1, 4, 0, 0}

func (b BasicKind) ByteSize() int { return byteSize[b] }

func (b BasicKind) IsInteger() bool { return b <= BasicU64 }
func (b BasicKind) IsUnsigned() bool {
	return b >= BasicU8 && b <= BasicU64
}
func (b BasicKind) IsFloat() bool { return b == BasicF32 || b == BasicF64 }

// Field is one named, ordered member of a struct, class, or implementation,
// or one parameter of a variant constructor / function / FFI signature.
type Field struct {
	Name   string
	Type   *Type
	Offset int // byte offset within the owning aggregate; filled by layout
}

// GenericParam is a type parameter together with its constraint, which must
// reduce to KindUnion (an interface/class union) or be nil (unconstrained).
type GenericParam struct {
	Name       string
	Constraint *Type
}

// EnumMember is one integer-backed case of an enum.
type EnumMember struct {
	Name  string
	Value int64
}

// VariantConstructor is one named case of a variant (tagged union), e.g.
// `A(x: i32)` in `type V = A(x: i32) | B`.
type VariantConstructor struct {
	Name   string
	Params []Field
	Tag    uint16
}

// ClassMethod is a method on a class. IndexInClass is assigned once, before
// IR lowering, and stable thereafter (spec invariant 4); it is the method
// table slot `c_store_m`/`c_load_m` addresses.
type ClassMethod struct {
	Name         string
	Params       []Field
	Result       *Type
	Generics     []*GenericParam
	Static       bool
	IndexInClass int
	Decl         any // *ast.FunctionDecl-ish body, kept opaque to avoid an ast->types->ast cycle
	Context      *scope.Context
}

// InterfaceMethod is one required signature in an interface's method set.
// A ClassMethod implementing it must match Name/Params/Result/Generics/
// Static exactly (spec invariant 4).
type InterfaceMethod struct {
	Name     string
	Params   []Field
	Result   *Type
	Generics []*GenericParam
	Static   bool
}

// ImplMethod is a method body supplied by an `impl` block.
type ImplMethod struct {
	Name    string
	Params  []Field
	Result  *Type
	Decl    any
	Context *scope.Context
}

// Type is the single tagged-union representation for every type variant in
// spec §3.1. Every type carries a DeclContext so a ReferenceType's name can
// be resolved lazily without mutating its Name/Path (invariant 3).
type Type struct {
	Kind        Kind
	DeclContext *scope.Context

	// Basic
	Basic BasicKind

	// Array / Nullable / Reference(resolved target is stored in Resolved,
	// not Inner) / Meta(MetaOf) all reuse Inner as "the one wrapped type".
	Inner *Type

	// Struct / Class / Implementation / VariantConstructor / Function / FFI
	Fields []Field // struct fields, class/impl attributes, ctor/fn params

	// Class / Interface / Implementation / Variant / Enum nominal identity
	Name     string
	Generics []*GenericParam

	// Class
	Methods          []*ClassMethod
	Implements       []*Type // resolved interfaces this class claims
	StaticInit       any
	ConcreteGenerics map[string]*Type // monomorphization cache, shared by all clones of the generic origin

	// Interface
	IMethods []*InterfaceMethod

	// Implementation
	Target   *Type // the type being extended
	Contract *Type // optional interface this impl satisfies
	ImplMethods []*ImplMethod

	// Variant
	Constructors []*VariantConstructor

	// VariantConstructor
	ParentVariant *Type
	CtorName      string
	Tag           uint16

	// Enum
	EnumBacking BasicKind
	EnumMembers []EnumMember
	EnumAsKind  *Type

	// Function / FFIMethod
	Params []*Type
	Result *Type

	// Reference
	RefPath  []string
	RefName  string
	Resolved *Type
	TypeArgs []*Type // explicit generic arguments applied at the reference site, e.g. List<i32>

	// GenericParam
	ParamName  string
	Constraint *Type

	// Union (constraint lists only)
	Options []*Type
}

// Basic constructors for the primitive singletons; each call returns a
// fresh value since Type carries no shared mutable identity at this kind.
func NewBasic(b BasicKind) *Type { return &Type{Kind: KindBasic, Basic: b} }

func NewArray(elem *Type) *Type { return &Type{Kind: KindArray, Inner: elem} }

func NewNullable(underlying *Type) *Type { return &Type{Kind: KindNullable, Inner: underlying} }

func NewReference(ctx *scope.Context, path []string, name string) *Type {
	return &Type{Kind: KindReference, DeclContext: ctx, RefPath: path, RefName: name}
}

func NewFunction(params []*Type, result *Type) *Type {
	return &Type{Kind: KindFunction, Params: params, Result: result}
}

func NewGenericParamType(name string, constraint *Type) *Type {
	return &Type{Kind: KindGenericParam, ParamName: name, Constraint: constraint}
}

func NewUnion(options []*Type) *Type { return &Type{Kind: KindUnion, Options: options} }

func NewMeta(of *Type) *Type { return &Type{Kind: KindMeta, Inner: of} }
