package ast

import (
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/types"
)

// DeclKind discriminates Decl's variants.
type DeclKind int

const (
	DeclFunction DeclKind = iota
	DeclClass
	DeclInterface
	DeclImplementation
	DeclVariant
	DeclEnum
	DeclFFI
	DeclNamespace
	DeclImport
	DeclTypeAlias
	DeclGlobalVar
)

func (k DeclKind) String() string {
	names := [...]string{
		"function", "class", "interface", "implementation", "variant",
		"enum", "ffi", "namespace", "import", "type-alias", "global-var",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// GenericParamDecl is a generic type parameter as written at a declaration
// site, with its optional constraint.
type GenericParamDecl struct {
	Name       string
	Constraint *TypeRef
}

// InterfaceMethodSig is one required signature in an interface body.
type InterfaceMethodSig struct {
	Span     Span
	Name     string
	Params   []Param
	Result   *TypeRef
	Generics []GenericParamDecl
	Static   bool
}

// FFIMethodSig is one external-function signature in an `ffi` block.
type FFIMethodSig struct {
	Span   Span
	Name   string
	Params []Param
	Result *TypeRef
}

// VariantCtorDecl is one named case of a `type V = A(...) | B` declaration.
type VariantCtorDecl struct {
	Span   Span
	Name   string
	Params []Param
}

// EnumMemberDecl is one `Name [= value]` case of an enum.
type EnumMemberDecl struct {
	Span  Span
	Name  string
	Value *Expr // nil means "auto-increment from the previous member"
}

// ImportDirective mirrors spec §3.1's `{basePath[], actualName, alias,
// subImports[]}` shape exactly.
type ImportDirective struct {
	Span       Span
	BasePath   []string
	ActualName string // "*" means star-import
	Alias      string
	SubImports []string
}

// Decl is the tagged union of every top-level or nested declaration form.
type Decl struct {
	Span Span
	Kind DeclKind
	Name string

	// Function / Class method / Implementation method
	Generics   []GenericParamDecl
	Params     []Param
	ReturnType *TypeRef
	Body       *Block
	Static     bool
	IsFFIBody  bool // true for an `ffi`-declared function stub with no Body
	Context    *scope.Context

	// Type is the nominal types.Type backing this declaration. For
	// Class/Interface/Variant/Enum/TypeAlias the parser allocates a bare
	// skeleton (Kind/Name/Generics only) at declaration time so sibling
	// declarations can reference it by name before it is fully populated;
	// pkg/infer's populate pass fills in Fields/Methods/etc. in place
	// (spec invariant 3: a type's declaration context resolves lazily).
	// For ClassMethod/ImplMethod pkg/infer's populate pass sets it to the
	// method's function type; for a free Function it stays nil.
	Type *types.Type

	// Class
	Attributes  []AttributeDecl
	Methods     []*Decl
	Implements  []*TypeRef
	StaticInit  *Block

	// Interface
	IMethods []InterfaceMethodSig

	// Implementation
	Target   *TypeRef
	Contract *TypeRef

	// Variant
	Constructors []VariantCtorDecl

	// Enum
	Backing    *TypeRef
	EnumMembers []EnumMemberDecl
	AsKind     *TypeRef

	// FFI
	FFIMethods []FFIMethodSig

	// Namespace
	NamespaceBody []*Decl

	// Import
	Import *ImportDirective

	// TypeAlias
	AliasTarget *TypeRef

	// GlobalVar
	TypeAnnotation *TypeRef
	Value          *Expr
	Mutable        bool
}

// AttributeDecl is one class/implementation field with its optional default.
type AttributeDecl struct {
	Span    Span
	Name    string
	Type    *TypeRef
	Default *Expr
}

func NewFunctionDecl(span Span, name string, generics []GenericParamDecl, params []Param, ret *TypeRef, body *Block) *Decl {
	return &Decl{Span: span, Kind: DeclFunction, Name: name, Generics: generics, Params: params, ReturnType: ret, Body: body}
}

func NewClassDecl(span Span, name string, generics []GenericParamDecl, attrs []AttributeDecl, methods []*Decl, implements []*TypeRef, staticInit *Block) *Decl {
	return &Decl{Span: span, Kind: DeclClass, Name: name, Generics: generics, Attributes: attrs, Methods: methods, Implements: implements, StaticInit: staticInit}
}

func NewInterfaceDecl(span Span, name string, generics []GenericParamDecl, methods []InterfaceMethodSig) *Decl {
	return &Decl{Span: span, Kind: DeclInterface, Name: name, Generics: generics, IMethods: methods}
}

func NewImplementationDecl(span Span, target, contract *TypeRef, methods []*Decl) *Decl {
	return &Decl{Span: span, Kind: DeclImplementation, Target: target, Contract: contract, Methods: methods}
}

func NewVariantDecl(span Span, name string, generics []GenericParamDecl, ctors []VariantCtorDecl) *Decl {
	return &Decl{Span: span, Kind: DeclVariant, Name: name, Generics: generics, Constructors: ctors}
}

func NewEnumDecl(span Span, name string, backing *TypeRef, members []EnumMemberDecl, asKind *TypeRef) *Decl {
	return &Decl{Span: span, Kind: DeclEnum, Name: name, Backing: backing, EnumMembers: members, AsKind: asKind}
}

func NewFFIDecl(span Span, name string, methods []FFIMethodSig) *Decl {
	return &Decl{Span: span, Kind: DeclFFI, Name: name, FFIMethods: methods}
}

func NewNamespaceDecl(span Span, name string, body []*Decl) *Decl {
	return &Decl{Span: span, Kind: DeclNamespace, Name: name, NamespaceBody: body}
}

func NewImportDecl(span Span, dir *ImportDirective) *Decl {
	return &Decl{Span: span, Kind: DeclImport, Import: dir}
}

func NewTypeAliasDecl(span Span, name string, generics []GenericParamDecl, target *TypeRef) *Decl {
	return &Decl{Span: span, Kind: DeclTypeAlias, Name: name, Generics: generics, AliasTarget: target}
}

func NewGlobalVarDecl(span Span, name string, typeAnn *TypeRef, value *Expr, mutable bool) *Decl {
	return &Decl{Span: span, Kind: DeclGlobalVar, Name: name, TypeAnnotation: typeAnn, Value: value, Mutable: mutable}
}
