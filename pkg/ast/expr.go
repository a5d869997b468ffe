package ast

import "github.com/typec-lang/tcc/pkg/scope"

// ExprKind discriminates Expr's variants. As with scope.Symbol and
// types.Type, one struct carries every variant's fields rather than an
// interface hierarchy with virtual dispatch (spec §9).
type ExprKind int

const (
	ExprIdentifier ExprKind = iota
	ExprLiteral
	ExprBinary
	ExprUnary
	ExprCall
	ExprIndex
	ExprIndexSet
	ExprMember
	ExprNullableMember // not yet implemented; reserved (see source.KindNotYetImpl)
	ExprNew
	ExprArrayLiteral
	ExprStructLiteral
	ExprVariantConstruct
	ExprLambda
	ExprAssign
	ExprIf
	ExprMatch              // not yet implemented; reserved
	ExprYield
	ExprAwait              // not yet implemented; reserved
	ExprSpawn              // not yet implemented; reserved
	ExprCoroutineConstruct // not yet implemented; reserved
	ExprTupleConstruct     // not yet implemented; reserved
	ExprTupleDeconstruct   // not yet implemented; reserved
	ExprDo
	ExprCast
)

func (k ExprKind) String() string {
	names := [...]string{
		"identifier", "literal", "binary", "unary", "call", "index", "index-set",
		"member", "nullable-member", "new", "array-literal", "struct-literal",
		"variant-construct", "lambda", "assign", "if", "match", "yield",
		"await", "spawn", "coroutine-construct", "tuple-construct",
		"tuple-deconstruct", "do", "cast",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// NotYetImplemented reports whether this expression kind is a reserved stub
// (spec §9 "treat them as reserved"): the parser may produce the node, but
// inference and lowering refuse it with a source.KindNotYetImpl diagnostic
// instead of guessing at semantics.
func (k ExprKind) NotYetImplemented() bool {
	switch k {
	case ExprNullableMember, ExprMatch, ExprAwait, ExprSpawn,
		ExprCoroutineConstruct, ExprTupleConstruct, ExprTupleDeconstruct:
		return true
	default:
		return false
	}
}

// LiteralKind is the basic-value tag of an ExprLiteral node.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitString
	LitChar
	LitBool
	LitNull
)

// StructFieldInit is one `name: value` entry of a StructLiteral/New
// initializer, or of a named VariantConstruct call.
type StructFieldInit struct {
	Name  string
	Value *Expr
}

// Param is one function/lambda/method parameter.
type Param struct {
	Span Span
	Name string
	Type *TypeRef
}

// MatchArm is a reserved placeholder for match-expression arms; the match
// construct itself is not yet implemented (ExprMatch.NotYetImplemented).
type MatchArm struct {
	Span    Span
	Pattern *Pattern
	Guard   *Expr
	Body    *Expr
}

// PatternKind discriminates Pattern's variants.
type PatternKind int

const (
	PatternIdentifier PatternKind = iota
	PatternWildcard
)

// Pattern is a variable-binding pattern, as used by `let` destructuring and
// (once implemented) match arms.
type Pattern struct {
	Span Span
	Kind PatternKind
	Name string
}

// Expr is the tagged union of every expression form. Once built by the
// parser it is never mutated; ID is the key pkg/infer uses for its
// inferredType/hintType side table instead of storing them here (spec §9
// "do not mutate the AST after construction").
type Expr struct {
	ID   ExprID
	Span Span
	Kind ExprKind

	// Identifier
	Name string

	// Literal
	LitKind   LiteralKind
	IntValue  int64
	FloatValue float64
	StringValue string
	BoolValue bool

	// Binary / Assign (Op also used as the compound-assign operator, e.g.
	// "+=", which lowering rewrites to `a = a op b` per spec §4.5)
	Op string

	// Binary / Assign / Index / IndexSet / Unary(Operand) / Member(Target)
	// / NullableMember(Target) / Cast(Target) share these generically.
	Left, Right, Target, Index, Value, Operand *Expr

	// Call / New / ArrayLiteral / VariantConstruct(positional) /
	// TupleConstruct / TupleDeconstruct(targets) / Spawn / CoroutineConstruct
	Callee    *Expr
	Args      []*Expr
	Elements  []*Expr

	// Call / New / VariantConstruct explicit generic arguments
	TypeArgs []*TypeRef

	// Member / NullableMember
	Field string

	// New / StructLiteral / VariantConstruct(named) / Cast
	TypeRefNode *TypeRef
	FieldInits  []StructFieldInit

	// VariantConstruct
	CtorName string

	// Lambda
	Params       []Param
	ReturnType   *TypeRef
	Body         *Block
	IsCoroutine  bool
	Context      *scope.Context

	// If
	Cond, Then, Else *Expr

	// Match (reserved)
	Subject *Expr
	Arms    []MatchArm

	// Yield / Await / Spawn
	Operands []*Expr

	// Do
	DoBody *Block
}

func newExpr(gen *IDGen, span Span, kind ExprKind) *Expr {
	return &Expr{ID: gen.Next(), Span: span, Kind: kind}
}

func NewIdentifier(gen *IDGen, span Span, name string) *Expr {
	e := newExpr(gen, span, ExprIdentifier)
	e.Name = name
	return e
}

func NewIntLiteral(gen *IDGen, span Span, v int64) *Expr {
	e := newExpr(gen, span, ExprLiteral)
	e.LitKind, e.IntValue = LitInt, v
	return e
}

func NewFloatLiteral(gen *IDGen, span Span, v float64) *Expr {
	e := newExpr(gen, span, ExprLiteral)
	e.LitKind, e.FloatValue = LitFloat, v
	return e
}

func NewStringLiteral(gen *IDGen, span Span, v string) *Expr {
	e := newExpr(gen, span, ExprLiteral)
	e.LitKind, e.StringValue = LitString, v
	return e
}

func NewBoolLiteral(gen *IDGen, span Span, v bool) *Expr {
	e := newExpr(gen, span, ExprLiteral)
	e.LitKind, e.BoolValue = LitBool, v
	return e
}

func NewNullLiteral(gen *IDGen, span Span) *Expr {
	e := newExpr(gen, span, ExprLiteral)
	e.LitKind = LitNull
	return e
}

func NewBinary(gen *IDGen, span Span, op string, left, right *Expr) *Expr {
	e := newExpr(gen, span, ExprBinary)
	e.Op, e.Left, e.Right = op, left, right
	return e
}

func NewUnary(gen *IDGen, span Span, op string, operand *Expr) *Expr {
	e := newExpr(gen, span, ExprUnary)
	e.Op, e.Operand = op, operand
	return e
}

func NewCall(gen *IDGen, span Span, callee *Expr, args []*Expr, typeArgs []*TypeRef) *Expr {
	e := newExpr(gen, span, ExprCall)
	e.Callee, e.Args, e.TypeArgs = callee, args, typeArgs
	return e
}

func NewIndex(gen *IDGen, span Span, target, index *Expr) *Expr {
	e := newExpr(gen, span, ExprIndex)
	e.Target, e.Index = target, index
	return e
}

func NewIndexSet(gen *IDGen, span Span, target, index, value *Expr) *Expr {
	e := newExpr(gen, span, ExprIndexSet)
	e.Target, e.Index, e.Value = target, index, value
	return e
}

func NewMember(gen *IDGen, span Span, target *Expr, field string) *Expr {
	e := newExpr(gen, span, ExprMember)
	e.Target, e.Field = target, field
	return e
}

func NewNullableMember(gen *IDGen, span Span, target *Expr, field string) *Expr {
	e := newExpr(gen, span, ExprNullableMember)
	e.Target, e.Field = target, field
	return e
}

func NewNew(gen *IDGen, span Span, typeRef *TypeRef, args []*Expr) *Expr {
	e := newExpr(gen, span, ExprNew)
	e.TypeRefNode, e.Args = typeRef, args
	return e
}

func NewArrayLiteral(gen *IDGen, span Span, elements []*Expr) *Expr {
	e := newExpr(gen, span, ExprArrayLiteral)
	e.Elements = elements
	return e
}

func NewStructLiteral(gen *IDGen, span Span, typeRef *TypeRef, fields []StructFieldInit) *Expr {
	e := newExpr(gen, span, ExprStructLiteral)
	e.TypeRefNode, e.FieldInits = typeRef, fields
	return e
}

func NewVariantConstruct(gen *IDGen, span Span, typeRef *TypeRef, ctor string, args []*Expr, named []StructFieldInit) *Expr {
	e := newExpr(gen, span, ExprVariantConstruct)
	e.TypeRefNode, e.CtorName, e.Args, e.FieldInits = typeRef, ctor, args, named
	return e
}

func NewLambda(gen *IDGen, span Span, params []Param, ret *TypeRef, body *Block, isCoroutine bool) *Expr {
	e := newExpr(gen, span, ExprLambda)
	e.Params, e.ReturnType, e.Body, e.IsCoroutine = params, ret, body, isCoroutine
	return e
}

func NewAssign(gen *IDGen, span Span, op string, target, value *Expr) *Expr {
	e := newExpr(gen, span, ExprAssign)
	e.Op, e.Target, e.Value = op, target, value
	return e
}

func NewIf(gen *IDGen, span Span, cond, then, els *Expr) *Expr {
	e := newExpr(gen, span, ExprIf)
	e.Cond, e.Then, e.Else = cond, then, els
	return e
}

func NewMatch(gen *IDGen, span Span, subject *Expr, arms []MatchArm) *Expr {
	e := newExpr(gen, span, ExprMatch)
	e.Subject, e.Arms = subject, arms
	return e
}

func NewYield(gen *IDGen, span Span, value *Expr) *Expr {
	e := newExpr(gen, span, ExprYield)
	e.Value = value
	return e
}

func NewAwait(gen *IDGen, span Span, operand *Expr) *Expr {
	e := newExpr(gen, span, ExprAwait)
	e.Operands = []*Expr{operand}
	return e
}

func NewSpawn(gen *IDGen, span Span, call *Expr) *Expr {
	e := newExpr(gen, span, ExprSpawn)
	e.Operands = []*Expr{call}
	return e
}

func NewCoroutineConstruct(gen *IDGen, span Span, call *Expr) *Expr {
	e := newExpr(gen, span, ExprCoroutineConstruct)
	e.Operands = []*Expr{call}
	return e
}

func NewTupleConstruct(gen *IDGen, span Span, elements []*Expr) *Expr {
	e := newExpr(gen, span, ExprTupleConstruct)
	e.Elements = elements
	return e
}

func NewTupleDeconstruct(gen *IDGen, span Span, targets []*Expr, value *Expr) *Expr {
	e := newExpr(gen, span, ExprTupleDeconstruct)
	e.Elements, e.Value = targets, value
	return e
}

func NewDo(gen *IDGen, span Span, body *Block) *Expr {
	e := newExpr(gen, span, ExprDo)
	e.DoBody = body
	return e
}

func NewCast(gen *IDGen, span Span, operand *Expr, typeRef *TypeRef) *Expr {
	e := newExpr(gen, span, ExprCast)
	e.Operand, e.TypeRefNode = operand, typeRef
	return e
}
