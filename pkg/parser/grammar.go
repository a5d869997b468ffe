// Package parser implements a participle-based parser for Type-C source
// files. It is the external collaborator of spec §6: given (filepath,
// source) it produces an ast.Package with imports, declarations, and
// diagnostics; everything downstream (resolution, inference, lowering)
// consumes the AST and never the grammar types in this file.
package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// typeCLexer tokenizes Type-C. Multi-character operators are listed before
// the single-character fallback so `->` never splits into `-` `>`.
var typeCLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "Char", Pattern: `'(\\.|[^'\\])'`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `->|==|!=|<=|>=|&&|\|\||\+\+|--|\+=|-=|\*=|/=|%=|<<|>>|[-+*/%=<>!?.,:;|&^~(){}\[\]]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// File is the grammar root: imports first, then declarations, matching the
// fixed section order of a Type-C compilation unit.
type File struct {
	Imports []*ImportDecl `parser:"@@*"`
	Decls   []*TopDecl    `parser:"@@*"`
}

type ImportDecl struct {
	Pos   lexer.Position
	From  []string      `parser:"'from' @Ident ('.' @Ident)*"`
	Names []*ImportName `parser:"'import' @@ (',' @@)*"`
}

type ImportName struct {
	Pos   lexer.Position
	Star  bool     `parser:"( @'*'"`
	Path  []string `parser:"| @Ident ('.' @Ident)* )"`
	Alias string   `parser:"('as' @Ident)?"`
}

type TopDecl struct {
	Func      *FuncDecl      `parser:"  @@"`
	Class     *ClassDecl     `parser:"| @@"`
	Interface *InterfaceDecl `parser:"| @@"`
	Impl      *ImplDecl      `parser:"| @@"`
	Enum      *EnumDecl      `parser:"| @@"`
	TypeDecl  *TypeDecl      `parser:"| @@"`
	FFI       *FFIDecl       `parser:"| @@"`
	Namespace *NamespaceDecl `parser:"| @@"`
	Global    *GlobalDecl    `parser:"| @@"`
}

type GenericParam struct {
	Pos        lexer.Position
	Name       string    `parser:"@Ident"`
	Constraint []*GTypeRef `parser:"(':' @@ ('|' @@)*)?"`
}

type ParamDecl struct {
	Pos  lexer.Position
	Name string    `parser:"@Ident ':'"`
	Type *GTypeRef `parser:"@@"`
}

type FuncDecl struct {
	Pos      lexer.Position
	Name     string          `parser:"'fn' @Ident"`
	Generics []*GenericParam `parser:"('<' @@ (',' @@)* '>')?"`
	Params   []*ParamDecl    `parser:"'(' (@@ (',' @@)*)? ')'"`
	Return   *GTypeRef       `parser:"('->' @@)?"`
	ExprBody *GExpr          `parser:"( '=' @@ ';'?"`
	Body     *GBlock         `parser:"| @@ )"`
}

type ClassDecl struct {
	Pos        lexer.Position
	Name       string          `parser:"'class' @Ident"`
	Generics   []*GenericParam `parser:"('<' @@ (',' @@)* '>')?"`
	Implements []*GTypeRef     `parser:"('impl' @@ (',' @@)*)?"`
	Members    []*ClassMember  `parser:"'{' @@* '}'"`
}

type ClassMember struct {
	StaticInit *GBlock     `parser:"  'static' @@"`
	Method     *MethodDecl `parser:"| @@"`
	Attr       *AttrDecl   `parser:"| @@"`
}

type MethodDecl struct {
	Static bool      `parser:"@'static'?"`
	Fn     *FuncDecl `parser:"@@"`
}

type AttrDecl struct {
	Pos     lexer.Position
	Name    string    `parser:"'let' @Ident ':'"`
	Type    *GTypeRef `parser:"@@"`
	Default *GExpr    `parser:"('=' @@)? ';'?"`
}

type InterfaceDecl struct {
	Pos      lexer.Position
	Name     string          `parser:"'interface' @Ident"`
	Generics []*GenericParam `parser:"('<' @@ (',' @@)* '>')?"`
	Methods  []*IfaceMethod  `parser:"'{' @@* '}'"`
}

type IfaceMethod struct {
	Pos      lexer.Position
	Static   bool            `parser:"@'static'?"`
	Name     string          `parser:"'fn' @Ident"`
	Generics []*GenericParam `parser:"('<' @@ (',' @@)* '>')?"`
	Params   []*ParamDecl    `parser:"'(' (@@ (',' @@)*)? ')'"`
	Return   *GTypeRef       `parser:"('->' @@)? ';'?"`
}

type ImplDecl struct {
	Pos      lexer.Position
	Target   *GTypeRef     `parser:"'impl' @@"`
	Contract *GTypeRef     `parser:"(':' @@)?"`
	Methods  []*MethodDecl `parser:"'{' @@* '}'"`
}

type EnumDecl struct {
	Pos     lexer.Position
	Name    string        `parser:"'enum' @Ident"`
	Backing *GTypeRef     `parser:"(':' @@)?"`
	Members []*EnumMember `parser:"'{' @@ (',' @@)* ','? '}'"`
	AsKind  *GTypeRef     `parser:"('as' @@)?"`
}

type EnumMember struct {
	Pos   lexer.Position
	Name  string `parser:"@Ident"`
	Value *int64 `parser:"('=' @Int)?"`
}

// TypeDecl covers the three `type X = ...` shapes: a struct body, a
// variant (two-or-more '|'-separated constructors, or one with a
// parameter list), or a plain alias.
type TypeDecl struct {
	Pos      lexer.Position
	Name     string          `parser:"'type' @Ident"`
	Generics []*GenericParam `parser:"('<' @@ (',' @@)* '>')?"`
	Body     *TypeBody       `parser:"'=' @@ ';'?"`
}

// TypeBody factors its three forms by their leading token so the parser
// never has to backtrack out of a long shared prefix: `struct {...}`,
// a `fn(...)` type alias, or an identifier-led body that the converter
// classifies as variant vs. alias (NamedBody doc below).
type TypeBody struct {
	Struct  *StructBody  `parser:"  @@"`
	FnAlias *FnAliasBody `parser:"| @@"`
	Named   *NamedBody   `parser:"| @@"`
}

// FnAliasBody is a `type F = fn(...) -> T` alias; anchored on the 'fn'
// keyword so identifier-led bodies always reach NamedBody.
type FnAliasBody struct {
	Pos      lexer.Position
	Fn       *FnTypeRef `parser:"@@"`
	Suffixes []string   `parser:"@( '[' ']' | '?' )*"`
}

type StructBody struct {
	Fields []*ParamDecl `parser:"'struct' '{' (@@ (',' @@)* ','?)? '}'"`
}

// NamedBody is every identifier-led `type X = ...` right-hand side: one or
// more '|'-separated arms. A single bare arm is an alias to a named type;
// a single arm with a parameter list is a one-constructor variant; two or
// more arms are a variant. The classification lives in the converter, not
// the grammar, so the arms share one parse.
type NamedBody struct {
	Arms []*NamedArm `parser:"@@ ('|' @@)*"`
}

type NamedArm struct {
	Pos      lexer.Position
	Parts    []string     `parser:"@Ident ('.' @Ident)*"`
	TypeArgs []*GTypeRef  `parser:"('<' @@ (',' @@)* '>')?"`
	Params   []*ParamDecl `parser:"('(' (@@ (',' @@)*)? ')')?"`
	Suffixes []string     `parser:"@( '[' ']' | '?' )*"`
}

type FFIDecl struct {
	Pos     lexer.Position
	Name    string    `parser:"'ffi' @Ident"`
	Lib     string    `parser:"('from' @String)?"`
	Methods []*FFISig `parser:"'{' @@* '}'"`
}

type FFISig struct {
	Pos    lexer.Position
	Name   string       `parser:"'fn' @Ident"`
	Params []*ParamDecl `parser:"'(' (@@ (',' @@)*)? ')'"`
	Return *GTypeRef    `parser:"('->' @@)? ';'?"`
}

type NamespaceDecl struct {
	Pos   lexer.Position
	Name  string     `parser:"'namespace' @Ident"`
	Decls []*TopDecl `parser:"'{' @@* '}'"`
}

type GlobalDecl struct {
	Pos     lexer.Position
	Mutable bool      `parser:"'let' @'mut'?"`
	Name    string    `parser:"@Ident"`
	Type    *GTypeRef `parser:"(':' @@)?"`
	Value   *GExpr    `parser:"'=' @@ ';'?"`
}

// GTypeRef is the syntactic type annotation: a function type or a (possibly
// dotted, possibly generic) named type, followed by any run of `[]` array
// and `?` nullable suffixes, applied left to right.
type GTypeRef struct {
	Pos      lexer.Position
	Fn       *FnTypeRef    `parser:"( @@"`
	Named    *NamedTypeRef `parser:"| @@ )"`
	Suffixes []string      `parser:"@( '[' ']' | '?' )*"`
}

type FnTypeRef struct {
	Params []*GTypeRef `parser:"'fn' '(' (@@ (',' @@)*)? ')'"`
	Result *GTypeRef   `parser:"('->' @@)?"`
}

type NamedTypeRef struct {
	Parts    []string    `parser:"@Ident ('.' @Ident)*"`
	TypeArgs []*GTypeRef `parser:"('<' @@ (',' @@)* '>')?"`
}

// ---- statements ----

type GBlock struct {
	Pos   lexer.Position
	Stmts []*GStmt `parser:"'{' @@* '}'"`
}

type GStmt struct {
	Pos      lexer.Position
	Let      *LetStmt     `parser:"  @@ ';'?"`
	Return   *ReturnStmt  `parser:"| @@ ';'?"`
	While    *WhileStmt   `parser:"| @@"`
	For      *ForStmt     `parser:"| @@"`
	Foreach  *ForeachStmt `parser:"| @@"`
	Break    bool         `parser:"| @'break' ';'?"`
	Continue bool         `parser:"| @'continue' ';'?"`
	Block    *GBlock      `parser:"| @@"`
	Expr     *GExpr       `parser:"| @@ ';'?"`
}

// LetStmt deliberately leaves the terminating ';' to its callers: a
// statement-position let is terminated by GStmt, while a for-loop header
// let is terminated by the for statement's own ';' separators.
type LetStmt struct {
	Pos     lexer.Position
	Mutable bool      `parser:"'let' @'mut'?"`
	Name    string    `parser:"@Ident"`
	Type    *GTypeRef `parser:"(':' @@)?"`
	Value   *GExpr    `parser:"'=' @@"`
}

type ReturnStmt struct {
	Pos   lexer.Position
	Value *GExpr `parser:"'return' @@?"`
}

type WhileStmt struct {
	Pos  lexer.Position
	Cond *GExpr  `parser:"'while' @@"`
	Body *GBlock `parser:"@@"`
}

type ForStmt struct {
	Pos  lexer.Position
	Init *LetStmt `parser:"'for' @@? ';'"`
	Cond *GExpr   `parser:"@@? ';'"`
	Post *GExpr   `parser:"@@?"`
	Body *GBlock  `parser:"@@"`
}

type ForeachStmt struct {
	Pos      lexer.Position
	LoopVar  string  `parser:"'foreach' @Ident 'in'"`
	Iterable *GExpr  `parser:"@@"`
	Body     *GBlock `parser:"@@"`
}

// ---- expressions, precedence-climbing via nested rules ----

type GExpr struct {
	Pos    lexer.Position
	Target *OrExpr `parser:"@@"`
	AssOp  string  `parser:"( @('=' | '+=' | '-=' | '*=' | '/=' | '%=')"`
	Value  *GExpr  `parser:"  @@ )?"`
}

type OrExpr struct {
	Pos   lexer.Position
	Left  *AndExpr `parser:"@@"`
	Rest  []*OrOp  `parser:"@@*"`
}

type OrOp struct {
	Op    string   `parser:"@('||')"`
	Right *AndExpr `parser:"@@"`
}

type AndExpr struct {
	Pos  lexer.Position
	Left *CmpExpr `parser:"@@"`
	Rest []*AndOp `parser:"@@*"`
}

type AndOp struct {
	Op    string   `parser:"@('&&')"`
	Right *CmpExpr `parser:"@@"`
}

type CmpExpr struct {
	Pos  lexer.Position
	Left *AddExpr `parser:"@@"`
	Rest []*CmpOp `parser:"@@*"`
}

type CmpOp struct {
	Op    string   `parser:"@('==' | '!=' | '<=' | '>=' | '<' | '>')"`
	Right *AddExpr `parser:"@@"`
}

type AddExpr struct {
	Pos  lexer.Position
	Left *MulExpr `parser:"@@"`
	Rest []*AddOp `parser:"@@*"`
}

type AddOp struct {
	Op    string   `parser:"@('+' | '-' | '|' | '^')"`
	Right *MulExpr `parser:"@@"`
}

type MulExpr struct {
	Pos  lexer.Position
	Left *UnaryExpr `parser:"@@"`
	Rest []*MulOp   `parser:"@@*"`
}

type MulOp struct {
	Op    string     `parser:"@('*' | '/' | '%' | '&' | '<<' | '>>')"`
	Right *UnaryExpr `parser:"@@"`
}

type UnaryExpr struct {
	Pos     lexer.Position
	Op      string       `parser:"@('-' | '!' | '~' | '++' | '--')?"`
	Operand *PostfixExpr `parser:"@@"`
}

type PostfixExpr struct {
	Pos     lexer.Position
	Primary *PrimaryExpr `parser:"@@"`
	Ops     []*PostfixOp `parser:"@@*"`
}

type PostfixOp struct {
	Call       *CallOp   `parser:"  @@"`
	Index      *GExpr    `parser:"| '[' @@ ']'"`
	NullMember *MemberOp `parser:"| '?' '.' @@"`
	Member     *MemberOp `parser:"| '.' @@"`
	Cast       *GTypeRef `parser:"| 'as' @@"`
}

type CallOp struct {
	TypeArgs []*GTypeRef `parser:"('<' @@ (',' @@)* '>')?"`
	Args     []*GExpr    `parser:"'(' (@@ (',' @@)*)? ')'"`
}

type MemberOp struct {
	Pos  lexer.Position
	Name string `parser:"@Ident"`
}

type PrimaryExpr struct {
	Pos       lexer.Position
	If        *IfExpr     `parser:"  @@"`
	Match     *MatchExpr  `parser:"| @@"`
	Do        *GBlock     `parser:"| 'do' @@"`
	Spawn     *GExpr      `parser:"| 'spawn' @@"`
	Await     *GExpr      `parser:"| 'await' @@"`
	Coroutine *GExpr      `parser:"| 'coroutine' @@"`
	Yield     *YieldExpr  `parser:"| @@"`
	New       *NewExpr    `parser:"| @@"`
	Lambda    *LambdaExpr `parser:"| @@"`
	Array     *ArrayLit   `parser:"| @@"`
	Struct    *StructLit  `parser:"| @@"`
	Float     *float64    `parser:"| @Float"`
	Int       *int64      `parser:"| @Int"`
	Str       *string     `parser:"| @String"`
	Char      *string     `parser:"| @Char"`
	True      bool        `parser:"| @'true'"`
	False     bool        `parser:"| @'false'"`
	Null      bool        `parser:"| @'null'"`
	Paren     *GExpr      `parser:"| '(' @@ ')'"`
	Ident     string      `parser:"| @Ident"`
}

type IfExpr struct {
	Pos  lexer.Position
	Cond *GExpr  `parser:"'if' @@"`
	Then *GBlock `parser:"@@"`
	Else *ElseArm `parser:"('else' @@)?"`
}

type ElseArm struct {
	If    *IfExpr `parser:"  @@"`
	Block *GBlock `parser:"| @@"`
}

type MatchExpr struct {
	Pos     lexer.Position
	Subject *GExpr      `parser:"'match' @@"`
	Arms    []*MatchArm `parser:"'{' @@* '}'"`
}

type MatchArm struct {
	Pos     lexer.Position
	Pattern string `parser:"@(Ident | '_') '->'"`
	Body    *GExpr `parser:"@@ ','?"`
}

type YieldExpr struct {
	Pos   lexer.Position
	Yield bool   `parser:"@'yield'"`
	Value *GExpr `parser:"@@?"`
}

type NewExpr struct {
	Pos    lexer.Position
	Type   *GTypeRef         `parser:"'new' @@"`
	Args   []*GExpr          `parser:"('(' (@@ (',' @@)*)? ')')?"`
	Fields []*FieldInit      `parser:"('{' (@@ (',' @@)*)? ','? '}')?"`
}

type FieldInit struct {
	Pos   lexer.Position
	Name  string `parser:"@Ident ':'"`
	Value *GExpr `parser:"@@"`
}

type LambdaExpr struct {
	Pos      lexer.Position
	Params   []*ParamDecl `parser:"'fn' '(' (@@ (',' @@)*)? ')'"`
	Return   *GTypeRef    `parser:"('->' @@)?"`
	ExprBody *GExpr       `parser:"( '=' @@"`
	Body     *GBlock      `parser:"| @@ )"`
}

type ArrayLit struct {
	Pos      lexer.Position
	Elements []*GExpr `parser:"'[' (@@ (',' @@)*)? ','? ']'"`
}

type StructLit struct {
	Pos    lexer.Position
	Fields []*FieldInit `parser:"'{' @@ (',' @@)* ','? '}'"`
}

// build constructs the participle parser once. The lookahead window bounds
// how deep a failed alternation branch may backtrack; 16 tokens covers the
// worst realistic case (a `<` that reads as generic type arguments for a
// dotted-path type before falling back to a comparison).
var grammar = participle.MustBuild[File](
	participle.Lexer(typeCLexer),
	participle.Elide("Whitespace", "Comment", "BlockComment"),
	participle.UseLookahead(16),
)
