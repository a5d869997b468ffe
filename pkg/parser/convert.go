package parser

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

// Parser is the pkggraph.Parser implementation backed by the participle
// grammar in grammar.go.
type Parser struct{}

func New() *Parser { return &Parser{} }

// Parse parses one file into an ast.Package, opening the package root
// context and a context per function-like scope as it converts (spec §3.3
// "Contexts are created by the parser as it opens scopes").
func (p *Parser) Parse(filePath, src string, arena *scope.Arena, sink *source.Sink) (*ast.Package, error) {
	file, err := grammar.ParseString(filePath, src)
	if err != nil {
		return nil, err
	}
	root := arena.NewContext(nil, scope.Owner{Kind: scope.OwnerPackage})
	pkg := ast.NewPackage(filePath, root, arena.Global, sink)

	c := &converter{file: filePath, arena: arena, sink: sink, pkg: pkg}
	c.convertFile(file)
	return pkg, nil
}

type converter struct {
	file  string
	arena *scope.Arena
	sink  *source.Sink
	pkg   *ast.Package
}

func (c *converter) loc(pos lexer.Position) source.Location {
	return source.Location{File: c.file, Line: pos.Line, Column: pos.Column, ByteOffset: pos.Offset}
}

func (c *converter) span(pos lexer.Position) ast.Span {
	l := c.loc(pos)
	return ast.Span{Start: l, End: l}
}

func (c *converter) convertFile(f *File) {
	for _, imp := range f.Imports {
		for _, name := range imp.Names {
			dir := ast.ImportDirective{Span: c.span(imp.Pos), BasePath: imp.From, Alias: name.Alias}
			if name.Star {
				dir.ActualName = "*"
			} else {
				dir.ActualName = name.Path[len(name.Path)-1]
				dir.SubImports = name.Path[:len(name.Path)-1]
			}
			c.pkg.Imports = append(c.pkg.Imports, dir)
		}
	}
	for _, td := range f.Decls {
		if d := c.convertTopDecl(c.pkg.Root, td); d != nil {
			c.pkg.AddDecl(d)
		}
	}
}

func (c *converter) convertTopDecl(ctx *scope.Context, td *TopDecl) *ast.Decl {
	switch {
	case td.Func != nil:
		return c.convertFunc(ctx, td.Func, scope.OwnerFunction, true)
	case td.Class != nil:
		return c.registerTypeSkeleton(ctx, c.convertClass(ctx, td.Class))
	case td.Interface != nil:
		return c.registerTypeSkeleton(ctx, c.convertInterface(td.Interface))
	case td.Impl != nil:
		return c.convertImpl(ctx, td.Impl)
	case td.Enum != nil:
		return c.registerTypeSkeleton(ctx, c.convertEnum(td.Enum))
	case td.TypeDecl != nil:
		return c.registerTypeSkeleton(ctx, c.convertTypeDecl(td.TypeDecl))
	case td.FFI != nil:
		d := c.convertFFI(td.FFI)
		ctx.AddSymbol(c.sink, d.Span.Start, d.Name, &scope.Symbol{Kind: scope.KindFFI, Decl: d})
		return d
	case td.Namespace != nil:
		return c.convertNamespace(ctx, td.Namespace)
	case td.Global != nil:
		return c.convertGlobal(ctx, td.Global)
	}
	return nil
}

// registerTypeSkeleton allocates the bare nominal Type (kind/name/generics
// only) for a type-introducing declaration and binds its name, at parse
// time, so that a package mid-import-cycle can already hand the name out
// as an external symbol; pkg/infer's populate pass fills the body in place
// later (spec invariant 3: resolution fills cached pointers lazily).
func (c *converter) registerTypeSkeleton(ctx *scope.Context, d *ast.Decl) *ast.Decl {
	var kind types.Kind
	switch d.Kind {
	case ast.DeclClass:
		kind = types.KindClass
	case ast.DeclInterface:
		kind = types.KindInterface
	case ast.DeclVariant:
		kind = types.KindVariant
	case ast.DeclEnum:
		kind = types.KindEnum
	case ast.DeclTypeAlias:
		kind = types.KindReference
	default:
		return d
	}
	var generics []*types.GenericParam
	for _, g := range d.Generics {
		generics = append(generics, &types.GenericParam{Name: g.Name})
	}
	d.Type = &types.Type{Kind: kind, Name: d.Name, DeclContext: ctx, Generics: generics}
	ctx.AddSymbol(c.sink, d.Span.Start, d.Name, &scope.Symbol{Kind: scope.KindType, Decl: d.Type})
	return d
}

// convertFunc builds a function/method declaration with its own
// function-like context. register controls whether the name is inserted
// into ctx (free functions yes, class/impl methods no — those are reached
// through their owner's method table, not by bare-name lookup).
func (c *converter) convertFunc(ctx *scope.Context, fd *FuncDecl, owner scope.OwnerKind, register bool) *ast.Decl {
	span := c.span(fd.Pos)
	d := ast.NewFunctionDecl(span, fd.Name, c.convertGenerics(fd.Generics), c.convertParams(fd.Params), c.convertTypeRefOpt(fd.Return), nil)

	fnCtx := c.arena.NewContext(ctx, scope.Owner{Kind: owner, Node: d})
	d.Context = fnCtx

	if fd.ExprBody != nil {
		// `fn f(...) -> T = expr` sugar: a one-return block.
		value := c.convertExpr(fnCtx, fd.ExprBody)
		ret := ast.NewReturnStmt(span, value)
		d.Body = ast.NewBlock(span, []*ast.Stmt{ret})
	} else {
		d.Body = c.convertBlock(fnCtx, fd.Body)
	}

	if register {
		ctx.AddSymbol(c.sink, span.Start, fd.Name, &scope.Symbol{Kind: scope.KindFunction, Decl: d})
	}
	return d
}

func (c *converter) convertClass(ctx *scope.Context, cd *ClassDecl) *ast.Decl {
	span := c.span(cd.Pos)
	var attrs []ast.AttributeDecl
	var methods []*ast.Decl
	var implements []*ast.TypeRef
	var staticInit *ast.Block

	for _, m := range cd.Members {
		switch {
		case m.StaticInit != nil:
			blockCtx := c.arena.NewContext(ctx, scope.Owner{Kind: scope.OwnerNone})
			staticInit = c.convertBlock(blockCtx, m.StaticInit)
		case m.Method != nil:
			md := c.convertFunc(ctx, m.Method.Fn, scope.OwnerMethod, false)
			md.Static = m.Method.Static
			md.Context.Flags.WithinClass = true
			methods = append(methods, md)
		case m.Attr != nil:
			attrs = append(attrs, ast.AttributeDecl{
				Span:    c.span(m.Attr.Pos),
				Name:    m.Attr.Name,
				Type:    c.convertTypeRef(m.Attr.Type),
				Default: c.convertExprOpt(ctx, m.Attr.Default),
			})
		}
	}
	for _, i := range cd.Implements {
		implements = append(implements, c.convertTypeRef(i))
	}
	return ast.NewClassDecl(span, cd.Name, c.convertGenerics(cd.Generics), attrs, methods, implements, staticInit)
}

func (c *converter) convertInterface(id *InterfaceDecl) *ast.Decl {
	span := c.span(id.Pos)
	var sigs []ast.InterfaceMethodSig
	for _, m := range id.Methods {
		sigs = append(sigs, ast.InterfaceMethodSig{
			Span:     c.span(m.Pos),
			Name:     m.Name,
			Params:   c.convertParams(m.Params),
			Result:   c.convertTypeRefOpt(m.Return),
			Generics: c.convertGenerics(m.Generics),
			Static:   m.Static,
		})
	}
	return ast.NewInterfaceDecl(span, id.Name, c.convertGenerics(id.Generics), sigs)
}

func (c *converter) convertImpl(ctx *scope.Context, id *ImplDecl) *ast.Decl {
	span := c.span(id.Pos)
	var methods []*ast.Decl
	for _, m := range id.Methods {
		md := c.convertFunc(ctx, m.Fn, scope.OwnerMethod, false)
		md.Static = m.Static
		md.Context.Flags.WithinImplementation = true
		methods = append(methods, md)
	}
	d := ast.NewImplementationDecl(span, c.convertTypeRef(id.Target), c.convertTypeRefOpt(id.Contract), methods)
	return d
}

func (c *converter) convertEnum(ed *EnumDecl) *ast.Decl {
	span := c.span(ed.Pos)
	var members []ast.EnumMemberDecl
	for _, m := range ed.Members {
		md := ast.EnumMemberDecl{Span: c.span(m.Pos), Name: m.Name}
		if m.Value != nil {
			md.Value = ast.NewIntLiteral(c.pkg.IDGen, c.span(m.Pos), *m.Value)
		}
		members = append(members, md)
	}
	return ast.NewEnumDecl(span, ed.Name, c.convertTypeRefOpt(ed.Backing), members, c.convertTypeRefOpt(ed.AsKind))
}

func (c *converter) convertTypeDecl(td *TypeDecl) *ast.Decl {
	span := c.span(td.Pos)
	generics := c.convertGenerics(td.Generics)
	body := td.Body
	switch {
	case body.Struct != nil:
		return ast.NewTypeAliasDecl(span, td.Name, generics, ast.NewStructTypeRef(span, c.convertParams(body.Struct.Fields)))
	case body.FnAlias != nil:
		return ast.NewTypeAliasDecl(span, td.Name, generics, c.fnAliasTypeRef(body.FnAlias))
	default:
		arms := body.Named.Arms
		// A single bare arm with no parameter list is an alias to the
		// named type; anything else is a variant declaration.
		if len(arms) == 1 && arms[0].Params == nil {
			return ast.NewTypeAliasDecl(span, td.Name, generics, c.armTypeRef(arms[0]))
		}
		var ctors []ast.VariantCtorDecl
		for _, a := range arms {
			ctors = append(ctors, ast.VariantCtorDecl{
				Span:   c.span(a.Pos),
				Name:   a.Parts[len(a.Parts)-1],
				Params: c.convertParams(a.Params),
			})
		}
		return ast.NewVariantDecl(span, td.Name, generics, ctors)
	}
}

func (c *converter) fnAliasTypeRef(fa *FnAliasBody) *ast.TypeRef {
	span := c.span(fa.Pos)
	params := make([]*ast.TypeRef, len(fa.Fn.Params))
	for i, p := range fa.Fn.Params {
		params[i] = c.convertTypeRef(p)
	}
	out := ast.NewFunctionTypeRef(span, params, c.convertTypeRefOpt(fa.Fn.Result))
	for _, s := range fa.Suffixes {
		if strings.HasPrefix(s, "[") {
			out = ast.NewArrayTypeRef(span, out)
		} else {
			out = ast.NewNullableTypeRef(span, out)
		}
	}
	return out
}

// armTypeRef rebuilds the TypeRef an alias-classified NamedArm spells.
func (c *converter) armTypeRef(a *NamedArm) *ast.TypeRef {
	span := c.span(a.Pos)
	var args []*ast.TypeRef
	for _, ta := range a.TypeArgs {
		args = append(args, c.convertTypeRef(ta))
	}
	out := ast.NewNamedTypeRef(span, a.Parts[:len(a.Parts)-1], a.Parts[len(a.Parts)-1], args)
	for _, s := range a.Suffixes {
		if strings.HasPrefix(s, "[") {
			out = ast.NewArrayTypeRef(span, out)
		} else {
			out = ast.NewNullableTypeRef(span, out)
		}
	}
	return out
}

func (c *converter) convertFFI(fd *FFIDecl) *ast.Decl {
	span := c.span(fd.Pos)
	var sigs []ast.FFIMethodSig
	for _, m := range fd.Methods {
		sigs = append(sigs, ast.FFIMethodSig{
			Span:   c.span(m.Pos),
			Name:   m.Name,
			Params: c.convertParams(m.Params),
			Result: c.convertTypeRefOpt(m.Return),
		})
	}
	return ast.NewFFIDecl(span, fd.Name, sigs)
}

func (c *converter) convertNamespace(ctx *scope.Context, nd *NamespaceDecl) *ast.Decl {
	span := c.span(nd.Pos)
	nsCtx := c.arena.NewContext(ctx, scope.Owner{Kind: scope.OwnerNamespace})
	var body []*ast.Decl
	for _, td := range nd.Decls {
		if d := c.convertTopDecl(nsCtx, td); d != nil {
			body = append(body, d)
		}
	}
	d := ast.NewNamespaceDecl(span, nd.Name, body)
	d.Context = nsCtx
	ctx.AddSymbol(c.sink, span.Start, nd.Name, &scope.Symbol{Kind: scope.KindNamespace, Decl: nsCtx})
	return d
}

func (c *converter) convertGlobal(ctx *scope.Context, gd *GlobalDecl) *ast.Decl {
	span := c.span(gd.Pos)
	d := ast.NewGlobalVarDecl(span, gd.Name, c.convertTypeRefOpt(gd.Type), c.convertExpr(ctx, gd.Value), gd.Mutable)
	ctx.AddSymbol(c.sink, span.Start, gd.Name, &scope.Symbol{Kind: scope.KindVariable})
	return d
}

func (c *converter) convertGenerics(gs []*GenericParam) []ast.GenericParamDecl {
	if len(gs) == 0 {
		return nil
	}
	out := make([]ast.GenericParamDecl, len(gs))
	for i, g := range gs {
		gp := ast.GenericParamDecl{Name: g.Name}
		if len(g.Constraint) == 1 {
			gp.Constraint = c.convertTypeRef(g.Constraint[0])
		} else if len(g.Constraint) > 1 {
			options := make([]*ast.TypeRef, len(g.Constraint))
			for j, opt := range g.Constraint {
				options[j] = c.convertTypeRef(opt)
			}
			gp.Constraint = ast.NewUnionTypeRef(c.span(g.Pos), options)
		}
		out[i] = gp
	}
	return out
}

func (c *converter) convertParams(ps []*ParamDecl) []ast.Param {
	if len(ps) == 0 {
		return nil
	}
	out := make([]ast.Param, len(ps))
	for i, p := range ps {
		out[i] = ast.Param{Span: c.span(p.Pos), Name: p.Name, Type: c.convertTypeRef(p.Type)}
	}
	return out
}

func (c *converter) convertTypeRefOpt(tr *GTypeRef) *ast.TypeRef {
	if tr == nil {
		return nil
	}
	return c.convertTypeRef(tr)
}

func (c *converter) convertTypeRef(tr *GTypeRef) *ast.TypeRef {
	span := c.span(tr.Pos)
	var out *ast.TypeRef
	switch {
	case tr.Fn != nil:
		params := make([]*ast.TypeRef, len(tr.Fn.Params))
		for i, p := range tr.Fn.Params {
			params[i] = c.convertTypeRef(p)
		}
		out = ast.NewFunctionTypeRef(span, params, c.convertTypeRefOpt(tr.Fn.Result))
	case tr.Named != nil:
		parts := tr.Named.Parts
		var args []*ast.TypeRef
		for _, a := range tr.Named.TypeArgs {
			args = append(args, c.convertTypeRef(a))
		}
		out = ast.NewNamedTypeRef(span, parts[:len(parts)-1], parts[len(parts)-1], args)
	}
	for _, s := range tr.Suffixes {
		if strings.HasPrefix(s, "[") {
			out = ast.NewArrayTypeRef(span, out)
		} else {
			out = ast.NewNullableTypeRef(span, out)
		}
	}
	return out
}

// ---- statements ----

func (c *converter) convertBlock(ctx *scope.Context, b *GBlock) *ast.Block {
	if b == nil {
		return nil
	}
	span := c.span(b.Pos)
	var stmts []*ast.Stmt
	for _, s := range b.Stmts {
		if st := c.convertStmt(ctx, s); st != nil {
			stmts = append(stmts, st)
		}
	}
	return ast.NewBlock(span, stmts)
}

func (c *converter) convertStmt(ctx *scope.Context, s *GStmt) *ast.Stmt {
	span := c.span(s.Pos)
	switch {
	case s.Let != nil:
		return c.convertLet(ctx, s.Let)
	case s.Return != nil:
		return ast.NewReturnStmt(c.span(s.Return.Pos), c.convertExprOpt(ctx, s.Return.Value))
	case s.While != nil:
		return ast.NewWhileStmt(c.span(s.While.Pos), c.convertExpr(ctx, s.While.Cond), c.convertBlock(ctx, s.While.Body))
	case s.For != nil:
		var init, post *ast.Stmt
		if s.For.Init != nil {
			init = c.convertLet(ctx, s.For.Init)
		}
		if s.For.Post != nil {
			post = ast.NewExprStmt(span, c.convertExpr(ctx, s.For.Post))
		}
		return ast.NewForStmt(c.span(s.For.Pos), init, c.convertExprOpt(ctx, s.For.Cond), post, c.convertBlock(ctx, s.For.Body))
	case s.Foreach != nil:
		return ast.NewForeachStmt(c.span(s.Foreach.Pos), s.Foreach.LoopVar, c.convertExpr(ctx, s.Foreach.Iterable), c.convertBlock(ctx, s.Foreach.Body))
	case s.Break:
		return ast.NewBreakStmt(span)
	case s.Continue:
		return ast.NewContinueStmt(span)
	case s.Block != nil:
		return ast.NewBlockStmt(span, c.convertBlock(ctx, s.Block))
	case s.Expr != nil:
		return ast.NewExprStmt(span, c.convertExpr(ctx, s.Expr))
	}
	return nil
}

func (c *converter) convertLet(ctx *scope.Context, l *LetStmt) *ast.Stmt {
	span := c.span(l.Pos)
	pat := &ast.Pattern{Span: span, Kind: ast.PatternIdentifier, Name: l.Name}
	if l.Name == "_" {
		pat.Kind = ast.PatternWildcard
	}
	return ast.NewLetStmt(span, pat, c.convertTypeRefOpt(l.Type), c.convertExpr(ctx, l.Value), l.Mutable)
}

// ---- expressions ----

func (c *converter) convertExprOpt(ctx *scope.Context, e *GExpr) *ast.Expr {
	if e == nil {
		return nil
	}
	return c.convertExpr(ctx, e)
}

func (c *converter) convertExpr(ctx *scope.Context, e *GExpr) *ast.Expr {
	target := c.convertOr(ctx, e.Target)
	if e.AssOp == "" {
		return target
	}
	value := c.convertExpr(ctx, e.Value)
	span := c.span(e.Pos)

	// `x[i] op= v` rewrites through IndexSetExpression (spec §4.5).
	if target.Kind == ast.ExprIndex {
		if e.AssOp != "=" {
			value = ast.NewBinary(c.pkg.IDGen, span, strings.TrimSuffix(e.AssOp, "="), target, value)
		}
		return ast.NewIndexSet(c.pkg.IDGen, span, target.Target, target.Index, value)
	}
	return ast.NewAssign(c.pkg.IDGen, span, e.AssOp, target, value)
}

func (c *converter) convertOr(ctx *scope.Context, e *OrExpr) *ast.Expr {
	out := c.convertAnd(ctx, e.Left)
	for _, op := range e.Rest {
		out = ast.NewBinary(c.pkg.IDGen, c.span(e.Pos), op.Op, out, c.convertAnd(ctx, op.Right))
	}
	return out
}

func (c *converter) convertAnd(ctx *scope.Context, e *AndExpr) *ast.Expr {
	out := c.convertCmp(ctx, e.Left)
	for _, op := range e.Rest {
		out = ast.NewBinary(c.pkg.IDGen, c.span(e.Pos), op.Op, out, c.convertCmp(ctx, op.Right))
	}
	return out
}

func (c *converter) convertCmp(ctx *scope.Context, e *CmpExpr) *ast.Expr {
	out := c.convertAdd(ctx, e.Left)
	for _, op := range e.Rest {
		out = ast.NewBinary(c.pkg.IDGen, c.span(e.Pos), op.Op, out, c.convertAdd(ctx, op.Right))
	}
	return out
}

func (c *converter) convertAdd(ctx *scope.Context, e *AddExpr) *ast.Expr {
	out := c.convertMul(ctx, e.Left)
	for _, op := range e.Rest {
		out = ast.NewBinary(c.pkg.IDGen, c.span(e.Pos), op.Op, out, c.convertMul(ctx, op.Right))
	}
	return out
}

func (c *converter) convertMul(ctx *scope.Context, e *MulExpr) *ast.Expr {
	out := c.convertUnary(ctx, e.Left)
	for _, op := range e.Rest {
		out = ast.NewBinary(c.pkg.IDGen, c.span(e.Pos), op.Op, out, c.convertUnary(ctx, op.Right))
	}
	return out
}

func (c *converter) convertUnary(ctx *scope.Context, e *UnaryExpr) *ast.Expr {
	operand := c.convertPostfix(ctx, e.Operand)
	if e.Op == "" {
		return operand
	}
	return ast.NewUnary(c.pkg.IDGen, c.span(e.Pos), e.Op, operand)
}

func (c *converter) convertPostfix(ctx *scope.Context, e *PostfixExpr) *ast.Expr {
	out := c.convertPrimary(ctx, e.Primary)
	span := c.span(e.Pos)
	for _, op := range e.Ops {
		switch {
		case op.Call != nil:
			var typeArgs []*ast.TypeRef
			for _, ta := range op.Call.TypeArgs {
				typeArgs = append(typeArgs, c.convertTypeRef(ta))
			}
			args := make([]*ast.Expr, len(op.Call.Args))
			for i, a := range op.Call.Args {
				args[i] = c.convertExpr(ctx, a)
			}
			out = ast.NewCall(c.pkg.IDGen, span, out, args, typeArgs)
		case op.Index != nil:
			out = ast.NewIndex(c.pkg.IDGen, span, out, c.convertExpr(ctx, op.Index))
		case op.NullMember != nil:
			out = ast.NewNullableMember(c.pkg.IDGen, c.span(op.NullMember.Pos), out, op.NullMember.Name)
		case op.Member != nil:
			out = ast.NewMember(c.pkg.IDGen, c.span(op.Member.Pos), out, op.Member.Name)
		case op.Cast != nil:
			out = ast.NewCast(c.pkg.IDGen, span, out, c.convertTypeRef(op.Cast))
		}
	}
	return out
}

func (c *converter) convertPrimary(ctx *scope.Context, e *PrimaryExpr) *ast.Expr {
	span := c.span(e.Pos)
	gen := c.pkg.IDGen
	switch {
	case e.If != nil:
		return c.convertIf(ctx, e.If)
	case e.Match != nil:
		subject := c.convertExpr(ctx, e.Match.Subject)
		var arms []ast.MatchArm
		for _, a := range e.Match.Arms {
			arms = append(arms, ast.MatchArm{
				Span:    c.span(a.Pos),
				Pattern: &ast.Pattern{Span: c.span(a.Pos), Kind: ast.PatternIdentifier, Name: a.Pattern},
				Body:    c.convertExpr(ctx, a.Body),
			})
		}
		return ast.NewMatch(gen, c.span(e.Match.Pos), subject, arms)
	case e.Do != nil:
		return ast.NewDo(gen, span, c.convertBlock(ctx, e.Do))
	case e.Spawn != nil:
		return ast.NewSpawn(gen, span, c.convertExpr(ctx, e.Spawn))
	case e.Await != nil:
		return ast.NewAwait(gen, span, c.convertExpr(ctx, e.Await))
	case e.Coroutine != nil:
		return ast.NewCoroutineConstruct(gen, span, c.convertExpr(ctx, e.Coroutine))
	case e.Yield != nil:
		return ast.NewYield(gen, c.span(e.Yield.Pos), c.convertExprOpt(ctx, e.Yield.Value))
	case e.New != nil:
		args := make([]*ast.Expr, len(e.New.Args))
		for i, a := range e.New.Args {
			args[i] = c.convertExpr(ctx, a)
		}
		out := ast.NewNew(gen, c.span(e.New.Pos), c.convertTypeRef(e.New.Type), args)
		for _, fi := range e.New.Fields {
			out.FieldInits = append(out.FieldInits, ast.StructFieldInit{Name: fi.Name, Value: c.convertExpr(ctx, fi.Value)})
		}
		return out
	case e.Lambda != nil:
		return c.convertLambda(ctx, e.Lambda)
	case e.Array != nil:
		elems := make([]*ast.Expr, len(e.Array.Elements))
		for i, el := range e.Array.Elements {
			elems[i] = c.convertExpr(ctx, el)
		}
		return ast.NewArrayLiteral(gen, c.span(e.Array.Pos), elems)
	case e.Struct != nil:
		var fields []ast.StructFieldInit
		for _, fi := range e.Struct.Fields {
			fields = append(fields, ast.StructFieldInit{Name: fi.Name, Value: c.convertExpr(ctx, fi.Value)})
		}
		return ast.NewStructLiteral(gen, c.span(e.Struct.Pos), nil, fields)
	case e.Float != nil:
		return ast.NewFloatLiteral(gen, span, *e.Float)
	case e.Int != nil:
		return ast.NewIntLiteral(gen, span, *e.Int)
	case e.Str != nil:
		return ast.NewStringLiteral(gen, span, unquote(*e.Str))
	case e.Char != nil:
		lit := ast.NewIntLiteral(gen, span, charValue(*e.Char))
		lit.LitKind = ast.LitChar
		return lit
	case e.True:
		return ast.NewBoolLiteral(gen, span, true)
	case e.False:
		return ast.NewBoolLiteral(gen, span, false)
	case e.Null:
		return ast.NewNullLiteral(gen, span)
	case e.Paren != nil:
		return c.convertExpr(ctx, e.Paren)
	default:
		return ast.NewIdentifier(gen, span, e.Ident)
	}
}

func (c *converter) convertIf(ctx *scope.Context, ie *IfExpr) *ast.Expr {
	span := c.span(ie.Pos)
	cond := c.convertExpr(ctx, ie.Cond)
	then := c.blockExpr(ctx, ie.Then)
	var els *ast.Expr
	if ie.Else != nil {
		if ie.Else.If != nil {
			els = c.convertIf(ctx, ie.Else.If)
		} else {
			els = c.blockExpr(ctx, ie.Else.Block)
		}
	}
	return ast.NewIf(c.pkg.IDGen, span, cond, then, els)
}

// blockExpr turns an if-arm block into an expression: a single-expression
// block is that expression; anything else becomes a do-expression.
func (c *converter) blockExpr(ctx *scope.Context, b *GBlock) *ast.Expr {
	block := c.convertBlock(ctx, b)
	if block != nil && len(block.Stmts) == 1 && block.Stmts[0].Kind == ast.StmtExpr {
		return block.Stmts[0].Expr
	}
	return ast.NewDo(c.pkg.IDGen, c.span(b.Pos), block)
}

func (c *converter) convertLambda(ctx *scope.Context, le *LambdaExpr) *ast.Expr {
	span := c.span(le.Pos)
	lambdaCtx := c.arena.NewContext(ctx, scope.Owner{Kind: scope.OwnerLambda})

	var body *ast.Block
	if le.ExprBody != nil {
		value := c.convertExpr(lambdaCtx, le.ExprBody)
		body = ast.NewBlock(span, []*ast.Stmt{ast.NewReturnStmt(span, value)})
	} else {
		body = c.convertBlock(lambdaCtx, le.Body)
	}
	out := ast.NewLambda(c.pkg.IDGen, span, c.convertParams(le.Params), c.convertTypeRefOpt(le.Return), body, false)
	out.Context = lambdaCtx
	lambdaCtx.Owner.Node = out
	return out
}

func unquote(s string) string {
	out, err := strconv.Unquote(s)
	if err != nil {
		return strings.Trim(s, `"`)
	}
	return out
}

func charValue(s string) int64 {
	body := strings.Trim(s, "'")
	if body == "" {
		return 0
	}
	if body[0] == '\\' && len(body) > 1 {
		switch body[1] {
		case 'n':
			return '\n'
		case 't':
			return '\t'
		case 'r':
			return '\r'
		case '0':
			return 0
		case '\\':
			return '\\'
		case '\'':
			return '\''
		}
	}
	return int64([]rune(body)[0])
}
