package infer

import (
	"fmt"

	"github.com/typec-lang/tcc/pkg/ast"
	"github.com/typec-lang/tcc/pkg/scope"
	"github.com/typec-lang/tcc/pkg/source"
	"github.com/typec-lang/tcc/pkg/types"
)

// FuncInstance is one concrete, lowerable function body: either the single
// instance of a non-generic function/method, or one monomorphized
// instantiation of a generic one (spec §3.3 "concrete generic instances").
// pkg/ir consumes these directly rather than walking scope.GlobalRegistry,
// since a generic origin has no single "the" instance to lower.
type FuncInstance struct {
	// UID is the owning context's uuid, formatted decimal (spec invariant
	// 9: "An IR uid used as a jump target ... is the uuid of the owning
	// context").
	UID string

	Name        string // for diagnostics / IR comments only
	Decl        *ast.Decl
	Body        *ast.Block // the block IR lowering walks; d.Body for declared functions, the lambda body otherwise
	Context     *scope.Context
	ParamTypes  []*types.Type
	ResultType  *types.Type
	IsMethod    bool
	ThisType    *types.Type // non-nil for class/impl methods
	IsCoroutine bool
	Signature   string // "" for non-generic; the monomorphization signature otherwise

	Returns []*ast.Stmt // collected ReturnStatements (spec invariant 8)
	Yields  []*ast.Expr // collected YieldExpressions

	Upvalues []*scope.Symbol // ordered capture list (lambdas only; spec §4.5 "Closures")
}

type instKey struct {
	decl *ast.Decl
	sig  string
}

// Engine drives inference for one compilation (spec §5: owned per compiler
// instance, never package-global state).
type Engine struct {
	Arena *scope.Arena
	Sink  *source.Sink
	Table *Table

	headerDone   map[*ast.Decl]bool
	populated    map[*ast.Decl]bool
	inferring    map[instKey]bool
	genericCache map[*ast.Decl]map[string]*FuncInstance
	lambdaInsts  map[*ast.Expr]*FuncInstance
	instances    []*FuncInstance

	// collectingFn is the FuncInstance currently having its body walked,
	// used by InferStmt/InferExpr to push Returns/Yields (spec §4.4
	// "Collecting ReturnStatements and YieldExpressions occurs while
	// visiting the body"). nil outside of any function body (package-level
	// statements, static initializers).
	collectingFn *FuncInstance
}

func NewEngine(arena *scope.Arena, sink *source.Sink) *Engine {
	return &Engine{
		Arena:        arena,
		Sink:         sink,
		Table:        NewTable(),
		headerDone:   make(map[*ast.Decl]bool),
		populated:    make(map[*ast.Decl]bool),
		inferring:    make(map[instKey]bool),
		genericCache: make(map[*ast.Decl]map[string]*FuncInstance),
		lambdaInsts:  make(map[*ast.Expr]*FuncInstance),
	}
}

// Instances returns every concrete function/method/lambda instance built so
// far, in creation order (deterministic IR emission, spec §5 ordering
// guarantees).
func (e *Engine) Instances() []*FuncInstance { return append([]*FuncInstance(nil), e.instances...) }

// LambdaInstance returns the FuncInstance built for a lambda expression, so
// IR lowering can connect a closure_alloc site to its function body's uid.
func (e *Engine) LambdaInstance(expr *ast.Expr) *FuncInstance { return e.lambdaInsts[expr] }

// Infer runs whole-package inference (spec §4.2 "the resolver invokes infer
// on the package", spec §3.3 "infer is idempotent"). It satisfies
// pkggraph.Inferrer.
func (e *Engine) Infer(pkg *ast.Package) {
	defer source.Recover()

	e.declareTypes(pkg.Root, pkg.Decls)
	e.populateTypes(pkg.Root, pkg.Decls)
	e.inferGlobals(pkg.Root, pkg.Decls)
	e.inferTopLevel(pkg.Root, pkg.Decls)

	for _, block := range pkg.StaticInits {
		blockCtx := e.Arena.NewContext(pkg.Root, scope.Owner{Kind: scope.OwnerNone})
		e.InferBlock(blockCtx, block, "")
	}
	for _, stmt := range pkg.Statements {
		e.InferStmt(pkg.Root, stmt, "")
	}
}

// declareTypes backfills the bare Type skeleton (Kind/Name/Generics only)
// for any nominal type declaration the parser did not already allocate
// one for, recursing into namespaces, so that any declaration in this
// package can reference any other by name regardless of textual order
// (spec §3.2 invariant 3: a reference type resolves lazily without
// mutating name/path). The production parser registers skeletons at parse
// time; this path serves hand-built ASTs and keeps Infer idempotent.
func (e *Engine) declareTypes(ctx *scope.Context, decls []*ast.Decl) {
	for _, d := range decls {
		switch d.Kind {
		case ast.DeclClass, ast.DeclInterface, ast.DeclVariant, ast.DeclEnum, ast.DeclTypeAlias:
			if d.Type != nil {
				continue
			}
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
			}
			d.Type = &types.Type{Kind: kind, Name: d.Name, DeclContext: ctx, Generics: e.convertGenericParams(ctx, d.Generics)}
			ctx.AddSymbol(e.Sink, d.Span.Start, d.Name, &scope.Symbol{Kind: scope.KindType, Decl: d.Type})
		case ast.DeclFFI:
			if _, exists := ctx.Symbols[d.Name]; !exists {
				ctx.AddSymbol(e.Sink, d.Span.Start, d.Name, &scope.Symbol{Kind: scope.KindFFI, Decl: d})
			}
		case ast.DeclNamespace:
			e.declareTypes(namespaceCtx(ctx, d), d.NamespaceBody)
		}
	}
}

// namespaceCtx recurses into a namespace's own context (the parser opened
// it and registered the KindNamespace symbol), so namespaced declarations
// resolve under their namespace, not the surrounding scope.
func namespaceCtx(outer *scope.Context, d *ast.Decl) *scope.Context {
	if d.Context != nil {
		return d.Context
	}
	return outer
}

func (e *Engine) convertGenericParams(ctx *scope.Context, gens []ast.GenericParamDecl) []*types.GenericParam {
	if len(gens) == 0 {
		return nil
	}
	out := make([]*types.GenericParam, len(gens))
	for i, g := range gens {
		out[i] = &types.GenericParam{Name: g.Name}
	}
	return out
}

// populateTypes fills every skeleton declareTypes allocated: struct/class
// fields, interface/class method signatures (assigning IndexInClass in
// declaration order, spec invariant 4), variant constructors (assigning
// tags sequentially), enum members, and type-alias targets.
func (e *Engine) populateTypes(ctx *scope.Context, decls []*ast.Decl) {
	for _, d := range decls {
		if e.populated[d] {
			continue
		}
		e.populated[d] = true
		switch d.Kind {
		case ast.DeclClass:
			e.populateClass(ctx, d)
		case ast.DeclInterface:
			e.populateInterface(ctx, d)
		case ast.DeclVariant:
			e.populateVariant(ctx, d)
		case ast.DeclEnum:
			e.populateEnum(ctx, d)
		case ast.DeclTypeAlias:
			target := e.ConvertTypeRef(ctx, d.AliasTarget)
			*d.Type = *target.Resolve(e.Sink, d.Span.Start)
		case ast.DeclImplementation:
			e.populateImplementation(ctx, d)
		case ast.DeclNamespace:
			e.populateTypes(namespaceCtx(ctx, d), d.NamespaceBody)
		}
	}
}

func (e *Engine) populateClass(ctx *scope.Context, d *ast.Decl) {
	t := d.Type
	for _, a := range d.Attributes {
		t.Fields = append(t.Fields, types.Field{Name: a.Name, Type: e.ConvertTypeRef(ctx, a.Type)})
	}
	for i, m := range d.Methods {
		cm := &types.ClassMethod{
			Name: m.Name, Static: m.Static, IndexInClass: i,
			Decl: m, Context: m.Context,
			Generics: e.convertGenericParams(ctx, m.Generics),
		}
		for _, p := range m.Params {
			cm.Params = append(cm.Params, types.Field{Name: p.Name, Type: e.ConvertTypeRef(m.Context, p.Type)})
		}
		cm.Result = e.ConvertTypeRef(m.Context, m.ReturnType)
		t.Methods = append(t.Methods, cm)
		m.Type = &types.Type{Kind: types.KindFunction, Params: paramTypesOf(cm.Params), Result: cm.Result}
	}
	for _, ifaceRef := range d.Implements {
		t.Implements = append(t.Implements, e.ConvertTypeRef(ctx, ifaceRef).Resolve(e.Sink, d.Span.Start))
	}
	t.StaticInit = d.StaticInit
	for i := range t.Fields {
		t.Fields[i].Type = t.Fields[i].Type.Resolve(e.Sink, d.Span.Start)
	}
}

func paramTypesOf(fields []types.Field) []*types.Type {
	out := make([]*types.Type, len(fields))
	for i, f := range fields {
		out[i] = f.Type
	}
	return out
}

func (e *Engine) populateInterface(ctx *scope.Context, d *ast.Decl) {
	t := d.Type
	for _, m := range d.IMethods {
		im := &types.InterfaceMethod{Name: m.Name, Static: m.Static, Generics: e.convertGenericParams(ctx, m.Generics)}
		for _, p := range m.Params {
			im.Params = append(im.Params, types.Field{Name: p.Name, Type: e.ConvertTypeRef(ctx, p.Type).Resolve(e.Sink, m.Span.Start)})
		}
		im.Result = e.ConvertTypeRef(ctx, m.Result).Resolve(e.Sink, m.Span.Start)
		t.IMethods = append(t.IMethods, im)
	}
}

func (e *Engine) populateImplementation(ctx *scope.Context, d *ast.Decl) {
	target := e.ConvertTypeRef(ctx, d.Target).Resolve(e.Sink, d.Span.Start)
	impl := &types.Type{Kind: types.KindImplementation, DeclContext: ctx, Target: target}
	if d.Contract != nil {
		impl.Contract = e.ConvertTypeRef(ctx, d.Contract).Resolve(e.Sink, d.Span.Start)
	}
	for _, m := range d.Methods {
		im := &types.ImplMethod{Name: m.Name, Decl: m, Context: m.Context}
		for _, p := range m.Params {
			im.Params = append(im.Params, types.Field{Name: p.Name, Type: e.ConvertTypeRef(m.Context, p.Type).Resolve(e.Sink, m.Span.Start)})
		}
		im.Result = e.ConvertTypeRef(m.Context, m.ReturnType).Resolve(e.Sink, m.Span.Start)
		impl.ImplMethods = append(impl.ImplMethods, im)
		m.Type = &types.Type{Kind: types.KindFunction, Params: paramTypesOf(im.Params), Result: im.Result}
	}
	d.Type = impl
}

func (e *Engine) populateVariant(ctx *scope.Context, d *ast.Decl) {
	t := d.Type
	for i, c := range d.Constructors {
		vc := &types.VariantConstructor{Name: c.Name, Tag: uint16(i)}
		for _, p := range c.Params {
			vc.Params = append(vc.Params, types.Field{Name: p.Name, Type: e.ConvertTypeRef(ctx, p.Type).Resolve(e.Sink, c.Span.Start)})
		}
		t.Constructors = append(t.Constructors, vc)
	}
}

func (e *Engine) populateEnum(ctx *scope.Context, d *ast.Decl) {
	t := d.Type
	t.EnumBacking = types.BasicI32
	if d.Backing != nil {
		if backing := e.ConvertTypeRef(ctx, d.Backing).Resolve(e.Sink, d.Span.Start); backing.Kind == types.KindBasic {
			t.EnumBacking = backing.Basic
		}
	}
	if d.AsKind != nil {
		t.EnumAsKind = e.ConvertTypeRef(ctx, d.AsKind).Resolve(e.Sink, d.Span.Start)
	}
	next := int64(0)
	for _, m := range d.EnumMembers {
		val := next
		if m.Value != nil {
			e.InferExpr(ctx, m.Value, types.NewBasic(t.EnumBacking), "")
			val = m.Value.IntValue
		}
		t.EnumMembers = append(t.EnumMembers, types.EnumMember{Name: m.Name, Value: val})
		next = val + 1
	}
}

// inferGlobals infers every package-level `let`/`var` declaration's
// initializer before any function body, so a global referenced from inside
// a function already has an InferredType (spec §3.1 "global variables").
func (e *Engine) inferGlobals(ctx *scope.Context, decls []*ast.Decl) {
	for _, d := range decls {
		if d.Kind == ast.DeclGlobalVar {
			var hint *types.Type
			if d.TypeAnnotation != nil {
				hint = e.ConvertTypeRef(ctx, d.TypeAnnotation).Resolve(e.Sink, d.Span.Start)
			}
			inferred := e.InferExpr(ctx, d.Value, hint, "")
			declType := inferred
			if hint != nil {
				declType = hint
			}
			if sym, ok := ctx.Symbols[d.Name]; ok && sym.Decl == nil {
				sym.Decl = declType
			}
		}
		if d.Kind == ast.DeclNamespace {
			e.inferGlobals(namespaceCtx(ctx, d), d.NamespaceBody)
		}
	}
}

func (e *Engine) inferTopLevel(ctx *scope.Context, decls []*ast.Decl) {
	for _, d := range decls {
		switch d.Kind {
		case ast.DeclFunction:
			if len(d.Generics) == 0 {
				e.inferFunctionHeader(d, d.Context, "", nil)
			}
		case ast.DeclClass:
			for _, m := range d.Methods {
				m.Context.ActiveClass = d.Type
				if len(m.Generics) == 0 && len(d.Generics) == 0 {
					e.inferMethodHeader(m, m.Context, "", findClassMethodType(d.Type, m.Name), d.Type)
				}
			}
		case ast.DeclImplementation:
			for _, m := range d.Methods {
				m.Context.ActiveImpl = d.Type.Target
				if len(m.Generics) == 0 {
					e.inferMethodHeader(m, m.Context, "", m.Type, d.Type.Target)
				}
			}
		case ast.DeclNamespace:
			e.inferTopLevel(namespaceCtx(ctx, d), d.NamespaceBody)
		}
	}
}

func findClassMethodType(classType *types.Type, name string) *types.Type {
	for _, m := range classType.Methods {
		if m.Name == name {
			return &types.Type{Kind: types.KindFunction, Params: paramTypesOf(m.Params), Result: m.Result}
		}
	}
	return nil
}

func signatureOf(args []*types.Type) string {
	sig := ""
	for i, a := range args {
		if i > 0 {
			sig += ","
		}
		sig += a.Signature()
	}
	return sig
}

func jumpID(ctx *scope.Context) string { return fmt.Sprintf("%d", ctx.UUID) }
