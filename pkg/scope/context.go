package scope

import (
	"fmt"
	"sync"

	"github.com/typec-lang/tcc/pkg/source"
)

// OwnerKind classifies what lexical construct a Context belongs to. A
// "function-like" owner (Function, Lambda, Method) opens its own call frame
// for upvalue-capture purposes; Namespace/LetIn/None/Package do not.
type OwnerKind int

const (
	OwnerNone OwnerKind = iota
	OwnerPackage
	OwnerFunction
	OwnerLambda
	OwnerMethod
	OwnerNamespace
	OwnerLetIn
)

func (o OwnerKind) isFunctionLike() bool {
	switch o {
	case OwnerFunction, OwnerLambda, OwnerMethod:
		return true
	default:
		return false
	}
}

// Owner pairs an OwnerKind with the AST node it corresponds to. Node is
// `any` to keep this package independent of pkg/ast.
type Owner struct {
	Kind OwnerKind
	Node any
}

// CodegenInfo is the per-function bookkeeping lookupScope populates as a
// side effect: the ordered list of locals IR lowering must reserve stack
// slots for, and the ordered list of upvalues a closure must capture at its
// creation site (spec §4.1 upvalue rule, §4.5 "Closures").
type CodegenInfo struct {
	Locals   []*Symbol
	Upvalues []*Symbol

	localSet   map[*Symbol]bool
	upvalueSet map[*Symbol]bool
}

func newCodegenInfo() *CodegenInfo {
	return &CodegenInfo{localSet: make(map[*Symbol]bool), upvalueSet: make(map[*Symbol]bool)}
}

func (c *CodegenInfo) addLocal(s *Symbol) {
	if c.localSet[s] {
		return
	}
	c.localSet[s] = true
	c.Locals = append(c.Locals, s)
}

func (c *CodegenInfo) addUpvalue(s *Symbol) {
	if c.upvalueSet[s] {
		return
	}
	c.upvalueSet[s] = true
	c.Upvalues = append(c.Upvalues, s)
}

// Flags holds the environment booleans a Context carries down from its
// enclosing constructs (spec §3.1 "Context (scope)").
type Flags struct {
	WithinClass          bool
	WithinLoop           bool
	WithinFunction       bool
	WithinImplementation bool
	WithinDoExpression   bool
}

// Context is one node in the lexical-scope tree (spec §3.1 "Context").
type Context struct {
	UUID   uint64
	Parent *Context
	Owner  Owner
	Flags  Flags

	// ActiveClass / ActiveImpl resolve `this`; stored as `any` (concretely
	// *types.ClassType / *types.ImplementationType) to avoid an import
	// cycle between scope and types, since types.Type.DeclContext is a
	// *scope.Context.
	ActiveClass any
	ActiveImpl  any

	// LoopContext is the nearest enclosing loop Context, used to bind
	// break/continue without re-walking the parent chain every time.
	LoopContext *Context

	EndLoc *source.Location

	Symbols map[string]*Symbol
	Codegen *CodegenInfo // non-nil only when Owner.Kind.isFunctionLike()

	arena        *Arena
	insertionSeq int
}

// Arena owns every process-wide counter a compilation needs (the context
// uuid counter and the global registry), scoped to one compiler instance so
// that embedding the core in a long-running host keeps independent
// compilations from leaking state into each other (spec §5, §9).
type Arena struct {
	mu       sync.Mutex
	nextUUID uint64
	Global   *GlobalRegistry
}

// NewArena creates a fresh, independent counter/registry set.
func NewArena() *Arena {
	return &Arena{Global: NewGlobalRegistry()}
}

func (a *Arena) allocUUID() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextUUID++
	return a.nextUUID
}

// NewContext creates a child of parent (nil for a fresh root) with the given
// owner. Flags, ActiveClass, ActiveImpl, and LoopContext are inherited from
// parent by default; callers mutate the returned Context's fields to open a
// new loop/class/function as needed.
func (a *Arena) NewContext(parent *Context, owner Owner) *Context {
	c := &Context{
		UUID:    a.allocUUID(),
		Parent:  parent,
		Owner:   owner,
		Symbols: make(map[string]*Symbol),
		arena:   a,
	}
	if parent != nil {
		c.Flags = parent.Flags
		c.ActiveClass = parent.ActiveClass
		c.ActiveImpl = parent.ActiveImpl
		c.LoopContext = parent.LoopContext
	}
	if owner.Kind.isFunctionLike() {
		c.Codegen = newCodegenInfo()
		c.Flags.WithinFunction = true
	}
	return c
}

// IsRoot reports whether this context has no parent (a package root).
func (c *Context) IsRoot() bool { return c.Parent == nil }

// AddSymbol inserts sym under name, assigning its uid. It fails with a
// Symbol-kind diagnostic if name already exists in this exact context
// (spec invariant 2); it pushes a warning, not an error, if name shadows an
// ancestor's binding. Eligible symbols are eagerly registered to the global
// registry (spec §4.1).
func (c *Context) AddSymbol(sink *source.Sink, loc source.Location, name string, sym *Symbol) bool {
	if _, exists := c.Symbols[name]; exists {
		sink.Error(source.NewError(source.KindSymbol, loc, fmt.Sprintf("duplicate symbol %q in this scope", name)))
		return false
	}
	if anc := c.Parent; anc != nil {
		if _, shadowed := anc.lookupChain(name); shadowed {
			sink.Warn(source.NewWarning(source.KindSymbol, loc, fmt.Sprintf("declaration of %q shadows an outer binding", name)))
		}
	}

	sym.Name = name
	sym.UID = fmt.Sprintf("%d#%s#%d", c.UUID, name, c.insertionSeq)
	c.insertionSeq++
	sym.Owner = c
	c.Symbols[name] = sym

	if c.IsRoot() || sym.Kind.registrable() {
		c.arena.Global.Register(sym)
	}
	return true
}

// RegisterToGlobalContext force-registers sym to the arena's global
// registry even when its kind or context would not trigger AddSymbol's
// eager registration — used for lambdas, which are never inserted by name
// into a Context but still need a top-level codegen entry (spec §3.1
// "Global context" lifecycle).
func (c *Context) RegisterToGlobalContext(sym *Symbol) {
	if sym.UID == "" {
		sym.UID = fmt.Sprintf("%d#%s#%d", c.UUID, sym.Name, c.insertionSeq)
		c.insertionSeq++
	}
	c.arena.Global.Register(sym)
}

// AddExternalSymbol installs an alias for an imported symbol without taking
// ownership of it: a fresh Symbol is created pointing at the same Decl, so
// call/type resolution still reaches the original definition, but the
// original's uid and Owner are untouched (spec §4.1, §4.2).
func (c *Context) AddExternalSymbol(name string, original *Symbol) *Symbol {
	alias := &Symbol{
		Kind:     original.Kind,
		Name:     name,
		Decl:     original.Decl,
		External: true,
		IsLocal:  false,
	}
	alias.UID = fmt.Sprintf("%d#%s#%d", c.UUID, name, c.insertionSeq)
	c.insertionSeq++
	alias.Owner = c
	c.Symbols[name] = alias
	if c.IsRoot() || alias.Kind.registrable() {
		c.arena.Global.Register(alias)
	}
	return alias
}

// lookupChain walks from c (inclusive) up to the root looking for name.
func (c *Context) lookupChain(name string) (*Context, bool) {
	for cur := c; cur != nil; cur = cur.Parent {
		if _, ok := cur.Symbols[name]; ok {
			return cur, true
		}
	}
	return nil, false
}

// Lookup walks parent contexts until name is found, returning nil if it
// never is (spec §4.1 "lookup(name)").
func (c *Context) Lookup(name string) *Symbol {
	for cur := c; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// SymbolNames returns the names declared directly in this context (not its
// ancestors), in no particular order — callers needing determinism (e.g.
// star-import registration) should sort the result themselves.
func (c *Context) SymbolNames() []string {
	names := make([]string, 0, len(c.Symbols))
	for name := range c.Symbols {
		names = append(names, name)
	}
	return names
}

// Class is the scope classification lookupScope assigns.
type Class int

const (
	ClassGlobal Class = iota
	ClassLocal
	ClassUpvalue
)

func (cl Class) String() string {
	switch cl {
	case ClassGlobal:
		return "global"
	case ClassLocal:
		return "local"
	case ClassUpvalue:
		return "upvalue"
	default:
		return "unknown"
	}
}

// nearestFunction walks ctx and its ancestors for the first function-like
// owner, returning nil once it falls off the root (a package-level symbol
// has no enclosing function).
func nearestFunction(ctx *Context) *Context {
	for cur := ctx; cur != nil; cur = cur.Parent {
		if cur.Owner.Kind.isFunctionLike() {
			return cur
		}
	}
	return nil
}

// LookupScope performs the same walk as Lookup but classifies the result
// into global/local/upvalue and performs the side effects described in
// spec §4.1: registering locals/upvalues on function codegen bookkeeping,
// and marking arguments used.
//
// Upvalue rule: let callerFn = nearestFunction(c), symFn =
// nearestFunction(definingContext). If symFn != callerFn and symFn != nil,
// sym is an upvalue for callerFn; every function strictly between callerFn
// and symFn (exclusive of symFn) also records it as a captured upvalue, so a
// doubly-nested closure's intermediate frame knows to forward the capture.
func (c *Context) LookupScope(name string) (*Symbol, Class) {
	defCtx, ok := c.lookupChain(name)
	if !ok {
		return nil, ClassGlobal
	}
	sym := defCtx.Symbols[name]

	callerFn := nearestFunction(c)
	symFn := nearestFunction(defCtx)

	if sym.Kind == KindArgument {
		sym.Used = true
	}

	if symFn == nil {
		return sym, ClassGlobal
	}
	if symFn == callerFn {
		if sym.Kind == KindVariable || sym.Kind == KindVariablePattern {
			callerFn.Codegen.addLocal(sym)
		}
		return sym, ClassLocal
	}

	for fn := callerFn; fn != nil && fn != symFn; fn = nearestFunction(fn.Parent) {
		fn.Codegen.addUpvalue(sym)
	}
	return sym, ClassUpvalue
}

// FindParentFunction returns the nearest function-like ancestor of ctx
// (inclusive), or nil at the package root.
func FindParentFunction(ctx *Context) *Context { return nearestFunction(ctx) }

// FindParentLoop returns the nearest enclosing loop Context, or nil.
func FindParentLoop(ctx *Context) *Context { return ctx.LoopContext }

// FindParentDoExpression returns the nearest ancestor with WithinDoExpression
// set, or nil if none encloses ctx.
func FindParentDoExpression(ctx *Context) *Context {
	for cur := ctx; cur != nil; cur = cur.Parent {
		if cur.Flags.WithinDoExpression {
			return cur
		}
	}
	return nil
}

// GetActiveClass searches ctx and its ancestors for the nearest non-nil
// ActiveClass, used to resolve `this` inside a class method.
func GetActiveClass(ctx *Context) any {
	for cur := ctx; cur != nil; cur = cur.Parent {
		if cur.ActiveClass != nil {
			return cur.ActiveClass
		}
	}
	return nil
}

// GetActiveImplementation searches ctx and its ancestors for the nearest
// non-nil ActiveImpl, used to resolve `this` inside an implementation block.
func GetActiveImplementation(ctx *Context) any {
	for cur := ctx; cur != nil; cur = cur.Parent {
		if cur.ActiveImpl != nil {
			return cur.ActiveImpl
		}
	}
	return nil
}

// Clone shallow-copies c's environment (flags, active class/impl) under a
// new parent with an empty symbol table. Used during generic monomorphization
// when a generic function/class body is re-walked under a fresh type-
// parameter substitution: the substitution map itself is applied by the
// caller (pkg/types/pkg/infer) while re-inferring the cloned body, not by
// this package.
func (c *Context) Clone(parent *Context) *Context {
	clone := c.arena.NewContext(parent, c.Owner)
	clone.Flags = c.Flags
	clone.ActiveClass = c.ActiveClass
	clone.ActiveImpl = c.ActiveImpl
	clone.LoopContext = c.LoopContext
	return clone
}
